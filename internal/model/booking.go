package model

import (
	"math"
	"strings"
	"time"
)

// BookingStatus is the lifecycle state of a booking.
type BookingStatus string

const (
	BookingConfirmed BookingStatus = "confirmed"
	BookingCancelled BookingStatus = "cancelled"
)

// ParseBookingStatus normalizes s and reports whether it is a known status.
func ParseBookingStatus(s string) (BookingStatus, bool) {
	switch st := BookingStatus(strings.ToLower(strings.TrimSpace(s))); st {
	case BookingConfirmed, BookingCancelled:
		return st, true
	}
	return "", false
}

// Booking records a user's reservation of a number of seats for a
// showtime.  TotalPrice is computed once at creation and never recomputed.
// Showtime (with its Movie) and User are populated by joined reads; each
// stays nil when the referenced row was deleted.
type Booking struct {
	ID         uint64        `json:"id"`
	UserID     uint64        `json:"userId"`
	ShowtimeID uint64        `json:"showtimeId"`
	Seats      int           `json:"seats"`
	TotalPrice float64       `json:"totalPrice"`
	Status     BookingStatus `json:"status"`
	CreatedAt  time.Time     `json:"createdAt"`
	Showtime   *Showtime     `json:"showtime,omitempty"`
	User       *User         `json:"user,omitempty"`
}

// MovieOf returns the movie reachable through the booking's showtime, or
// nil when either link is unresolved.
func (b Booking) MovieOf() *Movie {
	if b.Showtime == nil {
		return nil
	}
	return b.Showtime.Movie
}

// TotalPrice returns price × seats rounded to cents.
func TotalPrice(price float64, seats int) float64 {
	return math.Round(price*float64(seats)*100) / 100
}
