// Package queue defines booking lifecycle events and the ways they leave
// the process: the RabbitMQ publisher, the audit-log consumer and fan-out
// to in-process subscribers.
package queue

import (
	"context"
	"errors"
	"time"

	"github.com/iliyamo/movie-booking/internal/model"
)

// EventType names a booking lifecycle transition.
type EventType string

const (
	BookingCreated       EventType = "booking.created"
	BookingStatusChanged EventType = "booking.status_changed"
	BookingDeleted       EventType = "booking.deleted"
)

// BookingEvent is published after a booking mutation has been persisted.
// It carries enough information for downstream consumers to log or
// aggregate without querying the primary database.
type BookingEvent struct {
	Type       EventType           `json:"type"`
	BookingID  uint64              `json:"bookingId"`
	UserID     uint64              `json:"userId"`
	ShowtimeID uint64              `json:"showtimeId"`
	MovieTitle string              `json:"movieTitle,omitempty"`
	Seats      int                 `json:"seats"`
	TotalPrice float64             `json:"totalPrice"`
	Status     model.BookingStatus `json:"status"`
	OccurredAt time.Time           `json:"occurredAt"`
}

// NewBookingEvent snapshots b as an event of type t.
func NewBookingEvent(t EventType, b model.Booking) BookingEvent {
	ev := BookingEvent{
		Type:       t,
		BookingID:  b.ID,
		UserID:     b.UserID,
		ShowtimeID: b.ShowtimeID,
		Seats:      b.Seats,
		TotalPrice: b.TotalPrice,
		Status:     b.Status,
		OccurredAt: time.Now().UTC(),
	}
	if m := b.MovieOf(); m != nil {
		ev.MovieTitle = m.Title
	}
	return ev
}

// Publisher delivers booking events.  Implementations must be safe for
// concurrent use.
type Publisher interface {
	Publish(ctx context.Context, ev BookingEvent) error
}

// Fanout delivers every event to each of its publishers, even when an
// earlier one fails.  The returned error joins all failures.
type Fanout []Publisher

func (f Fanout) Publish(ctx context.Context, ev BookingEvent) error {
	var errs []error
	for _, p := range f {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Discard drops every event.
type Discard struct{}

func (Discard) Publish(context.Context, BookingEvent) error { return nil }
