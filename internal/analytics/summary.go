// Package analytics computes read-only aggregates over bookings.
package analytics

import (
	"math"
	"sort"

	"github.com/iliyamo/movie-booking/internal/model"
)

// MovieStat aggregates the confirmed bookings of one movie.
type MovieStat struct {
	Movie        model.Movie `json:"movie"`
	BookingCount int         `json:"bookingCount"`
	Revenue      float64     `json:"revenue"`
	Seats        int         `json:"seats"`
}

// Summary is the dashboard view of a booking set.
type Summary struct {
	TotalBookings  int         `json:"totalBookings"`
	ConfirmedCount int         `json:"confirmedCount"`
	CancelledCount int         `json:"cancelledCount"`
	TotalRevenue   float64     `json:"totalRevenue"`
	TotalSeats     int         `json:"totalSeats"`
	ByMovie        []MovieStat `json:"byMovie"`
}

// Summarize aggregates bookings.  Revenue and seats only count confirmed
// bookings.  ByMovie covers confirmed bookings whose movie still resolves,
// ordered by booking count descending; ties keep the order in which each
// movie first appeared in bookings.
func Summarize(bookings []model.Booking) Summary {
	sum := Summary{TotalBookings: len(bookings), ByMovie: []MovieStat{}}
	index := make(map[uint64]int)

	for _, b := range bookings {
		switch b.Status {
		case model.BookingConfirmed:
			sum.ConfirmedCount++
		case model.BookingCancelled:
			sum.CancelledCount++
			continue
		default:
			continue
		}
		sum.TotalRevenue += b.TotalPrice
		sum.TotalSeats += b.Seats

		m := b.MovieOf()
		if m == nil {
			continue
		}
		i, ok := index[m.ID]
		if !ok {
			i = len(sum.ByMovie)
			index[m.ID] = i
			sum.ByMovie = append(sum.ByMovie, MovieStat{Movie: *m})
		}
		st := &sum.ByMovie[i]
		st.BookingCount++
		st.Revenue += b.TotalPrice
		st.Seats += b.Seats
	}

	sum.TotalRevenue = roundCents(sum.TotalRevenue)
	for i := range sum.ByMovie {
		sum.ByMovie[i].Revenue = roundCents(sum.ByMovie[i].Revenue)
	}
	sort.SliceStable(sum.ByMovie, func(i, j int) bool {
		return sum.ByMovie[i].BookingCount > sum.ByMovie[j].BookingCount
	})
	return sum
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
