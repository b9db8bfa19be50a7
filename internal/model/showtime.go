package model

import "time"

// Showtime represents a scheduled screening of a movie.  Date is a calendar
// day (YYYY-MM-DD) and Time a free-form wall-clock label such as "06:00 PM".
// Movie is populated by joined reads and stays nil when the referenced
// movie no longer exists.
type Showtime struct {
	ID        uint64    `json:"id"`
	MovieID   uint64    `json:"movieId"`
	Date      string    `json:"date"`
	Time      string    `json:"time"`
	Price     float64   `json:"price"`
	CreatedAt time.Time `json:"createdAt"`
	Movie     *Movie    `json:"movie,omitempty"`
}
