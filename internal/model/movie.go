package model

import "time"

// Movie is a catalog entry.  Duration is expressed in minutes.  Slug is
// derived from the title and used for readable public URLs.
type Movie struct {
	ID          uint64    `json:"id"`
	Title       string    `json:"title"`
	Slug        string    `json:"slug"`
	Description string    `json:"description"`
	PosterURL   string    `json:"posterUrl"`
	Duration    int       `json:"duration"`
	Genre       string    `json:"genre"`
	CreatedAt   time.Time `json:"createdAt"`
}
