package repository

import (
	"database/sql"
	"time"

	"github.com/iliyamo/movie-booking/internal/model"
)

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// now returns the current UTC time truncated to whole seconds, which is the
// precision of a MySQL DATETIME column.
func now() time.Time {
	return time.Now().UTC().Truncate(time.Second)
}

// nullMovie receives the columns of a LEFT JOINed movie row.
type nullMovie struct {
	ID          sql.NullInt64
	Title       sql.NullString
	Slug        sql.NullString
	Description sql.NullString
	PosterURL   sql.NullString
	Duration    sql.NullInt64
	Genre       sql.NullString
	CreatedAt   sql.NullTime
}

func (n *nullMovie) dest() []any {
	return []any{&n.ID, &n.Title, &n.Slug, &n.Description, &n.PosterURL, &n.Duration, &n.Genre, &n.CreatedAt}
}

// movie returns nil when the join found no row.
func (n *nullMovie) movie() *model.Movie {
	if !n.ID.Valid {
		return nil
	}
	return &model.Movie{
		ID:          uint64(n.ID.Int64),
		Title:       n.Title.String,
		Slug:        n.Slug.String,
		Description: n.Description.String,
		PosterURL:   n.PosterURL.String,
		Duration:    int(n.Duration.Int64),
		Genre:       n.Genre.String,
		CreatedAt:   n.CreatedAt.Time,
	}
}

// nullShowtime receives the columns of a LEFT JOINed showtime row.
type nullShowtime struct {
	ID        sql.NullInt64
	MovieID   sql.NullInt64
	Date      sql.NullString
	Time      sql.NullString
	Price     sql.NullFloat64
	CreatedAt sql.NullTime
}

func (n *nullShowtime) dest() []any {
	return []any{&n.ID, &n.MovieID, &n.Date, &n.Time, &n.Price, &n.CreatedAt}
}

func (n *nullShowtime) showtime() *model.Showtime {
	if !n.ID.Valid {
		return nil
	}
	return &model.Showtime{
		ID:        uint64(n.ID.Int64),
		MovieID:   uint64(n.MovieID.Int64),
		Date:      n.Date.String,
		Time:      n.Time.String,
		Price:     n.Price.Float64,
		CreatedAt: n.CreatedAt.Time,
	}
}

// nullUser receives the columns of a LEFT JOINed user row.  The password
// hash is never selected in joins.
type nullUser struct {
	ID        sql.NullInt64
	Name      sql.NullString
	Email     sql.NullString
	Role      sql.NullString
	CreatedAt sql.NullTime
}

func (n *nullUser) dest() []any {
	return []any{&n.ID, &n.Name, &n.Email, &n.Role, &n.CreatedAt}
}

func (n *nullUser) user() *model.User {
	if !n.ID.Valid {
		return nil
	}
	return &model.User{
		ID:        uint64(n.ID.Int64),
		Name:      n.Name.String,
		Email:     n.Email.String,
		Role:      model.Role(n.Role.String),
		CreatedAt: n.CreatedAt.Time,
	}
}
