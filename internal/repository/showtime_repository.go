package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/movie-booking/internal/model"
)

// ShowtimeRepo manages persistence for showtimes.  Reads join the referenced
// movie; a showtime whose movie was deleted is returned with a nil Movie.
type ShowtimeRepo struct {
	db *sql.DB
}

// NewShowtimeRepo constructs a ShowtimeRepo with the given DB handle.
func NewShowtimeRepo(db *sql.DB) *ShowtimeRepo {
	return &ShowtimeRepo{db: db}
}

const showtimeJoinedSelect = `SELECT s.id, s.movie_id, s.show_date, s.show_time, s.price, s.created_at,
       m.id, m.title, m.slug, m.description, m.poster_url, m.duration, m.genre, m.created_at
  FROM showtimes s
  LEFT JOIN movies m ON m.id = s.movie_id`

func scanShowtimeJoined(s rowScanner) (model.Showtime, error) {
	var (
		st model.Showtime
		nm nullMovie
	)
	dest := append([]any{&st.ID, &st.MovieID, &st.Date, &st.Time, &st.Price, &st.CreatedAt}, nm.dest()...)
	if err := s.Scan(dest...); err != nil {
		return model.Showtime{}, err
	}
	st.Movie = nm.movie()
	return st, nil
}

// Create inserts a new showtime and assigns the generated ID and creation
// time back to s.  The caller is responsible for validating MovieID.
func (r *ShowtimeRepo) Create(ctx context.Context, s *model.Showtime) error {
	s.CreatedAt = now()
	const q = `INSERT INTO showtimes (movie_id, show_date, show_time, price, created_at) VALUES (?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, s.MovieID, s.Date, s.Time, s.Price, s.CreatedAt)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = uint64(id)
	return nil
}

// GetByID retrieves a showtime with its movie.  It returns
// ErrShowtimeNotFound if there is no matching row.
func (r *ShowtimeRepo) GetByID(ctx context.Context, id uint64) (*model.Showtime, error) {
	st, err := scanShowtimeJoined(r.db.QueryRowContext(ctx, showtimeJoinedSelect+` WHERE s.id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrShowtimeNotFound
		}
		return nil, err
	}
	return &st, nil
}

// List returns all showtimes in insertion order.
func (r *ShowtimeRepo) List(ctx context.Context) ([]model.Showtime, error) {
	return r.list(ctx, showtimeJoinedSelect+` ORDER BY s.id ASC`)
}

// ListByMovie returns the showtimes referencing movieID in insertion order.
// It does not check that the movie exists.
func (r *ShowtimeRepo) ListByMovie(ctx context.Context, movieID uint64) ([]model.Showtime, error) {
	return r.list(ctx, showtimeJoinedSelect+` WHERE s.movie_id = ? ORDER BY s.id ASC`, movieID)
}

func (r *ShowtimeRepo) list(ctx context.Context, q string, args ...any) ([]model.Showtime, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	result := make([]model.Showtime, 0)
	for rows.Next() {
		st, err := scanShowtimeJoined(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, st)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// Update overwrites movie_id, date, time and price of the showtime
// identified by s.ID.  Existing bookings keep their stored totals.
func (r *ShowtimeRepo) Update(ctx context.Context, s *model.Showtime) error {
	const q = `UPDATE showtimes SET movie_id = ?, show_date = ?, show_time = ?, price = ? WHERE id = ?`
	res, err := r.db.ExecContext(ctx, q, s.MovieID, s.Date, s.Time, s.Price, s.ID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		return nil
	}
	var one int
	err = r.db.QueryRowContext(ctx, `SELECT 1 FROM showtimes WHERE id = ?`, s.ID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrShowtimeNotFound
	}
	return err
}

// Delete permanently removes a showtime.  Bookings referencing it are left
// in place.
func (r *ShowtimeRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM showtimes WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrShowtimeNotFound
	}
	return nil
}
