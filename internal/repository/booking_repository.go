package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/movie-booking/internal/model"
)

// BookingRepo provides CRUD operations for bookings.  Read operations
// eagerly join the booking's showtime, that showtime's movie and the owning
// user so callers can render a booking without further lookups.  Any link
// that no longer resolves is left nil instead of failing the read.
type BookingRepo struct {
	db *sql.DB
}

// NewBookingRepo returns a new BookingRepo bound to the given database.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

// BookingFilter narrows ListAll.  Zero values mean "no constraint".
type BookingFilter struct {
	UserID  uint64 // exact owner match
	MovieID uint64 // movie reached through the showtime
	Date    string // showtime date (YYYY-MM-DD)
}

const bookingJoinedSelect = `SELECT b.id, b.user_id, b.showtime_id, b.seats, b.total_price, b.status, b.created_at,
       s.id, s.movie_id, s.show_date, s.show_time, s.price, s.created_at,
       m.id, m.title, m.slug, m.description, m.poster_url, m.duration, m.genre, m.created_at,
       u.id, u.name, u.email, u.role, u.created_at
  FROM bookings b
  LEFT JOIN showtimes s ON s.id = b.showtime_id
  LEFT JOIN movies m ON m.id = s.movie_id
  LEFT JOIN users u ON u.id = b.user_id`

func scanBookingJoined(s rowScanner) (model.Booking, error) {
	var (
		b      model.Booking
		status string
		ns     nullShowtime
		nm     nullMovie
		nu     nullUser
	)
	dest := []any{&b.ID, &b.UserID, &b.ShowtimeID, &b.Seats, &b.TotalPrice, &status, &b.CreatedAt}
	dest = append(dest, ns.dest()...)
	dest = append(dest, nm.dest()...)
	dest = append(dest, nu.dest()...)
	if err := s.Scan(dest...); err != nil {
		return model.Booking{}, err
	}
	b.Status = model.BookingStatus(status)
	if st := ns.showtime(); st != nil {
		st.Movie = nm.movie()
		b.Showtime = st
	}
	b.User = nu.user()
	return b, nil
}

// Create inserts a new booking and assigns the generated ID and creation
// time back to b.  TotalPrice and Status must already be set.
func (r *BookingRepo) Create(ctx context.Context, b *model.Booking) error {
	b.CreatedAt = now()
	const q = `INSERT INTO bookings (user_id, showtime_id, seats, total_price, status, created_at) VALUES (?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, b.UserID, b.ShowtimeID, b.Seats, b.TotalPrice, string(b.Status), b.CreatedAt)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)
	return nil
}

// GetByID returns a single joined booking or ErrBookingNotFound.
func (r *BookingRepo) GetByID(ctx context.Context, id uint64) (*model.Booking, error) {
	b, err := scanBookingJoined(r.db.QueryRowContext(ctx, bookingJoinedSelect+` WHERE b.id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}
	return &b, nil
}

// ListByUser returns the bookings owned by userID, oldest first.  The
// owning user is not attached since the caller already knows it.
func (r *BookingRepo) ListByUser(ctx context.Context, userID uint64) ([]model.Booking, error) {
	items, err := r.ListAll(ctx, BookingFilter{UserID: userID})
	if err != nil {
		return nil, err
	}
	for i := range items {
		items[i].User = nil
	}
	return items, nil
}

// ListAll returns all bookings matching f, oldest first, each joined with
// showtime, movie and user.
func (r *BookingRepo) ListAll(ctx context.Context, f BookingFilter) ([]model.Booking, error) {
	var (
		where []string
		args  []any
	)
	if f.UserID != 0 {
		where = append(where, "b.user_id = ?")
		args = append(args, f.UserID)
	}
	if f.MovieID != 0 {
		where = append(where, "s.movie_id = ?")
		args = append(args, f.MovieID)
	}
	if f.Date != "" {
		where = append(where, "s.show_date = ?")
		args = append(args, f.Date)
	}
	q := bookingJoinedSelect
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY b.id ASC"

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	result := make([]model.Booking, 0)
	for rows.Next() {
		b, err := scanBookingJoined(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// UpdateStatus sets the booking's status and returns the fresh joined row.
// Setting the current status again is a successful no-op.
func (r *BookingRepo) UpdateStatus(ctx context.Context, id uint64, status model.BookingStatus) (*model.Booking, error) {
	if _, err := r.db.ExecContext(ctx, `UPDATE bookings SET status = ? WHERE id = ?`, string(status), id); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

// Delete permanently removes a booking.
func (r *BookingRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM bookings WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrBookingNotFound
	}
	return nil
}
