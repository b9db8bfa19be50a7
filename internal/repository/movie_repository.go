package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/movie-booking/internal/model"
)

// MovieRepo manages persistence for movies.  Movies are catalog entries
// managed by admins; deleting a movie never touches the showtimes that
// reference it.
type MovieRepo struct {
	db *sql.DB
}

// NewMovieRepo constructs a MovieRepo with the given DB handle.
func NewMovieRepo(db *sql.DB) *MovieRepo {
	return &MovieRepo{db: db}
}

const movieSelect = `SELECT id, title, slug, description, poster_url, duration, genre, created_at FROM movies`

func scanMovie(s rowScanner, m *model.Movie) error {
	return s.Scan(&m.ID, &m.Title, &m.Slug, &m.Description, &m.PosterURL, &m.Duration, &m.Genre, &m.CreatedAt)
}

// Create inserts a new movie and assigns the generated ID and creation time
// back to m.
func (r *MovieRepo) Create(ctx context.Context, m *model.Movie) error {
	m.CreatedAt = now()
	const q = `INSERT INTO movies (title, slug, description, poster_url, duration, genre, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, m.Title, m.Slug, m.Description, m.PosterURL, m.Duration, m.Genre, m.CreatedAt)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	m.ID = uint64(id)
	return nil
}

// List returns every movie in insertion order.  It returns an empty slice
// when the catalog is empty.
func (r *MovieRepo) List(ctx context.Context) ([]model.Movie, error) {
	rows, err := r.db.QueryContext(ctx, movieSelect+` ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	result := make([]model.Movie, 0)
	for rows.Next() {
		var m model.Movie
		if err := scanMovie(rows, &m); err != nil {
			return nil, err
		}
		result = append(result, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// GetByID retrieves a movie by its ID.  It returns ErrMovieNotFound if
// there is no matching row.
func (r *MovieRepo) GetByID(ctx context.Context, id uint64) (*model.Movie, error) {
	return r.getOne(ctx, movieSelect+` WHERE id = ?`, id)
}

// GetBySlug retrieves the oldest movie carrying the given slug.
func (r *MovieRepo) GetBySlug(ctx context.Context, slug string) (*model.Movie, error) {
	return r.getOne(ctx, movieSelect+` WHERE slug = ? ORDER BY id ASC LIMIT 1`, slug)
}

func (r *MovieRepo) getOne(ctx context.Context, q string, arg any) (*model.Movie, error) {
	var m model.Movie
	if err := scanMovie(r.db.QueryRowContext(ctx, q, arg), &m); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMovieNotFound
		}
		return nil, err
	}
	return &m, nil
}

// Exists reports whether a movie with the given ID is present.
func (r *MovieRepo) Exists(ctx context.Context, id uint64) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx, `SELECT 1 FROM movies WHERE id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

// Update overwrites all mutable columns of the movie identified by m.ID.
// MySQL reports zero affected rows for a no-op update, so existence is
// checked separately.
func (r *MovieRepo) Update(ctx context.Context, m *model.Movie) error {
	const q = `UPDATE movies SET title = ?, slug = ?, description = ?, poster_url = ?, duration = ?, genre = ? WHERE id = ?`
	res, err := r.db.ExecContext(ctx, q, m.Title, m.Slug, m.Description, m.PosterURL, m.Duration, m.Genre, m.ID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		return nil
	}
	ok, err := r.Exists(ctx, m.ID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrMovieNotFound
	}
	return nil
}

// Delete permanently removes a movie.  Showtimes referencing it are left
// in place.
func (r *MovieRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM movies WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrMovieNotFound
	}
	return nil
}
