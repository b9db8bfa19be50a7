package service

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/gosimple/slug"
	"github.com/jinzhu/copier"
	"github.com/microcosm-cc/bluemonday"

	"github.com/iliyamo/movie-booking/internal/model"
	"github.com/iliyamo/movie-booking/internal/repository"
)

const maxSlugLen = 255

type movieStore interface {
	Create(ctx context.Context, m *model.Movie) error
	List(ctx context.Context) ([]model.Movie, error)
	GetByID(ctx context.Context, id uint64) (*model.Movie, error)
	GetBySlug(ctx context.Context, slug string) (*model.Movie, error)
	Exists(ctx context.Context, id uint64) (bool, error)
	Update(ctx context.Context, m *model.Movie) error
	Delete(ctx context.Context, id uint64) error
}

type showtimeStore interface {
	Create(ctx context.Context, s *model.Showtime) error
	GetByID(ctx context.Context, id uint64) (*model.Showtime, error)
	List(ctx context.Context) ([]model.Showtime, error)
	ListByMovie(ctx context.Context, movieID uint64) ([]model.Showtime, error)
	Update(ctx context.Context, s *model.Showtime) error
	Delete(ctx context.Context, id uint64) error
}

// MovieInput carries the fields of a new movie.
type MovieInput struct {
	Title       string
	Description string
	PosterURL   string
	Duration    int
	Genre       string
}

// MoviePatch lists the movie fields to change; nil fields are kept.
type MoviePatch struct {
	Title       *string
	Description *string
	PosterURL   *string
	Duration    *int
	Genre       *string
}

// ShowtimeInput carries the fields of a new showtime.
type ShowtimeInput struct {
	MovieID uint64
	Date    string
	Time    string
	Price   float64
}

// ShowtimePatch lists the showtime fields to change; nil fields are kept.
type ShowtimePatch struct {
	MovieID *uint64
	Date    *string
	Time    *string
	Price   *float64
}

// CatalogService manages movies and their showtimes.
type CatalogService struct {
	movies    movieStore
	showtimes showtimeStore
	policy    *bluemonday.Policy
}

func NewCatalogService(movies movieStore, showtimes showtimeStore) *CatalogService {
	return &CatalogService{movies: movies, showtimes: showtimes, policy: bluemonday.StrictPolicy()}
}

// CreateMovie validates in, derives the slug and stores the movie.
func (s *CatalogService) CreateMovie(ctx context.Context, in MovieInput) (*model.Movie, error) {
	m := &model.Movie{}
	if err := copier.Copy(m, &in); err != nil {
		return nil, err
	}
	if err := s.prepareMovie(m); err != nil {
		return nil, err
	}
	if err := s.movies.Create(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *CatalogService) ListMovies(ctx context.Context) ([]model.Movie, error) {
	return s.movies.List(ctx)
}

func (s *CatalogService) GetMovie(ctx context.Context, id uint64) (*model.Movie, error) {
	return s.movies.GetByID(ctx, id)
}

func (s *CatalogService) GetMovieBySlug(ctx context.Context, sl string) (*model.Movie, error) {
	return s.movies.GetBySlug(ctx, slug.Make(sl))
}

// UpdateMovie applies p to the stored movie and returns the result.
func (s *CatalogService) UpdateMovie(ctx context.Context, id uint64, p MoviePatch) (*model.Movie, error) {
	m, err := s.movies.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := copier.CopyWithOption(m, &p, copier.Option{IgnoreEmpty: true}); err != nil {
		return nil, err
	}
	if err := s.prepareMovie(m); err != nil {
		return nil, err
	}
	if err := s.movies.Update(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// DeleteMovie removes the movie only; its showtimes stay.
func (s *CatalogService) DeleteMovie(ctx context.Context, id uint64) error {
	return s.movies.Delete(ctx, id)
}

func (s *CatalogService) prepareMovie(m *model.Movie) error {
	m.Title = strings.TrimSpace(m.Title)
	m.Genre = strings.TrimSpace(m.Genre)
	m.PosterURL = strings.TrimSpace(m.PosterURL)
	m.Description = strings.TrimSpace(s.policy.Sanitize(m.Description))
	if m.Title == "" {
		return validationf("title is required")
	}
	if m.Duration <= 0 {
		return ErrInvalidDuration
	}
	m.Slug = slug.Make(m.Title)
	if len(m.Slug) > maxSlugLen {
		m.Slug = strings.TrimRight(m.Slug[:maxSlugLen], "-")
	}
	return nil
}

// CreateShowtime stores a showtime for an existing movie.
func (s *CatalogService) CreateShowtime(ctx context.Context, in ShowtimeInput) (*model.Showtime, error) {
	st := &model.Showtime{}
	if err := copier.Copy(st, &in); err != nil {
		return nil, err
	}
	if err := s.prepareShowtime(ctx, st, true); err != nil {
		return nil, err
	}
	if err := s.showtimes.Create(ctx, st); err != nil {
		return nil, err
	}
	return s.showtimes.GetByID(ctx, st.ID)
}

func (s *CatalogService) ListShowtimes(ctx context.Context) ([]model.Showtime, error) {
	return s.showtimes.List(ctx)
}

// ListShowtimesByMovie returns the movie's showtimes in insertion order.
// An unknown movie yields an empty list.
func (s *CatalogService) ListShowtimesByMovie(ctx context.Context, movieID uint64) ([]model.Showtime, error) {
	return s.showtimes.ListByMovie(ctx, movieID)
}

func (s *CatalogService) GetShowtime(ctx context.Context, id uint64) (*model.Showtime, error) {
	return s.showtimes.GetByID(ctx, id)
}

// UpdateShowtime applies p.  Bookings already made keep their price.
func (s *CatalogService) UpdateShowtime(ctx context.Context, id uint64, p ShowtimePatch) (*model.Showtime, error) {
	st, err := s.showtimes.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := copier.CopyWithOption(st, &p, copier.Option{IgnoreEmpty: true}); err != nil {
		return nil, err
	}
	if err := s.prepareShowtime(ctx, st, p.MovieID != nil); err != nil {
		return nil, err
	}
	if err := s.showtimes.Update(ctx, st); err != nil {
		return nil, err
	}
	return s.showtimes.GetByID(ctx, id)
}

func (s *CatalogService) DeleteShowtime(ctx context.Context, id uint64) error {
	return s.showtimes.Delete(ctx, id)
}

// prepareShowtime normalizes and validates st.  The movie reference is
// only checked when checkMovie is set, so an orphaned showtime can still
// have its price or schedule edited.
func (s *CatalogService) prepareShowtime(ctx context.Context, st *model.Showtime, checkMovie bool) error {
	st.Date = strings.TrimSpace(st.Date)
	st.Time = strings.TrimSpace(st.Time)
	if _, err := time.Parse(time.DateOnly, st.Date); err != nil {
		return ErrInvalidDate
	}
	if st.Time == "" {
		return validationf("time is required")
	}
	// stored as DECIMAL(10,2)
	st.Price = math.Round(st.Price*100) / 100
	if st.Price <= 0 {
		return ErrInvalidPrice
	}
	if !checkMovie {
		return nil
	}
	ok, err := s.movies.Exists(ctx, st.MovieID)
	if err != nil {
		return err
	}
	if !ok {
		return repository.ErrMovieNotFound
	}
	return nil
}
