package service

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/movie-booking/internal/model"
	"github.com/iliyamo/movie-booking/internal/queue"
	"github.com/iliyamo/movie-booking/internal/repository"
	"github.com/iliyamo/movie-booking/internal/testutil"
	"github.com/iliyamo/movie-booking/internal/utils"
)

type captured struct {
	mu     sync.Mutex
	events []queue.BookingEvent
}

func (c *captured) Publish(_ context.Context, ev queue.BookingEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, ev)
	return nil
}

func (c *captured) types() []queue.EventType {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]queue.EventType, 0, len(c.events))
	for _, ev := range c.events {
		out = append(out, ev.Type)
	}
	return out
}

type fixture struct {
	auth     *AuthService
	catalog  *CatalogService
	bookings *BookingService
	users    *repository.UserRepo
	events   *captured
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	db := testutil.TestDB(t)
	users := repository.NewUserRepo(db)
	movies := repository.NewMovieRepo(db)
	showtimes := repository.NewShowtimeRepo(db)
	events := &captured{}
	return fixture{
		auth:     NewAuthService(users, "test-secret", time.Hour, 4),
		catalog:  NewCatalogService(movies, showtimes),
		bookings: NewBookingService(repository.NewBookingRepo(db), showtimes, users, events, testutil.TestLogger(t)),
		users:    users,
		events:   events,
	}
}

func (f fixture) movie(t *testing.T, title string) *model.Movie {
	t.Helper()
	m, err := f.catalog.CreateMovie(context.Background(), MovieInput{Title: title, Description: "desc", PosterURL: "http://p", Duration: 100, Genre: "Drama"})
	require.NoError(t, err)
	return m
}

func (f fixture) showtime(t *testing.T, movieID uint64, price float64) *model.Showtime {
	t.Helper()
	st, err := f.catalog.CreateShowtime(context.Background(), ShowtimeInput{MovieID: movieID, Date: "2025-01-15", Time: "06:00 PM", Price: price})
	require.NoError(t, err)
	return st
}

func TestAuthService_RegisterAndLogin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.auth.Register(ctx, "Alice", "alice@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, model.RoleUser, res.User.Role)
	claims, err := utils.ParseAccessToken("test-secret", res.Token)
	require.NoError(t, err)
	assert.Equal(t, "user", claims.Role)

	_, err = f.auth.Register(ctx, "Alice 2", "ALICE@example.com", "other")
	assert.ErrorIs(t, err, repository.ErrEmailExists)

	// first account still logs in with its own password
	login, err := f.auth.Login(ctx, "alice@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, login.User.ID)

	_, err = f.auth.Login(ctx, "alice@example.com", "other")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = f.auth.Login(ctx, "nobody@example.com", "secret1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = f.auth.Register(ctx, "", "x@example.com", "pw")
	assert.ErrorIs(t, err, ErrValidation)

	u, err := f.auth.Profile(ctx, res.User.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", u.Email)
}

func TestCatalogService_Movies(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	m, err := f.catalog.CreateMovie(ctx, MovieInput{
		Title: "  The Dark Knight ", Description: `<script>alert(1)</script><b>Batman</b>`, Duration: 152, Genre: "Action",
	})
	require.NoError(t, err)
	assert.Equal(t, "The Dark Knight", m.Title)
	assert.Equal(t, "the-dark-knight", m.Slug)
	assert.Equal(t, "Batman", m.Description)

	bySlug, err := f.catalog.GetMovieBySlug(ctx, "the-dark-knight")
	require.NoError(t, err)
	assert.Equal(t, m.ID, bySlug.ID)

	genre := "Crime"
	updated, err := f.catalog.UpdateMovie(ctx, m.ID, MoviePatch{Genre: &genre})
	require.NoError(t, err)
	assert.Equal(t, "Crime", updated.Genre)
	assert.Equal(t, "The Dark Knight", updated.Title)
	assert.Equal(t, 152, updated.Duration)

	zero := 0
	_, err = f.catalog.UpdateMovie(ctx, m.ID, MoviePatch{Duration: &zero})
	assert.ErrorIs(t, err, ErrInvalidDuration)

	_, err = f.catalog.UpdateMovie(ctx, 999, MoviePatch{Genre: &genre})
	assert.ErrorIs(t, err, repository.ErrMovieNotFound)

	_, err = f.catalog.CreateMovie(ctx, MovieInput{Title: "", Duration: 10})
	assert.ErrorIs(t, err, ErrValidation)

	long, err := f.catalog.CreateMovie(ctx, MovieInput{Title: strings.Repeat("a ", 200), Duration: 10})
	require.NoError(t, err)
	assert.LessOrEqual(t, len(long.Slug), 255)
	assert.False(t, strings.HasSuffix(long.Slug, "-"))
}

func TestCatalogService_ShowtimeRequiresMovie(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.catalog.CreateShowtime(ctx, ShowtimeInput{MovieID: 42, Date: "2025-01-15", Time: "10:00 AM", Price: 100})
	assert.ErrorIs(t, err, repository.ErrMovieNotFound)

	m := f.movie(t, "Arrival")
	_, err = f.catalog.CreateShowtime(ctx, ShowtimeInput{MovieID: m.ID, Date: "15/01/2025", Time: "10:00 AM", Price: 100})
	assert.ErrorIs(t, err, ErrInvalidDate)
	_, err = f.catalog.CreateShowtime(ctx, ShowtimeInput{MovieID: m.ID, Date: "2025-01-15", Time: "10:00 AM", Price: 0})
	assert.ErrorIs(t, err, ErrInvalidPrice)
	// rounds to 0.00
	_, err = f.catalog.CreateShowtime(ctx, ShowtimeInput{MovieID: m.ID, Date: "2025-01-15", Time: "10:00 AM", Price: 0.001})
	assert.ErrorIs(t, err, ErrInvalidPrice)

	rounded, err := f.catalog.CreateShowtime(ctx, ShowtimeInput{MovieID: m.ID, Date: "2025-01-15", Time: "10:00 AM", Price: 9.999})
	require.NoError(t, err)
	assert.Equal(t, 10.0, rounded.Price)

	st := f.showtime(t, m.ID, 150)
	require.NotNil(t, st.Movie)
	assert.Equal(t, "Arrival", st.Movie.Title)

	missing := uint64(999)
	_, err = f.catalog.UpdateShowtime(ctx, st.ID, ShowtimePatch{MovieID: &missing})
	assert.ErrorIs(t, err, repository.ErrMovieNotFound)
}

func TestCatalogService_DeleteMovieKeepsShowtimes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	m := f.movie(t, "Memento")
	st := f.showtime(t, m.ID, 90)
	require.NoError(t, f.catalog.DeleteMovie(ctx, m.ID))

	list, err := f.catalog.ListShowtimesByMovie(ctx, m.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, st.ID, list[0].ID)
	assert.Nil(t, list[0].Movie)

	// orphaned showtimes stay editable
	price := 95.0
	updated, err := f.catalog.UpdateShowtime(ctx, st.ID, ShowtimePatch{Price: &price})
	require.NoError(t, err)
	assert.Equal(t, 95.0, updated.Price)
}

func TestBookingService_TotalPriceIsFrozen(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	u, err := f.auth.Register(ctx, "Bob", "bob@example.com", "secret1")
	require.NoError(t, err)
	st := f.showtime(t, f.movie(t, "Heat").ID, 200)

	b, err := f.bookings.Create(ctx, u.User.ID, st.ID, 3)
	require.NoError(t, err)
	assert.Equal(t, 600.0, b.TotalPrice)
	assert.Equal(t, model.BookingConfirmed, b.Status)

	price := 350.0
	_, err = f.catalog.UpdateShowtime(ctx, st.ID, ShowtimePatch{Price: &price})
	require.NoError(t, err)

	mine, err := f.bookings.ListForUser(ctx, u.User.ID)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, 600.0, mine[0].TotalPrice)
	assert.Equal(t, 350.0, mine[0].Showtime.Price)
}

func TestBookingService_CreateValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	u, err := f.auth.Register(ctx, "Bob", "bob@example.com", "secret1")
	require.NoError(t, err)
	st := f.showtime(t, f.movie(t, "Heat").ID, 200)

	_, err = f.bookings.Create(ctx, u.User.ID, st.ID, 0)
	assert.ErrorIs(t, err, ErrInvalidSeats)
	_, err = f.bookings.Create(ctx, u.User.ID, 999, 1)
	assert.ErrorIs(t, err, repository.ErrShowtimeNotFound)
	_, err = f.bookings.Create(ctx, 999, st.ID, 1)
	assert.ErrorIs(t, err, repository.ErrUserNotFound)
	assert.Empty(t, f.events.types())
}

func TestBookingService_AdminLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	alice, err := f.auth.Register(ctx, "Alice", "alice@example.com", "secret1")
	require.NoError(t, err)
	bob, err := f.auth.Register(ctx, "Bob", "bob@example.com", "secret1")
	require.NoError(t, err)
	st := f.showtime(t, f.movie(t, "Heat").ID, 100)

	b, err := f.bookings.Create(ctx, alice.User.ID, st.ID, 2)
	require.NoError(t, err)
	_, err = f.bookings.Create(ctx, bob.User.ID, st.ID, 1)
	require.NoError(t, err)

	_, err = f.bookings.GetForViewer(ctx, b.ID, bob.User.ID, false)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = f.bookings.GetForViewer(ctx, b.ID, alice.User.ID, false)
	assert.NoError(t, err)
	_, err = f.bookings.GetForViewer(ctx, b.ID, 0, true)
	assert.NoError(t, err)

	_, err = f.bookings.UpdateStatus(ctx, b.ID, "pending")
	assert.ErrorIs(t, err, ErrInvalidStatus)

	first, err := f.bookings.UpdateStatus(ctx, b.ID, "cancelled")
	require.NoError(t, err)
	second, err := f.bookings.UpdateStatus(ctx, b.ID, "cancelled")
	require.NoError(t, err)
	assert.Equal(t, first, second)

	sum, err := f.bookings.Summary(ctx, repository.BookingFilter{})
	require.NoError(t, err)
	assert.Equal(t, 2, sum.TotalBookings)
	assert.Equal(t, 1, sum.CancelledCount)
	assert.Equal(t, 100.0, sum.TotalRevenue)

	require.NoError(t, f.bookings.Delete(ctx, b.ID))
	assert.ErrorIs(t, f.bookings.Delete(ctx, b.ID), repository.ErrBookingNotFound)

	assert.Equal(t, []queue.EventType{
		queue.BookingCreated, queue.BookingCreated,
		queue.BookingStatusChanged, queue.BookingStatusChanged,
		queue.BookingDeleted,
	}, f.events.types())
}
