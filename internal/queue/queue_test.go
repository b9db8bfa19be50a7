package queue

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/movie-booking/internal/model"
)

type recorder struct {
	mu     sync.Mutex
	events []BookingEvent
	err    error
}

func (r *recorder) Publish(_ context.Context, ev BookingEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return r.err
}

func TestNewBookingEvent(t *testing.T) {
	b := model.Booking{
		ID: 3, UserID: 4, ShowtimeID: 5, Seats: 2, TotalPrice: 400, Status: model.BookingConfirmed,
		Showtime: &model.Showtime{Movie: &model.Movie{Title: "Inception"}},
	}
	ev := NewBookingEvent(BookingCreated, b)
	assert.Equal(t, BookingCreated, ev.Type)
	assert.Equal(t, uint64(3), ev.BookingID)
	assert.Equal(t, "Inception", ev.MovieTitle)
	assert.False(t, ev.OccurredAt.IsZero())

	assert.Empty(t, NewBookingEvent(BookingDeleted, model.Booking{ID: 1}).MovieTitle)
}

func TestFanoutDeliversToAll(t *testing.T) {
	failing := &recorder{err: errors.New("broker down")}
	ok := &recorder{}
	f := Fanout{failing, nil, ok}

	err := f.Publish(context.Background(), BookingEvent{BookingID: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker down")
	assert.Len(t, failing.events, 1)
	assert.Len(t, ok.events, 1)

	assert.NoError(t, Fanout{ok}.Publish(context.Background(), BookingEvent{}))
	assert.NoError(t, Discard{}.Publish(context.Background(), BookingEvent{}))
}

func TestAuditLogHandleDelivery(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "booking.log")
	audit := NewAuditLog(path)

	ev := BookingEvent{
		Type: BookingCreated, BookingID: 9, UserID: 2, ShowtimeID: 7, MovieTitle: "Dune",
		Seats: 3, TotalPrice: 600, Status: model.BookingConfirmed,
		OccurredAt: time.Date(2025, 1, 15, 18, 0, 0, 0, time.UTC),
	}
	body, err := json.Marshal(ev)
	require.NoError(t, err)
	require.NoError(t, audit.HandleDelivery(body))
	require.NoError(t, audit.Write(BookingEvent{Type: BookingDeleted, BookingID: 9, OccurredAt: ev.OccurredAt}))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, `[2025-01-15T18:00:00Z] booking.created | booking_id=9 | user_id=2 | showtime_id=7 | movie="Dune" | seats=3 | total=600.00 | status=confirmed`, lines[0])
	assert.Contains(t, lines[1], "booking.deleted")

	assert.Error(t, audit.HandleDelivery([]byte("{not json")))
}
