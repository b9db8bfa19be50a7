package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/iliyamo/movie-booking/internal/analytics"
	"github.com/iliyamo/movie-booking/internal/model"
	"github.com/iliyamo/movie-booking/internal/queue"
	"github.com/iliyamo/movie-booking/internal/repository"
)

type bookingStore interface {
	Create(ctx context.Context, b *model.Booking) error
	GetByID(ctx context.Context, id uint64) (*model.Booking, error)
	ListByUser(ctx context.Context, userID uint64) ([]model.Booking, error)
	ListAll(ctx context.Context, f repository.BookingFilter) ([]model.Booking, error)
	UpdateStatus(ctx context.Context, id uint64, status model.BookingStatus) (*model.Booking, error)
	Delete(ctx context.Context, id uint64) error
}

type showtimeReader interface {
	GetByID(ctx context.Context, id uint64) (*model.Showtime, error)
}

type userReader interface {
	GetByID(ctx context.Context, id uint64) (model.User, error)
}

// BookingService creates and administers bookings and emits a
// queue.BookingEvent after every successful mutation.
type BookingService struct {
	bookings  bookingStore
	showtimes showtimeReader
	users     userReader
	events    queue.Publisher
	log       *zap.Logger
}

func NewBookingService(bookings bookingStore, showtimes showtimeReader, users userReader, events queue.Publisher, log *zap.Logger) *BookingService {
	if events == nil {
		events = queue.Discard{}
	}
	return &BookingService{bookings: bookings, showtimes: showtimes, users: users, events: events, log: log}
}

// Create books seats for userID on showtimeID.  The total is the
// showtime's current price times seats and is never recomputed.  There is
// no capacity check.
func (s *BookingService) Create(ctx context.Context, userID, showtimeID uint64, seats int) (*model.Booking, error) {
	if seats < 1 {
		return nil, ErrInvalidSeats
	}
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return nil, err
	}
	st, err := s.showtimes.GetByID(ctx, showtimeID)
	if err != nil {
		return nil, err
	}
	b := &model.Booking{
		UserID:     userID,
		ShowtimeID: st.ID,
		Seats:      seats,
		TotalPrice: model.TotalPrice(st.Price, seats),
		Status:     model.BookingConfirmed,
	}
	if err := s.bookings.Create(ctx, b); err != nil {
		return nil, err
	}
	b.Showtime = st
	s.publish(ctx, queue.BookingCreated, *b)
	return b, nil
}

// ListForUser returns userID's bookings, oldest first.
func (s *BookingService) ListForUser(ctx context.Context, userID uint64) ([]model.Booking, error) {
	return s.bookings.ListByUser(ctx, userID)
}

// ListAll returns every booking matching f.
func (s *BookingService) ListAll(ctx context.Context, f repository.BookingFilter) ([]model.Booking, error) {
	return s.bookings.ListAll(ctx, f)
}

// GetForViewer returns the booking if the viewer owns it or is an admin.
func (s *BookingService) GetForViewer(ctx context.Context, id, viewerID uint64, admin bool) (*model.Booking, error) {
	b, err := s.bookings.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !admin && b.UserID != viewerID {
		return nil, ErrForbidden
	}
	return b, nil
}

// UpdateStatus sets the status of a booking.  Any transition is allowed,
// including to the current status.
func (s *BookingService) UpdateStatus(ctx context.Context, id uint64, raw string) (*model.Booking, error) {
	status, ok := model.ParseBookingStatus(raw)
	if !ok {
		return nil, ErrInvalidStatus
	}
	b, err := s.bookings.UpdateStatus(ctx, id, status)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, queue.BookingStatusChanged, *b)
	return b, nil
}

// Delete removes a booking permanently.
func (s *BookingService) Delete(ctx context.Context, id uint64) error {
	b, err := s.bookings.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.bookings.Delete(ctx, id); err != nil {
		return err
	}
	s.publish(ctx, queue.BookingDeleted, *b)
	return nil
}

// Summary aggregates the bookings matching f.
func (s *BookingService) Summary(ctx context.Context, f repository.BookingFilter) (analytics.Summary, error) {
	items, err := s.bookings.ListAll(ctx, f)
	if err != nil {
		return analytics.Summary{}, err
	}
	return analytics.Summarize(items), nil
}

// publish is best effort; the mutation has already been committed.
func (s *BookingService) publish(ctx context.Context, t queue.EventType, b model.Booking) {
	ev := queue.NewBookingEvent(t, b)
	if err := s.events.Publish(context.WithoutCancel(ctx), ev); err != nil {
		s.log.Warn("publish booking event failed",
			zap.String("type", string(t)), zap.Uint64("booking_id", b.ID), zap.Error(err))
	}
}
