package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/movie-booking/internal/middleware"
	"github.com/iliyamo/movie-booking/internal/repository"
	"github.com/iliyamo/movie-booking/internal/service"
)

// BookingHandler serves booking endpoints for both customers and admins.
type BookingHandler struct {
	Bookings *service.BookingService
	Log      *zap.Logger
}

func NewBookingHandler(bookings *service.BookingService, log *zap.Logger) *BookingHandler {
	return &BookingHandler{Bookings: bookings, Log: log}
}

type createBookingReq struct {
	ShowtimeID uint64 `json:"showtimeId" validate:"required"`
	Seats      int    `json:"seats" validate:"required,min=1,max=1000"`
}

type updateBookingReq struct {
	Status string `json:"status" validate:"required,oneof=confirmed cancelled"`
}

// Create handles POST /api/bookings for the authenticated user.
func (h *BookingHandler) Create(c echo.Context) error {
	who, ok := middleware.IdentityFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req createBookingReq
	if ok, err := bindValid(c, &req); !ok {
		return err
	}
	ctx, cancel := dbContext(c)
	defer cancel()

	b, err := h.Bookings.Create(ctx, who.UserID, req.ShowtimeID, req.Seats)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, b)
}

// Mine handles GET /api/bookings/user/my-bookings.
func (h *BookingHandler) Mine(c echo.Context) error {
	who, ok := middleware.IdentityFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx, cancel := dbContext(c)
	defer cancel()

	items, err := h.Bookings.ListForUser(ctx, who.UserID)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, items)
}

// ListAll handles GET /api/bookings.  Optional query filters: movieId,
// date (showtime date, YYYY-MM-DD).
func (h *BookingHandler) ListAll(c echo.Context) error {
	f, ok, err := bookingFilter(c)
	if !ok {
		return err
	}
	ctx, cancel := dbContext(c)
	defer cancel()

	items, err := h.Bookings.ListAll(ctx, f)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, items)
}

// UpdateStatus handles PUT /api/bookings/:id.
func (h *BookingHandler) UpdateStatus(c echo.Context) error {
	id, ok, err := pathID(c, "id")
	if !ok {
		return err
	}
	var req updateBookingReq
	if ok, err := bindValid(c, &req); !ok {
		return err
	}
	ctx, cancel := dbContext(c)
	defer cancel()

	b, err := h.Bookings.UpdateStatus(ctx, id, req.Status)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, b)
}

// Delete handles DELETE /api/bookings/:id.
func (h *BookingHandler) Delete(c echo.Context) error {
	id, ok, err := pathID(c, "id")
	if !ok {
		return err
	}
	ctx, cancel := dbContext(c)
	defer cancel()

	if err := h.Bookings.Delete(ctx, id); err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Booking deleted"})
}

// bookingFilter reads the movieId and date query parameters.
func bookingFilter(c echo.Context) (repository.BookingFilter, bool, error) {
	var q struct {
		MovieID uint64 `query:"movieId"`
		Date    string `query:"date" validate:"omitempty,datetime=2006-01-02"`
	}
	if err := (&echo.DefaultBinder{}).BindQueryParams(c, &q); err != nil {
		return repository.BookingFilter{}, false, badRequest(c, "invalid movieId")
	}
	if err := c.Validate(&q); err != nil {
		return repository.BookingFilter{}, false, badRequest(c, err.Error())
	}
	return repository.BookingFilter{MovieID: q.MovieID, Date: q.Date}, true, nil
}
