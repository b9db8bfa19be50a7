package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/movie-booking/internal/service"
)

// ShowtimeHandler serves showtimes.
type ShowtimeHandler struct {
	Catalog *service.CatalogService
	Log     *zap.Logger
}

func NewShowtimeHandler(catalog *service.CatalogService, log *zap.Logger) *ShowtimeHandler {
	return &ShowtimeHandler{Catalog: catalog, Log: log}
}

type createShowtimeReq struct {
	MovieID uint64  `json:"movieId" validate:"required"`
	Date    string  `json:"date" validate:"required,datetime=2006-01-02"`
	Time    string  `json:"time" validate:"required,max=16"`
	Price   float64 `json:"price" validate:"required,min=0.01,max=100000"`
}

type updateShowtimeReq struct {
	MovieID *uint64  `json:"movieId" validate:"omitempty,gt=0"`
	Date    *string  `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Time    *string  `json:"time" validate:"omitempty,min=1,max=16"`
	Price   *float64 `json:"price" validate:"omitempty,min=0.01,max=100000"`
}

// List handles GET /api/showtimes.
func (h *ShowtimeHandler) List(c echo.Context) error {
	ctx, cancel := dbContext(c)
	defer cancel()
	items, err := h.Catalog.ListShowtimes(ctx)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, items)
}

// ListByMovie handles GET /api/showtimes/movie/:movieId.  An unknown movie
// yields an empty list.
func (h *ShowtimeHandler) ListByMovie(c echo.Context) error {
	movieID, ok, err := pathID(c, "movieId")
	if !ok {
		return err
	}
	ctx, cancel := dbContext(c)
	defer cancel()
	items, err := h.Catalog.ListShowtimesByMovie(ctx, movieID)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, items)
}

// Get handles GET /api/showtimes/:id.
func (h *ShowtimeHandler) Get(c echo.Context) error {
	id, ok, err := pathID(c, "id")
	if !ok {
		return err
	}
	ctx, cancel := dbContext(c)
	defer cancel()
	st, err := h.Catalog.GetShowtime(ctx, id)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, st)
}

// Create handles POST /api/showtimes.  The movie must exist.
func (h *ShowtimeHandler) Create(c echo.Context) error {
	var req createShowtimeReq
	if ok, err := bindValid(c, &req); !ok {
		return err
	}
	ctx, cancel := dbContext(c)
	defer cancel()
	st, err := h.Catalog.CreateShowtime(ctx, service.ShowtimeInput{
		MovieID: req.MovieID,
		Date:    req.Date,
		Time:    req.Time,
		Price:   req.Price,
	})
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, st)
}

// Update handles PUT /api/showtimes/:id.
func (h *ShowtimeHandler) Update(c echo.Context) error {
	id, ok, err := pathID(c, "id")
	if !ok {
		return err
	}
	var req updateShowtimeReq
	if ok, err := bindValid(c, &req); !ok {
		return err
	}
	ctx, cancel := dbContext(c)
	defer cancel()
	st, err := h.Catalog.UpdateShowtime(ctx, id, service.ShowtimePatch{
		MovieID: req.MovieID,
		Date:    req.Date,
		Time:    req.Time,
		Price:   req.Price,
	})
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, st)
}

// Delete handles DELETE /api/showtimes/:id.  Bookings are kept.
func (h *ShowtimeHandler) Delete(c echo.Context) error {
	id, ok, err := pathID(c, "id")
	if !ok {
		return err
	}
	ctx, cancel := dbContext(c)
	defer cancel()
	if err := h.Catalog.DeleteShowtime(ctx, id); err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Showtime deleted"})
}
