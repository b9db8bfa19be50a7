package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/movie-booking/internal/service"
)

// MovieHandler serves the movie catalog.  Reads are public, writes are
// admin only (enforced by the router).
type MovieHandler struct {
	Catalog *service.CatalogService
	Log     *zap.Logger
}

func NewMovieHandler(catalog *service.CatalogService, log *zap.Logger) *MovieHandler {
	return &MovieHandler{Catalog: catalog, Log: log}
}

type createMovieReq struct {
	Title       string `json:"title" validate:"required,max=255"`
	Description string `json:"description" validate:"required,max=10000"`
	PosterURL   string `json:"posterUrl" validate:"required,max=1024"`
	Duration    int    `json:"duration" validate:"required,gt=0,max=1440"`
	Genre       string `json:"genre" validate:"required,max=64"`
}

type updateMovieReq struct {
	Title       *string `json:"title" validate:"omitempty,min=1,max=255"`
	Description *string `json:"description" validate:"omitempty,max=10000"`
	PosterURL   *string `json:"posterUrl" validate:"omitempty,max=1024"`
	Duration    *int    `json:"duration" validate:"omitempty,gt=0,max=1440"`
	Genre       *string `json:"genre" validate:"omitempty,max=64"`
}

// List handles GET /api/movies.
func (h *MovieHandler) List(c echo.Context) error {
	ctx, cancel := dbContext(c)
	defer cancel()
	items, err := h.Catalog.ListMovies(ctx)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, items)
}

// Get handles GET /api/movies/:id.
func (h *MovieHandler) Get(c echo.Context) error {
	id, ok, err := pathID(c, "id")
	if !ok {
		return err
	}
	ctx, cancel := dbContext(c)
	defer cancel()
	m, err := h.Catalog.GetMovie(ctx, id)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, m)
}

// GetBySlug handles GET /api/movies/slug/:slug.
func (h *MovieHandler) GetBySlug(c echo.Context) error {
	ctx, cancel := dbContext(c)
	defer cancel()
	m, err := h.Catalog.GetMovieBySlug(ctx, c.Param("slug"))
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, m)
}

// Create handles POST /api/movies.
func (h *MovieHandler) Create(c echo.Context) error {
	var req createMovieReq
	if ok, err := bindValid(c, &req); !ok {
		return err
	}
	ctx, cancel := dbContext(c)
	defer cancel()
	m, err := h.Catalog.CreateMovie(ctx, service.MovieInput{
		Title:       req.Title,
		Description: req.Description,
		PosterURL:   req.PosterURL,
		Duration:    req.Duration,
		Genre:       req.Genre,
	})
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, m)
}

// Update handles PUT /api/movies/:id.  Omitted fields keep their value.
func (h *MovieHandler) Update(c echo.Context) error {
	id, ok, err := pathID(c, "id")
	if !ok {
		return err
	}
	var req updateMovieReq
	if ok, err := bindValid(c, &req); !ok {
		return err
	}
	ctx, cancel := dbContext(c)
	defer cancel()
	m, err := h.Catalog.UpdateMovie(ctx, id, service.MoviePatch{
		Title:       req.Title,
		Description: req.Description,
		PosterURL:   req.PosterURL,
		Duration:    req.Duration,
		Genre:       req.Genre,
	})
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, m)
}

// Delete handles DELETE /api/movies/:id.  Showtimes of the movie are kept.
func (h *MovieHandler) Delete(c echo.Context) error {
	id, ok, err := pathID(c, "id")
	if !ok {
		return err
	}
	ctx, cancel := dbContext(c)
	defer cancel()
	if err := h.Catalog.DeleteMovie(ctx, id); err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Movie deleted"})
}
