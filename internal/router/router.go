// Package router wires handlers and middleware onto an Echo instance.
package router

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/iliyamo/movie-booking/internal/config"
	"github.com/iliyamo/movie-booking/internal/handler"
	"github.com/iliyamo/movie-booking/internal/middleware"
	"github.com/iliyamo/movie-booking/internal/model"
)

// Handlers groups every HTTP handler the API exposes.
type Handlers struct {
	Auth      *handler.AuthHandler
	Movies    *handler.MovieHandler
	Showtimes *handler.ShowtimeHandler
	Bookings  *handler.BookingHandler
	Analytics *handler.AnalyticsHandler
}

// New returns an Echo instance with the global middleware chain and all
// routes registered.  rdb may be nil, in which case responses are not
// cached and rate limiting is per process.
func New(cfg config.Config, h Handlers, rdb *redis.Client, log *zap.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.JSONSerializer = handler.JSONSerializer{}
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = handler.HTTPErrorHandler(log)

	e.Use(echomw.RequestIDWithConfig(echomw.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(middleware.RequestLogger(log))
	e.Use(echomw.Recover())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))
	e.Use(middleware.NewTokenBucket(cfg.RateLimit, rdb, log))

	RegisterRoutes(e)

	api := e.Group("/api")
	purger := middleware.NewCachePurger(cfg.Cache, rdb, log)
	cache := middleware.NewRedisCache(cfg.Cache, rdb)
	auth := chain(
		middleware.JWTAuth(cfg.JWTSecret),
		middleware.NewTokenBucket(cfg.RateLimit.PerUser(), rdb, log),
	)

	RegisterAuth(api, h.Auth, auth)
	RegisterCatalog(api, h.Movies, h.Showtimes, auth, cache, middleware.PurgeOnWrite(purger))
	RegisterBookings(api, h.Bookings, auth)
	RegisterAnalytics(api, h.Analytics, auth)
	return e
}

// chain composes mws into one middleware; the first runs outermost.
func chain(mws ...echo.MiddlewareFunc) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		for i := len(mws) - 1; i >= 0; i-- {
			next = mws[i](next)
		}
		return next
	}
}

// RegisterRoutes registers routes outside the API prefix.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers /auth.  Register and login are public; profile
// needs any valid token.
func RegisterAuth(api *echo.Group, a *handler.AuthHandler, auth echo.MiddlewareFunc) {
	g := api.Group("/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.GET("/profile", a.Profile, auth)
}

// RegisterCatalog registers /movies and /showtimes.  Public reads go
// through the response cache; admin writes purge it.
func RegisterCatalog(api *echo.Group, m *handler.MovieHandler, s *handler.ShowtimeHandler, auth, cache, purge echo.MiddlewareFunc) {
	admin := []echo.MiddlewareFunc{auth, middleware.RequireRole(model.RoleAdmin), purge}

	movies := api.Group("/movies")
	movies.GET("", m.List, cache)
	movies.GET("/slug/:slug", m.GetBySlug, cache)
	movies.GET("/:id", m.Get, cache)
	movies.POST("", m.Create, admin...)
	movies.PUT("/:id", m.Update, admin...)
	movies.DELETE("/:id", m.Delete, admin...)

	showtimes := api.Group("/showtimes")
	showtimes.GET("", s.List, cache)
	showtimes.GET("/movie/:movieId", s.ListByMovie, cache)
	showtimes.GET("/:id", s.Get, cache)
	showtimes.POST("", s.Create, admin...)
	showtimes.PUT("/:id", s.Update, admin...)
	showtimes.DELETE("/:id", s.Delete, admin...)
}

// RegisterBookings registers /bookings.  Creating and listing one's own
// bookings is reserved to the user role, so admins cannot book.
func RegisterBookings(api *echo.Group, b *handler.BookingHandler, auth echo.MiddlewareFunc) {
	g := api.Group("/bookings", auth)
	customer := middleware.RequireRole(model.RoleUser)
	admin := middleware.RequireRole(model.RoleAdmin)

	g.POST("", b.Create, customer)
	g.GET("/user/my-bookings", b.Mine, customer)
	g.GET("/:id/ticket", b.Ticket)

	g.GET("", b.ListAll, admin)
	g.PUT("/:id", b.UpdateStatus, admin)
	g.DELETE("/:id", b.Delete, admin)
}

// RegisterAnalytics registers the admin dashboard endpoints.
func RegisterAnalytics(api *echo.Group, a *handler.AnalyticsHandler, auth echo.MiddlewareFunc) {
	g := api.Group("/analytics", auth, middleware.RequireRole(model.RoleAdmin))
	g.GET("/summary", a.Summary)
	g.GET("/stream", a.Stream)
}
