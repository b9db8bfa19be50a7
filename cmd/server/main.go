package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/movie-booking/internal/config"
	"github.com/iliyamo/movie-booking/internal/database"
	"github.com/iliyamo/movie-booking/internal/handler"
	"github.com/iliyamo/movie-booking/internal/logger"
	"github.com/iliyamo/movie-booking/internal/queue"
	"github.com/iliyamo/movie-booking/internal/repository"
	"github.com/iliyamo/movie-booking/internal/router"
	"github.com/iliyamo/movie-booking/internal/scheduler"
	"github.com/iliyamo/movie-booking/internal/service"
	"github.com/iliyamo/movie-booking/internal/stream"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// no logger yet
		_, _ = os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}
	log, err := logger.New(cfg.IsProduction(), cfg.LogLevel)
	if err != nil {
		_, _ = os.Stderr.WriteString("logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(cfg.DB)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := database.Migrate(db, cfg.DB.Driver); err != nil {
		return err
	}

	rdb := config.NewRedisClient(cfg.Redis)
	if rdb != nil {
		defer rdb.Close()
		log.Info("redis connected; shared rate limiting and response cache enabled")
	} else {
		log.Info("redis unavailable; using in-memory rate limiting, cache disabled")
	}

	users := repository.NewUserRepo(db)
	movies := repository.NewMovieRepo(db)
	showtimes := repository.NewShowtimeRepo(db)
	bookingRepo := repository.NewBookingRepo(db)

	hub := stream.NewHub(16)
	events := queue.Fanout{hub}
	if cfg.RabbitMQURL != "" {
		events = append(events, queue.NewAMQPPublisher(cfg.RabbitMQURL))
		audit := queue.NewAuditLog(filepath.Join("logs", "booking.log"))
		go func() {
			if err := queue.StartBookingConsumer(ctx, cfg.RabbitMQURL, audit, log); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("booking consumer exited", zap.Error(err))
			}
		}()
	}

	catalog := service.NewCatalogService(movies, showtimes)
	bookings := service.NewBookingService(bookingRepo, showtimes, users, events, log)

	if cfg.ReportCron != "" {
		c, err := scheduler.StartReport(cfg.ReportCron, scheduler.ReportJob{Bookings: bookings, Log: log.Named("report")})
		if err != nil {
			return err
		}
		defer func() { <-c.Stop().Done() }()
	}

	e := router.New(cfg, router.Handlers{
		Auth:      handler.NewAuthHandler(service.NewAuthService(users, cfg.JWTSecret, cfg.TokenTTL, cfg.BcryptCost), log),
		Movies:    handler.NewMovieHandler(catalog, log),
		Showtimes: handler.NewShowtimeHandler(catalog, log),
		Bookings:  handler.NewBookingHandler(bookings, log),
		Analytics: handler.NewAnalyticsHandler(bookings, hub, log),
	}, rdb, log)

	addr := ":" + cfg.Port
	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env), zap.String("db", cfg.DB.Driver))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
