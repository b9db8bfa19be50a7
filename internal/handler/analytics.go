package handler

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/movie-booking/internal/analytics"
	"github.com/iliyamo/movie-booking/internal/queue"
	"github.com/iliyamo/movie-booking/internal/repository"
)

type summarizer interface {
	Summary(ctx context.Context, f repository.BookingFilter) (analytics.Summary, error)
}

type subscriber interface {
	Subscribe() (<-chan queue.BookingEvent, func())
}

// AnalyticsHandler serves the admin dashboard.
type AnalyticsHandler struct {
	Bookings  summarizer
	Events    subscriber
	Heartbeat time.Duration
	Log       *zap.Logger
}

func NewAnalyticsHandler(bookings summarizer, events subscriber, log *zap.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{Bookings: bookings, Events: events, Heartbeat: 25 * time.Second, Log: log}
}

// Summary handles GET /api/analytics/summary.
func (h *AnalyticsHandler) Summary(c echo.Context) error {
	f, ok, err := bookingFilter(c)
	if !ok {
		return err
	}
	ctx, cancel := dbContext(c)
	defer cancel()

	sum, err := h.Bookings.Summary(ctx, f)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, sum)
}

// Stream handles GET /api/analytics/stream as Server-Sent Events.  A
// "summary" event is sent on connect and after every booking event; a
// comment line keeps idle connections open.
func (h *AnalyticsHandler) Stream(c echo.Context) error {
	f, ok, err := bookingFilter(c)
	if !ok {
		return err
	}
	events, cancel := h.Events.Subscribe()
	defer cancel()

	w := c.Response()
	w.Header().Set(echo.HeaderContentType, "text/event-stream")
	w.Header().Set(echo.HeaderCacheControl, "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	ctx := c.Request().Context()
	if err := h.sendSummary(ctx, w, f); err != nil {
		return nil
	}

	heartbeat := time.NewTicker(h.Heartbeat)
	defer heartbeat.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case _, open := <-events:
			if !open {
				return nil
			}
			if err := h.sendSummary(ctx, w, f); err != nil {
				return nil
			}
		case <-heartbeat.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return nil
			}
			w.Flush()
		}
	}
}

func (h *AnalyticsHandler) sendSummary(ctx context.Context, w *echo.Response, f repository.BookingFilter) error {
	qctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()
	sum, err := h.Bookings.Summary(qctx, f)
	if err != nil {
		h.Log.Warn("stream summary failed", zap.Error(err))
		_, werr := fmt.Fprint(w, "event: error\ndata: {\"error\":\"summary unavailable\"}\n\n")
		w.Flush()
		return werr
	}
	data, err := json.Marshal(sum)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "event: summary\ndata: %s\n\n", data); err != nil {
		return err
	}
	w.Flush()
	return nil
}
