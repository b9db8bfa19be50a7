// Package scheduler runs periodic background jobs.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/iliyamo/movie-booking/internal/analytics"
	"github.com/iliyamo/movie-booking/internal/repository"
)

type summarizer interface {
	Summary(ctx context.Context, f repository.BookingFilter) (analytics.Summary, error)
}

// ReportJob logs the booking summary.
type ReportJob struct {
	Bookings summarizer
	Log      *zap.Logger
	Timeout  time.Duration
}

// Run implements cron.Job.
func (j ReportJob) Run() {
	timeout := j.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	sum, err := j.Bookings.Summary(ctx, repository.BookingFilter{})
	if err != nil {
		j.Log.Error("booking report failed", zap.Error(err))
		return
	}
	fields := []zap.Field{
		zap.Int("total_bookings", sum.TotalBookings),
		zap.Int("confirmed", sum.ConfirmedCount),
		zap.Int("cancelled", sum.CancelledCount),
		zap.Float64("revenue", sum.TotalRevenue),
		zap.Int("seats", sum.TotalSeats),
	}
	if len(sum.ByMovie) > 0 {
		top := sum.ByMovie[0]
		fields = append(fields, zap.String("top_movie", top.Movie.Title), zap.Int("top_movie_bookings", top.BookingCount))
	}
	j.Log.Info("booking report", fields...)
}

// cronLogger routes cron's own messages into zap.
type cronLogger struct{ s *zap.SugaredLogger }

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.s.Errorw(msg, append(keysAndValues, "error", err)...)
}

// StartReport schedules job on spec (standard five-field cron syntax or
// descriptors such as "@hourly").  The caller stops the returned Cron on
// shutdown.  A panicking run is recovered and logged through job.Log.
func StartReport(spec string, job ReportJob) (*cron.Cron, error) {
	log := job.Log
	if log == nil {
		log = zap.NewNop()
	}
	cl := cronLogger{s: log.Named("cron").Sugar()}
	c := cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl)))
	if _, err := c.AddJob(spec, job); err != nil {
		return nil, fmt.Errorf("invalid REPORT_CRON %q: %w", spec, err)
	}
	c.Start()
	return c, nil
}
