package queue

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/goccy/go-json"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// AuditLog appends one human readable line per booking event to a file.
type AuditLog struct {
	mu   sync.Mutex
	path string
}

// NewAuditLog returns an AuditLog writing to path.  Parent directories are
// created on first write.
func NewAuditLog(path string) *AuditLog {
	return &AuditLog{path: path}
}

// Write appends the line for ev.
func (a *AuditLog) Write(ev BookingEvent) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(a.path), 0o755); err != nil {
		return fmt.Errorf("mkdir logs: %w", err)
	}
	f, err := os.OpenFile(a.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()
	return writeAuditLine(f, ev)
}

func writeAuditLine(w io.Writer, ev BookingEvent) error {
	_, err := fmt.Fprintf(w, "[%s] %s | booking_id=%d | user_id=%d | showtime_id=%d | movie=%q | seats=%d | total=%.2f | status=%s\n",
		ev.OccurredAt.Format(time.RFC3339), ev.Type, ev.BookingID, ev.UserID, ev.ShowtimeID, ev.MovieTitle, ev.Seats, ev.TotalPrice, ev.Status)
	if err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}

// HandleDelivery decodes a message body and records it in the audit log.
func (a *AuditLog) HandleDelivery(body []byte) error {
	var ev BookingEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	return a.Write(ev)
}

// StartBookingConsumer connects to RabbitMQ, declares the booking queue
// and appends each delivery to audit.  It reconnects with exponential
// backoff until ctx is cancelled, then returns ctx.Err().  Malformed
// messages are rejected without requeue.
func StartBookingConsumer(ctx context.Context, url string, audit *AuditLog, log *zap.Logger) error {
	log = log.Named("booking-consumer")
	backoff := time.Second
	for {
		conn, err := amqp.Dial(url)
		if err != nil {
			log.Warn("dial broker failed", zap.Error(err), zap.Duration("retry_in", backoff))
			if !sleepCtx(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = consumeLoop(ctx, conn, audit, log)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Warn("consume loop ended, reconnecting", zap.Error(err))
		if !sleepCtx(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func consumeLoop(ctx context.Context, conn *amqp.Connection, audit *AuditLog, log *zap.Logger) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		log.Warn("set QoS failed", zap.Error(err))
	}
	if _, err := ch.QueueDeclare(BookingQueueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.Consume(BookingQueueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := audit.HandleDelivery(d.Body); err != nil {
				log.Error("handle message failed", zap.Error(err))
				_ = d.Nack(false, false)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
