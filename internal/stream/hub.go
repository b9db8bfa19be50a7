// Package stream fans booking events out to in-process subscribers such
// as the analytics Server-Sent Events endpoint.
package stream

import (
	"context"
	"sync"

	"github.com/iliyamo/movie-booking/internal/queue"
)

// Hub is a queue.Publisher that broadcasts to subscriber channels.
// Publishing never blocks; a subscriber whose buffer is full misses the
// event.
type Hub struct {
	mu     sync.RWMutex
	subs   map[chan queue.BookingEvent]struct{}
	buffer int
}

func NewHub(buffer int) *Hub {
	if buffer < 1 {
		buffer = 1
	}
	return &Hub{subs: make(map[chan queue.BookingEvent]struct{}), buffer: buffer}
}

// Subscribe registers a new subscriber.  The returned cancel function
// unregisters it and closes the channel; it is safe to call twice.
func (h *Hub) Subscribe() (<-chan queue.BookingEvent, func()) {
	ch := make(chan queue.BookingEvent, h.buffer)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, ch)
			h.mu.Unlock()
			close(ch)
		})
	}
}

// Publish implements queue.Publisher.
func (h *Hub) Publish(_ context.Context, ev queue.BookingEvent) error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.subs {
		select {
		case ch <- ev:
		default:
		}
	}
	return nil
}

// Subscribers returns the number of active subscribers.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
