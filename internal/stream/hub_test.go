package stream

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/movie-booking/internal/queue"
)

func TestHubBroadcast(t *testing.T) {
	h := NewHub(4)
	a, cancelA := h.Subscribe()
	b, cancelB := h.Subscribe()
	defer cancelB()
	assert.Equal(t, 2, h.Subscribers())

	require.NoError(t, h.Publish(context.Background(), queue.BookingEvent{BookingID: 7}))
	assert.Equal(t, uint64(7), (<-a).BookingID)
	assert.Equal(t, uint64(7), (<-b).BookingID)

	cancelA()
	cancelA()
	_, open := <-a
	assert.False(t, open)
	assert.Equal(t, 1, h.Subscribers())
}

func TestHubPublishNeverBlocks(t *testing.T) {
	h := NewHub(1)
	ch, cancel := h.Subscribe()
	defer cancel()

	for i := 0; i < 5; i++ {
		require.NoError(t, h.Publish(context.Background(), queue.BookingEvent{BookingID: uint64(i)}))
	}
	assert.Equal(t, uint64(0), (<-ch).BookingID)
	assert.Len(t, ch, 0)
}
