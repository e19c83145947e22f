package websocket

import (
	"testing"
	"time"

	"github.com/nitishgupta522/CampusConnect-sub000/internal/pkg/logger"

	"github.com/stretchr/testify/assert"
)

func TestSlowClientDropClosesChannelOnce(t *testing.T) {
	h := NewHub(nil, logger.NewNopLogger())
	go h.Run()

	client := &Client{UserID: "STU001", Send: make(chan []byte, 1)}
	h.register <- client
	assert.Eventually(t, func() bool {
		h.mu.RLock()
		defer h.mu.RUnlock()
		return len(h.clients["STU001"]) == 1
	}, time.Second, time.Millisecond)

	// Fill the buffer so the next frame hits the slow-client branch.
	client.Send <- []byte("stuck")

	h.UpdateBadge("STU001", 1)

	assert.Eventually(t, func() bool {
		h.mu.RLock()
		defer h.mu.RUnlock()
		_, ok := h.clients["STU001"]
		return !ok
	}, time.Second, time.Millisecond)

	// The hub loop closed the channel exactly once: the buffered frame drains
	// first, then the channel reports closed instead of panicking.
	assert.Equal(t, []byte("stuck"), <-client.Send)
	_, open := <-client.Send
	assert.False(t, open)
}

func TestUnregisterUnknownClientIsSilent(t *testing.T) {
	h := NewHub(nil, logger.NewNopLogger())
	go h.Run()

	stranger := &Client{UserID: "STU999", Send: make(chan []byte, 1)}
	h.unregister <- stranger

	// A client the hub never registered keeps its channel open.
	select {
	case _, open := <-stranger.Send:
		assert.True(t, open)
	case <-time.After(50 * time.Millisecond):
	}
}
