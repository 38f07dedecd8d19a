// Package annotations provides a channel-based publish/subscribe hub for
// operator annotation changes. The flag endpoint publishes an event per
// change; the websocket subscribe endpoint consumes them.
package annotations

import (
	"log/slog"
	"sync"
)

// subscriberBufferSize is the buffer of each subscriber channel. Annotation
// changes arrive at human rate, so a small buffer absorbs any burst; a
// subscriber that still falls behind loses events rather than blocking the
// write path.
const subscriberBufferSize = 16

// Event is one flag/notes change.
type Event struct {
	OrderNumber    string `json:"orderNumber,omitempty"`
	TrackingNumber string `json:"trackingNumber,omitempty"`
	Flagged        bool   `json:"flagged"`
	Notes          string `json:"notes,omitempty"`
	UpdatedAt      int64  `json:"updatedAt"`
}

// Hub fans annotation events out to subscribers.
type Hub interface {
	// Publish delivers an event to all current subscribers. Never blocks.
	Publish(event Event)

	// Subscribe registers a subscriber. The returned channel receives events
	// until cancel is called or the hub is closed; both close the channel.
	Subscribe() (<-chan Event, func())

	// Close shuts the hub down and closes all subscriber channels.
	Close()
}

// defaultHub is the default implementation of Hub.
type defaultHub struct {
	mu          sync.Mutex
	subscribers map[int]chan Event
	nextID      int
	closed      bool
}

var _ Hub = (*defaultHub)(nil)

// New creates an empty hub.
func New() Hub {
	return &defaultHub{
		subscribers: make(map[int]chan Event),
	}
}

// Publish delivers the event to every subscriber channel with a non-blocking
// send. Channels are only closed under the same lock, so a send never races
// a close.
func (h *defaultHub) Publish(event Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for id, ch := range h.subscribers {
		select {
		case ch <- event:
		default:
			slog.Debug("Annotation event dropped for slow subscriber",
				"subscriber_id", id,
				"tracking_number", event.TrackingNumber)
		}
	}
}

// Subscribe registers a subscriber channel. After Close it returns an
// already-closed channel so consumers end their read loop immediately.
func (h *defaultHub) Subscribe() (<-chan Event, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		ch := make(chan Event)
		close(ch)
		return ch, func() {}
	}

	id := h.nextID
	h.nextID++
	ch := make(chan Event, subscriberBufferSize)
	h.subscribers[id] = ch

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if sub, ok := h.subscribers[id]; ok {
			delete(h.subscribers, id)
			close(sub)
		}
	}

	return ch, cancel
}

// Close closes all subscriber channels. Publish and Subscribe remain safe to
// call afterwards.
func (h *defaultHub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true

	for id, ch := range h.subscribers {
		delete(h.subscribers, id)
		close(ch)
	}
}
