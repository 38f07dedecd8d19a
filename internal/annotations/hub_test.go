package annotations

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receiveEvent(t *testing.T, ch <-chan Event) Event {
	t.Helper()

	select {
	case event, ok := <-ch:
		require.True(t, ok, "channel closed before an event arrived")
		return event
	case <-time.After(time.Second):
		t.Fatal("no event arrived")
		return Event{}
	}
}

func TestHub_PublishReachesAllSubscribers(t *testing.T) {
	t.Parallel()

	hub := New()
	defer hub.Close()

	first, cancelFirst := hub.Subscribe()
	defer cancelFirst()
	second, cancelSecond := hub.Subscribe()
	defer cancelSecond()

	published := Event{
		OrderNumber:    "ORD-1",
		TrackingNumber: "1Z111",
		Flagged:        true,
		Notes:          "damaged box",
		UpdatedAt:      1700000000000,
	}
	hub.Publish(published)

	assert.Equal(t, published, receiveEvent(t, first))
	assert.Equal(t, published, receiveEvent(t, second))
}

func TestHub_CancelStopsDelivery(t *testing.T) {
	t.Parallel()

	hub := New()
	defer hub.Close()

	ch, cancel := hub.Subscribe()
	cancel()

	_, ok := <-ch
	assert.False(t, ok, "channel should be closed after cancel")

	// Cancel is idempotent and publishing afterwards must not panic.
	cancel()
	hub.Publish(Event{TrackingNumber: "1Z111"})
}

func TestHub_SlowSubscriberDoesNotBlockPublish(t *testing.T) {
	t.Parallel()

	hub := New()
	defer hub.Close()

	ch, cancel := hub.Subscribe()
	defer cancel()

	// Overfill the buffer without reading. Publish must return promptly
	// every time; overflow events are dropped.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < subscriberBufferSize+5; i++ {
			hub.Publish(Event{UpdatedAt: int64(i)})
		}
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}

	assert.Len(t, ch, subscriberBufferSize)
}

func TestHub_Close(t *testing.T) {
	t.Parallel()

	hub := New()

	ch, cancel := hub.Subscribe()
	hub.Close()

	_, ok := <-ch
	assert.False(t, ok, "channel should be closed after hub close")

	// All of these are safe after close.
	hub.Close()
	cancel()
	hub.Publish(Event{TrackingNumber: "1Z111"})

	lateCh, lateCancel := hub.Subscribe()
	defer lateCancel()
	_, ok = <-lateCh
	assert.False(t, ok, "subscribe after close should return a closed channel")
}

func TestHub_ConcurrentPublishAndSubscribe(t *testing.T) {
	t.Parallel()

	hub := New()
	defer hub.Close()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ch, cancel := hub.Subscribe()
			for j := 0; j < 50; j++ {
				hub.Publish(Event{UpdatedAt: int64(j)})
			}
			// Drain whatever arrived before unsubscribing.
			for len(ch) > 0 {
				<-ch
			}
			cancel()
		}()
	}

	wg.Wait()
}
