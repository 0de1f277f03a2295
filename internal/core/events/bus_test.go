package events

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBus_PublishReachesAllSubscribers(t *testing.T) {
	bus := NewBus()
	first := bus.Subscribe()
	second := bus.Subscribe()
	defer bus.Unsubscribe(first)
	defer bus.Unsubscribe(second)

	bus.Publish(Event{Name: WorktreeCreate, Payload: map[string]any{"run_id": "run-1"}})

	for _, sub := range []*Subscription{first, second} {
		select {
		case evt := <-sub.Events():
			assert.Equal(t, WorktreeCreate, evt.Name)
			assert.Equal(t, "run-1", evt.Payload["run_id"])
			assert.False(t, evt.Timestamp.IsZero())
		default:
			t.Fatal("expected a buffered event")
		}
	}
}

func TestBus_UnsubscribeClosesChannel(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe()

	bus.Unsubscribe(sub)
	_, ok := <-sub.Events()
	assert.False(t, ok)

	// Unsubscribing again or publishing afterwards must not panic.
	bus.Unsubscribe(sub)
	bus.Publish(Event{Name: WorktreeRemove})
	bus.Unsubscribe(nil)
}

func TestBus_SlowSubscriberDropsOldest(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe()
	defer bus.Unsubscribe(sub)

	for i := 0; i < subscriberBuffer+10; i++ {
		bus.Publish(Event{Name: fmt.Sprintf("evt-%d", i)})
	}

	var received []string
	for {
		select {
		case evt := <-sub.Events():
			received = append(received, evt.Name)
			continue
		default:
		}
		break
	}

	// The queue stays bounded and the newest event is kept.
	require.Len(t, received, subscriberBuffer)
	assert.Equal(t, fmt.Sprintf("evt-%d", subscriberBuffer+9), received[len(received)-1])
	assert.NotEqual(t, "evt-0", received[0])
}

func TestBus_PublishStampsMissingTimestamp(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe()
	defer bus.Unsubscribe(sub)

	stamp := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	bus.Publish(Event{Name: WorktreeLock, Timestamp: stamp})

	evt := <-sub.Events()
	assert.True(t, stamp.Equal(evt.Timestamp))
}

func TestBus_StreamStopsOnContextCancel(t *testing.T) {
	bus := NewBus()
	ctx, cancel := context.WithCancel(context.Background())

	stream := bus.Stream(ctx)
	bus.Publish(Event{Name: WorktreeCreate})

	select {
	case evt := <-stream:
		assert.Equal(t, WorktreeCreate, evt.Name)
	case <-time.After(time.Second):
		t.Fatal("expected a streamed event")
	}

	cancel()
	select {
	case _, ok := <-stream:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("expected the stream to close")
	}
}
