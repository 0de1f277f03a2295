// Package events provides an in-process broadcast bus for worktree lifecycle
// events.
package events

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Lifecycle event names.
const (
	WorktreeCreate = "worktree.create"
	WorktreeLock   = "worktree.lock"
	WorktreeUnlock = "worktree.unlock"
	WorktreeRemove = "worktree.remove"
	WorktreePrune  = "worktree.prune"
	WorktreeRepair = "worktree.repair"
)

// Event is one lifecycle notification.
type Event struct {
	Name      string         `json:"name"`
	Payload   map[string]any `json:"payload"`
	Timestamp time.Time      `json:"timestamp"`
}

// subscriberBuffer bounds each subscriber's queue. When a subscriber falls
// this far behind, the oldest undelivered event is dropped so that Publish
// never blocks a lifecycle operation.
const subscriberBuffer = 256

// Subscription is one subscriber's delivery queue.
type Subscription struct {
	id string
	ch chan Event
}

// Events returns the subscriber's receive channel. It is closed by
// Unsubscribe.
func (s *Subscription) Events() <-chan Event {
	return s.ch
}

// Bus broadcasts events to all live subscriptions.
type Bus struct {
	mu   sync.Mutex
	subs map[string]*Subscription
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[string]*Subscription)}
}

// Subscribe registers a new subscriber.
func (b *Bus) Subscribe() *Subscription {
	sub := &Subscription{
		id: uuid.New().String(),
		ch: make(chan Event, subscriberBuffer),
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[sub.id] = sub
	return sub
}

// Unsubscribe removes a subscriber and closes its channel. Unsubscribing
// twice is a no-op.
func (b *Bus) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subs[sub.id]; !ok {
		return
	}
	delete(b.subs, sub.id)
	close(sub.ch)
}

// Publish broadcasts an event to every live subscription without blocking on
// slow consumers: a full queue drops its oldest event to make room.
func (b *Bus) Publish(evt Event) {
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now()
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, sub := range b.subs {
		select {
		case sub.ch <- evt:
		default:
			select {
			case <-sub.ch:
			default:
			}
			select {
			case sub.ch <- evt:
			default:
			}
		}
	}
}

// Stream subscribes and forwards events until ctx is cancelled, then
// unsubscribes and closes the returned channel.
func (b *Bus) Stream(ctx context.Context) <-chan Event {
	sub := b.Subscribe()
	out := make(chan Event)

	go func() {
		defer close(out)
		defer b.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case evt, ok := <-sub.ch:
				if !ok {
					return
				}
				select {
				case out <- evt:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out
}
