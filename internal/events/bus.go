package events

import (
	"sync"

	"tagdex/internal/metrics"
)

// Bus is a single-producer, multi-consumer registry for Change
// notifications. Publish dispatches synchronously to subscribers in
// subscription order, so every subscriber observes every change exactly once
// and in emit order, and a subscriber's handler runs atomically with respect
// to the next publish.
type Bus struct {
	mu   sync.Mutex
	next int
	subs []subscriber
}

type subscriber struct {
	id int
	fn func(Change)
}

// NewBus returns an empty bus.
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers fn and returns its cancel function. fn must not call
// back into the bus.
func (b *Bus) Subscribe(fn func(Change)) (cancel func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.next
	b.next++
	b.subs = append(b.subs, subscriber{id: id, fn: fn})

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		for i, s := range b.subs {
			if s.id == id {
				b.subs = append(b.subs[:i], b.subs[i+1:]...)
				return
			}
		}
	}
}

// Publish delivers c to every current subscriber before returning.
func (b *Bus) Publish(c Change) {
	b.mu.Lock()
	defer b.mu.Unlock()

	metrics.ChangesPublished.WithLabelValues(c.Entity.String(), c.Reason.String()).Inc()
	for _, s := range b.subs {
		s.fn(c)
	}
}
