package events

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPublishPreservesOrderPerSubscriber(t *testing.T) {
	bus := NewBus()

	var got []string
	bus.Subscribe(func(c Change) {
		got = append(got, fmt.Sprintf("%s/%s", c.Reason, c.Entity))
	})

	bus.Publish(Change{Reason: Add, Entity: EntityFolder})
	bus.Publish(Change{Reason: Add, Entity: EntityFile})
	bus.Publish(Change{Reason: Update, Entity: EntityFile})
	bus.Publish(Change{Reason: Remove, Entity: EntityFolder})

	assert.Equal(t, []string{"add/folder", "add/file", "update/file", "remove/folder"}, got)
}

func TestPublishReachesAllSubscribers(t *testing.T) {
	bus := NewBus()

	var first, second []Reason
	bus.Subscribe(func(c Change) { first = append(first, c.Reason) })
	bus.Subscribe(func(c Change) { second = append(second, c.Reason) })

	bus.Publish(Change{Reason: Add, Entity: EntityTag})
	bus.Publish(Change{Reason: Remove, Entity: EntityTag})

	assert.Equal(t, []Reason{Add, Remove}, first)
	assert.Equal(t, []Reason{Add, Remove}, second)
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	bus := NewBus()

	var count int
	cancel := bus.Subscribe(func(Change) { count++ })

	bus.Publish(Change{Reason: Add, Entity: EntityFile})
	cancel()
	bus.Publish(Change{Reason: Add, Entity: EntityFile})

	assert.Equal(t, 1, count)

	// Cancelling twice is harmless.
	cancel()
}

func TestUnsubscribeLeavesOtherSubscribersIntact(t *testing.T) {
	bus := NewBus()

	var a, b int
	cancelA := bus.Subscribe(func(Change) { a++ })
	bus.Subscribe(func(Change) { b++ })

	cancelA()
	bus.Publish(Change{Reason: Update, Entity: EntityTagGroup})

	assert.Equal(t, 0, a)
	assert.Equal(t, 1, b)
}

func TestConcurrentPublishersSerialize(t *testing.T) {
	bus := NewBus()

	var mu sync.Mutex
	var count int
	bus.Subscribe(func(Change) {
		mu.Lock()
		count++
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				bus.Publish(Change{Reason: Add, Entity: EntityFile})
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1000, count)
}
