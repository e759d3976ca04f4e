package metadata

import (
	"sort"
	"sync"
)

// trackedSet is the reactive set of tracked folder paths. Mutations notify
// every subscriber with a fresh sorted snapshot; a subscriber that falls
// behind is coalesced to the latest snapshot instead of blocking the
// service.
type trackedSet struct {
	mu      sync.Mutex
	members map[string]struct{}
	subs    map[int]chan []string
	next    int
}

func newTrackedSet() *trackedSet {
	return &trackedSet{
		members: make(map[string]struct{}),
		subs:    make(map[int]chan []string),
	}
}

func (t *trackedSet) contains(path string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.members[path]
	return ok
}

func (t *trackedSet) snapshot() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshotLocked()
}

func (t *trackedSet) snapshotLocked() []string {
	paths := make([]string, 0, len(t.members))
	for p := range t.members {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

func (t *trackedSet) set(path string, member bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if member {
		if _, ok := t.members[path]; ok {
			return
		}
		t.members[path] = struct{}{}
	} else {
		if _, ok := t.members[path]; !ok {
			return
		}
		delete(t.members, path)
	}

	snap := t.snapshotLocked()
	for _, ch := range t.subs {
		send(ch, snap)
	}
}

// subscribe returns a channel primed with the current membership, so the
// initial state is neither missed nor delivered twice.
func (t *trackedSet) subscribe() (<-chan []string, func()) {
	t.mu.Lock()
	defer t.mu.Unlock()

	id := t.next
	t.next++
	ch := make(chan []string, 16)
	ch <- t.snapshotLocked()
	t.subs[id] = ch

	return ch, func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		if sub, ok := t.subs[id]; ok {
			delete(t.subs, id)
			close(sub)
		}
	}
}

// send delivers snap without blocking: if the buffer is full, the oldest
// snapshot is dropped in favor of the newest.
func send(ch chan []string, snap []string) {
	for {
		select {
		case ch <- snap:
			return
		default:
			select {
			case <-ch:
			default:
			}
		}
	}
}
