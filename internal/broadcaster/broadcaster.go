// Package broadcaster fans an event out to all live downstream
// subscribers, reaping any whose send fails. Generalized from the
// teacher's websocket.go Hub (a package-level singleton with
// register/unregister/broadcast channels) into an injectable, mutex-
// guarded component, matching the Python original's ws_broadcaster.py
// snapshot-then-send discipline.
package broadcaster

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/vli777/feedback-analyzer/internal/models"
)

// Subscriber is anything the broadcaster can push a serialized event to.
// A production subscriber wraps a WebSocket connection; tests use an
// in-memory fake.
type Subscriber interface {
	Send(data []byte) error
}

// Broadcaster holds the live subscriber set under a mutex. Broadcast
// never holds the mutex across a send call: the subscriber set is
// snapshotted under lock, then sent to outside it.
type Broadcaster struct {
	mu          sync.Mutex
	subscribers map[Subscriber]struct{}
}

// New returns an empty Broadcaster.
func New() *Broadcaster {
	return &Broadcaster{subscribers: make(map[Subscriber]struct{})}
}

// Connect registers a subscriber. The caller has already completed
// whatever handshake the subscriber's protocol requires.
func (b *Broadcaster) Connect(s Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[s] = struct{}{}
}

// Disconnect removes a subscriber.
func (b *Broadcaster) Disconnect(s Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subscribers, s)
}

// ClientCount reports the current number of live subscribers.
func (b *Broadcaster) ClientCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subscribers)
}

// Broadcast serializes event once, sends it to a snapshot of the
// subscriber set, and removes any subscriber whose send failed.
func (b *Broadcaster) Broadcast(event models.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encoding event for broadcast: %w", err)
	}

	b.mu.Lock()
	snapshot := make([]Subscriber, 0, len(b.subscribers))
	for s := range b.subscribers {
		snapshot = append(snapshot, s)
	}
	b.mu.Unlock()

	var dead []Subscriber
	for _, s := range snapshot {
		if err := s.Send(data); err != nil {
			dead = append(dead, s)
		}
	}

	if len(dead) > 0 {
		b.mu.Lock()
		for _, s := range dead {
			delete(b.subscribers, s)
		}
		b.mu.Unlock()
	}
	return nil
}
