// Package posebus provides non-blocking distribution of joint updates to
// multiple subscribers.
//
// Every accepted display-angle change and hover transition is published to
// the bus and fanned out over Go channels to whoever is listening: the
// websocket hub, the network emitter, tests. If a subscriber's channel is
// full the update is dropped rather than queued; a stale slider position is
// worth less than a current one, and the periodic pose publish resyncs any
// client that fell behind.
//
// All methods are safe for concurrent use.
package posebus

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

var (
	// ErrSubscriberExists is returned when Subscribe is called with a duplicate id.
	ErrSubscriberExists = errors.New("subscriber id already exists")

	// ErrSubscriberNotFound is returned when Unsubscribe is called with an unknown id.
	ErrSubscriberNotFound = errors.New("subscriber id not found")

	// ErrBusClosed is returned when operations are attempted on a closed bus.
	ErrBusClosed = errors.New("bus is closed")
)

// Kind discriminates update types.
type Kind int

const (
	// KindAngle reports a joint's new display angle.
	KindAngle Kind = iota
	// KindHover reports a hover transition on a joint's scene node.
	KindHover
)

// Update is one joint event.
type Update struct {
	Kind      Kind
	Joint     string
	Angle     float64
	Hovered   bool
	Timestamp time.Time
}

// SubscriberStats tracks delivery for a single subscriber.
type SubscriberStats struct {
	Sent    uint64
	Dropped uint64
}

// Stats is a snapshot of bus delivery counters.
type Stats struct {
	TotalPublished uint64
	TotalSent      uint64
	TotalDropped   uint64
	Subscribers    map[string]SubscriberStats
}

type subscriberStats struct {
	sent    atomic.Uint64
	dropped atomic.Uint64
}

// Bus fans updates out to subscriber channels with a drop policy.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[string]chan<- Update
	stats       map[string]*subscriberStats
	closed      bool

	totalPublished atomic.Uint64
}

// New creates an empty bus.
func New() *Bus {
	return &Bus{
		subscribers: make(map[string]chan<- Update),
		stats:       make(map[string]*subscriberStats),
	}
}

// Subscribe registers ch to receive updates under id.
func (b *Bus) Subscribe(id string, ch chan<- Update) error {
	if ch == nil {
		return errors.New("subscriber channel cannot be nil")
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrBusClosed
	}
	if _, exists := b.subscribers[id]; exists {
		return ErrSubscriberExists
	}

	b.subscribers[id] = ch
	b.stats[id] = &subscriberStats{}
	return nil
}

// Unsubscribe removes the subscriber registered under id.
func (b *Bus) Unsubscribe(id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrBusClosed
	}
	if _, exists := b.subscribers[id]; !exists {
		return ErrSubscriberNotFound
	}

	delete(b.subscribers, id)
	delete(b.stats, id)
	return nil
}

// Publish sends update to all subscribers without blocking. Subscribers
// whose channels are full miss this update. Publishing on a closed bus is a
// no-op.
func (b *Bus) Publish(update Update) {
	b.totalPublished.Add(1)

	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return
	}

	for id, ch := range b.subscribers {
		select {
		case ch <- update:
			b.stats[id].sent.Add(1)
		default:
			b.stats[id].dropped.Add(1)
		}
	}
}

// Stats returns a snapshot of delivery counters.
func (b *Bus) Stats() Stats {
	b.mu.RLock()
	defer b.mu.RUnlock()

	result := Stats{
		TotalPublished: b.totalPublished.Load(),
		Subscribers:    make(map[string]SubscriberStats),
	}

	for id, stats := range b.stats {
		sent := stats.sent.Load()
		dropped := stats.dropped.Load()
		result.TotalSent += sent
		result.TotalDropped += dropped
		result.Subscribers[id] = SubscriberStats{Sent: sent, Dropped: dropped}
	}
	return result
}

// Close stops the bus. Subsequent Subscribe/Unsubscribe return ErrBusClosed
// and Publish becomes a no-op. Subscriber channels are not closed; their
// owners manage their lifecycle. Idempotent.
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}
