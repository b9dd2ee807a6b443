// Package progress fans engine notifications out to any number of
// listeners. The TUI subscribes to a Broadcaster and redraws from its
// channel; the plain CLI uses a Printer.
package progress

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/jamesainslie/boost/pkg/boost/engine"
	"github.com/jamesainslie/boost/pkg/boost/logging"
)

// EventType represents the kind of progress event.
type EventType int

const (
	EventOutcome EventType = iota
	EventProgress
)

// Event is a single notification delivered to subscribers.
type Event struct {
	Type      EventType
	Outcome   engine.Outcome
	Completed int
	Total     int
}

// Subscriber receives events on a buffered channel.
type Subscriber struct {
	ID     string
	Events chan Event
}

// DefaultBuffer is the channel size for new subscribers.
const DefaultBuffer = 256

// Broadcaster is an engine.ProgressSink that copies every notification to
// its subscribers. Sends never block: a subscriber that falls behind loses
// events rather than stalling the run.
type Broadcaster struct {
	mu          sync.RWMutex
	subscribers map[string]*Subscriber
	closed      bool
	dropped     atomic.Int64
}

// New creates a new Broadcaster.
func New() *Broadcaster {
	return &Broadcaster{
		subscribers: make(map[string]*Subscriber),
	}
}

// Subscribe registers a new subscriber. It returns nil once the
// broadcaster is closed.
func (b *Broadcaster) Subscribe() *Subscriber {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}

	sub := &Subscriber{
		ID:     uuid.New().String(),
		Events: make(chan Event, DefaultBuffer),
	}
	b.subscribers[sub.ID] = sub
	return sub
}

// Unsubscribe removes a subscription and closes its channel.
func (b *Broadcaster) Unsubscribe(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if sub, ok := b.subscribers[id]; ok {
		close(sub.Events)
		delete(b.subscribers, id)
	}
}

// OnOutcome implements engine.ProgressSink.
func (b *Broadcaster) OnOutcome(o engine.Outcome) {
	b.publish(Event{Type: EventOutcome, Outcome: o})
}

// OnProgress implements engine.ProgressSink.
func (b *Broadcaster) OnProgress(completed, total int) {
	b.publish(Event{Type: EventProgress, Completed: completed, Total: total})
}

func (b *Broadcaster) publish(e Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return
	}

	for _, sub := range b.subscribers {
		select {
		case sub.Events <- e:
		default:
			b.dropped.Add(1)
		}
	}
}

// Dropped returns the number of events discarded because a subscriber's
// channel was full.
func (b *Broadcaster) Dropped() int {
	return int(b.dropped.Load())
}

// Close closes the broadcaster and all subscriptions.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}

	b.closed = true
	for _, sub := range b.subscribers {
		close(sub.Events)
	}
	b.subscribers = make(map[string]*Subscriber)
	if n := b.Dropped(); n > 0 {
		logging.Get("progress").Warn("subscribers fell behind", "dropped", n)
	}
}

// SubscriberCount returns the number of active subscribers.
func (b *Broadcaster) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

// Multi returns a sink that forwards to every non-nil sink in order.
func Multi(sinks ...engine.ProgressSink) engine.ProgressSink {
	out := make(multi, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}

type multi []engine.ProgressSink

func (m multi) OnOutcome(o engine.Outcome) {
	for _, s := range m {
		s.OnOutcome(o)
	}
}

func (m multi) OnProgress(completed, total int) {
	for _, s := range m {
		s.OnProgress(completed, total)
	}
}
