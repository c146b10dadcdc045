// Package events delivers progress, completion, and error notifications from
// background tasks to the control thread. Workers publish; they never touch
// the undo stack or other control-thread state directly.
package events

import "sync"

// Kind classifies an event.
type Kind string

const (
	KindProgress  Kind = "progress"
	KindCompleted Kind = "completed"
	KindFailed    Kind = "failed"
)

// Event is one notification from a background task.
type Event struct {
	TaskID   string
	Kind     Kind
	EntityID string // failing or completed entity (file, assembly), if any
	Done     int
	Total    int
	Err      string
}

// Bus fans events out to subscribers.
type Bus struct {
	mu   sync.RWMutex
	subs map[int]chan Event
	next int
}

// NewBus returns an empty bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[int]chan Event)}
}

// Subscribe registers a listener. The returned cancel func must be called
// when done; the channel closes after cancellation.
func (b *Bus) Subscribe() (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.next
	b.next++
	ch := make(chan Event, 256)
	b.subs[id] = ch
	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if c, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(c)
		}
	}
	return ch, cancel
}

// Publish delivers an event to every subscriber, never blocking the
// publishing worker. A slow subscriber with a full buffer loses progress
// events; completion and failure events instead evict the oldest buffered
// event to make room, so a listener always observes how a task ended.
func (b *Bus) Publish(e Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subs {
		if e.Kind == KindProgress {
			select {
			case ch <- e:
			default:
			}
			continue
		}
		for {
			select {
			case ch <- e:
			default:
				select {
				case <-ch:
				default:
				}
				continue
			}
			break
		}
	}
}
