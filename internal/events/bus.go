package events

import "sync"

// Handler receives every published event; handlers type-switch on the
// payloads they care about.
type Handler func(evt any)

// Bus is a synchronous in-process event bus. Publish dispatches to every
// subscriber on the caller's goroutine, in subscription order, so events are
// always observed in the order they were published.
type Bus struct {
	mu     sync.Mutex
	nextID int
	subs   []*Subscription
}

// Subscription is the capability returned by Subscribe. Closing it removes
// the handler; no events are delivered after Close returns.
type Subscription struct {
	id  int
	bus *Bus
	fn  Handler
}

func NewBus() *Bus { return &Bus{} }

// Subscribe registers a handler and returns its subscription handle.
func (b *Bus) Subscribe(fn Handler) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	sub := &Subscription{id: b.nextID, bus: b, fn: fn}
	b.subs = append(b.subs, sub)
	return sub
}

// Publish delivers evt to all current subscribers, synchronously.
func (b *Bus) Publish(evt any) {
	b.mu.Lock()
	subs := make([]*Subscription, len(b.subs))
	copy(subs, b.subs)
	b.mu.Unlock()

	for _, s := range subs {
		s.fn(evt)
	}
}

// Close detaches the subscription from its bus. Safe to call more than once.
func (s *Subscription) Close() {
	if s.bus == nil {
		return
	}
	b := s.bus
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, sub := range b.subs {
		if sub.id == s.id {
			b.subs = append(b.subs[:i], b.subs[i+1:]...)
			break
		}
	}
	s.bus = nil
}
