package events

import (
	"context"
	"sync"
)

// Subscriber receives storefront events from a Hub.
type Subscriber struct {
	ch     chan Event
	closed bool
	mu     sync.Mutex
}

// C returns the channel events arrive on. The channel is closed when the
// subscriber or the hub is closed.
func (s *Subscriber) C() <-chan Event {
	return s.ch
}

// Close stops delivery and closes the channel. Idempotent.
func (s *Subscriber) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		close(s.ch)
		s.closed = true
	}
}

// send delivers non-blocking; a full buffer drops the event.
func (s *Subscriber) send(e Event) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	select {
	case s.ch <- e:
		return true
	default:
		return true // dropped, but the subscriber is still live
	}
}

// Hub fans storefront events out to subscribers.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[*Subscriber]struct{}
	bufferSize  int
	closed      bool
}

// NewHub creates a hub. bufferSize is the per-subscriber channel buffer;
// a minimum of 1 is enforced so sends stay non-blocking.
func NewHub(bufferSize int) *Hub {
	return &Hub{
		subscribers: make(map[*Subscriber]struct{}),
		bufferSize:  max(bufferSize, 1),
	}
}

// Subscribe registers a new subscriber. The subscription is removed when
// ctx is cancelled or the subscriber is closed. Subscribing to a closed
// hub returns an already-closed subscriber.
func (h *Hub) Subscribe(ctx context.Context) *Subscriber {
	h.mu.Lock()
	defer h.mu.Unlock()

	sub := &Subscriber{ch: make(chan Event, h.bufferSize)}
	if h.closed {
		sub.Close()
		return sub
	}
	h.subscribers[sub] = struct{}{}

	if ctx.Done() != nil {
		go func() {
			<-ctx.Done()
			h.unsubscribe(sub)
		}()
	}

	return sub
}

// Publish delivers the event to every subscriber without blocking.
func (h *Hub) Publish(e Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.closed {
		return
	}
	for sub := range h.subscribers {
		sub.send(e)
	}
}

// Close shuts down the hub and every subscriber.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true
	for sub := range h.subscribers {
		sub.Close()
		delete(h.subscribers, sub)
	}
}

func (h *Hub) unsubscribe(sub *Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subscribers[sub]; ok {
		delete(h.subscribers, sub)
		sub.Close()
	}
}
