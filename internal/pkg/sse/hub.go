package sse

import (
	"sync"
)

// Event represents an SSE event to be sent to subscribers
type Event struct {
	Event string
	Data  interface{}
}

// Hub fans events out to subscribers. A subscriber listens on one or more
// keys, e.g. its own id plus a group it belongs to.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan Event]struct{}
}

// NewHub creates a new SSE Hub instance
func NewHub() *Hub {
	return &Hub{
		subscribers: make(map[string]map[chan Event]struct{}),
	}
}

// Subscribe registers one channel under every key and returns it with its
// cleanup function.
func (h *Hub) Subscribe(keys ...string) (chan Event, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan Event, 10)

	for _, key := range keys {
		if h.subscribers[key] == nil {
			h.subscribers[key] = make(map[chan Event]struct{})
		}
		h.subscribers[key][ch] = struct{}{}
	}

	var once sync.Once
	cleanup := func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			for _, key := range keys {
				delete(h.subscribers[key], ch)
				if len(h.subscribers[key]) == 0 {
					delete(h.subscribers, key)
				}
			}
			close(ch)
		})
	}

	return ch, cleanup
}

// Publish sends an event to all subscribers of key
func (h *Hub) Publish(key string, event Event) {
	h.PublishToMany([]string{key}, event)
}

// PublishToMany sends an event to the subscribers of every key. A channel
// registered under several of the keys receives the event once.
func (h *Hub) PublishToMany(keys []string, event Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	sent := make(map[chan Event]struct{})
	for _, key := range keys {
		for ch := range h.subscribers[key] {
			if _, done := sent[ch]; done {
				continue
			}
			sent[ch] = struct{}{}
			select {
			case ch <- event:
			default:
				// slow subscriber, drop
			}
		}
	}
}

// SubscriberCount returns the number of active subscribers for a key
func (h *Hub) SubscriberCount(key string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.subscribers[key])
}

// TotalSubscribers returns the number of distinct active subscribers
func (h *Hub) TotalSubscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	seen := make(map[chan Event]struct{})
	for _, subs := range h.subscribers {
		for ch := range subs {
			seen[ch] = struct{}{}
		}
	}
	return len(seen)
}
