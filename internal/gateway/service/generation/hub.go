package generation

import (
	"strings"
	"sync"
	"time"
)

// Update is one status change fanned out to watchers of a generation.
type Update struct {
	ID        string    `json:"id"`
	Status    string    `json:"status"`
	OutputURL string    `json:"outputUrl,omitempty"`
	Error     string    `json:"error,omitempty"`
	At        time.Time `json:"at"`
}

// Hub fans generation updates out to subscribers. Slow subscribers lose the
// oldest buffered update rather than blocking the publisher.
type Hub struct {
	mu   sync.RWMutex
	subs map[string]map[chan Update]struct{}
}

func NewHub() *Hub {
	return &Hub{
		subs: make(map[string]map[chan Update]struct{}),
	}
}

// Subscribe registers a watcher for one generation id. The returned cancel
// func must be called exactly once.
func (h *Hub) Subscribe(id string) (<-chan Update, func()) {
	id = strings.TrimSpace(id)
	ch := make(chan Update, 8)

	h.mu.Lock()
	set, ok := h.subs[id]
	if !ok {
		set = make(map[chan Update]struct{})
		h.subs[id] = set
	}
	set[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			if set, ok := h.subs[id]; ok {
				delete(set, ch)
				if len(set) == 0 {
					delete(h.subs, id)
				}
			}
			h.mu.Unlock()
		})
	}
	return ch, cancel
}

// Subscribers reports how many watchers a generation currently has.
func (h *Hub) Subscribers(id string) int {
	if h == nil {
		return 0
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[strings.TrimSpace(id)])
}

// Publish delivers the update to all current watchers of its generation.
func (h *Hub) Publish(u Update) {
	if h == nil {
		return
	}
	if u.At.IsZero() {
		u.At = time.Now()
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.subs[u.ID] {
		push(ch, u)
	}
}

func push(ch chan Update, u Update) {
	select {
	case ch <- u:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- u:
	default:
	}
}
