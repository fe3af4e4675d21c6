// Package broadcast carries messages between the sync worker and every
// open application instance. It replaces shared memory: the worker only
// ever talks to its consumers through the hub.
package broadcast

import "sync"

// Message types exchanged over the hub.
const (
	// TypeSyncComplete is published by the worker after a drain cycle,
	// carrying the aggregate success/failure counts.
	TypeSyncComplete = "SYNC_COMPLETE"
	// TypeSkipWaiting is published by a consumer to ask the worker to
	// run a drain cycle immediately instead of waiting for the next
	// scheduled signal.
	TypeSkipWaiting = "SKIP_WAITING"
)

// Message is the wire shape of hub traffic. Succeeded/Failed are only
// meaningful for TypeSyncComplete.
type Message struct {
	Type      string `json:"type"`
	Succeeded int    `json:"succeeded,omitempty"`
	Failed    int    `json:"failed,omitempty"`
}

// Hub fans Messages out to all current subscribers. Publishing never
// blocks: a subscriber that is not draining its channel misses messages
// rather than stalling the worker.
type Hub struct {
	mu   sync.Mutex
	subs map[int]chan Message
	next int
}

// New returns an empty Hub.
func New() *Hub {
	return &Hub{subs: make(map[int]chan Message)}
}

// Subscribe registers a new listener. The returned cancel func must be
// called when the listener goes away; it closes the channel.
func (h *Hub) Subscribe() (<-chan Message, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.next
	h.next++
	ch := make(chan Message, 16)
	h.subs[id] = ch

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if c, ok := h.subs[id]; ok {
			delete(h.subs, id)
			close(c)
		}
	}
	return ch, cancel
}

// Publish delivers msg to every subscriber, dropping it for any whose
// buffer is full.
func (h *Hub) Publish(msg Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.subs {
		select {
		case ch <- msg:
		default:
		}
	}
}

// Subscribers returns the current listener count.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
