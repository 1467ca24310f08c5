package collector

import (
	crand "crypto/rand"
	"encoding/hex"
	"sync"
)

// DefaultSubscriberBuffer is the per-subscriber event buffer when no size is
// configured.
const DefaultSubscriberBuffer = 16

// EventType labels a fan-out message.
type EventType string

const (
	// EventFrame carries one newly ingested frame.
	EventFrame EventType = "frame"
	// EventStats carries an aggregate statistics snapshot.
	EventStats EventType = "stats"
	// EventReset announces that collector statistics were reset.
	EventReset EventType = "reset"
)

// Event is one message fanned out to subscribers. Frame events carry the
// stored frame plus the aggregate stats after ingesting it; reset events
// carry whether history was cleared along with the counters.
type Event struct {
	Type           EventType       `json:"type"`
	Frame          *StoredFrame    `json:"frame,omitempty"`
	Stats          *AggregateStats `json:"stats,omitempty"`
	ClearedHistory *bool           `json:"clearedHistory,omitempty"`
}

// SubscriberStats reports delivery counters for one subscriber.
type SubscriberStats struct {
	Sent    int64 `json:"sent"`
	Dropped int64 `json:"dropped"`
}

type subscriber struct {
	ch      chan Event
	sent    int64
	dropped int64
}

// Hub fans ingested frames out to live subscribers. Delivery is best
// effort: a subscriber whose buffer is full misses the event, and the rest
// are unaffected.
type Hub struct {
	mu          sync.Mutex
	subscribers map[string]*subscriber
	buffer      int
	dropped     int64 // lifetime total, survives unsubscribes
}

// NewHub creates a hub whose subscribers buffer the given number of events.
func NewHub(buffer int) *Hub {
	if buffer < 1 {
		buffer = DefaultSubscriberBuffer
	}
	return &Hub{
		subscribers: make(map[string]*subscriber),
		buffer:      buffer,
	}
}

// randomID generates a random subscriber ID (8 byte random hex encoded value)
func randomID() string {
	b := make([]byte, 8)
	crand.Read(b)
	return hex.EncodeToString(b)
}

// Subscribe creates a new buffered channel for receiving events. The
// returned ID identifies the channel when unsubscribing.
func (h *Hub) Subscribe() (string, chan Event) {
	id := randomID()
	sub := &subscriber{ch: make(chan Event, h.buffer)}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.subscribers[id] = sub
	return id, sub.ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (h *Hub) Unsubscribe(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if sub, ok := h.subscribers[id]; ok {
		close(sub.ch)
		delete(h.subscribers, id)
	}
}

// Broadcast delivers the event to every subscriber with buffer room.
func (h *Hub) Broadcast(e Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, sub := range h.subscribers {
		select {
		case sub.ch <- e:
			sub.sent++
		default:
			// full subscriber, skip so ingest never blocks
			sub.dropped++
			h.dropped++
		}
	}
}

// SubscriberCount returns the number of live subscribers.
func (h *Hub) SubscriberCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers)
}

// Counters returns the delivery counters for one live subscriber. The
// second return is false once the subscriber has been removed.
func (h *Hub) Counters(id string) (SubscriberStats, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	sub, ok := h.subscribers[id]
	if !ok {
		return SubscriberStats{}, false
	}
	return SubscriberStats{Sent: sub.sent, Dropped: sub.dropped}, true
}

// Dropped returns the total number of events skipped on full buffers.
func (h *Hub) Dropped() int64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.dropped
}
