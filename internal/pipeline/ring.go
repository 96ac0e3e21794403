package pipeline

import (
	"fmt"
	"sync"
	"time"

	"github.com/banshee-data/backhand/internal/gesture"
)

// EventRecord is one finalized gesture as held in the event ring and served
// by the diagnostics API. The ring is process-lifetime memory, not storage.
type EventRecord struct {
	ID    string                 `json:"id"`
	Kind  gesture.EventKind      `json:"kind"`
	Tap   gesture.TapState       `json:"tap,omitempty"`
	Swipe gesture.SwipeDirection `json:"direction,omitempty"`
	T     time.Time              `json:"time"`
}

// Label returns a compact kind:value token for logs and stream payloads.
func (e EventRecord) Label() string {
	if e.Kind == gesture.EventSwipe {
		return fmt.Sprintf("swipe:%s", e.Swipe)
	}
	return fmt.Sprintf("tap:%s", e.Tap)
}

// EventRing keeps a sliding window of recent gestures, overwriting the
// oldest once at capacity. Safe for concurrent use: the tick path appends
// while API readers snapshot.
type EventRing struct {
	mu       sync.Mutex
	records  []EventRecord
	capacity int
	head     int // next write position
	size     int
}

// NewEventRing creates an event ring with the specified capacity.
func NewEventRing(capacity int) *EventRing {
	if capacity < 1 {
		capacity = 128
	}
	return &EventRing{
		records:  make([]EventRecord, capacity),
		capacity: capacity,
	}
}

// Add stores a record, overwriting the oldest if at capacity.
func (r *EventRing) Add(rec EventRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[r.head] = rec
	r.head = (r.head + 1) % r.capacity
	if r.size < r.capacity {
		r.size++
	}
}

// Size returns the current number of records stored.
func (r *EventRing) Size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.size
}

// Capacity returns the maximum number of records the ring holds.
func (r *EventRing) Capacity() int {
	return r.capacity
}

// Snapshot returns the stored records from oldest to newest.
func (r *EventRing) Snapshot() []EventRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.size == 0 {
		return nil
	}
	out := make([]EventRecord, r.size)
	for i := 0; i < r.size; i++ {
		idx := (r.head - r.size + i + r.capacity) % r.capacity
		out[i] = r.records[idx]
	}
	return out
}
