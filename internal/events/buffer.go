package events

import "sync"

// RingBuffer keeps the most recent events in memory so the operator API can
// serve a snapshot without touching Postgres.
type RingBuffer struct {
	mu    sync.RWMutex
	slots []Event
	next  int
	count int
}

func NewRingBuffer(size int) *RingBuffer {
	return &RingBuffer{slots: make([]Event, size)}
}

// Add records an event, evicting the oldest once the buffer is full.
func (rb *RingBuffer) Add(e Event) {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	rb.slots[rb.next] = e
	rb.next = (rb.next + 1) % len(rb.slots)
	if rb.count < len(rb.slots) {
		rb.count++
	}
}

// Snapshot returns the buffered events in chronological order.
func (rb *RingBuffer) Snapshot() []Event {
	rb.mu.RLock()
	defer rb.mu.RUnlock()

	out := make([]Event, 0, rb.count)
	start := rb.next - rb.count
	if start < 0 {
		start += len(rb.slots)
	}
	for i := 0; i < rb.count; i++ {
		out = append(out, rb.slots[(start+i)%len(rb.slots)])
	}
	return out
}

// Clear drops all buffered events.
func (rb *RingBuffer) Clear() {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	rb.next = 0
	rb.count = 0
}
