// Package dedupe tracks match outcome event IDs so a rating update is applied
// at most once per event.
package dedupe

import (
	"context"
	"sync"
)

// DefaultWindow is the number of event IDs remembered when no window is set.
const DefaultWindow = 50000

// Deduper records seen outcome event IDs.
type Deduper interface {
	// SeenAndRecord reports whether id was already recorded and records it
	// if not. The check and the insert happen atomically.
	SeenAndRecord(ctx context.Context, id string) bool

	// Unrecord forgets id so a rejected submission can be retried.
	Unrecord(ctx context.Context, id string)

	Size() int64
}

// windowDeduper remembers the most recent window IDs in a ring. When the
// ring is full the oldest ID is forgotten. A window <= 0 keeps every ID.
type windowDeduper struct {
	mu     sync.Mutex
	window int
	slots  map[string]int // id -> ring position, -1 when unbounded
	ring   []string
	live   []bool
	next   int
}

// NewInMemoryDeduper creates an in-memory Deduper.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &windowDeduper{window: DefaultWindow}
	for _, opt := range opts {
		opt(d)
	}
	d.slots = make(map[string]int)
	if d.window > 0 {
		d.ring = make([]string, d.window)
		d.live = make([]bool, d.window)
	}
	return d
}

func (d *windowDeduper) SeenAndRecord(_ context.Context, id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.slots[id]; ok {
		return true
	}
	if d.window <= 0 {
		d.slots[id] = -1
		return false
	}

	if d.live[d.next] {
		delete(d.slots, d.ring[d.next])
	}
	d.ring[d.next] = id
	d.live[d.next] = true
	d.slots[id] = d.next
	d.next = (d.next + 1) % d.window
	return false
}

func (d *windowDeduper) Unrecord(_ context.Context, id string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	pos, ok := d.slots[id]
	if !ok {
		return
	}
	delete(d.slots, id)
	if pos >= 0 {
		d.live[pos] = false
		d.ring[pos] = ""
	}
}

func (d *windowDeduper) Size() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return int64(len(d.slots))
}
