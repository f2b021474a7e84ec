// Package dedupe guards the ledger against replayed transaction references.
package dedupe

import (
	"sync"

	"github.com/okian/ledgerboard/internal/domain/model"
)

// Deduper remembers recently accepted references.
type Deduper interface {
	// SeenAndRecord reports whether ref was already recorded and records it
	// if not. The check and the insert are atomic.
	SeenAndRecord(ref model.Reference) bool

	// Unrecord forgets ref so a rolled-back write may be resubmitted.
	Unrecord(ref model.Reference)

	Size() int
}

// window is a bounded seen-set that evicts the oldest reference first.
type window struct {
	mu      sync.Mutex
	seen    map[model.Reference]uint64 // ref -> insertion generation
	ring    []model.Reference
	gens    []uint64
	head    int
	gen     uint64
	maxSize int
}

// New creates an in-memory deduper. A non-positive max size keeps every
// reference forever.
func New(opts ...Option) Deduper {
	w := &window{maxSize: 50000}
	for _, opt := range opts {
		opt(w)
	}
	w.seen = make(map[model.Reference]uint64)
	if w.maxSize > 0 {
		w.ring = make([]model.Reference, 0, min(w.maxSize, 1024))
		w.gens = make([]uint64, 0, cap(w.ring))
	}
	return w
}

func (w *window) SeenAndRecord(ref model.Reference) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, ok := w.seen[ref]; ok {
		return true
	}
	w.gen++
	w.seen[ref] = w.gen
	if w.maxSize <= 0 {
		return false
	}
	if len(w.ring) < w.maxSize {
		w.ring = append(w.ring, ref)
		w.gens = append(w.gens, w.gen)
		return false
	}
	// Full: overwrite the oldest slot. Skip the delete if the slot's
	// reference was unrecorded and later re-added under a newer generation.
	old, oldGen := w.ring[w.head], w.gens[w.head]
	if g, ok := w.seen[old]; ok && g == oldGen {
		delete(w.seen, old)
	}
	w.ring[w.head], w.gens[w.head] = ref, w.gen
	w.head = (w.head + 1) % w.maxSize
	return false
}

func (w *window) Unrecord(ref model.Reference) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.seen, ref)
}

func (w *window) Size() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.seen)
}
