package testutil

import (
	"fmt"
	"sync"
)

// FixedRunIDGenerator returns predetermined run IDs in order.
//
// This enables deterministic test execution and golden snapshot comparison:
// the same scenario with the same generator produces byte-identical run logs.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type FixedRunIDGenerator struct {
	mu  sync.Mutex
	ids []string
	idx int
}

// NewFixedRunIDGenerator creates a generator that returns ids in order.
//
// With no ids it generates "run-0001", "run-0002", ... indefinitely.
func NewFixedRunIDGenerator(ids ...string) *FixedRunIDGenerator {
	return &FixedRunIDGenerator{ids: ids}
}

// Generate returns the next run ID.
//
// Implements store.RunIDGenerator. Panics when a non-empty id list is
// exhausted.
func (g *FixedRunIDGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.idx++
	if len(g.ids) == 0 {
		return fmt.Sprintf("run-%04d", g.idx)
	}
	if g.idx > len(g.ids) {
		panic("FixedRunIDGenerator: all ids exhausted")
	}
	return g.ids[g.idx-1]
}

// Reset rewinds the generator to its first ID.
func (g *FixedRunIDGenerator) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.idx = 0
}
