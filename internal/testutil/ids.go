package testutil

import (
	"fmt"
	"sync"
)

// SequenceGenerator returns UUID-shaped ids that count up from 1:
//
//	0190a0e4-0000-7000-8000-000000000001
//	0190a0e4-0000-7000-8000-000000000002
//
// The ids parse as version-7 UUIDs and sort in generation order, so they
// stand in for ids.UUIDv7 wherever golden output must be stable.
//
// Thread-safety: Generate is safe for concurrent use.
type SequenceGenerator struct {
	mu sync.Mutex
	n  int64
}

// NewSequenceGenerator creates a generator whose first id ends in 1.
func NewSequenceGenerator() *SequenceGenerator {
	return &SequenceGenerator{}
}

// Generate returns the next id.
func (g *SequenceGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return SequenceID(g.n)
}

// SequenceID formats the n-th id produced by a SequenceGenerator.
func SequenceID(n int64) string {
	return fmt.Sprintf("0190a0e4-0000-7000-8000-%012d", n)
}

// FixedGenerator returns the same id every time.
type FixedGenerator struct {
	ID string
}

// Generate returns g.ID.
func (g FixedGenerator) Generate() string {
	return g.ID
}
