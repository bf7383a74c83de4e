package testutil

import (
	"sync"

	"github.com/google/uuid"
)

// FixedIDGenerator returns predetermined transaction IDs in order and
// then repeats the last one.
//
// Thread-safety: FixedIDGenerator is safe for concurrent use via internal mutex.
type FixedIDGenerator struct {
	mu  sync.Mutex
	ids []uuid.UUID
	idx int
}

// NewFixedIDGenerator parses ids, which must be valid UUID strings. With
// no ids it always returns uuid.Nil.
func NewFixedIDGenerator(ids ...string) *FixedIDGenerator {
	g := &FixedIDGenerator{}
	for _, id := range ids {
		g.ids = append(g.ids, uuid.MustParse(id))
	}
	return g
}

// Generate returns the next ID.
func (g *FixedIDGenerator) Generate() uuid.UUID {
	g.mu.Lock()
	defer g.mu.Unlock()

	if len(g.ids) == 0 {
		return uuid.Nil
	}
	id := g.ids[g.idx]
	if g.idx < len(g.ids)-1 {
		g.idx++
	}
	return id
}
