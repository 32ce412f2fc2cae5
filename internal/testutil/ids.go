package testutil

import (
	"fmt"
	"sync"
)

// ListGenerator hands out a fixed list of ids in order.
//
// Panics when the list is exhausted: a test that needs more ids than it
// declared is wrong.
//
// Thread-safety: NewID is safe for concurrent use.
type ListGenerator struct {
	mu  sync.Mutex
	ids []string
	pos int
}

// NewListGenerator creates a generator over ids.
func NewListGenerator(ids ...string) *ListGenerator {
	return &ListGenerator{ids: ids}
}

// NewID returns the next id from the list.
func (g *ListGenerator) NewID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.pos >= len(g.ids) {
		panic(fmt.Sprintf("ListGenerator exhausted after %d ids", len(g.ids)))
	}
	id := g.ids[g.pos]
	g.pos++
	return id
}

// Remaining returns how many ids are left.
func (g *ListGenerator) Remaining() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.ids) - g.pos
}
