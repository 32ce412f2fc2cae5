package ids

import (
	"strconv"
	"sync/atomic"

	"github.com/google/uuid"
)

// Generator produces identifiers that are unique among all identifiers
// produced by the same instance.
//
// Implementations must be safe for concurrent use.
type Generator interface {
	NewID() string
}

// Incrementing generates monotonically increasing integer ids.
//
// Thread-safety: NewID uses an atomic increment. Concurrent callers never
// observe the same value; values observed by a single goroutine increase
// strictly, but no ordering is promised across goroutines.
type Incrementing struct {
	next atomic.Int64
}

// NewIncrementing creates a generator whose first id is "0".
func NewIncrementing() *Incrementing {
	g := &Incrementing{}
	g.next.Store(-1)
	return g
}

// NewIncrementingAt creates a generator whose first id is last+1.
// Used to resume a sequence after last was already handed out.
func NewIncrementingAt(last int64) *Incrementing {
	g := &Incrementing{}
	g.next.Store(last)
	return g
}

// NewID returns the next integer id as a decimal string.
func (g *Incrementing) NewID() string {
	return strconv.FormatInt(g.next.Add(1), 10)
}

// Current returns the last id handed out without advancing.
func (g *Incrementing) Current() int64 {
	return g.next.Load()
}

// UUID generates random (version 4) UUIDs.
//
// Thread-safety: UUID is stateless and safe for concurrent use.
type UUID struct{}

// NewUUID returns a UUID generator.
func NewUUID() UUID {
	return UUID{}
}

// NewID returns a new hyphenated UUID string.
//
// Panics if the system random source fails (should never happen in practice).
func (UUID) NewID() string {
	return uuid.Must(uuid.NewRandom()).String()
}

// New returns a fresh generator of the given style.
func New(style Style) Generator {
	if style == StyleIncrementing {
		return NewIncrementing()
	}
	return NewUUID()
}
