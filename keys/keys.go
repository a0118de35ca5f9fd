package keys

import (
	"sync/atomic"

	"github.com/google/uuid"
)

// Integer is the set of key types supported by Sequence and Increment.
type Integer interface {
	~int | ~int32 | ~int64 | ~uint | ~uint32 | ~uint64
}

// Sequence hands out Start, Start+1, Start+2 and so on. Unlike Increment it
// doesn't restart after a reload, so a key is never reused during the
// lifetime of the Sequence.
type Sequence[K Integer] struct {
	// Start is the first key.
	Start K

	next atomic.Uint64
}

// NextKey implements the batch.KeyGenerator interface.
func (s *Sequence[K]) NextKey(_ []K) K {
	return s.Start + K(s.next.Add(1)-1)
}

// Increment returns the key of the last loaded batch plus one, or Start for
// the first batch.
type Increment[K Integer] struct {
	Start K
}

// NextKey implements the batch.KeyGenerator interface.
func (g Increment[K]) NextKey(existing []K) K {
	if len(existing) == 0 {
		return g.Start
	}
	return existing[len(existing)-1] + 1
}

// UUID creates a random (version 4) UUID for every batch.
type UUID struct{}

// NextKey implements the batch.KeyGenerator interface.
func (UUID) NextKey(_ []uuid.UUID) uuid.UUID {
	return uuid.New()
}

// UUIDString is like UUID but returns the UUID in its string form.
type UUIDString struct{}

// NextKey implements the batch.KeyGenerator interface.
func (UUIDString) NextKey(_ []string) string {
	return uuid.NewString()
}
