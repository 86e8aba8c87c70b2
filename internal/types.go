package internal

import (
	"maps"
	"slices"
	"sync/atomic"
)

// SubjectID identifies one observed subject instance.
type SubjectID uint64

// Key identifies one trackable property of a subject.
// Keys are only unique within their subject.
type Key uint64

// Token is the handle a subject returns for a one-shot registration.
type Token uint64

var subjectIDs atomic.Uint64

// NewSubjectID returns a process-wide unique subject id.
func NewSubjectID() SubjectID {
	return SubjectID(subjectIDs.Add(1))
}

// Subject is implemented by anything whose property reads can be tracked.
type Subject interface {
	// SubjectID returns the stable identity of the subject.
	SubjectID() SubjectID

	// RegisterOneShot arranges for fire to be called at most once, the first time
	// a property whose key is in keys is mutated.
	// It must be safe to call concurrently with mutations and with Unregister.
	RegisterOneShot(keys KeySet, fire func()) (Token, error)

	// Unregister removes a registration. Stale or already fired tokens are ignored.
	Unregister(token Token)
}

// KeySet is a set of property keys.
type KeySet map[Key]struct{}

// NewKeySet builds a set from the given keys.
func NewKeySet(keys ...Key) KeySet {
	s := make(KeySet, len(keys))
	for _, k := range keys {
		s[k] = struct{}{}
	}
	return s
}

func (s KeySet) Add(k Key) {
	s[k] = struct{}{}
}

func (s KeySet) Contains(k Key) bool {
	_, ok := s[k]
	return ok
}

func (s KeySet) Len() int {
	return len(s)
}

// Sorted returns the keys in ascending order.
func (s KeySet) Sorted() []Key {
	return slices.Sorted(maps.Keys(s))
}

func (s KeySet) Clone() KeySet {
	return maps.Clone(s)
}
