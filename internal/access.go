package internal

import "iter"

// AccessEntry holds the properties of one subject read during a session.
type AccessEntry struct {
	Subject Subject
	Keys    KeySet
}

// AccessList maps each subject touched during a session to the keys read on it.
// While recording it belongs to a single goroutine. Once deactivated it is read-only.
type AccessList struct {
	entries map[SubjectID]*AccessEntry

	// subjects in the order they were first touched
	order []SubjectID
}

func NewAccessList() *AccessList {
	return &AccessList{
		entries: make(map[SubjectID]*AccessEntry),
	}
}

// Add records a read of key on subject, creating the subject's entry on first touch.
func (l *AccessList) Add(subject Subject, key Key) {
	id := subject.SubjectID()

	entry, ok := l.entries[id]
	if !ok {
		entry = &AccessEntry{Subject: subject, Keys: make(KeySet)}
		l.entries[id] = entry
		l.order = append(l.order, id)
	}

	entry.Keys.Add(key)
}

// Len returns the number of distinct subjects touched.
func (l *AccessList) Len() int {
	if l == nil {
		return 0
	}
	return len(l.entries)
}

func (l *AccessList) Empty() bool {
	return l.Len() == 0
}

// Keys returns the keys read on the given subject, or nil if it was never touched.
func (l *AccessList) Keys(id SubjectID) KeySet {
	if l == nil {
		return nil
	}
	if entry, ok := l.entries[id]; ok {
		return entry.Keys
	}
	return nil
}

// Subjects returns the touched subject ids in first-touch order.
func (l *AccessList) Subjects() []SubjectID {
	if l == nil {
		return nil
	}
	return append([]SubjectID(nil), l.order...)
}

// Entries returns an iterator over all entries in first-touch order.
func (l *AccessList) Entries() iter.Seq[*AccessEntry] {
	return func(yield func(*AccessEntry) bool) {
		if l == nil {
			return
		}

		for _, id := range l.order {
			if !yield(l.entries[id]) {
				return
			}
		}
	}
}

// KeyCount returns the total number of keys across all entries.
func (l *AccessList) KeyCount() int {
	n := 0
	for entry := range l.Entries() {
		n += entry.Keys.Len()
	}
	return n
}
