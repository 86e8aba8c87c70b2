package internal

import "sync"

type observer struct {
	keys KeySet
	fire func()
}

// Registrar is a Subject backed by a set of one-shot observers.
// It correlates property mutations to the observers registered for them.
type Registrar struct {
	id SubjectID

	mu sync.Mutex

	closed    bool
	nextKey   Key
	nextToken Token

	observers map[Token]*observer
	byKey     map[Key]map[Token]struct{}
}

func NewRegistrar() *Registrar {
	return &Registrar{
		id:        NewSubjectID(),
		observers: make(map[Token]*observer),
		byKey:     make(map[Key]map[Token]struct{}),
	}
}

func (r *Registrar) SubjectID() SubjectID {
	return r.id
}

// NewKey allocates a key unique within this registrar.
func (r *Registrar) NewKey() Key {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextKey++
	return r.nextKey
}

// Access reports a read of key to the recorder active on the current goroutine.
func (r *Registrar) Access(key Key) {
	RecordRead(r, key)
}

func (r *Registrar) RegisterOneShot(keys KeySet, fire func()) (Token, error) {
	if keys.Len() == 0 {
		return 0, ErrNoKeys
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return 0, ErrRegistrarClosed
	}

	r.nextToken++
	token := r.nextToken

	r.observers[token] = &observer{keys: keys, fire: fire}
	for k := range keys {
		tokens, ok := r.byKey[k]
		if !ok {
			tokens = make(map[Token]struct{})
			r.byKey[k] = tokens
		}
		tokens[token] = struct{}{}
	}

	return token, nil
}

func (r *Registrar) Unregister(token Token) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.remove(token)
}

// Changed fires every observer registered for key and returns how many fired.
// Observers are removed before their callback runs, so each fires at most once.
func (r *Registrar) Changed(key Key) int {
	q := NewCallbackQueue()

	r.mu.Lock()
	for token := range r.byKey[key] {
		if o := r.remove(token); o != nil {
			q.Enqueue(o.fire)
		}
	}
	r.mu.Unlock()

	// callbacks run unlocked so they can call back into Unregister
	return q.Run()
}

// WithMutation runs fn and then reports key as changed.
func (r *Registrar) WithMutation(key Key, fn func()) {
	fn()
	r.Changed(key)
}

// Outstanding returns the number of registrations that have neither fired nor
// been unregistered.
func (r *Registrar) Outstanding() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.observers)
}

// Close drops every registration without firing it. Later registrations fail
// with ErrRegistrarClosed.
func (r *Registrar) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.closed = true
	clear(r.observers)
	clear(r.byKey)
}

// remove must be called with r.mu held.
func (r *Registrar) remove(token Token) *observer {
	o, ok := r.observers[token]
	if !ok {
		return nil
	}
	delete(r.observers, token)

	for k := range o.keys {
		tokens := r.byKey[k]
		delete(tokens, token)
		if len(tokens) == 0 {
			delete(r.byKey, k)
		}
	}

	return o
}
