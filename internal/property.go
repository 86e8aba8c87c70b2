package internal

import "sync"

// Property is a single observable value owned by a registrar.
type Property struct {
	registrar *Registrar
	key       Key

	mu    sync.RWMutex
	value any
}

func (r *Registrar) NewProperty(initial any) *Property {
	return &Property{
		registrar: r,
		key:       r.NewKey(),
		value:     initial,
	}
}

func (p *Property) Key() Key {
	return p.key
}

func (p *Property) Registrar() *Registrar {
	return p.registrar
}

// Read returns the value, recording the access if the goroutine is tracking.
func (p *Property) Read() any {
	p.registrar.Access(p.key)
	return p.Peek()
}

// Peek returns the value without recording the access.
func (p *Property) Peek() any {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.value
}

// Write stores v and notifies the property's observers.
// Values are not compared, every write counts as a change.
func (p *Property) Write(v any) {
	p.mu.Lock()
	p.value = v
	p.mu.Unlock()

	p.registrar.Changed(p.key)
}

// Update replaces the value with fn(current) atomically, then notifies.
func (p *Property) Update(fn func(any) any) {
	p.mu.Lock()
	p.value = fn(p.value)
	p.mu.Unlock()

	p.registrar.Changed(p.key)
}
