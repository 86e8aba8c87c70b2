package observation

import "github.com/AnatoleLucet/observation/internal"

// Registrar is a ready-made Subject. It hands out keys for a subject's
// properties and fires the one-shot registrations made on them.
type Registrar = internal.Registrar

// NewRegistrar creates a registrar with a fresh SubjectID.
func NewRegistrar() *Registrar {
	return internal.NewRegistrar()
}

// Property is an observable value owned by a Registrar.
type Property[T any] struct {
	property *internal.Property
}

// NewProperty creates a property on r with its own key.
func NewProperty[T any](r *Registrar, initial T) *Property[T] {
	return &Property[T]{
		r.NewProperty(initial),
	}
}

// Get returns the current value, tracking the read if the goroutine is tracking.
func (p *Property[T]) Get() T {
	return as[T](p.property.Read())
}

// Peek returns the current value without tracking the read.
func (p *Property[T]) Peek() T {
	return as[T](p.property.Peek())
}

// Set stores v and notifies observers. Every Set counts as a change, even if
// v equals the current value.
func (p *Property[T]) Set(v T) {
	p.property.Write(v)
}

// Update replaces the value with fn(current) and notifies observers.
func (p *Property[T]) Update(fn func(T) T) {
	p.property.Update(func(v any) any {
		return fn(as[T](v))
	})
}

// Key returns the property's key within its registrar.
func (p *Property[T]) Key() Key {
	return p.property.Key()
}

// Registrar returns the registrar owning the property.
func (p *Property[T]) Registrar() *Registrar {
	return p.property.Registrar()
}
