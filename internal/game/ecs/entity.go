// Package ecs implements the entity-component-system container that hosts a
// simulation: entities, typed component stores keyed by (entity, kind),
// ordered systems, and a synchronous typed event emitter.
//
// The container is single-threaded. Each component kind has exactly one
// writing system per tick; all other systems read it.
package ecs

import "strconv"

// Entity is an opaque identifier. Zero is never issued and means "no entity".
type Entity uint64

// NoEntity is the reserved invalid Entity.
const NoEntity Entity = 0

// String returns "entity#<id>".
func (e Entity) String() string {
	return "entity#" + strconv.FormatUint(uint64(e), 10)
}

// Kind names a component store.
type Kind string

// ComponentKind is a typed handle to a component store holding *T values.
type ComponentKind[T any] struct {
	kind Kind
}

// NewKind returns a typed handle for the store named name.
//
// Precondition: name is non-empty and unique among kinds used with one World.
func NewKind[T any](name string) ComponentKind[T] {
	if name == "" {
		panic("ecs: NewKind called with empty name")
	}
	return ComponentKind[T]{kind: Kind(name)}
}

// Kind returns the untyped store name.
func (k ComponentKind[T]) Kind() Kind { return k.kind }
