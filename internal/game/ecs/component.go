package ecs

import "slices"

// Add attaches c to e under kind k, replacing any previous value, and emits
// EventComponentAdded.
//
// Precondition: c is non-nil.
// Postcondition: Returns false (and stores nothing) if e is not alive.
func Add[T any](w *World, e Entity, k ComponentKind[T], c *T) bool {
	if c == nil {
		panic("ecs: Add called with nil component for kind " + string(k.kind))
	}
	if !w.Alive(e) {
		return false
	}
	w.store(k.kind)[e] = c
	w.events.emit(Event{Type: EventComponentAdded, Entity: e, Time: w.now, Kind: k.kind, Payload: c})
	return true
}

// Get returns the component of kind k attached to e.
//
// Postcondition: Returns (nil, false) if absent.
func Get[T any](w *World, e Entity, k ComponentKind[T]) (*T, bool) {
	c, ok := w.stores[k.kind][e]
	if !ok {
		return nil, false
	}
	return c.(*T), true
}

// Replace swaps the stored value of an existing component without emitting an
// add event. Use it to publish a rebuilt value instead of mutating a shared one.
//
// Postcondition: Returns false if e has no component of kind k.
func Replace[T any](w *World, e Entity, k ComponentKind[T], c *T) bool {
	if c == nil {
		panic("ecs: Replace called with nil component for kind " + string(k.kind))
	}
	store := w.stores[k.kind]
	if _, ok := store[e]; !ok {
		return false
	}
	store[e] = c
	return true
}

// Remove detaches the component of kind k from e. See World.RemoveComponent.
func Remove[T any](w *World, e Entity, k ComponentKind[T]) bool {
	return w.RemoveComponent(e, k.kind)
}

// ForEach calls fn for every entity holding a component of kind k, in
// ascending entity order. fn may destroy entities or remove components.
func ForEach[T any](w *World, k ComponentKind[T], fn func(Entity, *T)) {
	store := w.stores[k.kind]
	ids := make([]Entity, 0, len(store))
	for e := range store {
		ids = append(ids, e)
	}
	slices.Sort(ids)
	for _, e := range ids {
		c, ok := store[e]
		if !ok {
			continue
		}
		fn(e, c.(*T))
	}
}
