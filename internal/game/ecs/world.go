package ecs

import (
	"slices"
	"time"
)

// System is invoked once per World.Update, in registration order.
type System interface {
	Name() string
	Update(w *World, dt time.Duration)
}

// World is the container owning entities, component stores, systems and the
// event emitter. The entity id counter belongs to the World, so independent
// simulations never collide.
//
// World is not safe for concurrent use.
type World struct {
	nextID  uint64
	alive   map[Entity]struct{}
	stores  map[Kind]map[Entity]any
	systems []System
	events  *emitter
	now     time.Duration
}

// NewWorld creates an empty World at time zero.
//
// Postcondition: Returns a non-nil World with no entities or systems.
func NewWorld() *World {
	return &World{
		nextID: 1,
		alive:  make(map[Entity]struct{}),
		stores: make(map[Kind]map[Entity]any),
		events: newEmitter(),
	}
}

// Now returns the current simulation time.
func (w *World) Now() time.Duration { return w.now }

// Advance moves the clock forward by dt. Negative dt is ignored.
// Only the time system calls Advance.
//
// Postcondition: Now() is non-decreasing.
func (w *World) Advance(dt time.Duration) {
	if dt > 0 {
		w.now += dt
	}
}

// CreateEntity issues a new Entity and emits EventEntityCreated.
//
// Postcondition: Alive(result) is true; result != NoEntity.
func (w *World) CreateEntity() Entity {
	e := Entity(w.nextID)
	w.nextID++
	w.alive[e] = struct{}{}
	w.Emit(EventEntityCreated, e, nil)
	return e
}

// Alive reports whether e was created and not yet destroyed.
func (w *World) Alive(e Entity) bool {
	_, ok := w.alive[e]
	return ok
}

// Count returns the number of live entities.
func (w *World) Count() int { return len(w.alive) }

// DestroyEntity removes every component of e (emitting EventComponentRemoved
// for each, in kind order), then emits EventEntityDestroyed.
//
// Postcondition: Alive(e) is false. Returns false if e was not alive.
func (w *World) DestroyEntity(e Entity) bool {
	if !w.Alive(e) {
		return false
	}
	kinds := make([]Kind, 0, len(w.stores))
	for k, store := range w.stores {
		if _, ok := store[e]; ok {
			kinds = append(kinds, k)
		}
	}
	slices.Sort(kinds)
	for _, k := range kinds {
		w.RemoveComponent(e, k)
	}
	delete(w.alive, e)
	w.Emit(EventEntityDestroyed, e, nil)
	return true
}

// Has reports whether e has a component of kind k.
func (w *World) Has(e Entity, k Kind) bool {
	_, ok := w.stores[k][e]
	return ok
}

// RemoveComponent deletes the component of kind k from e and emits
// EventComponentRemoved with the removed value as payload.
//
// Postcondition: Has(e, k) is false. Returns false if nothing was removed.
func (w *World) RemoveComponent(e Entity, k Kind) bool {
	store := w.stores[k]
	c, ok := store[e]
	if !ok {
		return false
	}
	delete(store, e)
	w.events.emit(Event{Type: EventComponentRemoved, Entity: e, Time: w.now, Kind: k, Payload: c})
	return true
}

// Query returns the live entities having every kind in kinds, in ascending id order.
// An empty kinds list returns every live entity.
func (w *World) Query(kinds ...Kind) []Entity {
	var out []Entity
	if len(kinds) == 0 {
		out = make([]Entity, 0, len(w.alive))
		for e := range w.alive {
			out = append(out, e)
		}
		slices.Sort(out)
		return out
	}
	// Iterate the smallest store.
	base := w.stores[kinds[0]]
	for _, k := range kinds[1:] {
		if len(w.stores[k]) < len(base) {
			base = w.stores[k]
		}
	}
	for e := range base {
		hasAll := true
		for _, k := range kinds {
			if !w.Has(e, k) {
				hasAll = false
				break
			}
		}
		if hasAll {
			out = append(out, e)
		}
	}
	slices.Sort(out)
	return out
}

// On subscribes fn to events of type t and returns its id.
func (w *World) On(t EventType, fn Handler) HandlerID {
	return w.events.on(t, fn)
}

// Off removes a subscription. Returns false if id was not subscribed to t.
func (w *World) Off(t EventType, id HandlerID) bool {
	return w.events.off(t, id)
}

// Emit delivers an event stamped with the current time to subscribers of t and EventAny.
func (w *World) Emit(t EventType, e Entity, payload any) {
	w.events.emit(Event{Type: t, Entity: e, Time: w.now, Payload: payload})
}

// AddSystem appends s to the update order.
func (w *World) AddSystem(s System) {
	w.systems = append(w.systems, s)
}

// Systems returns the registered systems in update order.
func (w *World) Systems() []System {
	return slices.Clone(w.systems)
}

// Update invokes every registered system once, in registration order.
func (w *World) Update(dt time.Duration) {
	for _, s := range w.systems {
		s.Update(w, dt)
	}
}

func (w *World) store(k Kind) map[Entity]any {
	s, ok := w.stores[k]
	if !ok {
		s = make(map[Entity]any)
		w.stores[k] = s
	}
	return s
}
