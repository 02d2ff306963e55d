package ecs

import (
	"time"
)

// EventType names a category of event on the World's emitter.
type EventType string

// Container lifecycle events.
const (
	EventEntityCreated    EventType = "entity:created"
	EventEntityDestroyed  EventType = "entity:destroyed"
	EventComponentAdded   EventType = "component:added"
	EventComponentRemoved EventType = "component:removed"

	// EventAny subscribes a handler to every event type.
	EventAny EventType = "*"
)

// Event is delivered synchronously to subscribers in subscription order.
type Event struct {
	Type    EventType
	Entity  Entity
	Time    time.Duration // simulation time at emission
	Kind    Kind          // set for component events
	Payload any
}

// Handler receives events. Handlers must not retain Payload pointers beyond the call.
type Handler func(Event)

// HandlerID identifies a subscription for Off.
type HandlerID uint64

type subscription struct {
	id HandlerID
	fn Handler
}

// emitter fans events out to subscribers of their type and of EventAny.
type emitter struct {
	nextID   HandlerID
	handlers map[EventType][]subscription
}

func newEmitter() *emitter {
	return &emitter{handlers: make(map[EventType][]subscription)}
}

func (em *emitter) on(t EventType, fn Handler) HandlerID {
	em.nextID++
	em.handlers[t] = append(em.handlers[t], subscription{id: em.nextID, fn: fn})
	return em.nextID
}

func (em *emitter) off(t EventType, id HandlerID) bool {
	subs := em.handlers[t]
	for i, s := range subs {
		if s.id == id {
			// Copy so an emit already iterating the old slice is unaffected.
			next := make([]subscription, 0, len(subs)-1)
			next = append(next, subs[:i]...)
			next = append(next, subs[i+1:]...)
			em.handlers[t] = next
			return true
		}
	}
	return false
}

func (em *emitter) emit(ev Event) {
	for _, s := range em.handlers[ev.Type] {
		s.fn(ev)
	}
	for _, s := range em.handlers[EventAny] {
		s.fn(ev)
	}
}
