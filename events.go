package bedrock

import (
	"github.com/akmonengine/bedrock/actor"
)

const (
	COLLISION_ENTER EventType = iota
	COLLISION_STAY
	COLLISION_EXIT
	ON_SLEEP
	ON_WAKE
)

type EventType uint8

// Event interface - all events implement this
type Event interface {
	Type() EventType
}

type CollisionEnterEvent struct {
	BodyA *actor.RigidBody
	BodyB *actor.RigidBody
}

func (e CollisionEnterEvent) Type() EventType { return COLLISION_ENTER }

type CollisionStayEvent struct {
	BodyA *actor.RigidBody
	BodyB *actor.RigidBody
}

func (e CollisionStayEvent) Type() EventType { return COLLISION_STAY }

type CollisionExitEvent struct {
	BodyA *actor.RigidBody
	BodyB *actor.RigidBody
}

func (e CollisionExitEvent) Type() EventType { return COLLISION_EXIT }

type SleepEvent struct {
	Body *actor.RigidBody
}

func (e SleepEvent) Type() EventType { return ON_SLEEP }

type WakeEvent struct {
	Body *actor.RigidBody
}

func (e WakeEvent) Type() EventType { return ON_WAKE }

// EventListener - callback for events
type EventListener func(event Event)

// Events buffers what happened inside a step (contacts starting,
// persisting and ending, bodies falling asleep and waking) and
// dispatches it to the subscribed listeners at the end of the step.
type Events struct {
	listeners map[EventType][]EventListener

	buffer []Event

	// Contact tracking for Enter/Stay/Exit detection
	previousActivePairs map[PairKey][2]*actor.RigidBody
	currentActivePairs  map[PairKey][2]*actor.RigidBody

	sleepStates map[int]bool
}

func NewEvents() Events {
	return Events{
		listeners:           make(map[EventType][]EventListener),
		buffer:              make([]Event, 0, 256),
		previousActivePairs: make(map[PairKey][2]*actor.RigidBody),
		currentActivePairs:  make(map[PairKey][2]*actor.RigidBody),
		sleepStates:         make(map[int]bool),
	}
}

// Subscribe adds a listener for an event type
func (e *Events) Subscribe(eventType EventType, listener EventListener) {
	e.listeners[eventType] = append(e.listeners[eventType], listener)
}

// recordContact marks a pair as touching during the current step
func (e *Events) recordContact(pair *OverlappingPair) {
	e.currentActivePairs[pair.Key] = [2]*actor.RigidBody{pair.BodyA, pair.BodyB}
}

// removeBody forgets everything tracked about a destroyed body
func (e *Events) removeBody(id int) {
	delete(e.sleepStates, id)
	for key := range e.previousActivePairs {
		if key.A == id || key.B == id {
			delete(e.previousActivePairs, key)
		}
	}
	for key := range e.currentActivePairs {
		if key.A == id || key.B == id {
			delete(e.currentActivePairs, key)
		}
	}
}

// processCollisionEvents compares the current and previous touching
// pairs to detect Enter, Stay and Exit transitions
func (e *Events) processCollisionEvents() {
	for key, bodies := range e.currentActivePairs {
		// Skip pairs fully asleep, to avoid spamming Stay events
		if bodies[0].IsSleeping && bodies[1].IsSleeping {
			continue
		}

		if _, wasActive := e.previousActivePairs[key]; wasActive {
			e.buffer = append(e.buffer, CollisionStayEvent{BodyA: bodies[0], BodyB: bodies[1]})
		} else {
			e.buffer = append(e.buffer, CollisionEnterEvent{BodyA: bodies[0], BodyB: bodies[1]})
		}
	}

	for key, bodies := range e.previousActivePairs {
		if _, stillActive := e.currentActivePairs[key]; !stillActive {
			e.buffer = append(e.buffer, CollisionExitEvent{BodyA: bodies[0], BodyB: bodies[1]})
		}
	}

	// Swap for the next step and clear current
	e.previousActivePairs, e.currentActivePairs = e.currentActivePairs, e.previousActivePairs
	clear(e.currentActivePairs)
}

// processSleepEvents emits Sleep and Wake events for bodies whose
// sleeping state changed since the previous step
func (e *Events) processSleepEvents(bodies []*actor.RigidBody) {
	for _, body := range bodies {
		trackedState, exists := e.sleepStates[body.ID()]
		if !exists {
			e.sleepStates[body.ID()] = body.IsSleeping
			continue
		}

		if !trackedState && body.IsSleeping {
			e.buffer = append(e.buffer, SleepEvent{Body: body})
			e.sleepStates[body.ID()] = true
		} else if trackedState && !body.IsSleeping {
			e.buffer = append(e.buffer, WakeEvent{Body: body})
			e.sleepStates[body.ID()] = false
		}
	}
}

// flush sends all buffered events and clears the buffer
func (e *Events) flush() {
	e.processCollisionEvents()

	for _, event := range e.buffer {
		if listeners, ok := e.listeners[event.Type()]; ok {
			for _, listener := range listeners {
				listener(event)
			}
		}
	}
	e.buffer = e.buffer[:0]
}
