package bedrock

import (
	"github.com/akmonengine/bedrock/actor"
)

// endpoint is one end of a body's AABB projected on a world axis
type endpoint struct {
	value  float64
	bodyID int
	isMin  bool
}

// endpointLess orders endpoints by value, min endpoints first on ties
// so that touching AABBs count as overlapping
func endpointLess(a, b endpoint) bool {
	if a.value != b.value {
		return a.value < b.value
	}
	return a.isMin && !b.isMin
}

// SweepAndPrune is the broad phase: three sorted endpoint lists, one
// per world axis. Moving a body bubbles its endpoints through the
// lists; every min/max crossing toggles the per-axis overlap bit of
// the crossed pair, and a pair is handed to the pair manager exactly
// when its three bits become set.
//
// Updates are O(number of crossings), which stays small when bodies
// move coherently between steps, the typical case in game scenes.
type SweepAndPrune struct {
	axes   [3][]endpoint
	masks  map[PairKey]uint8
	bodies map[int]*actor.RigidBody

	pairManager *PairManager
}

// NewSweepAndPrune creates an empty broad phase feeding the given pair
// manager
func NewSweepAndPrune(pairManager *PairManager) *SweepAndPrune {
	return &SweepAndPrune{
		masks:       make(map[PairKey]uint8),
		bodies:      make(map[int]*actor.RigidBody),
		pairManager: pairManager,
	}
}

// AddBody registers a body: its endpoints are inserted in the three
// lists and its overlaps against the existing bodies are computed
// directly from the AABBs.
func (sap *SweepAndPrune) AddBody(body *actor.RigidBody) {
	aabb := body.GetAABB()
	sap.bodies[body.ID()] = body

	for axis := 0; axis < 3; axis++ {
		sap.insertEndpoint(axis, endpoint{value: aabb.Min[axis], bodyID: body.ID(), isMin: true})
		sap.insertEndpoint(axis, endpoint{value: aabb.Max[axis], bodyID: body.ID(), isMin: false})
	}

	for _, other := range sap.bodies {
		if other.ID() == body.ID() {
			continue
		}
		var mask uint8
		otherAABB := other.GetAABB()
		for axis := 0; axis < 3; axis++ {
			if aabb.Max[axis] >= otherAABB.Min[axis] && aabb.Min[axis] <= otherAABB.Max[axis] {
				mask |= 1 << axis
			}
		}

		if mask != 0 {
			key := MakePairKey(body.ID(), other.ID())
			sap.masks[key] = mask
			sap.reportPair(key)
		}
	}
}

func (sap *SweepAndPrune) insertEndpoint(axis int, ep endpoint) {
	eps := sap.axes[axis]
	index := len(eps)
	for i, existing := range eps {
		if endpointLess(ep, existing) {
			index = i
			break
		}
	}

	eps = append(eps, endpoint{})
	copy(eps[index+1:], eps[index:])
	eps[index] = ep
	sap.axes[axis] = eps
}

// RemoveBody drops the body's endpoints and every pair mentioning it
func (sap *SweepAndPrune) RemoveBody(body *actor.RigidBody) {
	id := body.ID()

	for axis := 0; axis < 3; axis++ {
		eps := sap.axes[axis]
		n := 0
		for _, ep := range eps {
			if ep.bodyID == id {
				continue
			}
			eps[n] = ep
			n++
		}
		sap.axes[axis] = eps[:n]
	}

	for key := range sap.masks {
		if key.A == id || key.B == id {
			delete(sap.masks, key)
			sap.pairManager.Remove(key)
		}
	}

	delete(sap.bodies, id)
}

// UpdateBody moves the body's endpoints to its current AABB by bubble
// swaps, updating the overlap masks incrementally
func (sap *SweepAndPrune) UpdateBody(body *actor.RigidBody) {
	aabb := body.GetAABB()
	id := body.ID()

	for axis := 0; axis < 3; axis++ {
		minIdx, maxIdx := sap.findEndpoints(axis, id)
		if minIdx < 0 || maxIdx < 0 {
			continue
		}

		movingRight := aabb.Min[axis] > sap.axes[axis][minIdx].value

		// When moving right the max endpoint travels first, when moving
		// left the min does, so that a body's endpoints never cross
		// each other
		if movingRight {
			sap.axes[axis][maxIdx].value = aabb.Max[axis]
			sap.moveEndpoint(axis, maxIdx)

			minIdx, _ = sap.findEndpoints(axis, id)
			sap.axes[axis][minIdx].value = aabb.Min[axis]
			sap.moveEndpoint(axis, minIdx)
		} else {
			sap.axes[axis][minIdx].value = aabb.Min[axis]
			sap.moveEndpoint(axis, minIdx)

			_, maxIdx = sap.findEndpoints(axis, id)
			sap.axes[axis][maxIdx].value = aabb.Max[axis]
			sap.moveEndpoint(axis, maxIdx)
		}
	}
}

func (sap *SweepAndPrune) findEndpoints(axis, bodyID int) (minIdx, maxIdx int) {
	minIdx, maxIdx = -1, -1
	for i, ep := range sap.axes[axis] {
		if ep.bodyID != bodyID {
			continue
		}
		if ep.isMin {
			minIdx = i
		} else {
			maxIdx = i
		}
		if minIdx >= 0 && maxIdx >= 0 {
			return
		}
	}
	return
}

// moveEndpoint bubbles the endpoint at the given index into sorted
// position. Each swap past another body's opposite-kind endpoint
// toggles the pair's overlap bit on this axis.
func (sap *SweepAndPrune) moveEndpoint(axis, index int) {
	eps := sap.axes[axis]

	// Bubble left
	for index > 0 && endpointLess(eps[index], eps[index-1]) {
		sap.handleCrossing(axis, eps[index], eps[index-1], false)
		eps[index-1], eps[index] = eps[index], eps[index-1]
		index--
	}

	// Bubble right
	for index < len(eps)-1 && endpointLess(eps[index+1], eps[index]) {
		sap.handleCrossing(axis, eps[index], eps[index+1], true)
		eps[index], eps[index+1] = eps[index+1], eps[index]
		index++
	}
}

// handleCrossing updates the overlap bit when the moving endpoint
// passes an endpoint of another body.
//
// A min passing below a max, or a max passing above a min, starts an
// overlap on this axis; the reverse crossings end it. Same-kind
// crossings change nothing.
func (sap *SweepAndPrune) handleCrossing(axis int, moving, other endpoint, movingRight bool) {
	if moving.bodyID == other.bodyID || moving.isMin == other.isMin {
		return
	}

	var begins bool
	if movingRight {
		// A max overtaking a min begins overlap, a min overtaking a max
		// ends it
		begins = !moving.isMin && other.isMin
	} else {
		begins = moving.isMin && !other.isMin
	}

	key := MakePairKey(moving.bodyID, other.bodyID)
	if begins {
		sap.masks[key] |= 1 << axis
	} else {
		sap.masks[key] &^= 1 << axis
		if sap.masks[key] == 0 {
			delete(sap.masks, key)
		}
	}
	sap.reportPair(key)
}

const allAxes = 0b111

// reportPair synchronizes the pair manager with the overlap mask: a
// full mask inserts the pair, anything else removes it. Pairs that can
// never collide are filtered here.
func (sap *SweepAndPrune) reportPair(key PairKey) {
	if sap.masks[key] != allAxes {
		sap.pairManager.Remove(key)
		return
	}

	bodyA := sap.bodies[key.A]
	bodyB := sap.bodies[key.B]
	if bodyA == nil || bodyB == nil {
		return
	}

	if !bodyA.IsCollisionEnabled() || !bodyB.IsCollisionEnabled() {
		return
	}
	if !bodyA.IsMotionEnabled() && !bodyB.IsMotionEnabled() {
		return
	}

	sap.pairManager.Insert(bodyA, bodyB)
}
