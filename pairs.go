package bedrock

import (
	"github.com/akmonengine/bedrock/actor"
	"github.com/akmonengine/bedrock/constraint"
)

// PairKey identifies an unordered pair of bodies by their ids,
// canonicalized so that A < B
type PairKey struct {
	A int
	B int
}

// MakePairKey builds the canonical key of two body ids
func MakePairKey(idA, idB int) PairKey {
	if idB < idA {
		idA, idB = idB, idA
	}
	return PairKey{A: idA, B: idB}
}

// OverlappingPair is a pair of bodies whose AABBs currently overlap,
// with its cached narrow-phase state. The manifold is nil until the
// narrow phase reports a first contact.
type OverlappingPair struct {
	Key   PairKey
	BodyA *actor.RigidBody
	BodyB *actor.RigidBody

	Manifold *constraint.ContactManifold
}

// PairManager is the set of currently overlapping pairs, fed by the
// broad phase. Iteration order is the insertion order and is stable
// within one broad-phase step.
type PairManager struct {
	pairs   map[PairKey]*OverlappingPair
	ordered []*OverlappingPair

	// Lifecycle callbacks installed by the world
	OnAdded   func(pair *OverlappingPair)
	OnRemoved func(pair *OverlappingPair)
}

// NewPairManager creates an empty pair set
func NewPairManager() *PairManager {
	return &PairManager{
		pairs: make(map[PairKey]*OverlappingPair),
	}
}

// Insert adds the pair of the two bodies. The call is idempotent: the
// existing record is returned when the pair is already present, and
// "new" is signalled only on the first insertion.
func (pm *PairManager) Insert(bodyA, bodyB *actor.RigidBody) (*OverlappingPair, bool) {
	key := MakePairKey(bodyA.ID(), bodyB.ID())
	if existing, ok := pm.pairs[key]; ok {
		return existing, false
	}

	if bodyB.ID() < bodyA.ID() {
		bodyA, bodyB = bodyB, bodyA
	}
	pair := &OverlappingPair{Key: key, BodyA: bodyA, BodyB: bodyB}
	pm.pairs[key] = pair
	pm.ordered = append(pm.ordered, pair)

	if pm.OnAdded != nil {
		pm.OnAdded(pair)
	}
	return pair, true
}

// Remove drops the pair with the given key, signalling the removal
func (pm *PairManager) Remove(key PairKey) {
	pair, ok := pm.pairs[key]
	if !ok {
		return
	}
	delete(pm.pairs, key)

	for i, p := range pm.ordered {
		if p == pair {
			pm.ordered = append(pm.ordered[:i], pm.ordered[i+1:]...)
			break
		}
	}

	if pm.OnRemoved != nil {
		pm.OnRemoved(pair)
	}
}

// Lookup returns the pair with the given key, or nil
func (pm *PairManager) Lookup(key PairKey) *OverlappingPair {
	return pm.pairs[key]
}

// Len returns the number of overlapping pairs
func (pm *PairManager) Len() int {
	return len(pm.ordered)
}

// Each visits every pair in insertion order
func (pm *PairManager) Each(fn func(pair *OverlappingPair)) {
	for _, pair := range pm.ordered {
		fn(pair)
	}
}
