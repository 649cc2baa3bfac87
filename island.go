package bedrock

import (
	"github.com/akmonengine/bedrock/actor"
	"github.com/akmonengine/bedrock/constraint"
)

// Island is an independent connected component of awake bodies plus
// the contacts and joints between them, rebuilt every step. The
// solver and the sleep policy work island by island.
type Island struct {
	Bodies    []*actor.RigidBody
	Manifolds []*constraint.ContactManifold
	Joints    []constraint.Joint
}

// buildIslands flood-fills from every awake dynamic body across its
// contact manifolds and joints. Static and sleeping bodies are
// absorbing: they join the island they are touched from but do not
// propagate, so two stacks on the same floor stay independent.
func (w *World) buildIslands() []*Island {
	visited := make(map[int]bool, len(w.bodies))
	claimedManifolds := make(map[*constraint.ContactManifold]bool)
	claimedJoints := make(map[constraint.Joint]bool)

	var islands []*Island
	stack := make([]*actor.RigidBody, 0, 16)

	for _, seed := range w.orderedBodies {
		if visited[seed.ID()] || seed.IsSleeping || !seed.IsMotionEnabled() {
			continue
		}

		island := &Island{}
		stack = append(stack[:0], seed)
		visited[seed.ID()] = true

		for len(stack) > 0 {
			body := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			island.Bodies = append(island.Bodies, body)

			// Absorbing nodes terminate the flood fill
			if !body.IsMotionEnabled() || body.IsSleeping {
				continue
			}

			w.manifoldLinks.each(body.ContactListHead, func(manifold *constraint.ContactManifold) {
				if !manifold.HasContacts() {
					return
				}
				if !claimedManifolds[manifold] {
					claimedManifolds[manifold] = true
					island.Manifolds = append(island.Manifolds, manifold)
				}

				other := manifold.BodyA
				if other == body {
					other = manifold.BodyB
				}
				if !visited[other.ID()] {
					visited[other.ID()] = true
					stack = append(stack, other)
				}
			})

			w.jointLinks.each(body.JointListHead, func(joint constraint.Joint) {
				if !claimedJoints[joint] {
					claimedJoints[joint] = true
					island.Joints = append(island.Joints, joint)
				}

				other := joint.BodyA()
				if other == body {
					other = joint.BodyB()
				}
				if !visited[other.ID()] {
					visited[other.ID()] = true
					stack = append(stack, other)
				}
			})
		}

		islands = append(islands, island)
	}

	return islands
}
