package constraint

import (
	"math"

	"github.com/akmonengine/bedrock/actor"
	"github.com/go-gl/mathgl/mgl64"
)

const (
	// MaxManifoldPoints is the maximum number of contact points kept
	// per manifold. Four well-spread points are enough to keep a box
	// resting without jitter.
	MaxManifoldPoints = 4

	// PersistenceThreshold is the distance beyond which a cached
	// contact point no longer represents the touching geometry and is
	// dropped, both along the normal and tangentially.
	PersistenceThreshold = 0.03
)

// ContactPointInfo is the stateless output of the narrow phase for one
// contact point. The normal is a unit vector from body A toward body B,
// the penetration is non-negative, and the anchors are in each body's
// local space.
type ContactPointInfo struct {
	Normal      mgl64.Vec3
	Penetration float64
	LocalA      mgl64.Vec3
	LocalB      mgl64.Vec3
}

// ContactPoint is a persistent contact point of a manifold. The
// accumulated impulses survive across steps to warm-start the solver.
type ContactPoint struct {
	LocalA mgl64.Vec3 // anchor on body A, local space
	LocalB mgl64.Vec3 // anchor on body B, local space
	WorldA mgl64.Vec3 // refreshed from LocalA each step
	WorldB mgl64.Vec3

	Penetration float64

	NormalImpulse   float64
	TangentImpulse1 float64
	TangentImpulse2 float64
}

// ContactManifold is the persistent set of contact points of one
// overlapping pair. It is created the first time the narrow phase
// reports a contact for the pair and destroyed when the pair leaves
// the broad phase.
type ContactManifold struct {
	BodyA *actor.RigidBody
	BodyB *actor.RigidBody

	Normal mgl64.Vec3 // world space, from A toward B

	Points []ContactPoint

	Friction    float64
	Restitution float64
}

// NewContactManifold creates an empty manifold for a pair of bodies,
// mixing their materials once.
func NewContactManifold(bodyA, bodyB *actor.RigidBody) *ContactManifold {
	return &ContactManifold{
		BodyA:       bodyA,
		BodyB:       bodyB,
		Points:      make([]ContactPoint, 0, MaxManifoldPoints),
		Friction:    actor.CombineFriction(bodyA.Material, bodyB.Material),
		Restitution: actor.CombineRestitution(bodyA.Material, bodyB.Material),
	}
}

// HasContacts reports whether the manifold currently holds any point
func (m *ContactManifold) HasContacts() bool {
	return len(m.Points) > 0
}

// Refresh transforms the cached points into world space with the
// bodies' current transforms and drops the points that no longer
// describe the touching geometry: separated along the normal or
// drifted tangentially beyond the persistence threshold.
func (m *ContactManifold) Refresh() {
	n := 0
	for i := range m.Points {
		point := &m.Points[i]
		point.WorldA = m.BodyA.Transform.Apply(point.LocalA)
		point.WorldB = m.BodyB.Transform.Apply(point.LocalB)

		separation := point.WorldA.Sub(point.WorldB)
		point.Penetration = separation.Dot(m.Normal)

		if point.Penetration < -PersistenceThreshold {
			continue
		}

		tangential := separation.Sub(m.Normal.Mul(point.Penetration))
		if tangential.LenSqr() > PersistenceThreshold*PersistenceThreshold {
			continue
		}

		m.Points[n] = *point
		n++
	}
	m.Points = m.Points[:n]
}

// AddContactPoint merges a fresh narrow-phase point into the manifold.
// A point close to a cached one overwrites its geometry but keeps its
// accumulated impulses for warm starting; a genuinely new point is
// appended, evicting the least useful cached point when the manifold
// is full.
func (m *ContactManifold) AddContactPoint(info ContactPointInfo) {
	m.Normal = info.Normal

	point := ContactPoint{
		LocalA:      info.LocalA,
		LocalB:      info.LocalB,
		WorldA:      m.BodyA.Transform.Apply(info.LocalA),
		WorldB:      m.BodyB.Transform.Apply(info.LocalB),
		Penetration: info.Penetration,
	}

	for i := range m.Points {
		existing := &m.Points[i]
		if existing.LocalA.Sub(point.LocalA).LenSqr() < PersistenceThreshold*PersistenceThreshold {
			// Same spot: new geometry, warm-started impulses
			point.NormalImpulse = existing.NormalImpulse
			point.TangentImpulse1 = existing.TangentImpulse1
			point.TangentImpulse2 = existing.TangentImpulse2
			*existing = point
			return
		}
	}

	if len(m.Points) < MaxManifoldPoints {
		m.Points = append(m.Points, point)
		return
	}

	replace := m.pointToReplace(point)
	m.Points[replace] = point
}

// pointToReplace picks the cached point whose removal, once the new
// point is in, leaves the most spread-out quadrilateral. The deepest
// point is always retained.
func (m *ContactManifold) pointToReplace(newPoint ContactPoint) int {
	deepest := 0
	for i := 1; i < len(m.Points); i++ {
		if m.Points[i].Penetration > m.Points[deepest].Penetration {
			deepest = i
		}
	}
	if newPoint.Penetration > m.Points[deepest].Penetration {
		deepest = -1 // the new point is the deepest, every slot is fair game
	}

	bestIndex := 0
	bestArea := math.Inf(-1)
	for i := range m.Points {
		if i == deepest {
			continue
		}

		area := quadArea(m.candidateQuad(i, newPoint))
		if area > bestArea {
			bestArea = area
			bestIndex = i
		}
	}

	return bestIndex
}

// candidateQuad is the four local-space anchors kept when slot removed
// is replaced by the new point
func (m *ContactManifold) candidateQuad(removed int, newPoint ContactPoint) [4]mgl64.Vec3 {
	var quad [4]mgl64.Vec3
	n := 0
	for i := range m.Points {
		if i == removed {
			continue
		}
		quad[n] = m.Points[i].LocalA
		n++
	}
	quad[n] = newPoint.LocalA
	return quad
}

// quadArea measures the spread of four points by the cross product of
// their diagonals
func quadArea(points [4]mgl64.Vec3) float64 {
	d1 := points[2].Sub(points[0])
	d2 := points[3].Sub(points[1])
	return d1.Cross(d2).Len() * 0.5
}
