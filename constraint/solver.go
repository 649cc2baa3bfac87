package constraint

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

const (
	// Baumgarte is the fraction of the position error corrected per
	// position iteration
	Baumgarte = 0.2

	// PenetrationSlop is the penetration the position solver tolerates,
	// which prevents jitter on resting contacts
	PenetrationSlop = 0.005

	// MaxPositionCorrection bounds the positional correction applied by
	// one iteration
	MaxPositionCorrection = 0.2

	// RestitutionVelocityThreshold is the approach speed below which a
	// contact does not bounce
	RestitutionVelocityThreshold = 1.0
)

// velocityPoint is the per-step solver state of one manifold point
type velocityPoint struct {
	point *ContactPoint

	rA mgl64.Vec3 // arm from body A center to the contact
	rB mgl64.Vec3

	normalMass   float64 // effective mass along the normal
	tangentMass1 float64 // effective mass along each friction tangent
	tangentMass2 float64

	restitutionBias float64
}

// ContactConstraint solves one manifold with sequential impulses:
// accumulated, clamped normal impulses and Coulomb-clamped friction on
// two tangents, warm-started from the previous step.
type ContactConstraint struct {
	Manifold *ContactManifold

	normal   mgl64.Vec3
	tangent1 mgl64.Vec3
	tangent2 mgl64.Vec3

	points []velocityPoint
}

// NewContactConstraint wraps a manifold for this step's solve
func NewContactConstraint(manifold *ContactManifold) *ContactConstraint {
	return &ContactConstraint{
		Manifold: manifold,
		points:   make([]velocityPoint, 0, MaxManifoldPoints),
	}
}

// Initialize computes the constraint data that stays fixed during the
// velocity iterations: arms, effective masses, friction basis and
// restitution bias.
func (c *ContactConstraint) Initialize(dt float64) {
	bodyA := c.Manifold.BodyA
	bodyB := c.Manifold.BodyB
	c.normal = c.Manifold.Normal
	c.points = c.points[:0]

	invMassSum := bodyA.InverseMass() + bodyB.InverseMass()
	invInertiaA := bodyA.GetInverseInertiaWorld()
	invInertiaB := bodyB.GetInverseInertiaWorld()

	c.tangent1, c.tangent2 = c.frictionBasis()

	for i := range c.Manifold.Points {
		point := &c.Manifold.Points[i]

		// The contact acts at the midpoint of the two surface anchors
		position := point.WorldA.Add(point.WorldB).Mul(0.5)
		vp := velocityPoint{
			point: point,
			rA:    position.Sub(bodyA.Transform.Position),
			rB:    position.Sub(bodyB.Transform.Position),
		}

		vp.normalMass = effectiveMass(invMassSum, invInertiaA, invInertiaB, vp.rA, vp.rB, c.normal)
		vp.tangentMass1 = effectiveMass(invMassSum, invInertiaA, invInertiaB, vp.rA, vp.rB, c.tangent1)
		vp.tangentMass2 = effectiveMass(invMassSum, invInertiaA, invInertiaB, vp.rA, vp.rB, c.tangent2)

		// While only the skins touch the bodies may keep approaching,
		// fast enough to close the gap in one step
		separation := point.WorldA.Sub(point.WorldB).Dot(c.normal)
		if separation < 0 {
			vp.restitutionBias = separation / dt
		}

		// Restitution from the pre-solve approach speed
		vn := relativeVelocity(bodyA, bodyB, vp.rA, vp.rB).Dot(c.normal)
		if vn < -RestitutionVelocityThreshold {
			vp.restitutionBias = math.Max(vp.restitutionBias, -c.Manifold.Restitution*vn)
		}

		c.points = append(c.points, vp)
	}
}

// frictionBasis derives the two tangents from the tangential relative
// velocity of the first contact point, falling back to an arbitrary
// orthogonal basis when the bodies slide too slowly.
func (c *ContactConstraint) frictionBasis() (mgl64.Vec3, mgl64.Vec3) {
	if len(c.Manifold.Points) > 0 {
		point := &c.Manifold.Points[0]
		position := point.WorldA.Add(point.WorldB).Mul(0.5)
		rA := position.Sub(c.Manifold.BodyA.Transform.Position)
		rB := position.Sub(c.Manifold.BodyB.Transform.Position)

		velocity := relativeVelocity(c.Manifold.BodyA, c.Manifold.BodyB, rA, rB)
		tangentVelocity := velocity.Sub(c.normal.Mul(velocity.Dot(c.normal)))
		if tangentVelocity.LenSqr() > 1e-6 {
			tangent1 := tangentVelocity.Normalize()
			tangent2 := c.normal.Cross(tangent1)
			if tangent2.LenSqr() > 1e-12 {
				return tangent1, tangent2.Normalize()
			}
		}
	}

	return TangentBasis(c.normal)
}

// effectiveMass is 1 / (J·M⁻¹·Jᵀ) for a single direction, 0 when both
// bodies are immovable in it
func effectiveMass(invMassSum float64, invInertiaA, invInertiaB mgl64.Mat3, rA, rB, direction mgl64.Vec3) float64 {
	rnA := rA.Cross(direction)
	rnB := rB.Cross(direction)

	k := invMassSum +
		invInertiaA.Mul3x1(rnA).Dot(rnA) +
		invInertiaB.Mul3x1(rnB).Dot(rnB)

	if k <= 1e-12 {
		return 0
	}
	return 1.0 / k
}

// WarmStart replays the impulses accumulated during the previous step
// so that the iterations start close to the converged solution
func (c *ContactConstraint) WarmStart() {
	bodyA := c.Manifold.BodyA
	bodyB := c.Manifold.BodyB

	for i := range c.points {
		vp := &c.points[i]
		impulse := c.normal.Mul(vp.point.NormalImpulse).
			Add(c.tangent1.Mul(vp.point.TangentImpulse1)).
			Add(c.tangent2.Mul(vp.point.TangentImpulse2))
		applyImpulse(bodyA, bodyB, vp.rA, vp.rB, impulse)
	}
}

// SolveVelocity runs one sequential-impulse iteration: friction rows
// first, then the non-penetration row, accumulated-clamped.
func (c *ContactConstraint) SolveVelocity() {
	bodyA := c.Manifold.BodyA
	bodyB := c.Manifold.BodyB

	for i := range c.points {
		vp := &c.points[i]

		// Friction, clamped to the Coulomb cone |Pt| <= μ·Pn
		maxFriction := c.Manifold.Friction * vp.point.NormalImpulse

		velocity := relativeVelocity(bodyA, bodyB, vp.rA, vp.rB)
		lambda := -velocity.Dot(c.tangent1) * vp.tangentMass1
		newImpulse := clamp(vp.point.TangentImpulse1+lambda, -maxFriction, maxFriction)
		applyImpulse(bodyA, bodyB, vp.rA, vp.rB, c.tangent1.Mul(newImpulse-vp.point.TangentImpulse1))
		vp.point.TangentImpulse1 = newImpulse

		velocity = relativeVelocity(bodyA, bodyB, vp.rA, vp.rB)
		lambda = -velocity.Dot(c.tangent2) * vp.tangentMass2
		newImpulse = clamp(vp.point.TangentImpulse2+lambda, -maxFriction, maxFriction)
		applyImpulse(bodyA, bodyB, vp.rA, vp.rB, c.tangent2.Mul(newImpulse-vp.point.TangentImpulse2))
		vp.point.TangentImpulse2 = newImpulse

		// Non-penetration, accumulated impulse clamped to Pn >= 0
		velocity = relativeVelocity(bodyA, bodyB, vp.rA, vp.rB)
		vn := velocity.Dot(c.normal)
		lambda = -(vn - vp.restitutionBias) * vp.normalMass
		newImpulse = math.Max(vp.point.NormalImpulse+lambda, 0)
		applyImpulse(bodyA, bodyB, vp.rA, vp.rB, c.normal.Mul(newImpulse-vp.point.NormalImpulse))
		vp.point.NormalImpulse = newImpulse
	}
}

// SolvePosition runs one NGS iteration, pushing penetration beyond the
// slop out of the bodies by moving positions and orientations directly.
// Velocities are untouched, so the correction adds no momentum.
func (c *ContactConstraint) SolvePosition() {
	bodyA := c.Manifold.BodyA
	bodyB := c.Manifold.BodyB

	for i := range c.points {
		vp := &c.points[i]

		// Re-read the error from the current transforms
		worldA := bodyA.Transform.Apply(vp.point.LocalA)
		worldB := bodyB.Transform.Apply(vp.point.LocalB)
		penetration := worldA.Sub(worldB).Dot(c.normal)

		correction := clamp(Baumgarte*(penetration-PenetrationSlop), 0, MaxPositionCorrection)
		if correction <= 0 {
			continue
		}

		position := worldA.Add(worldB).Mul(0.5)
		rA := position.Sub(bodyA.Transform.Position)
		rB := position.Sub(bodyB.Transform.Position)

		mass := effectiveMass(
			bodyA.InverseMass()+bodyB.InverseMass(),
			bodyA.GetInverseInertiaWorld(), bodyB.GetInverseInertiaWorld(),
			rA, rB, c.normal,
		)
		if mass == 0 {
			continue
		}

		impulse := c.normal.Mul(correction * mass)
		applyPositionCorrection(bodyA, bodyB, rA, rB, impulse)
	}
}

func clamp(value, low, high float64) float64 {
	return math.Max(low, math.Min(high, value))
}
