package constraint

import (
	"math"

	"github.com/akmonengine/bedrock/actor"
	"github.com/go-gl/mathgl/mgl64"
)

// Constraint is implemented by everything the sequential-impulse solver
// iterates over: contact constraints and every joint kind. Initialize
// computes the per-step constraint data, WarmStart applies the impulses
// accumulated during the previous step, SolveVelocity runs one
// Gauss-Seidel iteration at the velocity level and SolvePosition one
// iteration of direct positional correction.
type Constraint interface {
	Initialize(dt float64)
	WarmStart()
	SolveVelocity()
	SolvePosition()
}

// TangentBasis returns two unit vectors orthogonal to the given unit
// normal and to each other, the friction plane of a contact.
func TangentBasis(normal mgl64.Vec3) (mgl64.Vec3, mgl64.Vec3) {
	tangent1 := mgl64.Vec3{1, 0, 0}
	if math.Abs(normal.X()) > 0.9 {
		tangent1 = mgl64.Vec3{0, 1, 0}
	}

	tangent1 = tangent1.Sub(normal.Mul(tangent1.Dot(normal))).Normalize()
	tangent2 := normal.Cross(tangent1).Normalize()

	return tangent1, tangent2
}

// skewSymmetric builds the matrix such that skewSymmetric(a).Mul3x1(b)
// equals a cross b
func skewSymmetric(v mgl64.Vec3) mgl64.Mat3 {
	return mgl64.Mat3FromRows(
		mgl64.Vec3{0, -v.Z(), v.Y()},
		mgl64.Vec3{v.Z(), 0, -v.X()},
		mgl64.Vec3{-v.Y(), v.X(), 0},
	)
}

// pointEffectiveMass builds the 3x3 effective mass matrix K of a
// point-to-point constraint with arms rA and rB:
// K = (1/mA + 1/mB)·I - [rA]×·IA⁻¹·[rA]× - [rB]×·IB⁻¹·[rB]×
func pointEffectiveMass(bodyA, bodyB *actor.RigidBody, rA, rB mgl64.Vec3) mgl64.Mat3 {
	invMassSum := bodyA.InverseMass() + bodyB.InverseMass()
	k := mgl64.Ident3().Mul(invMassSum)

	skewA := skewSymmetric(rA)
	skewB := skewSymmetric(rB)
	k = k.Sub(skewA.Mul3(bodyA.GetInverseInertiaWorld()).Mul3(skewA))
	k = k.Sub(skewB.Mul3(bodyB.GetInverseInertiaWorld()).Mul3(skewB))

	return k
}

// solveSymmetric returns K⁻¹·b, or zero when K is singular (both
// bodies static, degenerate arms). The solver treats a zero result as
// "no impulse", never as an error.
func solveSymmetric(k mgl64.Mat3, b mgl64.Vec3) mgl64.Vec3 {
	if math.Abs(k.Det()) < 1e-12 {
		return mgl64.Vec3{}
	}
	return k.Inv().Mul3x1(b)
}

// sanitize clamps non-finite components to zero so that a degenerate
// configuration cannot poison the body state
func sanitize(v mgl64.Vec3) mgl64.Vec3 {
	for i := 0; i < 3; i++ {
		if math.IsNaN(v[i]) || math.IsInf(v[i], 0) {
			v[i] = 0
		}
	}
	return v
}

// applyImpulse kicks both bodies of a constraint with the given world
// impulse acting at arms rA and rB. The impulse is taken as acting on
// body B, with the opposite reaction on body A.
func applyImpulse(bodyA, bodyB *actor.RigidBody, rA, rB, impulse mgl64.Vec3) {
	bodyA.Velocity = sanitize(bodyA.Velocity.Sub(impulse.Mul(bodyA.InverseMass())))
	bodyA.AngularVelocity = sanitize(bodyA.AngularVelocity.Sub(bodyA.GetInverseInertiaWorld().Mul3x1(rA.Cross(impulse))))

	bodyB.Velocity = sanitize(bodyB.Velocity.Add(impulse.Mul(bodyB.InverseMass())))
	bodyB.AngularVelocity = sanitize(bodyB.AngularVelocity.Add(bodyB.GetInverseInertiaWorld().Mul3x1(rB.Cross(impulse))))
}

// relativeVelocity is the velocity of the contact point on body B
// relative to the same point on body A
func relativeVelocity(bodyA, bodyB *actor.RigidBody, rA, rB mgl64.Vec3) mgl64.Vec3 {
	vA := bodyA.Velocity.Add(bodyA.AngularVelocity.Cross(rA))
	vB := bodyB.Velocity.Add(bodyB.AngularVelocity.Cross(rB))
	return vB.Sub(vA)
}

// applyPositionCorrection moves and rotates both bodies by a pseudo
// impulse without touching their velocities, the NGS position pass
func applyPositionCorrection(bodyA, bodyB *actor.RigidBody, rA, rB, impulse mgl64.Vec3) {
	if bodyA.IsMotionEnabled() {
		bodyA.Transform.Position = bodyA.Transform.Position.Sub(sanitize(impulse.Mul(bodyA.InverseMass())))
		rotateBody(bodyA, sanitize(bodyA.GetInverseInertiaWorld().Mul3x1(rA.Cross(impulse)).Mul(-1)))
	}
	if bodyB.IsMotionEnabled() {
		bodyB.Transform.Position = bodyB.Transform.Position.Add(sanitize(impulse.Mul(bodyB.InverseMass())))
		rotateBody(bodyB, sanitize(bodyB.GetInverseInertiaWorld().Mul3x1(rB.Cross(impulse))))
	}
}

// rotateBody applies a small rotation vector to the body orientation,
// q ← normalize(q + 0.5·δθ·q)
func rotateBody(body *actor.RigidBody, deltaRot mgl64.Vec3) {
	if deltaRot.LenSqr() < 1e-20 {
		return
	}
	qDelta := mgl64.Quat{W: 0, V: deltaRot}
	rotation := body.Transform.Rotation.Add(qDelta.Mul(body.Transform.Rotation).Scale(0.5)).Normalize()
	body.Transform.Rotation = rotation
	body.Transform.InverseRotation = rotation.Inverse()
}
