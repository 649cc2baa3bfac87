package constraint

import (
	"math"

	"github.com/akmonengine/bedrock/actor"
	"github.com/go-gl/mathgl/mgl64"
)

// JointType tags the kind of a joint
type JointType int

const (
	JointTypeBallSocket JointType = iota
	JointTypeHinge
	JointTypeSlider
	JointTypeFixed
)

// Joint is a persistent constraint between two bodies. Joints plug
// into the same sequential-impulse loop as contacts.
type Joint interface {
	Constraint
	Type() JointType
	BodyA() *actor.RigidBody
	BodyB() *actor.RigidBody
}

// jointBase carries what every joint kind shares: the two bodies and
// the local anchors of the connection point.
type jointBase struct {
	bodyA *actor.RigidBody
	bodyB *actor.RigidBody

	localAnchorA mgl64.Vec3
	localAnchorB mgl64.Vec3

	// Per-step state
	rA mgl64.Vec3
	rB mgl64.Vec3
}

func (j *jointBase) BodyA() *actor.RigidBody { return j.bodyA }
func (j *jointBase) BodyB() *actor.RigidBody { return j.bodyB }

func (j *jointBase) initializeAnchors() {
	j.rA = j.bodyA.Transform.Rotation.Rotate(j.localAnchorA)
	j.rB = j.bodyB.Transform.Rotation.Rotate(j.localAnchorB)
}

// anchorError is the world-space gap between the two anchor points
func (j *jointBase) anchorError() mgl64.Vec3 {
	worldA := j.bodyA.Transform.Position.Add(j.rA)
	worldB := j.bodyB.Transform.Position.Add(j.rB)
	return worldB.Sub(worldA)
}

// solveAnchorVelocity cancels the relative velocity of the anchor
// point, the 3-row point-to-point core shared by several joint kinds.
// The impulse is accumulated for warm starting.
func (j *jointBase) solveAnchorVelocity(accumulated *mgl64.Vec3) {
	k := pointEffectiveMass(j.bodyA, j.bodyB, j.rA, j.rB)
	velocity := relativeVelocity(j.bodyA, j.bodyB, j.rA, j.rB)

	impulse := solveSymmetric(k, velocity.Mul(-1))
	applyImpulse(j.bodyA, j.bodyB, j.rA, j.rB, impulse)
	*accumulated = accumulated.Add(impulse)
}

// solveAnchorPosition removes a fraction of the anchor gap
func (j *jointBase) solveAnchorPosition() {
	j.initializeAnchors()

	gap := j.anchorError()
	correction := gap.Mul(Baumgarte)
	if correction.Len() > MaxPositionCorrection {
		correction = correction.Normalize().Mul(MaxPositionCorrection)
	}

	k := pointEffectiveMass(j.bodyA, j.bodyB, j.rA, j.rB)
	impulse := solveSymmetric(k, correction.Mul(-1))
	applyPositionCorrection(j.bodyA, j.bodyB, j.rA, j.rB, impulse)
}

// angularEffectiveMass is the 3x3 effective mass of a pure angular
// constraint between the two bodies
func angularEffectiveMass(bodyA, bodyB *actor.RigidBody) mgl64.Mat3 {
	return bodyA.GetInverseInertiaWorld().Add(bodyB.GetInverseInertiaWorld())
}

// applyAngularImpulse kicks only the angular velocities
func applyAngularImpulse(bodyA, bodyB *actor.RigidBody, impulse mgl64.Vec3) {
	bodyA.AngularVelocity = sanitize(bodyA.AngularVelocity.Sub(bodyA.GetInverseInertiaWorld().Mul3x1(impulse)))
	bodyB.AngularVelocity = sanitize(bodyB.AngularVelocity.Add(bodyB.GetInverseInertiaWorld().Mul3x1(impulse)))
}

// applyAngularCorrection rotates the bodies without touching velocities
func applyAngularCorrection(bodyA, bodyB *actor.RigidBody, impulse mgl64.Vec3) {
	if bodyA.IsMotionEnabled() {
		rotateBody(bodyA, sanitize(bodyA.GetInverseInertiaWorld().Mul3x1(impulse).Mul(-1)))
	}
	if bodyB.IsMotionEnabled() {
		rotateBody(bodyB, sanitize(bodyB.GetInverseInertiaWorld().Mul3x1(impulse)))
	}
}

// relativeOrientationError converts the relative rotation between the
// bodies, measured against the rest orientation, into a rotation
// vector suitable for a positional correction.
func relativeOrientationError(bodyA, bodyB *actor.RigidBody, restOrientation mgl64.Quat) mgl64.Vec3 {
	qError := bodyB.Transform.Rotation.Mul(restOrientation.Conjugate()).Mul(bodyA.Transform.Rotation.Conjugate())
	qError = qError.Normalize()
	if qError.W < 0 {
		qError = qError.Scale(-1)
	}
	// Small-angle approximation: rotation vector = 2·v
	return qError.V.Mul(2)
}

// BallSocketJoint forces a point of body A and a point of body B to
// coincide, leaving all three rotational degrees of freedom free.
type BallSocketJoint struct {
	jointBase

	impulse mgl64.Vec3
}

// NewBallSocketJoint connects the two bodies at the given world-space
// anchor point.
func NewBallSocketJoint(bodyA, bodyB *actor.RigidBody, worldAnchor mgl64.Vec3) *BallSocketJoint {
	return &BallSocketJoint{
		jointBase: jointBase{
			bodyA:        bodyA,
			bodyB:        bodyB,
			localAnchorA: bodyA.Transform.ApplyInverse(worldAnchor),
			localAnchorB: bodyB.Transform.ApplyInverse(worldAnchor),
		},
	}
}

func (j *BallSocketJoint) Type() JointType { return JointTypeBallSocket }

func (j *BallSocketJoint) Initialize(dt float64) {
	j.initializeAnchors()
}

func (j *BallSocketJoint) WarmStart() {
	applyImpulse(j.bodyA, j.bodyB, j.rA, j.rB, j.impulse)
}

func (j *BallSocketJoint) SolveVelocity() {
	j.solveAnchorVelocity(&j.impulse)
}

func (j *BallSocketJoint) SolvePosition() {
	j.solveAnchorPosition()
}

// HingeJoint is a ball-socket plus two angular rows locking every
// rotation that is not around the hinge axis, with optional angular
// limits.
type HingeJoint struct {
	jointBase

	localAxisA mgl64.Vec3
	localAxisB mgl64.Vec3

	LowerLimit float64
	UpperLimit float64
	HasLimits  bool

	impulse        mgl64.Vec3
	angularImpulse mgl64.Vec3
	limitImpulse   float64

	axis     mgl64.Vec3 // world hinge axis, from body A
	tangent1 mgl64.Vec3 // world directions locked by the joint
	tangent2 mgl64.Vec3
}

// NewHingeJoint connects the two bodies at the given world anchor,
// allowing rotation around the given world axis only.
func NewHingeJoint(bodyA, bodyB *actor.RigidBody, worldAnchor, worldAxis mgl64.Vec3) *HingeJoint {
	axis := worldAxis.Normalize()
	return &HingeJoint{
		jointBase: jointBase{
			bodyA:        bodyA,
			bodyB:        bodyB,
			localAnchorA: bodyA.Transform.ApplyInverse(worldAnchor),
			localAnchorB: bodyB.Transform.ApplyInverse(worldAnchor),
		},
		localAxisA: bodyA.Transform.InverseRotation.Rotate(axis),
		localAxisB: bodyB.Transform.InverseRotation.Rotate(axis),
	}
}

// SetLimits bounds the hinge angle, in radians around the axis
func (j *HingeJoint) SetLimits(lower, upper float64) {
	j.LowerLimit = lower
	j.UpperLimit = upper
	j.HasLimits = true
}

func (j *HingeJoint) Type() JointType { return JointTypeHinge }

func (j *HingeJoint) Initialize(dt float64) {
	j.initializeAnchors()
	j.axis = j.bodyA.Transform.Rotation.Rotate(j.localAxisA)
	j.tangent1, j.tangent2 = TangentBasis(j.axis)
	// Limit impulses are not warm-started, the clamp baseline restarts
	// every step
	j.limitImpulse = 0
}

func (j *HingeJoint) WarmStart() {
	applyImpulse(j.bodyA, j.bodyB, j.rA, j.rB, j.impulse)
	applyAngularImpulse(j.bodyA, j.bodyB, j.angularImpulse)
}

func (j *HingeJoint) SolveVelocity() {
	j.solveAnchorVelocity(&j.impulse)

	// Lock the angular velocity components off the hinge axis
	omegaRel := j.bodyB.AngularVelocity.Sub(j.bodyA.AngularVelocity)
	locked := j.tangent1.Mul(omegaRel.Dot(j.tangent1)).Add(j.tangent2.Mul(omegaRel.Dot(j.tangent2)))

	k := angularEffectiveMass(j.bodyA, j.bodyB)
	impulse := solveSymmetric(k, locked.Mul(-1))
	// Keep the impulse off axis so the hinge rotation stays free
	impulse = impulse.Sub(j.axis.Mul(impulse.Dot(j.axis)))
	applyAngularImpulse(j.bodyA, j.bodyB, impulse)
	j.angularImpulse = j.angularImpulse.Add(impulse)

	if j.HasLimits {
		j.solveLimits()
	}
}

// hingeAngle measures the current rotation of body B around the axis
// relative to body A
func (j *HingeJoint) hingeAngle() float64 {
	// Track a reference direction carried by each body
	refA := j.bodyA.Transform.Rotation.Rotate(TangentBasisFirst(j.localAxisA))
	refB := j.bodyB.Transform.Rotation.Rotate(TangentBasisFirst(j.localAxisB))

	refA = refA.Sub(j.axis.Mul(refA.Dot(j.axis)))
	refB = refB.Sub(j.axis.Mul(refB.Dot(j.axis)))
	if refA.LenSqr() < 1e-12 || refB.LenSqr() < 1e-12 {
		return 0
	}
	refA = refA.Normalize()
	refB = refB.Normalize()

	sin := refA.Cross(refB).Dot(j.axis)
	cos := refA.Dot(refB)
	return math.Atan2(sin, cos)
}

// TangentBasisFirst returns the first vector of the orthogonal basis of
// a unit direction
func TangentBasisFirst(direction mgl64.Vec3) mgl64.Vec3 {
	tangent, _ := TangentBasis(direction)
	return tangent
}

func (j *HingeJoint) solveLimits() {
	angle := j.hingeAngle()

	var violation float64
	if angle < j.LowerLimit {
		violation = angle - j.LowerLimit // negative
	} else if angle > j.UpperLimit {
		violation = angle - j.UpperLimit // positive
	} else {
		return
	}

	k := angularEffectiveMass(j.bodyA, j.bodyB).Mul3x1(j.axis).Dot(j.axis)
	if k <= 1e-12 {
		return
	}

	omegaAxis := j.bodyB.AngularVelocity.Sub(j.bodyA.AngularVelocity).Dot(j.axis)
	lambda := -(omegaAxis) / k

	// One-sided clamp: push back into the allowed range only
	old := j.limitImpulse
	if violation > 0 {
		j.limitImpulse = math.Min(old+lambda, 0)
	} else {
		j.limitImpulse = math.Max(old+lambda, 0)
	}
	applyAngularImpulse(j.bodyA, j.bodyB, j.axis.Mul(j.limitImpulse-old))
}

func (j *HingeJoint) SolvePosition() {
	j.solveAnchorPosition()

	// Re-align the hinge axes carried by both bodies
	axisA := j.bodyA.Transform.Rotation.Rotate(j.localAxisA)
	axisB := j.bodyB.Transform.Rotation.Rotate(j.localAxisB)
	misalignment := axisA.Cross(axisB)
	if misalignment.LenSqr() < 1e-14 {
		return
	}

	correction := misalignment.Mul(Baumgarte)
	k := angularEffectiveMass(j.bodyA, j.bodyB)
	impulse := solveSymmetric(k, correction.Mul(-1))
	applyAngularCorrection(j.bodyA, j.bodyB, impulse)
}

// SliderJoint allows translation along one axis of body A and locks
// everything else: the two off-axis translations and all three
// rotations. Optional limits bound the translation.
type SliderJoint struct {
	jointBase

	localAxisA mgl64.Vec3

	LowerLimit float64
	UpperLimit float64
	HasLimits  bool

	restOrientation mgl64.Quat // orientation of B relative to A at creation

	impulse        mgl64.Vec3
	angularImpulse mgl64.Vec3
	limitImpulse   float64

	axis     mgl64.Vec3
	tangent1 mgl64.Vec3
	tangent2 mgl64.Vec3
}

// NewSliderJoint connects the two bodies at the given world anchor,
// allowing translation along the given world axis only.
func NewSliderJoint(bodyA, bodyB *actor.RigidBody, worldAnchor, worldAxis mgl64.Vec3) *SliderJoint {
	axis := worldAxis.Normalize()
	return &SliderJoint{
		jointBase: jointBase{
			bodyA:        bodyA,
			bodyB:        bodyB,
			localAnchorA: bodyA.Transform.ApplyInverse(worldAnchor),
			localAnchorB: bodyB.Transform.ApplyInverse(worldAnchor),
		},
		localAxisA:      bodyA.Transform.InverseRotation.Rotate(axis),
		restOrientation: bodyA.Transform.InverseRotation.Mul(bodyB.Transform.Rotation).Normalize(),
	}
}

// SetLimits bounds the translation along the axis, in meters
func (j *SliderJoint) SetLimits(lower, upper float64) {
	j.LowerLimit = lower
	j.UpperLimit = upper
	j.HasLimits = true
}

func (j *SliderJoint) Type() JointType { return JointTypeSlider }

func (j *SliderJoint) Initialize(dt float64) {
	j.initializeAnchors()
	j.axis = j.bodyA.Transform.Rotation.Rotate(j.localAxisA)
	j.tangent1, j.tangent2 = TangentBasis(j.axis)
	j.limitImpulse = 0
}

func (j *SliderJoint) WarmStart() {
	applyImpulse(j.bodyA, j.bodyB, j.rA, j.rB, j.impulse)
	applyAngularImpulse(j.bodyA, j.bodyB, j.angularImpulse)
}

func (j *SliderJoint) SolveVelocity() {
	bodyA := j.bodyA
	bodyB := j.bodyB

	// Cancel the linear velocity off the sliding axis
	velocity := relativeVelocity(bodyA, bodyB, j.rA, j.rB)
	offAxis := j.tangent1.Mul(velocity.Dot(j.tangent1)).Add(j.tangent2.Mul(velocity.Dot(j.tangent2)))

	k := pointEffectiveMass(bodyA, bodyB, j.rA, j.rB)
	impulse := solveSymmetric(k, offAxis.Mul(-1))
	impulse = impulse.Sub(j.axis.Mul(impulse.Dot(j.axis)))
	applyImpulse(bodyA, bodyB, j.rA, j.rB, impulse)
	j.impulse = j.impulse.Add(impulse)

	// Lock all relative rotation
	omegaRel := bodyB.AngularVelocity.Sub(bodyA.AngularVelocity)
	angularK := angularEffectiveMass(bodyA, bodyB)
	angularImpulse := solveSymmetric(angularK, omegaRel.Mul(-1))
	applyAngularImpulse(bodyA, bodyB, angularImpulse)
	j.angularImpulse = j.angularImpulse.Add(angularImpulse)

	if j.HasLimits {
		j.solveLimits()
	}
}

// translation measures the anchor offset of body B along the axis
func (j *SliderJoint) translation() float64 {
	return j.anchorError().Dot(j.axis)
}

func (j *SliderJoint) solveLimits() {
	translation := j.translation()

	var violation float64
	if translation < j.LowerLimit {
		violation = translation - j.LowerLimit
	} else if translation > j.UpperLimit {
		violation = translation - j.UpperLimit
	} else {
		return
	}

	mass := effectiveMass(
		j.bodyA.InverseMass()+j.bodyB.InverseMass(),
		j.bodyA.GetInverseInertiaWorld(), j.bodyB.GetInverseInertiaWorld(),
		j.rA, j.rB, j.axis,
	)
	if mass == 0 {
		return
	}

	vAxis := relativeVelocity(j.bodyA, j.bodyB, j.rA, j.rB).Dot(j.axis)
	lambda := -vAxis * mass

	old := j.limitImpulse
	if violation > 0 {
		j.limitImpulse = math.Min(old+lambda, 0)
	} else {
		j.limitImpulse = math.Max(old+lambda, 0)
	}
	applyImpulse(j.bodyA, j.bodyB, j.rA, j.rB, j.axis.Mul(j.limitImpulse-old))
}

func (j *SliderJoint) SolvePosition() {
	j.initializeAnchors()
	j.axis = j.bodyA.Transform.Rotation.Rotate(j.localAxisA)

	// Off-axis part of the anchor gap
	gap := j.anchorError()
	offAxis := gap.Sub(j.axis.Mul(gap.Dot(j.axis)))
	correction := offAxis.Mul(Baumgarte)
	if correction.Len() > MaxPositionCorrection {
		correction = correction.Normalize().Mul(MaxPositionCorrection)
	}

	k := pointEffectiveMass(j.bodyA, j.bodyB, j.rA, j.rB)
	impulse := solveSymmetric(k, correction.Mul(-1))
	impulse = impulse.Sub(j.axis.Mul(impulse.Dot(j.axis)))
	applyPositionCorrection(j.bodyA, j.bodyB, j.rA, j.rB, impulse)

	// Relative orientation back to the rest orientation
	angularError := relativeOrientationError(j.bodyA, j.bodyB, j.restOrientation)
	angularK := angularEffectiveMass(j.bodyA, j.bodyB)
	angularImpulse := solveSymmetric(angularK, angularError.Mul(-Baumgarte))
	applyAngularCorrection(j.bodyA, j.bodyB, angularImpulse)
}

// FixedJoint welds the two bodies together: no relative translation at
// the anchor, no relative rotation.
type FixedJoint struct {
	jointBase

	restOrientation mgl64.Quat

	impulse        mgl64.Vec3
	angularImpulse mgl64.Vec3
}

// NewFixedJoint welds the two bodies at the given world anchor point
func NewFixedJoint(bodyA, bodyB *actor.RigidBody, worldAnchor mgl64.Vec3) *FixedJoint {
	return &FixedJoint{
		jointBase: jointBase{
			bodyA:        bodyA,
			bodyB:        bodyB,
			localAnchorA: bodyA.Transform.ApplyInverse(worldAnchor),
			localAnchorB: bodyB.Transform.ApplyInverse(worldAnchor),
		},
		restOrientation: bodyA.Transform.InverseRotation.Mul(bodyB.Transform.Rotation).Normalize(),
	}
}

func (j *FixedJoint) Type() JointType { return JointTypeFixed }

func (j *FixedJoint) Initialize(dt float64) {
	j.initializeAnchors()
}

func (j *FixedJoint) WarmStart() {
	applyImpulse(j.bodyA, j.bodyB, j.rA, j.rB, j.impulse)
	applyAngularImpulse(j.bodyA, j.bodyB, j.angularImpulse)
}

func (j *FixedJoint) SolveVelocity() {
	j.solveAnchorVelocity(&j.impulse)

	omegaRel := j.bodyB.AngularVelocity.Sub(j.bodyA.AngularVelocity)
	k := angularEffectiveMass(j.bodyA, j.bodyB)
	impulse := solveSymmetric(k, omegaRel.Mul(-1))
	applyAngularImpulse(j.bodyA, j.bodyB, impulse)
	j.angularImpulse = j.angularImpulse.Add(impulse)
}

func (j *FixedJoint) SolvePosition() {
	j.solveAnchorPosition()

	angularError := relativeOrientationError(j.bodyA, j.bodyB, j.restOrientation)
	k := angularEffectiveMass(j.bodyA, j.bodyB)
	impulse := solveSymmetric(k, angularError.Mul(-Baumgarte))
	applyAngularCorrection(j.bodyA, j.bodyB, impulse)
}
