package actor

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// NilLink marks the empty head of the intrusive contact and joint lists.
// The link nodes themselves live in a pool owned by the world.
const NilLink = -1

// RigidBody represents a rigid body in the physics simulation.
// Bodies are created by a world, which assigns the id; an id is dense
// and unique within its world.
type RigidBody struct {
	id int

	// Spatial properties
	PreviousTransform Transform
	Transform         Transform

	// Linear and angular motion
	Velocity        mgl64.Vec3 // Linear velocity (m/s)
	AngularVelocity mgl64.Vec3 // Rotation speed (rad/s)

	mass        float64
	inverseMass float64

	InertiaLocal        mgl64.Mat3 // Inertia tensor in local space
	InverseInertiaLocal mgl64.Mat3

	accumulatedForce  mgl64.Vec3
	accumulatedTorque mgl64.Vec3

	linearDamping  float64
	angularDamping float64

	motionEnabled    bool
	collisionEnabled bool
	gravityEnabled   bool

	IsSleeping bool
	SleepTimer float64

	// Physical properties
	Material Material

	// Collision shape and its world bounds
	Shape ShapeInterface
	aabb  AABB

	hasMoved bool

	// Heads of the world-owned intrusive lists of contact manifolds and
	// joints this body participates in
	ContactListHead int
	JointListHead   int

	// Installed by the world so that waking a body wakes its island
	WakeHook func(*RigidBody)
}

// NewRigidBody creates a dynamic rigid body from its transform, mass,
// local inertia tensor and collision shape. The id is assigned by the
// world that owns the body.
func NewRigidBody(id int, transform Transform, mass float64, inertia mgl64.Mat3, shape ShapeInterface) (*RigidBody, error) {
	if shape == nil {
		return nil, fmt.Errorf("%w: shape cannot be nil", ErrInvalidArgument)
	}
	if mass <= 0 {
		return nil, fmt.Errorf("%w: mass must be positive, got %v", ErrInvalidArgument, mass)
	}

	rb := &RigidBody{
		id:                id,
		PreviousTransform: transform,
		Transform:         transform,
		mass:              mass,
		inverseMass:       1.0 / mass,
		InertiaLocal:      inertia,
		motionEnabled:     true,
		collisionEnabled:  true,
		gravityEnabled:    true,
		Material:          DefaultMaterial(),
		Shape:             shape,
		ContactListHead:   NilLink,
		JointListHead:     NilLink,
	}
	rb.InverseInertiaLocal = invertInertia(inertia)
	rb.UpdateAABB()

	return rb, nil
}

// NewStaticBody creates an immobile body. Static bodies have infinite
// effective mass, never move and never sleep.
func NewStaticBody(id int, transform Transform, shape ShapeInterface) (*RigidBody, error) {
	if shape == nil {
		return nil, fmt.Errorf("%w: shape cannot be nil", ErrInvalidArgument)
	}

	rb := &RigidBody{
		id:                id,
		PreviousTransform: transform,
		Transform:         transform,
		collisionEnabled:  true,
		Material:          DefaultMaterial(),
		Shape:             shape,
		ContactListHead:   NilLink,
		JointListHead:     NilLink,
	}
	rb.UpdateAABB()

	return rb, nil
}

func invertInertia(inertia mgl64.Mat3) mgl64.Mat3 {
	if inertia.Det() == 0 {
		return mgl64.Mat3{}
	}
	return inertia.Inv()
}

// ID returns the body's dense world-unique id
func (rb *RigidBody) ID() int {
	return rb.id
}

// Mass returns the body's mass
func (rb *RigidBody) Mass() float64 {
	return rb.mass
}

// InverseMass returns 1/mass, or 0 when the body cannot move
func (rb *RigidBody) InverseMass() float64 {
	if !rb.motionEnabled {
		return 0
	}
	return rb.inverseMass
}

// SetMass replaces the mass and recomputes its inverse
func (rb *RigidBody) SetMass(mass float64) error {
	if mass <= 0 {
		return fmt.Errorf("%w: mass must be positive, got %v", ErrInvalidArgument, mass)
	}
	rb.mass = mass
	rb.inverseMass = 1.0 / mass
	return nil
}

// SetInertiaTensorLocal replaces the local inertia tensor
func (rb *RigidBody) SetInertiaTensorLocal(inertia mgl64.Mat3) {
	rb.InertiaLocal = inertia
	rb.InverseInertiaLocal = invertInertia(inertia)
}

// IsMotionEnabled reports whether the body can move
func (rb *RigidBody) IsMotionEnabled() bool {
	return rb.motionEnabled
}

// EnableMotion sets whether the body can move. A body with motion
// disabled behaves as static in the solver.
func (rb *RigidBody) EnableMotion(enabled bool) {
	rb.motionEnabled = enabled
	if !enabled {
		rb.Velocity = mgl64.Vec3{}
		rb.AngularVelocity = mgl64.Vec3{}
	}
}

// IsCollisionEnabled reports whether the body collides with others
func (rb *RigidBody) IsCollisionEnabled() bool {
	return rb.collisionEnabled
}

// EnableCollision sets whether the body collides with others
func (rb *RigidBody) EnableCollision(enabled bool) {
	rb.collisionEnabled = enabled
}

// IsGravityEnabled reports whether world gravity applies to this body
func (rb *RigidBody) IsGravityEnabled() bool {
	return rb.gravityEnabled
}

// EnableGravity sets whether world gravity applies to this body
func (rb *RigidBody) EnableGravity(enabled bool) {
	rb.gravityEnabled = enabled
}

// LinearDamping returns the linear damping coefficient
func (rb *RigidBody) LinearDamping() float64 {
	return rb.linearDamping
}

// SetLinearDamping sets the linear damping coefficient, >= 0
func (rb *RigidBody) SetLinearDamping(damping float64) error {
	if damping < 0 {
		return fmt.Errorf("%w: linear damping cannot be negative, got %v", ErrInvalidArgument, damping)
	}
	rb.linearDamping = damping
	return nil
}

// AngularDamping returns the angular damping coefficient
func (rb *RigidBody) AngularDamping() float64 {
	return rb.angularDamping
}

// SetAngularDamping sets the angular damping coefficient, >= 0
func (rb *RigidBody) SetAngularDamping(damping float64) error {
	if damping < 0 {
		return fmt.Errorf("%w: angular damping cannot be negative, got %v", ErrInvalidArgument, damping)
	}
	rb.angularDamping = damping
	return nil
}

// SetMaterial replaces the body's material
func (rb *RigidBody) SetMaterial(material Material) {
	rb.Material = material
}

// GetTransform returns the body's current transform
func (rb *RigidBody) GetTransform() Transform {
	return rb.Transform
}

// SetTransform teleports the body and marks it as moved so that its
// AABB is refreshed on the next step
func (rb *RigidBody) SetTransform(transform Transform) {
	rb.Transform = transform
	rb.hasMoved = true
}

// HasMoved reports whether the body moved since its AABB was refreshed
func (rb *RigidBody) HasMoved() bool {
	return rb.hasMoved
}

// GetInterpolatedTransform blends the transform before the last step
// with the current one using the given factor, for rendering between
// fixed steps
func (rb *RigidBody) GetInterpolatedTransform(factor float64) Transform {
	return InterpolateTransforms(rb.PreviousTransform, rb.Transform, factor)
}

// GetLinearVelocity returns the linear velocity
func (rb *RigidBody) GetLinearVelocity() mgl64.Vec3 {
	return rb.Velocity
}

// SetLinearVelocity replaces the linear velocity and wakes the body
func (rb *RigidBody) SetLinearVelocity(velocity mgl64.Vec3) {
	if !rb.motionEnabled {
		return
	}
	rb.Awake()
	rb.Velocity = velocity
}

// GetAngularVelocity returns the angular velocity
func (rb *RigidBody) GetAngularVelocity() mgl64.Vec3 {
	return rb.AngularVelocity
}

// SetAngularVelocity replaces the angular velocity and wakes the body
func (rb *RigidBody) SetAngularVelocity(velocity mgl64.Vec3) {
	if !rb.motionEnabled {
		return
	}
	rb.Awake()
	rb.AngularVelocity = velocity
}

// ApplyForceToCenter accumulates a force acting through the center of
// mass for the current step. Waking is immediate, clearing happens at
// the end of the step.
func (rb *RigidBody) ApplyForceToCenter(force mgl64.Vec3) {
	if !rb.motionEnabled {
		return
	}
	rb.Awake()
	rb.accumulatedForce = rb.accumulatedForce.Add(force)
}

// ApplyForce accumulates a force acting through a world-space point,
// adding the induced torque
func (rb *RigidBody) ApplyForce(force, worldPoint mgl64.Vec3) {
	if !rb.motionEnabled {
		return
	}
	rb.Awake()
	rb.accumulatedForce = rb.accumulatedForce.Add(force)
	arm := worldPoint.Sub(rb.Transform.Position)
	rb.accumulatedTorque = rb.accumulatedTorque.Add(arm.Cross(force))
}

// ApplyTorque accumulates a torque for the current step
func (rb *RigidBody) ApplyTorque(torque mgl64.Vec3) {
	if !rb.motionEnabled {
		return
	}
	rb.Awake()
	rb.accumulatedTorque = rb.accumulatedTorque.Add(torque)
}

// AccumulatedForce returns the force accumulated since the last step
func (rb *RigidBody) AccumulatedForce() mgl64.Vec3 {
	return rb.accumulatedForce
}

// AccumulatedTorque returns the torque accumulated since the last step
func (rb *RigidBody) AccumulatedTorque() mgl64.Vec3 {
	return rb.accumulatedTorque
}

// ClearForces resets the force and torque accumulators
func (rb *RigidBody) ClearForces() {
	rb.accumulatedForce = mgl64.Vec3{}
	rb.accumulatedTorque = mgl64.Vec3{}
}

// Sleep puts the body to rest. A sleeping body has zero velocity and
// no accumulated forces.
func (rb *RigidBody) Sleep() {
	if !rb.motionEnabled {
		return
	}
	rb.IsSleeping = true
	rb.SleepTimer = 0.0
	rb.Velocity = mgl64.Vec3{}
	rb.AngularVelocity = mgl64.Vec3{}
	rb.ClearForces()
}

// Awake wakes the body. If the world installed a wake hook, the rest
// of the island is woken through it.
func (rb *RigidBody) Awake() {
	wasSleeping := rb.IsSleeping
	rb.IsSleeping = false
	rb.SleepTimer = 0.0

	if wasSleeping && rb.WakeHook != nil {
		rb.WakeHook(rb)
	}
}

// IntegrateForces advances the velocities by dt under gravity and the
// accumulated external forces, then applies damping.
func (rb *RigidBody) IntegrateForces(dt float64, gravity mgl64.Vec3) {
	if !rb.motionEnabled || rb.IsSleeping {
		return
	}

	acceleration := rb.accumulatedForce.Mul(rb.inverseMass)
	if rb.gravityEnabled {
		acceleration = acceleration.Add(gravity)
	}
	rb.Velocity = rb.Velocity.Add(acceleration.Mul(dt))

	angularAcceleration := rb.GetInverseInertiaWorld().Mul3x1(rb.accumulatedTorque)
	rb.AngularVelocity = rb.AngularVelocity.Add(angularAcceleration.Mul(dt))

	// Damping, Pade approximation of exp(-k*dt)
	rb.Velocity = rb.Velocity.Mul(1.0 / (1.0 + dt*rb.linearDamping))
	rb.AngularVelocity = rb.AngularVelocity.Mul(1.0 / (1.0 + dt*rb.angularDamping))
}

// IntegratePositions advances the transform by dt using the solved
// velocities: p += v*dt, q = normalize(q + 0.5*ω*q*dt).
func (rb *RigidBody) IntegratePositions(dt float64) {
	if !rb.motionEnabled || rb.IsSleeping {
		return
	}

	rb.Transform.Position = rb.Transform.Position.Add(rb.Velocity.Mul(dt))

	omegaQuat := mgl64.Quat{W: 0, V: rb.AngularVelocity}
	qDot := omegaQuat.Mul(rb.Transform.Rotation).Scale(0.5)
	rotation := rb.Transform.Rotation.Add(qDot.Scale(dt)).Normalize()
	rb.Transform.Rotation = rotation
	rb.Transform.InverseRotation = rotation.Inverse()

	rb.hasMoved = true
}

// GetAABB returns the body's world-space bounding box
func (rb *RigidBody) GetAABB() AABB {
	return rb.aabb
}

// UpdateAABB refreshes the world AABB from the shape's local extents
// and the current transform, and clears the has-moved bit.
func (rb *RigidBody) UpdateAABB() {
	extents := rb.Shape.LocalExtents(rb.Shape.Margin())
	rotation := rb.Transform.Rotation.Mat4().Mat3()

	// World extent per axis is the rotated extent through the
	// absolute-value rotation matrix
	var worldExtents mgl64.Vec3
	for i := 0; i < 3; i++ {
		worldExtents[i] = math.Abs(rotation.At(i, 0))*extents.X() +
			math.Abs(rotation.At(i, 1))*extents.Y() +
			math.Abs(rotation.At(i, 2))*extents.Z()
	}

	rb.aabb = AABB{
		Min: rb.Transform.Position.Sub(worldExtents),
		Max: rb.Transform.Position.Add(worldExtents),
	}
	rb.hasMoved = false
}

// SupportWorld returns the world-space support point of the body's
// shape in the given world direction, with the collision margin.
func (rb *RigidBody) SupportWorld(direction mgl64.Vec3) mgl64.Vec3 {
	localDirection := rb.Transform.InverseRotation.Rotate(direction)
	localSupport := rb.Shape.SupportWithMargin(localDirection)
	return rb.Transform.Apply(localSupport)
}

// GetInertiaWorld returns the inertia tensor in world space,
// I_world = R * I_local * R^T
func (rb *RigidBody) GetInertiaWorld() mgl64.Mat3 {
	R := rb.Transform.Rotation.Mat4().Mat3()
	return R.Mul3(rb.InertiaLocal).Mul3(R.Transpose())
}

// GetInverseInertiaWorld returns the inverse inertia tensor in world
// space, zero for bodies that cannot move
func (rb *RigidBody) GetInverseInertiaWorld() mgl64.Mat3 {
	if !rb.motionEnabled {
		return mgl64.Mat3{}
	}

	R := rb.Transform.Rotation.Mat4().Mat3()
	return R.Mul3(rb.InverseInertiaLocal).Mul3(R.Transpose())
}
