package actor

import (
	"errors"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func createTestBody(t *testing.T, position mgl64.Vec3) *RigidBody {
	t.Helper()
	shape := &Box{HalfExtents: mgl64.Vec3{0.5, 0.5, 0.5}}
	body, err := NewRigidBody(0, NewTransformAt(position, mgl64.QuatIdent()), 2.0, shape.ComputeInertia(2.0), shape)
	if err != nil {
		t.Fatalf("NewRigidBody failed: %v", err)
	}
	return body
}

func TestNewRigidBodyRejectsNilShape(t *testing.T) {
	_, err := NewRigidBody(0, NewTransform(), 1.0, mgl64.Ident3(), nil)
	if !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("NewRigidBody(nil shape) error = %v, want ErrInvalidArgument", err)
	}

	_, err = NewStaticBody(0, NewTransform(), nil)
	if !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("NewStaticBody(nil shape) error = %v, want ErrInvalidArgument", err)
	}
}

func TestNewRigidBodyMass(t *testing.T) {
	body := createTestBody(t, mgl64.Vec3{})

	if body.Mass() != 2.0 {
		t.Errorf("Mass = %v, want 2.0", body.Mass())
	}
	if body.InverseMass() != 0.5 {
		t.Errorf("InverseMass = %v, want 0.5", body.InverseMass())
	}
}

func TestStaticBodyHasInfiniteEffectiveMass(t *testing.T) {
	shape := &Box{HalfExtents: mgl64.Vec3{1, 1, 1}}
	body, err := NewStaticBody(0, NewTransform(), shape)
	if err != nil {
		t.Fatalf("NewStaticBody failed: %v", err)
	}

	if body.InverseMass() != 0 {
		t.Errorf("static InverseMass = %v, want 0", body.InverseMass())
	}
	inverseInertia := body.GetInverseInertiaWorld()
	if inverseInertia != (mgl64.Mat3{}) {
		t.Errorf("static inverse inertia = %v, want zero matrix", inverseInertia)
	}
}

func TestMotionDisabledZeroesEffectiveMass(t *testing.T) {
	body := createTestBody(t, mgl64.Vec3{})

	body.EnableMotion(false)
	if body.InverseMass() != 0 {
		t.Errorf("InverseMass with motion disabled = %v, want 0", body.InverseMass())
	}

	body.EnableMotion(true)
	if body.InverseMass() != 0.5 {
		t.Errorf("InverseMass with motion re-enabled = %v, want 0.5", body.InverseMass())
	}
}

func TestNegativeDampingRejected(t *testing.T) {
	body := createTestBody(t, mgl64.Vec3{})

	if err := body.SetLinearDamping(-0.1); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("SetLinearDamping(-0.1) error = %v, want ErrInvalidArgument", err)
	}
	if err := body.SetAngularDamping(-1); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("SetAngularDamping(-1) error = %v, want ErrInvalidArgument", err)
	}

	if err := body.SetLinearDamping(0.5); err != nil {
		t.Errorf("SetLinearDamping(0.5) error = %v, want nil", err)
	}
	if body.LinearDamping() != 0.5 {
		t.Errorf("LinearDamping = %v, want 0.5", body.LinearDamping())
	}
}

func TestApplyForceWakesBody(t *testing.T) {
	body := createTestBody(t, mgl64.Vec3{})
	body.Sleep()

	if !body.IsSleeping {
		t.Fatal("body should be sleeping")
	}
	body.ApplyForceToCenter(mgl64.Vec3{0, 50, 0})

	if body.IsSleeping {
		t.Error("applying a force should wake the body")
	}
	if body.AccumulatedForce() != (mgl64.Vec3{0, 50, 0}) {
		t.Errorf("AccumulatedForce = %v, want (0, 50, 0)", body.AccumulatedForce())
	}
}

func TestSleepClearsState(t *testing.T) {
	body := createTestBody(t, mgl64.Vec3{})
	body.Velocity = mgl64.Vec3{1, 2, 3}
	body.AngularVelocity = mgl64.Vec3{0.1, 0.2, 0.3}
	body.ApplyTorque(mgl64.Vec3{1, 0, 0})

	body.Sleep()

	if body.Velocity != (mgl64.Vec3{}) {
		t.Errorf("sleeping body velocity = %v, want zero", body.Velocity)
	}
	if body.AngularVelocity != (mgl64.Vec3{}) {
		t.Errorf("sleeping body angular velocity = %v, want zero", body.AngularVelocity)
	}
	if body.AccumulatedForce() != (mgl64.Vec3{}) || body.AccumulatedTorque() != (mgl64.Vec3{}) {
		t.Error("sleeping body should have no accumulated force or torque")
	}
}

func TestWakeHookFiresOnTransition(t *testing.T) {
	body := createTestBody(t, mgl64.Vec3{})

	calls := 0
	body.WakeHook = func(rb *RigidBody) { calls++ }

	body.Awake() // already awake, no transition
	if calls != 0 {
		t.Errorf("WakeHook calls after redundant Awake = %d, want 0", calls)
	}

	body.Sleep()
	body.Awake()
	if calls != 1 {
		t.Errorf("WakeHook calls after wake = %d, want 1", calls)
	}
}

func TestApplyForceAtPointInducesTorque(t *testing.T) {
	body := createTestBody(t, mgl64.Vec3{})

	body.ApplyForce(mgl64.Vec3{0, 10, 0}, mgl64.Vec3{1, 0, 0})

	wantTorque := mgl64.Vec3{1, 0, 0}.Cross(mgl64.Vec3{0, 10, 0})
	if !vecNear(body.AccumulatedTorque(), wantTorque, epsilon) {
		t.Errorf("AccumulatedTorque = %v, want %v", body.AccumulatedTorque(), wantTorque)
	}
}

func TestIntegrateForcesGravity(t *testing.T) {
	body := createTestBody(t, mgl64.Vec3{})
	dt := 1.0 / 60.0

	body.IntegrateForces(dt, mgl64.Vec3{0, -9.81, 0})

	want := -9.81 * dt
	if math.Abs(body.Velocity.Y()-want) > epsilon {
		t.Errorf("velocity.Y after gravity = %v, want %v", body.Velocity.Y(), want)
	}

	// Gravity disabled: velocity unchanged
	body.Velocity = mgl64.Vec3{}
	body.EnableGravity(false)
	body.IntegrateForces(dt, mgl64.Vec3{0, -9.81, 0})
	if body.Velocity.Y() != 0 {
		t.Errorf("velocity.Y with gravity disabled = %v, want 0", body.Velocity.Y())
	}
}

func TestIntegrateForcesDamping(t *testing.T) {
	body := createTestBody(t, mgl64.Vec3{})
	body.Velocity = mgl64.Vec3{1, 0, 0}
	if err := body.SetLinearDamping(2.0); err != nil {
		t.Fatal(err)
	}
	dt := 0.5

	body.IntegrateForces(dt, mgl64.Vec3{})

	// v ← v / (1 + dt·k)
	want := 1.0 / (1.0 + 0.5*2.0)
	if math.Abs(body.Velocity.X()-want) > epsilon {
		t.Errorf("damped velocity = %v, want %v", body.Velocity.X(), want)
	}
}

func TestIntegratePositions(t *testing.T) {
	body := createTestBody(t, mgl64.Vec3{})
	body.Velocity = mgl64.Vec3{1, 0, 0}
	body.AngularVelocity = mgl64.Vec3{0, 1, 0}
	dt := 0.1

	body.IntegratePositions(dt)

	if math.Abs(body.Transform.Position.X()-0.1) > epsilon {
		t.Errorf("position.X = %v, want 0.1", body.Transform.Position.X())
	}
	if math.Abs(body.Transform.Rotation.Len()-1) > 1e-5 {
		t.Errorf("quaternion norm = %v, want 1", body.Transform.Rotation.Len())
	}
	if !body.HasMoved() {
		t.Error("integrating positions should set the has-moved bit")
	}
}

func TestStaticBodyDoesNotIntegrate(t *testing.T) {
	shape := &Box{HalfExtents: mgl64.Vec3{1, 1, 1}}
	body, err := NewStaticBody(0, NewTransform(), shape)
	if err != nil {
		t.Fatal(err)
	}

	body.IntegrateForces(1.0, mgl64.Vec3{0, -9.81, 0})
	body.IntegratePositions(1.0)

	if body.Velocity != (mgl64.Vec3{}) || body.Transform.Position != (mgl64.Vec3{}) {
		t.Error("static body should never move")
	}
}

func TestUpdateAABB(t *testing.T) {
	body := createTestBody(t, mgl64.Vec3{10, 0, 0})
	body.UpdateAABB()

	aabb := body.GetAABB()
	wantMin := 10 - 0.5 - ObjectMargin
	wantMax := 10 + 0.5 + ObjectMargin
	if math.Abs(aabb.Min.X()-wantMin) > epsilon || math.Abs(aabb.Max.X()-wantMax) > epsilon {
		t.Errorf("AABB x = [%v, %v], want [%v, %v]", aabb.Min.X(), aabb.Max.X(), wantMin, wantMax)
	}
}

func TestUpdateAABBRotated(t *testing.T) {
	body := createTestBody(t, mgl64.Vec3{})

	// 45° around Z widens the x extent to sqrt(2)/2 + margin slack
	rotation := mgl64.QuatRotate(math.Pi/4, mgl64.Vec3{0, 0, 1})
	body.SetTransform(NewTransformAt(mgl64.Vec3{}, rotation))
	body.UpdateAABB()

	aabb := body.GetAABB()
	want := math.Sqrt2 * (0.5 + ObjectMargin)
	if math.Abs(aabb.Max.X()-want) > 1e-6 {
		t.Errorf("rotated AABB max x = %v, want %v", aabb.Max.X(), want)
	}
}

func TestSetTransformMarksMoved(t *testing.T) {
	body := createTestBody(t, mgl64.Vec3{})
	if body.HasMoved() {
		t.Fatal("fresh body should not be marked as moved")
	}

	body.SetTransform(NewTransformAt(mgl64.Vec3{1, 0, 0}, mgl64.QuatIdent()))
	if !body.HasMoved() {
		t.Error("SetTransform should mark the body as moved")
	}

	body.UpdateAABB()
	if body.HasMoved() {
		t.Error("UpdateAABB should clear the has-moved bit")
	}
}

func TestGetInterpolatedTransform(t *testing.T) {
	body := createTestBody(t, mgl64.Vec3{})
	body.PreviousTransform = NewTransformAt(mgl64.Vec3{0, 0, 0}, mgl64.QuatIdent())
	body.Transform = NewTransformAt(mgl64.Vec3{2, 0, 0}, mgl64.QuatIdent())

	interpolated := body.GetInterpolatedTransform(0.25)
	if !vecNear(interpolated.Position, mgl64.Vec3{0.5, 0, 0}, epsilon) {
		t.Errorf("interpolated position = %v, want (0.5, 0, 0)", interpolated.Position)
	}
}

func TestSupportWorld(t *testing.T) {
	body := createTestBody(t, mgl64.Vec3{10, 0, 0})

	support := body.SupportWorld(mgl64.Vec3{1, 0, 0})
	want := 10 + 0.5 + ObjectMargin
	if math.Abs(support.X()-want) > epsilon {
		t.Errorf("SupportWorld.X = %v, want %v", support.X(), want)
	}
}
