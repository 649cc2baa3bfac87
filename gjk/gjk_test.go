package gjk

import (
	"testing"

	"github.com/akmonengine/bedrock/actor"
	"github.com/go-gl/mathgl/mgl64"
)

func createBox(t *testing.T, position mgl64.Vec3, halfExtents mgl64.Vec3) *actor.RigidBody {
	t.Helper()
	shape := &actor.Box{HalfExtents: halfExtents}
	body, err := actor.NewRigidBody(0, actor.NewTransformAt(position, mgl64.QuatIdent()), 1.0, shape.ComputeInertia(1.0), shape)
	if err != nil {
		t.Fatalf("createBox failed: %v", err)
	}
	return body
}

func createSphere(t *testing.T, position mgl64.Vec3, radius float64) *actor.RigidBody {
	t.Helper()
	shape := &actor.Sphere{Radius: radius}
	body, err := actor.NewRigidBody(0, actor.NewTransformAt(position, mgl64.QuatIdent()), 1.0, shape.ComputeInertia(1.0), shape)
	if err != nil {
		t.Fatalf("createSphere failed: %v", err)
	}
	return body
}

func runGJK(a, b *actor.RigidBody) bool {
	simplex := &Simplex{}
	return GJK(a, b, simplex)
}

func TestGJKOverlappingBoxes(t *testing.T) {
	a := createBox(t, mgl64.Vec3{0, 0, 0}, mgl64.Vec3{1, 1, 1})
	b := createBox(t, mgl64.Vec3{1.5, 0, 0}, mgl64.Vec3{1, 1, 1})

	if !runGJK(a, b) {
		t.Error("boxes overlapping by 0.5 should collide")
	}
}

func TestGJKSeparatedBoxes(t *testing.T) {
	a := createBox(t, mgl64.Vec3{0, 0, 0}, mgl64.Vec3{1, 1, 1})
	b := createBox(t, mgl64.Vec3{5, 0, 0}, mgl64.Vec3{1, 1, 1})

	if runGJK(a, b) {
		t.Error("boxes 3 apart should not collide")
	}
}

func TestGJKSeparatedOnDiagonal(t *testing.T) {
	a := createBox(t, mgl64.Vec3{0, 0, 0}, mgl64.Vec3{1, 1, 1})
	b := createBox(t, mgl64.Vec3{3, 3, 3}, mgl64.Vec3{1, 1, 1})

	if runGJK(a, b) {
		t.Error("diagonally separated boxes should not collide")
	}
}

func TestGJKOverlappingSpheres(t *testing.T) {
	a := createSphere(t, mgl64.Vec3{0, 0, 0}, 1)
	b := createSphere(t, mgl64.Vec3{1.5, 0, 0}, 1)

	if !runGJK(a, b) {
		t.Error("spheres overlapping by 0.5 should collide")
	}
}

func TestGJKSeparatedSpheres(t *testing.T) {
	a := createSphere(t, mgl64.Vec3{0, 0, 0}, 1)
	b := createSphere(t, mgl64.Vec3{4, 0, 0}, 1)

	if runGJK(a, b) {
		t.Error("spheres 2 apart should not collide")
	}
}

func TestGJKMarginContact(t *testing.T) {
	// Geometric gap smaller than the two margins: the skins touch
	a := createBox(t, mgl64.Vec3{0, 0, 0}, mgl64.Vec3{1, 1, 1})
	b := createBox(t, mgl64.Vec3{2 + actor.ObjectMargin, 0, 0}, mgl64.Vec3{1, 1, 1})

	if !runGJK(a, b) {
		t.Error("boxes within the margin skin should collide")
	}
}

func TestGJKRotatedBox(t *testing.T) {
	a := createBox(t, mgl64.Vec3{0, 0, 0}, mgl64.Vec3{1, 1, 1})

	// A box rotated 45° around Z has a corner reaching sqrt(2) along x
	shape := &actor.Box{HalfExtents: mgl64.Vec3{1, 1, 1}}
	rotation := mgl64.QuatRotate(0.785398, mgl64.Vec3{0, 0, 1})
	b, err := actor.NewRigidBody(1, actor.NewTransformAt(mgl64.Vec3{2.2, 0, 0}, rotation), 1.0, shape.ComputeInertia(1.0), shape)
	if err != nil {
		t.Fatal(err)
	}

	if !runGJK(a, b) {
		t.Error("rotated box corner should reach into the other box")
	}
}

func TestGJKBoxSphere(t *testing.T) {
	box := createBox(t, mgl64.Vec3{0, 0, 0}, mgl64.Vec3{1, 1, 1})

	touching := createSphere(t, mgl64.Vec3{1.5, 0, 0}, 1)
	if !runGJK(box, touching) {
		t.Error("sphere overlapping the box face should collide")
	}

	separated := createSphere(t, mgl64.Vec3{3, 0, 0}, 1)
	if runGJK(box, separated) {
		t.Error("sphere 1 away from the box should not collide")
	}
}

func TestGJKIdenticalCenters(t *testing.T) {
	a := createSphere(t, mgl64.Vec3{0, 0, 0}, 1)
	b := createSphere(t, mgl64.Vec3{0, 0, 0}, 0.5)

	if !runGJK(a, b) {
		t.Error("fully contained shapes should collide")
	}
}

func TestGJKCollisionFillsSimplex(t *testing.T) {
	a := createBox(t, mgl64.Vec3{0, 0, 0}, mgl64.Vec3{1, 1, 1})
	b := createBox(t, mgl64.Vec3{0.5, 0.5, 0}, mgl64.Vec3{1, 1, 1})

	simplex := &Simplex{}
	if !GJK(a, b, simplex) {
		t.Fatal("expected a collision")
	}
	if simplex.Count < 1 || simplex.Count > 4 {
		t.Errorf("simplex count = %d, want between 1 and 4", simplex.Count)
	}
}

func TestMinkowskiSupport(t *testing.T) {
	a := createBox(t, mgl64.Vec3{0, 0, 0}, mgl64.Vec3{1, 1, 1})
	b := createBox(t, mgl64.Vec3{4, 0, 0}, mgl64.Vec3{1, 1, 1})

	// Along +x: support(A, +x).x = 1 + margin, support(B, -x).x = 3 - margin
	support := MinkowskiSupport(a, b, mgl64.Vec3{1, 0, 0})
	want := (1.0 + actor.ObjectMargin) - (3.0 - actor.ObjectMargin)
	if diff := support.X() - want; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("MinkowskiSupport.X = %v, want %v", support.X(), want)
	}
}

func TestSimplexPoolReset(t *testing.T) {
	simplex := SimplexPool.Get().(*Simplex)
	simplex.Count = 3
	simplex.Reset()
	if simplex.Count != 0 {
		t.Errorf("Reset should zero the count, got %d", simplex.Count)
	}
	SimplexPool.Put(simplex)
}
