package actor

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func TestTransformApplyRoundTrip(t *testing.T) {
	transform := NewTransformAt(mgl64.Vec3{1, 2, 3}, mgl64.QuatRotate(math.Pi/3, mgl64.Vec3{0, 1, 0}))
	point := mgl64.Vec3{4, -5, 6}

	roundTrip := transform.ApplyInverse(transform.Apply(point))
	if !vecNear(roundTrip, point, 1e-9) {
		t.Errorf("ApplyInverse(Apply(p)) = %v, want %v", roundTrip, point)
	}
}

func TestTransformInverse(t *testing.T) {
	transform := NewTransformAt(mgl64.Vec3{1, 2, 3}, mgl64.QuatRotate(0.7, mgl64.Vec3{1, 0, 0}))
	inverse := transform.Inverse()

	point := mgl64.Vec3{-2, 4, 1}
	got := inverse.Apply(transform.Apply(point))
	if !vecNear(got, point, 1e-9) {
		t.Errorf("inverse(transform(p)) = %v, want %v", got, point)
	}
}

func TestInterpolateTransforms(t *testing.T) {
	from := NewTransformAt(mgl64.Vec3{0, 0, 0}, mgl64.QuatIdent())
	to := NewTransformAt(mgl64.Vec3{4, 0, 0}, mgl64.QuatRotate(math.Pi/2, mgl64.Vec3{0, 1, 0}))

	half := InterpolateTransforms(from, to, 0.5)
	if !vecNear(half.Position, mgl64.Vec3{2, 0, 0}, 1e-9) {
		t.Errorf("interpolated position = %v, want (2, 0, 0)", half.Position)
	}
	if math.Abs(half.Rotation.Len()-1) > 1e-9 {
		t.Errorf("interpolated quaternion norm = %v, want 1", half.Rotation.Len())
	}

	// Clamped outside [0, 1]
	before := InterpolateTransforms(from, to, -1)
	if !vecNear(before.Position, from.Position, 1e-9) {
		t.Errorf("percent below 0 should return the first transform")
	}
	after := InterpolateTransforms(from, to, 2)
	if !vecNear(after.Position, to.Position, 1e-9) {
		t.Errorf("percent above 1 should return the second transform")
	}
}

func TestAABBOverlaps(t *testing.T) {
	a := AABB{Min: mgl64.Vec3{0, 0, 0}, Max: mgl64.Vec3{2, 2, 2}}

	tests := []struct {
		name  string
		other AABB
		want  bool
	}{
		{"overlapping", AABB{Min: mgl64.Vec3{1, 1, 1}, Max: mgl64.Vec3{3, 3, 3}}, true},
		{"touching", AABB{Min: mgl64.Vec3{2, 0, 0}, Max: mgl64.Vec3{4, 2, 2}}, true},
		{"separated on x", AABB{Min: mgl64.Vec3{3, 0, 0}, Max: mgl64.Vec3{4, 2, 2}}, false},
		{"overlap on two axes only", AABB{Min: mgl64.Vec3{1, 1, 5}, Max: mgl64.Vec3{3, 3, 6}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := a.Overlaps(tt.other); got != tt.want {
				t.Errorf("Overlaps = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAABBUnion(t *testing.T) {
	a := AABB{Min: mgl64.Vec3{0, 0, 0}, Max: mgl64.Vec3{1, 1, 1}}
	b := AABB{Min: mgl64.Vec3{-1, 0.5, 0}, Max: mgl64.Vec3{0.5, 3, 1}}

	union := a.Union(b)
	if !vecNear(union.Min, mgl64.Vec3{-1, 0, 0}, 1e-12) {
		t.Errorf("union min = %v, want (-1, 0, 0)", union.Min)
	}
	if !vecNear(union.Max, mgl64.Vec3{1, 3, 1}, 1e-12) {
		t.Errorf("union max = %v, want (1, 3, 1)", union.Max)
	}
}

func TestMaterialCombine(t *testing.T) {
	matA := Material{Restitution: 0.2, Friction: 0.4}
	matB := Material{Restitution: 0.8, Friction: 0.9}

	if got := CombineRestitution(matA, matB); got != 0.8 {
		t.Errorf("CombineRestitution = %v, want 0.8", got)
	}
	want := math.Sqrt(0.4 * 0.9)
	if got := CombineFriction(matA, matB); math.Abs(got-want) > 1e-12 {
		t.Errorf("CombineFriction = %v, want %v", got, want)
	}
}
