package actor

import "github.com/go-gl/mathgl/mgl64"

// Transform represents a position and an orientation in 3D space
type Transform struct {
	Position        mgl64.Vec3
	Rotation        mgl64.Quat
	InverseRotation mgl64.Quat
}

// NewTransform creates an identity transform
func NewTransform() Transform {
	return Transform{
		Position:        mgl64.Vec3{0, 0, 0},
		Rotation:        mgl64.QuatIdent(),
		InverseRotation: mgl64.QuatIdent(),
	}
}

// NewTransformAt creates a transform from a position and an orientation
func NewTransformAt(position mgl64.Vec3, rotation mgl64.Quat) Transform {
	rotation = rotation.Normalize()

	return Transform{
		Position:        position,
		Rotation:        rotation,
		InverseRotation: rotation.Inverse(),
	}
}

// Apply transforms a local-space point into world space
func (t Transform) Apply(point mgl64.Vec3) mgl64.Vec3 {
	return t.Position.Add(t.Rotation.Rotate(point))
}

// ApplyInverse transforms a world-space point into local space
func (t Transform) ApplyInverse(point mgl64.Vec3) mgl64.Vec3 {
	return t.InverseRotation.Rotate(point.Sub(t.Position))
}

// Inverse returns the transform mapping world space back to local space
func (t Transform) Inverse() Transform {
	return Transform{
		Position:        t.InverseRotation.Rotate(t.Position.Mul(-1)),
		Rotation:        t.InverseRotation,
		InverseRotation: t.Rotation,
	}
}

// InterpolateTransforms blends two transforms. The position is lerped,
// the orientation is nlerped (shortest arc), percent is clamped to [0, 1].
func InterpolateTransforms(from, to Transform, percent float64) Transform {
	if percent <= 0 {
		return from
	}
	if percent >= 1 {
		return to
	}

	position := from.Position.Mul(1 - percent).Add(to.Position.Mul(percent))

	q1 := from.Rotation
	q2 := to.Rotation
	if q1.Dot(q2) < 0 {
		q2 = q2.Scale(-1)
	}
	rotation := q1.Scale(1 - percent).Add(q2.Scale(percent)).Normalize()

	return NewTransformAt(position, rotation)
}
