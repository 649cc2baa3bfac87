package actor

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// ShapeType represents the type of collision shape
type ShapeType int

const (
	ShapeTypeBox ShapeType = iota
	ShapeTypeSphere
	ShapeTypeCone
	ShapeTypeCylinder
)

// ObjectMargin is the collision skin around every shape. The narrow
// phase reports a contact slightly before the exact surfaces touch,
// which keeps resting contacts alive between steps.
const ObjectMargin = 0.04

// ShapeInterface is the interface that all collision shapes must implement.
// Cone and Cylinder are aligned on the Y axis and centered at the origin,
// like Box and Sphere.
type ShapeInterface interface {
	Type() ShapeType
	// Margin is the collision skin of the shape, >= 0
	Margin() float64
	// Support returns the furthest local point in the given direction,
	// without the margin
	Support(direction mgl64.Vec3) mgl64.Vec3
	// SupportWithMargin is Support pushed out by Margin along the direction
	SupportWithMargin(direction mgl64.Vec3) mgl64.Vec3
	// LocalExtents returns the local half-extents enclosing the shape
	// enlarged by the given margin, used to refresh the world AABB
	LocalExtents(margin float64) mgl64.Vec3
	// ComputeInertia returns the local inertia tensor for the given mass
	ComputeInertia(mass float64) mgl64.Mat3
	// GetContactFeature returns the face, edge or point of the shape most
	// aligned with the given local direction, used for manifold clipping
	GetContactFeature(direction mgl64.Vec3) []mgl64.Vec3
}

// supportWithMargin pushes a support point out by margin along direction.
// Shared by every shape implementation.
func supportWithMargin(support, direction mgl64.Vec3, margin float64) mgl64.Vec3 {
	if direction.LenSqr() < 1e-16 {
		return support.Add(mgl64.Vec3{0, margin, 0})
	}
	return support.Add(direction.Normalize().Mul(margin))
}

// Box represents an oriented box collision shape.
// The box is defined by its half-extents (half-width, half-height, half-depth)
type Box struct {
	HalfExtents mgl64.Vec3
}

func (b *Box) Type() ShapeType { return ShapeTypeBox }

func (b *Box) Margin() float64 { return ObjectMargin }

func (b *Box) Support(direction mgl64.Vec3) mgl64.Vec3 {
	hx, hy, hz := b.HalfExtents.X(), b.HalfExtents.Y(), b.HalfExtents.Z()

	if direction.X() < 0 {
		hx = -hx
	}
	if direction.Y() < 0 {
		hy = -hy
	}
	if direction.Z() < 0 {
		hz = -hz
	}

	return mgl64.Vec3{hx, hy, hz}
}

func (b *Box) SupportWithMargin(direction mgl64.Vec3) mgl64.Vec3 {
	return supportWithMargin(b.Support(direction), direction, b.Margin())
}

func (b *Box) LocalExtents(margin float64) mgl64.Vec3 {
	return b.HalfExtents.Add(mgl64.Vec3{margin, margin, margin})
}

func (b *Box) ComputeInertia(mass float64) mgl64.Mat3 {
	// I = (m/3) * (h1² + h2²) per axis, with h the half-extents
	factor := mass / 3.0
	hx := b.HalfExtents.X()
	hy := b.HalfExtents.Y()
	hz := b.HalfExtents.Z()

	return mgl64.Diag3(mgl64.Vec3{
		factor * (hy*hy + hz*hz),
		factor * (hx*hx + hz*hz),
		factor * (hx*hx + hy*hy),
	})
}

func (b *Box) GetContactFeature(direction mgl64.Vec3) []mgl64.Vec3 {
	hx := b.HalfExtents.X()
	hy := b.HalfExtents.Y()
	hz := b.HalfExtents.Z()

	// The 6 faces with their vertices (CCW seen from outside)
	faces := []struct {
		normal   mgl64.Vec3
		vertices []mgl64.Vec3
	}{
		{
			normal: mgl64.Vec3{1, 0, 0},
			vertices: []mgl64.Vec3{
				{hx, -hy, -hz}, {hx, -hy, hz}, {hx, hy, hz}, {hx, hy, -hz},
			},
		},
		{
			normal: mgl64.Vec3{-1, 0, 0},
			vertices: []mgl64.Vec3{
				{-hx, -hy, hz}, {-hx, -hy, -hz}, {-hx, hy, -hz}, {-hx, hy, hz},
			},
		},
		{
			normal: mgl64.Vec3{0, 1, 0},
			vertices: []mgl64.Vec3{
				{-hx, hy, -hz}, {-hx, hy, hz}, {hx, hy, hz}, {hx, hy, -hz},
			},
		},
		{
			normal: mgl64.Vec3{0, -1, 0},
			vertices: []mgl64.Vec3{
				{-hx, -hy, hz}, {hx, -hy, hz}, {hx, -hy, -hz}, {-hx, -hy, -hz},
			},
		},
		{
			normal: mgl64.Vec3{0, 0, 1},
			vertices: []mgl64.Vec3{
				{-hx, -hy, hz}, {-hx, hy, hz}, {hx, hy, hz}, {hx, -hy, hz},
			},
		},
		{
			normal: mgl64.Vec3{0, 0, -1},
			vertices: []mgl64.Vec3{
				{hx, -hy, -hz}, {hx, hy, -hz}, {-hx, hy, -hz}, {-hx, -hy, -hz},
			},
		},
	}

	// Pick the face whose normal points the most along the direction
	bestDot := math.Inf(-1)
	var bestFace []mgl64.Vec3
	for _, face := range faces {
		dot := direction.Dot(face.normal)
		if dot > bestDot {
			bestDot = dot
			bestFace = face.vertices
		}
	}

	return bestFace
}

// Sphere represents a spherical collision shape
type Sphere struct {
	Radius float64
}

func (s *Sphere) Type() ShapeType { return ShapeTypeSphere }

func (s *Sphere) Margin() float64 { return ObjectMargin }

func (s *Sphere) Support(direction mgl64.Vec3) mgl64.Vec3 {
	if direction.LenSqr() < 1e-16 {
		return mgl64.Vec3{0, s.Radius, 0}
	}
	return direction.Normalize().Mul(s.Radius)
}

func (s *Sphere) SupportWithMargin(direction mgl64.Vec3) mgl64.Vec3 {
	return supportWithMargin(s.Support(direction), direction, s.Margin())
}

func (s *Sphere) LocalExtents(margin float64) mgl64.Vec3 {
	r := s.Radius + margin
	return mgl64.Vec3{r, r, r}
}

func (s *Sphere) ComputeInertia(mass float64) mgl64.Mat3 {
	// I = (2/5) * m * r², identical on every axis
	i := (2.0 / 5.0) * mass * s.Radius * s.Radius

	return mgl64.Diag3(mgl64.Vec3{i, i, i})
}

func (s *Sphere) GetContactFeature(direction mgl64.Vec3) []mgl64.Vec3 {
	return []mgl64.Vec3{s.Support(direction)}
}

// Cone represents a cone collision shape around the Y axis, the apex at
// +halfHeight and the base disc at -halfHeight.
type Cone struct {
	Radius float64
	Height float64
}

func (c *Cone) Type() ShapeType { return ShapeTypeCone }

func (c *Cone) Margin() float64 { return ObjectMargin }

func (c *Cone) halfHeight() float64 { return c.Height / 2 }

// sinTheta is the sine of the cone half angle
func (c *Cone) sinTheta() float64 {
	return c.Radius / math.Sqrt(c.Radius*c.Radius+c.Height*c.Height)
}

func (c *Cone) Support(direction mgl64.Vec3) mgl64.Vec3 {
	hh := c.halfHeight()

	// The apex supports every direction inside the cone half angle
	if direction.Y() > direction.Len()*c.sinTheta() {
		return mgl64.Vec3{0, hh, 0}
	}

	projectedLength := math.Sqrt(direction.X()*direction.X() + direction.Z()*direction.Z())
	if projectedLength > 1e-12 {
		d := c.Radius / projectedLength
		return mgl64.Vec3{direction.X() * d, -hh, direction.Z() * d}
	}

	return mgl64.Vec3{0, -hh, 0}
}

func (c *Cone) SupportWithMargin(direction mgl64.Vec3) mgl64.Vec3 {
	return supportWithMargin(c.Support(direction), direction, c.Margin())
}

func (c *Cone) LocalExtents(margin float64) mgl64.Vec3 {
	return mgl64.Vec3{c.Radius + margin, c.halfHeight() + margin, c.Radius + margin}
}

func (c *Cone) ComputeInertia(mass float64) mgl64.Mat3 {
	rSquare := c.Radius * c.Radius
	hh := c.halfHeight()
	diagXZ := 0.15 * mass * (rSquare + hh*hh)

	return mgl64.Diag3(mgl64.Vec3{diagXZ, 0.3 * mass * rSquare, diagXZ})
}

func (c *Cone) GetContactFeature(direction mgl64.Vec3) []mgl64.Vec3 {
	hh := c.halfHeight()

	// Base disc resting case: approximate the disc by a quad
	if direction.Y() < -0.7*direction.Len() {
		r := c.Radius
		return []mgl64.Vec3{
			{-r, -hh, -r}, {-r, -hh, r}, {r, -hh, r}, {r, -hh, -r},
		}
	}

	// Side or apex: the segment from the apex to the base support point
	support := c.Support(direction)
	if support.Y() > 0 {
		return []mgl64.Vec3{support}
	}
	return []mgl64.Vec3{{0, hh, 0}, support}
}

// Cylinder represents a cylinder collision shape around the Y axis,
// defined by the radius of its base and its height.
type Cylinder struct {
	Radius float64
	Height float64
}

func (c *Cylinder) Type() ShapeType { return ShapeTypeCylinder }

func (c *Cylinder) Margin() float64 { return ObjectMargin }

func (c *Cylinder) halfHeight() float64 { return c.Height / 2 }

func (c *Cylinder) Support(direction mgl64.Vec3) mgl64.Vec3 {
	hh := c.halfHeight()

	yValue := hh
	if direction.Y() < 0 {
		yValue = -hh
	}

	lengthW := math.Sqrt(direction.X()*direction.X() + direction.Z()*direction.Z())
	if lengthW > 1e-12 {
		d := c.Radius / lengthW
		return mgl64.Vec3{direction.X() * d, yValue, direction.Z() * d}
	}

	return mgl64.Vec3{0, yValue, 0}
}

func (c *Cylinder) SupportWithMargin(direction mgl64.Vec3) mgl64.Vec3 {
	return supportWithMargin(c.Support(direction), direction, c.Margin())
}

func (c *Cylinder) LocalExtents(margin float64) mgl64.Vec3 {
	return mgl64.Vec3{c.Radius + margin, c.halfHeight() + margin, c.Radius + margin}
}

func (c *Cylinder) ComputeInertia(mass float64) mgl64.Mat3 {
	// diag = (m/12) * (3r² + h²) off axis, (m/2) * r² around Y
	diag := (1.0 / 12.0) * mass * (3*c.Radius*c.Radius + c.Height*c.Height)

	return mgl64.Diag3(mgl64.Vec3{diag, 0.5 * mass * c.Radius * c.Radius, diag})
}

func (c *Cylinder) GetContactFeature(direction mgl64.Vec3) []mgl64.Vec3 {
	hh := c.halfHeight()

	// Cap resting case: approximate the cap disc by a quad
	if math.Abs(direction.Y()) > 0.7*direction.Len() {
		y := hh
		if direction.Y() < 0 {
			y = -hh
		}
		r := c.Radius
		return []mgl64.Vec3{
			{-r, y, -r}, {-r, y, r}, {r, y, r}, {r, y, -r},
		}
	}

	// Side case: the vertical edge at the radial support
	lengthW := math.Sqrt(direction.X()*direction.X() + direction.Z()*direction.Z())
	if lengthW < 1e-12 {
		return []mgl64.Vec3{c.Support(direction)}
	}
	d := c.Radius / lengthW
	x := direction.X() * d
	z := direction.Z() * d
	return []mgl64.Vec3{{x, -hh, z}, {x, hh, z}}
}
