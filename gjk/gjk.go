// Package gjk implements the Gilbert-Johnson-Keerthi algorithm for
// collision detection between convex shapes.
//
// GJK decides whether two convex shapes overlap by testing if their
// Minkowski difference contains the origin. The simplex is refined
// incrementally toward the origin, converging in a handful of
// iterations for well-behaved shapes.
//
// Shapes only need a support mapping: the furthest point in a given
// direction. Collision margins are included in the support queries, so
// overlap is reported slightly before the exact surfaces touch.
//
// References:
//   - Gilbert, Johnson, Keerthi: "A Fast Procedure for Computing the
//     Distance Between Complex Objects in Three-Dimensional Space" (1988)
//   - Van den Bergen: "Collision Detection in Interactive 3D
//     Environments" (2003)
package gjk

import (
	"sync"

	"github.com/akmonengine/bedrock/actor"
	"github.com/go-gl/mathgl/mgl64"
)

// Simplex represents a set of 1-4 points in the Minkowski difference
// space. Size progression: point, line, triangle, tetrahedron.
type Simplex struct {
	Points [4]mgl64.Vec3
	Count  int
}

func (s *Simplex) Reset() {
	s.Count = 0
}

var SimplexPool = sync.Pool{
	New: func() interface{} {
		return &Simplex{}
	},
}

// MinkowskiSupport computes a support point of the Minkowski difference
// (A - B) in the given world direction, margins included.
func MinkowskiSupport(a, b *actor.RigidBody, direction mgl64.Vec3) mgl64.Vec3 {
	supportA := a.SupportWorld(direction)
	supportB := b.SupportWorld(direction.Mul(-1))
	return supportA.Sub(supportB)
}

// GJK performs collision detection between two convex rigid bodies.
// It returns true when the margin-enlarged shapes overlap. On a
// collision the simplex usually holds the tetrahedron containing the
// origin, which EPA uses as its initial polytope; for shapes that only
// touch it can hold fewer points.
func GJK(a, b *actor.RigidBody, simplex *Simplex) bool {
	// Start toward the other shape, which typically reduces iterations
	direction := b.Transform.Position.Sub(a.Transform.Position)
	if direction.LenSqr() < 1e-8 {
		direction = mgl64.Vec3{1, 0, 0}
	}

	simplex.Points[0] = MinkowskiSupport(a, b, direction)
	simplex.Count = 1

	direction = simplex.Points[0].Mul(-1)

	// First support point at the origin: shapes exactly touching
	if direction.LenSqr() < 1e-16 {
		return true
	}

	maxIterations := 32
	for i := 0; i < maxIterations; i++ {
		newPoint := MinkowskiSupport(a, b, direction)

		// The new point does not pass the origin in the search
		// direction: separation is proven
		if newPoint.Dot(direction) <= 0 {
			return false
		}

		simplex.Points[simplex.Count] = newPoint
		simplex.Count++

		// Reduce the simplex to the feature closest to the origin and
		// pick the next search direction
		if containsOrigin(simplex, &direction) {
			return true
		}
	}

	// Failed to converge, almost never happens for valid convex shapes
	return false
}

func containsOrigin(simplex *Simplex, direction *mgl64.Vec3) bool {
	switch simplex.Count {
	case 2:
		return line(simplex, direction)
	case 3:
		return triangle(simplex, direction)
	case 4:
		return tetrahedron(simplex, direction)
	}
	return false
}

// line handles the 2-point simplex. A line cannot contain the origin
// in 3D; the simplex is reduced to the closest feature and the
// direction is updated.
func line(simplex *Simplex, direction *mgl64.Vec3) bool {
	a := simplex.Points[1]
	b := simplex.Points[0]
	ab := b.Sub(a)
	ao := a.Mul(-1)

	// Degenerate case: identical points
	if ab.LenSqr() < 1e-8 {
		if ao.LenSqr() < 1e-8 {
			return true
		}
		simplex.Points[0] = a
		simplex.Count = 1
		*direction = ao
		return false
	}

	// Voronoi region of A alone
	if ab.Dot(ao) <= 0 {
		simplex.Points[0] = a
		simplex.Count = 1
		*direction = ao
		return false
	}

	abPerp := ab.Cross(ao).Cross(ab)
	if abPerp.LenSqr() < 1e-8 {
		// Origin on the segment, touching
		return true
	}

	*direction = abPerp
	return false
}

// triangle handles the 3-point simplex, testing the Voronoi regions of
// the most recent vertex, the two incident edges, and the two sides of
// the face plane.
func triangle(simplex *Simplex, direction *mgl64.Vec3) bool {
	a := simplex.Points[2] // Most recent point
	b := simplex.Points[1]
	c := simplex.Points[0]

	ab := b.Sub(a)
	ac := c.Sub(a)
	ao := a.Mul(-1)

	abc := ab.Cross(ac)

	// Flat triangle, treat as a line
	if abc.LenSqr() < 1e-10 {
		simplex.Points[0] = b
		simplex.Points[1] = a
		simplex.Count = 2
		return line(simplex, direction)
	}

	// Edge AB region
	abPerp := ab.Cross(abc)
	if abPerp.Dot(ao) > 0 {
		simplex.Points[0] = b
		simplex.Points[1] = a
		simplex.Count = 2
		*direction = ab.Cross(ao).Cross(ab)
		return false
	}

	// Edge AC region
	acPerp := abc.Cross(ac)
	if acPerp.Dot(ao) > 0 {
		simplex.Points[0] = c
		simplex.Points[1] = a
		simplex.Count = 2
		*direction = ac.Cross(ao).Cross(ac)
		return false
	}

	if abc.Dot(ao) > 0 {
		*direction = abc
	} else {
		// Below the face, reverse the winding to keep the orientation
		simplex.Points[0] = a
		simplex.Points[1] = c
		simplex.Points[2] = b
		simplex.Count = 3
		*direction = abc.Mul(-1)
	}

	return false
}

// tetrahedron handles the 4-point simplex, the only case that can
// contain the origin. Face normals point away from the opposite
// vertex; if the origin is outside a face the simplex is reduced to
// that face.
func tetrahedron(simplex *Simplex, direction *mgl64.Vec3) bool {
	a := simplex.Points[3] // Most recent point
	b := simplex.Points[2]
	c := simplex.Points[1]
	d := simplex.Points[0]

	ab := b.Sub(a)
	ac := c.Sub(a)
	ad := d.Sub(a)
	ao := a.Mul(-1)

	abc := ab.Cross(ac)
	if abc.Dot(ad) > 0 {
		abc = abc.Mul(-1)
	}

	acd := ac.Cross(ad)
	if acd.Dot(ab) > 0 {
		acd = acd.Mul(-1)
	}

	adb := ad.Cross(ab)
	if adb.Dot(ac) > 0 {
		adb = adb.Mul(-1)
	}

	// Degenerate tetrahedron
	if abc.LenSqr() < 1e-10 || acd.LenSqr() < 1e-10 || adb.LenSqr() < 1e-10 {
		simplex.Points[0] = c
		simplex.Points[1] = b
		simplex.Points[2] = a
		simplex.Count = 3
		return triangle(simplex, direction)
	}

	if abc.Dot(ao) > 0 {
		simplex.Points[0] = c
		simplex.Points[1] = b
		simplex.Points[2] = a
		simplex.Count = 3
		return triangle(simplex, direction)
	}

	if acd.Dot(ao) > 0 {
		simplex.Points[0] = d
		simplex.Points[1] = c
		simplex.Points[2] = a
		simplex.Count = 3
		return triangle(simplex, direction)
	}

	if adb.Dot(ao) > 0 {
		simplex.Points[0] = b
		simplex.Points[1] = d
		simplex.Points[2] = a
		simplex.Count = 3
		return triangle(simplex, direction)
	}

	// The origin is inside the tetrahedron
	return true
}
