package bedrock

import (
	"math"

	"github.com/akmonengine/bedrock/actor"
	"github.com/go-gl/mathgl/mgl64"
)

// IntersectedBody is a body hit by a ray, together with the
// world-space intersection point
type IntersectedBody struct {
	Body  *actor.RigidBody
	Point mgl64.Vec3
}

// FindClosestIntersectingBody returns the intersecting body whose hit
// point is nearest to the ray start, or nil when the ray hits nothing.
// The query is read-only.
func (w *World) FindClosestIntersectingBody(rayStart, rayDir mgl64.Vec3) *IntersectedBody {
	var closest *IntersectedBody
	closestDistance := math.Inf(1)

	for body, point := range w.FindIntersectingBodies(rayStart, rayDir) {
		distance := point.Sub(rayStart).LenSqr()
		if distance < closestDistance {
			closestDistance = distance
			closest = &IntersectedBody{Body: body, Point: point}
		}
	}

	return closest
}

// FindFurthestIntersectingBody returns the intersecting body whose hit
// point is furthest from the ray start, or nil when the ray hits
// nothing
func (w *World) FindFurthestIntersectingBody(rayStart, rayDir mgl64.Vec3) *IntersectedBody {
	var furthest *IntersectedBody
	furthestDistance := math.Inf(-1)

	for body, point := range w.FindIntersectingBodies(rayStart, rayDir) {
		distance := point.Sub(rayStart).LenSqr()
		if distance > furthestDistance {
			furthestDistance = distance
			furthest = &IntersectedBody{Body: body, Point: point}
		}
	}

	return furthest
}

// FindIntersectingBodies returns every body the ray intersects, mapped
// to the world-space intersection point closest to the ray start
func (w *World) FindIntersectingBodies(rayStart, rayDir mgl64.Vec3) map[*actor.RigidBody]mgl64.Vec3 {
	intersecting := make(map[*actor.RigidBody]mgl64.Vec3)
	for _, body := range w.orderedBodies {
		if point, ok := intersectsBody(rayStart, rayDir, body); ok {
			intersecting[body] = point
		}
	}
	return intersecting
}

// intersectsBody tests the ray against one body in the body's local
// space and maps the hit point back to world space
func intersectsBody(rayStart, rayDir mgl64.Vec3, body *actor.RigidBody) (mgl64.Vec3, bool) {
	localStart := body.Transform.ApplyInverse(rayStart)
	localDir := body.Transform.InverseRotation.Rotate(rayDir)

	var t float64
	var ok bool
	switch shape := body.Shape.(type) {
	case *actor.Box:
		t, ok = intersectsBox(localStart, localDir, shape)
	case *actor.Sphere:
		t, ok = intersectsSphere(localStart, localDir, shape)
	case *actor.Cone:
		t, ok = intersectsCone(localStart, localDir, shape)
	case *actor.Cylinder:
		t, ok = intersectsCylinder(localStart, localDir, shape)
	}

	if !ok {
		return mgl64.Vec3{}, false
	}

	localPoint := localStart.Add(localDir.Mul(t))
	return body.Transform.Apply(localPoint), true
}

// intersectsBox runs the slab test against the box extents
func intersectsBox(rayStart, rayDir mgl64.Vec3, box *actor.Box) (float64, bool) {
	t0 := math.Inf(-1)
	t1 := math.Inf(1)

	for axis := 0; axis < 3; axis++ {
		extent := box.HalfExtents[axis]
		if math.Abs(rayDir[axis]) < 1e-12 {
			// Parallel to the slab: either inside it or no hit at all
			if rayStart[axis] < -extent || rayStart[axis] > extent {
				return 0, false
			}
			continue
		}

		tNear := (-extent - rayStart[axis]) / rayDir[axis]
		tFar := (extent - rayStart[axis]) / rayDir[axis]
		if tNear > tFar {
			tNear, tFar = tFar, tNear
		}
		t0 = math.Max(t0, tNear)
		t1 = math.Min(t1, tFar)
		if t0 > t1 {
			return 0, false
		}
	}

	return entryParameter(t0, t1)
}

func intersectsSphere(rayStart, rayDir mgl64.Vec3, sphere *actor.Sphere) (float64, bool) {
	a := rayDir.Dot(rayDir)
	b := 2 * rayDir.Dot(rayStart)
	c := rayStart.Dot(rayStart) - sphere.Radius*sphere.Radius

	discriminant := b*b - 4*a*c
	if discriminant < 0 || a < 1e-12 {
		return 0, false
	}

	root := math.Sqrt(discriminant)
	t0 := (-b - root) / (2 * a)
	t1 := (-b + root) / (2 * a)

	return entryParameter(t0, t1)
}

// intersectsCone tests the lateral surface, radius r at the base
// y = -h/2 shrinking to the apex at y = +h/2, and the base disc
func intersectsCone(rayStart, rayDir mgl64.Vec3, cone *actor.Cone) (float64, bool) {
	hh := cone.Height / 2
	k := cone.Radius / cone.Height // slope of the lateral surface

	vx, vy, vz := rayDir.X(), rayDir.Y(), rayDir.Z()
	px, py, pz := rayStart.X(), rayStart.Y(), rayStart.Z()

	// Lateral surface: x² + z² = k²·(hh - y)²
	c0 := hh - py
	a := vx*vx + vz*vz - k*k*vy*vy
	b := 2*(px*vx+pz*vz) + 2*k*k*c0*vy
	c := px*px + pz*pz - k*k*c0*c0

	best := math.Inf(1)
	if math.Abs(a) > 1e-12 {
		discriminant := b*b - 4*a*c
		if discriminant >= 0 {
			root := math.Sqrt(discriminant)
			for _, t := range []float64{(-b - root) / (2 * a), (-b + root) / (2 * a)} {
				if t < 0 || t >= best {
					continue
				}
				y := py + vy*t
				if y >= -hh && y <= hh {
					best = t
				}
			}
		}
	}

	// Base disc at y = -hh
	if math.Abs(vy) > 1e-12 {
		t := (-hh - py) / vy
		if t >= 0 && t < best {
			x := px + vx*t
			z := pz + vz*t
			if x*x+z*z <= cone.Radius*cone.Radius {
				best = t
			}
		}
	}

	if math.IsInf(best, 1) {
		return 0, false
	}
	return best, true
}

// intersectsCylinder tests the lateral surface and both caps
func intersectsCylinder(rayStart, rayDir mgl64.Vec3, cylinder *actor.Cylinder) (float64, bool) {
	hh := cylinder.Height / 2
	r2 := cylinder.Radius * cylinder.Radius

	vx, vy, vz := rayDir.X(), rayDir.Y(), rayDir.Z()
	px, py, pz := rayStart.X(), rayStart.Y(), rayStart.Z()

	best := math.Inf(1)

	// Lateral surface: x² + z² = r²
	a := vx*vx + vz*vz
	if a > 1e-12 {
		b := 2 * (px*vx + pz*vz)
		c := px*px + pz*pz - r2
		discriminant := b*b - 4*a*c
		if discriminant >= 0 {
			root := math.Sqrt(discriminant)
			for _, t := range []float64{(-b - root) / (2 * a), (-b + root) / (2 * a)} {
				if t < 0 || t >= best {
					continue
				}
				y := py + vy*t
				if y >= -hh && y <= hh {
					best = t
				}
			}
		}
	}

	// Caps at y = ±hh
	if math.Abs(vy) > 1e-12 {
		for _, capY := range []float64{hh, -hh} {
			t := (capY - py) / vy
			if t < 0 || t >= best {
				continue
			}
			x := px + vx*t
			z := pz + vz*t
			if x*x+z*z <= r2 {
				best = t
			}
		}
	}

	if math.IsInf(best, 1) {
		return 0, false
	}
	return best, true
}

// entryParameter picks the ray parameter of the entry point, or the
// exit point when the ray starts inside the shape
func entryParameter(t0, t1 float64) (float64, bool) {
	if t1 < 0 {
		return 0, false
	}
	if t0 >= 0 {
		return t0, true
	}
	return t1, true
}
