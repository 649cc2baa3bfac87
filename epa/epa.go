// Package epa implements the Expanding Polytope Algorithm for
// computing penetration depth.
//
// EPA runs after GJK has detected an overlap. Starting from GJK's
// final tetrahedron it expands a polytope inside the Minkowski
// difference until it finds the face closest to the origin, whose
// normal and distance are the minimum translation vector separating
// the shapes.
//
// References:
//   - Van den Bergen: "Proximity Queries and Penetration Depth
//     Computation on 3D Game Objects" (2001)
package epa

import (
	"fmt"
	"sync"

	"github.com/akmonengine/bedrock/actor"
	"github.com/akmonengine/bedrock/gjk"
	"github.com/go-gl/mathgl/mgl64"
)

const (
	// MaxIterations limits polytope expansion. Typical convergence is
	// 5-15 iterations for the supported primitives.
	MaxIterations = 32

	// ConvergenceTolerance: when a new support point improves the
	// closest face distance by less than this, EPA has converged.
	ConvergenceTolerance = 0.001

	// MinFaceDistance: faces closer to the origin than this are
	// degenerate and skipped.
	MinFaceDistance = 0.0001

	// DegeneratePenetrationEstimate is the fallback depth when GJK
	// hands over an incomplete simplex.
	DegeneratePenetrationEstimate = 0.01
)

// Penetration is the minimum translation vector separating two
// overlapping bodies: move body B by Normal*Depth and the shapes no
// longer overlap. The normal points from body A toward body B.
type Penetration struct {
	Normal mgl64.Vec3
	Depth  float64
}

type face struct {
	a, b, c  int // polytope vertex indices
	normal   mgl64.Vec3
	distance float64 // distance of the face plane to the origin
}

type polytope struct {
	vertices []mgl64.Vec3
	faces    []face

	// Scratch buffer of horizon edges during expansion
	edges [][2]int
}

var polytopePool = sync.Pool{
	New: func() interface{} {
		return &polytope{
			vertices: make([]mgl64.Vec3, 0, 16),
			faces:    make([]face, 0, 32),
			edges:    make([][2]int, 0, 16),
		}
	},
}

func (p *polytope) reset() {
	p.vertices = p.vertices[:0]
	p.faces = p.faces[:0]
	p.edges = p.edges[:0]
}

// addFace appends the triangle (a, b, c) with its plane oriented away
// from the origin
func (p *polytope) addFace(a, b, c int) {
	va := p.vertices[a]
	normal := p.vertices[b].Sub(va).Cross(p.vertices[c].Sub(va))
	if normal.LenSqr() < 1e-14 {
		return // degenerate sliver, skip
	}
	normal = normal.Normalize()

	distance := normal.Dot(va)
	if distance < 0 {
		// Flip so that the normal points away from the origin
		normal = normal.Mul(-1)
		distance = -distance
		b, c = c, b
	}

	p.faces = append(p.faces, face{a: a, b: b, c: c, normal: normal, distance: distance})
}

// closestFace returns the index of the face closest to the origin
func (p *polytope) closestFace() int {
	closest := 0
	for i := 1; i < len(p.faces); i++ {
		if p.faces[i].distance < p.faces[closest].distance {
			closest = i
		}
	}
	return closest
}

// expand adds a support point to the polytope: every face visible from
// the point is removed and the horizon of the removed region is
// reconnected to the new vertex.
func (p *polytope) expand(support mgl64.Vec3) {
	p.edges = p.edges[:0]

	n := 0
	for _, f := range p.faces {
		if f.normal.Dot(support.Sub(p.vertices[f.a])) > 0 {
			// Face sees the point, record its edges and drop it
			p.recordHorizonEdge(f.a, f.b)
			p.recordHorizonEdge(f.b, f.c)
			p.recordHorizonEdge(f.c, f.a)
			continue
		}
		p.faces[n] = f
		n++
	}
	p.faces = p.faces[:n]

	p.vertices = append(p.vertices, support)
	newVertex := len(p.vertices) - 1
	for _, edge := range p.edges {
		p.addFace(edge[0], edge[1], newVertex)
	}
}

// recordHorizonEdge keeps edges that appear exactly once among the
// removed faces: shared edges cancel out, the remainder is the horizon
func (p *polytope) recordHorizonEdge(a, b int) {
	for i, edge := range p.edges {
		if edge[0] == b && edge[1] == a {
			p.edges[i] = p.edges[len(p.edges)-1]
			p.edges = p.edges[:len(p.edges)-1]
			return
		}
	}
	p.edges = append(p.edges, [2]int{a, b})
}

// EPA computes the penetration normal and depth of two overlapping
// bodies from GJK's final simplex. The supports include the collision
// margins, so the returned depth does as well.
func EPA(a, b *actor.RigidBody, simplex *gjk.Simplex) (Penetration, error) {
	if simplex.Count < 4 {
		return degeneratePenetration(a, b, simplex), nil
	}

	p := polytopePool.Get().(*polytope)
	defer polytopePool.Put(p)
	p.reset()

	p.vertices = append(p.vertices, simplex.Points[0], simplex.Points[1], simplex.Points[2], simplex.Points[3])
	p.addFace(0, 1, 2)
	p.addFace(0, 1, 3)
	p.addFace(0, 2, 3)
	p.addFace(1, 2, 3)

	for i := 0; i < MaxIterations; i++ {
		if len(p.faces) == 0 {
			break
		}

		closestIndex := p.closestFace()
		closest := p.faces[closestIndex]

		if closest.distance < MinFaceDistance {
			// Degenerate face, drop it and try the next one
			p.faces[closestIndex] = p.faces[len(p.faces)-1]
			p.faces = p.faces[:len(p.faces)-1]
			continue
		}

		support := gjk.MinkowskiSupport(a, b, closest.normal)
		distance := support.Dot(closest.normal)

		if distance-closest.distance < ConvergenceTolerance {
			// The closest face of the Minkowski difference is found
			return Penetration{Normal: closest.normal, Depth: closest.distance}, nil
		}

		p.expand(support)
	}

	return Penetration{}, fmt.Errorf("EPA failed to converge after %d iterations", MaxIterations)
}

// degeneratePenetration estimates a contact when GJK could not build a
// full tetrahedron, which happens when the shapes barely touch.
func degeneratePenetration(bodyA, bodyB *actor.RigidBody, simplex *gjk.Simplex) Penetration {
	if simplex.Count >= 2 {
		// Use the simplex point closest to the origin
		closest := simplex.Points[0]
		for i := 1; i < simplex.Count; i++ {
			if simplex.Points[i].LenSqr() < closest.LenSqr() {
				closest = simplex.Points[i]
			}
		}
		if closest.LenSqr() > 1e-16 {
			depth := closest.Len()
			return Penetration{Normal: closest.Mul(1 / depth), Depth: depth}
		}
	}

	// Most degenerate case: estimate the normal from the body centers
	normal := bodyB.Transform.Position.Sub(bodyA.Transform.Position)
	if normal.LenSqr() < 1e-16 {
		normal = mgl64.Vec3{0, 1, 0}
	} else {
		normal = normal.Normalize()
	}

	return Penetration{Normal: normal, Depth: DegeneratePenetrationEstimate}
}
