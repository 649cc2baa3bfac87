package epa

import (
	"math"

	"github.com/akmonengine/bedrock/actor"
	"github.com/akmonengine/bedrock/constraint"
	"github.com/go-gl/mathgl/mgl64"
)

// GenerateManifold turns a penetration result into contact points using
// Sutherland-Hodgman clipping.
//
// Each shape contributes the feature (point, edge or face) most aligned
// with the contact normal; the feature with fewer vertices (incident) is
// clipped against the side planes of the other (reference). The
// surviving points behind the reference plane become the contact
// points, reduced to four when the clip produces more.
//
// The penetration handed in includes the collision margins, so the
// reported depth is reduced by both margins and floored at zero: a
// contact inside the skin has zero depth but still exists.
func GenerateManifold(bodyA, bodyB *actor.RigidBody, pen Penetration) []constraint.ContactPointInfo {
	normal := pen.Normal
	// Signed surface separation: negative while only the skins touch
	signedDepth := pen.Depth - bodyA.Shape.Margin() - bodyB.Shape.Margin()
	depth := math.Max(0, signedDepth)

	// Contact features in each body's local direction
	localNormalA := bodyA.Transform.InverseRotation.Rotate(normal)
	localNormalB := bodyB.Transform.InverseRotation.Rotate(normal.Mul(-1))

	featureA := transformFeature(bodyA.Shape.GetContactFeature(localNormalA), bodyA.Transform)
	featureB := transformFeature(bodyB.Shape.GetContactFeature(localNormalB), bodyB.Transform)

	// The feature with fewer points is clipped against the other
	incident, reference := featureB, featureA
	if len(featureA) < len(featureB) {
		incident, reference = featureA, featureB
	}

	var worldPoints []mgl64.Vec3
	if len(incident) == 1 {
		worldPoints = incident
	} else {
		clipped := clipIncidentAgainstReference(incident, reference, normal)
		worldPoints = clipAgainstReferencePlane(clipped, reference, normal)
	}

	// Fallback when clipping left nothing: the deepest point of body B
	if len(worldPoints) == 0 {
		worldPoints = []mgl64.Vec3{bodyB.SupportWorld(normal.Mul(-1))}
	}

	if len(worldPoints) > constraint.MaxManifoldPoints {
		worldPoints = reducePoints(worldPoints, normal)
	}

	infos := make([]constraint.ContactPointInfo, 0, len(worldPoints))
	for _, point := range worldPoints {
		// Split the signed depth evenly so the anchors sit on each
		// body's real surface, keeping the skin gap measurable by the
		// solver
		worldA := point.Add(normal.Mul(signedDepth / 2))
		worldB := point.Sub(normal.Mul(signedDepth / 2))

		infos = append(infos, constraint.ContactPointInfo{
			Normal:      normal,
			Penetration: depth,
			LocalA:      bodyA.Transform.ApplyInverse(worldA),
			LocalB:      bodyB.Transform.ApplyInverse(worldB),
		})
	}

	return infos
}

func transformFeature(feature []mgl64.Vec3, transform actor.Transform) []mgl64.Vec3 {
	result := make([]mgl64.Vec3, len(feature))
	for i, point := range feature {
		result[i] = transform.Apply(point)
	}
	return result
}

// clipIncidentAgainstReference clips the incident polygon against the
// side planes of the reference polygon, one Sutherland-Hodgman pass per
// reference edge.
func clipIncidentAgainstReference(incident, reference []mgl64.Vec3, normal mgl64.Vec3) []mgl64.Vec3 {
	// With less than 3 reference points there are no side planes
	if len(reference) < 3 {
		return incident
	}

	center := computeCenter(reference)
	output := incident

	for i := 0; i < len(reference); i++ {
		if len(output) == 0 {
			break
		}

		v1 := reference[i]
		v2 := reference[(i+1)%len(reference)]

		// Clipping plane through the edge, perpendicular to the contact
		// plane, pointing inward
		edge := v2.Sub(v1)
		clipNormal := edge.Cross(normal)
		if clipNormal.LenSqr() < 1e-14 {
			continue
		}
		clipNormal = clipNormal.Normalize()
		if center.Sub(v1).Dot(clipNormal) < 0 {
			clipNormal = clipNormal.Mul(-1)
		}

		output = clipPolygonAgainstPlane(output, v1, clipNormal)
	}

	return output
}

// clipAgainstReferencePlane keeps the clipped points that lie behind
// the reference face plane
func clipAgainstReferencePlane(points, reference []mgl64.Vec3, normal mgl64.Vec3) []mgl64.Vec3 {
	if len(points) == 0 || len(reference) < 3 {
		return points
	}

	edge1 := reference[1].Sub(reference[0])
	edge2 := reference[2].Sub(reference[0])
	refNormal := edge1.Cross(edge2)
	if refNormal.LenSqr() < 1e-14 {
		return points
	}
	refNormal = refNormal.Normalize()
	if refNormal.Dot(normal) < 0 {
		refNormal = refNormal.Mul(-1)
	}

	offset := reference[0].Dot(refNormal)

	const tolerance = 1e-6
	var kept []mgl64.Vec3
	for _, point := range points {
		if point.Dot(refNormal)-offset <= tolerance {
			kept = append(kept, point)
		}
	}
	return kept
}

// clipPolygonAgainstPlane implements Sutherland-Hodgman for one plane
func clipPolygonAgainstPlane(polygon []mgl64.Vec3, planePoint, planeNormal mgl64.Vec3) []mgl64.Vec3 {
	if len(polygon) == 0 {
		return polygon
	}

	const tolerance = 1e-6

	var output []mgl64.Vec3
	for i := 0; i < len(polygon); i++ {
		current := polygon[i]
		next := polygon[(i+1)%len(polygon)]

		currentDist := current.Sub(planePoint).Dot(planeNormal)
		nextDist := next.Sub(planePoint).Dot(planeNormal)

		if currentDist >= -tolerance {
			output = append(output, current)
			if nextDist < -tolerance {
				output = append(output, lineIntersectPlane(current, next, planePoint, planeNormal))
			}
		} else if nextDist >= -tolerance {
			output = append(output, lineIntersectPlane(current, next, planePoint, planeNormal))
		}
	}

	return output
}

// lineIntersectPlane calculates the intersection between a segment and a plane
func lineIntersectPlane(p1, p2, planePoint, planeNormal mgl64.Vec3) mgl64.Vec3 {
	dir := p2.Sub(p1)
	dist := p1.Sub(planePoint).Dot(planeNormal)
	denom := dir.Dot(planeNormal)

	if math.Abs(denom) < 1e-10 {
		return p1 // segment parallel to the plane
	}

	t := -dist / denom
	t = math.Max(0, math.Min(1, t))

	return p1.Add(dir.Mul(t))
}

func computeCenter(points []mgl64.Vec3) mgl64.Vec3 {
	sum := mgl64.Vec3{}
	for _, p := range points {
		sum = sum.Add(p)
	}
	return sum.Mul(1.0 / float64(len(points)))
}

// reducePoints keeps the four extreme points of the contact area in
// the plane orthogonal to the normal
func reducePoints(points []mgl64.Vec3, normal mgl64.Vec3) []mgl64.Vec3 {
	tangent1, tangent2 := constraint.TangentBasis(normal)

	minX, maxX, minY, maxY := 0, 0, 0, 0
	minXval, maxXval := math.Inf(1), math.Inf(-1)
	minYval, maxYval := math.Inf(1), math.Inf(-1)

	for i, p := range points {
		x := p.Dot(tangent1)
		y := p.Dot(tangent2)

		if x < minXval {
			minXval, minX = x, i
		}
		if x > maxXval {
			maxXval, maxX = x, i
		}
		if y < minYval {
			minYval, minY = y, i
		}
		if y > maxYval {
			maxYval, maxY = y, i
		}
	}

	indices := map[int]bool{minX: true, maxX: true, minY: true, maxY: true}

	result := make([]mgl64.Vec3, 0, constraint.MaxManifoldPoints)
	for idx := range indices {
		result = append(result, points[idx])
	}

	return result
}
