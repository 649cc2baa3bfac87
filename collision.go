package bedrock

import (
	"fmt"

	"github.com/akmonengine/bedrock/actor"
	"github.com/akmonengine/bedrock/constraint"
	"github.com/akmonengine/bedrock/epa"
	"github.com/akmonengine/bedrock/gjk"
	"github.com/go-gl/mathgl/mgl64"
)

// testCollision runs the narrow phase on one candidate pair and
// returns the contact points, or an empty slice when the shapes do not
// touch. The narrow phase is stateless: persistence across steps is
// the manifold store's job.
//
// Sphere pairs are solved analytically, everything else goes through
// GJK and, on overlap, EPA plus feature clipping.
func testCollision(bodyA, bodyB *actor.RigidBody) ([]constraint.ContactPointInfo, error) {
	typeA := bodyA.Shape.Type()
	typeB := bodyB.Shape.Type()

	if typeA > actor.ShapeTypeCylinder || typeB > actor.ShapeTypeCylinder {
		return nil, fmt.Errorf("%w: no narrow-phase algorithm for shape types %d/%d",
			ErrInvalidArgument, typeA, typeB)
	}

	if typeA == actor.ShapeTypeSphere && typeB == actor.ShapeTypeSphere {
		return sphereVsSphere(bodyA, bodyB), nil
	}

	return convexVsConvex(bodyA, bodyB)
}

// sphereVsSphere is the analytic special case: two spheres touch when
// their center distance is below the sum of the radii.
func sphereVsSphere(bodyA, bodyB *actor.RigidBody) []constraint.ContactPointInfo {
	sphereA := bodyA.Shape.(*actor.Sphere)
	sphereB := bodyB.Shape.(*actor.Sphere)

	between := bodyB.Transform.Position.Sub(bodyA.Transform.Position)
	sumRadius := sphereA.Radius + sphereB.Radius
	if between.LenSqr() > sumRadius*sumRadius {
		return nil
	}

	distance := between.Len()
	normal := mgl64.Vec3{0, 1, 0}
	if distance > 1e-12 {
		normal = between.Mul(1 / distance)
	}

	// Anchors on each surface along the center line
	localA := bodyA.Transform.InverseRotation.Rotate(normal).Mul(sphereA.Radius)
	localB := bodyB.Transform.InverseRotation.Rotate(normal.Mul(-1)).Mul(sphereB.Radius)

	return []constraint.ContactPointInfo{{
		Normal:      normal,
		Penetration: sumRadius - distance,
		LocalA:      localA,
		LocalB:      localB,
	}}
}

// convexVsConvex runs GJK on the margin-enlarged shapes, then EPA and
// manifold clipping when they overlap
func convexVsConvex(bodyA, bodyB *actor.RigidBody) ([]constraint.ContactPointInfo, error) {
	simplex := gjk.SimplexPool.Get().(*gjk.Simplex)
	defer gjk.SimplexPool.Put(simplex)
	simplex.Reset()

	if !gjk.GJK(bodyA, bodyB, simplex) {
		return nil, nil
	}

	penetration, err := epa.EPA(bodyA, bodyB, simplex)
	if err != nil {
		// EPA failing to converge means a grazing contact with no
		// usable depth; report no contact rather than poisoning the step
		return nil, nil
	}

	return epa.GenerateManifold(bodyA, bodyB, penetration), nil
}
