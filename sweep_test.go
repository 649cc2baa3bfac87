package bedrock

import (
	"testing"

	"github.com/akmonengine/bedrock/actor"
	"github.com/go-gl/mathgl/mgl64"
)

func newBroadPhase() (*SweepAndPrune, *PairManager) {
	pm := NewPairManager()
	return NewSweepAndPrune(pm), pm
}

func moveBody(sap *SweepAndPrune, body *actor.RigidBody, position mgl64.Vec3) {
	body.SetTransform(actor.NewTransformAt(position, body.Transform.Rotation))
	body.UpdateAABB()
	sap.UpdateBody(body)
}

func TestSweepAddOverlappingBodies(t *testing.T) {
	sap, pm := newBroadPhase()

	bodyA := testBody(t, 0, mgl64.Vec3{0, 0, 0}, mgl64.Vec3{1, 1, 1})
	bodyB := testBody(t, 1, mgl64.Vec3{1.5, 0, 0}, mgl64.Vec3{1, 1, 1})

	sap.AddBody(bodyA)
	sap.AddBody(bodyB)

	if pm.Len() != 1 {
		t.Errorf("pair count = %d, want 1", pm.Len())
	}
	if pm.Lookup(MakePairKey(0, 1)) == nil {
		t.Error("overlapping pair not registered")
	}
}

func TestSweepAddSeparatedBodies(t *testing.T) {
	sap, pm := newBroadPhase()

	sap.AddBody(testBody(t, 0, mgl64.Vec3{0, 0, 0}, mgl64.Vec3{1, 1, 1}))
	sap.AddBody(testBody(t, 1, mgl64.Vec3{10, 0, 0}, mgl64.Vec3{1, 1, 1}))

	if pm.Len() != 0 {
		t.Errorf("pair count = %d, want 0", pm.Len())
	}
}

func TestSweepSingleAxisOverlapIsNotAPair(t *testing.T) {
	sap, pm := newBroadPhase()

	// Overlapping on x and y, separated on z
	sap.AddBody(testBody(t, 0, mgl64.Vec3{0, 0, 0}, mgl64.Vec3{1, 1, 1}))
	sap.AddBody(testBody(t, 1, mgl64.Vec3{0.5, 0.5, 8}, mgl64.Vec3{1, 1, 1}))

	if pm.Len() != 0 {
		t.Errorf("pair count = %d, want 0 (overlap on two axes only)", pm.Len())
	}
}

func TestSweepUpdateCreatesPair(t *testing.T) {
	sap, pm := newBroadPhase()

	bodyA := testBody(t, 0, mgl64.Vec3{0, 0, 0}, mgl64.Vec3{1, 1, 1})
	bodyB := testBody(t, 1, mgl64.Vec3{10, 0, 0}, mgl64.Vec3{1, 1, 1})
	sap.AddBody(bodyA)
	sap.AddBody(bodyB)

	// Slide B toward A until the AABBs overlap
	for x := 9.0; x >= 1.0; x -= 0.5 {
		moveBody(sap, bodyB, mgl64.Vec3{x, 0, 0})
	}

	if pm.Len() != 1 {
		t.Errorf("pair count after approach = %d, want 1", pm.Len())
	}
}

func TestSweepUpdateRemovesPair(t *testing.T) {
	sap, pm := newBroadPhase()

	bodyA := testBody(t, 0, mgl64.Vec3{0, 0, 0}, mgl64.Vec3{1, 1, 1})
	bodyB := testBody(t, 1, mgl64.Vec3{1, 0, 0}, mgl64.Vec3{1, 1, 1})
	sap.AddBody(bodyA)
	sap.AddBody(bodyB)
	if pm.Len() != 1 {
		t.Fatalf("setup pair count = %d, want 1", pm.Len())
	}

	moveBody(sap, bodyB, mgl64.Vec3{10, 0, 0})

	if pm.Len() != 0 {
		t.Errorf("pair count after separation = %d, want 0", pm.Len())
	}
}

func TestSweepUpdateOnOtherAxes(t *testing.T) {
	sap, pm := newBroadPhase()

	bodyA := testBody(t, 0, mgl64.Vec3{0, 0, 0}, mgl64.Vec3{1, 1, 1})
	bodyB := testBody(t, 1, mgl64.Vec3{0, 1, 0}, mgl64.Vec3{1, 1, 1})
	sap.AddBody(bodyA)
	sap.AddBody(bodyB)

	// Separate along y, then along z after coming back
	moveBody(sap, bodyB, mgl64.Vec3{0, 5, 0})
	if pm.Len() != 0 {
		t.Errorf("pair count after y separation = %d, want 0", pm.Len())
	}

	moveBody(sap, bodyB, mgl64.Vec3{0, 1, 0})
	if pm.Len() != 1 {
		t.Errorf("pair count after return = %d, want 1", pm.Len())
	}

	moveBody(sap, bodyB, mgl64.Vec3{0, 1, 7})
	if pm.Len() != 0 {
		t.Errorf("pair count after z separation = %d, want 0", pm.Len())
	}
}

func TestSweepRemoveBodyDropsPairs(t *testing.T) {
	sap, pm := newBroadPhase()

	bodyA := testBody(t, 0, mgl64.Vec3{0, 0, 0}, mgl64.Vec3{1, 1, 1})
	bodyB := testBody(t, 1, mgl64.Vec3{1, 0, 0}, mgl64.Vec3{1, 1, 1})
	bodyC := testBody(t, 2, mgl64.Vec3{0, 1, 0}, mgl64.Vec3{1, 1, 1})
	sap.AddBody(bodyA)
	sap.AddBody(bodyB)
	sap.AddBody(bodyC)

	if pm.Len() != 3 {
		t.Fatalf("setup pair count = %d, want 3", pm.Len())
	}

	sap.RemoveBody(bodyA)

	if pm.Len() != 1 {
		t.Errorf("pair count after removal = %d, want 1", pm.Len())
	}
	if pm.Lookup(MakePairKey(1, 2)) == nil {
		t.Error("the pair not involving the removed body must survive")
	}
}

func TestSweepStaticStaticFiltered(t *testing.T) {
	sap, pm := newBroadPhase()

	sap.AddBody(testStaticBody(t, 0, mgl64.Vec3{0, 0, 0}, mgl64.Vec3{1, 1, 1}))
	sap.AddBody(testStaticBody(t, 1, mgl64.Vec3{1, 0, 0}, mgl64.Vec3{1, 1, 1}))

	if pm.Len() != 0 {
		t.Errorf("static-static pair count = %d, want 0", pm.Len())
	}
}

func TestSweepCollisionDisabledFiltered(t *testing.T) {
	sap, pm := newBroadPhase()

	bodyA := testBody(t, 0, mgl64.Vec3{0, 0, 0}, mgl64.Vec3{1, 1, 1})
	bodyA.EnableCollision(false)
	bodyB := testBody(t, 1, mgl64.Vec3{1, 0, 0}, mgl64.Vec3{1, 1, 1})

	sap.AddBody(bodyA)
	sap.AddBody(bodyB)

	if pm.Len() != 0 {
		t.Errorf("pair count with collision disabled = %d, want 0", pm.Len())
	}
}

func TestSweepPairSetMatchesAABBs(t *testing.T) {
	// After arbitrary moves, the pair set must equal the set of pairs
	// whose AABBs overlap on all three axes
	sap, pm := newBroadPhase()

	bodies := []*actor.RigidBody{
		testBody(t, 0, mgl64.Vec3{0, 0, 0}, mgl64.Vec3{1, 1, 1}),
		testBody(t, 1, mgl64.Vec3{3, 0, 0}, mgl64.Vec3{1, 1, 1}),
		testBody(t, 2, mgl64.Vec3{0, 3, 0}, mgl64.Vec3{1, 1, 1}),
		testBody(t, 3, mgl64.Vec3{6, 6, 6}, mgl64.Vec3{1, 1, 1}),
	}
	for _, body := range bodies {
		sap.AddBody(body)
	}

	moves := []struct {
		body     int
		position mgl64.Vec3
	}{
		{1, mgl64.Vec3{1, 0, 0}},
		{3, mgl64.Vec3{0.5, 0.5, 0.5}},
		{2, mgl64.Vec3{0, 8, 0}},
		{1, mgl64.Vec3{-1, -1, 0}},
		{3, mgl64.Vec3{6, 6, 6}},
	}

	for _, move := range moves {
		moveBody(sap, bodies[move.body], move.position)

		for i := 0; i < len(bodies); i++ {
			for j := i + 1; j < len(bodies); j++ {
				overlaps := bodies[i].GetAABB().Overlaps(bodies[j].GetAABB())
				inManager := pm.Lookup(MakePairKey(i, j)) != nil
				if overlaps != inManager {
					t.Errorf("pair (%d, %d): AABB overlap = %v but pair manager = %v",
						i, j, overlaps, inManager)
				}
			}
		}
	}
}
