package bedrock

import (
	"testing"

	"github.com/akmonengine/bedrock/actor"
	"github.com/go-gl/mathgl/mgl64"
)

func testBody(t *testing.T, id int, position mgl64.Vec3, halfExtents mgl64.Vec3) *actor.RigidBody {
	t.Helper()
	shape := &actor.Box{HalfExtents: halfExtents}
	body, err := actor.NewRigidBody(id, actor.NewTransformAt(position, mgl64.QuatIdent()), 1.0, shape.ComputeInertia(1.0), shape)
	if err != nil {
		t.Fatalf("testBody failed: %v", err)
	}
	return body
}

func testStaticBody(t *testing.T, id int, position mgl64.Vec3, halfExtents mgl64.Vec3) *actor.RigidBody {
	t.Helper()
	shape := &actor.Box{HalfExtents: halfExtents}
	body, err := actor.NewStaticBody(id, actor.NewTransformAt(position, mgl64.QuatIdent()), shape)
	if err != nil {
		t.Fatalf("testStaticBody failed: %v", err)
	}
	return body
}

func TestMakePairKeyCanonical(t *testing.T) {
	if MakePairKey(3, 7) != MakePairKey(7, 3) {
		t.Error("pair key should not depend on argument order")
	}

	key := MakePairKey(7, 3)
	if key.A != 3 || key.B != 7 {
		t.Errorf("key = %+v, want A=3 B=7", key)
	}
}

func TestPairManagerInsertIdempotent(t *testing.T) {
	pm := NewPairManager()
	bodyA := testBody(t, 0, mgl64.Vec3{}, mgl64.Vec3{1, 1, 1})
	bodyB := testBody(t, 1, mgl64.Vec3{1, 0, 0}, mgl64.Vec3{1, 1, 1})

	first, isNew := pm.Insert(bodyA, bodyB)
	if !isNew {
		t.Error("first insert should signal new")
	}

	second, isNew := pm.Insert(bodyB, bodyA)
	if isNew {
		t.Error("second insert should not signal new")
	}
	if first != second {
		t.Error("second insert should return the existing record")
	}
	if pm.Len() != 1 {
		t.Errorf("pair count = %d, want 1", pm.Len())
	}
}

func TestPairManagerCanonicalBodies(t *testing.T) {
	pm := NewPairManager()
	bodyA := testBody(t, 5, mgl64.Vec3{}, mgl64.Vec3{1, 1, 1})
	bodyB := testBody(t, 2, mgl64.Vec3{1, 0, 0}, mgl64.Vec3{1, 1, 1})

	pair, _ := pm.Insert(bodyA, bodyB)
	if pair.BodyA.ID() != 2 || pair.BodyB.ID() != 5 {
		t.Errorf("pair bodies = %d/%d, want ordered 2/5", pair.BodyA.ID(), pair.BodyB.ID())
	}
}

func TestPairManagerCallbacks(t *testing.T) {
	pm := NewPairManager()
	bodyA := testBody(t, 0, mgl64.Vec3{}, mgl64.Vec3{1, 1, 1})
	bodyB := testBody(t, 1, mgl64.Vec3{1, 0, 0}, mgl64.Vec3{1, 1, 1})

	var added, removed int
	pm.OnAdded = func(pair *OverlappingPair) { added++ }
	pm.OnRemoved = func(pair *OverlappingPair) { removed++ }

	pm.Insert(bodyA, bodyB)
	pm.Insert(bodyA, bodyB)
	if added != 1 {
		t.Errorf("added callbacks = %d, want 1", added)
	}

	pm.Remove(MakePairKey(0, 1))
	pm.Remove(MakePairKey(0, 1))
	if removed != 1 {
		t.Errorf("removed callbacks = %d, want 1", removed)
	}
	if pm.Len() != 0 {
		t.Errorf("pair count after removal = %d, want 0", pm.Len())
	}
}

func TestPairManagerLookup(t *testing.T) {
	pm := NewPairManager()
	bodyA := testBody(t, 0, mgl64.Vec3{}, mgl64.Vec3{1, 1, 1})
	bodyB := testBody(t, 1, mgl64.Vec3{1, 0, 0}, mgl64.Vec3{1, 1, 1})

	if pm.Lookup(MakePairKey(0, 1)) != nil {
		t.Error("lookup before insert should return nil")
	}

	pair, _ := pm.Insert(bodyA, bodyB)
	if pm.Lookup(MakePairKey(1, 0)) != pair {
		t.Error("lookup should find the pair under the canonical key")
	}
}

func TestPairManagerStableIteration(t *testing.T) {
	pm := NewPairManager()

	bodies := make([]*actor.RigidBody, 6)
	for i := range bodies {
		bodies[i] = testBody(t, i, mgl64.Vec3{float64(i), 0, 0}, mgl64.Vec3{1, 1, 1})
	}

	pm.Insert(bodies[0], bodies[1])
	pm.Insert(bodies[2], bodies[3])
	pm.Insert(bodies[4], bodies[5])

	var firstOrder []PairKey
	pm.Each(func(pair *OverlappingPair) { firstOrder = append(firstOrder, pair.Key) })

	var secondOrder []PairKey
	pm.Each(func(pair *OverlappingPair) { secondOrder = append(secondOrder, pair.Key) })

	if len(firstOrder) != 3 || len(secondOrder) != 3 {
		t.Fatalf("iteration lengths = %d/%d, want 3/3", len(firstOrder), len(secondOrder))
	}
	for i := range firstOrder {
		if firstOrder[i] != secondOrder[i] {
			t.Errorf("iteration order changed at %d: %v vs %v", i, firstOrder[i], secondOrder[i])
		}
	}
}
