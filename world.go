package bedrock

import (
	"fmt"
	"math"

	"github.com/akmonengine/bedrock/actor"
	"github.com/akmonengine/bedrock/constraint"
	"github.com/go-gl/mathgl/mgl64"
)

// World is the dynamics world: it owns the bodies, shapes, joints and
// the collision pipeline, and advances them all by a fixed timestep on
// each Update call.
//
// A world is single-threaded: exactly one goroutine drives Update, and
// reads from other goroutines are only safe between steps.
type World struct {
	bodies        map[int]*actor.RigidBody
	orderedBodies []*actor.RigidBody

	// Gravity acceleration (m/s², or N/kg)
	Gravity   mgl64.Vec3
	gravityOn bool

	timestep            float64
	velocityIterations  int
	positionIterations  int
	sleepingAllowed     bool
	defaultRestitution  float64
	defaultFriction     float64
	interpolationFactor float64

	running bool

	currentBodyID int
	freeBodyIDs   []int

	pairManager *PairManager
	broadPhase  *SweepAndPrune

	joints []constraint.Joint

	// Arenas of the bodies' intrusive contact and joint lists
	manifoldLinks linkPool[*constraint.ContactManifold]
	jointLinks    linkPool[constraint.Joint]

	shapes map[shapeKey]*shapeEntry

	Events Events
}

// NewWorld creates an empty world with the given gravity and fixed
// timestep
func NewWorld(gravity mgl64.Vec3, timestep float64) (*World, error) {
	if timestep <= 0 {
		return nil, fmt.Errorf("%w: timestep must be positive, got %v", ErrInvalidArgument, timestep)
	}

	w := &World{
		bodies:             make(map[int]*actor.RigidBody),
		Gravity:            gravity,
		gravityOn:          true,
		timestep:           timestep,
		velocityIterations: DefaultVelocityIterations,
		positionIterations: DefaultPositionIterations,
		sleepingAllowed:    true,
		defaultRestitution: DefaultRestitution,
		defaultFriction:    DefaultFriction,
		shapes:             make(map[shapeKey]*shapeEntry),
		Events:             NewEvents(),
	}
	w.pairManager = NewPairManager()
	w.pairManager.OnRemoved = w.onPairRemoved
	w.broadPhase = NewSweepAndPrune(w.pairManager)

	return w, nil
}

// nextFreeID returns the next available body id, reusing the ids of
// destroyed bodies first
func (w *World) nextFreeID() (int, error) {
	var id int
	if n := len(w.freeBodyIDs); n > 0 {
		id = w.freeBodyIDs[n-1]
		w.freeBodyIDs = w.freeBodyIDs[:n-1]
	} else {
		id = w.currentBodyID
		w.currentBodyID++
	}
	if id >= MaxBodyID {
		return 0, fmt.Errorf("%w: body id overflow", ErrInvalidState)
	}
	return id, nil
}

// CreateRigidBody creates a dynamic body and registers it with the
// collision pipeline. Equal shapes are shared between bodies through a
// reference-counted registry.
func (w *World) CreateRigidBody(transform actor.Transform, mass float64, inertia mgl64.Mat3, shape actor.ShapeInterface) (*actor.RigidBody, error) {
	if shape == nil {
		return nil, fmt.Errorf("%w: shape cannot be nil", ErrInvalidArgument)
	}

	id, err := w.nextFreeID()
	if err != nil {
		return nil, err
	}

	body, err := actor.NewRigidBody(id, transform, mass, inertia, w.retainShape(shape))
	if err != nil {
		w.releaseShape(shape)
		w.freeBodyIDs = append(w.freeBodyIDs, id)
		return nil, err
	}

	w.registerBody(body)
	return body, nil
}

// CreateStaticBody creates an immobile body
func (w *World) CreateStaticBody(transform actor.Transform, shape actor.ShapeInterface) (*actor.RigidBody, error) {
	if shape == nil {
		return nil, fmt.Errorf("%w: shape cannot be nil", ErrInvalidArgument)
	}

	id, err := w.nextFreeID()
	if err != nil {
		return nil, err
	}

	body, err := actor.NewStaticBody(id, transform, w.retainShape(shape))
	if err != nil {
		w.releaseShape(shape)
		w.freeBodyIDs = append(w.freeBodyIDs, id)
		return nil, err
	}

	w.registerBody(body)
	return body, nil
}

func (w *World) registerBody(body *actor.RigidBody) {
	body.Material = actor.Material{Restitution: w.defaultRestitution, Friction: w.defaultFriction}
	body.WakeHook = w.wakeIsland

	w.bodies[body.ID()] = body
	w.orderedBodies = append(w.orderedBodies, body)
	w.broadPhase.AddBody(body)
}

// DestroyBody removes a body from the world: its joints and contacts
// are destroyed first, then its id returns to the free list.
func (w *World) DestroyBody(body *actor.RigidBody) error {
	if body == nil || w.bodies[body.ID()] != body {
		return fmt.Errorf("%w: body is not part of this world", ErrInvalidState)
	}

	// Joints first, they reference the body
	for i := len(w.joints) - 1; i >= 0; i-- {
		joint := w.joints[i]
		if joint.BodyA() == body || joint.BodyB() == body {
			if err := w.DestroyJoint(joint); err != nil {
				return err
			}
		}
	}

	// Dropping the body's pairs destroys and unlinks its manifolds
	w.broadPhase.RemoveBody(body)

	delete(w.bodies, body.ID())
	for i, b := range w.orderedBodies {
		if b == body {
			w.orderedBodies = append(w.orderedBodies[:i], w.orderedBodies[i+1:]...)
			break
		}
	}

	w.releaseShape(body.Shape)
	w.Events.removeBody(body.ID())
	w.freeBodyIDs = append(w.freeBodyIDs, body.ID())
	body.WakeHook = nil

	return nil
}

// CreateJoint registers a joint built with one of the constraint
// package constructors. Both bodies are woken.
func (w *World) CreateJoint(joint constraint.Joint) error {
	if joint == nil {
		return fmt.Errorf("%w: joint cannot be nil", ErrInvalidArgument)
	}
	bodyA := joint.BodyA()
	bodyB := joint.BodyB()
	if w.bodies[bodyA.ID()] != bodyA || w.bodies[bodyB.ID()] != bodyB {
		return fmt.Errorf("%w: joint bodies are not part of this world", ErrInvalidArgument)
	}

	w.joints = append(w.joints, joint)
	bodyA.JointListHead = w.jointLinks.push(bodyA.JointListHead, joint)
	bodyB.JointListHead = w.jointLinks.push(bodyB.JointListHead, joint)

	bodyA.Awake()
	bodyB.Awake()
	return nil
}

// DestroyJoint removes a joint from the world. Removing a joint that
// is not present is an error.
func (w *World) DestroyJoint(joint constraint.Joint) error {
	for i, j := range w.joints {
		if j != joint {
			continue
		}
		w.joints = append(w.joints[:i], w.joints[i+1:]...)

		bodyA := joint.BodyA()
		bodyB := joint.BodyB()
		bodyA.JointListHead = w.jointLinks.remove(bodyA.JointListHead, joint)
		bodyB.JointListHead = w.jointLinks.remove(bodyB.JointListHead, joint)

		bodyA.Awake()
		bodyB.Awake()
		return nil
	}
	return fmt.Errorf("%w: joint is not part of this world", ErrInvalidState)
}

// onPairRemoved destroys the manifold of a pair leaving the broad
// phase and unlinks it from both bodies
func (w *World) onPairRemoved(pair *OverlappingPair) {
	if pair.Manifold == nil {
		return
	}
	pair.BodyA.ContactListHead = w.manifoldLinks.remove(pair.BodyA.ContactListHead, pair.Manifold)
	pair.BodyB.ContactListHead = w.manifoldLinks.remove(pair.BodyB.ContactListHead, pair.Manifold)
	pair.Manifold = nil
}

// attachManifold creates the pair's manifold on its first contact and
// links it into both bodies' contact lists
func (w *World) attachManifold(pair *OverlappingPair) {
	manifold := constraint.NewContactManifold(pair.BodyA, pair.BodyB)
	pair.Manifold = manifold
	pair.BodyA.ContactListHead = w.manifoldLinks.push(pair.BodyA.ContactListHead, manifold)
	pair.BodyB.ContactListHead = w.manifoldLinks.push(pair.BodyB.ContactListHead, manifold)
}

// Start allows Update calls
func (w *World) Start() {
	w.running = true
}

// Stop rejects further Update calls until the next Start
func (w *World) Stop() {
	w.running = false
}

// SetGravity replaces the gravity acceleration
func (w *World) SetGravity(gravity mgl64.Vec3) {
	w.Gravity = gravity
}

// SetGravityEnabled toggles gravity globally. Enabling it wakes every
// body.
func (w *World) SetGravityEnabled(enabled bool) {
	w.gravityOn = enabled
	if enabled {
		for _, body := range w.orderedBodies {
			body.Awake()
		}
	}
}

// IsGravityEnabled reports whether gravity is applied
func (w *World) IsGravityEnabled() bool {
	return w.gravityOn
}

// EnableSleeping toggles the sleeping policy. Disabling it wakes every
// body.
func (w *World) EnableSleeping(enabled bool) {
	w.sleepingAllowed = enabled
	if !enabled {
		for _, body := range w.orderedBodies {
			body.Awake()
		}
	}
}

// IsSleepingEnabled reports whether islands may fall asleep
func (w *World) IsSleepingEnabled() bool {
	return w.sleepingAllowed
}

// Timestep returns the fixed step duration
func (w *World) Timestep() float64 {
	return w.timestep
}

// VelocityIterations returns the solver velocity iteration count
func (w *World) VelocityIterations() int {
	return w.velocityIterations
}

// SetVelocityIterations sets the solver velocity iteration count, >= 1
func (w *World) SetVelocityIterations(iterations int) error {
	if iterations < 1 {
		return fmt.Errorf("%w: velocity iterations must be >= 1, got %d", ErrInvalidArgument, iterations)
	}
	w.velocityIterations = iterations
	return nil
}

// PositionIterations returns the solver position iteration count
func (w *World) PositionIterations() int {
	return w.positionIterations
}

// SetPositionIterations sets the solver position iteration count, >= 0
func (w *World) SetPositionIterations(iterations int) error {
	if iterations < 0 {
		return fmt.Errorf("%w: position iterations cannot be negative, got %d", ErrInvalidArgument, iterations)
	}
	w.positionIterations = iterations
	return nil
}

// SetInterpolationFactor sets the blend factor renderers use to read
// transforms between two fixed steps
func (w *World) SetInterpolationFactor(factor float64) {
	w.interpolationFactor = factor
}

// GetInterpolatedTransform returns the body transform blended between
// the previous and the current step by the interpolation factor
func (w *World) GetInterpolatedTransform(body *actor.RigidBody) actor.Transform {
	return body.GetInterpolatedTransform(w.interpolationFactor)
}

// Bodies returns the world's bodies in creation order
func (w *World) Bodies() []*actor.RigidBody {
	return w.orderedBodies
}

// Update advances the simulation by exactly one timestep. The step is
// atomic: there is no mid-step cancellation.
func (w *World) Update() error {
	if !w.running {
		return fmt.Errorf("%w: world is not started", ErrInvalidState)
	}
	dt := w.timestep

	// 1. Save the transforms for interpolation
	for _, body := range w.orderedBodies {
		body.PreviousTransform = body.Transform
	}

	// 2. Tentative velocities from gravity and the accumulated forces
	gravity := mgl64.Vec3{}
	if w.gravityOn {
		gravity = w.Gravity
	}
	for _, body := range w.orderedBodies {
		body.IntegrateForces(dt, gravity)
	}

	// 3. Refresh the bounds of the bodies that moved, driving the
	// broad phase
	for _, body := range w.orderedBodies {
		if body.HasMoved() {
			body.UpdateAABB()
			w.broadPhase.UpdateBody(body)
		}
	}

	// 4. Narrow phase and manifold update on the overlapping pairs
	if err := w.narrowPhase(); err != nil {
		return err
	}

	// 5. Partition the awake bodies into independent islands
	islands := w.buildIslands()

	// 6. Velocity solve per island
	constraintsPerIsland := make([][]constraint.Constraint, len(islands))
	for i, island := range islands {
		constraints := make([]constraint.Constraint, 0, len(island.Manifolds)+len(island.Joints))
		for _, manifold := range island.Manifolds {
			constraints = append(constraints, constraint.NewContactConstraint(manifold))
		}
		for _, joint := range island.Joints {
			constraints = append(constraints, joint)
		}
		constraintsPerIsland[i] = constraints

		for _, c := range constraints {
			c.Initialize(dt)
			c.WarmStart()
		}
		for iteration := 0; iteration < w.velocityIterations; iteration++ {
			for _, c := range constraints {
				c.SolveVelocity()
			}
		}
	}

	// 7. Commit the positions
	for _, body := range w.orderedBodies {
		body.IntegratePositions(dt)
	}

	// 8. Position solve, pushing leftover penetration out without
	// touching velocities
	for i := range islands {
		for iteration := 0; iteration < w.positionIterations; iteration++ {
			for _, c := range constraintsPerIsland[i] {
				c.SolvePosition()
			}
		}
	}

	// 9. The per-step force accumulators are cleared at end-of-step
	for _, body := range w.orderedBodies {
		body.ClearForces()
	}

	// 10. Sleep bookkeeping and events
	w.updateSleep(islands, dt)
	w.Events.processSleepEvents(w.orderedBodies)
	w.Events.flush()

	return nil
}

// narrowPhase tests every overlapping pair and feeds the results into
// the manifold store
func (w *World) narrowPhase() error {
	var firstErr error

	w.pairManager.Each(func(pair *OverlappingPair) {
		if firstErr != nil {
			return
		}
		if pair.BodyA.IsSleeping && pair.BodyB.IsSleeping {
			return
		}

		infos, err := testCollision(pair.BodyA, pair.BodyB)
		if err != nil {
			firstErr = err
			return
		}

		if pair.Manifold != nil {
			pair.Manifold.Refresh()
		}

		if len(infos) == 0 {
			return
		}

		if pair.Manifold == nil {
			w.attachManifold(pair)
		}
		for _, info := range infos {
			pair.Manifold.AddContactPoint(info)
		}
		w.Events.recordContact(pair)
	})

	return firstErr
}

// updateSleep advances the sleep timers island by island: an island
// falls asleep as a whole once every dynamic body in it has stayed
// below the rest thresholds long enough.
func (w *World) updateSleep(islands []*Island, dt float64) {
	if !w.sleepingAllowed {
		for _, body := range w.orderedBodies {
			body.SleepTimer = 0
		}
		return
	}

	for _, island := range islands {
		minTimer := math.Inf(1)

		for _, body := range island.Bodies {
			if !body.IsMotionEnabled() || body.IsSleeping {
				continue
			}

			if body.Velocity.Len() > SleepLinearVelocity ||
				body.AngularVelocity.Len() > SleepAngularVelocity {
				body.SleepTimer = 0
			} else {
				body.SleepTimer += dt
			}
			minTimer = math.Min(minTimer, body.SleepTimer)
		}

		if minTimer >= TimeToSleep {
			for _, body := range island.Bodies {
				if body.IsMotionEnabled() {
					body.Sleep()
				}
			}
		}
	}
}

// wakeIsland wakes every body reachable from the given one through
// contacts and joints. Static bodies absorb the wave like they do in
// island construction.
func (w *World) wakeIsland(origin *actor.RigidBody) {
	visited := map[int]bool{origin.ID(): true}
	stack := []*actor.RigidBody{origin}

	for len(stack) > 0 {
		body := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		body.IsSleeping = false
		body.SleepTimer = 0

		if !body.IsMotionEnabled() {
			continue
		}

		w.manifoldLinks.each(body.ContactListHead, func(manifold *constraint.ContactManifold) {
			other := manifold.BodyA
			if other == body {
				other = manifold.BodyB
			}
			if !visited[other.ID()] {
				visited[other.ID()] = true
				stack = append(stack, other)
			}
		})
		w.jointLinks.each(body.JointListHead, func(joint constraint.Joint) {
			other := joint.BodyA()
			if other == body {
				other = joint.BodyB()
			}
			if !visited[other.ID()] {
				visited[other.ID()] = true
				stack = append(stack, other)
			}
		})
	}
}

// shapeKey is the canonical form of a shape's parameters, used to
// share equal shapes between bodies
type shapeKey struct {
	shapeType actor.ShapeType
	p1, p2, p3 float64
}

type shapeEntry struct {
	shape    actor.ShapeInterface
	refCount int
}

func canonicalShapeKey(shape actor.ShapeInterface) shapeKey {
	switch s := shape.(type) {
	case *actor.Box:
		return shapeKey{shapeType: actor.ShapeTypeBox, p1: s.HalfExtents.X(), p2: s.HalfExtents.Y(), p3: s.HalfExtents.Z()}
	case *actor.Sphere:
		return shapeKey{shapeType: actor.ShapeTypeSphere, p1: s.Radius}
	case *actor.Cone:
		return shapeKey{shapeType: actor.ShapeTypeCone, p1: s.Radius, p2: s.Height}
	case *actor.Cylinder:
		return shapeKey{shapeType: actor.ShapeTypeCylinder, p1: s.Radius, p2: s.Height}
	}
	return shapeKey{shapeType: -1}
}

// retainShape returns the world's shared instance of an equal shape,
// creating the registry entry on first use
func (w *World) retainShape(shape actor.ShapeInterface) actor.ShapeInterface {
	key := canonicalShapeKey(shape)
	if entry, ok := w.shapes[key]; ok {
		entry.refCount++
		return entry.shape
	}
	w.shapes[key] = &shapeEntry{shape: shape, refCount: 1}
	return shape
}

// releaseShape drops one reference to a shape, forgetting it when the
// last body using it is destroyed
func (w *World) releaseShape(shape actor.ShapeInterface) {
	key := canonicalShapeKey(shape)
	entry, ok := w.shapes[key]
	if !ok {
		return
	}
	entry.refCount--
	if entry.refCount <= 0 {
		delete(w.shapes, key)
	}
}
