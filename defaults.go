package bedrock

import "math"

const (
	// DefaultTimestep is the fixed step the world advances by on each
	// Update call
	DefaultTimestep = 1.0 / 60.0

	// DefaultVelocityIterations is the number of sequential-impulse
	// iterations per island per step
	DefaultVelocityIterations = 10

	// DefaultPositionIterations is the number of positional correction
	// iterations per island per step
	DefaultPositionIterations = 5

	// DefaultRestitution and DefaultFriction are the material defaults
	// assigned to bodies at creation
	DefaultRestitution = 0.0
	DefaultFriction    = 0.3

	// SleepLinearVelocity and SleepAngularVelocity are the speeds below
	// which a body is considered at rest
	SleepLinearVelocity  = 0.05
	SleepAngularVelocity = 0.05

	// TimeToSleep is how long every body of an island must stay at rest
	// before the island is put to sleep
	TimeToSleep = 1.0

	// MaxBodyID is the first id the world does not hand out: body
	// creation is rejected once the next id reaches it
	MaxBodyID = math.MaxInt32
)
