package bedrock

import "github.com/akmonengine/bedrock/actor"

// The two error kinds surfaced by the engine. Errors are local to the
// offending call: the world state machine stays valid and no partial
// mutation survives a rejected call.
var (
	ErrInvalidArgument = actor.ErrInvalidArgument
	ErrInvalidState    = actor.ErrInvalidState
)
