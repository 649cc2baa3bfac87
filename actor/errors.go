package actor

import "errors"

// ErrInvalidArgument reports a rejected parameter (nil shape, negative
// damping, non-positive mass). The world state is unchanged by a
// call that returns it.
var ErrInvalidArgument = errors.New("invalid argument")

// ErrInvalidState reports an operation that the engine cannot perform
// in its current state (id overflow, removing an unknown joint,
// updating a stopped world).
var ErrInvalidState = errors.New("invalid state")
