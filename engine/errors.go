package engine

import "errors"

var (
	// ErrNoLegalMove means every direction leads out of bounds or into an
	// occupied cell. The agent is enclosed and cannot produce a move this tick.
	ErrNoLegalMove = errors.New("no legal move")

	// ErrMissingSelf means the agent's own record is absent from the snapshot
	// and there is no usable last known position.
	ErrMissingSelf = errors.New("agent missing from snapshot")
)
