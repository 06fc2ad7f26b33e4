package engine

import "errors"

// Errors returned by SpawnSnake, SetRunning and Tick (spec.md §4.1, §7).
var (
	ErrLobbyFull        = errors.New("engine: lobby is full")
	ErrMatchRunning     = errors.New("engine: match is already running")
	ErrMatchNotRunning  = errors.New("engine: match is not running")
	ErrNoFreeCell       = errors.New("engine: no free cell to spawn into")
	ErrIncompleteMoves  = errors.New("engine: move set does not cover every alive snake")
	ErrNotEnoughPlayers = errors.New("engine: fewer than the minimum number of players")
)

// InvariantError is a fatal, programmer-error-class failure discovered
// during tick resolution (spec.md §4.1.3). The scheduler logs it and halts
// the match; it is never surfaced to clients.
type InvariantError struct {
	Msg string
}

func (e *InvariantError) Error() string {
	return "engine: invariant violation: " + e.Msg
}
