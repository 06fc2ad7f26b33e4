package engine

import (
	"math/rand"
	"time"

	"github.com/google/uuid"
)

// Engine is the pure tick-advancement core described in spec.md §4.1. It
// never performs I/O or blocks; every operation is synchronous and bounded.
// The match scheduler is its sole caller.
type Engine struct {
	state *GameState
	rng   *rand.Rand
}

// New creates an engine for a Width x Height toroidal grid, seeded from the
// current time.
func New(width, height int) *Engine {
	return NewSeeded(width, height, time.Now().UnixNano())
}

// NewSeeded creates an engine with a deterministic RNG seed, for
// reproducible tests (spec.md §5).
func NewSeeded(width, height int, seed int64) *Engine {
	return &Engine{
		state: NewGameState(width, height),
		rng:   rand.New(rand.NewSource(seed)),
	}
}

// State returns the engine's live GameState. The caller (the scheduler) is
// the only permitted mutator; all other callers must use Snapshot.
func (e *Engine) State() *GameState {
	return e.state
}

// Snapshot returns a deep copy of the current state, safe to hand to
// sessions for broadcast (spec.md §3 "sessions receive immutable
// snapshots").
func (e *Engine) Snapshot() *GameState {
	return e.state.Clone()
}

// SpawnSnake creates a snake with a freshly assigned player_id at a
// uniformly random empty cell. Rejected if the match is running, the
// lobby is full, or no empty cell exists (spec.md §4.1, §4.1.2). Duplicate
// joins on one connection are a session-layer concern (spec.md §7
// InvalidJoin), not an engine one — the engine never sees the same id
// twice since every call mints a new one.
func (e *Engine) SpawnSnake(name string) (*Snake, error) {
	if e.state.Running {
		return nil, ErrMatchRunning
	}
	if len(e.state.Snakes) >= MaxPlayers {
		return nil, ErrLobbyFull
	}

	pos, ok := e.randomFreePosition(e.state.occupiedCells())
	if !ok {
		return nil, ErrNoFreeCell
	}

	id := NewPlayerID()
	color := colorForSlot(len(e.state.joinOrder))
	snake := newSnake(id, name, color, pos)
	e.state.Snakes[id] = snake
	e.state.joinOrder = append(e.state.joinOrder, id)
	return snake, nil
}

// RemoveSnake removes a player's snake from the lobby. It is a no-op once
// the match is running — spec.md §4.3.1's mid-match substitution policy
// keeps a disconnected player's snake on the grid instead.
func (e *Engine) RemoveSnake(id PlayerID) {
	if e.state.Running {
		return
	}
	if _, ok := e.state.Snakes[id]; !ok {
		return
	}
	delete(e.state.Snakes, id)
	for i, joined := range e.state.joinOrder {
		if joined == id {
			e.state.joinOrder = append(e.state.joinOrder[:i], e.state.joinOrder[i+1:]...)
			break
		}
	}
}

// SetRunning transitions the match from Idle to Running. It requires at
// least MinPlayers and at most MaxPlayers snakes currently in the lobby.
// Calling with running=false is a no-op; the engine only ever halts itself,
// via tick-reported termination.
func (e *Engine) SetRunning(running bool) error {
	if !running {
		return nil
	}
	if e.state.Running {
		return ErrMatchRunning
	}
	n := len(e.state.Snakes)
	if n < MinPlayers {
		return ErrNotEnoughPlayers
	}
	if n > MaxPlayers {
		return ErrLobbyFull
	}

	e.state.Running = true
	e.state.targetFruitCount = maxInt(0, n-1)
	e.state.fruitSlots = make([]*Fruit, e.state.targetFruitCount)
	e.state.spawnTimers = make([]int, e.state.targetFruitCount)
	return nil
}

// TickOutcome is the result of one engine.Tick call (spec.md §4.1.1 step 9).
type TickOutcome struct {
	State      *GameState
	Terminated bool
	Winner     *PlayerID
}

// Stats is the side-effect-free read contract of spec.md §4.1.
type Stats struct {
	Tick       int
	AliveCount int
	TotalCount int
	Winner     *PlayerID
}

// Stats reports current match counters without mutating anything.
func (e *Engine) Stats() Stats {
	return Stats{
		Tick:       e.state.Tick,
		AliveCount: e.state.AliveCount(),
		TotalCount: len(e.state.Snakes),
		Winner:     e.state.Winner,
	}
}

// Tick advances the match by one step, applying moves for every alive
// snake. moves must contain exactly one entry per alive snake; the engine
// returns ErrIncompleteMoves otherwise (the scheduler is responsible for
// filling in missing/illegal submissions before calling Tick, per spec.md
// §4.1.1 and §4.2 step 3 — this is a last-resort completeness check, not
// the primary substitution path).
func (e *Engine) Tick(moves map[PlayerID]Direction) (TickOutcome, error) {
	if !e.state.Running {
		return TickOutcome{}, ErrMatchNotRunning
	}

	aliveIDs := e.state.sortedAliveIDs()
	for _, id := range aliveIDs {
		if _, ok := moves[id]; !ok {
			return TickOutcome{}, ErrIncompleteMoves
		}
	}

	// Step 1-3: resolve each alive snake's direction and advance its body.
	for _, id := range aliveIDs {
		s := e.state.Snakes[id]
		dir := s.ResolveDirection(moves[id], true)
		s.LastDirection = dir
		s.hasMoved = true

		head := s.Head().Move(dir, e.state.Width, e.state.Height)
		s.Body = append([]Position{head}, s.Body...)
		if s.PendingGrowth > 0 {
			s.PendingGrowth--
		} else {
			s.Body = s.Body[:len(s.Body)-1]
		}
	}

	// Step 4: note fruit consumption candidates, but defer applying growth
	// until collision resolution confirms the consuming snake survived
	// (spec.md §8 "fruit is not consumed" on a mutual head-on kill at the
	// fruit's cell).
	consumedSlot := make(map[PlayerID]int)
	for _, id := range aliveIDs {
		s := e.state.Snakes[id]
		for slot, f := range e.state.fruitSlots {
			if f != nil && f.Position == s.Head() {
				consumedSlot[id] = slot
				break
			}
		}
	}

	// Step 5: collision detection, evaluated against the post-step-3
	// configuration and applied atomically.
	headPositions := make(map[Position][]PlayerID)
	for _, id := range aliveIDs {
		h := e.state.Snakes[id].Head()
		headPositions[h] = append(headPositions[h], id)
	}

	dead := make(map[PlayerID]bool)
	for _, ids := range headPositions {
		if len(ids) >= 2 {
			for _, id := range ids {
				dead[id] = true
			}
		}
	}
	for _, id := range aliveIDs {
		s := e.state.Snakes[id]
		head := s.Head()
		for otherID, other := range e.state.Snakes {
			for idx, seg := range other.Body {
				if otherID == id && idx == 0 {
					continue // a snake's own head never counts as an obstacle
				}
				if seg == head {
					dead[id] = true
					break
				}
			}
			if dead[id] {
				break
			}
		}
	}
	for id := range dead {
		e.state.Snakes[id].Alive = false
	}

	// Finalize fruit consumption for snakes that survived collision
	// resolution.
	for id, slot := range consumedSlot {
		if dead[id] {
			continue
		}
		e.state.Snakes[id].PendingGrowth++
		e.state.fruitSlots[slot] = nil
		e.state.spawnTimers[slot] = 0
	}

	// Step 6: fruit spawning.
	occupied := e.state.occupiedCells()
	for i, f := range e.state.fruitSlots {
		if f != nil {
			continue
		}
		e.state.spawnTimers[i]++
		if e.state.spawnTimers[i] < FruitSpawnDelayTicks {
			continue
		}
		pos, ok := e.randomFreePosition(occupied)
		if !ok {
			e.state.spawnTimers[i] = FruitSpawnDelayTicks
			continue
		}
		e.state.fruitSlots[i] = &Fruit{Position: pos}
		e.state.spawnTimers[i] = 0
		occupied[pos] = true
	}

	// Step 7: tick bookkeeping.
	e.state.Tick++

	// Step 8: termination check.
	outcome := TickOutcome{State: e.state}
	if winner, ok := e.longestSurvivor(); ok {
		e.state.Running = false
		e.state.Winner = &winner
		outcome.Terminated = true
		outcome.Winner = &winner
	} else if e.state.AliveCount() <= 1 {
		e.state.Running = false
		var winner *PlayerID
		for id, s := range e.state.Snakes {
			if s.Alive {
				id := id
				winner = &id
				break
			}
		}
		e.state.Winner = winner
		outcome.Terminated = true
		outcome.Winner = winner
	}

	return outcome, nil
}

// longestSurvivor reports the alive snake whose body length has reached
// WinningLength, breaking ties by smallest player_id (spec.md §4.1.1 step
// 8). ok is false if no snake has won by length.
func (e *Engine) longestSurvivor() (PlayerID, bool) {
	var (
		best    PlayerID
		bestLen int
		found   bool
	)
	for _, id := range e.state.sortedAliveIDs() {
		s := e.state.Snakes[id]
		if s.Length() < WinningLength {
			continue
		}
		if !found || s.Length() > bestLen {
			best, bestLen, found = id, s.Length(), true
		}
	}
	return best, found
}

func (e *Engine) randomFreePosition(occupied map[Position]bool) (Position, bool) {
	free := make([]Position, 0, e.state.Width*e.state.Height)
	for x := 0; x < e.state.Width; x++ {
		for y := 0; y < e.state.Height; y++ {
			p := Position{X: x, Y: y}
			if !occupied[p] {
				free = append(free, p)
			}
		}
	}
	if len(free) == 0 {
		return Position{}, false
	}
	return free[e.rng.Intn(len(free))], true
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// NewPlayerID generates a fresh stable player identifier (spec.md §3
// "assigned on lobby join").
func NewPlayerID() PlayerID {
	return uuid.New()
}
