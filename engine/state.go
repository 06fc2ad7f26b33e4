package engine

import (
	"bytes"
	"sort"
)

// Grid dimensions and match constants published to clients (spec.md §6).
const (
	GridWidth            = 50
	GridHeight           = 50
	WinningLength        = 50
	TickDuration         = 200 // milliseconds
	MinPlayers           = 2
	MaxPlayers           = 8
	FruitSpawnDelayTicks = 5
)

// GameState is the aggregate world owned by the scheduler. Sessions only
// ever see immutable snapshots of it (see Engine.Snapshot).
type GameState struct {
	Width, Height int

	Snakes    map[PlayerID]*Snake
	joinOrder []PlayerID // join order; stable iteration & palette assignment

	// fruitSlots/spawnTimers are parallel slices indexed by fruit slot.
	// A nil entry in fruitSlots is an empty, timed slot (spec.md §4.1.1
	// step 6). Length is fixed at targetFruitCount once the match starts.
	fruitSlots  []*Fruit
	spawnTimers []int

	Tick    int
	Running bool
	Winner  *PlayerID

	targetFruitCount int
}

// NewGameState creates an idle, empty match on a Width x Height grid.
func NewGameState(width, height int) *GameState {
	return &GameState{
		Width:  width,
		Height: height,
		Snakes: make(map[PlayerID]*Snake),
	}
}

// Fruits returns the current fruit positions in slot order.
func (gs *GameState) Fruits() []Position {
	out := make([]Position, 0, len(gs.fruitSlots))
	for _, f := range gs.fruitSlots {
		if f != nil {
			out = append(out, f.Position)
		}
	}
	return out
}

// JoinOrder returns player IDs in the order their snakes were created.
func (gs *GameState) JoinOrder() []PlayerID {
	out := make([]PlayerID, len(gs.joinOrder))
	copy(out, gs.joinOrder)
	return out
}

// AliveCount reports the number of currently-alive snakes.
func (gs *GameState) AliveCount() int {
	n := 0
	for _, s := range gs.Snakes {
		if s.Alive {
			n++
		}
	}
	return n
}

// occupiedCells returns every cell occupied by any snake body segment
// (alive or dead) or fruit, for empty-cell search.
func (gs *GameState) occupiedCells() map[Position]bool {
	occ := make(map[Position]bool, len(gs.Snakes)*4)
	for _, s := range gs.Snakes {
		for _, p := range s.Body {
			occ[p] = true
		}
	}
	for _, f := range gs.fruitSlots {
		if f != nil {
			occ[f.Position] = true
		}
	}
	return occ
}

// compareIDs gives a stable total order over PlayerIDs, used for
// tie-breaking (spec.md §4.1.1 step 8, §3 "iteration order stable enough
// for deterministic tie-breaking").
func compareIDs(a, b PlayerID) int {
	return bytes.Compare(a[:], b[:])
}

// sortedAliveIDs returns alive player IDs in ascending compareIDs order.
func (gs *GameState) sortedAliveIDs() []PlayerID {
	ids := make([]PlayerID, 0, len(gs.Snakes))
	for id, s := range gs.Snakes {
		if s.Alive {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return compareIDs(ids[i], ids[j]) < 0 })
	return ids
}

// Clone returns a deep copy of gs, safe to hand to a broadcaster while the
// scheduler keeps mutating the original (spec.md §3, §5).
func (gs *GameState) Clone() *GameState {
	out := &GameState{
		Width:            gs.Width,
		Height:           gs.Height,
		Snakes:           make(map[PlayerID]*Snake, len(gs.Snakes)),
		joinOrder:        append([]PlayerID(nil), gs.joinOrder...),
		fruitSlots:       make([]*Fruit, len(gs.fruitSlots)),
		spawnTimers:      append([]int(nil), gs.spawnTimers...),
		Tick:             gs.Tick,
		Running:          gs.Running,
		targetFruitCount: gs.targetFruitCount,
	}
	for id, s := range gs.Snakes {
		cp := *s
		cp.Body = append([]Position(nil), s.Body...)
		out.Snakes[id] = &cp
	}
	for i, f := range gs.fruitSlots {
		if f != nil {
			cp := *f
			out.fruitSlots[i] = &cp
		}
	}
	if gs.Winner != nil {
		w := *gs.Winner
		out.Winner = &w
	}
	return out
}
