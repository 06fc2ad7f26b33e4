// Package match implements the tick-driven loop that advances the match on
// a fixed cadence without waiting for submissions, fills in missing or
// illegal submissions,
// and hands the match off to Halted when the engine reports termination
// (spec.md §4.2).
package match

import (
	"errors"
	"log"
	"sync"
	"time"

	"snakearena.live/engine"
)

// State is one of the scheduler's three states. Halted is absorbing.
type State int

const (
	Idle State = iota
	Running
	Halted
)

func (s State) String() string {
	switch s {
	case Idle:
		return "Idle"
	case Running:
		return "Running"
	case Halted:
		return "Halted"
	default:
		return "Unknown"
	}
}

// ErrNotIdle is returned by Start when the scheduler isn't in Idle.
var ErrNotIdle = errors.New("match: scheduler is not idle")

// Broadcaster receives the scheduler's tick-by-tick output. Implementations
// must not block for long — the scheduler calls these synchronously from
// its tick loop (spec.md §4.2 "Broadcast the new state to all sessions").
type Broadcaster interface {
	BroadcastState(state *engine.GameState)
	BroadcastTerminal(state *engine.GameState, winner *engine.PlayerID)
}

// Scheduler drives one match's tick loop. It is the sole mutator of the
// engine's GameState (spec.md §9 "single-owner model").
type Scheduler struct {
	mu    sync.Mutex
	state State

	engine       *engine.Engine
	moves        *engine.MoveTable
	broadcaster  Broadcaster
	tickDuration time.Duration

	stop chan struct{}
	done chan struct{}
}

// NewScheduler creates a scheduler in the Idle state.
func NewScheduler(eng *engine.Engine, moves *engine.MoveTable, b Broadcaster) *Scheduler {
	return &Scheduler{
		state:        Idle,
		engine:       eng,
		moves:        moves,
		broadcaster:  b,
		tickDuration: time.Duration(engine.TickDuration) * time.Millisecond,
		stop:         make(chan struct{}),
		done:         make(chan struct{}),
	}
}

// State reports the scheduler's current state.
func (sc *Scheduler) State() State {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.state
}

// Start transitions Idle -> Running and launches the tick loop in the
// background. It is the effect of a spectator's StartGame message
// (spec.md §4.2, §6). Returns ErrNotIdle if already running or halted, or
// whatever error the engine returns (e.g. ErrNotEnoughPlayers).
func (sc *Scheduler) Start() error {
	sc.mu.Lock()
	if sc.state != Idle {
		sc.mu.Unlock()
		return ErrNotIdle
	}
	if err := sc.engine.SetRunning(true); err != nil {
		sc.mu.Unlock()
		return err
	}
	sc.state = Running
	sc.mu.Unlock()

	go sc.run()
	return nil
}

// Shutdown aborts the tick loop unconditionally and halts the scheduler,
// for process-level cancellation (spec.md §5). Engine state is discarded.
func (sc *Scheduler) Shutdown() {
	sc.mu.Lock()
	wasRunning := sc.state == Running
	sc.state = Halted
	sc.mu.Unlock()

	if wasRunning {
		close(sc.stop)
		<-sc.done
	}
}

func (sc *Scheduler) run() {
	defer close(sc.done)

	ticker := time.NewTicker(sc.tickDuration)
	defer ticker.Stop()

	for {
		select {
		case <-sc.stop:
			return
		case <-ticker.C:
			if sc.tickOnce() {
				return
			}
		}
	}
}

// tickOnce runs one full tick: drain (collect and clear) -> resolve ->
// engine.Tick -> broadcast -> maybe halt. Returns true if the loop should
// stop.
func (sc *Scheduler) tickOnce() bool {
	submitted := sc.moves.Drain()
	moves := sc.resolveMoves(submitted)

	outcome, err := sc.engine.Tick(moves)
	if err != nil {
		var inv *engine.InvariantError
		if errors.As(err, &inv) {
			log.Printf("[MATCH] fatal engine invariant: %v", err)
		} else {
			log.Printf("[MATCH] tick error: %v", err)
		}
		sc.haltWithNoWinner()
		return true
	}

	sc.broadcaster.BroadcastState(sc.engine.Snapshot())

	if outcome.Terminated {
		sc.mu.Lock()
		sc.state = Halted
		sc.mu.Unlock()
		sc.broadcaster.BroadcastTerminal(sc.engine.Snapshot(), outcome.Winner)
		return true
	}
	return false
}

func (sc *Scheduler) haltWithNoWinner() {
	sc.mu.Lock()
	sc.state = Halted
	sc.mu.Unlock()
	sc.broadcaster.BroadcastTerminal(sc.engine.Snapshot(), nil)
}

// resolveMoves implements spec.md §4.2 step 3: for each alive snake,
// prefer its submission this tick if legal, else LastDirection if legal,
// else the first legal direction in fixed tie-break order. Snake.
// ResolveDirection embodies the exact same rule the engine itself falls
// back on, so the two layers can never disagree on the outcome.
func (sc *Scheduler) resolveMoves(submitted map[engine.PlayerID]engine.Direction) map[engine.PlayerID]engine.Direction {
	state := sc.engine.State()
	resolved := make(map[engine.PlayerID]engine.Direction, len(state.Snakes))
	for id, snake := range state.Snakes {
		if !snake.Alive {
			continue
		}
		dir, ok := submitted[id]
		resolved[id] = snake.ResolveDirection(dir, ok)
	}
	return resolved
}
