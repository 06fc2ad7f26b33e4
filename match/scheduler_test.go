package match

import (
	"sync"
	"testing"
	"time"

	"snakearena.live/engine"
)

// recordingBroadcaster captures every broadcast for assertions without any
// network involved.
type recordingBroadcaster struct {
	mu        sync.Mutex
	states    []*engine.GameState
	terminal  *engine.GameState
	winner    *engine.PlayerID
	gotTermed bool
}

func (b *recordingBroadcaster) BroadcastState(state *engine.GameState) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.states = append(b.states, state)
}

func (b *recordingBroadcaster) BroadcastTerminal(state *engine.GameState, winner *engine.PlayerID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.terminal = state
	b.winner = winner
	b.gotTermed = true
}

func (b *recordingBroadcaster) tickCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.states)
}

func (b *recordingBroadcaster) terminated() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.gotTermed
}

func TestSchedulerStartRejectsWithoutEnoughPlayers(t *testing.T) {
	eng := engine.New(20, 20)
	eng.SpawnSnake("solo")
	sc := NewScheduler(eng, engine.NewMoveTable(), &recordingBroadcaster{})

	if err := sc.Start(); err == nil {
		t.Error("Start() with 1 player should fail")
	}
	if sc.State() != Idle {
		t.Errorf("State() after failed Start = %v, want Idle", sc.State())
	}
}

func TestSchedulerStartTwiceReturnsErrNotIdle(t *testing.T) {
	eng := engine.New(20, 20)
	eng.SpawnSnake("a")
	eng.SpawnSnake("b")
	sc := NewScheduler(eng, engine.NewMoveTable(), &recordingBroadcaster{})

	if err := sc.Start(); err != nil {
		t.Fatalf("first Start(): %v", err)
	}
	defer sc.Shutdown()

	if err := sc.Start(); err != ErrNotIdle {
		t.Errorf("second Start() = %v, want ErrNotIdle", err)
	}
}

func TestSchedulerBroadcastsEveryTickUntilShutdown(t *testing.T) {
	eng := engine.New(20, 20)
	eng.SpawnSnake("a")
	eng.SpawnSnake("b")
	b := &recordingBroadcaster{}
	sc := NewScheduler(eng, engine.NewMoveTable(), b)

	if err := sc.Start(); err != nil {
		t.Fatalf("Start(): %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for b.tickCount() < 3 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	sc.Shutdown()

	if b.tickCount() < 3 {
		t.Fatalf("observed %d ticks in 2s, want at least 3", b.tickCount())
	}
}

func TestSchedulerResolveMovesFallsBackForMissingSubmission(t *testing.T) {
	eng := engine.New(20, 20)
	a, _ := eng.SpawnSnake("a")
	b, _ := eng.SpawnSnake("b")
	sc := NewScheduler(eng, engine.NewMoveTable(), &recordingBroadcaster{})

	// Give a's snake a real movement history (one engine tick moving Right),
	// so resolveMoves has a LastDirection to fall back to that differs from
	// the cyclic-order default of Up.
	if err := eng.SetRunning(true); err != nil {
		t.Fatalf("SetRunning: %v", err)
	}
	if _, err := eng.Tick(map[engine.PlayerID]engine.Direction{a.PlayerID: engine.Right, b.PlayerID: engine.Right}); err != nil {
		t.Fatalf("Tick: %v", err)
	}

	resolved := sc.resolveMoves(map[engine.PlayerID]engine.Direction{})
	if got := resolved[a.PlayerID]; got != engine.Right {
		t.Errorf("resolveMoves with no submission = %v, want LastDirection Right", got)
	}
}

func TestSchedulerResolveMovesIgnoresDeadSnakes(t *testing.T) {
	eng := engine.New(20, 20)
	a, _ := eng.SpawnSnake("a")
	b, _ := eng.SpawnSnake("b")
	sc := NewScheduler(eng, engine.NewMoveTable(), &recordingBroadcaster{})

	eng.State().Snakes[b.PlayerID].Alive = false

	resolved := sc.resolveMoves(map[engine.PlayerID]engine.Direction{
		a.PlayerID: engine.Right,
		b.PlayerID: engine.Right,
	})
	if _, ok := resolved[b.PlayerID]; ok {
		t.Error("resolveMoves should drop a dead snake's submission entirely")
	}
	if _, ok := resolved[a.PlayerID]; !ok {
		t.Error("resolveMoves should keep the alive snake's submission")
	}
}

func TestStateString(t *testing.T) {
	cases := map[State]string{Idle: "Idle", Running: "Running", Halted: "Halted"}
	for s, want := range cases {
		if got := s.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", s, got, want)
		}
	}
}
