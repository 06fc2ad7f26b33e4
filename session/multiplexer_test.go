package session

import (
	"encoding/json"
	"testing"
	"time"

	"snakearena.live/engine"
	"snakearena.live/match"
)

func TestMultiplexerJoinLobbyAssignsSnakeAndRoster(t *testing.T) {
	m := NewMultiplexer(20, 20)
	p := newPlayerSession(m, nil)

	snake, state, err := m.joinLobby(p, "alice")
	if err != nil {
		t.Fatalf("joinLobby: %v", err)
	}
	if snake.Name != "alice" {
		t.Errorf("snake.Name = %q, want alice", snake.Name)
	}
	if state.Snakes[snake.PlayerID] == nil {
		t.Error("returned snapshot should contain the newly joined snake")
	}

	m.mu.Lock()
	_, registered := m.players[snake.PlayerID]
	m.mu.Unlock()
	if !registered {
		t.Error("joinLobby should register the session in m.players")
	}
}

func TestMultiplexerJoinLobbyRejectsOnceRunning(t *testing.T) {
	m := NewMultiplexer(20, 20)
	p1 := newPlayerSession(m, nil)
	p2 := newPlayerSession(m, nil)
	if _, _, err := m.joinLobby(p1, "a"); err != nil {
		t.Fatalf("joinLobby a: %v", err)
	}
	if _, _, err := m.joinLobby(p2, "b"); err != nil {
		t.Fatalf("joinLobby b: %v", err)
	}

	if err := m.startGame(); err != nil {
		t.Fatalf("startGame: %v", err)
	}
	defer m.scheduler.Shutdown()

	p3 := newPlayerSession(m, nil)
	if _, _, err := m.joinLobby(p3, "late"); err != engine.ErrMatchRunning {
		t.Errorf("joinLobby after start = %v, want ErrMatchRunning", err)
	}
}

func TestMultiplexerPlayerLeftUnregistersAndFreesLobbySlot(t *testing.T) {
	m := NewMultiplexer(20, 20)
	p := newPlayerSession(m, nil)
	snake, _, err := m.joinLobby(p, "alice")
	if err != nil {
		t.Fatalf("joinLobby: %v", err)
	}

	m.playerLeft(snake.PlayerID)

	m.mu.Lock()
	_, stillRegistered := m.players[snake.PlayerID]
	m.mu.Unlock()
	if stillRegistered {
		t.Error("playerLeft should unregister the session")
	}

	// The lobby slot should be free again: a second join should succeed and
	// the old player_id should be gone from a snapshot.
	p2 := newPlayerSession(m, nil)
	_, state, err := m.joinLobby(p2, "bob")
	if err != nil {
		t.Fatalf("joinLobby after leave: %v", err)
	}
	if _, ok := state.Snakes[snake.PlayerID]; ok {
		t.Error("a pre-match leave should remove the snake from the lobby roster")
	}
}

func TestMultiplexerSubmitMoveFeedsTheMoveTable(t *testing.T) {
	m := NewMultiplexer(20, 20)
	p := newPlayerSession(m, nil)
	snake, _, err := m.joinLobby(p, "alice")
	if err != nil {
		t.Fatalf("joinLobby: %v", err)
	}

	m.submitMove(snake.PlayerID, engine.Left)

	moves := m.moves.Drain()
	if moves[snake.PlayerID] != engine.Left {
		t.Errorf("drained move = %v, want Left", moves[snake.PlayerID])
	}
}

func TestMultiplexerBroadcastStateFansOutToPlayersAndSpectators(t *testing.T) {
	m := NewMultiplexer(20, 20)
	p := newPlayerSession(m, nil)
	if _, _, err := m.joinLobby(p, "alice"); err != nil {
		t.Fatalf("joinLobby: %v", err)
	}
	spec := newSpectatorSession(m, nil)
	m.mu.Lock()
	m.spectators[spec] = struct{}{}
	m.mu.Unlock()

	state := m.eng.Snapshot()
	m.BroadcastState(state)

	payloads := p.queue.popAll()
	if len(payloads) != 1 {
		t.Fatalf("player queue has %d payloads, want 1", len(payloads))
	}
	var env envelope
	if err := json.Unmarshal(payloads[0], &env); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if env.Type != typeGameUpdate {
		t.Errorf("broadcast type = %q, want %q", env.Type, typeGameUpdate)
	}

	specPayloads := spec.queue.popAll()
	if len(specPayloads) != 1 {
		t.Fatalf("spectator queue has %d payloads, want 1", len(specPayloads))
	}

	if m.Stats().TotalCount != 1 {
		t.Errorf("Stats().TotalCount = %d, want 1", m.Stats().TotalCount)
	}
}

func TestMultiplexerMatchStateReflectsScheduler(t *testing.T) {
	m := NewMultiplexer(20, 20)
	if m.MatchState() != match.Idle.String() {
		t.Errorf("MatchState() = %q, want %q", m.MatchState(), match.Idle.String())
	}

	p1 := newPlayerSession(m, nil)
	p2 := newPlayerSession(m, nil)
	m.joinLobby(p1, "a")
	m.joinLobby(p2, "b")
	if err := m.startGame(); err != nil {
		t.Fatalf("startGame: %v", err)
	}
	defer m.scheduler.Shutdown()

	deadline := time.Now().Add(time.Second)
	for m.MatchState() != match.Running.String() && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if m.MatchState() != match.Running.String() {
		t.Errorf("MatchState() after startGame = %q, want %q", m.MatchState(), match.Running.String())
	}
}
