package session

import (
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"snakearena.live/engine"
	"snakearena.live/match"
)

// upgrader is permissive about Origin; this server is meant to sit behind
// whatever reverse proxy terminates TLS and enforces CORS policy for the
// hosting deployment, same posture the teacher takes in engine/network.go.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type joinRequest struct {
	name  string
	reply chan joinResult
}

type joinResult struct {
	snake *engine.Snake
	state *engine.GameState
	err   error
}

type leaveRequest struct {
	id    engine.PlayerID
	reply chan *engine.GameState // nil if the match was already running
}

type startRequest struct {
	reply chan error
}

// Multiplexer is the single point of contact between session goroutines and
// the engine/scheduler pair. It generalizes spec.md §9's guidance away from
// "shared mutable world via locked references": the engine is touched by
// exactly one goroutine at a time — this type's own lobby loop while the
// match is Idle, the scheduler's tick loop once Running — handed off via
// the loop and scheduler.Start(), never concurrently. The only state this
// type itself locks is the session roster (players/spectators), which join,
// leave, and broadcast genuinely do share across goroutines.
//
// Grounded on the teacher's Game type: players map[int]*Player behind
// joinCh/leaveCh/statsReqCh channels drained by one loop() goroutine
// (engine/server.go), generalized here from a single continuous-physics
// arena to the lobby/match split spec.md describes.
type Multiplexer struct {
	eng       *engine.Engine
	moves     *engine.MoveTable
	scheduler *match.Scheduler

	joinCh  chan joinRequest
	leaveCh chan leaveRequest
	startCh chan startRequest

	mu         sync.Mutex
	players    map[engine.PlayerID]*PlayerSession
	spectators map[*SpectatorSession]struct{}

	statsMu   sync.Mutex
	lastStats engine.Stats
}

// NewMultiplexer builds a fresh lobby for a Width x Height match and starts
// its lobby loop goroutine.
func NewMultiplexer(width, height int) *Multiplexer {
	eng := engine.New(width, height)
	m := &Multiplexer{
		eng:        eng,
		moves:      engine.NewMoveTable(),
		joinCh:     make(chan joinRequest),
		leaveCh:    make(chan leaveRequest, engine.MaxPlayers),
		startCh:    make(chan startRequest),
		players:    make(map[engine.PlayerID]*PlayerSession),
		spectators: make(map[*SpectatorSession]struct{}),
		lastStats:  eng.Stats(),
	}
	m.scheduler = match.NewScheduler(eng, m.moves, m)
	go m.loop()
	return m
}

// loop is the sole owner of m.eng while the match is Idle. It serializes
// joins, pre-match leaves, and the Idle->Running transition so none of them
// ever race the scheduler's own tick goroutine once started.
func (m *Multiplexer) loop() {
	for {
		select {
		case req := <-m.joinCh:
			if m.scheduler.State() != match.Idle {
				req.reply <- joinResult{err: engine.ErrMatchRunning}
				continue
			}
			snake, err := m.eng.SpawnSnake(req.name)
			if err != nil {
				req.reply <- joinResult{err: err}
				continue
			}
			m.updateStats(m.eng.Stats())
			req.reply <- joinResult{snake: snake, state: m.eng.Snapshot()}

		case req := <-m.leaveCh:
			if m.scheduler.State() != match.Idle {
				req.reply <- nil
				continue
			}
			m.eng.RemoveSnake(req.id)
			m.updateStats(m.eng.Stats())
			req.reply <- m.eng.Snapshot()

		case req := <-m.startCh:
			req.reply <- m.scheduler.Start()
		}
	}
}

// joinLobby spawns a snake for name and registers p as its owning session.
func (m *Multiplexer) joinLobby(p *PlayerSession, name string) (*engine.Snake, *engine.GameState, error) {
	reply := make(chan joinResult, 1)
	m.joinCh <- joinRequest{name: name, reply: reply}
	res := <-reply
	if res.err != nil {
		return nil, nil, res.err
	}

	m.mu.Lock()
	m.players[res.snake.PlayerID] = p
	m.mu.Unlock()

	return res.snake, res.state, nil
}

// playerLeft unregisters a disconnected player. Mid-match, spec.md §4.3.1
// keeps the snake on the grid (no engine call); pre-match, it frees the
// lobby slot.
func (m *Multiplexer) playerLeft(id engine.PlayerID) {
	m.mu.Lock()
	delete(m.players, id)
	m.mu.Unlock()

	reply := make(chan *engine.GameState, 1)
	m.leaveCh <- leaveRequest{id: id, reply: reply}
	if state := <-reply; state != nil {
		m.broadcastLobbyState(state)
	}
}

// spectatorLeft unregisters a disconnected spectator. Spectators have no
// engine footprint, so this never touches the engine.
func (m *Multiplexer) spectatorLeft(s *SpectatorSession) {
	m.mu.Lock()
	delete(m.spectators, s)
	m.mu.Unlock()
}

// submitMove records a player's move for the next tick. A submission from a
// dead or nonexistent player is harmless: the scheduler only ever reads
// entries for currently alive snakes when resolving a tick (spec.md §4.2
// "A SubmitMove from a dead player is silently ignored").
func (m *Multiplexer) submitMove(id engine.PlayerID, dir engine.Direction) {
	m.moves.Put(id, dir)
}

// startGame requests the Idle->Running transition.
func (m *Multiplexer) startGame() error {
	reply := make(chan error, 1)
	m.startCh <- startRequest{reply: reply}
	return <-reply
}

// Stats reports the most recently observed counters. It is safe to call
// from any goroutine at any time: both writers (the lobby loop pre-match,
// BroadcastState/BroadcastTerminal mid- and post-match) publish through the
// same small mutex rather than reading engine internals directly.
func (m *Multiplexer) Stats() engine.Stats {
	m.statsMu.Lock()
	defer m.statsMu.Unlock()
	return m.lastStats
}

// MatchState reports the scheduler's current phase as a string, for
// operator-facing views (spec.md §5's Idle/Running/Halted states).
func (m *Multiplexer) MatchState() string {
	return m.scheduler.State().String()
}

func (m *Multiplexer) updateStats(s engine.Stats) {
	m.statsMu.Lock()
	m.lastStats = s
	m.statsMu.Unlock()
}

func statsFromState(state *engine.GameState) engine.Stats {
	return engine.Stats{
		Tick:       state.Tick,
		AliveCount: state.AliveCount(),
		TotalCount: len(state.Snakes),
		Winner:     state.Winner,
	}
}

// BroadcastState implements match.Broadcaster. Called from the scheduler's
// own tick goroutine, which is the engine's sole owner while running —
// state is already an immutable snapshot (spec.md §4.3.2 "serialized once
// per broadcast").
func (m *Multiplexer) BroadcastState(state *engine.GameState) {
	m.updateStats(statsFromState(state))
	payload := encode(gameUpdateOut{Type: typeGameUpdate, GameState: newWireGameState(state)})
	m.fanout(payload)
}

// BroadcastTerminal implements match.Broadcaster, sent once when the match
// halts (spec.md §4.1.1 step 8/9).
func (m *Multiplexer) BroadcastTerminal(state *engine.GameState, winner *engine.PlayerID) {
	m.updateStats(statsFromState(state))
	var winnerID *string
	if winner != nil {
		w := winner.String()
		winnerID = &w
	}
	payload := encode(gameEndedOut{Type: typeGameEnded, WinnerID: winnerID, GameState: newWireGameState(state)})
	m.fanout(payload)
}

func (m *Multiplexer) broadcastLobbyState(state *engine.GameState) {
	order := state.JoinOrder()
	players := make([]lobbyPlayerView, 0, len(order))
	for _, id := range order {
		s := state.Snakes[id]
		players = append(players, lobbyPlayerView{ID: id.String(), Name: s.Name, Color: s.Color})
	}
	payload := encode(lobbyStateOut{Type: typeLobbyState, Players: players})
	m.fanout(payload)
}

func (m *Multiplexer) fanout(payload []byte) {
	m.mu.Lock()
	players := make([]*PlayerSession, 0, len(m.players))
	for _, p := range m.players {
		players = append(players, p)
	}
	specs := make([]*SpectatorSession, 0, len(m.spectators))
	for s := range m.spectators {
		specs = append(specs, s)
	}
	m.mu.Unlock()

	for _, p := range players {
		p.enqueue(payload)
	}
	for _, s := range specs {
		s.enqueue(payload)
	}
}

// ServePlayer upgrades r into a player session. Connections arriving while
// a match is already Running or Halted are refused before upgrade (spec.md
// §7 "a client that connects to a running match as a player is refused
// with InvalidJoin").
func (m *Multiplexer) ServePlayer(w http.ResponseWriter, r *http.Request) {
	if m.scheduler.State() != match.Idle {
		http.Error(w, "InvalidJoin: match already running", http.StatusConflict)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[SESSION] player upgrade failed: %v", err)
		return
	}

	p := newPlayerSession(m, conn)
	go p.run()
}

// ServeSpectator upgrades r into a spectator session. Spectators are
// accepted regardless of match phase (spec.md §7).
func (m *Multiplexer) ServeSpectator(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[SESSION] spectator upgrade failed: %v", err)
		return
	}

	s := newSpectatorSession(m, conn)
	m.mu.Lock()
	m.spectators[s] = struct{}{}
	m.mu.Unlock()
	go s.run()
}
