package session

import (
	"encoding/json"
	"log"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/gorilla/websocket"

	"snakearena.live/engine"
	"snakearena.live/match"
)

const (
	readLimitBytes = 4096
	pongWait       = 60 * time.Second
	pingInterval   = 30 * time.Second
	writeWait      = 5 * time.Second
)

// playerLifecycle tracks spec.md §4.3.1's per-player state machine:
// Connecting -> Joined (in Lobby) -> Playing (alive) -> Observing (dead) ->
// Closed. Playing vs. Observing is read live from the snake's Alive flag
// in the engine rather than duplicated here; only the join/close edges
// need session-local state.
type playerLifecycle int

const (
	lifecycleConnecting playerLifecycle = iota
	lifecycleJoined
	lifecycleClosed
)

// PlayerSession is the per-connection protocol machine for a player
// (spec.md §4.3). It owns an outbound queue and runs independent
// inbound/outbound pumps sharing no mutable state beyond the queue and a
// close flag (spec.md §4.3.3).
type PlayerSession struct {
	mux  *Multiplexer
	conn *websocket.Conn
	name string

	mu        sync.Mutex
	lifecycle playerLifecycle
	id        engine.PlayerID // zero until JoinLobby succeeds

	queue     *outboundQueue
	done      chan struct{}
	closeOnce sync.Once
}

func newPlayerSession(mux *Multiplexer, conn *websocket.Conn) *PlayerSession {
	return &PlayerSession{
		mux:       mux,
		conn:      conn,
		lifecycle: lifecycleConnecting,
		queue:     newOutboundQueue(playerQueueCapacity),
		done:      make(chan struct{}),
	}
}

func (p *PlayerSession) enqueue(payload []byte) {
	if p.queue.push(payload) {
		p.closeSession("lagged")
	}
}

func (p *PlayerSession) closeSession(reason string) {
	p.closeOnce.Do(func() {
		p.mu.Lock()
		p.lifecycle = lifecycleClosed
		p.mu.Unlock()
		close(p.done)
		p.queue.close()
		_ = p.conn.Close()
		log.Printf("[SESSION] player %s closed (%s)", p.name, reason)
	})
}

func (p *PlayerSession) playerID() (engine.PlayerID, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.lifecycle == lifecycleConnecting || p.lifecycle == lifecycleClosed {
		return engine.PlayerID{}, false
	}
	return p.id, true
}

// run drives the session until the connection closes: starts the writer,
// then blocks in the reader.
func (p *PlayerSession) run() {
	go p.writePump()
	p.readPump()

	p.closeSession("disconnected")
	if id, ok := p.playerID(); ok {
		p.mux.playerLeft(id)
	}
}

func (p *PlayerSession) readPump() {
	p.conn.SetReadLimit(readLimitBytes)
	p.conn.SetReadDeadline(time.Now().Add(pongWait))
	p.conn.SetPongHandler(func(string) error {
		p.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := p.conn.ReadMessage()
		if err != nil {
			return
		}
		p.conn.SetReadDeadline(time.Now().Add(pongWait))
		p.handleInbound(data)
	}
}

func (p *PlayerSession) handleInbound(data []byte) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		p.sendError("malformed message")
		return
	}

	switch env.Type {
	case typeJoinLobby:
		p.handleJoinLobby(data)
	case typeSubmitMove:
		p.handleSubmitMove(data)
	default:
		p.sendError("unknown message type: " + env.Type)
	}
}

func (p *PlayerSession) handleJoinLobby(data []byte) {
	p.mu.Lock()
	if p.lifecycle != lifecycleConnecting {
		p.mu.Unlock()
		p.sendError("InvalidJoin: duplicate join on this connection")
		return
	}
	p.mu.Unlock()

	var in joinLobbyIn
	if err := json.Unmarshal(data, &in); err != nil {
		p.sendError("malformed JoinLobby")
		return
	}
	name, ok := validatePlayerName(in.PlayerName)
	if !ok {
		p.sendError("InvalidJoin: missing or invalid player_name")
		return
	}

	snake, state, err := p.mux.joinLobby(p, name)
	if err != nil {
		p.sendError("InvalidJoin: " + err.Error())
		return
	}

	p.mu.Lock()
	p.id = snake.PlayerID
	p.name = snake.Name
	p.lifecycle = lifecycleJoined
	p.mu.Unlock()

	p.enqueue(encode(lobbyJoinedOut{
		Type:      typeLobbyJoined,
		PlayerID:  snake.PlayerID.String(),
		GameState: newWireGameState(state),
	}))
	p.mux.broadcastLobbyState(state)
}

func (p *PlayerSession) handleSubmitMove(data []byte) {
	id, ok := p.playerID()
	if !ok {
		p.sendError("ProtocolViolation: SubmitMove before JoinLobby")
		return
	}

	var in submitMoveIn
	if err := json.Unmarshal(data, &in); err != nil {
		p.sendError("malformed SubmitMove")
		return
	}
	dir, ok := engine.ParseDirection(in.Direction)
	if !ok {
		p.sendError("ProtocolViolation: unparseable direction")
		return
	}

	// Silently ignored if not alive or match not running (spec.md §4.3).
	if p.mux.scheduler.State() != match.Running {
		return
	}
	p.mux.submitMove(id, dir)
}

func (p *PlayerSession) sendError(message string) {
	p.enqueue(encode(errorOut{Type: typeError, Message: message}))
}

func (p *PlayerSession) writePump() {
	pingTicker := time.NewTicker(pingInterval)
	defer pingTicker.Stop()

	for {
		select {
		case <-p.done:
			return
		case <-p.queue.wakeCh():
			for _, payload := range p.queue.popAll() {
				p.conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := p.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
					return
				}
			}
		case <-pingTicker.C:
			p.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := p.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// validatePlayerName enforces spec.md §6: UTF-8, 1-32 characters, no
// leading/trailing whitespace.
func validatePlayerName(name string) (string, bool) {
	n := utf8.RuneCountInString(name)
	if n < 1 || n > 32 {
		return "", false
	}
	if strings.TrimSpace(name) != name {
		return "", false
	}
	return name, true
}
