package session

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// SpectatorSession is the per-connection protocol machine for a spectator
// (spec.md §4.3): no snake, receives every broadcast, may send StartGame.
type SpectatorSession struct {
	mux  *Multiplexer
	conn *websocket.Conn

	mu        sync.Mutex
	closed    bool
	closeOnce sync.Once

	queue *outboundQueue
	done  chan struct{}
}

func newSpectatorSession(mux *Multiplexer, conn *websocket.Conn) *SpectatorSession {
	return &SpectatorSession{
		mux:   mux,
		conn:  conn,
		queue: newOutboundQueue(spectatorQueueCapacity),
		done:  make(chan struct{}),
	}
}

func (s *SpectatorSession) enqueue(payload []byte) {
	// Spectators never get closed for lag — pure drop-oldest, keep
	// delivering the newest state (spec.md §4.3.2).
	s.queue.push(payload)
}

func (s *SpectatorSession) closeSession(reason string) {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()
		close(s.done)
		s.queue.close()
		_ = s.conn.Close()
		log.Printf("[SESSION] spectator closed (%s)", reason)
	})
}

func (s *SpectatorSession) run() {
	go s.writePump()
	s.readPump()
	s.closeSession("disconnected")
	s.mux.spectatorLeft(s)
}

func (s *SpectatorSession) readPump() {
	s.conn.SetReadLimit(readLimitBytes)
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			return
		}
		s.conn.SetReadDeadline(time.Now().Add(pongWait))
		s.handleInbound(data)
	}
}

func (s *SpectatorSession) handleInbound(data []byte) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		s.sendError("malformed message")
		return
	}
	switch env.Type {
	case typeStartGame:
		if err := s.mux.startGame(); err != nil {
			s.sendError(err.Error())
		}
	default:
		s.sendError("unknown message type: " + env.Type)
	}
}

func (s *SpectatorSession) sendError(message string) {
	s.enqueue(encode(errorOut{Type: typeError, Message: message}))
}

func (s *SpectatorSession) writePump() {
	pingTicker := time.NewTicker(pingInterval)
	defer pingTicker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-s.queue.wakeCh():
			for _, payload := range s.queue.popAll() {
				s.conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := s.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
					return
				}
			}
		case <-pingTicker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
