// Package app wires the engine, scheduler, and session packages into a
// runnable HTTP/WebSocket process: static file serving, the /play and
// /spectate upgrade endpoints, and a /stats + /dashboard operator view.
//
// Grounded on the teacher's engine.Server (engine/server.go): same
// Start/ListenAndServe/Stop shape, same setupMux layout, repointed at a
// lobby-and-match server instead of a single continuous arena.
package app

import (
	"fmt"
	"log"
	"net"
	"net/http"

	"snakearena.live/config"
	"snakearena.live/session"
)

// Version is the server build version reported on the dashboard.
var Version = "1.0.0"

// Server wraps a session.Multiplexer with an HTTP server.
type Server struct {
	cfg config.Config
	mux *session.Multiplexer

	httpServer *http.Server
	listener   net.Listener
}

// New creates a server for the given configuration. It does not start
// listening until Start or ListenAndServe is called.
func New(cfg config.Config) *Server {
	return &Server{
		cfg: cfg,
		mux: session.NewMultiplexer(cfg.GridWidth, cfg.GridHeight),
	}
}

func (s *Server) setupMux() *http.ServeMux {
	mux := http.NewServeMux()

	staticDir := s.cfg.StaticDir
	if staticDir != "" {
		mux.Handle("/", http.FileServer(http.Dir(staticDir)))
	}

	mux.HandleFunc("/play", s.mux.ServePlayer)
	mux.HandleFunc("/spectate", s.mux.ServeSpectator)

	mux.HandleFunc("/stats", s.handleStats)
	mux.HandleFunc("/dashboard", s.handleDashboard)

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	return mux
}

func (s *Server) logStartup(addr string) {
	log.Printf("SnakeArena server v%s starting...", Version)
	log.Printf("Listening on http://%s", addr)
	log.Printf("Player endpoint:    ws://%s/play", addr)
	log.Printf("Spectator endpoint: ws://%s/spectate", addr)
	log.Printf("Dashboard: http://%s/dashboard", addr)
}

// Start starts the HTTP server in the background (non-blocking). The match
// scheduler is driven entirely by the multiplexer's own goroutines and a
// StartGame message — there is no separate loop to launch here.
func (s *Server) Start() error {
	addr := fmt.Sprintf("0.0.0.0:%d", s.cfg.Port)
	s.httpServer = &http.Server{Addr: addr, Handler: s.setupMux()}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.listener = ln

	s.logStartup(addr)

	go s.httpServer.Serve(ln)
	return nil
}

// ListenAndServe starts the HTTP server and blocks until it returns an
// error (including a clean Stop).
func (s *Server) ListenAndServe() error {
	addr := fmt.Sprintf("0.0.0.0:%d", s.cfg.Port)
	s.httpServer = &http.Server{Addr: addr, Handler: s.setupMux()}

	s.logStartup(addr)

	return s.httpServer.ListenAndServe()
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop() error {
	if s.httpServer != nil {
		return s.httpServer.Close()
	}
	return nil
}

// GetStatsJSON returns the current match stats as a JSON string, for
// embedders that want the numbers without standing up an HTTP client
// (spec.md's mobile bindings; see the mobile package).
func (s *Server) GetStatsJSON() string {
	b, err := statsJSON(s.mux)
	if err != nil {
		return "{}"
	}
	return string(b)
}
