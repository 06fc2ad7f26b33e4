// Package session implements the per-connection protocol machine for
// player and spectator sessions: lifecycle, inbound message routing,
// outbound broadcast fan-out with back-pressure (spec.md §4.3).
package session

import (
	"encoding/json"

	"snakearena.live/engine"
)

// Inbound message type discriminators (spec.md §6).
const (
	typeJoinLobby  = "JoinLobby"
	typeSubmitMove = "SubmitMove"
	typeStartGame  = "StartGame"
)

// Outbound message type discriminators (spec.md §6).
const (
	typeLobbyJoined = "LobbyJoined"
	typeLobbyState  = "LobbyState"
	typeGameUpdate  = "GameUpdate"
	typeMoveRequest = "MoveRequest"
	typeGameEnded   = "GameEnded"
	typeError       = "Error"
)

// envelope peels off just the type discriminator so the router can decide
// which concrete struct to unmarshal into.
type envelope struct {
	Type string `json:"type"`
}

type joinLobbyIn struct {
	Type       string `json:"type"`
	PlayerName string `json:"player_name"`
}

type submitMoveIn struct {
	Type      string `json:"type"`
	Direction string `json:"direction"`
}

// wirePosition is the JSON form of engine.Position.
type wirePosition struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func toWirePosition(p engine.Position) wirePosition {
	return wirePosition{X: p.X, Y: p.Y}
}

type wireSnake struct {
	Name   string         `json:"name"`
	Color  string         `json:"color"`
	Body   []wirePosition `json:"body"`
	Length int            `json:"length"`
	Alive  bool           `json:"alive"`
}

// wireGameState is the "GameState wire shape" of spec.md §6.
type wireGameState struct {
	Snakes     map[string]wireSnake `json:"snakes"`
	Fruits     []wirePosition       `json:"fruits"`
	Tick       int                  `json:"tick"`
	IsRunning  bool                 `json:"is_running"`
	Winner     *string              `json:"winner"`
	GridWidth  int                  `json:"grid_width"`
	GridHeight int                  `json:"grid_height"`
}

func newWireGameState(gs *engine.GameState) wireGameState {
	snakes := make(map[string]wireSnake, len(gs.Snakes))
	for id, s := range gs.Snakes {
		body := make([]wirePosition, len(s.Body))
		for i, p := range s.Body {
			body[i] = toWirePosition(p)
		}
		snakes[id.String()] = wireSnake{
			Name:   s.Name,
			Color:  s.Color,
			Body:   body,
			Length: s.Length(),
			Alive:  s.Alive,
		}
	}

	fruits := gs.Fruits()
	wireFruits := make([]wirePosition, len(fruits))
	for i, f := range fruits {
		wireFruits[i] = toWirePosition(f)
	}

	var winner *string
	if gs.Winner != nil {
		w := gs.Winner.String()
		winner = &w
	}

	return wireGameState{
		Snakes:     snakes,
		Fruits:     wireFruits,
		Tick:       gs.Tick,
		IsRunning:  gs.Running,
		Winner:     winner,
		GridWidth:  gs.Width,
		GridHeight: gs.Height,
	}
}

type lobbyPlayerView struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

type lobbyJoinedOut struct {
	Type      string        `json:"type"`
	PlayerID  string        `json:"player_id"`
	GameState wireGameState `json:"game_state"`
}

type lobbyStateOut struct {
	Type    string            `json:"type"`
	Players []lobbyPlayerView `json:"players"`
}

type gameUpdateOut struct {
	Type      string        `json:"type"`
	GameState wireGameState `json:"game_state"`
}

type moveRequestOut struct {
	Type            string   `json:"type"`
	ValidDirections []string `json:"valid_directions"`
	TimeLimitMs     int      `json:"time_limit_ms"`
}

type gameEndedOut struct {
	Type      string        `json:"type"`
	WinnerID  *string       `json:"winner_id"`
	GameState wireGameState `json:"game_state"`
}

type errorOut struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func encode(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		// Every outbound type here is a plain struct of strings/ints/maps;
		// a Marshal failure would be a programmer error, not a runtime one.
		panic(err)
	}
	return b
}

func directionNames(dirs []engine.Direction) []string {
	out := make([]string, len(dirs))
	for i, d := range dirs {
		out[i] = d.String()
	}
	return out
}
