package client

import (
	"encoding/json"
	"fmt"

	"github.com/brensch/cycles/game"
)

// Event types on the wire.
const (
	EventJoin     = "join"
	EventMove     = "move"
	EventState    = "state"
	EventGameOver = "game_over"
)

// Event is the envelope for every websocket frame in both directions.
type Event struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type JoinData struct {
	Name string `json:"name"`
}

type MoveData struct {
	Name      string `json:"name"`
	Tick      int    `json:"tick"`
	Direction string `json:"direction"`
}

// StateData is one tick of game state. Cells are row-major, 0 for free.
type StateData struct {
	GameID  string       `json:"game_id,omitempty"`
	Tick    int          `json:"tick"`
	Width   int          `json:"width"`
	Height  int          `json:"height"`
	Cells   []int        `json:"cells"`
	Players []PlayerData `json:"players"`
}

type PlayerData struct {
	Name string `json:"name"`
	X    int    `json:"x"`
	Y    int    `json:"y"`
	// Alive defaults to true when the server omits it.
	Alive *bool `json:"alive,omitempty"`
}

type GameOverData struct {
	Winner string `json:"winner"`
}

// ToGameState validates the frame and converts it to the engine's snapshot type.
func (d StateData) ToGameState() (*game.GameState, error) {
	if d.Width <= 0 || d.Height <= 0 {
		return nil, fmt.Errorf("invalid grid size %dx%d", d.Width, d.Height)
	}
	if len(d.Cells) != d.Width*d.Height {
		return nil, fmt.Errorf("cells=%d want %d for %dx%d grid", len(d.Cells), d.Width*d.Height, d.Width, d.Height)
	}

	state := game.NewGameState(d.Width, d.Height)
	state.Tick = d.Tick
	for i, c := range d.Cells {
		if c < 0 || c > 0xFF {
			return nil, fmt.Errorf("cell %d out of range: %d", i, c)
		}
		state.Cells[i] = uint8(c)
	}

	state.Players = make([]game.Player, len(d.Players))
	for i, p := range d.Players {
		alive := true
		if p.Alive != nil {
			alive = *p.Alive
		}
		state.Players[i] = game.Player{
			Name:     p.Name,
			Position: game.Position{X: p.X, Y: p.Y},
			Alive:    alive,
		}
	}
	return state, nil
}

// StateDataFrom is the inverse of ToGameState.
func StateDataFrom(gameID string, s *game.GameState) StateData {
	d := StateData{
		GameID:  gameID,
		Tick:    s.Tick,
		Width:   s.W,
		Height:  s.H,
		Cells:   make([]int, len(s.Cells)),
		Players: make([]PlayerData, len(s.Players)),
	}
	for i, c := range s.Cells {
		d.Cells[i] = int(c)
	}
	for i, p := range s.Players {
		alive := p.Alive
		d.Players[i] = PlayerData{Name: p.Name, X: p.Position.X, Y: p.Position.Y, Alive: &alive}
	}
	return d
}

// NewEvent wraps data in an envelope.
func NewEvent(typ string, data any) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", typ, err)
	}
	return json.Marshal(Event{Type: typ, Data: raw})
}
