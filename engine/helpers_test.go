package engine

import (
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/brensch/cycles/game"
)

var quietLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// board builds a state from rows of text: '.' free, '#' occupied,
// letters are players (their cell is occupied as well).
func board(t *testing.T, rows ...string) *game.GameState {
	t.Helper()
	s := game.NewGameState(len(rows[0]), len(rows))
	for y, row := range rows {
		if len(row) != s.W {
			t.Fatalf("row %d has width %d want %d", y, len(row), s.W)
		}
		for x, c := range row {
			p := game.Position{X: x, Y: y}
			switch {
			case c == '.':
			case c == '#':
				s.Occupy(p, 0xFE)
			default:
				s.Players = append(s.Players, game.Player{Name: string(c), Position: p, Alive: true})
				s.Occupy(p, uint8(len(s.Players)))
			}
		}
	}
	return s
}

func dump(state *game.GameState) string {
	var sb strings.Builder
	for y := 0; y < state.H; y++ {
		for x := 0; x < state.W; x++ {
			if state.IsFree(game.Position{X: x, Y: y}) {
				sb.WriteByte('.')
			} else {
				sb.WriteByte('#')
			}
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

func newEngine(t *testing.T, name string, kind PolicyKind) *Engine {
	t.Helper()
	seed := int64(1)
	cfg := DefaultConfig(name)
	cfg.Policy = kind
	cfg.Seed = &seed
	cfg.Logger = quietLogger
	e, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return e
}

func inputFor(state *game.GameState, name string) Input {
	me, _ := state.Player(name)
	return Input{
		Grid:    state,
		Self:    me.Position,
		Name:    name,
		Players: state.Players,
		Visited: NewVisitedMemory(),
	}
}
