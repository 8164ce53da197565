package selfplay

import (
	"fmt"
	"strings"

	"github.com/brensch/cycles/game"
)

// RenderBoard draws trails as '#', living heads as the first letter of the
// player's name in upper case and dead heads in lower case.
func RenderBoard(state *game.GameState) string {
	grid := make([][]byte, state.H)
	for y := range grid {
		grid[y] = make([]byte, state.W)
		for x := range grid[y] {
			if state.IsFree(game.Position{X: x, Y: y}) {
				grid[y][x] = '.'
			} else {
				grid[y][x] = '#'
			}
		}
	}

	for _, p := range state.Players {
		if !state.InBounds(p.Position) {
			continue
		}
		mark := byte('?')
		if p.Name != "" {
			mark = p.Name[0]
		}
		if p.Alive {
			mark = strings.ToUpper(string(mark))[0]
		} else {
			mark = strings.ToLower(string(mark))[0]
		}
		grid[p.Position.Y][p.Position.X] = mark
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("=== Tick %d ===\n", state.Tick))
	for _, row := range grid {
		sb.Write(row)
		sb.WriteByte('\n')
	}
	for _, p := range state.Players {
		status := "alive"
		if !p.Alive {
			status = "dead"
		}
		sb.WriteString(fmt.Sprintf("%s: (%d,%d) %s\n", p.Name, p.Position.X, p.Position.Y, status))
	}
	return sb.String()
}
