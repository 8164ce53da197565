// Package rules implements light-cycle movement and collision rules.
//
// Every alive player moves one cell per tick and leaves a permanent trail.
// Leaving the grid, entering an occupied cell, or sharing a destination with
// another player is fatal.
package rules

import (
	"github.com/brensch/cycles/game"
)

// LegalMoves returns the moves that keep the named player alive this tick,
// ignoring what opponents do.
func LegalMoves(state *game.GameState, name string) []game.Direction {
	you, ok := state.Player(name)
	if !ok || !you.Alive {
		return []game.Direction{}
	}

	moves := []game.Direction{}
	for _, d := range game.Directions {
		if state.IsFree(you.Position.Add(d)) {
			moves = append(moves, d)
		}
	}
	return moves
}

// Step advances the game state with moves for all players.
// A player without a move is treated as dead.
func Step(state *game.GameState, moves map[string]game.Direction) *game.GameState {
	next := state.Clone()
	next.Tick++

	// 1. Calculate destinations
	dest := make(map[string]game.Position, len(next.Players))
	dead := make(map[string]bool)
	for _, p := range next.Players {
		if !p.Alive {
			continue
		}
		move, ok := moves[p.Name]
		if !ok || !move.Valid() {
			dead[p.Name] = true
			continue
		}
		dest[p.Name] = p.Position.Add(move)
	}

	// 2. Walls and trails are checked against the pre-move grid
	claims := make(map[game.Position]int)
	for name, d := range dest {
		if !state.IsFree(d) {
			dead[name] = true
			continue
		}
		claims[d]++
	}

	// 3. Head-to-head: everyone entering a contested cell dies
	for name, d := range dest {
		if claims[d] > 1 {
			dead[name] = true
		}
	}

	// 4. Apply
	for i := range next.Players {
		p := &next.Players[i]
		if !p.Alive {
			continue
		}
		if dead[p.Name] {
			p.Alive = false
			continue
		}
		p.Position = dest[p.Name]
		next.Occupy(p.Position, uint8(i+1))
	}

	return next
}

// IsGameOver returns true if at most one player is still alive.
func IsGameOver(state *game.GameState) bool {
	return aliveCount(state) <= 1
}

// Winner returns the last player standing, or "" for a draw or an unfinished game.
func Winner(state *game.GameState) string {
	if aliveCount(state) != 1 {
		return ""
	}
	for _, p := range state.Players {
		if p.Alive {
			return p.Name
		}
	}
	return ""
}

func aliveCount(state *game.GameState) int {
	living := 0
	for _, p := range state.Players {
		if p.Alive {
			living++
		}
	}
	return living
}
