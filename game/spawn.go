// spawn.go implements starting placement for light-cycle games.

package game

import (
	"fmt"
	"math/rand"
)

// SpawnPlayers places one alive player per name on distinct free cells and
// marks each starting cell with the player's occupant id (index+1).
// If rng is nil, we use deterministic pseudo-random logic seeded by salt.
func SpawnPlayers(state *GameState, names []string, rng *rand.Rand, salt uint64) error {
	if len(names) > 0xFE {
		return fmt.Errorf("too many players: %d", len(names))
	}

	for i, name := range names {
		freeSpots := make([]Position, 0, len(state.Cells))
		for y := 0; y < state.H; y++ {
			for x := 0; x < state.W; x++ {
				p := Position{X: x, Y: y}
				if state.IsFree(p) && !nearPlayer(state, p) {
					freeSpots = append(freeSpots, p)
				}
			}
		}
		if len(freeSpots) == 0 {
			return fmt.Errorf("no room to spawn %s", name)
		}

		var idx int
		if rng != nil {
			idx = rng.Intn(len(freeSpots))
		} else {
			idx = int(deterministicU64Fast(uint64(i), salt) % uint64(len(freeSpots)))
		}
		p := freeSpots[idx]
		state.Occupy(p, uint8(i+1))
		state.Players = append(state.Players, Player{Name: name, Position: p, Alive: true})
	}
	return nil
}

// nearPlayer keeps spawns off cells adjacent to an existing player so
// nobody starts boxed in by a neighbour's first move.
func nearPlayer(state *GameState, p Position) bool {
	for _, pl := range state.Players {
		if pl.Position.Manhattan(p) <= 1 {
			return true
		}
	}
	return false
}

// deterministicU64Fast is a simple deterministic hasher for reproducibility.
func deterministicU64Fast(a, b uint64) uint64 {
	// Variant of splitmix64
	x := a + b
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	return x ^ (x >> 31)
}
