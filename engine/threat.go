package engine

import "github.com/brensch/cycles/game"

const (
	// DefaultThreatRadius triggers flee mode in the threat-aware policy.
	DefaultThreatRadius = 3
	// DefaultCrowdRadius is the destination radius penalised by the visited-border policy.
	DefaultCrowdRadius = 2
)

// isOpponent skips the agent itself and players already knocked out.
func isOpponent(p game.Player, selfName string) bool {
	return p.Name != selfName && p.Alive
}

// NearbyOpponent reports whether any opponent is within radius (Manhattan) of self.
func NearbyOpponent(self game.Position, players []game.Player, selfName string, radius int) bool {
	for _, p := range players {
		if isOpponent(p, selfName) && self.Manhattan(p.Position) <= radius {
			return true
		}
	}
	return false
}

// NearestOpponent returns the closest opponent's position. Ties go to the
// earliest player in the slice. ok is false when there are no opponents.
func NearestOpponent(self game.Position, players []game.Player, selfName string) (pos game.Position, ok bool) {
	best := -1
	for _, p := range players {
		if !isOpponent(p, selfName) {
			continue
		}
		d := self.Manhattan(p.Position)
		if best < 0 || d < best {
			best = d
			pos = p.Position
			ok = true
		}
	}
	return pos, ok
}

// OppositeCorner reflects self through the centre of a width x height grid.
func OppositeCorner(self game.Position, width, height int) game.Position {
	return game.Position{X: width - 1 - self.X, Y: height - 1 - self.Y}
}
