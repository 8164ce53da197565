package engine

import "github.com/brensch/cycles/game"

// PursuitResolver chases the nearest opponent along the axis with the larger
// gap, then the other axis, then falls back to Default. The fallback is
// returned without checking it, so an enclosed agent still gets a move.
type PursuitResolver struct {
	Default game.Direction
}

// Resolve picks a move directly; it does not go through SelectMove.
func (r PursuitResolver) Resolve(in Input) game.Direction {
	target, ok := NearestOpponent(in.Self, in.Players, in.Name)
	if !ok {
		return r.Default
	}

	dx := target.X - in.Self.X
	dy := target.Y - in.Self.Y
	horizontal, hok := towards(dx, game.East, game.West)
	vertical, vok := towards(dy, game.South, game.North)

	// Ties prefer the horizontal axis.
	primary, pok, secondary, sok := horizontal, hok, vertical, vok
	if abs(dy) > abs(dx) {
		primary, pok, secondary, sok = vertical, vok, horizontal, hok
	}

	if pok && in.valid(primary) {
		return primary
	}
	if sok && in.valid(secondary) {
		return secondary
	}
	return r.Default
}

func towards(delta int, pos, neg game.Direction) (game.Direction, bool) {
	switch {
	case delta > 0:
		return pos, true
	case delta < 0:
		return neg, true
	}
	return pos, false
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
