package engine

import "github.com/brensch/cycles/game"

// SelectMove returns the highest scoring direction whose destination is
// valid. Candidates are tried best first; a blocked candidate is dropped and
// the next best is tried, so at most four candidates are examined. Equal
// scores resolve in Direction order (north, east, south, west).
func SelectMove(scores Scores, valid func(game.Direction) bool) (game.Direction, error) {
	var dropped [4]bool
	for range game.Directions {
		best := -1
		for _, d := range game.Directions {
			if dropped[d] {
				continue
			}
			if best < 0 || scores[d] > scores[best] {
				best = int(d)
			}
		}
		choice := game.Direction(best)
		if valid(choice) {
			return choice, nil
		}
		dropped[choice] = true
	}
	return game.North, ErrNoLegalMove
}
