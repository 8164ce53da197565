package engine

import (
	"fmt"
	"strings"

	"github.com/brensch/cycles/game"
)

// SentinelScore marks a candidate whose destination is blocked. It stays in
// the selection loop but always ranks below every valid candidate.
const SentinelScore = -1000

// OpenSpaceDepth is how far the open-space policy looks ahead.
const OpenSpaceDepth = 5

// Scores holds one desirability score per Direction, indexed by the direction value.
type Scores [4]int

// Max returns the highest score.
func (s Scores) Max() int {
	best := s[0]
	for _, v := range s[1:] {
		if v > best {
			best = v
		}
	}
	return best
}

func (s Scores) String() string {
	parts := make([]string, len(s))
	for i, d := range game.Directions {
		parts[i] = fmt.Sprintf("%s=%d", d, s[d])
	}
	return strings.Join(parts, " ")
}

// Input is everything a policy may look at for one tick.
type Input struct {
	Grid    game.GridView
	Self    game.Position
	Name    string
	Players []game.Player
	Visited *VisitedMemory
}

func (in Input) valid(d game.Direction) bool {
	return in.Grid.IsFree(in.Self.Add(d))
}

// Policy scores all four candidate directions.
type Policy interface {
	Score(in Input) Scores
}

// OpenSpaceDepthScoring scores each direction by how many free cells lie
// straight ahead, up to OpenSpaceDepth.
type OpenSpaceDepthScoring struct{}

func (OpenSpaceDepthScoring) Score(in Input) Scores {
	var scores Scores
	for _, d := range game.Directions {
		scores[d] = depth(in.Grid, in.Self, d)
	}
	return scores
}

func depth(grid game.GridView, from game.Position, d game.Direction) int {
	steps := 0
	next := from
	for i := 0; i < OpenSpaceDepth; i++ {
		next = next.Add(d)
		if !grid.IsFree(next) {
			break
		}
		steps++
	}
	return steps
}

// ThreatAvoidanceScoring flees towards the opposite corner while an opponent
// is within Radius and otherwise behaves like OpenSpaceDepthScoring.
type ThreatAvoidanceScoring struct {
	Radius int
}

// Threatened reports whether flee mode applies to in.
func (p ThreatAvoidanceScoring) Threatened(in Input) bool {
	return NearbyOpponent(in.Self, in.Players, in.Name, p.Radius)
}

func (p ThreatAvoidanceScoring) Score(in Input) Scores {
	if !p.Threatened(in) {
		return OpenSpaceDepthScoring{}.Score(in)
	}
	return p.Flee(in)
}

// Flee scores each valid direction by negative distance from its destination
// to the cell opposite the agent.
func (ThreatAvoidanceScoring) Flee(in Input) Scores {
	target := OppositeCorner(in.Self, in.Grid.Width(), in.Grid.Height())
	var scores Scores
	for _, d := range game.Directions {
		if !in.valid(d) {
			scores[d] = SentinelScore
			continue
		}
		scores[d] = -in.Self.Add(d).Manhattan(target)
	}
	return scores
}

const (
	visitedPenalty = 10
	crowdPenalty   = 20
	borderMargin   = 5
)

// VisitedAndBorderPenaltyScoring starts every direction at zero and subtracts
// for revisiting a cell, for crowding an opponent within CrowdRadius of the
// destination, and for hugging the border.
type VisitedAndBorderPenaltyScoring struct {
	CrowdRadius int
}

func (p VisitedAndBorderPenaltyScoring) Score(in Input) Scores {
	var scores Scores
	w, h := in.Grid.Width(), in.Grid.Height()
	for _, d := range game.Directions {
		if !in.valid(d) {
			scores[d] = SentinelScore
			continue
		}
		dest := in.Self.Add(d)
		score := 0
		if in.Visited.Visited(dest) {
			score -= visitedPenalty
		}
		for _, pl := range in.Players {
			if isOpponent(pl, in.Name) && dest.Manhattan(pl.Position) <= p.CrowdRadius {
				score -= crowdPenalty
			}
		}
		if clearance := borderClearance(dest, w, h); clearance < borderMargin {
			score -= borderMargin - clearance
		}
		scores[d] = score
	}
	return scores
}

// borderClearance is the distance from p to the nearest grid edge.
func borderClearance(p game.Position, w, h int) int {
	c := p.X
	if v := p.Y; v < c {
		c = v
	}
	if v := w - 1 - p.X; v < c {
		c = v
	}
	if v := h - 1 - p.Y; v < c {
		c = v
	}
	return c
}
