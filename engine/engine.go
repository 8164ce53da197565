// Package engine decides one move per tick for a light-cycle agent.
//
// An Engine owns the agent's small persistent state (inertia counter,
// visited cells, previous heading, last known position) and combines it
// with the tick's snapshot through one of four scoring policies. Decide is
// synchronous and does no I/O; one Engine serves one agent.
package engine

import (
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/brensch/cycles/game"
)

// PolicyKind selects the scoring strategy an Engine is built with.
type PolicyKind string

const (
	PolicyOpenSpace     PolicyKind = "open-space"
	PolicyThreatAware   PolicyKind = "threat-aware"
	PolicyVisitedBorder PolicyKind = "visited-border"
	PolicyPursuit       PolicyKind = "pursuit"
)

// Policies lists every supported kind.
var Policies = []PolicyKind{PolicyOpenSpace, PolicyThreatAware, PolicyVisitedBorder, PolicyPursuit}

func ParsePolicy(s string) (PolicyKind, error) {
	for _, k := range Policies {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown policy %q (want one of %v)", s, Policies)
}

// Config holds engine construction parameters.
type Config struct {
	Name   string
	Policy PolicyKind
	// Seed makes the inertia seed reproducible. Nil uses the clock.
	Seed *int64

	ThreatRadius int
	CrowdRadius  int

	// HoldBonus is added to the previous heading's score while inertia is
	// positive. Zero leaves scores untouched.
	HoldBonus int

	// MaxStaleTicks bounds how many consecutive ticks the agent may be
	// missing from the snapshot before Decide fails. Zero means no bound.
	MaxStaleTicks int

	Logger *slog.Logger
}

// DefaultConfig returns the threat-aware configuration for name.
func DefaultConfig(name string) Config {
	return Config{
		Name:         name,
		Policy:       PolicyThreatAware,
		ThreatRadius: DefaultThreatRadius,
		CrowdRadius:  DefaultCrowdRadius,
	}
}

// Decision describes the most recent tick for logging and recording.
type Decision struct {
	Tick     int
	Position game.Position
	Scores   Scores
	Move     game.Direction
	Inertia  int
	Fleeing  bool
	Stale    bool
}

type Engine struct {
	cfg     Config
	log     *slog.Logger
	policy  Policy
	pursuit *PursuitResolver

	inertia *InertiaTracker
	visited *VisitedMemory

	self       game.Position
	seen       bool
	staleTicks int
	prev       game.Direction
	hasPrev    bool
	last       Decision
}

// New builds an engine. Unset radii fall back to their defaults.
func New(cfg Config) (*Engine, error) {
	if cfg.Name == "" {
		return nil, fmt.Errorf("engine name is required")
	}
	if cfg.Policy == "" {
		cfg.Policy = PolicyThreatAware
	}
	if cfg.ThreatRadius <= 0 {
		cfg.ThreatRadius = DefaultThreatRadius
	}
	if cfg.CrowdRadius <= 0 {
		cfg.CrowdRadius = DefaultCrowdRadius
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	e := &Engine{
		cfg:     cfg,
		log:     cfg.Logger.With("agent", cfg.Name, "policy", string(cfg.Policy)),
		visited: NewVisitedMemory(),
	}

	switch cfg.Policy {
	case PolicyOpenSpace:
		e.policy = OpenSpaceDepthScoring{}
	case PolicyThreatAware:
		e.policy = ThreatAvoidanceScoring{Radius: cfg.ThreatRadius}
	case PolicyVisitedBorder:
		e.policy = VisitedAndBorderPenaltyScoring{CrowdRadius: cfg.CrowdRadius}
	case PolicyPursuit:
		e.pursuit = &PursuitResolver{Default: game.North}
	default:
		return nil, fmt.Errorf("unknown policy %q", cfg.Policy)
	}

	seed := time.Now().UnixNano()
	if cfg.Seed != nil {
		seed = *cfg.Seed
	}
	e.inertia = NewInertiaTracker(rand.New(rand.NewSource(seed)))

	return e, nil
}

func (e *Engine) Name() string            { return e.cfg.Name }
func (e *Engine) Policy() PolicyKind      { return e.cfg.Policy }
func (e *Engine) Inertia() int            { return e.inertia.Value() }
func (e *Engine) Visited() *VisitedMemory { return e.visited }

// LastDecision returns the record of the most recent successful Decide.
func (e *Engine) LastDecision() Decision { return e.last }

// Decide returns the move for this tick. It fails with ErrNoLegalMove when
// the agent is enclosed and with ErrMissingSelf when the agent cannot be
// located in state.
func (e *Engine) Decide(state *game.GameState) (game.Direction, error) {
	stale, err := e.locateSelf(state)
	if err != nil {
		return game.North, err
	}

	in := Input{
		Grid:    state,
		Self:    e.self,
		Name:    e.cfg.Name,
		Players: state.Players,
		Visited: e.visited,
	}

	open := OpenSpaceDepthScoring{}.Score(in)
	e.inertia.Update(open.Max())

	if e.pursuit != nil {
		move := e.pursuit.Resolve(in)
		e.commit(state.Tick, Scores{}, move, false, stale)
		return move, nil
	}

	var scores Scores
	fleeing := false
	switch p := e.policy.(type) {
	case OpenSpaceDepthScoring:
		scores = open
	case ThreatAvoidanceScoring:
		fleeing = p.Threatened(in)
		scores = p.Score(in)
		if fleeing {
			e.log.Info("opponent nearby, heading for the opposite side", "tick", state.Tick, "x", e.self.X, "y", e.self.Y)
		}
	default:
		scores = p.Score(in)
	}

	if e.cfg.HoldBonus > 0 && e.hasPrev && e.inertia.Value() > 0 && scores[e.prev] > SentinelScore {
		scores[e.prev] += e.cfg.HoldBonus
	}

	move, err := SelectMove(scores, in.valid)
	if err != nil {
		e.log.Error("no valid move", "tick", state.Tick, "x", e.self.X, "y", e.self.Y, "scores", scores.String())
		return game.North, fmt.Errorf("tick %d at (%d,%d): %w", state.Tick, e.self.X, e.self.Y, err)
	}

	// Holding a heading only spends inertia on calm ticks.
	e.inertia.NoteHeld(!fleeing && e.hasPrev && move == e.prev)
	e.commit(state.Tick, scores, move, fleeing, stale)
	return move, nil
}

// locateSelf refreshes the agent's position. A missing record keeps the last
// known position; stale reports whether that happened.
func (e *Engine) locateSelf(state *game.GameState) (stale bool, err error) {
	if me, ok := state.Player(e.cfg.Name); ok {
		e.self = me.Position
		e.seen = true
		e.staleTicks = 0
		return false, nil
	}

	e.staleTicks++
	if !e.seen {
		return true, fmt.Errorf("tick %d: %w", state.Tick, ErrMissingSelf)
	}
	if e.cfg.MaxStaleTicks > 0 && e.staleTicks > e.cfg.MaxStaleTicks {
		return true, fmt.Errorf("tick %d: missing for %d ticks: %w", state.Tick, e.staleTicks, ErrMissingSelf)
	}
	e.log.Warn("agent missing from snapshot, using last known position", "tick", state.Tick, "stale_ticks", e.staleTicks)
	return true, nil
}

func (e *Engine) commit(tick int, scores Scores, move game.Direction, fleeing, stale bool) {
	e.visited.Record(e.self)
	e.prev = move
	e.hasPrev = true
	e.last = Decision{
		Tick:     tick,
		Position: e.self,
		Scores:   scores,
		Move:     move,
		Inertia:  e.inertia.Value(),
		Fleeing:  fleeing,
		Stale:    stale,
	}
	e.log.Debug("decided", "tick", tick, "move", move.String(), "scores", scores.String(), "inertia", e.last.Inertia)
}
