package engine

import (
	"errors"
	"testing"

	"github.com/brensch/cycles/game"
)

func TestParsePolicy(t *testing.T) {
	for _, k := range Policies {
		got, err := ParsePolicy(string(k))
		if err != nil || got != k {
			t.Fatalf("ParsePolicy(%q)=%q err=%v", k, got, err)
		}
	}
	if _, err := ParsePolicy("random"); err == nil {
		t.Fatalf("expected error for unknown policy")
	}
}

func TestNew_Validation(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Fatalf("expected error without a name")
	}
	if _, err := New(Config{Name: "x", Policy: "nope"}); err == nil {
		t.Fatalf("expected error for unknown policy")
	}
	e, err := New(Config{Name: "x", Logger: quietLogger})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if e.Policy() != PolicyThreatAware {
		t.Fatalf("default policy=%s", e.Policy())
	}
	if v := e.Inertia(); v < InertiaSeedMin || v > InertiaCap {
		t.Fatalf("inertia seed %d out of range", v)
	}
}

func TestNew_SeedIsReproducible(t *testing.T) {
	a := newEngine(t, "a", PolicyOpenSpace)
	b := newEngine(t, "a", PolicyOpenSpace)
	if a.Inertia() != b.Inertia() {
		t.Fatalf("same seed gave inertia %d and %d", a.Inertia(), b.Inertia())
	}
}

// 10x10 open board, agent in the middle: north and west see 5 free cells,
// east and south 4. North wins on score and on tie-break.
func TestDecide_OpenBoard(t *testing.T) {
	s := game.NewGameState(10, 10)
	s.Players = []game.Player{{Name: "me", Position: game.Position{X: 5, Y: 5}, Alive: true}}

	e := newEngine(t, "me", PolicyOpenSpace)
	got, err := e.Decide(s)
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if got != game.North {
		t.Fatalf("move=%s want north", got)
	}
	if d := e.LastDecision(); d.Scores != (Scores{5, 4, 4, 5}) {
		t.Fatalf("scores=%v", d.Scores)
	}
}

func TestDecide_CentreAllFiveGoesNorth(t *testing.T) {
	s := game.NewGameState(11, 11)
	s.Players = []game.Player{{Name: "me", Position: game.Position{X: 5, Y: 5}, Alive: true}}

	e := newEngine(t, "me", PolicyOpenSpace)
	got, err := e.Decide(s)
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if d := e.LastDecision(); d.Scores != (Scores{5, 5, 5, 5}) {
		t.Fatalf("scores=%v want all 5", d.Scores)
	}
	if got != game.North {
		t.Fatalf("move=%s want north", got)
	}
}

func TestDecide_WestEdge(t *testing.T) {
	s := game.NewGameState(10, 10)
	s.Players = []game.Player{{Name: "me", Position: game.Position{X: 0, Y: 5}, Alive: true}}

	e := newEngine(t, "me", PolicyOpenSpace)
	got, err := e.Decide(s)
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	scores := e.LastDecision().Scores
	if scores[game.West] != 0 {
		t.Fatalf("west score=%d want 0", scores[game.West])
	}
	if scores[game.North] != 5 || scores[game.East] != 5 || scores[game.South] != 4 {
		t.Fatalf("scores=%v", scores)
	}
	if got == game.West {
		t.Fatalf("chose west off the board")
	}
	if got != game.North {
		t.Fatalf("move=%s want north", got)
	}
}

func TestDecide_CornerPocket(t *testing.T) {
	s := board(t,
		"#.....",
		"a#....",
		"......",
	)
	e := newEngine(t, "a", PolicyOpenSpace)
	got, err := e.Decide(s)
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if got != game.South {
		t.Fatalf("move=%s want south", got)
	}
}

func TestDecide_ThreatFleesTowardsOppositeCorner(t *testing.T) {
	s := board(t,
		"..........",
		"..........",
		"..a.......",
		"...b......",
		"..........",
		"..........",
		"..........",
		"..........",
		"..........",
		"..........",
	)
	t.Logf("board:\n%s", dump(s))

	e := newEngine(t, "a", PolicyThreatAware)
	got, err := e.Decide(s)
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if !e.LastDecision().Fleeing {
		t.Fatalf("expected flee mode")
	}

	self := game.Position{X: 2, Y: 2}
	target := OppositeCorner(self, s.W, s.H)
	if self.Add(got).Manhattan(target) >= self.Manhattan(target) {
		t.Fatalf("move %s does not close on %v", got, target)
	}
	if got != game.East {
		t.Fatalf("move=%s want east (tie-break over south)", got)
	}
}

func TestDecide_FleeDoesNotSpendInertia(t *testing.T) {
	e := newEngine(t, "a", PolicyThreatAware)
	calm := board(t,
		"..........",
		"..........",
		"..a.......",
		"..........",
		"..........",
		"..........",
		"..........",
		"..........",
		"..........",
		"..........",
	)
	if got, err := e.Decide(calm); err != nil || got != game.East {
		t.Fatalf("first move=%s err=%v want east", got, err)
	}

	// b is three away; fleeing towards (6,7) also picks east.
	threatened := board(t,
		"..........",
		"..........",
		"..#a......",
		"..........",
		"....b.....",
		"..........",
		"..........",
		"..........",
		"..........",
		"..........",
	)
	t.Logf("board:\n%s", dump(threatened))
	before := e.Inertia()
	got, err := e.Decide(threatened)
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if got != game.East || !e.LastDecision().Fleeing {
		t.Fatalf("move=%s fleeing=%v want east while fleeing", got, e.LastDecision().Fleeing)
	}
	if want := grow(before); e.Inertia() != want {
		t.Fatalf("inertia %d -> %d, want %d", before, e.Inertia(), want)
	}
}

func TestDecide_ThreatAwareCalmUsesOpenSpace(t *testing.T) {
	s := board(t,
		"..........",
		"..........",
		"..a.......",
		"..........",
		"..........",
		"..........",
		"..........",
		".........b",
	)
	e := newEngine(t, "a", PolicyThreatAware)
	got, err := e.Decide(s)
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if e.LastDecision().Fleeing {
		t.Fatalf("no threat expected")
	}
	// east has 5 free cells, north 2, south 5, west 2
	if got != game.East {
		t.Fatalf("move=%s want east", got)
	}
}

func TestDecide_EnclosedReportsNoLegalMove(t *testing.T) {
	s := board(t,
		"a#.",
		"#..",
		"...",
	)
	for _, kind := range []PolicyKind{PolicyOpenSpace, PolicyThreatAware, PolicyVisitedBorder} {
		t.Run(string(kind), func(t *testing.T) {
			e := newEngine(t, "a", kind)
			_, err := e.Decide(s)
			if !errors.Is(err, ErrNoLegalMove) {
				t.Fatalf("err=%v want ErrNoLegalMove", err)
			}
		})
	}
}

func TestDecide_EnclosedByOpponentUnderThreat(t *testing.T) {
	s := board(t,
		".#.",
		"#ab",
		".#.",
	)
	e := newEngine(t, "a", PolicyThreatAware)
	if _, err := e.Decide(s); !errors.Is(err, ErrNoLegalMove) {
		t.Fatalf("err=%v want ErrNoLegalMove", err)
	}
}

func TestDecide_PursuitEnclosedStillMoves(t *testing.T) {
	s := board(t,
		"a#.",
		"#.b",
	)
	e := newEngine(t, "a", PolicyPursuit)
	got, err := e.Decide(s)
	if err != nil {
		t.Fatalf("pursuit should not fail: %v", err)
	}
	if got != game.North {
		t.Fatalf("move=%s want north default", got)
	}
}

func TestDecide_RecordsPreMovePosition(t *testing.T) {
	s := game.NewGameState(8, 8)
	s.Players = []game.Player{{Name: "me", Position: game.Position{X: 3, Y: 3}, Alive: true}}
	e := newEngine(t, "me", PolicyVisitedBorder)

	move, err := e.Decide(s)
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if !e.Visited().Visited(game.Position{X: 3, Y: 3}) {
		t.Fatalf("pre-move position not recorded")
	}
	if e.Visited().Visited(game.Position{X: 3, Y: 3}.Add(move)) {
		t.Fatalf("destination recorded before it was reached")
	}
}

func TestDecide_VisitedBorderAvoidsRevisits(t *testing.T) {
	s := game.NewGameState(12, 12)
	s.Players = []game.Player{{Name: "me", Position: game.Position{X: 6, Y: 6}, Alive: true}}
	e := newEngine(t, "me", PolicyVisitedBorder)

	// Mark north as visited without occupying it, which a trail-less server could report.
	e.Visited().Record(game.Position{X: 6, Y: 5})
	got, err := e.Decide(s)
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if got == game.North {
		t.Fatalf("chose the visited cell")
	}
	// west keeps a clearance of 5, east and south drop to 4
	if got != game.West {
		t.Fatalf("move=%s want west, scores=%v", got, e.LastDecision().Scores)
	}
}

func TestDecide_MissingSelf(t *testing.T) {
	s := game.NewGameState(6, 6)
	s.Players = []game.Player{{Name: "other", Position: game.Position{X: 0, Y: 0}, Alive: true}}

	e := newEngine(t, "me", PolicyOpenSpace)
	if _, err := e.Decide(s); !errors.Is(err, ErrMissingSelf) {
		t.Fatalf("never-seen agent: err=%v want ErrMissingSelf", err)
	}

	seen := s.Clone()
	seen.Players = append(seen.Players, game.Player{Name: "me", Position: game.Position{X: 3, Y: 3}, Alive: true})
	if _, err := e.Decide(seen); err != nil {
		t.Fatalf("Decide: %v", err)
	}

	for i := 0; i < 5; i++ {
		if _, err := e.Decide(s); err != nil {
			t.Fatalf("stale tick %d: %v", i, err)
		}
		d := e.LastDecision()
		if !d.Stale || d.Position != (game.Position{X: 3, Y: 3}) {
			t.Fatalf("stale decision=%+v", d)
		}
	}
}

func TestDecide_MaxStaleTicks(t *testing.T) {
	seed := int64(5)
	cfg := DefaultConfig("me")
	cfg.Seed = &seed
	cfg.Logger = quietLogger
	cfg.MaxStaleTicks = 2
	e, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}

	s := game.NewGameState(6, 6)
	s.Players = []game.Player{{Name: "me", Position: game.Position{X: 3, Y: 3}, Alive: true}}
	if _, err := e.Decide(s); err != nil {
		t.Fatal(err)
	}
	gone := game.NewGameState(6, 6)
	for i := 1; i <= 2; i++ {
		if _, err := e.Decide(gone); err != nil {
			t.Fatalf("stale tick %d should be tolerated: %v", i, err)
		}
	}
	if _, err := e.Decide(gone); !errors.Is(err, ErrMissingSelf) {
		t.Fatalf("err=%v want ErrMissingSelf", err)
	}
	if _, err := e.Decide(s); err != nil {
		t.Fatalf("reappearing agent should recover: %v", err)
	}
}

func TestDecide_HoldBonusKeepsHeading(t *testing.T) {
	seed := int64(9)
	cfg := DefaultConfig("a")
	cfg.Policy = PolicyOpenSpace
	cfg.Seed = &seed
	cfg.Logger = quietLogger
	cfg.HoldBonus = 3
	e, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}

	// First tick: only east is open, so east becomes the heading.
	first := board(t,
		"..#......",
		".#a......",
		"..#......",
	)
	if got, err := e.Decide(first); err != nil || got != game.East {
		t.Fatalf("first move=%s err=%v want east", got, err)
	}

	// Second tick: south scores higher than east by 2, the bonus keeps east.
	second := game.NewGameState(12, 12)
	second.Players = []game.Player{{Name: "a", Position: game.Position{X: 8, Y: 2}, Alive: true}}
	second.Occupy(game.Position{X: 8, Y: 1}, 9)
	second.Occupy(game.Position{X: 7, Y: 2}, 9)
	before := e.Inertia()
	got, err := e.Decide(second)
	if err != nil {
		t.Fatal(err)
	}
	if got != game.East {
		t.Fatalf("move=%s want east (held), scores=%v", got, e.LastDecision().Scores)
	}
	if sc := e.LastDecision().Scores; sc[game.East] != 6 || sc[game.South] != 5 {
		t.Fatalf("scores=%v want east 3+3 and south 5", sc)
	}
	if want := heldTick(before); e.Inertia() != want {
		t.Fatalf("inertia %d -> %d, want %d", before, e.Inertia(), want)
	}
}

func TestDecide_WithoutHoldBonusTakesBestScore(t *testing.T) {
	e := newEngine(t, "a", PolicyOpenSpace)
	first := board(t,
		"..#......",
		".#a......",
		"..#......",
	)
	if got, err := e.Decide(first); err != nil || got != game.East {
		t.Fatalf("first move=%s err=%v want east", got, err)
	}

	second := game.NewGameState(12, 12)
	second.Players = []game.Player{{Name: "a", Position: game.Position{X: 8, Y: 2}, Alive: true}}
	second.Occupy(game.Position{X: 8, Y: 1}, 9)
	second.Occupy(game.Position{X: 7, Y: 2}, 9)
	got, err := e.Decide(second)
	if err != nil {
		t.Fatal(err)
	}
	if got != game.South {
		t.Fatalf("move=%s want south, scores=%v", got, e.LastDecision().Scores)
	}
}

func TestDecide_InertiaSpentWhenHeadingHeld(t *testing.T) {
	s := game.NewGameState(30, 3)
	s.Players = []game.Player{{Name: "me", Position: game.Position{X: 1, Y: 1}, Alive: true}}
	e := newEngine(t, "me", PolicyOpenSpace)

	start := e.Inertia()
	for i := 0; i < 3; i++ {
		move, err := e.Decide(s)
		if err != nil {
			t.Fatal(err)
		}
		if move != game.East {
			t.Fatalf("tick %d move=%s want east", i, move)
		}
		next := s.Clone()
		next.Tick++
		next.Occupy(next.Players[0].Position, 1)
		next.Players[0].Position = next.Players[0].Position.Add(move)
		s = next
	}
	// tick 0 has no previous heading to hold.
	want := heldTick(heldTick(grow(start)))
	if got := e.Inertia(); got != want {
		t.Fatalf("inertia=%d want %d", got, want)
	}
}

func grow(v int) int {
	if v < InertiaCap {
		return v + 1
	}
	return v
}

// heldTick is one roomy tick that keeps the previous heading.
func heldTick(v int) int {
	return grow(v) - 1
}
