// Package game defines the core game state types for light-cycle games.
//
// A GameState is an immutable-by-convention snapshot for one tick: grid
// dimensions, a row-major occupancy grid and the players on it. Coordinates
// follow screen conventions: (0,0) is top-left and y grows southwards.
package game

// Position is a grid coordinate.
type Position struct {
	X int
	Y int
}

// Add returns the position one step away in direction d.
func (p Position) Add(d Direction) Position {
	v := d.Vector()
	return Position{X: p.X + v.X, Y: p.Y + v.Y}
}

// Manhattan returns the taxicab distance between p and q.
func (p Position) Manhattan(q Position) int {
	return abs(p.X-q.X) + abs(p.Y-q.Y)
}

type Player struct {
	Name     string
	Position Position
	Alive    bool
}

// GridView is the read-only grid contract the decision engine consumes.
type GridView interface {
	InBounds(p Position) bool
	IsFree(p Position) bool
	Width() int
	Height() int
}

// GameState is the complete state delivered for one tick.
// Cells holds 0 for a free cell and an occupant id otherwise.
type GameState struct {
	W       int
	H       int
	Cells   []uint8
	Players []Player
	Tick    int
}

// NewGameState returns an empty w x h grid.
func NewGameState(w, h int) *GameState {
	if w < 0 {
		w = 0
	}
	if h < 0 {
		h = 0
	}
	return &GameState{
		W:     w,
		H:     h,
		Cells: make([]uint8, w*h),
	}
}

func (s *GameState) Width() int  { return s.W }
func (s *GameState) Height() int { return s.H }

func (s *GameState) InBounds(p Position) bool {
	return p.X >= 0 && p.X < s.W && p.Y >= 0 && p.Y < s.H
}

// Cell returns the occupant id at p. Out-of-bounds cells report 0xFF.
func (s *GameState) Cell(p Position) uint8 {
	if !s.InBounds(p) {
		return 0xFF
	}
	return s.Cells[p.Y*s.W+p.X]
}

// IsFree reports whether p is inside the grid and unoccupied.
func (s *GameState) IsFree(p Position) bool {
	return s.InBounds(p) && s.Cells[p.Y*s.W+p.X] == 0
}

// Occupy marks p with occupant id. Out-of-bounds positions are ignored.
func (s *GameState) Occupy(p Position, id uint8) {
	if !s.InBounds(p) {
		return
	}
	s.Cells[p.Y*s.W+p.X] = id
}

// Player returns the player record named name.
func (s *GameState) Player(name string) (Player, bool) {
	for _, p := range s.Players {
		if p.Name == name {
			return p, true
		}
	}
	return Player{}, false
}

// Clone performs a deep copy of the game state.
func (s *GameState) Clone() *GameState {
	if s == nil {
		return nil
	}

	out := &GameState{
		W:    s.W,
		H:    s.H,
		Tick: s.Tick,
	}

	if len(s.Cells) > 0 {
		out.Cells = make([]uint8, len(s.Cells))
		copy(out.Cells, s.Cells)
	}

	if len(s.Players) > 0 {
		out.Players = make([]Player, len(s.Players))
		copy(out.Players, s.Players)
	}

	return out
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
