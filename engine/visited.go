package engine

import "github.com/brensch/cycles/game"

// VisitedMemory is the append-only set of cells this agent has occupied.
// It is a scoring penalty only, never a movement constraint.
type VisitedMemory struct {
	cells map[game.Position]struct{}
}

func NewVisitedMemory() *VisitedMemory {
	return &VisitedMemory{cells: make(map[game.Position]struct{})}
}

// Record adds p. Recording into a nil memory is a no-op.
func (m *VisitedMemory) Record(p game.Position) {
	if m == nil {
		return
	}
	m.cells[p] = struct{}{}
}

// Visited reports whether p was recorded. A nil memory has visited nothing.
func (m *VisitedMemory) Visited(p game.Position) bool {
	if m == nil {
		return false
	}
	_, ok := m.cells[p]
	return ok
}

func (m *VisitedMemory) Len() int {
	if m == nil {
		return 0
	}
	return len(m.cells)
}
