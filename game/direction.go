package game

import (
	"fmt"
	"strings"
)

// Direction is one of the four cardinal moves. The numeric order is the
// tie-break order used when scores are equal.
type Direction uint8

const (
	North Direction = iota
	East
	South
	West
)

// Directions lists every move in tie-break order.
var Directions = [4]Direction{North, East, South, West}

var directionNames = [4]string{"north", "east", "south", "west"}

var directionVectors = [4]Position{
	{X: 0, Y: -1},
	{X: 1, Y: 0},
	{X: 0, Y: 1},
	{X: -1, Y: 0},
}

// Vector returns the unit displacement for d.
func (d Direction) Vector() Position {
	if int(d) >= len(directionVectors) {
		return Position{}
	}
	return directionVectors[d]
}

func (d Direction) Opposite() Direction {
	return (d + 2) % 4
}

func (d Direction) Valid() bool {
	return d <= West
}

func (d Direction) String() string {
	if !d.Valid() {
		return fmt.Sprintf("direction(%d)", uint8(d))
	}
	return directionNames[d]
}

// ParseDirection accepts the wire names plus the common up/right/down/left aliases.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "north", "up", "n":
		return North, nil
	case "east", "right", "e":
		return East, nil
	case "south", "down", "s":
		return South, nil
	case "west", "left", "w":
		return West, nil
	}
	return North, fmt.Errorf("unknown direction %q", s)
}
