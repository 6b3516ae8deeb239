// math/flow.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package math

import (
	"fmt"
	"slices"
)

// Point is a location in chart image coordinates: x grows to the right
// and y grows downward.
type Point [2]float64

// Path is a polyline of points.
type Path []Point

// Direction is one of the four axis-aligned directions in which a chase
// can move across a chart.
type Direction string

const (
	Down  Direction = "down"
	Left  Direction = "left"
	Right Direction = "right"
	Up    Direction = "up"
)

func ParseDirection(s string) (Direction, error) {
	switch d := Direction(s); d {
	case Down, Left, Right, Up:
		return d, nil
	default:
		return "", fmt.Errorf("%q: invalid direction", s)
	}
}

// UnmarshalText allows directions to be decoded from both JSON and YAML
// while rejecting anything other than the four known values.
func (d *Direction) UnmarshalText(b []byte) error {
	dir, err := ParseDirection(string(b))
	if err != nil {
		return err
	}
	*d = dir
	return nil
}

// Horizontal reports whether d is left or right.
func (d Direction) Horizontal() bool {
	return d == Left || d == Right
}

// Cross returns the direction used to resolve a guide that stops a chase
// moving in d: down for horizontal chases and right for vertical ones.
func (d Direction) Cross() Direction {
	if d.Horizontal() {
		return Down
	}
	return Right
}

// PositionAxis returns the coordinate index that advances when moving in
// d; ValueAxis returns the other one.
func (d Direction) PositionAxis() int {
	if d.Horizontal() {
		return 0
	}
	return 1
}

func (d Direction) ValueAxis() int {
	return 1 - d.PositionAxis()
}

///////////////////////////////////////////////////////////////////////////
// Flow

// Flow provides ordering and coordinate extraction for movement in one of
// the four directions. The position axis is the one along which movement
// happens; the value axis is the perpendicular one.
type Flow struct {
	Direction  Direction
	Descending bool
	Vertical   bool
}

var (
	FlowDown  = Flow{Direction: Down, Vertical: true}
	FlowLeft  = Flow{Direction: Left, Descending: true}
	FlowRight = Flow{Direction: Right}
	FlowUp    = Flow{Direction: Up, Descending: true, Vertical: true}
)

// FlowOf returns the flow for the given direction. Directions are
// validated when decoded, so an unknown one is a programming error.
func FlowOf(d Direction) Flow {
	switch d {
	case Down:
		return FlowDown
	case Left:
		return FlowLeft
	case Right:
		return FlowRight
	case Up:
		return FlowUp
	default:
		panic(fmt.Sprintf("%q: unknown direction", string(d)))
	}
}

func (f Flow) Position(pt Point) float64 {
	if f.Vertical {
		return pt[1]
	}
	return pt[0]
}

func (f Flow) Value(pt Point) float64 {
	if f.Vertical {
		return pt[0]
	}
	return pt[1]
}

// Point assembles a point from its position and value coordinates.
func (f Flow) Point(pos, value float64) Point {
	if f.Vertical {
		return Point{value, pos}
	}
	return Point{pos, value}
}

// Compare orders two points along the flow: the result is negative if pt0
// comes first, positive if pt1 does and zero if they share a position.
func (f Flow) Compare(pt0, pt1 Point) float64 {
	return f.progress(pt0) - f.progress(pt1)
}

// progress maps a point's position to a coordinate that increases in the
// direction of the flow.
func (f Flow) progress(pt Point) float64 {
	if f.Descending {
		return -f.Position(pt)
	}
	return f.Position(pt)
}

// Sort returns a copy of path ordered along the flow. Points that share a
// position keep their relative order.
func (f Flow) Sort(path Path) Path {
	sorted := slices.Clone(path)
	slices.SortStableFunc(sorted, func(a, b Point) int {
		switch c := f.Compare(a, b); {
		case c < 0:
			return -1
		case c > 0:
			return 1
		default:
			return 0
		}
	})
	return sorted
}
