// wpd/contour.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package wpd

import (
	"fmt"
	"slices"

	"github.com/mmp/perfchart/math"
)

// Contour is a path tagged with the direction in which it will be
// traversed. Its points are always sorted for that direction and rounded
// to four decimal places. Contours are immutable; operations on them
// return new ones.
type Contour struct {
	dir  math.Direction
	path math.Path
}

func NewContour(path math.Path, dir math.Direction) *Contour {
	return &Contour{dir: dir, path: math.NormalizePath(path, dir)}
}

func (c *Contour) Direction() math.Direction { return c.dir }

// Path returns a copy of the contour's points.
func (c *Contour) Path() math.Path { return slices.Clone(c.path) }

// Clamp moves pt along the contour's direction of travel, if needed, so
// that it lies within the contour's extent.
func (c *Contour) Clamp(pt math.Point) math.Point {
	if len(c.path) == 0 {
		return pt
	}
	pt[c.dir.PositionAxis()] = clampPosition(c.path, c.dir, pt[c.dir.PositionAxis()])
	return pt
}

// clampPosition limits pos to the extent of path along dir's position
// axis. path must be sorted for dir.
func clampPosition(path math.Path, dir math.Direction, pos float64) float64 {
	pa := dir.PositionAxis()
	first, last := path[0][pa], path[len(path)-1][pa]
	return math.Clamp(pos, math.Min(first, last), math.Max(first, last))
}

// Last returns the final point of the contour in its direction of travel.
func (c *Contour) Last() (math.Point, bool) {
	if len(c.path) == 0 {
		return math.Point{}, false
	}
	return c.path[len(c.path)-1], true
}

// Interpolate returns the contour lying between c and other in the
// proportion given by factor, traversed in c's direction.
func (c *Contour) Interpolate(other *Contour, factor float64) (*Contour, error) {
	p, err := math.InterpolatePath(c.path, other.path, c.dir, factor)
	if err != nil {
		return nil, err
	}
	return NewContour(p, c.dir), nil
}

// SplitAt divides the contour at the position of pt along its direction
// of travel. Both halves include the dividing point.
func (c *Contour) SplitAt(pt math.Point) (*Contour, *Contour, error) {
	head, tail, err := math.SplitPath(c.path, c.dir, pt)
	if err != nil {
		return nil, nil, err
	}
	return NewContour(head, c.dir), NewContour(tail, c.dir), nil
}

// SplitContour divides the contour where it first touches other.
func (c *Contour) SplitContour(other *Contour) (*Contour, *Contour, error) {
	pt, ok := math.Contact(c.path, other.path)
	if !ok {
		return nil, nil, ErrNoContact
	}
	return c.SplitAt(pt)
}

func (c *Contour) String() string {
	return fmt.Sprintf("%s %v", c.dir, c.path)
}
