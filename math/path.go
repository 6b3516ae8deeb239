// math/path.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package math

import (
	"errors"
	"fmt"
	"slices"
)

var (
	ErrPositionNotInPath = errors.New("Position not in path")
	ErrPointNotInPath    = errors.New("Point not in path")
)

// SegmentIntersect returns the point at which the segments (p0, p1) and
// (q0, q1) cross, if they do. Parallel and degenerate segments never
// intersect.
func SegmentIntersect(p0, p1, q0, q1 Point) (Point, bool) {
	s0x, s0y := p1[0]-p0[0], p1[1]-p0[1]
	s1x, s1y := q1[0]-q0[0], q1[1]-q0[1]

	denom := -s1x*s0y + s0x*s1y
	if denom == 0 {
		return Point{}, false
	}
	s := (-s0y*(p0[0]-q0[0]) + s0x*(p0[1]-q0[1])) / denom
	t := (s1x*(p0[1]-q0[1]) - s1y*(p0[0]-q0[0])) / denom
	if !IsFinite(s) || !IsFinite(t) {
		return Point{}, false
	}

	if s >= 0 && s <= 1 && t >= 0 && t <= 1 {
		return Point{p0[0] + t*s0x, p0[1] + t*s0y}, true
	}
	return Point{}, false
}

// Contact returns the first point at which two paths touch. Segments of a
// are visited in order, each tested against every segment of b in order.
// Paths that only share a vertex (for example, abutting end to end) touch
// at the first vertex of a that also appears in b.
func Contact(a, b Path) (Point, bool) {
	for i := 0; i+1 < len(a); i++ {
		for j := 0; j+1 < len(b); j++ {
			if pt, ok := SegmentIntersect(a[i], a[i+1], b[j], b[j+1]); ok {
				return pt, true
			}
		}
	}

	for _, pa := range a {
		if slices.Contains(b, pa) {
			return pa, true
		}
	}
	return Point{}, false
}

// SortPath returns a copy of path ordered for movement in dir: ascending
// x for right, descending x for left, ascending y for down and descending
// y for up.
func SortPath(path Path, dir Direction) Path {
	return FlowOf(dir).Sort(path)
}

// NormalizePath sorts path for dir and rounds each coordinate to four
// decimal places.
func NormalizePath(path Path, dir Direction) Path {
	sorted := SortPath(path, dir)
	for i, pt := range sorted {
		sorted[i] = Point{Round(pt[0], 4), Round(pt[1], 4)}
	}
	return sorted
}

// PointAt returns the point of path whose coordinate on the given axis (0
// for x, 1 for y) is pos, interpolating linearly between vertices. path
// need not be sorted.
func PointAt(path Path, pos float64, axis int) (Point, error) {
	_, adj := PickAdjacent(path, func(pt Point) float64 { return pt[axis] }, pos)
	switch len(adj) {
	case 0:
		return Point{}, fmt.Errorf("%w: %v", ErrPositionNotInPath, pos)
	case 1:
		if adj[0][axis] != pos {
			return Point{}, fmt.Errorf("%w: %v", ErrPositionNotInPath, pos)
		}
		return adj[0], nil
	}

	pt0, pt1 := adj[0], adj[1]
	factor := (pos - pt0[axis]) / (pt1[axis] - pt0[axis])
	va := 1 - axis
	var pt Point
	pt[axis] = pos
	pt[va] = Lerp(factor, pt0[va], pt1[va])
	return pt, nil
}

// InterpolatePath returns a path lying between a and b in the proportion
// given by factor: 0 returns a and 1 returns b, unchanged. Otherwise the
// result is sorted for dir and covers only the range of positions that
// both paths span, with a vertex at every position where either input
// has one. An empty input is an error.
func InterpolatePath(a, b Path, dir Direction, factor float64) (Path, error) {
	if factor == 0 {
		return a, nil
	} else if factor == 1 {
		return b, nil
	}

	flow := FlowOf(dir)
	axis := dir.PositionAxis()
	lower, upper := flow.Sort(a), flow.Sort(b)
	if len(lower) == 0 || len(upper) == 0 {
		return nil, fmt.Errorf("%w: empty path", ErrPositionNotInPath)
	}
	if flow.Compare(upper[0], lower[0]) < 0 {
		lower, upper = upper, lower
	}

	// Skip the part of the leading path before the other one starts.
	for len(lower) > 0 && flow.Compare(lower[0], upper[0]) < 0 {
		lower = lower[1:]
	}

	var result Path
	for len(lower) > 0 && len(upper) > 0 {
		var pos float64
		switch c := flow.Compare(lower[0], upper[0]); {
		case c > 0:
			pos = flow.Position(upper[0])
			upper = upper[1:]
		case c < 0:
			pos = flow.Position(lower[0])
			lower = lower[1:]
		default:
			pos = flow.Position(lower[0])
			lower, upper = lower[1:], upper[1:]
		}

		pa, err := PointAt(a, pos, axis)
		if err != nil {
			return nil, err
		}
		pb, err := PointAt(b, pos, axis)
		if err != nil {
			return nil, err
		}
		result = append(result, flow.Point(pos, Lerp(factor, flow.Value(pa), flow.Value(pb))))
	}
	return result, nil
}

// SplitPath divides a path sorted for dir at the position of the given
// point. The dividing vertex is shared by both halves: it is the path's
// own vertex when one lies exactly at that position and an interpolated
// point otherwise.
func SplitPath(path Path, dir Direction, at Point) (Path, Path, error) {
	flow := FlowOf(dir)
	i := slices.IndexFunc(path, func(pt Point) bool { return flow.Compare(pt, at) >= 0 })
	if i == -1 {
		return nil, nil, fmt.Errorf("%w: %v", ErrPointNotInPath, at)
	}
	if flow.Compare(path[i], at) == 0 {
		return slices.Clone(path[:i+1]), slices.Clone(path[i:]), nil
	}
	if i == 0 {
		return nil, nil, fmt.Errorf("%w: %v", ErrPointNotInPath, at)
	}

	pt0, pt1 := path[i-1], path[i]
	pos := flow.Position(at)
	factor := (pos - flow.Position(pt0)) / (flow.Position(pt1) - flow.Position(pt0))
	split := flow.Point(pos, Lerp(factor, flow.Value(pt0), flow.Value(pt1)))

	head := append(slices.Clone(path[:i]), split)
	tail := append(Path{split}, path[i:]...)
	return head, tail, nil
}
