// wpd/project.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package wpd

import (
	"errors"
	"fmt"
	"slices"

	"github.com/mmp/perfchart/log"
	"github.com/mmp/perfchart/math"
	"github.com/mmp/perfchart/util"
)

var (
	ErrGuideNotFound  = errors.New("Guide not found")
	ErrScaleNotFound  = errors.New("Scale not found")
	ErrOutOfRange     = errors.New("Value out of range")
	ErrNoContact      = errors.New("No contact between contours")
	ErrInvalidProject = errors.New("Invalid project")
)

// GuideMember is one curve of an unvalued guide family, e.g. one of the
// diagonal correction lines in a weight panel.
type GuideMember struct {
	Order int
	Path  math.Path
}

// ScaleMember is one curve of a valued scale, e.g. the 5000 foot line of
// a pressure altitude scale.
type ScaleMember struct {
	Value float64
	Path  math.Path
}

// Project holds the guides and scales digitized from a single chart
// image. It is immutable once created and safe for concurrent use.
type Project struct {
	guides map[string][]GuideMember // sorted by order
	scales map[string][]ScaleMember // sorted by value
}

// NewProject builds a Project from a decoded project file, returning an
// error listing every problem found if the file is not usable.
func NewProject(def *ProjectDef, lg *log.Logger) (*Project, error) {
	var e util.ErrorLogger
	def.Validate(&e)
	if err := e.Err(ErrInvalidProject); err != nil {
		return nil, err
	}

	p := &Project{
		guides: make(map[string][]GuideMember),
		scales: make(map[string][]ScaleMember),
	}
	for _, ds := range def.DatasetColl {
		switch kind, name, v := parseDatasetName(ds.Name); kind {
		case guideDataset:
			p.guides[name] = append(p.guides[name], GuideMember{Order: int(v), Path: ds.Path()})
		case scaleDataset:
			p.scales[name] = append(p.scales[name], ScaleMember{Value: v, Path: ds.Path()})
		default:
			lg.Debug("ignoring dataset", "name", ds.Name)
		}
	}

	for _, g := range p.guides {
		slices.SortFunc(g, func(a, b GuideMember) int { return a.Order - b.Order })
	}
	for _, s := range p.scales {
		slices.SortFunc(s, func(a, b ScaleMember) int {
			switch {
			case a.Value < b.Value:
				return -1
			case a.Value > b.Value:
				return 1
			}
			return 0
		})
	}

	lg.Debug("loaded project", "guides", util.SortedMapKeys(p.guides), "scales", util.SortedMapKeys(p.scales))

	return p, nil
}

func (p *Project) IsGuide(name string) bool {
	_, ok := p.guides[name]
	return ok
}

func (p *Project) IsScale(name string) bool {
	_, ok := p.scales[name]
	return ok
}

func (p *Project) GuideNames() []string { return util.SortedMapKeys(p.guides) }
func (p *Project) ScaleNames() []string { return util.SortedMapKeys(p.scales) }

// Range returns the smallest and largest values of the named scale.
func (p *Project) Range(scale string) ([2]float64, error) {
	members, ok := p.scales[scale]
	if !ok {
		return [2]float64{}, fmt.Errorf("%w: %s.", ErrScaleNotFound, scale)
	}
	return [2]float64{members[0].Value, members[len(members)-1].Value}, nil
}

// valueAt returns the value-axis coordinate of path at the given
// position, clamping the position to the extent of the path. path must be
// sorted for dir.
func valueAt(path math.Path, dir math.Direction, pos float64) (float64, error) {
	pt, err := math.PointAt(path, clampPosition(path, dir, pos), dir.PositionAxis())
	if err != nil {
		return 0, err
	}
	return pt[dir.ValueAxis()], nil
}

// Guide returns the contour of the named guide family that passes through
// the given point, traversed in dir. When through lies between two
// members, the result is interpolated between them in proportion to the
// distance from each at through's position.
func (p *Project) Guide(name string, dir math.Direction, through math.Point) (*Contour, error) {
	members, ok := p.guides[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s.", ErrGuideNotFound, name)
	}

	type candidate struct {
		value float64
		path  math.Path
	}
	flow := math.FlowOf(dir)
	pos := through[dir.PositionAxis()]
	candidates := make([]candidate, 0, len(members))
	for _, m := range members {
		sorted := flow.Sort(m.Path)
		v, err := valueAt(sorted, dir, pos)
		if err != nil {
			return nil, fmt.Errorf("%s@%d: %w", name, m.Order, err)
		}
		candidates = append(candidates, candidate{value: v, path: sorted})
	}

	val := through[dir.ValueAxis()]
	_, adj := math.PickAdjacent(candidates, func(c candidate) float64 { return c.value }, val)
	if adj[0].value == val {
		return NewContour(adj[0].path, dir), nil
	} else if len(adj) == 2 {
		factor := (val - adj[0].value) / (adj[1].value - adj[0].value)
		path, err := math.InterpolatePath(adj[0].path, adj[1].path, dir, factor)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		return NewContour(path, dir), nil
	}
	return nil, fmt.Errorf("%w: guide %s does not reach %v", ErrOutOfRange, name, through)
}

// Scale returns the contour of the named scale for the given value,
// interpolating between the adjacent members if there is no exact match.
func (p *Project) Scale(name string, dir math.Direction, value float64) (*Contour, error) {
	members, ok := p.scales[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s.", ErrScaleNotFound, name)
	}

	_, adj := math.PickAdjacent(members, func(m ScaleMember) float64 { return m.Value }, value)
	if adj[0].Value == value {
		return NewContour(adj[0].Path, dir), nil
	} else if len(adj) == 2 {
		factor := (value - adj[0].Value) / (adj[1].Value - adj[0].Value)
		path, err := math.InterpolatePath(adj[0].Path, adj[1].Path, dir, factor)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		return NewContour(path, dir), nil
	}
	return nil, fmt.Errorf("%w: %s value %v is outside [%v, %v]", ErrOutOfRange, name, value,
		members[0].Value, members[len(members)-1].Value)
}

// Solve reads the value of the named scale at the given point, returning
// it along with the scale contour through that point traversed in dir.
// Each member is located by its value-axis coordinate at the point's
// position.
func (p *Project) Solve(name string, dir math.Direction, at math.Point) (float64, *Contour, error) {
	members, ok := p.scales[name]
	if !ok {
		return 0, nil, fmt.Errorf("%w: %s.", ErrScaleNotFound, name)
	}

	type candidate struct {
		coord float64
		ScaleMember
	}
	flow := math.FlowOf(dir)
	pos := at[dir.PositionAxis()]
	candidates := make([]candidate, 0, len(members))
	for _, m := range members {
		c, err := valueAt(flow.Sort(m.Path), dir, pos)
		if err != nil {
			return 0, nil, fmt.Errorf("%s=%v: %w", name, m.Value, err)
		}
		candidates = append(candidates, candidate{coord: c, ScaleMember: m})
	}

	val := at[dir.ValueAxis()]
	_, adj := math.PickAdjacent(candidates, func(c candidate) float64 { return c.coord }, val)
	first := adj[0]
	if first.coord == val {
		return first.Value, NewContour(first.Path, dir), nil
	}
	if len(adj) == 1 {
		return 0, nil, fmt.Errorf("%w: %v is not within scale %s", ErrOutOfRange, at, name)
	}

	second := adj[1]
	factor := (val - first.coord) / (second.coord - first.coord)
	contour, err := NewContour(first.Path, dir).Interpolate(NewContour(second.Path, dir), factor)
	if err != nil {
		return 0, nil, fmt.Errorf("%s: %w", name, err)
	}
	return math.Lerp(factor, first.Value, second.Value), contour, nil
}
