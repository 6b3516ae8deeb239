// chase/def.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// Package chase evaluates chase-around charts: performance charts read by
// following guide lines from panel to panel, starting from the input
// values and ending on an output scale.
package chase

import (
	"encoding/json"
	"fmt"
	"slices"

	"github.com/mmp/perfchart/math"
	"github.com/mmp/perfchart/perf"

	"gopkg.in/yaml.v3"
)

const (
	ChartKind    = "chase"
	ChartVersion = "1.0"
)

// ChartDef is the top level of a chase chart definition file.
type ChartDef struct {
	Kind    string     `json:"kind" yaml:"kind"`
	Version string     `json:"version" yaml:"version"`
	Image   ImageRef   `json:"image" yaml:"image"`
	Project ProjectRef `json:"project" yaml:"project"`
	Steps   []Step     `json:"steps" yaml:"steps"`
}

// ImageRef locates the chart image; Src is relative to the chart file.
type ImageRef struct {
	Src  string `json:"src" yaml:"src"`
	Size [2]int `json:"size" yaml:"size"`
}

// ProjectRef locates the digitized project; Src is relative to the chart
// file.
type ProjectRef struct {
	Src string `json:"src" yaml:"src"`
}

// IsChartDef reports whether raw decoded JSON is a chase chart definition.
func IsChartDef(v any) bool {
	m, ok := v.(map[string]any)
	return ok && m["kind"] == ChartKind
}

// Step is a single instruction: exactly one of Chase and Solve is set.
type Step struct {
	Chase *Chase
	Solve *Solve
}

// Chase moves the cursor along a guide or scale. Without Until it runs
// to the end of the guide; with it, it stops where the guide meets the
// Until scale.
type Chase struct {
	Chase math.Direction `json:"chase" yaml:"chase"`
	Along GuideSpec      `json:"along" yaml:"along"`
	Until string         `json:"until,omitempty" yaml:"until,omitempty"`
	Unit  perf.Unit      `json:"unit,omitempty" yaml:"unit,omitempty"`
	// Advance false means the vector is recorded but the cursor stays
	// put; it's used to draw a scale line that a later step crosses.
	Advance *bool `json:"advance,omitempty" yaml:"advance,omitempty"`
}

func (c *Chase) Advances() bool {
	return c.Advance == nil || *c.Advance
}

// Solve reads the value of a scale at the cursor.
type Solve struct {
	Solve math.Direction `json:"solve" yaml:"solve"`
	Using string         `json:"using" yaml:"using"`
	Unit  perf.Unit      `json:"unit" yaml:"unit"`
}

func (s Step) String() string {
	switch {
	case s.Chase != nil:
		str := fmt.Sprintf("chase %s along %s", s.Chase.Chase, s.Chase.Along)
		if s.Chase.Until != "" {
			str += " until " + s.Chase.Until
		}
		return str
	case s.Solve != nil:
		return fmt.Sprintf("solve %s using %s", s.Solve.Solve, s.Solve.Using)
	default:
		return "(empty step)"
	}
}

var (
	chaseKeys = []string{"chase", "along", "until", "unit", "advance"}
	solveKeys = []string{"solve", "using", "unit"}
)

func stepKind[V any](keys map[string]V) (isChase bool, err error) {
	_, c := keys["chase"]
	_, s := keys["solve"]
	switch {
	case c && s:
		return false, fmt.Errorf("%w: has both \"chase\" and \"solve\"", ErrInvalidStep)
	case !c && !s:
		return false, fmt.Errorf("%w: expected \"chase\" or \"solve\"", ErrInvalidStep)
	}
	return c, nil
}

func (s *Step) UnmarshalJSON(b []byte) error {
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(b, &keys); err != nil {
		return err
	}
	isChase, err := stepKind(keys)
	if err != nil {
		return err
	}

	*s = Step{}
	if isChase {
		s.Chase = &Chase{}
		return json.Unmarshal(b, s.Chase)
	}
	s.Solve = &Solve{}
	return json.Unmarshal(b, s.Solve)
}

func (s Step) MarshalJSON() ([]byte, error) {
	if s.Chase != nil {
		return json.Marshal(s.Chase)
	}
	return json.Marshal(s.Solve)
}

func (s *Step) UnmarshalYAML(node *yaml.Node) error {
	var keys map[string]yaml.Node
	if err := node.Decode(&keys); err != nil {
		return err
	}
	isChase, err := stepKind(keys)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}

	*s = Step{}
	if isChase {
		s.Chase = &Chase{}
		return node.Decode(s.Chase)
	}
	s.Solve = &Solve{}
	return node.Decode(s.Solve)
}

// CheckJSON reports whether raw decoded JSON has the shape of a step,
// including whether all of its keys are known.
func (s *Step) CheckJSON(v any) bool {
	m, ok := v.(map[string]any)
	if !ok {
		return false
	}
	isChase, err := stepKind(m)
	if err != nil {
		return false
	}

	allowed := solveKeys
	if isChase {
		allowed = chaseKeys
		var g GuideSpec
		if !g.CheckJSON(m["along"]) {
			return false
		}
	}
	for k := range m {
		if !slices.Contains(allowed, k) {
			return false
		}
	}
	return true
}
