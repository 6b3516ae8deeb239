// chase/guide.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package chase

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/iancoleman/orderedmap"
	"gopkg.in/yaml.v3"
)

// GuideSpec names the guide or scale a chase step follows. It is either
// a single name or an ordered list of alternatives, each selected by an
// expression over the calculation's variables; exactly one alternative
// must match when the step is evaluated.
//
// In chart files a single name is a string and alternatives are an object
// mapping expressions to names:
//
//	"along": {"flaps == 0": "flapsUpCorrection", "flaps == 1": "flapsDownCorrection"}
type GuideSpec struct {
	Name         string
	Alternatives []Alternative
}

type Alternative struct {
	Expr  string
	Guide string
}

func (g GuideSpec) IsConditional() bool {
	return len(g.Alternatives) > 0
}

// Names returns every guide or scale name g may resolve to.
func (g GuideSpec) Names() []string {
	if !g.IsConditional() {
		return []string{g.Name}
	}
	names := make([]string, len(g.Alternatives))
	for i, a := range g.Alternatives {
		names[i] = a.Guide
	}
	return names
}

func (g GuideSpec) String() string {
	if !g.IsConditional() {
		return g.Name
	}
	var s []string
	for _, a := range g.Alternatives {
		s = append(s, "["+a.Expr+"] "+a.Guide)
	}
	return strings.Join(s, ", ")
}

// compile parses the alternatives' expressions.
func (g GuideSpec) compile() ([]*Expr, error) {
	var exprs []*Expr
	for _, a := range g.Alternatives {
		e, err := ParseExpr(a.Expr)
		if err != nil {
			return nil, err
		}
		exprs = append(exprs, e)
	}
	return exprs, nil
}

// fromOrderedMap fills in g's alternatives from an ordered map of
// expressions to names, checking that each expression parses.
func (g *GuideSpec) fromOrderedMap(om *orderedmap.OrderedMap) error {
	g.Name = ""
	g.Alternatives = nil

	seen := make(map[string]bool)
	for _, k := range om.Keys() {
		if seen[k] {
			continue
		}
		seen[k] = true

		v, _ := om.Get(k)
		name, ok := v.(string)
		if !ok || name == "" {
			return fmt.Errorf("%q: guide name must be a non-empty string", k)
		}
		g.Alternatives = append(g.Alternatives, Alternative{Expr: k, Guide: name})
	}
	if len(g.Alternatives) == 0 {
		return fmt.Errorf("no guide alternatives given")
	}

	_, err := g.compile()
	return err
}

func (g *GuideSpec) UnmarshalJSON(b []byte) error {
	if bytes.HasPrefix(bytes.TrimSpace(b), []byte(`"`)) {
		g.Alternatives = nil
		if err := json.Unmarshal(b, &g.Name); err != nil {
			return err
		}
		if g.Name == "" {
			return fmt.Errorf("empty guide name")
		}
		return nil
	}

	om := orderedmap.New()
	if err := json.Unmarshal(b, om); err != nil {
		return err
	}
	return g.fromOrderedMap(om)
}

func (g GuideSpec) MarshalJSON() ([]byte, error) {
	if !g.IsConditional() {
		return json.Marshal(g.Name)
	}
	om := orderedmap.New()
	om.SetEscapeHTML(false)
	for _, a := range g.Alternatives {
		om.Set(a.Expr, a.Guide)
	}
	b, err := om.MarshalJSON()
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	err = json.Compact(&buf, b)
	return buf.Bytes(), err
}

func (g *GuideSpec) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		g.Alternatives = nil
		g.Name = node.Value
		if g.Name == "" {
			return fmt.Errorf("line %d: empty guide name", node.Line)
		}
		return nil

	case yaml.MappingNode:
		om := orderedmap.New()
		for i := 0; i+1 < len(node.Content); i += 2 {
			k, v := node.Content[i], node.Content[i+1]
			if v.Kind != yaml.ScalarNode {
				return fmt.Errorf("line %d: guide name must be a string", v.Line)
			}
			if _, ok := om.Get(k.Value); ok {
				return fmt.Errorf("line %d: repeated expression %q", k.Line, k.Value)
			}
			om.Set(k.Value, v.Value)
		}
		return g.fromOrderedMap(om)

	default:
		return fmt.Errorf("line %d: expected a guide name or a map of expressions to guide names", node.Line)
	}
}

// CheckJSON reports whether raw decoded JSON has the shape of a GuideSpec.
func (g *GuideSpec) CheckJSON(v any) bool {
	switch v := v.(type) {
	case string:
		return true
	case map[string]any:
		for _, name := range v {
			if _, ok := name.(string); !ok {
				return false
			}
		}
		return len(v) > 0
	default:
		return false
	}
}
