// perf/perf.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// Package perf defines the contract shared by aircraft performance
// calculators along with the units and variables they exchange.
package perf

import (
	"fmt"
	"maps"
	"strconv"
	"strings"

	"github.com/mmp/perfchart/math"
)

type Variable struct {
	Unit  Unit    `json:"unit" yaml:"unit"`
	Value float64 `json:"value" yaml:"value"`
}

func (v Variable) String() string {
	return strconv.FormatFloat(v.Value, 'f', -1, 64) + " " + string(v.Unit)
}

// Variables maps variable names (e.g. "pressureAltitude") to values.
type Variables map[string]Variable

// ParseVariable parses a command-line style variable assignment of the
// form name=value:unit, e.g. "weight=1000:kilograms".
func ParseVariable(s string) (string, Variable, error) {
	name, rest, ok := strings.Cut(s, "=")
	if !ok || name == "" {
		return "", Variable{}, fmt.Errorf("%q: expected name=value:unit", s)
	}
	val, unit, ok := strings.Cut(rest, ":")
	if !ok {
		return "", Variable{}, fmt.Errorf("%q: missing unit", s)
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
	if err != nil {
		return "", Variable{}, fmt.Errorf("%q: %w", s, err)
	}
	u, err := ParseUnit(strings.TrimSpace(unit))
	if err != nil {
		return "", Variable{}, err
	}
	return name, Variable{Unit: u, Value: v}, nil
}

type Input struct {
	Unit  Unit       `json:"unit"`
	Range [2]float64 `json:"range"`
}

type Output struct {
	Unit Unit `json:"unit"`
}

// Calculation holds the results of a calculation: all of the variables
// involved, inputs and outputs alike, along with the chart geometry that
// was used to get there.
type Calculation struct {
	Vars Variables `json:"vars"`
	// Guides holds each guide or scale contour touched, in order.
	Guides []math.Path `json:"guides"`
	// Vectors holds the polylines traversed; a new polyline starts
	// wherever the calculation jumped rather than moving continuously.
	Vectors []math.Path `json:"vectors"`
}

// Calculator is implemented by things that compute performance outputs
// from a set of input variables.
type Calculator interface {
	Inputs() map[string]Input
	Outputs() map[string]Output
	Calculate(vars Variables) (*Calculation, error)
}

// ConvertVariables returns a copy of vars in which each variable that is
// also one of the inputs has been converted to the input's unit. Other
// variables are copied unchanged.
func ConvertVariables(vars Variables, inputs map[string]Input) (Variables, error) {
	converted := maps.Clone(vars)
	if converted == nil {
		converted = make(Variables)
	}
	for name, v := range vars {
		input, ok := inputs[name]
		if !ok {
			continue
		}
		value, err := ConvertUnits(v.Value, v.Unit, input.Unit)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		converted[name] = Variable{Unit: input.Unit, Value: value}
	}
	return converted, nil
}
