// chase/context.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package chase

import (
	"fmt"
	"maps"
	"slices"

	"github.com/mmp/perfchart/log"
	"github.com/mmp/perfchart/math"
	"github.com/mmp/perfchart/perf"
	"github.com/mmp/perfchart/util"
	"github.com/mmp/perfchart/wpd"

	"github.com/brunoga/deep"
	"github.com/google/uuid"
)

// StepResult records what happened when a step was evaluated.
type StepResult struct {
	Step Step
	// Guides holds the contours the step consulted: the guide or scale
	// it moved along, and for chases with a stopping condition, the scale
	// it stopped at.
	Guides []*wpd.Contour
	// Vector is the portion of the chart traversed by the step.
	Vector  *wpd.Contour
	Outputs perf.Variables
}

// CalcContext holds the state of a single calculation as it works through
// a chart's steps. It is not safe for concurrent use.
type CalcContext struct {
	ID uuid.UUID

	pos   []math.Point // cursor history; the last entry is the current position
	steps []StepResult
	vars  perf.Variables
	lg    *log.Logger
}

func NewCalcContext(vars perf.Variables, lg *log.Logger) *CalcContext {
	id := uuid.New()
	if vars == nil {
		vars = make(perf.Variables)
	}
	return &CalcContext{
		ID:   id,
		vars: deep.MustCopy(vars),
		lg:   lg.With("calc", id.String()),
	}
}

// Direction returns the direction of the most recently applied chase.
// Solves don't change it.
func (ctx *CalcContext) Direction() (math.Direction, error) {
	for i := len(ctx.steps) - 1; i >= 0; i-- {
		if ch := ctx.steps[i].Step.Chase; ch != nil {
			return ch.Chase, nil
		}
	}
	return "", ErrNoDirection
}

// Position returns the current cursor position. There is none until a
// step that advances the cursor has been applied.
func (ctx *CalcContext) Position() (math.Point, error) {
	if len(ctx.pos) == 0 {
		return math.Point{}, ErrNoPosition
	}
	return ctx.pos[len(ctx.pos)-1], nil
}

func (ctx *CalcContext) Get(name string) (float64, error) {
	v, ok := ctx.vars[name]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrVariableNotSet, name)
	}
	return v.Value, nil
}

// Values returns the current value of every variable, without units.
func (ctx *CalcContext) Values() map[string]float64 {
	m := make(map[string]float64, len(ctx.vars))
	for name, v := range ctx.vars {
		m[name] = v.Value
	}
	return m
}

// Apply records the result of a step, moving the cursor to the end of its
// vector if it advances and binding any variables it produced.
func (ctx *CalcContext) Apply(r StepResult) {
	ctx.steps = append(ctx.steps, r)

	if r.Step.Chase != nil && r.Step.Chase.Advances() && r.Vector != nil {
		if pt, ok := r.Vector.Last(); ok {
			ctx.pos = append(ctx.pos, pt)
		}
	}
	maps.Copy(ctx.vars, r.Outputs)

	ctx.lg.Debug("applied step", "step", len(ctx.steps), "desc", r.Step.String(),
		"position", ctx.pos, "outputs", r.Outputs)
}

// Guides returns the paths of all of the contours consulted so far, in
// the order they were used.
func (ctx *CalcContext) Guides() []math.Path {
	return util.ReduceSlice(ctx.steps, func(r StepResult, guides []math.Path) []math.Path {
		return append(guides, util.MapSlice(r.Guides, (*wpd.Contour).Path)...)
	}, nil)
}

// Vectors returns the traversed paths, joined into polylines. A chase
// that doesn't advance the cursor ends the current polyline.
func (ctx *CalcContext) Vectors() []math.Path {
	var vectors []math.Path
	var cur math.Path
	for _, r := range ctx.steps {
		if r.Vector != nil {
			for _, pt := range r.Vector.Path() {
				if len(cur) == 0 || cur[len(cur)-1] != pt {
					cur = append(cur, pt)
				}
			}
		}
		if r.Step.Chase != nil && !r.Step.Chase.Advances() && len(cur) > 0 {
			vectors = append(vectors, cur)
			cur = nil
		}
	}
	if len(cur) > 0 {
		vectors = append(vectors, cur)
	}
	return vectors
}

// Calculation returns the results of the steps applied so far.
func (ctx *CalcContext) Calculation() *perf.Calculation {
	return &perf.Calculation{
		Vars:    maps.Clone(ctx.vars),
		Guides:  ctx.Guides(),
		Vectors: ctx.Vectors(),
	}
}

// Steps returns the results of the steps applied so far.
func (ctx *CalcContext) Steps() []StepResult {
	return slices.Clone(ctx.steps)
}
