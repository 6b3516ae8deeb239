// chase/chart.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package chase

import (
	"errors"
	"fmt"
	"maps"
	"strings"

	"github.com/mmp/perfchart/log"
	"github.com/mmp/perfchart/math"
	"github.com/mmp/perfchart/perf"
	"github.com/mmp/perfchart/util"
	"github.com/mmp/perfchart/wpd"

	"github.com/brunoga/deep"
)

// Chart is a chase-around chart ready to run calculations. It is
// immutable once created and Calculate may be called concurrently.
type Chart struct {
	def     *ChartDef
	proj    *wpd.Project
	inputs  map[string]perf.Input
	outputs map[string]perf.Output
	// exprs holds the compiled alternatives of each step's GuideSpec,
	// indexed by step; nil for steps without alternatives.
	exprs [][]*Expr
	lg    *log.Logger
}

var _ perf.Calculator = (*Chart)(nil)

// NewChart checks def against the project it refers to and returns a
// Chart for it. The returned error lists every problem found.
func NewChart(def *ChartDef, proj *wpd.Project, lg *log.Logger) (*Chart, error) {
	c := &Chart{
		def:     deep.MustCopy(def),
		proj:    proj,
		inputs:  make(map[string]perf.Input),
		outputs: make(map[string]perf.Output),
		exprs:   make([][]*Expr, len(def.Steps)),
		lg:      lg,
	}

	var e util.ErrorLogger
	if c.def.Kind != ChartKind {
		e.ErrorString("unexpected chart kind %q", c.def.Kind)
	}
	if len(c.def.Steps) == 0 {
		e.ErrorString("no steps given")
	}

	for i, step := range c.def.Steps {
		e.Push(fmt.Sprintf("step %d", i+1))
		switch {
		case (step.Chase == nil) == (step.Solve == nil):
			e.Error(ErrInvalidStep)

		case step.Chase != nil:
			c.checkChase(i, step.Chase, &e)

		default:
			c.checkSolve(step.Solve, &e)
		}
		e.Pop()
	}

	if err := e.Err(ErrInvalidChart); err != nil {
		return nil, err
	}
	c.checkConditions()
	return c, nil
}

// checkConditions warns about guide conditions that refer to variables
// the chart neither takes nor produces; those must come from the caller.
func (c *Chart) checkConditions() {
	for i, exprs := range c.exprs {
		for _, expr := range exprs {
			for _, name := range expr.Variables() {
				_, in := c.inputs[name]
				_, out := c.outputs[name]
				if !in && !out {
					c.lg.Warn("guide condition refers to a variable that is not a chart input or output",
						"step", i+1, "condition", expr.String(), "variable", name)
				}
			}
		}
	}
}

func checkUnit(u perf.Unit, e *util.ErrorLogger) {
	if _, err := perf.ParseUnit(string(u)); err != nil {
		e.Error(err)
	}
}

func checkDirection(d math.Direction, e *util.ErrorLogger) {
	if _, err := math.ParseDirection(string(d)); err != nil {
		e.Error(err)
	}
}

func (c *Chart) checkChase(i int, ch *Chase, e *util.ErrorLogger) {
	checkDirection(ch.Chase, e)

	exprs, err := ch.Along.compile()
	if err != nil {
		e.Error(err)
	}
	c.exprs[i] = exprs

	for _, name := range ch.Along.Names() {
		if !c.proj.IsGuide(name) && !c.proj.IsScale(name) {
			e.ErrorString("%q: no such guide or scale", name)
		}
	}

	if ch.Until == "" {
		if ch.Unit != "" {
			e.ErrorString("\"unit\" given without \"until\"")
		}
		return
	}

	switch {
	case c.proj.IsScale(ch.Until):
		if ch.Unit == "" {
			e.ErrorString("%q: no unit given", ch.Until)
			return
		}
		checkUnit(ch.Unit, e)
		r, err := c.proj.Range(ch.Until)
		if err != nil {
			e.Error(err)
			return
		}
		c.inputs[ch.Until] = perf.Input{Unit: ch.Unit, Range: r}

	case c.proj.IsGuide(ch.Until):
		// Guides stop the chase wherever they're crossed; no input needed.

	default:
		e.ErrorString("%q: no such guide or scale", ch.Until)
	}
}

func (c *Chart) checkSolve(s *Solve, e *util.ErrorLogger) {
	checkDirection(s.Solve, e)
	if !c.proj.IsScale(s.Using) {
		e.ErrorString("%q: not a scale", s.Using)
	}
	checkUnit(s.Unit, e)
	c.outputs[s.Using] = perf.Output{Unit: s.Unit}
}

func (c *Chart) Inputs() map[string]perf.Input   { return maps.Clone(c.inputs) }
func (c *Chart) Outputs() map[string]perf.Output { return maps.Clone(c.outputs) }

// Def returns a copy of the chart's definition.
func (c *Chart) Def() *ChartDef { return deep.MustCopy(c.def) }

func (c *Chart) Project() *wpd.Project { return c.proj }

// Calculate runs the chart's steps for the given variables. Every input
// must be present; variables are converted to the units the chart
// expects before use.
func (c *Chart) Calculate(vars perf.Variables) (*perf.Calculation, error) {
	missing := util.FilterSlice(util.SortedMapKeys(c.inputs), func(name string) bool {
		_, ok := vars[name]
		return !ok
	})
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingInputs, strings.Join(missing, ", "))
	}

	converted, err := perf.ConvertVariables(vars, c.inputs)
	if err != nil {
		return nil, err
	}

	ctx := NewCalcContext(converted, c.lg)
	for i, step := range c.def.Steps {
		var r StepResult
		if step.Chase != nil {
			r, err = c.chase(ctx, i, step.Chase)
		} else {
			r, err = c.solve(ctx, step.Solve)
		}
		if err != nil {
			return nil, fmt.Errorf("step %d: %w", i+1, err)
		}
		r.Step = step
		ctx.Apply(r)
	}

	return ctx.Calculation(), nil
}

func (c *Chart) chase(ctx *CalcContext, i int, ch *Chase) (StepResult, error) {
	name, err := c.selectGuide(ctx, i, ch.Along)
	if err != nil {
		return StepResult{}, err
	}
	along, err := c.lookup(ctx, name, ch.Chase)
	if err != nil {
		return StepResult{}, err
	}

	if ch.Until == "" {
		pos, err := ctx.Position()
		if err != nil {
			return StepResult{}, err
		}
		_, tail, err := along.SplitAt(pos)
		if err != nil {
			return StepResult{}, fmt.Errorf("%s: %w", name, err)
		}
		return StepResult{Guides: []*wpd.Contour{along}, Vector: tail}, nil
	}

	until, err := c.lookup(ctx, ch.Until, ch.Chase.Cross())
	if err != nil {
		return StepResult{}, err
	}
	head, _, err := along.SplitContour(until)
	if err != nil {
		return StepResult{}, fmt.Errorf("%s until %s: %w", name, ch.Until, err)
	}
	return StepResult{Guides: []*wpd.Contour{along, until}, Vector: head}, nil
}

func (c *Chart) solve(ctx *CalcContext, s *Solve) (StepResult, error) {
	pos, err := ctx.Position()
	if err != nil {
		return StepResult{}, err
	}
	v, contour, err := c.proj.Solve(s.Using, s.Solve, pos)
	if err != nil {
		return StepResult{}, err
	}

	r := StepResult{
		Guides:  []*wpd.Contour{contour},
		Vector:  contour,
		Outputs: perf.Variables{s.Using: {Unit: c.outputs[s.Using].Unit, Value: v}},
	}
	dir, err := ctx.Direction()
	if err != nil {
		return StepResult{}, err
	}
	if dir != s.Solve {
		// Turning a corner onto the scale: only the part past the cursor
		// was traversed. The cursor may stop just short of the scale.
		if _, r.Vector, err = contour.SplitAt(contour.Clamp(pos)); err != nil {
			return StepResult{}, fmt.Errorf("%s: %w", s.Using, err)
		}
	}
	return r, nil
}

// selectGuide returns the name of the guide or scale a GuideSpec refers
// to given the current variables.
func (c *Chart) selectGuide(ctx *CalcContext, i int, g GuideSpec) (string, error) {
	if !g.IsConditional() {
		return g.Name, nil
	}

	vars := ctx.Values()
	var matches []string
	for j, expr := range c.exprs[i] {
		ok, err := expr.Eval(vars)
		if errors.Is(err, ErrUnboundVariable) {
			continue
		} else if err != nil {
			return "", err
		}
		if ok {
			matches = append(matches, g.Alternatives[j].Guide)
		}
	}

	if len(matches) != 1 {
		exprs := util.MapSlice(g.Alternatives, func(a Alternative) string { return a.Expr })
		return "", fmt.Errorf("%w: [%s]", ErrAmbiguousGuide, strings.Join(exprs, "], ["))
	}
	return matches[0], nil
}

// lookup returns the contour for name traversed in dir: for a scale, the
// one for the variable's current value; for a guide, the one passing
// through the cursor.
func (c *Chart) lookup(ctx *CalcContext, name string, dir math.Direction) (*wpd.Contour, error) {
	if c.proj.IsScale(name) {
		v, err := ctx.Get(name)
		if err != nil {
			return nil, err
		}
		return c.proj.Scale(name, dir, v)
	}

	pos, err := ctx.Position()
	if err != nil {
		return nil, err
	}
	return c.proj.Guide(name, dir, pos)
}
