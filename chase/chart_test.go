// chase/chart_test.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package chase

import (
	"bytes"
	"errors"
	gomath "math"
	"os"
	"slices"
	"strings"
	"sync"
	"testing"

	"github.com/mmp/perfchart/log"
	"github.com/mmp/perfchart/math"
	"github.com/mmp/perfchart/perf"
	"github.com/mmp/perfchart/util"
	"github.com/mmp/perfchart/wpd"

	"gopkg.in/yaml.v3"
)

func loadProject(t *testing.T, path string) *wpd.Project {
	t.Helper()
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var def wpd.ProjectDef
	if err := util.UnmarshalJSONBytes(b, &def); err != nil {
		t.Fatal(err)
	}
	p, err := wpd.NewProject(&def, nil)
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func loadChartDef(t *testing.T, path string) *ChartDef {
	t.Helper()
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var def ChartDef
	if strings.HasSuffix(path, ".yaml") {
		err = yaml.Unmarshal(b, &def)
	} else {
		err = util.UnmarshalJSONBytes(b, &def)
	}
	if err != nil {
		t.Fatal(err)
	}
	return &def
}

func loadChart(t *testing.T, name string) *Chart {
	t.Helper()
	def := loadChartDef(t, "testdata/"+name)
	c, err := NewChart(def, loadProject(t, "testdata/"+def.Project.Src), nil)
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func cruiseVars() perf.Variables {
	return perf.Variables{
		"outsideAirTemperature": {Unit: perf.DegreesCelsius, Value: 15},
		"pressureAltitude":      {Unit: perf.Feet, Value: 5000},
		"weight":                {Unit: perf.Kilograms, Value: 1000},
	}
}

func checkTAS(t *testing.T, calc *perf.Calculation) {
	t.Helper()
	tas, ok := calc.Vars["trueAirspeed"]
	if !ok {
		t.Fatalf("trueAirspeed not set in %v", calc.Vars)
	}
	if tas.Unit != perf.Knots {
		t.Errorf("got unit %q, expected knots", tas.Unit)
	}
	if gomath.Abs(tas.Value-114.921875) > 0.005 {
		t.Errorf("got true airspeed %f, expected 114.921875", tas.Value)
	}
}

func TestCruiseInputsOutputs(t *testing.T) {
	c := loadChart(t, "cruise.json")

	expected := map[string]perf.Input{
		"outsideAirTemperature": {Unit: perf.DegreesCelsius, Range: [2]float64{-20, 40}},
		"pressureAltitude":      {Unit: perf.Feet, Range: [2]float64{0, 10000}},
		"weight":                {Unit: perf.Kilograms, Range: [2]float64{800, 1200}},
	}
	inputs := c.Inputs()
	if len(inputs) != len(expected) {
		t.Errorf("got %d inputs, expected %d: %v", len(inputs), len(expected), inputs)
	}
	for name, in := range expected {
		if inputs[name] != in {
			t.Errorf("%s: got %+v, expected %+v", name, inputs[name], in)
		}
	}

	outputs := c.Outputs()
	if len(outputs) != 1 || outputs["trueAirspeed"].Unit != perf.Knots {
		t.Errorf("got outputs %v, expected trueAirspeed in knots", outputs)
	}
}

func TestCruiseCalculate(t *testing.T) {
	c := loadChart(t, "cruise.json")

	calc, err := c.Calculate(cruiseVars())
	if err != nil {
		t.Fatal(err)
	}
	checkTAS(t, calc)

	if len(calc.Guides) != 8 {
		t.Errorf("got %d guides, expected 8", len(calc.Guides))
	}

	expected := []math.Path{
		{{0, 220}, {175, 202.5}},
		{{175, 400}, {175, 202.5}, {300, 202.5}, {400, 240.3125}, {600, 240.3125}},
	}
	if len(calc.Vectors) != len(expected) {
		t.Fatalf("got %d vectors, expected %d: %v", len(calc.Vectors), len(expected), calc.Vectors)
	}
	for i := range expected {
		if len(calc.Vectors[i]) != len(expected[i]) {
			t.Errorf("vector %d: got %v, expected %v", i, calc.Vectors[i], expected[i])
			continue
		}
		for j := range expected[i] {
			if calc.Vectors[i][j] != expected[i][j] {
				t.Errorf("vector %d: got %v, expected %v", i, calc.Vectors[i], expected[i])
				break
			}
		}
	}

	// Inputs are passed through.
	if v := calc.Vars["weight"]; v.Value != 1000 || v.Unit != perf.Kilograms {
		t.Errorf("got weight %v, expected 1000 kilograms", v)
	}
}

func TestCruiseConvertsUnits(t *testing.T) {
	c := loadChart(t, "cruise.json")

	calc, err := c.Calculate(perf.Variables{
		"outsideAirTemperature": {Unit: perf.DegreesFahrenheit, Value: 59},
		"pressureAltitude":      {Unit: perf.Meters, Value: 1524},
		"weight":                {Unit: perf.Pounds, Value: 2204.62},
	})
	if err != nil {
		t.Fatal(err)
	}
	checkTAS(t, calc)

	if v := calc.Vars["pressureAltitude"]; v.Unit != perf.Feet || gomath.Abs(v.Value-5000) > 0.001 {
		t.Errorf("got pressure altitude %v, expected 5000 feet", v)
	}

	_, err = c.Calculate(perf.Variables{
		"outsideAirTemperature": {Unit: perf.Kilograms, Value: 15},
		"pressureAltitude":      {Unit: perf.Feet, Value: 5000},
		"weight":                {Unit: perf.Kilograms, Value: 1000},
	})
	if !errors.Is(err, perf.ErrNoConversion) {
		t.Errorf("got error %v, expected ErrNoConversion", err)
	}
}

func TestCruiseYAMLConditional(t *testing.T) {
	c := loadChart(t, "cruise.yaml")

	vars := cruiseVars()
	vars["flaps"] = perf.Variable{Value: 0}
	calc, err := c.Calculate(vars)
	if err != nil {
		t.Fatal(err)
	}
	checkTAS(t, calc)

	// With flaps unset neither alternative can be evaluated.
	_, err = c.Calculate(cruiseVars())
	if !errors.Is(err, ErrAmbiguousGuide) {
		t.Fatalf("got error %v, expected ErrAmbiguousGuide", err)
	}
	if !strings.Contains(err.Error(), "Expected exactly one match in expression(s): [flaps == 0], [flaps != 0]") {
		t.Errorf("got error %q", err.Error())
	}
}

func TestAmbiguousGuide(t *testing.T) {
	def := loadChartDef(t, "testdata/cruise.json")
	def.Steps[3].Chase.Along = GuideSpec{Alternatives: []Alternative{
		{Expr: "weight > 900", Guide: "weightCorrection"},
		{Expr: "weight < 1100", Guide: "weightCorrection"},
	}}
	c, err := NewChart(def, loadProject(t, "testdata/cruise.wpd.json"), nil)
	if err != nil {
		t.Fatal(err)
	}

	_, err = c.Calculate(cruiseVars())
	if !errors.Is(err, ErrAmbiguousGuide) {
		t.Errorf("got error %v, expected ErrAmbiguousGuide", err)
	}

	vars := cruiseVars()
	vars["weight"] = perf.Variable{Unit: perf.Kilograms, Value: 1150}
	if _, err := c.Calculate(vars); err != nil {
		t.Errorf("unexpected error %v", err)
	}
}

func TestNewChartCopiesDef(t *testing.T) {
	def := loadChartDef(t, "testdata/cruise.json")
	c, err := NewChart(def, loadProject(t, "testdata/cruise.wpd.json"), nil)
	if err != nil {
		t.Fatal(err)
	}

	def.Steps[4].Solve.Using = "nonexistent"
	def.Steps = def.Steps[:1]

	calc, err := c.Calculate(cruiseVars())
	if err != nil {
		t.Fatal(err)
	}
	checkTAS(t, calc)
}

func TestNewChartErrors(t *testing.T) {
	proj := loadProject(t, "testdata/cruise.wpd.json")

	for _, test := range []struct {
		name   string
		modify func(def *ChartDef)
		msg    string
	}{
		{"kind", func(def *ChartDef) { def.Kind = "table" }, `unexpected chart kind "table"`},
		{"no steps", func(def *ChartDef) { def.Steps = nil }, "no steps given"},
		{"unknown along", func(def *ChartDef) { def.Steps[2].Chase.Along.Name = "nope" }, `step 3: "nope": no such guide or scale`},
		{"unknown until", func(def *ChartDef) { def.Steps[3].Chase.Until = "nope" }, `step 4: "nope": no such guide or scale`},
		{"no unit", func(def *ChartDef) { def.Steps[0].Chase.Unit = "" }, `step 1: "outsideAirTemperature": no unit given`},
		{"solve guide", func(def *ChartDef) { def.Steps[4].Solve.Using = "reference" }, `step 5: "reference": not a scale`},
		{"bad unit", func(def *ChartDef) { def.Steps[4].Solve.Unit = "furlongs" }, "step 5: Unknown unit"},
		{"bad direction", func(def *ChartDef) { def.Steps[2].Chase.Chase = "sideways" }, "step 3: \"sideways\": invalid direction"},
		{"empty step", func(def *ChartDef) { def.Steps[1] = Step{} }, "step 2: Invalid step"},
	} {
		t.Run(test.name, func(t *testing.T) {
			def := loadChartDef(t, "testdata/cruise.json")
			test.modify(def)
			_, err := NewChart(def, proj, nil)
			if !errors.Is(err, ErrInvalidChart) {
				t.Fatalf("got error %v, expected ErrInvalidChart", err)
			}
			if !strings.Contains(err.Error(), test.msg) {
				t.Errorf("got error %q, expected it to contain %q", err.Error(), test.msg)
			}
		})
	}
}

func TestTakeoffMissingInputs(t *testing.T) {
	c := loadChart(t, "takeoff.json")

	_, err := c.Calculate(perf.Variables{})
	if !errors.Is(err, ErrMissingInputs) {
		t.Fatalf("got error %v, expected ErrMissingInputs", err)
	}
	expected := "Missing inputs: obstacleHeight, outsideAirTemperature, pressureAltitude, weight, windComponent"
	if err.Error() != expected {
		t.Errorf("got %q, expected %q", err.Error(), expected)
	}

	r, err := c.Project().Range("pressureAltitude")
	if err != nil {
		t.Fatal(err)
	}
	if r != [2]float64{0, 10000} {
		t.Errorf("got range %v, expected [0 10000]", r)
	}

	if _, ok := c.Outputs()["takeoffDistance"]; !ok {
		t.Errorf("expected takeoffDistance output, got %v", c.Outputs())
	}
}

func checkVectors(t *testing.T, got, expected []math.Path) {
	t.Helper()
	if len(got) != len(expected) {
		t.Fatalf("got %d vectors, expected %d: %v", len(got), len(expected), got)
	}
	for i := range expected {
		if !pathNear(got[i], expected[i]) {
			t.Errorf("vector %d: got %v, expected %v", i, got[i], expected[i])
		}
	}
}

func pathNear(a, b math.Path) bool {
	return slices.EqualFunc(a, b, func(p, q math.Point) bool {
		return gomath.Abs(p[0]-q[0]) < 1e-3 && gomath.Abs(p[1]-q[1]) < 1e-3
	})
}

// distanceVars are the inputs for the takeoff and landing charts. The
// obstacle height is given in meters; the charts expect feet.
func distanceVars() perf.Variables {
	return perf.Variables{
		"outsideAirTemperature": {Unit: perf.DegreesCelsius, Value: 20},
		"pressureAltitude":      {Unit: perf.Feet, Value: 5000},
		"weight":                {Unit: perf.Kilograms, Value: 1000},
		"windComponent":         {Unit: perf.Knots, Value: 10},
		"obstacleHeight":        {Unit: perf.Meters, Value: 15},
	}
}

func checkOutput(t *testing.T, calc *perf.Calculation, name string, unit perf.Unit, expected float64) {
	t.Helper()
	v, ok := calc.Vars[name]
	if !ok {
		t.Fatalf("%s not set in %v", name, calc.Vars)
	}
	if v.Unit != unit || gomath.Abs(v.Value-expected) > 0.005 {
		t.Errorf("got %s %v, expected %v %s", name, v, expected, unit)
	}
}

func TestTakeoffCalculate(t *testing.T) {
	c := loadChart(t, "takeoff.json")

	calc, err := c.Calculate(distanceVars())
	if err != nil {
		t.Fatal(err)
	}
	checkOutput(t, calc, "takeoffDistance", perf.Meters, 502.75825)
	checkOutput(t, calc, "obstacleHeight", perf.Feet, 49.2126)

	if len(calc.Guides) != 14 {
		t.Errorf("got %d guides, expected 14", len(calc.Guides))
	}
	// The final solve runs in the same direction as the last chase, so the
	// whole scale contour is traversed, starting past the cursor.
	checkVectors(t, calc.Vectors, []math.Path{
		{{0, 250}, {100, 225}},
		{{100, 400}, {100, 225}, {200, 225}, {325, 275.7813}, {400, 275.7813}, {500, 294.7267},
			{600, 294.7267}, {796.8504, 198.8967}, {800, 198.8967}, {1000, 198.8967}},
	})
}

func TestLandingCalculate(t *testing.T) {
	c := loadChart(t, "landing.json")

	// densityAltitude only bounds a chase and is a guide, not an input.
	inputs := c.Inputs()
	if len(inputs) != 5 {
		t.Errorf("got inputs %v, expected 5", inputs)
	}
	if _, ok := inputs["densityAltitude"]; ok {
		t.Errorf("guide densityAltitude reported as an input")
	}
	if in := inputs["obstacleHeight"]; in.Unit != perf.Feet || in.Range != [2]float64{0, 50} {
		t.Errorf("got obstacleHeight input %+v", in)
	}

	calc, err := c.Calculate(distanceVars())
	if err != nil {
		t.Fatal(err)
	}
	checkOutput(t, calc, "landingDistance", perf.Meters, 790.662275)

	if len(calc.Guides) != 16 {
		t.Errorf("got %d guides, expected 16", len(calc.Guides))
	}
	checkVectors(t, calc.Vectors, []math.Path{
		{{0, 250}, {100, 225}},
		// Chasing until the density altitude guide through the cursor
		// stops at the cursor.
		{{100, 400}, {100, 225}, {0, 225}, {100, 225}},
		// The solve turns down from a rightward chase, so only the part of
		// the scale below the cursor is traversed.
		{{100, 225}, {200, 225}, {325, 260.9375}, {400, 260.9375}, {500, 245.7032}, {600, 245.7032},
			{796.8504, 124.7863}, {838.1325, 400}},
	})
}

func TestSolveKeepsChaseDirection(t *testing.T) {
	// A second downward solve still turns the corner from the last chase,
	// which was to the right.
	def := loadChartDef(t, "testdata/landing.json")
	def.Steps = append(def.Steps, def.Steps[len(def.Steps)-1])
	c, err := NewChart(def, loadProject(t, "testdata/landing.wpd.json"), nil)
	if err != nil {
		t.Fatal(err)
	}

	calc, err := c.Calculate(distanceVars())
	if err != nil {
		t.Fatal(err)
	}
	checkOutput(t, calc, "landingDistance", perf.Meters, 790.662275)

	last := calc.Vectors[len(calc.Vectors)-1]
	if len(last) < 4 || !pathNear(last[len(last)-4:], math.Path{{796.8504, 124.7863}, {838.1325, 400},
		{796.8504, 124.7863}, {838.1325, 400}}) {
		t.Errorf("got final vector %v", last)
	}
}

func TestSolveClampsCursor(t *testing.T) {
	// The cursor ends just short of the takeoff distance scale. Turning
	// onto the scale after an upward chase still reads it.
	def := loadChartDef(t, "testdata/takeoff.json")
	noAdvance := false
	up := Step{Chase: &Chase{Chase: math.Up, Along: GuideSpec{Name: "obstacleHeight"}, Advance: &noAdvance}}
	def.Steps = slices.Insert(def.Steps, len(def.Steps)-1, up)
	c, err := NewChart(def, loadProject(t, "testdata/takeoff.wpd.json"), nil)
	if err != nil {
		t.Fatal(err)
	}

	calc, err := c.Calculate(distanceVars())
	if err != nil {
		t.Fatal(err)
	}
	checkOutput(t, calc, "takeoffDistance", perf.Meters, 502.75825)

	checkVectors(t, calc.Vectors[1:], []math.Path{
		{{100, 400}, {100, 225}, {200, 225}, {325, 275.7813}, {400, 275.7813}, {500, 294.7267},
			{600, 294.7267}, {796.8504, 198.8967}, {796.8504, 0}},
		{{800, 198.8967}, {1000, 198.8967}},
	})
}

func TestGuideConditionWarning(t *testing.T) {
	var buf bytes.Buffer
	def := loadChartDef(t, "testdata/cruise.yaml")
	if _, err := NewChart(def, loadProject(t, "testdata/cruise.wpd.json"), log.NewWithWriter("warn", &buf)); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "flaps") {
		t.Errorf("expected a warning about flaps, got %q", buf.String())
	}

	buf.Reset()
	if _, err := NewChart(loadChartDef(t, "testdata/cruise.json"), loadProject(t, "testdata/cruise.wpd.json"),
		log.NewWithWriter("warn", &buf)); err != nil {
		t.Fatal(err)
	}
	if buf.Len() != 0 {
		t.Errorf("unexpected warnings %q", buf.String())
	}
}

func TestCalculateOutOfRange(t *testing.T) {
	c := loadChart(t, "cruise.json")

	vars := cruiseVars()
	vars["pressureAltitude"] = perf.Variable{Unit: perf.Feet, Value: 12000}
	_, err := c.Calculate(vars)
	if !errors.Is(err, wpd.ErrOutOfRange) {
		t.Errorf("got error %v, expected ErrOutOfRange", err)
	}
	if err != nil && !strings.HasPrefix(err.Error(), "step 1: ") {
		t.Errorf("got error %q, expected it to name step 1", err.Error())
	}
}

func TestCalculateConcurrent(t *testing.T) {
	c := loadChart(t, "cruise.json")

	var wg sync.WaitGroup
	errs := make([]error, 8)
	calcs := make([]*perf.Calculation, 8)
	for i := range errs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			calcs[i], errs[i] = c.Calculate(cruiseVars())
		}()
	}
	wg.Wait()

	for i := range errs {
		if errs[i] != nil {
			t.Errorf("%d: unexpected error %v", i, errs[i])
		} else {
			checkTAS(t, calcs[i])
		}
	}
}

func TestCalcContext(t *testing.T) {
	ctx := NewCalcContext(perf.Variables{"weight": {Unit: perf.Kilograms, Value: 1000}}, nil)

	if _, err := ctx.Direction(); !errors.Is(err, ErrNoDirection) {
		t.Errorf("got error %v, expected ErrNoDirection", err)
	}
	if _, err := ctx.Position(); !errors.Is(err, ErrNoPosition) {
		t.Errorf("got error %v, expected ErrNoPosition", err)
	}
	if _, err := ctx.Get("flaps"); !errors.Is(err, ErrVariableNotSet) {
		t.Errorf("got error %v, expected ErrVariableNotSet", err)
	}

	noAdvance := false
	ctx.Apply(StepResult{
		Step:   Step{Chase: &Chase{Chase: math.Right, Advance: &noAdvance}},
		Vector: wpd.NewContour(math.Path{{0, 10}, {5, 10}}, math.Right),
	})
	if _, err := ctx.Position(); !errors.Is(err, ErrNoPosition) {
		t.Errorf("non-advancing step moved the cursor")
	}
	if d, err := ctx.Direction(); err != nil || d != math.Right {
		t.Errorf("got (%v, %v), expected right", d, err)
	}

	ctx.Apply(StepResult{
		Step:   Step{Chase: &Chase{Chase: math.Up}},
		Vector: wpd.NewContour(math.Path{{2, 20}, {2, 10}}, math.Up),
	})
	if pt, err := ctx.Position(); err != nil || pt != (math.Point{2, 10}) {
		t.Errorf("got position (%v, %v), expected [2 10]", pt, err)
	}

	ctx.Apply(StepResult{
		Step:    Step{Solve: &Solve{Solve: math.Right, Using: "speed", Unit: perf.Knots}},
		Outputs: perf.Variables{"speed": {Unit: perf.Knots, Value: 120}},
	})
	if d, err := ctx.Direction(); err != nil || d != math.Up {
		t.Errorf("after solve got direction (%v, %v), expected up", d, err)
	}
	if v, err := ctx.Get("speed"); err != nil || v != 120 {
		t.Errorf("got speed (%v, %v), expected 120", v, err)
	}
	if v := ctx.Values(); v["speed"] != 120 || v["weight"] != 1000 {
		t.Errorf("got values %v", v)
	}

	if v := ctx.Vectors(); len(v) != 2 {
		t.Errorf("got %d vectors, expected 2: %v", len(v), v)
	}
	if len(ctx.Steps()) != 3 {
		t.Errorf("got %d steps, expected 3", len(ctx.Steps()))
	}
}

func TestDirectionIgnoresSolves(t *testing.T) {
	ctx := NewCalcContext(nil, nil)
	ctx.Apply(StepResult{Step: Step{Solve: &Solve{Solve: math.Down, Using: "speed", Unit: perf.Knots}}})
	if _, err := ctx.Direction(); !errors.Is(err, ErrNoDirection) {
		t.Errorf("got error %v after a lone solve, expected ErrNoDirection", err)
	}

	for _, step := range []Step{
		{Chase: &Chase{Chase: math.Right}},
		{Solve: &Solve{Solve: math.Down, Using: "speed", Unit: perf.Knots}},
		{Solve: &Solve{Solve: math.Right, Using: "distance", Unit: perf.Meters}},
	} {
		ctx.Apply(StepResult{Step: step})
		if d, err := ctx.Direction(); err != nil || d != math.Right {
			t.Errorf("after %s: got direction (%v, %v), expected right", step, d, err)
		}
	}
}
