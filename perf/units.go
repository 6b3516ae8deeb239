// perf/units.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package perf

import (
	"errors"
	"fmt"
	"maps"
	"slices"
)

var (
	ErrNoConversion = errors.New("No conversion")
	ErrUnknownUnit  = errors.New("Unknown unit")
)

// Unit names a unit of measure. Values are the human-readable names used
// in chart definitions, e.g. "degrees celsius".
type Unit string

const (
	// Altitude
	Feet   Unit = "feet"
	Meters Unit = "meters"

	// Distance
	Kilometers    Unit = "kilometers"
	NauticalMiles Unit = "nautical miles"
	StatuteMiles  Unit = "statute miles"

	// Power
	Percent Unit = "percent"

	// Temperature
	DegreesCelsius    Unit = "degrees celsius"
	DegreesFahrenheit Unit = "degrees fahrenheit"

	// Velocity
	FeetPerMinute     Unit = "feet per minute"
	Knots             Unit = "knots"
	KilometersPerHour Unit = "kilometers per hour"
	MetersPerMinute   Unit = "meters per minute"
	MetersPerSecond   Unit = "meters per second"
	MilesPerHour      Unit = "miles per hour"

	// Weight
	Kilograms Unit = "kilograms"
	Pounds    Unit = "pounds"
)

var knownUnits = map[Unit]bool{
	Feet: true, Meters: true,
	Kilometers: true, NauticalMiles: true, StatuteMiles: true,
	Percent:        true,
	DegreesCelsius: true, DegreesFahrenheit: true,
	FeetPerMinute: true, Knots: true, KilometersPerHour: true, MetersPerMinute: true, MetersPerSecond: true, MilesPerHour: true,
	Kilograms: true, Pounds: true,
}

// Units returns the names of all known units, sorted.
func Units() []Unit {
	return slices.Sorted(maps.Keys(knownUnits))
}

func ParseUnit(s string) (Unit, error) {
	if u := Unit(s); knownUnits[u] {
		return u, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownUnit, s)
}

func (u *Unit) UnmarshalText(b []byte) error {
	unit, err := ParseUnit(string(b))
	if err != nil {
		return err
	}
	*u = unit
	return nil
}

type conversion struct {
	proportion, adjustment float64
}

// conversions maps "from:to" to the linear transform to apply. The
// reverse direction is derived by inverting the transform.
var conversions = map[string]conversion{
	"degrees celsius:degrees fahrenheit": {9. / 5, 32},
	"feet:meters":                        {0.3048, 0},
	"feet per minute:meters per minute":  {0.3048, 0},
	"pounds:kilograms":                   {0.453592, 0},
	"knots:kilometers per hour":          {1.852, 0},
	"knots:miles per hour":               {1.150779, 0},
	"nautical miles:kilometers":          {1.852, 0},
	"nautical miles:statute miles":       {1.150779, 0},
	"statute miles:kilometers":           {1.609344, 0},
	"meters per second:feet per minute":  {196.850394, 0},
}

// ConvertUnits converts value from one unit to another.
func ConvertUnits(value float64, from, to Unit) (float64, error) {
	if from == to {
		return value, nil
	}
	if c, ok := conversions[string(from)+":"+string(to)]; ok {
		return value*c.proportion + c.adjustment, nil
	}
	if c, ok := conversions[string(to)+":"+string(from)]; ok {
		return (value - c.adjustment) / c.proportion, nil
	}
	return 0, fmt.Errorf("%w: %s to %s", ErrNoConversion, from, to)
}
