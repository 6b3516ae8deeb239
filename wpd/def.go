// wpd/def.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// Package wpd interprets curve data digitized from chart images with
// WebPlotDigitizer. Datasets named "guide:<name>@<order>" are members of
// an unvalued guide family; datasets named "guide:<name>=<value>" are
// members of a valued scale. Everything else is ignored.
package wpd

import (
	"regexp"
	"strconv"

	"github.com/mmp/perfchart/math"
	"github.com/mmp/perfchart/util"
)

// ProjectDef is the subset of a WebPlotDigitizer project file that is
// needed to evaluate charts.
type ProjectDef struct {
	Version     [2]int    `json:"version" msgpack:"version"`
	DatasetColl []Dataset `json:"datasetColl" msgpack:"datasetColl"`
}

type Dataset struct {
	Name string      `json:"name" msgpack:"name"`
	Data []DataPoint `json:"data" msgpack:"data"`
}

type DataPoint struct {
	Value math.Point `json:"value" msgpack:"value"`
}

func (d Dataset) Path() math.Path {
	return util.MapSlice(d.Data, func(dp DataPoint) math.Point { return dp.Value })
}

var SupportedVersion = [2]int{4, 2}

// IsProjectDef reports whether a generically decoded JSON or YAML
// document looks like a supported project file.
func IsProjectDef(v any) bool {
	m, ok := v.(map[string]any)
	if !ok {
		return false
	}
	version, ok := m["version"].([]any)
	if !ok || len(version) != 2 || !isNumber(version[0], SupportedVersion[0]) ||
		!isNumber(version[1], SupportedVersion[1]) {
		return false
	}
	datasets, ok := m["datasetColl"].([]any)
	if !ok {
		return false
	}
	for _, ds := range datasets {
		dm, ok := ds.(map[string]any)
		if !ok {
			return false
		}
		if _, ok := dm["data"].([]any); !ok {
			return false
		}
	}
	return true
}

// isNumber handles both encoding/json's float64s and yaml's ints.
func isNumber(v any, n int) bool {
	switch v := v.(type) {
	case float64:
		return v == float64(n)
	case int:
		return v == n
	default:
		return false
	}
}

type datasetKind int

const (
	ignoredDataset datasetKind = iota
	guideDataset
	scaleDataset
)

var datasetNameRE = regexp.MustCompile(`^guide:([^=@]+)(?:@(0|-?[1-9]\d*)|=(-?(?:0|[1-9]\d*)(?:\.\d+)?))$`)

// parseDatasetName classifies a dataset name, returning the guide or
// scale name and the member's order or value.
func parseDatasetName(name string) (datasetKind, string, float64) {
	m := datasetNameRE.FindStringSubmatch(name)
	if m == nil {
		return ignoredDataset, "", 0
	}
	if m[2] != "" {
		order, err := strconv.Atoi(m[2])
		if err != nil {
			return ignoredDataset, "", 0
		}
		return guideDataset, m[1], float64(order)
	}
	value, err := strconv.ParseFloat(m[3], 64)
	if err != nil {
		return ignoredDataset, "", 0
	}
	return scaleDataset, m[1], value
}

// Validate records problems with the project in e: unsupported versions,
// empty guide or scale members, names used for both a guide and a scale,
// and repeated orders or values within a family.
func (p *ProjectDef) Validate(e *util.ErrorLogger) {
	defer e.CheckDepth(e.CurrentDepth())

	if p.Version != SupportedVersion {
		e.ErrorString("unsupported project version %d.%d; expected %d.%d", p.Version[0], p.Version[1],
			SupportedVersion[0], SupportedVersion[1])
	}

	kinds := make(map[string]datasetKind)
	seen := make(map[string]map[float64]bool)
	for _, ds := range p.DatasetColl {
		kind, name, v := parseDatasetName(ds.Name)
		if kind == ignoredDataset {
			continue
		}

		e.Push(ds.Name)
		if len(ds.Data) == 0 {
			e.ErrorString("no data points")
		}
		if k, ok := kinds[name]; ok && k != kind {
			e.ErrorString("%q is used for both a guide and a scale", name)
		}
		kinds[name] = kind

		if seen[name] == nil {
			seen[name] = make(map[float64]bool)
		}
		if seen[name][v] {
			e.ErrorString("repeated %s", util.Select(kind == guideDataset, "order", "value"))
		}
		seen[name][v] = true
		e.Pop()
	}
}
