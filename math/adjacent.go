// math/adjacent.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package math

import (
	"maps"
	"slices"
)

// PickAdjacent finds the one or two entries adjacent to value, where key
// gives the numeric key of each entry. It returns the index of the first
// adjacent entry in key order along with the entries themselves:
//
//   - an exact key match returns just that entry,
//   - a value below the smallest key returns the first entry,
//   - a value above the largest key returns the last entry,
//   - otherwise the entries on either side are returned, lower first.
//
// The entries need not be sorted. Entries sharing a key collapse to the
// last one given. An empty slice returns (-1, nil).
func PickAdjacent[E any](entries []E, key func(E) float64, value float64) (int, []E) {
	if len(entries) == 0 {
		return -1, nil
	}

	byKey := make(map[float64]E, len(entries))
	for _, e := range entries {
		byKey[key(e)] = e
	}
	keys := slices.Sorted(maps.Keys(byKey))

	ui := slices.IndexFunc(keys, func(k float64) bool { return k >= value })
	if ui == -1 {
		last := len(keys) - 1
		return last, []E{byKey[keys[last]]}
	}
	if keys[ui] == value || ui == 0 {
		return ui, []E{byKey[keys[ui]]}
	}
	return ui - 1, []E{byKey[keys[ui-1]], byKey[keys[ui]]}
}
