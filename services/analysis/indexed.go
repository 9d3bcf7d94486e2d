// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package analysis

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/AleutianAI/convsweep/services/sweep"
)

var (
	// ErrLevelNotFound indicates a key level absent from a table.
	ErrLevelNotFound = errors.New("level not found")

	// ErrKeyWidth indicates a key with the wrong number of fields.
	ErrKeyWidth = errors.New("key width does not match levels")

	// ErrDuplicateKey indicates two cells sharing one key tuple.
	ErrDuplicateKey = errors.New("duplicate key")
)

// Key is one tuple of key-level values.
type Key []string

// joinKey folds a key into the map lookup form. Unit separator keeps
// field boundaries unambiguous.
func joinKey(k Key) string {
	return strings.Join(k, "\x1f")
}

// IndexedTable maps composite key tuples to numeric values. It is the
// reshaping substrate of the analysis layer: a sweep table's (row key,
// column label) grid flattens into tuples here, and regroupings
// permute, split, or expand the tuple levels without ever touching a
// value.
//
// Error cells never enter an IndexedTable: they are excluded at
// construction, so every derived statistic runs over measurements only.
type IndexedTable struct {
	levels []string
	keys   []Key
	values map[string]float64
}

// NewIndexedTable creates an empty table with the given key levels.
func NewIndexedTable(levels ...string) *IndexedTable {
	return &IndexedTable{
		levels: append([]string(nil), levels...),
		values: make(map[string]float64),
	}
}

// Levels returns the key level names in order.
func (t *IndexedTable) Levels() []string {
	return append([]string(nil), t.levels...)
}

// Len returns the number of cells.
func (t *IndexedTable) Len() int { return len(t.keys) }

// Keys returns all key tuples in insertion order.
func (t *IndexedTable) Keys() []Key { return t.keys }

// Set stores one cell. Keys must be unique.
func (t *IndexedTable) Set(key Key, v float64) error {
	if len(key) != len(t.levels) {
		return fmt.Errorf("%w: key %v for levels %v", ErrKeyWidth, key, t.levels)
	}
	jk := joinKey(key)
	if _, ok := t.values[jk]; ok {
		return fmt.Errorf("%w: %v", ErrDuplicateKey, key)
	}
	t.keys = append(t.keys, append(Key(nil), key...))
	t.values[jk] = v
	return nil
}

// Get looks up one cell.
func (t *IndexedTable) Get(key Key) (float64, bool) {
	v, ok := t.values[joinKey(key)]
	return v, ok
}

// Values returns all cell values in key order.
func (t *IndexedTable) Values() []float64 {
	out := make([]float64, len(t.keys))
	for i, k := range t.keys {
		out[i] = t.values[joinKey(k)]
	}
	return out
}

// levelIndex finds a level by name.
func (t *IndexedTable) levelIndex(level string) (int, error) {
	for i, l := range t.levels {
		if l == level {
			return i, nil
		}
	}
	return 0, fmt.Errorf("%w: %q in %v", ErrLevelNotFound, level, t.levels)
}

// FromResultTable flattens a sweep result into level tuples: the
// table's key columns plus a trailing "Label" level holding the column
// label. Error-reference cells are dropped.
func FromResultTable(src *sweep.Table) (*IndexedTable, error) {
	levels := append(append([]string(nil), src.KeyColumns...), "Label")
	out := NewIndexedTable(levels...)

	for _, row := range src.Rows() {
		for i, cell := range row.Cells {
			if cell.IsError {
				continue
			}
			key := append(append(Key(nil), row.Key...), src.Columns[i])
			if err := out.Set(key, cell.Value); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}

// Reorder returns the table with its key levels permuted to the given
// order, which must name every existing level exactly once. Values are
// untouched; key tuples are re-sorted lexicographically in the new
// level order.
func (t *IndexedTable) Reorder(levels ...string) (*IndexedTable, error) {
	if len(levels) != len(t.levels) {
		return nil, fmt.Errorf("%w: reorder %v over %v", ErrLevelNotFound, levels, t.levels)
	}
	perm := make([]int, len(levels))
	for i, level := range levels {
		idx, err := t.levelIndex(level)
		if err != nil {
			return nil, err
		}
		perm[i] = idx
	}

	out := NewIndexedTable(levels...)
	for _, k := range t.keys {
		nk := make(Key, len(perm))
		for i, idx := range perm {
			nk[i] = k[idx]
		}
		if err := out.Set(nk, t.values[joinKey(k)]); err != nil {
			return nil, err
		}
	}
	sort.Slice(out.keys, func(i, j int) bool {
		return joinKey(out.keys[i]) < joinKey(out.keys[j])
	})
	return out, nil
}

// Filter returns the cells whose value at the given level satisfies
// keep. The level structure is unchanged.
func (t *IndexedTable) Filter(level string, keep func(string) bool) (*IndexedTable, error) {
	idx, err := t.levelIndex(level)
	if err != nil {
		return nil, err
	}
	out := NewIndexedTable(t.levels...)
	for _, k := range t.keys {
		if !keep(k[idx]) {
			continue
		}
		if err := out.Set(k, t.values[joinKey(k)]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Group is one group produced by GroupBy: the shared level value and
// the sub-table of remaining levels.
type Group struct {
	Value string
	Table *IndexedTable
}

// GroupBy splits the table by the distinct values of one level. The
// grouped level is removed from each sub-table; groups appear in
// first-occurrence order. A pure reshape: no values are aggregated.
func (t *IndexedTable) GroupBy(level string) ([]Group, error) {
	idx, err := t.levelIndex(level)
	if err != nil {
		return nil, err
	}

	rest := make([]string, 0, len(t.levels)-1)
	for i, l := range t.levels {
		if i != idx {
			rest = append(rest, l)
		}
	}

	var order []string
	groups := make(map[string]*IndexedTable)
	for _, k := range t.keys {
		gv := k[idx]
		sub, ok := groups[gv]
		if !ok {
			sub = NewIndexedTable(rest...)
			groups[gv] = sub
			order = append(order, gv)
		}
		nk := make(Key, 0, len(k)-1)
		for i, f := range k {
			if i != idx {
				nk = append(nk, f)
			}
		}
		if err := sub.Set(nk, t.values[joinKey(k)]); err != nil {
			return nil, err
		}
	}

	out := make([]Group, len(order))
	for i, gv := range order {
		out[i] = Group{Value: gv, Table: groups[gv]}
	}
	return out, nil
}

// Expand replaces one key level with several derived levels, using
// expand to decompose each of its values. Cells whose value cannot be
// decomposed are dropped, which lets a caller restrict to one variant
// family and split its label in a single step.
func (t *IndexedTable) Expand(level string, sublevels []string, expand func(string) (Key, bool)) (*IndexedTable, error) {
	idx, err := t.levelIndex(level)
	if err != nil {
		return nil, err
	}

	levels := make([]string, 0, len(t.levels)-1+len(sublevels))
	levels = append(levels, t.levels[:idx]...)
	levels = append(levels, sublevels...)
	levels = append(levels, t.levels[idx+1:]...)

	out := NewIndexedTable(levels...)
	for _, k := range t.keys {
		sub, ok := expand(k[idx])
		if !ok {
			continue
		}
		if len(sub) != len(sublevels) {
			return nil, fmt.Errorf("%w: expansion %v for sublevels %v", ErrKeyWidth, sub, sublevels)
		}
		nk := make(Key, 0, len(levels))
		nk = append(nk, k[:idx]...)
		nk = append(nk, sub...)
		nk = append(nk, k[idx+1:]...)
		if err := out.Set(nk, t.values[joinKey(k)]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// ComparisonSeries holds aligned value sequences extracted by Pairs:
// X[i] and Y[i] share the key Keys[i] over the remaining levels.
type ComparisonSeries struct {
	Levels []string
	Keys   []Key
	X      []float64
	Y      []float64
}

// Pairs pivots one level into an aligned two-column series: for every
// remaining-key tuple holding both an xValue and a yValue cell at the
// given level, one (x, y) pair. Tuples missing either side are
// excluded. This is how reuse-off/reuse-on and effort-level pairs are
// lined up for correlation.
func (t *IndexedTable) Pairs(level, xValue, yValue string) (*ComparisonSeries, error) {
	idx, err := t.levelIndex(level)
	if err != nil {
		return nil, err
	}

	rest := make([]string, 0, len(t.levels)-1)
	for i, l := range t.levels {
		if i != idx {
			rest = append(rest, l)
		}
	}
	series := &ComparisonSeries{Levels: rest}

	seen := make(map[string]bool)
	for _, k := range t.keys {
		if k[idx] != xValue {
			continue
		}
		rk := make(Key, 0, len(k)-1)
		for i, f := range k {
			if i != idx {
				rk = append(rk, f)
			}
		}
		if seen[joinKey(rk)] {
			continue
		}
		seen[joinKey(rk)] = true

		yk := append(Key(nil), k...)
		yk[idx] = yValue
		y, ok := t.values[joinKey(yk)]
		if !ok {
			continue
		}
		series.Keys = append(series.Keys, rk)
		series.X = append(series.X, t.values[joinKey(k)])
		series.Y = append(series.Y, y)
	}
	return series, nil
}

// AggregateMean reduces each group to the mean of its values. The
// explicit aggregation step that GroupBy deliberately does not do.
func AggregateMean(groups []Group) ([]float64, error) {
	out := make([]float64, len(groups))
	for i, g := range groups {
		m, err := Mean(g.Table.Values())
		if err != nil {
			return nil, err
		}
		out[i] = m
	}
	return out, nil
}

// TransformKey decomposes a transform label into its (effort, threads,
// reuse) expansion key, for use with Expand. Non-transform labels
// report false.
func TransformKey(label string) (Key, bool) {
	l, err := ParseLabel(label)
	if err != nil || l.Family != FamilyTransform {
		return nil, false
	}
	reuse := "N"
	if l.Reuse {
		reuse = "Y"
	}
	return Key{fmt.Sprintf("%d", l.Effort), fmt.Sprintf("%d", l.Threads), reuse}, true
}
