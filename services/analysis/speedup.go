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
	"github.com/AleutianAI/convsweep/services/sweep"
)

// Speedup computes elementwise baseline/target ratios per row for each
// target column, returning an indexed table keyed by the source row
// key plus a "Label" level naming the target column.
//
// A (row, target) pair where either operand is an error-reference cell
// is excluded from the derived table, never coerced to zero or NaN.
func Speedup(src *sweep.Table, baseline string, targets []string) (*IndexedTable, error) {
	baseIdx, err := src.ColumnIndex(baseline)
	if err != nil {
		return nil, err
	}
	targetIdx := make([]int, len(targets))
	for i, label := range targets {
		idx, err := src.ColumnIndex(label)
		if err != nil {
			return nil, err
		}
		targetIdx[i] = idx
	}

	levels := append(append([]string(nil), src.KeyColumns...), "Label")
	out := NewIndexedTable(levels...)

	for _, row := range src.Rows() {
		base := row.Cells[baseIdx]
		if base.IsError {
			continue
		}
		for i, idx := range targetIdx {
			target := row.Cells[idx]
			if target.IsError {
				continue
			}
			key := append(append(Key(nil), row.Key...), targets[i])
			if err := out.Set(key, base.Value/target.Value); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}

// SubtractColumn subtracts one column from every other value column
// per row and removes it from the result, leaving the
// backend-specific cost with the fixed per-call overhead stripped out.
//
// This is an explicit, opt-in step: whether a consumer wants
// overhead-inclusive or overhead-free times is their call, so no other
// operation ever subtracts a baseline implicitly. Rows whose overhead
// cell is an error reference are dropped entirely; error cells in
// other columns pass through unchanged.
func SubtractColumn(src *sweep.Table, column string) (*sweep.Table, error) {
	colIdx, err := src.ColumnIndex(column)
	if err != nil {
		return nil, err
	}

	columns := make([]string, 0, len(src.Columns)-1)
	for i, label := range src.Columns {
		if i != colIdx {
			columns = append(columns, label)
		}
	}

	out := sweep.NewTable(src.KeyColumns, columns)
	out.Comments = append([]string(nil), src.Comments...)

	for _, row := range src.Rows() {
		base := row.Cells[colIdx]
		if base.IsError {
			continue
		}
		if err := out.BeginRow(row.Key...); err != nil {
			return nil, err
		}
		for i, cell := range row.Cells {
			if i == colIdx {
				continue
			}
			if cell.IsError {
				err = out.Append(cell)
			} else {
				err = out.Append(sweep.Value(cell.Value - base.Value))
			}
			if err != nil {
				return nil, err
			}
		}
		if err := out.EndRow(); err != nil {
			return nil, err
		}
	}
	return out, nil
}
