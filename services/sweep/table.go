// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package sweep

import "fmt"

// -----------------------------------------------------------------------------
// Cells
// -----------------------------------------------------------------------------

// Cell is one measurement slot: a numeric value or an error reference,
// never both.
type Cell struct {
	Value   float64
	ErrorID int
	IsError bool
}

// Value makes a numeric cell.
func Value(v float64) Cell {
	return Cell{Value: v}
}

// ErrorRef makes an error-reference cell pointing at a registry id.
func ErrorRef(id int) Cell {
	return Cell{ErrorID: id, IsError: true}
}

// -----------------------------------------------------------------------------
// Rows and tables
// -----------------------------------------------------------------------------

// Row is one table row: key values plus one cell per column, in header
// order.
type Row struct {
	Key   []string
	Cells []Cell
}

// Table accumulates measurement rows keyed by row key and variant
// label. It is built incrementally in strict header order and owned by
// exactly one sweep invocation; once the sweep completes it is treated
// as immutable and only read by the analysis layer.
//
// Invariant: every finished row has exactly one cell per column. A
// mismatch is a programming error in the sweep loop (ErrRowWidth), not
// a recoverable measurement condition.
type Table struct {
	// KeyColumns name the row-key fields, e.g. ["Img", "Krn"].
	KeyColumns []string

	// Columns are the variant labels, in sweep column order.
	Columns []string

	// Comments are persisted as '#'-prefixed lines ahead of the header.
	Comments []string

	rows []Row
	open *Row
}

// NewTable creates an empty table with the given key columns and
// variant columns.
func NewTable(keyColumns, columns []string) *Table {
	return &Table{
		KeyColumns: append([]string(nil), keyColumns...),
		Columns:    append([]string(nil), columns...),
	}
}

// AddComment appends a comment line to be persisted ahead of the
// header. The leading "# " is added by the encoder.
func (t *Table) AddComment(format string, args ...any) {
	t.Comments = append(t.Comments, fmt.Sprintf(format, args...))
}

// BeginRow opens a new row for the given key values. The previous row
// must have been ended.
func (t *Table) BeginRow(key ...string) error {
	if t.open != nil {
		return fmt.Errorf("%w: row %v", ErrRowOpen, t.open.Key)
	}
	if len(key) != len(t.KeyColumns) {
		return fmt.Errorf("%w: key %v for key columns %v", ErrRowWidth, key, t.KeyColumns)
	}
	t.open = &Row{Key: append([]string(nil), key...)}
	return nil
}

// Append adds the next cell to the open row, in header order.
func (t *Table) Append(c Cell) error {
	if t.open == nil {
		return ErrNoRow
	}
	if len(t.open.Cells) >= len(t.Columns) {
		return fmt.Errorf("%w: row %v already has %d cells", ErrRowWidth, t.open.Key, len(t.Columns))
	}
	t.open.Cells = append(t.open.Cells, c)
	return nil
}

// EndRow closes the open row, enforcing the width invariant.
func (t *Table) EndRow() error {
	if t.open == nil {
		return ErrNoRow
	}
	if len(t.open.Cells) != len(t.Columns) {
		return fmt.Errorf("%w: row %v has %d cells, header has %d",
			ErrRowWidth, t.open.Key, len(t.open.Cells), len(t.Columns))
	}
	t.rows = append(t.rows, *t.open)
	t.open = nil
	return nil
}

// Rows returns the finished rows.
func (t *Table) Rows() []Row {
	return t.rows
}

// NumRows returns the number of finished rows.
func (t *Table) NumRows() int {
	return len(t.rows)
}

// ColumnIndex returns the index of a column label.
func (t *Table) ColumnIndex(label string) (int, error) {
	for i, c := range t.Columns {
		if c == label {
			return i, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrColumnNotFound, label)
}

// Column returns all cells of one column, in row order.
func (t *Table) Column(label string) ([]Cell, error) {
	idx, err := t.ColumnIndex(label)
	if err != nil {
		return nil, err
	}
	cells := make([]Cell, len(t.rows))
	for i, row := range t.rows {
		cells[i] = row.Cells[idx]
	}
	return cells, nil
}

// Select produces an equivalent table restricted to the given columns,
// optionally renamed, without altering any value. This is how device
// variants are regrouped by device instead of platform+device+precision
// before cross-source comparison.
func (t *Table) Select(columns []string, rename map[string]string) (*Table, error) {
	indices := make([]int, len(columns))
	newNames := make([]string, len(columns))
	for i, label := range columns {
		idx, err := t.ColumnIndex(label)
		if err != nil {
			return nil, err
		}
		indices[i] = idx
		if newName, ok := rename[label]; ok {
			newNames[i] = newName
		} else {
			newNames[i] = label
		}
	}

	out := NewTable(t.KeyColumns, newNames)
	out.Comments = append([]string(nil), t.Comments...)
	for _, row := range t.rows {
		cells := make([]Cell, len(indices))
		for i, idx := range indices {
			cells[i] = row.Cells[idx]
		}
		out.rows = append(out.rows, Row{
			Key:   append([]string(nil), row.Key...),
			Cells: cells,
		})
	}
	return out, nil
}
