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

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// DefaultMinWidth is the default minimum value-column width. Ten
// characters fit "%10.4f" renderings of every time the sweep produces
// and keep the error placeholders visually aligned with numbers.
const DefaultMinWidth = 10

// encodePrecision is the fixed number of decimals for persisted values.
// Parsing recovers values to this precision; it is part of the wire
// format.
const encodePrecision = 4

// Encoder renders a table as a fixed-width text grid.
//
// The format is the persisted wire format: comment lines start with
// '#', the header holds right-justified column labels, every data row
// holds right-justified fixed-decimal values or [E<id>] placeholders
// sized to match the numeric columns. The trailing error summary is
// never part of this format.
type Encoder struct {
	table     *Table
	keyWidths []int
	colWidths []int
}

// NewEncoder computes column widths for the table. minWidth bounds the
// value columns from below; zero or negative selects DefaultMinWidth.
func NewEncoder(t *Table, minWidth int) *Encoder {
	if minWidth <= 0 {
		minWidth = DefaultMinWidth
	}

	e := &Encoder{
		table:     t,
		keyWidths: make([]int, len(t.KeyColumns)),
		colWidths: make([]int, len(t.Columns)),
	}

	for i, name := range t.KeyColumns {
		e.keyWidths[i] = len(name)
	}
	for _, row := range t.rows {
		for i, k := range row.Key {
			if len(k) > e.keyWidths[i] {
				e.keyWidths[i] = len(k)
			}
		}
	}

	for i, label := range t.Columns {
		e.colWidths[i] = minWidth
		if len(label) > e.colWidths[i] {
			e.colWidths[i] = len(label)
		}
	}

	return e
}

// NewEncoderSized is NewEncoder with explicit key-column widths,
// for callers that emit rows live, before the table holds them. Widths
// below the key-column name lengths are raised to fit.
func NewEncoderSized(t *Table, minWidth int, keyWidths []int) *Encoder {
	e := NewEncoder(t, minWidth)
	for i := range e.keyWidths {
		if i < len(keyWidths) && keyWidths[i] > e.keyWidths[i] {
			e.keyWidths[i] = keyWidths[i]
		}
	}
	return e
}

// Header renders the header line.
func (e *Encoder) Header() string {
	var b strings.Builder
	for i, name := range e.table.KeyColumns {
		if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%-*s", e.keyWidths[i], name)
	}
	for i, label := range e.table.Columns {
		fmt.Fprintf(&b, " %*s", e.colWidths[i], label)
	}
	return b.String()
}

// FormatRow renders one data row. Used both when persisting the table
// and for live per-row progress output during the sweep.
func (e *Encoder) FormatRow(row Row) string {
	var b strings.Builder
	for i, k := range row.Key {
		if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%-*s", e.keyWidths[i], k)
	}
	for i, c := range row.Cells {
		if c.IsError {
			fmt.Fprintf(&b, " %*s", e.colWidths[i], placeholderToken(c.ErrorID))
		} else {
			fmt.Fprintf(&b, " %*.*f", e.colWidths[i], encodePrecision, c.Value)
		}
	}
	return b.String()
}

// Write renders the whole table: comments, header, then rows.
func (e *Encoder) Write(w io.Writer) error {
	for _, c := range e.table.Comments {
		if _, err := fmt.Fprintf(w, "# %s\n", c); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintln(w, e.Header()); err != nil {
		return err
	}
	for _, row := range e.table.rows {
		if _, err := fmt.Fprintln(w, e.FormatRow(row)); err != nil {
			return err
		}
	}
	return nil
}

// WriteTable is shorthand for encoding with the default minimum width.
func WriteTable(w io.Writer, t *Table) error {
	return NewEncoder(t, DefaultMinWidth).Write(w)
}

// -----------------------------------------------------------------------------
// Parsing
// -----------------------------------------------------------------------------

// ParseTable reads a fixed-width table back. numKeyColumns tells the
// parser how many leading header fields are row-key columns; the
// format itself does not mark them.
//
// '[E<n>]' tokens are restored as error-reference cells, never coerced
// to numbers. Comment lines are collected in order.
func ParseTable(r io.Reader, numKeyColumns int) (*Table, error) {
	scanner := bufio.NewScanner(r)

	var comments []string
	var table *Table

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "#") {
			comments = append(comments, strings.TrimSpace(strings.TrimPrefix(line, "#")))
			continue
		}

		fields := strings.Fields(line)

		if table == nil {
			if len(fields) <= numKeyColumns {
				return nil, fmt.Errorf("%w: header line %d has %d fields, need more than %d key columns",
					ErrBadTable, lineNo, len(fields), numKeyColumns)
			}
			table = NewTable(fields[:numKeyColumns], fields[numKeyColumns:])
			table.Comments = comments
			continue
		}

		if len(fields) != numKeyColumns+len(table.Columns) {
			return nil, fmt.Errorf("%w: line %d has %d fields, header has %d",
				ErrBadTable, lineNo, len(fields), numKeyColumns+len(table.Columns))
		}

		if err := table.BeginRow(fields[:numKeyColumns]...); err != nil {
			return nil, err
		}
		for _, field := range fields[numKeyColumns:] {
			cell, err := parseCell(field)
			if err != nil {
				return nil, fmt.Errorf("%w: line %d: %v", ErrBadTable, lineNo, err)
			}
			if err := table.Append(cell); err != nil {
				return nil, err
			}
		}
		if err := table.EndRow(); err != nil {
			return nil, err
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading table: %w", err)
	}

	if table == nil {
		return nil, fmt.Errorf("%w: no header line", ErrBadTable)
	}
	return table, nil
}

// parseCell parses one data field: an error sentinel or a float.
func parseCell(field string) (Cell, error) {
	if strings.HasPrefix(field, "[E") && strings.HasSuffix(field, "]") {
		id, err := strconv.Atoi(field[2 : len(field)-1])
		if err != nil || id < 0 {
			return Cell{}, fmt.Errorf("bad error sentinel %q", field)
		}
		return ErrorRef(id), nil
	}
	v, err := strconv.ParseFloat(field, 64)
	if err != nil {
		return Cell{}, fmt.Errorf("bad value %q", field)
	}
	return Value(v), nil
}
