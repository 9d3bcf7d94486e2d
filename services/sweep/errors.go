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
	"errors"
	"fmt"
)

// -----------------------------------------------------------------------------
// Sentinel errors
// -----------------------------------------------------------------------------

var (
	// ErrNoRow indicates Append or EndRow was called with no open row.
	ErrNoRow = errors.New("no row in progress")

	// ErrRowOpen indicates BeginRow was called while a row was open.
	ErrRowOpen = errors.New("previous row not ended")

	// ErrRowWidth indicates a finished row whose cell count does not
	// match the header. This is a programming error in the sweep loop,
	// not a recoverable measurement condition.
	ErrRowWidth = errors.New("row width does not match header")

	// ErrColumnNotFound indicates a column label absent from a table.
	ErrColumnNotFound = errors.New("column not found")

	// ErrBadTable indicates persisted table text that cannot be parsed.
	ErrBadTable = errors.New("malformed table text")

	// ErrInvalidConfig indicates an invalid runner configuration.
	ErrInvalidConfig = errors.New("invalid runner configuration")
)

// -----------------------------------------------------------------------------
// Error taxonomy
// -----------------------------------------------------------------------------

// ConfigurationError reports that a compute handle could not be
// constructed for a variant. It is fatal for the whole sweep: without a
// handle there is no measurable operation, and construction failures
// usually signal a systemic environment problem rather than a property
// of one cell.
type ConfigurationError struct {
	// Label is the variant whose handle failed to build.
	Label string

	// Img and Krn give the row geometry, when applicable.
	Img int
	Krn int

	// Err is the underlying backend error.
	Err error
}

func (e *ConfigurationError) Error() string {
	if e.Img > 0 {
		return fmt.Sprintf("building %s handle for %dx%d kernel %d: %v", e.Label, e.Img, e.Img, e.Krn, e.Err)
	}
	return fmt.Sprintf("building %s handle: %v", e.Label, e.Err)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// ComputationError reports that a constructed handle failed during a
// timed call. It is recoverable: the runner captures it, the registry
// assigns it an id, and the sweep continues with the next cell.
type ComputationError struct {
	// Label is the variant whose evaluation failed.
	Label string

	// Iteration is the zero-based iteration at which the failure
	// occurred.
	Iteration int

	// Err is the underlying backend error.
	Err error
}

func (e *ComputationError) Error() string {
	return fmt.Sprintf("%s failed at iteration %d: %v", e.Label, e.Iteration, e.Err)
}

func (e *ComputationError) Unwrap() error { return e.Err }
