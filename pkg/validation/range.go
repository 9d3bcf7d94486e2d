// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package validation provides input validation for user-supplied sweep
// parameters.
//
// Axis-range specifications come straight from command-line flags and are
// parsed here exactly once, before any measurement starts. A malformed
// spec is fatal at startup: failing later would waste a partially
// completed sweep.
package validation

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrMalformedRange indicates an axis-range specification that cannot
// be parsed. It is fatal at startup, before any measurement runs.
var ErrMalformedRange = errors.New("malformed range specification")

// Range is a sampled numeric axis described as "min,max,steps".
//
// Steps is the number of samples, not the number of intervals:
// "0,45,4" yields {0, 15, 30, 45}.
type Range struct {
	Min   float64
	Max   float64
	Steps int
}

// ParseRange parses a "min,max,steps" specification.
//
// Rules:
//   - exactly three comma-separated numeric fields
//   - steps is an integer >= 2
//   - max must be strictly greater than min
//
// Any violation returns an error wrapping ErrMalformedRange.
//
// Example:
//
//	r, err := validation.ParseRange("0,45,4")
//	if err != nil {
//	    return err
//	}
//	angles := r.Values() // [0 15 30 45]
func ParseRange(spec string) (Range, error) {
	fields := strings.Split(spec, ",")
	if len(fields) != 3 {
		return Range{}, fmt.Errorf("%w: %q (want \"min,max,steps\")", ErrMalformedRange, spec)
	}

	min, err := strconv.ParseFloat(strings.TrimSpace(fields[0]), 64)
	if err != nil {
		return Range{}, fmt.Errorf("%w: %q: non-numeric min", ErrMalformedRange, spec)
	}
	max, err := strconv.ParseFloat(strings.TrimSpace(fields[1]), 64)
	if err != nil {
		return Range{}, fmt.Errorf("%w: %q: non-numeric max", ErrMalformedRange, spec)
	}
	steps, err := strconv.Atoi(strings.TrimSpace(fields[2]))
	if err != nil {
		return Range{}, fmt.Errorf("%w: %q: non-integer steps", ErrMalformedRange, spec)
	}

	if steps < 2 {
		return Range{}, fmt.Errorf("%w: %q: steps must be >= 2", ErrMalformedRange, spec)
	}
	if max <= min {
		return Range{}, fmt.Errorf("%w: %q: max must be greater than min", ErrMalformedRange, spec)
	}

	return Range{Min: min, Max: max, Steps: steps}, nil
}

// Values returns the sampled axis values, min to max inclusive.
//
// The last sample is forced to exactly Max so that accumulated floating
// point error in the step never drops or overshoots the endpoint.
func (r Range) Values() []float64 {
	step := (r.Max - r.Min) / float64(r.Steps-1)
	values := make([]float64, r.Steps)
	for i := range values {
		values[i] = r.Min + float64(i)*step
	}
	values[r.Steps-1] = r.Max
	return values
}

// String renders the range in its flag form.
func (r Range) String() string {
	return fmt.Sprintf("%g,%g,%d", r.Min, r.Max, r.Steps)
}
