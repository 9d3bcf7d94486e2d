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
	"math"
)

var (
	// ErrEmptySeries indicates a statistic requested over no values.
	ErrEmptySeries = errors.New("empty series")

	// ErrLengthMismatch indicates unaligned input sequences.
	ErrLengthMismatch = errors.New("series lengths differ")

	// ErrZeroVariance indicates a correlation over a constant series:
	// the result is undefined, not a division failure.
	ErrZeroVariance = errors.New("zero variance")
)

// Mean returns the arithmetic mean.
func Mean(xs []float64) (float64, error) {
	if len(xs) == 0 {
		return 0, ErrEmptySeries
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs)), nil
}

// Std returns the population standard deviation.
func Std(xs []float64) (float64, error) {
	m, err := Mean(xs)
	if err != nil {
		return 0, err
	}
	var sum float64
	for _, x := range xs {
		d := x - m
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(xs))), nil
}

// Correlation computes the Pearson correlation r between two aligned
// series and the slope r*sy/sx of the corresponding regression line,
// using population standard deviations.
//
// The slope is the through-the-origin-consistent estimator used to
// overlay a fitted line against a scatter of paired measurements. A
// constant series makes both quantities undefined: ErrZeroVariance is
// returned instead of dividing by zero.
func Correlation(xs, ys []float64) (r, slope float64, err error) {
	if len(xs) != len(ys) {
		return 0, 0, fmt.Errorf("%w: %d vs %d", ErrLengthMismatch, len(xs), len(ys))
	}
	if len(xs) == 0 {
		return 0, 0, ErrEmptySeries
	}

	mx, err := Mean(xs)
	if err != nil {
		return 0, 0, err
	}
	my, err := Mean(ys)
	if err != nil {
		return 0, 0, err
	}

	var cov, vx, vy float64
	for i := range xs {
		dx := xs[i] - mx
		dy := ys[i] - my
		cov += dx * dy
		vx += dx * dx
		vy += dy * dy
	}
	n := float64(len(xs))
	cov /= n
	sx := math.Sqrt(vx / n)
	sy := math.Sqrt(vy / n)

	if sx == 0 || sy == 0 {
		return 0, 0, ErrZeroVariance
	}

	r = cov / (sx * sy)
	return r, r * sy / sx, nil
}
