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
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "convsweep.sweep"

// -----------------------------------------------------------------------------
// Measurements
// -----------------------------------------------------------------------------

// Measurement is the outcome of one timed cell: either a mean per-call
// elapsed time, or a captured failure. Exactly one of the two is
// meaningful; a failed measurement always reports zero seconds.
type Measurement struct {
	// Seconds is the mean per-call elapsed time. Zero when Failure is
	// set.
	Seconds float64

	// Failure is the captured *ComputationError, nil on success.
	Failure error
}

// Failed reports whether the measurement captured a failure.
func (m Measurement) Failed() bool { return m.Failure != nil }

// -----------------------------------------------------------------------------
// Runner options
// -----------------------------------------------------------------------------

// RunOption configures a timed run. Options are applied in order, so
// later options override earlier ones.
type RunOption func(*RunConfig)

// RunConfig holds timed-trial configuration.
type RunConfig struct {
	// Iterations is the number of sequential repetitions to time.
	// Default: 100
	Iterations int
}

// DefaultRunConfig returns a configuration with default values.
func DefaultRunConfig() *RunConfig {
	return &RunConfig{Iterations: 100}
}

// Validate checks that the configuration is valid.
func (c *RunConfig) Validate() error {
	if c.Iterations <= 0 {
		return errors.New("iterations must be positive")
	}
	return nil
}

// WithIterations sets the number of timed repetitions. Non-positive
// values are ignored.
func WithIterations(n int) RunOption {
	return func(c *RunConfig) {
		if n > 0 {
			c.Iterations = n
		}
	}
}

// -----------------------------------------------------------------------------
// Runner
// -----------------------------------------------------------------------------

// Operation is the unit of work being timed, already bound to its
// compute handle.
type Operation func(ctx context.Context) error

// Runner executes timed trials over prepared operations.
//
// The loop is strictly sequential and times only its own body. On the
// first failure the loop terminates immediately and the failure is
// captured into the Measurement: a failing configuration is assumed to
// fail identically on every iteration, so retrying buys nothing and
// finishing the loop would only delay the rest of the sweep. The
// captured failure never escapes the runner as an error return.
type Runner struct {
	logger *slog.Logger
}

// NewRunner creates a runner. A nil logger falls back to slog.Default().
func NewRunner(logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{logger: logger}
}

// Run times op over the configured number of iterations and returns
// the mean per-call elapsed time, or the captured failure.
//
// The error return reports only invalid configuration; computation
// failures are always folded into the Measurement.
func (r *Runner) Run(ctx context.Context, label string, op Operation, opts ...RunOption) (Measurement, error) {
	config := DefaultRunConfig()
	for _, opt := range opts {
		opt(config)
	}
	if err := config.Validate(); err != nil {
		return Measurement{}, errors.Join(ErrInvalidConfig, err)
	}

	tracer := otel.Tracer(tracerName)
	ctx, span := tracer.Start(ctx, "sweep.Runner.Run",
		trace.WithAttributes(
			attribute.String("sweep.variant", label),
			attribute.Int("sweep.iterations", config.Iterations),
		),
	)
	defer span.End()

	start := time.Now()
	for i := 0; i < config.Iterations; i++ {
		if err := op(ctx); err != nil {
			failure := &ComputationError{Label: label, Iteration: i, Err: err}
			r.logger.Debug("cell failed", "variant", label, "iteration", i, "error", err)
			span.RecordError(failure)
			span.SetStatus(codes.Error, "computation failed")
			return Measurement{Seconds: 0, Failure: failure}, nil
		}
	}
	elapsed := time.Since(start)

	mean := elapsed.Seconds() / float64(config.Iterations)
	span.SetAttributes(attribute.Float64("sweep.mean_seconds", mean))
	span.SetStatus(codes.Ok, "cell completed")

	return Measurement{Seconds: mean}, nil
}
