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
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/AleutianAI/convsweep/services/sweep/backend"
)

// -----------------------------------------------------------------------------
// Progress reporting
// -----------------------------------------------------------------------------

// Progress receives live sweep output: the header once, a transient
// note while each handle is built, and each completed row as soon as
// it is measured. Placeholder tokens appear inline in the row lines,
// giving live visibility of failures; the full failure text is only
// printed after the sweep, from the registry.
type Progress interface {
	// Devices is called once, before the header, with the
	// accelerated-device inventory of the single enumeration the
	// sweep performs at start.
	Devices(inventory []backend.DeviceInfo)

	// Header is called once with the table header line.
	Header(line string)

	// Building is called before each handle construction with a
	// human-readable variant description.
	Building(description string)

	// BuiltAll is called when all handles of the current row exist,
	// so transient build messages can be cleared.
	BuiltAll()

	// Row is called with each completed, formatted row line.
	Row(line string)
}

// NopProgress discards all progress output.
type NopProgress struct{}

func (NopProgress) Devices([]backend.DeviceInfo) {}
func (NopProgress) Header(string)                {}
func (NopProgress) Building(string)              {}
func (NopProgress) BuiltAll()                    {}
func (NopProgress) Row(string)                   {}

// -----------------------------------------------------------------------------
// Results
// -----------------------------------------------------------------------------

// Result bundles the outputs of one sweep invocation. Table and
// Registry are immutable once the sweep returns.
type Result struct {
	Table    *Table
	Registry *Registry
	RunID    string
}

// -----------------------------------------------------------------------------
// Convolution sweep
// -----------------------------------------------------------------------------

// ConvolutionOptions configures one convolution sweep.
type ConvolutionOptions struct {
	// Space bounds the configuration space.
	Space SpaceConfig

	// Iterations is the timed repetition count per cell.
	// Default: 100
	Iterations int

	// Seed seeds the random kernel data. Kernel values only need to
	// be non-degenerate; a fixed seed keeps reruns comparable.
	// Default: 1
	Seed int64

	// SkyBackground is the flat background level of the timing model.
	// The sky profile renders in near-zero time, so cell times are
	// dominated by convolution. Default: 1e-5
	SkyBackground float64

	Logger   *slog.Logger
	Progress Progress
}

// DefaultConvolutionOptions mirrors the historical driver defaults.
func DefaultConvolutionOptions() ConvolutionOptions {
	return ConvolutionOptions{
		Space: SpaceConfig{
			ImageSizes:  []int{100, 150, 200, 300, 400, 800},
			KernelSizes: []int{25, 50, 100, 200},
			MaxThreads:  1,
			MaxEffort:   2,
		},
		Iterations:    100,
		Seed:          1,
		SkyBackground: 1e-5,
	}
}

// RunConvolution executes one full convolution sweep: every valid
// (image, kernel) row against every variant column, serially and in
// deterministic order.
//
// Handle construction failures abort the sweep with a
// *ConfigurationError. Per-cell computation failures are recorded in
// the result's registry and appear as error-reference cells; they
// never abort the sweep.
func RunConvolution(ctx context.Context, be backend.Backend, opts ConvolutionOptions) (*Result, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	progress := opts.Progress
	if progress == nil {
		progress = NopProgress{}
	}
	if opts.Iterations <= 0 {
		return nil, fmt.Errorf("%w: iterations %d", ErrInvalidConfig, opts.Iterations)
	}

	runID := uuid.NewString()

	tracer := otel.Tracer(tracerName)
	ctx, span := tracer.Start(ctx, "sweep.RunConvolution",
		trace.WithAttributes(attribute.String("sweep.run_id", runID)),
	)
	defer span.End()

	space, err := BuildSpace(ctx, be, opts.Space)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "space enumeration failed")
		return nil, err
	}
	logger.Info("sweep started",
		"run_id", runID,
		"rows", len(space.RowKeys),
		"variants", len(space.Variants),
		"iterations", opts.Iterations,
		"devices", len(space.Devices))
	progress.Devices(space.Devices)

	kernels := generateKernels(opts.Space.KernelSizes, opts.Seed)
	factory := NewFactory(be, kernels, logger)
	defer factory.Close()

	table := NewTable([]string{"Img", "Krn"}, space.Labels())
	table.AddComment("convsweep convolution run %s", runID)
	table.AddComment("backend %s", be.Name())
	table.AddComment("iterations %d", opts.Iterations)
	table.AddComment("date %s", time.Now().Format(time.RFC3339))

	registry := NewRegistry()
	runner := NewRunner(logger)
	encoder := NewEncoderSized(table, DefaultMinWidth, keyWidthsFor(space.RowKeys))

	progress.Header(encoder.Header())

	for _, key := range space.RowKeys {
		// Build every handle of the row up front, then time them in
		// column order. Timing never includes construction.
		for _, v := range space.Variants {
			progress.Building(fmt.Sprintf("Creating %s convolver...", v.Describe()))
			if _, err := factory.Acquire(ctx, v, key); err != nil {
				progress.BuiltAll()
				span.RecordError(err)
				span.SetStatus(codes.Error, "handle construction failed")
				return nil, err
			}
		}
		progress.BuiltAll()

		if err := table.BeginRow(fmt.Sprintf("%d", key.Img), fmt.Sprintf("%d", key.Krn)); err != nil {
			return nil, err
		}

		for _, v := range space.Variants {
			handle, err := factory.Acquire(ctx, v, key)
			if err != nil {
				return nil, err
			}

			model := backend.Model{
				Width:    key.Img,
				Height:   key.Img,
				Sky:      &backend.SkyProfile{Background: opts.SkyBackground},
				Convolve: v.Kind != backend.KindNone,
			}

			m, err := runner.Run(ctx, v.Label,
				func(ctx context.Context) error {
					_, err := handle.Evaluate(ctx, model)
					return err
				},
				WithIterations(opts.Iterations))
			if err != nil {
				return nil, err
			}

			if err := appendMeasurement(table, registry, m); err != nil {
				return nil, err
			}
		}

		if err := table.EndRow(); err != nil {
			return nil, err
		}
		progress.Row(encoder.FormatRow(table.Rows()[table.NumRows()-1]))

		factory.Release(key)
	}

	span.SetAttributes(
		attribute.Int("sweep.result.rows", table.NumRows()),
		attribute.Int("sweep.result.failures", registry.Len()),
	)
	span.SetStatus(codes.Ok, "sweep completed")
	logger.Info("sweep completed", "run_id", runID, "rows", table.NumRows(), "failures", registry.Len())

	return &Result{Table: table, Registry: registry, RunID: runID}, nil
}

// appendMeasurement folds one measurement into the open row,
// registering a failure when present.
func appendMeasurement(t *Table, r *Registry, m Measurement) error {
	if m.Failed() {
		return t.Append(ErrorRef(r.Record(m.Failure)))
	}
	return t.Append(Value(m.Seconds))
}

// keyWidthsFor sizes the Img/Krn key columns from the full row-key set
// so live rows align with the final file.
func keyWidthsFor(keys []RowKey) []int {
	widths := []int{3, 3}
	for _, k := range keys {
		if w := len(fmt.Sprintf("%d", k.Img)); w > widths[0] {
			widths[0] = w
		}
		if w := len(fmt.Sprintf("%d", k.Krn)); w > widths[1] {
			widths[1] = w
		}
	}
	return widths
}

// generateKernels fills one random kernel per kernel size. Values are
// uniform in [0, 1); only the geometry matters for timing.
func generateKernels(sizes []int, seed int64) map[int][][]float64 {
	rng := rand.New(rand.NewSource(seed))
	kernels := make(map[int][][]float64, len(sizes))
	for _, size := range sizes {
		k := make([][]float64, size)
		for y := range k {
			k[y] = make([]float64, size)
			for x := range k[y] {
				k[y][x] = rng.Float64()
			}
		}
		kernels[size] = k
	}
	return kernels
}
