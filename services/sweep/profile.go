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
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/AleutianAI/convsweep/services/sweep/backend"
)

// ProfileMinWidth is the value-column minimum width of persisted
// profile-evaluation tables.
const ProfileMinWidth = 8

// ProfileOptions configures one profile-evaluation sweep: a Sersic
// model rendered at fixed geometry over a sampled shape-parameter
// grid, against evaluation backends (CPU, accelerated devices, and
// thread counts).
type ProfileOptions struct {
	// Width and Height fix the rendered image geometry.
	Width  int
	Height int

	// Iterations is the timed repetition count per cell.
	// Default: 100
	Iterations int

	// MaxThreads bounds the threaded-evaluation axis. The ladder
	// excludes 1: single-threaded evaluation is the CPU column.
	MaxThreads int

	// Sampled parameter axes, row order is their cartesian product
	// with Box innermost.
	Nsers  []float64
	Angs   []float64
	AxRats []float64
	Res    []float64
	Boxes  []float64

	// Mag is the fixed total magnitude of the rendered profile.
	// Default: 10
	Mag float64

	Logger   *slog.Logger
	Progress Progress
}

// DefaultProfileOptions mirrors the historical driver defaults. The
// sampled axes default in the CLI from "min,max,steps" specs and are
// left empty here.
func DefaultProfileOptions() ProfileOptions {
	return ProfileOptions{
		Width:      200,
		Height:     200,
		Iterations: 100,
		MaxThreads: 1,
		Mag:        10,
	}
}

// profileColumn is one evaluation variant of the profile sweep.
type profileColumn struct {
	label  string
	config backend.HandleConfig
}

// profileColumns enumerates the evaluation variants: CPU, then per
// device float (and double where supported), then threaded evaluation
// per thread count above 1.
func profileColumns(width, height, maxThreads int, devices []backend.DeviceInfo) []profileColumn {
	cols := []profileColumn{{
		label:  "CPU",
		config: backend.HandleConfig{Kind: backend.KindNone, Width: width, Height: height, Threads: 1},
	}}

	for _, d := range devices {
		cols = append(cols, profileColumn{
			label: fmt.Sprintf("CL_%d%d_f", d.PlatformIndex, d.DeviceIndex),
			config: backend.HandleConfig{
				Kind: backend.KindNone, Width: width, Height: height, Device: d,
			},
		})
		if d.SupportsDouble {
			cols = append(cols, profileColumn{
				label: fmt.Sprintf("CL_%d%d_d", d.PlatformIndex, d.DeviceIndex),
				config: backend.HandleConfig{
					Kind: backend.KindNone, Width: width, Height: height, Device: d, Double: true,
				},
			})
		}
	}

	for _, t := range ThreadCounts(maxThreads) {
		if t == 1 {
			continue
		}
		cols = append(cols, profileColumn{
			label: fmt.Sprintf("OMP_%d", t),
			config: backend.HandleConfig{
				Kind: backend.KindNone, Width: width, Height: height, Threads: t,
			},
		})
	}

	return cols
}

// RunProfile executes one profile-evaluation sweep. Handles are built
// once (geometry never changes), rows iterate the parameter grid, and
// per-cell failures are isolated exactly as in the convolution sweep.
// A parameter combination the backend cannot evaluate (for example
// re = 0) becomes an error-reference cell, not an aborted sweep.
func RunProfile(ctx context.Context, be backend.Backend, opts ProfileOptions) (*Result, error) {
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
	if len(opts.Nsers) == 0 || len(opts.Angs) == 0 || len(opts.AxRats) == 0 ||
		len(opts.Res) == 0 || len(opts.Boxes) == 0 {
		return nil, fmt.Errorf("%w: empty parameter axis", ErrInvalidConfig)
	}

	runID := uuid.NewString()

	tracer := otel.Tracer(tracerName)
	ctx, span := tracer.Start(ctx, "sweep.RunProfile",
		trace.WithAttributes(attribute.String("sweep.run_id", runID)),
	)
	defer span.End()

	devices, err := be.EnumerateDevices(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "device enumeration failed")
		return nil, fmt.Errorf("enumerating devices: %w", err)
	}

	progress.Devices(devices)

	cols := profileColumns(opts.Width, opts.Height, opts.MaxThreads, devices)

	combinations := len(opts.Nsers) * len(opts.Angs) * len(opts.AxRats) * len(opts.Res) * len(opts.Boxes)
	logger.Info("profile sweep started",
		"run_id", runID,
		"combinations", combinations,
		"columns", len(cols),
		"iterations", opts.Iterations)

	// Geometry is fixed for the whole sweep, so each column's handle
	// is built exactly once, up front.
	handles := make([]backend.Handle, len(cols))
	for i, col := range cols {
		progress.Building(fmt.Sprintf("Preparing %s evaluator...", col.label))
		h, err := be.Build(ctx, col.config)
		if err != nil {
			progress.BuiltAll()
			cerr := &ConfigurationError{Label: col.label, Err: err}
			span.RecordError(cerr)
			span.SetStatus(codes.Error, "handle construction failed")
			return nil, cerr
		}
		handles[i] = h
		defer h.Close()
	}
	progress.BuiltAll()

	labels := make([]string, len(cols))
	for i, col := range cols {
		labels[i] = col.label
	}

	table := NewTable([]string{"nser", "ang", "axrat", "re", "box"}, labels)
	table.AddComment("convsweep profile run %s", runID)
	table.AddComment("backend %s", be.Name())
	table.AddComment("geometry %dx%d", opts.Width, opts.Height)
	table.AddComment("iterations %d", opts.Iterations)
	table.AddComment("date %s", time.Now().Format(time.RFC3339))

	registry := NewRegistry()
	runner := NewRunner(logger)
	encoder := NewEncoderSized(table, ProfileMinWidth, profileKeyWidths(opts))

	progress.Header(encoder.Header())

	for _, nser := range opts.Nsers {
		for _, ang := range opts.Angs {
			for _, axrat := range opts.AxRats {
				for _, re := range opts.Res {
					for _, box := range opts.Boxes {
						err := table.BeginRow(
							formatKey(nser), formatKey(ang), formatKey(axrat),
							formatKey(re), formatKey(box))
						if err != nil {
							return nil, err
						}

						model := backend.Model{
							Width:  opts.Width,
							Height: opts.Height,
							Sersic: &backend.SersicProfile{
								XCen:  float64(opts.Width) / 2,
								YCen:  float64(opts.Height) / 2,
								Mag:   opts.Mag,
								Nser:  nser,
								Ang:   ang,
								AxRat: axrat,
								Re:    re,
								Box:   box,
							},
						}

						for i, col := range cols {
							handle := handles[i]
							m, err := runner.Run(ctx, col.label,
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
					}
				}
			}
		}
	}

	span.SetAttributes(
		attribute.Int("sweep.result.rows", table.NumRows()),
		attribute.Int("sweep.result.failures", registry.Len()),
	)
	span.SetStatus(codes.Ok, "sweep completed")
	logger.Info("profile sweep completed", "run_id", runID, "rows", table.NumRows(), "failures", registry.Len())

	return &Result{Table: table, Registry: registry, RunID: runID}, nil
}

// formatKey renders a parameter value as a row-key field.
func formatKey(v float64) string {
	return fmt.Sprintf("%.4f", v)
}

// profileKeyWidths sizes each key column from its axis values.
func profileKeyWidths(opts ProfileOptions) []int {
	axes := [][]float64{opts.Nsers, opts.Angs, opts.AxRats, opts.Res, opts.Boxes}
	widths := make([]int, len(axes))
	for i, axis := range axes {
		for _, v := range axis {
			if w := len(formatKey(v)); w > widths[i] {
				widths[i] = w
			}
		}
	}
	return widths
}
