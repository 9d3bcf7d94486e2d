// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package sweep

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/convsweep/services/sweep/backend"
)

func smallProfileOptions() ProfileOptions {
	opts := DefaultProfileOptions()
	opts.Width = 50
	opts.Height = 50
	opts.Iterations = 2
	opts.MaxThreads = 4
	opts.Nsers = []float64{1, 4}
	opts.Angs = []float64{0}
	opts.AxRats = []float64{0.5, 1}
	opts.Res = []float64{5}
	opts.Boxes = []float64{0}
	return opts
}

func TestProfileColumns(t *testing.T) {
	devices := []backend.DeviceInfo{
		{PlatformIndex: 0, DeviceIndex: 0},
		{PlatformIndex: 1, DeviceIndex: 0, SupportsDouble: true},
	}

	cols := profileColumns(200, 200, 4, devices)

	labels := make([]string, len(cols))
	for i, c := range cols {
		labels[i] = c.label
	}
	assert.Equal(t,
		[]string{"CPU", "CL_00_f", "CL_10_f", "CL_10_d", "OMP_2", "OMP_4"},
		labels)

	// Threaded columns never repeat the single-threaded CPU column.
	for _, c := range cols {
		if c.label != "CPU" {
			assert.NotEqual(t, 1, c.config.Threads, "column %s", c.label)
		}
	}
}

func TestRunProfile(t *testing.T) {
	be := &fakeBackend{}
	progress := &recordingProgress{}
	opts := smallProfileOptions()
	opts.Progress = progress

	result, err := RunProfile(context.Background(), be, opts)
	require.NoError(t, err)

	// 2 nser x 1 ang x 2 axrat x 1 re x 1 box.
	require.Equal(t, 4, result.Table.NumRows())
	assert.Equal(t, []string{"nser", "ang", "axrat", "re", "box"}, result.Table.KeyColumns)
	assert.Equal(t, []string{"CPU", "OMP_2", "OMP_4"}, result.Table.Columns)

	// Box is the innermost axis, nser the outermost.
	assert.Equal(t, []string{"1.0000", "0.0000", "0.5000", "5.0000", "0.0000"}, result.Table.Rows()[0].Key)
	assert.Equal(t, []string{"1.0000", "0.0000", "1.0000", "5.0000", "0.0000"}, result.Table.Rows()[1].Key)
	assert.Equal(t, []string{"4.0000", "0.0000", "0.5000", "5.0000", "0.0000"}, result.Table.Rows()[2].Key)

	assert.Zero(t, result.Registry.Len())
	assert.Len(t, progress.rows, 4)

	// Devices are enumerated once and surfaced through the progress
	// sink from that same enumeration.
	assert.Equal(t, 1, be.enumerations)
	assert.Len(t, progress.devices, 1)

	// Geometry is fixed, so each column builds exactly one handle for
	// the whole sweep.
	assert.Len(t, be.built, 3)
	for _, h := range be.built {
		assert.True(t, h.closed)
	}
}

func TestRunProfileIsolatesCellFailures(t *testing.T) {
	cause := errors.New("invalid profile parameters")
	be := &fakeBackend{
		evalFail: map[string]error{"none/t2": cause},
	}

	result, err := RunProfile(context.Background(), be, smallProfileOptions())
	require.NoError(t, err)

	idx, err := result.Table.ColumnIndex("OMP_2")
	require.NoError(t, err)

	require.Equal(t, 4, result.Registry.Len())
	for i, row := range result.Table.Rows() {
		assert.True(t, row.Cells[idx].IsError)
		assert.Equal(t, i, row.Cells[idx].ErrorID)
	}
}

func TestRunProfileBuildFailureIsFatal(t *testing.T) {
	cause := errors.New("device init failed")
	be := &fakeBackend{
		devices:   []backend.DeviceInfo{{PlatformIndex: 0, DeviceIndex: 0, PlatformName: "PlatA", DeviceName: "GPU0"}},
		buildFail: map[string]error{"devnone/00/f": cause},
	}

	_, err := RunProfile(context.Background(), be, smallProfileOptions())
	require.Error(t, err)

	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "CL_00_f", cfgErr.Label)
	assert.ErrorIs(t, err, cause)
}

func TestRunProfileRejectsEmptyAxes(t *testing.T) {
	opts := smallProfileOptions()
	opts.Res = nil
	_, err := RunProfile(context.Background(), &fakeBackend{}, opts)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}
