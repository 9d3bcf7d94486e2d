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
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/convsweep/services/sweep/backend"
)

// recordingProgress collects all progress callbacks for assertions.
type recordingProgress struct {
	devices  [][]backend.DeviceInfo
	header   string
	building []string
	rows     []string
}

func (p *recordingProgress) Devices(inv []backend.DeviceInfo) { p.devices = append(p.devices, inv) }
func (p *recordingProgress) Header(line string)               { p.header = line }
func (p *recordingProgress) Building(msg string)              { p.building = append(p.building, msg) }
func (p *recordingProgress) BuiltAll()                        {}
func (p *recordingProgress) Row(line string)                  { p.rows = append(p.rows, line) }

func smallConvolutionOptions() ConvolutionOptions {
	return ConvolutionOptions{
		Space: SpaceConfig{
			ImageSizes:  []int{100, 150},
			KernelSizes: []int{25, 150},
			MaxThreads:  2,
		},
		Iterations:    2,
		Seed:          1,
		SkyBackground: 1e-5,
	}
}

func TestRunConvolution(t *testing.T) {
	be := &fakeBackend{}
	progress := &recordingProgress{}
	opts := smallConvolutionOptions()
	opts.Progress = progress

	result, err := RunConvolution(context.Background(), be, opts)
	require.NoError(t, err)

	// Kernel 150 fits only image 150: three rows.
	require.Equal(t, 3, result.Table.NumRows())
	assert.Equal(t, []string{"100", "25"}, result.Table.Rows()[0].Key)
	assert.Equal(t, []string{"150", "25"}, result.Table.Rows()[1].Key)
	assert.Equal(t, []string{"150", "150"}, result.Table.Rows()[2].Key)

	assert.Equal(t,
		[]string{"NoConv", "BruteOld", "Brute_1", "Brute_2", "FFT_0_1_N", "FFT_0_2_N"},
		result.Table.Columns)

	assert.Zero(t, result.Registry.Len())
	assert.NotEmpty(t, result.RunID)

	// Live output: one header, one line per completed row.
	assert.NotEmpty(t, progress.header)
	assert.Len(t, progress.rows, 3)
	assert.NotEmpty(t, progress.building)

	// Every handle was released by the end of the sweep.
	for _, h := range be.built {
		assert.True(t, h.closed)
	}
}

func TestRunConvolutionEnumeratesDevicesOnce(t *testing.T) {
	be := &fakeBackend{
		devices: []backend.DeviceInfo{
			{PlatformIndex: 0, DeviceIndex: 0, PlatformName: "Portable CL", DeviceName: "pthread-cpu"},
		},
	}
	progress := &recordingProgress{}
	opts := smallConvolutionOptions()
	opts.Progress = progress

	_, err := RunConvolution(context.Background(), be, opts)
	require.NoError(t, err)

	// One enumeration per sweep; the banner inventory comes from that
	// same enumeration, not a second call.
	assert.Equal(t, 1, be.enumerations)
	require.Len(t, progress.devices, 1)
	assert.Equal(t, be.devices, progress.devices[0])
}

func TestRunConvolutionIsolatesCellFailures(t *testing.T) {
	cause := errors.New("device out of memory")
	be := &fakeBackend{
		evalFail: map[string]error{"transform/e0/t2/plain": cause},
	}

	result, err := RunConvolution(context.Background(), be, smallConvolutionOptions())
	require.NoError(t, err, "cell failures must not abort the sweep")

	// One failure per row, ids assigned in row order.
	require.Equal(t, 3, result.Registry.Len())

	idx, err := result.Table.ColumnIndex("FFT_0_2_N")
	require.NoError(t, err)
	for i, row := range result.Table.Rows() {
		cell := row.Cells[idx]
		assert.True(t, cell.IsError, "row %d", i)
		assert.Equal(t, i, cell.ErrorID, "ids follow first-occurrence order")
	}

	// All other cells carry values.
	for _, row := range result.Table.Rows() {
		for j, cell := range row.Cells {
			if j == idx {
				continue
			}
			assert.False(t, cell.IsError)
		}
	}

	for _, entry := range result.Registry.Dump() {
		var compErr *ComputationError
		require.ErrorAs(t, entry.Err, &compErr)
		assert.Equal(t, "FFT_0_2_N", compErr.Label)
		assert.ErrorIs(t, entry.Err, cause)
	}
}

func TestRunConvolutionBuildFailureIsFatal(t *testing.T) {
	cause := errors.New("unsupported configuration")
	be := &fakeBackend{
		buildFail: map[string]error{"brute/t2": cause},
	}

	_, err := RunConvolution(context.Background(), be, smallConvolutionOptions())
	require.Error(t, err)

	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "Brute_2", cfgErr.Label)
	assert.ErrorIs(t, err, cause)
}

func TestRunConvolutionRejectsBadIterations(t *testing.T) {
	opts := smallConvolutionOptions()
	opts.Iterations = 0
	_, err := RunConvolution(context.Background(), &fakeBackend{}, opts)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestRunConvolutionRowOutputMatchesEncoder(t *testing.T) {
	be := &fakeBackend{}
	progress := &recordingProgress{}
	opts := smallConvolutionOptions()
	opts.Progress = progress

	result, err := RunConvolution(context.Background(), be, opts)
	require.NoError(t, err)

	// Live lines and re-encoded table lines are identical.
	e := NewEncoderSized(result.Table, DefaultMinWidth, []int{3, 3})
	assert.Equal(t, e.Header(), progress.header)
	for i, row := range result.Table.Rows() {
		assert.Equal(t, e.FormatRow(row), progress.rows[i])
	}

	// Header and rows share a fixed width.
	for _, line := range progress.rows {
		assert.Equal(t, len(progress.header), len(line))
		assert.False(t, strings.HasSuffix(line, " "))
	}
}
