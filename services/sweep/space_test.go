// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package sweep

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/convsweep/services/sweep/backend"
)

func TestBuildSpaceRowKeys(t *testing.T) {
	be := &fakeBackend{}
	space, err := BuildSpace(context.Background(), be, SpaceConfig{
		ImageSizes:  []int{100, 150, 200},
		KernelSizes: []int{100, 200},
	})
	require.NoError(t, err)

	// Kernel 200 only fits image 200; kernel 100 fits all three.
	want := []RowKey{
		{Img: 100, Krn: 100},
		{Img: 150, Krn: 100},
		{Img: 200, Krn: 100},
		{Img: 200, Krn: 200},
	}
	assert.Equal(t, want, space.RowKeys)
}

func TestBuildSpaceVariantOrder(t *testing.T) {
	be := &fakeBackend{
		devices: []backend.DeviceInfo{
			{PlatformIndex: 0, DeviceIndex: 0, PlatformName: "PlatA", DeviceName: "GPU0"},
			{PlatformIndex: 1, DeviceIndex: 1, PlatformName: "PlatB", DeviceName: "GPU1", SupportsDouble: true},
		},
	}

	space, err := BuildSpace(context.Background(), be, SpaceConfig{
		ImageSizes:   []int{100},
		KernelSizes:  []int{25},
		MaxThreads:   2,
		MaxEffort:    1,
		MeasureReuse: true,
	})
	require.NoError(t, err)

	want := []string{
		"NoConv",
		"BruteOld",
		"Brute_1", "Brute_2",
		"FFT_0_1_N", "FFT_0_1_Y",
		"FFT_0_2_N", "FFT_0_2_Y",
		"FFT_1_1_N", "FFT_1_1_Y",
		"FFT_1_2_N", "FFT_1_2_Y",
		"cl_00_f", "Lcl_00_f",
		"cl_11_f", "Lcl_11_f",
		"cl_11_d", "Lcl_11_d",
	}
	assert.Equal(t, want, space.Labels())
	assert.Len(t, space.Devices, 2)
}

func TestBuildSpaceNoDevices(t *testing.T) {
	be := &fakeBackend{}
	space, err := BuildSpace(context.Background(), be, SpaceConfig{
		ImageSizes:  []int{100},
		KernelSizes: []int{25},
		MaxThreads:  1,
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"NoConv", "BruteOld", "Brute_1", "FFT_0_1_N"}, space.Labels())
	assert.Empty(t, space.Devices)
}

func TestVariantHandleConfig(t *testing.T) {
	kernel := [][]float64{{1, 2}, {3, 4}}
	v := Variant{
		Label:     "FFT_1_2_Y",
		Kind:      backend.KindTransform,
		Threads:   2,
		Effort:    1,
		ReusePlan: true,
	}

	cfg := v.HandleConfig(100, 100, kernel)
	assert.Equal(t, backend.KindTransform, cfg.Kind)
	assert.Equal(t, 100, cfg.Width)
	assert.Equal(t, 100, cfg.Height)
	assert.Equal(t, kernel, cfg.Kernel)
	assert.Equal(t, 2, cfg.Threads)
	assert.Equal(t, 1, cfg.Effort)
	assert.True(t, cfg.ReusePlan)
}
