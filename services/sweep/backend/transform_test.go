// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package backend

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// assertSameImage compares two images pixel by pixel within tol.
func assertSameImage(t *testing.T, want, got *Image, tol float64) {
	t.Helper()
	require.Equal(t, want.Width, got.Width)
	require.Equal(t, want.Height, got.Height)
	for i := range want.Pixels {
		assert.InDelta(t, want.Pixels[i], got.Pixels[i], tol,
			"pixel (%d,%d)", i%want.Width, i/want.Width)
	}
}

func TestTransformMatchesBrute(t *testing.T) {
	tests := []struct {
		name          string
		width, height int
		kernelSize    int
	}{
		{"odd kernel square image", 16, 16, 3},
		{"odd kernel rectangular image", 20, 14, 5},
		{"even kernel", 12, 12, 4},
		{"kernel equals image", 8, 8, 8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kernel := randomKernel(tt.kernelSize, 7)
			m := randomModel(tt.width, tt.height, 7)

			brute := &bruteHandle{width: tt.width, height: tt.height, kernel: kernel, threads: 1}
			want, err := brute.Evaluate(context.Background(), m)
			require.NoError(t, err)

			ft, err := newTransformHandle(tt.width, tt.height, kernel, 0, 1, false)
			require.NoError(t, err)
			defer ft.Close()

			got, err := ft.Evaluate(context.Background(), m)
			require.NoError(t, err)
			assertSameImage(t, want, got, 1e-9)
		})
	}
}

func TestTransformEffortLevelsAgree(t *testing.T) {
	kernel := randomKernel(5, 11)
	m := randomModel(16, 16, 11)

	base, err := newTransformHandle(16, 16, kernel, 0, 1, false)
	require.NoError(t, err)
	want, err := base.Evaluate(context.Background(), m)
	require.NoError(t, err)
	base.Close()

	// Effort only changes how the plan is prepared, never the result.
	for effort := 1; effort <= MaxEffort; effort++ {
		h, err := newTransformHandle(16, 16, kernel, effort, 1, false)
		require.NoError(t, err)
		got, err := h.Evaluate(context.Background(), m)
		require.NoError(t, err)
		assertSameImage(t, want, got, 1e-9)
		h.Close()
	}
}

func TestTransformPlanReuseAgrees(t *testing.T) {
	kernel := randomKernel(4, 13)
	m := randomModel(10, 10, 13)

	plain, err := newTransformHandle(10, 10, kernel, 2, 1, false)
	require.NoError(t, err)
	defer plain.Close()
	reusing, err := newTransformHandle(10, 10, kernel, 2, 1, true)
	require.NoError(t, err)
	defer reusing.Close()

	want, err := plain.Evaluate(context.Background(), m)
	require.NoError(t, err)

	// Repeated calls exercise the cached kernel spectrum.
	for i := 0; i < 3; i++ {
		got, err := reusing.Evaluate(context.Background(), m)
		require.NoError(t, err)
		assertSameImage(t, want, got, 1e-9)
	}
}

func TestTransformParallelMatchesSerial(t *testing.T) {
	kernel := randomKernel(5, 17)
	m := randomModel(24, 18, 17)

	serial, err := newTransformHandle(24, 18, kernel, 1, 1, false)
	require.NoError(t, err)
	defer serial.Close()
	parallel, err := newTransformHandle(24, 18, kernel, 1, 4, false)
	require.NoError(t, err)
	defer parallel.Close()

	want, err := serial.Evaluate(context.Background(), m)
	require.NoError(t, err)
	got, err := parallel.Evaluate(context.Background(), m)
	require.NoError(t, err)
	assertSameImage(t, want, got, 1e-9)
}

func TestFFTPlanRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(19))

	for _, n := range []int{1, 2, 8, 64} {
		for effort := 0; effort <= MaxEffort; effort++ {
			p := newFFTPlan(n, effort)

			orig := make([]complex128, n)
			for i := range orig {
				orig[i] = complex(rng.Float64(), rng.Float64())
			}
			a := append([]complex128(nil), orig...)

			p.transform(a, false)
			p.transform(a, true)

			for i := range orig {
				assert.InDelta(t, real(orig[i]), real(a[i]), 1e-12, "n=%d effort=%d re[%d]", n, effort, i)
				assert.InDelta(t, imag(orig[i]), imag(a[i]), 1e-12, "n=%d effort=%d im[%d]", n, effort, i)
			}
		}
	}
}

func TestNextPow2(t *testing.T) {
	tests := []struct {
		n, want int
	}{
		{0, 1},
		{1, 1},
		{2, 2},
		{3, 4},
		{17, 32},
		{64, 64},
		{129, 256},
	}
	for _, tt := range tests {
		if got := nextPow2(tt.n); got != tt.want {
			t.Errorf("nextPow2(%d) = %d, want %d", tt.n, got, tt.want)
		}
	}
}

func TestBitReversalIsInvolution(t *testing.T) {
	for _, n := range []int{2, 8, 16} {
		perm := bitReversal(n)
		for i, j := range perm {
			assert.Equal(t, i, perm[j], "n=%d index %d", n, i)
		}
	}
}
