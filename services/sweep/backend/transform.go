// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package backend

import (
	"context"
	"fmt"
	"math"
	"math/bits"

	"golang.org/x/sync/errgroup"
)

// MaxEffort is the highest transform-plan effort level. Levels trade
// plan construction time for per-call speed:
//
//	0: no precomputation, twiddles and permutations built per call
//	1: twiddle factor tables built into the plan
//	2: level 1 plus bit-reversal permutations
//	3: level 2 plus scratch buffers sized at build time
const MaxEffort = 3

// transformHandle convolves through padded 2D FFTs. Padding is to the
// next power of two of the full linear-convolution extent so the
// result matches the brute-force kernels exactly (up to float error).
//
// Not safe for concurrent Evaluate calls: the plan scratch state is
// shared per handle. The sweep engine is serial, which is the usage
// this handle is built for.
type transformHandle struct {
	width, height int
	kernel        [][]float64
	threads       int
	reuse         bool

	padW, padH int
	planRow    *fftPlan
	planCol    *fftPlan

	// kernelSpec is the kernel spectrum, cached across calls when
	// reuse is enabled, otherwise rebuilt per call.
	kernelSpec [][]complex128

	scratch [][]complex128
}

func newTransformHandle(width, height int, kernel [][]float64, effort, threads int, reuse bool) (*transformHandle, error) {
	if effort < 0 || effort > MaxEffort {
		return nil, fmt.Errorf("%w: effort %d outside [0, %d]", ErrBadGeometry, effort, MaxEffort)
	}

	kh := len(kernel)
	kw := len(kernel[0])
	padW := nextPow2(width + kw - 1)
	padH := nextPow2(height + kh - 1)

	h := &transformHandle{
		width:   width,
		height:  height,
		kernel:  kernel,
		threads: threads,
		reuse:   reuse,
		padW:    padW,
		padH:    padH,
		planRow: newFFTPlan(padW, effort),
		planCol: newFFTPlan(padH, effort),
	}

	if effort >= 3 {
		h.scratch = makeGrid(padH, padW)
	}
	if reuse {
		h.kernelSpec = h.kernelSpectrum()
	}
	return h, nil
}

func (h *transformHandle) Evaluate(ctx context.Context, m Model) (*Image, error) {
	im, err := renderModel(ctx, m, 1)
	if err != nil {
		return nil, err
	}
	if !m.Convolve {
		return im, nil
	}
	return h.convolve(ctx, im)
}

func (h *transformHandle) Close() error {
	h.kernelSpec = nil
	h.scratch = nil
	return nil
}

// kernelSpectrum computes the padded forward transform of the kernel.
// The kernel is flipped so that spectrum multiplication reproduces the
// centered correlation the brute-force handles compute.
func (h *transformHandle) kernelSpectrum() [][]complex128 {
	kh := len(h.kernel)
	kw := len(h.kernel[0])
	grid := makeGrid(h.padH, h.padW)
	for y, row := range h.kernel {
		for x, v := range row {
			grid[kh-1-y][kw-1-x] = complex(v, 0)
		}
	}
	h.fft2d(grid, false)
	return grid
}

func (h *transformHandle) convolve(ctx context.Context, im *Image) (*Image, error) {
	grid := h.scratch
	if grid == nil {
		grid = makeGrid(h.padH, h.padW)
	} else {
		for y := range grid {
			for x := range grid[y] {
				grid[y][x] = 0
			}
		}
	}
	for y := 0; y < im.Height; y++ {
		for x := 0; x < im.Width; x++ {
			grid[y][x] = complex(im.At(x, y), 0)
		}
	}

	spec := h.kernelSpec
	if spec == nil {
		spec = h.kernelSpectrum()
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	h.fft2d(grid, false)
	for y := range grid {
		for x := range grid[y] {
			grid[y][x] *= spec[y][x]
		}
	}
	h.fft2d(grid, true)

	// Extract the "same size" window of the linear result. With the
	// flipped kernel the window starts at (K-1)-kc on each axis, which
	// keeps the kernel centered exactly as the brute-force handles do,
	// for even and odd kernel sizes alike.
	kh := len(h.kernel)
	kw := len(h.kernel[0])
	offY := (kh - 1) - (kh-1)/2
	offX := (kw - 1) - (kw-1)/2

	out := &Image{Width: im.Width, Height: im.Height, Pixels: make([]float64, len(im.Pixels))}
	for y := 0; y < im.Height; y++ {
		for x := 0; x < im.Width; x++ {
			out.Pixels[y*im.Width+x] = real(grid[y+offY][x+offX])
		}
	}
	return out, nil
}

// fft2d transforms the grid in place, rows then columns. Row and
// column passes are split across threads workers when threads > 1.
func (h *transformHandle) fft2d(grid [][]complex128, inverse bool) {
	h.parallelRows(len(grid), func(y int) {
		h.planRow.transform(grid[y], inverse)
	})

	h.parallelRows(h.padW, func(x int) {
		col := make([]complex128, h.padH)
		for y := 0; y < h.padH; y++ {
			col[y] = grid[y][x]
		}
		h.planCol.transform(col, inverse)
		for y := 0; y < h.padH; y++ {
			grid[y][x] = col[y]
		}
	})
}

// parallelRows runs fn(i) for i in [0, n), fanning out over the
// handle's thread budget.
func (h *transformHandle) parallelRows(n int, fn func(i int)) {
	if h.threads <= 1 {
		for i := 0; i < n; i++ {
			fn(i)
		}
		return
	}

	var g errgroup.Group
	chunk := (n + h.threads - 1) / h.threads
	for i0 := 0; i0 < n; i0 += chunk {
		i1 := i0 + chunk
		if i1 > n {
			i1 = n
		}
		i0 := i0 // per-iteration copy for pre-1.22 loop semantics
		g.Go(func() error {
			for i := i0; i < i1; i++ {
				fn(i)
			}
			return nil
		})
	}
	_ = g.Wait() // workers never return errors
}

func makeGrid(h, w int) [][]complex128 {
	grid := make([][]complex128, h)
	for y := range grid {
		grid[y] = make([]complex128, w)
	}
	return grid
}

func nextPow2(n int) int {
	if n <= 1 {
		return 1
	}
	return 1 << bits.Len(uint(n-1))
}

// -----------------------------------------------------------------------------
// Radix-2 FFT
// -----------------------------------------------------------------------------

// fftPlan is a one-dimensional power-of-two FFT plan. Depending on the
// effort it was built with, twiddle factors and the bit-reversal
// permutation are precomputed or derived per call.
type fftPlan struct {
	n       int
	twiddle []complex128 // forward twiddles, nil at effort 0
	perm    []int        // bit-reversal permutation, nil below effort 2
}

func newFFTPlan(n, effort int) *fftPlan {
	p := &fftPlan{n: n}
	if effort >= 1 {
		p.twiddle = make([]complex128, n/2)
		for k := range p.twiddle {
			angle := -2 * math.Pi * float64(k) / float64(n)
			p.twiddle[k] = complex(math.Cos(angle), math.Sin(angle))
		}
	}
	if effort >= 2 {
		p.perm = bitReversal(n)
	}
	return p
}

// transform runs the in-place FFT. len(a) must equal the plan size.
func (p *fftPlan) transform(a []complex128, inverse bool) {
	n := p.n
	if n == 1 {
		return
	}

	if p.perm != nil {
		for i, j := range p.perm {
			if i < j {
				a[i], a[j] = a[j], a[i]
			}
		}
	} else {
		j := 0
		for i := 1; i < n; i++ {
			bit := n >> 1
			for ; j&bit != 0; bit >>= 1 {
				j ^= bit
			}
			j ^= bit
			if i < j {
				a[i], a[j] = a[j], a[i]
			}
		}
	}

	for size := 2; size <= n; size <<= 1 {
		half := size / 2
		step := n / size
		for base := 0; base < n; base += size {
			for k := 0; k < half; k++ {
				w := p.omega(k*step, inverse)
				u := a[base+k]
				v := a[base+k+half] * w
				a[base+k] = u + v
				a[base+k+half] = u - v
			}
		}
	}

	if inverse {
		scale := complex(1/float64(n), 0)
		for i := range a {
			a[i] *= scale
		}
	}
}

// omega returns the k-th twiddle factor, conjugated for the inverse
// transform.
func (p *fftPlan) omega(k int, inverse bool) complex128 {
	var w complex128
	if p.twiddle != nil {
		w = p.twiddle[k]
	} else {
		angle := -2 * math.Pi * float64(k) / float64(p.n)
		w = complex(math.Cos(angle), math.Sin(angle))
	}
	if inverse {
		w = complex(real(w), -imag(w))
	}
	return w
}

func bitReversal(n int) []int {
	perm := make([]int, n)
	j := 0
	for i := 1; i < n; i++ {
		bit := n >> 1
		for ; j&bit != 0; bit >>= 1 {
			j ^= bit
		}
		j ^= bit
		perm[i] = j
	}
	return perm
}
