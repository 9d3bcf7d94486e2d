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
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// -----------------------------------------------------------------------------
// Errors
// -----------------------------------------------------------------------------

var (
	// ErrNoDevices indicates a device-kind handle was requested from a
	// backend with no accelerated devices.
	ErrNoDevices = errors.New("no accelerated devices available")

	// ErrBadGeometry indicates an invalid image or kernel geometry.
	ErrBadGeometry = errors.New("invalid image or kernel geometry")

	// ErrBadModel indicates an unevaluable model description.
	ErrBadModel = errors.New("invalid model description")
)

// -----------------------------------------------------------------------------
// Reference backend
// -----------------------------------------------------------------------------

// Reference is the in-process CPU implementation of Backend.
//
// It implements the brute-force convolvers (legacy single-threaded and
// worker-parallel) and the transform-based convolver. It enumerates no
// accelerated devices, so device variants never appear when sweeping
// against it.
type Reference struct{}

// NewReference creates the reference CPU backend.
func NewReference() *Reference {
	return &Reference{}
}

// Name identifies the backend.
func (b *Reference) Name() string {
	return "reference-cpu"
}

// EnumerateDevices returns an empty inventory: the reference backend
// has no accelerated devices.
func (b *Reference) EnumerateDevices(_ context.Context) ([]DeviceInfo, error) {
	return nil, nil
}

// Build constructs a handle for the given configuration.
func (b *Reference) Build(_ context.Context, cfg HandleConfig) (Handle, error) {
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("%w: image %dx%d", ErrBadGeometry, cfg.Width, cfg.Height)
	}

	threads := cfg.Threads
	if threads < 1 {
		threads = 1
	}

	switch cfg.Kind {
	case KindNone:
		return &evalHandle{width: cfg.Width, height: cfg.Height, threads: threads}, nil

	case KindBruteOld:
		kernel, err := checkKernel(cfg.Kernel)
		if err != nil {
			return nil, err
		}
		return &bruteHandle{width: cfg.Width, height: cfg.Height, kernel: kernel, threads: 1}, nil

	case KindBrute:
		kernel, err := checkKernel(cfg.Kernel)
		if err != nil {
			return nil, err
		}
		return &bruteHandle{width: cfg.Width, height: cfg.Height, kernel: kernel, threads: threads}, nil

	case KindTransform:
		kernel, err := checkKernel(cfg.Kernel)
		if err != nil {
			return nil, err
		}
		return newTransformHandle(cfg.Width, cfg.Height, kernel, cfg.Effort, threads, cfg.ReusePlan)

	case KindDevice, KindDeviceLocal:
		return nil, fmt.Errorf("%w: device %d%d requested from %s",
			ErrNoDevices, cfg.Device.PlatformIndex, cfg.Device.DeviceIndex, b.Name())

	default:
		return nil, fmt.Errorf("%w: unknown kind %d", ErrBadGeometry, cfg.Kind)
	}
}

// checkKernel validates that the kernel is non-empty and rectangular.
func checkKernel(kernel [][]float64) ([][]float64, error) {
	if len(kernel) == 0 || len(kernel[0]) == 0 {
		return nil, fmt.Errorf("%w: empty kernel", ErrBadGeometry)
	}
	width := len(kernel[0])
	for y, row := range kernel {
		if len(row) != width {
			return nil, fmt.Errorf("%w: ragged kernel row %d", ErrBadGeometry, y)
		}
	}
	return kernel, nil
}

// -----------------------------------------------------------------------------
// Evaluation-only handle
// -----------------------------------------------------------------------------

// evalHandle renders models without convolution. Threads drives the
// row-parallel render path.
type evalHandle struct {
	width, height int
	threads       int
}

func (h *evalHandle) Evaluate(ctx context.Context, m Model) (*Image, error) {
	if m.Convolve {
		return nil, fmt.Errorf("%w: convolution requested on evaluation-only handle", ErrBadModel)
	}
	return renderModel(ctx, m, h.threads)
}

func (h *evalHandle) Close() error { return nil }

// -----------------------------------------------------------------------------
// Brute-force convolver
// -----------------------------------------------------------------------------

// bruteHandle convolves by direct summation. The kernel is centered on
// each output pixel; contributions outside the image are zero.
type bruteHandle struct {
	width, height int
	kernel        [][]float64
	threads       int
}

func (h *bruteHandle) Evaluate(ctx context.Context, m Model) (*Image, error) {
	im, err := renderModel(ctx, m, 1)
	if err != nil {
		return nil, err
	}
	if !m.Convolve {
		return im, nil
	}
	return h.convolve(ctx, im)
}

func (h *bruteHandle) convolve(ctx context.Context, im *Image) (*Image, error) {
	out := &Image{Width: im.Width, Height: im.Height, Pixels: make([]float64, len(im.Pixels))}

	kh := len(h.kernel)
	kw := len(h.kernel[0])
	kcy := (kh - 1) / 2
	kcx := (kw - 1) / 2

	convolveRows := func(ctx context.Context, y0, y1 int) error {
		for y := y0; y < y1; y++ {
			if err := ctx.Err(); err != nil {
				return err
			}
			for x := 0; x < im.Width; x++ {
				var sum float64
				for ky := 0; ky < kh; ky++ {
					sy := y + ky - kcy
					if sy < 0 || sy >= im.Height {
						continue
					}
					row := im.Pixels[sy*im.Width:]
					krow := h.kernel[ky]
					for kx := 0; kx < kw; kx++ {
						sx := x + kx - kcx
						if sx < 0 || sx >= im.Width {
							continue
						}
						sum += row[sx] * krow[kx]
					}
				}
				out.Pixels[y*im.Width+x] = sum
			}
		}
		return nil
	}

	if h.threads <= 1 {
		if err := convolveRows(ctx, 0, im.Height); err != nil {
			return nil, err
		}
		return out, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	chunk := (im.Height + h.threads - 1) / h.threads
	for y0 := 0; y0 < im.Height; y0 += chunk {
		y1 := y0 + chunk
		if y1 > im.Height {
			y1 = im.Height
		}
		y0 := y0 // per-iteration copy for pre-1.22 loop semantics
		g.Go(func() error {
			return convolveRows(gctx, y0, y1)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (h *bruteHandle) Close() error { return nil }
