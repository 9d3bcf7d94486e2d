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

	"golang.org/x/sync/errgroup"
)

// renderModel rasterizes the model's profiles into a fresh image.
//
// Sky is a constant fill. Sersic is evaluated per pixel center, rows
// split across threads workers when threads > 1. Parameter validation
// happens here rather than at handle construction because profile
// parameters arrive per evaluation, not per handle; a bad combination
// (re <= 0, axrat <= 0) is a recoverable computation failure.
func renderModel(ctx context.Context, m Model, threads int) (*Image, error) {
	if m.Width <= 0 || m.Height <= 0 {
		return nil, fmt.Errorf("%w: image %dx%d", ErrBadModel, m.Width, m.Height)
	}
	if m.Sky == nil && m.Sersic == nil {
		return nil, fmt.Errorf("%w: no profiles", ErrBadModel)
	}

	im := &Image{Width: m.Width, Height: m.Height, Pixels: make([]float64, m.Width*m.Height)}

	if m.Sky != nil {
		for i := range im.Pixels {
			im.Pixels[i] = m.Sky.Background
		}
	}

	if m.Sersic != nil {
		if err := renderSersic(ctx, im, m.Sersic, threads); err != nil {
			return nil, err
		}
	}

	return im, nil
}

// renderSersic adds a Sersic profile to the image.
func renderSersic(ctx context.Context, im *Image, p *SersicProfile, threads int) error {
	if p.Re <= 0 {
		return fmt.Errorf("%w: sersic re=%g must be positive", ErrBadModel, p.Re)
	}
	if p.AxRat <= 0 || p.AxRat > 1 {
		return fmt.Errorf("%w: sersic axrat=%g outside (0, 1]", ErrBadModel, p.AxRat)
	}
	if p.Nser <= 0 {
		return fmt.Errorf("%w: sersic nser=%g must be positive", ErrBadModel, p.Nser)
	}

	// Ciotti & Bertin approximation for the Sersic b(n).
	bn := 2*p.Nser - 1.0/3.0 + 4.0/(405.0*p.Nser)
	ie := math.Pow(10, -0.4*p.Mag)
	theta := p.Ang * math.Pi / 180
	cosT, sinT := math.Cos(theta), math.Sin(theta)
	shape := 2 + p.Box
	invN := 1 / p.Nser

	rows := func(ctx context.Context, y0, y1 int) error {
		for y := y0; y < y1; y++ {
			if err := ctx.Err(); err != nil {
				return err
			}
			dy := float64(y) + 0.5 - p.YCen
			for x := 0; x < im.Width; x++ {
				dx := float64(x) + 0.5 - p.XCen

				// Rotate into the profile frame, stretch the minor axis.
				u := dx*cosT + dy*sinT
				v := (-dx*sinT + dy*cosT) / p.AxRat

				// Generalized (boxy) ellipse radius.
				r := math.Pow(
					math.Pow(math.Abs(u), shape)+math.Pow(math.Abs(v), shape),
					1/shape)

				im.Pixels[y*im.Width+x] += ie * math.Exp(-bn*(math.Pow(r/p.Re, invN)-1))
			}
		}
		return nil
	}

	if threads <= 1 {
		return rows(ctx, 0, im.Height)
	}

	g, gctx := errgroup.WithContext(ctx)
	chunk := (im.Height + threads - 1) / threads
	for y0 := 0; y0 < im.Height; y0 += chunk {
		y1 := y0 + chunk
		if y1 > im.Height {
			y1 = im.Height
		}
		y0 := y0 // per-iteration copy for pre-1.22 loop semantics
		g.Go(func() error {
			return rows(gctx, y0, y1)
		})
	}
	return g.Wait()
}
