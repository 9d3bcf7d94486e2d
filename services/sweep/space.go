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

	"github.com/AleutianAI/convsweep/services/sweep/backend"
)

// -----------------------------------------------------------------------------
// Row keys and variants
// -----------------------------------------------------------------------------

// RowKey identifies one result row of the convolution sweep.
type RowKey struct {
	Img int
	Krn int
}

// Variant is one fully-parameterized backend configuration: a result
// table column. The label is stable and human-readable, and doubles as
// the persisted column header, so its format is part of the wire
// format and must round-trip through analysis.ParseLabel.
type Variant struct {
	Label string
	Kind  backend.Kind

	Threads   int
	Effort    int
	ReusePlan bool

	Device backend.DeviceInfo
	Double bool
}

// HandleConfig binds the variant to one row geometry.
func (v Variant) HandleConfig(width, height int, kernel [][]float64) backend.HandleConfig {
	return backend.HandleConfig{
		Kind:      v.Kind,
		Width:     width,
		Height:    height,
		Kernel:    kernel,
		Threads:   v.Threads,
		Effort:    v.Effort,
		ReusePlan: v.ReusePlan,
		Device:    v.Device,
		Double:    v.Double,
	}
}

// Describe returns the long-form description used in transient status
// lines while the handle is being built.
func (v Variant) Describe() string {
	switch v.Kind {
	case backend.KindNone:
		return "no-convolution baseline"
	case backend.KindBruteOld:
		return "brute force (old)"
	case backend.KindBrute:
		return fmt.Sprintf("brute force (threads = %d)", v.Threads)
	case backend.KindTransform:
		reuse := "No"
		if v.ReusePlan {
			reuse = "Yes"
		}
		return fmt.Sprintf("FFT (effort = %d, threads = %d, reuse = %s)", v.Effort, v.Threads, reuse)
	case backend.KindDevice:
		return fmt.Sprintf("device %s / %s", v.Device.PlatformName, v.Device.DeviceName)
	case backend.KindDeviceLocal:
		return fmt.Sprintf("device (local) %s / %s", v.Device.PlatformName, v.Device.DeviceName)
	default:
		return v.Label
	}
}

// -----------------------------------------------------------------------------
// Label construction
// -----------------------------------------------------------------------------

// Label constructors. These strings are persisted table headers; the
// analysis layer parses them back, so format changes break stored data.

// LabelNoConv is the overhead-baseline column.
const LabelNoConv = "NoConv"

// LabelBruteOld is the legacy brute-force column.
const LabelBruteOld = "BruteOld"

func bruteLabel(threads int) string {
	return fmt.Sprintf("Brute_%d", threads)
}

func transformLabel(effort, threads int, reuse bool) string {
	r := "N"
	if reuse {
		r = "Y"
	}
	return fmt.Sprintf("FFT_%d_%d_%s", effort, threads, r)
}

func deviceLabel(d backend.DeviceInfo, local, double bool) string {
	family := "cl"
	if local {
		family = "Lcl"
	}
	precision := "f"
	if double {
		precision = "d"
	}
	return fmt.Sprintf("%s_%d%d_%s", family, d.PlatformIndex, d.DeviceIndex, precision)
}

// -----------------------------------------------------------------------------
// Configuration space builder
// -----------------------------------------------------------------------------

// SpaceConfig bounds the configuration space of one convolution sweep.
type SpaceConfig struct {
	// ImageSizes and KernelSizes span the row-key grid. Pairs with
	// kernel > image are dropped, never emitted as error rows.
	ImageSizes  []int
	KernelSizes []int

	// MaxThreads bounds the thread-count axis (see ThreadCounts).
	MaxThreads int

	// MaxEffort bounds the transform effort axis, 0..MaxEffort.
	MaxEffort int

	// MeasureReuse widens the plan-reuse axis from {false} to
	// {false, true}.
	MeasureReuse bool
}

// Space is the enumerated configuration space: ordered row keys and
// ordered variants. Both orders are fixed for the whole sweep; column
// order in the result table is exactly the variant order here.
type Space struct {
	RowKeys  []RowKey
	Variants []Variant

	// Devices is the accelerated-device inventory the device variants
	// were generated from, enumerated once at build time.
	Devices []backend.DeviceInfo
}

// Labels returns the ordered column labels.
func (s *Space) Labels() []string {
	labels := make([]string, len(s.Variants))
	for i, v := range s.Variants {
		labels[i] = v.Label
	}
	return labels
}

// BuildSpace enumerates the configuration space for one sweep.
//
// Variant order is: NoConv, BruteOld, brute per thread count, transform
// per (effort, thread, reuse) with reuse innermost, then per device:
// float normal, float local, and for devices with double support,
// double normal and double local. Device enumeration happens exactly
// once, here.
func BuildSpace(ctx context.Context, be backend.Backend, cfg SpaceConfig) (*Space, error) {
	s := &Space{}

	for _, img := range cfg.ImageSizes {
		for _, krn := range cfg.KernelSizes {
			if krn > img {
				continue
			}
			s.RowKeys = append(s.RowKeys, RowKey{Img: img, Krn: krn})
		}
	}

	s.Variants = append(s.Variants,
		Variant{Label: LabelNoConv, Kind: backend.KindNone, Threads: 1},
		Variant{Label: LabelBruteOld, Kind: backend.KindBruteOld},
	)

	threads := ThreadCounts(cfg.MaxThreads)
	for _, t := range threads {
		s.Variants = append(s.Variants, Variant{
			Label:   bruteLabel(t),
			Kind:    backend.KindBrute,
			Threads: t,
		})
	}

	for _, e := range EffortLevels(cfg.MaxEffort) {
		for _, t := range threads {
			for _, r := range ReuseFlags(cfg.MeasureReuse) {
				s.Variants = append(s.Variants, Variant{
					Label:     transformLabel(e, t, r),
					Kind:      backend.KindTransform,
					Threads:   t,
					Effort:    e,
					ReusePlan: r,
				})
			}
		}
	}

	devices, err := be.EnumerateDevices(ctx)
	if err != nil {
		return nil, fmt.Errorf("enumerating devices: %w", err)
	}
	s.Devices = devices

	for _, d := range devices {
		precisions := []bool{false}
		if d.SupportsDouble {
			precisions = append(precisions, true)
		}
		for _, double := range precisions {
			s.Variants = append(s.Variants,
				Variant{
					Label:  deviceLabel(d, false, double),
					Kind:   backend.KindDevice,
					Device: d,
					Double: double,
				},
				Variant{
					Label:  deviceLabel(d, true, double),
					Kind:   backend.KindDeviceLocal,
					Device: d,
					Double: double,
				},
			)
		}
	}

	return s, nil
}
