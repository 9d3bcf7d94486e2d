// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package backend defines the boundary between the sweep engine and the
// numeric compute library it benchmarks.
//
// The sweep engine never performs convolution or model evaluation
// itself: it builds compute handles through a Backend, calls
// Handle.Evaluate inside its timing loop, and treats everything behind
// the interface as opaque. The Reference backend in this package is one
// implementation; an accelerated-device binding would be another.
package backend

import (
	"context"
	"fmt"
)

// -----------------------------------------------------------------------------
// Devices
// -----------------------------------------------------------------------------

// DeviceInfo describes one accelerated compute device.
//
// Platform and device indices are positional within the backend's
// inventory and are embedded in variant labels (cl_<p><d>_f), so a
// backend must report a stable ordering across a single process run.
type DeviceInfo struct {
	// PlatformIndex is the index of the platform in the inventory.
	PlatformIndex int

	// DeviceIndex is the index of the device within its platform.
	DeviceIndex int

	// PlatformName is the human-readable platform name.
	PlatformName string

	// DeviceName is the human-readable device name.
	DeviceName string

	// SupportsDouble reports whether the device can evaluate in
	// double precision. Double-precision variants are only generated
	// for devices that report true.
	SupportsDouble bool
}

// String renders the device in the form used by startup banners.
func (d DeviceInfo) String() string {
	double := "No"
	if d.SupportsDouble {
		double = "Yes"
	}
	return fmt.Sprintf("[%d%d] %s / %s. Double: %s",
		d.PlatformIndex, d.DeviceIndex, d.PlatformName, d.DeviceName, double)
}

// -----------------------------------------------------------------------------
// Handle configuration
// -----------------------------------------------------------------------------

// Kind tags one backend configuration variant.
//
// Each kind carries only the HandleConfig fields relevant to it; all
// kinds are dispatched through the single Backend.Build entry point.
type Kind int

const (
	// KindNone is an evaluation-only handle: the model is rendered but
	// never convolved. Used for the NoConv overhead baseline and for
	// the profile-evaluation sweep (where Threads or Device select the
	// evaluation path).
	KindNone Kind = iota

	// KindBruteOld is the legacy single-threaded brute-force convolver.
	KindBruteOld

	// KindBrute is the brute-force convolver honoring Threads.
	KindBrute

	// KindTransform is the transform-based convolver honoring Threads,
	// Effort, and ReusePlan.
	KindTransform

	// KindDevice is an accelerated-device convolver on Device, in
	// float or (Double) double precision.
	KindDevice

	// KindDeviceLocal is the accelerated-device convolver variant
	// using device-local memory.
	KindDeviceLocal
)

// String returns the kind's name as used in logs.
func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindBruteOld:
		return "brute-old"
	case KindBrute:
		return "brute"
	case KindTransform:
		return "transform"
	case KindDevice:
		return "device"
	case KindDeviceLocal:
		return "device-local"
	default:
		return "unknown"
	}
}

// HandleConfig is the tagged-variant configuration for one compute
// handle. Kind selects the variant; the remaining fields apply only
// where documented.
type HandleConfig struct {
	// Kind selects the backend variant.
	Kind Kind

	// Width and Height give the image geometry the handle is sized to.
	Width  int
	Height int

	// Kernel is the convolution kernel, row-major, Kernel[y][x].
	// Ignored by KindNone.
	Kernel [][]float64

	// Threads is the internal parallelism for KindBrute and
	// KindTransform, and for KindNone model evaluation. Zero means 1.
	Threads int

	// Effort is the transform-plan effort level for KindTransform.
	// Higher levels spend more setup time for faster calls.
	Effort int

	// ReusePlan keeps the kernel's transform across Evaluate calls for
	// KindTransform instead of rebuilding it each call.
	ReusePlan bool

	// Device selects the accelerated device for KindDevice,
	// KindDeviceLocal, and device-backed KindNone evaluation.
	Device DeviceInfo

	// Double selects double-precision device evaluation. Only valid
	// when Device.SupportsDouble.
	Double bool
}

// -----------------------------------------------------------------------------
// Model input and image output
// -----------------------------------------------------------------------------

// SkyProfile is a flat background profile. It renders in near-zero
// time, which makes it the standard payload for convolution timing.
type SkyProfile struct {
	// Background is the per-pixel background level.
	Background float64
}

// SersicProfile is a Sersic surface-brightness profile.
type SersicProfile struct {
	XCen  float64 // center x, pixels
	YCen  float64 // center y, pixels
	Mag   float64 // total magnitude
	Nser  float64 // Sersic index
	Ang   float64 // position angle, degrees
	AxRat float64 // axis ratio b/a, (0, 1]
	Re    float64 // effective radius, pixels
	Box   float64 // boxiness parameter
}

// Model describes one evaluation request: the profiles to render and
// whether the result is convolved with the handle's kernel.
type Model struct {
	Width  int
	Height int

	// Sky and Sersic are the profiles to render; nil profiles are
	// skipped. At least one must be set.
	Sky    *SkyProfile
	Sersic *SersicProfile

	// Convolve requests convolution with the handle's kernel. Must be
	// false for KindNone handles.
	Convolve bool
}

// Image is a rendered model image, row-major.
type Image struct {
	Width  int
	Height int
	Pixels []float64
}

// At returns the pixel at (x, y). No bounds checking.
func (im *Image) At(x, y int) float64 {
	return im.Pixels[y*im.Width+x]
}

// -----------------------------------------------------------------------------
// Backend interface
// -----------------------------------------------------------------------------

// Handle is a compute resource bound to one configuration and image
// geometry. Handles are expensive to build and cheap to reuse; the
// sweep reuses one handle for all iterations of a cell and closes it
// when moving to the next row key.
type Handle interface {
	// Evaluate renders the model and, if requested, convolves it.
	// A mid-loop failure here is recoverable for the sweep.
	Evaluate(ctx context.Context, m Model) (*Image, error)

	// Close releases backend resources held by the handle.
	Close() error
}

// Backend is the compute library boundary consumed by the sweep.
type Backend interface {
	// Name identifies the backend in logs and table headers.
	Name() string

	// EnumerateDevices lists accelerated devices in stable order.
	// Called once at sweep start. An empty list is not an error:
	// device variants are simply absent.
	EnumerateDevices(ctx context.Context) ([]DeviceInfo, error)

	// Build constructs a handle for the given configuration. Failure
	// here is fatal for the sweep: with no handle there is nothing to
	// measure, and it usually signals a systemic environment problem.
	Build(ctx context.Context, cfg HandleConfig) (Handle, error)
}
