// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package analysis derives comparison statistics from completed sweep
// tables: speedup ratios, correlation and slope fits, and multi-level
// regroupings.
//
// Every operation is a pure function over immutable tables producing a
// new derived table; nothing here mutates a sweep result. Vendor,
// device, memory-locality, and precision variants are just more column
// labels flowing through the same operations — there is no per-vendor
// special-casing.
package analysis

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrBadLabel indicates a column label that does not belong to any
// known variant family.
var ErrBadLabel = errors.New("unrecognized variant label")

// Family names the backend family a column label belongs to.
type Family string

const (
	// FamilyNoConv is the overhead baseline of the convolution sweep.
	FamilyNoConv Family = "noconv"

	// FamilyBruteOld is the legacy single-threaded brute convolver.
	FamilyBruteOld Family = "brute-old"

	// FamilyBrute is the threaded brute convolver (Brute_<t>).
	FamilyBrute Family = "brute"

	// FamilyTransform is the FFT convolver (FFT_<e>_<t>_<Y|N>).
	FamilyTransform Family = "transform"

	// FamilyDevice is an accelerated-device convolver (cl_/Lcl_).
	FamilyDevice Family = "device"

	// FamilyCPU is the single-threaded evaluation baseline of the
	// profile sweep.
	FamilyCPU Family = "cpu"

	// FamilyDeviceEval is accelerated-device evaluation (CL_<pd>_<f|d>).
	FamilyDeviceEval Family = "device-eval"

	// FamilyThreadedEval is threaded evaluation (OMP_<t>).
	FamilyThreadedEval Family = "threaded-eval"
)

// Label is a decomposed variant label. Only the fields relevant to the
// family carry meaning; the rest hold zero values.
type Label struct {
	Family Family

	// Threads for FamilyBrute, FamilyTransform, FamilyThreadedEval.
	Threads int

	// Effort and Reuse for FamilyTransform.
	Effort int
	Reuse  bool

	// Platform, Device, Double, Local for the device families. Local
	// marks the device-local-memory convolver variant (Lcl_).
	Platform int
	Device   int
	Double   bool
	Local    bool
}

// ParseLabel decomposes a persisted column label. Labels are the wire
// format of table headers, so this is the inverse of the sweep's label
// constructors and must accept every label either sweep emits.
func ParseLabel(s string) (Label, error) {
	switch s {
	case "NoConv":
		return Label{Family: FamilyNoConv}, nil
	case "BruteOld":
		return Label{Family: FamilyBruteOld}, nil
	case "CPU":
		return Label{Family: FamilyCPU}, nil
	}

	switch {
	case strings.HasPrefix(s, "Brute_"):
		t, err := strconv.Atoi(strings.TrimPrefix(s, "Brute_"))
		if err != nil || t < 1 {
			return Label{}, fmt.Errorf("%w: %q", ErrBadLabel, s)
		}
		return Label{Family: FamilyBrute, Threads: t}, nil

	case strings.HasPrefix(s, "FFT_"):
		return parseTransformLabel(s)

	case strings.HasPrefix(s, "cl_"), strings.HasPrefix(s, "Lcl_"):
		return parseDeviceLabel(s)

	case strings.HasPrefix(s, "CL_"):
		l, err := parseDeviceFields(s, strings.TrimPrefix(s, "CL_"))
		if err != nil {
			return Label{}, err
		}
		l.Family = FamilyDeviceEval
		return l, nil

	case strings.HasPrefix(s, "OMP_"):
		t, err := strconv.Atoi(strings.TrimPrefix(s, "OMP_"))
		if err != nil || t < 1 {
			return Label{}, fmt.Errorf("%w: %q", ErrBadLabel, s)
		}
		return Label{Family: FamilyThreadedEval, Threads: t}, nil
	}

	return Label{}, fmt.Errorf("%w: %q", ErrBadLabel, s)
}

// parseTransformLabel parses FFT_<effort>_<threads>_<Y|N>.
func parseTransformLabel(s string) (Label, error) {
	parts := strings.Split(s, "_")
	if len(parts) != 4 {
		return Label{}, fmt.Errorf("%w: %q", ErrBadLabel, s)
	}
	effort, err := strconv.Atoi(parts[1])
	if err != nil || effort < 0 {
		return Label{}, fmt.Errorf("%w: %q", ErrBadLabel, s)
	}
	threads, err := strconv.Atoi(parts[2])
	if err != nil || threads < 1 {
		return Label{}, fmt.Errorf("%w: %q", ErrBadLabel, s)
	}
	var reuse bool
	switch parts[3] {
	case "Y":
		reuse = true
	case "N":
		reuse = false
	default:
		return Label{}, fmt.Errorf("%w: %q", ErrBadLabel, s)
	}
	return Label{Family: FamilyTransform, Effort: effort, Threads: threads, Reuse: reuse}, nil
}

// parseDeviceLabel parses cl_<pd>_<f|d> and Lcl_<pd>_<f|d>.
func parseDeviceLabel(s string) (Label, error) {
	rest := s
	local := false
	if strings.HasPrefix(rest, "Lcl_") {
		local = true
		rest = strings.TrimPrefix(rest, "Lcl_")
	} else {
		rest = strings.TrimPrefix(rest, "cl_")
	}
	l, err := parseDeviceFields(s, rest)
	if err != nil {
		return Label{}, err
	}
	l.Family = FamilyDevice
	l.Local = local
	return l, nil
}

// parseDeviceFields parses <platform><device>_<f|d>, the shared tail
// of every device label family. full is the original label, for errors.
func parseDeviceFields(full, rest string) (Label, error) {
	parts := strings.Split(rest, "_")
	if len(parts) != 2 || len(parts[0]) != 2 {
		return Label{}, fmt.Errorf("%w: %q", ErrBadLabel, full)
	}
	platform, err := strconv.Atoi(parts[0][:1])
	if err != nil {
		return Label{}, fmt.Errorf("%w: %q", ErrBadLabel, full)
	}
	device, err := strconv.Atoi(parts[0][1:])
	if err != nil {
		return Label{}, fmt.Errorf("%w: %q", ErrBadLabel, full)
	}
	var double bool
	switch parts[1] {
	case "f":
		double = false
	case "d":
		double = true
	default:
		return Label{}, fmt.Errorf("%w: %q", ErrBadLabel, full)
	}
	return Label{Platform: platform, Device: device, Double: double}, nil
}
