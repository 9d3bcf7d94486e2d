// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package sweep

import (
	"context"
	"fmt"

	"github.com/AleutianAI/convsweep/services/sweep/backend"
)

// fakeHandle is a scripted compute handle. A non-nil fail makes every
// Evaluate call return that error.
type fakeHandle struct {
	label  string
	fail   error
	evals  int
	closed bool
}

func (h *fakeHandle) Evaluate(_ context.Context, m backend.Model) (*backend.Image, error) {
	h.evals++
	if h.fail != nil {
		return nil, h.fail
	}
	return &backend.Image{
		Width:  m.Width,
		Height: m.Height,
		Pixels: make([]float64, m.Width*m.Height),
	}, nil
}

func (h *fakeHandle) Close() error {
	h.closed = true
	return nil
}

// fakeBackend builds fakeHandles and records every construction. Builds
// and evaluations can be scripted to fail per variant label.
type fakeBackend struct {
	devices []backend.DeviceInfo

	// buildFail maps a variant key to a construction error.
	buildFail map[string]error

	// evalFail maps a variant key to an evaluation error.
	evalFail map[string]error

	built        []*fakeHandle
	enumerations int
}

func (b *fakeBackend) Name() string { return "fake" }

func (b *fakeBackend) EnumerateDevices(context.Context) ([]backend.DeviceInfo, error) {
	b.enumerations++
	return b.devices, nil
}

// variantKey folds the parts of a HandleConfig that distinguish sweep
// variants into a scripting key, e.g. "transform/e1/t2/reuse" or
// "device/01/d".
func variantKey(cfg backend.HandleConfig) string {
	switch cfg.Kind {
	case backend.KindNone:
		if cfg.Device.PlatformName != "" {
			return deviceVariantKey("devnone", cfg)
		}
		return fmt.Sprintf("none/t%d", cfg.Threads)
	case backend.KindBruteOld:
		return "bruteold"
	case backend.KindBrute:
		return fmt.Sprintf("brute/t%d", cfg.Threads)
	case backend.KindTransform:
		reuse := "plain"
		if cfg.ReusePlan {
			reuse = "reuse"
		}
		return fmt.Sprintf("transform/e%d/t%d/%s", cfg.Effort, cfg.Threads, reuse)
	case backend.KindDevice:
		return deviceVariantKey("device", cfg)
	case backend.KindDeviceLocal:
		return deviceVariantKey("devicelocal", cfg)
	default:
		return "unknown"
	}
}

func deviceVariantKey(family string, cfg backend.HandleConfig) string {
	precision := "f"
	if cfg.Double {
		precision = "d"
	}
	return fmt.Sprintf("%s/%d%d/%s", family, cfg.Device.PlatformIndex, cfg.Device.DeviceIndex, precision)
}

func (b *fakeBackend) Build(_ context.Context, cfg backend.HandleConfig) (backend.Handle, error) {
	key := variantKey(cfg)
	if err, ok := b.buildFail[key]; ok {
		return nil, err
	}
	h := &fakeHandle{label: key, fail: b.evalFail[key]}
	b.built = append(b.built, h)
	return h, nil
}
