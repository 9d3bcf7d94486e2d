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
	"log/slog"

	"github.com/AleutianAI/convsweep/services/sweep/backend"
)

// handleKey identifies one constructed handle within a sweep.
type handleKey struct {
	label string
	key   RowKey
}

// Factory builds compute handles at most once per (variant, row key)
// triple. Handles are scoped to one row key: backend resources are
// frequently pre-sized to image geometry, so a handle is never shared
// across differing image or kernel sizes, and Release drops a row's
// handles before the sweep advances.
//
// Construction failure is fatal for the sweep and surfaces as a
// ConfigurationError; it is deliberately distinct from per-trial
// computation failure, which the runner isolates per cell.
type Factory struct {
	be      BackendBuilder
	kernels map[int][][]float64
	cache   map[handleKey]backend.Handle
	logger  *slog.Logger
}

// BackendBuilder is the subset of backend.Backend the factory needs.
type BackendBuilder interface {
	Build(ctx context.Context, cfg backend.HandleConfig) (backend.Handle, error)
}

// NewFactory creates a factory over the given backend. kernels maps
// kernel size to the kernel data used for that size, fixed for the
// whole sweep.
func NewFactory(be BackendBuilder, kernels map[int][][]float64, logger *slog.Logger) *Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &Factory{
		be:      be,
		kernels: kernels,
		cache:   make(map[handleKey]backend.Handle),
		logger:  logger,
	}
}

// Acquire returns the handle for (variant, row key), building it on
// first use. A construction failure returns a *ConfigurationError.
func (f *Factory) Acquire(ctx context.Context, v Variant, key RowKey) (backend.Handle, error) {
	ck := handleKey{label: v.Label, key: key}
	if h, ok := f.cache[ck]; ok {
		return h, nil
	}

	cfg := v.HandleConfig(key.Img, key.Img, f.kernels[key.Krn])
	h, err := f.be.Build(ctx, cfg)
	if err != nil {
		return nil, &ConfigurationError{Label: v.Label, Img: key.Img, Krn: key.Krn, Err: err}
	}

	f.logger.Debug("handle built", "variant", v.Label, "img", key.Img, "krn", key.Krn)
	f.cache[ck] = h
	return h, nil
}

// Release closes and forgets every handle built for the given row key.
func (f *Factory) Release(key RowKey) {
	for ck, h := range f.cache {
		if ck.key != key {
			continue
		}
		if err := h.Close(); err != nil {
			f.logger.Warn("closing handle", "variant", ck.label, "error", err)
		}
		delete(f.cache, ck)
	}
}

// Close releases all remaining handles.
func (f *Factory) Close() {
	for ck, h := range f.cache {
		if err := h.Close(); err != nil {
			f.logger.Warn("closing handle", "variant", ck.label, "error", err)
		}
		delete(f.cache, ck)
	}
}
