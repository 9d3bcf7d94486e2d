// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package sweep

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/convsweep/services/sweep/backend"
)

func testKernels() map[int][][]float64 {
	return map[int][][]float64{
		25: {{1}},
		50: {{2}},
	}
}

func TestFactoryAcquireBuildsOnce(t *testing.T) {
	be := &fakeBackend{}
	f := NewFactory(be, testKernels(), nil)
	defer f.Close()

	v := Variant{Label: "Brute_1", Kind: backend.KindBrute, Threads: 1}
	key := RowKey{Img: 100, Krn: 25}

	h1, err := f.Acquire(context.Background(), v, key)
	require.NoError(t, err)
	h2, err := f.Acquire(context.Background(), v, key)
	require.NoError(t, err)

	assert.Same(t, h1, h2)
	assert.Len(t, be.built, 1)

	// A different row key must get its own handle.
	_, err = f.Acquire(context.Background(), v, RowKey{Img: 100, Krn: 50})
	require.NoError(t, err)
	assert.Len(t, be.built, 2)
}

func TestFactoryBuildFailure(t *testing.T) {
	cause := errors.New("no such device")
	be := &fakeBackend{buildFail: map[string]error{"bruteold": cause}}
	f := NewFactory(be, testKernels(), nil)
	defer f.Close()

	_, err := f.Acquire(context.Background(), Variant{Label: "BruteOld", Kind: backend.KindBruteOld}, RowKey{Img: 100, Krn: 25})
	require.Error(t, err)

	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "BruteOld", cfgErr.Label)
	assert.Equal(t, 100, cfgErr.Img)
	assert.Equal(t, 25, cfgErr.Krn)
	assert.ErrorIs(t, err, cause)
}

func TestFactoryReleaseClosesRow(t *testing.T) {
	be := &fakeBackend{}
	f := NewFactory(be, testKernels(), nil)

	v1 := Variant{Label: "Brute_1", Kind: backend.KindBrute, Threads: 1}
	v2 := Variant{Label: "Brute_2", Kind: backend.KindBrute, Threads: 2}
	keep := RowKey{Img: 100, Krn: 50}

	_, err := f.Acquire(context.Background(), v1, RowKey{Img: 100, Krn: 25})
	require.NoError(t, err)
	_, err = f.Acquire(context.Background(), v2, RowKey{Img: 100, Krn: 25})
	require.NoError(t, err)
	kept, err := f.Acquire(context.Background(), v1, keep)
	require.NoError(t, err)

	f.Release(RowKey{Img: 100, Krn: 25})

	closedCount := 0
	for _, h := range be.built {
		if h.closed {
			closedCount++
		}
	}
	assert.Equal(t, 2, closedCount)

	// The surviving handle is still cached.
	again, err := f.Acquire(context.Background(), v1, keep)
	require.NoError(t, err)
	assert.Same(t, kept, again)

	f.Close()
	for _, h := range be.built {
		assert.True(t, h.closed)
	}
}
