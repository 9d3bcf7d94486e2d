// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/convsweep/pkg/validation"
)

// The axis defaults mirror the historical profile driver exactly.
func TestProfileAxisDefaults(t *testing.T) {
	tests := []struct {
		flag string
		want string
	}{
		{"nser", "1,12,10"},
		{"ang", "0,45,4"},
		{"axrat", "0.1,1,4"},
		{"box", "-0.5,0.5,3"},
	}

	for _, tt := range tests {
		f := profileCmd.Flags().Lookup(tt.flag)
		require.NotNil(t, f, "flag --%s", tt.flag)
		assert.Equal(t, tt.want, f.DefValue, "flag --%s", tt.flag)
	}
}

func TestDefaultReSpecScalesWithWidth(t *testing.T) {
	// --re is left empty so the default can track --width: half the
	// image width in 5 steps.
	f := profileCmd.Flags().Lookup("re")
	require.NotNil(t, f)
	assert.Equal(t, "", f.DefValue)

	assert.Equal(t, "0,100,5", defaultReSpec(200))
	assert.Equal(t, "0,75,5", defaultReSpec(150))

	r, err := validation.ParseRange(defaultReSpec(200))
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 25, 50, 75, 100}, r.Values())
}
