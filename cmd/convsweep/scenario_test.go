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
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Test Fixtures
// =============================================================================

// validScenarioYAML returns a valid YAML string for testing file loading.
func validScenarioYAML() string {
	return `name: "small-sweep"
version: "1.0.0"

convolution:
  image_sizes: [100, 150, 200]
  kernel_sizes: [25, 50]
  iterations: 10
  max_threads: 4
  max_effort: 2
  measure_reuse: true
`
}

func writeScenario(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// =============================================================================
// Tests
// =============================================================================

func TestLoadScenarioValid(t *testing.T) {
	path := writeScenario(t, validScenarioYAML())

	s, err := LoadScenario(path)
	require.NoError(t, err)

	assert.Equal(t, "small-sweep", s.Name)
	assert.Equal(t, []int{100, 150, 200}, s.Convolution.ImageSizes)
	assert.Equal(t, []int{25, 50}, s.Convolution.KernelSizes)
	assert.Equal(t, 10, s.Convolution.Iterations)
	assert.Equal(t, 4, s.Convolution.MaxThreads)
	assert.Equal(t, 2, s.Convolution.MaxEffort)
	assert.True(t, s.Convolution.MeasureReuse)
}

func TestLoadScenarioMissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadScenarioMalformedYAML(t *testing.T) {
	path := writeScenario(t, "name: [unterminated")
	_, err := LoadScenario(path)
	assert.Error(t, err)
}

func TestLoadScenarioValidation(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			name: "missing name",
			content: `convolution:
  image_sizes: [100]
  kernel_sizes: [25]
`,
		},
		{
			name: "empty image sizes",
			content: `name: "s"
convolution:
  image_sizes: []
  kernel_sizes: [25]
`,
		},
		{
			name: "negative kernel size",
			content: `name: "s"
convolution:
  image_sizes: [100]
  kernel_sizes: [-25]
`,
		},
		{
			name: "effort out of range",
			content: `name: "s"
convolution:
  image_sizes: [100]
  kernel_sizes: [25]
  max_effort: 7
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeScenario(t, tt.content)
			_, err := LoadScenario(path)
			assert.Error(t, err)
		})
	}
}
