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
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Scenario is a declarative sweep configuration, the file-based
// alternative to spelling out the axis flags.
type Scenario struct {
	Name    string `yaml:"name" validate:"required"`
	Version string `yaml:"version"`

	Convolution struct {
		ImageSizes   []int `yaml:"image_sizes" validate:"required,min=1,dive,gt=0"`
		KernelSizes  []int `yaml:"kernel_sizes" validate:"required,min=1,dive,gt=0"`
		Iterations   int   `yaml:"iterations" validate:"gte=0"`
		MaxThreads   int   `yaml:"max_threads" validate:"gte=0"`
		MaxEffort    int   `yaml:"max_effort" validate:"gte=0,lte=3"`
		MeasureReuse bool  `yaml:"measure_reuse"`
	} `yaml:"convolution"`
}

// LoadScenario reads and validates a scenario file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario %s: %w", path, err)
	}

	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse scenario %s: %w", path, err)
	}

	if err := validator.New().Struct(&s); err != nil {
		return nil, fmt.Errorf("invalid scenario %s: %w", path, err)
	}
	return &s, nil
}
