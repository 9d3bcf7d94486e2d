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
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/convsweep/pkg/ux"
	"github.com/AleutianAI/convsweep/services/sweep"
	"github.com/AleutianAI/convsweep/services/sweep/backend"
)

func runConvolutionSweep(cmd *cobra.Command, _ []string) {
	ctx := context.Background()

	// 1. Assemble options from flags, then let a scenario file
	// override the axes if one was given.
	opts := sweep.DefaultConvolutionOptions()
	opts.Space.ImageSizes = imageSizes
	opts.Space.KernelSizes = kernelSizes
	opts.Space.MaxThreads = maxThreads
	opts.Space.MaxEffort = maxEffort
	opts.Space.MeasureReuse = measureReuse
	opts.Iterations = iterations

	if scenarioPath != "" {
		scenario, err := LoadScenario(scenarioPath)
		if err != nil {
			logger.Error("Failed to load scenario", "error", err)
			ux.Error("%v", err)
			os.Exit(1)
		}
		applyScenario(&opts, scenario)
		ux.Info("Scenario: %s", scenario.Name)
	}

	opts.Logger = logger.Slog()
	opts.Progress = newConsoleProgress()

	// 2. Run the sweep. The device banner and rows stream through the
	// progress sink; a returned error here is a configuration-level
	// failure and the table is not usable.
	be := backend.NewReference()
	result, err := sweep.RunConvolution(ctx, be, opts)
	if err != nil {
		logger.Error("Convolution sweep failed", "error", err)
		ux.Error("%v", err)
		os.Exit(1)
	}

	// 3. Failure texts after the table, console only.
	dumpRegistry(result.Registry)

	// 4. Persist on request. Placeholders round-trip; the failure
	// texts do not.
	if outputPath != "" {
		if err := writeTableFile(outputPath, result.Table, sweep.DefaultMinWidth); err != nil {
			logger.Error("Failed to write table", "path", outputPath, "error", err)
			ux.Error("%v", err)
			os.Exit(1)
		}
		ux.Success("Wrote %s", outputPath)
	}
}

// applyScenario copies the scenario's convolution section over the
// flag-derived options. Zero-valued counts keep the flag values.
func applyScenario(opts *sweep.ConvolutionOptions, s *Scenario) {
	opts.Space.ImageSizes = s.Convolution.ImageSizes
	opts.Space.KernelSizes = s.Convolution.KernelSizes
	opts.Space.MeasureReuse = s.Convolution.MeasureReuse
	if s.Convolution.Iterations > 0 {
		opts.Iterations = s.Convolution.Iterations
	}
	if s.Convolution.MaxThreads > 0 {
		opts.Space.MaxThreads = s.Convolution.MaxThreads
	}
	if s.Convolution.MaxEffort > 0 {
		opts.Space.MaxEffort = s.Convolution.MaxEffort
	}
}

func writeTableFile(path string, t *sweep.Table, minWidth int) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := sweep.NewEncoder(t, minWidth).Write(f); err != nil {
		return err
	}
	return f.Close()
}
