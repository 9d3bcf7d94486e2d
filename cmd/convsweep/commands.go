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
	"github.com/spf13/cobra"

	"github.com/AleutianAI/convsweep/pkg/logging"
)

// --- Global Command Variables ---
var (
	logLevel string
	logDir   string
	logJSON  bool
	quiet    bool

	iterations   int
	maxThreads   int
	maxEffort    int
	measureReuse bool
	imageSizes   []int
	kernelSizes  []int
	scenarioPath string
	outputPath   string

	profileWidth  int
	profileHeight int
	nserSpec      string
	angSpec       string
	axratSpec     string
	reSpec        string
	boxSpec       string

	baselineColumn string
	subtractNoConv bool
	numKeyColumns  int

	rootCmd = &cobra.Command{
		Use:   "convsweep",
		Short: "Benchmark sweeps and comparative analysis for convolution backends",
		Long: `Convsweep drives a numeric compute backend through a combinatorial
				space of convolution and model-evaluation configurations, times every
				cell, and derives comparison statistics from the resulting tables.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger = logging.New(logging.Config{
				Level:   logging.ParseLevel(logLevel),
				LogDir:  logDir,
				Service: "convsweep",
				JSON:    logJSON,
				Quiet:   quiet,
			})
		},
	}

	// --- Sweeps ---
	convolutionCmd = &cobra.Command{
		Use:   "convolution",
		Short: "Run the convolution benchmark sweep",
		Long: `Times every convolver variant (no-convolution baseline, brute force,
				FFT, accelerated devices) against every valid (image, kernel) size
				pair and prints a fixed-width timing table.`,
		Run: runConvolutionSweep, // Defined in cmd_convolution.go
	}

	profileCmd = &cobra.Command{
		Use:   "profile",
		Short: "Run the profile-evaluation benchmark sweep",
		Long: `Times model evaluation across a sampled Sersic shape-parameter grid
				for each evaluation backend (CPU, accelerated devices, threads).`,
		Run: runProfileSweep, // Defined in cmd_profile.go
	}

	// --- Analysis ---
	analyzeCmd = &cobra.Command{
		Use:   "analyze [table-file]",
		Short: "Derive speedups and correlation statistics from a sweep table",
		Args:  cobra.ExactArgs(1),
		Run:   runAnalyze, // Defined in cmd_analyze.go
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logDir, "log-dir", "", "Directory for JSON log files (disabled when empty)")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "Emit JSON logs on stderr")
	rootCmd.PersistentFlags().BoolVar(&quiet, "quiet", false, "Suppress stderr logging")

	rootCmd.AddCommand(convolutionCmd)
	convolutionCmd.Flags().IntVarP(&iterations, "iterations", "n", 100, "Timed repetitions per cell")
	convolutionCmd.Flags().IntVarP(&maxThreads, "max-threads", "t", 1, "Maximum thread count for threaded convolvers")
	convolutionCmd.Flags().IntVarP(&maxEffort, "max-effort", "f", 2, "Maximum FFT plan effort level")
	convolutionCmd.Flags().BoolVarP(&measureReuse, "reuse", "r", false, "Also measure FFT plan reuse variants")
	convolutionCmd.Flags().IntSliceVar(&imageSizes, "images", []int{100, 150, 200, 300, 400, 800}, "Image sizes to sweep")
	convolutionCmd.Flags().IntSliceVar(&kernelSizes, "kernels", []int{25, 50, 100, 200}, "Kernel sizes to sweep")
	convolutionCmd.Flags().StringVar(&scenarioPath, "config", "", "Scenario configuration file (YAML), overrides axis flags")
	convolutionCmd.Flags().StringVarP(&outputPath, "output", "o", "", "Write the result table to a file")

	rootCmd.AddCommand(profileCmd)
	profileCmd.Flags().IntVarP(&iterations, "iterations", "n", 100, "Timed repetitions per cell")
	profileCmd.Flags().IntVarP(&maxThreads, "max-threads", "t", 1, "Maximum thread count for threaded evaluation")
	profileCmd.Flags().IntVar(&profileWidth, "width", 200, "Image width")
	profileCmd.Flags().IntVar(&profileHeight, "height", 200, "Image height")
	profileCmd.Flags().StringVar(&nserSpec, "nser", "1,12,10", "Sersic index range (min,max,steps)")
	profileCmd.Flags().StringVar(&angSpec, "ang", "0,45,4", "Position angle range (min,max,steps)")
	profileCmd.Flags().StringVar(&axratSpec, "axrat", "0.1,1,4", "Axis ratio range (min,max,steps)")
	profileCmd.Flags().StringVar(&reSpec, "re", "", "Effective radius range (min,max,steps); default 0,width/2,5")
	profileCmd.Flags().StringVar(&boxSpec, "box", "-0.5,0.5,3", "Boxiness range (min,max,steps)")
	profileCmd.Flags().StringVarP(&outputPath, "output", "o", "", "Write the result table to a file")

	rootCmd.AddCommand(analyzeCmd)
	analyzeCmd.Flags().StringVar(&baselineColumn, "baseline", "BruteOld", "Baseline column for speedup ratios")
	analyzeCmd.Flags().BoolVar(&subtractNoConv, "subtract-noconv", false, "Subtract the NoConv overhead column before analysis")
	analyzeCmd.Flags().IntVar(&numKeyColumns, "key-columns", 2, "Number of leading key columns in the table file")
}
