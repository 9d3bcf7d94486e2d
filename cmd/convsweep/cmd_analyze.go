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
	"errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/convsweep/pkg/ux"
	"github.com/AleutianAI/convsweep/services/analysis"
	"github.com/AleutianAI/convsweep/services/sweep"
)

func runAnalyze(cmd *cobra.Command, args []string) {
	// 1. Load the persisted table.
	path := args[0]
	f, err := os.Open(path)
	if err != nil {
		logger.Error("Failed to open table", "path", path, "error", err)
		ux.Error("%v", err)
		os.Exit(1)
	}
	table, err := sweep.ParseTable(f, numKeyColumns)
	f.Close()
	if err != nil {
		logger.Error("Failed to parse table", "path", path, "error", err)
		ux.Error("%v", err)
		os.Exit(1)
	}
	ux.Info("Loaded %s: %d rows, %d columns", path, table.NumRows(), len(table.Columns))

	// 2. Optionally remove the measurement overhead from every cell.
	if subtractNoConv {
		table, err = analysis.SubtractColumn(table, sweep.LabelNoConv)
		if err != nil {
			logger.Error("NoConv subtraction failed", "error", err)
			ux.Error("%v", err)
			os.Exit(1)
		}
	}

	// 3. Speedup of every other column over the baseline, averaged
	// per variant.
	if err := printSpeedups(table); err != nil {
		logger.Error("Speedup analysis failed", "error", err)
		ux.Error("%v", err)
		os.Exit(1)
	}

	// 4. Transform-column derivations: thread regrouping and
	// plan-reuse correlation.
	if err := printTransformAnalysis(table); err != nil {
		logger.Error("Transform analysis failed", "error", err)
		ux.Error("%v", err)
		os.Exit(1)
	}
}

// printSpeedups prints mean speedup of every column over the baseline,
// one panel per value of the last key column (kernel size for
// convolution tables).
func printSpeedups(table *sweep.Table) error {
	targets := make([]string, 0, len(table.Columns))
	for _, label := range table.Columns {
		if label != baselineColumn {
			targets = append(targets, label)
		}
	}
	if len(targets) == 0 {
		ux.Muted("No columns to compare against %s", baselineColumn)
		return nil
	}

	speedups, err := analysis.Speedup(table, baselineColumn, targets)
	if err != nil {
		return err
	}

	panelLevel := table.KeyColumns[len(table.KeyColumns)-1]
	panels, err := speedups.GroupBy(panelLevel)
	if err != nil {
		return err
	}

	ux.Title("Mean speedup vs %s", baselineColumn)
	for _, panel := range panels {
		ux.Info("%s = %s", panelLevel, panel.Value)
		groups, err := panel.Table.GroupBy("Label")
		if err != nil {
			return err
		}
		means, err := analysis.AggregateMean(groups)
		if err != nil {
			return err
		}
		for i, g := range groups {
			ux.Info("  %-14s %8.3fx", g.Value, means[i])
		}
	}
	return nil
}

// printTransformAnalysis decomposes the transform columns into
// (effort, threads, reuse) levels, prints the mean time per thread
// count, then pairs reuse-off with reuse-on cells at matching tuples
// and fits reuse-on time as a linear function of reuse-off time.
func printTransformAnalysis(table *sweep.Table) error {
	indexed, err := analysis.FromResultTable(table)
	if err != nil {
		return err
	}

	expanded, err := indexed.Expand("Label", []string{"Effort", "Threads", "Reuse"}, analysis.TransformKey)
	if err != nil {
		return err
	}
	if expanded.Len() == 0 {
		ux.Muted("No transform columns, skipping transform analysis")
		return nil
	}

	byThreads, err := expanded.GroupBy("Threads")
	if err != nil {
		return err
	}
	threadMeans, err := analysis.AggregateMean(byThreads)
	if err != nil {
		return err
	}
	ux.Title("Mean transform time by thread count")
	for i, g := range byThreads {
		ux.Info("  threads=%-4s %10.4fs", g.Value, threadMeans[i])
	}

	pairs, err := expanded.Pairs("Reuse", "N", "Y")
	if err != nil {
		return err
	}

	r, slope, err := analysis.Correlation(pairs.X, pairs.Y)
	switch {
	case errors.Is(err, analysis.ErrEmptySeries):
		ux.Muted("No complete reuse pairs, skipping reuse correlation")
		return nil
	case err != nil:
		return err
	}

	ux.Title("Plan reuse vs one-shot transform")
	ux.Info("pairs = %d", len(pairs.X))
	ux.Info("r = %.3f", r)
	ux.Info("y = %.3fx", slope)
	return nil
}
