// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package sweep implements the benchmark-sweep engine: configuration
// space enumeration, timed trials with per-cell error isolation, and
// fixed-width result tables.
//
// A sweep is one deterministic, serial pass over (image size, kernel
// size) row keys and backend variant columns. "Thread count" and
// "device" are parameters handed to the backend, never concurrency in
// the engine itself. Each sweep owns exactly one Table and one Registry,
// created at its start and read-only once it completes; the analysis
// layer in services/analysis only ever reads them.
package sweep

import "sort"

// ThreadCounts returns the thread-count axis for a requested maximum n:
// the sorted, deduplicated union of the powers of two up to n and n
// itself. Both the power-of-two ladder and the exact requested maximum
// are guaranteed.
//
//	ThreadCounts(12) -> [1 2 4 8 12]
//	ThreadCounts(16) -> [1 2 4 8 16]
//	ThreadCounts(1)  -> [1]
//
// Values below 1 are treated as 1.
func ThreadCounts(n int) []int {
	if n < 1 {
		n = 1
	}

	seen := map[int]bool{n: true}
	counts := []int{n}
	for p := 1; p <= n; p *= 2 {
		if !seen[p] {
			seen[p] = true
			counts = append(counts, p)
		}
	}

	sort.Ints(counts)
	return counts
}

// EffortLevels returns the effort axis 0..max inclusive. Values below
// zero yield the single level 0.
func EffortLevels(max int) []int {
	if max < 0 {
		max = 0
	}
	levels := make([]int, max+1)
	for i := range levels {
		levels[i] = i
	}
	return levels
}

// ReuseFlags returns the plan-reuse axis: {false, true} when reuse
// measurement is enabled, {false} otherwise.
func ReuseFlags(measureReuse bool) []bool {
	if measureReuse {
		return []bool{false, true}
	}
	return []bool{false}
}
