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
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/convsweep/pkg/ux"
	"github.com/AleutianAI/convsweep/pkg/validation"
	"github.com/AleutianAI/convsweep/services/sweep"
	"github.com/AleutianAI/convsweep/services/sweep/backend"
)

func runProfileSweep(cmd *cobra.Command, _ []string) {
	ctx := context.Background()

	// 1. Parse every axis spec before anything runs. A malformed spec
	// must fail here, not after minutes of measurement. The re default
	// scales with the image: half the width.
	if reSpec == "" {
		reSpec = defaultReSpec(profileWidth)
	}
	axes := map[string]string{
		"nser": nserSpec, "ang": angSpec, "axrat": axratSpec,
		"re": reSpec, "box": boxSpec,
	}
	values := make(map[string][]float64, len(axes))
	for name, spec := range axes {
		r, err := validation.ParseRange(spec)
		if err != nil {
			logger.Error("Bad axis specification", "axis", name, "spec", spec, "error", err)
			ux.Error("--%s %q: %v", name, spec, err)
			os.Exit(1)
		}
		values[name] = r.Values()
	}

	opts := sweep.DefaultProfileOptions()
	opts.Width = profileWidth
	opts.Height = profileHeight
	opts.Iterations = iterations
	opts.MaxThreads = maxThreads
	opts.Nsers = values["nser"]
	opts.Angs = values["ang"]
	opts.AxRats = values["axrat"]
	opts.Res = values["re"]
	opts.Boxes = values["box"]
	opts.Logger = logger.Slog()
	opts.Progress = newConsoleProgress()

	// 2. Run the sweep; the progress sink prints the device banner
	// from the sweep's own enumeration.
	be := backend.NewReference()
	result, err := sweep.RunProfile(ctx, be, opts)
	if err != nil {
		logger.Error("Profile sweep failed", "error", err)
		ux.Error("%v", err)
		os.Exit(1)
	}

	dumpRegistry(result.Registry)

	if outputPath != "" {
		if err := writeTableFile(outputPath, result.Table, sweep.ProfileMinWidth); err != nil {
			logger.Error("Failed to write table", "path", outputPath, "error", err)
			ux.Error("%v", err)
			os.Exit(1)
		}
		ux.Success("Wrote %s", outputPath)
	}
}

// defaultReSpec is the effective-radius axis used when --re is not
// given: 0 to half the image width in 5 steps.
func defaultReSpec(width int) string {
	return fmt.Sprintf("0,%g,5", float64(width)/2)
}
