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

	"github.com/AleutianAI/convsweep/pkg/logging"
	"github.com/AleutianAI/convsweep/pkg/ux"
)

// logger is the process-wide logger, configured from the persistent
// flags before any subcommand runs.
var logger *logging.Logger

func main() {
	defer func() {
		if logger != nil {
			_ = logger.Close()
		}
	}()

	if err := rootCmd.Execute(); err != nil {
		ux.Error("%v", err)
		os.Exit(1)
	}
}
