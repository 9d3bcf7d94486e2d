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

	"github.com/AleutianAI/convsweep/pkg/ux"
	"github.com/AleutianAI/convsweep/services/sweep"
	"github.com/AleutianAI/convsweep/services/sweep/backend"
)

// consoleProgress streams sweep output to stdout as it happens. Build
// notices use a transient status line so they never interleave with
// the table rows.
type consoleProgress struct {
	status *ux.StatusLine
}

var _ sweep.Progress = (*consoleProgress)(nil)

func newConsoleProgress() *consoleProgress {
	return &consoleProgress{status: ux.NewStatusLine()}
}

func (p *consoleProgress) Devices(inventory []backend.DeviceInfo) {
	for _, d := range inventory {
		ux.Info("%s", d.String())
	}
}

func (p *consoleProgress) Header(line string) {
	fmt.Println(line)
}

func (p *consoleProgress) Building(description string) {
	p.status.Set("building %s", description)
}

func (p *consoleProgress) BuiltAll() {
	p.status.Clear()
}

func (p *consoleProgress) Row(line string) {
	fmt.Println(line)
}

// dumpRegistry prints the accumulated failure texts after the table,
// one line per placeholder id. Console only, never persisted.
func dumpRegistry(r *sweep.Registry) {
	for _, entry := range r.Dump() {
		ux.Warning("E%d: %v", entry.ID, entry.Err)
	}
}
