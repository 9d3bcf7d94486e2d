// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package sweep

import (
	"fmt"
	"sync"
)

// Registry assigns stable ids to captured computation failures.
//
// Ids start at 0, increase monotonically in first-occurrence order, and
// are never reassigned, so given the sweep's deterministic iteration
// order the placeholder ids in a table are reproducible. Every
// placeholder appearing in a table has a corresponding registry entry.
//
// A registry is owned by exactly one sweep invocation and is read-only
// once the sweep completes.
type Registry struct {
	mu      sync.Mutex
	entries []error
}

// RegistryEntry is one recorded failure.
type RegistryEntry struct {
	ID  int
	Err error
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Record appends a failure and returns its id.
func (r *Registry) Record(err error) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := len(r.entries)
	r.entries = append(r.entries, err)
	return id
}

// Placeholder renders the fixed-format sentinel token for an id, e.g.
// "[E3]". Column alignment is the table encoder's concern: the token
// is right-justified to the column width like any numeric value.
func (r *Registry) Placeholder(id int) string {
	return placeholderToken(id)
}

// placeholderToken is the single formatter for the wire-format error
// sentinel. The registry and the table encoder both render through it.
func placeholderToken(id int) string {
	return fmt.Sprintf("[E%d]", id)
}

// Len returns the number of recorded failures.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Dump returns all recorded failures in id order, for the trailing
// console summary. The summary is printed to the console only, never
// persisted into table files.
func (r *Registry) Dump() []RegistryEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	entries := make([]RegistryEntry, len(r.entries))
	for i, err := range r.entries {
		entries[i] = RegistryEntry{ID: i, Err: err}
	}
	return entries
}
