// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package sweep

import (
	"errors"
	"fmt"
	"testing"
)

func TestRegistryIDsAreGapFree(t *testing.T) {
	r := NewRegistry()

	for i := 0; i < 5; i++ {
		id := r.Record(fmt.Errorf("failure %d", i))
		if id != i {
			t.Errorf("Record #%d returned id %d", i, id)
		}
	}
	if r.Len() != 5 {
		t.Errorf("Len() = %d, want 5", r.Len())
	}
}

func TestRegistryPlaceholder(t *testing.T) {
	r := NewRegistry()
	tests := []struct {
		id   int
		want string
	}{
		{0, "[E0]"},
		{3, "[E3]"},
		{12, "[E12]"},
	}
	for _, tt := range tests {
		if got := r.Placeholder(tt.id); got != tt.want {
			t.Errorf("Placeholder(%d) = %q, want %q", tt.id, got, tt.want)
		}
	}
}

func TestRegistryDumpOrder(t *testing.T) {
	r := NewRegistry()
	first := errors.New("first")
	second := errors.New("second")
	r.Record(first)
	r.Record(second)

	entries := r.Dump()
	if len(entries) != 2 {
		t.Fatalf("Dump() returned %d entries", len(entries))
	}
	if entries[0].ID != 0 || !errors.Is(entries[0].Err, first) {
		t.Errorf("entry 0 = %+v", entries[0])
	}
	if entries[1].ID != 1 || !errors.Is(entries[1].Err, second) {
		t.Errorf("entry 1 = %+v", entries[1])
	}
}
