// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package validation

import (
	"errors"
	"math"
	"testing"
)

func TestParseRange(t *testing.T) {
	tests := []struct {
		name    string
		spec    string
		want    Range
		wantErr bool
	}{
		{"angles", "0,45,4", Range{0, 45, 4}, false},
		{"axis ratios", "0.1,1,4", Range{0.1, 1, 4}, false},
		{"negative min", "-0.5,0.5,3", Range{-0.5, 0.5, 3}, false},
		{"spaces tolerated", " 1 , 12 , 10 ", Range{1, 12, 10}, false},

		{"empty", "", Range{}, true},
		{"two fields", "0,45", Range{}, true},
		{"four fields", "0,45,4,1", Range{}, true},
		{"non-numeric min", "x,45,4", Range{}, true},
		{"non-numeric max", "0,y,4", Range{}, true},
		{"fractional steps", "0,45,4.5", Range{}, true},
		{"zero steps", "0,45,0", Range{}, true},
		{"one step", "0,45,1", Range{}, true},
		{"negative steps", "0,45,-3", Range{}, true},
		{"max equals min", "5,5,3", Range{}, true},
		{"max below min", "45,0,4", Range{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseRange(tt.spec)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseRange(%q) expected error, got %+v", tt.spec, got)
				}
				if !errors.Is(err, ErrMalformedRange) {
					t.Errorf("error %v does not wrap ErrMalformedRange", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseRange(%q) error: %v", tt.spec, err)
			}
			if got != tt.want {
				t.Errorf("ParseRange(%q) = %+v, want %+v", tt.spec, got, tt.want)
			}
		})
	}
}

func TestRangeValues(t *testing.T) {
	r := Range{Min: 0, Max: 45, Steps: 4}
	got := r.Values()
	want := []float64{0, 15, 30, 45}
	if len(got) != len(want) {
		t.Fatalf("Values() = %v, want %v", got, want)
	}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-9 {
			t.Errorf("Values()[%d] = %g, want %g", i, got[i], want[i])
		}
	}
}

func TestRangeValuesExactEndpoint(t *testing.T) {
	// 1..12 in 10 samples has a non-representable step; the endpoint
	// must still be exactly 12.
	r := Range{Min: 1, Max: 12, Steps: 10}
	got := r.Values()
	if len(got) != 10 {
		t.Fatalf("len(Values()) = %d, want 10", len(got))
	}
	if got[0] != 1 {
		t.Errorf("first value = %g, want exactly 1", got[0])
	}
	if got[9] != 12 {
		t.Errorf("last value = %g, want exactly 12", got[9])
	}
}
