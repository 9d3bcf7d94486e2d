// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package backend

import "testing"

func TestDeviceInfoString(t *testing.T) {
	tests := []struct {
		name string
		d    DeviceInfo
		want string
	}{
		{
			"float only",
			DeviceInfo{PlatformIndex: 0, DeviceIndex: 1, PlatformName: "Portable CL", DeviceName: "pthread-cpu"},
			"[01] Portable CL / pthread-cpu. Double: No",
		},
		{
			"double capable",
			DeviceInfo{PlatformIndex: 1, DeviceIndex: 0, PlatformName: "VendorX", DeviceName: "GPU-A", SupportsDouble: true},
			"[10] VendorX / GPU-A. Double: Yes",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.d.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestKindString(t *testing.T) {
	tests := []struct {
		k    Kind
		want string
	}{
		{KindNone, "none"},
		{KindBruteOld, "brute-old"},
		{KindBrute, "brute"},
		{KindTransform, "transform"},
		{KindDevice, "device"},
		{KindDeviceLocal, "device-local"},
		{Kind(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.k.String(); got != tt.want {
			t.Errorf("Kind(%d).String() = %q, want %q", int(tt.k), got, tt.want)
		}
	}
}
