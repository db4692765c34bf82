package weather

import "testing"

func TestWMOCodeLookup(t *testing.T) {
	tests := []struct {
		code     int
		wantDesc string
		wantIcon string
	}{
		{0, "Clear sky", "☀️"},
		{2, "Partly cloudy", "⛅"},
		{55, "Dense drizzle", "🌧️"},
		{95, "Thunderstorm", "⛈️"},
	}
	for _, tt := range tests {
		info := WMOCodes.Lookup(tt.code)
		if info.Description != tt.wantDesc || info.Icon != tt.wantIcon {
			t.Errorf("Lookup(%d) = (%q, %q), want (%q, %q)",
				tt.code, info.Description, info.Icon, tt.wantDesc, tt.wantIcon)
		}
	}
}

func TestCodeLookupUnmappedReturnsSentinel(t *testing.T) {
	for _, code := range []int{999, -1, 42} {
		info := WMOCodes.Lookup(code)
		if info.Description != "Unknown" || info.Icon != "❓" {
			t.Errorf("Lookup(%d) = (%q, %q), want sentinel", code, info.Description, info.Icon)
		}
	}
}

func TestTomorrowCodeLookup(t *testing.T) {
	info := TomorrowCodes.Lookup(1000)
	if info.Description != "Clear" || info.Icon != "☀️" {
		t.Errorf("Lookup(1000) = (%q, %q), want (Clear, ☀️)", info.Description, info.Icon)
	}

	// Tomorrow codes live in their own space; a WMO code must not resolve.
	if info := TomorrowCodes.Lookup(0); info.Description != "Unknown" {
		t.Errorf("Lookup(0) on the Tomorrow table = %q, want sentinel", info.Description)
	}
}
