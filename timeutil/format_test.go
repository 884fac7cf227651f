package timeutil

import (
	"math"
	"testing"
)

func TestFormatOffset(t *testing.T) {
	tests := []struct {
		name    string
		seconds int64
		want    string
	}{
		{"zero", 0, "+00:00:00"},
		{"negative hour minute second", -3661, "-01:01:01"},
		{"one hour", 3600, "+01:00:00"},
		{"twenty five hours", 90000, "+25:00:00"},
		{"minus three thousand", -3000, "-00:50:00"},
		{"one second", 1, "+00:00:01"},
		{"minus one second", -1, "-00:00:01"},
		{"past two digit hours", 100 * 3600, "+100:00:00"},
		{"most negative", math.MinInt64, "-2562047788015215:30:08"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatOffset(tt.seconds); got != tt.want {
				t.Errorf("FormatOffset(%d) = %q, want %q", tt.seconds, got, tt.want)
			}
		})
	}
}

func TestFormatDelta(t *testing.T) {
	tests := []struct {
		seconds int64
		want    string
	}{
		{600, "+600"},
		{-60, "-60"},
		{0, "+0"},
	}
	for _, tt := range tests {
		if got := FormatDelta(tt.seconds); got != tt.want {
			t.Errorf("FormatDelta(%d) = %q, want %q", tt.seconds, got, tt.want)
		}
	}
}
