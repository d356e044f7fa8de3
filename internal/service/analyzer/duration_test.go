package analyzer

import (
	"errors"
	"math"
	"testing"
)

func TestParseDurationMinutes(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want float64
	}{
		{"minutes and seconds", "0 days 00:13:14", 13 + 14.0/60},
		{"hours", "0 days 01:02:30", 62.5},
		{"day count ignored", "3 days 00:04:59", 4 + 59.0/60},
		{"clock only", "00:05:00", 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDurationMinutes(tt.in)
			if err != nil {
				t.Fatalf("ParseDurationMinutes(%q) error: %v", tt.in, err)
			}
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("ParseDurationMinutes(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseDurationMinutesMalformed(t *testing.T) {
	for _, in := range []string{"", "0 days", "0 days 00:13", "0 days aa:bb:cc", "0 days 00:13:14:01"} {
		_, err := ParseDurationMinutes(in)
		var malformed *MalformedDurationError
		if !errors.As(err, &malformed) {
			t.Errorf("ParseDurationMinutes(%q) error = %v, want MalformedDurationError", in, err)
			continue
		}
		if malformed.Value != in {
			t.Errorf("MalformedDurationError.Value = %q, want %q", malformed.Value, in)
		}
	}
}
