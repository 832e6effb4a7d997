package units

import (
	"math"
	"testing"
)

func TestIsValid(t *testing.T) {
	for _, unit := range ValidUnits {
		if !IsValid(unit) {
			t.Errorf("IsValid(%q) = false, want true", unit)
		}
	}
	for _, unit := range []string{"", "knots", "MPH", "m/s"} {
		if IsValid(unit) {
			t.Errorf("IsValid(%q) = true, want false", unit)
		}
	}
}

func TestConvertSpeed(t *testing.T) {
	tests := []struct {
		name  string
		speed float64
		units string
		want  float64
	}{
		{"mps passthrough", 10, MPS, 10},
		{"mph", 10, MPH, 22.369362920544},
		{"kmph", 10, KMPH, 36},
		{"kph alias", 10, KPH, 36},
		{"unknown falls back to mps", 10, "knots", 10},
		{"zero", 0, MPH, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ConvertSpeed(tt.speed, tt.units)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("ConvertSpeed(%v, %q) = %v, want %v", tt.speed, tt.units, got, tt.want)
			}
		})
	}
}
