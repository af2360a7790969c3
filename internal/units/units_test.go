package units

import (
	"math"
	"testing"
)

func TestMetersPerSecondToKnots(t *testing.T) {
	tests := []struct {
		name string
		ms   float64
		want float64
	}{
		{"zero", 0, 0},
		{"one m/s", 1, 1.9},
		{"five m/s", 5, 9.7},
		{"typical sailing speed", 3.1, 6.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MetersPerSecondToKnots(tt.ms); got != tt.want {
				t.Errorf("MetersPerSecondToKnots(%v) = %v, want %v", tt.ms, got, tt.want)
			}
		})
	}
}

func TestRadiansToDegrees(t *testing.T) {
	tests := []struct {
		name string
		rad  float64
		want float64
	}{
		{"zero", 0, 0},
		{"pi", math.Pi, 180.0},
		{"half pi", math.Pi / 2, 90.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RadiansToDegrees(tt.rad); got != tt.want {
				t.Errorf("RadiansToDegrees(%v) = %v, want %v", tt.rad, got, tt.want)
			}
		})
	}
}

func TestKelvinToCelsius(t *testing.T) {
	if got := KelvinToCelsius(273.15); got != 0 {
		t.Errorf("KelvinToCelsius(273.15) = %v, want 0", got)
	}
	if got := KelvinToCelsius(293.15); got != 20.0 {
		t.Errorf("KelvinToCelsius(293.15) = %v, want 20", got)
	}
}

func TestPascalsToHectopascals(t *testing.T) {
	if got := PascalsToHectopascals(101325); got != 1013.3 {
		t.Errorf("PascalsToHectopascals(101325) = %v, want 1013.3", got)
	}
}

func TestRatioToPercent(t *testing.T) {
	if got := RatioToPercent(0.42); got != 42.0 {
		t.Errorf("RatioToPercent(0.42) = %v, want 42", got)
	}
}

func TestDistanceNM_SamePoint(t *testing.T) {
	if got := DistanceNM(48.8566, 2.3522, 48.8566, 2.3522); got != 0 {
		t.Errorf("DistanceNM for identical points = %v, want 0", got)
	}
}

func TestDistanceNM_OneDegreeLatitude(t *testing.T) {
	// One degree of latitude is 60 nautical miles by definition; the spherical
	// approximation lands within half a mile of that.
	got := DistanceNM(0, 0, 1, 0)
	if math.Abs(got-60) > 0.5 {
		t.Errorf("DistanceNM over 1 degree latitude = %v, want ~60", got)
	}
}

func TestDistanceNM_KnownPassage(t *testing.T) {
	// Cherbourg to Portsmouth, roughly 70 nm.
	got := DistanceNM(49.65, -1.62, 50.80, -1.09)
	if got < 65 || got > 80 {
		t.Errorf("DistanceNM Cherbourg-Portsmouth = %v, want 65..80", got)
	}
}

func TestDistanceNM_Symmetric(t *testing.T) {
	a := DistanceNM(59.33, 18.07, 60.17, 24.94)
	b := DistanceNM(60.17, 24.94, 59.33, 18.07)
	if math.Abs(a-b) > 1e-9 {
		t.Errorf("distance not symmetric: %v vs %v", a, b)
	}
}
