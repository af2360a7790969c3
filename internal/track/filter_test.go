package track

import (
	"testing"
	"time"
)

func TestFilterFromConfiguredSource(t *testing.T) {
	f := &Filter{}
	if !f.FromConfiguredSource("anything") {
		t.Error("unset source filter should accept any source")
	}

	f = &Filter{GPSSource: "gps.primary"}
	if !f.FromConfiguredSource("gps.primary") {
		t.Error("configured source should be accepted")
	}
	if f.FromConfiguredSource("gps.backup") {
		t.Error("other sources should be rejected when a filter is set")
	}
}

func TestFilterCheckNoPreviousFix(t *testing.T) {
	f := &Filter{}
	dist, err := f.Check(nil, 59.3, 18.1, time.Now())
	if err != nil {
		t.Fatalf("Check with nil prev returned error: %v", err)
	}
	if dist != 0 {
		t.Errorf("distance = %v, want 0", dist)
	}
}

func TestFilterCheckImplausibleJump(t *testing.T) {
	f := &Filter{}
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		elapsed time.Duration
		lat     float64 // from 10.0; 0.1 degree latitude is about 6 nm
		wantErr bool
	}{
		{"big jump inside window", 60 * time.Second, 10.1, true},
		{"big jump at window boundary", 2 * time.Minute, 10.1, true},
		{"big jump after window", 3 * time.Minute, 10.1, false},
		{"small move inside window", 30 * time.Second, 10.01, false},
		{"no move", time.Second, 10.0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prev := &Fix{Latitude: 10.0, Longitude: 10.0, ChangedOn: now.Add(-tt.elapsed)}
			_, err := f.Check(prev, tt.lat, 10.0, now)
			if tt.wantErr && err == nil {
				t.Error("expected rejection, got acceptance")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("expected acceptance, got %v", err)
			}
		})
	}
}

func TestImplausiblePositionErrorMessage(t *testing.T) {
	err := &ImplausiblePositionError{DistanceNM: 6.21, Elapsed: 45 * time.Second}
	want := "erroneous position reading: moved 6.21 nm in 45 seconds"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}
