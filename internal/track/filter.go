package track

import (
	"fmt"
	"time"

	"github.com/saildata/trackd/internal/units"
)

// Plausibility bounds: a jump of 5 nm within 2 minutes implies roughly
// 150 kt, which is a GPS glitch or receiver reset, not vessel motion.
const (
	maxJumpNM          = 5.0
	plausibilityWindow = 2 * time.Minute
)

// ImplausiblePositionError reports a rejected position fix.
type ImplausiblePositionError struct {
	DistanceNM float64
	Elapsed    time.Duration
}

func (e *ImplausiblePositionError) Error() string {
	return fmt.Sprintf("erroneous position reading: moved %.2f nm in %.0f seconds",
		e.DistanceNM, e.Elapsed.Seconds())
}

// Filter rejects position fixes that imply impossible vessel speed, and
// optionally restricts fixes to a single GPS source.
type Filter struct {
	// GPSSource, when non-empty, names the only source whose fixes are
	// accepted. Fixes from other sources are skipped silently.
	GPSSource string
}

// FromConfiguredSource reports whether a fix from the given source should be
// considered at all.
func (f *Filter) FromConfiguredSource(source string) bool {
	return f.GPSSource == "" || source == f.GPSSource
}

// Check validates a new fix against the previously accepted one and returns
// the great-circle distance between them in nautical miles. A nil prev always
// passes with zero distance. The elapsed time is measured from prev.ChangedOn,
// the last instant a believable fix was seen.
func (f *Filter) Check(prev *Fix, lat, lon float64, now time.Time) (float64, error) {
	if prev == nil {
		return 0, nil
	}
	distance := units.DistanceNM(prev.Latitude, prev.Longitude, lat, lon)
	elapsed := now.Sub(prev.ChangedOn)
	if elapsed <= plausibilityWindow && distance >= maxJumpNM {
		return distance, &ImplausiblePositionError{DistanceNM: distance, Elapsed: elapsed}
	}
	return distance, nil
}
