package track

import "strings"

// Path categories that never belong in the metrics mapping: celestial and
// forecast data, derived great-circle courses, and static design attributes.
var excludedPrefixes = []string{
	"environment.moon.",
	"environment.sunlight.",
	"navigation.courseGreatCircle.",
	"design.",
}

func excludedPath(path string) bool {
	for _, prefix := range excludedPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// statePath reports whether a path names a device state channel (autopilot
// state, propulsion state, ...). These are captured even when the value is
// not numeric.
func statePath(path string) bool {
	return strings.HasSuffix(path, ".state")
}
