// Package feed defines the inbound stream of vessel sensor observations.
//
// The host delivers discrete update events, each carrying one or more
// (path, value) observations tagged with a source identifier and timestamp.
// The agent consumes only the first observation of each event, dispatching on
// its path name.
package feed

import (
	"encoding/json"
	"fmt"
	"time"
)

// Recognized observation paths. Anything else falls through to the generic
// metrics rules in the track package.
const (
	PathPosition             = "navigation.position"
	PathSpeedOverGround      = "navigation.speedOverGround"
	PathCourseOverGroundTrue = "navigation.courseOverGroundTrue"
	PathWindSpeedApparent    = "environment.wind.speedApparent"
	PathWindAngleApparent    = "environment.wind.angleApparent"
	PathState                = "navigation.state"
	PathAltitude             = "navigation.altitude"
)

// Position is the value carried on the navigation.position path.
type Position struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Observation is a single path/value pair within an update.
type Observation struct {
	Path  string `json:"path"`
	Value any    `json:"value"`
}

// Update is one discrete event from the host feed.
type Update struct {
	Source    string        `json:"source"`
	Timestamp time.Time     `json:"timestamp"`
	Values    []Observation `json:"values"`
}

// First returns the update's first observation, or false when the event
// carries none.
func (u Update) First() (Observation, bool) {
	if len(u.Values) == 0 {
		return Observation{}, false
	}
	return u.Values[0], true
}

// PositionValue decodes an observation value as a Position. The feed decodes
// JSON into generic maps, so both the typed and the map form are accepted.
func PositionValue(v any) (Position, error) {
	switch val := v.(type) {
	case Position:
		return val, nil
	case map[string]any:
		lat, latOK := numeric(val["latitude"])
		lon, lonOK := numeric(val["longitude"])
		if !latOK || !lonOK {
			return Position{}, fmt.Errorf("position value missing latitude/longitude: %v", v)
		}
		return Position{Latitude: lat, Longitude: lon}, nil
	default:
		return Position{}, fmt.Errorf("unexpected position value type %T", v)
	}
}

// NumericValue decodes an observation value as a float64.
func NumericValue(v any) (float64, error) {
	f, ok := numeric(v)
	if !ok {
		return 0, fmt.Errorf("value %v (%T) is not numeric", v, v)
	}
	return f, nil
}

func numeric(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
