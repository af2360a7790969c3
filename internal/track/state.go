// Package track holds the rolling vessel state and decides when an
// observation is worth materializing into a durable record.
package track

import (
	"math"
	"time"
)

// History depths for trend detection. Speeds keep the three samples seen
// before the current one; courses keep the six most recent including the
// current one.
const (
	speedHistoryDepth  = 3
	courseHistoryDepth = 6
)

// Fix is the last accepted position. ChangedOn marks the last time a
// believable fix was observed; the coordinates only move when a record is
// materialized.
type Fix struct {
	Latitude  float64
	Longitude float64
	ChangedOn time.Time
}

// State is the engine's rolling vessel state. It is created once at startup
// and mutated by every accepted observation; peak fields reset on each flush.
// Not safe for concurrent use: all mutation happens on the agent's event loop.
type State struct {
	fix *Fix

	speed      float64 // knots, last value
	hasSpeed   bool
	maxSpeed   float64   // knots, running max since last flush
	prevSpeeds []float64 // newest first, excludes the current sample

	course  float64   // degrees true
	courses []float64 // newest first, includes the current sample

	status Status

	maxWindSpeed float64 // knots, running max since last flush
	windAngle    float64 // degrees, last value

	metrics   map[string]any
	monitored map[string]struct{}
}

// NewState constructs an empty State. monitored lists additional channel
// paths that must always be captured into the metrics mapping.
func NewState(monitored []string) *State {
	s := &State{metrics: make(map[string]any)}
	s.SetMonitored(monitored)
	return s
}

// SetMonitored replaces the externally supplied channel allow list.
func (s *State) SetMonitored(channels []string) {
	s.monitored = make(map[string]struct{}, len(channels))
	for _, c := range channels {
		s.monitored[c] = struct{}{}
	}
}

// Fix returns the last accepted position fix, or nil before the first one.
func (s *State) Fix() *Fix { return s.fix }

// Speed returns the last observed speed over ground in knots.
func (s *State) Speed() float64 { return s.speed }

// Status returns the current vessel operating mode.
func (s *State) Status() Status { return s.status }

// SetStatus records an externally reported operating mode.
func (s *State) SetStatus(v string) { s.status = Status(v) }

// RecordSpeed stores a new speed-over-ground sample in knots. The previous
// current value shifts into the trend history and the since-flush maximum is
// updated.
func (s *State) RecordSpeed(kt float64) {
	if s.hasSpeed {
		s.prevSpeeds = prepend(s.prevSpeeds, s.speed, speedHistoryDepth)
	}
	s.speed = kt
	s.hasSpeed = true
	if kt > s.maxSpeed {
		s.maxSpeed = kt
	}
}

// RecordCourse stores a new course-over-ground sample in degrees.
func (s *State) RecordCourse(deg float64) {
	s.course = deg
	s.courses = prepend(s.courses, deg, courseHistoryDepth)
}

// RecordWindSpeed folds an apparent wind speed sample in knots into the
// since-flush maximum.
func (s *State) RecordWindSpeed(kt float64) {
	if kt > s.maxWindSpeed {
		s.maxWindSpeed = kt
	}
}

// RecordWindAngle stores the apparent wind angle in degrees.
func (s *State) RecordWindAngle(deg float64) { s.windAngle = deg }

// RecordMetric captures a generic channel observation into the metrics
// mapping, applying the allow/deny rules: state-suffixed paths are always
// kept, monitored channels are kept when valid, excluded categories are
// dropped, and anything else must be a finite number. Returns whether the
// value was captured.
func (s *State) RecordMetric(path string, value any) bool {
	if path == "" {
		return false
	}
	if statePath(path) {
		switch v := value.(type) {
		case string:
			s.metrics[path] = v
			return true
		default:
			if f, ok := finiteNumber(value); ok {
				s.metrics[path] = f
				return true
			}
			return false
		}
	}
	if _, ok := s.monitored[path]; ok {
		if f, ok := finiteNumber(value); ok {
			s.metrics[path] = f
			return true
		}
		return false
	}
	if excludedPath(path) {
		return false
	}
	f, ok := finiteNumber(value)
	if !ok {
		return false
	}
	s.metrics[path] = f
	return true
}

// Sample is the flush output: a snapshot of the accumulator destined for the
// durable buffer.
type Sample struct {
	Time                 time.Time
	Latitude             float64
	Longitude            float64
	MaxSpeedOverGround   float64
	CourseOverGroundTrue float64
	MaxWindSpeedApparent float64
	WindAngleApparent    float64
	Status               string
	Metrics              map[string]any
}

// flush materializes a Sample at the given instant and resets the peak
// fields. Last-value fields carry over since they describe current, not
// cumulative, state. The metrics mapping is copied so the sample stays
// immutable as observations keep arriving.
func (s *State) flush(now time.Time) *Sample {
	metrics := make(map[string]any, len(s.metrics))
	for k, v := range s.metrics {
		metrics[k] = v
	}
	sample := &Sample{
		Time:                 now.UTC().Truncate(time.Millisecond),
		Latitude:             s.fix.Latitude,
		Longitude:            s.fix.Longitude,
		MaxSpeedOverGround:   s.maxSpeed,
		CourseOverGroundTrue: s.course,
		MaxWindSpeedApparent: s.maxWindSpeed,
		WindAngleApparent:    s.windAngle,
		Status:               string(s.status),
		Metrics:              metrics,
	}
	s.maxWindSpeed = 0
	s.maxSpeed = 0
	return sample
}

func prepend(history []float64, v float64, depth int) []float64 {
	history = append([]float64{v}, history...)
	if len(history) > depth {
		history = history[:depth]
	}
	return history
}

func finiteNumber(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int32:
		f = float64(n)
	case int64:
		f = float64(n)
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
