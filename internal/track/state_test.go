package track

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordSpeedHistoryExcludesCurrent(t *testing.T) {
	s := NewState(nil)
	s.RecordSpeed(1)
	assert.Empty(t, s.prevSpeeds, "first sample has no history")

	s.RecordSpeed(2)
	s.RecordSpeed(3)
	s.RecordSpeed(4)
	s.RecordSpeed(5)

	assert.Equal(t, 5.0, s.speed)
	assert.Equal(t, []float64{4, 3, 2}, s.prevSpeeds, "history holds the three samples before the current one, newest first")
}

func TestRecordSpeedTracksMaximum(t *testing.T) {
	s := NewState(nil)
	s.RecordSpeed(3)
	s.RecordSpeed(7.5)
	s.RecordSpeed(2)
	assert.Equal(t, 2.0, s.speed)
	assert.Equal(t, 7.5, s.maxSpeed)
}

func TestRecordCourseHistoryIncludesCurrent(t *testing.T) {
	s := NewState(nil)
	for _, c := range []float64{10, 12, 15, 20, 30, 40, 50} {
		s.RecordCourse(c)
	}
	assert.Equal(t, []float64{50, 40, 30, 20, 15, 12}, s.courses)
	assert.Equal(t, 50.0, s.course)
}

func TestRecordWindSpeedPeak(t *testing.T) {
	s := NewState(nil)
	s.RecordWindSpeed(10)
	s.RecordWindSpeed(18)
	s.RecordWindSpeed(12)
	assert.Equal(t, 18.0, s.maxWindSpeed)
}

func TestRecordMetricRules(t *testing.T) {
	s := NewState([]string{"electrical.batteries.0.voltage"})

	tests := []struct {
		name  string
		path  string
		value any
		want  bool
	}{
		{"plain numeric path", "environment.depth.belowTransducer", 4.2, true},
		{"integer value", "navigation.altitude", 3, true},
		{"excluded celestial", "environment.moon.phase", 0.5, false},
		{"excluded forecast", "environment.sunlight.times.sunrise", 1.0, false},
		{"excluded derived course", "navigation.courseGreatCircle.nextPoint.distance", 12.0, false},
		{"excluded design", "design.draft", 1.9, false},
		{"string on generic path", "communication.callsignVhf", "ZL1111", false},
		{"NaN", "environment.depth.belowKeel", math.NaN(), false},
		{"infinite", "environment.depth.belowKeel", math.Inf(1), false},
		{"empty path", "", 1.0, false},
		{"state path with string", "steering.autopilot.state", "auto", true},
		{"state path with number", "propulsion.main.state", 1, true},
		{"monitored channel", "electrical.batteries.0.voltage", 12.8, true},
		{"monitored channel bad value", "electrical.batteries.0.voltage", "full", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.RecordMetric(tt.path, tt.value)
			assert.Equal(t, tt.want, got)
		})
	}

	assert.Equal(t, "auto", s.metrics["steering.autopilot.state"])
	assert.Equal(t, 12.8, s.metrics["electrical.batteries.0.voltage"])
	_, present := s.metrics["environment.moon.phase"]
	assert.False(t, present)
}

func TestFlushResetsPeaksKeepsLastValues(t *testing.T) {
	s := NewState(nil)
	s.fix = &Fix{Latitude: 59.3, Longitude: 18.1}
	s.RecordSpeed(6)
	s.RecordSpeed(4)
	s.RecordCourse(180)
	s.RecordWindSpeed(22)
	s.RecordWindAngle(-35)
	s.SetStatus("motoring")
	s.RecordMetric("environment.water.temperature", 14.5)

	now := time.Date(2026, 3, 1, 12, 0, 0, 123456789, time.UTC)
	sample := s.flush(now)
	require.NotNil(t, sample)

	assert.Equal(t, now.Truncate(time.Millisecond), sample.Time)
	assert.Equal(t, 59.3, sample.Latitude)
	assert.Equal(t, 6.0, sample.MaxSpeedOverGround, "persisted speed is the since-flush maximum")
	assert.Equal(t, 180.0, sample.CourseOverGroundTrue)
	assert.Equal(t, 22.0, sample.MaxWindSpeedApparent)
	assert.Equal(t, -35.0, sample.WindAngleApparent)
	assert.Equal(t, "motoring", sample.Status)
	assert.Equal(t, 14.5, sample.Metrics["environment.water.temperature"])

	// Peaks reset, last values retained.
	assert.Zero(t, s.maxSpeed)
	assert.Zero(t, s.maxWindSpeed)
	assert.Equal(t, 4.0, s.speed)
	assert.Equal(t, -35.0, s.windAngle)
	assert.Contains(t, s.metrics, "environment.water.temperature")

	// The sample's metrics are a snapshot, not a live view.
	s.RecordMetric("environment.water.temperature", 15.0)
	assert.Equal(t, 14.5, sample.Metrics["environment.water.temperature"])
}

func TestStatusPromote(t *testing.T) {
	assert.Equal(t, StatusSailing, StatusUnknown.Promote())
	assert.Equal(t, StatusSailing, StatusSailing.Promote())
	assert.Equal(t, StatusSailing, Status("anchored").Promote())
	assert.Equal(t, StatusMotoring, StatusMotoring.Promote())
}
