package track

import (
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/saildata/trackd/internal/timeutil"
)

// Config holds the sampling policy thresholds.
type Config struct {
	// MaxInterval is the heartbeat ceiling: a record is always written once
	// this much time has passed since the last one.
	MaxInterval time.Duration
	// MovingInterval is the tighter cadence used while the vessel moves.
	MovingInterval time.Duration
	// MinDistanceNM flushes once the vessel has moved this far from the last
	// materialized position.
	MinDistanceNM float64
	// SpeedThresholdKnots separates moving from idle, and anchors the 1x/2x/3x
	// speed-crossing triggers.
	SpeedThresholdKnots float64
	// TurnThresholdDegrees flushes when the course changes by more than this
	// across the course history.
	TurnThresholdDegrees float64
	// DecisionInterval rate-limits trigger evaluation: no two records are ever
	// materialized closer together than this.
	DecisionInterval time.Duration
}

// DefaultConfig returns the production sampling thresholds.
func DefaultConfig() Config {
	return Config{
		MaxInterval:          5 * time.Minute,
		MovingInterval:       1 * time.Minute,
		MinDistanceNM:        0.5,
		SpeedThresholdKnots:  1,
		TurnThresholdDegrees: 25,
		DecisionInterval:     60 * time.Second,
	}
}

// Engine evaluates every accepted position observation against the sampling
// triggers and materializes a Sample when one fires.
type Engine struct {
	cfg    Config
	filter *Filter
	state  *State
	clock  timeutil.Clock
	log    zerolog.Logger

	lastFlush time.Time
}

// NewEngine constructs an Engine. The decision clock starts at construction
// time, so the first record cannot appear sooner than one decision interval
// after startup.
func NewEngine(cfg Config, filter *Filter, state *State, clock timeutil.Clock, logger zerolog.Logger) *Engine {
	return &Engine{
		cfg:       cfg,
		filter:    filter,
		state:     state,
		clock:     clock,
		log:       logger.With().Str("component", "engine").Logger(),
		lastFlush: clock.Now(),
	}
}

// State returns the engine's vessel state.
func (e *Engine) State() *State { return e.state }

// HandlePosition runs a new position fix through the plausibility filter and
// the sampling triggers. It returns a Sample when a trigger fires, nil when
// the observation is absorbed into rolling state, and an error when the fix
// is rejected as implausible. Fixes from a non-configured GPS source are
// dropped silently.
func (e *Engine) HandlePosition(lat, lon float64, source string) (*Sample, error) {
	if !e.filter.FromConfiguredSource(source) {
		e.log.Debug().Str("source", source).Msg("skipping position from unconfigured GPS source")
		return nil, nil
	}

	now := e.clock.Now()
	prev := e.state.fix
	if prev == nil {
		// First believable fix becomes the baseline without writing a record.
		e.state.fix = &Fix{Latitude: lat, Longitude: lon, ChangedOn: now}
		return nil, nil
	}

	distance, err := e.filter.Check(prev, lat, lon, now)
	if err != nil {
		return nil, err
	}

	// The fix is believable: stamp it even if no record gets written.
	prev.ChangedOn = now

	timePassed := now.Sub(e.lastFlush)
	if timePassed < e.cfg.DecisionInterval {
		return nil, nil
	}

	reason, force, fired := e.evaluate(timePassed, distance)
	if !fired {
		return nil, nil
	}
	if force {
		e.state.status = e.state.status.Promote()
	}

	e.state.fix = &Fix{Latitude: lat, Longitude: lon, ChangedOn: now}
	sample := e.state.flush(now)
	e.lastFlush = now

	e.log.Debug().
		Str("reason", reason).
		Float64("distance_nm", distance).
		Dur("time_passed", timePassed).
		Msg("materializing record")
	return sample, nil
}

// evaluate runs the triggers in priority order and stops at the first that
// fires. force marks the triggers that promote the vessel status.
func (e *Engine) evaluate(timePassed time.Duration, distance float64) (reason string, force, fired bool) {
	switch {
	case timePassed >= e.cfg.MaxInterval:
		return "max interval elapsed", false, true
	case e.state.speed >= e.cfg.SpeedThresholdKnots && timePassed >= e.cfg.MovingInterval:
		return "moving interval elapsed", true, true
	case distance >= e.cfg.MinDistanceNM:
		return "minimum distance moved", true, true
	case e.state.speed >= e.cfg.SpeedThresholdKnots && e.significantTurn():
		return "significant course change", true, true
	case e.speedCrossing(e.cfg.SpeedThresholdKnots) ||
		e.speedCrossing(2*e.cfg.SpeedThresholdKnots) ||
		e.speedCrossing(3*e.cfg.SpeedThresholdKnots):
		return "speed threshold crossed", false, true
	default:
		return "", false, false
	}
}

// significantTurn reports whether the course changed by more than the turn
// threshold between the oldest and newest of the last six course samples.
// Never fires before six samples have accumulated.
func (e *Engine) significantTurn() bool {
	courses := e.state.courses
	if len(courses) < courseHistoryDepth {
		return false
	}
	return math.Abs(courses[courseHistoryDepth-1]-courses[0]) > e.cfg.TurnThresholdDegrees
}

// speedCrossing reports whether the current speed crossed the threshold
// relative to the three samples before it: all three uniformly on the other
// side. The boundary is asymmetric on purpose (<= on the slow side, > on the
// fast side) to act as hysteresis.
func (e *Engine) speedCrossing(threshold float64) bool {
	if !e.state.hasSpeed || len(e.state.prevSpeeds) < speedHistoryDepth {
		return false
	}
	slowed := e.state.speed <= threshold
	sped := e.state.speed > threshold
	for _, prev := range e.state.prevSpeeds {
		if prev <= threshold {
			slowed = false
		}
		if prev > threshold {
			sped = false
		}
	}
	return slowed || sped
}
