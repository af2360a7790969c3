package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/saildata/trackd/internal/buffer"
	"github.com/saildata/trackd/internal/metrics"
	"github.com/saildata/trackd/internal/timeutil"
)

// statusInterval is the cadence of the periodic queue status report.
const statusInterval = 31 * time.Second

// StatusReporter periodically logs the queue depth and the age of the last
// successful server contact, and keeps the queue depth gauge current.
type StatusReporter struct {
	db       *buffer.DB
	pipeline Deliverer
	clock    timeutil.Clock
	log      zerolog.Logger
	met      *metrics.Metrics
}

// NewStatusReporter constructs a StatusReporter.
func NewStatusReporter(db *buffer.DB, pipeline Deliverer, clock timeutil.Clock, logger zerolog.Logger, met *metrics.Metrics) *StatusReporter {
	return &StatusReporter{
		db:       db,
		pipeline: pipeline,
		clock:    clock,
		log:      logger.With().Str("component", "status").Logger(),
		met:      met,
	}
}

// Run reports until ctx is cancelled.
func (r *StatusReporter) Run(ctx context.Context) {
	ticker := r.clock.NewTicker(statusInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			r.Report(ctx)
		}
	}
}

// Report emits one status line.
func (r *StatusReporter) Report(ctx context.Context) {
	depth, err := r.db.Count(ctx)
	if err != nil {
		r.log.Error().Err(err).Msg("failed to count buffered records")
		return
	}
	r.met.QueueDepth.Set(float64(depth))
	r.log.Info().Int64("queue_depth", depth).Msg(r.message(depth))
}

func (r *StatusReporter) message(depth int64) string {
	noun := "entries"
	if depth == 1 {
		noun = "entry"
	}
	msg := fmt.Sprintf("%d %s in the queue,", depth, noun)

	last := r.pipeline.LastSuccess()
	if last.IsZero() {
		return msg + " no successful connection to the server since restart."
	}
	return msg + fmt.Sprintf(" last connection to the server was %s ago.", humanAge(r.clock.Since(last)))
}

// humanAge renders a duration in coarse single-unit form, floor semantics.
func humanAge(d time.Duration) string {
	seconds := int64(d.Seconds())
	for _, b := range []struct {
		unit    string
		seconds int64
	}{
		{"years", 31536000},
		{"months", 2592000},
		{"days", 86400},
		{"hours", 3600},
		{"minutes", 60},
	} {
		if seconds > b.seconds {
			return fmt.Sprintf("%d %s", seconds/b.seconds, b.unit)
		}
	}
	return fmt.Sprintf("%d seconds", seconds)
}
