// Package delivery drains the durable buffer to the server in
// acknowledgement-reconciled batches.
package delivery

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/saildata/trackd/internal/buffer"
	"github.com/saildata/trackd/internal/metrics"
	"github.com/saildata/trackd/internal/remote"
	"github.com/saildata/trackd/internal/timeutil"
)

// Store is the slice of the buffer the pipeline needs.
type Store interface {
	Pending(ctx context.Context, limit int) ([]buffer.Record, error)
	DeleteThrough(ctx context.Context, watermark time.Time) (int64, error)
}

// Sender submits a batch of records and returns the acknowledged rows.
type Sender interface {
	PostMetrics(ctx context.Context, records []buffer.Record) ([]remote.AckRow, error)
}

// Config controls batch sizing and cadence.
type Config struct {
	// Interval is the periodic submission cadence.
	Interval time.Duration
	// BatchLimit caps rows per submission.
	BatchLimit int
	// ChainDelay is the pause before draining the next batch after a
	// successful one.
	ChainDelay time.Duration
}

// DefaultConfig returns the stock delivery cadence.
func DefaultConfig() Config {
	return Config{
		Interval:   10 * time.Minute,
		BatchLimit: 31,
		ChainDelay: 19 * time.Second,
	}
}

// Pipeline periodically drains the buffer. At most one submission cycle
// runs at a time.
type Pipeline struct {
	cfg    Config
	store  Store
	sender Sender
	clock  timeutil.Clock
	log    zerolog.Logger
	met    *metrics.Metrics

	inFlight atomic.Bool
	kick     chan struct{}

	mu          sync.Mutex
	lastSuccess time.Time
	onSuccess   func(time.Time)
}

// New builds a pipeline around the given store and sender.
func New(cfg Config, store Store, sender Sender, clock timeutil.Clock, log zerolog.Logger, met *metrics.Metrics) *Pipeline {
	if cfg.BatchLimit <= 0 {
		cfg.BatchLimit = DefaultConfig().BatchLimit
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultConfig().Interval
	}
	return &Pipeline{
		cfg:    cfg,
		store:  store,
		sender: sender,
		clock:  clock,
		log:    log,
		met:    met,
		kick:   make(chan struct{}, 1),
	}
}

// OnSuccess registers a callback invoked after each successful batch
// with the time of delivery. Must be set before Run.
func (p *Pipeline) OnSuccess(fn func(time.Time)) {
	p.onSuccess = fn
}

// NoteContact records a successful exchange with the server that happened
// outside a delivery cycle, such as a metadata upsert. Without it an idle
// vessel with an empty buffer would report no server contact despite the
// hourly metadata round trips.
func (p *Pipeline) NoteContact(t time.Time) {
	p.noteSuccess(t)
}

// LastSuccess reports the time of the most recent successful server
// contact, zero if none has happened yet.
func (p *Pipeline) LastSuccess() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastSuccess
}

// Trigger requests an immediate submission cycle. Non-blocking; if a
// kick is already queued the request is merged into it.
func (p *Pipeline) Trigger() {
	select {
	case p.kick <- struct{}{}:
	default:
	}
}

// Run drives periodic submission until the context is canceled.
func (p *Pipeline) Run(ctx context.Context) {
	ticker := p.clock.NewTicker(p.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			p.Cycle(ctx)
		case <-p.kick:
			p.Cycle(ctx)
		}
	}
}

// Cycle drains the buffer batch by batch until it is empty or an error
// stops progress. If a cycle is already in flight the call is a no-op;
// unsent rows wait for the next tick.
func (p *Pipeline) Cycle(ctx context.Context) {
	if !p.inFlight.CompareAndSwap(false, true) {
		p.log.Debug().Msg("submission already in flight, skipping")
		return
	}
	defer p.inFlight.Store(false)

	for {
		records, err := p.store.Pending(ctx, p.cfg.BatchLimit)
		if err != nil {
			p.log.Error().Err(err).Msg("reading pending records")
			return
		}
		if len(records) == 0 {
			p.log.Debug().Msg("buffer empty, nothing to send")
			return
		}

		rows, err := p.sender.PostMetrics(ctx, records)
		if err != nil {
			p.met.DeliveryFailures.Inc()
			p.log.Warn().Err(err).Int("records", len(records)).
				Msg("submission failed, will retry on next cycle")
			return
		}

		// The server may merge duplicate rows, so the response can be
		// shorter than the batch. When every row came back, trust the
		// server's last timestamp; otherwise fall back to the last row
		// we sent so duplicates still get cleared.
		watermark := records[len(records)-1].Time
		if len(rows) == len(records) {
			watermark = rows[len(rows)-1].Time.Time
		} else {
			p.log.Debug().Int("sent", len(records)).Int("returned", len(rows)).
				Msg("server returned fewer rows than sent")
		}

		deleted, err := p.store.DeleteThrough(ctx, watermark)
		if err != nil {
			p.log.Error().Err(err).Msg("deleting acknowledged records")
			return
		}
		if deleted == 0 {
			p.met.ReconcileAnomalies.Inc()
			p.log.Warn().Time("watermark", watermark).Int("sent", len(records)).
				Msg("server accepted batch but no buffered rows matched the watermark")
			return
		}

		p.met.RecordsDelivered.Add(float64(deleted))
		p.noteSuccess(p.clock.Now())
		p.log.Info().Int64("deleted", deleted).Int("sent", len(records)).
			Msg("batch delivered")

		if ctx.Err() != nil {
			return
		}
		p.clock.Sleep(p.cfg.ChainDelay)
		if ctx.Err() != nil {
			return
		}
	}
}

func (p *Pipeline) noteSuccess(now time.Time) {
	p.mu.Lock()
	p.lastSuccess = now
	p.mu.Unlock()
	if p.onSuccess != nil {
		p.onSuccess(now)
	}
}
