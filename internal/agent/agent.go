// Package agent wires the feed, the sampling engine, the durable buffer and
// the delivery pipeline into the running process.
package agent

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/saildata/trackd/internal/buffer"
	"github.com/saildata/trackd/internal/config"
	"github.com/saildata/trackd/internal/feed"
	"github.com/saildata/trackd/internal/metrics"
	"github.com/saildata/trackd/internal/remote"
	"github.com/saildata/trackd/internal/timeutil"
	"github.com/saildata/trackd/internal/track"
	"github.com/saildata/trackd/internal/units"
	"github.com/saildata/trackd/internal/version"
)

// metadataInterval is how often the vessel descriptor is re-upserted.
const metadataInterval = time.Hour

// Deliverer is the slice of the delivery pipeline the agent drives.
type Deliverer interface {
	Trigger()
	NoteContact(t time.Time)
	LastSuccess() time.Time
}

// API is the slice of the remote client the agent uses directly.
type API interface {
	PostMetadata(ctx context.Context, md remote.Metadata) error
	FetchMonitoring(ctx context.Context, newerThan time.Time) (*remote.MonitoringDoc, error)
}

// Agent consumes feed updates, maintains vessel state, and materializes
// records into the buffer. All state mutation happens on its event loop.
type Agent struct {
	cfg      *config.Config
	clientID string
	engine   *track.Engine
	db       *buffer.DB
	pipeline Deliverer
	api      API
	mon      *config.Monitoring
	monPath  string
	clock    timeutil.Clock
	log      zerolog.Logger
	met      *metrics.Metrics

	// statusSeen flips once a navigation.state observation arrives. Read
	// concurrently by the health handler.
	statusSeen  atomic.Bool
	warnedState bool
}

// Options collects the agent's collaborators.
type Options struct {
	Config         *config.Config
	Engine         *track.Engine
	DB             *buffer.DB
	Pipeline       Deliverer
	API            API
	Monitoring     *config.Monitoring
	MonitoringPath string
	Clock          timeutil.Clock
	Logger         zerolog.Logger
	Metrics        *metrics.Metrics
}

// New constructs an Agent.
func New(opts Options) *Agent {
	return &Agent{
		cfg:      opts.Config,
		clientID: opts.Config.ClientID(),
		engine:   opts.Engine,
		db:       opts.DB,
		pipeline: opts.Pipeline,
		api:      opts.API,
		mon:      opts.Monitoring,
		monPath:  opts.MonitoringPath,
		clock:    opts.Clock,
		log:      opts.Logger.With().Str("component", "agent").Logger(),
		met:      opts.Metrics,
	}
}

// ClientID returns the vessel identifier stamped onto every record.
func (a *Agent) ClientID() string { return a.clientID }

// Run drives the event loop until the source closes or ctx is cancelled.
// The vessel descriptor is upserted at startup and then hourly; a successful
// upsert kicks the delivery pipeline and refreshes the monitoring channels.
func (a *Agent) Run(ctx context.Context, source feed.Source) error {
	a.sendMetadata(ctx)

	metaTicker := a.clock.NewTicker(metadataInterval)
	defer metaTicker.Stop()

	updates := source.Updates()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-metaTicker.C():
			a.sendMetadata(ctx)
		case u, ok := <-updates:
			if !ok {
				a.log.Info().Msg("feed closed, stopping")
				return nil
			}
			a.HandleUpdate(ctx, u)
		}
	}
}

// HandleUpdate dispatches a single feed update into vessel state.
func (a *Agent) HandleUpdate(ctx context.Context, u feed.Update) {
	obs, ok := u.First()
	if !ok {
		return
	}

	switch obs.Path {
	case feed.PathPosition:
		a.handlePosition(ctx, u.Source, obs.Value)

	case feed.PathSpeedOverGround:
		if !a.fromConfiguredSource(u.Source) {
			return
		}
		if v, err := feed.NumericValue(obs.Value); err == nil {
			a.engine.State().RecordSpeed(units.MetersPerSecondToKnots(v))
		}

	case feed.PathCourseOverGroundTrue:
		if v, err := feed.NumericValue(obs.Value); err == nil {
			a.engine.State().RecordCourse(units.RadiansToDegrees(v))
		}

	case feed.PathWindSpeedApparent:
		if v, err := feed.NumericValue(obs.Value); err == nil {
			a.engine.State().RecordWindSpeed(units.MetersPerSecondToKnots(v))
		}

	case feed.PathWindAngleApparent:
		if v, err := feed.NumericValue(obs.Value); err == nil {
			a.engine.State().RecordWindAngle(units.RadiansToDegrees(v))
		}

	case feed.PathState:
		if s, ok := obs.Value.(string); ok && s != "" {
			a.engine.State().SetStatus(s)
			a.statusSeen.Store(true)
		}

	case feed.PathAltitude:
		// Altitude is numeric feed data worth keeping but drives no
		// sampling decision; it goes straight into the metrics mapping.
		if v, err := feed.NumericValue(obs.Value); err == nil {
			a.engine.State().RecordMetric(obs.Path, v)
		}

	default:
		a.engine.State().RecordMetric(obs.Path, convertMetric(obs.Path, obs.Value))
	}
}

func (a *Agent) handlePosition(ctx context.Context, source string, value any) {
	pos, err := feed.PositionValue(value)
	if err != nil {
		a.log.Debug().Err(err).Msg("skipping malformed position")
		return
	}

	sample, err := a.engine.HandlePosition(pos.Latitude, pos.Longitude, source)
	if err != nil {
		var implausible *track.ImplausiblePositionError
		if errors.As(err, &implausible) {
			a.met.RejectedPositions.Inc()
			a.log.Warn().
				Float64("distance_nm", implausible.DistanceNM).
				Dur("elapsed", implausible.Elapsed).
				Msg("rejecting implausible position")
			return
		}
		a.log.Error().Err(err).Msg("position handling failed")
		return
	}
	if sample == nil {
		return
	}
	a.storeSample(ctx, sample)
}

func (a *Agent) storeSample(ctx context.Context, sample *track.Sample) {
	if sample.Status == "" && !a.warnedState {
		a.warnedState = true
		a.log.Warn().Msg("no navigation.state received yet, records carry an empty status")
	}

	rec := buffer.Record{
		Time:                 sample.Time,
		ClientID:             a.clientID,
		Latitude:             sample.Latitude,
		Longitude:            sample.Longitude,
		SpeedOverGround:      sample.MaxSpeedOverGround,
		CourseOverGroundTrue: sample.CourseOverGroundTrue,
		WindSpeedApparent:    sample.MaxWindSpeedApparent,
		WindAngleApparent:    sample.WindAngleApparent,
		Status:               sample.Status,
		Metrics:              sample.Metrics,
	}
	if err := a.db.Insert(ctx, rec); err != nil {
		a.log.Error().Err(err).Msg("failed to buffer record")
		return
	}
	a.met.RecordsBuffered.Inc()
	if n, err := a.db.Count(ctx); err == nil {
		a.met.QueueDepth.Set(float64(n))
	}
	a.log.Debug().Time("time", rec.Time).Str("status", rec.Status).
		Msg("record buffered")
}

func (a *Agent) fromConfiguredSource(source string) bool {
	want := a.cfg.Server.GPSSource
	return want == "" || source == want
}

// sendMetadata upserts the vessel descriptor. On success it kicks the
// delivery pipeline so queued records follow immediately, then refreshes the
// monitoring channel list.
func (a *Agent) sendMetadata(ctx context.Context) {
	md := remote.Metadata{
		Name:          a.cfg.Vessel.Name,
		MMSI:          a.cfg.Vessel.MMSI,
		ClientID:      a.clientID,
		Length:        a.cfg.Vessel.Length,
		Beam:          a.cfg.Vessel.Beam,
		Height:        a.cfg.Vessel.Height,
		ShipType:      a.cfg.Vessel.ShipType,
		PluginVersion: version.Version,
		Channels:      a.mon.Channels,
		Time:          a.clock.Now().UTC().Format(time.RFC3339),
	}
	if err := a.api.PostMetadata(ctx, md); err != nil {
		a.log.Warn().Err(err).Msg("metadata submission failed")
		return
	}
	a.log.Debug().Msg("metadata sent")
	a.pipeline.NoteContact(a.clock.Now())
	a.pipeline.Trigger()
	a.refreshMonitoring(ctx)
}

// Warnings lists current operational conditions worth surfacing on the
// health interface.
func (a *Agent) Warnings() []string {
	if !a.statusSeen.Load() {
		return []string{"no navigation.state received, records carry an empty status"}
	}
	return nil
}

func (a *Agent) refreshMonitoring(ctx context.Context) {
	doc, err := a.api.FetchMonitoring(ctx, a.mon.UpdatedAt)
	if err != nil {
		a.log.Debug().Err(err).Msg("monitoring refresh failed")
		return
	}
	if !a.mon.Merge(doc.Channels, doc.UpdatedAt) {
		return
	}
	a.engine.State().SetMonitored(a.mon.Channels)
	if a.monPath != "" {
		if err := a.mon.Save(a.monPath); err != nil {
			a.log.Warn().Err(err).Msg("failed to persist monitoring channels")
		}
	}
	a.log.Info().Strs("channels", a.mon.Channels).Msg("monitoring channels updated")
}

// convertMetric normalizes SI feed values on well-known path families into
// the units the server stores: temperatures to Celsius, pressures to
// hectopascals, humidity ratios to percentages. Everything else passes
// through untouched.
func convertMetric(path string, value any) any {
	v, err := feed.NumericValue(value)
	if err != nil {
		return value
	}
	switch {
	case strings.Contains(path, "temperature"):
		return units.KelvinToCelsius(v)
	case strings.Contains(path, "pressure"):
		return units.PascalsToHectopascals(v)
	case strings.Contains(path, "humidity"):
		return units.RatioToPercent(v)
	default:
		return value
	}
}
