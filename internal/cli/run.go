package cli

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/saildata/trackd/internal/agent"
	"github.com/saildata/trackd/internal/buffer"
	"github.com/saildata/trackd/internal/config"
	"github.com/saildata/trackd/internal/delivery"
	"github.com/saildata/trackd/internal/feed"
	"github.com/saildata/trackd/internal/httputil"
	"github.com/saildata/trackd/internal/metrics"
	"github.com/saildata/trackd/internal/remote"
	"github.com/saildata/trackd/internal/timeutil"
	"github.com/saildata/trackd/internal/track"
)

const (
	bufferFile     = "trackd.sqlite3"
	monitoringFile = "monitoring.json"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the agent, reading feed updates from stdin",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAgent(cmd.Context())
	},
}

func runAgent(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	db, err := buffer.Open(filepath.Join(cfg.Data.Dir, bufferFile))
	if err != nil {
		return err
	}
	defer db.Close()
	if err := db.MigrateUp(); err != nil {
		return err
	}

	monPath := filepath.Join(cfg.Data.Dir, monitoringFile)
	mon, err := config.LoadMonitoring(monPath)
	if err != nil {
		logger.Warn().Err(err).Msg("could not load persisted monitoring channels, starting empty")
		mon = &config.Monitoring{}
	}

	clock := timeutil.RealClock{}
	met := metrics.New(prometheus.DefaultRegisterer)

	state := track.NewState(mon.Channels)
	filter := &track.Filter{GPSSource: cfg.Server.GPSSource}
	engine := track.NewEngine(track.Config{
		MaxInterval:          cfg.Sampling.MaxInterval,
		MovingInterval:       cfg.Sampling.MovingInterval,
		MinDistanceNM:        cfg.Sampling.MinDistanceNM,
		SpeedThresholdKnots:  cfg.Sampling.SpeedThresholdKnots,
		TurnThresholdDegrees: cfg.Sampling.TurnThresholdDegrees,
		DecisionInterval:     cfg.Sampling.DecisionInterval,
	}, filter, state, clock, logger)

	client := remote.New(cfg.Server.URL, cfg.Server.Token,
		httputil.NewStandardClient(cfg.Server.RequestTimeout), logger)

	pipeline := delivery.New(delivery.Config{
		Interval:   cfg.Delivery.Interval,
		BatchLimit: cfg.Delivery.BatchLimit,
		ChainDelay: cfg.Delivery.ChainDelay,
	}, db, client, clock, logger.With().Str("component", "delivery").Logger(), met)

	a := agent.New(agent.Options{
		Config:         cfg,
		Engine:         engine,
		DB:             db,
		Pipeline:       pipeline,
		API:            client,
		Monitoring:     mon,
		MonitoringPath: monPath,
		Clock:          clock,
		Logger:         logger,
		Metrics:        met,
	})

	go pipeline.Run(ctx)
	go agent.NewStatusReporter(db, pipeline, clock, logger, met).Run(ctx)

	if cfg.Health.Listen != "" {
		health := agent.NewHealthServer(cfg.Health.Listen, db, pipeline, prometheus.DefaultGatherer, a.Warnings, logger)
		go func() {
			if err := health.Run(ctx); err != nil {
				logger.Error().Err(err).Msg("health listener failed")
			}
		}()
	}

	logger.Info().Str("client_id", a.ClientID()).Msg("agent started")
	source := feed.NewJSONReader(ctx, os.Stdin, logger)
	if err := a.Run(ctx, source); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
