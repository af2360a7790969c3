// Package config materialises agent configuration from file, environment
// and defaults.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/google/uuid"
	"github.com/spf13/viper"

	"github.com/saildata/trackd/internal/logging"
)

// Config is the root agent configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Vessel   VesselConfig   `mapstructure:"vessel"`
	Sampling SamplingConfig `mapstructure:"sampling"`
	Delivery DeliveryConfig `mapstructure:"delivery"`
	Data     DataConfig     `mapstructure:"data"`
	Health   HealthConfig   `mapstructure:"health"`
	Logging  logging.Config `mapstructure:"logging"`
}

// ServerConfig covers connectivity to the ingestion service.
type ServerConfig struct {
	URL            string        `mapstructure:"url"`
	Token          string        `mapstructure:"token"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	// GPSSource, when set, restricts position and speed updates to a single
	// named source.
	GPSSource string `mapstructure:"gps_source"`
}

// VesselConfig identifies the vessel to the server.
type VesselConfig struct {
	Name     string  `mapstructure:"name"`
	MMSI     string  `mapstructure:"mmsi"`
	UUID     string  `mapstructure:"uuid"`
	Length   float64 `mapstructure:"length"`
	Beam     float64 `mapstructure:"beam"`
	Height   float64 `mapstructure:"height"`
	ShipType int     `mapstructure:"ship_type"`
}

// SamplingConfig tunes the adaptive sampling triggers.
type SamplingConfig struct {
	MaxInterval          time.Duration `mapstructure:"max_interval"`
	MovingInterval       time.Duration `mapstructure:"moving_interval"`
	MinDistanceNM        float64       `mapstructure:"min_distance_nm"`
	SpeedThresholdKnots  float64       `mapstructure:"speed_threshold_knots"`
	TurnThresholdDegrees float64       `mapstructure:"turn_threshold_degrees"`
	DecisionInterval     time.Duration `mapstructure:"decision_interval"`
}

// DeliveryConfig tunes batch submission.
type DeliveryConfig struct {
	Interval   time.Duration `mapstructure:"interval"`
	BatchLimit int           `mapstructure:"batch_limit"`
	ChainDelay time.Duration `mapstructure:"chain_delay"`
}

// DataConfig locates local state on disk.
type DataConfig struct {
	Dir string `mapstructure:"dir"`
}

// HealthConfig configures the local HTTP listener.
type HealthConfig struct {
	Listen string `mapstructure:"listen"`
}

// Load builds configuration from file, environment, and defaults. path may
// be empty, in which case config.yaml in the working directory is used if
// present.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("TRACKD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// AutomaticEnv only surfaces keys viper already knows about, so keys
	// without defaults need explicit bindings or TRACKD_SERVER_TOKEN alone
	// would never reach Unmarshal.
	for _, key := range []string{
		"server.url", "server.token", "server.gps_source",
		"vessel.name", "vessel.mmsi", "vessel.uuid",
		"vessel.length", "vessel.beam", "vessel.height", "vessel.ship_type",
	} {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("bind env for %s: %w", key, err)
		}
	}

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.request_timeout", "40s")

	v.SetDefault("sampling.max_interval", "5m")
	v.SetDefault("sampling.moving_interval", "1m")
	v.SetDefault("sampling.min_distance_nm", 0.5)
	v.SetDefault("sampling.speed_threshold_knots", 1.0)
	v.SetDefault("sampling.turn_threshold_degrees", 25.0)
	v.SetDefault("sampling.decision_interval", "60s")

	v.SetDefault("delivery.interval", "10m")
	v.SetDefault("delivery.batch_limit", 31)
	v.SetDefault("delivery.chain_delay", "19s")

	v.SetDefault("data.dir", ".")
	v.SetDefault("health.listen", "")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

// Validate performs basic sanity checks. A missing server token is the one
// fatal condition: without it the agent can never deliver anything.
func (c *Config) Validate() error {
	if c.Server.Token == "" {
		return fmt.Errorf("server.token must be configured")
	}
	if c.Server.URL == "" {
		return fmt.Errorf("server.url must be configured")
	}
	if c.Delivery.BatchLimit <= 0 {
		return fmt.Errorf("delivery.batch_limit must be greater than zero")
	}
	if c.Sampling.MaxInterval <= 0 {
		return fmt.Errorf("sampling.max_interval must be greater than zero")
	}
	return nil
}

// ClientID derives the vessel's stable client identifier. Vessels with an
// MMSI use the IMO URN form; otherwise a configured or freshly generated
// UUID URN is used.
func (c *Config) ClientID() string {
	if c.Vessel.MMSI != "" {
		return "vessels.urn:mrn:imo:mmsi:" + c.Vessel.MMSI
	}
	id := c.Vessel.UUID
	if id == "" {
		id = uuid.NewString()
	}
	return "vessels.urn:mrn:signalk:uuid:" + id
}
