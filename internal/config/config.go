package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Geocode   GeocodeConfig   `yaml:"geocode" mapstructure:"geocode"`
	Adjacency AdjacencyConfig `yaml:"adjacency" mapstructure:"adjacency"`
	Cluster   ClusterConfig   `yaml:"cluster" mapstructure:"cluster"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the address store backend.
type StoreConfig struct {
	// Driver selects the backend: "csv", "sqlite", or "postgres".
	Driver       string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL  string `yaml:"database_url" mapstructure:"database_url"`
	HostsCSV     string `yaml:"hosts_csv" mapstructure:"hosts_csv"`
	NeighborsCSV string `yaml:"neighbors_csv" mapstructure:"neighbors_csv"`
}

// GeocodeConfig configures the geocoding providers.
type GeocodeConfig struct {
	MapboxToken string  `yaml:"mapbox_token" mapstructure:"mapbox_token"`
	RateLimit   float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// AdjacencyConfig configures the road-crossing oracle.
type AdjacencyConfig struct {
	// Provider selects the backend: "overpass" (live OSM) or "shapefile"
	// (local TIGER/Line roads file, no network).
	Provider       string  `yaml:"provider" mapstructure:"provider"`
	OverpassURL    string  `yaml:"overpass_url" mapstructure:"overpass_url"`
	RoadsShapefile string  `yaml:"roads_shapefile" mapstructure:"roads_shapefile"`
	SearchRadiusM  float64 `yaml:"search_radius_m" mapstructure:"search_radius_m"`
	TimeoutSecs    int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RateLimit      float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
	MaxRetries     int     `yaml:"max_retries" mapstructure:"max_retries"`
}

// ClusterConfig configures qualification policy.
type ClusterConfig struct {
	// RadiusM bounds the "plausibly adjacent lawns" distance in meters.
	// The boundary is inclusive: a candidate at exactly RadiusM survives.
	RadiusM float64 `yaml:"radius_m" mapstructure:"radius_m"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("MOWTHOS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "csv")
	v.SetDefault("store.hosts_csv", "host_homes.csv")
	v.SetDefault("store.neighbors_csv", "neighbor_homes.csv")
	v.SetDefault("geocode.rate_limit", 10.0)
	v.SetDefault("geocode.timeout_secs", 30)
	v.SetDefault("adjacency.provider", "overpass")
	v.SetDefault("adjacency.overpass_url", "https://overpass-api.de/api/interpreter")
	v.SetDefault("adjacency.search_radius_m", 100)
	v.SetDefault("adjacency.timeout_secs", 20)
	v.SetDefault("adjacency.rate_limit", 1.0)
	v.SetDefault("adjacency.max_retries", 2)
	v.SetDefault("cluster.radius_m", 80)
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	// The overpass oracle fetches roads around the first point only. A fetch
	// window smaller than the cluster radius would miss roads lying between
	// the points and report clear paths it never examined.
	if c.Adjacency.Provider != "shapefile" && c.Adjacency.SearchRadiusM < c.Cluster.RadiusM {
		return eris.Errorf(
			"config: adjacency.search_radius_m (%.0f) must be at least cluster.radius_m (%.0f)",
			c.Adjacency.SearchRadiusM, c.Cluster.RadiusM,
		)
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
