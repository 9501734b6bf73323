package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for Beacon
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Admin    AdminConfig    `mapstructure:"admin"`
	CORS     CORSConfig     `mapstructure:"cors"`
	Database DatabaseConfig `mapstructure:"database"`
	Wordware WordwareConfig `mapstructure:"wordware"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Stream   StreamConfig   `mapstructure:"stream"`
	Log      LogConfig      `mapstructure:"log"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// AdminConfig holds dashboard API authentication configuration
type AdminConfig struct {
	APIKey string `mapstructure:"api_key"`
}

// CORSConfig holds allowed origins for the dashboard API
type CORSConfig struct {
	AllowOrigins []string `mapstructure:"allow_origins"`
}

// DatabaseConfig selects and locates the log store
type DatabaseConfig struct {
	Driver string `mapstructure:"driver"` // sqlite or postgres
	Path   string `mapstructure:"path"`   // sqlite file
	DSN    string `mapstructure:"dsn"`    // postgres connection string
}

// WordwareConfig holds the generative-text service configuration
type WordwareConfig struct {
	BaseURL         string        `mapstructure:"base_url"`
	APIKey          string        `mapstructure:"api_key"`
	AnalysisAppID   string        `mapstructure:"analysis_app_id"`
	AnalysisVersion string        `mapstructure:"analysis_version"`
	SummaryAppID    string        `mapstructure:"summary_app_id"`
	SummaryVersion  string        `mapstructure:"summary_version"`
	OutputField     string        `mapstructure:"output_field"`
	Timeout         time.Duration `mapstructure:"timeout"`
}

// RedisConfig enables the shared changefeed when Addr is set
type RedisConfig struct {
	Addr    string `mapstructure:"addr"`
	Channel string `mapstructure:"channel"`
}

// StreamConfig tunes the log stream endpoint
type StreamConfig struct {
	KeepAlive         time.Duration `mapstructure:"keepalive"`
	ReconcileInterval time.Duration `mapstructure:"reconcile_interval"`
	ReconcileWindow   time.Duration `mapstructure:"reconcile_window"` // how far before the newest delivered record a re-read starts
}

// LogConfig holds logger settings
type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// Load loads configuration from file and environment
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Read config file if specified
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// Environment variables, e.g. BEACON_WORDWARE_API_KEY
	v.SetEnvPrefix("BEACON")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)

	v.SetDefault("admin.api_key", "")
	v.SetDefault("cors.allow_origins", []string{"*"})

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "./data/beacon.db")
	v.SetDefault("database.dsn", "")

	v.SetDefault("wordware.base_url", "https://app.wordware.ai/api/released-app")
	v.SetDefault("wordware.api_key", "")
	v.SetDefault("wordware.analysis_app_id", "4039b7d2-cb3d-4916-bdc4-c078d040579b")
	v.SetDefault("wordware.analysis_version", "^3.0")
	v.SetDefault("wordware.summary_app_id", "a690a754-b3cb-4c9a-a98c-d3ac441346e6")
	v.SetDefault("wordware.summary_version", "^1.0")
	v.SetDefault("wordware.output_field", "gen_Pn6h2m62tQOJZ3Af")
	v.SetDefault("wordware.timeout", 60*time.Second)

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.channel", "beacon:logs")

	v.SetDefault("stream.keepalive", 30*time.Second)
	v.SetDefault("stream.reconcile_interval", time.Minute)
	v.SetDefault("stream.reconcile_window", time.Minute)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
}

// Validate rejects settings the server cannot start with. Missing
// generative-text credentials are reported per call instead.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite":
		if c.Database.Path == "" {
			return fmt.Errorf("database.path is required for the sqlite driver")
		}
	case "postgres":
		if c.Database.DSN == "" {
			return fmt.Errorf("database.dsn is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unknown database.driver %q", c.Database.Driver)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d", c.Server.Port)
	}
	return nil
}

// Address returns the server address
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
