package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	mapstructure "github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// Config represents the runtime configuration shared by the CLI and the
// tracker daemon.
type Config struct {
	Client    ClientConfig    `mapstructure:"client"`
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Reminders RemindersConfig `mapstructure:"reminders"`
	Auth      AuthConfig      `mapstructure:"auth"`
}

// ClientConfig configures the tracker API client used by the CLI.
type ClientConfig struct {
	BaseURL       string        `mapstructure:"base_url"`
	Token         string        `mapstructure:"token"`
	Timeout       time.Duration `mapstructure:"timeout"`
	RetryMax      uint64        `mapstructure:"retry_max"`
	RetryInterval time.Duration `mapstructure:"retry_interval"`
	LogLevel      string        `mapstructure:"log_level"`
}

// ServerConfig configures the tracker daemon's HTTP server.
type ServerConfig struct {
	Port       int              `mapstructure:"port"`
	LogLevel   string           `mapstructure:"log_level"`
	Monitoring MonitoringConfig `mapstructure:"monitoring"`
}

// MonitoringConfig enables health checks and metrics.
type MonitoringConfig struct {
	Prometheus PrometheusConfig `mapstructure:"prometheus"`
	Health     HealthConfig     `mapstructure:"health_check"`
}

// PrometheusConfig toggles metrics endpoints.
type PrometheusConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
}

// HealthConfig toggles health endpoints.
type HealthConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// DatabaseConfig describes connection options for the supported databases.
type DatabaseConfig struct {
	Driver   string       `mapstructure:"driver"`
	Path     string       `mapstructure:"path"`
	DSN      string       `mapstructure:"dsn"`
	Postgres DBAuthConfig `mapstructure:"postgres"`
	MySQL    DBAuthConfig `mapstructure:"mysql"`
}

// DBAuthConfig represents host based database parameters.
type DBAuthConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Database string `mapstructure:"database"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// RemindersConfig controls the scheduled reminder dispatcher.
type RemindersConfig struct {
	Enabled                bool   `mapstructure:"enabled"`
	Schedule               string `mapstructure:"schedule"`
	StartOffsetMinutes     int    `mapstructure:"start_offset_minutes"`
	IntervalMinutes        int    `mapstructure:"interval_minutes"`
	CancelThresholdMinutes int    `mapstructure:"cancel_threshold_minutes"`
}

// AuthConfig captures authentication settings for mutation endpoints.
type AuthConfig struct {
	JWT JWTSettings `mapstructure:"jwt"`
}

// JWTSettings configures JWT access tokens.
type JWTSettings struct {
	Secret string        `mapstructure:"secret"`
	Issuer string        `mapstructure:"issuer"`
	TTL    time.Duration `mapstructure:"access_token_ttl"`
}

// LoadConfig initialises application configuration using Viper with sensible defaults.
func LoadConfig(paths ...string) (*Config, error) {
	v := viper.NewWithOptions(viper.ExperimentalBindStruct())
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.AddConfigPath("./config")
	for _, path := range paths {
		v.AddConfigPath(path)
	}

	setDefaults(v)

	v.SetEnvPrefix("PLAYERFINDER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var cfgErr viper.ConfigFileNotFoundError
		if !errors.As(err, &cfgErr) {
			return nil, fmt.Errorf("config: read file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config, decodeHook()); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("client.base_url", "http://127.0.0.1:8000")
	v.SetDefault("client.timeout", "10s")
	v.SetDefault("client.retry_max", 3)
	v.SetDefault("client.retry_interval", "250ms")
	v.SetDefault("client.log_level", "info")

	v.SetDefault("server.port", 8000)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.monitoring.prometheus.enabled", true)
	v.SetDefault("server.monitoring.prometheus.endpoint", "/metrics")
	v.SetDefault("server.monitoring.health_check.enabled", true)

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "./data/playerfinder.sqlite")

	v.SetDefault("reminders.enabled", true)
	v.SetDefault("reminders.schedule", "@every 1m")
	v.SetDefault("reminders.start_offset_minutes", 1440)
	v.SetDefault("reminders.interval_minutes", 720)
	v.SetDefault("reminders.cancel_threshold_minutes", 120)

	v.SetDefault("auth.jwt.access_token_ttl", "15m")
	v.SetDefault("auth.jwt.issuer", "playerfinder")
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
