package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	NATS       NATSConfig       `mapstructure:"nats"`
	Valkey     ValkeyConfig     `mapstructure:"valkey"`
	Telemetry  TelemetryConfig  `mapstructure:"telemetry"`
	Google     GoogleConfig     `mapstructure:"google"`
	Gemini     GeminiConfig     `mapstructure:"gemini"`
	ElevenLabs ElevenLabsConfig `mapstructure:"elevenlabs"`
	Tour       TourConfig       `mapstructure:"tour"`
}

type ServerConfig struct {
	Port         int `mapstructure:"port"`
	ReadTimeout  int `mapstructure:"read_timeout"`
	WriteTimeout int `mapstructure:"write_timeout"`
}

type NATSConfig struct {
	URL string `mapstructure:"url"`
}

type ValkeyConfig struct {
	Addr string `mapstructure:"addr"`
}

type TelemetryConfig struct {
	ServiceName string `mapstructure:"service_name"`
	TempoAddr   string `mapstructure:"tempo_addr"`
	Enabled     bool   `mapstructure:"enabled"`
}

// GoogleConfig carries the Maps Platform key used for place search and
// walking directions. An empty key disables dynamic sourcing.
type GoogleConfig struct {
	MapsAPIKey string `mapstructure:"maps_api_key"`
}

type GeminiConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

type ElevenLabsConfig struct {
	APIKey string `mapstructure:"api_key"`
}

// TourConfig sets route construction defaults.
type TourConfig struct {
	DefaultStartLat     float64 `mapstructure:"default_start_lat"`
	DefaultStartLng     float64 `mapstructure:"default_start_lng"`
	DefaultBudgetMins   int     `mapstructure:"default_budget_minutes"`
	ProximityMeters     float64 `mapstructure:"proximity_meters"`
	DynamicSearchByDflt bool    `mapstructure:"dynamic_search"`
}

// Load reads configuration from file and environment variables.
func Load(service string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10)
	v.SetDefault("server.write_timeout", 10)
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("valkey.addr", "localhost:6379")
	v.SetDefault("telemetry.service_name", service)
	v.SetDefault("telemetry.tempo_addr", "tempo:4317")
	v.SetDefault("telemetry.enabled", true)
	v.SetDefault("gemini.model", "gemini-2.0-flash")
	// Downtown Providence, RI, where the curated catalog lives.
	v.SetDefault("tour.default_start_lat", 41.8240)
	v.SetDefault("tour.default_start_lng", -71.4128)
	v.SetDefault("tour.default_budget_minutes", 60)
	v.SetDefault("tour.proximity_meters", 50)
	v.SetDefault("tour.dynamic_search", false)

	// Config file (optional)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	_ = v.ReadInConfig() // OK if missing

	// Environment variables: WAYFARE_GOOGLE_MAPS_API_KEY → google.maps_api_key
	v.SetEnvPrefix("WAYFARE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks that required configuration fields are present and sane.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port must be 1-65535, got %d", c.Server.Port))
	}
	if c.Server.ReadTimeout <= 0 {
		errs = append(errs, "server.read_timeout must be positive")
	}
	if c.Server.WriteTimeout <= 0 {
		errs = append(errs, "server.write_timeout must be positive")
	}
	if c.Tour.DefaultBudgetMins <= 0 {
		errs = append(errs, "tour.default_budget_minutes must be positive")
	}
	if c.Tour.ProximityMeters <= 0 {
		errs = append(errs, "tour.proximity_meters must be positive")
	}
	if c.Tour.DefaultStartLat < -90 || c.Tour.DefaultStartLat > 90 {
		errs = append(errs, fmt.Sprintf("tour.default_start_lat out of range: %f", c.Tour.DefaultStartLat))
	}
	if c.Tour.DefaultStartLng < -180 || c.Tour.DefaultStartLng > 180 {
		errs = append(errs, fmt.Sprintf("tour.default_start_lng out of range: %f", c.Tour.DefaultStartLng))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
