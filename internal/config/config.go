package config

import (
	"fmt"
	"time"
)

// Config is the complete application configuration.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Entsoe     EntsoeConfig     `mapstructure:"entsoe"`
	Smard      SmardConfig      `mapstructure:"smard"`
	Weather    WeatherConfig    `mapstructure:"weather"`
	Aggregate  AggregateConfig  `mapstructure:"aggregate"`
	Comparison ComparisonConfig `mapstructure:"comparison"`
	Cache      CacheConfig      `mapstructure:"cache"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// DatabaseConfig configures the yearly-state store. Driver selects between
// the PostgreSQL server deployment and the embedded single-file SQLite
// deployment; Path is only used by the latter.
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"` // "postgres" or "sqlite"
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Database        string        `mapstructure:"database"`
	SSLMode         string        `mapstructure:"sslmode"`
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
}

// EntsoeConfig configures the ENTSO-E generation feed.
type EntsoeConfig struct {
	BaseURL     string        `mapstructure:"base_url"`
	APIKey      string        `mapstructure:"api_key"`
	BiddingZone string        `mapstructure:"bidding_zone"`
	Timeout     time.Duration `mapstructure:"timeout"`
	MaxRetries  int           `mapstructure:"max_retries"`
}

// SmardConfig configures the SMARD consumption feed.
type SmardConfig struct {
	BaseURL    string        `mapstructure:"base_url"`
	FilterID   string        `mapstructure:"filter_id"` // 410 = total consumption
	Region     string        `mapstructure:"region"`
	Timeout    time.Duration `mapstructure:"timeout"`
	MaxRetries int           `mapstructure:"max_retries"`
}

// City is a weather reference location.
type City struct {
	Name      string  `mapstructure:"name"`
	Latitude  float64 `mapstructure:"latitude"`
	Longitude float64 `mapstructure:"longitude"`
}

// WeatherConfig configures the Open-Meteo weather feed.
type WeatherConfig struct {
	BaseURL    string        `mapstructure:"base_url"`
	Timezone   string        `mapstructure:"timezone"`
	Timeout    time.Duration `mapstructure:"timeout"`
	MaxRetries int           `mapstructure:"max_retries"`
	Cities     []City        `mapstructure:"cities"`
}

// AggregateConfig carries the yearly aggregator's heuristic constants.
// Both the finalization lag and the sanity floor are operational heuristics
// without a documented derivation, so they stay configurable.
type AggregateConfig struct {
	FinalizationLagDays int     `mapstructure:"finalization_lag_days"`
	SanityFloorPercent  float64 `mapstructure:"sanity_floor_percent"`
	DefaultSharePercent float64 `mapstructure:"default_share_percent"`
}

// ComparisonConfig carries the typical-year reference values and the
// legislative target used by the presentation layer.
type ComparisonConfig struct {
	TypicalSunHours    float64 `mapstructure:"typical_sun_hours"`
	TypicalWindKmh     float64 `mapstructure:"typical_wind_kmh"`
	TargetYear         int     `mapstructure:"target_year"`
	TargetSharePercent float64 `mapstructure:"target_share_percent"`
}

// CacheConfig bounds the daily-fetch memoization.
type CacheConfig struct {
	TTL  time.Duration `mapstructure:"ttl"`
	Size int           `mapstructure:"size"`
}

// LoggingConfig configures the structured logger.
type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

// Validate checks configuration invariants.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be in 1..65535, got %d", c.Server.Port)
	}

	switch c.Database.Driver {
	case "postgres":
		if c.Database.Host == "" || c.Database.Database == "" {
			return fmt.Errorf("database.host and database.database are required for postgres")
		}
	case "sqlite":
		if c.Database.Path == "" {
			return fmt.Errorf("database.path is required for sqlite")
		}
	default:
		return fmt.Errorf("database.driver must be postgres or sqlite, got %q", c.Database.Driver)
	}

	if c.Aggregate.FinalizationLagDays <= 0 {
		return fmt.Errorf("aggregate.finalization_lag_days must be positive, got %d", c.Aggregate.FinalizationLagDays)
	}
	if c.Aggregate.SanityFloorPercent < 0 || c.Aggregate.SanityFloorPercent >= 100 {
		return fmt.Errorf("aggregate.sanity_floor_percent must be in [0, 100), got %g", c.Aggregate.SanityFloorPercent)
	}
	if c.Aggregate.DefaultSharePercent < 0 || c.Aggregate.DefaultSharePercent > 100 {
		return fmt.Errorf("aggregate.default_share_percent must be in [0, 100], got %g", c.Aggregate.DefaultSharePercent)
	}

	if len(c.Weather.Cities) == 0 {
		return fmt.Errorf("weather.cities must not be empty")
	}

	if c.Comparison.TargetSharePercent <= 0 || c.Comparison.TargetSharePercent > 100 {
		return fmt.Errorf("comparison.target_share_percent must be in (0, 100], got %g", c.Comparison.TargetSharePercent)
	}

	if c.Cache.Size <= 0 {
		return fmt.Errorf("cache.size must be positive, got %d", c.Cache.Size)
	}

	return nil
}
