package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// LoadConfig loads configuration from file and environment. A missing config
// file is not an error: defaults plus RENEWSHARE_ env overrides apply.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/renewshare")
	}

	setDefaults(v)

	v.SetEnvPrefix("RENEWSHARE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	return parseConfig(v)
}

func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "60s")

	// Database defaults: embedded single-file store unless configured
	// otherwise.
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "./renewshare.db")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "renewshare")
	v.SetDefault("database.database", "renewshare")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("database.conn_max_idle_time", "5m")

	// ENTSO-E defaults: Germany-Luxembourg bidding zone, realised
	// generation per type.
	v.SetDefault("entsoe.base_url", "https://web-api.tp.entsoe.eu/api")
	v.SetDefault("entsoe.bidding_zone", "10Y1001A1001A83F")
	v.SetDefault("entsoe.timeout", "120s")
	v.SetDefault("entsoe.max_retries", 3)

	// SMARD defaults: total consumption for Germany at hourly resolution.
	v.SetDefault("smard.base_url", "https://www.smard.de/app/chart_data")
	v.SetDefault("smard.filter_id", "410")
	v.SetDefault("smard.region", "DE")
	v.SetDefault("smard.timeout", "30s")
	v.SetDefault("smard.max_retries", 3)

	// Weather defaults: five cities spanning north, east, center, south
	// and southwest Germany.
	v.SetDefault("weather.base_url", "https://api.open-meteo.com/v1/forecast")
	v.SetDefault("weather.timezone", "Europe/Berlin")
	v.SetDefault("weather.timeout", "15s")
	v.SetDefault("weather.max_retries", 2)
	v.SetDefault("weather.cities", []map[string]interface{}{
		{"name": "Hamburg", "latitude": 53.55, "longitude": 10.00},
		{"name": "Berlin", "latitude": 52.52, "longitude": 13.40},
		{"name": "Frankfurt", "latitude": 50.11, "longitude": 8.68},
		{"name": "Munich", "latitude": 48.14, "longitude": 11.58},
		{"name": "Freiburg", "latitude": 47.99, "longitude": 7.85},
	})

	// Aggregator defaults
	v.SetDefault("aggregate.finalization_lag_days", 14)
	v.SetDefault("aggregate.sanity_floor_percent", 10.0)
	v.SetDefault("aggregate.default_share_percent", 57.4)

	// Comparison defaults: typical German yearly averages and the EEG
	// 2030 target.
	v.SetDefault("comparison.typical_sun_hours", 4.7)
	v.SetDefault("comparison.typical_wind_kmh", 12.5)
	v.SetDefault("comparison.target_year", 2030)
	v.SetDefault("comparison.target_share_percent", 80.0)

	// Cache defaults
	v.SetDefault("cache.ttl", "1h")
	v.SetDefault("cache.size", 64)

	// Logging defaults
	v.SetDefault("logging.level", "info")
}

func parseConfig(v *viper.Viper) (*Config, error) {
	var cfg Config

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}
