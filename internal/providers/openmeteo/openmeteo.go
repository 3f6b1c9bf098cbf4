// Package openmeteo fetches daily sunshine and wind figures from the
// Open-Meteo forecast API and averages them across reference cities.
package openmeteo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"renewshare/internal/models"
	"renewshare/internal/providers"
	"renewshare/pkg/logging"
	"renewshare/pkg/metrics"
)

const (
	sourceName = "openmeteo"

	defaultBaseURL    = "https://api.open-meteo.com/v1/forecast"
	defaultTimezone   = "Europe/Berlin"
	defaultTimeout    = 15 * time.Second
	defaultMaxRetries = 2
)

// City is a reference location contributing to the national average.
type City struct {
	Name      string
	Latitude  float64
	Longitude float64
}

// Config configures the Open-Meteo client.
type Config struct {
	BaseURL    string
	Timezone   string
	Timeout    time.Duration
	MaxRetries int
	Cities     []City
}

// Client implements providers.WeatherSource.
type Client struct {
	config  Config
	client  *http.Client
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// New creates an Open-Meteo client, filling config defaults.
func New(cfg Config, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) (*Client, error) {
	if len(cfg.Cities) == 0 {
		return nil, fmt.Errorf("openmeteo: at least one city is required")
	}
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if strings.TrimSpace(cfg.Timezone) == "" {
		cfg.Timezone = defaultTimezone
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = defaultMaxRetries
	}

	return &Client{
		config:  cfg,
		client:  &http.Client{Timeout: cfg.Timeout},
		logger:  logger,
		metrics: metricsCollector,
	}, nil
}

type forecastDocument struct {
	Daily struct {
		SunshineDuration []float64 `json:"sunshine_duration"`
		WindSpeedMax     []float64 `json:"wind_speed_10m_max"`
	} `json:"daily"`
}

// FetchWeather averages sunshine hours and peak wind speed across the
// configured cities for one day. Cities with missing daily blocks are
// skipped; all cities missing is an error.
func (c *Client) FetchWeather(ctx context.Context, date time.Time) (models.WeatherSummary, error) {
	day := date.Format("2006-01-02")

	var sunTotal, windTotal float64
	reported := 0

	for _, city := range c.config.Cities {
		doc, err := c.fetchCity(ctx, city, day)
		if err != nil {
			return models.WeatherSummary{}, err
		}
		if len(doc.Daily.SunshineDuration) == 0 || len(doc.Daily.WindSpeedMax) == 0 {
			c.logger.Warn(ctx, "[WEATHER_CITY_SKIP] City returned no daily block", logging.Fields{
				"city": city.Name,
				"date": day,
			})
			continue
		}
		sunTotal += doc.Daily.SunshineDuration[0] / models.SecondsPerHour
		windTotal += doc.Daily.WindSpeedMax[0]
		reported++
	}

	if reported == 0 {
		c.metrics.RecordFetchError(sourceName, "empty_data")
		return models.WeatherSummary{}, &providers.TransientError{
			Source: sourceName,
			Op:     "fetch daily weather",
			Err:    fmt.Errorf("no city reported a daily block for %s", day),
		}
	}

	return models.WeatherSummary{
		SunHours:     sunTotal / float64(reported),
		WindSpeedKmh: windTotal / float64(reported),
	}, nil
}

func (c *Client) fetchCity(ctx context.Context, city City, day string) (*forecastDocument, error) {
	params := url.Values{}
	params.Set("latitude", strconv.FormatFloat(city.Latitude, 'f', -1, 64))
	params.Set("longitude", strconv.FormatFloat(city.Longitude, 'f', -1, 64))
	params.Set("daily", "sunshine_duration,wind_speed_10m_max")
	params.Set("timezone", c.config.Timezone)
	params.Set("start_date", day)
	params.Set("end_date", day)

	endpoint := c.config.BaseURL + "?" + params.Encode()

	body, err := providers.FetchBytes(ctx, c.client, sourceName, endpoint, c.config.MaxRetries, c.metrics)
	if err != nil {
		return nil, err
	}

	var doc forecastDocument
	if err := json.Unmarshal(body, &doc); err != nil {
		c.metrics.RecordFetchError(sourceName, "parse_error")
		return nil, &providers.TransientError{Source: sourceName, Op: "parse forecast", Err: err}
	}

	return &doc, nil
}
