// Package smard fetches total electricity consumption for Germany from the
// SMARD chart-data endpoints of the Bundesnetzagentur.
package smard

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"renewshare/internal/models"
	"renewshare/internal/providers"
	"renewshare/pkg/logging"
	"renewshare/pkg/metrics"
)

const (
	sourceName = "smard"

	defaultBaseURL    = "https://www.smard.de/app/chart_data"
	defaultFilterID   = "410" // total consumption
	defaultRegion     = "DE"
	defaultTimeout    = 30 * time.Second
	defaultMaxRetries = 3

	// SMARD publishes hourly data in week-sized block files keyed by the
	// block's first millisecond timestamp.
	blockSpan = 7 * 24 * time.Hour
)

// Config configures the SMARD client.
type Config struct {
	BaseURL    string
	FilterID   string
	Region     string
	Timeout    time.Duration
	MaxRetries int
}

// Client implements providers.ConsumptionSource.
type Client struct {
	config  Config
	client  *http.Client
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// New creates a SMARD client, filling config defaults.
func New(cfg Config, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *Client {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if strings.TrimSpace(cfg.FilterID) == "" {
		cfg.FilterID = defaultFilterID
	}
	if strings.TrimSpace(cfg.Region) == "" {
		cfg.Region = defaultRegion
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
	}
}

type indexDocument struct {
	Timestamps []int64 `json:"timestamps"`
}

type blockDocument struct {
	// Each entry is [millisecond timestamp, value]; value is null while
	// the hour is unreported.
	Series [][2]*float64 `json:"series"`
}

// FetchConsumption returns hourly consumption samples for the inclusive
// date range [start, end], sorted ascending, with the source-reported last
// datapoint timestamp. Null entries are skipped; an empty result is not an
// error here.
func (c *Client) FetchConsumption(ctx context.Context, start, end time.Time) (models.Series, error) {
	windowStart := models.DateOf(start)
	windowEnd := models.DateOf(end).Add(24 * time.Hour)

	index, err := c.fetchIndex(ctx)
	if err != nil {
		return models.Series{}, err
	}

	startMs := windowStart.UnixMilli()
	endMs := windowEnd.UnixMilli()
	spanMs := blockSpan.Milliseconds()

	var series models.Series
	blocks := 0
	for _, blockTs := range index.Timestamps {
		// Skip blocks that cannot overlap the requested window.
		if blockTs >= endMs || blockTs+spanMs <= startMs {
			continue
		}

		block, err := c.fetchBlock(ctx, blockTs)
		if err != nil {
			return models.Series{}, err
		}
		blocks++

		for _, entry := range block.Series {
			if entry[0] == nil || entry[1] == nil {
				continue
			}
			ms := int64(*entry[0])
			if ms < startMs || ms >= endMs {
				continue
			}
			series.Samples = append(series.Samples, models.TimeSample{
				Timestamp: time.UnixMilli(ms).UTC(),
				Value:     *entry[1],
			})
		}
	}

	series.SortSamples()
	if n := len(series.Samples); n > 0 {
		series.LastReported = series.Samples[n-1].Timestamp
	}

	c.logger.Debug(ctx, "[SMARD_FETCH] Consumption fetched", logging.Fields{
		"start":   windowStart.Format("2006-01-02"),
		"end":     end.Format("2006-01-02"),
		"blocks":  blocks,
		"samples": len(series.Samples),
	})

	return series, nil
}

func (c *Client) fetchIndex(ctx context.Context) (*indexDocument, error) {
	url := fmt.Sprintf("%s/%s/%s/index_hour.json",
		strings.TrimRight(c.config.BaseURL, "/"), c.config.FilterID, c.config.Region)

	body, err := providers.FetchBytes(ctx, c.client, sourceName, url, c.config.MaxRetries, c.metrics)
	if err != nil {
		return nil, err
	}

	var index indexDocument
	if err := json.Unmarshal(body, &index); err != nil {
		c.metrics.RecordFetchError(sourceName, "parse_error")
		return nil, &providers.TransientError{Source: sourceName, Op: "parse index", Err: err}
	}
	if len(index.Timestamps) == 0 {
		c.metrics.RecordFetchError(sourceName, "empty_index")
		return nil, &providers.TransientError{Source: sourceName, Op: "parse index", Err: fmt.Errorf("empty timestamp index")}
	}

	return &index, nil
}

func (c *Client) fetchBlock(ctx context.Context, blockTs int64) (*blockDocument, error) {
	url := fmt.Sprintf("%s/%s/%s/%s_%s_hour_%d.json",
		strings.TrimRight(c.config.BaseURL, "/"),
		c.config.FilterID, c.config.Region,
		c.config.FilterID, c.config.Region, blockTs)

	body, err := providers.FetchBytes(ctx, c.client, sourceName, url, c.config.MaxRetries, c.metrics)
	if err != nil {
		return nil, err
	}

	var block blockDocument
	if err := json.Unmarshal(body, &block); err != nil {
		c.metrics.RecordFetchError(sourceName, "parse_error")
		return nil, &providers.TransientError{Source: sourceName, Op: "parse block", Err: err}
	}

	return &block, nil
}
