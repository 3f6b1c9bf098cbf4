package providers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"renewshare/internal/models"
)

// GenerationSource fetches renewable generation samples (MW at 15-minute
// resolution, renewable source categories only) for an inclusive date range.
type GenerationSource interface {
	FetchGeneration(ctx context.Context, start, end time.Time) (models.Series, error)
}

// ConsumptionSource fetches total consumption samples (MWh at hourly
// resolution) for an inclusive date range.
type ConsumptionSource interface {
	FetchConsumption(ctx context.Context, start, end time.Time) (models.Series, error)
}

// WeatherSource fetches the averaged weather picture for a single day.
type WeatherSource interface {
	FetchWeather(ctx context.Context, date time.Time) (models.WeatherSummary, error)
}

// TransientError wraps a provider failure worth retrying later: timeouts,
// upstream 5xx, malformed payloads.
type TransientError struct {
	Source string
	Op     string
	Err    error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("%s: %s failed: %v", e.Source, e.Op, e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

func (e *TransientError) IsTransient() bool {
	return true
}

// PermanentError wraps a provider failure retrying will not fix: rejected
// credentials, malformed requests, any non-429 4xx response.
type PermanentError struct {
	Source string
	Op     string
	Err    error
}

func (e *PermanentError) Error() string {
	return fmt.Sprintf("%s: %s failed: %v", e.Source, e.Op, e.Err)
}

func (e *PermanentError) Unwrap() error {
	return e.Err
}

func (e *PermanentError) IsTransient() bool {
	return false
}

// EmptyDataError signals a source returned zero samples for a requested
// range. The yearly aggregation path treats this as transient: totals can
// not be finalized on empty data.
type EmptyDataError struct {
	Source string
	Start  time.Time
	End    time.Time
}

func (e *EmptyDataError) Error() string {
	return fmt.Sprintf("%s: no samples for %s..%s",
		e.Source, e.Start.Format("2006-01-02"), e.End.Format("2006-01-02"))
}

func (e *EmptyDataError) IsTransient() bool {
	return true
}

// IsEmptyData reports whether err is an EmptyDataError.
func IsEmptyData(err error) bool {
	var empty *EmptyDataError
	return errors.As(err, &empty)
}
