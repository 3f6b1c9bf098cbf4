package models

import (
	"fmt"
	"sort"
	"time"
)

// Unit conversion constants, tied to each source's declared sampling
// resolution. A resolution change in a provider feed is a one-point fix here.
const (
	// GenerationSampleHours is the duration of a single ENTSO-E generation
	// sample (15-minute resolution) in hours. An instantaneous MW reading
	// times this value is the energy of the sample in MWh.
	GenerationSampleHours = 0.25

	// SecondsPerHour converts Open-Meteo sunshine durations (reported in
	// seconds) to hours.
	SecondsPerHour = 3600.0
)

// TimeSample is a single (timestamp, value) reading from a source feed.
// The unit is source-specific: MW for generation, MWh for consumption.
type TimeSample struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
}

// Series is a normalized sample sequence from one source together with the
// source-reported last-datapoint timestamp. Samples are not assumed sorted
// on arrival; consumers call SortSamples before windowing.
type Series struct {
	Samples      []TimeSample `json:"samples"`
	LastReported time.Time    `json:"last_reported"`
}

// Empty reports whether the series carries no samples.
func (s Series) Empty() bool {
	return len(s.Samples) == 0
}

// SortSamples orders samples by ascending timestamp.
func (s *Series) SortSamples() {
	sort.Slice(s.Samples, func(i, j int) bool {
		return s.Samples[i].Timestamp.Before(s.Samples[j].Timestamp)
	})
}

// DailyShare is the ephemeral per-request result of the alignment
// calculation: both totals cover exactly the window up to AsOf.
type DailyShare struct {
	RenewableMWh   float64   `json:"renewable_mwh"`
	ConsumptionMWh float64   `json:"consumption_mwh"`
	SharePercent   float64   `json:"share_percent"`
	AsOf           time.Time `json:"as_of"`
}

// YearlyState is the persisted running aggregate for one calendar year.
// At most one record is live; a year rollover supersedes the old record,
// it is never merged. FinalizedDate is nil until the first finalization.
//
// Invariants maintained by the aggregator:
//   - FinalizedDate is non-decreasing within a year.
//   - The finalized totals only grow, and only by contributions for days
//     strictly after the previous FinalizedDate.
//   - RenewableSharePercent is always recomputed from totals, never edited.
type YearlyState struct {
	Year                    int        `json:"year"`
	FinalizedDate           *time.Time `json:"finalized_date,omitempty"`
	FinalizedRenewableMWh   float64    `json:"finalized_renewable_mwh"`
	FinalizedConsumptionMWh float64    `json:"finalized_consumption_mwh"`
	RenewableSharePercent   float64    `json:"renewable_share_percent"`
	Version                 int64      `json:"version"`
	UpdatedAt               time.Time  `json:"updated_at"`
}

// WeatherSummary is the averaged weather picture across the reference
// cities for a single day. Consumed by presentation only.
type WeatherSummary struct {
	SunHours     float64 `json:"sun_hours"`
	WindSpeedKmh float64 `json:"wind_speed_kmh"`
}

// DayType classifies a calendar day by its expected electricity demand.
type DayType string

const (
	DayTypeWorking DayType = "working_day"
	DayTypeWeekend DayType = "weekend"
	DayTypeHoliday DayType = "holiday"
)

// DemandHint returns the demand direction associated with the day type.
func (d DayType) DemandHint() string {
	if d == DayTypeWorking {
		return "higher demand"
	}
	return "lower demand"
}

// ComparisonReport is the full presentation payload: today's share, the
// weather, the day type and the deltas against yearly and typical values.
type ComparisonReport struct {
	Share              DailyShare     `json:"share"`
	Weather            WeatherSummary `json:"weather"`
	DayType            DayType        `json:"day_type"`
	DemandHint         string         `json:"demand_hint"`
	YearlySharePercent float64        `json:"yearly_share_percent"`
	ShareDeltaPercent  float64        `json:"share_delta_percent"`
	SunDeltaHours      float64        `json:"sun_delta_hours"`
	WindDeltaKmh       float64        `json:"wind_delta_kmh"`
	TargetYear         int            `json:"target_year"`
	TargetSharePercent float64        `json:"target_share_percent"`
	YearsToTarget      int            `json:"years_to_target"`
}

// Date builds a date-only instant at midnight UTC.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// DateOf truncates an instant to its date at midnight UTC.
func DateOf(t time.Time) time.Time {
	return Date(t.Year(), t.Month(), t.Day())
}

// ValidationError represents a data validation failure.
type ValidationError struct {
	Field   string
	Value   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// IsTransient returns false: validation failures are permanent.
func (e *ValidationError) IsTransient() bool {
	return false
}

// ParseDate parses a YYYY-MM-DD date string into a midnight-UTC instant.
func ParseDate(field, value string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, &ValidationError{
			Field:   field,
			Value:   value,
			Message: fmt.Sprintf("invalid %s, expected YYYY-MM-DD", field),
		}
	}
	return DateOf(t), nil
}
