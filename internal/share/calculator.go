package share

import (
	"time"

	"renewshare/internal/models"
)

// Compute reduces two independently-lagging series to a single as-of energy
// ratio. Both providers publish on unpredictable lags, so the only
// time-congruent window is the one both have reported: everything after the
// bottleneck timestamp is discarded from both sides before summing.
func Compute(generation, consumption models.Series, now time.Time) models.DailyShare {
	cutoff := Bottleneck(generation, consumption, now)

	renewableMWh := GenerationMWhThrough(generation, cutoff)
	consumptionMWh := ConsumptionMWhThrough(consumption, cutoff)

	return models.DailyShare{
		RenewableMWh:   renewableMWh,
		ConsumptionMWh: consumptionMWh,
		SharePercent:   Percent(renewableMWh, consumptionMWh),
		AsOf:           cutoff,
	}
}

// Bottleneck returns the latest instant both sources have reported up to:
// the minimum of the two last-reported timestamps. A side with no data
// degrades to now, so the bottleneck becomes the other side's last point,
// or now when both are empty.
func Bottleneck(generation, consumption models.Series, now time.Time) time.Time {
	genLast := lastOr(generation, now)
	consLast := lastOr(consumption, now)
	if genLast.Before(consLast) {
		return genLast
	}
	return consLast
}

func lastOr(s models.Series, fallback time.Time) time.Time {
	if s.Empty() || s.LastReported.IsZero() {
		return fallback
	}
	return s.LastReported
}

// GenerationMWh sums a generation series, converting each instantaneous MW
// reading to energy via the 15-minute sample duration.
func GenerationMWh(s models.Series) float64 {
	total := 0.0
	for _, sample := range s.Samples {
		total += sample.Value * models.GenerationSampleHours
	}
	return total
}

// GenerationMWhThrough sums only generation samples at or before cutoff.
func GenerationMWhThrough(s models.Series, cutoff time.Time) float64 {
	total := 0.0
	for _, sample := range s.Samples {
		if !sample.Timestamp.After(cutoff) {
			total += sample.Value * models.GenerationSampleHours
		}
	}
	return total
}

// ConsumptionMWh sums a consumption series; samples are already
// energy-valued.
func ConsumptionMWh(s models.Series) float64 {
	total := 0.0
	for _, sample := range s.Samples {
		total += sample.Value
	}
	return total
}

// ConsumptionMWhThrough sums only consumption samples at or before cutoff.
func ConsumptionMWhThrough(s models.Series, cutoff time.Time) float64 {
	total := 0.0
	for _, sample := range s.Samples {
		if !sample.Timestamp.After(cutoff) {
			total += sample.Value
		}
	}
	return total
}

// Percent is the renewable share of consumption as a percentage, defined as
// 0 when consumption is 0 so downstream ordering never sees NaN.
func Percent(renewableMWh, consumptionMWh float64) float64 {
	if consumptionMWh <= 0 {
		return 0
	}
	return renewableMWh / consumptionMWh * 100
}
