package services

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/rickar/cal/v2"
	"github.com/rickar/cal/v2/de"

	"renewshare/internal/config"
	"renewshare/internal/models"
	"renewshare/internal/providers"
	"renewshare/internal/share"
	"renewshare/pkg/logging"
	"renewshare/pkg/metrics"
)

// ShareService computes the per-day renewable share and assembles the
// comparison report around it. Upstream responses are memoized with a TTL so
// repeated requests within the hour hit the feeds once; the yearly
// aggregation path never reads these caches.
type ShareService struct {
	generation  providers.GenerationSource
	consumption providers.ConsumptionSource
	weather     providers.WeatherSource
	yearly      *YearlyService
	config      config.ComparisonConfig
	logger      *logging.StructuredLogger
	metrics     *metrics.Collector

	shareCache   *expirable.LRU[string, models.DailyShare]
	weatherCache *expirable.LRU[string, models.WeatherSummary]
	holidays     *cal.BusinessCalendar
}

// NewShareService creates a new daily share service
func NewShareService(
	generation providers.GenerationSource,
	consumption providers.ConsumptionSource,
	weather providers.WeatherSource,
	yearly *YearlyService,
	comparisonCfg config.ComparisonConfig,
	cacheCfg config.CacheConfig,
	logger *logging.StructuredLogger,
	metricsCollector *metrics.Collector,
) *ShareService {
	holidays := cal.NewBusinessCalendar()
	holidays.AddHoliday(de.Holidays...)

	return &ShareService{
		generation:   generation,
		consumption:  consumption,
		weather:      weather,
		yearly:       yearly,
		config:       comparisonCfg,
		logger:       logger,
		metrics:      metricsCollector,
		shareCache:   expirable.NewLRU[string, models.DailyShare](cacheCfg.Size, nil, cacheCfg.TTL),
		weatherCache: expirable.NewLRU[string, models.WeatherSummary](cacheCfg.Size, nil, cacheCfg.TTL),
		holidays:     holidays,
	}
}

// ComputeDailyShare returns the renewable share of consumption for one day,
// aligned to the bottleneck timestamp both feeds have reported up to.
func (s *ShareService) ComputeDailyShare(ctx context.Context, date time.Time) (models.DailyShare, error) {
	date = models.DateOf(date)
	key := date.Format("2006-01-02")

	if cached, ok := s.shareCache.Get(key); ok {
		s.metrics.RecordCacheHit("share")
		return cached, nil
	}
	s.metrics.RecordCacheMiss("share")

	genSeries, err := s.generation.FetchGeneration(ctx, date, date)
	if err != nil {
		return models.DailyShare{}, fmt.Errorf("generation fetch failed: %w", err)
	}

	consSeries, err := s.consumption.FetchConsumption(ctx, date, date)
	if err != nil {
		return models.DailyShare{}, fmt.Errorf("consumption fetch failed: %w", err)
	}

	result := share.Compute(genSeries, consSeries, time.Now().UTC())
	s.metrics.DailySharePercent.Set(result.SharePercent)

	s.logger.Info(ctx, "[DAILY_SHARE] Computed daily renewable share", logging.Fields{
		"date":          key,
		"share_percent": result.SharePercent,
		"as_of":         result.AsOf.Format(time.RFC3339),
	})

	s.shareCache.Add(key, result)
	return result, nil
}

// FetchWeather returns the averaged city weather for one day, memoized.
func (s *ShareService) FetchWeather(ctx context.Context, date time.Time) (models.WeatherSummary, error) {
	date = models.DateOf(date)
	key := date.Format("2006-01-02")

	if cached, ok := s.weatherCache.Get(key); ok {
		s.metrics.RecordCacheHit("weather")
		return cached, nil
	}
	s.metrics.RecordCacheMiss("weather")

	summary, err := s.weather.FetchWeather(ctx, date)
	if err != nil {
		return models.WeatherSummary{}, fmt.Errorf("weather fetch failed: %w", err)
	}

	s.weatherCache.Add(key, summary)
	return summary, nil
}

// ClassifyDay labels a date as holiday, weekend or working day using the
// German nationwide holiday calendar.
func (s *ShareService) ClassifyDay(date time.Time) models.DayType {
	if actual, observed, _ := s.holidays.IsHoliday(date); actual || observed {
		return models.DayTypeHoliday
	}
	switch date.Weekday() {
	case time.Saturday, time.Sunday:
		return models.DayTypeWeekend
	}
	return models.DayTypeWorking
}

// BuildComparison assembles the full presentation payload for a day:
// today's share, the weather, the day type and the deltas against the
// yearly average and the typical-year reference values.
func (s *ShareService) BuildComparison(ctx context.Context, date time.Time) (*models.ComparisonReport, error) {
	date = models.DateOf(date)

	daily, err := s.ComputeDailyShare(ctx, date)
	if err != nil {
		return nil, err
	}

	weatherSummary, err := s.FetchWeather(ctx, date)
	if err != nil {
		return nil, err
	}

	yearlyShare, err := s.yearly.DisplayShare(ctx, date.Year())
	if err != nil {
		return nil, err
	}

	dayType := s.ClassifyDay(date)

	yearsToTarget := s.config.TargetYear - date.Year()
	if yearsToTarget < 0 {
		yearsToTarget = 0
	}

	return &models.ComparisonReport{
		Share:              daily,
		Weather:            weatherSummary,
		DayType:            dayType,
		DemandHint:         dayType.DemandHint(),
		YearlySharePercent: yearlyShare,
		ShareDeltaPercent:  daily.SharePercent - yearlyShare,
		SunDeltaHours:      weatherSummary.SunHours - s.config.TypicalSunHours,
		WindDeltaKmh:       weatherSummary.WindSpeedKmh - s.config.TypicalWindKmh,
		TargetYear:         s.config.TargetYear,
		TargetSharePercent: s.config.TargetSharePercent,
		YearsToTarget:      yearsToTarget,
	}, nil
}
