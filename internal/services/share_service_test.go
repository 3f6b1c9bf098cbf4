package services

import (
	"context"
	"testing"
	"time"

	"renewshare/internal/config"
	"renewshare/internal/models"
)

type fakeWeather struct {
	summary models.WeatherSummary
	calls   int
}

func (f *fakeWeather) FetchWeather(_ context.Context, _ time.Time) (models.WeatherSummary, error) {
	f.calls++
	return f.summary, nil
}

func newTestShareService(gen, cons *fakeSource, weather *fakeWeather, repo *fakeStateRepo) *ShareService {
	yearly := newTestService(gen, cons, repo)
	return NewShareService(gen, cons, weather, yearly, config.ComparisonConfig{
		TypicalSunHours:    4.7,
		TypicalWindKmh:     12.5,
		TargetYear:         2030,
		TargetSharePercent: 80.0,
	}, config.CacheConfig{TTL: time.Hour, Size: 16}, testLogger(), testMetrics)
}

// TestShareService_ComputeDailyShare tests the daily calculation and its
// memoization
func TestShareService_ComputeDailyShare(t *testing.T) {
	gen := &fakeSource{perDayValue: genPerDayMW}
	cons := &fakeSource{perDayValue: consPerDayMWh}
	weather := &fakeWeather{}
	svc := newTestShareService(gen, cons, weather, newFakeStateRepo())
	ctx := context.Background()

	date := models.Date(2026, time.March, 10)

	first, err := svc.ComputeDailyShare(ctx, date)
	if err != nil {
		t.Fatalf("ComputeDailyShare() error = %v", err)
	}
	if first.SharePercent != 50 {
		t.Errorf("SharePercent = %v, want 50", first.SharePercent)
	}
	if len(gen.calls) != 1 || len(cons.calls) != 1 {
		t.Fatalf("fetch calls = %d/%d, want 1/1", len(gen.calls), len(cons.calls))
	}

	// Second request within the TTL is served from the cache.
	second, err := svc.ComputeDailyShare(ctx, date)
	if err != nil {
		t.Fatalf("cached ComputeDailyShare() error = %v", err)
	}
	if len(gen.calls) != 1 || len(cons.calls) != 1 {
		t.Errorf("cached call hit the sources: %d/%d fetches", len(gen.calls), len(cons.calls))
	}
	if second != first {
		t.Errorf("cached result = %+v, want %+v", second, first)
	}

	// A different date misses the cache.
	if _, err := svc.ComputeDailyShare(ctx, date.AddDate(0, 0, 1)); err != nil {
		t.Fatalf("ComputeDailyShare() error = %v", err)
	}
	if len(gen.calls) != 2 {
		t.Errorf("fetch calls = %d, want 2", len(gen.calls))
	}
}

// TestShareService_FetchWeather tests weather memoization
func TestShareService_FetchWeather(t *testing.T) {
	gen := &fakeSource{perDayValue: genPerDayMW}
	cons := &fakeSource{perDayValue: consPerDayMWh}
	weather := &fakeWeather{summary: models.WeatherSummary{SunHours: 6.2, WindSpeedKmh: 18.0}}
	svc := newTestShareService(gen, cons, weather, newFakeStateRepo())
	ctx := context.Background()

	date := models.Date(2026, time.March, 10)

	got, err := svc.FetchWeather(ctx, date)
	if err != nil {
		t.Fatalf("FetchWeather() error = %v", err)
	}
	if got.SunHours != 6.2 || got.WindSpeedKmh != 18.0 {
		t.Errorf("FetchWeather() = %+v", got)
	}

	if _, err := svc.FetchWeather(ctx, date); err != nil {
		t.Fatalf("cached FetchWeather() error = %v", err)
	}
	if weather.calls != 1 {
		t.Errorf("weather source calls = %d, want 1", weather.calls)
	}
}

// TestShareService_ClassifyDay tests the day-type classification
func TestShareService_ClassifyDay(t *testing.T) {
	svc := newTestShareService(
		&fakeSource{perDayValue: genPerDayMW},
		&fakeSource{perDayValue: consPerDayMWh},
		&fakeWeather{},
		newFakeStateRepo(),
	)

	tests := []struct {
		name string
		date time.Time
		want models.DayType
	}{
		{"New Year's Day", models.Date(2026, time.January, 1), models.DayTypeHoliday},
		{"German Unity Day", models.Date(2026, time.October, 3), models.DayTypeHoliday},
		{"Christmas Day", models.Date(2026, time.December, 25), models.DayTypeHoliday},
		{"Saturday", models.Date(2026, time.January, 3), models.DayTypeWeekend},
		{"Sunday", models.Date(2026, time.January, 4), models.DayTypeWeekend},
		{"Monday", models.Date(2026, time.January, 5), models.DayTypeWorking},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := svc.ClassifyDay(tt.date); got != tt.want {
				t.Errorf("ClassifyDay(%s) = %v, want %v", tt.date.Format("2006-01-02"), got, tt.want)
			}
		})
	}
}

// TestShareService_BuildComparison tests the assembled report
func TestShareService_BuildComparison(t *testing.T) {
	gen := &fakeSource{perDayValue: genPerDayMW}
	cons := &fakeSource{perDayValue: consPerDayMWh}
	weather := &fakeWeather{summary: models.WeatherSummary{SunHours: 6.7, WindSpeedKmh: 10.5}}
	repo := newFakeStateRepo()
	repo.states[2026] = &models.YearlyState{
		Year:                  2026,
		RenewableSharePercent: 45.0,
		Version:               3,
	}
	svc := newTestShareService(gen, cons, weather, repo)

	// A Tuesday.
	date := models.Date(2026, time.March, 10)

	report, err := svc.BuildComparison(context.Background(), date)
	if err != nil {
		t.Fatalf("BuildComparison() error = %v", err)
	}

	if report.Share.SharePercent != 50 {
		t.Errorf("Share.SharePercent = %v, want 50", report.Share.SharePercent)
	}
	if report.YearlySharePercent != 45 {
		t.Errorf("YearlySharePercent = %v, want 45", report.YearlySharePercent)
	}
	if report.ShareDeltaPercent != 5 {
		t.Errorf("ShareDeltaPercent = %v, want 5", report.ShareDeltaPercent)
	}
	if got := report.SunDeltaHours; got < 1.999 || got > 2.001 {
		t.Errorf("SunDeltaHours = %v, want 2.0", got)
	}
	if got := report.WindDeltaKmh; got < -2.001 || got > -1.999 {
		t.Errorf("WindDeltaKmh = %v, want -2.0", got)
	}
	if report.DayType != models.DayTypeWorking {
		t.Errorf("DayType = %v, want working_day", report.DayType)
	}
	if report.DemandHint != "higher demand" {
		t.Errorf("DemandHint = %q", report.DemandHint)
	}
	if report.TargetYear != 2030 || report.YearsToTarget != 4 {
		t.Errorf("target = %d in %d years, want 2030 in 4", report.TargetYear, report.YearsToTarget)
	}
}
