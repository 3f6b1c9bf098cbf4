package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"renewshare/internal/config"
	"renewshare/internal/models"
	"renewshare/internal/providers"
	"renewshare/internal/repository"
	"renewshare/internal/share"
	"renewshare/pkg/logging"
	"renewshare/pkg/metrics"
)

// YearlyService maintains the persisted running yearly aggregate. Each
// Update advances the finalization watermark to today minus the lag and
// blends a provisional recent window on top; the recent window is never
// folded into the finalized totals, so late upstream corrections are picked
// up the next time the watermark passes over those days.
type YearlyService struct {
	generation  providers.GenerationSource
	consumption providers.ConsumptionSource
	repo        repository.StateRepository
	config      config.AggregateConfig
	logger      *logging.StructuredLogger
	metrics     *metrics.Collector

	// mu serializes updates within this process. Cross-process races are
	// handled by the repository's compare-and-swap.
	mu sync.Mutex
}

// NewYearlyService creates a new yearly aggregation service
func NewYearlyService(
	generation providers.GenerationSource,
	consumption providers.ConsumptionSource,
	repo repository.StateRepository,
	cfg config.AggregateConfig,
	logger *logging.StructuredLogger,
	metricsCollector *metrics.Collector,
) *YearlyService {
	return &YearlyService{
		generation:  generation,
		consumption: consumption,
		repo:        repo,
		config:      cfg,
		logger:      logger,
		metrics:     metricsCollector,
	}
}

// GetState returns the persisted aggregate for a year, or nil when no
// record exists yet.
func (s *YearlyService) GetState(ctx context.Context, year int) (*models.YearlyState, error) {
	state, err := s.repo.Get(ctx, year)
	if err != nil {
		if _, notFound := err.(*repository.NotFoundError); notFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load yearly state: %w", err)
	}
	return state, nil
}

// DisplayShare returns the share percentage to present for a year: the
// persisted value when a record exists, the configured default otherwise.
// The default is presentation-only and never enters the aggregation math.
func (s *YearlyService) DisplayShare(ctx context.Context, year int) (float64, error) {
	state, err := s.GetState(ctx, year)
	if err != nil {
		return 0, err
	}
	if state == nil {
		return s.config.DefaultSharePercent, nil
	}
	return state.RenewableSharePercent, nil
}

// Update advances the yearly aggregate as of today. lagDays overrides the
// configured finalization lag when positive. The returned state is the
// persisted record after the run; on a no-op run it is returned without any
// upstream fetch.
func (s *YearlyService) Update(ctx context.Context, today time.Time, lagDays int) (*models.YearlyState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	timer := s.metrics.NewTimer(s.metrics.UpdateDuration)
	defer timer.ObserveDuration()

	if lagDays <= 0 {
		lagDays = s.config.FinalizationLagDays
	}
	if today.IsZero() {
		today = time.Now().UTC()
	}

	// The windows are derived once here; a day boundary crossing while the
	// fetches run cannot shift them mid-update.
	today = models.DateOf(today)
	year := today.Year()
	jan1 := models.Date(year, time.January, 1)
	cutoff := today.AddDate(0, 0, -lagDays)

	s.logger.Info(ctx, "[YEARLY_UPDATE_START] Starting yearly aggregate update", logging.Fields{
		"today":    today.Format("2006-01-02"),
		"cutoff":   cutoff.Format("2006-01-02"),
		"lag_days": lagDays,
	})

	state, err := s.loadOrStartState(ctx, year)
	if err != nil {
		s.metrics.RecordUpdateRun("failed")
		return nil, err
	}

	if state.FinalizedDate != nil && !state.FinalizedDate.Before(cutoff) {
		s.metrics.RecordUpdateRun("noop")
		s.logger.Info(ctx, "[YEARLY_UPDATE_NOOP] Aggregate already finalized through cutoff", logging.Fields{
			"year":      year,
			"finalized": state.FinalizedDate.Format("2006-01-02"),
		})
		return state, nil
	}

	next := &models.YearlyState{
		Year:                    year,
		FinalizedDate:           state.FinalizedDate,
		FinalizedRenewableMWh:   state.FinalizedRenewableMWh,
		FinalizedConsumptionMWh: state.FinalizedConsumptionMWh,
	}
	recentStart := jan1

	if !cutoff.Before(jan1) {
		// Finalized phase: fold the settled days since the previous
		// watermark into the totals. Empty data here aborts the run so a
		// partially-reporting upstream can never finalize an undercount.
		fetchStart := jan1
		if state.FinalizedDate != nil {
			fetchStart = state.FinalizedDate.AddDate(0, 0, 1)
		}

		genSeries, consSeries, err := s.fetchBoth(ctx, fetchStart, cutoff)
		if err != nil {
			s.metrics.RecordUpdateRun("failed")
			return nil, err
		}
		if genSeries.Empty() {
			s.metrics.RecordUpdateRun("failed")
			return nil, &providers.EmptyDataError{Source: "generation", Start: fetchStart, End: cutoff}
		}
		if consSeries.Empty() {
			s.metrics.RecordUpdateRun("failed")
			return nil, &providers.EmptyDataError{Source: "consumption", Start: fetchStart, End: cutoff}
		}

		next.FinalizedRenewableMWh += share.GenerationMWh(genSeries)
		next.FinalizedConsumptionMWh += share.ConsumptionMWh(consSeries)
		finalized := cutoff
		next.FinalizedDate = &finalized
		recentStart = cutoff.AddDate(0, 0, 1)

		s.logger.Info(ctx, "[YEARLY_FINALIZE] Finalized totals advanced", logging.Fields{
			"year":            year,
			"window_start":    fetchStart.Format("2006-01-02"),
			"window_end":      cutoff.Format("2006-01-02"),
			"renewable_mwh":   next.FinalizedRenewableMWh,
			"consumption_mwh": next.FinalizedConsumptionMWh,
		})
	} else {
		s.logger.Info(ctx, "[YEARLY_EARLY_YEAR] Cutoff precedes January 1, nothing to finalize yet", logging.Fields{
			"year":   year,
			"cutoff": cutoff.Format("2006-01-02"),
		})
	}

	// Recent phase: the still-settling tail is blended into the published
	// percentage but kept out of the finalized totals. Empty data here only
	// means the tail contributes nothing yet.
	blendedRen := next.FinalizedRenewableMWh
	blendedCons := next.FinalizedConsumptionMWh
	if !recentStart.After(today) {
		recentGen, recentCons, err := s.fetchBoth(ctx, recentStart, today)
		if err != nil {
			s.metrics.RecordUpdateRun("failed")
			return nil, err
		}
		blendedRen += share.GenerationMWh(recentGen)
		blendedCons += share.ConsumptionMWh(recentCons)
	}

	blended := share.Percent(blendedRen, blendedCons)
	if blended < s.config.SanityFloorPercent {
		s.metrics.RecordUpdateRun("rejected")
		s.logger.Warn(ctx, "[YEARLY_SANITY_REJECT] Blended share below plausibility floor, keeping prior state", logging.Fields{
			"year":          year,
			"blended":       blended,
			"floor_percent": s.config.SanityFloorPercent,
		})
		return nil, &ImplausibleResultError{
			SharePercent: blended,
			FloorPercent: s.config.SanityFloorPercent,
		}
	}
	next.RenewableSharePercent = blended

	if err := s.repo.Save(ctx, next, state.Version); err != nil {
		s.metrics.RecordUpdateRun("failed")
		return nil, fmt.Errorf("failed to persist yearly state: %w", err)
	}

	s.metrics.RecordUpdateRun("advanced")
	s.metrics.YearlySharePercent.Set(next.RenewableSharePercent)
	if next.FinalizedDate != nil {
		s.metrics.FinalizedDayOfYear.Set(float64(next.FinalizedDate.YearDay()))
	} else {
		s.metrics.FinalizedDayOfYear.Set(0)
	}

	s.logger.Info(ctx, "[YEARLY_UPDATE_DONE] Yearly aggregate updated", logging.Fields{
		"year":          year,
		"share_percent": next.RenewableSharePercent,
		"version":       next.Version,
	})

	return next, nil
}

// loadOrStartState returns the current year's record, or a zero-valued
// Empty state when none exists. A record for a previous year is superseded,
// never merged: its rows are deleted and the new year starts from scratch.
func (s *YearlyService) loadOrStartState(ctx context.Context, year int) (*models.YearlyState, error) {
	state, err := s.repo.Get(ctx, year)
	if err == nil {
		return state, nil
	}

	if _, notFound := err.(*repository.NotFoundError); !notFound {
		return nil, fmt.Errorf("failed to load yearly state: %w", err)
	}

	if err := s.repo.DeleteOtherYears(ctx, year); err != nil {
		return nil, fmt.Errorf("failed to supersede previous years: %w", err)
	}

	return &models.YearlyState{Year: year}, nil
}

func (s *YearlyService) fetchBoth(ctx context.Context, start, end time.Time) (models.Series, models.Series, error) {
	genSeries, err := s.generation.FetchGeneration(ctx, start, end)
	if err != nil {
		return models.Series{}, models.Series{}, fmt.Errorf("generation fetch failed: %w", err)
	}

	consSeries, err := s.consumption.FetchConsumption(ctx, start, end)
	if err != nil {
		return models.Series{}, models.Series{}, fmt.Errorf("consumption fetch failed: %w", err)
	}

	return genSeries, consSeries, nil
}

// ImplausibleResultError signals that a computed blended share fell below
// the configured plausibility floor and the update was rejected without
// touching persisted state.
type ImplausibleResultError struct {
	SharePercent float64
	FloorPercent float64
}

func (e *ImplausibleResultError) Error() string {
	return fmt.Sprintf("blended share %.2f%% is below the plausibility floor %.2f%%, update rejected",
		e.SharePercent, e.FloorPercent)
}

func (e *ImplausibleResultError) IsTransient() bool {
	return false
}
