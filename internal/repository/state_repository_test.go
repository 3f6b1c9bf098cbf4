package repository

import (
	"context"
	"io"
	"testing"
	"time"

	"renewshare/internal/models"
	"renewshare/pkg/database"
	"renewshare/pkg/logging"
	"renewshare/pkg/metrics"
)

// Shared across all tests in this package; promauto registers globally.
var testMetrics = metrics.NewCollector("renewshare_repository_test")

const schemaSQL = `
CREATE TABLE yearly_state (
    year INTEGER PRIMARY KEY,
    finalized_date TEXT,
    finalized_renewable_mwh DOUBLE PRECISION NOT NULL DEFAULT 0,
    finalized_consumption_mwh DOUBLE PRECISION NOT NULL DEFAULT 0,
    renewable_share_percent DOUBLE PRECISION NOT NULL DEFAULT 0,
    version BIGINT NOT NULL DEFAULT 0,
    updated_at TIMESTAMP NOT NULL
)`

func newTestRepository(t *testing.T) StateRepository {
	t.Helper()

	logger := logging.NewStructuredLogger("test", "test", logging.ErrorLevel)
	logger.SetOutput(io.Discard)

	db, err := database.NewDB(&database.Config{
		Driver: "sqlite",
		Path:   ":memory:",
	}, logger, testMetrics)
	if err != nil {
		t.Fatalf("failed to open in-memory database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if _, err := db.ExecContext(context.Background(), "create_schema", schemaSQL); err != nil {
		t.Fatalf("failed to create schema: %v", err)
	}

	return NewStateRepository(db, logger, testMetrics)
}

// TestStateRepository_GetNotFound tests the empty-state read
func TestStateRepository_GetNotFound(t *testing.T) {
	repo := newTestRepository(t)

	_, err := repo.Get(context.Background(), 2026)
	if err == nil {
		t.Fatal("Get() should fail for a missing year")
	}
	if _, ok := err.(*NotFoundError); !ok {
		t.Errorf("error type = %T, want *NotFoundError", err)
	}
}

// TestStateRepository_SaveAndGet tests the insert and read-back round trip
func TestStateRepository_SaveAndGet(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	finalized := models.Date(2026, time.January, 6)
	state := &models.YearlyState{
		Year:                    2026,
		FinalizedDate:           &finalized,
		FinalizedRenewableMWh:   6000,
		FinalizedConsumptionMWh: 12000,
		RenewableSharePercent:   50,
	}

	if err := repo.Save(ctx, state, 0); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if state.Version != 1 {
		t.Errorf("Version after insert = %d, want 1", state.Version)
	}

	got, err := repo.Get(ctx, 2026)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}

	if got.FinalizedDate == nil || !got.FinalizedDate.Equal(finalized) {
		t.Errorf("FinalizedDate = %v, want %v", got.FinalizedDate, finalized)
	}
	if got.FinalizedRenewableMWh != 6000 {
		t.Errorf("FinalizedRenewableMWh = %v, want 6000", got.FinalizedRenewableMWh)
	}
	if got.FinalizedConsumptionMWh != 12000 {
		t.Errorf("FinalizedConsumptionMWh = %v, want 12000", got.FinalizedConsumptionMWh)
	}
	if got.RenewableSharePercent != 50 {
		t.Errorf("RenewableSharePercent = %v, want 50", got.RenewableSharePercent)
	}
	if got.Version != 1 {
		t.Errorf("Version = %d, want 1", got.Version)
	}
}

// TestStateRepository_SaveNilFinalizedDate tests the pre-finalization record
func TestStateRepository_SaveNilFinalizedDate(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	state := &models.YearlyState{
		Year:                  2026,
		RenewableSharePercent: 48.3,
	}
	if err := repo.Save(ctx, state, 0); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := repo.Get(ctx, 2026)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.FinalizedDate != nil {
		t.Errorf("FinalizedDate = %v, want nil", got.FinalizedDate)
	}
}

// TestStateRepository_SaveCAS tests compare-and-swap update semantics
func TestStateRepository_SaveCAS(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	state := &models.YearlyState{Year: 2026, RenewableSharePercent: 50}
	if err := repo.Save(ctx, state, 0); err != nil {
		t.Fatalf("insert error = %v", err)
	}

	// Update with the current version succeeds and bumps it.
	state.RenewableSharePercent = 51
	if err := repo.Save(ctx, state, 1); err != nil {
		t.Fatalf("update error = %v", err)
	}
	if state.Version != 2 {
		t.Errorf("Version after update = %d, want 2", state.Version)
	}

	// A writer holding the old version loses the race.
	stale := &models.YearlyState{Year: 2026, RenewableSharePercent: 49}
	err := repo.Save(ctx, stale, 1)
	if err == nil {
		t.Fatal("stale Save() should fail")
	}
	if _, ok := err.(*ConflictError); !ok {
		t.Errorf("error type = %T, want *ConflictError", err)
	}

	// The losing write left nothing behind.
	got, err := repo.Get(ctx, 2026)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.RenewableSharePercent != 51 {
		t.Errorf("RenewableSharePercent = %v, want 51", got.RenewableSharePercent)
	}
	if got.Version != 2 {
		t.Errorf("Version = %d, want 2", got.Version)
	}
}

// TestStateRepository_InsertConflict tests a concurrent first insert
func TestStateRepository_InsertConflict(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	if err := repo.Save(ctx, &models.YearlyState{Year: 2026}, 0); err != nil {
		t.Fatalf("insert error = %v", err)
	}

	// A second writer that also observed no record hits the primary key.
	err := repo.Save(ctx, &models.YearlyState{Year: 2026}, 0)
	if err == nil {
		t.Fatal("duplicate insert should fail")
	}
	if _, ok := err.(*ConflictError); !ok {
		t.Errorf("error type = %T, want *ConflictError", err)
	}
}

// TestStateRepository_DeleteOtherYears tests rollover cleanup
func TestStateRepository_DeleteOtherYears(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	for _, year := range []int{2024, 2025, 2026} {
		if err := repo.Save(ctx, &models.YearlyState{Year: year}, 0); err != nil {
			t.Fatalf("insert %d error = %v", year, err)
		}
	}

	if err := repo.DeleteOtherYears(ctx, 2026); err != nil {
		t.Fatalf("DeleteOtherYears() error = %v", err)
	}

	if _, err := repo.Get(ctx, 2026); err != nil {
		t.Errorf("kept year missing: %v", err)
	}
	for _, year := range []int{2024, 2025} {
		if _, err := repo.Get(ctx, year); err == nil {
			t.Errorf("superseded year %d still present", year)
		}
	}
}
