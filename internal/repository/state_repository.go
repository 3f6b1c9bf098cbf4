package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"renewshare/internal/models"
	"renewshare/pkg/database"
	"renewshare/pkg/logging"
	"renewshare/pkg/metrics"
)

// StateRepository provides access to the persisted yearly aggregate record.
// The record is a versioned key-value entry (key = year): every Save is a
// whole-record write guarded by compare-and-swap on Version, so readers never
// observe partial totals with a stale finalized date.
type StateRepository interface {
	// Get returns the record for a year, or NotFoundError.
	Get(ctx context.Context, year int) (*models.YearlyState, error)

	// Save writes the record if the stored version still equals
	// expectedVersion (0 = no record yet). On success the state's Version
	// and UpdatedAt are advanced in place. A stale expectedVersion yields
	// ConflictError and no write.
	Save(ctx context.Context, state *models.YearlyState, expectedVersion int64) error

	// DeleteOtherYears removes superseded records; only the current
	// year's record is retained across a rollover.
	DeleteOtherYears(ctx context.Context, keepYear int) error

	HealthCheck(ctx context.Context) error
}

const dateLayout = "2006-01-02"

// stateRepository implements StateRepository over sqlx
type stateRepository struct {
	db      *database.DB
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// NewStateRepository creates a new yearly state repository
func NewStateRepository(db *database.DB, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) StateRepository {
	return &stateRepository{
		db:      db,
		logger:  logger,
		metrics: metricsCollector,
	}
}

type stateRow struct {
	Year                    int            `db:"year"`
	FinalizedDate           sql.NullString `db:"finalized_date"`
	FinalizedRenewableMWh   float64        `db:"finalized_renewable_mwh"`
	FinalizedConsumptionMWh float64        `db:"finalized_consumption_mwh"`
	RenewableSharePercent   float64        `db:"renewable_share_percent"`
	Version                 int64          `db:"version"`
	UpdatedAt               time.Time      `db:"updated_at"`
}

func (r *stateRow) toModel() (*models.YearlyState, error) {
	state := &models.YearlyState{
		Year:                    r.Year,
		FinalizedRenewableMWh:   r.FinalizedRenewableMWh,
		FinalizedConsumptionMWh: r.FinalizedConsumptionMWh,
		RenewableSharePercent:   r.RenewableSharePercent,
		Version:                 r.Version,
		UpdatedAt:               r.UpdatedAt.UTC(),
	}

	if r.FinalizedDate.Valid && r.FinalizedDate.String != "" {
		d, err := time.Parse(dateLayout, r.FinalizedDate.String)
		if err != nil {
			return nil, fmt.Errorf("corrupt finalized_date %q: %w", r.FinalizedDate.String, err)
		}
		state.FinalizedDate = &d
	}

	return state, nil
}

func finalizedDateColumn(state *models.YearlyState) sql.NullString {
	if state.FinalizedDate == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: state.FinalizedDate.Format(dateLayout), Valid: true}
}

// Get retrieves the yearly state record
func (r *stateRepository) Get(ctx context.Context, year int) (*models.YearlyState, error) {
	query := `
		SELECT year, finalized_date,
		       finalized_renewable_mwh, finalized_consumption_mwh,
		       renewable_share_percent, version, updated_at
		FROM yearly_state
		WHERE year = ?
	`

	var row stateRow
	err := r.db.GetContext(ctx, "get_yearly_state", &row, query, year)

	if err == sql.ErrNoRows {
		return nil, &NotFoundError{
			Resource: "yearly_state",
			ID:       fmt.Sprintf("%d", year),
		}
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get yearly state: %w", err)
	}

	return row.toModel()
}

// Save writes the record under compare-and-swap semantics
func (r *stateRepository) Save(ctx context.Context, state *models.YearlyState, expectedVersion int64) error {
	now := time.Now().UTC()
	newVersion := expectedVersion + 1

	if expectedVersion == 0 {
		// No prior record expected: insert. A unique-key failure means a
		// concurrent writer created the record first.
		query := `
			INSERT INTO yearly_state (
				year, finalized_date,
				finalized_renewable_mwh, finalized_consumption_mwh,
				renewable_share_percent, version, updated_at
			)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`

		_, err := r.db.ExecContext(ctx, "insert_yearly_state", query,
			state.Year,
			finalizedDateColumn(state),
			state.FinalizedRenewableMWh,
			state.FinalizedConsumptionMWh,
			state.RenewableSharePercent,
			newVersion,
			now,
		)
		if err != nil {
			if _, getErr := r.Get(ctx, state.Year); getErr == nil {
				r.metrics.CASConflictsTotal.Inc()
				return &ConflictError{Year: state.Year, ExpectedVersion: expectedVersion}
			}
			return fmt.Errorf("failed to insert yearly state: %w", err)
		}
	} else {
		query := `
			UPDATE yearly_state SET
				finalized_date = ?,
				finalized_renewable_mwh = ?,
				finalized_consumption_mwh = ?,
				renewable_share_percent = ?,
				version = ?,
				updated_at = ?
			WHERE year = ? AND version = ?
		`

		result, err := r.db.ExecContext(ctx, "update_yearly_state", query,
			finalizedDateColumn(state),
			state.FinalizedRenewableMWh,
			state.FinalizedConsumptionMWh,
			state.RenewableSharePercent,
			newVersion,
			now,
			state.Year,
			expectedVersion,
		)
		if err != nil {
			return fmt.Errorf("failed to update yearly state: %w", err)
		}

		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to read update result: %w", err)
		}
		if affected == 0 {
			r.metrics.CASConflictsTotal.Inc()
			return &ConflictError{Year: state.Year, ExpectedVersion: expectedVersion}
		}
	}

	state.Version = newVersion
	state.UpdatedAt = now

	r.logger.Debug(ctx, "[REPO_SAVE_STATE] Yearly state persisted", logging.Fields{
		"year":    state.Year,
		"version": state.Version,
	})

	return nil
}

// DeleteOtherYears removes records for all years except keepYear
func (r *stateRepository) DeleteOtherYears(ctx context.Context, keepYear int) error {
	query := `DELETE FROM yearly_state WHERE year <> ?`

	result, err := r.db.ExecContext(ctx, "delete_other_years", query, keepYear)
	if err != nil {
		return fmt.Errorf("failed to delete superseded yearly states: %w", err)
	}

	if affected, err := result.RowsAffected(); err == nil && affected > 0 {
		r.logger.Info(ctx, "[REPO_ROLLOVER] Superseded yearly states removed", logging.Fields{
			"keep_year": keepYear,
			"removed":   affected,
		})
	}

	return nil
}

// HealthCheck performs a repository health check
func (r *stateRepository) HealthCheck(ctx context.Context) error {
	return r.db.HealthCheck(ctx)
}

// NotFoundError represents a resource not found error
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

func (e *NotFoundError) IsTransient() bool {
	return false
}

// ConflictError signals a lost compare-and-swap race: another update
// committed between this caller's read and write.
type ConflictError struct {
	Year            int
	ExpectedVersion int64
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("yearly state for %d changed concurrently (expected version %d)", e.Year, e.ExpectedVersion)
}

func (e *ConflictError) IsTransient() bool {
	return true
}
