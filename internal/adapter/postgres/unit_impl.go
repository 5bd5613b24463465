package postgres

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/user/validator-service/internal/entity"
	"github.com/user/validator-service/internal/repository"
)

// UnitRepoImpl provides a concrete implementation for the UnitRepository interface using PostgreSQL.
type UnitRepoImpl struct {
	db *pgxpool.Pool
}

// NewUnitRepo creates a new instance of UnitRepoImpl.
func NewUnitRepo(db *pgxpool.Pool) *UnitRepoImpl {
	return &UnitRepoImpl{db: db}
}

// CreateBatch inserts a pending unit for every country in one batch.
func (r *UnitRepoImpl) CreateBatch(ctx context.Context, cycleID string, countries []string) error {
	batch := &pgx.Batch{}
	for _, country := range countries {
		batch.Queue(`
			INSERT INTO country_units (cycle_id, country_code, status)
			VALUES ($1, $2, 'pending')
			ON CONFLICT (cycle_id, country_code) DO NOTHING;`,
			cycleID, country)
	}
	return r.db.SendBatch(ctx, batch).Close()
}

// ClaimNext atomically claims up to n pending units. SKIP LOCKED makes
// concurrent claimants pass over rows another transaction is claiming, so
// two callers never receive the same country.
func (r *UnitRepoImpl) ClaimNext(ctx context.Context, cycleID string, n int) ([]string, error) {
	query := `
		WITH claimable AS (
			SELECT country_code
			FROM country_units
			WHERE cycle_id = $1 AND status = 'pending'
			ORDER BY country_code
			FOR UPDATE SKIP LOCKED
			LIMIT $2
		)
		UPDATE country_units u
		SET status = 'processing', started_at = now()
		FROM claimable c
		WHERE u.cycle_id = $1 AND u.country_code = c.country_code
		RETURNING u.country_code;
	`
	rows, err := r.db.Query(ctx, query, cycleID, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var claimed []string
	for rows.Next() {
		var country string
		if err := rows.Scan(&country); err != nil {
			return nil, err
		}
		claimed = append(claimed, country)
	}
	return claimed, rows.Err()
}

// Release returns an unstarted processing unit to pending.
func (r *UnitRepoImpl) Release(ctx context.Context, cycleID, country string) error {
	query := `
		UPDATE country_units
		SET status = 'pending', started_at = NULL
		WHERE cycle_id = $1 AND country_code = $2 AND status = 'processing';
	`
	tag, err := r.db.Exec(ctx, query, cycleID, country)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrUnitNotProcessing
	}
	return nil
}

// ReportOutcome records the terminal status of a processing unit. The
// status guard rejects double-reporting without corrupting state.
func (r *UnitRepoImpl) ReportOutcome(ctx context.Context, cycleID, country string, status entity.UnitStatus, errorSummary string, summary *entity.ScanSummary) error {
	var summaryJSON []byte
	if summary != nil {
		var err error
		summaryJSON, err = json.Marshal(summary)
		if err != nil {
			return err
		}
	}

	query := `
		UPDATE country_units
		SET status = $3, completed_at = now(), error_summary = NULLIF($4, ''), summary = $5
		WHERE cycle_id = $1 AND country_code = $2 AND status = 'processing';
	`
	tag, err := r.db.Exec(ctx, query, cycleID, country, string(status), errorSummary, summaryJSON)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrUnitNotProcessing
	}
	return nil
}

// ReclaimStale returns units abandoned in processing back to pending.
func (r *UnitRepoImpl) ReclaimStale(ctx context.Context, cycleID string, olderThan time.Duration) (int, error) {
	query := `
		UPDATE country_units
		SET status = 'pending', started_at = NULL
		WHERE cycle_id = $1 AND status = 'processing'
		  AND started_at < now() - make_interval(secs => $2);
	`
	tag, err := r.db.Exec(ctx, query, cycleID, olderThan.Seconds())
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

// Progress aggregates unit counts by status in a single read.
func (r *UnitRepoImpl) Progress(ctx context.Context, cycleID string) (*entity.CycleProgress, error) {
	query := `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE status = 'completed'),
			COUNT(*) FILTER (WHERE status = 'processing'),
			COUNT(*) FILTER (WHERE status = 'pending'),
			COUNT(*) FILTER (WHERE status = 'failed')
		FROM country_units
		WHERE cycle_id = $1;
	`
	progress := entity.CycleProgress{CycleID: cycleID}
	err := r.db.QueryRow(ctx, query, cycleID).Scan(
		&progress.Total,
		&progress.Completed,
		&progress.Processing,
		&progress.Pending,
		&progress.Failed,
	)
	if err != nil {
		return nil, err
	}
	return &progress, nil
}

// List returns every unit of a cycle ordered by country code.
func (r *UnitRepoImpl) List(ctx context.Context, cycleID string) ([]entity.CountryUnit, error) {
	query := `
		SELECT cycle_id, country_code, status, started_at, completed_at,
		       COALESCE(error_summary, ''), COALESCE(progress_handle, ''), summary
		FROM country_units
		WHERE cycle_id = $1
		ORDER BY country_code;
	`
	rows, err := r.db.Query(ctx, query, cycleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var units []entity.CountryUnit
	for rows.Next() {
		var unit entity.CountryUnit
		var status string
		var summaryJSON []byte
		if err := rows.Scan(
			&unit.CycleID,
			&unit.CountryCode,
			&status,
			&unit.StartedAt,
			&unit.CompletedAt,
			&unit.ErrorSummary,
			&unit.ProgressHandle,
			&summaryJSON,
		); err != nil {
			return nil, err
		}
		unit.Status = entity.UnitStatus(status)
		if len(summaryJSON) > 0 {
			var summary entity.ScanSummary
			if err := json.Unmarshal(summaryJSON, &summary); err != nil {
				return nil, err
			}
			unit.Summary = &summary
		}
		units = append(units, unit)
	}
	return units, rows.Err()
}

// SetProgressHandle stamps the progress-sink reference on the cycle's units.
func (r *UnitRepoImpl) SetProgressHandle(ctx context.Context, cycleID, handle string) error {
	query := `
		UPDATE country_units
		SET progress_handle = $2
		WHERE cycle_id = $1 AND progress_handle IS NULL;
	`
	_, err := r.db.Exec(ctx, query, cycleID, handle)
	return err
}
