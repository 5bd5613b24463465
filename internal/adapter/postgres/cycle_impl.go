package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/user/validator-service/internal/entity"
	"github.com/user/validator-service/internal/repository"
)

// CycleRepoImpl provides a concrete implementation for the CycleRepository interface using PostgreSQL.
type CycleRepoImpl struct {
	db *pgxpool.Pool
}

// NewCycleRepo creates a new instance of CycleRepoImpl.
func NewCycleRepo(db *pgxpool.Pool) *CycleRepoImpl {
	return &CycleRepoImpl{db: db}
}

// Create inserts a new open cycle. The partial unique index on open cycles
// turns a concurrent second insert into a uniqueness violation, which is
// mapped to ErrCycleOpen.
func (r *CycleRepoImpl) Create(ctx context.Context, cycle *entity.ValidationCycle) error {
	query := `
		INSERT INTO validation_cycles (cycle_id, created_at)
		VALUES ($1, $2)
		RETURNING created_at;
	`
	err := r.db.QueryRow(ctx, query, cycle.CycleID, cycle.CreatedAt).Scan(&cycle.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return repository.ErrCycleOpen
		}
		return err
	}
	return nil
}

// FindOpen returns the cycle with no closed_at, if any.
func (r *CycleRepoImpl) FindOpen(ctx context.Context) (*entity.ValidationCycle, error) {
	query := `
		SELECT cycle_id, created_at, closed_at
		FROM validation_cycles
		WHERE closed_at IS NULL
		ORDER BY created_at DESC
		LIMIT 1;
	`
	var cycle entity.ValidationCycle
	err := r.db.QueryRow(ctx, query).Scan(&cycle.CycleID, &cycle.CreatedAt, &cycle.ClosedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNoOpenCycle
		}
		return nil, err
	}
	return &cycle, nil
}

// Close stamps closed_at exactly once. The status guard in the WHERE
// clause makes a second call a no-op that returns false.
func (r *CycleRepoImpl) Close(ctx context.Context, cycleID string) (bool, error) {
	query := `
		UPDATE validation_cycles
		SET closed_at = now()
		WHERE cycle_id = $1 AND closed_at IS NULL;
	`
	tag, err := r.db.Exec(ctx, query, cycleID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}
