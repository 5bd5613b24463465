package postgres

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/user/validator-service/internal/entity"
)

// ResultRepoImpl provides a concrete implementation for the ResultRepository interface using PostgreSQL.
type ResultRepoImpl struct {
	db *pgxpool.Pool
}

// NewResultRepo creates a new instance of ResultRepoImpl.
func NewResultRepo(db *pgxpool.Pool) *ResultRepoImpl {
	return &ResultRepoImpl{db: db}
}

// SaveAll stores one scan session's audit rows in a single batch.
func (r *ResultRepoImpl) SaveAll(ctx context.Context, results []entity.ValidationResult) error {
	if len(results) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, res := range results {
		var chainJSON []byte
		if len(res.RedirectChain) > 0 {
			var err error
			chainJSON, err = json.Marshal(res.RedirectChain)
			if err != nil {
				return err
			}
		}

		batch.Queue(`
			INSERT INTO url_validation_results
				(url, country_code, scan_id, status_code, error_message,
				 redirected_to, redirect_chain, is_valid, failure_streak, validated_at)
			VALUES ($1, $2, $3, $4, NULLIF($5, ''), NULLIF($6, ''), $7, $8, $9, $10)
			ON CONFLICT (url, scan_id) DO UPDATE SET
				status_code = EXCLUDED.status_code,
				error_message = EXCLUDED.error_message,
				redirected_to = EXCLUDED.redirected_to,
				redirect_chain = EXCLUDED.redirect_chain,
				is_valid = EXCLUDED.is_valid,
				failure_streak = EXCLUDED.failure_streak,
				validated_at = EXCLUDED.validated_at;`,
			res.URL,
			res.CountryCode,
			res.ScanID,
			res.StatusCode,
			res.ErrorMessage,
			res.RedirectedTo,
			chainJSON,
			res.IsValid,
			res.FailureStreak,
			res.ValidatedAt,
		)
	}
	return r.db.SendBatch(ctx, batch).Close()
}
