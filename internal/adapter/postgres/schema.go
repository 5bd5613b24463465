package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS validation_cycles (
	cycle_id TEXT PRIMARY KEY,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	closed_at TIMESTAMPTZ
);

-- At most one cycle may be open at a time.
CREATE UNIQUE INDEX IF NOT EXISTS idx_one_open_cycle
	ON validation_cycles ((closed_at IS NULL)) WHERE closed_at IS NULL;

CREATE TABLE IF NOT EXISTS country_units (
	cycle_id TEXT NOT NULL REFERENCES validation_cycles(cycle_id),
	country_code TEXT NOT NULL,
	status TEXT NOT NULL DEFAULT 'pending',
	started_at TIMESTAMPTZ,
	completed_at TIMESTAMPTZ,
	error_summary TEXT,
	progress_handle TEXT,
	summary JSONB,
	PRIMARY KEY (cycle_id, country_code)
);

CREATE INDEX IF NOT EXISTS idx_country_units_status ON country_units (cycle_id, status);

CREATE TABLE IF NOT EXISTS url_validation_results (
	url TEXT NOT NULL,
	country_code TEXT NOT NULL,
	scan_id TEXT NOT NULL,
	status_code INTEGER,
	error_message TEXT,
	redirected_to TEXT,
	redirect_chain JSONB,
	is_valid BOOLEAN NOT NULL DEFAULT FALSE,
	failure_streak INTEGER NOT NULL DEFAULT 0,
	validated_at TIMESTAMPTZ,
	PRIMARY KEY (url, scan_id)
);

CREATE INDEX IF NOT EXISTS idx_url_validation_country ON url_validation_results (country_code);
CREATE INDEX IF NOT EXISTS idx_url_validation_scan ON url_validation_results (scan_id);
`

// InitSchema creates the metadata tables if they do not exist yet.
func InitSchema(ctx context.Context, db *pgxpool.Pool) error {
	_, err := db.Exec(ctx, schemaSQL)
	return err
}
