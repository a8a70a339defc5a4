package migrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		_, err := db.NewRaw(`
			-- Latest-observation lookups walk this index backwards
			CREATE INDEX IF NOT EXISTS idx_nation_scans_nation_id_scanned_at
			ON nation_scans (nation_id, scanned_at DESC);

			-- Candidate selection filters on recency
			CREATE INDEX IF NOT EXISTS idx_nations_last_active
			ON nations (last_active DESC);

			CREATE INDEX IF NOT EXISTS idx_error_logs_created_at
			ON error_logs (created_at DESC);
		`).Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to create indexes: %w", err)
		}

		return nil
	}, func(ctx context.Context, db *bun.DB) error {
		_, err := db.NewRaw(`
			DROP INDEX IF EXISTS idx_nation_scans_nation_id_scanned_at;
			DROP INDEX IF EXISTS idx_nations_last_active;
			DROP INDEX IF EXISTS idx_error_logs_created_at;
		`).Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to drop indexes: %w", err)
		}

		return nil
	})
}
