package models

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/resetwatch/resetwatch/internal/database/dbretry"
	"github.com/resetwatch/resetwatch/internal/database/types"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// ScanModel handles database operations for the append-only scan history.
type ScanModel struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewScan creates a ScanModel.
func NewScan(db *bun.DB, logger *zap.Logger) *ScanModel {
	return &ScanModel{
		db:     db,
		logger: logger.Named("db_scan"),
	}
}

// GetLatestScan returns a nation's most recent observation, or nil when the
// nation has never been scanned.
func (m *ScanModel) GetLatestScan(ctx context.Context, nationID int64) (*types.NationScan, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (*types.NationScan, error) {
		scan := new(types.NationScan)

		err := m.db.NewSelect().
			Model(scan).
			Where("nation_id = ?", nationID).
			Order("scanned_at DESC").
			Limit(1).
			Scan(ctx)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, nil
			}

			return nil, fmt.Errorf("failed to get latest scan for nation %d: %w", nationID, err)
		}

		return scan, nil
	})
}

// AppendScan records one observation of a nation's espionage flag.
// History rows are only ever inserted, never updated or deleted.
func (m *ScanModel) AppendScan(
	ctx context.Context, nationID int64, espionageAvailable bool, scannedAt time.Time,
) error {
	return dbretry.NoResult(ctx, func(ctx context.Context) error {
		scan := &types.NationScan{
			NationID:           nationID,
			EspionageAvailable: espionageAvailable,
			ScannedAt:          scannedAt,
		}

		_, err := m.db.NewInsert().
			Model(scan).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to append scan for nation %d: %w", nationID, err)
		}

		return nil
	})
}

// CountRecentScans returns the number of observations within the window.
func (m *ScanModel) CountRecentScans(ctx context.Context, window time.Duration) (int, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (int, error) {
		count, err := m.db.NewSelect().
			Model((*types.NationScan)(nil)).
			Where("scanned_at > ?", time.Now().Add(-window)).
			Count(ctx)
		if err != nil {
			return 0, fmt.Errorf("failed to count recent scans: %w", err)
		}

		return count, nil
	})
}
