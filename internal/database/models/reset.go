package models

import (
	"context"
	"fmt"
	"time"

	"github.com/resetwatch/resetwatch/internal/database/dbretry"
	"github.com/resetwatch/resetwatch/internal/database/types"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// ResetModel handles database operations for detected nation resets.
type ResetModel struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewReset creates a ResetModel.
func NewReset(db *bun.DB, logger *zap.Logger) *ResetModel {
	return &ResetModel{
		db:     db,
		logger: logger.Named("db_reset"),
	}
}

// UpsertReset records a detected reset for a nation. The nation id is the
// unique key, so a repeated detection overwrites rather than duplicates.
func (m *ResetModel) UpsertReset(
	ctx context.Context, nationID int64, resetTime, detectedAt time.Time,
) error {
	return dbretry.NoResult(ctx, func(ctx context.Context) error {
		reset := &types.NationReset{
			NationID:   nationID,
			ResetTime:  resetTime,
			DetectedAt: detectedAt,
			Confidence: types.DetectionConfidence,
		}

		_, err := m.db.NewInsert().
			Model(reset).
			On("CONFLICT (nation_id) DO UPDATE").
			Set("reset_time = EXCLUDED.reset_time").
			Set("detected_at = EXCLUDED.detected_at").
			Set("confidence = EXCLUDED.confidence").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to upsert reset for nation %d: %w", nationID, err)
		}

		m.logger.Info("Recorded nation reset",
			zap.Int64("nationID", nationID),
			zap.Time("resetTime", resetTime))

		return nil
	})
}

// CountResets returns the number of nations with a recorded reset.
func (m *ResetModel) CountResets(ctx context.Context) (int, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (int, error) {
		count, err := m.db.NewSelect().
			Model((*types.NationReset)(nil)).
			Count(ctx)
		if err != nil {
			return 0, fmt.Errorf("failed to count resets: %w", err)
		}

		return count, nil
	})
}
