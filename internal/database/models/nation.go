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

// NationModel handles database operations for tracked nations.
type NationModel struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewNation creates a NationModel.
func NewNation(db *bun.DB, logger *zap.Logger) *NationModel {
	return &NationModel{
		db:     db,
		logger: logger.Named("db_nation"),
	}
}

// UpsertNations inserts or refreshes a batch of nations keyed on id.
func (m *NationModel) UpsertNations(ctx context.Context, nations []*types.Nation) error {
	if len(nations) == 0 {
		return nil
	}

	now := time.Now()
	for _, nation := range nations {
		nation.UpdatedAt = now
	}

	return dbretry.NoResult(ctx, func(ctx context.Context) error {
		_, err := m.db.NewInsert().
			Model(&nations).
			On("CONFLICT (id) DO UPDATE").
			Set("name = EXCLUDED.name").
			Set("leader = EXCLUDED.leader").
			Set("alliance_id = EXCLUDED.alliance_id").
			Set("last_active = EXCLUDED.last_active").
			Set("updated_at = EXCLUDED.updated_at").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to upsert nations: %w", err)
		}

		m.logger.Debug("Upserted nations", zap.Int("count", len(nations)))

		return nil
	})
}

// GetCandidates returns nations eligible for the next scan cycle: active
// within the window and without a recorded reset, most recently active first.
func (m *NationModel) GetCandidates(
	ctx context.Context, maxAge time.Duration, limit int,
) ([]*types.Candidate, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) ([]*types.Candidate, error) {
		var candidates []*types.Candidate

		err := m.db.NewSelect().
			Model((*types.Nation)(nil)).
			Column("nation.id", "nation.name").
			Join("LEFT JOIN nation_resets AS reset ON reset.nation_id = nation.id").
			Where("reset.nation_id IS NULL").
			Where("nation.last_active > ?", time.Now().Add(-maxAge)).
			Order("nation.last_active DESC").
			Limit(limit).
			Scan(ctx, &candidates)
		if err != nil {
			return nil, fmt.Errorf("failed to get scan candidates: %w", err)
		}

		return candidates, nil
	})
}

// CountNations returns the number of tracked nations.
func (m *NationModel) CountNations(ctx context.Context) (int, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (int, error) {
		count, err := m.db.NewSelect().
			Model((*types.Nation)(nil)).
			Count(ctx)
		if err != nil {
			return 0, fmt.Errorf("failed to count nations: %w", err)
		}

		return count, nil
	})
}
