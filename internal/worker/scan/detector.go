package scan

import (
	"context"
	"fmt"
	"time"

	"github.com/resetwatch/resetwatch/internal/database/types"
	"github.com/resetwatch/resetwatch/internal/pnw"
	"go.uber.org/zap"
)

// processNation records one flag observation for a nation and detects a reset
// when the flag transitioned false to true since the previous observation.
// The observation is appended regardless of whether a transition occurred.
// Returns whether a reset was detected.
func (w *Worker) processNation(ctx context.Context, nation *pnw.Nation) (bool, error) {
	now := time.Now().UTC()

	prior, err := w.storage.LatestFlag(ctx, nation.ID)
	if err != nil {
		return false, fmt.Errorf("failed to load latest scan: %w", err)
	}

	if err := w.storage.AppendScan(ctx, nation.ID, nation.EspionageAvailable, now); err != nil {
		return false, fmt.Errorf("failed to append scan: %w", err)
	}

	if err := w.storage.UpsertNations(ctx, []*types.Nation{{
		ID:         nation.ID,
		Name:       nation.Name,
		Leader:     nation.Leader,
		AllianceID: nation.AllianceID,
		LastActive: nation.LastActive,
		UpdatedAt:  now,
	}}); err != nil {
		return false, fmt.Errorf("failed to upsert nation: %w", err)
	}

	// A reset is the false-to-true edge. The first observation ever seen for
	// a nation establishes a baseline only; a flag already true tells us
	// nothing about when it flipped.
	if prior == nil || prior.EspionageAvailable || !nation.EspionageAvailable {
		return false, nil
	}

	if err := w.storage.UpsertReset(ctx, nation.ID, now, now); err != nil {
		return false, fmt.Errorf("failed to record reset: %w", err)
	}

	w.logger.Info("Detected nation reset",
		zap.Int64("nationID", nation.ID),
		zap.String("name", nation.Name),
		zap.Time("previousScan", prior.ScannedAt))

	return true, nil
}
