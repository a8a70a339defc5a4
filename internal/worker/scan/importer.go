package scan

import (
	"context"
	"fmt"
	"time"

	"github.com/resetwatch/resetwatch/internal/database/types"
	"github.com/resetwatch/resetwatch/internal/pnw"
	"go.uber.org/zap"
)

// ImportCatalog walks the full provider nation catalog page by page and
// upserts every nation. A page failure ends the import; pages already
// imported are kept, and the next import resumes refreshing from the start.
// Returns the number of nations imported.
func (w *Worker) ImportCatalog(ctx context.Context) (int, error) {
	pageSize := w.importPageSize
	if pageSize <= 0 {
		pageSize = pnw.DefaultPageSize
	}

	start := time.Now()
	cursor := ""
	imported := 0
	pages := 0

	for {
		if err := ctx.Err(); err != nil {
			return imported, err
		}

		page, err := w.fetcher.FetchPage(ctx, cursor, pageSize)
		if err != nil {
			w.storage.AppendError(ctx, errKindImport,
				fmt.Sprintf("catalog import stopped after %d nations: %v", imported, err), "", nil)

			return imported, fmt.Errorf("failed to fetch catalog page: %w", err)
		}

		now := time.Now().UTC()

		nations := make([]*types.Nation, len(page.Nations))
		for i, nation := range page.Nations {
			nations[i] = &types.Nation{
				ID:         nation.ID,
				Name:       nation.Name,
				Leader:     nation.Leader,
				AllianceID: nation.AllianceID,
				LastActive: nation.LastActive,
				UpdatedAt:  now,
			}
		}

		if len(nations) > 0 {
			if err := w.storage.UpsertNations(ctx, nations); err != nil {
				w.storage.AppendError(ctx, errKindImport,
					fmt.Sprintf("catalog import stopped after %d nations: %v", imported, err), "", nil)

				return imported, fmt.Errorf("failed to upsert catalog page: %w", err)
			}

			imported += len(nations)
		}

		pages++

		w.logger.Debug("Imported catalog page",
			zap.Int("page", pages),
			zap.Int("nations", len(nations)),
			zap.Int("total", imported))

		if !page.HasMore || page.NextCursor == "" {
			break
		}

		cursor = page.NextCursor
	}

	w.logger.Info("Completed catalog import",
		zap.Int("nations", imported),
		zap.Int("pages", pages),
		zap.Duration("duration", time.Since(start)))

	return imported, nil
}

// BootstrapIfEmpty runs a catalog import when no nations are tracked yet so a
// fresh deployment has candidates before its first scan cycle.
func (w *Worker) BootstrapIfEmpty(ctx context.Context) error {
	count, err := w.storage.CountNations(ctx)
	if err != nil {
		return fmt.Errorf("failed to count nations: %w", err)
	}

	if count > 0 {
		w.logger.Debug("Nation catalog already populated, skipping bootstrap",
			zap.Int("nations", count))

		return nil
	}

	w.logger.Info("Nation catalog empty, running bootstrap import")

	if _, err := w.ImportCatalog(ctx); err != nil {
		return err
	}

	return nil
}
