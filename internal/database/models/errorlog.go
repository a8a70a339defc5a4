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

// ErrorLogModel handles database operations for the pipeline error sink.
type ErrorLogModel struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewErrorLog creates an ErrorLogModel.
func NewErrorLog(db *bun.DB, logger *zap.Logger) *ErrorLogModel {
	return &ErrorLogModel{
		db:     db,
		logger: logger.Named("db_errorlog"),
	}
}

// LogError appends a failure record to the error sink.
func (m *ErrorLogModel) LogError(
	ctx context.Context, kind, message, trace string, errCtx map[string]string,
) error {
	return dbretry.NoResult(ctx, func(ctx context.Context) error {
		entry := &types.ErrorLog{
			Kind:      kind,
			Message:   message,
			Trace:     trace,
			Context:   errCtx,
			CreatedAt: time.Now(),
		}

		_, err := m.db.NewInsert().
			Model(entry).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to log error: %w", err)
		}

		return nil
	})
}
