package service

import (
	"context"
	"time"

	"github.com/resetwatch/resetwatch/internal/database"
	"github.com/resetwatch/resetwatch/internal/database/types"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"
)

// ScanService exposes the storage operations the scan pipeline needs on top
// of the model repositories.
type ScanService struct {
	repo   *database.Repository
	logger *zap.Logger
}

// NewScanService creates a ScanService over the given repository.
func NewScanService(repo *database.Repository, logger *zap.Logger) *ScanService {
	return &ScanService{
		repo:   repo,
		logger: logger.Named("scan_service"),
	}
}

// ListCandidates returns nations eligible for the next scan cycle.
func (s *ScanService) ListCandidates(
	ctx context.Context, maxAge time.Duration, limit int,
) ([]*types.Candidate, error) {
	return s.repo.Nation().GetCandidates(ctx, maxAge, limit)
}

// LatestFlag returns a nation's most recent observation, or nil if none exists.
func (s *ScanService) LatestFlag(ctx context.Context, nationID int64) (*types.NationScan, error) {
	return s.repo.Scan().GetLatestScan(ctx, nationID)
}

// AppendScan records one flag observation in the scan history.
func (s *ScanService) AppendScan(
	ctx context.Context, nationID int64, espionageAvailable bool, scannedAt time.Time,
) error {
	return s.repo.Scan().AppendScan(ctx, nationID, espionageAvailable, scannedAt)
}

// UpsertReset records a detected reset, keyed unique on the nation id.
func (s *ScanService) UpsertReset(
	ctx context.Context, nationID int64, resetTime, detectedAt time.Time,
) error {
	return s.repo.Reset().UpsertReset(ctx, nationID, resetTime, detectedAt)
}

// UpsertNations inserts or refreshes nation rows.
func (s *ScanService) UpsertNations(ctx context.Context, nations []*types.Nation) error {
	return s.repo.Nation().UpsertNations(ctx, nations)
}

// CountNations returns the number of tracked nations.
func (s *ScanService) CountNations(ctx context.Context) (int, error) {
	return s.repo.Nation().CountNations(ctx)
}

// AppendError writes a failure record to the error sink. Sink failures are
// logged and swallowed so error reporting never takes down the caller.
func (s *ScanService) AppendError(
	ctx context.Context, kind, message, trace string, errCtx map[string]string,
) {
	if err := s.repo.ErrorLog().LogError(ctx, kind, message, trace, errCtx); err != nil {
		s.logger.Error("Failed to write to error sink",
			zap.String("kind", kind),
			zap.Error(err))
	}
}

// GetStats collects storage counts for status reporting.
func (s *ScanService) GetStats(ctx context.Context, scanWindow time.Duration) (*types.Stats, error) {
	stats := new(types.Stats)
	p := pool.New().WithContext(ctx)

	p.Go(func(ctx context.Context) error {
		count, err := s.repo.Nation().CountNations(ctx)
		stats.Nations = count

		return err
	})

	p.Go(func(ctx context.Context) error {
		count, err := s.repo.Reset().CountResets(ctx)
		stats.Resets = count

		return err
	})

	p.Go(func(ctx context.Context) error {
		count, err := s.repo.Scan().CountRecentScans(ctx, scanWindow)
		stats.RecentScans = count

		return err
	})

	if err := p.Wait(); err != nil {
		return nil, err
	}

	return stats, nil
}
