package scan

import (
	"context"
	"time"

	"github.com/resetwatch/resetwatch/internal/database/types"
	"github.com/resetwatch/resetwatch/internal/pnw"
)

// Storage is the durable state the scan pipeline reads and writes.
// Implemented by the database scan service.
type Storage interface {
	// ListCandidates returns nations eligible for the next cycle: active
	// within maxAge, no recorded reset, most recently active first.
	ListCandidates(ctx context.Context, maxAge time.Duration, limit int) ([]*types.Candidate, error)
	// LatestFlag returns a nation's most recent observation, or nil if the
	// nation has never been scanned.
	LatestFlag(ctx context.Context, nationID int64) (*types.NationScan, error)
	// AppendScan records one flag observation. History is append-only.
	AppendScan(ctx context.Context, nationID int64, espionageAvailable bool, scannedAt time.Time) error
	// UpsertReset records a detected reset, keyed unique on the nation id.
	UpsertReset(ctx context.Context, nationID int64, resetTime, detectedAt time.Time) error
	// UpsertNations inserts or refreshes nation rows.
	UpsertNations(ctx context.Context, nations []*types.Nation) error
	// CountNations returns the number of tracked nations.
	CountNations(ctx context.Context) (int, error)
	// AppendError writes a failure record to the error sink.
	AppendError(ctx context.Context, kind, message, trace string, errCtx map[string]string)
}

// Fetcher retrieves nation data from the upstream provider.
// Implemented by the pnw client.
type Fetcher interface {
	FetchPage(ctx context.Context, cursor string, pageSize int) (*pnw.NationPage, error)
	FetchByIDs(ctx context.Context, ids []int64) (*pnw.BatchResult, error)
}

// Reporter receives worker status updates. Implemented by the core status
// reporter; a nil Reporter disables reporting.
type Reporter interface {
	UpdateStatus(task string, progress int)
	SetHealthy(healthy bool)
}
