package pnw

import (
	"errors"
	"time"
)

var (
	// ErrThrottled indicates the provider rejected the request for rate
	// limiting twice in a row; the bounded retry has been spent.
	ErrThrottled = errors.New("provider rate limit exceeded")

	// ErrProtocol indicates a malformed or schema-mismatched provider
	// response. Not retriable.
	ErrProtocol = errors.New("unexpected provider response")

	// ErrTransport indicates a network-level failure talking to the provider.
	ErrTransport = errors.New("provider request failed")
)

// Nation is the provider's view of a single game nation.
type Nation struct {
	ID                 int64     `json:"id"`
	Name               string    `json:"nation_name"`
	Leader             string    `json:"leader_name"`
	AllianceID         int64     `json:"alliance_id"`
	LastActive         time.Time `json:"last_active"`
	EspionageAvailable bool      `json:"espionage_available"`
}

// NationPage is one page of the full nation catalog. NextCursor is an opaque
// provider-issued token; it is stored and replayed verbatim, never parsed.
type NationPage struct {
	Nations    []*Nation
	NextCursor string
	HasMore    bool
	Total      int
}

// BatchResult carries the outcome of a batched id fetch: the nations that
// were retrieved and the ids of every sub-batch that failed, so the caller
// decides whether to retry, skip, or surface a degraded cycle.
type BatchResult struct {
	Nations   []*Nation
	FailedIDs []int64
}

// Failed reports whether any sub-batch was dropped from the result.
func (r *BatchResult) Failed() bool {
	return len(r.FailedIDs) > 0
}
