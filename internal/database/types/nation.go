package types

import (
	"time"

	"github.com/uptrace/bun"
)

// DetectionConfidence is the confidence recorded with every detected reset.
// Detection is a direct flag-edge observation, so a single constant applies.
const DetectionConfidence = 1.0

// Nation is the tracked game nation. Created on first import and refreshed on
// every scan that touches it; never deleted by the scan pipeline.
type Nation struct {
	bun.BaseModel `bun:"table:nations"`

	ID         int64     `bun:",pk"      json:"id"`
	Name       string    `bun:",notnull" json:"name"`
	Leader     string    `bun:",notnull" json:"leader"`
	AllianceID int64     `bun:",notnull" json:"allianceId"`
	LastActive time.Time `bun:",notnull" json:"lastActive"`
	UpdatedAt  time.Time `bun:",notnull" json:"updatedAt"`
}

// NationScan is one timestamped observation of a nation's espionage flag.
// Rows are append-only; the sequence is the source of truth for transition
// detection and is never mutated or deleted.
type NationScan struct {
	bun.BaseModel `bun:"table:nation_scans"`

	ID                 int64     `bun:",pk,autoincrement" json:"id"`
	NationID           int64     `bun:",notnull"          json:"nationId"`
	EspionageAvailable bool      `bun:",notnull"          json:"espionageAvailable"`
	ScannedAt          time.Time `bun:",notnull"          json:"scannedAt"`
}

// NationReset is the derived fact that a nation's daily reset was observed.
// At most one live row exists per nation; repeated detections overwrite.
type NationReset struct {
	bun.BaseModel `bun:"table:nation_resets"`

	NationID   int64     `bun:",pk"      json:"nationId"`
	ResetTime  time.Time `bun:",notnull" json:"resetTime"`
	DetectedAt time.Time `bun:",notnull" json:"detectedAt"`
	Confidence float64   `bun:",notnull" json:"confidence"`
}

// ErrorLog is an append-only record of pipeline failures.
type ErrorLog struct {
	bun.BaseModel `bun:"table:error_logs"`

	ID        int64             `bun:",pk,autoincrement"    json:"id"`
	Kind      string            `bun:",notnull"             json:"kind"`
	Message   string            `bun:",notnull"             json:"message"`
	Trace     string            `bun:""                     json:"trace"`
	Context   map[string]string `bun:",type:jsonb,nullzero" json:"context"`
	CreatedAt time.Time         `bun:",notnull"             json:"createdAt"`
}

// Candidate is a nation eligible for the next scan cycle: recently active and
// without a recorded reset.
type Candidate struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Stats summarizes storage contents for status reporting.
type Stats struct {
	Nations     int `json:"nations"`
	Resets      int `json:"resets"`
	RecentScans int `json:"recentScans"`
}
