package models

import (
	"encoding/json"
	"time"
)

type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// IngestionRun is the operator-facing history of one ingestion call. Only
// counts and outcome are kept; the report itself is not.
type IngestionRun struct {
	ID           int64           `json:"id" db:"id"`
	RunID        string          `json:"run_id" db:"run_id"`
	FeedID       string          `json:"feed_id" db:"feed_id"`
	OwnerID      *string         `json:"owner_id" db:"owner_id"`
	StartedAt    time.Time       `json:"started_at" db:"started_at"`
	FinishedAt   *time.Time      `json:"finished_at" db:"finished_at"`
	Status       RunStatus       `json:"status" db:"status"`
	Fetched      int             `json:"fetched" db:"fetched"`
	Saved        int             `json:"saved" db:"saved"`
	Skipped      int             `json:"skipped" db:"skipped"`
	ErrorsCount  int             `json:"errors_count" db:"errors_count"`
	ErrorMessage string          `json:"error_message" db:"error_message"`
	Metadata     json.RawMessage `json:"metadata" db:"metadata"`
}
