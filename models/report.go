package models

import (
	"encoding/json"
	"fmt"
)

// RecordError is a listing that resolved an identifier but failed to persist.
type RecordError struct {
	ListingID string `json:"listing_id"`
	Message   string `json:"message"`
}

func (e RecordError) String() string {
	return fmt.Sprintf("%s: %s", e.ListingID, e.Message)
}

// BatchResult is the outcome of reconciling one batch. Every submitted
// listing appears exactly once across Saved and Errors.
type BatchResult struct {
	Saved  []string      `json:"saved"`
	Errors []RecordError `json:"errors"`
}

// IngestionReport summarizes one ingestion call. It lives for one
// request/response cycle and is never stored.
type IngestionReport struct {
	RunID      string           `json:"run_id"`
	OwnerID    *string          `json:"owner_id"`
	Fetched    int              `json:"fetched"`
	Saved      int              `json:"saved"`
	Skipped    int              `json:"skipped"`
	Errors     []string         `json:"errors"`
	Properties []map[string]any `json:"properties"`
}

// ToJSON returns the counts as run metadata.
func (r *IngestionReport) ToJSON() json.RawMessage {
	data, _ := json.Marshal(map[string]int{
		"fetched": r.Fetched,
		"saved":   r.Saved,
		"skipped": r.Skipped,
		"errors":  len(r.Errors),
	})
	return data
}
