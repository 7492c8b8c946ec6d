package models

import (
	"encoding/json"
	"fmt"
	"time"
)

type CommandType string

const (
	CmdIngest CommandType = "ingest"
	CmdPause  CommandType = "pause"
	CmdResume CommandType = "resume"
)

// ParseCommandType accepts only the commands the scheduler knows how to run.
func ParseCommandType(s string) (CommandType, error) {
	switch c := CommandType(s); c {
	case CmdIngest, CmdPause, CmdResume:
		return c, nil
	}
	return "", fmt.Errorf("unknown command %q (want ingest, pause or resume)", s)
}

// Command is a queued operator request, picked up by the scheduler.
type Command struct {
	ID          int64           `json:"id" db:"id"`
	Command     CommandType     `json:"command" db:"command"`
	Params      json.RawMessage `json:"params" db:"params"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
	ProcessedAt *time.Time      `json:"processed_at" db:"processed_at"`
}

type CommandParams struct {
	OwnerID string `json:"owner_id,omitempty"`
}
