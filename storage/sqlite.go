package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"feedsync/models"
	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore holds operational state: the command queue and ingestion
// run history.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}

	store := &SQLiteStore{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS ingestion_runs (
		id INTEGER PRIMARY KEY,
		run_id TEXT NOT NULL,
		feed_id TEXT,
		owner_id TEXT,
		started_at DATETIME,
		finished_at DATETIME,
		status TEXT,
		fetched INTEGER DEFAULT 0,
		saved INTEGER DEFAULT 0,
		skipped INTEGER DEFAULT 0,
		errors_count INTEGER DEFAULT 0,
		error_message TEXT,
		metadata JSON
	);

	CREATE TABLE IF NOT EXISTS commands (
		id INTEGER PRIMARY KEY,
		command TEXT,
		params JSON,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		processed_at DATETIME
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_runs_run_id ON ingestion_runs(run_id);
	CREATE INDEX IF NOT EXISTS idx_runs_status ON ingestion_runs(status, started_at);
	CREATE INDEX IF NOT EXISTS idx_commands_pending ON commands(processed_at) WHERE processed_at IS NULL;
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// Ingestion runs
// =============================================================================

func (s *SQLiteStore) CreateRun(run *models.IngestionRun) (int64, error) {
	result, err := s.db.Exec(`
		INSERT INTO ingestion_runs (run_id, feed_id, owner_id, started_at, status)
		VALUES (?, ?, ?, ?, ?)`,
		run.RunID, run.FeedID, run.OwnerID, run.StartedAt, run.Status)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

func (s *SQLiteStore) UpdateRun(run *models.IngestionRun) error {
	var metadata any
	if len(run.Metadata) > 0 {
		metadata = string(run.Metadata)
	}
	_, err := s.db.Exec(`
		UPDATE ingestion_runs SET finished_at = ?, status = ?, fetched = ?, saved = ?,
			skipped = ?, errors_count = ?, error_message = ?, metadata = ?
		WHERE id = ?`,
		run.FinishedAt, run.Status, run.Fetched, run.Saved,
		run.Skipped, run.ErrorsCount, run.ErrorMessage, metadata, run.ID)
	return err
}

// GetRecentRuns returns the newest runs first.
func (s *SQLiteStore) GetRecentRuns(limit int) ([]models.IngestionRun, error) {
	rows, err := s.db.Query(`
		SELECT id, run_id, feed_id, owner_id, started_at, finished_at, status,
			fetched, saved, skipped, errors_count, error_message, metadata
		FROM ingestion_runs ORDER BY started_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []models.IngestionRun
	for rows.Next() {
		var run models.IngestionRun
		var feedID, ownerID, errMsg, metadata sql.NullString
		if err := rows.Scan(&run.ID, &run.RunID, &feedID, &ownerID, &run.StartedAt, &run.FinishedAt,
			&run.Status, &run.Fetched, &run.Saved, &run.Skipped, &run.ErrorsCount, &errMsg, &metadata); err != nil {
			return nil, err
		}
		run.FeedID = feedID.String
		if ownerID.Valid {
			run.OwnerID = &ownerID.String
		}
		run.ErrorMessage = errMsg.String
		if metadata.Valid {
			run.Metadata = json.RawMessage(metadata.String)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// GetLastRunTime returns the zero time when no run has completed.
func (s *SQLiteStore) GetLastRunTime() (time.Time, error) {
	var t time.Time
	err := s.db.QueryRow(`
		SELECT started_at FROM ingestion_runs WHERE status = ?
		ORDER BY started_at DESC LIMIT 1`,
		models.RunStatusCompleted).Scan(&t)
	if err == sql.ErrNoRows {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, err
	}
	return t, nil
}

// =============================================================================
// Commands
// =============================================================================

func (s *SQLiteStore) EnqueueCommand(cmd models.CommandType, params models.CommandParams) (int64, error) {
	data, err := json.Marshal(params)
	if err != nil {
		return 0, err
	}
	result, err := s.db.Exec(`INSERT INTO commands (command, params, created_at) VALUES (?, ?, ?)`,
		cmd, string(data), time.Now())
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

func (s *SQLiteStore) GetPendingCommands() ([]models.Command, error) {
	rows, err := s.db.Query(`
		SELECT id, command, params, created_at, processed_at
		FROM commands WHERE processed_at IS NULL ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cmds []models.Command
	for rows.Next() {
		var cmd models.Command
		var params sql.NullString
		if err := rows.Scan(&cmd.ID, &cmd.Command, &params, &cmd.CreatedAt, &cmd.ProcessedAt); err != nil {
			return nil, err
		}
		if params.Valid {
			cmd.Params = json.RawMessage(params.String)
		}
		cmds = append(cmds, cmd)
	}
	return cmds, rows.Err()
}

func (s *SQLiteStore) MarkCommandProcessed(id int64) error {
	_, err := s.db.Exec(`UPDATE commands SET processed_at = ? WHERE id = ?`, time.Now(), id)
	return err
}

func (s *SQLiteStore) ParseCommandParams(cmd *models.Command) (*models.CommandParams, error) {
	if cmd.Params == nil || string(cmd.Params) == "null" {
		return &models.CommandParams{}, nil
	}
	var params models.CommandParams
	if err := json.Unmarshal(cmd.Params, &params); err != nil {
		return nil, err
	}
	return &params, nil
}
