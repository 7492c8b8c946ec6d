package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"feedsync/feed"
	"feedsync/logging"
	"feedsync/models"
	"github.com/google/uuid"
)

// TokenSource hands out bearer tokens for the upstream feed.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
	Invalidate()
}

// FeedFetcher reads one page of raw records from the upstream feed.
type FeedFetcher interface {
	FetchPage(ctx context.Context, bearer string) ([]feed.Record, error)
}

// RawArchiver stores the raw page of a run and returns its location.
type RawArchiver interface {
	Archive(ctx context.Context, runID string, records []feed.Record) (string, error)
}

// RunRecorder keeps operator-facing run history.
type RunRecorder interface {
	CreateRun(run *models.IngestionRun) (int64, error)
	UpdateRun(run *models.IngestionRun) error
}

// IngestionService pulls one page from the feed, normalizes it and hands
// the result to the reconciler.
type IngestionService struct {
	tokens     TokenSource
	feed       FeedFetcher
	reconciler *Reconciler
	archive    RawArchiver
	runs       RunRecorder
	feedID     string
}

func NewIngestionService(tokens TokenSource, feed FeedFetcher, reconciler *Reconciler) *IngestionService {
	return &IngestionService{
		tokens:     tokens,
		feed:       feed,
		reconciler: reconciler,
	}
}

func (s *IngestionService) SetArchive(archive RawArchiver) {
	s.archive = archive
}

func (s *IngestionService) SetRuns(runs RunRecorder) {
	s.runs = runs
}

// SetFeedID labels run history rows.
func (s *IngestionService) SetFeedID(id string) {
	s.feedID = id
}

// Ingest runs one ingestion. A token or fetch failure returns an error
// wrapping ErrFetchFailed and persists nothing. Records without an
// identifier are counted as skipped; per-record write failures land in
// the report's Errors.
func (s *IngestionService) Ingest(ctx context.Context, ownerID *string) (*models.IngestionReport, error) {
	runID := uuid.NewString()
	rl := logging.ForRun(runID)
	run := s.startRun(rl, runID, ownerID)

	report, err := s.ingest(ctx, rl, runID, ownerID)
	s.finishRun(rl, run, report, err)
	if err != nil {
		rl.Printf("ingestion failed: %v", err)
		return nil, err
	}

	rl.Printf("fetched=%d saved=%d skipped=%d errors=%d",
		report.Fetched, report.Saved, report.Skipped, len(report.Errors))
	return report, nil
}

func (s *IngestionService) ingest(ctx context.Context, rl *log.Logger, runID string, ownerID *string) (*models.IngestionReport, error) {
	token, err := s.tokens.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: token: %w", ErrFetchFailed, err)
	}

	records, err := s.feed.FetchPage(ctx, token)
	if err != nil {
		if errors.Is(err, feed.ErrUnauthorized) {
			s.tokens.Invalidate()
		}
		return nil, fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}
	rl.Printf("fetched %d records", len(records))

	if s.archive != nil {
		key, err := s.archive.Archive(ctx, runID, records)
		if err != nil {
			rl.Printf("Warning: archive raw page: %v", err)
		} else {
			rl.Printf("archived raw page to %s", key)
		}
	}

	report := &models.IngestionReport{
		RunID:      runID,
		OwnerID:    ownerID,
		Fetched:    len(records),
		Errors:     []string{},
		Properties: make([]map[string]any, 0, len(records)),
	}

	batch := make([]models.Listing, 0, len(records))
	for _, raw := range records {
		report.Properties = append(report.Properties, raw)

		l, ok := feed.Normalize(raw)
		if !ok {
			report.Skipped++
			continue
		}
		if ownerID != nil {
			owner := *ownerID
			l.OwnerID = &owner
		}
		batch = append(batch, l)
	}
	if report.Skipped > 0 {
		rl.Printf("skipped %d records without an identifier", report.Skipped)
	}

	result, err := s.reconciler.Reconcile(ctx, batch)
	if err != nil {
		return nil, fmt.Errorf("reconcile: %w", err)
	}

	report.Saved = len(result.Saved)
	for _, e := range result.Errors {
		report.Errors = append(report.Errors, e.String())
	}
	return report, nil
}

func (s *IngestionService) startRun(rl *log.Logger, runID string, ownerID *string) *models.IngestionRun {
	if s.runs == nil {
		return nil
	}
	run := &models.IngestionRun{
		RunID:     runID,
		FeedID:    s.feedID,
		OwnerID:   ownerID,
		StartedAt: time.Now(),
		Status:    models.RunStatusRunning,
	}
	id, err := s.runs.CreateRun(run)
	if err != nil {
		rl.Printf("Warning: create run record: %v", err)
		return nil
	}
	run.ID = id
	return run
}

func (s *IngestionService) finishRun(rl *log.Logger, run *models.IngestionRun, report *models.IngestionReport, runErr error) {
	if run == nil {
		return
	}
	now := time.Now()
	run.FinishedAt = &now
	if runErr != nil {
		run.Status = models.RunStatusFailed
		run.ErrorMessage = runErr.Error()
	} else {
		run.Status = models.RunStatusCompleted
		run.Fetched = report.Fetched
		run.Saved = report.Saved
		run.Skipped = report.Skipped
		run.ErrorsCount = len(report.Errors)
		run.Metadata = report.ToJSON()
	}
	if err := s.runs.UpdateRun(run); err != nil {
		rl.Printf("Warning: update run record: %v", err)
	}
}
