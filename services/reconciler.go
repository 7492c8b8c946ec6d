package services

import (
	"context"
	"log"
	"time"

	"feedsync/models"
	"golang.org/x/sync/errgroup"
)

const DefaultUpsertConcurrency = 4

// ListingWriter persists one listing, replacing any row with the same listing id.
type ListingWriter interface {
	UpsertListing(ctx context.Context, l *models.Listing) error
}

// Reconciler upserts batches of normalized listings with bounded concurrency.
// Each record is its own write; there is no batch transaction.
type Reconciler struct {
	store       ListingWriter
	concurrency int
	now         func() time.Time
}

func NewReconciler(store ListingWriter, concurrency int) *Reconciler {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Reconciler{
		store:       store,
		concurrency: concurrency,
		now:         time.Now,
	}
}

// SetClock replaces the time source used for UpdatedAt.
func (r *Reconciler) SetClock(now func() time.Time) {
	r.now = now
}

// Reconcile upserts every listing and reports which were saved and which
// failed. A failure never affects sibling records.
//
// Writes run detached from ctx so a cancelled caller cannot interrupt a
// row mid-write. Once ctx is done no new writes start, in-flight writes
// finish, and ctx.Err() is returned in place of a result.
func (r *Reconciler) Reconcile(ctx context.Context, listings []models.Listing) (models.BatchResult, error) {
	outcomes := make([]error, len(listings))
	writeCtx := context.WithoutCancel(ctx)

	var g errgroup.Group
	g.SetLimit(r.concurrency)

	for i := range listings {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			// queued behind the limit while the caller gave up
			if ctx.Err() != nil {
				return nil
			}
			l := listings[i]
			l.UpdatedAt = r.now()
			outcomes[i] = r.store.UpsertListing(writeCtx, &l)
			return nil
		})
	}
	g.Wait()

	if err := ctx.Err(); err != nil {
		return models.BatchResult{}, err
	}

	result := models.BatchResult{
		Saved:  make([]string, 0, len(listings)),
		Errors: []models.RecordError{},
	}
	for i, err := range outcomes {
		id := listings[i].ListingID
		if err != nil {
			log.Printf("Warning: upsert listing %s: %v", id, err)
			result.Errors = append(result.Errors, models.RecordError{ListingID: id, Message: err.Error()})
			continue
		}
		result.Saved = append(result.Saved, id)
	}
	return result, nil
}
