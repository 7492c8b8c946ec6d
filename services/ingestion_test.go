package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"feedsync/feed"
	"feedsync/models"
	"feedsync/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTokens struct {
	token       string
	err         error
	invalidated int
}

func (f *fakeTokens) Token(ctx context.Context) (string, error) { return f.token, f.err }
func (f *fakeTokens) Invalidate()                               { f.invalidated++ }

type fakeFeed struct {
	records []feed.Record
	err     error
	bearer  string
}

func (f *fakeFeed) FetchPage(ctx context.Context, bearer string) ([]feed.Record, error) {
	f.bearer = bearer
	return f.records, f.err
}

type fakeArchive struct {
	runIDs []string
	err    error
}

func (f *fakeArchive) Archive(ctx context.Context, runID string, records []feed.Record) (string, error) {
	f.runIDs = append(f.runIDs, runID)
	if f.err != nil {
		return "", f.err
	}
	return "feeds/" + runID + ".json", nil
}

type fakeRuns struct {
	created []models.IngestionRun
	updated []models.IngestionRun
}

func (f *fakeRuns) CreateRun(run *models.IngestionRun) (int64, error) {
	f.created = append(f.created, *run)
	return int64(len(f.created)), nil
}

func (f *fakeRuns) UpdateRun(run *models.IngestionRun) error {
	f.updated = append(f.updated, *run)
	return nil
}

func threeRecords() []feed.Record {
	return []feed.Record{
		{"ListingKey": "A", "ListPrice": json.Number("500000"), "City": "Windsor"},
		{"listingId": "B", "BedroomsTotal": json.Number("3"), "ListPrice": "not-a-number"},
		{"City": "Nowhere"},
	}
}

func newTestIngestion(records []feed.Record) (*IngestionService, *storage.MemoryStore, *fakeTokens, *fakeFeed) {
	store := storage.NewMemoryStore()
	tokens := &fakeTokens{token: "tok-1"}
	src := &fakeFeed{records: records}
	svc := NewIngestionService(tokens, src, NewReconciler(store, 4))
	return svc, store, tokens, src
}

func TestIngest_EndToEnd(t *testing.T) {
	svc, store, _, src := newTestIngestion(threeRecords())
	owner := "agent-7"

	report, err := svc.Ingest(context.Background(), &owner)
	require.NoError(t, err)
	assert.Equal(t, "tok-1", src.bearer)

	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, 3, report.Fetched)
	assert.Equal(t, 2, report.Saved)
	assert.Equal(t, 1, report.Skipped)
	assert.Empty(t, report.Errors)
	assert.NotNil(t, report.Errors)
	require.Len(t, report.Properties, 3)
	assert.Equal(t, "Nowhere", report.Properties[2]["City"])
	assert.Equal(t, "agent-7", *report.OwnerID)

	rows, total, err := store.ListListings(context.Background(), models.ListingFilter{})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	for _, l := range rows {
		require.NotNil(t, l.OwnerID)
		assert.Equal(t, "agent-7", *l.OwnerID)
		assert.False(t, l.UpdatedAt.IsZero())
	}

	a, err := store.GetListing(context.Background(), "A")
	require.NoError(t, err)
	require.NotNil(t, a)
	assert.Equal(t, 500000.0, *a.ListPrice)

	b, err := store.GetListing(context.Background(), "B")
	require.NoError(t, err)
	require.NotNil(t, b)
	assert.Nil(t, b.ListPrice)
	assert.Equal(t, 3, *b.Bedrooms)
}

func TestIngest_NoOwner(t *testing.T) {
	svc, store, _, _ := newTestIngestion(threeRecords())

	report, err := svc.Ingest(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, report.OwnerID)

	a, err := store.GetListing(context.Background(), "A")
	require.NoError(t, err)
	assert.Nil(t, a.OwnerID)
}

func TestIngest_EmptyFeed(t *testing.T) {
	svc, _, _, _ := newTestIngestion([]feed.Record{})

	report, err := svc.Ingest(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Fetched)
	assert.Equal(t, 0, report.Saved)
	assert.Empty(t, report.Properties)
}

func TestIngest_RecordErrorsReported(t *testing.T) {
	w := newFlakyWriter()
	w.fail["B"] = errors.New("value too long")
	svc := NewIngestionService(&fakeTokens{token: "t"}, &fakeFeed{records: threeRecords()}, NewReconciler(w, 2))

	report, err := svc.Ingest(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Saved)
	assert.Equal(t, 1, report.Skipped)
	assert.Equal(t, []string{"B: value too long"}, report.Errors)
}

func TestIngest_TokenFailure(t *testing.T) {
	svc, store, tokens, src := newTestIngestion(threeRecords())
	tokens.err = fmt.Errorf("%w: status 401", feed.ErrTokenExchange)

	report, err := svc.Ingest(context.Background(), nil)
	assert.Nil(t, report)
	assert.ErrorIs(t, err, ErrFetchFailed)
	assert.ErrorIs(t, err, feed.ErrTokenExchange)
	assert.Empty(t, src.bearer)

	_, total, _ := store.ListListings(context.Background(), models.ListingFilter{})
	assert.Equal(t, 0, total)
}

func TestIngest_FetchFailure(t *testing.T) {
	svc, store, tokens, src := newTestIngestion(nil)
	src.err = fmt.Errorf("%w: status 503", feed.ErrFetch)

	report, err := svc.Ingest(context.Background(), nil)
	assert.Nil(t, report)
	assert.ErrorIs(t, err, ErrFetchFailed)
	assert.Equal(t, 0, tokens.invalidated)

	_, total, _ := store.ListListings(context.Background(), models.ListingFilter{})
	assert.Equal(t, 0, total)
}

func TestIngest_UnauthorizedInvalidatesToken(t *testing.T) {
	svc, _, tokens, src := newTestIngestion(nil)
	src.err = fmt.Errorf("%w: %w", feed.ErrFetch, feed.ErrUnauthorized)

	_, err := svc.Ingest(context.Background(), nil)
	assert.ErrorIs(t, err, ErrFetchFailed)
	assert.Equal(t, 1, tokens.invalidated)
}

func TestIngest_ArchiveFailureIsWarning(t *testing.T) {
	svc, _, _, _ := newTestIngestion(threeRecords())
	archive := &fakeArchive{err: errors.New("bucket missing")}
	svc.SetArchive(archive)

	report, err := svc.Ingest(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Saved)
	assert.Equal(t, []string{report.RunID}, archive.runIDs)
}

func TestIngest_RunHistory(t *testing.T) {
	svc, _, _, _ := newTestIngestion(threeRecords())
	runs := &fakeRuns{}
	svc.SetRuns(runs)
	svc.SetFeedID("crea")

	report, err := svc.Ingest(context.Background(), nil)
	require.NoError(t, err)

	require.Len(t, runs.created, 1)
	assert.Equal(t, models.RunStatusRunning, runs.created[0].Status)
	assert.Equal(t, "crea", runs.created[0].FeedID)
	assert.Equal(t, report.RunID, runs.created[0].RunID)

	require.Len(t, runs.updated, 1)
	done := runs.updated[0]
	assert.Equal(t, models.RunStatusCompleted, done.Status)
	assert.Equal(t, int64(1), done.ID)
	assert.Equal(t, 3, done.Fetched)
	assert.Equal(t, 2, done.Saved)
	assert.Equal(t, 1, done.Skipped)
	assert.NotNil(t, done.FinishedAt)
	assert.JSONEq(t, `{"fetched":3,"saved":2,"skipped":1,"errors":0}`, string(done.Metadata))
}

func TestIngest_RunHistoryOnFailure(t *testing.T) {
	svc, _, tokens, _ := newTestIngestion(nil)
	tokens.err = errors.New("dns")
	runs := &fakeRuns{}
	svc.SetRuns(runs)

	_, err := svc.Ingest(context.Background(), nil)
	require.Error(t, err)
	require.Len(t, runs.updated, 1)
	assert.Equal(t, models.RunStatusFailed, runs.updated[0].Status)
	assert.Contains(t, runs.updated[0].ErrorMessage, "dns")
}

func TestIngest_CancelledDropsReport(t *testing.T) {
	svc, _, _, _ := newTestIngestion(threeRecords())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := svc.Ingest(ctx, nil)
	assert.Nil(t, report)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrFetchFailed)
}
