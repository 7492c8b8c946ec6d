package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"feedsync/models"
	"feedsync/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingIdentities struct {
	*storage.MemoryStore
	calls int
	ids   [][]string
	err   error
}

func (c *countingIdentities) GetIdentities(ctx context.Context, ids []string) (map[string]models.AgentIdentity, error) {
	c.calls++
	c.ids = append(c.ids, ids)
	if c.err != nil {
		return nil, c.err
	}
	return c.MemoryStore.GetIdentities(ctx, ids)
}

type failingReader struct{ err error }

func (f failingReader) ListListings(ctx context.Context, filter models.ListingFilter) ([]models.Listing, int, error) {
	return nil, 0, f.err
}

func (f failingReader) GetListing(ctx context.Context, listingID string) (*models.Listing, error) {
	return nil, f.err
}

func strPtr(s string) *string { return &s }

// seedCatalog stores n listings, L00 oldest. Even listings belong to u1,
// odd ones to u2, every fifth has no owner.
func seedCatalog(t *testing.T, n int) (*storage.MemoryStore, *countingIdentities) {
	t.Helper()
	store := storage.NewMemoryStore()
	base := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		l := &models.Listing{ListingID: fmt.Sprintf("L%02d", i), UpdatedAt: base.Add(time.Duration(i) * time.Hour)}
		switch {
		case i%5 == 0:
		case i%2 == 0:
			l.OwnerID = strPtr("u1")
		default:
			l.OwnerID = strPtr("u2")
		}
		require.NoError(t, store.UpsertListing(context.Background(), l))
	}
	store.PutIdentity(models.AgentIdentity{ID: "u1", FirstName: strPtr("Ada"), Email: strPtr("ada@example.com")})
	return store, &countingIdentities{MemoryStore: store}
}

func rowIDs(page *models.CatalogPage) []string {
	ids := make([]string, len(page.Rows))
	for i, r := range page.Rows {
		ids[i] = r.ListingID
	}
	return ids
}

func TestCatalog_SecondPage(t *testing.T) {
	store, idents := seedCatalog(t, 25)
	svc := NewCatalogService(store, idents)

	page, err := svc.List(context.Background(), models.CatalogQuery{Page: 2, Limit: 10})
	require.NoError(t, err)

	assert.Equal(t, 25, page.Total)
	require.NotNil(t, page.Page)
	require.NotNil(t, page.Limit)
	assert.Equal(t, 2, *page.Page)
	assert.Equal(t, 10, *page.Limit)
	assert.Nil(t, page.OwnerID)
	assert.Equal(t, []string{"L14", "L13", "L12", "L11", "L10", "L09", "L08", "L07", "L06", "L05"}, rowIDs(page))

	assert.Equal(t, 1, idents.calls)
	assert.Equal(t, []string{"u1", "u2"}, idents.ids[0])
}

func TestCatalog_Enrichment(t *testing.T) {
	store, idents := seedCatalog(t, 25)
	page, err := NewCatalogService(store, idents).List(context.Background(), models.CatalogQuery{Page: 1, Limit: 100})
	require.NoError(t, err)
	require.Len(t, page.Rows, 25)

	for _, row := range page.Rows {
		switch {
		case row.OwnerID == nil:
			assert.Nil(t, row.AgentDetail, row.ListingID)
		case *row.OwnerID == "u1":
			require.NotNil(t, row.AgentDetail, row.ListingID)
			assert.Equal(t, "Ada", *row.AgentDetail.FirstName)
		default:
			// u2 has no identity row
			assert.Nil(t, row.AgentDetail, row.ListingID)
		}
	}
	assert.Equal(t, 1, idents.calls)
}

func TestCatalog_LimitZeroReturnsAll(t *testing.T) {
	store, idents := seedCatalog(t, 25)
	page, err := NewCatalogService(store, idents).List(context.Background(), models.CatalogQuery{Page: 3, Limit: 0})
	require.NoError(t, err)

	assert.Equal(t, 25, page.Total)
	assert.Len(t, page.Rows, 25)
	assert.Nil(t, page.Page)
	assert.Nil(t, page.Limit)
	assert.Equal(t, "L24", page.Rows[0].ListingID)
}

func TestCatalog_OwnerFilter(t *testing.T) {
	store, idents := seedCatalog(t, 25)
	page, err := NewCatalogService(store, idents).List(context.Background(), models.CatalogQuery{OwnerID: strPtr("u1"), Page: 1, Limit: 5})
	require.NoError(t, err)

	assert.Equal(t, "u1", *page.OwnerID)
	assert.Len(t, page.Rows, 5)
	for _, row := range page.Rows {
		assert.Equal(t, "u1", *row.OwnerID)
		require.NotNil(t, row.AgentDetail)
	}
	// 0..24 even and not divisible by 5: 2,4,6,8,12,14,16,18,22,24
	assert.Equal(t, 10, page.Total)
}

func TestCatalog_PageBeyondEnd(t *testing.T) {
	store, idents := seedCatalog(t, 25)
	page, err := NewCatalogService(store, idents).List(context.Background(), models.CatalogQuery{Page: 9, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 25, page.Total)
	assert.Empty(t, page.Rows)
	assert.NotNil(t, page.Rows)
	assert.Equal(t, 0, idents.calls)
}

func TestCatalog_NoOwnersSkipsLookup(t *testing.T) {
	store := storage.NewMemoryStore()
	require.NoError(t, store.UpsertListing(context.Background(), &models.Listing{ListingID: "solo"}))
	idents := &countingIdentities{MemoryStore: store}

	page, err := NewCatalogService(store, idents).List(context.Background(), models.CatalogQuery{Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Len(t, page.Rows, 1)
	assert.Equal(t, 0, idents.calls)
}

func TestCatalog_InvalidQuery(t *testing.T) {
	store, idents := seedCatalog(t, 1)
	svc := NewCatalogService(store, idents)

	for _, q := range []models.CatalogQuery{{Page: 0, Limit: 10}, {Page: -1, Limit: 10}, {Page: 1, Limit: -5}} {
		page, err := svc.List(context.Background(), q)
		assert.Nil(t, page)
		assert.ErrorIs(t, err, ErrInvalidQuery, "%+v", q)
	}
}

func TestCatalog_StoreFailure(t *testing.T) {
	boom := errors.New("connection refused")
	svc := NewCatalogService(failingReader{err: boom}, &countingIdentities{MemoryStore: storage.NewMemoryStore()})

	page, err := svc.List(context.Background(), models.CatalogQuery{Page: 1, Limit: 10})
	assert.Nil(t, page)
	assert.ErrorIs(t, err, ErrQueryFailed)
	assert.ErrorIs(t, err, boom)
}

func TestCatalog_IdentityFailure(t *testing.T) {
	store, idents := seedCatalog(t, 5)
	idents.err = errors.New("users table missing")

	page, err := NewCatalogService(store, idents).List(context.Background(), models.CatalogQuery{Page: 1, Limit: 10})
	assert.Nil(t, page)
	assert.ErrorIs(t, err, ErrQueryFailed)
}

func TestCatalog_OffsetOverflow(t *testing.T) {
	store, idents := seedCatalog(t, 25)
	svc := NewCatalogService(store, idents)

	page, err := svc.List(context.Background(), models.CatalogQuery{Page: 1 << 62, Limit: 4})
	assert.Nil(t, page)
	assert.ErrorIs(t, err, ErrInvalidQuery)

	// largest page whose offset still fits is a valid, empty read
	page, err = svc.List(context.Background(), models.CatalogQuery{Page: math.MaxInt/4 + 1, Limit: 4})
	require.NoError(t, err)
	assert.Equal(t, 25, page.Total)
	assert.Empty(t, page.Rows)
	assert.Equal(t, 0, idents.calls)
}

func TestCatalog_Get(t *testing.T) {
	store, idents := seedCatalog(t, 5)
	svc := NewCatalogService(store, idents)

	row, err := svc.Get(context.Background(), "L02")
	require.NoError(t, err)
	assert.Equal(t, "L02", row.ListingID)
	require.NotNil(t, row.AgentDetail)
	assert.Equal(t, "Ada", *row.AgentDetail.FirstName)
	assert.Equal(t, [][]string{{"u1"}}, idents.ids)

	// owner without a users row
	row, err = svc.Get(context.Background(), "L01")
	require.NoError(t, err)
	assert.Nil(t, row.AgentDetail)

	// no owner, no lookup
	row, err = svc.Get(context.Background(), "L00")
	require.NoError(t, err)
	assert.Nil(t, row.AgentDetail)
	assert.Equal(t, 2, idents.calls)
}

func TestCatalog_GetNotFound(t *testing.T) {
	store, idents := seedCatalog(t, 2)

	row, err := NewCatalogService(store, idents).Get(context.Background(), "missing")
	assert.Nil(t, row)
	assert.ErrorIs(t, err, ErrListingNotFound)
	assert.Equal(t, 0, idents.calls)
}

func TestCatalog_GetStoreFailure(t *testing.T) {
	boom := errors.New("connection refused")
	svc := NewCatalogService(failingReader{err: boom}, &countingIdentities{MemoryStore: storage.NewMemoryStore()})

	row, err := svc.Get(context.Background(), "L00")
	assert.Nil(t, row)
	assert.ErrorIs(t, err, ErrQueryFailed)
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrListingNotFound)
}
