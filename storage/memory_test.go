package storage

import (
	"context"
	"fmt"
	"testing"
	"time"

	"feedsync/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func seed(t *testing.T, s *MemoryStore, n int, owner *string, base time.Time) {
	t.Helper()
	for i := 0; i < n; i++ {
		l := &models.Listing{
			ListingID: fmt.Sprintf("L%02d", i),
			OwnerID:   owner,
			UpdatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, s.UpsertListing(context.Background(), l))
	}
}

func TestMemoryStore_UpsertOverwrites(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.UpsertListing(ctx, &models.Listing{ListingID: "A", City: strPtr("Windsor")}))
	require.NoError(t, s.UpsertListing(ctx, &models.Listing{ListingID: "A"}))

	got, err := s.GetListing(ctx, "A")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Nil(t, got.City)

	missing, err := s.GetListing(ctx, "nope")
	assert.NoError(t, err)
	assert.Nil(t, missing)
}

func TestMemoryStore_ListOrderingAndWindow(t *testing.T) {
	s := NewMemoryStore()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	seed(t, s, 5, nil, base)
	// same timestamp as L04, ties broken by id
	require.NoError(t, s.UpsertListing(context.Background(), &models.Listing{ListingID: "L00b", UpdatedAt: base.Add(4 * time.Minute)}))

	rows, total, err := s.ListListings(context.Background(), models.ListingFilter{})
	require.NoError(t, err)
	assert.Equal(t, 6, total)
	ids := make([]string, len(rows))
	for i, r := range rows {
		ids[i] = r.ListingID
	}
	assert.Equal(t, []string{"L00b", "L04", "L03", "L02", "L01", "L00"}, ids)

	rows, total, err = s.ListListings(context.Background(), models.ListingFilter{Offset: 4, Limit: 4})
	require.NoError(t, err)
	assert.Equal(t, 6, total)
	require.Len(t, rows, 2)
	assert.Equal(t, "L01", rows[0].ListingID)

	rows, total, err = s.ListListings(context.Background(), models.ListingFilter{Offset: 10, Limit: 4})
	require.NoError(t, err)
	assert.Equal(t, 6, total)
	assert.Empty(t, rows)
}

func TestMemoryStore_OwnerFilter(t *testing.T) {
	s := NewMemoryStore()
	base := time.Now()
	seed(t, s, 3, strPtr("u1"), base)
	require.NoError(t, s.UpsertListing(context.Background(), &models.Listing{ListingID: "other", OwnerID: strPtr("u2")}))
	require.NoError(t, s.UpsertListing(context.Background(), &models.Listing{ListingID: "orphan"}))

	rows, total, err := s.ListListings(context.Background(), models.ListingFilter{OwnerID: strPtr("u1")})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	for _, r := range rows {
		assert.Equal(t, "u1", *r.OwnerID)
	}
}

func TestMemoryStore_GetIdentities(t *testing.T) {
	s := NewMemoryStore()
	s.PutIdentity(models.AgentIdentity{ID: "u1", FirstName: strPtr("Dana")})

	got, err := s.GetIdentities(context.Background(), []string{"u1", "ghost"})
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Equal(t, "Dana", *got["u1"].FirstName)
}

func TestMemoryStore_NegativeOffset(t *testing.T) {
	s := NewMemoryStore()
	seed(t, s, 3, nil, time.Now())

	rows, total, err := s.ListListings(context.Background(), models.ListingFilter{Offset: -4, Limit: 4})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Empty(t, rows)
}
