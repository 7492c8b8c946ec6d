package services

import (
	"context"
	"fmt"
	"math"
	"sort"

	"feedsync/models"
)

// ListingReader returns one window of stored listings, newest first, and
// the number of rows matching the filter. GetListing returns nil, nil for
// an unknown id.
type ListingReader interface {
	ListListings(ctx context.Context, filter models.ListingFilter) ([]models.Listing, int, error)
	GetListing(ctx context.Context, listingID string) (*models.Listing, error)
}

// IdentityLookup resolves owner ids to agent identities. Unknown ids are
// absent from the result.
type IdentityLookup interface {
	GetIdentities(ctx context.Context, ids []string) (map[string]models.AgentIdentity, error)
}

type CatalogService struct {
	listings   ListingReader
	identities IdentityLookup
}

func NewCatalogService(listings ListingReader, identities IdentityLookup) *CatalogService {
	return &CatalogService{listings: listings, identities: identities}
}

// List returns a page of listings, each joined with its owner's identity.
// Identities for the whole page are fetched in a single lookup.
func (s *CatalogService) List(ctx context.Context, q models.CatalogQuery) (*models.CatalogPage, error) {
	if q.Page < 1 {
		return nil, fmt.Errorf("%w: page must be >= 1, got %d", ErrInvalidQuery, q.Page)
	}
	if q.Limit < 0 {
		return nil, fmt.Errorf("%w: limit must be >= 0, got %d", ErrInvalidQuery, q.Limit)
	}
	if q.Limit > 0 && q.Page-1 > math.MaxInt/q.Limit {
		return nil, fmt.Errorf("%w: page %d with limit %d is out of range", ErrInvalidQuery, q.Page, q.Limit)
	}

	offset, limit := q.Window()
	listings, total, err := s.listings.ListListings(ctx, models.ListingFilter{
		OwnerID: q.OwnerID,
		Offset:  offset,
		Limit:   limit,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: list listings: %w", ErrQueryFailed, err)
	}

	var identities map[string]models.AgentIdentity
	if ids := ownerIDs(listings); len(ids) > 0 {
		identities, err = s.identities.GetIdentities(ctx, ids)
		if err != nil {
			return nil, fmt.Errorf("%w: get identities: %w", ErrQueryFailed, err)
		}
	}

	rows := make([]models.CatalogRow, 0, len(listings))
	for _, l := range listings {
		row := models.CatalogRow{Listing: l}
		if l.OwnerID != nil {
			if ident, ok := identities[*l.OwnerID]; ok {
				row.AgentDetail = &ident
			}
		}
		rows = append(rows, row)
	}

	page := &models.CatalogPage{
		Total:   total,
		OwnerID: q.OwnerID,
		Rows:    rows,
	}
	if q.Limit > 0 {
		p, l := q.Page, q.Limit
		page.Page = &p
		page.Limit = &l
	}
	return page, nil
}

// Get returns a single listing joined with its owner's identity.
func (s *CatalogService) Get(ctx context.Context, listingID string) (*models.CatalogRow, error) {
	l, err := s.listings.GetListing(ctx, listingID)
	if err != nil {
		return nil, fmt.Errorf("%w: get listing: %w", ErrQueryFailed, err)
	}
	if l == nil {
		return nil, fmt.Errorf("%w: %s", ErrListingNotFound, listingID)
	}

	row := &models.CatalogRow{Listing: *l}
	if l.OwnerID == nil {
		return row, nil
	}
	identities, err := s.identities.GetIdentities(ctx, []string{*l.OwnerID})
	if err != nil {
		return nil, fmt.Errorf("%w: get identities: %w", ErrQueryFailed, err)
	}
	if ident, ok := identities[*l.OwnerID]; ok {
		row.AgentDetail = &ident
	}
	return row, nil
}

func ownerIDs(listings []models.Listing) []string {
	seen := make(map[string]struct{})
	ids := make([]string, 0)
	for _, l := range listings {
		if l.OwnerID == nil {
			continue
		}
		if _, ok := seen[*l.OwnerID]; ok {
			continue
		}
		seen[*l.OwnerID] = struct{}{}
		ids = append(ids, *l.OwnerID)
	}
	sort.Strings(ids)
	return ids
}
