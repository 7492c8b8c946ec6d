package storage

import (
	"context"
	"sort"
	"sync"

	"feedsync/models"
)

// MemoryStore keeps listings and identities in process memory. It backs
// local runs without DATABASE_URL and follows the same ordering and
// windowing rules as PostgresStore.
type MemoryStore struct {
	mu         sync.RWMutex
	listings   map[string]models.Listing
	identities map[string]models.AgentIdentity
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		listings:   make(map[string]models.Listing),
		identities: make(map[string]models.AgentIdentity),
	}
}

// UpsertListing replaces the whole row for the listing id.
func (s *MemoryStore) UpsertListing(ctx context.Context, l *models.Listing) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listings[l.ListingID] = *l
	return nil
}

// GetListing returns nil, nil when the listing does not exist.
func (s *MemoryStore) GetListing(ctx context.Context, listingID string) (*models.Listing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.listings[listingID]
	if !ok {
		return nil, nil
	}
	return &l, nil
}

func (s *MemoryStore) ListListings(ctx context.Context, filter models.ListingFilter) ([]models.Listing, int, error) {
	s.mu.RLock()
	matched := make([]models.Listing, 0, len(s.listings))
	for _, l := range s.listings {
		if filter.OwnerID != nil && (l.OwnerID == nil || *l.OwnerID != *filter.OwnerID) {
			continue
		}
		matched = append(matched, l)
	}
	s.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if !a.UpdatedAt.Equal(b.UpdatedAt) {
			return a.UpdatedAt.After(b.UpdatedAt)
		}
		return a.ListingID < b.ListingID
	})

	total := len(matched)
	if filter.Limit == 0 {
		return matched, total, nil
	}
	if filter.Offset < 0 || filter.Offset >= total {
		return []models.Listing{}, total, nil
	}
	end := total
	if filter.Limit < total-filter.Offset {
		end = filter.Offset + filter.Limit
	}
	return matched[filter.Offset:end], total, nil
}

// PutIdentity registers an agent identity for catalog enrichment.
func (s *MemoryStore) PutIdentity(ident models.AgentIdentity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.identities[ident.ID] = ident
}

func (s *MemoryStore) GetIdentities(ctx context.Context, ids []string) (map[string]models.AgentIdentity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]models.AgentIdentity, len(ids))
	for _, id := range ids {
		if ident, ok := s.identities[id]; ok {
			out[id] = ident
		}
	}
	return out, nil
}
