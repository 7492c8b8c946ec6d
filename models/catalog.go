package models

// CatalogQuery is a catalog read request. Limit 0 returns every matching row.
type CatalogQuery struct {
	OwnerID *string
	Page    int
	Limit   int
}

// Window converts the page/limit pair into a row offset and count.
func (q CatalogQuery) Window() (offset, limit int) {
	if q.Limit == 0 {
		return 0, 0
	}
	return (q.Page - 1) * q.Limit, q.Limit
}

// ListingFilter is what the store sees of a catalog query.
type ListingFilter struct {
	OwnerID *string
	Offset  int
	Limit   int // 0 = no window
}

// CatalogRow is a stored listing plus the identity of its owner, if any.
type CatalogRow struct {
	Listing
	AgentDetail *AgentIdentity `json:"agent_detail"`
}

// CatalogPage is one catalog read. Page and Limit are nil when the read
// was not paginated.
type CatalogPage struct {
	Total   int          `json:"total"`
	Page    *int         `json:"page"`
	Limit   *int         `json:"limit"`
	OwnerID *string      `json:"owner_id"`
	Rows    []CatalogRow `json:"rows"`
}
