package services

import "errors"

var (
	// ErrFetchFailed means no records were obtained: the credential exchange
	// or the upstream fetch failed and nothing was persisted.
	ErrFetchFailed = errors.New("ingestion fetch failed")

	// ErrQueryFailed means a catalog read could not complete. No partial
	// page is returned with it.
	ErrQueryFailed = errors.New("catalog query failed")

	ErrInvalidQuery = errors.New("invalid catalog query")

	ErrListingNotFound = errors.New("listing not found")
)
