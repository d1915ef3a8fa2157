package port

import (
	"context"

	"listings-ingest-service/internal/core/domain"
)

// ListingStoragePort persists canonical listings with upsert semantics on
// the natural key. Errors are classified: wrapping domain.ErrStoreRejected
// for documents the store refuses (data quality, non-fatal) and
// domain.ErrStoreUnavailable for outages (fatal to the run).
type ListingStoragePort interface {
	Upsert(ctx context.Context, listing domain.Listing) error
}
