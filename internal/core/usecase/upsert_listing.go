package usecase

import (
	"context"
	"fmt"

	"listings-ingest-service/internal/core/domain"
	"listings-ingest-service/internal/core/port"
)

// UpsertListingUseCase is the single write path into the listing store.
// Every listing goes through canonical validation before it is handed to
// the storage adapter, whatever connector produced it.
type UpsertListingUseCase struct {
	storageRepo port.ListingStoragePort
}

func NewUpsertListingUseCase(storage port.ListingStoragePort) *UpsertListingUseCase {
	return &UpsertListingUseCase{storageRepo: storage}
}

func (uc *UpsertListingUseCase) Execute(ctx context.Context, listing domain.Listing) error {
	if err := listing.Validate(); err != nil {
		return fmt.Errorf("%w: %s: %v", domain.ErrStoreRejected, listing.NaturalKey(), err)
	}
	return uc.storageRepo.Upsert(ctx, listing)
}
