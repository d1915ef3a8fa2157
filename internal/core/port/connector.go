package port

import (
	"context"
	"encoding/json"

	"listings-ingest-service/internal/core/domain"
)

// ListingConnectorPort is implemented once per supported platform. The
// orchestrator never sees platform wire shapes: it drives FetchPage with an
// opaque continuation value and routes each raw item through Normalize.
type ListingConnectorPort interface {
	Platform() domain.Platform

	// FetchPage fetches one page of raw results for a (zone, operation)
	// pair. Failures are reported as *domain.FetchError so the caller can
	// distinguish transient from terminal ones.
	FetchPage(ctx context.Context, req domain.PageRequest) (*domain.RawPage, error)

	// Normalize maps one raw platform record into the canonical listing.
	// It is a pure function of its input; unmappable records are returned
	// as *domain.RejectionError, never silently coerced.
	Normalize(raw json.RawMessage) (*domain.Listing, error)
}
