package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"listings-ingest-service/internal/contracts"
	"listings-ingest-service/internal/core/domain"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mmcloughlin/geohash"
)

const geohashPrecision = 5

// ListingStorageAdapter implements ListingStoragePort for PostgreSQL.
type ListingStorageAdapter struct {
	pool *pgxpool.Pool
}

func NewListingStorageAdapter(pool *pgxpool.Pool) (*ListingStorageAdapter, error) {
	if pool == nil {
		return nil, fmt.Errorf("pgxpool.Pool cannot be nil")
	}
	return &ListingStorageAdapter{pool: pool}, nil
}

// listingDocument is the canonical document shape validated against the
// listing schema before every write.
type listingDocument struct {
	Platform          string     `json:"platform"`
	PlatformListingID string     `json:"platform_listing_id"`
	ListingURL        string     `json:"listing_url"`
	OperationType     string     `json:"operation_type"`
	PropertyType      string     `json:"property_type"`
	Status            string     `json:"status"`
	Price             *float64   `json:"price"`
	Currency          string     `json:"currency"`
	Expenses          *float64   `json:"expenses"`
	AddressText       *string    `json:"address_text"`
	Latitude          *float64   `json:"latitude"`
	Longitude         *float64   `json:"longitude"`
	SurfaceTotal      *float64   `json:"surface_total"`
	SurfaceCovered    *float64   `json:"surface_covered"`
	Rooms             *int       `json:"rooms"`
	Bedrooms          *int       `json:"bedrooms"`
	Bathrooms         *int       `json:"bathrooms"`
	Title             *string    `json:"title"`
	Description       *string    `json:"description"`
	Images            []string   `json:"images"`
	AgentPublisher    *string    `json:"agent_publisher"`
	SourceCreatedAt   *time.Time `json:"source_created_at"`
	SourceUpdatedAt   *time.Time `json:"source_updated_at"`
	IngestedAt        time.Time  `json:"ingested_at"`
}

func toDocument(l domain.Listing, ingestedAt time.Time) listingDocument {
	images := l.Images
	if images == nil {
		images = []string{}
	}
	return listingDocument{
		Platform:          string(l.Platform),
		PlatformListingID: l.PlatformListingID,
		ListingURL:        l.ListingURL,
		OperationType:     string(l.OperationType),
		PropertyType:      l.PropertyType,
		Status:            string(l.Status),
		Price:             l.Price,
		Currency:          string(l.Currency),
		Expenses:          l.Expenses,
		AddressText:       l.AddressText,
		Latitude:          l.Latitude,
		Longitude:         l.Longitude,
		SurfaceTotal:      l.SurfaceTotal,
		SurfaceCovered:    l.SurfaceCovered,
		Rooms:             l.Rooms,
		Bedrooms:          l.Bedrooms,
		Bathrooms:         l.Bathrooms,
		Title:             l.Title,
		Description:       l.Description,
		Images:            images,
		AgentPublisher:    l.AgentPublisher,
		SourceCreatedAt:   l.SourceCreatedAt,
		SourceUpdatedAt:   l.SourceUpdatedAt,
		IngestedAt:        ingestedAt,
	}
}

// locationHash buckets a listing's coordinates for cheap proximity grouping.
func locationHash(l domain.Listing) *string {
	point := l.GeoPoint()
	if point == nil {
		return nil
	}
	h := geohash.Encode(point.Latitude, point.Longitude)[:geohashPrecision]
	return &h
}

const upsertListingSQL = `
	INSERT INTO listings (
		platform, platform_listing_id, listing_url, operation_type, property_type,
		status, price, currency, expenses, address_text, latitude, longitude,
		surface_total, surface_covered, rooms, bedrooms, bathrooms,
		title, description, images, agent_publisher, location_hash,
		source_created_at, source_updated_at, ingested_at
	) VALUES (
		$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12,
		$13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25
	)
	ON CONFLICT (platform, platform_listing_id) DO UPDATE SET
		listing_url = EXCLUDED.listing_url,
		operation_type = EXCLUDED.operation_type,
		property_type = EXCLUDED.property_type,
		status = EXCLUDED.status,
		price = EXCLUDED.price,
		currency = EXCLUDED.currency,
		expenses = EXCLUDED.expenses,
		address_text = EXCLUDED.address_text,
		latitude = EXCLUDED.latitude,
		longitude = EXCLUDED.longitude,
		surface_total = EXCLUDED.surface_total,
		surface_covered = EXCLUDED.surface_covered,
		rooms = EXCLUDED.rooms,
		bedrooms = EXCLUDED.bedrooms,
		bathrooms = EXCLUDED.bathrooms,
		title = EXCLUDED.title,
		description = EXCLUDED.description,
		images = EXCLUDED.images,
		agent_publisher = EXCLUDED.agent_publisher,
		location_hash = EXCLUDED.location_hash,
		source_created_at = EXCLUDED.source_created_at,
		source_updated_at = EXCLUDED.source_updated_at,
		ingested_at = EXCLUDED.ingested_at;
`

// Upsert writes one canonical listing under its natural key. The full
// document is replaced on conflict; only ingested_at is always stamped fresh.
func (a *ListingStorageAdapter) Upsert(ctx context.Context, listing domain.Listing) error {
	doc := toDocument(listing, time.Now().UTC())

	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("%w: failed to marshal document for %s: %v", domain.ErrStoreRejected, listing.NaturalKey(), err)
	}
	if err := contracts.ValidateListingDocument(body); err != nil {
		return fmt.Errorf("%w: %s: %v", domain.ErrStoreRejected, listing.NaturalKey(), err)
	}

	_, err = a.pool.Exec(ctx, upsertListingSQL,
		doc.Platform, doc.PlatformListingID, doc.ListingURL, doc.OperationType, doc.PropertyType,
		doc.Status, doc.Price, doc.Currency, doc.Expenses, doc.AddressText, doc.Latitude, doc.Longitude,
		doc.SurfaceTotal, doc.SurfaceCovered, doc.Rooms, doc.Bedrooms, doc.Bathrooms,
		doc.Title, doc.Description, doc.Images, doc.AgentPublisher, locationHash(listing),
		doc.SourceCreatedAt, doc.SourceUpdatedAt, doc.IngestedAt,
	)
	if err != nil {
		return classifyWriteError(listing.NaturalKey(), err)
	}
	return nil
}

// classifyWriteError separates per-document rejections (constraint and data
// errors) from store outages. Everything that is not clearly about this one
// document is treated as unavailability.
func classifyWriteError(naturalKey string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// class 22 - data exception, class 23 - integrity constraint violation
		class := ""
		if len(pgErr.Code) >= 2 {
			class = pgErr.Code[:2]
		}
		if class == "22" || class == "23" {
			return fmt.Errorf("%w: %s: %s (%s)", domain.ErrStoreRejected, naturalKey, pgErr.Message, pgErr.Code)
		}
	}
	return fmt.Errorf("%w: failed to upsert %s: %v", domain.ErrStoreUnavailable, naturalKey, err)
}
