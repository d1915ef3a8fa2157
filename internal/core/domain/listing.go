package domain

import (
	"fmt"
	"time"
)

// Platform identifies a supported upstream source.
type Platform string

const (
	PlatformZonaprop     Platform = "zonaprop"
	PlatformMercadoLibre Platform = "mercadolibre"
)

// OperationType is the listing category crawled independently per zone.
type OperationType string

const (
	OperationSale OperationType = "sale"
	OperationRent OperationType = "rent"
)

type ListingStatus string

const (
	StatusActive   ListingStatus = "active"
	StatusDelisted ListingStatus = "delisted"
	StatusPaused   ListingStatus = "paused"
	StatusSold     ListingStatus = "sold"
	StatusRented   ListingStatus = "rented"
)

type Currency string

const (
	CurrencyARS Currency = "ARS"
	CurrencyUSD Currency = "USD"
	CurrencyEUR Currency = "EUR"
)

// GeoPoint is the geometry point derived from a listing's coordinates,
// ordered (longitude, latitude) as geospatial indexes expect.
type GeoPoint struct {
	Longitude float64
	Latitude  float64
}

// Listing is the canonical cross-platform representation of one property
// listing as seen on one platform. Optional upstream values are pointers:
// nil means "not disclosed", never zero.
type Listing struct {
	Platform          Platform
	PlatformListingID string
	ListingURL        string

	OperationType OperationType
	PropertyType  string
	Status        ListingStatus

	Price    *float64
	Currency Currency
	Expenses *float64

	AddressText *string
	Latitude    *float64
	Longitude   *float64

	SurfaceTotal   *float64
	SurfaceCovered *float64
	Rooms          *int
	Bedrooms       *int
	Bathrooms      *int

	Title          *string
	Description    *string
	Images         []string
	AgentPublisher *string

	SourceCreatedAt *time.Time
	SourceUpdatedAt *time.Time

	// IngestedAt is stamped by the writer on every successful write.
	IngestedAt time.Time
}

// NaturalKey returns the identity under which the store deduplicates:
// at most one document may exist per (platform, platform_listing_id).
func (l *Listing) NaturalKey() string {
	return fmt.Sprintf("%s:%s", l.Platform, l.PlatformListingID)
}

// GeoPoint returns the derived geometry point, present iff both
// coordinates are present.
func (l *Listing) GeoPoint() *GeoPoint {
	if l.Latitude == nil || l.Longitude == nil {
		return nil
	}
	return &GeoPoint{Longitude: *l.Longitude, Latitude: *l.Latitude}
}

// Validate enforces the canonical field constraints. Connectors call it as
// the last step of normalization so malformed upstream data is rejected
// before it ever reaches the writer.
func (l *Listing) Validate() error {
	switch l.Platform {
	case PlatformZonaprop, PlatformMercadoLibre:
	default:
		return fmt.Errorf("unknown platform %q", l.Platform)
	}
	if l.PlatformListingID == "" {
		return fmt.Errorf("platform_listing_id is empty")
	}
	switch l.OperationType {
	case OperationSale, OperationRent:
	default:
		return fmt.Errorf("unknown operation_type %q", l.OperationType)
	}
	if l.PropertyType == "" {
		return fmt.Errorf("property_type is empty")
	}
	switch l.Status {
	case StatusActive, StatusDelisted, StatusPaused, StatusSold, StatusRented:
	default:
		return fmt.Errorf("unknown status %q", l.Status)
	}
	switch l.Currency {
	case CurrencyARS, CurrencyUSD, CurrencyEUR:
	default:
		return fmt.Errorf("unknown currency %q", l.Currency)
	}
	if l.Price != nil && *l.Price < 0 {
		return fmt.Errorf("price %f is negative", *l.Price)
	}
	if l.Expenses != nil && *l.Expenses < 0 {
		return fmt.Errorf("expenses %f is negative", *l.Expenses)
	}
	if (l.Latitude == nil) != (l.Longitude == nil) {
		return fmt.Errorf("latitude and longitude must be present together")
	}
	if l.Latitude != nil && (*l.Latitude < -90 || *l.Latitude > 90) {
		return fmt.Errorf("latitude %f out of range [-90, 90]", *l.Latitude)
	}
	if l.Longitude != nil && (*l.Longitude < -180 || *l.Longitude > 180) {
		return fmt.Errorf("longitude %f out of range [-180, 180]", *l.Longitude)
	}
	if l.SurfaceTotal != nil && *l.SurfaceTotal < 0 {
		return fmt.Errorf("surface_total %f is negative", *l.SurfaceTotal)
	}
	if l.SurfaceCovered != nil && *l.SurfaceCovered < 0 {
		return fmt.Errorf("surface_covered %f is negative", *l.SurfaceCovered)
	}
	for name, v := range map[string]*int{"rooms": l.Rooms, "bedrooms": l.Bedrooms, "bathrooms": l.Bathrooms} {
		if v != nil && *v < 0 {
			return fmt.Errorf("%s %d is negative", name, *v)
		}
	}
	return nil
}
