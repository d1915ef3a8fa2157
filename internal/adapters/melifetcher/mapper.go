package melifetcher

import (
	"encoding/json"
	"strings"
	"time"

	"listings-ingest-service/internal/core/domain"
)

// apiItem is the shape of one entry of results.
type apiItem struct {
	ID         string         `json:"id"`
	Title      string         `json:"title"`
	Permalink  string         `json:"permalink"`
	Price      *float64       `json:"price"`
	CurrencyID string         `json:"currency_id"`
	Thumbnail  string         `json:"thumbnail"`
	Location   apiLocation    `json:"location"`
	Attributes []apiAttribute `json:"attributes"`
	StopTime   string         `json:"stop_time"`
}

type apiLocation struct {
	AddressLine string   `json:"address_line"`
	Latitude    *float64 `json:"latitude"`
	Longitude   *float64 `json:"longitude"`
}

type apiAttribute struct {
	ID          string      `json:"id"`
	ValueName   string      `json:"value_name"`
	ValueStruct *apiMeasure `json:"value_struct"`
}

type apiMeasure struct {
	Number float64 `json:"number"`
	Unit   string  `json:"unit"`
}

// Normalize maps one raw search result into the canonical listing.
func (a *MeliFetcherAdapter) Normalize(raw json.RawMessage) (*domain.Listing, error) {
	var item apiItem
	if err := json.Unmarshal(raw, &item); err != nil {
		return nil, domain.NewRejectionError(domain.PlatformMercadoLibre, raw, "failed to unmarshal item: %v", err)
	}

	if item.ID == "" {
		return nil, domain.NewRejectionError(domain.PlatformMercadoLibre, raw, "item has no id")
	}

	attrs := attributesToMap(item.Attributes)

	opAttr, ok := attrs["OPERATION"]
	if !ok {
		return nil, domain.NewRejectionError(domain.PlatformMercadoLibre, raw, "item %s has no operation attribute", item.ID)
	}
	var operation domain.OperationType
	switch {
	case strings.EqualFold(opAttr.ValueName, "Venta"):
		operation = domain.OperationSale
	case strings.EqualFold(opAttr.ValueName, "Alquiler"):
		operation = domain.OperationRent
	default:
		return nil, domain.NewRejectionError(domain.PlatformMercadoLibre, raw, "item %s has unknown operation %q", item.ID, opAttr.ValueName)
	}

	propertyType := "unknown"
	if typeAttr, ok := attrs["PROPERTY_TYPE"]; ok && typeAttr.ValueName != "" {
		propertyType = typeAttr.ValueName
	}

	currency := domain.CurrencyARS
	if item.CurrencyID != "" {
		currency = domain.Currency(item.CurrencyID)
	}

	lat, lng := item.Location.Latitude, item.Location.Longitude
	if (lat == nil) != (lng == nil) {
		lat, lng = nil, nil
	}

	var images []string
	if item.Thumbnail != "" {
		images = append(images, item.Thumbnail)
	}

	var sourceUpdatedAt *time.Time
	if item.StopTime != "" {
		if t, err := time.Parse(time.RFC3339, item.StopTime); err == nil {
			sourceUpdatedAt = &t
		}
	}

	listing := &domain.Listing{
		Platform:          domain.PlatformMercadoLibre,
		PlatformListingID: item.ID,
		ListingURL:        item.Permalink,
		OperationType:     operation,
		PropertyType:      propertyType,
		Status:            domain.StatusActive,
		Price:             item.Price,
		Currency:          currency,
		AddressText:       strPtr(item.Location.AddressLine),
		Latitude:          lat,
		Longitude:         lng,
		SurfaceTotal:      attrFloat(attrs, "TOTAL_AREA"),
		SurfaceCovered:    attrFloat(attrs, "COVERED_AREA"),
		Rooms:             attrInt(attrs, "ROOMS"),
		Bedrooms:          attrInt(attrs, "BEDROOMS"),
		Bathrooms:         attrInt(attrs, "FULL_BATHROOMS"),
		Title:             strPtr(item.Title),
		Images:            images,
		SourceUpdatedAt:   sourceUpdatedAt,
	}

	if err := listing.Validate(); err != nil {
		return nil, domain.NewRejectionError(domain.PlatformMercadoLibre, raw, "item %s failed validation: %v", item.ID, err)
	}
	return listing, nil
}

func attributesToMap(attrs []apiAttribute) map[string]apiAttribute {
	m := make(map[string]apiAttribute, len(attrs))
	for _, attr := range attrs {
		m[attr.ID] = attr
	}
	return m
}

func attrFloat(attrs map[string]apiAttribute, id string) *float64 {
	attr, ok := attrs[id]
	if !ok {
		return nil
	}
	if attr.ValueStruct != nil {
		v := attr.ValueStruct.Number
		return &v
	}
	// value_name is a string like "3" or "75 m²"
	name := strings.TrimSpace(attr.ValueName)
	if i := strings.IndexByte(name, ' '); i > 0 {
		name = name[:i]
	}
	var num float64
	if err := json.Unmarshal([]byte(name), &num); err != nil {
		return nil
	}
	return &num
}

func attrInt(attrs map[string]apiAttribute, id string) *int {
	f := attrFloat(attrs, id)
	if f == nil {
		return nil
	}
	v := int(*f)
	return &v
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
