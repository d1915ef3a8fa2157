package zonapropfetcher

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"listings-ingest-service/internal/core/domain"
)

// Zonaprop mainFeatures keys:
// CFT100 - superficie total
// CFT101 - superficie cubierta
// CFT1   - ambientes
// CFT2   - dormitorios
// CFT3   - baños

// apiPosting is the shape of one entry of listPostings.
type apiPosting struct {
	PostingID           json.Number           `json:"postingId"`
	ID                  json.Number           `json:"id"`
	URL                 string                `json:"url"`
	Title               string                `json:"title"`
	Description         string                `json:"description"`
	DescriptionNorm     string                `json:"descriptionNormalized"`
	PriceOperationTypes []apiPriceOperation   `json:"priceOperationTypes"`
	Expenses            *apiAmount            `json:"expenses"`
	PostingLocation     apiLocation           `json:"postingLocation"`
	MainFeatures        map[string]apiFeature `json:"mainFeatures"`
	VisiblePictures     apiPictures           `json:"visiblePictures"`
	Publisher           *apiPublisher         `json:"publisher"`
	RealEstateType      *apiNamed             `json:"realEstateType"`
	ModifiedDate        string                `json:"modified_date"`
}

type apiPriceOperation struct {
	OperationType apiNamed    `json:"operationType"`
	Prices        []apiAmount `json:"prices"`
}

type apiAmount struct {
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
}

type apiNamed struct {
	Name string `json:"name"`
}

type apiLocation struct {
	Address struct {
		Name string `json:"name"`
	} `json:"address"`
	PostingGeolocation struct {
		Geolocation struct {
			Latitude  *float64 `json:"latitude"`
			Longitude *float64 `json:"longitude"`
		} `json:"geolocation"`
	} `json:"postingGeolocation"`
}

type apiFeature struct {
	Value json.RawMessage `json:"value"`
}

type apiPictures struct {
	Pictures []apiPicture `json:"pictures"`
}

type apiPicture struct {
	URL730x532 string `json:"url730x532"`
	URL360x266 string `json:"url360x266"`
}

type apiPublisher struct {
	Name string `json:"name"`
}

// Normalize maps one raw posting into the canonical listing. Records that
// cannot be mapped come back as a RejectionError carrying the raw item.
func (a *ZonapropFetcherAdapter) Normalize(raw json.RawMessage) (*domain.Listing, error) {
	var posting apiPosting
	if err := json.Unmarshal(raw, &posting); err != nil {
		return nil, domain.NewRejectionError(domain.PlatformZonaprop, raw, "failed to unmarshal posting: %v", err)
	}

	listingID := posting.PostingID.String()
	if listingID == "" {
		listingID = posting.ID.String()
	}
	if listingID == "" {
		return nil, domain.NewRejectionError(domain.PlatformZonaprop, raw, "posting has no id")
	}

	listingURL := posting.URL
	if strings.HasPrefix(listingURL, "/") {
		listingURL = a.baseURL + listingURL
	}

	if len(posting.PriceOperationTypes) == 0 {
		return nil, domain.NewRejectionError(domain.PlatformZonaprop, raw, "posting %s has no operation", listingID)
	}
	opData := posting.PriceOperationTypes[0]

	var operation domain.OperationType
	opName := strings.ToLower(opData.OperationType.Name)
	switch {
	case strings.Contains(opName, "venta"):
		operation = domain.OperationSale
	case strings.Contains(opName, "alquiler"):
		operation = domain.OperationRent
	default:
		return nil, domain.NewRejectionError(domain.PlatformZonaprop, raw, "posting %s has unknown operation %q", listingID, opData.OperationType.Name)
	}

	var price *float64
	currency := domain.CurrencyUSD
	if len(opData.Prices) > 0 {
		p := opData.Prices[0].Amount
		price = &p
		currency = domain.Currency(opData.Prices[0].Currency)
	}

	var expenses *float64
	if posting.Expenses != nil && posting.Expenses.Amount > 0 {
		e := posting.Expenses.Amount
		expenses = &e
	}

	propertyType := "unknown"
	if posting.RealEstateType != nil && posting.RealEstateType.Name != "" {
		propertyType = posting.RealEstateType.Name
	}

	geo := posting.PostingLocation.PostingGeolocation.Geolocation
	lat, lng := geo.Latitude, geo.Longitude
	// a lone coordinate is useless, drop the pair
	if (lat == nil) != (lng == nil) {
		lat, lng = nil, nil
	}

	images := make([]string, 0, len(posting.VisiblePictures.Pictures))
	for _, pic := range posting.VisiblePictures.Pictures {
		url := pic.URL730x532
		if url == "" {
			url = pic.URL360x266
		}
		if url != "" {
			images = append(images, url)
		}
	}

	var agent *string
	if posting.Publisher != nil && posting.Publisher.Name != "" {
		agent = &posting.Publisher.Name
	}

	var sourceUpdatedAt *time.Time
	if posting.ModifiedDate != "" {
		if t, err := parseModifiedDate(posting.ModifiedDate); err == nil {
			sourceUpdatedAt = &t
		}
	}

	listing := &domain.Listing{
		Platform:          domain.PlatformZonaprop,
		PlatformListingID: listingID,
		ListingURL:        listingURL,
		OperationType:     operation,
		PropertyType:      propertyType,
		Status:            domain.StatusActive,
		Price:             price,
		Currency:          currency,
		Expenses:          expenses,
		AddressText:       strPtr(posting.PostingLocation.Address.Name),
		Latitude:          lat,
		Longitude:         lng,
		SurfaceTotal:      featureFloat(posting.MainFeatures, "CFT100"),
		SurfaceCovered:    featureFloat(posting.MainFeatures, "CFT101"),
		Rooms:             featureInt(posting.MainFeatures, "CFT1"),
		Bedrooms:          featureInt(posting.MainFeatures, "CFT2"),
		Bathrooms:         featureInt(posting.MainFeatures, "CFT3"),
		Title:             strPtr(posting.Title),
		Description:       strPtr(firstNonEmpty(posting.DescriptionNorm, posting.Description)),
		Images:            images,
		AgentPublisher:    agent,
		SourceUpdatedAt:   sourceUpdatedAt,
	}

	if err := listing.Validate(); err != nil {
		return nil, domain.NewRejectionError(domain.PlatformZonaprop, raw, "posting %s failed validation: %v", listingID, err)
	}
	return listing, nil
}

// parseModifiedDate handles the API's timestamp format, which carries a
// numeric zone offset without a colon (2026-01-20T11:49:39-0300).
func parseModifiedDate(s string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02T15:04:05-0700", s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// featureFloat reads a numeric mainFeatures value; the API serves them both
// as numbers and as strings like "75 m²".
func featureFloat(features map[string]apiFeature, key string) *float64 {
	feat, ok := features[key]
	if !ok || len(feat.Value) == 0 {
		return nil
	}

	var num float64
	if err := json.Unmarshal(feat.Value, &num); err == nil {
		return &num
	}

	var str string
	if err := json.Unmarshal(feat.Value, &str); err != nil {
		return nil
	}
	str = strings.TrimSpace(str)
	if i := strings.IndexByte(str, ' '); i > 0 {
		str = str[:i]
	}
	parsed, err := strconv.ParseFloat(str, 64)
	if err != nil {
		return nil
	}
	return &parsed
}

func featureInt(features map[string]apiFeature, key string) *int {
	f := featureFloat(features, key)
	if f == nil {
		return nil
	}
	v := int(*f)
	return &v
}
