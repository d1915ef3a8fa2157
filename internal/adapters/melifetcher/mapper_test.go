package melifetcher

import (
	"encoding/json"
	"errors"
	"testing"

	"listings-ingest-service/internal/core/domain"
)

const sampleItem = `{
	"id": "MLA998877",
	"title": "Departamento 2 ambientes en Caballito",
	"permalink": "https://departamento.mercadolibre.com.ar/MLA-998877",
	"price": 125000,
	"currency_id": "USD",
	"thumbnail": "https://http2.mlstatic.com/D_998877-O.jpg",
	"stop_time": "2026-11-30T04:00:00.000Z",
	"location": {
		"address_line": "Av. Rivadavia 5000",
		"latitude": -34.6158,
		"longitude": -58.4333
	},
	"attributes": [
		{"id": "OPERATION", "value_name": "Venta"},
		{"id": "PROPERTY_TYPE", "value_name": "Departamento"},
		{"id": "ROOMS", "value_name": "2"},
		{"id": "BEDROOMS", "value_name": "1"},
		{"id": "FULL_BATHROOMS", "value_name": "1"},
		{"id": "TOTAL_AREA", "value_name": "48 m²", "value_struct": {"number": 48, "unit": "m²"}},
		{"id": "COVERED_AREA", "value_name": "44 m²", "value_struct": {"number": 44, "unit": "m²"}}
	]
}`

func testAdapter() *MeliFetcherAdapter {
	return &MeliFetcherAdapter{baseURL: "https://api.mercadolibre.com"}
}

func TestNormalizeMapsCompleteItem(t *testing.T) {
	listing, err := testAdapter().Normalize(json.RawMessage(sampleItem))
	if err != nil {
		t.Fatalf("Normalize() = %v; want nil", err)
	}

	if listing.Platform != domain.PlatformMercadoLibre {
		t.Errorf("Platform = %s; want mercadolibre", listing.Platform)
	}
	if listing.PlatformListingID != "MLA998877" {
		t.Errorf("PlatformListingID = %q; want MLA998877", listing.PlatformListingID)
	}
	if listing.OperationType != domain.OperationSale {
		t.Errorf("OperationType = %s; want sale", listing.OperationType)
	}
	if listing.PropertyType != "Departamento" {
		t.Errorf("PropertyType = %q; want Departamento", listing.PropertyType)
	}
	if listing.Price == nil || *listing.Price != 125000 {
		t.Errorf("Price = %v; want 125000", listing.Price)
	}
	if listing.Currency != domain.CurrencyUSD {
		t.Errorf("Currency = %s; want USD", listing.Currency)
	}
	if listing.Rooms == nil || *listing.Rooms != 2 {
		t.Errorf("Rooms = %v; want 2", listing.Rooms)
	}
	if listing.SurfaceTotal == nil || *listing.SurfaceTotal != 48 {
		t.Errorf("SurfaceTotal = %v; want 48 from value_struct", listing.SurfaceTotal)
	}
	if listing.SurfaceCovered == nil || *listing.SurfaceCovered != 44 {
		t.Errorf("SurfaceCovered = %v; want 44", listing.SurfaceCovered)
	}
	if listing.Latitude == nil || *listing.Latitude != -34.6158 {
		t.Errorf("Latitude = %v; want -34.6158", listing.Latitude)
	}
	if len(listing.Images) != 1 {
		t.Errorf("Images = %v; want the thumbnail", listing.Images)
	}
	if listing.SourceUpdatedAt == nil {
		t.Error("SourceUpdatedAt should be parsed from stop_time")
	}
}

func TestNormalizeMapsAlquilerToRent(t *testing.T) {
	var item map[string]json.RawMessage
	if err := json.Unmarshal([]byte(sampleItem), &item); err != nil {
		t.Fatal(err)
	}
	item["attributes"] = json.RawMessage(`[
		{"id": "OPERATION", "value_name": "Alquiler"},
		{"id": "PROPERTY_TYPE", "value_name": "Casa"}
	]`)
	raw, _ := json.Marshal(item)

	listing, err := testAdapter().Normalize(raw)
	if err != nil {
		t.Fatalf("Normalize() = %v; want nil", err)
	}
	if listing.OperationType != domain.OperationRent {
		t.Errorf("OperationType = %s; want rent", listing.OperationType)
	}
	if listing.PropertyType != "Casa" {
		t.Errorf("PropertyType = %q; want Casa", listing.PropertyType)
	}
}

func TestNormalizeRejections(t *testing.T) {
	tests := []struct {
		name  string
		patch func(map[string]json.RawMessage)
	}{
		{"missing id", func(p map[string]json.RawMessage) {
			p["id"] = json.RawMessage(`""`)
		}},
		{"unknown operation", func(p map[string]json.RawMessage) {
			p["attributes"] = json.RawMessage(`[{"id": "OPERATION", "value_name": "Permuta"}]`)
		}},
		{"no operation attribute", func(p map[string]json.RawMessage) {
			p["attributes"] = json.RawMessage(`[{"id": "PROPERTY_TYPE", "value_name": "Departamento"}]`)
		}},
		{"unknown currency", func(p map[string]json.RawMessage) {
			p["currency_id"] = json.RawMessage(`"BRL"`)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var item map[string]json.RawMessage
			if err := json.Unmarshal([]byte(sampleItem), &item); err != nil {
				t.Fatal(err)
			}
			tt.patch(item)
			raw, _ := json.Marshal(item)

			_, err := testAdapter().Normalize(raw)
			var rejection *domain.RejectionError
			if !errors.As(err, &rejection) {
				t.Fatalf("Normalize() = %v; want *RejectionError", err)
			}
		})
	}
}

func TestNormalizeWithoutCoordinates(t *testing.T) {
	var item map[string]json.RawMessage
	if err := json.Unmarshal([]byte(sampleItem), &item); err != nil {
		t.Fatal(err)
	}
	item["location"] = json.RawMessage(`{"address_line": "Av. Rivadavia 5000"}`)
	raw, _ := json.Marshal(item)

	listing, err := testAdapter().Normalize(raw)
	if err != nil {
		t.Fatalf("Normalize() = %v; want nil", err)
	}
	if listing.Latitude != nil || listing.Longitude != nil {
		t.Error("coordinates should be nil when the API omits them")
	}
	if listing.AddressText == nil || *listing.AddressText != "Av. Rivadavia 5000" {
		t.Errorf("AddressText = %v; want Av. Rivadavia 5000", listing.AddressText)
	}
}

func TestAttrFloatFallsBackToValueName(t *testing.T) {
	attrs := map[string]apiAttribute{
		"ROOMS":      {ID: "ROOMS", ValueName: "3"},
		"TOTAL_AREA": {ID: "TOTAL_AREA", ValueName: "75 m²"},
		"BAD":        {ID: "BAD", ValueName: "n/a"},
	}
	if v := attrFloat(attrs, "ROOMS"); v == nil || *v != 3 {
		t.Errorf("attrFloat(ROOMS) = %v; want 3", v)
	}
	if v := attrFloat(attrs, "TOTAL_AREA"); v == nil || *v != 75 {
		t.Errorf("attrFloat(TOTAL_AREA) = %v; want 75", v)
	}
	if v := attrFloat(attrs, "BAD"); v != nil {
		t.Errorf("attrFloat(BAD) = %v; want nil", v)
	}
	if v := attrFloat(attrs, "MISSING"); v != nil {
		t.Errorf("attrFloat(MISSING) = %v; want nil", v)
	}
}
