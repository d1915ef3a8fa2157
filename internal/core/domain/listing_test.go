package domain

import (
	"testing"
	"time"
)

func validListing() Listing {
	price := 125000.0
	lat, lng := -34.6037, -58.3816
	return Listing{
		Platform:          PlatformZonaprop,
		PlatformListingID: "54321",
		ListingURL:        "https://www.zonaprop.com.ar/propiedades/54321.html",
		OperationType:     OperationSale,
		PropertyType:      "Departamento",
		Status:            StatusActive,
		Price:             &price,
		Currency:          CurrencyUSD,
		Latitude:          &lat,
		Longitude:         &lng,
		Images:            []string{"https://img.example.com/1.jpg"},
		IngestedAt:        time.Now().UTC(),
	}
}

func TestListingValidateAcceptsCompleteListing(t *testing.T) {
	l := validListing()
	if err := l.Validate(); err != nil {
		t.Fatalf("Validate() = %v; want nil", err)
	}
}

func TestListingValidateRejections(t *testing.T) {
	negative := -1.0
	badLat := 95.0
	lng := -58.0

	tests := []struct {
		name   string
		mutate func(*Listing)
	}{
		{"unknown platform", func(l *Listing) { l.Platform = "idealista" }},
		{"empty listing id", func(l *Listing) { l.PlatformListingID = "" }},
		{"unknown operation", func(l *Listing) { l.OperationType = "lease" }},
		{"empty property type", func(l *Listing) { l.PropertyType = "" }},
		{"unknown status", func(l *Listing) { l.Status = "archived" }},
		{"unknown currency", func(l *Listing) { l.Currency = "BRL" }},
		{"negative price", func(l *Listing) { l.Price = &negative }},
		{"negative expenses", func(l *Listing) { l.Expenses = &negative }},
		{"latitude out of range", func(l *Listing) { l.Latitude = &badLat; l.Longitude = &lng }},
		{"lone latitude", func(l *Listing) { l.Longitude = nil }},
		{"lone longitude", func(l *Listing) { l.Latitude = nil }},
		{"negative surface", func(l *Listing) { l.SurfaceTotal = &negative }},
		{"negative rooms", func(l *Listing) { v := -2; l.Rooms = &v }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := validListing()
			tt.mutate(&l)
			if err := l.Validate(); err == nil {
				t.Errorf("Validate() = nil; want error")
			}
		})
	}
}

func TestListingValidateAllowsAbsentOptionals(t *testing.T) {
	l := validListing()
	l.Price = nil
	l.Latitude = nil
	l.Longitude = nil
	l.Images = nil
	if err := l.Validate(); err != nil {
		t.Fatalf("Validate() = %v; want nil", err)
	}
}

func TestListingNaturalKey(t *testing.T) {
	l := validListing()
	if got, want := l.NaturalKey(), "zonaprop:54321"; got != want {
		t.Errorf("NaturalKey() = %q; want %q", got, want)
	}
}

func TestListingGeoPoint(t *testing.T) {
	l := validListing()
	point := l.GeoPoint()
	if point == nil {
		t.Fatal("GeoPoint() = nil; want point")
	}
	if point.Longitude != *l.Longitude || point.Latitude != *l.Latitude {
		t.Errorf("GeoPoint() = %+v; want lng %f lat %f", point, *l.Longitude, *l.Latitude)
	}

	l.Latitude = nil
	l.Longitude = nil
	if l.GeoPoint() != nil {
		t.Error("GeoPoint() without coordinates should be nil")
	}
}
