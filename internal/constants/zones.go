package constants

import "listings-ingest-service/internal/core/domain"

// Zone registry: Argentine provinces/areas and the location codes each
// platform's API expects for them. Static, read-only after process start.
var zoneRegistry = map[string]domain.ZoneConfig{
	"capital_federal": {
		Key:                  "capital_federal",
		DisplayName:          "Capital Federal",
		Description:          "Ciudad Autónoma de Buenos Aires",
		ZonapropProvinceCode: "6",
		MeliStateID:          "TUxBUENBUGw3M2E1",
	},
	"zona_norte_gba": {
		Key:                  "zona_norte_gba",
		DisplayName:          "Zona Norte GBA",
		Description:          "Zona Norte del Gran Buenos Aires",
		ZonapropProvinceCode: "990",
		MeliStateID:          "TUxBUEdSQWU4ZDkz",
	},
	"santa_fe": {
		Key:                  "santa_fe",
		DisplayName:          "Santa Fe",
		Description:          "Provincia de Santa Fe",
		ZonapropProvinceCode: "25",
		MeliStateID:          "TUxBUFNBTmU5Nzk2",
	},
	"cordoba": {
		Key:                  "cordoba",
		DisplayName:          "Córdoba",
		Description:          "Provincia de Córdoba",
		ZonapropProvinceCode: "7",
		MeliStateID:          "TUxBUENPUmFkZGIw",
	},
	"mendoza": {
		Key:                  "mendoza",
		DisplayName:          "Mendoza",
		Description:          "Provincia de Mendoza",
		ZonapropProvinceCode: "17",
		MeliStateID:          "TUxBUE1FTmE5Y2Zh",
	},
	"entre_rios": {
		Key:                  "entre_rios",
		DisplayName:          "Entre Ríos",
		Description:          "Provincia de Entre Ríos",
		ZonapropProvinceCode: "12",
		MeliStateID:          "TUxBUEVOVHM5MDQ2",
	},
}

var operationRegistry = map[domain.OperationType]domain.OperationConfig{
	domain.OperationSale: {
		Key:             domain.OperationSale,
		DisplayName:     "Venta",
		ZonapropCode:    "1",
		MeliOperationID: "242075",
	},
	domain.OperationRent: {
		Key:             domain.OperationRent,
		DisplayName:     "Alquiler",
		ZonapropCode:    "2",
		MeliOperationID: "242073",
	},
}

// zoneOrder fixes the crawl order; map iteration order would make run
// records needlessly unstable between identical invocations.
var zoneOrder = []string{
	"capital_federal",
	"zona_norte_gba",
	"santa_fe",
	"cordoba",
	"mendoza",
	"entre_rios",
}

var operationOrder = []domain.OperationType{
	domain.OperationSale,
	domain.OperationRent,
}

// LookupZone resolves a zone key against the registry.
func LookupZone(key string) (domain.ZoneConfig, error) {
	cfg, ok := zoneRegistry[key]
	if !ok {
		return domain.ZoneConfig{}, domain.ErrZoneNotFound
	}
	return cfg, nil
}

// LookupOperation resolves an operation type against the registry.
func LookupOperation(key domain.OperationType) (domain.OperationConfig, bool) {
	cfg, ok := operationRegistry[key]
	return cfg, ok
}

// AllZoneKeys returns every registered zone key in crawl order.
func AllZoneKeys() []string {
	keys := make([]string, len(zoneOrder))
	copy(keys, zoneOrder)
	return keys
}

// AllOperations returns both operation types in crawl order.
func AllOperations() []domain.OperationType {
	ops := make([]domain.OperationType, len(operationOrder))
	copy(ops, operationOrder)
	return ops
}
