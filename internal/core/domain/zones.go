package domain

import "encoding/json"

// ZoneConfig maps one geographic crawl scope to the location codes each
// platform's API expects. Looked up from the static registry in
// internal/constants; never mutated after process start.
type ZoneConfig struct {
	Key         string
	DisplayName string
	Description string

	ZonapropProvinceCode string
	ZonapropZoneCode     string
	MeliStateID          string
}

// OperationConfig carries the per-platform codes for one operation type.
type OperationConfig struct {
	Key         OperationType
	DisplayName string

	ZonapropCode    string
	MeliOperationID string
}

// PageRequest asks a connector for one page of raw results for a
// (zone, operation) pair. Continuation is the opaque value a previous
// RawPage reported; connectors that paginate by page number may ignore it.
type PageRequest struct {
	Zone         ZoneConfig
	Operation    OperationConfig
	PageNumber   int // 1-indexed
	Continuation string
	PageSize     int
}

// RawPage is one fetched page: the ordered raw platform records plus the
// pagination metadata the orchestrator consumes. The orchestrator treats
// NextContinuation as opaque; only HasMore drives the loop.
type RawPage struct {
	Items            []json.RawMessage
	HasMore          bool
	NextContinuation string
}
