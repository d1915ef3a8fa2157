package domain

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Store write outcomes the pipeline must distinguish. A rejected document is
// a data-quality event (counted, skipped); an unavailable store is fatal to
// the whole run.
var (
	ErrStoreRejected    = errors.New("document rejected by store")
	ErrStoreUnavailable = errors.New("store unavailable")
)

// ErrZoneNotFound is returned by the zone registry for unknown zone keys.
var ErrZoneNotFound = errors.New("zone not registered")

type FetchErrorKind string

const (
	// FetchTransient covers network failures, timeouts and 5xx responses.
	// Transient errors are retried a bounded number of times.
	FetchTransient FetchErrorKind = "transient"
	// FetchTerminal covers 4xx responses (auth, not found). Terminal errors
	// end the (zone, operation) pass without retry.
	FetchTerminal FetchErrorKind = "terminal"
)

// FetchError describes a failed page fetch against an upstream platform.
type FetchError struct {
	Platform   Platform
	Kind       FetchErrorKind
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("%s fetch failed (%s, status %d): %v", e.Platform, e.Kind, e.StatusCode, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

func (e *FetchError) IsTransient() bool { return e.Kind == FetchTransient }

func NewTransientFetchError(platform Platform, status int, err error) *FetchError {
	return &FetchError{Platform: platform, Kind: FetchTransient, StatusCode: status, Err: err}
}

func NewTerminalFetchError(platform Platform, status int, err error) *FetchError {
	return &FetchError{Platform: platform, Kind: FetchTerminal, StatusCode: status, Err: err}
}

// RejectionError is returned by a connector's Normalize when an upstream
// record cannot be mapped into the canonical model. It carries the raw item
// so data-quality tooling can inspect what was skipped.
type RejectionError struct {
	Platform Platform
	Reason   string
	Raw      json.RawMessage
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("%s record rejected: %s", e.Platform, e.Reason)
}

func NewRejectionError(platform Platform, raw json.RawMessage, format string, args ...interface{}) *RejectionError {
	return &RejectionError{Platform: platform, Raw: raw, Reason: fmt.Sprintf(format, args...)}
}
