package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// PairState is the per-(platform, zone, operation) crawl state machine.
type PairState string

const (
	PairNotStarted       PairState = "not_started"
	PairFetching         PairState = "fetching"
	PairExhausted        PairState = "exhausted"
	PairPageLimitReached PairState = "page_limit_reached"
	PairFailed           PairState = "failed"
	PairAborted          PairState = "aborted"
)

// Terminal reports whether the state ends the pair's pass. Exhausted and
// PageLimitReached are successful terminals; Failed and Aborted are not.
func (s PairState) Terminal() bool {
	switch s {
	case PairExhausted, PairPageLimitReached, PairFailed, PairAborted:
		return true
	}
	return false
}

type TerminationReason string

const (
	TerminationCompleted TerminationReason = "completed"
	TerminationPageLimit TerminationReason = "page_limit_reached"
	TerminationAborted   TerminationReason = "aborted"
)

// PairKey identifies one unit of crawl work.
type PairKey struct {
	Platform  Platform      `json:"platform"`
	Zone      string        `json:"zone"`
	Operation OperationType `json:"operation"`
}

func (k PairKey) String() string {
	return fmt.Sprintf("%s/%s/%s", k.Platform, k.Zone, k.Operation)
}

// PairStats accumulates the per-pair outcome counters the run record
// exposes for audit.
type PairStats struct {
	State    PairState `json:"state"`
	Pages    int       `json:"pages"`
	Fetched  int       `json:"fetched"`
	Written  int       `json:"written"`
	Rejected int       `json:"rejected"`
	Errored  int       `json:"errored"`
}

// IngestionRun is the audit record of one orchestrator invocation. It is
// created at start, mutated only by the orchestrator while the run is live,
// and immutable once finalized.
type IngestionRun struct {
	RunID      uuid.UUID
	StartedAt  time.Time
	FinishedAt time.Time

	Zones      []string
	Operations []OperationType
	MaxPages   int // 0 means unbounded
	DryRun     bool

	Pairs       map[PairKey]*PairStats
	Errors      []string
	Termination TerminationReason
}

func NewIngestionRun(zones []string, operations []OperationType, maxPages int, dryRun bool) *IngestionRun {
	return &IngestionRun{
		RunID:      uuid.New(),
		StartedAt:  time.Now().UTC(),
		Zones:      zones,
		Operations: operations,
		MaxPages:   maxPages,
		DryRun:     dryRun,
		Pairs:      make(map[PairKey]*PairStats),
	}
}

// Pair returns the stats bucket for a key, creating it in NotStarted state
// on first access.
func (r *IngestionRun) Pair(key PairKey) *PairStats {
	if s, ok := r.Pairs[key]; ok {
		return s
	}
	s := &PairStats{State: PairNotStarted}
	r.Pairs[key] = s
	return s
}

func (r *IngestionRun) RecordError(format string, args ...interface{}) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

// Totals aggregates counters across all pairs.
func (r *IngestionRun) Totals() (fetched, written, rejected, errored int) {
	for _, s := range r.Pairs {
		fetched += s.Fetched
		written += s.Written
		rejected += s.Rejected
		errored += s.Errored
	}
	return
}

// HasFailures reports whether any pair ended in Failed or Aborted. The
// process exit status is non-zero when true.
func (r *IngestionRun) HasFailures() bool {
	for _, s := range r.Pairs {
		if s.State == PairFailed || s.State == PairAborted || s.State == PairNotStarted {
			return true
		}
	}
	return false
}

func (r *IngestionRun) Finalize(reason TerminationReason) {
	r.Termination = reason
	r.FinishedAt = time.Now().UTC()
}

func (r *IngestionRun) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return time.Since(r.StartedAt)
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
