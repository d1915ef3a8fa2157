package port

import (
	"context"

	"listings-ingest-service/internal/core/domain"
)

// RunLedgerPort records ingestion runs for audit and freshness analysis.
// The ledger is append-only toward external readers: one Begin per run,
// one Finalize once the run is terminal.
type RunLedgerPort interface {
	Begin(ctx context.Context, run *domain.IngestionRun) error
	Finalize(ctx context.Context, run *domain.IngestionRun) error
}
