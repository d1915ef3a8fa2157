package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"listings-ingest-service/internal/core/domain"

	"github.com/jackc/pgx/v5/pgxpool"
)

// RunLedgerAdapter implements RunLedgerPort on the ingestion_runs table.
type RunLedgerAdapter struct {
	pool *pgxpool.Pool
}

func NewRunLedgerAdapter(pool *pgxpool.Pool) (*RunLedgerAdapter, error) {
	if pool == nil {
		return nil, fmt.Errorf("pgxpool.Pool cannot be nil")
	}
	return &RunLedgerAdapter{pool: pool}, nil
}

// Begin records the run in 'running' status before any page is fetched, so
// an operator can see a crashed run that never finalized.
func (a *RunLedgerAdapter) Begin(ctx context.Context, run *domain.IngestionRun) error {
	operations := make([]string, len(run.Operations))
	for i, op := range run.Operations {
		operations[i] = string(op)
	}

	sql := `
		INSERT INTO ingestion_runs (run_id, started_at, zones, operations, max_pages, dry_run, status)
		VALUES ($1, $2, $3, $4, $5, $6, 'running');
	`
	_, err := a.pool.Exec(ctx, sql,
		run.RunID, run.StartedAt, run.Zones, operations, run.MaxPages, run.DryRun,
	)
	if err != nil {
		return fmt.Errorf("%w: failed to begin run %s: %v", domain.ErrStoreUnavailable, run.RunID, err)
	}
	return nil
}

// Finalize stores the terminal snapshot of the run: per-pair stats as jsonb,
// the collected error strings and the overall termination reason.
func (a *RunLedgerAdapter) Finalize(ctx context.Context, run *domain.IngestionRun) error {
	pairStats := make(map[string]*domain.PairStats, len(run.Pairs))
	for key, stats := range run.Pairs {
		pairStats[key.String()] = stats
	}
	statsJSON, err := json.Marshal(pairStats)
	if err != nil {
		return fmt.Errorf("failed to marshal pair stats for run %s: %w", run.RunID, err)
	}

	status := "succeeded"
	if run.HasFailures() {
		status = "failed"
	}

	fetched, written, rejected, errored := run.Totals()

	sql := `
		UPDATE ingestion_runs SET
			finished_at = $2,
			status = $3,
			termination = $4,
			pair_stats = $5,
			errors = $6,
			total_fetched = $7,
			total_written = $8,
			total_rejected = $9,
			total_errored = $10
		WHERE run_id = $1;
	`
	_, err = a.pool.Exec(ctx, sql,
		run.RunID, run.FinishedAt, status, string(run.Termination), statsJSON, run.Errors,
		fetched, written, rejected, errored,
	)
	if err != nil {
		return fmt.Errorf("%w: failed to finalize run %s: %v", domain.ErrStoreUnavailable, run.RunID, err)
	}
	return nil
}
