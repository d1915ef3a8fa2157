package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"listings-ingest-service/internal/contextkeys"
	"listings-ingest-service/internal/core/domain"
	"listings-ingest-service/internal/core/port"
)

// CrawlPolicy carries the pacing and resilience knobs of one run.
type CrawlPolicy struct {
	PageSize      int
	MaxWorkers    int
	RequestDelay  time.Duration // mandatory pause between page fetches of one pair
	PairDelay     time.Duration // pause a worker takes between two pairs
	MaxRetries    int           // transient fetch retries per page
	RetryBackoff  time.Duration // fixed backoff between retries
	ProgressEvery int           // log a progress line every N written listings, 0 disables
}

// CrawlScope is the resolved work of one run: which zones and operations to
// crawl, already looked up in the registry.
type CrawlScope struct {
	Zones      []domain.ZoneConfig
	Operations []domain.OperationConfig
	MaxPages   int // 0 means crawl until exhausted
	DryRun     bool
}

// RunCrawlUseCase orchestrates one ingestion run: the cross product of
// connectors, zones and operations is spread over a bounded worker pool,
// each unit paginates independently and failures stay isolated to their
// unit. Only store unavailability halts the whole run.
type RunCrawlUseCase struct {
	connectors []port.ListingConnectorPort
	writer     *UpsertListingUseCase
	ledgerRepo port.RunLedgerPort
	reporter   port.RunReporterPort // optional
	policy     CrawlPolicy

	mu sync.Mutex // guards the run record during the crawl
}

func NewRunCrawlUseCase(
	connectors []port.ListingConnectorPort,
	writer *UpsertListingUseCase,
	ledger port.RunLedgerPort,
	reporter port.RunReporterPort,
	policy CrawlPolicy,
) *RunCrawlUseCase {
	return &RunCrawlUseCase{
		connectors: connectors,
		writer:     writer,
		ledgerRepo: ledger,
		reporter:   reporter,
		policy:     policy,
	}
}

// crawlUnit is one (connector, zone, operation) work item.
type crawlUnit struct {
	connector port.ListingConnectorPort
	zone      domain.ZoneConfig
	operation domain.OperationConfig
	key       domain.PairKey
}

// Execute runs one full crawl and returns the finalized run record. The
// returned error is non-nil only when the run could not execute at all;
// partial failures are reflected in the record itself.
func (uc *RunCrawlUseCase) Execute(ctx context.Context, scope CrawlScope) (*domain.IngestionRun, error) {
	zoneKeys := make([]string, len(scope.Zones))
	for i, z := range scope.Zones {
		zoneKeys[i] = z.Key
	}
	opKeys := make([]domain.OperationType, len(scope.Operations))
	for i, op := range scope.Operations {
		opKeys[i] = op.Key
	}

	run := domain.NewIngestionRun(zoneKeys, opKeys, scope.MaxPages, scope.DryRun)
	ctx = contextkeys.ContextWithRunID(ctx, run.RunID.String())

	logger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{
		"component": "RunCrawlUseCase",
		"run_id":    run.RunID.String(),
	})

	units := make([]crawlUnit, 0, len(uc.connectors)*len(scope.Zones)*len(scope.Operations))
	for _, connector := range uc.connectors {
		for _, zone := range scope.Zones {
			for _, operation := range scope.Operations {
				key := domain.PairKey{
					Platform:  connector.Platform(),
					Zone:      zone.Key,
					Operation: operation.Key,
				}
				run.Pair(key)
				units = append(units, crawlUnit{
					connector: connector,
					zone:      zone,
					operation: operation,
					key:       key,
				})
			}
		}
	}

	if err := uc.ledgerRepo.Begin(ctx, run); err != nil {
		logger.Error("Failed to record run start", err, nil)
		return nil, fmt.Errorf("use case: failed to begin run %s: %w", run.RunID, err)
	}

	logger.Info("Starting ingestion run", port.Fields{
		"units":     len(units),
		"workers":   uc.policy.MaxWorkers,
		"max_pages": scope.MaxPages,
		"dry_run":   scope.DryRun,
	})

	runCtx, cancelRun := context.WithCancel(ctx)
	defer cancelRun()

	work := make(chan crawlUnit)
	var wg sync.WaitGroup

	for i := 0; i < uc.policy.MaxWorkers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			first := true
			for unit := range work {
				if !first && uc.policy.PairDelay > 0 {
					select {
					case <-runCtx.Done():
					case <-time.After(uc.policy.PairDelay):
					}
				}
				first = false

				if runCtx.Err() != nil {
					uc.markAborted(run, unit.key)
					continue
				}

				if err := uc.crawlPair(runCtx, run, unit); err != nil {
					// store outage: stop handing out further pages anywhere
					logger.Error("Halting run", err, port.Fields{"pair": unit.key.String()})
					uc.recordError(run, "run halted at %s: %v", unit.key, err)
					cancelRun()
				}
			}
		}(i)
	}

	for _, unit := range units {
		work <- unit
	}
	close(work)
	wg.Wait()

	reason := domain.TerminationCompleted
	switch {
	case runCtx.Err() != nil:
		reason = domain.TerminationAborted
	case uc.anyPageLimited(run):
		reason = domain.TerminationPageLimit
	}
	run.Finalize(reason)

	fetched, written, rejected, errored := run.Totals()
	logger.Info("Ingestion run finished", port.Fields{
		"termination": string(reason),
		"fetched":     fetched,
		"written":     written,
		"rejected":    rejected,
		"errored":     errored,
		"duration":    run.Duration().String(),
	})

	// the ledger row must be closed even when the run context is gone
	finalizeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 15*time.Second)
	defer cancel()

	if err := uc.ledgerRepo.Finalize(finalizeCtx, run); err != nil {
		logger.Error("Failed to record run finish", err, nil)
		run.RecordError("failed to finalize run record: %v", err)
	}

	if uc.reporter != nil {
		if err := uc.reporter.ReportRun(finalizeCtx, run); err != nil {
			logger.Warn("Run report was not delivered", port.Fields{"error": err.Error()})
		}
	}

	return run, nil
}

func (uc *RunCrawlUseCase) anyPageLimited(run *domain.IngestionRun) bool {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	for _, stats := range run.Pairs {
		if stats.State == domain.PairPageLimitReached {
			return true
		}
	}
	return false
}

func (uc *RunCrawlUseCase) markAborted(run *domain.IngestionRun, key domain.PairKey) {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	run.Pair(key).State = domain.PairAborted
}

func (uc *RunCrawlUseCase) setState(run *domain.IngestionRun, key domain.PairKey, state domain.PairState) {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	run.Pair(key).State = state
}

func (uc *RunCrawlUseCase) recordError(run *domain.IngestionRun, format string, args ...interface{}) {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	run.RecordError(format, args...)
}
