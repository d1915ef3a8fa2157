package usecase

import (
	"context"
	"errors"
	"time"

	"listings-ingest-service/internal/contextkeys"
	"listings-ingest-service/internal/core/domain"
	"listings-ingest-service/internal/core/port"
)

// crawlPair drives the pagination loop of one (connector, zone, operation)
// unit until it is exhausted, limited, failed or aborted. The returned error
// is non-nil only for store unavailability, which must halt the whole run;
// every other failure is absorbed into the unit's state.
func (uc *RunCrawlUseCase) crawlPair(ctx context.Context, run *domain.IngestionRun, unit crawlUnit) error {
	logger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{
		"component": "RunCrawlUseCase",
		"pair":      unit.key.String(),
	})

	uc.setState(run, unit.key, domain.PairFetching)
	logger.Info("Starting pair", nil)

	pageNumber := 1
	continuation := ""

	for {
		req := domain.PageRequest{
			Zone:         unit.zone,
			Operation:    unit.operation,
			PageNumber:   pageNumber,
			Continuation: continuation,
			PageSize:     uc.policy.PageSize,
		}

		page, err := uc.fetchWithRetry(ctx, run, unit, req, logger)
		if err != nil {
			if ctx.Err() != nil {
				uc.setState(run, unit.key, domain.PairAborted)
				logger.Warn("Pair aborted", port.Fields{"pages": pageNumber - 1})
				return nil
			}
			uc.setState(run, unit.key, domain.PairFailed)
			uc.recordError(run, "%s: page %d: %v", unit.key, pageNumber, err)
			logger.Error("Pair failed", err, port.Fields{"page": pageNumber})
			return nil
		}

		if storeErr := uc.processPage(ctx, run, unit, page, logger); storeErr != nil {
			uc.setState(run, unit.key, domain.PairFailed)
			uc.recordError(run, "%s: page %d: %v", unit.key, pageNumber, storeErr)
			return storeErr
		}

		uc.mu.Lock()
		run.Pair(unit.key).Pages++
		uc.mu.Unlock()

		if !page.HasMore {
			uc.setState(run, unit.key, domain.PairExhausted)
			logger.Info("Pair exhausted", port.Fields{"pages": pageNumber})
			return nil
		}
		if run.MaxPages > 0 && pageNumber >= run.MaxPages {
			uc.setState(run, unit.key, domain.PairPageLimitReached)
			logger.Info("Pair reached page limit", port.Fields{"pages": pageNumber})
			return nil
		}

		// the current page is always finished before reacting to
		// cancellation, so a canceled run never leaves a half-written page
		if ctx.Err() != nil {
			uc.setState(run, unit.key, domain.PairAborted)
			logger.Warn("Pair aborted", port.Fields{"pages": pageNumber})
			return nil
		}

		if uc.policy.RequestDelay > 0 {
			select {
			case <-ctx.Done():
				uc.setState(run, unit.key, domain.PairAborted)
				logger.Warn("Pair aborted", port.Fields{"pages": pageNumber})
				return nil
			case <-time.After(uc.policy.RequestDelay):
			}
		}

		pageNumber++
		continuation = page.NextContinuation
	}
}

// fetchWithRetry fetches one page, retrying transient failures a bounded
// number of times with a fixed backoff. Terminal failures surface at once.
func (uc *RunCrawlUseCase) fetchWithRetry(
	ctx context.Context,
	run *domain.IngestionRun,
	unit crawlUnit,
	req domain.PageRequest,
	logger port.LoggerPort,
) (*domain.RawPage, error) {
	attempts := 1 + uc.policy.MaxRetries

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page, err := unit.connector.FetchPage(ctx, req)
		if err == nil {
			return page, nil
		}
		lastErr = err

		uc.mu.Lock()
		run.Pair(unit.key).Errored++
		uc.mu.Unlock()

		var fetchErr *domain.FetchError
		if !errors.As(err, &fetchErr) || !fetchErr.IsTransient() {
			return nil, err
		}
		if attempt == attempts {
			break
		}

		logger.Warn("Transient fetch failure, retrying", port.Fields{
			"page":    req.PageNumber,
			"attempt": attempt,
			"error":   err.Error(),
		})
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(uc.policy.RetryBackoff):
		}
	}

	return nil, lastErr
}

// processPage normalizes and writes every record of one fetched page. A
// rejected record is counted and skipped; only store unavailability is
// returned.
func (uc *RunCrawlUseCase) processPage(
	ctx context.Context,
	run *domain.IngestionRun,
	unit crawlUnit,
	page *domain.RawPage,
	logger port.LoggerPort,
) error {
	uc.mu.Lock()
	run.Pair(unit.key).Fetched += len(page.Items)
	uc.mu.Unlock()

	for _, raw := range page.Items {
		listing, err := unit.connector.Normalize(raw)
		if err != nil {
			uc.mu.Lock()
			run.Pair(unit.key).Rejected++
			uc.mu.Unlock()
			logger.Warn("Record rejected during normalization", port.Fields{"error": err.Error()})
			continue
		}

		if run.DryRun {
			uc.mu.Lock()
			run.Pair(unit.key).Written++
			uc.mu.Unlock()
			continue
		}

		if err := uc.writer.Execute(ctx, *listing); err != nil {
			if errors.Is(err, domain.ErrStoreRejected) {
				uc.mu.Lock()
				run.Pair(unit.key).Rejected++
				uc.mu.Unlock()
				logger.Warn("Record rejected by store", port.Fields{
					"natural_key": listing.NaturalKey(),
					"error":       err.Error(),
				})
				continue
			}
			return err
		}

		uc.mu.Lock()
		run.Pair(unit.key).Written++
		written := run.Pair(unit.key).Written
		uc.mu.Unlock()

		if uc.policy.ProgressEvery > 0 && written%uc.policy.ProgressEvery == 0 {
			logger.Info("Crawl progress", port.Fields{"written": written})
		}
	}

	return nil
}
