package port

import (
	"context"

	"listings-ingest-service/internal/core/domain"
)

// RunReporterPort fans a finalized run summary out to external reporting.
// Reporting is best-effort; a failure here never fails the run.
type RunReporterPort interface {
	ReportRun(ctx context.Context, run *domain.IngestionRun) error
}
