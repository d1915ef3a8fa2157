package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"listings-ingest-service/internal/contextkeys"
	"listings-ingest-service/internal/core/domain"
	"listings-ingest-service/internal/core/port"
	"listings-ingest-service/pkg/rabbitmq/rabbitmq_producer"

	amqp "github.com/rabbitmq/amqp091-go"
)

// RunReportDTO is the message published when a run finalizes.
type RunReportDTO struct {
	RunID       string                       `json:"run_id"`
	StartedAt   time.Time                    `json:"started_at"`
	FinishedAt  time.Time                    `json:"finished_at"`
	Zones       []string                     `json:"zones"`
	Operations  []string                     `json:"operations"`
	DryRun      bool                         `json:"dry_run"`
	Termination string                       `json:"termination"`
	Totals      map[string]int               `json:"totals"`
	Pairs       map[string]*domain.PairStats `json:"pairs"`
	Errors      []string                     `json:"errors,omitempty"`
}

// RunReporterAdapter fans finalized run summaries out to the reporting
// exchange. Publishing is best-effort; callers treat failures as non-fatal.
type RunReporterAdapter struct {
	producer   *rabbitmq_producer.Publisher
	routingKey string
}

func NewRunReporterAdapter(producer *rabbitmq_producer.Publisher, routingKey string) (*RunReporterAdapter, error) {
	if producer == nil {
		return nil, fmt.Errorf("rabbitmq adapter: producer cannot be nil")
	}
	if routingKey == "" {
		return nil, fmt.Errorf("rabbitmq adapter: routingKey cannot be empty")
	}
	return &RunReporterAdapter{
		producer:   producer,
		routingKey: routingKey,
	}, nil
}

func (a *RunReporterAdapter) ReportRun(ctx context.Context, run *domain.IngestionRun) error {
	logger := contextkeys.LoggerFromContext(ctx)
	adapterLogger := logger.WithFields(port.Fields{
		"component":   "RunReporterAdapter",
		"routing_key": a.routingKey,
	})

	fetched, written, rejected, errored := run.Totals()

	operations := make([]string, len(run.Operations))
	for i, op := range run.Operations {
		operations[i] = string(op)
	}
	pairs := make(map[string]*domain.PairStats, len(run.Pairs))
	for key, stats := range run.Pairs {
		pairs[key.String()] = stats
	}

	dto := RunReportDTO{
		RunID:       run.RunID.String(),
		StartedAt:   run.StartedAt,
		FinishedAt:  run.FinishedAt,
		Zones:       run.Zones,
		Operations:  operations,
		DryRun:      run.DryRun,
		Termination: string(run.Termination),
		Totals: map[string]int{
			"fetched":  fetched,
			"written":  written,
			"rejected": rejected,
			"errored":  errored,
		},
		Pairs:  pairs,
		Errors: run.Errors,
	}

	body, _ := json.Marshal(dto)

	msg := amqp.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp.Persistent, // survive broker restarts
		Timestamp:    time.Now(),
		Headers:      make(amqp.Table),
	}
	msg.Headers["x-run-id"] = run.RunID.String()

	publishCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	adapterLogger.Info("Publishing run report", nil)
	err := a.producer.Publish(publishCtx, a.routingKey, msg)
	if err != nil {
		adapterLogger.Error("Failed to publish run report", err, nil)
		return fmt.Errorf("rabbitmq adapter: failed to publish report for run %s: %w", run.RunID, err)
	}

	adapterLogger.Info("Successfully published run report", nil)
	return nil
}
