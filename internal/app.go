package internal

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	logger_adapter "listings-ingest-service/internal/adapters/logger"
	"listings-ingest-service/internal/adapters/melifetcher"
	postgres_adapter "listings-ingest-service/internal/adapters/postgres"
	rabbitmq_adapter "listings-ingest-service/internal/adapters/rabbitmq"
	"listings-ingest-service/internal/adapters/zonapropfetcher"
	"listings-ingest-service/internal/configs"
	"listings-ingest-service/internal/constants"
	"listings-ingest-service/internal/contextkeys"
	"listings-ingest-service/internal/core/domain"
	"listings-ingest-service/internal/core/port"
	"listings-ingest-service/internal/core/usecase"
	fluentlogger "listings-ingest-service/pkg/fluent_logger"
	"listings-ingest-service/pkg/postgres"
	"listings-ingest-service/pkg/rabbitmq/rabbitmq_common"
	"listings-ingest-service/pkg/rabbitmq/rabbitmq_producer"

	"github.com/fluent/fluent-logger-golang/fluent"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RunOptions carries the CLI selection of one invocation.
type RunOptions struct {
	Zones      []string // empty means every registered zone
	Operations []string // empty means every registered operation
	MaxPages   int
	DryRun     bool
	EnvPath    string
}

// App wires the whole pipeline together. This is the composition root:
// every dependency is created and connected here.
type App struct {
	config        *configs.AppConfig
	dbPool        *pgxpool.Pool
	connManager   *rabbitmq_common.ConnectionManager
	eventProducer *rabbitmq_producer.Publisher
	fluentClient  *fluent.Fluent
	logger        port.LoggerPort
	baseLogger    port.LoggerPort

	runCrawlUseCase *usecase.RunCrawlUseCase
}

func NewApp(opts RunOptions) (*App, error) {
	var appConfig *configs.AppConfig
	var err error
	if opts.EnvPath != "" {
		appConfig, err = configs.LoadConfig(opts.EnvPath)
	} else {
		appConfig, err = configs.LoadConfig()
	}
	if err != nil {
		return nil, fmt.Errorf("error loading application configuration: %w", err)
	}

	var activeLoggers []port.LoggerPort

	slogCfg := logger_adapter.SlogConfig{
		Level:    parseLogLevel(appConfig.StdoutLogger.Level),
		IsJSON:   false,
		UseColor: true,
	}
	stdoutLogger := logger_adapter.NewSlogAdapter(slogCfg)
	activeLoggers = append(activeLoggers, stdoutLogger)

	var fluentClient *fluent.Fluent
	if appConfig.FluentBit.Enabled {
		fluentClient, err = fluentlogger.NewClient(fluentlogger.Config{
			Host:      appConfig.FluentBit.Host,
			Port:      appConfig.FluentBit.Port,
			TagPrefix: appConfig.AppName,
		})
		if err != nil {
			stdoutLogger.Error("Failed to create fluentbit client", err, nil)
			return nil, fmt.Errorf("failed to create fluentbit client: %w", err)
		}

		fluentAdapter, err := logger_adapter.NewFluentLoggerAdapter(fluentClient, parseLogLevel(appConfig.FluentBit.Level))
		if err != nil {
			stdoutLogger.Error("Failed to create fluentbit adapter", err, nil)
			fluentClient.Close()
			return nil, err
		}
		activeLoggers = append(activeLoggers, fluentAdapter)
	}

	multiLogger, err := logger_adapter.NewMultiloggerAdapter(activeLoggers...)
	if err != nil {
		return nil, fmt.Errorf("failed to create multi-logger: %w", err)
	}

	baseLogger := multiLogger.WithFields(port.Fields{
		"service_name": appConfig.AppName,
	})
	appLogger := baseLogger.WithFields(port.Fields{"component": "app"})
	appLogger.Info("Logger system initialized", port.Fields{
		"active_loggers": len(activeLoggers), "fluent_enabled": appConfig.FluentBit.Enabled,
	})

	dbPool, err := postgres.NewClient(context.Background(), postgres.Config{DatabaseURL: appConfig.Database.URL})
	if err != nil {
		appLogger.Error("Failed to connect to PostgreSQL", err, nil)
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	appLogger.Info("Successfully connected to PostgreSQL pool!", nil)

	listingStorage, err := postgres_adapter.NewListingStorageAdapter(dbPool)
	if err != nil {
		dbPool.Close()
		return nil, fmt.Errorf("failed to initialize listing storage: %w", err)
	}
	runLedger, err := postgres_adapter.NewRunLedgerAdapter(dbPool)
	if err != nil {
		dbPool.Close()
		return nil, fmt.Errorf("failed to initialize run ledger: %w", err)
	}

	zonapropAdapter := zonapropfetcher.NewZonapropFetcherAdapter(
		appConfig.Zonaprop.BaseURL,
		appConfig.Crawl.HTTPTimeout,
		baseLogger.WithFields(port.Fields{"component": "zonaprop_fetcher"}),
	)
	meliAdapter := melifetcher.NewMeliFetcherAdapter(
		appConfig.Meli.BaseURL,
		appConfig.Meli.AccessToken,
		appConfig.Crawl.HTTPTimeout,
		baseLogger.WithFields(port.Fields{"component": "meli_fetcher"}),
	)
	connectors := []port.ListingConnectorPort{zonapropAdapter, meliAdapter}
	appLogger.Info("All outgoing adapters initialized.", nil)

	// optional RabbitMQ fan-out of finalized run summaries
	var connManager *rabbitmq_common.ConnectionManager
	var eventProducer *rabbitmq_producer.Publisher
	var reporter port.RunReporterPort
	if appConfig.Reports.Enabled {
		connManagerLogger := baseLogger.WithFields(port.Fields{"component": "rabbitmq_conn_manager"})
		connManager, err = rabbitmq_common.GetManager(appConfig.Reports.RabbitMQURL, rabbitmq_adapter.NewPkgLoggerBridge(connManagerLogger))
		if err != nil {
			appLogger.Error("Failed to create connection manager", err, nil)
			dbPool.Close()
			return nil, fmt.Errorf("failed to create connection manager: %w", err)
		}
		appLogger.Info("RabbitMQ Connection Manager initialized.", nil)

		producerLogger := baseLogger.WithFields(port.Fields{"component": "rabbitmq_producer"})
		producerCfg := rabbitmq_producer.PublisherConfig{
			Config:                   rabbitmq_common.Config{URL: appConfig.Reports.RabbitMQURL},
			ExchangeName:             appConfig.Reports.Exchange,
			ExchangeType:             "direct",
			DurableExchange:          true,
			DeclareExchangeIfMissing: true,
			Logger:                   rabbitmq_adapter.NewPkgLoggerBridge(producerLogger),
		}
		eventProducer, err = rabbitmq_producer.NewPublisher(producerCfg, connManager)
		if err != nil {
			appLogger.Error("Failed to create event producer", err, port.Fields{"url": appConfig.Reports.RabbitMQURL})
			dbPool.Close()
			return nil, fmt.Errorf("failed to create event producer: %w", err)
		}

		reporter, err = rabbitmq_adapter.NewRunReporterAdapter(eventProducer, appConfig.Reports.RoutingKey)
		if err != nil {
			eventProducer.Close()
			dbPool.Close()
			return nil, err
		}
		appLogger.Info("RabbitMQ Run Reporter initialized.", nil)
	}

	writerUseCase := usecase.NewUpsertListingUseCase(listingStorage)
	runCrawlUseCase := usecase.NewRunCrawlUseCase(
		connectors,
		writerUseCase,
		runLedger,
		reporter,
		usecase.CrawlPolicy{
			PageSize:      appConfig.Crawl.PageSize,
			MaxWorkers:    appConfig.Crawl.MaxWorkers,
			RequestDelay:  appConfig.Crawl.RequestDelay,
			PairDelay:     appConfig.Crawl.PairDelay,
			MaxRetries:    appConfig.Crawl.MaxRetries,
			RetryBackoff:  appConfig.Crawl.RetryBackoff,
			ProgressEvery: appConfig.Crawl.ProgressEvery,
		},
	)
	appLogger.Info("All use cases initialized.", nil)

	return &App{
		config:          appConfig,
		dbPool:          dbPool,
		connManager:     connManager,
		eventProducer:   eventProducer,
		fluentClient:    fluentClient,
		logger:          appLogger,
		baseLogger:      baseLogger,
		runCrawlUseCase: runCrawlUseCase,
	}, nil
}

// Run executes one ingestion run and returns the process exit code:
// 0 only when every (platform, zone, operation) pair ended successfully.
func (a *App) Run(ctx context.Context, opts RunOptions) int {
	scope, err := a.resolveScope(opts)
	if err != nil {
		a.logger.Error("Invalid run scope", err, nil)
		return 2
	}

	ctx = contextkeys.ContextWithLogger(ctx, a.baseLogger)

	run, err := a.runCrawlUseCase.Execute(ctx, scope)
	if err != nil {
		a.logger.Error("Run could not execute", err, nil)
		return 1
	}

	fetched, written, rejected, errored := run.Totals()
	minutes := run.Duration().Minutes()
	perMinute := 0.0
	if minutes > 0 {
		perMinute = float64(written) / minutes
	}
	a.logger.Info("Run summary", port.Fields{
		"run_id":              run.RunID.String(),
		"termination":         string(run.Termination),
		"fetched":             fetched,
		"written":             written,
		"rejected":            rejected,
		"errored":             errored,
		"duration":            run.Duration().Round(time.Millisecond).String(),
		"listings_per_minute": fmt.Sprintf("%.1f", perMinute),
	})

	if run.HasFailures() {
		a.logger.Warn("Run finished with failures", port.Fields{"errors": len(run.Errors)})
		return 1
	}
	return 0
}

// resolveScope turns the CLI zone and operation keys into registry entries,
// rejecting unknown keys before any work starts.
func (a *App) resolveScope(opts RunOptions) (usecase.CrawlScope, error) {
	zoneKeys := opts.Zones
	if len(zoneKeys) == 0 {
		zoneKeys = constants.AllZoneKeys()
	}
	zones := make([]domain.ZoneConfig, 0, len(zoneKeys))
	for _, key := range zoneKeys {
		zone, err := constants.LookupZone(key)
		if err != nil {
			return usecase.CrawlScope{}, fmt.Errorf("zone %q: %w", key, err)
		}
		zones = append(zones, zone)
	}

	opKeys := opts.Operations
	if len(opKeys) == 0 {
		for _, op := range constants.AllOperations() {
			opKeys = append(opKeys, string(op))
		}
	}
	operations := make([]domain.OperationConfig, 0, len(opKeys))
	for _, key := range opKeys {
		op, ok := constants.LookupOperation(domain.OperationType(key))
		if !ok {
			return usecase.CrawlScope{}, fmt.Errorf("unknown operation %q", key)
		}
		operations = append(operations, op)
	}

	return usecase.CrawlScope{
		Zones:      zones,
		Operations: operations,
		MaxPages:   opts.MaxPages,
		DryRun:     opts.DryRun,
	}, nil
}

// Shutdown releases every external resource in reverse creation order.
func (a *App) Shutdown() {
	a.logger.Info("Shutting down...", nil)
	if a.eventProducer != nil {
		a.eventProducer.Close()
	}
	if a.connManager != nil {
		a.connManager.Close()
	}
	if a.dbPool != nil {
		a.dbPool.Close()
	}
	if a.fluentClient != nil {
		a.fluentClient.Close()
	}
	a.logger.Info("Shutdown complete.", nil)
}

func parseLogLevel(levelStr string) slog.Level {
	switch strings.ToLower(levelStr) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
