package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"listings-ingest-service/internal"
)

func main() {
	var (
		zonesFlag      = flag.String("zones", "", "comma-separated zone keys to crawl (default: all registered zones)")
		operationsFlag = flag.String("operations", "", "comma-separated operations to crawl: sale, rent (default: both)")
		maxPages       = flag.Int("max-pages", 0, "page cap per (zone, operation) pair, 0 means crawl until exhausted")
		dryRun         = flag.Bool("dry-run", false, "fetch and normalize but skip all store writes")
		envPath        = flag.String("env", "", "path to an optional .env file")
	)
	flag.Parse()

	opts := internal.RunOptions{
		Zones:      splitList(*zonesFlag),
		Operations: splitList(*operationsFlag),
		MaxPages:   *maxPages,
		DryRun:     *dryRun,
		EnvPath:    *envPath,
	}

	app, err := internal.NewApp(opts)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize application: %v", err)
	}

	// first signal cancels the run (it finishes the page in flight), a
	// second one kills the process the hard way
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	code := app.Run(ctx, opts)
	stop()
	app.Shutdown()
	os.Exit(code)
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
