package contextkeys

import (
	"context"
)

type runIDKeyType struct{}

var runIDKey = runIDKeyType{}

// ContextWithRunID puts the ingestion run id into the context so adapters
// can tag outgoing requests and reports with it.
func ContextWithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey, runID)
}

// RunIDFromContext extracts the run id, or an empty string when absent.
func RunIDFromContext(ctx context.Context) string {
	if runID, ok := ctx.Value(runIDKey).(string); ok {
		return runID
	}
	return ""
}
