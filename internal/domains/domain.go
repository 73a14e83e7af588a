// Package domains defines the pipeline domain contract and the registry of
// all business domains.
package domains

import (
	"context"
)

// ValidationStatus is the lightweight pre-run validation outcome for a
// domain: its source feeds are reachable and a bounded sample passes the
// domain schema.
type ValidationStatus struct {
	Status   string `json:"status"` // "ok" | "error" | "skipped"
	Message  string `json:"message,omitempty"`
	RowCount int    `json:"row_count,omitempty"`
}

// OK builds a passing validation status.
func OK(rowCount int) ValidationStatus {
	return ValidationStatus{Status: "ok", RowCount: rowCount}
}

// Errorf builds a failing validation status from an error.
func Errorf(err error) ValidationStatus {
	return ValidationStatus{Status: "error", Message: err.Error()}
}

// Skipped builds a skipped validation status with a reason.
func Skipped(reason string) ValidationStatus {
	return ValidationStatus{Status: "skipped", Message: reason}
}

// RunOptions configures one domain pipeline execution.
type RunOptions struct {
	// Incremental restricts ingest to recent records where the domain
	// supports it.
	Incremental bool
}

// Domain is one line of business with its own ingest/transform/report
// pipeline. Runs are synchronous batch jobs; Validate must not mutate
// anything.
type Domain interface {
	Name() string
	Validate(ctx context.Context) ValidationStatus
	Run(ctx context.Context, opts RunOptions) error
}
