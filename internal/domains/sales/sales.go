// Package sales implements the sales domain pipeline: multi-source ingest,
// cleaning, aggregation, customer segmentation, forecasting, accounting
// reconciliation, and export.
package sales

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"datapipe/internal/domains"
	"datapipe/internal/errors"
	"datapipe/internal/etl"
)

// Pipeline runs the sales domain end to end.
type Pipeline struct {
	logger    *slog.Logger
	reader    *etl.Reader
	writer    *etl.Writer
	dataDir   string
	outputDir string
	configDir string
}

// New builds a sales pipeline rooted at the given data directories.
func New(logger *slog.Logger, dataDir, outputDir, configDir string) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("domain", "sales"))
	return &Pipeline{
		logger:    logger,
		reader:    etl.NewReader(logger),
		writer:    etl.NewWriter(logger),
		dataDir:   dataDir,
		outputDir: outputDir,
		configDir: configDir,
	}
}

// Name implements domains.Domain.
func (p *Pipeline) Name() string { return "sales" }

// Validate checks that sales sources are accessible and a bounded sample
// passes the raw schema.
func (p *Pipeline) Validate(ctx context.Context) domains.ValidationStatus {
	sample, err := p.LoadSalesData(ctx, LoadOptions{ValidateOnly: true})
	if err != nil {
		return domains.Errorf(err)
	}

	result := RawSalesSchema.Validate(sample)
	if !result.Valid {
		limit := result.Errors
		if len(limit) > 3 {
			limit = limit[:3]
		}
		return domains.ValidationStatus{
			Status:  "error",
			Message: strings.Join(limit, "; "),
		}
	}
	return domains.OK(sample.Nrow())
}

// Run executes the full sales pipeline.
func (p *Pipeline) Run(ctx context.Context, opts domains.RunOptions) error {
	raw, err := p.LoadSalesData(ctx, LoadOptions{Incremental: opts.Incremental})
	if err != nil {
		return fmt.Errorf("sales ingest failed: %w", err)
	}

	cleaned, err := p.CleanSalesRecords(ctx, raw)
	if err != nil {
		return fmt.Errorf("sales cleaning failed: %w", err)
	}

	summaries, err := p.BuildSalesSummaries(ctx, cleaned)
	if err != nil {
		return fmt.Errorf("sales aggregation failed: %w", err)
	}

	customers, err := p.SegmentCustomers(ctx, cleaned, DefaultSegmentThresholds(), time.Now())
	if err != nil {
		return fmt.Errorf("sales segmentation failed: %w", err)
	}
	if customers.Nrow() > 0 {
		summaries["customer_segments"] = customers
		summaries["segment_summary"] = SegmentSummary(customers)
	}

	forecasts, err := p.BuildForecast(ctx, cleaned, defaultForecastWindow)
	if err != nil {
		return fmt.Errorf("sales forecast failed: %w", err)
	}
	for name, df := range forecasts {
		summaries["forecast_"+name] = df
	}

	// Reconciliation is optional: skip when accounting data is unavailable.
	reconciliation, err := p.ReconcileWithAccounting(ctx, cleaned)
	switch {
	case err == nil:
		summaries["reconciliation"] = reconciliation
	case errors.IsCode(err, errors.CodeSourceNotFound):
		p.logger.WarnContext(ctx, "accounting data unavailable, skipping reconciliation")
	default:
		return fmt.Errorf("sales reconciliation failed: %w", err)
	}

	report := p.GenerateReport(ctx, summaries)
	if err := p.WriteSalesOutput(ctx, cleaned, summaries, report); err != nil {
		return fmt.Errorf("sales export failed: %w", err)
	}
	return nil
}
