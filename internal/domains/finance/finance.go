// Package finance implements the finance domain pipeline: GL and AP/AR
// ingest, journal processing, financial statements, budget variance, tax
// provisions, and multi-entity consolidation.
package finance

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/go-gota/gota/dataframe"

	"datapipe/internal/domains"
	"datapipe/internal/etl"
)

// Pipeline is the finance domain pipeline.
type Pipeline struct {
	logger    *slog.Logger
	reader    *etl.Reader
	writer    *etl.Writer
	dataDir   string
	outputDir string
	configDir string
}

// New creates the finance pipeline.
func New(logger *slog.Logger, dataDir, outputDir, configDir string) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("domain", "finance"))
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
func (p *Pipeline) Name() string { return "finance" }

// Validate checks that financial sources are accessible and a bounded
// sample passes the GL schema.
func (p *Pipeline) Validate(ctx context.Context) domains.ValidationStatus {
	sample, err := p.LoadFinancialSources(ctx, true)
	if err != nil {
		return domains.Errorf(err)
	}

	result := GLLineSchema.Validate(sample)
	if !result.Valid {
		return domains.ValidationStatus{
			Status:  "error",
			Message: joinFirst(result.Errors, 5),
		}
	}
	return domains.OK(sample.Nrow())
}

// Run executes the full finance pipeline.
func (p *Pipeline) Run(ctx context.Context, opts domains.RunOptions) error {
	raw, err := p.LoadFinancialSources(ctx, false)
	if err != nil {
		return fmt.Errorf("finance ingest failed: %w", err)
	}
	coa, err := p.LoadChartOfAccounts(ctx)
	if err != nil {
		return fmt.Errorf("finance chart of accounts failed: %w", err)
	}

	normalized, err := p.NormalizeTransactions(ctx, raw, coa)
	if err != nil {
		return fmt.Errorf("finance normalization failed: %w", err)
	}
	journals, err := p.ProcessJournalEntries(ctx, normalized)
	if err != nil {
		return fmt.Errorf("finance journal processing failed: %w", err)
	}

	statements, err := p.BuildFinancialStatements(ctx, journals)
	if err != nil {
		return fmt.Errorf("finance statements failed: %w", err)
	}
	variance, err := p.AnalyzeBudgetVariance(ctx, journals)
	if err != nil {
		return fmt.Errorf("finance budget variance failed: %w", err)
	}
	tax, err := p.ComputeTaxProvisions(ctx, journals)
	if err != nil {
		return fmt.Errorf("finance tax provisions failed: %w", err)
	}

	consolidated, err := p.ConsolidateEntities(ctx, []dataframe.DataFrame{statements, variance, tax})
	if err != nil {
		return fmt.Errorf("finance consolidation failed: %w", err)
	}

	out := filepath.Join(p.outputDir, "finance", "consolidated.parquet")
	if err := p.writer.WriteOutput(ctx, consolidated, out, etl.FormatParquet, etl.WriteOptions{}); err != nil {
		return fmt.Errorf("finance export failed: %w", err)
	}
	return nil
}

func joinFirst(errs []string, n int) string {
	if len(errs) > n {
		errs = errs[:n]
	}
	msg := ""
	for i, e := range errs {
		if i > 0 {
			msg += "; "
		}
		msg += e
	}
	return msg
}
