// Package inventory implements the inventory domain pipeline: warehouse
// feed ingest, normalization, stock level snapshots, reorder planning,
// shrinkage analysis, valuation, and turnover reporting.
package inventory

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/go-gota/gota/dataframe"

	"datapipe/internal/domains"
	"datapipe/internal/etl"
)

// Pipeline runs the inventory domain end to end.
type Pipeline struct {
	logger    *slog.Logger
	reader    *etl.Reader
	writer    *etl.Writer
	dataDir   string
	outputDir string
	configDir string
}

// New builds an inventory pipeline rooted at the given data directories.
func New(logger *slog.Logger, dataDir, outputDir, configDir string) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("domain", "inventory"))
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
func (p *Pipeline) Name() string { return "inventory" }

// Validate checks that warehouse feeds are reachable and the normalized
// feed passes the inventory schema.
func (p *Pipeline) Validate(ctx context.Context) domains.ValidationStatus {
	raw, err := p.IngestInventoryData(ctx, nil)
	if err != nil {
		return domains.Errorf(err)
	}
	cleaned, err := p.NormalizeInventory(ctx, raw)
	if err != nil {
		return domains.Errorf(err)
	}

	result := InventorySchema.Validate(cleaned)
	if !result.Valid {
		limit := result.Errors
		if len(limit) > 5 {
			limit = limit[:5]
		}
		return domains.ValidationStatus{
			Status:  "error",
			Message: strings.Join(limit, "; "),
		}
	}
	return domains.OK(cleaned.Nrow())
}

// Run executes the full inventory pipeline and writes every report.
func (p *Pipeline) Run(ctx context.Context, opts domains.RunOptions) error {
	raw, err := p.IngestInventoryData(ctx, nil)
	if err != nil {
		return fmt.Errorf("inventory ingest failed: %w", err)
	}
	cleaned, err := p.NormalizeInventory(ctx, raw)
	if err != nil {
		return fmt.Errorf("inventory normalization failed: %w", err)
	}

	lookback := defaultLookbackDays
	if opts.Incremental {
		lookback = 7
	}
	stock, err := p.ComputeStockLevels(ctx, cleaned, lookback)
	if err != nil {
		return fmt.Errorf("stock level computation failed: %w", err)
	}

	reports := map[string]dataframe.DataFrame{"stock_levels": stock}

	if reports["reorder_report"], err = p.GenerateReorderReport(ctx, stock); err != nil {
		return fmt.Errorf("reorder report failed: %w", err)
	}
	if reports["shrinkage"], err = p.CalculateShrinkage(ctx, cleaned); err != nil {
		return fmt.Errorf("shrinkage analysis failed: %w", err)
	}
	if reports["valuation"], err = p.RunValuation(ctx, cleaned); err != nil {
		return fmt.Errorf("valuation failed: %w", err)
	}
	if reports["turnover"], err = p.ComputeTurnoverRatios(ctx, stock); err != nil {
		return fmt.Errorf("turnover computation failed: %w", err)
	}
	if reports["utilization"], err = p.ComputeUtilization(ctx, cleaned); err != nil {
		return fmt.Errorf("utilization computation failed: %w", err)
	}

	for _, name := range []string{"stock_levels", "reorder_report", "shrinkage", "valuation", "turnover", "utilization"} {
		df := reports[name]
		if df.Nrow() == 0 {
			continue
		}
		path := filepath.Join(p.outputDir, "inventory", name+".parquet")
		if err := p.writer.WriteOutput(ctx, df, path, etl.FormatParquet, etl.WriteOptions{}); err != nil {
			return fmt.Errorf("failed to write %s: %w", name, err)
		}
	}
	return nil
}
