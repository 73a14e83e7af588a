// Package manufacturing implements plant floor analytics: MES feed
// ingest with operator overrides and scrap logs, production output
// tracking, downtime categorization with MTBF, yield and scrap
// metrics, forward scheduling, costed bill-of-materials resolution,
// and OEE scoring.
package manufacturing

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-gota/gota/dataframe"

	"datapipe/internal/domains"
	"datapipe/internal/errors"
	"datapipe/internal/etl"
)

// Pipeline runs the manufacturing domain end to end.
type Pipeline struct {
	logger    *slog.Logger
	reader    *etl.Reader
	writer    *etl.Writer
	dataDir   string
	outputDir string
	configDir string
}

// New builds a manufacturing pipeline rooted at the given data
// directories.
func New(logger *slog.Logger, dataDir, outputDir, configDir string) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("domain", "manufacturing"))
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
func (p *Pipeline) Name() string { return "manufacturing" }

// Validate ingests the plant feeds and checks normalized records
// against the production schema.
func (p *Pipeline) Validate(ctx context.Context) domains.ValidationStatus {
	raw, err := p.IngestProductionData(ctx, nil)
	if err != nil {
		return domains.Errorf(err)
	}
	cleaned := p.NormalizeProductionRecords(raw, "all")
	if cleaned.Nrow() == 0 {
		return domains.Skipped("no production records in any plant feed")
	}

	result := ProductionSchema.Validate(cleaned)
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

// Run executes the full manufacturing pipeline and writes every report.
func (p *Pipeline) Run(ctx context.Context, opts domains.RunOptions) error {
	raw, err := p.IngestProductionData(ctx, nil)
	if err != nil {
		return fmt.Errorf("manufacturing ingest failed: %w", err)
	}
	cleaned := p.NormalizeProductionRecords(raw, "all")

	reports := map[string]dataframe.DataFrame{
		"production_records": cleaned,
		"production_output":  p.TrackProductionOutput(cleaned),
		"downtime_analysis":  p.AnalyzeDowntime(cleaned),
		"yield_metrics":      p.ComputeYieldMetrics(cleaned),
		"schedule":           p.BuildProductionSchedule(cleaned, "all", time.Now().UTC()),
	}
	if reports["oee"], err = p.CalculateOEE(cleaned); err != nil {
		return fmt.Errorf("OEE calculation failed: %w", err)
	}

	bom, err := p.ResolveBillOfMaterials(ctx, cleaned)
	if err != nil {
		if !errors.IsCode(err, errors.CodeSourceNotFound) {
			return fmt.Errorf("BOM resolution failed: %w", err)
		}
		p.logger.Warn("BOM master unavailable, skipping cost rollup")
	} else {
		reports["bom"] = bom
	}

	for _, name := range []string{
		"production_records", "production_output", "downtime_analysis",
		"yield_metrics", "schedule", "oee", "bom",
	} {
		df, ok := reports[name]
		if !ok || df.Nrow() == 0 {
			continue
		}
		path := filepath.Join(p.outputDir, "manufacturing", name+".parquet")
		if err := p.writer.WriteOutput(ctx, df, path, etl.FormatParquet, etl.WriteOptions{}); err != nil {
			return fmt.Errorf("failed to write %s: %w", name, err)
		}
	}
	return nil
}
