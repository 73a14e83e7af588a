// Package quality implements inspection management and compliance
// analytics: MES and manual inspection ingest, lot and line result
// rollups, defect Pareto trending, non-conformance report aging,
// audit finding classification with clause coverage gaps, plant KPIs
// (PPM, DPMO, sigma level, first-pass yield), and CAPA tracking.
package quality

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-gota/gota/dataframe"

	"datapipe/internal/domains"
	"datapipe/internal/etl"
)

// fullLookbackDays is the default ingest window; incremental runs use
// the shorter window.
const (
	fullLookbackDays        = 90
	incrementalLookbackDays = 30
)

// defaultStandard is the quality standard audited for clause coverage.
const defaultStandard = "ISO9001"

// Pipeline runs the quality domain end to end.
type Pipeline struct {
	logger    *slog.Logger
	reader    *etl.Reader
	writer    *etl.Writer
	dataDir   string
	outputDir string
	configDir string
}

// New builds a quality pipeline rooted at the given data directories.
func New(logger *slog.Logger, dataDir, outputDir, configDir string) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("domain", "quality"))
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
func (p *Pipeline) Name() string { return "quality" }

// Validate ingests the inspection feeds and checks the normalized
// records against the inspection schema.
func (p *Pipeline) Validate(ctx context.Context) domains.ValidationStatus {
	raw, err := p.IngestInspectionData(ctx, nil, fullLookbackDays)
	if err != nil {
		return domains.Errorf(err)
	}
	cleaned := p.NormalizeInspections(raw)
	if cleaned.Nrow() == 0 {
		return domains.Skipped("no inspection records in any plant feed")
	}

	result := InspectionSchema.Validate(cleaned)
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

// Run executes the full quality pipeline and writes every report.
func (p *Pipeline) Run(ctx context.Context, opts domains.RunOptions) error {
	lookback := fullLookbackDays
	if opts.Incremental {
		lookback = incrementalLookbackDays
	}
	raw, err := p.IngestInspectionData(ctx, nil, lookback)
	if err != nil {
		return fmt.Errorf("quality ingest failed: %w", err)
	}
	cleaned := p.NormalizeInspections(raw)
	now := time.Now().UTC()

	results := p.TrackInspectionResults(cleaned)
	reports := map[string]dataframe.DataFrame{
		"inspections":        cleaned,
		"inspection_results": results,
		"defect_trends":      p.AnalyzeDefectTrends(cleaned),
		"quality_kpis":       p.ComputeQualityKPIs(results),
	}

	audits, err := p.CompileAuditFindings(ctx, nil, defaultStandard)
	if err != nil {
		return fmt.Errorf("audit compilation failed: %w", err)
	}
	reports["audit_findings"] = audits.Findings
	reports["compliance_gaps"] = audits.ComplianceGaps

	if reports["corrective_actions"], err = p.TrackCAPAStatus(ctx, now); err != nil {
		return fmt.Errorf("CAPA tracking failed: %w", err)
	}

	ncr, err := p.ProcessNonconformanceReports(ctx, now)
	if err != nil {
		return fmt.Errorf("NCR processing failed: %w", err)
	}
	reports["ncr_report"] = ncr.Enriched
	reports["ncr_aging"] = ncr.Aging

	for _, name := range []string{
		"inspections", "inspection_results", "defect_trends", "quality_kpis",
		"audit_findings", "compliance_gaps", "corrective_actions",
		"ncr_report", "ncr_aging",
	} {
		df := reports[name]
		if df.Nrow() == 0 {
			continue
		}
		path := filepath.Join(p.outputDir, "quality", name+".parquet")
		if err := p.writer.WriteOutput(ctx, df, path, etl.FormatParquet, etl.WriteOptions{}); err != nil {
			return fmt.Errorf("writing %s: %w", name, err)
		}
	}
	p.logger.Info("quality pipeline complete", slog.Int("reports", len(reports)))
	return nil
}
