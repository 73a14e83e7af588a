// Package hr implements the people analytics pipeline: HRIS ingest,
// headcount snapshots, salary band analysis, attrition, recruiting
// funnels, EEO compliance reporting, and org hierarchy resolution.
package hr

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

// Pipeline runs the hr domain end to end.
type Pipeline struct {
	logger    *slog.Logger
	reader    *etl.Reader
	writer    *etl.Writer
	dataDir   string
	outputDir string
	configDir string
}

// New builds an hr pipeline rooted at the given data directories.
func New(logger *slog.Logger, dataDir, outputDir, configDir string) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("domain", "hr"))
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
func (p *Pipeline) Name() string { return "hr" }

// Validate checks HRIS source accessibility and employee record shape.
func (p *Pipeline) Validate(ctx context.Context) domains.ValidationStatus {
	raw, err := p.IngestHRISData(ctx)
	if err != nil {
		return domains.Errorf(err)
	}
	employees := p.NormalizeEmployeeRecords(ctx, raw)

	result := EmployeeSchema.Validate(employees)
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
	return domains.OK(employees.Nrow())
}

// Run executes the full hr pipeline and writes every report.
func (p *Pipeline) Run(ctx context.Context, opts domains.RunOptions) error {
	raw, err := p.IngestHRISData(ctx)
	if err != nil {
		return fmt.Errorf("hr ingest failed: %w", err)
	}
	employees := p.NormalizeEmployeeRecords(ctx, raw)

	reports := map[string]dataframe.DataFrame{"employees": employees}

	snapshots := p.BuildHeadcountSnapshot(ctx, employees)
	reports["headcount"] = snapshots
	if snapshots.Nrow() > 0 {
		reports["headcount_summary"] = HeadcountSummary(snapshots)
	}

	if reports["compensation"], err = p.AnalyzeSalaryBands(ctx, employees); err != nil {
		return fmt.Errorf("salary band analysis failed: %w", err)
	}

	reports["attrition"] = p.ComputeAttritionRates(ctx, employees, "", "")

	if reports["recruiting_funnel"], err = p.ComputeFunnelMetrics(ctx, ""); err != nil {
		return fmt.Errorf("funnel metrics failed: %w", err)
	}

	reports["eeo_report"] = p.GenerateEEOReport(ctx, employees)
	reports["pay_equity"] = PayEquityAnalysis(employees)

	if reports["org_hierarchy"], err = p.ResolveOrgHierarchy(ctx, employees); err != nil {
		return fmt.Errorf("org hierarchy resolution failed: %w", err)
	}

	for _, name := range []string{
		"employees", "headcount", "headcount_summary", "compensation",
		"attrition", "recruiting_funnel", "eeo_report", "pay_equity",
		"org_hierarchy",
	} {
		df, ok := reports[name]
		if !ok || df.Nrow() == 0 {
			continue
		}
		path := filepath.Join(p.outputDir, "hr", name+".parquet")
		if err := p.writer.WriteOutput(ctx, df, path, etl.FormatParquet, etl.WriteOptions{}); err != nil {
			return fmt.Errorf("failed to write %s: %w", name, err)
		}
	}
	return nil
}
