// Package support implements customer support analytics: multi-system
// ticket ingest, ticket volume summaries, SLA compliance, agent
// performance, escalation patterns, satisfaction scoring, and keyword
// categorization.
package support

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

// Pipeline runs the support domain end to end.
type Pipeline struct {
	logger    *slog.Logger
	reader    *etl.Reader
	writer    *etl.Writer
	dataDir   string
	outputDir string
	configDir string
}

// New builds a support pipeline rooted at the given data directories.
func New(logger *slog.Logger, dataDir, outputDir, configDir string) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("domain", "support"))
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
func (p *Pipeline) Name() string { return "support" }

// Validate samples the ticket exports and checks them against the
// ticket schema.
func (p *Pipeline) Validate(ctx context.Context) domains.ValidationStatus {
	raw, err := p.FetchTicketData(ctx, FetchOptions{ValidateOnly: true})
	if err != nil {
		return domains.Errorf(err)
	}
	cleaned := p.NormalizeTickets(raw)
	if cleaned.Nrow() == 0 {
		return domains.Skipped("no tickets in any source export")
	}

	result := TicketSchema.Validate(cleaned)
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

// Run executes the full support pipeline and writes every report.
func (p *Pipeline) Run(ctx context.Context, opts domains.RunOptions) error {
	raw, err := p.FetchTicketData(ctx, FetchOptions{Incremental: opts.Incremental})
	if err != nil {
		return fmt.Errorf("support ingest failed: %w", err)
	}
	tickets := p.NormalizeTickets(raw)
	p.logger.Info("normalized tickets", slog.Int("rows", tickets.Nrow()))

	roster, err := p.LoadAgentRoster(ctx)
	if err != nil {
		return fmt.Errorf("agent roster failed: %w", err)
	}

	reports := map[string]dataframe.DataFrame{
		"tickets":           tickets,
		"volume_report":     p.AnalyzeTicketVolume(tickets),
		"weekly_volume":     WeeklyVolume(tickets),
		"sla_compliance":    p.EvaluateSLACompliance(tickets),
		"agent_performance": p.ComputeAgentMetrics(tickets, roster),
		"escalation_report": p.DetectEscalationPatterns(tickets),
	}
	reports["satisfaction_scores"] = p.MeasureSatisfaction(tickets)
	if reports["categorization"], err = p.CategorizeTickets(tickets); err != nil {
		return fmt.Errorf("categorization failed: %w", err)
	}

	for _, name := range []string{
		"tickets", "volume_report", "weekly_volume", "sla_compliance",
		"agent_performance", "escalation_report", "satisfaction_scores",
		"categorization",
	} {
		df := reports[name]
		if df.Nrow() == 0 {
			continue
		}
		path := filepath.Join(p.outputDir, "support", name+".parquet")
		if err := p.writer.WriteOutput(ctx, df, path, etl.FormatParquet, etl.WriteOptions{}); err != nil {
			return fmt.Errorf("failed to write %s: %w", name, err)
		}
	}
	return nil
}
