// Package procurement implements purchasing analytics: PO and invoice
// feed ingest, aging and compliance review, vendor scoring, spend
// breakdowns, contract portfolio evaluation, approval workflow
// analysis, and savings tracking.
package procurement

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

// Pipeline runs the procurement domain end to end.
type Pipeline struct {
	logger    *slog.Logger
	reader    *etl.Reader
	writer    *etl.Writer
	dataDir   string
	outputDir string
	configDir string
}

// New builds a procurement pipeline rooted at the given data
// directories.
func New(logger *slog.Logger, dataDir, outputDir, configDir string) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("domain", "procurement"))
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
func (p *Pipeline) Name() string { return "procurement" }

// Validate samples the feed data and checks it against the procurement
// schema.
func (p *Pipeline) Validate(ctx context.Context) domains.ValidationStatus {
	raw, err := p.LoadProcurementData(ctx, LoadOptions{ValidateOnly: true})
	if err != nil {
		return domains.Errorf(err)
	}
	cleaned := p.NormalizeProcurementRecords(raw)
	if cleaned.Nrow() == 0 {
		return domains.Skipped("no procurement records in any feed")
	}

	result := ProcurementSchema.Validate(cleaned)
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

// Run executes the full procurement pipeline and writes every report.
func (p *Pipeline) Run(ctx context.Context, opts domains.RunOptions) error {
	raw, err := p.LoadProcurementData(ctx, LoadOptions{Incremental: opts.Incremental})
	if err != nil {
		return fmt.Errorf("procurement ingest failed: %w", err)
	}
	normalized := p.NormalizeProcurementRecords(raw)
	asOf := time.Now().UTC()

	poReport := p.AnalyzePurchaseOrders(normalized, asOf)
	vendorScores := p.ScoreVendors(normalized)
	spend := p.BuildSpendAnalysis(normalized)
	approvals := p.AnalyzeApprovalWorkflows(normalized)
	savings := p.CalculateSavings(normalized, vendorScores)

	contracts, err := p.readOptionalFeed(ctx, "contracts.csv")
	if err != nil {
		return fmt.Errorf("contract feed failed: %w", err)
	}
	var contractReport ContractReport
	if contracts.Nrow() > 0 {
		contractReport = p.EvaluateContracts(contracts, asOf)
	}

	reports := map[string]dataframe.DataFrame{
		"purchase_orders":       normalized,
		"po_aging":              poReport.Aging,
		"po_compliance":         poReport.ComplianceIssues,
		"vendor_scores":         vendorScores,
		"spend_by_category":     spend.ByCategory,
		"spend_by_department":   spend.ByDepartment,
		"tail_spend":            spend.TailSpend,
		"contract_portfolio":    contractReport.Portfolio,
		"contract_terms":        contractReport.TermDistribution,
		"critical_renewals":     contractReport.CriticalRenewals,
		"approval_workflows":    approvals.Enriched,
		"approval_bottlenecks":  approvals.Bottlenecks,
		"stalled_approvals":     approvals.StalledRequests,
		"savings_negotiated":    savings.Negotiated,
		"savings_consolidation": savings.Consolidation,
		"savings_vendor_switch": savings.VendorSwitch,
	}
	for _, name := range []string{
		"purchase_orders", "po_aging", "po_compliance", "vendor_scores",
		"spend_by_category", "spend_by_department", "tail_spend",
		"contract_portfolio", "contract_terms", "critical_renewals",
		"approval_workflows", "approval_bottlenecks", "stalled_approvals",
		"savings_negotiated", "savings_consolidation", "savings_vendor_switch",
	} {
		df := reports[name]
		if df.Nrow() == 0 {
			continue
		}
		path := filepath.Join(p.outputDir, "procurement", name+".parquet")
		if err := p.writer.WriteOutput(ctx, df, path, etl.FormatParquet, etl.WriteOptions{}); err != nil {
			return fmt.Errorf("failed to write %s: %w", name, err)
		}
	}
	return nil
}
