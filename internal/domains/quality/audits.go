package quality

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/go-gota/gota/dataframe"

	"datapipe/internal/errors"
	"datapipe/internal/etl"
)

// standardClauses lists the auditable clauses per quality standard.
var standardClauses = map[string][]string{
	"ISO9001":   {"4.1", "4.2", "5.1", "6.1", "7.1", "8.1", "9.1", "10.1"},
	"IATF16949": {"4.4", "6.1", "7.2", "8.3", "8.5", "9.2", "10.2"},
	"AS9100":    {"4.4", "7.1", "8.1", "8.4", "8.5", "9.1", "10.2"},
}

// AuditReport bundles enriched findings with the clause coverage gaps
// found against the target standard.
type AuditReport struct {
	Findings       dataframe.DataFrame
	ComplianceGaps dataframe.DataFrame
}

// ClassifyAudit determines the audit type from the audit code prefix.
func (p *Pipeline) ClassifyAudit(auditCode string) string {
	prefix := strings.ToUpper(strings.SplitN(auditCode, "-", 2)[0])
	switch prefix {
	case "INT", "IA":
		return "internal"
	case "EXT", "EA", "CB":
		return "external"
	case "SUP", "SA":
		return "supplier"
	case "REG", "GOV", "FDA":
		return "regulatory"
	default:
		p.logger.Warn("unknown audit prefix", slog.String("prefix", prefix))
		return "internal"
	}
}

// RateFinding assigns severity to an audit finding based on its type
// and whether it repeats a prior finding.
func RateFinding(findingType string, repeat bool) string {
	switch strings.ToLower(findingType) {
	case "nonconformity":
		if repeat {
			return "critical"
		}
		return "major"
	case "observation":
		if repeat {
			return "minor"
		}
		return "observation"
	case "opportunity":
		return "observation"
	default:
		return "minor"
	}
}

// identifyComplianceGaps lists the target standard's clauses with no
// finding referencing them.
func identifyComplianceGaps(findings []etl.Row, standard string) []etl.Row {
	covered := map[string]bool{}
	for _, row := range findings {
		if clause := etl.AsString(row["clause_ref"]); clause != "" {
			covered[clause] = true
		}
	}
	var gaps []etl.Row
	for _, clause := range standardClauses[standard] {
		if !covered[clause] {
			gaps = append(gaps, etl.Row{
				"standard": standard,
				"clause":   clause,
				"status":   "not_audited",
			})
		}
	}
	return gaps
}

// CompileAuditFindings loads and classifies audit findings for the
// given plants, then runs clause coverage analysis against the target
// standard. A missing audit feed yields an empty report, not an error.
func (p *Pipeline) CompileAuditFindings(ctx context.Context, plants []string, standard string) (AuditReport, error) {
	raw, err := p.reader.ReadParquet(ctx, filepath.Join(p.dataDir, "quality", "audit_findings.parquet"))
	if err != nil {
		if !errors.IsCode(err, errors.CodeSourceNotFound) {
			return AuditReport{}, err
		}
		p.logger.Warn("audit findings feed missing")
		return AuditReport{}, nil
	}

	wanted := map[string]bool{}
	for _, id := range plants {
		wanted[id] = true
	}

	var findings []etl.Row
	for _, row := range raw.Maps() {
		if len(wanted) > 0 && !wanted[etl.AsString(row["plant_id"])] {
			continue
		}
		repeat := etl.AsString(row["is_repeat"]) == "true"
		findingType := etl.AsString(row["finding_type"])
		if findingType == "" {
			findingType = "observation"
		}
		row["finding_type"] = findingType
		row["audit_type"] = p.ClassifyAudit(etl.AsString(row["audit_code"]))
		row["severity"] = RateFinding(findingType, repeat)
		findings = append(findings, row)
	}

	gaps := identifyComplianceGaps(findings, standard)
	if len(gaps) > 0 {
		p.logger.Warn("unaudited clauses found",
			slog.String("standard", standard), slog.Int("count", len(gaps)))
	}
	p.logger.Info("compiled audit findings",
		slog.Int("findings", len(findings)), slog.Int("gaps", len(gaps)))
	return AuditReport{
		Findings:       etl.FrameFromRows(findings),
		ComplianceGaps: etl.FrameFromRows(gaps),
	}, nil
}
