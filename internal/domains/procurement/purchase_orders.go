package procurement

import (
	"log/slog"
	"strings"
	"time"

	"github.com/go-gota/gota/dataframe"

	"datapipe/internal/etl"
)

// POThresholds hold the procurement policy limits applied to purchase
// order review.
type POThresholds struct {
	AgingWarningDays      int
	AgingCriticalDays     int
	MaxLineAmount         float64
	ApprovalRequiredAbove float64
}

// DefaultPOThresholds returns the standing procurement policy.
func DefaultPOThresholds() POThresholds {
	return POThresholds{
		AgingWarningDays:      30,
		AgingCriticalDays:     60,
		MaxLineAmount:         50_000,
		ApprovalRequiredAbove: 10_000,
	}
}

// POReport bundles the purchase order analysis outputs.
type POReport struct {
	Aging            dataframe.DataFrame
	ComplianceIssues dataframe.DataFrame
	TotalOpenValue   float64
	OpenCount        int
}

// AgingBucket places a PO age in days into a reporting bucket.
func AgingBucket(ageDays int, t POThresholds) string {
	switch {
	case ageDays <= 7:
		return "current"
	case ageDays <= t.AgingWarningDays:
		return "30_day"
	case ageDays <= t.AgingCriticalDays:
		return "60_day"
	default:
		return "90_plus"
	}
}

func computeAging(rows []etl.Row, asOf time.Time, t POThresholds) dataframe.DataFrame {
	out := make([]etl.Row, 0, len(rows))
	for _, row := range rows {
		poDate, err := time.Parse("2006-01-02", etl.AsString(row["po_date"]))
		if err != nil {
			continue
		}
		ageDays := int(asOf.Sub(poDate).Hours() / 24)
		out = append(out, etl.Row{
			"po_number": etl.AsString(row["po_number"]),
			"age_days":  ageDays,
			"bucket":    AgingBucket(ageDays, t),
			"amount":    etl.AsFloat(row["amount_clean"]),
		})
	}
	return etl.FrameFromRows(out)
}

// ComplianceFlags lists the policy violations for one PO row. An empty
// result means the PO is clean.
func ComplianceFlags(amount float64, approvedBy, vendorID string, t POThresholds) []string {
	var flags []string
	if amount > t.MaxLineAmount {
		flags = append(flags, "exceeds_line_limit")
	}
	if amount > t.ApprovalRequiredAbove && approvedBy == "" {
		flags = append(flags, "missing_approval")
	}
	if vendorID == "" {
		flags = append(flags, "no_vendor")
	}
	return flags
}

func flagCompliance(rows []etl.Row, t POThresholds) dataframe.DataFrame {
	var issues []etl.Row
	for _, row := range rows {
		amount := etl.AsFloat(row["amount_clean"])
		flags := ComplianceFlags(amount,
			etl.AsString(row["approved_by"]), etl.AsString(row["vendor_id"]), t)
		if len(flags) == 0 {
			continue
		}
		issues = append(issues, etl.Row{
			"po_number": etl.AsString(row["po_number"]),
			"flags":     strings.Join(flags, "|"),
			"amount":    amount,
		})
	}
	return etl.FrameFromRows(issues)
}

// AnalyzePurchaseOrders ages the open PO book against the as-of date
// and flags policy violations across all POs.
func (p *Pipeline) AnalyzePurchaseOrders(df dataframe.DataFrame, asOf time.Time) POReport {
	rows := df.Maps()
	var open []etl.Row
	var totalOpen float64
	for _, row := range rows {
		status := etl.AsString(row["status"])
		if status == "open" || status == "partially_received" {
			open = append(open, row)
			totalOpen += etl.AsFloat(row["amount_clean"])
		}
	}
	t := DefaultPOThresholds()
	report := POReport{
		Aging:            computeAging(open, asOf, t),
		ComplianceIssues: flagCompliance(rows, t),
		TotalOpenValue:   totalOpen,
		OpenCount:        len(open),
	}
	p.logger.Info("analyzed purchase orders",
		slog.Int("total", len(rows)),
		slog.Int("open", report.OpenCount),
		slog.Int("compliance_issues", report.ComplianceIssues.Nrow()))
	return report
}
