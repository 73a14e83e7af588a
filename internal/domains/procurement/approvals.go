package procurement

import (
	"log/slog"
	"math"
	"sort"

	"github.com/go-gota/gota/dataframe"

	"datapipe/internal/etl"
)

// ApprovalPolicy holds the tier limits and timing rules for approval
// workflow analysis.
type ApprovalPolicy struct {
	Tier1Limit      float64
	Tier2Limit      float64
	Tier3Limit      float64
	MaxApprovalDays int
	EscalationDays  int
}

// DefaultApprovalPolicy returns the standing approval rules.
func DefaultApprovalPolicy() ApprovalPolicy {
	return ApprovalPolicy{
		Tier1Limit:      5_000,
		Tier2Limit:      25_000,
		Tier3Limit:      100_000,
		MaxApprovalDays: 5,
		EscalationDays:  3,
	}
}

// ApprovalReport bundles the approval workflow outputs.
type ApprovalReport struct {
	Enriched          dataframe.DataFrame
	Bottlenecks       dataframe.DataFrame
	StalledRequests   dataframe.DataFrame
	EscalationRate    float64
	EscalatedCount    int
	AvgEscalationDays float64
}

// ApprovalTier maps a PO amount to the required approval authority.
func ApprovalTier(amount float64, policy ApprovalPolicy) string {
	switch {
	case amount <= 0:
		return "invalid"
	case amount <= policy.Tier1Limit:
		return "auto_approve"
	case amount <= policy.Tier2Limit:
		return "manager"
	case amount <= policy.Tier3Limit:
		return "director"
	default:
		return "vp_required"
	}
}

// ClassifyApprovalOutcome grades an approval request by its status and
// cycle time.
func ClassifyApprovalOutcome(status string, cycleDays float64) string {
	switch status {
	case "approved":
		switch {
		case cycleDays <= 1:
			return "fast_track"
		case cycleDays <= 3:
			return "standard"
		default:
			return "delayed_approval"
		}
	case "rejected":
		if cycleDays <= 1 {
			return "quick_reject"
		}
		return "delayed_reject"
	case "pending":
		if cycleDays > 5 {
			return "stalled"
		}
		return "in_progress"
	default:
		return "unknown"
	}
}

func findBottlenecks(rows []etl.Row) dataframe.DataFrame {
	type stat struct {
		cycleSum float64
		requests int
		rejected int
	}
	byApprover := map[string]*stat{}
	for _, row := range rows {
		approver := etl.AsString(row["approver_id"])
		if approver == "" {
			continue
		}
		s := byApprover[approver]
		if s == nil {
			s = &stat{}
			byApprover[approver] = s
		}
		s.cycleSum += etl.AsFloat(row["cycle_days"])
		s.requests++
		if etl.AsString(row["approval_status"]) == "rejected" {
			s.rejected++
		}
	}
	if len(byApprover) == 0 {
		return dataframe.DataFrame{}
	}

	var meanCycle float64
	avgs := map[string]float64{}
	for id, s := range byApprover {
		avgs[id] = s.cycleSum / float64(s.requests)
		meanCycle += avgs[id]
	}
	meanCycle /= float64(len(byApprover))

	approvers := make([]string, 0, len(byApprover))
	for id := range byApprover {
		approvers = append(approvers, id)
	}
	sort.SliceStable(approvers, func(i, j int) bool {
		if avgs[approvers[i]] != avgs[approvers[j]] {
			return avgs[approvers[i]] > avgs[approvers[j]]
		}
		return approvers[i] < approvers[j]
	})

	out := make([]etl.Row, 0, len(approvers))
	for _, id := range approvers {
		s := byApprover[id]
		out = append(out, etl.Row{
			"approver_id":    id,
			"avg_cycle_days": math.Round(avgs[id]*100) / 100,
			"total_requests": s.requests,
			"rejection_rate": math.Round(float64(s.rejected)/float64(s.requests)*10000) / 10000,
			"is_bottleneck":  avgs[id] > meanCycle*1.5,
		})
	}
	return etl.FrameFromRows(out)
}

// AnalyzeApprovalWorkflows tiers requests by amount, classifies their
// outcome, surfaces slow approvers and measures escalation volume.
func (p *Pipeline) AnalyzeApprovalWorkflows(df dataframe.DataFrame) ApprovalReport {
	policy := DefaultApprovalPolicy()
	rows := df.Maps()
	enriched := make([]etl.Row, 0, len(rows))
	var stalled []etl.Row
	var escalated int
	var escalatedDays float64
	for _, row := range rows {
		amount := etl.AsFloat(row["amount_clean"])
		cycleDays := etl.AsFloat(row["cycle_days"])
		outcome := ClassifyApprovalOutcome(etl.AsString(row["approval_status"]), cycleDays)
		out := etl.Row{
			"po_number":       etl.AsString(row["po_number"]),
			"approver_id":     etl.AsString(row["approver_id"]),
			"approval_status": etl.AsString(row["approval_status"]),
			"cycle_days":      cycleDays,
			"approval_tier":   ApprovalTier(amount, policy),
			"outcome_class":   outcome,
		}
		enriched = append(enriched, out)
		if outcome == "stalled" {
			stalled = append(stalled, out)
		}
		if cycleDays > float64(policy.EscalationDays) {
			escalated++
			escalatedDays += cycleDays
		}
	}

	report := ApprovalReport{
		Enriched:        etl.FrameFromRows(enriched),
		Bottlenecks:     findBottlenecks(enriched),
		StalledRequests: etl.FrameFromRows(stalled),
		EscalatedCount:  escalated,
	}
	if len(rows) > 0 {
		report.EscalationRate = math.Round(float64(escalated)/float64(len(rows))*10000) / 10000
	}
	if escalated > 0 {
		report.AvgEscalationDays = math.Round(escalatedDays/float64(escalated)*100) / 100
	}
	p.logger.Info("analyzed approval workflows",
		slog.Int("requests", len(rows)),
		slog.Int("stalled", len(stalled)),
		slog.Float64("escalation_rate", report.EscalationRate))
	return report
}
