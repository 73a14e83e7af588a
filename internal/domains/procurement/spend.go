package procurement

import (
	"log/slog"
	"math"
	"sort"

	"github.com/go-gota/gota/dataframe"

	"datapipe/internal/etl"
)

// spendThresholds are the annual budget ceilings per category. Unlisted
// categories default to 250k.
var spendThresholds = map[string]float64{
	"technology":            500_000,
	"professional_services": 300_000,
	"raw_materials":         1_000_000,
	"office_supplies":       50_000,
	"travel_expense":        100_000,
	"maintenance":           200_000,
	"logistics":             400_000,
}

const defaultSpendThreshold = 250_000

// SpendReport bundles the spend analysis breakdowns.
type SpendReport struct {
	ByCategory   dataframe.DataFrame
	ByDepartment dataframe.DataFrame
	TailSpend    dataframe.DataFrame
}

func buildCategorySummary(rows []etl.Row) dataframe.DataFrame {
	totals := map[string]float64{}
	counts := map[string]int{}
	for _, row := range rows {
		cat := etl.AsString(row["category_normalized"])
		if cat == "" {
			continue
		}
		totals[cat] += etl.AsFloat(row["amount_clean"])
		counts[cat]++
	}
	out := make([]etl.Row, 0, len(totals))
	for cat, total := range totals {
		threshold := spendThresholds[cat]
		if threshold == 0 {
			threshold = defaultSpendThreshold
		}
		out = append(out, etl.Row{
			"category":          cat,
			"total_spend":       math.Round(total*100) / 100,
			"transaction_count": counts[cat],
			"avg_transaction":   math.Round(total/float64(counts[cat])*100) / 100,
			"budget_threshold":  threshold,
			"over_budget":       total > threshold,
			"utilization_pct":   math.Round(total/threshold*1000) / 10,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i]["total_spend"].(float64) > out[j]["total_spend"].(float64)
	})
	return etl.FrameFromRows(out)
}

func buildDepartmentBreakdown(rows []etl.Row) dataframe.DataFrame {
	totals := map[string]float64{}
	pos := map[string]map[string]bool{}
	counts := map[string]int{}
	for _, row := range rows {
		dept := etl.AsString(row["department"])
		if dept == "" {
			continue
		}
		totals[dept] += etl.AsFloat(row["amount_clean"])
		counts[dept]++
		if pos[dept] == nil {
			pos[dept] = map[string]bool{}
		}
		pos[dept][etl.AsString(row["po_number"])] = true
	}
	depts := make([]string, 0, len(totals))
	for d := range totals {
		depts = append(depts, d)
	}
	sort.Strings(depts)
	out := make([]etl.Row, 0, len(depts))
	for _, dept := range depts {
		out = append(out, etl.Row{
			"department":  dept,
			"total_spend": math.Round(totals[dept]*100) / 100,
			"po_count":    len(pos[dept]),
			"avg_amount":  math.Round(totals[dept]/float64(counts[dept])*100) / 100,
		})
	}
	return etl.FrameFromRows(out)
}

// identifyTailSpend returns the vendors past the cumulative spend
// threshold, the long tail of small suppliers worth consolidating.
func identifyTailSpend(rows []etl.Row, thresholdPct float64) dataframe.DataFrame {
	totals := map[string]float64{}
	counts := map[string]int{}
	var grand float64
	for _, row := range rows {
		vid := etl.AsString(row["vendor_id"])
		if vid == "" {
			continue
		}
		amt := etl.AsFloat(row["amount_clean"])
		totals[vid] += amt
		counts[vid]++
		grand += amt
	}
	if grand == 0 {
		return dataframe.DataFrame{}
	}

	vendors := make([]string, 0, len(totals))
	for v := range totals {
		vendors = append(vendors, v)
	}
	sort.SliceStable(vendors, func(i, j int) bool {
		if totals[vendors[i]] != totals[vendors[j]] {
			return totals[vendors[i]] > totals[vendors[j]]
		}
		return vendors[i] < vendors[j]
	})

	var out []etl.Row
	var cumulative float64
	for _, vid := range vendors {
		cumulative += totals[vid]
		if cumulative/grand <= thresholdPct {
			continue
		}
		out = append(out, etl.Row{
			"vendor_id":         vid,
			"total_spend":       math.Round(totals[vid]*100) / 100,
			"transaction_count": counts[vid],
		})
	}
	return etl.FrameFromRows(out)
}

// BuildSpendAnalysis breaks spend down by category against budget, by
// department, and by tail vendors beyond 80% of cumulative spend.
func (p *Pipeline) BuildSpendAnalysis(df dataframe.DataFrame) SpendReport {
	rows := df.Maps()
	report := SpendReport{
		ByCategory:   buildCategorySummary(rows),
		ByDepartment: buildDepartmentBreakdown(rows),
		TailSpend:    identifyTailSpend(rows, 0.80),
	}
	p.logger.Info("built spend analysis",
		slog.Int("categories", report.ByCategory.Nrow()),
		slog.Int("departments", report.ByDepartment.Nrow()),
		slog.Int("tail_vendors", report.TailSpend.Nrow()))
	return report
}
