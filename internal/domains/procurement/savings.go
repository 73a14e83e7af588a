package procurement

import (
	"log/slog"
	"math"
	"sort"

	"github.com/go-gota/gota/dataframe"

	"datapipe/internal/etl"
)

// SavingsReport bundles realized and estimated savings opportunities.
type SavingsReport struct {
	Negotiated     dataframe.DataFrame
	Consolidation  dataframe.DataFrame
	VendorSwitch   dataframe.DataFrame
	TotalRealized  float64
	TotalPotential float64
}

const vendorSwitchSavingsRate = 0.05

func negotiatedSavings(rows []etl.Row) (dataframe.DataFrame, float64) {
	var out []etl.Row
	var total float64
	for _, row := range rows {
		quoted := etl.AsFloat(row["quoted_amount"])
		actual := etl.AsFloat(row["amount_clean"])
		if quoted <= 0 || actual >= quoted {
			continue
		}
		saved := math.Round((quoted-actual)*100) / 100
		total += saved
		out = append(out, etl.Row{
			"po_number":      etl.AsString(row["po_number"]),
			"vendor_id":      etl.AsString(row["vendor_id"]),
			"quoted_amount":  quoted,
			"actual_amount":  actual,
			"savings_amount": saved,
			"savings_pct":    math.Round((1-actual/quoted)*10000) / 100,
			"savings_type":   "negotiated_discount",
		})
	}
	return etl.FrameFromRows(out), total
}

// consolidationSavings estimates 2% per surplus vendor, capped at 8%,
// for categories spread across more than three suppliers.
func consolidationSavings(rows []etl.Row) (dataframe.DataFrame, float64) {
	vendors := map[string]map[string]bool{}
	totals := map[string]float64{}
	for _, row := range rows {
		cat := etl.AsString(row["category_normalized"])
		vid := etl.AsString(row["vendor_id"])
		if cat == "" || vid == "" {
			continue
		}
		if vendors[cat] == nil {
			vendors[cat] = map[string]bool{}
		}
		vendors[cat][vid] = true
		totals[cat] += etl.AsFloat(row["amount_clean"])
	}
	cats := make([]string, 0, len(totals))
	for c := range totals {
		cats = append(cats, c)
	}
	sort.Strings(cats)

	var out []etl.Row
	var total float64
	for _, cat := range cats {
		vendorCount := len(vendors[cat])
		spend := totals[cat]
		if vendorCount <= 3 || spend <= 10_000 {
			continue
		}
		pct := math.Min(0.08, 0.02*float64(vendorCount-2))
		estimated := math.Round(spend*pct*100) / 100
		total += estimated
		out = append(out, etl.Row{
			"category":          cat,
			"vendor_count":      vendorCount,
			"total_spend":       math.Round(spend*100) / 100,
			"estimated_savings": estimated,
			"savings_pct":       math.Round(pct*10000) / 100,
			"savings_type":      "volume_consolidation",
		})
	}
	return etl.FrameFromRows(out), total
}

// vendorSwitchSavings estimates savings from moving spend off probation
// and blocked vendors.
func vendorSwitchSavings(rows []etl.Row, vendorScores dataframe.DataFrame) (dataframe.DataFrame, float64) {
	if vendorScores.Nrow() == 0 {
		return dataframe.DataFrame{}, 0
	}
	lowTier := map[string]string{}
	for _, row := range vendorScores.Maps() {
		tier := etl.AsString(row["tier"])
		if tier == "probation" || tier == "blocked" {
			lowTier[etl.AsString(row["vendor_id"])] = tier
		}
	}
	spend := map[string]float64{}
	for _, row := range rows {
		vid := etl.AsString(row["vendor_id"])
		if _, ok := lowTier[vid]; ok {
			spend[vid] += etl.AsFloat(row["amount_clean"])
		}
	}
	vendors := make([]string, 0, len(spend))
	for v := range spend {
		vendors = append(vendors, v)
	}
	sort.Strings(vendors)

	var out []etl.Row
	var total float64
	for _, vid := range vendors {
		estimated := math.Round(spend[vid]*vendorSwitchSavingsRate*100) / 100
		total += estimated
		out = append(out, etl.Row{
			"vendor_id":         vid,
			"current_tier":      lowTier[vid],
			"total_spend":       math.Round(spend[vid]*100) / 100,
			"estimated_savings": estimated,
			"savings_type":      "vendor_switch",
		})
	}
	return etl.FrameFromRows(out), total
}

// CalculateSavings measures realized negotiation savings and estimates
// consolidation and vendor-switch opportunities over the transaction
// history.
func (p *Pipeline) CalculateSavings(transactions, vendorScores dataframe.DataFrame) SavingsReport {
	rows := transactions.Maps()
	var report SavingsReport
	var consolidationTotal, switchTotal float64
	report.Negotiated, report.TotalRealized = negotiatedSavings(rows)
	report.Consolidation, consolidationTotal = consolidationSavings(rows)
	report.VendorSwitch, switchTotal = vendorSwitchSavings(rows, vendorScores)
	report.TotalPotential = consolidationTotal + switchTotal

	p.logger.Info("calculated cost savings",
		slog.Float64("realized", report.TotalRealized),
		slog.Float64("potential", report.TotalPotential))
	return report
}
