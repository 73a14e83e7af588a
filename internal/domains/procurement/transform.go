package procurement

import (
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/go-gota/gota/dataframe"

	"datapipe/internal/etl"
)

const eurToUSD = 1.08

// categoryMap folds raw procurement category codes onto standard names.
var categoryMap = map[string]string{
	"IT":         "technology",
	"TECH":       "technology",
	"SW":         "software",
	"HW":         "hardware",
	"MRO":        "maintenance",
	"MAINT":      "maintenance",
	"OFFICE":     "office_supplies",
	"TRAVEL":     "travel_expense",
	"PROF_SVCS":  "professional_services",
	"CONSULTING": "professional_services",
	"RAW_MAT":    "raw_materials",
	"LOGISTICS":  "logistics",
}

// NormalizeCategory maps a raw category code to its standard name.
// Unmapped codes pass through lowercased.
func NormalizeCategory(raw string) string {
	upper := strings.ToUpper(strings.TrimSpace(raw))
	if mapped, ok := categoryMap[upper]; ok {
		return mapped
	}
	return strings.ToLower(raw)
}

// CleanCurrency strips currency formatting and converts euro amounts to
// dollars at a fixed rate. Unparseable values come back as zero.
func CleanCurrency(raw string) float64 {
	raw = strings.TrimSpace(raw)
	rate := 1.0
	switch {
	case strings.HasPrefix(raw, "$"):
		raw = strings.TrimPrefix(raw, "$")
	case strings.HasPrefix(raw, "€"):
		raw = strings.TrimPrefix(raw, "€")
		rate = eurToUSD
	}
	raw = strings.ReplaceAll(raw, ",", "")
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0
	}
	return f * rate
}

// ClassifyUrgency tiers a PO by the gap between order and promised
// delivery.
func ClassifyUrgency(poDate, deliveryDate string) string {
	ordered, err := time.Parse("2006-01-02", poDate)
	if err != nil {
		return "unknown"
	}
	due, err := time.Parse("2006-01-02", deliveryDate)
	if err != nil {
		return "unknown"
	}
	days := int(due.Sub(ordered).Hours() / 24)
	switch {
	case days < 0:
		return "overdue"
	case days <= 1:
		return "emergency"
	case days <= 3:
		return "urgent"
	case days <= 7:
		return "standard"
	case days <= 30:
		return "planned"
	default:
		return "long_lead"
	}
}

// NormalizeProcurementRecords cleans amounts, standardizes categories,
// derives urgency tiers and drops rows with no PO number.
func (p *Pipeline) NormalizeProcurementRecords(df dataframe.DataFrame) dataframe.DataFrame {
	rows := df.Maps()
	out := make([]etl.Row, 0, len(rows))
	dropped := 0
	for _, row := range rows {
		poNumber := strings.TrimSpace(etl.AsString(row["po_number"]))
		if poNumber == "" {
			dropped++
			continue
		}
		poDate := etl.AsString(row["po_date"])
		deliveryDate := etl.AsString(row["delivery_date"])
		out = append(out, etl.Row{
			"po_number":           poNumber,
			"vendor_id":           etl.AsString(row["vendor_id"]),
			"po_date":             poDate,
			"delivery_date":       deliveryDate,
			"expected_date":       etl.AsString(row["expected_date"]),
			"amount_clean":        CleanCurrency(etl.AsString(row["amount"])),
			"quoted_amount":       etl.AsFloat(row["quoted_amount"]),
			"quality_rating":      etl.AsFloat(row["quality_rating"]),
			"category_normalized": NormalizeCategory(etl.AsString(row["category"])),
			"department":          etl.AsString(row["department"]),
			"status":              etl.AsString(row["status"]),
			"approved_by":         etl.AsString(row["approved_by"]),
			"approval_status":     etl.AsString(row["approval_status"]),
			"approver_id":         etl.AsString(row["approver_id"]),
			"cycle_days":          etl.AsFloat(row["cycle_days"]),
			"urgency":             ClassifyUrgency(poDate, deliveryDate),
		})
	}
	if dropped > 0 {
		p.logger.Warn("dropped rows with missing PO numbers", slog.Int("dropped", dropped))
	}
	p.logger.Info("normalized procurement records", slog.Int("rows", len(out)))
	return etl.FrameFromRows(out)
}
