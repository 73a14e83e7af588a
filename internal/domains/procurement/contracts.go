package procurement

import (
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/go-gota/gota/dataframe"

	"datapipe/internal/etl"
)

// ContractPolicy holds the renewal review windows and competition
// threshold for the contract portfolio.
type ContractPolicy struct {
	AutoRenewLimitDays   int
	MaxTermYears         int
	ReviewBeforeDays     int
	CompetitionThreshold float64
}

// DefaultContractPolicy returns the standing contract governance rules.
func DefaultContractPolicy() ContractPolicy {
	return ContractPolicy{
		AutoRenewLimitDays:   90,
		MaxTermYears:         5,
		ReviewBeforeDays:     60,
		CompetitionThreshold: 25_000,
	}
}

// ContractReport bundles the contract portfolio outputs.
type ContractReport struct {
	Portfolio          dataframe.DataFrame
	TermDistribution   dataframe.DataFrame
	CriticalRenewals   dataframe.DataFrame
	TotalContractValue float64
}

// ClassifyContractType determines the contract classification from term
// length, value and awarded vendor count.
func ClassifyContractType(termMonths int, totalValue float64, awardedVendors int) string {
	switch {
	case termMonths <= 0:
		return "spot_purchase"
	case termMonths <= 12 && totalValue < 10_000:
		return "blanket_order"
	case totalValue > 500_000 && awardedVendors > 1:
		return "master_agreement"
	case totalValue > 100_000:
		return "strategic_contract"
	case termMonths > 36:
		return "long_term_agreement"
	default:
		return "standard_contract"
	}
}

// CheckRenewalStatus grades renewal urgency from days until expiry.
func CheckRenewalStatus(expiryDate string, asOf time.Time, policy ContractPolicy) string {
	expiry, err := time.Parse("2006-01-02", expiryDate)
	if err != nil {
		return "unknown"
	}
	days := int(expiry.Sub(asOf).Hours() / 24)
	switch {
	case days < 0:
		return "expired"
	case days <= 30:
		return "critical_renewal"
	case days <= policy.ReviewBeforeDays:
		return "upcoming_renewal"
	case days <= policy.AutoRenewLimitDays:
		return "review_recommended"
	default:
		return "active"
	}
}

func termDistribution(rows []etl.Row) dataframe.DataFrame {
	type agg struct {
		count int
		value float64
		term  float64
	}
	byType := map[string]*agg{}
	for _, row := range rows {
		ct := etl.AsString(row["contract_type"])
		a := byType[ct]
		if a == nil {
			a = &agg{}
			byType[ct] = a
		}
		a.count++
		a.value += etl.AsFloat(row["total_value"])
		a.term += etl.AsFloat(row["term_months"])
	}
	types := make([]string, 0, len(byType))
	for t := range byType {
		types = append(types, t)
	}
	sort.Strings(types)
	out := make([]etl.Row, 0, len(types))
	for _, t := range types {
		a := byType[t]
		out = append(out, etl.Row{
			"contract_type":   t,
			"count":           a.count,
			"avg_value":       math.Round(a.value/float64(a.count)*100) / 100,
			"avg_term_months": math.Round(a.term/float64(a.count)*100) / 100,
			"total_value":     math.Round(a.value*100) / 100,
		})
	}
	return etl.FrameFromRows(out)
}

// EvaluateContracts classifies the contract portfolio, summarizes terms
// by type and isolates contracts inside the critical renewal window.
func (p *Pipeline) EvaluateContracts(contracts dataframe.DataFrame, asOf time.Time) ContractReport {
	policy := DefaultContractPolicy()
	rows := contracts.Maps()
	enriched := make([]etl.Row, 0, len(rows))
	var critical []etl.Row
	var totalValue float64
	for _, row := range rows {
		termMonths := int(etl.AsFloat(row["term_months"]))
		value := etl.AsFloat(row["total_value"])
		awarded := int(etl.AsFloat(row["awarded_vendors"]))
		if awarded == 0 {
			awarded = 1
		}
		renewal := CheckRenewalStatus(etl.AsString(row["expiry_date"]), asOf, policy)
		totalValue += value
		out := etl.Row{
			"contract_id":     etl.AsString(row["contract_id"]),
			"vendor_id":       etl.AsString(row["vendor_id"]),
			"term_months":     termMonths,
			"total_value":     value,
			"awarded_vendors": awarded,
			"expiry_date":     etl.AsString(row["expiry_date"]),
			"contract_type":   ClassifyContractType(termMonths, value, awarded),
			"renewal_status":  renewal,
		}
		enriched = append(enriched, out)
		if renewal == "critical_renewal" {
			critical = append(critical, out)
		}
	}
	report := ContractReport{
		Portfolio:          etl.FrameFromRows(enriched),
		TermDistribution:   termDistribution(enriched),
		CriticalRenewals:   etl.FrameFromRows(critical),
		TotalContractValue: totalValue,
	}
	p.logger.Info("evaluated contract portfolio",
		slog.Int("contracts", len(enriched)),
		slog.Int("critical_renewals", len(critical)))
	return report
}
