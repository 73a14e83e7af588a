package finance

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"datapipe/internal/etl"
)

// varianceThresholdPct marks a budget variance as significant.
const varianceThresholdPct = 10.0

// classifyVariance classifies a budget variance by magnitude and account
// type. For revenue a positive variance is favorable; for cost accounts it
// is unfavorable.
func classifyVariance(pctVariance float64, accountType string) string {
	if math.Abs(pctVariance) < 1.0 {
		return "on_track"
	}
	switch accountType {
	case "revenue":
		switch {
		case pctVariance > varianceThresholdPct:
			return "favorable_significant"
		case pctVariance > 0:
			return "favorable"
		case pctVariance < -varianceThresholdPct:
			return "unfavorable_significant"
		default:
			return "unfavorable"
		}
	case "operating_expense", "cost_of_goods":
		switch {
		case pctVariance > varianceThresholdPct:
			return "unfavorable_significant"
		case pctVariance > 0:
			return "unfavorable"
		case pctVariance < -varianceThresholdPct:
			return "favorable_significant"
		default:
			return "favorable"
		}
	default:
		return "neutral"
	}
}

// varianceExplanation generates a short narrative for material variances.
func varianceExplanation(flag, accountName string, pctVariance float64) string {
	switch flag {
	case "favorable_significant":
		return fmt.Sprintf("%s: actual exceeded budget by %.1f%%", accountName, pctVariance)
	case "unfavorable_significant":
		return fmt.Sprintf("%s: actual below budget by %.1f%%", accountName, math.Abs(pctVariance))
	case "on_track":
		return fmt.Sprintf("%s: within budget", accountName)
	default:
		return ""
	}
}

// AnalyzeBudgetVariance compares journal actuals against the approved
// annual budget, line by line.
func (p *Pipeline) AnalyzeBudgetVariance(ctx context.Context, journals dataframe.DataFrame) (dataframe.DataFrame, error) {
	budgetPath := filepath.Join(p.dataDir, "finance", "budgets", "annual_budget.csv")
	budget, err := p.reader.ReadCSVFile(ctx, budgetPath)
	if err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("failed to load budget: %w", err)
	}

	budgets := map[string]float64{}
	for _, row := range budget.Maps() {
		key := etl.AsString(row["account_code"]) + "\x1f" + etl.AsString(row["fiscal_period"])
		budgets[key] = etl.AsFloat(row["budget_amount"])
	}

	type actualKey struct{ code, name, accountType, period string }
	actuals := map[actualKey]float64{}
	for _, row := range journals.Maps() {
		k := actualKey{
			code:        etl.AsString(row["account_code"]),
			name:        etl.AsString(row["account_name"]),
			accountType: etl.AsString(row["account_type"]),
			period:      etl.AsString(row["fiscal_period"]),
		}
		actuals[k] += etl.AsFloat(row["net_amount"])
	}

	keys := make([]actualKey, 0, len(actuals))
	for k := range actuals {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].code != keys[j].code {
			return keys[i].code < keys[j].code
		}
		return keys[i].period < keys[j].period
	})

	significant := 0
	out := make([]etl.Row, 0, len(keys))
	for _, k := range keys {
		actual := round2(actuals[k])
		budgeted := budgets[k.code+"\x1f"+k.period]
		variance := round2(actual - budgeted)

		pctVariance := 0.0
		if budgeted != 0 {
			pctVariance = variance / budgeted * 100
		}
		flag := classifyVariance(pctVariance, k.accountType)
		if strings.Contains(flag, "significant") {
			significant++
		}

		out = append(out, etl.Row{
			"account_code":    k.code,
			"account_name":    k.name,
			"account_type":    k.accountType,
			"fiscal_period":   k.period,
			"actual_amount":   actual,
			"budget_amount":   budgeted,
			"dollar_variance": variance,
			"pct_variance":    round2(pctVariance),
			"variance_flag":   flag,
			"explanation":     varianceExplanation(flag, k.name, pctVariance),
		})
	}

	df := dataframe.LoadMaps(out, dataframe.DefaultType(series.String), dataframe.DetectTypes(true))
	if df.Err != nil {
		return dataframe.DataFrame{}, df.Err
	}

	p.logger.InfoContext(ctx, "budget analysis complete",
		slog.Int("significant_variances", significant),
		slog.Int("line_items", df.Nrow()))
	return df, nil
}
