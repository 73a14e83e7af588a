package finance

import (
	"context"
	"log/slog"
	"math"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"datapipe/internal/etl"
)

// debitCreditThreshold is the tolerance for journal imbalance, in currency
// units.
const debitCreditThreshold = 0.01

// ClassifyAccountType maps an account code prefix to its financial
// statement category.
func ClassifyAccountType(accountCode string) string {
	if accountCode == "" {
		return "unclassified"
	}
	switch accountCode[:1] {
	case "1":
		return "asset"
	case "2":
		return "liability"
	case "3":
		return "equity"
	case "4":
		return "revenue"
	case "5":
		return "cost_of_goods"
	case "6":
		return "operating_expense"
	case "7":
		return "other_income"
	case "8":
		return "other_expense"
	case "9":
		return "intercompany"
	default:
		return "unclassified"
	}
}

// fiscalPeriodFor determines the fiscal period for a transaction based on
// its adjustment type.
func (p *Pipeline) fiscalPeriodFor(ctx context.Context, row etl.Row) string {
	switch adj := etl.AsString(row["adjustment_type"]); adj {
	case "prior_period":
		return etl.AsString(row["original_period"])
	case "accrual_reversal":
		return etl.AsString(row["reversal_period"])
	case "reclassification", "", "standard":
		return etl.AsString(row["posting_period"])
	default:
		p.logger.WarnContext(ctx, "unknown adjustment type", slog.String("type", adj))
		return etl.AsString(row["posting_period"])
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// NormalizeTransactions enriches raw financial rows with account names and
// classification, normalized debit/credit amounts, and fiscal periods.
// Journals that do not net to zero are counted and logged, not dropped;
// journal processing decides what to do with them.
func (p *Pipeline) NormalizeTransactions(ctx context.Context, raw, coa dataframe.DataFrame) (dataframe.DataFrame, error) {
	names := map[string]string{}
	for _, row := range coa.Maps() {
		names[etl.AsString(row["account_code"])] = etl.AsString(row["account_name"])
	}

	rows := raw.Maps()
	accountTypes := make(map[string]struct{})
	imbalance := map[string]float64{}

	for _, row := range rows {
		code := etl.AsString(row["account_code"])
		if name, found := names[code]; found && etl.AsString(row["account_name"]) == "" {
			row["account_name"] = name
		}
		row["account_type"] = ClassifyAccountType(code)
		accountTypes[ClassifyAccountType(code)] = struct{}{}

		debit := round2(etl.AsFloat(row["debit"]))
		credit := round2(etl.AsFloat(row["credit"]))
		row["debit"] = debit
		row["credit"] = credit
		row["net_amount"] = debit - credit
		row["fiscal_period"] = p.fiscalPeriodFor(ctx, row)

		imbalance[etl.AsString(row["journal_id"])] += debit - credit
	}

	unbalanced := 0
	for _, net := range imbalance {
		if math.Abs(net) > debitCreditThreshold {
			unbalanced++
		}
	}
	if unbalanced > 0 {
		p.logger.WarnContext(ctx, "unbalanced journals detected", slog.Int("count", unbalanced))
	}

	df := dataframe.LoadMaps(rows, dataframe.DefaultType(series.String), dataframe.DetectTypes(true))
	if df.Err != nil {
		return dataframe.DataFrame{}, df.Err
	}

	p.logger.InfoContext(ctx, "normalized transactions",
		slog.Int("rows", df.Nrow()),
		slog.Int("account_types", len(accountTypes)))
	return df, nil
}
