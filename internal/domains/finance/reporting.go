package finance

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"datapipe/internal/etl"
)

var incomeTypes = map[string]bool{
	"revenue": true, "cost_of_goods": true, "operating_expense": true,
	"other_income": true, "other_expense": true,
}

var balanceSheetTypes = map[string]bool{
	"asset": true, "liability": true, "equity": true,
}

type statementLine struct {
	accountType string
	accountCode string
	accountName string
	debit       float64
	credit      float64
}

func rollupLines(rows []etl.Row) []statementLine {
	type key struct{ accountType, code, name string }
	totals := map[key]*statementLine{}
	var order []key
	for _, row := range rows {
		k := key{
			accountType: etl.AsString(row["account_type"]),
			code:        etl.AsString(row["account_code"]),
			name:        etl.AsString(row["account_name"]),
		}
		line, found := totals[k]
		if !found {
			line = &statementLine{accountType: k.accountType, accountCode: k.code, accountName: k.name}
			totals[k] = line
			order = append(order, k)
		}
		line.debit += etl.AsFloat(row["debit"])
		line.credit += etl.AsFloat(row["credit"])
	}
	sort.Slice(order, func(i, j int) bool { return order[i].code < order[j].code })

	lines := make([]statementLine, 0, len(order))
	for _, k := range order {
		lines = append(lines, *totals[k])
	}
	return lines
}

func (p *Pipeline) buildIncomeStatement(rows []etl.Row, period string) []etl.Row {
	var filtered []etl.Row
	for _, row := range rows {
		if incomeTypes[etl.AsString(row["account_type"])] && etl.AsString(row["fiscal_period"]) == period {
			filtered = append(filtered, row)
		}
	}

	var out []etl.Row
	for _, line := range rollupLines(filtered) {
		out = append(out, etl.Row{
			"account_type":  line.accountType,
			"account_code":  line.accountCode,
			"account_name":  line.accountName,
			"total_debit":   round2(line.debit),
			"total_credit":  round2(line.credit),
			"net_amount":    round2(line.credit - line.debit),
			"statement":     "income_statement",
			"fiscal_period": period,
		})
	}
	return out
}

func (p *Pipeline) buildBalanceSheet(rows []etl.Row, period string) []etl.Row {
	// Balance sheet accounts accumulate through period end.
	var filtered []etl.Row
	for _, row := range rows {
		if balanceSheetTypes[etl.AsString(row["account_type"])] && etl.AsString(row["fiscal_period"]) <= period {
			filtered = append(filtered, row)
		}
	}

	var out []etl.Row
	for _, line := range rollupLines(filtered) {
		out = append(out, etl.Row{
			"account_type":  line.accountType,
			"account_code":  line.accountCode,
			"account_name":  line.accountName,
			"total_debit":   round2(line.debit),
			"total_credit":  round2(line.credit),
			"net_amount":    round2(line.debit - line.credit),
			"statement":     "balance_sheet",
			"fiscal_period": period,
		})
	}
	return out
}

func (p *Pipeline) buildCashflowSummary(rows []etl.Row, period string) []etl.Row {
	inflows := map[string]float64{}
	outflows := map[string]float64{}
	var order []string
	for _, row := range rows {
		if !strings.HasPrefix(etl.AsString(row["account_code"]), "1010") ||
			etl.AsString(row["fiscal_period"]) != period {
			continue
		}
		jt := etl.AsString(row["journal_type"])
		if _, seen := inflows[jt]; !seen {
			order = append(order, jt)
		}
		inflows[jt] += etl.AsFloat(row["debit"])
		outflows[jt] += etl.AsFloat(row["credit"])
	}
	sort.Strings(order)

	var out []etl.Row
	for _, jt := range order {
		out = append(out, etl.Row{
			"account_type":  "cash",
			"account_code":  "1010",
			"account_name":  "journal_type: " + jt,
			"total_debit":   round2(inflows[jt]),
			"total_credit":  round2(outflows[jt]),
			"net_amount":    round2(inflows[jt] - outflows[jt]),
			"statement":     "cash_flow",
			"fiscal_period": period,
		})
	}
	return out
}

// BuildFinancialStatements generates income statement, balance sheet, and
// cash flow lines for every fiscal period in the data.
func (p *Pipeline) BuildFinancialStatements(ctx context.Context, journals dataframe.DataFrame) (dataframe.DataFrame, error) {
	rows := journals.Maps()

	periodSet := map[string]struct{}{}
	for _, row := range rows {
		if period := etl.AsString(row["fiscal_period"]); period != "" {
			periodSet[period] = struct{}{}
		}
	}
	periods := make([]string, 0, len(periodSet))
	for period := range periodSet {
		periods = append(periods, period)
	}
	sort.Strings(periods)

	var all []etl.Row
	for _, period := range periods {
		all = append(all, p.buildIncomeStatement(rows, period)...)
		all = append(all, p.buildBalanceSheet(rows, period)...)
		all = append(all, p.buildCashflowSummary(rows, period)...)
	}

	if len(all) == 0 {
		return dataframe.DataFrame{}, nil
	}
	df := dataframe.LoadMaps(all, dataframe.DefaultType(series.String), dataframe.DetectTypes(true))
	if df.Err != nil {
		return dataframe.DataFrame{}, df.Err
	}

	p.logger.InfoContext(ctx, "generated financial statements",
		slog.Int("periods", len(periods)),
		slog.Int("line_items", df.Nrow()))
	return df, nil
}
