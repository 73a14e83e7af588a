package finance

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"datapipe/internal/etl"
)

// AccountCategory is a top-level chart-of-accounts grouping.
type AccountCategory string

const (
	CategoryAsset     AccountCategory = "asset"
	CategoryLiability AccountCategory = "liability"
	CategoryEquity    AccountCategory = "equity"
	CategoryRevenue   AccountCategory = "revenue"
	CategoryExpense   AccountCategory = "expense"
)

// AccountNode is one account in the chart-of-accounts hierarchy.
type AccountNode struct {
	Code       string
	Name       string
	Category   AccountCategory
	ParentCode string
	IsHeader   bool
}

// ClassifyCategory determines the account category from the code prefix.
func ClassifyCategory(code string) AccountCategory {
	if code == "" {
		return CategoryExpense
	}
	switch code[:1] {
	case "1":
		return CategoryAsset
	case "2":
		return CategoryLiability
	case "3":
		return CategoryEquity
	case "4":
		return CategoryRevenue
	default:
		return CategoryExpense
	}
}

// NormalBalance returns whether accounts of a category normally carry a
// debit or credit balance.
func NormalBalance(category AccountCategory) string {
	switch category {
	case CategoryAsset, CategoryExpense:
		return "debit"
	default:
		return "credit"
	}
}

// BuildAccountTree groups accounts by category.
func BuildAccountTree(coa dataframe.DataFrame) map[string][]AccountNode {
	tree := map[string][]AccountNode{}
	for _, row := range coa.Maps() {
		cat := ClassifyCategory(etl.AsString(row["account_code"]))
		node := AccountNode{
			Code:       etl.AsString(row["account_code"]),
			Name:       etl.AsString(row["account_name"]),
			Category:   cat,
			ParentCode: etl.AsString(row["parent_code"]),
			IsHeader:   etl.AsString(row["is_header"]) == "true",
		}
		tree[string(cat)] = append(tree[string(cat)], node)
	}
	return tree
}

// LoadChartOfAccounts loads and enriches the chart of accounts with
// category and normal-balance columns.
func (p *Pipeline) LoadChartOfAccounts(ctx context.Context) (dataframe.DataFrame, error) {
	path := filepath.Join(p.dataDir, "finance", "chart_of_accounts.csv")
	coa, err := p.reader.ReadCSVFile(ctx, path)
	if err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("failed to load chart of accounts: %w", err)
	}

	codes := coa.Col("account_code").Records()
	categories := make([]string, len(codes))
	balances := make([]string, len(codes))
	seen := map[string]struct{}{}
	for i, code := range codes {
		cat := ClassifyCategory(code)
		categories[i] = string(cat)
		balances[i] = NormalBalance(cat)
		seen[string(cat)] = struct{}{}
	}
	coa = coa.
		Mutate(series.New(categories, series.String, "category")).
		Mutate(series.New(balances, series.String, "normal_balance"))

	p.logger.InfoContext(ctx, "loaded chart of accounts",
		slog.Int("accounts", coa.Nrow()),
		slog.Int("categories", len(seen)))
	return coa, nil
}
