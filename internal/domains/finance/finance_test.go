package finance

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"datapipe/internal/etl"
)

func TestClassifyAccountType(t *testing.T) {
	tests := []struct {
		code string
		want string
	}{
		{code: "1000", want: "asset"},
		{code: "2100", want: "liability"},
		{code: "3000", want: "equity"},
		{code: "4000", want: "revenue"},
		{code: "5010", want: "cost_of_goods"},
		{code: "6200", want: "operating_expense"},
		{code: "7100", want: "other_income"},
		{code: "8050", want: "other_expense"},
		{code: "9000", want: "intercompany"},
		{code: "X123", want: "unclassified"},
		{code: "", want: "unclassified"},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyAccountType(tt.code))
		})
	}
}

func TestClassifyCategoryAndNormalBalance(t *testing.T) {
	assert.Equal(t, CategoryAsset, ClassifyCategory("1000"))
	assert.Equal(t, CategoryRevenue, ClassifyCategory("4000"))
	assert.Equal(t, CategoryExpense, ClassifyCategory("6000"))

	assert.Equal(t, "debit", NormalBalance(CategoryAsset))
	assert.Equal(t, "debit", NormalBalance(CategoryExpense))
	assert.Equal(t, "credit", NormalBalance(CategoryLiability))
	assert.Equal(t, "credit", NormalBalance(CategoryRevenue))
}

func journalFrame() dataframe.DataFrame {
	return dataframe.New(
		series.New([]string{
			"JE-20240101-0001", "JE-20240101-0001",
			"JE-20240101-0002", "JE-20240101-0002",
			"JE-20240102-0001", "JE-20240102-0001",
		}, series.String, "journal_id"),
		series.New([]string{
			"2024-01-05", "2024-01-05",
			"2024-01-10", "2024-01-10",
			"2024-01-15", "2024-01-15",
		}, series.String, "posting_date"),
		series.New([]string{
			"standard", "standard",
			"accrual", "accrual",
			"standard", "standard",
		}, series.String, "journal_type"),
		series.New([]string{"rent", "rent", "wages", "wages", "oops", "oops"}, series.String, "description"),
		series.New([]float64{500, 0, 250, 0, 100, 0}, series.Float, "debit"),
		series.New([]float64{0, 500, 0, 250, 0, 75}, series.Float, "credit"),
	)
}

func TestProcessJournalEntries(t *testing.T) {
	p := New(nil, t.TempDir(), t.TempDir(), t.TempDir())

	processed, err := p.ProcessJournalEntries(context.Background(), journalFrame())
	require.NoError(t, err)

	// Two balanced journals survive; the accrual journal also generates a
	// reversal with flipped amounts. The unbalanced journal is skipped.
	ids := processed.Col("journal_id").Records()
	assert.NotContains(t, ids, "JE-20240102-0001")

	var debit, credit float64
	reversals := 0
	for _, row := range processed.Maps() {
		debit += etl.AsFloat(row["debit"])
		credit += etl.AsFloat(row["credit"])
		if etl.AsString(row["journal_type"]) == "auto_reversal" {
			reversals++
			assert.Contains(t, etl.AsString(row["description"]), "REVERSAL:")
			assert.Equal(t, "2024-02-10", etl.AsString(row["posting_date"]))
		}
	}
	assert.Equal(t, 2, reversals)
	assert.InDelta(t, debit, credit, 0.01, "processed journals stay balanced")
}

func TestJournalBalanced(t *testing.T) {
	balanced := []etl.Row{
		{"debit": 100.0, "credit": 0.0},
		{"debit": 0.0, "credit": 100.0},
	}
	assert.True(t, journalBalanced(balanced))

	unbalanced := []etl.Row{
		{"debit": 100.0, "credit": 0.0},
		{"debit": 0.0, "credit": 99.0},
	}
	assert.False(t, journalBalanced(unbalanced))

	withinTolerance := []etl.Row{
		{"debit": 100.005, "credit": 0.0},
		{"debit": 0.0, "credit": 100.0},
	}
	assert.True(t, journalBalanced(withinTolerance))
}

func TestComputeFederalTax(t *testing.T) {
	tests := []struct {
		name   string
		income float64
		want   float64
	}{
		{name: "first bracket only", income: 40_000, want: 6_000},
		{name: "spans two brackets", income: 80_000, want: 50_000*0.15 + 30_000*0.25},
		{name: "top bracket", income: 400_000,
			want: 50_000*0.15 + 50_000*0.25 + 235_000*0.34 + 65_000*0.21},
		{name: "zero income", income: 0, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, ComputeFederalTax(tt.income, defaultFederalBrackets), 0.01)
		})
	}
}

func TestStateRate(t *testing.T) {
	assert.InDelta(t, 0.0884, StateRate("CA", defaultStateRates), 1e-9)
	assert.Zero(t, StateRate("TX", defaultStateRates))
	assert.InDelta(t, defaultStateRate, StateRate("ZZ", defaultStateRates), 1e-9)
}

func TestClassifyVariance(t *testing.T) {
	tests := []struct {
		name        string
		pct         float64
		accountType string
		want        string
	}{
		{name: "tiny variance on track", pct: 0.5, accountType: "revenue", want: "on_track"},
		{name: "revenue above threshold", pct: 15, accountType: "revenue", want: "favorable_significant"},
		{name: "revenue small gain", pct: 5, accountType: "revenue", want: "favorable"},
		{name: "revenue big miss", pct: -20, accountType: "revenue", want: "unfavorable_significant"},
		{name: "expense overrun", pct: 12, accountType: "operating_expense", want: "unfavorable_significant"},
		{name: "cogs savings", pct: -15, accountType: "cost_of_goods", want: "favorable_significant"},
		{name: "asset neutral", pct: 8, accountType: "asset", want: "neutral"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classifyVariance(tt.pct, tt.accountType))
		})
	}
}

func TestConsolidateEntities(t *testing.T) {
	p := New(nil, t.TempDir(), t.TempDir(), t.TempDir())

	statements := etl.FrameFromRows([]etl.Row{
		{"account_code": "1000", "account_type": "asset", "fiscal_period": "2024-01",
			"total_debit": 500.0, "total_credit": 100.0, "net_amount": 400.0, "entity_code": "ENT-001"},
		{"account_code": "1000", "account_type": "asset", "fiscal_period": "2024-01",
			"total_debit": 250.0, "total_credit": 50.0, "net_amount": 200.0, "entity_code": "ENT-002"},
		{"account_code": "4000", "account_type": "revenue", "fiscal_period": "2024-01",
			"total_debit": 0.0, "total_credit": 750.0, "net_amount": 750.0, "entity_code": "ENT-001"},
	})

	consolidated, err := p.ConsolidateEntities(context.Background(), []dataframe.DataFrame{statements})
	require.NoError(t, err)
	rows := consolidated.Maps()
	require.Len(t, rows, 2)

	cash := rows[0]
	assert.Equal(t, "1000", etl.AsString(cash["account_code"]))
	assert.Equal(t, "2024-01", etl.AsString(cash["fiscal_period"]))
	assert.InDelta(t, 750.0, etl.AsFloat(cash["consolidated_debit"]), 1e-9)
	assert.InDelta(t, 150.0, etl.AsFloat(cash["consolidated_credit"]), 1e-9)
	assert.InDelta(t, 600.0, etl.AsFloat(cash["consolidated_net"]), 1e-9)
	assert.Equal(t, 2, etl.AsInt(cash["entity_count"]))

	revenue := rows[1]
	assert.Equal(t, "4000", etl.AsString(revenue["account_code"]))
	assert.InDelta(t, 750.0, etl.AsFloat(revenue["consolidated_credit"]), 1e-9)
	assert.Equal(t, 1, etl.AsInt(revenue["entity_count"]))
}

func TestBuildIncomeStatementPeriodColumn(t *testing.T) {
	p := New(nil, t.TempDir(), t.TempDir(), t.TempDir())

	lines := p.buildIncomeStatement([]etl.Row{
		{"account_code": "4000", "account_name": "Revenue", "account_type": "revenue",
			"fiscal_period": "2024-01", "debit": 0.0, "credit": 900.0},
	}, "2024-01")
	require.Len(t, lines, 1)
	assert.Equal(t, "2024-01", etl.AsString(lines[0]["fiscal_period"]))
	assert.Equal(t, "income_statement", etl.AsString(lines[0]["statement"]))
}

func TestValidate_MissingSources(t *testing.T) {
	p := New(nil, t.TempDir(), t.TempDir(), t.TempDir())

	status := p.Validate(context.Background())

	assert.Equal(t, "error", status.Status)
	assert.NotEmpty(t, status.Message)
}

func TestValidate_WithFixture(t *testing.T) {
	dataDir := t.TempDir()
	glDir := filepath.Join(dataDir, "finance", "general_ledger")
	require.NoError(t, os.MkdirAll(glDir, 0755))

	fixture := "journal_id,posting_date,account_code,account_name,debit,credit,entity_code,fiscal_period\n" +
		"JE-20240101-0001,2024-01-05,1000,Cash,500.00,0,ENT-001,2024-01\n" +
		"JE-20240101-0001,2024-01-05,4000,Revenue,0,500.00,ENT-001,2024-01\n"
	require.NoError(t, os.WriteFile(filepath.Join(glDir, "gl_202401.csv"), []byte(fixture), 0644))

	p := New(nil, dataDir, t.TempDir(), t.TempDir())
	status := p.Validate(context.Background())

	assert.Equal(t, "ok", status.Status, status.Message)
	assert.Equal(t, 2, status.RowCount)
}
