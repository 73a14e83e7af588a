package sales

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"datapipe/internal/etl"
)

func TestNormalizeRecordType(t *testing.T) {
	tests := []struct {
		name          string
		recordType    string
		amount        float64
		wantAmount    float64
		wantDirection string
		wantType      string
	}{
		{name: "sale forces positive", recordType: "sale", amount: -50, wantAmount: 50, wantDirection: "credit", wantType: "sale"},
		{name: "return forces negative", recordType: "return", amount: 30, wantAmount: -30, wantDirection: "debit", wantType: "return"},
		{name: "positive adjustment", recordType: "adjustment", amount: 10, wantAmount: 10, wantDirection: "credit", wantType: "adjustment"},
		{name: "negative adjustment", recordType: "adjustment", amount: -10, wantAmount: -10, wantDirection: "debit", wantType: "adjustment"},
		{name: "void zeroes amount", recordType: "void", amount: 99, wantAmount: 0, wantDirection: "void", wantType: "void"},
		{name: "empty becomes unknown", recordType: "", amount: 5, wantAmount: 5, wantDirection: "unknown", wantType: "unknown"},
		{name: "unrecognized type", recordType: "refund", amount: 5, wantAmount: 5, wantDirection: "unknown", wantType: "refund"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row := etl.Row{"record_type": tt.recordType, "amount": tt.amount}
			normalizeRecordType(row)
			assert.Equal(t, tt.wantAmount, etl.AsFloat(row["amount"]))
			assert.Equal(t, tt.wantDirection, row["direction"])
			assert.Equal(t, tt.wantType, row["record_type"])
		})
	}
}

func TestParseCurrency(t *testing.T) {
	tests := []struct {
		raw      interface{}
		amount   float64
		currency string
	}{
		{raw: "$42.50", amount: 42.50, currency: "USD"},
		{raw: "€1,200", amount: 1200, currency: "EUR"},
		{raw: "£99.99", amount: 99.99, currency: "GBP"},
		{raw: "¥5000", amount: 5000, currency: "JPY"},
		{raw: "1,234.56", amount: 1234.56, currency: "USD"},
		{raw: 42.0, amount: 42, currency: "USD"},
	}

	for _, tt := range tests {
		amount, currency := parseCurrency(tt.raw)
		assert.InDelta(t, tt.amount, amount, 1e-9)
		assert.Equal(t, tt.currency, currency)
	}
}

func cleanedFrame() dataframe.DataFrame {
	return dataframe.New(
		series.New([]string{"TX-0001", "TX-0002", "TX-0003", "TX-0004"}, series.String, "transaction_id"),
		series.New([]string{"2024-01-02", "2024-01-09", "2024-02-05", "2024-02-05"}, series.String, "transaction_date"),
		series.New([]float64{100, 200, 150, 50}, series.Float, "amount"),
		series.New([]string{"north", "north", "south", "south"}, series.String, "region"),
		series.New([]string{"online", "pos", "online", "online"}, series.String, "channel"),
		series.New([]string{"P-1", "P-2", "P-1", "P-3"}, series.String, "product_id"),
		series.New([]string{"C-1", "C-1", "C-2", "C-2"}, series.String, "customer_id"),
	)
}

func TestBuildSalesSummaries(t *testing.T) {
	p := New(nil, t.TempDir(), t.TempDir(), t.TempDir())

	summaries, err := p.BuildSalesSummaries(context.Background(), cleanedFrame())
	require.NoError(t, err)

	byRegion, ok := summaries["by_region"]
	require.True(t, ok)
	require.Equal(t, 2, byRegion.Nrow())
	north := byRegion.Maps()[0]
	assert.Equal(t, "north", etl.AsString(north["region"]))
	assert.InDelta(t, 300, etl.AsFloat(north["total_amount"]), 0.01)
	assert.InDelta(t, 150, etl.AsFloat(north["avg_amount"]), 0.01)
	assert.Equal(t, 2, etl.AsInt(north["transaction_count"]))

	ts, ok := summaries["time_series"]
	require.True(t, ok)
	grains := map[string]int{}
	for _, row := range ts.Maps() {
		grains[etl.AsString(row["grain"])]++
	}
	assert.Equal(t, 3, grains["D"], "three distinct days")
	assert.Equal(t, 2, grains["M"], "two distinct months")
	assert.Equal(t, 1, grains["Q"], "both months fall in Q1")

	cross, ok := summaries["region_channel"]
	require.True(t, ok)
	assert.Equal(t, 3, cross.Nrow())

	top, ok := summaries["top_products"]
	require.True(t, ok)
	// south's top product is P-1 at 150.
	southTop := top.Maps()
	assert.Equal(t, "P-1", etl.AsString(southTop[2]["product_id"]))
}

func TestPeriodKey(t *testing.T) {
	tests := []struct {
		date  string
		grain string
		want  string
	}{
		{date: "2024-01-10", grain: "D", want: "2024-01-10"},
		{date: "2024-01-10", grain: "W", want: "2024-01-08"}, // Wednesday -> Monday
		{date: "2024-01-10", grain: "M", want: "2024-01"},
		{date: "2024-05-10", grain: "Q", want: "2024-Q2"},
	}
	for _, tt := range tests {
		got, ok := periodKey(tt.date, tt.grain)
		require.True(t, ok)
		assert.Equal(t, tt.want, got)
	}

	_, ok := periodKey("not-a-date", "M")
	assert.False(t, ok)
}

func TestClassifyCustomer(t *testing.T) {
	thresholds := DefaultSegmentThresholds()
	tests := []struct {
		name          string
		spend         float64
		daysSinceLast int
		orders        int
		want          string
	}{
		{name: "vip active", spend: 15000, daysSinceLast: 30, orders: 10, want: "vip_active"},
		{name: "vip churned", spend: 15000, daysSinceLast: 400, orders: 10, want: "vip_churned"},
		{name: "vip at risk", spend: 15000, daysSinceLast: 200, orders: 10, want: "vip_at_risk"},
		{name: "loyal", spend: 2000, daysSinceLast: 200, orders: 6, want: "loyal"},
		{name: "regular", spend: 2000, daysSinceLast: 30, orders: 2, want: "regular"},
		{name: "new or casual", spend: 100, daysSinceLast: 10, orders: 1, want: "new_or_casual"},
		{name: "inactive", spend: 100, daysSinceLast: 400, orders: 1, want: "inactive"},
		{name: "other", spend: 100, daysSinceLast: 200, orders: 1, want: "other"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classifyCustomer(tt.spend, tt.daysSinceLast, tt.orders, thresholds))
		})
	}
}

func TestSegmentCustomers(t *testing.T) {
	p := New(nil, t.TempDir(), t.TempDir(), t.TempDir())
	reference := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	customers, err := p.SegmentCustomers(context.Background(), cleanedFrame(), DefaultSegmentThresholds(), reference)
	require.NoError(t, err)
	require.Equal(t, 2, customers.Nrow())

	first := customers.Maps()[0]
	assert.Equal(t, "C-1", etl.AsString(first["customer_id"]))
	assert.InDelta(t, 300, etl.AsFloat(first["total_spend"]), 0.01)
	assert.Equal(t, 2, etl.AsInt(first["order_count"]))
	assert.Equal(t, "new_or_casual", etl.AsString(first["segment"]))
}

func TestLinearFit(t *testing.T) {
	slope, intercept := linearFit([]float64{10, 20, 30, 40})
	assert.InDelta(t, 10, slope, 1e-9)
	assert.InDelta(t, 10, intercept, 1e-9)
}

func TestRollingForecast(t *testing.T) {
	weekly := []weeklyPoint{
		{period: "2024-01-01", total: 100},
		{period: "2024-01-08", total: 110},
		{period: "2024-01-15", total: 120},
		{period: "2024-01-22", total: 130},
		{period: "2024-01-29", total: 140},
	}

	rows := rollingForecast(weekly, 4)
	require.NotNil(t, rows)
	assert.Len(t, rows, 5+forecastHorizon)

	forecastRows := 0
	for _, row := range rows {
		if row["is_forecast"] == true {
			forecastRows++
			assert.GreaterOrEqual(t, etl.AsFloat(row["forecast"]), 0.0)
		}
	}
	assert.Equal(t, forecastHorizon, forecastRows)

	// Projections continue weekly past the last observed period.
	assert.Equal(t, "2024-02-05", etl.AsString(rows[5]["period"]))
}

func TestRollingForecast_TooShort(t *testing.T) {
	weekly := []weeklyPoint{
		{period: "2024-01-01", total: 100},
		{period: "2024-01-08", total: 110},
	}
	assert.Nil(t, rollingForecast(weekly, 4))
}

func TestReconcileWithAccounting(t *testing.T) {
	dataDir := t.TempDir()
	acctDir := filepath.Join(dataDir, "accounting")
	require.NoError(t, os.MkdirAll(acctDir, 0755))
	fixture := "period,accounting_total\n2024-01,300.00\n2024-02,100.00\n"
	require.NoError(t, os.WriteFile(filepath.Join(acctDir, "monthly_totals.csv"), []byte(fixture), 0644))

	p := New(nil, dataDir, t.TempDir(), t.TempDir())
	merged, err := p.ReconcileWithAccounting(context.Background(), cleanedFrame())
	require.NoError(t, err)
	require.Equal(t, 2, merged.Nrow())

	rows := merged.Maps()
	assert.InDelta(t, 0, etl.AsFloat(rows[0]["difference"]), 0.01, "January reconciles")
	assert.InDelta(t, 100, etl.AsFloat(rows[1]["difference"]), 0.01, "February is off by 100")
	assert.InDelta(t, 1.0, etl.AsFloat(rows[1]["pct_diff"]), 0.01)
}

func TestReconcileWithAccounting_MissingFile(t *testing.T) {
	p := New(nil, t.TempDir(), t.TempDir(), t.TempDir())
	_, err := p.ReconcileWithAccounting(context.Background(), cleanedFrame())
	require.Error(t, err)
}

func TestGenerateReport(t *testing.T) {
	p := New(nil, t.TempDir(), t.TempDir(), t.TempDir())

	summaries, err := p.BuildSalesSummaries(context.Background(), cleanedFrame())
	require.NoError(t, err)

	report := p.GenerateReport(context.Background(), summaries)
	require.NotEmpty(t, report)
	assert.Equal(t, "Sales Pipeline Report", report[0].Title)

	titles := make([]string, 0, len(report))
	for _, section := range report {
		titles = append(titles, section.Title)
	}
	assert.Contains(t, titles, "Top Region Performance")
	assert.Contains(t, titles, "Monthly Sales Trend")
}

func TestValidate_MissingSources(t *testing.T) {
	p := New(nil, t.TempDir(), t.TempDir(), t.TempDir())
	status := p.Validate(context.Background())
	assert.Equal(t, "error", status.Status)
}

func TestLoadSalesData_WithFixture(t *testing.T) {
	dataDir := t.TempDir()
	posDir := filepath.Join(dataDir, "sales", "raw", "pos_transactions")
	require.NoError(t, os.MkdirAll(posDir, 0755))
	fixture := "transaction_id,transaction_date,amount,record_type,product_id,customer_id,region\n" +
		"TX-0001,2024-01-02,100.00,sale,P-1,C-1,north\n" +
		"TX-0002,2024-01-09,200.00,return,P-2,C-1,north\n"
	require.NoError(t, os.WriteFile(filepath.Join(posDir, "pos_202401.csv"), []byte(fixture), 0644))

	p := New(nil, dataDir, t.TempDir(), t.TempDir())
	df, err := p.LoadSalesData(context.Background(), LoadOptions{})
	require.NoError(t, err)
	assert.Equal(t, 2, df.Nrow())
	assert.Contains(t, df.Names(), "source")
}
