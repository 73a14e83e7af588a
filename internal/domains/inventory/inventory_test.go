package inventory

import (
	"context"
	"testing"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"datapipe/internal/etl"
)

func TestClassifyWarehouse(t *testing.T) {
	tests := []struct {
		id      string
		want    string
		wantErr bool
	}{
		{id: "DC-001", want: "distribution_center"},
		{id: "FC-010", want: "fulfillment"},
		{id: "FF-022", want: "fulfillment"},
		{id: "CS-003", want: "cold_storage"},
		{id: "BK-050", want: "bulk"},
		{id: "BW-051", want: "bulk"},
		{id: "XX-999", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			got, err := classifyWarehouse(tt.id)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeUOM(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{in: "ea", want: "EACH"},
		{in: " Each ", want: "EACH"},
		{in: "cases", want: "CASE"},
		{in: "plt", want: "PALLET"},
		{in: "kgs", want: "KG"},
		{in: "lbs", want: "LB"},
		{in: "dozen", want: "DOZEN"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, normalizeUOM(tt.in))
	}
}

func TestNormalizeInventory(t *testing.T) {
	raw := dataframe.New(
		series.New([]string{"SKU-001", "", "SKU-002", "SKU-003"}, series.String, "item_code"),
		series.New([]string{"DC-001", "DC-001", "FC-010", "CS-003"}, series.String, "wh_code"),
		series.New([]float64{10, 5, -3, 8}, series.Float, "qty_on_hand"),
		series.New([]string{"ea", "ea", "cs", "plt"}, series.String, "unit_of_measure"),
		series.New([]string{"2024-01-01", "2024-01-01", "2024-01-01", "2024-01-01"}, series.String, "ingested_at"),
	)

	p := New(nil, t.TempDir(), t.TempDir(), t.TempDir())
	cleaned, err := p.NormalizeInventory(context.Background(), raw)
	require.NoError(t, err)

	// Empty SKU and negative quantity rows are dropped.
	require.Equal(t, 2, cleaned.Nrow())
	rows := cleaned.Maps()
	assert.Equal(t, "distribution_center", etl.AsString(rows[0]["warehouse_type"]))
	assert.Equal(t, "EACH", etl.AsString(rows[0]["unit_of_measure"]))
}

func TestFillMissingCosts(t *testing.T) {
	rows := []etl.Row{
		{"sku": "A", "unit_cost": 10.0},
		{"sku": "A", "unit_cost": 20.0},
		{"sku": "A", "unit_cost": ""},
		{"sku": "B", "unit_cost": ""},
	}
	fillMissingCosts(rows)
	assert.Equal(t, 15.0, rows[2]["unit_cost"], "filled with SKU median")
	assert.Equal(t, 0.0, rows[3]["unit_cost"], "no cost history falls back to zero")
}

func TestAssignPriority(t *testing.T) {
	assert.Equal(t, PriorityCritical, assignPriority(2))
	assert.Equal(t, PriorityHigh, assignPriority(6))
	assert.Equal(t, PriorityStandard, assignPriority(15))
	assert.Equal(t, PriorityLow, assignPriority(100))
}

func TestGenerateReorderReport(t *testing.T) {
	today := time.Now().Format("2006-01-02")
	stock := dataframe.New(
		series.New([]string{"SKU-001", "SKU-002"}, series.String, "sku"),
		series.New([]string{"DC-001", "DC-001"}, series.String, "warehouse_id"),
		series.New([]string{today, today}, series.String, "snapshot_date"),
		series.New([]float64{5, 5000}, series.Float, "quantity"),
		series.New([]float64{4, 1}, series.Float, "daily_demand"),
	)

	p := New(nil, t.TempDir(), t.TempDir(), t.TempDir())
	report, err := p.GenerateReorderReport(context.Background(), stock)
	require.NoError(t, err)

	// SKU-001 has 1.25 days of supply: critical, reorder point 4*2*2.5=20,
	// suggested 20*2-5=35. SKU-002 is far above its reorder point.
	require.Equal(t, 1, report.Nrow())
	row := report.Maps()[0]
	assert.Equal(t, "SKU-001", etl.AsString(row["sku"]))
	assert.Equal(t, "critical", etl.AsString(row["priority"]))
	assert.InDelta(t, 20, etl.AsFloat(row["reorder_point"]), 0.01)
	assert.Equal(t, 35, etl.AsInt(row["suggested_qty"]))
}

func TestCategorizeShrinkage(t *testing.T) {
	assert.Equal(t, "theft", categorizeShrinkage(0.15))
	assert.Equal(t, "admin_error", categorizeShrinkage(0.07))
	assert.Equal(t, "damage", categorizeShrinkage(0.03))
	assert.Equal(t, "unknown", categorizeShrinkage(0.01))
}

func TestCalculateShrinkage(t *testing.T) {
	df := dataframe.New(
		series.New([]string{"SKU-001", "SKU-002"}, series.String, "sku"),
		series.New([]string{"DC-001", "DC-001"}, series.String, "warehouse_id"),
		series.New([]float64{100, 100}, series.Float, "quantity"),
		series.New([]float64{85, 99}, series.Float, "physical_count"),
	)

	p := New(nil, t.TempDir(), t.TempDir(), t.TempDir())
	result, err := p.CalculateShrinkage(context.Background(), df)
	require.NoError(t, err)
	require.Equal(t, 2, result.Nrow())

	rows := result.Maps()
	assert.InDelta(t, 0.15, etl.AsFloat(rows[0]["shrinkage_rate"]), 1e-9)
	assert.Equal(t, "theft", etl.AsString(rows[0]["probable_cause"]))
	assert.Equal(t, "true", etl.AsString(rows[0]["flagged"]))
	assert.Equal(t, "unknown", etl.AsString(rows[1]["probable_cause"]))
	assert.Equal(t, "false", etl.AsString(rows[1]["flagged"]))
}

func TestCalculateShrinkage_NoPhysicalCounts(t *testing.T) {
	df := dataframe.New(
		series.New([]string{"SKU-001"}, series.String, "sku"),
		series.New([]float64{100}, series.Float, "quantity"),
	)
	p := New(nil, t.TempDir(), t.TempDir(), t.TempDir())
	result, err := p.CalculateShrinkage(context.Background(), df)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Nrow())
}

func TestValuationMethods(t *testing.T) {
	layers := []CostRecord{
		{SKU: "A", Quantity: 10, UnitCost: 1.0, ReceivedDate: "2024-01-01"},
		{SKU: "A", Quantity: 10, UnitCost: 2.0, ReceivedDate: "2024-02-01"},
	}

	assert.InDelta(t, 10*1.0+5*2.0, fifoValue(layers, 15), 1e-9)
	assert.InDelta(t, 10*2.0+5*1.0, lifoValue(layers, 15), 1e-9)
	assert.InDelta(t, 1.5*15, weightedAvgValue(layers, 15), 1e-9)
}

func TestSelectValuationMethod(t *testing.T) {
	assert.Equal(t, "fifo", selectValuationMethod("dairy"))
	assert.Equal(t, "lifo", selectValuationMethod("commodity"))
	assert.Equal(t, "weighted_avg", selectValuationMethod("electronics"))
	assert.Equal(t, "weighted_avg", selectValuationMethod("anything"))
}

func TestRunValuation(t *testing.T) {
	df := dataframe.New(
		series.New([]string{"SKU-001", "SKU-001"}, series.String, "sku"),
		series.New([]string{"dairy", "dairy"}, series.String, "category"),
		series.New([]float64{10, 10}, series.Float, "quantity"),
		series.New([]float64{1.0, 2.0}, series.Float, "unit_cost"),
		series.New([]string{"2024-01-01", "2024-02-01"}, series.String, "received_date"),
	)

	p := New(nil, t.TempDir(), t.TempDir(), t.TempDir())
	result, err := p.RunValuation(context.Background(), df)
	require.NoError(t, err)
	require.Equal(t, 1, result.Nrow())

	row := result.Maps()[0]
	assert.Equal(t, "fifo", etl.AsString(row["method"]))
	assert.Equal(t, 20, etl.AsInt(row["quantity_on_hand"]))
	assert.InDelta(t, 30, etl.AsFloat(row["total_value"]), 0.01)
}

func TestStorageZone(t *testing.T) {
	assert.Equal(t, "frozen", StorageZone("ice_cream"))
	assert.Equal(t, "chilled", StorageZone("dairy"))
	assert.Equal(t, "hazmat", StorageZone("lithium"))
	assert.Equal(t, "ambient", StorageZone("apparel"))
	assert.Equal(t, "ambient", StorageZone("whatever"))
}

func TestComputeUtilization(t *testing.T) {
	df := dataframe.New(
		series.New([]string{"CS-003", "ZZ-000"}, series.String, "warehouse_id"),
		series.New([]float64{96_000, 10}, series.Float, "quantity"),
	)

	p := New(nil, t.TempDir(), t.TempDir(), t.TempDir())
	result, err := p.ComputeUtilization(context.Background(), df)
	require.NoError(t, err)

	// Unregistered warehouses are skipped.
	require.Equal(t, 1, result.Nrow())
	row := result.Maps()[0]
	assert.Equal(t, "CS-003", etl.AsString(row["warehouse_id"]))
	assert.InDelta(t, 0.96, etl.AsFloat(row["utilization_pct"]), 1e-9)
	assert.Equal(t, "at_capacity", etl.AsString(row["status"]))
}

func TestComputeStockLevels(t *testing.T) {
	today := time.Now().Format("2006-01-02")
	df := dataframe.New(
		series.New([]string{"SKU-001"}, series.String, "sku"),
		series.New([]string{"DC-001"}, series.String, "warehouse_id"),
		series.New([]float64{50}, series.Float, "quantity"),
		series.New([]float64{2.5}, series.Float, "unit_cost"),
		series.New([]string{today}, series.String, "ingested_at"),
	)

	p := New(nil, t.TempDir(), t.TempDir(), t.TempDir())
	stock, err := p.ComputeStockLevels(context.Background(), df, 3)
	require.NoError(t, err)

	// Only today's snapshot sees the record.
	require.Equal(t, 1, stock.Nrow())
	row := stock.Maps()[0]
	assert.Equal(t, today, etl.AsString(row["snapshot_date"]))
	assert.InDelta(t, 50, etl.AsFloat(row["quantity"]), 1e-9)
	assert.Equal(t, "false", etl.AsString(row["low_stock"]))
}
