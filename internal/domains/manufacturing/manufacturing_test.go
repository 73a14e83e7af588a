package manufacturing

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"datapipe/internal/errors"
	"datapipe/internal/etl"
)

func newTestPipeline(t *testing.T) *Pipeline {
	t.Helper()
	return New(nil, t.TempDir(), t.TempDir(), t.TempDir())
}

func TestClassifyRecordType(t *testing.T) {
	p := newTestPipeline(t)
	cases := []struct {
		code string
		want string
	}{
		{"PR", "production"},
		{"PROD", "production"},
		{"SCRAP", "scrap"},
		{"REJ", "scrap"},
		{"DT", "downtime"},
		{"MAINT", "maintenance"},
		{"QC", "quality_check"},
		{"", "unknown"},
		{"XX", "unknown"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, p.ClassifyRecordType(tc.code), "code=%q", tc.code)
	}
}

func TestNormalizeUnits(t *testing.T) {
	assert.Equal(t, 200.0, NormalizeUnits(2, "kg"))
	assert.Equal(t, 150.0, NormalizeUnits(3, "liters"))
	assert.Equal(t, 1200.0, NormalizeUnits(1, "pallets"))
	assert.Equal(t, 5.0, NormalizeUnits(5, "pcs"))
	assert.Equal(t, 7.0, NormalizeUnits(7, "bags"))
}

func TestResolveShift(t *testing.T) {
	assert.Equal(t, "morning", ResolveShift(6))
	assert.Equal(t, "morning", ResolveShift(13))
	assert.Equal(t, "afternoon", ResolveShift(14))
	assert.Equal(t, "afternoon", ResolveShift(21))
	assert.Equal(t, "night", ResolveShift(22))
	assert.Equal(t, "night", ResolveShift(3))
}

func rawFixture() dataframe.DataFrame {
	return etl.FrameFromRows([]etl.Row{
		{"plant_id": "plant-01", "line_id": "L1", "timestamp": "2024-03-04T10:00:00Z",
			"record_code": "PR", "quantity": 2.0, "unit": "kg", "product_id": "FP-1"},
		{"plant_id": "plant-01", "line_id": "L1", "timestamp": "2024-03-04T10:00:00Z",
			"record_code": "PR", "quantity": 2.0, "unit": "kg", "product_id": "FP-1"},
		{"plant_id": "plant-01", "line_id": "L1", "timestamp": "2024-03-04T23:00:00Z",
			"record_code": "SC", "quantity": 5.0, "unit": "pcs", "product_id": "FP-1"},
		{"plant_id": "plant-01", "line_id": "", "timestamp": "2024-03-04T11:00:00Z",
			"record_code": "PR", "quantity": 1.0, "unit": "pcs", "product_id": ""},
	})
}

func TestNormalizeProductionRecords(t *testing.T) {
	p := newTestPipeline(t)
	cleaned := p.NormalizeProductionRecords(rawFixture(), "all")
	rows := cleaned.Maps()
	// One duplicate and one row without a line id drop out.
	require.Len(t, rows, 2)
	assert.Equal(t, "production", etl.AsString(rows[0]["record_type"]))
	assert.InDelta(t, 200.0, etl.AsFloat(rows[0]["quantity_normalized"]), 1e-9)
	assert.Equal(t, "scrap", etl.AsString(rows[1]["record_type"]))
}

func TestNormalizeProductionRecords_NightShiftWrapsMidnight(t *testing.T) {
	p := newTestPipeline(t)
	frame := etl.FrameFromRows([]etl.Row{
		{"plant_id": "plant-01", "line_id": "L1", "timestamp": "2024-03-04T23:00:00Z",
			"record_code": "PR", "quantity": 1.0, "unit": "pcs", "product_id": ""},
		{"plant_id": "plant-01", "line_id": "L1", "timestamp": "2024-03-05T02:00:00Z",
			"record_code": "PR", "quantity": 1.0, "unit": "pcs", "product_id": ""},
		{"plant_id": "plant-01", "line_id": "L1", "timestamp": "2024-03-05T10:00:00Z",
			"record_code": "PR", "quantity": 1.0, "unit": "pcs", "product_id": ""},
	})
	cleaned := p.NormalizeProductionRecords(frame, "night")
	assert.Equal(t, 2, cleaned.Nrow())
}

func TestTrackProductionOutput(t *testing.T) {
	p := newTestPipeline(t)
	frame := etl.FrameFromRows([]etl.Row{
		{"plant_id": "plant-01", "line_id": "L1", "timestamp": "2024-03-04T10:05:00Z",
			"record_type": "production", "quantity_normalized": 100.0, "cycle_time_sec": 30.0},
		{"plant_id": "plant-01", "line_id": "L1", "timestamp": "2024-03-04T10:40:00Z",
			"record_type": "production", "quantity_normalized": 50.0, "cycle_time_sec": 40.0},
		{"plant_id": "plant-01", "line_id": "L1", "timestamp": "2024-03-04T10:50:00Z",
			"record_type": "scrap", "quantity_normalized": 5.0, "cycle_time_sec": 0.0},
	})
	output := p.TrackProductionOutput(frame)
	rows := output.Maps()
	require.Len(t, rows, 2)

	hourly := rows[0]
	assert.Equal(t, "hourly", etl.AsString(hourly["aggregation_level"]))
	assert.InDelta(t, 150.0, etl.AsFloat(hourly["total_output"]), 1e-9)
	assert.Equal(t, 2, etl.AsInt(hourly["record_count"]))
	assert.Equal(t, 1, etl.AsInt(hourly["scrap_count"]))

	shift := rows[1]
	assert.Equal(t, "shift", etl.AsString(shift["aggregation_level"]))
	assert.Equal(t, "plant-01", etl.AsString(shift["plant_id"]))
	assert.Equal(t, "2024-03-04", etl.AsString(shift["shift_date"]))
	assert.InDelta(t, 150.0, etl.AsFloat(shift["units_produced"]), 1e-9)
	assert.InDelta(t, 35.0, etl.AsFloat(shift["avg_cycle_time"]), 1e-9)
}

func TestCategorizeDowntime(t *testing.T) {
	cases := []struct {
		reason string
		want   string
	}{
		{"Bearing failure on spindle", "mechanical"},
		{"PLC fault", "electrical"},
		{"changeover to new SKU", "process"},
		{"power_outage downtown", "external"},
		{"", "unclassified"},
		{"operator lunch", "other"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, CategorizeDowntime(tc.reason), "reason=%q", tc.reason)
	}
}

func TestClassifySeverity(t *testing.T) {
	assert.Equal(t, "micro_stop", ClassifySeverity(4.9))
	assert.Equal(t, "minor", ClassifySeverity(5))
	assert.Equal(t, "moderate", ClassifySeverity(30))
	assert.Equal(t, "major", ClassifySeverity(120))
	assert.Equal(t, "critical", ClassifySeverity(480))
}

func TestMeanTimeBetweenFailures(t *testing.T) {
	base := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	events := []time.Time{base.Add(6 * time.Hour), base, base.Add(2 * time.Hour)}
	assert.InDelta(t, 3.0, meanTimeBetweenFailures(events), 1e-9)
	assert.Equal(t, 0.0, meanTimeBetweenFailures([]time.Time{base}))
}

func TestAnalyzeDowntime(t *testing.T) {
	p := newTestPipeline(t)
	frame := etl.FrameFromRows([]etl.Row{
		{"plant_id": "plant-01", "line_id": "L1", "timestamp": "2024-03-04T08:00:00Z",
			"record_type": "downtime", "reason": "bearing seizure", "duration_min": 45.0},
		{"plant_id": "plant-01", "line_id": "L1", "timestamp": "2024-03-04T12:00:00Z",
			"record_type": "maintenance", "reason": "bearing swap", "duration_min": 75.0},
		{"plant_id": "plant-01", "line_id": "L1", "timestamp": "2024-03-04T15:00:00Z",
			"record_type": "production", "reason": "", "duration_min": 0.0},
	})
	report := p.AnalyzeDowntime(frame)
	rows := report.Maps()
	require.Len(t, rows, 1)
	assert.Equal(t, "mechanical", etl.AsString(rows[0]["category"]))
	assert.Equal(t, "moderate", etl.AsString(rows[0]["severity"]))
	assert.Equal(t, 2, etl.AsInt(rows[0]["event_count"]))
	assert.InDelta(t, 120.0, etl.AsFloat(rows[0]["total_minutes"]), 1e-9)
	assert.InDelta(t, 60.0, etl.AsFloat(rows[0]["avg_duration"]), 1e-9)
	assert.InDelta(t, 4.0, etl.AsFloat(rows[0]["mtbf_hours"]), 1e-9)
}

func TestFirstPassYield(t *testing.T) {
	assert.InDelta(t, 95.0, FirstPassYield(95, 100), 1e-9)
	assert.Equal(t, 0.0, FirstPassYield(0, 0))
}

func TestComputeYieldMetrics(t *testing.T) {
	p := newTestPipeline(t)
	frame := etl.FrameFromRows([]etl.Row{
		{"plant_id": "plant-01", "line_id": "L1", "record_type": "production", "quantity_normalized": 100.0},
		{"plant_id": "plant-01", "line_id": "L1", "record_type": "scrap", "quantity_normalized": 5.0},
		{"plant_id": "plant-01", "line_id": "L2", "record_type": "production", "quantity_normalized": 200.0},
		{"plant_id": "plant-01", "line_id": "L2", "record_type": "scrap", "quantity_normalized": 2.0},
	})
	report := p.ComputeYieldMetrics(frame)
	rows := report.Maps()
	require.Len(t, rows, 2)

	l1 := rows[0]
	assert.Equal(t, "L1", etl.AsString(l1["line_id"]))
	assert.InDelta(t, 5.0, etl.AsFloat(l1["scrap_pct"]), 1e-9)
	assert.InDelta(t, 95.0, etl.AsFloat(l1["fpy"]), 1e-9)
	assert.Equal(t, "true", etl.AsString(l1["above_scrap_threshold"]))
	assert.Equal(t, "false", etl.AsString(l1["yield_anomaly"]))

	l2 := rows[1]
	assert.InDelta(t, 1.0, etl.AsFloat(l2["scrap_pct"]), 1e-9)
	assert.InDelta(t, 99.0, etl.AsFloat(l2["fpy"]), 1e-9)
	assert.Equal(t, "false", etl.AsString(l2["above_scrap_threshold"]))
}

func TestShiftUtilization(t *testing.T) {
	assert.InDelta(t, 50.0, ShiftUtilization(240, "morning"), 1e-9)
	assert.InDelta(t, 100.0, ShiftUtilization(480, "night"), 1e-9)
	assert.InDelta(t, 25.0, ShiftUtilization(120, "unknown"), 1e-9)
}

func TestBuildProductionSchedule(t *testing.T) {
	p := newTestPipeline(t)
	frame := etl.FrameFromRows([]etl.Row{
		{"plant_id": "plant-01", "line_id": "L1", "timestamp": "2024-03-04T08:00:00Z",
			"record_type": "production", "quantity_normalized": 10.0},
		{"plant_id": "plant-01", "line_id": "L1", "timestamp": "2024-03-04T09:00:00Z",
			"record_type": "production", "quantity_normalized": 20.0},
	})
	asOf := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	schedule := p.BuildProductionSchedule(frame, "all", asOf)
	rows := schedule.Maps()
	require.Len(t, rows, 7)

	first := rows[0]
	assert.Equal(t, "morning", etl.AsString(first["shift"]))
	assert.Equal(t, "2024-03-05", etl.AsString(first["scheduled_date"]))
	assert.InDelta(t, 15.0, etl.AsFloat(first["projected_output"]), 1e-9)
	// Two runs at five minutes each against a 480 minute shift.
	assert.InDelta(t, 2.08, etl.AsFloat(first["utilization_pct"]), 1e-9)
	assert.Equal(t, "2024-03-11", etl.AsString(rows[6]["scheduled_date"]))
}

func TestClassifyOEEBand(t *testing.T) {
	assert.Equal(t, "world_class", ClassifyOEEBand(85))
	assert.Equal(t, "good", ClassifyOEEBand(70))
	assert.Equal(t, "needs_improvement", ClassifyOEEBand(55))
	assert.Equal(t, "poor", ClassifyOEEBand(40))
	assert.Equal(t, "critical", ClassifyOEEBand(39.9))
}

func TestOEEComponents(t *testing.T) {
	assert.InDelta(t, 90.0, Availability(1440, 144), 1e-9)
	assert.Equal(t, 0.0, Availability(0, 0))
	assert.InDelta(t, 50.0, Performance(1440, 2880), 1e-9)
	assert.InDelta(t, 100.0, Performance(5000, 2880), 1e-9)
	assert.InDelta(t, 95.0, Quality(95, 100), 1e-9)
}

func TestCalculateOEE(t *testing.T) {
	p := newTestPipeline(t)
	dir := filepath.Join(p.configDir, "manufacturing")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	toml := "[efficiency_targets]\navailability = 90.0\nperformance = 95.0\nquality = 99.0\noee = 40.0\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "efficiency.toml"), []byte(toml), 0o644))

	frame := etl.FrameFromRows([]etl.Row{
		{"line_id": "L1", "record_type": "production", "quantity_normalized": 1440.0, "duration_min": 0.0},
		{"line_id": "L1", "record_type": "scrap", "quantity_normalized": 72.0, "duration_min": 0.0},
		{"line_id": "L1", "record_type": "downtime", "quantity_normalized": 0.0, "duration_min": 144.0},
	})
	report, err := p.CalculateOEE(frame)
	require.NoError(t, err)
	rows := report.Maps()
	require.Len(t, rows, 1)

	l1 := rows[0]
	assert.InDelta(t, 90.0, etl.AsFloat(l1["availability_pct"]), 1e-9)
	assert.InDelta(t, 50.0, etl.AsFloat(l1["performance_pct"]), 1e-9)
	assert.InDelta(t, 95.0, etl.AsFloat(l1["quality_pct"]), 1e-9)
	assert.InDelta(t, 42.75, etl.AsFloat(l1["oee_pct"]), 1e-9)
	assert.Equal(t, "poor", etl.AsString(l1["oee_band"]))
	// The lowered config target makes 42.75 a pass.
	assert.Equal(t, "true", etl.AsString(l1["meets_target"]))
}

func TestResolveBillOfMaterials(t *testing.T) {
	p := newTestPipeline(t)
	ctx := context.Background()

	master := etl.FrameFromRows([]etl.Row{
		{"parent_id": "FP-1", "component_id": "C-1", "quantity_per": 2.0},
		{"parent_id": "C-1", "component_id": "C-2", "quantity_per": 3.0},
	})
	masterPath := filepath.Join(p.dataDir, "manufacturing", "bom_master.parquet")
	require.NoError(t, p.writer.WriteOutput(ctx, master, masterPath, etl.FormatParquet, etl.WriteOptions{}))

	costDir := filepath.Join(p.dataDir, "procurement", "raw")
	require.NoError(t, os.MkdirAll(costDir, 0o755))
	costs := "component_id,unit_cost\nC-1,10.0\nC-2,1.0\n"
	require.NoError(t, os.WriteFile(filepath.Join(costDir, "component_costs.csv"), []byte(costs), 0o644))

	production := etl.FrameFromRows([]etl.Row{
		{"record_type": "production", "product_id": "FP-1"},
	})
	bom, err := p.ResolveBillOfMaterials(ctx, production)
	require.NoError(t, err)
	rows := bom.Maps()
	require.Len(t, rows, 2)

	assert.Equal(t, "C-1", etl.AsString(rows[0]["component_id"]))
	assert.InDelta(t, 2.0, etl.AsFloat(rows[0]["quantity_per"]), 1e-9)
	assert.InDelta(t, 20.0, etl.AsFloat(rows[0]["line_cost"]), 1e-9)
	// Nested component quantity multiplies up the tree.
	assert.Equal(t, "C-2", etl.AsString(rows[1]["component_id"]))
	assert.InDelta(t, 6.0, etl.AsFloat(rows[1]["quantity_per"]), 1e-9)
	assert.InDelta(t, 6.0, etl.AsFloat(rows[1]["line_cost"]), 1e-9)
}

func TestIngestProductionData_OverridesOnly(t *testing.T) {
	p := newTestPipeline(t)
	dir := filepath.Join(p.dataDir, "manufacturing", "overrides")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	csv := "line_id,timestamp,record_code,quantity,unit\nL1,2024-03-04T10:00:00Z,PR,5,pcs\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "plant-01.csv"), []byte(csv), 0o644))

	df, err := p.IngestProductionData(context.Background(), []string{"plant-01"})
	require.NoError(t, err)
	rows := df.Maps()
	require.Len(t, rows, 1)
	assert.Equal(t, "plant-01", etl.AsString(rows[0]["plant_id"]))
	assert.NotEmpty(t, etl.AsString(rows[0]["ingested_at"]))
}

func TestIngestProductionData_AllMissing(t *testing.T) {
	p := newTestPipeline(t)
	_, err := p.IngestProductionData(context.Background(), nil)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeSourceNotFound))
}

func TestValidate_MissingSources(t *testing.T) {
	p := newTestPipeline(t)
	status := p.Validate(context.Background())
	assert.Equal(t, "error", status.Status)
}
