package logistics

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"datapipe/internal/etl"
)

func TestClassifyShipmentMode(t *testing.T) {
	tests := []struct {
		name     string
		weightKg float64
		hazmat   bool
		want     string
	}{
		{"light parcel", 2.5, false, "PARCEL"},
		{"parcel boundary", 30, false, "PARCEL"},
		{"ltl freight", 400, false, "LTL"},
		{"ltl boundary", 9000, false, "LTL"},
		{"full truckload", 15000, false, "FTL"},
		{"hazmat parcel", 10, true, "HAZMAT_PARCEL"},
		{"hazmat freight", 500, true, "HAZMAT_FREIGHT"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyShipmentMode(tt.weightKg, tt.hazmat))
		})
	}
}

func TestNormalizeStatus(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"in transit", "IN_TRANSIT"},
		{"In-Transit", "IN_TRANSIT"},
		{"Delivered", "DELIVERED"},
		{"completed", "DELIVERED"},
		{"new", "PENDING"},
		{"void", "CANCELLED"},
		{"rts", "RETURNED"},
		{"hold", "EXCEPTION"},
		{"lost at sea", "UNKNOWN_LOST AT SEA"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeStatus(tt.raw), "raw=%q", tt.raw)
	}
}

func TestClassifyZone(t *testing.T) {
	tests := []struct {
		miles float64
		want  string
	}{
		{50, "LOCAL"},
		{150, "LOCAL"},
		{300, "REGIONAL"},
		{1200, "NATIONAL"},
		{3000, "CROSS_BORDER"},
		{7000, "INTERNATIONAL"},
	}
	for _, tt := range tests {
		zone, err := ClassifyZone(tt.miles)
		require.NoError(t, err)
		assert.Equal(t, tt.want, zone, "miles=%g", tt.miles)
	}

	_, err := ClassifyZone(0)
	assert.Error(t, err)
	_, err = ClassifyZone(-10)
	assert.Error(t, err)
}

func TestEstimateTransitHours(t *testing.T) {
	assert.Equal(t, 4.0, EstimateTransitHours("LOCAL", "express"))
	assert.Equal(t, 24.0, EstimateTransitHours("LOCAL", "standard"))
	assert.Equal(t, 36.0, EstimateTransitHours("NATIONAL", "express"))
	assert.Equal(t, 168.0, EstimateTransitHours("CROSS_BORDER", "express"))
	assert.Equal(t, 336.0, EstimateTransitHours("INTERNATIONAL", "standard"))
	assert.Equal(t, 96.0, EstimateTransitHours("NOWHERE", "standard"))
}

func TestComputeRateTier(t *testing.T) {
	tests := []struct {
		name    string
		weight  float64
		zone    string
		service string
		want    string
	}{
		{"express heavy", 45, "REGIONAL", "express", "EXPRESS_HEAVY"},
		{"express light", 5, "LOCAL", "express", "EXPRESS_LIGHT"},
		{"local standard", 10, "LOCAL", "standard", "LOCAL_STANDARD"},
		{"regional heavy", 150, "REGIONAL", "standard", "REGIONAL_HEAVY"},
		{"regional standard", 20, "REGIONAL", "standard", "REGIONAL_STANDARD"},
		{"long haul heavy", 600, "NATIONAL", "standard", "LONG_HAUL_HEAVY"},
		{"long haul standard", 20, "CROSS_BORDER", "standard", "LONG_HAUL_STANDARD"},
		{"international", 20, "INTERNATIONAL", "standard", "INTERNATIONAL"},
		{"fallback", 20, "LOCAL", "economy", "STANDARD"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ComputeRateTier(tt.weight, tt.zone, tt.service))
		})
	}
}

func TestCalculateCost(t *testing.T) {
	// PARCEL at 50 miles keeps the 1.0 distance multiplier.
	cost := CalculateCost("PARCEL", 50, 40, true)
	assert.Equal(t, 8.50, cost.Base)
	assert.InDelta(t, 0.68, cost.FuelSurcharge, 0.001)
	assert.Equal(t, 4.75, cost.ResidentialSurcharge)
	assert.InDelta(t, 1.20, cost.WeightSurcharge, 0.001)
	assert.InDelta(t, 15.13, cost.Total, 0.001)

	// LTL at 1500 miles picks the 1.8 multiplier with no residential fee.
	cost = CalculateCost("LTL", 1500, 20, false)
	assert.InDelta(t, 81.0, cost.Base, 0.001)
	assert.Equal(t, 0.0, cost.ResidentialSurcharge)
	assert.Equal(t, 0.0, cost.WeightSurcharge)

	// Unknown modes fall back to the parcel base rate.
	cost = CalculateCost("DRONE", 50, 1, false)
	assert.Equal(t, 8.50, cost.Base)
}

func TestCheckSLACompliance(t *testing.T) {
	shipped := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	now := time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC)

	onTime := shipped.Add(30 * time.Hour)
	result := CheckSLACompliance(shipped, &onTime, "priority", now)
	assert.True(t, result.MetSLA)
	assert.Equal(t, "delivered", result.Status)
	assert.Equal(t, 30.0, result.ElapsedHours)
	assert.Equal(t, 48.0, result.SLAWindowHours)

	late := shipped.Add(60 * time.Hour)
	result = CheckSLACompliance(shipped, &late, "priority", now)
	assert.False(t, result.MetSLA)

	result = CheckSLACompliance(shipped, nil, "economy", now)
	assert.Equal(t, "in_transit", result.Status)
	assert.True(t, result.MetSLA, "216h elapsed is inside the 240h economy window")

	// Unknown service levels default to the standard window.
	result = CheckSLACompliance(shipped, &onTime, "overnight-ish", now)
	assert.Equal(t, 120.0, result.SLAWindowHours)
}

func customsFixtureConfig() CustomsConfig {
	return CustomsConfig{
		TradeAgreements: map[string]string{
			"US-CA": "USMCA",
			"US-DE": "EU_FTA",
			"US-JP": "JP_EPA",
		},
		TariffSchedule: map[string]TariffEntry{
			"8471": {DutyRate: 0.02},
			"6109": {DutyRate: 0.12},
		},
		RestrictedCodes: []string{"9301"},
	}
}

func TestClassifyCustomsTreatment(t *testing.T) {
	cfg := customsFixtureConfig()

	d := ClassifyCustomsTreatment(cfg, "US", "CA", "847130", 5000)
	assert.Equal(t, "USMCA_EXEMPT", d.Treatment)
	assert.Equal(t, 0.0, d.DutyAmount)

	d = ClassifyCustomsTreatment(cfg, "US", "DE", "610910", 500)
	assert.Equal(t, "EU_DE_MINIMIS", d.Treatment)
	assert.Equal(t, 0.0, d.DutyRate)

	d = ClassifyCustomsTreatment(cfg, "US", "DE", "610910", 2000)
	assert.Equal(t, "EU_FTA_REDUCED", d.Treatment)
	assert.Equal(t, 0.06, d.DutyRate)
	assert.Equal(t, 120.0, d.DutyAmount)

	d = ClassifyCustomsTreatment(cfg, "US", "BR", "610910", 150)
	assert.Equal(t, "DE_MINIMIS", d.Treatment)

	d = ClassifyCustomsTreatment(cfg, "US", "BR", "610910", 1000)
	assert.Equal(t, "STANDARD", d.Treatment)
	assert.Equal(t, 0.12, d.DutyRate)

	d = ClassifyCustomsTreatment(cfg, "US", "JP", "847130", 1000)
	assert.Equal(t, "BILATERAL_JP_EPA", d.Treatment)
	assert.Equal(t, 0.015, d.DutyRate)

	d = ClassifyCustomsTreatment(cfg, "US", "BR", "930100", 1000)
	assert.True(t, d.RequiresInspection)

	// Codes without a tariff entry use the default rate.
	d = ClassifyCustomsTreatment(cfg, "US", "BR", "000000", 1000)
	assert.Equal(t, 0.05, d.DutyRate)
}

func TestComputeMilestoneTimestamps(t *testing.T) {
	events := etl.FrameFromRows([]etl.Row{
		{"shipment_id": "SHP-10000001", "status": "PICKED_UP", "event_time": "2024-03-01T10:00:00Z"},
		{"shipment_id": "SHP-10000001", "status": "PICKED_UP", "event_time": "2024-03-01T09:00:00Z"},
		{"shipment_id": "SHP-10000001", "status": "DELIVERED", "event_time": "2024-03-03T15:30:00Z"},
		{"shipment_id": "SHP-10000002", "status": "IN_TRANSIT", "event_time": "2024-03-02T12:00:00Z"},
	})

	milestones := ComputeMilestoneTimestamps(events)
	require.Equal(t, 2, milestones.Nrow())

	rows := milestones.Maps()
	first := rows[0]
	assert.Equal(t, "SHP-10000001", etl.AsString(first["shipment_id"]))
	assert.Equal(t, "2024-03-01T09:00:00Z", etl.AsString(first["picked_up_at"]),
		"earliest event per milestone wins")
	assert.Equal(t, "2024-03-03T15:30:00Z", etl.AsString(first["delivered_at"]))
	assert.Equal(t, "", etl.AsString(first["label_created_at"]))

	second := rows[1]
	assert.Equal(t, "2024-03-02T12:00:00Z", etl.AsString(second["in_transit_at"]))
	assert.Equal(t, "", etl.AsString(second["delivered_at"]))
}

func carrierFixture() []etl.Row {
	rows := []etl.Row{}
	// UPS: 4 of 4 on time, clean record.
	for i := 0; i < 4; i++ {
		rows = append(rows, etl.Row{
			"shipment_id": "SHP-20000001", "carrier_id": "UPS",
			"delivered_on_time": "true", "damage_reported": "false",
			"claim_filed": "false", "transit_days": 2.0, "total_cost": 12.50,
		})
	}
	// FEDEX: 1 of 2 on time, one damaged with a claim.
	rows = append(rows,
		etl.Row{
			"shipment_id": "SHP-20000010", "carrier_id": "FEDEX",
			"delivered_on_time": "true", "damage_reported": "false",
			"claim_filed": "false", "transit_days": 3.0, "total_cost": 18.00,
		},
		etl.Row{
			"shipment_id": "SHP-20000011", "carrier_id": "FEDEX",
			"delivered_on_time": "false", "damage_reported": "true",
			"claim_filed": "true", "transit_days": 5.0, "total_cost": 22.00,
		},
	)
	return rows
}

func TestComputeCarrierMetrics(t *testing.T) {
	p := New(nil, t.TempDir(), t.TempDir(), t.TempDir())
	metrics, err := p.ComputeCarrierMetrics(context.Background(), etl.FrameFromRows(carrierFixture()))
	require.NoError(t, err)
	require.Equal(t, 2, metrics.Nrow())

	rows := metrics.Maps()
	fedex, ups := rows[0], rows[1]
	assert.Equal(t, "FEDEX", etl.AsString(fedex["carrier_id"]))
	assert.InDelta(t, 0.5, etl.AsFloat(fedex["on_time_rate"]), 0.001)
	assert.InDelta(t, 0.5, etl.AsFloat(fedex["damage_rate"]), 0.001)
	assert.Equal(t, "false", etl.AsString(fedex["on_time_rate_pass"]))

	assert.Equal(t, "UPS", etl.AsString(ups["carrier_id"]))
	assert.InDelta(t, 1.0, etl.AsFloat(ups["on_time_rate"]), 0.001)
	assert.InDelta(t, 2.0, etl.AsFloat(ups["avg_transit_days"]), 0.001)
	assert.InDelta(t, 12.50, etl.AsFloat(ups["avg_cost"]), 0.001)
	assert.Equal(t, "true", etl.AsString(ups["on_time_rate_pass"]))
	assert.Equal(t, "true", etl.AsString(ups["damage_rate_pass"]))
}

func TestComputeCarrierMetrics_MissingColumn(t *testing.T) {
	p := New(nil, t.TempDir(), t.TempDir(), t.TempDir())
	df := etl.FrameFromRows([]etl.Row{{"shipment_id": "SHP-30000001"}})
	_, err := p.ComputeCarrierMetrics(context.Background(), df)
	assert.Error(t, err)
}

func TestRankCarriers(t *testing.T) {
	p := New(nil, t.TempDir(), t.TempDir(), t.TempDir())
	metrics, err := p.ComputeCarrierMetrics(context.Background(), etl.FrameFromRows(carrierFixture()))
	require.NoError(t, err)

	ranked := RankCarriers(metrics)
	rows := ranked.Maps()
	require.Len(t, rows, 2)

	assert.Equal(t, "UPS", etl.AsString(rows[0]["carrier_id"]))
	assert.Equal(t, 1, int(etl.AsFloat(rows[0]["rank"])))
	assert.Equal(t, "FEDEX", etl.AsString(rows[1]["carrier_id"]))
	assert.Equal(t, 2, int(etl.AsFloat(rows[1]["rank"])))
	assert.Greater(t,
		etl.AsFloat(rows[0]["composite_score"]),
		etl.AsFloat(rows[1]["composite_score"]))
}

func TestSummarizeByServiceLevel(t *testing.T) {
	delivery := etl.FrameFromRows([]etl.Row{
		{"shipment_id": "SHP-40000001", "service_level": "express", "met_sla": "true", "elapsed_hours": 10.0, "status": "delivered"},
		{"shipment_id": "SHP-40000002", "service_level": "express", "met_sla": "false", "elapsed_hours": 30.0, "status": "delivered"},
		{"shipment_id": "SHP-40000003", "service_level": "standard", "met_sla": "true", "elapsed_hours": 80.0, "status": "delivered"},
	})

	summary := SummarizeByServiceLevel(delivery)
	require.Equal(t, 2, summary.Nrow())

	rows := summary.Maps()
	assert.Equal(t, "express", etl.AsString(rows[0]["service_level"]))
	assert.InDelta(t, 50.0, etl.AsFloat(rows[0]["sla_met_pct"]), 0.001)
	assert.Equal(t, "standard", etl.AsString(rows[1]["service_level"]))
	assert.InDelta(t, 100.0, etl.AsFloat(rows[1]["sla_met_pct"]), 0.001)
}

func TestValidate_MissingSources(t *testing.T) {
	p := New(nil, t.TempDir(), t.TempDir(), t.TempDir())
	status := p.Validate(context.Background())
	assert.Equal(t, "error", status.Status)
}
