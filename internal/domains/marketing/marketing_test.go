package marketing

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"datapipe/internal/etl"
)

func newTestPipeline(t *testing.T) *Pipeline {
	t.Helper()
	return New(nil, t.TempDir(), t.TempDir(), t.TempDir())
}

func TestClassifyChannel(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"google_cpc", "paid_search"},
		{"SEM", "paid_search"},
		{"Facebook Ads", "paid_social"},
		{"instagram_organic", "organic_social"},
		{"programmatic", "display"},
		{"newsletter", "email"},
		{"seo", "organic_search"},
		{"partner", "affiliate"},
		{"referral", "referral"},
		{"direct", "direct"},
		{"skywriting", "other"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ClassifyChannel(tt.raw), "raw=%q", tt.raw)
	}
}

func TestParseCurrency(t *testing.T) {
	assert.Equal(t, 1250.75, parseCurrency("$1,250.75"))
	assert.Equal(t, 300.0, parseCurrency("300"))
	assert.Equal(t, 0.0, parseCurrency("free"))
}

func TestComputeQualityScore(t *testing.T) {
	assert.InDelta(t, 1.0, ComputeQualityScore(0.05, 0.10, 5.0), 0.0001)
	assert.InDelta(t, 0.5, ComputeQualityScore(0.025, 0.05, 2.5), 0.0001)
	assert.InDelta(t, 0.0, ComputeQualityScore(0, 0, -1), 0.0001, "negative ROI clamps to zero")
}

func TestAssignTier(t *testing.T) {
	assert.Equal(t, "platinum", AssignTier(0.90))
	assert.Equal(t, "gold", AssignTier(0.70))
	assert.Equal(t, "silver", AssignTier(0.40))
	assert.Equal(t, "bronze", AssignTier(0.39))
}

func campaignFixture() []etl.Row {
	return []etl.Row{
		{
			"campaign_id": "CMP-1", "channel": "paid_search", "date": "2024-03-01",
			"impressions": 10000, "clicks": 500, "conversions": 50,
			"spend": 100.0, "revenue": 600.0,
		},
		{
			"campaign_id": "CMP-1", "channel": "paid_search", "date": "2024-03-02",
			"impressions": 10000, "clicks": 500, "conversions": 50,
			"spend": 100.0, "revenue": 600.0,
		},
		{
			"campaign_id": "CMP-2", "channel": "display", "date": "2024-03-01",
			"impressions": 50000, "clicks": 100, "conversions": 1,
			"spend": 400.0, "revenue": 100.0,
		},
	}
}

func TestAnalyzeCampaignPerformance(t *testing.T) {
	p := newTestPipeline(t)
	perf, err := p.AnalyzeCampaignPerformance(context.Background(), etl.FrameFromRows(campaignFixture()))
	require.NoError(t, err)
	require.Equal(t, 2, perf.Nrow())

	rows := perf.Maps()
	cmp1 := rows[0]
	assert.Equal(t, "CMP-1", etl.AsString(cmp1["campaign_id"]))
	assert.Equal(t, 20000, etl.AsInt(cmp1["total_impressions"]))
	assert.Equal(t, 2, etl.AsInt(cmp1["days_active"]))
	assert.Equal(t, "2024-03-01", etl.AsString(cmp1["start_date"]))
	assert.InDelta(t, 0.05, etl.AsFloat(cmp1["ctr"]), 0.0001)
	assert.InDelta(t, 0.1, etl.AsFloat(cmp1["conversion_rate"]), 0.0001)
	assert.InDelta(t, 5.0, etl.AsFloat(cmp1["roi"]), 0.0001)
	assert.Equal(t, "platinum", etl.AsString(cmp1["tier"]))

	cmp2 := rows[1]
	assert.Equal(t, "bronze", etl.AsString(cmp2["tier"]))
}

func TestAnalyzeCampaignPerformance_MissingColumn(t *testing.T) {
	p := newTestPipeline(t)
	df := etl.FrameFromRows([]etl.Row{{"campaign_id": "CMP-1"}})
	_, err := p.AnalyzeCampaignPerformance(context.Background(), df)
	assert.Error(t, err)
}

func touchpointFixture() []etl.Row {
	return []etl.Row{
		{"conversion_id": "CV-1", "channel": "paid_search", "timestamp": "2024-03-01T00:00:00Z", "revenue": 100.0},
		{"conversion_id": "CV-1", "channel": "email", "timestamp": "2024-03-08T00:00:00Z", "revenue": 100.0},
		{"conversion_id": "CV-1", "channel": "paid_search", "timestamp": "2024-03-15T00:00:00Z", "revenue": 100.0},
	}
}

func TestComputeAttribution_LastClick(t *testing.T) {
	p := newTestPipeline(t)
	summary, err := p.ComputeAttribution(context.Background(), etl.FrameFromRows(touchpointFixture()), "last_click", 0)
	require.NoError(t, err)

	byChannel := map[string]etl.Row{}
	for _, row := range summary.Maps() {
		byChannel[etl.AsString(row["channel"])] = row
	}
	assert.InDelta(t, 1.0, etl.AsFloat(byChannel["paid_search"]["total_credit"]), 0.0001)
	assert.InDelta(t, 0.0, etl.AsFloat(byChannel["email"]["total_credit"]), 0.0001)
	assert.Equal(t, 2, etl.AsInt(byChannel["paid_search"]["touchpoints"]))
}

func TestComputeAttribution_Linear(t *testing.T) {
	p := newTestPipeline(t)
	summary, err := p.ComputeAttribution(context.Background(), etl.FrameFromRows(touchpointFixture()), "linear", 0)
	require.NoError(t, err)

	byChannel := map[string]etl.Row{}
	for _, row := range summary.Maps() {
		byChannel[etl.AsString(row["channel"])] = row
	}
	assert.InDelta(t, 0.6667, etl.AsFloat(byChannel["paid_search"]["total_credit"]), 0.0001)
	assert.InDelta(t, 0.3333, etl.AsFloat(byChannel["email"]["total_credit"]), 0.0001)
}

func TestComputeAttribution_TimeDecay(t *testing.T) {
	p := newTestPipeline(t)
	summary, err := p.ComputeAttribution(context.Background(), etl.FrameFromRows(touchpointFixture()), "time_decay", 7)
	require.NoError(t, err)

	// Touches at 14, 7, and 0 days before conversion carry raw weights
	// 0.25, 0.5, and 1.0.
	byChannel := map[string]etl.Row{}
	for _, row := range summary.Maps() {
		byChannel[etl.AsString(row["channel"])] = row
	}
	assert.InDelta(t, 1.25/1.75, etl.AsFloat(byChannel["paid_search"]["total_credit"]), 0.001)
	assert.InDelta(t, 0.5/1.75, etl.AsFloat(byChannel["email"]["total_credit"]), 0.001)
	assert.InDelta(t, 100*1.25/1.75, etl.AsFloat(byChannel["paid_search"]["attributed_revenue"]), 0.1)
}

func TestComputeAttribution_UnknownModel(t *testing.T) {
	p := newTestPipeline(t)
	_, err := p.ComputeAttribution(context.Background(), etl.FrameFromRows(touchpointFixture()), "astrology", 0)
	assert.Error(t, err)
}

func TestCompareChannels(t *testing.T) {
	p := newTestPipeline(t)
	report, err := p.CompareChannels(context.Background(), etl.FrameFromRows(campaignFixture()))
	require.NoError(t, err)
	require.Equal(t, 2, report.Nrow())

	rows := report.Maps()
	first := rows[0]
	assert.Equal(t, "paid_search", etl.AsString(first["channel"]), "highest ROAS first")
	assert.InDelta(t, 6.0, etl.AsFloat(first["roas"]), 0.0001)
	assert.InDelta(t, 0.05, etl.AsFloat(first["ctr"]), 0.0001)
	assert.InDelta(t, 0.05/0.035-1, etl.AsFloat(first["ctr_vs_bench"]), 0.0001)
	assert.Equal(t, 1, etl.AsInt(first["campaign_count"]))
}

func TestComputeEngagementScore(t *testing.T) {
	score := ComputeEngagementScore(0.8, 0.5, 10, 36.5)
	assert.InDelta(t, 0.655, score, 0.0001)
}

func TestClassifyEngagement(t *testing.T) {
	assert.Equal(t, "highly_engaged", ClassifyEngagement(0.80))
	assert.Equal(t, "moderately_engaged", ClassifyEngagement(0.50))
	assert.Equal(t, "low_engagement", ClassifyEngagement(0.20))
	assert.Equal(t, "dormant", ClassifyEngagement(0.05))
}

func TestClassifyValueTier(t *testing.T) {
	assert.Equal(t, "vip", ClassifyValueTier(6000, 250))
	assert.Equal(t, "high_value", ClassifyValueTier(2000, 100))
	assert.Equal(t, "mid_value", ClassifyValueTier(500, 20))
	assert.Equal(t, "low_value", ClassifyValueTier(100, 10))
}

func TestClassifyLifecycle(t *testing.T) {
	assert.Equal(t, "new", ClassifyLifecycle(10, 1))
	assert.Equal(t, "onboarding", ClassifyLifecycle(60, 2))
	assert.Equal(t, "loyal", ClassifyLifecycle(200, 8))
	assert.Equal(t, "at_risk", ClassifyLifecycle(400, 1))
	assert.Equal(t, "active", ClassifyLifecycle(120, 3))
}

func TestBuildAudienceSegments(t *testing.T) {
	p := newTestPipeline(t)
	users := etl.FrameFromRows([]etl.Row{
		{
			"user_id": "U-1", "email_open_rate": 0.9, "click_rate": 0.8,
			"sessions_per_month": 20.0, "days_since_last_visit": 1.0,
			"ltv": 6000.0, "avg_order_value": 300.0,
			"days_active": 400, "purchase_count": 10,
		},
	})
	segmented := p.BuildAudienceSegments(context.Background(), users)
	row := segmented.Maps()[0]
	assert.Equal(t, "highly_engaged", etl.AsString(row["engagement_segment"]))
	assert.Equal(t, "vip", etl.AsString(row["value_tier"]))
	assert.Equal(t, "loyal", etl.AsString(row["lifecycle_stage"]))
}

func TestRoiPeriod(t *testing.T) {
	assert.Equal(t, "2024-03", roiPeriod("2024-03-15", "monthly"))
	assert.Equal(t, "2024-W11", roiPeriod("2024-03-15", "weekly"))
	assert.Equal(t, "2024-Q1", roiPeriod("2024-03-15", "quarterly"))
	assert.Equal(t, "all", roiPeriod("2024-03-15", "lifetime"))
	assert.Equal(t, "all", roiPeriod("not a date", "monthly"))
}

func TestCalculateCampaignROI(t *testing.T) {
	p := newTestPipeline(t)
	campaigns := etl.FrameFromRows([]etl.Row{
		{"campaign_id": "CMP-1", "date": "2024-03-01", "spend": 100.0, "revenue": 500.0, "conversions": 10},
	})
	roi := p.CalculateCampaignROI(context.Background(), campaigns, "campaign_id", "monthly")
	require.Equal(t, 1, roi.Nrow())

	row := roi.Maps()[0]
	assert.Equal(t, "2024-03", etl.AsString(row["period"]))
	assert.InDelta(t, 115.0, etl.AsFloat(row["total_spend"]), 0.001, "overhead-adjusted spend")
	assert.InDelta(t, 200.0, etl.AsFloat(row["gross_profit"]), 0.001)
	assert.InDelta(t, 85.0, etl.AsFloat(row["net_return"]), 0.001)
	assert.InDelta(t, 73.91, etl.AsFloat(row["roi_pct"]), 0.01)
	assert.InDelta(t, 4.35, etl.AsFloat(row["roas"]), 0.01)
	assert.InDelta(t, 11.5, etl.AsFloat(row["cpa"]), 0.001)
	assert.Equal(t, "true", etl.AsString(row["is_profitable"]))
}

func TestStageIndex(t *testing.T) {
	assert.Equal(t, 0, StageIndex("impression"))
	assert.Equal(t, 2, StageIndex("page_view"))
	assert.Equal(t, 3, StageIndex("registration"))
	assert.Equal(t, 5, StageIndex("conversion"))
	assert.Equal(t, -1, StageIndex("daydream"))
}

func TestAnalyzeConversionFunnel(t *testing.T) {
	p := newTestPipeline(t)
	events := etl.FrameFromRows([]etl.Row{
		{"user_id": "U-1", "stage": "impression", "channel": "email"},
		{"user_id": "U-1", "stage": "purchase", "channel": "email"},
		{"user_id": "U-2", "stage": "click", "channel": "email"},
		{"user_id": "U-3", "stage": "signup", "channel": "email"},
		{"user_id": "U-4", "stage": "impression", "channel": "email"},
	})

	report := p.AnalyzeConversionFunnel(context.Background(), events, "")
	require.Equal(t, len(funnelStages), report.Nrow())

	rows := report.Maps()
	assert.Equal(t, 4, etl.AsInt(rows[0]["count"]), "every user reaches impression")
	assert.Equal(t, 3, etl.AsInt(rows[1]["count"]))
	assert.Equal(t, 2, etl.AsInt(rows[3]["count"]))
	assert.Equal(t, 1, etl.AsInt(rows[5]["count"]))
	assert.InDelta(t, 0.75, etl.AsFloat(rows[1]["conversion_rate"]), 0.0001)
	assert.InDelta(t, 0.25, etl.AsFloat(rows[5]["pct_of_total"]), 0.0001)
}

func TestIngestCampaignData_DedupeAndLookback(t *testing.T) {
	p := newTestPipeline(t)
	dir := filepath.Join(p.dataDir, "marketing", "raw")
	require.NoError(t, os.MkdirAll(dir, 0o755))

	recent := time.Now().UTC().AddDate(0, 0, -3).Format("2006-01-02")
	stale := time.Now().UTC().AddDate(0, 0, -200).Format("2006-01-02")
	csv := fmt.Sprintf("campaign_id,channel,date,impressions,clicks,conversions,spend,revenue\n"+
		"CMP-1,cpc,%s,1000,50,5,20,100\n"+
		"CMP-1,cpc,%s,1000,50,5,20,100\n"+
		"CMP-2,cpc,%s,1000,50,5,20,100\n", recent, recent, stale)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "google_ads_export.csv"), []byte(csv), 0o644))

	df, err := p.IngestCampaignData(context.Background(), nil, 90)
	require.NoError(t, err)
	require.Equal(t, 1, df.Nrow(), "duplicate and stale rows removed")

	row := df.Maps()[0]
	assert.Equal(t, "CMP-1", etl.AsString(row["campaign_id"]))
	assert.Equal(t, "google_ads", etl.AsString(row["source_platform"]))
}

func TestValidate_MissingSources(t *testing.T) {
	p := newTestPipeline(t)
	status := p.Validate(context.Background())
	assert.Equal(t, "error", status.Status)
}
