package marketing

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"

	"github.com/go-gota/gota/dataframe"

	"datapipe/internal/etl"
)

// Quality score weights. A 5% CTR, 10% conversion rate, and 5x ROI each
// count as a perfect component.
const (
	ctrWeight      = 0.30
	convRateWeight = 0.35
	roiWeight      = 0.35

	perfectCTR      = 0.05
	perfectConvRate = 0.10
	perfectROI      = 5.0
)

// ComputeQualityScore builds the weighted composite score for one
// campaign from its aggregate ratios.
func ComputeQualityScore(ctr, convRate, roi float64) float64 {
	ctrScore := math.Min(ctr/perfectCTR, 1.0)
	convScore := math.Min(convRate/perfectConvRate, 1.0)
	roiScore := math.Min(math.Max(roi, 0)/perfectROI, 1.0)
	return ctrScore*ctrWeight + convScore*convRateWeight + roiScore*roiWeight
}

// AssignTier maps a quality score to a performance tier.
func AssignTier(score float64) string {
	switch {
	case score >= 0.85:
		return "platinum"
	case score >= 0.65:
		return "gold"
	case score >= 0.40:
		return "silver"
	default:
		return "bronze"
	}
}

// AnalyzeCampaignPerformance rolls daily rows up per campaign, computes
// CTR, conversion rate, and ROI, and assigns quality tiers.
func (p *Pipeline) AnalyzeCampaignPerformance(ctx context.Context, campaigns dataframe.DataFrame) (dataframe.DataFrame, error) {
	cols := map[string]bool{}
	for _, name := range campaigns.Names() {
		cols[name] = true
	}
	for _, required := range []string{"campaign_id", "impressions", "clicks", "conversions", "spend", "revenue"} {
		if !cols[required] {
			return dataframe.DataFrame{}, fmt.Errorf("missing required column: %s", required)
		}
	}

	type agg struct {
		impressions, clicks, conversions int
		spend, revenue                   float64
		days                             map[string]bool
		start, end                       string
	}
	buckets := map[string]*agg{}
	for _, row := range campaigns.Maps() {
		id := etl.AsString(row["campaign_id"])
		b, ok := buckets[id]
		if !ok {
			b = &agg{days: map[string]bool{}}
			buckets[id] = b
		}
		b.impressions += etl.AsInt(row["impressions"])
		b.clicks += etl.AsInt(row["clicks"])
		b.conversions += etl.AsInt(row["conversions"])
		b.spend += etl.AsFloat(row["spend"])
		b.revenue += etl.AsFloat(row["revenue"])

		date := etl.AsString(row["date"])
		if date != "" {
			b.days[date] = true
			if b.start == "" || date < b.start {
				b.start = date
			}
			if date > b.end {
				b.end = date
			}
		}
	}

	ids := make([]string, 0, len(buckets))
	for id := range buckets {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	tierCounts := map[string]int{}
	out := make([]etl.Row, 0, len(ids))
	for _, id := range ids {
		b := buckets[id]
		ctr, convRate, roi := 0.0, 0.0, 0.0
		if b.impressions > 0 {
			ctr = float64(b.clicks) / float64(b.impressions)
		}
		if b.clicks > 0 {
			convRate = float64(b.conversions) / float64(b.clicks)
		}
		if b.spend > 0 {
			roi = (b.revenue - b.spend) / b.spend
		}
		score := ComputeQualityScore(ctr, convRate, roi)
		tier := AssignTier(score)
		tierCounts[tier]++

		out = append(out, etl.Row{
			"campaign_id":       id,
			"total_impressions": b.impressions,
			"total_clicks":      b.clicks,
			"total_conversions": b.conversions,
			"total_spend":       b.spend,
			"total_revenue":     b.revenue,
			"days_active":       len(b.days),
			"start_date":        b.start,
			"end_date":          b.end,
			"ctr":               ctr,
			"conversion_rate":   convRate,
			"roi":               roi,
			"quality_score":     math.Round(score*10000) / 10000,
			"tier":              tier,
		})
	}

	p.logger.InfoContext(ctx, "scored campaigns",
		slog.Int("campaigns", len(out)),
		slog.Any("tiers", tierCounts))
	return etl.FrameFromRows(out), nil
}
