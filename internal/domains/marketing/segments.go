package marketing

import (
	"context"
	"log/slog"
	"math"

	"github.com/go-gota/gota/dataframe"

	"datapipe/internal/etl"
)

// Engagement thresholds for segment classification.
const (
	highEngagementThreshold   = 0.75
	mediumEngagementThreshold = 0.40
)

// ComputeEngagementScore builds a normalized engagement score from
// behavioral signals. Twenty sessions a month counts as a full session
// signal; recency decays linearly over a year.
func ComputeEngagementScore(emailOpenRate, clickRate, sessionsPerMonth, daysSinceLastVisit float64) float64 {
	sessions := math.Min(sessionsPerMonth/20, 1.0)
	recency := math.Max(1.0-daysSinceLastVisit/365, 0)
	return 0.25*emailOpenRate + 0.30*clickRate + 0.25*sessions + 0.20*recency
}

// ClassifyEngagement maps an engagement score to a segment label.
func ClassifyEngagement(score float64) string {
	switch {
	case score >= highEngagementThreshold:
		return "highly_engaged"
	case score >= mediumEngagementThreshold:
		return "moderately_engaged"
	case score > 0.10:
		return "low_engagement"
	default:
		return "dormant"
	}
}

// ClassifyValueTier buckets a user by lifetime value and average order.
func ClassifyValueTier(ltv, avgOrder float64) string {
	switch {
	case ltv > 5000 && avgOrder > 200:
		return "vip"
	case ltv > 1000 && avgOrder > 75:
		return "high_value"
	case ltv > 200:
		return "mid_value"
	default:
		return "low_value"
	}
}

// ClassifyLifecycle determines lifecycle stage from tenure and purchase
// history.
func ClassifyLifecycle(daysActive, purchaseCount int) string {
	switch {
	case daysActive < 30 && purchaseCount <= 1:
		return "new"
	case daysActive < 90 && purchaseCount <= 3:
		return "onboarding"
	case daysActive >= 90 && purchaseCount >= 5:
		return "loyal"
	case daysActive >= 365 && purchaseCount < 2:
		return "at_risk"
	default:
		return "active"
	}
}

// BuildAudienceSegments augments user-level rows with engagement, value,
// and lifecycle segment labels.
func (p *Pipeline) BuildAudienceSegments(ctx context.Context, users dataframe.DataFrame) dataframe.DataFrame {
	hasCol := map[string]bool{}
	for _, name := range users.Names() {
		hasCol[name] = true
	}

	segmentCounts := map[string]int{}
	rows := users.Maps()
	for _, row := range rows {
		score := ComputeEngagementScore(
			etl.AsFloat(row["email_open_rate"]),
			etl.AsFloat(row["click_rate"]),
			etl.AsFloat(row["sessions_per_month"]),
			etl.AsFloat(row["days_since_last_visit"]),
		)
		segment := ClassifyEngagement(score)
		segmentCounts[segment]++
		row["engagement_score"] = math.Round(score*10000) / 10000
		row["engagement_segment"] = segment

		if hasCol["ltv"] && hasCol["avg_order_value"] {
			row["value_tier"] = ClassifyValueTier(etl.AsFloat(row["ltv"]), etl.AsFloat(row["avg_order_value"]))
		}
		if hasCol["days_active"] && hasCol["purchase_count"] {
			row["lifecycle_stage"] = ClassifyLifecycle(etl.AsInt(row["days_active"]), etl.AsInt(row["purchase_count"]))
		}
	}

	p.logger.InfoContext(ctx, "built audience segments", slog.Any("segments", segmentCounts))
	return etl.FrameFromRows(rows)
}
