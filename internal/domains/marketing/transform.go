package marketing

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	"github.com/go-gota/gota/dataframe"

	"datapipe/internal/etl"
)

// ClassifyChannel maps a raw channel string onto the standard taxonomy.
func ClassifyChannel(raw string) string {
	normalized := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(raw)), " ", "_")
	switch normalized {
	case "google_cpc", "bing_cpc", "cpc", "ppc", "sem":
		return "paid_search"
	case "facebook_ads", "instagram_ads", "social_paid", "tiktok_ads":
		return "paid_social"
	case "facebook_organic", "instagram_organic", "social_organic":
		return "organic_social"
	case "display", "programmatic", "gdn", "banner":
		return "display"
	case "email_blast", "email_drip", "email", "newsletter":
		return "email"
	case "seo", "organic", "organic_search":
		return "organic_search"
	case "affiliate", "partner":
		return "affiliate"
	case "referral":
		return "referral"
	case "direct":
		return "direct"
	default:
		return "other"
	}
}

// parseCurrency strips dollar signs and thousands separators from a
// platform export cell.
func parseCurrency(raw string) float64 {
	cleaned := strings.ReplaceAll(strings.ReplaceAll(raw, "$", ""), ",", "")
	v, err := strconv.ParseFloat(strings.TrimSpace(cleaned), 64)
	if err != nil {
		return 0
	}
	return v
}

// NormalizeCampaigns standardizes channel names, cleans currency fields,
// zero-fills missing count metrics, and computes CTR and cost per click.
func (p *Pipeline) NormalizeCampaigns(ctx context.Context, raw dataframe.DataFrame) dataframe.DataFrame {
	rows := raw.Maps()
	for _, row := range rows {
		row["channel_raw"] = etl.AsString(row["channel"])
		row["channel"] = ClassifyChannel(etl.AsString(row["channel"]))

		for _, col := range []string{"spend", "revenue"} {
			row[col] = parseCurrency(etl.AsString(row[col]))
		}
		for _, col := range []string{"impressions", "clicks", "conversions"} {
			row[col] = etl.AsInt(row[col])
		}

		impressions := etl.AsFloat(row["impressions"])
		clicks := etl.AsFloat(row["clicks"])
		if impressions > 0 {
			row["ctr"] = clicks / impressions
		} else {
			row["ctr"] = 0.0
		}
		if clicks > 0 {
			row["cost_per_click"] = etl.AsFloat(row["spend"]) / clicks
		} else {
			row["cost_per_click"] = 0.0
		}
	}

	p.logger.InfoContext(ctx, "normalized campaign records", slog.Int("rows", len(rows)))
	return etl.FrameFromRows(rows)
}
