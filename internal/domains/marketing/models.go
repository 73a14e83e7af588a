package marketing

import (
	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"datapipe/internal/etl"
	"datapipe/internal/schema"
)

// ValidChannels is the standard channel taxonomy used across the org.
var ValidChannels = []string{
	"paid_search", "paid_social", "display", "email",
	"organic_search", "organic_social", "affiliate",
	"referral", "direct", "other",
}

// ValidTiers are the campaign performance tiers, best first.
var ValidTiers = []string{"platinum", "gold", "silver", "bronze"}

// CampaignSchema validates normalized campaign rows. The frame checks
// guard the metric ordering invariants that broken platform exports
// violate most often.
var CampaignSchema = schema.Schema{
	Name: "campaigns",
	Columns: []schema.Column{
		{Name: "campaign_id", Type: series.String, Checks: []schema.Check{schema.StrLength(1, 0)}},
		{Name: "campaign_name", Type: series.String, Nullable: true},
		{Name: "channel", Type: series.String, Checks: []schema.Check{schema.IsIn(ValidChannels...)}},
		{Name: "date", Type: series.String},
		{Name: "impressions", Type: series.Int, Checks: []schema.Check{schema.Ge(0)}},
		{Name: "clicks", Type: series.Int, Checks: []schema.Check{schema.Ge(0)}},
		{Name: "conversions", Type: series.Int, Checks: []schema.Check{schema.Ge(0)}},
		{Name: "spend", Type: series.Float, Checks: []schema.Check{schema.Ge(0)}},
		{Name: "revenue", Type: series.Float, Checks: []schema.Check{schema.Ge(0)}},
	},
	FrameChecks: []schema.FrameCheck{
		{
			Name: "clicks cannot exceed impressions",
			Fn: func(df dataframe.DataFrame) bool {
				for _, row := range df.Maps() {
					if etl.AsFloat(row["clicks"]) > etl.AsFloat(row["impressions"]) {
						return false
					}
				}
				return true
			},
		},
		{
			Name: "conversions cannot exceed clicks",
			Fn: func(df dataframe.DataFrame) bool {
				for _, row := range df.Maps() {
					if etl.AsFloat(row["conversions"]) > etl.AsFloat(row["clicks"]) {
						return false
					}
				}
				return true
			},
		},
	},
}

// ChannelSchema validates the channel comparison report.
var ChannelSchema = schema.Schema{
	Name: "channels",
	Columns: []schema.Column{
		{Name: "channel", Type: series.String, Checks: []schema.Check{schema.IsIn(ValidChannels...)}},
		{Name: "ctr", Type: series.Float, Checks: []schema.Check{schema.InRange(0, 1)}},
		{Name: "conv_rate", Type: series.Float, Checks: []schema.Check{schema.InRange(0, 1)}},
	},
}

// AttributionSchema validates per-touchpoint attribution output.
var AttributionSchema = schema.Schema{
	Name: "attribution",
	Columns: []schema.Column{
		{Name: "conversion_id", Type: series.String},
		{Name: "channel", Type: series.String},
		{Name: "timestamp", Type: series.String},
		{Name: "attribution_credit", Type: series.Float, Checks: []schema.Check{schema.InRange(0, 1)}},
	},
}

// SchemaRegistry maps dataset names to their schemas.
var SchemaRegistry = map[string]schema.Schema{
	"campaigns":   CampaignSchema,
	"channels":    ChannelSchema,
	"attribution": AttributionSchema,
}
