package marketing

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/go-gota/gota/dataframe"

	"datapipe/internal/etl"
)

// ChannelBenchmark holds the internal target metrics for one channel.
type ChannelBenchmark struct {
	CTR       float64
	ConvRate  float64
	CPATarget float64
}

// channelBenchmarks are internal benchmarks drawn from industry
// averages. Organic channels have no CPA target.
var channelBenchmarks = map[string]ChannelBenchmark{
	"paid_search":    {CTR: 0.035, ConvRate: 0.038, CPATarget: 45.0},
	"paid_social":    {CTR: 0.012, ConvRate: 0.025, CPATarget: 55.0},
	"display":        {CTR: 0.004, ConvRate: 0.010, CPATarget: 70.0},
	"email":          {CTR: 0.025, ConvRate: 0.060, CPATarget: 20.0},
	"organic_search": {CTR: 0.045, ConvRate: 0.042},
	"organic_social": {CTR: 0.008, ConvRate: 0.015},
	"affiliate":      {CTR: 0.015, ConvRate: 0.030, CPATarget: 35.0},
}

func vsBenchmark(value, bench float64) interface{} {
	if bench <= 0 {
		return ""
	}
	return value/bench - 1.0
}

// CompareChannels aggregates campaign data by channel, computes rate
// metrics, and benchmarks each against the internal targets. Output is
// sorted by ROAS descending.
func (p *Pipeline) CompareChannels(ctx context.Context, campaigns dataframe.DataFrame) (dataframe.DataFrame, error) {
	hasChannel := false
	for _, name := range campaigns.Names() {
		if name == "channel" {
			hasChannel = true
			break
		}
	}
	if !hasChannel {
		return dataframe.DataFrame{}, fmt.Errorf("campaigns missing channel column")
	}

	type agg struct {
		impressions, clicks, conversions int
		spend, revenue                   float64
		campaigns                        map[string]bool
	}
	buckets := map[string]*agg{}
	for _, row := range campaigns.Maps() {
		ch := etl.AsString(row["channel"])
		b, ok := buckets[ch]
		if !ok {
			b = &agg{campaigns: map[string]bool{}}
			buckets[ch] = b
		}
		b.impressions += etl.AsInt(row["impressions"])
		b.clicks += etl.AsInt(row["clicks"])
		b.conversions += etl.AsInt(row["conversions"])
		b.spend += etl.AsFloat(row["spend"])
		b.revenue += etl.AsFloat(row["revenue"])
		b.campaigns[etl.AsString(row["campaign_id"])] = true
	}

	var out []etl.Row
	for ch, b := range buckets {
		ctr, convRate, cpa, roas := 0.0, 0.0, 0.0, 0.0
		if b.impressions > 0 {
			ctr = float64(b.clicks) / float64(b.impressions)
		}
		if b.clicks > 0 {
			convRate = float64(b.conversions) / float64(b.clicks)
		}
		if b.conversions > 0 {
			cpa = b.spend / float64(b.conversions)
		}
		if b.spend > 0 {
			roas = b.revenue / b.spend
		}

		bench := channelBenchmarks[ch]
		out = append(out, etl.Row{
			"channel":             ch,
			"impressions":         b.impressions,
			"clicks":              b.clicks,
			"conversions":         b.conversions,
			"campaign_count":      len(b.campaigns),
			"ctr":                 ctr,
			"conv_rate":           convRate,
			"cpa":                 cpa,
			"ctr_benchmark":       bench.CTR,
			"ctr_vs_bench":        vsBenchmark(ctr, bench.CTR),
			"conv_rate_benchmark": bench.ConvRate,
			"conv_rate_vs_bench":  vsBenchmark(convRate, bench.ConvRate),
			"cpa_target":          bench.CPATarget,
			"cpa_vs_bench":        vsBenchmark(cpa, bench.CPATarget),
			"total_spend":         b.spend,
			"total_revenue":       b.revenue,
			"roas":                roas,
		})
	}

	sort.Slice(out, func(i, j int) bool {
		a, b := etl.AsFloat(out[i]["roas"]), etl.AsFloat(out[j]["roas"])
		if a != b {
			return a > b
		}
		return etl.AsString(out[i]["channel"]) < etl.AsString(out[j]["channel"])
	})

	p.logger.InfoContext(ctx, "benchmarked channels", slog.Int("channels", len(out)))
	return etl.FrameFromRows(out), nil
}
