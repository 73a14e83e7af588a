package sales

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/go-gota/gota/dataframe"

	"datapipe/internal/etl"
)

// aggLevels are the standard grouping dimensions used across sales reporting.
var aggLevels = []string{"region", "product_category", "channel"}

// timeGrains are the supported time-series rollup grains.
var timeGrains = []string{"D", "W", "M", "Q"}

const topProductsPerRegion = 10

// Summaries is the set of aggregation outputs, keyed by summary name.
type Summaries = map[string]dataframe.DataFrame

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// aggregateByDimension computes the standard metrics for one grouping
// dimension, ordered by dimension value.
func aggregateByDimension(rows []etl.Row, dimension string) dataframe.DataFrame {
	type bucket struct {
		total, min, max float64
		count           int
	}
	buckets := map[string]*bucket{}
	for _, row := range rows {
		key := etl.AsString(row[dimension])
		amount := etl.AsFloat(row["amount"])
		b, ok := buckets[key]
		if !ok {
			b = &bucket{min: amount, max: amount}
			buckets[key] = b
		}
		b.total += amount
		b.count++
		if amount < b.min {
			b.min = amount
		}
		if amount > b.max {
			b.max = amount
		}
	}

	keys := make([]string, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]etl.Row, 0, len(keys))
	for _, k := range keys {
		b := buckets[k]
		out = append(out, etl.Row{
			dimension:           k,
			"total_amount":      round2(b.total),
			"avg_amount":        round2(b.total / float64(b.count)),
			"transaction_count": b.count,
			"min_amount":        b.min,
			"max_amount":        b.max,
		})
	}
	return etl.FrameFromRows(out)
}

// periodKey buckets a transaction date into the given grain. Weekly periods
// land on the week's Monday.
func periodKey(date string, grain string) (string, bool) {
	d, err := time.Parse("2006-01-02", date)
	if err != nil {
		return "", false
	}
	switch grain {
	case "D":
		return d.Format("2006-01-02"), true
	case "W":
		offset := (int(d.Weekday()) + 6) % 7
		return d.AddDate(0, 0, -offset).Format("2006-01-02"), true
	case "M":
		return d.Format("2006-01"), true
	case "Q":
		quarter := (int(d.Month())-1)/3 + 1
		return fmt.Sprintf("%d-Q%d", d.Year(), quarter), true
	default:
		return "", false
	}
}

// buildTimeSeries rolls sales up to one time grain.
func buildTimeSeries(rows []etl.Row, grain string) []etl.Row {
	type bucket struct {
		total float64
		count int
	}
	buckets := map[string]*bucket{}
	for _, row := range rows {
		key, ok := periodKey(etl.AsString(row["transaction_date"]), grain)
		if !ok {
			continue
		}
		b, ok := buckets[key]
		if !ok {
			b = &bucket{}
			buckets[key] = b
		}
		b.total += etl.AsFloat(row["amount"])
		b.count++
	}

	periods := make([]string, 0, len(buckets))
	for k := range buckets {
		periods = append(periods, k)
	}
	sort.Strings(periods)

	out := make([]etl.Row, 0, len(periods))
	for _, period := range periods {
		b := buckets[period]
		out = append(out, etl.Row{
			"period":       period,
			"total_amount": round2(b.total),
			"avg_amount":   round2(b.total / float64(b.count)),
			"count":        b.count,
			"grain":        grain,
		})
	}
	return out
}

// BuildSalesSummaries produces one summary frame per aggregation level, plus
// multi-grain time series, a region-by-channel cross tab, and top products
// per region.
func (p *Pipeline) BuildSalesSummaries(ctx context.Context, df dataframe.DataFrame) (Summaries, error) {
	cols := map[string]struct{}{}
	for _, name := range df.Names() {
		cols[name] = struct{}{}
	}
	rows := df.Maps()

	results := Summaries{}
	for _, dim := range aggLevels {
		if _, ok := cols[dim]; !ok {
			continue
		}
		results["by_"+dim] = aggregateByDimension(rows, dim)
	}

	if _, ok := cols["transaction_date"]; ok {
		var ts []etl.Row
		for _, grain := range timeGrains {
			ts = append(ts, buildTimeSeries(rows, grain)...)
		}
		results["time_series"] = etl.FrameFromRows(ts)
	}

	if _, okR := cols["region"]; okR {
		if _, okC := cols["channel"]; okC {
			results["region_channel"] = crossTabRegionChannel(rows)
		}
		if _, okP := cols["product_id"]; okP {
			results["top_products"] = topProductsByRegion(rows)
		}
	}

	p.logger.InfoContext(ctx, "built sales summaries", slog.Int("tables", len(results)))
	return results, nil
}

func crossTabRegionChannel(rows []etl.Row) dataframe.DataFrame {
	totals := map[string]map[string]float64{}
	for _, row := range rows {
		region := etl.AsString(row["region"])
		channel := etl.AsString(row["channel"])
		if totals[region] == nil {
			totals[region] = map[string]float64{}
		}
		totals[region][channel] += etl.AsFloat(row["amount"])
	}

	regions := make([]string, 0, len(totals))
	for r := range totals {
		regions = append(regions, r)
	}
	sort.Strings(regions)

	var out []etl.Row
	for _, region := range regions {
		channels := make([]string, 0, len(totals[region]))
		for c := range totals[region] {
			channels = append(channels, c)
		}
		sort.Strings(channels)
		for _, channel := range channels {
			out = append(out, etl.Row{
				"region":  region,
				"channel": channel,
				"amount":  round2(totals[region][channel]),
			})
		}
	}
	return etl.FrameFromRows(out)
}

func topProductsByRegion(rows []etl.Row) dataframe.DataFrame {
	totals := map[string]map[string]float64{}
	for _, row := range rows {
		region := etl.AsString(row["region"])
		product := etl.AsString(row["product_id"])
		if totals[region] == nil {
			totals[region] = map[string]float64{}
		}
		totals[region][product] += etl.AsFloat(row["amount"])
	}

	regions := make([]string, 0, len(totals))
	for r := range totals {
		regions = append(regions, r)
	}
	sort.Strings(regions)

	var out []etl.Row
	for _, region := range regions {
		type prodTotal struct {
			product string
			amount  float64
		}
		ranked := make([]prodTotal, 0, len(totals[region]))
		for product, amount := range totals[region] {
			ranked = append(ranked, prodTotal{product, amount})
		}
		sort.Slice(ranked, func(i, j int) bool {
			if ranked[i].amount != ranked[j].amount {
				return ranked[i].amount > ranked[j].amount
			}
			return ranked[i].product < ranked[j].product
		})
		if len(ranked) > topProductsPerRegion {
			ranked = ranked[:topProductsPerRegion]
		}
		for _, pt := range ranked {
			out = append(out, etl.Row{
				"region":     region,
				"product_id": pt.product,
				"amount":     round2(pt.amount),
			})
		}
	}
	return etl.FrameFromRows(out)
}
