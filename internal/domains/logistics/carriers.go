package logistics

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/go-gota/gota/dataframe"

	"datapipe/internal/etl"
)

// performanceThresholds define pass/fail cutoffs per carrier metric. Rates
// are minimums; damage, claims, and transit days are maximums.
var performanceThresholds = map[string]float64{
	"on_time_rate":     0.95,
	"damage_rate":      0.02,
	"claim_rate":       0.05,
	"avg_transit_days": 3.0,
}

// lowerIsBetter marks thresholds where the metric must stay at or under the
// configured value.
var lowerIsBetter = map[string]bool{
	"damage_rate":      true,
	"claim_rate":       true,
	"avg_transit_days": true,
}

func isTrue(v interface{}) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		return t == "true" || t == "True" || t == "1"
	default:
		return false
	}
}

// ComputeCarrierMetrics aggregates carrier-level performance across all
// shipments and flags each metric against its threshold.
func (p *Pipeline) ComputeCarrierMetrics(ctx context.Context, shipments dataframe.DataFrame) (dataframe.DataFrame, error) {
	hasCarrier := false
	for _, name := range shipments.Names() {
		if name == "carrier_id" {
			hasCarrier = true
			break
		}
	}
	if !hasCarrier {
		return dataframe.DataFrame{}, fmt.Errorf("shipments missing carrier_id column")
	}

	type agg struct {
		total, onTime, damaged, claims int
		transitSum, costSum            float64
		transitN, costN                int
	}
	buckets := map[string]*agg{}
	for _, row := range shipments.Maps() {
		id := etl.AsString(row["carrier_id"])
		b, ok := buckets[id]
		if !ok {
			b = &agg{}
			buckets[id] = b
		}
		b.total++
		if isTrue(row["delivered_on_time"]) {
			b.onTime++
		}
		if isTrue(row["damage_reported"]) {
			b.damaged++
		}
		if isTrue(row["claim_filed"]) {
			b.claims++
		}
		if etl.AsString(row["transit_days"]) != "" {
			b.transitSum += etl.AsFloat(row["transit_days"])
			b.transitN++
		}
		if etl.AsString(row["total_cost"]) != "" {
			b.costSum += etl.AsFloat(row["total_cost"])
			b.costN++
		}
	}

	ids := make([]string, 0, len(buckets))
	for id := range buckets {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]etl.Row, 0, len(ids))
	for _, id := range ids {
		b := buckets[id]
		row := etl.Row{
			"carrier_id":      id,
			"total_shipments": b.total,
			"on_time_rate":    rate(b.onTime, b.total),
			"damage_rate":     rate(b.damaged, b.total),
			"claim_rate":      rate(b.claims, b.total),
		}
		if b.transitN > 0 {
			row["avg_transit_days"] = b.transitSum / float64(b.transitN)
		} else {
			row["avg_transit_days"] = ""
		}
		if b.costN > 0 {
			row["avg_cost"] = b.costSum / float64(b.costN)
		} else {
			row["avg_cost"] = ""
		}

		for metric, threshold := range performanceThresholds {
			value := etl.AsFloat(row[metric])
			if lowerIsBetter[metric] {
				row[metric+"_pass"] = value <= threshold
			} else {
				row[metric+"_pass"] = value >= threshold
			}
		}
		out = append(out, row)
	}

	p.logger.InfoContext(ctx, "computed carrier metrics", slog.Int("carriers", len(out)))
	return etl.FrameFromRows(out), nil
}

func rate(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) / float64(total)
}

// RankCarriers adds a composite score and dense rank to carrier metrics.
func RankCarriers(metrics dataframe.DataFrame) dataframe.DataFrame {
	rows := metrics.Maps()
	for _, row := range rows {
		transit := etl.AsFloat(row["avg_transit_days"])
		if transit < 0.5 {
			transit = 0.5
		}
		row["composite_score"] = etl.AsFloat(row["on_time_rate"])*0.40 +
			(1-etl.AsFloat(row["damage_rate"]))*0.25 +
			(1-etl.AsFloat(row["claim_rate"]))*0.20 +
			(1/transit)*0.15
	}

	sort.Slice(rows, func(i, j int) bool {
		return etl.AsFloat(rows[i]["composite_score"]) > etl.AsFloat(rows[j]["composite_score"])
	})
	rank := 0
	var prev float64
	for i, row := range rows {
		score := etl.AsFloat(row["composite_score"])
		if i == 0 || score != prev {
			rank++
		}
		row["rank"] = rank
		prev = score
	}
	return etl.FrameFromRows(rows)
}
