package inventory

// Turnover = cost of goods sold / average inventory value. Monthly figures
// are annualized and compared against category benchmarks.

import (
	"context"
	"log/slog"
	"sort"

	"github.com/go-gota/gota/dataframe"

	"datapipe/internal/etl"
)

var turnoverBenchmarks = map[string]float64{
	"perishable":     24.0,
	"electronics":    8.0,
	"general":        6.0,
	"raw_material":   12.0,
	"finished_goods": 5.0,
}

type turnoverKey struct {
	sku, warehouse, period string
}

// ComputeTurnoverRatios builds a turnover report from stock snapshots: one
// row per (sku, warehouse, month) with the annualized ratio and benchmark
// comparison. COGS is estimated from quantity decreases between snapshots.
func (p *Pipeline) ComputeTurnoverRatios(ctx context.Context, stock dataframe.DataFrame) (dataframe.DataFrame, error) {
	rows := stock.Maps()
	etl.SortRows(rows, "sku", "warehouse_id", "snapshot_date")

	type agg struct {
		cogs, qtySum, costSum float64
		n                     int
	}
	buckets := map[turnoverKey]*agg{}
	prevQty := map[stockKey]float64{}
	prevSeen := map[stockKey]bool{}

	for _, row := range rows {
		key := stockKey{etl.AsString(row["sku"]), etl.AsString(row["warehouse_id"])}
		date := etl.AsString(row["snapshot_date"])
		if len(date) < 7 {
			continue
		}
		tk := turnoverKey{key.sku, key.warehouse, date[:7]}
		b, ok := buckets[tk]
		if !ok {
			b = &agg{}
			buckets[tk] = b
		}

		qty := etl.AsFloat(row["quantity"])
		cost := etl.AsFloat(row["unit_cost"])
		if prevSeen[key] && prevQty[key] > qty {
			b.cogs += (prevQty[key] - qty) * cost
		}
		b.qtySum += qty
		b.costSum += cost
		b.n++
		prevQty[key] = qty
		prevSeen[key] = true
	}

	keys := make([]turnoverKey, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.sku != b.sku {
			return a.sku < b.sku
		}
		if a.warehouse != b.warehouse {
			return a.warehouse < b.warehouse
		}
		return a.period < b.period
	})

	out := make([]etl.Row, 0, len(keys))
	for _, k := range keys {
		b := buckets[k]
		avgValue := b.qtySum / float64(b.n) * (b.costSum / float64(b.n))
		ratio := 0.0
		if avgValue > 0 {
			ratio = b.cogs / avgValue
		}
		annualized := ratio * 12
		benchmark := turnoverBenchmarks["general"]
		vs := "below"
		if annualized >= benchmark {
			vs = "above"
		}
		out = append(out, etl.Row{
			"sku":                 k.sku,
			"warehouse_id":        k.warehouse,
			"period":              k.period,
			"total_cogs":          b.cogs,
			"avg_value":           avgValue,
			"turnover_ratio":      ratio,
			"annualized_turnover": annualized,
			"benchmark":           benchmark,
			"vs_benchmark":        vs,
		})
	}

	p.logger.InfoContext(ctx, "computed turnover ratios", slog.Int("rows", len(out)))
	return etl.FrameFromRows(out), nil
}
