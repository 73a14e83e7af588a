package inventory

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/go-gota/gota/dataframe"

	"datapipe/internal/etl"
)

const (
	// safetyStockDays is the minimum days of supply kept on hand.
	safetyStockDays = 14
	// lowStockThreshold flags stock below this fraction of target.
	lowStockThreshold = 0.15

	defaultLookbackDays = 30
)

type stockKey struct {
	sku, warehouse string
}

// buildDailySnapshot aggregates inventory ingested on or before the snapshot
// date into one row per SKU and warehouse.
func buildDailySnapshot(rows []etl.Row, snapshotDate string) []etl.Row {
	type agg struct {
		qty, costSum float64
		costN        int
		lastReceived string
	}
	buckets := map[stockKey]*agg{}
	for _, row := range rows {
		ingested := etl.AsString(row["ingested_at"])
		if len(ingested) >= 10 {
			ingested = ingested[:10]
		}
		if ingested > snapshotDate {
			continue
		}
		key := stockKey{etl.AsString(row["sku"]), etl.AsString(row["warehouse_id"])}
		b, ok := buckets[key]
		if !ok {
			b = &agg{}
			buckets[key] = b
		}
		b.qty += etl.AsFloat(row["quantity"])
		if etl.AsString(row["unit_cost"]) != "" {
			b.costSum += etl.AsFloat(row["unit_cost"])
			b.costN++
		}
		if ingested > b.lastReceived {
			b.lastReceived = ingested
		}
	}

	keys := make([]stockKey, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].sku != keys[j].sku {
			return keys[i].sku < keys[j].sku
		}
		return keys[i].warehouse < keys[j].warehouse
	})

	out := make([]etl.Row, 0, len(keys))
	for _, k := range keys {
		b := buckets[k]
		cost := 0.0
		if b.costN > 0 {
			cost = b.costSum / float64(b.costN)
		}
		out = append(out, etl.Row{
			"sku":           k.sku,
			"warehouse_id":  k.warehouse,
			"snapshot_date": snapshotDate,
			"quantity":      b.qty,
			"unit_cost":     cost,
			"last_received": b.lastReceived,
		})
	}
	return out
}

// ComputeStockLevels generates daily stock snapshots over the lookback
// window: one row per (sku, warehouse, date) with estimated daily demand, a
// safety-stock target, and a low_stock flag.
func (p *Pipeline) ComputeStockLevels(ctx context.Context, df dataframe.DataFrame, lookbackDays int) (dataframe.DataFrame, error) {
	if lookbackDays <= 0 {
		lookbackDays = defaultLookbackDays
	}
	rows := df.Maps()

	var snapshots []etl.Row
	end := time.Now()
	for d := lookbackDays; d >= 0; d-- {
		date := end.AddDate(0, 0, -d).Format("2006-01-02")
		snapshots = append(snapshots, buildDailySnapshot(rows, date)...)
	}

	// Daily demand is estimated from day-over-day quantity drops.
	sort.Slice(snapshots, func(i, j int) bool {
		a, b := snapshots[i], snapshots[j]
		if etl.AsString(a["sku"]) != etl.AsString(b["sku"]) {
			return etl.AsString(a["sku"]) < etl.AsString(b["sku"])
		}
		if etl.AsString(a["warehouse_id"]) != etl.AsString(b["warehouse_id"]) {
			return etl.AsString(a["warehouse_id"]) < etl.AsString(b["warehouse_id"])
		}
		return etl.AsString(a["snapshot_date"]) < etl.AsString(b["snapshot_date"])
	})

	prevQty := map[stockKey]float64{}
	prevSeen := map[stockKey]bool{}
	for _, snap := range snapshots {
		key := stockKey{etl.AsString(snap["sku"]), etl.AsString(snap["warehouse_id"])}
		qty := etl.AsFloat(snap["quantity"])

		demand := 0.0
		if prevSeen[key] && prevQty[key] > qty {
			demand = prevQty[key] - qty
		}
		snap["daily_demand"] = demand
		snap["target_stock"] = demand * safetyStockDays
		snap["low_stock"] = qty < demand*safetyStockDays*lowStockThreshold

		prevQty[key] = qty
		prevSeen[key] = true
	}

	p.logger.InfoContext(ctx, "computed stock levels",
		slog.Int("snapshots", len(snapshots)),
		slog.Int("lookback_days", lookbackDays))
	return etl.FrameFromRows(snapshots), nil
}
