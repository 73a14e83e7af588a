package inventory

import (
	"context"
	"log/slog"

	"github.com/go-gota/gota/dataframe"

	"datapipe/internal/etl"
)

// Priority orders reorder urgency.
type Priority string

const (
	PriorityCritical Priority = "critical"
	PriorityHigh     Priority = "high"
	PriorityStandard Priority = "standard"
	PriorityLow      Priority = "low"
)

// noDemandDaysOfSupply stands in for "effectively unlimited" when there is
// no observed demand.
const noDemandDaysOfSupply = 999

// ReorderParams tune purchase order generation per priority tier.
type ReorderParams struct {
	LeadTimeDays int
	SafetyFactor float64
	MinOrderQty  int
	MaxOrderQty  int
}

func reorderParams(p Priority) ReorderParams {
	switch p {
	case PriorityCritical:
		return ReorderParams{LeadTimeDays: 2, SafetyFactor: 2.5, MinOrderQty: 100, MaxOrderQty: 10000}
	case PriorityHigh:
		return ReorderParams{LeadTimeDays: 5, SafetyFactor: 2.0, MinOrderQty: 50, MaxOrderQty: 5000}
	case PriorityLow:
		return ReorderParams{LeadTimeDays: 21, SafetyFactor: 1.0, MinOrderQty: 10, MaxOrderQty: 1000}
	default:
		return ReorderParams{LeadTimeDays: 10, SafetyFactor: 1.5, MinOrderQty: 25, MaxOrderQty: 2000}
	}
}

func assignPriority(daysOfSupply float64) Priority {
	switch {
	case daysOfSupply <= 3:
		return PriorityCritical
	case daysOfSupply <= 7:
		return PriorityHigh
	case daysOfSupply <= 21:
		return PriorityStandard
	default:
		return PriorityLow
	}
}

// GenerateReorderReport builds a reorder recommendation from the latest
// stock snapshot per SKU and warehouse. Only SKUs at or below their reorder
// point are included.
func (p *Pipeline) GenerateReorderReport(ctx context.Context, stock dataframe.DataFrame) (dataframe.DataFrame, error) {
	// Latest snapshot per key.
	latest := map[stockKey]etl.Row{}
	for _, row := range stock.Maps() {
		key := stockKey{etl.AsString(row["sku"]), etl.AsString(row["warehouse_id"])}
		prev, ok := latest[key]
		if !ok || etl.AsString(row["snapshot_date"]) > etl.AsString(prev["snapshot_date"]) {
			latest[key] = row
		}
	}

	var out []etl.Row
	for _, row := range latest {
		qty := etl.AsFloat(row["quantity"])
		demand := etl.AsFloat(row["daily_demand"])

		daysOfSupply := float64(noDemandDaysOfSupply)
		if demand > 0 {
			daysOfSupply = qty / demand
		}

		priority := assignPriority(daysOfSupply)
		params := reorderParams(priority)
		reorderPoint := demand * float64(params.LeadTimeDays) * params.SafetyFactor
		if qty > reorderPoint {
			continue
		}

		suggested := int(reorderPoint*2 - qty)
		if suggested < 0 {
			suggested = 0
		}
		out = append(out, etl.Row{
			"sku":            etl.AsString(row["sku"]),
			"warehouse_id":   etl.AsString(row["warehouse_id"]),
			"quantity":       qty,
			"daily_demand":   demand,
			"days_of_supply": daysOfSupply,
			"priority":       string(priority),
			"reorder_point":  reorderPoint,
			"suggested_qty":  suggested,
		})
	}
	etl.SortRows(out, "sku", "warehouse_id")

	p.logger.InfoContext(ctx, "generated reorder report", slog.Int("skus", len(out)))
	return etl.FrameFromRows(out), nil
}
