package inventory

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/go-gota/gota/dataframe"

	"datapipe/internal/etl"
)

// legacyColumnMap renames fields from legacy warehouse systems.
var legacyColumnMap = map[string]string{
	"item_code":   "sku",
	"qty_on_hand": "quantity",
	"wh_code":     "warehouse_id",
	"loc":         "location",
	"desc":        "description",
}

// classifyWarehouse determines warehouse type from its identifier prefix.
func classifyWarehouse(warehouseID string) (string, error) {
	prefix, _, _ := strings.Cut(warehouseID, "-")
	switch prefix {
	case "DC":
		return "distribution_center", nil
	case "FC", "FF":
		return "fulfillment", nil
	case "CS":
		return "cold_storage", nil
	case "BK", "BW":
		return "bulk", nil
	default:
		return "", fmt.Errorf("unrecognized warehouse prefix %q in %s", prefix, warehouseID)
	}
}

// normalizeUOM standardizes unit of measure strings.
func normalizeUOM(unit string) string {
	switch strings.ToLower(strings.TrimSpace(unit)) {
	case "ea", "each", "eaches", "pcs":
		return "EACH"
	case "cs", "case", "cases":
		return "CASE"
	case "plt", "pallet", "pallets":
		return "PALLET"
	case "kg", "kgs", "kilogram":
		return "KG"
	case "lb", "lbs", "pound":
		return "LB"
	default:
		return strings.ToUpper(strings.TrimSpace(unit))
	}
}

// NormalizeInventory cleans and standardizes the combined feed: legacy
// column names, warehouse classification, UoM normalization, and basic
// quality filters. Rows with no SKU or negative quantity are dropped, and
// missing unit costs are filled with the SKU's median cost.
func (p *Pipeline) NormalizeInventory(ctx context.Context, raw dataframe.DataFrame) (dataframe.DataFrame, error) {
	df := etl.NormalizeColumns(raw, legacyColumnMap)

	cols := map[string]struct{}{}
	for _, name := range df.Names() {
		cols[name] = struct{}{}
	}
	_, hasUOM := cols["unit_of_measure"]
	_, hasCost := cols["unit_cost"]

	rows := df.Maps()
	kept := make([]etl.Row, 0, len(rows))
	dropped := 0
	for _, row := range rows {
		if etl.AsString(row["sku"]) == "" {
			dropped++
			continue
		}
		qty := etl.AsFloat(row["quantity"])
		if qty < 0 {
			dropped++
			continue
		}
		row["quantity"] = qty

		whType, err := classifyWarehouse(etl.AsString(row["warehouse_id"]))
		if err != nil {
			return dataframe.DataFrame{}, err
		}
		row["warehouse_type"] = whType

		if hasUOM {
			row["unit_of_measure"] = normalizeUOM(etl.AsString(row["unit_of_measure"]))
		}
		kept = append(kept, row)
	}

	if hasCost {
		fillMissingCosts(kept)
	}

	if dropped > 0 {
		p.logger.WarnContext(ctx, "dropped unusable inventory rows", slog.Int("count", dropped))
	}
	return etl.FrameFromRows(kept), nil
}

// fillMissingCosts replaces absent unit costs with the median cost observed
// for the same SKU.
func fillMissingCosts(rows []etl.Row) {
	costs := map[string][]float64{}
	for _, row := range rows {
		if etl.AsString(row["unit_cost"]) != "" {
			costs[etl.AsString(row["sku"])] = append(costs[etl.AsString(row["sku"])], etl.AsFloat(row["unit_cost"]))
		}
	}

	medians := make(map[string]float64, len(costs))
	for sku, vals := range costs {
		sort.Float64s(vals)
		n := len(vals)
		if n%2 == 1 {
			medians[sku] = vals[n/2]
		} else {
			medians[sku] = (vals[n/2-1] + vals[n/2]) / 2
		}
	}

	for _, row := range rows {
		if etl.AsString(row["unit_cost"]) == "" {
			if m, ok := medians[etl.AsString(row["sku"])]; ok {
				row["unit_cost"] = m
			} else {
				row["unit_cost"] = 0.0
			}
		} else {
			row["unit_cost"] = etl.AsFloat(row["unit_cost"])
		}
	}
}
