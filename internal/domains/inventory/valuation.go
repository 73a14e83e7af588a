package inventory

// Inventory valuation using FIFO, LIFO, or weighted average cost. The method
// is selected per SKU from its product category under accounting policy.

import (
	"context"
	"log/slog"
	"math"
	"sort"
	"strings"

	"github.com/go-gota/gota/dataframe"

	"datapipe/internal/etl"
)

// CostRecord is one receiving layer for a SKU.
type CostRecord struct {
	SKU          string
	Quantity     int
	UnitCost     float64
	ReceivedDate string
}

// selectValuationMethod picks the costing method for a product category.
func selectValuationMethod(category string) string {
	switch strings.ToLower(category) {
	case "perishable", "fresh", "dairy":
		return "fifo"
	case "raw_material", "commodity":
		return "lifo"
	default:
		return "weighted_avg"
	}
}

// fifoValue consumes the oldest cost layers first.
func fifoValue(layers []CostRecord, qtyOnHand int) float64 {
	ordered := append([]CostRecord(nil), layers...)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].ReceivedDate < ordered[j].ReceivedDate })
	return consumeLayers(ordered, qtyOnHand)
}

// lifoValue consumes the newest cost layers first.
func lifoValue(layers []CostRecord, qtyOnHand int) float64 {
	ordered := append([]CostRecord(nil), layers...)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].ReceivedDate > ordered[j].ReceivedDate })
	return consumeLayers(ordered, qtyOnHand)
}

func consumeLayers(ordered []CostRecord, qtyOnHand int) float64 {
	remaining := qtyOnHand
	total := 0.0
	for _, layer := range ordered {
		take := layer.Quantity
		if remaining < take {
			take = remaining
		}
		total += float64(take) * layer.UnitCost
		remaining -= take
		if remaining <= 0 {
			break
		}
	}
	return total
}

func weightedAvgValue(layers []CostRecord, qtyOnHand int) float64 {
	var totalCost float64
	totalQty := 0
	for _, layer := range layers {
		totalCost += float64(layer.Quantity) * layer.UnitCost
		totalQty += layer.Quantity
	}
	if totalQty == 0 {
		return 0
	}
	return totalCost / float64(totalQty) * float64(qtyOnHand)
}

// RunValuation values on-hand inventory per SKU using the method implied by
// its category.
func (p *Pipeline) RunValuation(ctx context.Context, df dataframe.DataFrame) (dataframe.DataFrame, error) {
	type group struct {
		category string
		layers   []CostRecord
		qty      int
	}
	groups := map[string]*group{}
	for _, row := range df.Maps() {
		sku := etl.AsString(row["sku"])
		g, ok := groups[sku]
		if !ok {
			g = &group{category: "general"}
			groups[sku] = g
		}
		if c := etl.AsString(row["category"]); c != "" {
			g.category = c
		}
		received := etl.AsString(row["received_date"])
		if received == "" {
			received = "1970-01-01"
		}
		qty := etl.AsInt(row["quantity"])
		g.layers = append(g.layers, CostRecord{
			SKU:          sku,
			Quantity:     qty,
			UnitCost:     etl.AsFloat(row["unit_cost"]),
			ReceivedDate: received,
		})
		g.qty += qty
	}

	skus := make([]string, 0, len(groups))
	for sku := range groups {
		skus = append(skus, sku)
	}
	sort.Strings(skus)

	out := make([]etl.Row, 0, len(skus))
	for _, sku := range skus {
		g := groups[sku]
		method := selectValuationMethod(g.category)

		var value float64
		switch method {
		case "fifo":
			value = fifoValue(g.layers, g.qty)
		case "lifo":
			value = lifoValue(g.layers, g.qty)
		default:
			value = weightedAvgValue(g.layers, g.qty)
		}

		avgCost := 0.0
		if g.qty > 0 {
			avgCost = math.Round(value/float64(g.qty)*100) / 100
		}
		out = append(out, etl.Row{
			"sku":              sku,
			"method":           method,
			"quantity_on_hand": g.qty,
			"total_value":      math.Round(value*100) / 100,
			"avg_unit_cost":    avgCost,
		})
	}

	p.logger.InfoContext(ctx, "valuation complete", slog.Int("skus", len(out)))
	return etl.FrameFromRows(out), nil
}
