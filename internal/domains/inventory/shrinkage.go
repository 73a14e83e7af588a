package inventory

// Shrinkage analysis compares book quantities against physical counts to
// surface losses from theft, damage, administrative errors, and vendor
// fraud.

import (
	"context"
	"log/slog"

	"github.com/go-gota/gota/dataframe"

	"datapipe/internal/etl"
)

// acceptableShrinkageRate is the industry benchmark of roughly 2%.
const acceptableShrinkageRate = 0.02

// categorizeShrinkage assigns a probable cause from the rate magnitude.
func categorizeShrinkage(rate float64) string {
	switch {
	case rate > 0.10:
		return "theft"
	case rate > 0.05:
		return "admin_error"
	case rate > 0.02:
		return "damage"
	default:
		return "unknown"
	}
}

// CalculateShrinkage computes shrinkage rates per SKU and warehouse from
// book vs physical quantities. Inventory without physical counts yields an
// empty frame.
func (p *Pipeline) CalculateShrinkage(ctx context.Context, df dataframe.DataFrame) (dataframe.DataFrame, error) {
	hasPhysical := false
	for _, name := range df.Names() {
		if name == "physical_count" {
			hasPhysical = true
			break
		}
	}
	if !hasPhysical {
		p.logger.WarnContext(ctx, "no physical_count column, shrinkage analysis unavailable")
		return dataframe.DataFrame{}, nil
	}

	type agg struct {
		book, physical float64
	}
	buckets := map[stockKey]*agg{}
	var order []stockKey
	for _, row := range df.Maps() {
		key := stockKey{etl.AsString(row["sku"]), etl.AsString(row["warehouse_id"])}
		b, ok := buckets[key]
		if !ok {
			b = &agg{}
			buckets[key] = b
			order = append(order, key)
		}
		b.book += etl.AsFloat(row["quantity"])
		b.physical += etl.AsFloat(row["physical_count"])
	}

	out := make([]etl.Row, 0, len(order))
	flagged := 0
	for _, key := range order {
		b := buckets[key]
		variance := b.book - b.physical
		rate := 0.0
		if b.book > 0 {
			rate = variance / b.book
		}
		isFlagged := rate > acceptableShrinkageRate
		if isFlagged {
			flagged++
		}
		out = append(out, etl.Row{
			"sku":            key.sku,
			"warehouse_id":   key.warehouse,
			"total_variance": variance,
			"shrinkage_rate": rate,
			"probable_cause": categorizeShrinkage(rate),
			"flagged":        isFlagged,
		})
	}
	etl.SortRows(out, "sku", "warehouse_id")

	p.logger.InfoContext(ctx, "shrinkage analysis complete",
		slog.Int("flagged", flagged),
		slog.Int("skus", len(out)))
	return etl.FrameFromRows(out), nil
}
