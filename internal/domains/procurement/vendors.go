package procurement

import (
	"log/slog"
	"math"
	"sort"

	"github.com/go-gota/gota/dataframe"

	"datapipe/internal/etl"
)

// scoreWeights distribute the composite vendor score across KPIs.
// Price competitiveness, responsiveness and compliance default to a
// neutral 0.5 until those feeds land.
var scoreWeights = map[string]float64{
	"on_time_delivery":      0.30,
	"quality_rating":        0.25,
	"price_competitiveness": 0.20,
	"responsiveness":        0.15,
	"compliance":            0.10,
}

const neutralScore = 0.5

// AssignTier maps a composite score to a vendor tier.
func AssignTier(score float64) string {
	switch {
	case score >= 0.90:
		return "preferred"
	case score >= 0.75:
		return "approved"
	case score >= 0.60:
		return "conditional"
	case score >= 0.40:
		return "probation"
	default:
		return "blocked"
	}
}

// EvaluateRisk classifies vendor risk from order volume and size.
func EvaluateRisk(orderCount int, avgAmount float64) string {
	switch {
	case orderCount < 3:
		return "insufficient_data"
	case avgAmount > 100_000:
		return "high_value"
	case orderCount > 50 && avgAmount < 1_000:
		return "low_risk"
	case orderCount > 20:
		return "medium_risk"
	default:
		return "standard"
	}
}

type vendorGroup struct {
	orders    int
	amountSum float64
	onTime    int
	dated     int
	quality   []float64
}

// deliveryScore is the on-time share of dated deliveries. Vendors with
// no delivery data score a neutral 0.5.
func (g *vendorGroup) deliveryScore() float64 {
	if g.dated == 0 {
		return neutralScore
	}
	return float64(g.onTime) / float64(g.dated)
}

func (g *vendorGroup) qualityScore() float64 {
	if len(g.quality) == 0 {
		return neutralScore
	}
	var sum float64
	for _, q := range g.quality {
		sum += q
	}
	return sum / float64(len(g.quality))
}

// ScoreVendors aggregates procurement history per vendor into a scored
// and tiered report, best composite first.
func (p *Pipeline) ScoreVendors(df dataframe.DataFrame) dataframe.DataFrame {
	groups := map[string]*vendorGroup{}
	for _, row := range df.Maps() {
		vendorID := etl.AsString(row["vendor_id"])
		if vendorID == "" {
			continue
		}
		g := groups[vendorID]
		if g == nil {
			g = &vendorGroup{}
			groups[vendorID] = g
		}
		g.orders++
		g.amountSum += etl.AsFloat(row["amount_clean"])
		delivered := etl.AsString(row["delivery_date"])
		expected := etl.AsString(row["expected_date"])
		if delivered != "" && expected != "" {
			g.dated++
			if delivered <= expected {
				g.onTime++
			}
		}
		if etl.AsString(row["quality_rating"]) != "" {
			g.quality = append(g.quality, etl.AsFloat(row["quality_rating"]))
		}
	}

	vendors := make([]string, 0, len(groups))
	for id := range groups {
		vendors = append(vendors, id)
	}
	sort.Strings(vendors)

	out := make([]etl.Row, 0, len(vendors))
	for _, id := range vendors {
		g := groups[id]
		delivery := g.deliveryScore()
		quality := g.qualityScore()
		composite := delivery*scoreWeights["on_time_delivery"] +
			quality*scoreWeights["quality_rating"] +
			neutralScore*(scoreWeights["price_competitiveness"]+
				scoreWeights["responsiveness"]+scoreWeights["compliance"])
		avgAmount := g.amountSum / float64(g.orders)
		out = append(out, etl.Row{
			"vendor_id":       id,
			"order_count":     g.orders,
			"avg_amount":      math.Round(avgAmount*100) / 100,
			"delivery_score":  math.Round(delivery*1000) / 1000,
			"quality_score":   math.Round(quality*1000) / 1000,
			"composite_score": math.Round(composite*1000) / 1000,
			"tier":            AssignTier(composite),
			"risk_level":      EvaluateRisk(g.orders, avgAmount),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i]["composite_score"].(float64) > out[j]["composite_score"].(float64)
	})
	p.logger.Info("scored vendors", slog.Int("vendors", len(out)))
	return etl.FrameFromRows(out)
}
