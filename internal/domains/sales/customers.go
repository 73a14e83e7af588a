package sales

import (
	"context"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/go-gota/gota/dataframe"

	"datapipe/internal/etl"
)

// SegmentThresholds tune customer segmentation.
type SegmentThresholds struct {
	HighValueMin   float64
	MediumValueMin float64
	ActiveDays     int
	ChurnDays      int
}

// DefaultSegmentThresholds are the values product signed off on for the
// standard segmentation run.
func DefaultSegmentThresholds() SegmentThresholds {
	return SegmentThresholds{
		HighValueMin:   10000,
		MediumValueMin: 1000,
		ActiveDays:     90,
		ChurnDays:      365,
	}
}

// classifyCustomer assigns a customer to a segment from their spend, recency,
// and order count.
func classifyCustomer(totalSpend float64, daysSinceLast, orderCount int, t SegmentThresholds) string {
	switch {
	case totalSpend >= t.HighValueMin && daysSinceLast <= t.ActiveDays:
		return "vip_active"
	case totalSpend >= t.HighValueMin && daysSinceLast > t.ChurnDays:
		return "vip_churned"
	case totalSpend >= t.HighValueMin:
		return "vip_at_risk"
	case totalSpend >= t.MediumValueMin && orderCount >= 5:
		return "loyal"
	case totalSpend >= t.MediumValueMin && daysSinceLast <= t.ActiveDays:
		return "regular"
	case daysSinceLast <= t.ActiveDays:
		return "new_or_casual"
	case daysSinceLast > t.ChurnDays:
		return "inactive"
	default:
		return "other"
	}
}

// SegmentCustomers builds customer-level metrics from transactions and
// assigns each customer to a segment relative to the reference date.
func (p *Pipeline) SegmentCustomers(ctx context.Context, df dataframe.DataFrame, thresholds SegmentThresholds, referenceDate time.Time) (dataframe.DataFrame, error) {
	type metrics struct {
		totalSpend  float64
		orders      map[string]struct{}
		first, last time.Time
		datesSeen   bool
	}
	byCustomer := map[string]*metrics{}
	for _, row := range df.Maps() {
		id := etl.AsString(row["customer_id"])
		m, ok := byCustomer[id]
		if !ok {
			m = &metrics{orders: map[string]struct{}{}}
			byCustomer[id] = m
		}
		m.totalSpend += etl.AsFloat(row["amount"])
		m.orders[etl.AsString(row["transaction_id"])] = struct{}{}
		if d, err := time.Parse("2006-01-02", etl.AsString(row["transaction_date"])); err == nil {
			if !m.datesSeen || d.Before(m.first) {
				m.first = d
			}
			if !m.datesSeen || d.After(m.last) {
				m.last = d
			}
			m.datesSeen = true
		}
	}

	ids := make([]string, 0, len(byCustomer))
	for id := range byCustomer {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]etl.Row, 0, len(ids))
	for _, id := range ids {
		m := byCustomer[id]
		daysSinceLast := int(referenceDate.Sub(m.last).Hours() / 24)
		tenureDays := int(m.last.Sub(m.first).Hours() / 24)
		out = append(out, etl.Row{
			"customer_id":     id,
			"total_spend":     round2(m.totalSpend),
			"order_count":     len(m.orders),
			"first_order":     m.first.Format("2006-01-02"),
			"last_order":      m.last.Format("2006-01-02"),
			"days_since_last": daysSinceLast,
			"tenure_days":     tenureDays,
			"segment":         classifyCustomer(m.totalSpend, daysSinceLast, len(m.orders), thresholds),
		})
	}

	p.logger.InfoContext(ctx, "segmented customers", slog.Int("customers", len(out)))
	return etl.FrameFromRows(out), nil
}

// SegmentSummary summarizes segment sizes and average metrics, ordered by
// average spend descending.
func SegmentSummary(customers dataframe.DataFrame) dataframe.DataFrame {
	type bucket struct {
		count         int
		spend, orders float64
		tenure        float64
	}
	buckets := map[string]*bucket{}
	for _, row := range customers.Maps() {
		seg := etl.AsString(row["segment"])
		b, ok := buckets[seg]
		if !ok {
			b = &bucket{}
			buckets[seg] = b
		}
		b.count++
		b.spend += etl.AsFloat(row["total_spend"])
		b.orders += etl.AsFloat(row["order_count"])
		b.tenure += etl.AsFloat(row["tenure_days"])
	}

	out := make([]etl.Row, 0, len(buckets))
	for seg, b := range buckets {
		n := float64(b.count)
		out = append(out, etl.Row{
			"segment":        seg,
			"customer_count": b.count,
			"avg_spend":      round2(b.spend / n),
			"avg_orders":     math.Round(b.orders/n*10) / 10,
			"avg_tenure":     round2(b.tenure / n),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		return etl.AsFloat(out[i]["avg_spend"]) > etl.AsFloat(out[j]["avg_spend"])
	})
	return etl.FrameFromRows(out)
}
