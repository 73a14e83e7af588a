package marketing

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

// Cost adjustments that ad platform spend never captures.
const (
	overheadMultiplier = 1.15 // agency fees and tooling
	defaultMargin      = 0.40 // gross margin for profit-based ROI
)

// roiPeriod buckets a date into the requested time grain.
func roiPeriod(date, grain string) string {
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		return "all"
	}
	switch grain {
	case "weekly":
		year, week := t.ISOWeek()
		return fmt.Sprintf("%d-W%02d", year, week)
	case "monthly":
		return t.Format("2006-01")
	case "quarterly":
		return fmt.Sprintf("%d-Q%d", t.Year(), (int(t.Month())-1)/3+1)
	default:
		return "all"
	}
}

// CalculateCampaignROI computes an overhead-adjusted ROI breakdown
// grouped by the given column and time grain. Output is sorted by ROI
// percentage descending.
func (p *Pipeline) CalculateCampaignROI(ctx context.Context, campaigns dataframe.DataFrame, groupBy, timeGrain string) dataframe.DataFrame {
	if groupBy == "" {
		groupBy = "campaign_id"
	}

	type key struct {
		group, period string
	}
	type agg struct {
		spend, revenue float64
		conversions    int
	}
	buckets := map[key]*agg{}
	for _, row := range campaigns.Maps() {
		k := key{
			group:  etl.AsString(row[groupBy]),
			period: roiPeriod(etl.AsString(row["date"]), timeGrain),
		}
		b, ok := buckets[k]
		if !ok {
			b = &agg{}
			buckets[k] = b
		}
		b.spend += etl.AsFloat(row["spend"])
		b.revenue += etl.AsFloat(row["revenue"])
		b.conversions += etl.AsInt(row["conversions"])
	}

	r2 := func(v float64) float64 { return math.Round(v*100) / 100 }
	var out []etl.Row
	negatives := 0
	for k, b := range buckets {
		spend := b.spend * overheadMultiplier
		grossProfit := b.revenue * defaultMargin
		netReturn := grossProfit - spend

		roiPct, roas, cpa := 0.0, 0.0, 0.0
		if spend > 0 {
			roiPct = netReturn / spend * 100
			roas = b.revenue / spend
		}
		if b.conversions > 0 {
			cpa = spend / float64(b.conversions)
		}
		if roiPct <= 0 {
			negatives++
		}
		out = append(out, etl.Row{
			groupBy:         k.group,
			"period":        k.period,
			"total_spend":   r2(spend),
			"total_revenue": r2(b.revenue),
			"gross_profit":  r2(grossProfit),
			"net_return":    r2(netReturn),
			"roi_pct":       r2(roiPct),
			"roas":          r2(roas),
			"cpa":           r2(cpa),
			"conversions":   b.conversions,
			"is_profitable": roiPct > 0,
		})
	}

	sort.Slice(out, func(i, j int) bool {
		a, b := etl.AsFloat(out[i]["roi_pct"]), etl.AsFloat(out[j]["roi_pct"])
		if a != b {
			return a > b
		}
		if etl.AsString(out[i][groupBy]) != etl.AsString(out[j][groupBy]) {
			return etl.AsString(out[i][groupBy]) < etl.AsString(out[j][groupBy])
		}
		return etl.AsString(out[i]["period"]) < etl.AsString(out[j]["period"])
	})

	if negatives > 0 {
		p.logger.WarnContext(ctx, "groups with negative ROI", slog.Int("groups", negatives))
	}
	return etl.FrameFromRows(out)
}
