package sales

// Rolling-average forecasting with linear trend extrapolation. This is a
// planning baseline, not a real forecasting model.

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/go-gota/gota/dataframe"

	"datapipe/internal/etl"
)

const (
	defaultForecastWindow = 4  // weeks of rolling average
	forecastHorizon       = 12 // weeks projected ahead
)

type weeklyPoint struct {
	period string
	total  float64
}

// linearFit returns the least-squares slope and intercept for y over
// x = 0..len(y)-1.
func linearFit(y []float64) (slope, intercept float64) {
	n := float64(len(y))
	var sumX, sumY, sumXY, sumXX float64
	for i, v := range y {
		x := float64(i)
		sumX += x
		sumY += v
		sumXY += x * v
		sumXX += x * x
	}
	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return 0, sumY / n
	}
	slope = (n*sumXY - sumX*sumY) / denom
	intercept = (sumY - slope*sumX) / n
	return slope, intercept
}

// rollingForecast applies a rolling mean plus linear trend to one weekly
// series and projects the forecast horizon. Series too short to establish a
// trend yield nil.
func rollingForecast(weekly []weeklyPoint, window int) []etl.Row {
	sort.Slice(weekly, func(i, j int) bool { return weekly[i].period < weekly[j].period })

	type observed struct {
		weeklyPoint
		rollingAvg float64
		hasAvg     bool
	}
	points := make([]observed, len(weekly))
	var valid []float64
	for i, w := range weekly {
		points[i].weeklyPoint = w
		start := i - window + 1
		if start < 0 {
			start = 0
		}
		if i-start+1 >= 2 {
			var sum float64
			for _, prev := range weekly[start : i+1] {
				sum += prev.total
			}
			points[i].rollingAvg = sum / float64(i-start+1)
			points[i].hasAvg = true
			valid = append(valid, points[i].rollingAvg)
		}
	}
	if len(valid) < 3 {
		return nil
	}

	slope, intercept := linearFit(valid)

	// Row maps must share one key set: gota takes column names from the
	// first row. Unobserved cells stay empty.
	out := make([]etl.Row, 0, len(points)+forecastHorizon)
	var lastPeriod time.Time
	for _, pt := range points {
		row := etl.Row{
			"period":       pt.period,
			"total_amount": round2(pt.total),
			"rolling_avg":  "",
			"forecast":     "",
			"is_forecast":  false,
		}
		if pt.hasAvg {
			row["rolling_avg"] = round2(pt.rollingAvg)
			row["forecast"] = round2(pt.rollingAvg)
			if d, err := time.Parse("2006-01-02", pt.period); err == nil {
				lastPeriod = d
			}
		}
		out = append(out, row)
	}

	for i := 1; i <= forecastHorizon; i++ {
		projected := intercept + slope*float64(len(valid)+i)
		if projected < 0 {
			// Never project negative revenue.
			projected = 0
		}
		out = append(out, etl.Row{
			"period":       lastPeriod.AddDate(0, 0, 7*i).Format("2006-01-02"),
			"total_amount": "",
			"rolling_avg":  "",
			"forecast":     round2(projected),
			"is_forecast":  true,
		})
	}
	return out
}

func weeklyTotals(rows []etl.Row) []weeklyPoint {
	buckets := map[string]float64{}
	for _, row := range rows {
		key, ok := periodKey(etl.AsString(row["transaction_date"]), "W")
		if !ok {
			continue
		}
		buckets[key] += etl.AsFloat(row["amount"])
	}
	out := make([]weeklyPoint, 0, len(buckets))
	for period, total := range buckets {
		out = append(out, weeklyPoint{period: period, total: total})
	}
	return out
}

// BuildForecast produces an overall weekly forecast plus per-region
// forecasts when region data is present.
func (p *Pipeline) BuildForecast(ctx context.Context, df dataframe.DataFrame, window int) (Summaries, error) {
	hasDate, hasRegion := false, false
	for _, name := range df.Names() {
		switch name {
		case "transaction_date":
			hasDate = true
		case "region":
			hasRegion = true
		}
	}
	if !hasDate {
		p.logger.WarnContext(ctx, "no transaction_date column, skipping forecast")
		return Summaries{}, nil
	}
	if window <= 0 {
		window = defaultForecastWindow
	}

	rows := df.Maps()
	results := Summaries{}
	if overall := rollingForecast(weeklyTotals(rows), window); overall != nil {
		results["overall"] = etl.FrameFromRows(overall)
	}
	p.logger.InfoContext(ctx, "built overall forecast",
		slog.Int("horizon_weeks", forecastHorizon),
		slog.Int("window", window))

	if hasRegion {
		byRegion := map[string][]etl.Row{}
		for _, row := range rows {
			region := etl.AsString(row["region"])
			byRegion[region] = append(byRegion[region], row)
		}

		regions := make([]string, 0, len(byRegion))
		for r := range byRegion {
			regions = append(regions, r)
		}
		sort.Strings(regions)

		var regional []etl.Row
		for _, region := range regions {
			fc := rollingForecast(weeklyTotals(byRegion[region]), window)
			for _, row := range fc {
				row["region"] = region
				regional = append(regional, row)
			}
		}
		if len(regional) > 0 {
			results["by_region"] = etl.FrameFromRows(regional)
		}
		p.logger.InfoContext(ctx, "built regional forecasts", slog.Int("regions", len(regions)))
	}

	return results, nil
}
