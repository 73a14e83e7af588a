package manufacturing

import (
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/go-gota/gota/dataframe"

	"datapipe/internal/etl"
)

// shiftCapacityMin is the productive capacity per shift in minutes.
var shiftCapacityMin = map[string]float64{
	"morning":   480,
	"afternoon": 480,
	"night":     420,
}

const (
	planningHorizonDays = 7
	minutesPerRun       = 5
)

// ShiftUtilization is the scheduled share of a shift's capacity, capped
// at 100 percent.
func ShiftUtilization(scheduledMin float64, shift string) float64 {
	capacity, ok := shiftCapacityMin[shift]
	if !ok {
		capacity = 480
	}
	if capacity == 0 {
		return 0
	}
	return math.Min(scheduledMin/capacity*100, 100)
}

// BuildProductionSchedule projects recent per-shift throughput forward
// over the planning horizon to produce forward scheduling slots.
func (p *Pipeline) BuildProductionSchedule(df dataframe.DataFrame, shift string, asOf time.Time) dataframe.DataFrame {
	type agg struct {
		output float64
		runs   int
	}
	groups := map[string]*agg{}
	for _, row := range df.Maps() {
		if etl.AsString(row["record_type"]) != "production" {
			continue
		}
		ts, err := time.Parse(time.RFC3339, etl.AsString(row["timestamp"]))
		if err != nil {
			continue
		}
		rowShift := ResolveShift(ts.UTC().Hour())
		if shift != "all" && rowShift != shift {
			continue
		}
		key := etl.AsString(row["plant_id"]) + "|" + etl.AsString(row["line_id"]) + "|" + rowShift
		g := groups[key]
		if g == nil {
			g = &agg{}
			groups[key] = g
		}
		g.output += etl.AsFloat(row["quantity_normalized"])
		g.runs++
	}

	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var out []etl.Row
	for _, key := range keys {
		g := groups[key]
		plantID, lineID, rowShift := splitKey3(key)
		avgOutput := math.Round(g.output/float64(g.runs)*100) / 100
		utilization := math.Round(ShiftUtilization(float64(g.runs*minutesPerRun), rowShift)*100) / 100
		for offset := 0; offset < planningHorizonDays; offset++ {
			out = append(out, etl.Row{
				"plant_id":         plantID,
				"line_id":          lineID,
				"shift":            rowShift,
				"scheduled_date":   asOf.AddDate(0, 0, offset).Format("2006-01-02"),
				"projected_output": avgOutput,
				"utilization_pct":  utilization,
			})
		}
	}
	p.logger.Info("built production schedule",
		slog.Int("slots", len(out)), slog.Int("horizon_days", planningHorizonDays))
	return etl.FrameFromRows(out)
}
