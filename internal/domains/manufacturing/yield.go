package manufacturing

import (
	"log/slog"
	"math"
	"sort"

	"github.com/go-gota/gota/dataframe"

	"datapipe/internal/etl"
)

// acceptableScrapPct is the target scrap rate threshold.
const acceptableScrapPct = 3.0

// FirstPassYield is the share of units that made it through without
// scrap, as a percentage.
func FirstPassYield(goodUnits, totalUnits float64) float64 {
	if totalUnits == 0 {
		return 0
	}
	return goodUnits / totalUnits * 100
}

// detectAnomalies flags values deviating more than threshold standard
// deviations from the mean.
func detectAnomalies(values []float64, threshold float64) []bool {
	flags := make([]bool, len(values))
	if len(values) == 0 {
		return flags
	}
	var mean float64
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))
	var variance float64
	for _, v := range values {
		variance += (v - mean) * (v - mean)
	}
	std := math.Sqrt(variance / float64(len(values)))
	if std == 0 {
		return flags
	}
	for i, v := range values {
		flags[i] = math.Abs(v-mean)/std > threshold
	}
	return flags
}

// ComputeYieldMetrics builds scrap and first-pass-yield metrics per
// plant and line, flagging statistical yield anomalies and lines over
// the scrap threshold.
func (p *Pipeline) ComputeYieldMetrics(df dataframe.DataFrame) dataframe.DataFrame {
	produced := map[string]float64{}
	scrapped := map[string]float64{}
	for _, row := range df.Maps() {
		key := etl.AsString(row["plant_id"]) + "|" + etl.AsString(row["line_id"])
		qty := etl.AsFloat(row["quantity_normalized"])
		switch etl.AsString(row["record_type"]) {
		case "production":
			produced[key] += qty
		case "scrap":
			scrapped[key] += qty
		}
	}

	keys := make([]string, 0, len(produced))
	for k := range produced {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fpys := make([]float64, len(keys))
	out := make([]etl.Row, 0, len(keys))
	for i, key := range keys {
		plantID, lineID := splitKey2(key)
		total := produced[key]
		scrap := scrapped[key]
		scrapPct := 0.0
		if total > 0 {
			scrapPct = scrap / total * 100
		}
		fpy := FirstPassYield(total-scrap, total)
		fpys[i] = fpy
		out = append(out, etl.Row{
			"plant_id":              plantID,
			"line_id":               lineID,
			"total_produced":        math.Round(total*100) / 100,
			"total_scrapped":        math.Round(scrap*100) / 100,
			"scrap_pct":             math.Round(scrapPct*100) / 100,
			"fpy":                   math.Round(fpy*100) / 100,
			"above_scrap_threshold": scrapPct > acceptableScrapPct,
		})
	}
	anomalies := 0
	for i, flag := range detectAnomalies(fpys, 2.0) {
		out[i]["yield_anomaly"] = flag
		if flag {
			anomalies++
		}
	}
	p.logger.Info("computed yield metrics",
		slog.Int("lines", len(out)), slog.Int("anomalies", anomalies))
	return etl.FrameFromRows(out)
}
