package manufacturing

import (
	"log/slog"
	"math"
	"path/filepath"
	"sort"

	"github.com/go-gota/gota/dataframe"

	"datapipe/internal/config"
	"datapipe/internal/etl"
)

// EfficiencyTargets hold the OEE thresholds lines are graded against.
type EfficiencyTargets struct {
	Availability float64 `toml:"availability"`
	Performance  float64 `toml:"performance"`
	Quality      float64 `toml:"quality"`
	OEE          float64 `toml:"oee"`
}

type efficiencyConfig struct {
	EfficiencyTargets EfficiencyTargets `toml:"efficiency_targets"`
}

func defaultTargets() EfficiencyTargets {
	return EfficiencyTargets{Availability: 90, Performance: 95, Quality: 99, OEE: 85}
}

func (p *Pipeline) loadEfficiencyTargets() (EfficiencyTargets, error) {
	var cfg efficiencyConfig
	found, err := config.DecodeDomainTOML(filepath.Join(p.configDir, "manufacturing", "efficiency.toml"), &cfg)
	if err != nil {
		return EfficiencyTargets{}, err
	}
	if !found || cfg.EfficiencyTargets.OEE == 0 {
		return defaultTargets(), nil
	}
	return cfg.EfficiencyTargets, nil
}

// ClassifyOEEBand places an OEE percentage into a performance band.
func ClassifyOEEBand(oee float64) string {
	switch {
	case oee >= 85:
		return "world_class"
	case oee >= 70:
		return "good"
	case oee >= 55:
		return "needs_improvement"
	case oee >= 40:
		return "poor"
	default:
		return "critical"
	}
}

// Availability is the share of planned time the line actually ran.
func Availability(plannedMin, downtimeMin float64) float64 {
	if plannedMin == 0 {
		return 0
	}
	return (plannedMin - downtimeMin) / plannedMin * 100
}

// Performance is actual output against the ideal rate, capped at 100.
func Performance(actualUnits, idealUnits float64) float64 {
	if idealUnits == 0 {
		return 0
	}
	return math.Min(actualUnits/idealUnits*100, 100)
}

// Quality is the good-unit share of total output.
func Quality(goodUnits, totalUnits float64) float64 {
	if totalUnits == 0 {
		return 0
	}
	return goodUnits / totalUnits * 100
}

const (
	plannedMinutesPerDay = 1440
	idealRateMultiplier  = 2
)

// CalculateOEE computes availability, performance and quality per line
// and combines them into the overall equipment effectiveness score.
func (p *Pipeline) CalculateOEE(df dataframe.DataFrame) (dataframe.DataFrame, error) {
	targets, err := p.loadEfficiencyTargets()
	if err != nil {
		return dataframe.DataFrame{}, err
	}

	type agg struct {
		output   float64
		scrap    float64
		downtime float64
	}
	lines := map[string]*agg{}
	for _, row := range df.Maps() {
		lineID := etl.AsString(row["line_id"])
		a := lines[lineID]
		if a == nil {
			a = &agg{}
			lines[lineID] = a
		}
		switch etl.AsString(row["record_type"]) {
		case "production":
			a.output += etl.AsFloat(row["quantity_normalized"])
		case "scrap":
			a.scrap += etl.AsFloat(row["quantity_normalized"])
		case "downtime", "maintenance":
			a.downtime += etl.AsFloat(row["duration_min"])
		}
	}

	lineIDs := make([]string, 0, len(lines))
	for id := range lines {
		lineIDs = append(lineIDs, id)
	}
	sort.Strings(lineIDs)

	out := make([]etl.Row, 0, len(lineIDs))
	for _, lineID := range lineIDs {
		a := lines[lineID]
		avail := Availability(plannedMinutesPerDay, a.downtime)
		perf := Performance(a.output, plannedMinutesPerDay*idealRateMultiplier)
		qual := Quality(a.output-a.scrap, a.output)
		oee := avail / 100 * perf / 100 * qual / 100 * 100
		out = append(out, etl.Row{
			"line_id":          lineID,
			"availability_pct": math.Round(avail*100) / 100,
			"performance_pct":  math.Round(perf*100) / 100,
			"quality_pct":      math.Round(qual*100) / 100,
			"oee_pct":          math.Round(oee*100) / 100,
			"oee_band":         ClassifyOEEBand(oee),
			"meets_target":     oee >= targets.OEE,
		})
	}
	p.logger.Info("calculated OEE", slog.Int("lines", len(out)))
	return etl.FrameFromRows(out), nil
}
