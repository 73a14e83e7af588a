package manufacturing

import (
	"log/slog"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/go-gota/gota/dataframe"

	"datapipe/internal/etl"
)

// downtimeCategories map cause keywords onto standard categories.
var downtimeCategories = []struct {
	name     string
	keywords []string
}{
	{"mechanical", []string{"bearing", "motor", "conveyor", "actuator"}},
	{"electrical", []string{"sensor", "plc", "drive", "wiring"}},
	{"process", []string{"changeover", "calibration", "warmup"}},
	{"external", []string{"power_outage", "supply_delay", "weather"}},
}

// CategorizeDowntime maps a free-text downtime reason to a standard
// category.
func CategorizeDowntime(reason string) string {
	if reason == "" {
		return "unclassified"
	}
	lower := strings.ToLower(strings.TrimSpace(reason))
	for _, cat := range downtimeCategories {
		for _, kw := range cat.keywords {
			if strings.Contains(lower, kw) {
				return cat.name
			}
		}
	}
	return "other"
}

// ClassifySeverity tiers a downtime event by its duration.
func ClassifySeverity(durationMinutes float64) string {
	switch {
	case durationMinutes < 5:
		return "micro_stop"
	case durationMinutes < 30:
		return "minor"
	case durationMinutes < 120:
		return "moderate"
	case durationMinutes < 480:
		return "major"
	default:
		return "critical"
	}
}

// meanTimeBetweenFailures is the average gap in hours between
// consecutive events. Lines with fewer than two events report zero
// since no gap exists to measure.
func meanTimeBetweenFailures(timestamps []time.Time) float64 {
	if len(timestamps) < 2 {
		return 0
	}
	sort.Slice(timestamps, func(i, j int) bool { return timestamps[i].Before(timestamps[j]) })
	var total float64
	for i := 1; i < len(timestamps); i++ {
		total += timestamps[i].Sub(timestamps[i-1]).Hours()
	}
	return total / float64(len(timestamps)-1)
}

// AnalyzeDowntime filters downtime and maintenance events, categorizes
// causes and severity, and aggregates per line with MTBF.
func (p *Pipeline) AnalyzeDowntime(df dataframe.DataFrame) dataframe.DataFrame {
	type agg struct {
		count   int
		minutes float64
	}
	groups := map[string]*agg{}
	lineEvents := map[string][]time.Time{}
	total := 0
	for _, row := range df.Maps() {
		recordType := etl.AsString(row["record_type"])
		if recordType != "downtime" && recordType != "maintenance" {
			continue
		}
		total++
		lineID := etl.AsString(row["line_id"])
		duration := etl.AsFloat(row["duration_min"])
		key := lineID + "|" + CategorizeDowntime(etl.AsString(row["reason"])) + "|" + ClassifySeverity(duration)
		g := groups[key]
		if g == nil {
			g = &agg{}
			groups[key] = g
		}
		g.count++
		g.minutes += duration
		if ts, err := time.Parse(time.RFC3339, etl.AsString(row["timestamp"])); err == nil {
			lineEvents[lineID] = append(lineEvents[lineID], ts)
		}
	}

	mtbf := map[string]float64{}
	for lineID, events := range lineEvents {
		mtbf[lineID] = meanTimeBetweenFailures(events)
	}

	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]etl.Row, 0, len(keys))
	for _, key := range keys {
		g := groups[key]
		lineID, category, severity := splitKey3(key)
		out = append(out, etl.Row{
			"line_id":       lineID,
			"category":      category,
			"severity":      severity,
			"event_count":   g.count,
			"total_minutes": math.Round(g.minutes*100) / 100,
			"avg_duration":  math.Round(g.minutes/float64(g.count)*100) / 100,
			"mtbf_hours":    math.Round(mtbf[lineID]*100) / 100,
		})
	}
	p.logger.Info("analyzed downtime",
		slog.Int("events", total), slog.Int("lines", len(lineEvents)))
	return etl.FrameFromRows(out)
}
