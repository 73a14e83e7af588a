package quality

import (
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/go-gota/gota/dataframe"

	"datapipe/internal/etl"
)

// paretoThreshold is the cumulative share marking the vital few defect
// codes.
const paretoThreshold = 0.80

var defectCategories = []struct {
	name  string
	codes []string
}{
	{"dimensional", []string{"out_of_tolerance", "oversized", "undersized", "warped"}},
	{"surface", []string{"scratch", "dent", "discoloration", "corrosion"}},
	{"functional", []string{"no_function", "intermittent", "degraded_performance"}},
	{"cosmetic", []string{"label_misaligned", "print_defect", "packaging_damage"}},
}

// ClassifyDefect maps a defect code to its parent category.
func ClassifyDefect(defectCode string) string {
	code := strings.ToLower(strings.TrimSpace(defectCode))
	for _, cat := range defectCategories {
		for _, c := range cat.codes {
			if code == c {
				return cat.name
			}
		}
	}
	return "uncategorized"
}

type paretoEntry struct {
	code          string
	count         int
	cumulativePct float64
}

// computePareto orders defect frequency counts into a Pareto table.
// Ties break alphabetically so output is stable.
func computePareto(counts map[string]int) []paretoEntry {
	codes := make([]string, 0, len(counts))
	total := 0
	for code, n := range counts {
		codes = append(codes, code)
		total += n
	}
	sort.Slice(codes, func(i, j int) bool {
		if counts[codes[i]] != counts[codes[j]] {
			return counts[codes[i]] > counts[codes[j]]
		}
		return codes[i] < codes[j]
	})

	out := make([]paretoEntry, 0, len(codes))
	running := 0
	for _, code := range codes {
		running += counts[code]
		out = append(out, paretoEntry{
			code:          code,
			count:         counts[code],
			cumulativePct: float64(running) / float64(total),
		})
	}
	return out
}

// AnalyzeDefectTrends builds per-plant Pareto tables plus weekly trend
// rows from the normalized inspection records. Records without a
// defect code only contribute to the weekly volume figures.
func (p *Pipeline) AnalyzeDefectTrends(df dataframe.DataFrame) dataframe.DataFrame {
	plantCounts := map[string]map[string]int{}
	type weekAgg struct {
		defects    int
		samples    int
		categories map[string]int
	}
	weeks := map[string]*weekAgg{}

	coded := 0
	for _, row := range df.Maps() {
		plantID := etl.AsString(row["plant_id"])
		code := etl.AsString(row["defect_code"])
		category := "uncategorized"
		if code != "" {
			coded++
			category = ClassifyDefect(code)
			counts := plantCounts[plantID]
			if counts == nil {
				counts = map[string]int{}
				plantCounts[plantID] = counts
			}
			counts[code]++
		}

		if date, err := time.Parse("2006-01-02", etl.AsString(row["inspection_date"])); err == nil {
			year, week := date.ISOWeek()
			key := plantID + "|" + fmt.Sprintf("%d-W%02d", year, week)
			w := weeks[key]
			if w == nil {
				w = &weekAgg{categories: map[string]int{}}
				weeks[key] = w
			}
			w.defects += etl.AsInt(row["defect_count"])
			w.samples += etl.AsInt(row["sample_size"])
			w.categories[category]++
		}
	}
	if coded == 0 {
		p.logger.Warn("no defect codes present, skipping Pareto analysis")
	}

	var out []etl.Row
	plantIDs := make([]string, 0, len(plantCounts))
	for id := range plantCounts {
		plantIDs = append(plantIDs, id)
	}
	sort.Strings(plantIDs)
	for _, plantID := range plantIDs {
		for _, entry := range computePareto(plantCounts[plantID]) {
			out = append(out, etl.Row{
				"aggregation_level": "pareto",
				"plant_id":          plantID,
				"defect_code":       entry.code,
				"defect_category":   ClassifyDefect(entry.code),
				"count":             entry.count,
				"cumulative_pct":    math.Round(entry.cumulativePct*10000) / 10000,
				"vital_few":         entry.cumulativePct <= paretoThreshold,
				"week":              "",
				"defect_count":      "",
				"sample_size":       "",
				"top_category":      "",
			})
		}
	}

	weekKeys := make([]string, 0, len(weeks))
	for k := range weeks {
		weekKeys = append(weekKeys, k)
	}
	sort.Strings(weekKeys)
	for _, key := range weekKeys {
		w := weeks[key]
		plantID, week := splitKey2(key)
		out = append(out, etl.Row{
			"aggregation_level": "weekly",
			"plant_id":          plantID,
			"defect_code":       "",
			"defect_category":   "",
			"count":             "",
			"cumulative_pct":    "",
			"vital_few":         "",
			"week":              week,
			"defect_count":      w.defects,
			"sample_size":       w.samples,
			"top_category":      topCategory(w.categories),
		})
	}

	p.logger.Info("analyzed defect trends",
		slog.Int("plants", len(plantIDs)), slog.Int("weeks", len(weekKeys)))
	return etl.FrameFromRows(out)
}

// topCategory is the most frequent category, ties broken
// alphabetically.
func topCategory(counts map[string]int) string {
	best := ""
	bestCount := -1
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if counts[name] > bestCount {
			best = name
			bestCount = counts[name]
		}
	}
	return best
}

func splitKey2(key string) (string, string) {
	parts := strings.SplitN(key, "|", 2)
	return parts[0], parts[1]
}
