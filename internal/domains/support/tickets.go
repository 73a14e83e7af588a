package support

import (
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/go-gota/gota/dataframe"

	"datapipe/internal/etl"
)

// ResolutionBucket histograms a resolution time into a human-readable
// range label.
func ResolutionBucket(hours float64) string {
	switch {
	case hours < 1:
		return "<1h"
	case hours < 4:
		return "1-4h"
	case hours < 8:
		return "4-8h"
	case hours < 24:
		return "8-24h"
	case hours < 72:
		return "1-3d"
	default:
		return ">3d"
	}
}

func median(sorted []float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

type volumeStats struct {
	count      int
	resolution []float64
}

func volumeRow(dimension, segment string, st volumeStats) etl.Row {
	row := etl.Row{
		"dimension":             dimension,
		"segment":               segment,
		"total_tickets":         st.count,
		"avg_resolution_hrs":    "",
		"median_resolution_hrs": "",
	}
	if len(st.resolution) > 0 {
		sort.Float64s(st.resolution)
		var sum float64
		for _, v := range st.resolution {
			sum += v
		}
		row["avg_resolution_hrs"] = math.Round(sum/float64(len(st.resolution))*100) / 100
		row["median_resolution_hrs"] = math.Round(median(st.resolution)*100) / 100
	}
	return row
}

// AnalyzeTicketVolume builds the long-format volume summary: ticket
// counts and resolution statistics by priority, by source system, and
// by resolution-time bucket. All four priority tiers appear even when
// empty.
func (p *Pipeline) AnalyzeTicketVolume(tickets dataframe.DataFrame) dataframe.DataFrame {
	rows := tickets.Maps()
	byPriority := map[string]*volumeStats{}
	for _, pr := range ValidPriorities {
		byPriority[pr] = &volumeStats{}
	}
	bySource := map[string]*volumeStats{}
	byBucket := map[string]*volumeStats{}

	for _, row := range rows {
		resStr := etl.AsString(row["resolution_hours"])
		hasRes := resStr != ""
		res := etl.AsFloat(row["resolution_hours"])

		pr := etl.AsString(row["priority"])
		if st, ok := byPriority[pr]; ok {
			st.count++
			if hasRes {
				st.resolution = append(st.resolution, res)
			}
		}

		src := etl.AsString(row["source_system"])
		if bySource[src] == nil {
			bySource[src] = &volumeStats{}
		}
		bySource[src].count++
		if hasRes {
			bySource[src].resolution = append(bySource[src].resolution, res)
		}

		if hasRes {
			bucket := ResolutionBucket(res)
			if byBucket[bucket] == nil {
				byBucket[bucket] = &volumeStats{}
			}
			byBucket[bucket].count++
		}
	}

	var out []etl.Row
	for _, pr := range ValidPriorities {
		out = append(out, volumeRow("priority", pr, *byPriority[pr]))
	}
	for _, src := range sortedKeysVolume(bySource) {
		out = append(out, volumeRow("source_system", src, *bySource[src]))
	}
	for _, bucket := range []string{"<1h", "1-4h", "4-8h", "8-24h", "1-3d", ">3d"} {
		st, ok := byBucket[bucket]
		if !ok {
			continue
		}
		// Bucket membership already fixes the resolution range, so the
		// per-bucket averages stay blank.
		out = append(out, volumeRow("resolution_bucket", bucket, volumeStats{count: st.count}))
	}

	p.logger.Info("analyzed ticket volume",
		slog.Int("tickets", len(rows)),
		slog.Int("segments", len(out)))
	return etl.FrameFromRows(out)
}

func sortedKeysVolume(m map[string]*volumeStats) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// WeeklyVolume counts tickets created per ISO week.
func WeeklyVolume(tickets dataframe.DataFrame) dataframe.DataFrame {
	counts := map[string]int{}
	for _, row := range tickets.Maps() {
		ts, err := time.Parse(time.RFC3339, etl.AsString(row["created_at"]))
		if err != nil {
			continue
		}
		year, week := ts.ISOWeek()
		counts[fmt.Sprintf("%d-W%02d", year, week)]++
	}
	weeks := make([]string, 0, len(counts))
	for w := range counts {
		weeks = append(weeks, w)
	}
	sort.Strings(weeks)
	out := make([]etl.Row, 0, len(weeks))
	for _, w := range weeks {
		out = append(out, etl.Row{"week": w, "tickets": counts[w]})
	}
	return etl.FrameFromRows(out)
}
