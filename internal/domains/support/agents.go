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

const reviewThreshold = 60.0

type agentStats struct {
	total      int
	weekly     map[string]int
	resolved   int
	reopened   int
	resolution []float64
}

func collectAgentStats(tickets dataframe.DataFrame) map[string]*agentStats {
	stats := map[string]*agentStats{}
	for _, row := range tickets.Maps() {
		agent := etl.AsString(row["agent_id"])
		if agent == "" {
			agent = "UNASSIGNED"
		}
		st := stats[agent]
		if st == nil {
			st = &agentStats{weekly: map[string]int{}}
			stats[agent] = st
		}
		st.total++
		if ts, err := time.Parse(time.RFC3339, etl.AsString(row["created_at"])); err == nil {
			year, week := ts.ISOWeek()
			st.weekly[fmt.Sprintf("%d-W%02d", year, week)]++
		}
		switch etl.AsString(row["status"]) {
		case "resolved":
			st.resolved++
		case "reopened":
			st.reopened++
		}
		if etl.AsString(row["resolution_hours"]) != "" {
			st.resolution = append(st.resolution, etl.AsFloat(row["resolution_hours"]))
		}
	}
	return stats
}

func weeklyLoad(weekly map[string]int) (avg, max, std float64) {
	if len(weekly) == 0 {
		return 0, 0, 0
	}
	var sum float64
	for _, n := range weekly {
		v := float64(n)
		sum += v
		if v > max {
			max = v
		}
	}
	avg = sum / float64(len(weekly))
	var variance float64
	for _, n := range weekly {
		d := float64(n) - avg
		variance += d * d
	}
	std = math.Sqrt(variance / float64(len(weekly)))
	return avg, max, std
}

// QualityScore derives a 0-100 agent score penalizing reopen rate and
// slow resolutions.
func QualityScore(reopened, resolved int, avgResolutionHrs float64) float64 {
	reopenRate := float64(reopened) / math.Max(float64(resolved), 1)
	score := 100 - reopenRate*50 - math.Min(avgResolutionHrs, 48)*0.5
	if score < 0 {
		return 0
	}
	return math.Round(score*10) / 10
}

// ComputeAgentMetrics rolls tickets up per agent, joins the roster for
// names and teams, and flags agents whose quality score needs review.
func (p *Pipeline) ComputeAgentMetrics(tickets, roster dataframe.DataFrame) dataframe.DataFrame {
	stats := collectAgentStats(tickets)
	rosterByID := map[string]etl.Row{}
	for _, row := range roster.Maps() {
		rosterByID[etl.AsString(row["agent_id"])] = row
	}

	agents := make([]string, 0, len(stats))
	for id := range stats {
		agents = append(agents, id)
	}
	sort.Strings(agents)

	flagged := 0
	out := make([]etl.Row, 0, len(agents))
	for _, id := range agents {
		st := stats[id]
		avgLoad, maxLoad, stdLoad := weeklyLoad(st.weekly)

		var avgRes float64
		if len(st.resolution) > 0 {
			var sum float64
			for _, v := range st.resolution {
				sum += v
			}
			avgRes = sum / float64(len(st.resolution))
		}
		score := QualityScore(st.reopened, st.resolved, avgRes)
		needsReview := score < reviewThreshold
		if needsReview {
			flagged++
		}

		name, team := "", ""
		if entry, ok := rosterByID[id]; ok {
			name = etl.AsString(entry["name"])
			team = etl.AsString(entry["team"])
		}
		out = append(out, etl.Row{
			"agent_id":           id,
			"name":               name,
			"team":               team,
			"total_tickets":      st.total,
			"avg_weekly_load":    math.Round(avgLoad*100) / 100,
			"max_weekly_load":    maxLoad,
			"std_weekly_load":    math.Round(stdLoad*100) / 100,
			"avg_resolution_hrs": math.Round(avgRes*100) / 100,
			"reopen_rate":        math.Round(float64(st.reopened)/math.Max(float64(st.resolved), 1)*10000) / 10000,
			"quality_score":      score,
			"needs_review":       needsReview,
		})
	}
	p.logger.Info("computed agent metrics",
		slog.Int("agents", len(out)),
		slog.Int("needs_review", flagged))
	return etl.FrameFromRows(out)
}
