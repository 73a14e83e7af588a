package support

import (
	"log/slog"
	"math"
	"sort"

	"github.com/go-gota/gota/dataframe"

	"datapipe/internal/etl"
)

// NPSCategory places a 0-10 survey score into the standard NPS bands.
func NPSCategory(score float64) string {
	switch {
	case score >= 9:
		return "promoter"
	case score >= 7:
		return "passive"
	default:
		return "detractor"
	}
}

// ComputeNPS is promoter share minus detractor share on a -100..100
// scale.
func ComputeNPS(scores []float64) float64 {
	if len(scores) == 0 {
		return 0
	}
	var promoters, detractors int
	for _, s := range scores {
		switch NPSCategory(s) {
		case "promoter":
			promoters++
		case "detractor":
			detractors++
		}
	}
	n := float64(len(scores))
	return math.Round((float64(promoters)/n-float64(detractors)/n)*100*10) / 10
}

// CSATPercentage is the share of 1-5 ratings at 4 or above.
func CSATPercentage(scores []float64) float64 {
	if len(scores) == 0 {
		return 0
	}
	var satisfied int
	for _, s := range scores {
		if s >= 4 {
			satisfied++
		}
	}
	return math.Round(float64(satisfied)/float64(len(scores))*100*10) / 10
}

type satSegment struct {
	csat []float64
	nps  []float64
}

// MeasureSatisfaction summarizes CSAT and NPS overall and broken out by
// priority, team and source system. Tickets without a csat_score are
// excluded from the response count.
func (p *Pipeline) MeasureSatisfaction(tickets dataframe.DataFrame) dataframe.DataFrame {
	overall := &satSegment{}
	dims := map[string]map[string]*satSegment{
		"priority":      {},
		"team":          {},
		"source_system": {},
	}
	for _, row := range tickets.Maps() {
		if etl.AsString(row["csat_score"]) == "" {
			continue
		}
		csat := etl.AsFloat(row["csat_score"])
		overall.csat = append(overall.csat, csat)
		var nps float64
		hasNPS := etl.AsString(row["nps_score"]) != ""
		if hasNPS {
			nps = etl.AsFloat(row["nps_score"])
			overall.nps = append(overall.nps, nps)
		}
		for dim, segments := range dims {
			value := etl.AsString(row[dim])
			if value == "" {
				continue
			}
			seg := segments[value]
			if seg == nil {
				seg = &satSegment{}
				segments[value] = seg
			}
			seg.csat = append(seg.csat, csat)
			if hasNPS {
				seg.nps = append(seg.nps, nps)
			}
		}
	}

	out := []etl.Row{satisfactionRow("overall", "all", overall)}
	for _, dim := range []string{"priority", "team", "source_system"} {
		segments := dims[dim]
		keys := make([]string, 0, len(segments))
		for k := range segments {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			out = append(out, satisfactionRow(dim, k, segments[k]))
		}
	}
	p.logger.Info("measured satisfaction",
		slog.Int("responses", len(overall.csat)),
		slog.Float64("overall_csat_pct", CSATPercentage(overall.csat)))
	return etl.FrameFromRows(out)
}

func satisfactionRow(dimension, segment string, seg *satSegment) etl.Row {
	return etl.Row{
		"dimension":      dimension,
		"segment":        segment,
		"csat_pct":       CSATPercentage(seg.csat),
		"nps":            ComputeNPS(seg.nps),
		"response_count": len(seg.csat),
	}
}
