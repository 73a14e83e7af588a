package marketing

import (
	"context"
	"log/slog"
	"math"

	"github.com/go-gota/gota/dataframe"

	"datapipe/internal/etl"
)

// funnelStages in order from first touch to purchase.
var funnelStages = []string{
	"impression",
	"click",
	"landing_page_view",
	"signup",
	"activation",
	"purchase",
}

// StageIndex returns the ordinal position of a funnel stage, or -1 for
// unrecognized stages.
func StageIndex(stage string) int {
	switch stage {
	case "impression":
		return 0
	case "click":
		return 1
	case "landing_page_view", "page_view":
		return 2
	case "signup", "registration":
		return 3
	case "activation", "trial_start":
		return 4
	case "purchase", "conversion":
		return 5
	default:
		return -1
	}
}

// AnalyzeConversionFunnel builds a stage-by-stage drop-off report from
// user events. Each input row is one event with user_id and stage
// columns; a user counts toward every stage up to the furthest they
// reached. An empty channelFilter processes all channels.
func (p *Pipeline) AnalyzeConversionFunnel(ctx context.Context, events dataframe.DataFrame, channelFilter string) dataframe.DataFrame {
	maxStage := map[string]int{}
	for _, row := range events.Maps() {
		if channelFilter != "" && etl.AsString(row["channel"]) != channelFilter {
			continue
		}
		idx := StageIndex(etl.AsString(row["stage"]))
		if idx < 0 {
			p.logger.WarnContext(ctx, "unrecognized funnel stage",
				slog.String("stage", etl.AsString(row["stage"])))
			continue
		}
		user := etl.AsString(row["user_id"])
		if current, ok := maxStage[user]; !ok || idx > current {
			maxStage[user] = idx
		}
	}

	totalUsers := len(maxStage)
	r4 := func(v float64) float64 { return math.Round(v*10000) / 10000 }

	out := make([]etl.Row, 0, len(funnelStages))
	prevCount := totalUsers
	for idx, stage := range funnelStages {
		count := 0
		for _, max := range maxStage {
			if max >= idx {
				count++
			}
		}

		dropOff, dropOffRate, convRate := 0, 0.0, 0.0
		if prevCount > 0 {
			dropOff = prevCount - count
			convRate = float64(count) / float64(prevCount)
			dropOffRate = r4(1 - convRate)
		}
		pctOfTotal := 0.0
		if totalUsers > 0 {
			pctOfTotal = r4(float64(count) / float64(totalUsers))
		}
		out = append(out, etl.Row{
			"stage":           stage,
			"stage_index":     idx,
			"count":           count,
			"drop_off":        dropOff,
			"drop_off_rate":   dropOffRate,
			"conversion_rate": r4(convRate),
			"pct_of_total":    pctOfTotal,
		})
		prevCount = count
	}

	if totalUsers > 0 {
		top := etl.AsInt(out[0]["count"])
		bottom := etl.AsInt(out[len(out)-1]["count"])
		overall := 0.0
		if top > 0 {
			overall = float64(bottom) / float64(top)
		}
		p.logger.InfoContext(ctx, "funnel conversion",
			slog.Float64("overall_rate", overall),
			slog.Int("top", top),
			slog.Int("bottom", bottom))
	}
	return etl.FrameFromRows(out)
}
