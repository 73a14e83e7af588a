package marketing

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/go-gota/gota/dataframe"

	"datapipe/internal/etl"
)

const defaultHalfLifeDays = 7.0

// groupTouchpoints buckets touchpoint rows per conversion, each journey
// sorted by timestamp.
func groupTouchpoints(df dataframe.DataFrame) (map[string][]etl.Row, []string) {
	journeys := map[string][]etl.Row{}
	var order []string
	for _, row := range df.Maps() {
		id := etl.AsString(row["conversion_id"])
		if _, seen := journeys[id]; !seen {
			order = append(order, id)
		}
		journeys[id] = append(journeys[id], row)
	}
	sort.Strings(order)
	for _, journey := range journeys {
		etl.SortRows(journey, "timestamp")
	}
	return journeys, order
}

func lastClickCredits(journeys map[string][]etl.Row, order []string, reversed bool) []etl.Row {
	var out []etl.Row
	for _, id := range order {
		journey := journeys[id]
		for i, touch := range journey {
			winner := i == len(journey)-1
			if reversed {
				winner = i == 0
			}
			credit := 0.0
			if winner {
				credit = 1.0
			}
			out = append(out, creditedRow(touch, credit))
		}
	}
	return out
}

func linearCredits(journeys map[string][]etl.Row, order []string) []etl.Row {
	var out []etl.Row
	for _, id := range order {
		journey := journeys[id]
		credit := 1.0 / float64(len(journey))
		for _, touch := range journey {
			out = append(out, creditedRow(touch, credit))
		}
	}
	return out
}

// timeDecayCredits weights each touchpoint by recency with an
// exponential half-life measured against the journey's last touch.
func timeDecayCredits(journeys map[string][]etl.Row, order []string, halfLifeDays float64) []etl.Row {
	var out []etl.Row
	for _, id := range order {
		journey := journeys[id]

		var conversionTime time.Time
		times := make([]time.Time, len(journey))
		for i, touch := range journey {
			t, err := time.Parse(time.RFC3339, etl.AsString(touch["timestamp"]))
			if err == nil {
				times[i] = t
				if t.After(conversionTime) {
					conversionTime = t
				}
			}
		}

		weights := make([]float64, len(journey))
		var total float64
		for i := range journey {
			daysBefore := conversionTime.Sub(times[i]).Hours() / 24
			weights[i] = math.Exp(-math.Ln2 * daysBefore / halfLifeDays)
			total += weights[i]
		}
		for i, touch := range journey {
			credit := 0.0
			if total > 0 {
				credit = weights[i] / total
			}
			out = append(out, creditedRow(touch, credit))
		}
	}
	return out
}

func creditedRow(touch etl.Row, credit float64) etl.Row {
	return etl.Row{
		"conversion_id":      etl.AsString(touch["conversion_id"]),
		"channel":            etl.AsString(touch["channel"]),
		"timestamp":          etl.AsString(touch["timestamp"]),
		"revenue":            etl.AsFloat(touch["revenue"]),
		"attribution_credit": credit,
	}
}

// ComputeAttribution runs the selected attribution model over touchpoint
// data and summarizes credited revenue per channel. Supported models are
// last_click, first_click, linear, and time_decay.
func (p *Pipeline) ComputeAttribution(ctx context.Context, touchpoints dataframe.DataFrame, model string, halfLifeDays float64) (dataframe.DataFrame, error) {
	cols := map[string]bool{}
	for _, name := range touchpoints.Names() {
		cols[name] = true
	}
	for _, required := range []string{"conversion_id", "channel", "timestamp"} {
		if !cols[required] {
			return dataframe.DataFrame{}, fmt.Errorf("touchpoints missing column: %s", required)
		}
	}
	if halfLifeDays <= 0 {
		halfLifeDays = defaultHalfLifeDays
	}

	journeys, order := groupTouchpoints(touchpoints)

	var credited []etl.Row
	switch model {
	case "last_click":
		credited = lastClickCredits(journeys, order, false)
	case "first_click":
		credited = lastClickCredits(journeys, order, true)
	case "linear":
		credited = linearCredits(journeys, order)
	case "time_decay":
		credited = timeDecayCredits(journeys, order, halfLifeDays)
	default:
		return dataframe.DataFrame{}, fmt.Errorf("unsupported attribution model: %s", model)
	}

	type agg struct {
		credit, revenue float64
		touches         int
	}
	byChannel := map[string]*agg{}
	for _, row := range credited {
		ch := etl.AsString(row["channel"])
		b, ok := byChannel[ch]
		if !ok {
			b = &agg{}
			byChannel[ch] = b
		}
		credit := etl.AsFloat(row["attribution_credit"])
		b.credit += credit
		b.revenue += etl.AsFloat(row["revenue"]) * credit
		b.touches++
	}

	channels := make([]string, 0, len(byChannel))
	for ch := range byChannel {
		channels = append(channels, ch)
	}
	sort.Strings(channels)

	out := make([]etl.Row, 0, len(channels))
	for _, ch := range channels {
		b := byChannel[ch]
		out = append(out, etl.Row{
			"channel":            ch,
			"total_credit":       math.Round(b.credit*10000) / 10000,
			"attributed_revenue": math.Round(b.revenue*100) / 100,
			"touchpoints":        b.touches,
			"model":              model,
		})
	}

	p.logger.InfoContext(ctx, "computed attribution",
		slog.String("model", model),
		slog.Int("channels", len(out)))
	return etl.FrameFromRows(out), nil
}
