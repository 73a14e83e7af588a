package quality

import (
	"log/slog"
	"math"
	"sort"
	"strings"

	"github.com/go-gota/gota/dataframe"

	"datapipe/internal/etl"
)

// resultWeights score each disposition for the lot quality mix.
var resultWeights = map[string]float64{
	"accept": 1.0,
	"reject": 0.0,
	"hold":   0.5,
	"rework": 0.3,
}

// DispositionScore is the weighted average disposition of a group of
// inspections, 1.0 meaning everything was accepted outright.
func DispositionScore(dispositions []string) float64 {
	if len(dispositions) == 0 {
		return 0
	}
	var total float64
	for _, d := range dispositions {
		total += resultWeights[d]
	}
	return math.Round(total/float64(len(dispositions))*10000) / 10000
}

type lotAgg struct {
	plantID      string
	inspected    int
	defects      int
	inspections  int
	dispositions []string
}

type lineAgg struct {
	lots         map[string]bool
	rateSum      float64
	rows         int
	dispositions []string
}

// TrackInspectionResults rolls inspections up into lot-level rows and,
// where line data exists, line-level trend rows in the same frame. Lots
// without an explicit lot id are keyed by part number and date.
func (p *Pipeline) TrackInspectionResults(df dataframe.DataFrame) dataframe.DataFrame {
	lots := map[string]*lotAgg{}
	lines := map[string]*lineAgg{}
	for _, row := range df.Maps() {
		lotID := etl.AsString(row["lot_id"])
		if lotID == "" {
			lotID = etl.AsString(row["part_number"]) + "-" +
				strings.ReplaceAll(etl.AsString(row["inspection_date"]), "-", "")
		}
		disposition := etl.AsString(row["disposition"])

		l := lots[lotID]
		if l == nil {
			l = &lotAgg{plantID: etl.AsString(row["plant_id"])}
			lots[lotID] = l
		}
		l.inspected += etl.AsInt(row["sample_size"])
		l.defects += etl.AsInt(row["defect_count"])
		l.inspections++
		l.dispositions = append(l.dispositions, disposition)

		if lineID := etl.AsString(row["line_id"]); lineID != "" {
			ln := lines[lineID]
			if ln == nil {
				ln = &lineAgg{lots: map[string]bool{}}
				lines[lineID] = ln
			}
			ln.lots[lotID] = true
			ln.rateSum += etl.AsFloat(row["defect_rate"])
			ln.rows++
			ln.dispositions = append(ln.dispositions, disposition)
		}
	}

	lotIDs := make([]string, 0, len(lots))
	for id := range lots {
		lotIDs = append(lotIDs, id)
	}
	sort.Strings(lotIDs)

	var out []etl.Row
	for _, lotID := range lotIDs {
		l := lots[lotID]
		rate := 0.0
		if l.inspected > 0 {
			rate = float64(l.defects) / float64(l.inspected)
		}
		out = append(out, etl.Row{
			"aggregation_level": "lot",
			"lot_id":            lotID,
			"line_id":           "",
			"plant_id":          l.plantID,
			"total_inspected":   l.inspected,
			"total_defects":     l.defects,
			"defect_rate":       math.Round(rate*1000000) / 1000000,
			"inspections":       l.inspections,
			"total_lots":        "",
			"avg_defect_rate":   "",
			"disposition_score": DispositionScore(l.dispositions),
		})
	}

	lineIDs := make([]string, 0, len(lines))
	for id := range lines {
		lineIDs = append(lineIDs, id)
	}
	sort.Strings(lineIDs)
	for _, lineID := range lineIDs {
		ln := lines[lineID]
		out = append(out, etl.Row{
			"aggregation_level": "line",
			"lot_id":            "",
			"line_id":           lineID,
			"plant_id":          "",
			"total_inspected":   "",
			"total_defects":     "",
			"defect_rate":       "",
			"inspections":       "",
			"total_lots":        len(ln.lots),
			"avg_defect_rate":   math.Round(ln.rateSum/float64(ln.rows)*1000000) / 1000000,
			"disposition_score": DispositionScore(ln.dispositions),
		})
	}

	p.logger.Info("tracked inspection results",
		slog.Int("lots", len(lotIDs)), slog.Int("lines", len(lineIDs)))
	return etl.FrameFromRows(out)
}
