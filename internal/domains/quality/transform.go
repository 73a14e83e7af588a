package quality

import (
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/go-gota/gota/dataframe"

	"datapipe/internal/etl"
)

// legacyFieldMap renames columns from the old MES export layout.
var legacyFieldMap = map[string]string{
	"insp_id":       "inspection_id",
	"insp_date":     "inspection_date",
	"insp_type":     "inspection_type",
	"part_no":       "part_number",
	"disp":          "disposition",
	"op_id":         "operator_id",
	"qty_inspected": "sample_size",
	"qty_defective": "defect_count",
}

// NormalizeDisposition maps the disposition codes used across MES
// versions and paper forms onto the canonical set. The second return
// is false for unrecognized codes.
func NormalizeDisposition(raw string) (string, bool) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "A", "ACC", "ACCEPT", "PASS":
		return "accept", true
	case "R", "REJ", "REJECT", "FAIL":
		return "reject", true
	case "H", "HOLD", "QUARANTINE", "QH":
		return "hold", true
	case "RW", "REWORK", "REPROCESS":
		return "rework", true
	default:
		return "", false
	}
}

// ClassifySeverity tiers a lot by its defect rate.
func ClassifySeverity(defectRate float64) string {
	switch {
	case defectRate >= 0.10:
		return "critical"
	case defectRate >= 0.05:
		return "major"
	case defectRate >= 0.01:
		return "minor"
	default:
		return "observation"
	}
}

// parseInspectionDate accepts both plain dates and full timestamps and
// returns the record's calendar date.
func parseInspectionDate(raw string) (string, bool) {
	if _, err := time.Parse("2006-01-02", raw); err == nil {
		return raw, true
	}
	if ts, err := time.Parse(time.RFC3339, raw); err == nil {
		return ts.UTC().Format("2006-01-02"), true
	}
	return "", false
}

// NormalizeInspections cleans the combined inspection feeds: legacy
// column remapping, disposition canonicalization, defect rate and
// severity derivation, and integrity filters. Rows missing an
// inspection id or a parseable date are dropped, as are rows with a
// disposition code nobody recognizes.
func (p *Pipeline) NormalizeInspections(df dataframe.DataFrame) dataframe.DataFrame {
	dropped := 0
	var cleaned []etl.Row
	for _, row := range df.Maps() {
		for legacy, canonical := range legacyFieldMap {
			if v, ok := row[legacy]; ok {
				if _, exists := row[canonical]; !exists {
					row[canonical] = v
				}
			}
		}

		inspectionID := etl.AsString(row["inspection_id"])
		date, dateOK := parseInspectionDate(etl.AsString(row["inspection_date"]))
		if inspectionID == "" || !dateOK {
			dropped++
			continue
		}
		disposition, ok := NormalizeDisposition(etl.AsString(row["disposition"]))
		if !ok {
			p.logger.Warn("unknown disposition code, dropping record",
				slog.String("inspection", inspectionID),
				slog.String("code", etl.AsString(row["disposition"])))
			dropped++
			continue
		}

		sampleSize := etl.AsInt(row["sample_size"])
		defectCount := etl.AsInt(row["defect_count"])
		defectRate := 0.0
		if sampleSize > 0 {
			defectRate = float64(defectCount) / float64(sampleSize)
		}

		cleaned = append(cleaned, etl.Row{
			"inspection_id":   inspectionID,
			"inspection_date": date,
			"plant_id":        etl.AsString(row["plant_id"]),
			"line_id":         etl.AsString(row["line_id"]),
			"lot_id":          etl.AsString(row["lot_id"]),
			"part_number":     strings.ToUpper(etl.AsString(row["part_number"])),
			"inspection_type": etl.AsString(row["inspection_type"]),
			"operator_id":     etl.AsString(row["operator_id"]),
			"defect_code":     etl.AsString(row["defect_code"]),
			"sample_size":     sampleSize,
			"defect_count":    defectCount,
			"disposition":     disposition,
			"defect_rate":     defectRate,
			"severity":        ClassifySeverity(defectRate),
			"source":          etl.AsString(row["source"]),
		})
	}
	sort.SliceStable(cleaned, func(i, j int) bool {
		return etl.AsString(cleaned[i]["inspection_date"]) < etl.AsString(cleaned[j]["inspection_date"])
	})
	if dropped > 0 {
		p.logger.Warn("dropped malformed inspection records", slog.Int("count", dropped))
	}
	return etl.FrameFromRows(cleaned)
}
