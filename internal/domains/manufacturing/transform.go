package manufacturing

import (
	"log/slog"
	"time"

	"github.com/go-gota/gota/dataframe"

	"datapipe/internal/etl"
)

// shiftHours maps shift names to [start, end) hours. The night shift
// wraps midnight.
var shiftHours = map[string][2]int{
	"morning":   {6, 14},
	"afternoon": {14, 22},
	"night":     {22, 6},
}

// ClassifyRecordType determines the canonical record type from raw MES
// codes.
func (p *Pipeline) ClassifyRecordType(recordCode string) string {
	switch recordCode {
	case "PR", "PROD":
		return "production"
	case "SC", "SCRAP", "REJ":
		return "scrap"
	case "DT", "DOWN":
		return "downtime"
	case "MT", "MAINT":
		return "maintenance"
	case "QC", "QUAL":
		return "quality_check"
	case "":
		p.logger.Warn("missing record code")
		return "unknown"
	default:
		p.logger.Warn("unrecognized record code", slog.String("code", recordCode))
		return "unknown"
	}
}

// NormalizeUnits converts quantity measurements to pieces. Conversion
// factors are rough equivalents for the current product mix.
func NormalizeUnits(value float64, unit string) float64 {
	switch unit {
	case "pieces", "pcs", "ea":
		return value
	case "kg":
		return value * 100
	case "liters", "l":
		return value * 50
	case "pallets":
		return value * 1200
	default:
		return value
	}
}

func inShift(hour int, shift string) bool {
	bounds, ok := shiftHours[shift]
	if !ok {
		return true
	}
	start, end := bounds[0], bounds[1]
	if start < end {
		return hour >= start && hour < end
	}
	return hour >= start || hour < end
}

// ResolveShift maps an hour of day to its shift name.
func ResolveShift(hour int) string {
	switch {
	case hour >= 6 && hour < 14:
		return "morning"
	case hour >= 14 && hour < 22:
		return "afternoon"
	default:
		return "night"
	}
}

// NormalizeProductionRecords classifies record types, converts units to
// pieces, drops rows missing a line or timestamp, dedupes repeated MES
// events and optionally filters to a single shift.
func (p *Pipeline) NormalizeProductionRecords(df dataframe.DataFrame, shift string) dataframe.DataFrame {
	rows := df.Maps()
	seen := map[string]bool{}
	out := make([]etl.Row, 0, len(rows))
	for _, row := range rows {
		lineID := etl.AsString(row["line_id"])
		timestamp := etl.AsString(row["timestamp"])
		ts, err := time.Parse(time.RFC3339, timestamp)
		if lineID == "" || err != nil {
			continue
		}
		plantID := etl.AsString(row["plant_id"])
		recordCode := etl.AsString(row["record_code"])
		key := plantID + "|" + lineID + "|" + timestamp + "|" + recordCode
		if seen[key] {
			continue
		}
		seen[key] = true

		if shift != "all" && !inShift(ts.UTC().Hour(), shift) {
			continue
		}
		quantity := etl.AsFloat(row["quantity"])
		unit := etl.AsString(row["unit"])
		if unit == "" {
			unit = "pieces"
		}
		out = append(out, etl.Row{
			"plant_id":            plantID,
			"line_id":             lineID,
			"timestamp":           timestamp,
			"record_type":         p.ClassifyRecordType(recordCode),
			"record_code":         recordCode,
			"quantity":            quantity,
			"quantity_normalized": NormalizeUnits(quantity, unit),
			"product_id":          etl.AsString(row["product_id"]),
			"reason":              etl.AsString(row["reason"]),
			"duration_min":        etl.AsFloat(row["duration_min"]),
			"cycle_time_sec":      etl.AsFloat(row["cycle_time_sec"]),
			"ingested_at":         etl.AsString(row["ingested_at"]),
		})
	}
	p.logger.Info("normalized production records",
		slog.Int("rows", len(out)), slog.String("shift", shift))
	return etl.FrameFromRows(out)
}
