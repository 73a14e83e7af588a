package quality

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-gota/gota/dataframe"

	"datapipe/internal/errors"
	"datapipe/internal/etl"
)

// effectivenessThresholds tier the defect rate reduction achieved by a
// closed corrective action.
var effectivenessThresholds = []struct {
	label string
	min   float64
}{
	{"highly_effective", 0.80},
	{"effective", 0.50},
	{"partially_effective", 0.25},
}

// ClassifyCAPAType determines the action type from the triggering
// event source and severity.
func ClassifyCAPAType(sourceType, severity string) string {
	source := strings.ToLower(sourceType)
	sev := strings.ToLower(severity)
	switch {
	case (source == "ncr" || source == "customer_complaint") && sev == "critical":
		return "corrective_immediate"
	case (source == "ncr" || source == "audit") && sev == "major":
		return "corrective_standard"
	case source == "audit" && sev == "critical", source == "regulatory":
		return "corrective_regulatory"
	case source == "trend", source == "risk_assessment":
		return "preventive"
	case sev == "minor", sev == "observation":
		return "improvement"
	default:
		return "corrective_standard"
	}
}

// EvaluateEffectiveness rates a corrective action by the defect rate
// reduction between the pre and post measurement windows.
func EvaluateEffectiveness(preRate, postRate float64) string {
	if preRate == 0 {
		return "not_applicable"
	}
	reduction := (preRate - postRate) / preRate
	for _, tier := range effectivenessThresholds {
		if reduction >= tier.min {
			return tier.label
		}
	}
	return "ineffective"
}

// TrackCAPAStatus loads the CAPA register and enriches it with action
// type, overdue flags against the target close date, and an
// effectiveness rating for closed actions with pre/post defect rates.
// A missing register yields an empty report.
func (p *Pipeline) TrackCAPAStatus(ctx context.Context, asOf time.Time) (dataframe.DataFrame, error) {
	raw, err := p.reader.ReadParquet(ctx, filepath.Join(p.dataDir, "quality", "capa_register.parquet"))
	if err != nil {
		if !errors.IsCode(err, errors.CodeSourceNotFound) {
			return dataframe.DataFrame{}, err
		}
		p.logger.Warn("CAPA register missing")
		return dataframe.DataFrame{}, nil
	}

	overdue := 0
	var out []etl.Row
	for _, row := range raw.Maps() {
		status := etl.AsString(row["status"])
		row["capa_type"] = ClassifyCAPAType(etl.AsString(row["source_type"]), etl.AsString(row["severity"]))

		isOverdue := false
		daysOverdue := 0
		if target, err := time.Parse("2006-01-02", etl.AsString(row["target_close_date"])); err == nil {
			if status != "closed" && target.Before(asOf) {
				isOverdue = true
				daysOverdue = int(asOf.Sub(target).Hours() / 24)
			}
		}
		row["is_overdue"] = isOverdue
		row["days_overdue"] = daysOverdue
		if isOverdue {
			overdue++
		}

		effectiveness := "pending"
		if status == "closed" && etl.AsString(row["pre_defect_rate"]) != "" {
			pre := etl.AsFloat(row["pre_defect_rate"])
			post := pre
			if etl.AsString(row["post_defect_rate"]) != "" {
				post = etl.AsFloat(row["post_defect_rate"])
			}
			effectiveness = EvaluateEffectiveness(pre, post)
		}
		row["effectiveness"] = effectiveness
		out = append(out, row)
	}

	p.logger.Info("tracked corrective actions",
		slog.Int("total", len(out)), slog.Int("overdue", overdue))
	return etl.FrameFromRows(out), nil
}
