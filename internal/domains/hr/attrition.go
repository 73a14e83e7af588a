package hr

import (
	"context"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/go-gota/gota/dataframe"

	"datapipe/internal/etl"
)

// BucketTenure groups tenure in days into standard reporting ranges.
func BucketTenure(days int) string {
	switch {
	case days < 90:
		return "0-3 months"
	case days < 365:
		return "3-12 months"
	case days < 730:
		return "1-2 years"
	case days < 1825:
		return "2-5 years"
	default:
		return "5+ years"
	}
}

// ComputeAttritionRates computes attrition by department and tenure
// bucket over the given period. Empty bounds default to the trailing
// year. Attrition rate is terminations over average headcount, where
// average headcount is approximated by employees overlapping the period.
func (p *Pipeline) ComputeAttritionRates(ctx context.Context, employees dataframe.DataFrame, periodStart, periodEnd string) dataframe.DataFrame {
	now := time.Now().UTC()
	if periodEnd == "" {
		periodEnd = now.Format("2006-01-02")
	}
	if periodStart == "" {
		periodStart = now.AddDate(-1, 0, 0).Format("2006-01-02")
	}

	rows := employees.Maps()

	type segment struct {
		dept, bucket string
	}
	terms := map[segment]int{}
	for _, row := range rows {
		termed := etl.AsString(row["termination_date"])
		if termed == "" || termed < periodStart || termed > periodEnd {
			continue
		}
		tenure := 0
		hired, err1 := time.Parse("2006-01-02", etl.AsString(row["hire_date"]))
		exited, err2 := time.Parse("2006-01-02", termed)
		if err1 == nil && err2 == nil {
			tenure = int(exited.Sub(hired).Hours() / 24)
		}
		seg := segment{etl.AsString(row["department"]), BucketTenure(tenure)}
		terms[seg]++
	}

	// Average headcount approximation per department.
	headcount := map[string]int{}
	for _, row := range rows {
		hired := etl.AsString(row["hire_date"])
		termed := etl.AsString(row["termination_date"])
		if hired == "" || hired > periodEnd {
			continue
		}
		if termed != "" && termed < periodStart {
			continue
		}
		headcount[etl.AsString(row["department"])]++
	}

	segments := make([]segment, 0, len(terms))
	for seg := range terms {
		segments = append(segments, seg)
	}
	sort.Slice(segments, func(i, j int) bool {
		if segments[i].dept != segments[j].dept {
			return segments[i].dept < segments[j].dept
		}
		return segments[i].bucket < segments[j].bucket
	})

	out := make([]etl.Row, 0, len(segments))
	for _, seg := range segments {
		avg := headcount[seg.dept]
		rate := 0.0
		if avg > 0 {
			rate = float64(terms[seg]) / float64(avg)
		}
		out = append(out, etl.Row{
			"department":     seg.dept,
			"tenure_bucket":  seg.bucket,
			"terminations":   terms[seg],
			"avg_headcount":  avg,
			"attrition_rate": math.Round(rate*10000) / 10000,
			"period_start":   periodStart,
			"period_end":     periodEnd,
		})
	}

	p.logger.InfoContext(ctx, "computed attrition", slog.Int("segments", len(out)))
	return etl.FrameFromRows(out)
}

// RegrettableAttrition flags terminations of employees tagged as high
// performers, summarized by department.
func RegrettableAttrition(employees dataframe.DataFrame, highPerformers map[string]bool) dataframe.DataFrame {
	type agg struct {
		total, regrettable int
	}
	byDept := map[string]*agg{}
	for _, row := range employees.Maps() {
		if etl.AsString(row["termination_date"]) == "" {
			continue
		}
		dept := etl.AsString(row["department"])
		b, ok := byDept[dept]
		if !ok {
			b = &agg{}
			byDept[dept] = b
		}
		b.total++
		if highPerformers[etl.AsString(row["employee_id"])] {
			b.regrettable++
		}
	}

	depts := make([]string, 0, len(byDept))
	for dept := range byDept {
		depts = append(depts, dept)
	}
	sort.Strings(depts)

	out := make([]etl.Row, 0, len(depts))
	for _, dept := range depts {
		b := byDept[dept]
		out = append(out, etl.Row{
			"department":        dept,
			"total_terms":       b.total,
			"regrettable_terms": b.regrettable,
			"regrettable_pct":   math.Round(float64(b.regrettable)/float64(b.total)*10000) / 10000,
		})
	}
	return etl.FrameFromRows(out)
}
