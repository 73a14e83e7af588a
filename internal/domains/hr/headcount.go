package hr

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/go-gota/gota/dataframe"

	"datapipe/internal/etl"
)

// fteWeights converts an employment type to its FTE contribution.
var fteWeights = map[string]float64{
	"full_time":  1.0,
	"part_time":  0.5,
	"intern":     0.5,
	"contractor": 0.0,
	"temp":       0.75,
}

func fteWeight(employmentType string) float64 {
	if w, ok := fteWeights[employmentType]; ok {
		return w
	}
	return 1.0
}

// activeOn reports whether an employee row was active on the given date.
// Dates are YYYY-MM-DD strings, so lexical comparison is correct.
func activeOn(row etl.Row, date string) bool {
	hired := etl.AsString(row["hire_date"])
	termed := etl.AsString(row["termination_date"])
	if hired == "" || hired > date {
		return false
	}
	return termed == "" || termed > date
}

// monthStarts returns every first-of-month between from and to inclusive.
func monthStarts(from, to time.Time) []time.Time {
	cursor := time.Date(from.Year(), from.Month(), 1, 0, 0, 0, 0, time.UTC)
	var out []time.Time
	for !cursor.After(to) {
		out = append(out, cursor)
		cursor = cursor.AddDate(0, 1, 0)
	}
	return out
}

// BuildHeadcountSnapshot generates monthly headcount snapshots by
// department, one row per (snapshot_date, department).
func (p *Pipeline) BuildHeadcountSnapshot(ctx context.Context, employees dataframe.DataFrame) dataframe.DataFrame {
	rows := employees.Maps()

	earliest := ""
	for _, row := range rows {
		hired := etl.AsString(row["hire_date"])
		if hired != "" && (earliest == "" || hired < earliest) {
			earliest = hired
		}
	}
	if earliest == "" {
		return dataframe.DataFrame{}
	}
	start, err := time.Parse("2006-01-02", earliest)
	if err != nil {
		return dataframe.DataFrame{}
	}

	type agg struct {
		headcount, contractors int
		fte                    float64
	}

	var out []etl.Row
	snapshots := monthStarts(start, time.Now().UTC())
	for _, snap := range snapshots {
		date := snap.Format("2006-01-02")
		byDept := map[string]*agg{}
		for _, row := range rows {
			if !activeOn(row, date) {
				continue
			}
			dept := etl.AsString(row["department"])
			b, ok := byDept[dept]
			if !ok {
				b = &agg{}
				byDept[dept] = b
			}
			et := etl.AsString(row["employment_type"])
			b.headcount++
			b.fte += fteWeight(et)
			if et == "contractor" {
				b.contractors++
			}
		}

		depts := make([]string, 0, len(byDept))
		for dept := range byDept {
			depts = append(depts, dept)
		}
		sort.Strings(depts)
		for _, dept := range depts {
			b := byDept[dept]
			out = append(out, etl.Row{
				"snapshot_date":    date,
				"department":       dept,
				"headcount":        b.headcount,
				"fte_count":        b.fte,
				"contractor_count": b.contractors,
				// open_reqs is joined from the ATS feed downstream.
				"open_reqs": 0,
			})
		}
	}

	p.logger.InfoContext(ctx, "built headcount snapshots",
		slog.Int("rows", len(out)),
		slog.Int("months", len(snapshots)))
	return etl.FrameFromRows(out)
}

// HeadcountSummary reduces the snapshots to the latest month plus a
// company-wide total row for executive reporting.
func HeadcountSummary(snapshots dataframe.DataFrame) dataframe.DataFrame {
	rows := snapshots.Maps()
	latestDate := ""
	for _, row := range rows {
		if d := etl.AsString(row["snapshot_date"]); d > latestDate {
			latestDate = d
		}
	}

	var out []etl.Row
	total := etl.Row{
		"snapshot_date":    latestDate,
		"department":       "Total",
		"headcount":        0,
		"fte_count":        0.0,
		"contractor_count": 0,
		"open_reqs":        0,
	}
	for _, row := range rows {
		if etl.AsString(row["snapshot_date"]) != latestDate {
			continue
		}
		out = append(out, row)
		total["headcount"] = etl.AsInt(total["headcount"]) + etl.AsInt(row["headcount"])
		total["fte_count"] = etl.AsFloat(total["fte_count"]) + etl.AsFloat(row["fte_count"])
		total["contractor_count"] = etl.AsInt(total["contractor_count"]) + etl.AsInt(row["contractor_count"])
		total["open_reqs"] = etl.AsInt(total["open_reqs"]) + etl.AsInt(row["open_reqs"])
	}
	if len(out) == 0 {
		return dataframe.DataFrame{}
	}
	out = append(out, total)
	return etl.FrameFromRows(out)
}
