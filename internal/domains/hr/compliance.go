package hr

import (
	"context"
	"log/slog"
	"math"
	"sort"
	"strings"

	"github.com/go-gota/gota/dataframe"

	"datapipe/internal/etl"
)

// MapEEOCategory maps a job title and compensation level to an EEO-1
// job category.
func MapEEOCategory(jobTitle, level string) string {
	title := strings.ToLower(jobTitle)
	switch {
	case level == "VP" || level == "D1" || level == "C-Suite":
		return "Executive/Senior Officials"
	case level == "M1" || level == "M2":
		return "First/Mid-Level Officials"
	case strings.Contains(title, "engineer") || strings.Contains(title, "scientist") || strings.Contains(title, "analyst"):
		return "Professionals"
	case strings.Contains(title, "technician") || strings.Contains(title, "support"):
		return "Technicians"
	case strings.Contains(title, "sales") || strings.Contains(title, "account"):
		return "Sales Workers"
	case strings.Contains(title, "admin") || strings.Contains(title, "coordinator") || strings.Contains(title, "assistant"):
		return "Administrative Support"
	default:
		return "Professionals"
	}
}

// GenerateEEOReport produces an EEO-1 style workforce breakdown. Each
// available demographic column (gender, ethnicity, location) contributes
// rows keyed by dimension name and value.
func (p *Pipeline) GenerateEEOReport(ctx context.Context, employees dataframe.DataFrame) dataframe.DataFrame {
	hasCol := map[string]bool{}
	for _, name := range employees.Names() {
		hasCol[name] = true
	}

	var active []etl.Row
	for _, row := range employees.Maps() {
		if etl.AsString(row["is_active"]) == "true" {
			active = append(active, row)
		}
	}

	type cell struct {
		category, dimension, value string
	}
	counts := map[cell]int{}
	for _, row := range active {
		category := etl.AsString(row["eeo_category"])
		if category == "" {
			category = MapEEOCategory(etl.AsString(row["job_title"]), ResolveLevel(etl.AsString(row["job_title"])))
		}
		for _, dim := range []string{"gender", "ethnicity", "location"} {
			if !hasCol[dim] {
				continue
			}
			counts[cell{category, dim, etl.AsString(row[dim])}]++
		}
	}
	if len(counts) == 0 {
		p.logger.WarnContext(ctx, "no demographic fields available for EEO reporting")
		return dataframe.DataFrame{}
	}

	cells := make([]cell, 0, len(counts))
	for c := range counts {
		cells = append(cells, c)
	}
	sort.Slice(cells, func(i, j int) bool {
		a, b := cells[i], cells[j]
		if a.category != b.category {
			return a.category < b.category
		}
		if a.dimension != b.dimension {
			return a.dimension < b.dimension
		}
		return a.value < b.value
	})

	totalActive := len(active)
	out := make([]etl.Row, 0, len(cells))
	for _, c := range cells {
		n := counts[c]
		out = append(out, etl.Row{
			"eeo_category": c.category,
			"dimension":    c.dimension,
			"value":        c.value,
			"count":        n,
			"total_active": totalActive,
			"percentage":   math.Round(float64(n)/float64(totalActive)*10000) / 100,
		})
	}

	p.logger.InfoContext(ctx, "generated EEO report", slog.Int("rows", len(out)))
	return etl.FrameFromRows(out)
}

// PayEquityAnalysis computes median pay ratios by gender within each
// compensation level. Returns an empty frame when the export carries no
// gender column.
func PayEquityAnalysis(employees dataframe.DataFrame) dataframe.DataFrame {
	hasGender := false
	for _, name := range employees.Names() {
		if name == "gender" {
			hasGender = true
			break
		}
	}
	if !hasGender {
		return dataframe.DataFrame{}
	}

	type group struct {
		level, gender string
	}
	salaries := map[group][]float64{}
	byLevel := map[string][]float64{}
	for _, row := range employees.Maps() {
		if etl.AsString(row["is_active"]) != "true" {
			continue
		}
		level := ResolveLevel(etl.AsString(row["job_title"]))
		salary := etl.AsFloat(row["base_salary"])
		byLevel[level] = append(byLevel[level], salary)
		g := group{level, etl.AsString(row["gender"])}
		salaries[g] = append(salaries[g], salary)
	}

	groups := make([]group, 0, len(salaries))
	for g := range salaries {
		groups = append(groups, g)
	}
	sort.Slice(groups, func(i, j int) bool {
		if groups[i].level != groups[j].level {
			return groups[i].level < groups[j].level
		}
		return groups[i].gender < groups[j].gender
	})

	out := make([]etl.Row, 0, len(groups))
	for _, g := range groups {
		sort.Float64s(byLevel[g.level])
		overall := median(byLevel[g.level])

		groupSalaries := salaries[g]
		sort.Float64s(groupSalaries)
		groupMedian := median(groupSalaries)

		ratio := 0.0
		if overall > 0 {
			ratio = math.Round(groupMedian/overall*10000) / 10000
		}
		out = append(out, etl.Row{
			"level":          g.level,
			"gender":         g.gender,
			"median_salary":  groupMedian,
			"overall_median": overall,
			"pay_ratio":      ratio,
			"count":          len(groupSalaries),
		})
	}
	return etl.FrameFromRows(out)
}
