package hr

import (
	"context"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-gota/gota/dataframe"

	"datapipe/internal/etl"
)

// canonicalDepartments folds the many spellings HRIS exports carry into
// the reporting department names.
var canonicalDepartments = map[string]string{
	"eng":         "Engineering",
	"engineering": "Engineering",
	"product":     "Product",
	"prod":        "Product",
	"sales":       "Sales",
	"revenue":     "Sales",
	"hr":          "People",
	"people":      "People",
	"people ops":  "People",
	"finance":     "Finance",
	"fin":         "Finance",
	"marketing":   "Marketing",
	"mktg":        "Marketing",
	"legal":       "Legal",
	"ops":         "Operations",
	"operations":  "Operations",
}

var nonNumeric = regexp.MustCompile(`[^\d.]`)

// ClassifyEmploymentType maps raw employment type strings to the
// canonical values. Unknown strings default to full_time.
func (p *Pipeline) ClassifyEmploymentType(raw string) string {
	normalized := strings.TrimSpace(strings.ToLower(raw))
	normalized = strings.ReplaceAll(normalized, "-", "_")
	normalized = strings.ReplaceAll(normalized, " ", "_")
	switch normalized {
	case "full_time", "ft", "regular", "permanent":
		return "full_time"
	case "part_time", "pt", "reduced_hours":
		return "part_time"
	case "contractor", "contract", "c2c", "1099", "vendor":
		return "contractor"
	case "intern", "internship", "co_op", "coop":
		return "intern"
	case "temp", "temporary", "seasonal":
		return "temp"
	default:
		p.logger.Warn("unknown employment type, defaulting to full_time",
			slog.String("raw", raw))
		return "full_time"
	}
}

func normalizeName(name string) string {
	fields := strings.Fields(strings.ToLower(strings.TrimSpace(name)))
	for i, f := range fields {
		fields[i] = strings.ToUpper(f[:1]) + f[1:]
	}
	return strings.Join(fields, " ")
}

func normalizeDepartment(raw string) string {
	if canonical, ok := canonicalDepartments[strings.ToLower(strings.TrimSpace(raw))]; ok {
		return canonical
	}
	return raw
}

// parseSalary strips currency symbols and thousands separators.
func parseSalary(raw string) float64 {
	cleaned := nonNumeric.ReplaceAllString(raw, "")
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0
	}
	return v
}

// parseDate normalizes a raw date cell to YYYY-MM-DD, or "" when it
// cannot be parsed.
func parseDate(raw string) string {
	for _, layout := range []string{"2006-01-02", "01/02/2006", time.RFC3339} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.Format("2006-01-02")
		}
	}
	return ""
}

// NormalizeEmployeeRecords applies all cleaning steps to raw HRIS rows:
// department canonicalization, employment type classification, name
// cleanup, date parsing, salary parsing, and derived activity/tenure.
func (p *Pipeline) NormalizeEmployeeRecords(ctx context.Context, raw dataframe.DataFrame) dataframe.DataFrame {
	now := time.Now().UTC()
	rows := raw.Maps()
	for _, row := range rows {
		row["department"] = normalizeDepartment(etl.AsString(row["department"]))
		row["employment_type"] = p.ClassifyEmploymentType(etl.AsString(row["employment_type"]))
		row["first_name"] = normalizeName(etl.AsString(row["first_name"]))
		row["last_name"] = normalizeName(etl.AsString(row["last_name"]))
		row["hire_date"] = parseDate(etl.AsString(row["hire_date"]))
		row["termination_date"] = parseDate(etl.AsString(row["termination_date"]))
		row["is_active"] = etl.AsString(row["termination_date"]) == ""
		row["base_salary"] = parseSalary(etl.AsString(row["base_salary"]))

		tenure := ""
		if hired, err := time.Parse("2006-01-02", etl.AsString(row["hire_date"])); err == nil {
			tenure = strconv.Itoa(int(now.Sub(hired).Hours() / 24))
		}
		row["tenure_days"] = tenure
	}

	p.logger.InfoContext(ctx, "normalized employee records", slog.Int("employees", len(rows)))
	return etl.FrameFromRows(rows)
}
