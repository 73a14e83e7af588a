package hr

import (
	"github.com/go-gota/gota/series"

	"datapipe/internal/schema"
)

// EmployeeSchema validates normalized employee records from HRIS exports.
var EmployeeSchema = schema.Schema{
	Name: "employees",
	Columns: []schema.Column{
		{Name: "employee_id", Type: series.String, Checks: []schema.Check{schema.StrMatches(`^EMP\d{5,8}$`)}},
		{Name: "first_name", Type: series.String, Checks: []schema.Check{schema.StrLength(1, 100)}},
		{Name: "last_name", Type: series.String, Checks: []schema.Check{schema.StrLength(1, 100)}},
		{Name: "email", Type: series.String, Checks: []schema.Check{schema.StrMatches(`^[\w.+-]+@[\w-]+\.[\w.]+$`)}},
		{Name: "hire_date", Type: series.String},
		{Name: "termination_date", Type: series.String, Nullable: true},
		{Name: "department", Type: series.String},
		{Name: "job_title", Type: series.String},
		{Name: "employment_type", Type: series.String, Checks: []schema.Check{
			schema.IsIn("full_time", "part_time", "contractor", "intern", "temp")}},
		{Name: "base_salary", Type: series.Float, Checks: []schema.Check{schema.Ge(0)}},
		{Name: "currency", Type: series.String, Checks: []schema.Check{schema.StrLength(3, 3)}},
		{Name: "manager_id", Type: series.String, Nullable: true},
		{Name: "location", Type: series.String},
	},
}

// HeadcountSchema validates point-in-time headcount snapshots.
var HeadcountSchema = schema.Schema{
	Name: "headcount",
	Columns: []schema.Column{
		{Name: "snapshot_date", Type: series.String},
		{Name: "department", Type: series.String},
		{Name: "headcount", Type: series.Int, Checks: []schema.Check{schema.Ge(0)}},
		{Name: "fte_count", Type: series.Float, Checks: []schema.Check{schema.Ge(0)}},
		{Name: "contractor_count", Type: series.Int, Checks: []schema.Check{schema.Ge(0)}},
		{Name: "open_reqs", Type: series.Int, Checks: []schema.Check{schema.Ge(0)}},
	},
}

// CompensationSchema validates the salary band analysis output.
var CompensationSchema = schema.Schema{
	Name: "compensation",
	Columns: []schema.Column{
		{Name: "band", Type: series.String},
		{Name: "level", Type: series.String},
		{Name: "min_salary", Type: series.Float, Checks: []schema.Check{schema.Gt(0)}},
		{Name: "median_salary", Type: series.Float, Checks: []schema.Check{schema.Gt(0)}},
		{Name: "max_salary", Type: series.Float, Checks: []schema.Check{schema.Gt(0)}},
		{Name: "employee_count", Type: series.Int, Checks: []schema.Check{schema.Ge(0)}},
		{Name: "compa_ratio_mean", Type: series.Float, Checks: []schema.Check{schema.InRange(0.5, 2.0)}},
	},
}

// RecruitingSchema validates recruiting funnel metrics.
var RecruitingSchema = schema.Schema{
	Name: "recruiting",
	Columns: []schema.Column{
		{Name: "department", Type: series.String},
		{Name: "source", Type: series.String},
		{Name: "stage", Type: series.String, Checks: []schema.Check{
			schema.IsIn("applied", "phone_screen", "onsite", "offer", "hired")}},
		{Name: "candidates", Type: series.Int, Checks: []schema.Check{schema.Ge(0)}},
		{Name: "conversion_rate", Type: series.Float, Checks: []schema.Check{schema.InRange(0, 1)}},
	},
}

// SchemaRegistry maps dataset names to their schemas.
var SchemaRegistry = map[string]schema.Schema{
	"employees":    EmployeeSchema,
	"headcount":    HeadcountSchema,
	"compensation": CompensationSchema,
	"recruiting":   RecruitingSchema,
}
