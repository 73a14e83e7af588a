package quality

import (
	"github.com/go-gota/gota/series"

	"datapipe/internal/schema"
)

// ValidDispositions are the canonical inspection lot dispositions.
var ValidDispositions = []string{"accept", "reject", "hold", "rework"}

// ValidSeverities order finding and lot severity from worst to least.
var ValidSeverities = []string{"critical", "major", "minor", "observation"}

// InspectionSchema validates normalized inspection records.
var InspectionSchema = schema.Schema{
	Name: "inspections",
	Columns: []schema.Column{
		{Name: "inspection_id", Type: series.String, Unique: true, Checks: []schema.Check{schema.StrLength(5, 0)}},
		{Name: "inspection_date", Type: series.String, Checks: []schema.Check{schema.StrMatches(`^\d{4}-\d{2}-\d{2}$`)}},
		{Name: "plant_id", Type: series.String, Checks: []schema.Check{schema.StrLength(1, 0)}},
		{Name: "part_number", Type: series.String, Checks: []schema.Check{schema.StrMatches(`^[A-Z0-9\-]+$`)}},
		{Name: "sample_size", Type: series.Int, Checks: []schema.Check{schema.Ge(1)}},
		{Name: "defect_count", Type: series.Int, Checks: []schema.Check{schema.Ge(0)}},
		{Name: "disposition", Type: series.String, Checks: []schema.Check{schema.IsIn(ValidDispositions...)}},
		{Name: "defect_rate", Type: series.Float, Checks: []schema.Check{schema.InRange(0, 1)}},
		{Name: "severity", Type: series.String, Checks: []schema.Check{schema.IsIn(ValidSeverities...)}},
		{Name: "source", Type: series.String, Nullable: true, Checks: []schema.Check{schema.IsIn("mes", "manual")}},
	},
}

// DefectSchema validates the per-plant Pareto rows of the defect trend
// report.
var DefectSchema = schema.Schema{
	Name: "defects",
	Columns: []schema.Column{
		{Name: "plant_id", Type: series.String, Checks: []schema.Check{schema.StrLength(1, 0)}},
		{Name: "defect_code", Type: series.String, Nullable: true},
		{Name: "count", Type: series.Int, Nullable: true, Checks: []schema.Check{schema.Ge(0)}},
		{Name: "cumulative_pct", Type: series.Float, Nullable: true, Checks: []schema.Check{schema.InRange(0, 1)}},
	},
}

// NCRSchema validates combined non-conformance report records.
var NCRSchema = schema.Schema{
	Name: "ncr",
	Columns: []schema.Column{
		{Name: "ncr_id", Type: series.String, Unique: true, Checks: []schema.Check{schema.StrLength(6, 0)}},
		{Name: "status", Type: series.String, Checks: []schema.Check{schema.IsIn("open", "investigating", "pending_review", "closed", "voided")}},
		{Name: "created_date", Type: series.String, Checks: []schema.Check{schema.StrMatches(`^\d{4}-\d{2}-\d{2}$`)}},
		{Name: "ncr_source", Type: series.String, Checks: []schema.Check{schema.IsIn("incoming", "in_process", "final", "customer")}},
	},
}

// AuditFindingSchema validates enriched audit findings.
var AuditFindingSchema = schema.Schema{
	Name: "audit_findings",
	Columns: []schema.Column{
		{Name: "audit_code", Type: series.String, Checks: []schema.Check{schema.StrLength(1, 0)}},
		{Name: "finding_type", Type: series.String, Checks: []schema.Check{schema.IsIn("nonconformity", "observation", "opportunity")}},
		{Name: "audit_type", Type: series.String, Checks: []schema.Check{schema.IsIn("internal", "external", "supplier", "regulatory")}},
		{Name: "severity", Type: series.String, Checks: []schema.Check{schema.IsIn(ValidSeverities...)}},
		{Name: "plant_id", Type: series.String, Checks: []schema.Check{schema.StrLength(1, 0)}},
	},
}

// SchemaRegistry maps dataset names to their schemas.
var SchemaRegistry = map[string]schema.Schema{
	"inspection":    InspectionSchema,
	"defect":        DefectSchema,
	"ncr":           NCRSchema,
	"audit_finding": AuditFindingSchema,
}
