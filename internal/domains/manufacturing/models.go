package manufacturing

import (
	"github.com/go-gota/gota/series"

	"datapipe/internal/schema"
)

// ValidRecordTypes are the canonical MES record classifications.
var ValidRecordTypes = []string{"production", "scrap", "downtime", "maintenance", "quality_check", "unknown"}

// ValidDowntimeCategories are the downtime cause buckets.
var ValidDowntimeCategories = []string{"mechanical", "electrical", "process", "external", "other", "unclassified"}

// ValidSeverities tier downtime events by duration.
var ValidSeverities = []string{"micro_stop", "minor", "moderate", "major", "critical"}

// ProductionSchema validates normalized production records.
var ProductionSchema = schema.Schema{
	Name: "production",
	Columns: []schema.Column{
		{Name: "plant_id", Type: series.String, Checks: []schema.Check{schema.StrMatches(`^plant-\d{2}$`)}},
		{Name: "line_id", Type: series.String},
		{Name: "timestamp", Type: series.String},
		{Name: "record_type", Type: series.String, Checks: []schema.Check{schema.IsIn(ValidRecordTypes...)}},
		{Name: "record_code", Type: series.String, Nullable: true},
		{Name: "quantity", Type: series.Float, Checks: []schema.Check{schema.Ge(0)}},
		{Name: "quantity_normalized", Type: series.Float, Checks: []schema.Check{schema.Ge(0)}},
		{Name: "product_id", Type: series.String, Nullable: true},
	},
}

// DowntimeSchema validates the downtime analysis report.
var DowntimeSchema = schema.Schema{
	Name: "downtime",
	Columns: []schema.Column{
		{Name: "line_id", Type: series.String},
		{Name: "category", Type: series.String, Checks: []schema.Check{schema.IsIn(ValidDowntimeCategories...)}},
		{Name: "severity", Type: series.String, Checks: []schema.Check{schema.IsIn(ValidSeverities...)}},
		{Name: "event_count", Type: series.Int, Checks: []schema.Check{schema.Gt(0)}},
		{Name: "total_minutes", Type: series.Float, Checks: []schema.Check{schema.Ge(0)}},
		{Name: "avg_duration", Type: series.Float, Checks: []schema.Check{schema.Ge(0)}},
		{Name: "mtbf_hours", Type: series.Float, Checks: []schema.Check{schema.Ge(0)}},
	},
}

// SchemaRegistry maps dataset names to their schemas.
var SchemaRegistry = map[string]schema.Schema{
	"production": ProductionSchema,
	"downtime":   DowntimeSchema,
}
