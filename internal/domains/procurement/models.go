package procurement

import (
	"github.com/go-gota/gota/series"

	"datapipe/internal/schema"
)

// ValidStatuses are the canonical purchase order lifecycle states.
var ValidStatuses = []string{"open", "partially_received", "fully_received", "closed", "cancelled"}

// ValidTiers are the vendor scoring tiers, best first.
var ValidTiers = []string{"preferred", "approved", "conditional", "probation", "blocked"}

// ProcurementSchema validates normalized procurement records.
var ProcurementSchema = schema.Schema{
	Name: "procurement",
	Columns: []schema.Column{
		{Name: "po_number", Type: series.String, Unique: true, Checks: []schema.Check{schema.StrMatches(`^PO-\d{6,10}$`)}},
		{Name: "vendor_id", Type: series.String, Checks: []schema.Check{schema.StrLength(3, 20)}},
		{Name: "po_date", Type: series.String, Checks: []schema.Check{schema.StrMatches(`^\d{4}-\d{2}-\d{2}$`)}},
		{Name: "delivery_date", Type: series.String, Nullable: true},
		{Name: "amount_clean", Type: series.Float, Checks: []schema.Check{schema.Gt(0), schema.Le(10_000_000)}},
		{Name: "category_normalized", Type: series.String, Nullable: true},
		{Name: "department", Type: series.String, Nullable: true},
		{Name: "status", Type: series.String, Checks: []schema.Check{schema.IsIn(ValidStatuses...)}},
		{Name: "approved_by", Type: series.String, Nullable: true},
		{Name: "approval_status", Type: series.String, Nullable: true, Checks: []schema.Check{
			schema.IsIn("approved", "rejected", "pending")}},
	},
}

// VendorScoreSchema validates the vendor scoring report.
var VendorScoreSchema = schema.Schema{
	Name: "vendor_scores",
	Columns: []schema.Column{
		{Name: "vendor_id", Type: series.String, Unique: true},
		{Name: "composite_score", Type: series.Float, Checks: []schema.Check{schema.InRange(0, 1)}},
		{Name: "tier", Type: series.String, Checks: []schema.Check{schema.IsIn(ValidTiers...)}},
	},
}

// SpendCategorySchema validates the category spend summary.
var SpendCategorySchema = schema.Schema{
	Name: "spend_by_category",
	Columns: []schema.Column{
		{Name: "category", Type: series.String},
		{Name: "total_spend", Type: series.Float, Checks: []schema.Check{schema.Ge(0)}},
		{Name: "transaction_count", Type: series.Int, Checks: []schema.Check{schema.Gt(0)}},
		{Name: "utilization_pct", Type: series.Float},
	},
}

// SchemaRegistry maps dataset names to their schemas.
var SchemaRegistry = map[string]schema.Schema{
	"procurement":       ProcurementSchema,
	"vendor_scores":     VendorScoreSchema,
	"spend_by_category": SpendCategorySchema,
}
