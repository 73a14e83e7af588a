package inventory

import (
	"github.com/go-gota/gota/series"

	"datapipe/internal/schema"
)

// InventorySchema validates the cleaned, normalized inventory feed.
var InventorySchema = schema.Schema{
	Name: "inventory",
	Columns: []schema.Column{
		{Name: "sku", Type: series.String, Checks: []schema.Check{schema.StrMatches(`^[A-Z0-9\-]{4,20}$`)}},
		{Name: "warehouse_id", Type: series.String},
		{Name: "quantity", Type: series.Float, Checks: []schema.Check{schema.Ge(0)}},
		{Name: "unit_cost", Type: series.Float, Nullable: true, Checks: []schema.Check{schema.Ge(0)}},
		{Name: "warehouse_type", Type: series.String, Checks: []schema.Check{
			schema.IsIn("distribution_center", "fulfillment", "cold_storage", "bulk")}},
		{Name: "unit_of_measure", Type: series.String, Nullable: true},
		{Name: "ingested_at", Type: series.String},
	},
}

// StockLevelSchema validates stock level snapshots.
var StockLevelSchema = schema.Schema{
	Name: "stock_levels",
	Columns: []schema.Column{
		{Name: "sku", Type: series.String},
		{Name: "warehouse_id", Type: series.String},
		{Name: "snapshot_date", Type: series.String},
		{Name: "quantity", Type: series.Float, Checks: []schema.Check{schema.Ge(0)}},
		{Name: "unit_cost", Type: series.Float, Nullable: true, Checks: []schema.Check{schema.Ge(0)}},
		{Name: "daily_demand", Type: series.Float, Nullable: true, Checks: []schema.Check{schema.Ge(0)}},
		{Name: "target_stock", Type: series.Float, Nullable: true, Checks: []schema.Check{schema.Ge(0)}},
		{Name: "low_stock", Type: series.Bool},
	},
}

// ReorderSchema validates reorder recommendations.
var ReorderSchema = schema.Schema{
	Name: "reorder",
	Columns: []schema.Column{
		{Name: "sku", Type: series.String},
		{Name: "warehouse_id", Type: series.String},
		{Name: "priority", Type: series.String, Checks: []schema.Check{
			schema.IsIn("critical", "high", "standard", "low")}},
		{Name: "suggested_qty", Type: series.Int, Checks: []schema.Check{schema.Ge(0)}},
		{Name: "reorder_point", Type: series.Float, Checks: []schema.Check{schema.Ge(0)}},
	},
}

// ShrinkageSchema validates shrinkage analysis output.
var ShrinkageSchema = schema.Schema{
	Name: "shrinkage",
	Columns: []schema.Column{
		{Name: "sku", Type: series.String},
		{Name: "warehouse_id", Type: series.String},
		{Name: "shrinkage_rate", Type: series.Float, Checks: []schema.Check{schema.InRange(0, 1)}},
		{Name: "probable_cause", Type: series.String, Checks: []schema.Check{
			schema.IsIn("theft", "damage", "admin_error", "vendor_fraud", "unknown")}},
		{Name: "flagged", Type: series.Bool},
	},
}

// SchemaRegistry maps dataset names to their schemas.
var SchemaRegistry = map[string]schema.Schema{
	"inventory":    InventorySchema,
	"stock_levels": StockLevelSchema,
	"reorder":      ReorderSchema,
	"shrinkage":    ShrinkageSchema,
}
