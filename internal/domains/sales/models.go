package sales

import (
	"github.com/go-gota/gota/series"

	"datapipe/internal/schema"
)

// RawSalesSchema validates freshly ingested transactions. It is loose on
// purpose: source feeds leave optional fields empty and carry extra columns.
var RawSalesSchema = schema.Schema{
	Name: "raw_sales",
	Columns: []schema.Column{
		{Name: "transaction_id", Type: series.String, Checks: []schema.Check{schema.StrLength(5, 0)}},
		{Name: "transaction_date", Type: series.String},
		{Name: "amount", Type: series.Float, Nullable: true},
		{Name: "record_type", Type: series.String, Nullable: true, Checks: []schema.Check{
			schema.IsIn("sale", "return", "adjustment", "void", "")}},
		{Name: "product_id", Type: series.String, Nullable: true},
		{Name: "customer_id", Type: series.String, Nullable: true},
		{Name: "region", Type: series.String, Nullable: true},
	},
}

// SalesSchema validates cleaned transactions after transformation.
var SalesSchema = schema.Schema{
	Name: "sales",
	Columns: []schema.Column{
		{Name: "transaction_id", Type: series.String, Unique: true, Checks: []schema.Check{schema.StrLength(5, 0)}},
		{Name: "transaction_date", Type: series.String},
		{Name: "amount", Type: series.Float},
		{Name: "record_type", Type: series.String, Checks: []schema.Check{
			schema.IsIn("sale", "return", "adjustment", "void", "unknown")}},
		{Name: "direction", Type: series.String, Checks: []schema.Check{
			schema.IsIn("credit", "debit", "void", "unknown")}},
		{Name: "product_id", Type: series.String, Checks: []schema.Check{schema.StrLength(1, 0)}},
		{Name: "customer_id", Type: series.String, Checks: []schema.Check{schema.StrLength(1, 0)}},
		{Name: "region", Type: series.String},
	},
}

// SummarySchema validates aggregation outputs.
var SummarySchema = schema.Schema{
	Name: "sales_summary",
	Columns: []schema.Column{
		{Name: "total_amount", Type: series.Float},
		{Name: "avg_amount", Type: series.Float},
		{Name: "transaction_count", Type: series.Int, Checks: []schema.Check{schema.Gt(0)}},
	},
}

// ReconciliationSchema validates the sales-vs-accounting comparison frame.
var ReconciliationSchema = schema.Schema{
	Name: "sales_reconciliation",
	Columns: []schema.Column{
		{Name: "period", Type: series.String},
		{Name: "sales_total", Type: series.Float},
		{Name: "accounting_total", Type: series.Float},
		{Name: "difference", Type: series.Float},
		{Name: "pct_diff", Type: series.Float, Nullable: true, Checks: []schema.Check{
			schema.InRange(-0.05, 0.05)}},
	},
}

// SchemaRegistry maps dataset names to their schemas.
var SchemaRegistry = map[string]schema.Schema{
	"raw_sales":      RawSalesSchema,
	"sales":          SalesSchema,
	"sales_summary":  SummarySchema,
	"reconciliation": ReconciliationSchema,
}
