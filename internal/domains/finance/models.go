package finance

import (
	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"datapipe/internal/etl"
	"datapipe/internal/schema"
)

// GLLineSchema validates general ledger extract lines.
var GLLineSchema = schema.Schema{
	Name: "gl_line",
	Columns: []schema.Column{
		{Name: "journal_id", Type: series.String, Checks: []schema.Check{schema.StrMatches(`^JE-\d{8}-\d{4}$`)}},
		{Name: "posting_date", Type: series.String},
		{Name: "account_code", Type: series.String, Checks: []schema.Check{schema.StrMatches(`^\d{4,6}$`)}},
		{Name: "account_name", Type: series.String, Checks: []schema.Check{schema.StrLength(1, 200)}},
		{Name: "debit", Type: series.Float, Checks: []schema.Check{schema.Ge(0)}, Nullable: true},
		{Name: "credit", Type: series.Float, Checks: []schema.Check{schema.Ge(0)}, Nullable: true},
		{Name: "entity_code", Type: series.String, Checks: []schema.Check{schema.StrMatches(`^ENT-\d{3}$`)}},
		{Name: "fiscal_period", Type: series.String, Checks: []schema.Check{schema.StrMatches(`^\d{4}-\d{2}$`)}},
	},
	FrameChecks: []schema.FrameCheck{
		{
			Name: "each line has a debit or credit amount",
			Fn: func(df dataframe.DataFrame) bool {
				for _, row := range df.Maps() {
					if etl.AsFloat(row["debit"])+etl.AsFloat(row["credit"]) <= 0 {
						return false
					}
				}
				return true
			},
		},
	},
}

// APARSchema validates accounts payable / receivable subledger extracts.
var APARSchema = schema.Schema{
	Name: "ap_ar",
	Columns: []schema.Column{
		{Name: "invoice_id", Type: series.String, Unique: true},
		{Name: "vendor_or_customer", Type: series.String},
		{Name: "invoice_date", Type: series.String},
		{Name: "due_date", Type: series.String},
		{Name: "amount", Type: series.Float, Checks: []schema.Check{schema.Gt(0)}},
		{Name: "currency", Type: series.String, Checks: []schema.Check{schema.StrLength(3, 3)}},
		{Name: "status", Type: series.String, Checks: []schema.Check{
			schema.IsIn("open", "paid", "partial", "void", "disputed")}},
		{Name: "subledger", Type: series.String, Checks: []schema.Check{schema.IsIn("AP", "AR")}},
	},
}

// BudgetSchema validates the approved annual budget file.
var BudgetSchema = schema.Schema{
	Name: "budget",
	Columns: []schema.Column{
		{Name: "account_code", Type: series.String},
		{Name: "fiscal_period", Type: series.String},
		{Name: "budget_amount", Type: series.Float},
		{Name: "department", Type: series.String, Nullable: true},
	},
}

// SchemaRegistry maps dataset names to their schemas.
var SchemaRegistry = map[string]schema.Schema{
	"gl_line": GLLineSchema,
	"ap_ar":   APARSchema,
	"budget":  BudgetSchema,
}
