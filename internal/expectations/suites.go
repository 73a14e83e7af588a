package expectations

// Per-domain expectation suites. These define the quality contract for each
// pipeline output before it is deployed.
var domainSuites = map[string][]Expectation{
	"sales": {
		{Type: "expect_column_to_exist", Column: "transaction_id"},
		{Type: "expect_column_values_to_not_be_null", Column: "transaction_id"},
		{Type: "expect_column_values_to_be_unique", Column: "transaction_id"},
		{Type: "expect_column_values_to_be_between", Column: "amount", MinValue: ptr(0), MaxValue: ptr(1_000_000)},
		{Type: "expect_column_values_to_not_be_null", Column: "customer_id"},
	},
	"inventory": {
		{Type: "expect_column_to_exist", Column: "sku"},
		{Type: "expect_column_values_to_not_be_null", Column: "sku"},
		{Type: "expect_column_values_to_be_between", Column: "quantity", MinValue: ptr(0)},
		{Type: "expect_column_values_to_be_in_set", Column: "warehouse_id",
			ValueSet: []string{"DC-001", "DC-002", "FC-010", "CS-003", "BK-050"}},
	},
	"finance": {
		{Type: "expect_column_to_exist", Column: "account_code"},
		{Type: "expect_column_values_to_not_be_null", Column: "account_code"},
		{Type: "expect_column_values_to_not_be_null", Column: "fiscal_period"},
		{Type: "expect_column_values_to_be_in_set", Column: "account_type",
			ValueSet: []string{"asset", "liability", "equity", "revenue", "expense"}},
	},
	"hr": {
		{Type: "expect_column_to_exist", Column: "employee_id"},
		{Type: "expect_column_values_to_not_be_null", Column: "employee_id"},
		{Type: "expect_column_values_to_be_unique", Column: "employee_id"},
		{Type: "expect_column_values_to_be_in_set", Column: "status",
			ValueSet: []string{"active", "inactive", "terminated", "on_leave"}},
	},
	"logistics": {
		{Type: "expect_column_to_exist", Column: "shipment_id"},
		{Type: "expect_column_values_to_not_be_null", Column: "shipment_id"},
		{Type: "expect_column_values_to_be_between", Column: "weight_kg", MinValue: ptr(0), MaxValue: ptr(50_000)},
	},
	"marketing": {
		{Type: "expect_column_to_exist", Column: "campaign_id"},
		{Type: "expect_column_values_to_not_be_null", Column: "campaign_id"},
		{Type: "expect_column_values_to_be_between", Column: "spend", MinValue: ptr(0)},
		{Type: "expect_column_values_to_be_between", Column: "impressions", MinValue: ptr(0)},
	},
	"procurement": {
		{Type: "expect_column_to_exist", Column: "po_number"},
		{Type: "expect_column_values_to_not_be_null", Column: "po_number"},
		{Type: "expect_column_values_to_be_between", Column: "amount_clean",
			MinValue: ptr(0), MaxValue: ptr(10_000_000)},
	},
	"support": {
		{Type: "expect_column_to_exist", Column: "ticket_id"},
		{Type: "expect_column_values_to_not_be_null", Column: "ticket_id"},
		{Type: "expect_column_values_to_be_in_set", Column: "priority",
			ValueSet: []string{"low", "medium", "high", "critical"}},
	},
	"quality": {
		{Type: "expect_column_to_exist", Column: "inspection_id"},
		{Type: "expect_column_values_to_not_be_null", Column: "inspection_id"},
		{Type: "expect_column_values_to_be_unique", Column: "inspection_id"},
		{Type: "expect_column_values_to_be_in_set", Column: "disposition",
			ValueSet: []string{"accept", "reject", "hold", "rework"}},
	},
	"manufacturing": {
		{Type: "expect_column_to_exist", Column: "plant_id"},
		{Type: "expect_column_values_to_not_be_null", Column: "plant_id"},
		{Type: "expect_column_values_to_be_in_set", Column: "record_type",
			ValueSet: []string{"production", "scrap", "downtime", "maintenance", "quality_check", "unknown"}},
		{Type: "expect_column_values_to_be_between", Column: "quantity_normalized", MinValue: ptr(0)},
	},
}

// primaryDatasets names the output table each domain's expectation suite
// runs against before deployment. Sales writes under timestamped run
// directories, so its entry is a glob.
var primaryDatasets = map[string]string{
	"sales":         "*/transactions.parquet",
	"inventory":     "stock_levels.parquet",
	"logistics":     "shipments.parquet",
	"hr":            "employees.parquet",
	"finance":       "consolidated.parquet",
	"marketing":     "campaigns.parquet",
	"support":       "tickets.parquet",
	"procurement":   "purchase_orders.parquet",
	"manufacturing": "production_records.parquet",
	"quality":       "inspections.parquet",
}

// PrimaryDataset returns the glob, relative to the domain's output
// directory, of the table its suite validates.
func PrimaryDataset(domain string) string {
	if pattern, found := primaryDatasets[domain]; found {
		return pattern
	}
	return "*.parquet"
}

// SuiteFor returns the expectation suite for a domain. Unknown domains get
// a minimal default suite that only requires a non-empty table.
func SuiteFor(domain string) []Expectation {
	if suite, found := domainSuites[domain]; found {
		return suite
	}
	return []Expectation{
		{Type: "expect_table_row_count_to_be_between", MinValue: ptr(1)},
	}
}
