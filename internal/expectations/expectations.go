// Package expectations implements the data-quality expectation suites run
// against every domain's output table before deployment.
package expectations

import (
	"fmt"
	"math"

	"github.com/go-gota/gota/dataframe"
)

// Expectation is one declarative data-quality check.
type Expectation struct {
	Type     string   `json:"expectation_type"`
	Column   string   `json:"column,omitempty"`
	ColumnA  string   `json:"column_a,omitempty"`
	ColumnB  string   `json:"column_b,omitempty"`
	MinValue *float64 `json:"min_value,omitempty"`
	MaxValue *float64 `json:"max_value,omitempty"`
	ValueSet []string `json:"value_set,omitempty"`
	OrEqual  bool     `json:"or_equal,omitempty"`
}

// CheckResult is the outcome of evaluating one expectation.
type CheckResult struct {
	Expectation     string `json:"expectation"`
	Success         bool   `json:"success"`
	ObservedValue   string `json:"observed_value"`
	UnexpectedCount int    `json:"unexpected_count"`
	ElementCount    int    `json:"element_count"`
}

func ptr(f float64) *float64 { return &f }

// Evaluate runs one expectation against a frame. Unknown expectation types
// yield a failed result rather than an error so a bad suite entry cannot
// abort the run.
func Evaluate(df dataframe.DataFrame, exp Expectation) CheckResult {
	switch exp.Type {
	case "expect_column_to_exist":
		return columnToExist(df, exp)
	case "expect_column_values_to_not_be_null":
		return valuesNotNull(df, exp)
	case "expect_column_values_to_be_unique":
		return valuesUnique(df, exp)
	case "expect_column_values_to_be_between":
		return valuesBetween(df, exp)
	case "expect_column_values_to_be_in_set":
		return valuesInSet(df, exp)
	case "expect_column_pair_values_to_be_equal":
		return pairValuesEqual(df, exp)
	case "expect_table_row_count_to_be_between":
		return rowCountBetween(df, exp)
	default:
		return CheckResult{
			Expectation:     exp.Type,
			Success:         false,
			ObservedValue:   "not supported",
			UnexpectedCount: -1,
		}
	}
}

func hasColumn(df dataframe.DataFrame, col string) bool {
	for _, name := range df.Names() {
		if name == col {
			return true
		}
	}
	return false
}

func missingColumn(exp Expectation, col string) CheckResult {
	return CheckResult{
		Expectation:     exp.Type,
		Success:         false,
		ObservedValue:   fmt.Sprintf("column %q missing", col),
		UnexpectedCount: -1,
	}
}

func columnToExist(df dataframe.DataFrame, exp Expectation) CheckResult {
	found := hasColumn(df, exp.Column)
	return CheckResult{
		Expectation:   exp.Type,
		Success:       found,
		ObservedValue: fmt.Sprintf("%v", found),
		ElementCount:  df.Ncol(),
	}
}

func valuesNotNull(df dataframe.DataFrame, exp Expectation) CheckResult {
	if !hasColumn(df, exp.Column) {
		return missingColumn(exp, exp.Column)
	}
	records := df.Col(exp.Column).Records()
	nulls := 0
	for _, rec := range records {
		if rec == "" || rec == "NaN" {
			nulls++
		}
	}
	return CheckResult{
		Expectation:     exp.Type,
		Success:         nulls == 0,
		ObservedValue:   fmt.Sprintf("%d nulls", nulls),
		UnexpectedCount: nulls,
		ElementCount:    len(records),
	}
}

func valuesUnique(df dataframe.DataFrame, exp Expectation) CheckResult {
	if !hasColumn(df, exp.Column) {
		return missingColumn(exp, exp.Column)
	}
	records := df.Col(exp.Column).Records()
	seen := map[string]int{}
	for _, rec := range records {
		seen[rec]++
	}
	dups := 0
	for _, n := range seen {
		if n > 1 {
			dups += n
		}
	}
	return CheckResult{
		Expectation:     exp.Type,
		Success:         dups == 0,
		ObservedValue:   fmt.Sprintf("%d duplicates", dups),
		UnexpectedCount: dups,
		ElementCount:    len(records),
	}
}

func valuesBetween(df dataframe.DataFrame, exp Expectation) CheckResult {
	if !hasColumn(df, exp.Column) {
		return missingColumn(exp, exp.Column)
	}
	values := df.Col(exp.Column).Float()
	unexpected := 0
	for _, v := range values {
		if math.IsNaN(v) {
			continue
		}
		if exp.MinValue != nil && v < *exp.MinValue {
			unexpected++
			continue
		}
		if exp.MaxValue != nil && v > *exp.MaxValue {
			unexpected++
		}
	}
	return CheckResult{
		Expectation:     exp.Type,
		Success:         unexpected == 0,
		ObservedValue:   fmt.Sprintf("%d out of range", unexpected),
		UnexpectedCount: unexpected,
		ElementCount:    len(values),
	}
}

func valuesInSet(df dataframe.DataFrame, exp Expectation) CheckResult {
	if !hasColumn(df, exp.Column) {
		return missingColumn(exp, exp.Column)
	}
	set := make(map[string]struct{}, len(exp.ValueSet))
	for _, v := range exp.ValueSet {
		set[v] = struct{}{}
	}
	records := df.Col(exp.Column).Records()
	unexpected := 0
	for _, rec := range records {
		if _, found := set[rec]; !found {
			unexpected++
		}
	}
	return CheckResult{
		Expectation:     exp.Type,
		Success:         unexpected == 0,
		ObservedValue:   fmt.Sprintf("%d outside set", unexpected),
		UnexpectedCount: unexpected,
		ElementCount:    len(records),
	}
}

func pairValuesEqual(df dataframe.DataFrame, exp Expectation) CheckResult {
	for _, col := range []string{exp.ColumnA, exp.ColumnB} {
		if !hasColumn(df, col) {
			return missingColumn(exp, col)
		}
	}
	a := df.Col(exp.ColumnA).Float()
	b := df.Col(exp.ColumnB).Float()
	unexpected := 0
	for i := range a {
		av, bv := a[i], b[i]
		if math.IsNaN(av) {
			av = 0
		}
		if math.IsNaN(bv) {
			bv = 0
		}
		if math.Abs(av-bv) > 1e-9 {
			unexpected++
		}
	}
	return CheckResult{
		Expectation:     exp.Type,
		Success:         unexpected == 0,
		ObservedValue:   fmt.Sprintf("%d unequal pairs", unexpected),
		UnexpectedCount: unexpected,
		ElementCount:    len(a),
	}
}

func rowCountBetween(df dataframe.DataFrame, exp Expectation) CheckResult {
	n := float64(df.Nrow())
	success := true
	if exp.MinValue != nil && n < *exp.MinValue {
		success = false
	}
	if exp.MaxValue != nil && n > *exp.MaxValue {
		success = false
	}
	return CheckResult{
		Expectation:   exp.Type,
		Success:       success,
		ObservedValue: fmt.Sprintf("%d rows", df.Nrow()),
		ElementCount:  df.Nrow(),
	}
}
