// Package schema provides declarative column-constraint validation for
// dataframes: declare per-column types and checks, validate lazily, and
// collect every failure as a structured description instead of aborting.
package schema

import (
	"fmt"
	"strconv"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// Result is the outcome of validating a frame against a schema.
type Result struct {
	Valid  bool     `json:"valid"`
	Status string   `json:"status"` // "ok" | "error"
	Errors []string `json:"errors"`
}

func ok() Result {
	return Result{Valid: true, Status: "ok", Errors: []string{}}
}

func failed(errs []string) Result {
	return Result{Valid: false, Status: "error", Errors: errs}
}

// Column declares constraints for a single column.
type Column struct {
	Name     string
	Type     series.Type
	Checks   []Check
	Nullable bool
	Unique   bool
}

// Schema declares the shape a frame must satisfy.
type Schema struct {
	Name    string
	Columns []Column
	// Strict rejects columns not declared in the schema. Source feeds carry
	// extra columns, so most schemas leave this off.
	Strict bool
	// FrameChecks run against the whole frame after column checks.
	FrameChecks []FrameCheck
}

// FrameCheck is a whole-frame constraint, e.g. "every line has a debit or
// credit amount".
type FrameCheck struct {
	Name string
	Fn   func(df dataframe.DataFrame) bool
}

// Validate checks the frame against the schema. Validation is lazy: all
// failures are collected rather than stopping at the first.
func (s Schema) Validate(df dataframe.DataFrame) Result {
	var errs []string

	names := map[string]bool{}
	for _, name := range df.Names() {
		names[name] = true
	}

	declared := map[string]bool{}
	for _, col := range s.Columns {
		declared[col.Name] = true
		if !names[col.Name] {
			errs = append(errs, fmt.Sprintf("Column '%s' failed check 'exists': missing", col.Name))
			continue
		}
		errs = append(errs, s.validateColumn(df, col)...)
	}

	if s.Strict {
		for _, name := range df.Names() {
			if !declared[name] {
				errs = append(errs, fmt.Sprintf("Column '%s' failed check 'strict': not declared", name))
			}
		}
	}

	for _, fc := range s.FrameChecks {
		if !fc.Fn(df) {
			errs = append(errs, fmt.Sprintf("Frame check '%s' failed", fc.Name))
		}
	}

	if len(errs) > 0 {
		return failed(errs)
	}
	return ok()
}

func (s Schema) validateColumn(df dataframe.DataFrame, col Column) []string {
	var errs []string
	records := df.Col(col.Name).Records()

	if !col.Nullable {
		nulls := 0
		for _, rec := range records {
			if isNull(rec) {
				nulls++
			}
		}
		if nulls > 0 {
			errs = append(errs, fmt.Sprintf("Column '%s' failed check 'not_null': %d null values", col.Name, nulls))
		}
	}

	if col.Unique {
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
		if dups > 0 {
			errs = append(errs, fmt.Sprintf("Column '%s' failed check 'unique': %d duplicate values", col.Name, dups))
		}
	}

	for _, check := range col.Checks {
		for _, rec := range records {
			if isNull(rec) {
				continue
			}
			if !check.Fn(newValue(rec)) {
				errs = append(errs, fmt.Sprintf("Column '%s' failed check '%s': %s", col.Name, check.Name, rec))
			}
		}
	}
	return errs
}

// Value is a single cell presented to a check, with a numeric view when the
// raw text parses as a number.
type Value struct {
	Raw     string
	Num     float64
	Numeric bool
}

func newValue(raw string) Value {
	v := Value{Raw: raw}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		v.Num = f
		v.Numeric = true
	}
	return v
}

func isNull(rec string) bool {
	return rec == "" || rec == "NaN" || rec == "<nil>"
}
