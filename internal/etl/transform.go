package etl

import (
	"fmt"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"datapipe/internal/errors"
)

// NormalizeColumns lowercases column names, converts spaces and dashes to
// underscores, and applies an optional rename mapping.
func NormalizeColumns(df dataframe.DataFrame, mapping map[string]string) dataframe.DataFrame {
	for _, name := range df.Names() {
		normalized := strings.TrimSpace(strings.ToLower(name))
		normalized = strings.ReplaceAll(normalized, " ", "_")
		normalized = strings.ReplaceAll(normalized, "-", "_")
		if normalized != name {
			df = df.Rename(normalized, name)
		}
	}
	for old, new := range mapping {
		for _, name := range df.Names() {
			if name == old {
				df = df.Rename(new, old)
				break
			}
		}
	}
	return df
}

// Merge joins two frames with the requested join type. Unknown join types
// are an error.
func Merge(left, right dataframe.DataFrame, on []string, how string) (dataframe.DataFrame, error) {
	var merged dataframe.DataFrame
	switch how {
	case "left":
		merged = left.LeftJoin(right, on...)
	case "right":
		merged = left.RightJoin(right, on...)
	case "inner":
		merged = left.InnerJoin(right, on...)
	case "outer":
		merged = left.OuterJoin(right, on...)
	case "cross":
		merged = left.CrossJoin(right)
	default:
		return dataframe.DataFrame{}, fmt.Errorf("unsupported merge type: %s", how)
	}
	if merged.Err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("failed to merge on %v: %w", on, merged.Err)
	}
	return merged, nil
}

// aggregationFor maps an aggregation name to gota's aggregation type.
func aggregationFor(name string) (dataframe.AggregationType, error) {
	switch name {
	case "sum":
		return dataframe.Aggregation_SUM, nil
	case "mean":
		return dataframe.Aggregation_MEAN, nil
	case "count":
		return dataframe.Aggregation_COUNT, nil
	case "min":
		return dataframe.Aggregation_MIN, nil
	case "max":
		return dataframe.Aggregation_MAX, nil
	case "median":
		return dataframe.Aggregation_MEDIAN, nil
	default:
		return 0, fmt.Errorf("unsupported aggregation: %s", name)
	}
}

// PivotAggregate pivots the frame wide: one row per index value, one column
// per distinct value of the columns dimension, each holding the aggregated
// values metric.
func PivotAggregate(df dataframe.DataFrame, index, columns, values, aggfunc string) (dataframe.DataFrame, error) {
	agg, err := aggregationFor(aggfunc)
	if err != nil {
		return dataframe.DataFrame{}, err
	}

	var result dataframe.DataFrame
	started := false
	for _, colVal := range uniqueStrings(df.Col(columns).Records()) {
		subset := df.Filter(dataframe.F{Colname: columns, Comparator: series.Eq, Comparando: colVal})
		grouped := subset.GroupBy(index).Aggregation(
			[]dataframe.AggregationType{agg}, []string{values})
		if grouped.Err != nil {
			return dataframe.DataFrame{}, fmt.Errorf("failed to pivot on %s=%s: %w", columns, colVal, grouped.Err)
		}
		grouped = grouped.Rename(fmt.Sprintf("%s_%s", values, colVal),
			fmt.Sprintf("%s_%s", values, agg.String()))

		if !started {
			result = grouped
			started = true
			continue
		}
		result, err = Merge(result, grouped, []string{index}, "outer")
		if err != nil {
			return dataframe.DataFrame{}, err
		}
	}
	return result, nil
}

// Rule is one declarative business rule applied to a frame.
type Rule struct {
	Type     string            `toml:"type"`
	Column   string            `toml:"column"`
	Operator string            `toml:"operator"`
	Value    interface{}       `toml:"value"`
	Mapping  map[string]string `toml:"mapping"`
	Columns  []string          `toml:"columns"`
}

// ApplyRules applies a list of business rules in order. Unknown rule types
// or operators are an error.
func ApplyRules(df dataframe.DataFrame, rules []Rule) (dataframe.DataFrame, error) {
	result := df
	for _, rule := range rules {
		var err error
		switch rule.Type {
		case "filter":
			result, err = applyFilterRule(result, rule)
		case "rename":
			for old, new := range rule.Mapping {
				result = result.Rename(new, old)
			}
		case "drop":
			result = dropColumns(result, rule.Columns)
		case "fill_na":
			result = FillNA(result, rule.Column, fmt.Sprint(rule.Value))
		default:
			return dataframe.DataFrame{}, errors.Wrap(errors.ErrUnknownRule,
				fmt.Errorf("rule type %q", rule.Type))
		}
		if err != nil {
			return dataframe.DataFrame{}, err
		}
		if result.Err != nil {
			return dataframe.DataFrame{}, fmt.Errorf("rule %s failed: %w", rule.Type, result.Err)
		}
	}
	return result, nil
}

func applyFilterRule(df dataframe.DataFrame, rule Rule) (dataframe.DataFrame, error) {
	var cmp series.Comparator
	switch rule.Operator {
	case "eq":
		cmp = series.Eq
	case "gt":
		cmp = series.Greater
	case "lt":
		cmp = series.Less
	default:
		return dataframe.DataFrame{}, errors.Wrap(errors.ErrUnknownRule,
			fmt.Errorf("filter operator %q", rule.Operator))
	}
	filtered := df.Filter(dataframe.F{Colname: rule.Column, Comparator: cmp, Comparando: rule.Value})
	if filtered.Err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("filter on %s failed: %w", rule.Column, filtered.Err)
	}
	return filtered, nil
}

// dropColumns removes columns by selecting the remainder. Columns not in
// the frame are ignored.
func dropColumns(df dataframe.DataFrame, cols []string) dataframe.DataFrame {
	drop := make(map[string]struct{}, len(cols))
	for _, c := range cols {
		drop[c] = struct{}{}
	}
	var keep []string
	for _, name := range df.Names() {
		if _, ok := drop[name]; !ok {
			keep = append(keep, name)
		}
	}
	if len(keep) == len(df.Names()) {
		return df
	}
	return df.Select(keep)
}

// FillNA replaces missing values in a column with the given value, keeping
// the column's type.
func FillNA(df dataframe.DataFrame, col, value string) dataframe.DataFrame {
	names := df.Names()
	idx := -1
	for i, name := range names {
		if name == col {
			idx = i
			break
		}
	}
	if idx < 0 {
		return df
	}

	s := df.Col(col)
	records := s.Records()
	for i, rec := range records {
		if rec == "" || rec == "NaN" {
			records[i] = value
		}
	}
	return df.Mutate(series.New(records, s.Type(), col))
}

// BuildSummaryTable computes mean, sum, and count for each metric grouped
// by the given key, joined into one wide table.
func BuildSummaryTable(df dataframe.DataFrame, groupBy string, metrics []string) (dataframe.DataFrame, error) {
	var summary dataframe.DataFrame
	started := false
	for _, metric := range metrics {
		agg := df.GroupBy(groupBy).Aggregation(
			[]dataframe.AggregationType{
				dataframe.Aggregation_MEAN,
				dataframe.Aggregation_SUM,
				dataframe.Aggregation_COUNT,
			},
			[]string{metric, metric, metric})
		if agg.Err != nil {
			return dataframe.DataFrame{}, fmt.Errorf("failed to summarize %s: %w", metric, agg.Err)
		}
		agg = agg.
			Rename(metric+"_mean", metric+"_MEAN").
			Rename(metric+"_sum", metric+"_SUM").
			Rename(metric+"_count", metric+"_COUNT")

		if !started {
			summary = agg
			started = true
			continue
		}
		var err error
		summary, err = Merge(summary, agg, []string{groupBy}, "outer")
		if err != nil {
			return dataframe.DataFrame{}, err
		}
	}
	return summary, nil
}
