package schema

import (
	"fmt"
	"sort"
	"strings"

	"github.com/go-gota/gota/dataframe"
)

// ValidateNoNulls checks that the given columns carry no null values.
func ValidateNoNulls(df dataframe.DataFrame, columns []string) Result {
	var errs []string
	for _, col := range columns {
		nulls := 0
		for _, rec := range df.Col(col).Records() {
			if isNull(rec) {
				nulls++
			}
		}
		if nulls > 0 {
			errs = append(errs, fmt.Sprintf("Column '%s' has %d null values", col, nulls))
		}
	}
	if len(errs) > 0 {
		return failed(errs)
	}
	return ok()
}

// ValidateUnique checks that the given columns form a unique key. Every row
// participating in a duplicate is counted, matching pandas duplicated(keep=False).
func ValidateUnique(df dataframe.DataFrame, columns []string) Result {
	counts := map[string]int{}
	for i := 0; i < df.Nrow(); i++ {
		counts[compositeKey(df, columns, i)]++
	}

	dupCount := 0
	for _, n := range counts {
		if n > 1 {
			dupCount += n
		}
	}

	if dupCount == 0 {
		return ok()
	}
	return failed([]string{
		fmt.Sprintf("Found %d duplicate rows on columns %v", dupCount, columns),
	})
}

// ValidateReferentialIntegrity checks that every child key exists in the
// parent. Up to five orphan keys are sampled in the error message.
func ValidateReferentialIntegrity(child, parent dataframe.DataFrame, childKey, parentKey string) Result {
	parents := map[string]struct{}{}
	for _, rec := range parent.Col(parentKey).Records() {
		parents[rec] = struct{}{}
	}

	orphanSet := map[string]struct{}{}
	for _, rec := range child.Col(childKey).Records() {
		if _, found := parents[rec]; !found {
			orphanSet[rec] = struct{}{}
		}
	}

	if len(orphanSet) == 0 {
		return ok()
	}

	orphans := make([]string, 0, len(orphanSet))
	for o := range orphanSet {
		orphans = append(orphans, o)
	}
	sort.Strings(orphans)
	sample := orphans
	if len(sample) > 5 {
		sample = sample[:5]
	}
	return failed([]string{
		fmt.Sprintf("Found %d orphan keys. Sample: %v", len(orphans), sample),
	})
}

func compositeKey(df dataframe.DataFrame, columns []string, row int) string {
	parts := make([]string, 0, len(columns))
	for _, col := range columns {
		parts = append(parts, df.Col(col).Records()[row])
	}
	return strings.Join(parts, "\x1f")
}
