package etl

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// Row is one dataframe record in map form, as returned by DataFrame.Maps.
type Row = map[string]interface{}

// FrameFromRows rebuilds a frame from row maps with type detection. An empty
// slice yields the zero frame rather than gota's error frame.
func FrameFromRows(rows []Row) dataframe.DataFrame {
	if len(rows) == 0 {
		return dataframe.DataFrame{}
	}
	return dataframe.LoadMaps(rows, dataframe.DefaultType(series.String), dataframe.DetectTypes(true))
}

// SortRows orders row maps in place by the given columns' string values.
func SortRows(rows []Row, cols ...string) {
	sort.Slice(rows, func(i, j int) bool {
		for _, c := range cols {
			a, b := AsString(rows[i][c]), AsString(rows[j][c])
			if a != b {
				return a < b
			}
		}
		return false
	})
}

// AsFloat extracts a numeric cell from a row value, tolerating the mixed
// types gota produces. Missing or non-numeric values yield 0.
func AsFloat(v interface{}) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case int:
		return float64(t)
	case string:
		f, err := strconv.ParseFloat(t, 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}

// AsString extracts a string cell from a row value.
func AsString(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case nil:
		return ""
	default:
		return fmt.Sprint(t)
	}
}

// AsInt extracts an integer cell from a row value.
func AsInt(v interface{}) int {
	switch t := v.(type) {
	case int:
		return t
	case float64:
		return int(t)
	case string:
		n, err := strconv.Atoi(t)
		if err != nil {
			return 0
		}
		return n
	default:
		return 0
	}
}
