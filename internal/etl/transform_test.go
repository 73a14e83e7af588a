package etl

import (
	"testing"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleFrame() dataframe.DataFrame {
	return dataframe.New(
		series.New([]string{"north", "north", "south", "south"}, series.String, "region"),
		series.New([]string{"online", "pos", "online", "pos"}, series.String, "channel"),
		series.New([]float64{100, 50, 200, 25}, series.Float, "amount"),
	)
}

func TestNormalizeColumns(t *testing.T) {
	df := dataframe.New(
		series.New([]string{"a"}, series.String, "Transaction Date"),
		series.New([]string{"b"}, series.String, "AMOUNT-RAW"),
	)

	got := NormalizeColumns(df, map[string]string{"amount_raw": "amount"})

	assert.ElementsMatch(t, []string{"transaction_date", "amount"}, got.Names())
}

func TestMerge(t *testing.T) {
	left := dataframe.New(
		series.New([]string{"A", "B"}, series.String, "key"),
		series.New([]int{1, 2}, series.Int, "left_val"),
	)
	right := dataframe.New(
		series.New([]string{"A", "C"}, series.String, "key"),
		series.New([]int{10, 30}, series.Int, "right_val"),
	)

	tests := []struct {
		name     string
		how      string
		wantRows int
		wantErr  bool
	}{
		{name: "inner", how: "inner", wantRows: 1},
		{name: "left", how: "left", wantRows: 2},
		{name: "outer", how: "outer", wantRows: 3},
		{name: "cross", how: "cross", wantRows: 4},
		{name: "unknown", how: "semi", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Merge(left, right, []string{"key"}, tt.how)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantRows, got.Nrow())
		})
	}
}

func TestApplyRules(t *testing.T) {
	df := sampleFrame()

	rules := []Rule{
		{Type: "filter", Column: "region", Operator: "eq", Value: "north"},
		{Type: "rename", Mapping: map[string]string{"amount": "net_amount"}},
		{Type: "drop", Columns: []string{"channel"}},
	}

	got, err := ApplyRules(df, rules)
	require.NoError(t, err)

	assert.Equal(t, 2, got.Nrow())
	assert.ElementsMatch(t, []string{"region", "net_amount"}, got.Names())
}

func TestApplyRules_UnknownRule(t *testing.T) {
	_, err := ApplyRules(sampleFrame(), []Rule{{Type: "resample"}})
	require.Error(t, err)
}

func TestFillNA(t *testing.T) {
	df := dataframe.New(
		series.New([]string{"east", "", "west"}, series.String, "region"),
	)

	got := FillNA(df, "region", "UNKNOWN")

	assert.Equal(t, []string{"east", "UNKNOWN", "west"}, got.Col("region").Records())
}

func TestBuildSummaryTable(t *testing.T) {
	got, err := BuildSummaryTable(sampleFrame(), "region", []string{"amount"})
	require.NoError(t, err)

	assert.Equal(t, 2, got.Nrow())
	assert.ElementsMatch(t,
		[]string{"region", "amount_mean", "amount_sum", "amount_count"},
		got.Names())

	for _, row := range got.Maps() {
		switch row["region"] {
		case "north":
			assert.InDelta(t, 150.0, row["amount_sum"], 0.001)
		case "south":
			assert.InDelta(t, 225.0, row["amount_sum"], 0.001)
		}
	}
}

func TestPivotAggregate(t *testing.T) {
	got, err := PivotAggregate(sampleFrame(), "region", "channel", "amount", "sum")
	require.NoError(t, err)

	assert.Equal(t, 2, got.Nrow())
	assert.ElementsMatch(t,
		[]string{"region", "amount_online", "amount_pos"},
		got.Names())
}
