package expectations

import (
	"context"
	"encoding/json"
	"os"
	"strings"
	"testing"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ticketFrame() dataframe.DataFrame {
	return dataframe.New(
		series.New([]string{"TK-1", "TK-2", "TK-3"}, series.String, "ticket_id"),
		series.New([]string{"low", "high", "critical"}, series.String, "priority"),
	)
}

func TestEvaluate(t *testing.T) {
	df := dataframe.New(
		series.New([]string{"C-1", "C-1", ""}, series.String, "campaign_id"),
		series.New([]float64{100, -5, 30}, series.Float, "spend"),
	)

	tests := []struct {
		name           string
		exp            Expectation
		wantSuccess    bool
		wantUnexpected int
	}{
		{
			name:        "column exists",
			exp:         Expectation{Type: "expect_column_to_exist", Column: "spend"},
			wantSuccess: true,
		},
		{
			name:        "column missing",
			exp:         Expectation{Type: "expect_column_to_exist", Column: "clicks"},
			wantSuccess: false,
		},
		{
			name:           "not null finds empty",
			exp:            Expectation{Type: "expect_column_values_to_not_be_null", Column: "campaign_id"},
			wantSuccess:    false,
			wantUnexpected: 1,
		},
		{
			name:           "unique finds duplicates",
			exp:            Expectation{Type: "expect_column_values_to_be_unique", Column: "campaign_id"},
			wantSuccess:    false,
			wantUnexpected: 2,
		},
		{
			name:           "between finds negative",
			exp:            Expectation{Type: "expect_column_values_to_be_between", Column: "spend", MinValue: ptr(0)},
			wantSuccess:    false,
			wantUnexpected: 1,
		},
		{
			name:           "unknown type fails soft",
			exp:            Expectation{Type: "expect_column_kl_divergence"},
			wantSuccess:    false,
			wantUnexpected: -1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Evaluate(df, tt.exp)
			assert.Equal(t, tt.wantSuccess, result.Success)
			assert.Equal(t, tt.wantUnexpected, result.UnexpectedCount)
		})
	}
}

func TestEvaluate_PairEqual(t *testing.T) {
	df := dataframe.New(
		series.New([]float64{100, 50}, series.Float, "debit"),
		series.New([]float64{100, 50}, series.Float, "credit"),
	)
	result := Evaluate(df, Expectation{
		Type: "expect_column_pair_values_to_be_equal", ColumnA: "debit", ColumnB: "credit",
	})
	assert.True(t, result.Success)
}

func TestRunner_StatusTransitions(t *testing.T) {
	ctx := context.Background()

	t.Run("passed", func(t *testing.T) {
		summary := NewRunner(nil, false).Run(ctx, "support", ticketFrame())
		assert.Equal(t, StatusPassed, summary.Status)
		assert.Equal(t, summary.Total, summary.Passed)
	})

	t.Run("warning on few failures", func(t *testing.T) {
		df := dataframe.New(
			series.New([]string{"TK-1"}, series.String, "ticket_id"),
			series.New([]string{"urgent"}, series.String, "priority"),
		)
		summary := NewRunner(nil, false).Run(ctx, "support", df)
		assert.Equal(t, StatusWarning, summary.Status)
		assert.Len(t, summary.Failed, 1)
	})

	t.Run("strict fails on any failure", func(t *testing.T) {
		df := dataframe.New(
			series.New([]string{"TK-1"}, series.String, "ticket_id"),
			series.New([]string{"urgent"}, series.String, "priority"),
		)
		summary := NewRunner(nil, true).Run(ctx, "support", df)
		assert.Equal(t, StatusFailed, summary.Status)
	})
}

func TestSuiteFor_DefaultSuite(t *testing.T) {
	suite := SuiteFor("weather")
	require.Len(t, suite, 1)
	assert.Equal(t, "expect_table_row_count_to_be_between", suite[0].Type)

	for _, domain := range []string{"sales", "finance", "manufacturing"} {
		assert.NotEmpty(t, SuiteFor(domain), domain)
	}
}

func TestReports(t *testing.T) {
	summary := NewRunner(nil, false).Run(context.Background(), "support", ticketFrame())

	jsonReport, err := ToJSON(summary)
	require.NoError(t, err)
	var decoded Report
	require.NoError(t, json.Unmarshal([]byte(jsonReport), &decoded))
	assert.Equal(t, "support", decoded.Domain)
	assert.Equal(t, summary.Passed, decoded.Passed)

	text := ToSummary(summary)
	assert.True(t, strings.HasPrefix(text, "[support]"))

	table := ToTable(summary)
	assert.Contains(t, table, "PASS")
}

func TestSaveReport(t *testing.T) {
	summary := NewRunner(nil, false).Run(context.Background(), "support", ticketFrame())

	dir := t.TempDir()
	path, err := SaveReport(summary, dir, "json")
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "\"domain\": \"support\"")
}
