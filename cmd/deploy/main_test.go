package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"datapipe/internal/etl"
	"datapipe/internal/expectations"
)

func TestBucketFor(t *testing.T) {
	assert.Equal(t, "prod-analytics", bucketFor("sales"))
	assert.Equal(t, "prod-finance", bucketFor("procurement"))
	assert.Equal(t, "prod-hr-confidential", bucketFor("hr"))
	assert.Equal(t, "prod-manufacturing", bucketFor("quality"))
	assert.Equal(t, "prod-general", bucketFor("logistics"))
}

func TestCheckBranch(t *testing.T) {
	t.Setenv("GITHUB_REF", "refs/heads/main")
	assert.NoError(t, checkBranch())

	t.Setenv("GITHUB_REF", "refs/heads/feature")
	assert.Error(t, checkBranch())

	t.Setenv("GITHUB_REF", "")
	assert.NoError(t, checkBranch())
}

func TestGateDomain_PartitionedSalesOutput(t *testing.T) {
	ctx := context.Background()
	out := t.TempDir()
	writer := etl.NewWriter(nil)

	df := etl.FrameFromRows([]etl.Row{
		{"transaction_id": "TX-1", "customer_id": "C-1", "amount": 120.0, "region": "north"},
		{"transaction_id": "TX-2", "customer_id": "C-2", "amount": 75.0, "region": "south"},
	})
	path := filepath.Join(out, "sales", "20240301_120000", "transactions.parquet")
	opts := etl.WriteOptions{PartitionBy: "region"}
	require.NoError(t, writer.WriteOutput(ctx, df, path, etl.FormatParquet, opts))

	result := gateDomain(ctx, etl.NewReader(nil), expectations.NewRunner(nil, true), out, "sales")
	assert.Equal(t, "passed", result.status)
	assert.Equal(t, "s3://prod-analytics/sales/", result.detail)
}

func TestGateDomain_MissingOutput(t *testing.T) {
	result := gateDomain(context.Background(), etl.NewReader(nil), expectations.NewRunner(nil, false), t.TempDir(), "finance")
	assert.Equal(t, "failed", result.status)
	assert.Equal(t, "no primary output", result.detail)
}
