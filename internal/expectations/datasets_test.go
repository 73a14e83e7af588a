package expectations

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"datapipe/internal/etl"
)

func TestLoadPrimaryDataset_SingleFile(t *testing.T) {
	ctx := context.Background()
	out := t.TempDir()
	writer := etl.NewWriter(nil)

	df := etl.FrameFromRows([]etl.Row{
		{"sku": "SKU-1", "quantity": 5.0, "warehouse_id": "DC-001"},
		{"sku": "SKU-2", "quantity": 8.0, "warehouse_id": "DC-002"},
	})
	path := filepath.Join(out, "inventory", "stock_levels.parquet")
	require.NoError(t, writer.WriteOutput(ctx, df, path, etl.FormatParquet, etl.WriteOptions{}))

	got, found, err := LoadPrimaryDataset(ctx, etl.NewReader(nil), out, "inventory")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, 2, got.Nrow())
}

func TestLoadPrimaryDataset_Partitioned(t *testing.T) {
	ctx := context.Background()
	out := t.TempDir()
	writer := etl.NewWriter(nil)

	df := etl.FrameFromRows([]etl.Row{
		{"transaction_id": "TX-1", "customer_id": "C-1", "amount": 120.0, "region": "north"},
		{"transaction_id": "TX-2", "customer_id": "C-2", "amount": 75.0, "region": "south"},
		{"transaction_id": "TX-3", "customer_id": "C-3", "amount": 40.0, "region": "south"},
	})
	path := filepath.Join(out, "sales", "20240301_120000", "transactions.parquet")
	opts := etl.WriteOptions{PartitionBy: "region"}
	require.NoError(t, writer.WriteOutput(ctx, df, path, etl.FormatParquet, opts))

	got, found, err := LoadPrimaryDataset(ctx, etl.NewReader(nil), out, "sales")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, 3, got.Nrow())
	assert.Contains(t, got.Names(), "transaction_id")
}

func TestLoadPrimaryDataset_PartitionedPicksNewestRun(t *testing.T) {
	ctx := context.Background()
	out := t.TempDir()
	writer := etl.NewWriter(nil)
	opts := etl.WriteOptions{PartitionBy: "region"}

	old := etl.FrameFromRows([]etl.Row{
		{"transaction_id": "TX-1", "customer_id": "C-1", "amount": 10.0, "region": "north"},
	})
	oldPath := filepath.Join(out, "sales", "20240229_080000", "transactions.parquet")
	require.NoError(t, writer.WriteOutput(ctx, old, oldPath, etl.FormatParquet, opts))

	newer := etl.FrameFromRows([]etl.Row{
		{"transaction_id": "TX-2", "customer_id": "C-2", "amount": 20.0, "region": "north"},
		{"transaction_id": "TX-3", "customer_id": "C-3", "amount": 30.0, "region": "south"},
	})
	newPath := filepath.Join(out, "sales", "20240301_080000", "transactions.parquet")
	require.NoError(t, writer.WriteOutput(ctx, newer, newPath, etl.FormatParquet, opts))

	got, found, err := LoadPrimaryDataset(ctx, etl.NewReader(nil), out, "sales")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, 2, got.Nrow())
}

func TestLoadPrimaryDataset_Missing(t *testing.T) {
	_, found, err := LoadPrimaryDataset(context.Background(), etl.NewReader(nil), t.TempDir(), "sales")
	require.NoError(t, err)
	assert.False(t, found)
}
