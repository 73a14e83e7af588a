package etl

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFixture(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
}

func TestReadCSVDir(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, "feed_01.csv", "id,amount\nT1,10.5\nT2,20.0\n")
	writeFixture(t, dir, "feed_02.csv", "id,amount\nT3,5.0\n")
	writeFixture(t, dir, "notes.txt", "ignore me")

	r := NewReader(nil)
	df, err := r.ReadCSVDir(context.Background(), dir, ReadOptions{TagSourceFile: true})
	require.NoError(t, err)

	assert.Equal(t, 3, df.Nrow())
	assert.Contains(t, df.Names(), "source_file")
	assert.Equal(t, "feed_01.csv", df.Col("source_file").Records()[0])
}

func TestReadCSVDir_MissingDirectory(t *testing.T) {
	r := NewReader(nil)
	df, err := r.ReadCSVDir(context.Background(), "does/not/exist", ReadOptions{})

	require.NoError(t, err)
	assert.Equal(t, 0, df.Nrow())
}

func TestReadCSVFile_NotFound(t *testing.T) {
	r := NewReader(nil)
	_, err := r.ReadCSVFile(context.Background(), filepath.Join(t.TempDir(), "nope.csv"))
	require.Error(t, err)
}

func TestWriteOutput_CSVRoundTrip(t *testing.T) {
	df := dataframe.New(
		series.New([]string{"T1", "T2", "T3"}, series.String, "id"),
		series.New([]float64{10.5, 20, 5}, series.Float, "amount"),
		series.New([]string{"north", "south", "north"}, series.String, "region"),
	)

	path := filepath.Join(t.TempDir(), "out", "summary.csv")
	w := NewWriter(nil)
	require.NoError(t, w.WriteOutput(context.Background(), df, path, FormatCSV, WriteOptions{}))

	r := NewReader(nil)
	got, err := r.ReadCSVFile(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, df.Nrow(), got.Nrow())
	assert.ElementsMatch(t, df.Names(), got.Names())
}

func TestWriteOutput_UnknownFormat(t *testing.T) {
	w := NewWriter(nil)
	err := w.WriteOutput(context.Background(), dataframe.DataFrame{},
		filepath.Join(t.TempDir(), "x.avro"), Format("avro"), WriteOptions{})
	require.Error(t, err)
}

func TestWriteOutput_Partitioned(t *testing.T) {
	df := dataframe.New(
		series.New([]string{"T1", "T2", "T3"}, series.String, "id"),
		series.New([]string{"north", "south", "north"}, series.String, "region"),
	)

	dir := t.TempDir()
	path := filepath.Join(dir, "sales.csv")
	w := NewWriter(nil)
	require.NoError(t, w.WriteOutput(context.Background(), df, path, FormatCSV,
		WriteOptions{PartitionBy: "region"}))

	for _, part := range []string{"region=north", "region=south"} {
		_, err := os.Stat(filepath.Join(dir, "sales", part, "part-0.csv"))
		assert.NoError(t, err, part)
	}
}

func TestConcatAll(t *testing.T) {
	a := dataframe.New(series.New([]int{1, 2}, series.Int, "v"))
	b := dataframe.New(series.New([]int{3}, series.Int, "v"))

	combined := ConcatAll([]dataframe.DataFrame{a, {}, b})
	assert.Equal(t, 3, combined.Nrow())

	empty := ConcatAll(nil)
	assert.Equal(t, 0, empty.Nrow())
}
