package etl

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/parquet-go/parquet-go"

	"datapipe/internal/errors"
)

// parquetNode maps a gota column type to a parquet leaf node.
func parquetNode(t series.Type) parquet.Node {
	switch t {
	case series.Int:
		return parquet.Int(64)
	case series.Float:
		return parquet.Leaf(parquet.DoubleType)
	case series.Bool:
		return parquet.Leaf(parquet.BooleanType)
	default:
		return parquet.String()
	}
}

// writeParquet writes a frame as a single parquet file. The schema is
// derived from the frame's column types; every field is optional since
// source feeds carry nulls.
func writeParquet(df dataframe.DataFrame, path string) error {
	group := parquet.Group{}
	names := df.Names()
	types := df.Types()
	for i, name := range names {
		group[name] = parquet.Optional(parquetNode(types[i]))
	}
	schema := parquet.NewSchema("dataset", group)

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	pw := parquet.NewGenericWriter[map[string]any](f, schema)
	if df.Nrow() > 0 {
		if _, err := pw.Write(df.Maps()); err != nil {
			return fmt.Errorf("failed to write parquet rows: %w", err)
		}
	}
	if err := pw.Close(); err != nil {
		return fmt.Errorf("failed to finalize parquet file: %w", err)
	}
	return nil
}

// ReadParquet reads a parquet file back into a frame.
func (r *Reader) ReadParquet(ctx context.Context, path string) (dataframe.DataFrame, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return dataframe.DataFrame{}, errors.SourceNotFound(path, err)
		}
		return dataframe.DataFrame{}, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	pf, err := parquet.OpenFile(f, st.Size())
	if err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("failed to open parquet file %s: %w", path, err)
	}
	rd := parquet.NewGenericReader[map[string]any](pf, pf.Schema())
	defer rd.Close()

	rows := make([]map[string]any, 0, rd.NumRows())
	buf := make([]map[string]any, 128)
	for {
		for i := range buf {
			buf[i] = map[string]any{}
		}
		n, err := rd.Read(buf)
		rows = append(rows, buf[:n]...)
		if err == io.EOF {
			break
		}
		if err != nil {
			return dataframe.DataFrame{}, fmt.Errorf("failed to read parquet rows: %w", err)
		}
	}

	if len(rows) == 0 {
		return dataframe.DataFrame{}, nil
	}
	df := dataframe.LoadMaps(rows)
	if df.Err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("failed to load parquet rows: %w", df.Err)
	}
	return df, nil
}
