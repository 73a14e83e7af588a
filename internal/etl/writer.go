package etl

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/xuri/excelize/v2"

	"datapipe/internal/errors"
)

// Format identifies an output file format.
type Format string

const (
	FormatCSV     Format = "csv"
	FormatParquet Format = "parquet"
	FormatJSON    Format = "json"
	FormatExcel   Format = "excel"
)

// Writer writes pipeline outputs with format dispatch.
type Writer struct {
	logger *slog.Logger
}

// NewWriter creates a writer. A nil logger falls back to slog.Default.
func NewWriter(logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{logger: logger}
}

// WriteOptions configures output writing.
type WriteOptions struct {
	// PartitionBy writes hive-style col=value subdirectories instead of a
	// single file.
	PartitionBy string
	// Sheet names the worksheet for Excel output. Defaults to Sheet1.
	Sheet string
}

// WriteOutput writes a frame to path in the requested format, creating
// parent directories as needed.
func (w *Writer) WriteOutput(ctx context.Context, df dataframe.DataFrame, path string, format Format, opts WriteOptions) error {
	if opts.PartitionBy != "" {
		return w.writePartitioned(ctx, df, path, format, opts)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	switch format {
	case FormatCSV:
		if err := w.writeCSV(df, path); err != nil {
			return err
		}
	case FormatParquet:
		if err := writeParquet(df, path); err != nil {
			return err
		}
	case FormatJSON:
		if err := w.writeJSON(df, path); err != nil {
			return err
		}
	case FormatExcel:
		if err := w.writeExcel(df, path, opts.Sheet); err != nil {
			return err
		}
	default:
		return errors.Wrap(errors.ErrUnsupportedOutput, fmt.Errorf("format %q", format))
	}

	w.logger.InfoContext(ctx, "wrote output",
		slog.String("path", path),
		slog.String("format", string(format)),
		slog.Int("rows", df.Nrow()))
	return nil
}

// writePartitioned splits the frame on the partition column and writes each
// subset under a col=value directory.
func (w *Writer) writePartitioned(ctx context.Context, df dataframe.DataFrame, path string, format Format, opts WriteOptions) error {
	col := opts.PartitionBy
	found := false
	for _, name := range df.Names() {
		if name == col {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("partition column %q not in frame", col)
	}

	values := uniqueStrings(df.Col(col).Records())
	base := strings.TrimSuffix(path, filepath.Ext(path))
	ext := filepath.Ext(path)

	for _, v := range values {
		subset := df.Filter(dataframe.F{Colname: col, Comparator: series.Eq, Comparando: v})
		if subset.Err != nil {
			return fmt.Errorf("failed to partition on %s=%s: %w", col, v, subset.Err)
		}
		partPath := filepath.Join(base, fmt.Sprintf("%s=%s", col, sanitizePartValue(v)), "part-0"+ext)
		if err := w.WriteOutput(ctx, subset, partPath, format, WriteOptions{Sheet: opts.Sheet}); err != nil {
			return err
		}
	}
	return nil
}

func (w *Writer) writeCSV(df dataframe.DataFrame, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()
	if err := df.WriteCSV(f); err != nil {
		return fmt.Errorf("failed to write csv: %w", err)
	}
	return nil
}

func (w *Writer) writeJSON(df dataframe.DataFrame, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()
	if err := df.WriteJSON(f); err != nil {
		return fmt.Errorf("failed to write json: %w", err)
	}
	return nil
}

func (w *Writer) writeExcel(df dataframe.DataFrame, path, sheet string) error {
	if sheet == "" {
		sheet = "Sheet1"
	}
	wb := excelize.NewFile()
	defer wb.Close()

	index, err := wb.NewSheet(sheet)
	if err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}
	wb.SetActiveSheet(index)

	for i, record := range df.Records() {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return fmt.Errorf("failed to compute cell: %w", err)
		}
		row := make([]interface{}, len(record))
		for j, v := range record {
			row[j] = v
		}
		if err := wb.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i, err)
		}
	}

	if err := wb.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}
	return nil
}

func uniqueStrings(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	var out []string
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

func sanitizePartValue(v string) string {
	v = strings.ReplaceAll(v, string(os.PathSeparator), "_")
	return strings.ReplaceAll(v, "=", "_")
}
