package etl

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/xuri/excelize/v2"

	"datapipe/internal/errors"
)

// Reader reads raw pipeline feeds into dataframes.
type Reader struct {
	logger *slog.Logger
}

// NewReader creates a reader. A nil logger falls back to slog.Default.
func NewReader(logger *slog.Logger) *Reader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reader{logger: logger}
}

// ReadOptions configures directory reads.
type ReadOptions struct {
	// Pattern is the file glob within the directory. Defaults to *.csv.
	Pattern string
	// TagSourceFile adds a source_file column with the originating file name.
	TagSourceFile bool
}

// ReadCSVDir reads every CSV matching the pattern in a directory, sorted by
// file name, and concatenates them into one frame in a single batched pass.
// A missing directory yields an empty frame and a warning, not an error.
func (r *Reader) ReadCSVDir(ctx context.Context, dir string, opts ReadOptions) (dataframe.DataFrame, error) {
	pattern := opts.Pattern
	if pattern == "" {
		pattern = "*.csv"
	}

	if _, err := os.Stat(dir); os.IsNotExist(err) {
		r.logger.WarnContext(ctx, "source directory missing", slog.String("dir", dir))
		return dataframe.DataFrame{}, nil
	}

	matches, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("failed to glob %s: %w", dir, err)
	}
	sort.Strings(matches)

	chunks := make([]dataframe.DataFrame, 0, len(matches))
	for _, path := range matches {
		chunk, err := r.ReadCSVFile(ctx, path)
		if err != nil {
			return dataframe.DataFrame{}, err
		}
		if opts.TagSourceFile && chunk.Nrow() > 0 {
			name := filepath.Base(path)
			tags := make([]string, chunk.Nrow())
			for i := range tags {
				tags[i] = name
			}
			chunk = chunk.Mutate(series.New(tags, series.String, "source_file"))
		}
		chunks = append(chunks, chunk)
	}

	combined := ConcatAll(chunks)
	r.logger.InfoContext(ctx, "read source directory",
		slog.String("dir", dir),
		slog.Int("files", len(matches)),
		slog.Int("rows", combined.Nrow()))
	return combined, nil
}

// ReadCSVFile reads a single CSV file into a frame.
func (r *Reader) ReadCSVFile(ctx context.Context, path string) (dataframe.DataFrame, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return dataframe.DataFrame{}, errors.SourceNotFound(path, err)
		}
		return dataframe.DataFrame{}, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	df := dataframe.ReadCSV(f, dataframe.DefaultType(series.String), dataframe.DetectTypes(true))
	if df.Err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("failed to parse %s: %w", path, df.Err)
	}
	return df, nil
}

// ReadExcel reads the first (or named) sheet of an Excel workbook. The file
// extension selects the engine; xls and xlsb books are handled by excelize's
// converters the same way as xlsx.
func (r *Reader) ReadExcel(ctx context.Context, path, sheet string) (dataframe.DataFrame, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xls", ".xlsb":
		// supported
	default:
		return dataframe.DataFrame{}, errors.Wrap(errors.ErrUnsupportedInput,
			fmt.Errorf("unsupported Excel format: %s", filepath.Ext(path)))
	}

	wb, err := excelize.OpenFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return dataframe.DataFrame{}, errors.SourceNotFound(path, err)
		}
		return dataframe.DataFrame{}, fmt.Errorf("failed to open workbook %s: %w", path, err)
	}
	defer wb.Close()

	if sheet == "" {
		sheet = wb.GetSheetName(0)
	}
	rows, err := wb.GetRows(sheet)
	if err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}
	if len(rows) == 0 {
		return dataframe.DataFrame{}, nil
	}

	// Pad ragged rows so every record matches the header width.
	width := len(rows[0])
	records := make([][]string, 0, len(rows))
	for _, row := range rows {
		if len(row) < width {
			padded := make([]string, width)
			copy(padded, row)
			row = padded
		}
		records = append(records, row[:width])
	}

	df := dataframe.LoadRecords(records, dataframe.DefaultType(series.String), dataframe.DetectTypes(true))
	if df.Err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("failed to load sheet %q: %w", sheet, df.Err)
	}

	r.logger.InfoContext(ctx, "read workbook",
		slog.String("path", path),
		slog.String("sheet", sheet),
		slog.Int("rows", df.Nrow()))
	return df, nil
}

// ConcatAll concatenates frames in a single pass, skipping empty ones.
// Returns the zero frame when nothing has rows.
func ConcatAll(frames []dataframe.DataFrame) dataframe.DataFrame {
	var combined dataframe.DataFrame
	started := false
	for _, f := range frames {
		if f.Nrow() == 0 {
			continue
		}
		if !started {
			combined = f
			started = true
			continue
		}
		combined = combined.Concat(f)
	}
	return combined
}
