package finance

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"datapipe/internal/errors"
	"datapipe/internal/etl"
)

// validationSampleRows bounds the rows returned by validate-only loads.
const validationSampleRows = 100

// readGLExtracts reads general ledger flat files and combines them.
func (p *Pipeline) readGLExtracts(ctx context.Context) (dataframe.DataFrame, error) {
	dir := filepath.Join(p.dataDir, "finance", "general_ledger")
	df, err := p.reader.ReadCSVDir(ctx, dir, etl.ReadOptions{Pattern: "gl_*.csv", TagSourceFile: true})
	if err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("failed to read GL extracts: %w", err)
	}
	if df.Nrow() == 0 {
		return dataframe.DataFrame{}, errors.SourceNotFound(dir, nil)
	}
	p.logger.InfoContext(ctx, "loaded GL records", slog.Int("rows", df.Nrow()))
	return df, nil
}

// readSubledger reads AP or AR subledger extracts plus any Excel-based
// correction workbooks.
func (p *Pipeline) readSubledger(ctx context.Context, subdir, prefix string) (dataframe.DataFrame, error) {
	dir := filepath.Join(p.dataDir, "finance", subdir)
	df, err := p.reader.ReadCSVDir(ctx, dir, etl.ReadOptions{Pattern: prefix + "_*.csv"})
	if err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("failed to read %s subledger: %w", prefix, err)
	}

	chunks := []dataframe.DataFrame{df}
	corrections, _ := filepath.Glob(filepath.Join(dir, prefix+"_corrections*.xlsx"))
	for _, path := range corrections {
		wb, err := p.reader.ReadExcel(ctx, path, "")
		if err != nil {
			return dataframe.DataFrame{}, fmt.Errorf("failed to read corrections %s: %w", path, err)
		}
		chunks = append(chunks, wb)
	}

	combined := etl.ConcatAll(chunks)
	if combined.Nrow() > 0 {
		tag := make([]string, combined.Nrow())
		for i := range tag {
			tag[i] = map[string]string{"ap": "AP", "ar": "AR"}[prefix]
		}
		combined = combined.Mutate(series.New(tag, series.String, "subledger"))
	}
	return combined, nil
}

// LoadFinancialSources loads GL, AP, and AR extracts into a combined frame.
// In validate-only mode a bounded GL sample is returned without subledgers.
func (p *Pipeline) LoadFinancialSources(ctx context.Context, validateOnly bool) (dataframe.DataFrame, error) {
	gl, err := p.readGLExtracts(ctx)
	if err != nil {
		return dataframe.DataFrame{}, err
	}

	if validateOnly {
		n := gl.Nrow()
		if n > validationSampleRows {
			n = validationSampleRows
		}
		idx := make([]int, n)
		for i := range idx {
			idx[i] = i
		}
		return gl.Subset(idx), nil
	}

	ap, err := p.readSubledger(ctx, "accounts_payable", "ap")
	if err != nil {
		return dataframe.DataFrame{}, err
	}
	ar, err := p.readSubledger(ctx, "accounts_receivable", "ar")
	if err != nil {
		return dataframe.DataFrame{}, err
	}

	all := etl.ConcatAll([]dataframe.DataFrame{gl, ap, ar})
	stamp := time.Now().Format(time.RFC3339)
	stamps := make([]string, all.Nrow())
	for i := range stamps {
		stamps[i] = stamp
	}
	all = all.Mutate(series.New(stamps, series.String, "ingested_at"))

	p.logger.InfoContext(ctx, "ingested financial records", slog.Int("rows", all.Nrow()))
	return all, nil
}
