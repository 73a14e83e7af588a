package procurement

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"datapipe/internal/config"
	"datapipe/internal/errors"
	"datapipe/internal/etl"
)

const incrementalWindowDays = 14

type feedConfig struct {
	Feeds struct {
		PODir      string `toml:"po_dir"`
		InvoiceDir string `toml:"invoice_dir"`
	} `toml:"feeds"`
}

func (p *Pipeline) feedDirs() (poDir, invoiceDir string, err error) {
	var cfg feedConfig
	if _, err := config.DecodeDomainTOML(filepath.Join(p.configDir, "procurement", "feeds.toml"), &cfg); err != nil {
		return "", "", err
	}
	if cfg.Feeds.PODir == "" {
		cfg.Feeds.PODir = "purchase_orders"
	}
	if cfg.Feeds.InvoiceDir == "" {
		cfg.Feeds.InvoiceDir = "invoices"
	}
	base := filepath.Join(p.dataDir, "procurement", "raw")
	return filepath.Join(base, cfg.Feeds.PODir), filepath.Join(base, cfg.Feeds.InvoiceDir), nil
}

// LoadOptions controls which procurement rows LoadProcurementData returns.
type LoadOptions struct {
	// ValidateOnly caps the result at the first 500 rows.
	ValidateOnly bool
	// Incremental keeps only POs dated within the trailing two weeks.
	Incremental bool
}

// LoadProcurementData combines the purchase order and AP invoice feeds
// into one frame, tagging each row with its feed of origin. A missing
// PO directory is tolerated with a warning so invoice-only periods
// still process.
func (p *Pipeline) LoadProcurementData(ctx context.Context, opts LoadOptions) (dataframe.DataFrame, error) {
	poDir, invoiceDir, err := p.feedDirs()
	if err != nil {
		return dataframe.DataFrame{}, err
	}

	var frames []dataframe.DataFrame
	for _, feed := range []struct {
		name string
		dir  string
	}{
		{"purchase_orders", poDir},
		{"invoices", invoiceDir},
	} {
		df, err := p.reader.ReadCSVDir(ctx, feed.dir, etl.ReadOptions{Pattern: "*.csv", TagSourceFile: true})
		if err != nil {
			return dataframe.DataFrame{}, err
		}
		if df.Nrow() == 0 {
			p.logger.Warn("feed yielded no rows",
				slog.String("feed", feed.name), slog.String("dir", feed.dir))
			continue
		}
		tag := make([]string, df.Nrow())
		for i := range tag {
			tag[i] = feed.name
		}
		df = df.Mutate(series.New(tag, series.String, "feed"))
		frames = append(frames, df)
	}
	if len(frames) == 0 {
		return dataframe.DataFrame{}, errors.SourceNotFound(filepath.Join(p.dataDir, "procurement", "raw"), nil).
			WithDomain("procurement")
	}

	combined := etl.ConcatAll(frames)
	if combined.Error() != nil {
		return dataframe.DataFrame{}, combined.Error()
	}

	if opts.ValidateOnly {
		if combined.Nrow() > 500 {
			idx := make([]int, 500)
			for i := range idx {
				idx[i] = i
			}
			combined = combined.Subset(idx)
		}
		return combined, nil
	}
	if opts.Incremental {
		cutoff := time.Now().UTC().AddDate(0, 0, -incrementalWindowDays).Format("2006-01-02")
		var kept []etl.Row
		for _, row := range combined.Maps() {
			if etl.AsString(row["po_date"]) >= cutoff {
				kept = append(kept, row)
			}
		}
		combined = etl.FrameFromRows(kept)
	}
	p.logger.Info("loaded procurement records", slog.Int("rows", combined.Nrow()))
	return combined, nil
}

// readOptionalFeed reads a single CSV from the raw procurement
// directory, returning an empty frame when the file is absent.
func (p *Pipeline) readOptionalFeed(ctx context.Context, filename string) (dataframe.DataFrame, error) {
	path := filepath.Join(p.dataDir, "procurement", "raw", filename)
	df, err := p.reader.ReadCSVFile(ctx, path)
	if err != nil {
		if errors.IsCode(err, errors.CodeSourceNotFound) {
			p.logger.Warn("optional feed missing", slog.String("path", path))
			return dataframe.DataFrame{}, nil
		}
		return dataframe.DataFrame{}, err
	}
	return df, nil
}
