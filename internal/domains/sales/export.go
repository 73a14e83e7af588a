package sales

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/go-gota/gota/dataframe"

	"datapipe/internal/etl"
)

type exportConfig struct {
	Format      etl.Format `toml:"format"`
	Partitioned bool       `toml:"partitioned"`
}

type manifestEntry struct {
	Section string `json:"section"`
	HasData bool   `json:"has_data"`
}

// WriteSalesOutput writes the cleaned transactions, every summary table, and
// the report manifest under a timestamped run directory.
func (p *Pipeline) WriteSalesOutput(ctx context.Context, cleaned dataframe.DataFrame, summaries Summaries, report Report) error {
	cfg, err := p.loadDomainConfig()
	if err != nil {
		return err
	}
	format := cfg.Export.Format
	if format == "" {
		format = etl.FormatParquet
	}

	runDir := filepath.Join(p.outputDir, "sales", time.Now().Format("20060102_150405"))
	p.logger.InfoContext(ctx, "writing sales outputs", slog.String("dir", runDir))

	hasRegion := false
	for _, name := range cleaned.Names() {
		if name == "region" {
			hasRegion = true
			break
		}
	}

	opts := etl.WriteOptions{}
	if cfg.Export.Partitioned && hasRegion {
		opts.PartitionBy = "region"
	}
	ext := string(format)
	if format == etl.FormatExcel {
		ext = "xlsx"
	}
	txPath := filepath.Join(runDir, "transactions."+ext)
	if err := p.writer.WriteOutput(ctx, cleaned, txPath, format, opts); err != nil {
		return fmt.Errorf("failed to write transactions: %w", err)
	}

	names := make([]string, 0, len(summaries))
	for name := range summaries {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		df := summaries[name]
		if df.Nrow() == 0 {
			continue
		}
		path := filepath.Join(runDir, "summaries", name+"."+ext)
		if err := p.writer.WriteOutput(ctx, df, path, format, etl.WriteOptions{}); err != nil {
			return fmt.Errorf("failed to write summary %s: %w", name, err)
		}
	}

	// Report manifest is always JSON, whatever the main format.
	manifest := make([]manifestEntry, 0, len(report))
	for _, section := range report {
		manifest = append(manifest, manifestEntry{
			Section: section.Title,
			HasData: section.Body != "" || section.Table.Nrow() > 0,
		})
	}
	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report manifest: %w", err)
	}
	if err := os.WriteFile(filepath.Join(runDir, "report_manifest.json"), data, 0644); err != nil {
		return fmt.Errorf("failed to write report manifest: %w", err)
	}

	p.logger.InfoContext(ctx, "export complete",
		slog.String("format", string(format)),
		slog.Int("summaries", len(names)))
	return nil
}
