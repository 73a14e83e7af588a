package inventory

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"time"

	"github.com/go-gota/gota/dataframe"

	"datapipe/internal/errors"
	"datapipe/internal/etl"
)

// warehouseSources maps warehouse identifiers to their feed directories
// under the inventory data root.
var warehouseSources = map[string]string{
	"us-east":    "us_east",
	"us-west":    "us_west",
	"eu-central": "eu_central",
	"apac":       "apac",
}

// readWarehouseFeed pulls the daily parquet feed for one warehouse and tags
// each record with its origin.
func (p *Pipeline) readWarehouseFeed(ctx context.Context, warehouseID, dir string) (dataframe.DataFrame, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.parquet"))
	if err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("failed to glob %s: %w", dir, err)
	}
	sort.Strings(matches)

	chunks := make([]dataframe.DataFrame, 0, len(matches))
	for _, path := range matches {
		df, err := p.reader.ReadParquet(ctx, path)
		if err != nil {
			return dataframe.DataFrame{}, fmt.Errorf("failed to read feed %s: %w", path, err)
		}
		chunks = append(chunks, df)
	}

	combined := etl.ConcatAll(chunks)
	if combined.Nrow() == 0 {
		return combined, nil
	}

	stamp := time.Now().Format("2006-01-02")
	rows := combined.Maps()
	for _, row := range rows {
		row["warehouse_source"] = warehouseID
		if etl.AsString(row["ingested_at"]) == "" {
			row["ingested_at"] = stamp
		}
	}
	p.logger.InfoContext(ctx, "read warehouse feed",
		slog.String("warehouse", warehouseID),
		slog.Int("rows", len(rows)))
	return etl.FrameFromRows(rows), nil
}

// fetchManualAdjustments loads stock adjustment records submitted by
// warehouse managers. A missing file just means no adjustments.
func (p *Pipeline) fetchManualAdjustments(ctx context.Context, warehouseID string) (dataframe.DataFrame, error) {
	path := filepath.Join(p.dataDir, "inventory", "adjustments", warehouseID+".csv")
	df, err := p.reader.ReadCSVFile(ctx, path)
	if err != nil {
		if errors.IsCode(err, errors.CodeSourceNotFound) {
			p.logger.WarnContext(ctx, "no manual adjustments found",
				slog.String("warehouse", warehouseID))
			return dataframe.DataFrame{}, nil
		}
		return dataframe.DataFrame{}, err
	}
	return df, nil
}

// IngestInventoryData reads and combines inventory feeds across warehouses.
// Unknown warehouse identifiers are skipped with an error log. No data at
// all is a hard failure.
func (p *Pipeline) IngestInventoryData(ctx context.Context, warehouses []string) (dataframe.DataFrame, error) {
	targets := warehouses
	if len(targets) == 0 {
		targets = make([]string, 0, len(warehouseSources))
		for id := range warehouseSources {
			targets = append(targets, id)
		}
		sort.Strings(targets)
	}

	chunks := make([]dataframe.DataFrame, 0, len(targets)*2)
	for _, id := range targets {
		subdir, ok := warehouseSources[id]
		if !ok {
			p.logger.ErrorContext(ctx, "unknown warehouse, skipping", slog.String("warehouse", id))
			continue
		}

		feed, err := p.readWarehouseFeed(ctx, id, filepath.Join(p.dataDir, "inventory", "warehouses", subdir))
		if err != nil {
			return dataframe.DataFrame{}, err
		}
		chunks = append(chunks, feed)

		adjustments, err := p.fetchManualAdjustments(ctx, id)
		if err != nil {
			return dataframe.DataFrame{}, err
		}
		chunks = append(chunks, adjustments)
	}

	combined := etl.ConcatAll(chunks)
	if combined.Nrow() == 0 {
		return dataframe.DataFrame{}, errors.Wrap(errors.ErrSourceNotFound.WithDomain("inventory"), nil)
	}

	p.logger.InfoContext(ctx, "ingested inventory records",
		slog.Int("rows", combined.Nrow()),
		slog.Int("warehouses", len(targets)))
	return combined, nil
}
