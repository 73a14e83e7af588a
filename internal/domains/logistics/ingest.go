package logistics

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/go-gota/gota/dataframe"

	"datapipe/internal/errors"
	"datapipe/internal/etl"
)

// sourcePatterns maps logistics source types to their file patterns.
var sourcePatterns = map[string]string{
	"shipments":  "shipments_*.csv",
	"carriers":   "carrier_*.csv",
	"warehouses": "warehouse_*.csv",
	"rates":      "rate_schedule_*.csv",
}

// sourceOrder fixes the ingest order; map iteration is not deterministic.
var sourceOrder = []string{"shipments", "carriers", "warehouses", "rates"}

func (p *Pipeline) readSource(ctx context.Context, sourceType string) (dataframe.DataFrame, error) {
	pattern, ok := sourcePatterns[sourceType]
	if !ok {
		pattern = "*.csv"
	}
	dir := filepath.Join(p.dataDir, "logistics", sourceType)
	return p.reader.ReadCSVDir(ctx, dir, etl.ReadOptions{Pattern: pattern})
}

// IngestShippingData reads and combines all shipping source files. In
// incremental mode only records updated in the last day are kept.
func (p *Pipeline) IngestShippingData(ctx context.Context, incremental bool) (dataframe.DataFrame, error) {
	cutoff := time.Now().AddDate(0, 0, -1).Format("2006-01-02")

	chunks := make([]dataframe.DataFrame, 0, len(sourceOrder))
	for _, sourceType := range sourceOrder {
		chunk, err := p.readSource(ctx, sourceType)
		if err != nil {
			return dataframe.DataFrame{}, fmt.Errorf("failed to read %s: %w", sourceType, err)
		}
		if chunk.Nrow() == 0 {
			continue
		}

		hasUpdated := false
		for _, name := range chunk.Names() {
			if name == "updated_at" {
				hasUpdated = true
				break
			}
		}
		if incremental && hasUpdated {
			chunk = chunk.Filter(dataframe.F{
				Colname: "updated_at", Comparator: ">=", Comparando: cutoff,
			})
		}

		rows := chunk.Maps()
		for _, row := range rows {
			row["source"] = sourceType
		}
		chunks = append(chunks, etl.FrameFromRows(rows))
	}

	combined := etl.ConcatAll(chunks)
	if combined.Nrow() == 0 {
		return dataframe.DataFrame{}, errors.Wrap(errors.ErrSourceNotFound.WithDomain("logistics"), nil)
	}

	p.logger.InfoContext(ctx, "ingested shipping records",
		slog.Int("rows", combined.Nrow()),
		slog.Int("sources", len(sourceOrder)))
	return combined, nil
}

// IngestCarrierRates pulls the latest rate cards, layering in fuel surcharge
// and accessorial charge supplements when present. A non-empty carrierID
// restricts the result to that carrier.
func (p *Pipeline) IngestCarrierRates(ctx context.Context, carrierID string) (dataframe.DataFrame, error) {
	rates, err := p.readSource(ctx, "rates")
	if err != nil {
		return dataframe.DataFrame{}, err
	}

	supplements := []dataframe.DataFrame{}
	for _, name := range []string{"fuel_surcharges.csv", "accessorial_charges.csv"} {
		path := filepath.Join(p.dataDir, "logistics", "rates", name)
		df, err := p.reader.ReadCSVFile(ctx, path)
		if err != nil {
			if errors.IsCode(err, errors.CodeSourceNotFound) {
				continue
			}
			return dataframe.DataFrame{}, err
		}
		supplements = append(supplements, df)
	}
	extra := etl.ConcatAll(supplements)

	if carrierID != "" {
		rates = rates.Filter(dataframe.F{Colname: "carrier_id", Comparator: "==", Comparando: carrierID})
		if extra.Nrow() > 0 {
			extra = extra.Filter(dataframe.F{Colname: "carrier_id", Comparator: "==", Comparando: carrierID})
		}
	}
	if extra.Nrow() == 0 {
		return rates, nil
	}
	return etl.Merge(rates, extra, []string{"carrier_id", "service_level"}, "left")
}
