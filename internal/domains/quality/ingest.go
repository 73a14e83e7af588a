package quality

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"datapipe/internal/errors"
	"datapipe/internal/etl"
)

// defaultPlants are the plants with QC inspection feeds.
var defaultPlants = []string{"plant-01", "plant-02", "plant-03", "plant-04"}

func plantFileStem(plantID string) string {
	return strings.ReplaceAll(plantID, "-", "_")
}

func (p *Pipeline) inspectionFeedPath(plantID string) string {
	return filepath.Join(p.dataDir, "quality", "inspections", plantFileStem(plantID)+".parquet")
}

func (p *Pipeline) manualEntryPath(plantID string) string {
	return filepath.Join(p.dataDir, "quality", "manual_entries", plantID+".csv")
}

func tagColumn(df dataframe.DataFrame, name, value string) dataframe.DataFrame {
	tags := make([]string, df.Nrow())
	for i := range tags {
		tags[i] = value
	}
	return df.Mutate(series.New(tags, series.String, name))
}

// filterSince keeps rows whose inspection_date falls on or after the
// cutoff date. Frames without the column pass through untouched.
func filterSince(df dataframe.DataFrame, cutoff string) dataframe.DataFrame {
	hasDate := false
	for _, name := range df.Names() {
		if name == "inspection_date" {
			hasDate = true
			break
		}
	}
	if !hasDate || df.Nrow() == 0 {
		return df
	}
	var kept []etl.Row
	for _, row := range df.Maps() {
		if etl.AsString(row["inspection_date"]) >= cutoff {
			kept = append(kept, row)
		}
	}
	return etl.FrameFromRows(kept)
}

// IngestInspectionData combines MES inspection exports with digitized
// manual entries across plants for the lookback window. Unknown plant
// identifiers are skipped; the call fails only when no plant yields
// any records.
func (p *Pipeline) IngestInspectionData(ctx context.Context, plants []string, lookbackDays int) (dataframe.DataFrame, error) {
	if len(plants) == 0 {
		plants = defaultPlants
	}
	known := map[string]bool{}
	for _, id := range defaultPlants {
		known[id] = true
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -lookbackDays).Format("2006-01-02")
	ingestedAt := time.Now().UTC().Format(time.RFC3339)

	var frames []dataframe.DataFrame
	for _, plantID := range plants {
		if !known[plantID] {
			p.logger.Error("unknown plant identifier, skipping", slog.String("plant", plantID))
			continue
		}
		feed, err := p.reader.ReadParquet(ctx, p.inspectionFeedPath(plantID))
		if err != nil {
			if !errors.IsCode(err, errors.CodeSourceNotFound) {
				return dataframe.DataFrame{}, err
			}
			p.logger.Warn("MES inspection feed missing", slog.String("plant", plantID))
			feed = dataframe.DataFrame{}
		}
		if feed.Nrow() > 0 {
			feed = tagColumn(feed, "source", "mes")
			feed = filterSince(feed, cutoff)
		}

		manual, err := p.reader.ReadCSVFile(ctx, p.manualEntryPath(plantID))
		if err != nil {
			if !errors.IsCode(err, errors.CodeSourceNotFound) {
				return dataframe.DataFrame{}, err
			}
			p.logger.Warn("no manual entries found", slog.String("plant", plantID))
			manual = dataframe.DataFrame{}
		}
		if manual.Nrow() > 0 {
			manual = tagColumn(manual, "source", "manual")
		}

		combined := etl.ConcatAll([]dataframe.DataFrame{feed, manual})
		if combined.Nrow() == 0 {
			continue
		}
		combined = tagColumn(combined, "plant_id", plantID)
		combined = tagColumn(combined, "ingested_at", ingestedAt)
		frames = append(frames, combined)
	}
	if len(frames) == 0 {
		return dataframe.DataFrame{}, errors.SourceNotFound(filepath.Join(p.dataDir, "quality"), nil).
			WithDomain("quality")
	}

	result := etl.ConcatAll(frames)
	if result.Error() != nil {
		return dataframe.DataFrame{}, result.Error()
	}
	p.logger.Info("ingested inspection records",
		slog.Int("rows", result.Nrow()), slog.Int("plants", len(frames)))
	return result, nil
}
