package manufacturing

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

// defaultPlants are the MES-connected plants polled for production
// feeds.
var defaultPlants = []string{"plant-01", "plant-02", "plant-03", "plant-04"}

func plantFileStem(plantID string) string {
	return strings.ReplaceAll(plantID, "-", "_")
}

func (p *Pipeline) mesPath(plantID string) string {
	return filepath.Join(p.dataDir, "manufacturing", "mes", plantFileStem(plantID)+".parquet")
}

func (p *Pipeline) overridePath(plantID string) string {
	return filepath.Join(p.dataDir, "manufacturing", "overrides", plantID+".csv")
}

func (p *Pipeline) scrapLogPath(plantID string) string {
	return filepath.Join(p.dataDir, "manufacturing", "scrap_logs", plantFileStem(plantID)+".parquet")
}

func tagColumn(df dataframe.DataFrame, name, value string) dataframe.DataFrame {
	tags := make([]string, df.Nrow())
	for i := range tags {
		tags[i] = value
	}
	return df.Mutate(series.New(tags, series.String, name))
}

// IngestProductionData combines MES feeds, operator override files and
// scrap logs across the requested plants. Unknown plant ids are skipped
// with an error log; a completely empty result is a hard failure since
// it usually means plant connectivity is down.
func (p *Pipeline) IngestProductionData(ctx context.Context, plants []string) (dataframe.DataFrame, error) {
	if len(plants) == 0 {
		plants = defaultPlants
	}
	known := map[string]bool{}
	for _, id := range defaultPlants {
		known[id] = true
	}

	ingestedAt := time.Now().UTC().Format(time.RFC3339)
	var frames []dataframe.DataFrame
	for _, plantID := range plants {
		if !known[plantID] {
			p.logger.Error("unknown plant, skipping", slog.String("plant", plantID))
			continue
		}
		feed, err := p.reader.ReadParquet(ctx, p.mesPath(plantID))
		if err != nil {
			if !errors.IsCode(err, errors.CodeSourceNotFound) {
				return dataframe.DataFrame{}, err
			}
			p.logger.Warn("MES feed missing", slog.String("plant", plantID))
			feed = dataframe.DataFrame{}
		}

		overrides, err := p.reader.ReadCSVFile(ctx, p.overridePath(plantID))
		if err != nil && !errors.IsCode(err, errors.CodeSourceNotFound) {
			return dataframe.DataFrame{}, err
		}
		scrap, err := p.reader.ReadParquet(ctx, p.scrapLogPath(plantID))
		if err != nil && !errors.IsCode(err, errors.CodeSourceNotFound) {
			return dataframe.DataFrame{}, err
		}

		combined := etl.ConcatAll([]dataframe.DataFrame{feed, overrides, scrap})
		if combined.Nrow() == 0 {
			continue
		}
		combined = tagColumn(combined, "plant_id", plantID)
		combined = tagColumn(combined, "ingested_at", ingestedAt)
		frames = append(frames, combined)
	}
	if len(frames) == 0 {
		return dataframe.DataFrame{}, errors.SourceNotFound(filepath.Join(p.dataDir, "manufacturing"), nil).
			WithDomain("manufacturing")
	}

	result := etl.ConcatAll(frames)
	if result.Error() != nil {
		return dataframe.DataFrame{}, result.Error()
	}
	p.logger.Info("ingested production data",
		slog.Int("rows", result.Nrow()),
		slog.Int("plants", len(frames)))
	return result, nil
}
