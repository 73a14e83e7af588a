package marketing

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/go-gota/gota/dataframe"

	"datapipe/internal/errors"
	"datapipe/internal/etl"
)

const defaultLookbackDays = 90

// platformExports maps each ad platform to its export file name.
var platformExports = []struct {
	platform string
	filename string
}{
	{"google_ads", "google_ads_export.csv"},
	{"meta", "meta_ads_manager.csv"},
	{"linkedin", "linkedin_campaign_export.csv"},
	{"tiktok", "tiktok_business_export.csv"},
}

func (p *Pipeline) rawDir() string {
	return filepath.Join(p.dataDir, "marketing", "raw")
}

// IngestCampaignData loads every configured ad platform export, tags
// rows with their source platform, filters to the lookback window, and
// deduplicates on (campaign_id, date). A nil channels slice loads all
// platforms; missing exports are logged and skipped.
func (p *Pipeline) IngestCampaignData(ctx context.Context, channels []string, lookbackDays int) (dataframe.DataFrame, error) {
	if lookbackDays <= 0 {
		lookbackDays = defaultLookbackDays
	}

	wanted := map[string]bool{}
	for _, c := range channels {
		wanted[c] = true
	}

	var chunks []dataframe.DataFrame
	for _, export := range platformExports {
		if len(channels) > 0 && !wanted[export.platform] {
			continue
		}
		df, err := p.reader.ReadCSVFile(ctx, filepath.Join(p.rawDir(), export.filename))
		if err != nil {
			if errors.IsCode(err, errors.CodeSourceNotFound) {
				p.logger.ErrorContext(ctx, "missing platform export",
					slog.String("platform", export.platform),
					slog.String("file", export.filename))
				continue
			}
			return dataframe.DataFrame{}, err
		}
		rows := df.Maps()
		for _, row := range rows {
			row["source_platform"] = export.platform
		}
		chunks = append(chunks, etl.FrameFromRows(rows))
		p.logger.InfoContext(ctx, "loaded platform export",
			slog.String("platform", export.platform),
			slog.Int("rows", df.Nrow()))
	}

	combined := etl.ConcatAll(chunks)
	if combined.Nrow() == 0 {
		return dataframe.DataFrame{}, errors.SourceNotFound(p.rawDir(), nil).WithDomain("marketing")
	}

	cutoff := time.Now().UTC().AddDate(0, 0, -lookbackDays).Format("2006-01-02")
	type key struct {
		campaign, date string
	}
	seen := map[key]bool{}
	var rows []etl.Row
	dupes := 0
	for _, row := range combined.Maps() {
		date := etl.AsString(row["date"])
		if date < cutoff {
			continue
		}
		k := key{etl.AsString(row["campaign_id"]), date}
		if seen[k] {
			dupes++
			continue
		}
		seen[k] = true
		rows = append(rows, row)
	}
	if dupes > 0 {
		p.logger.InfoContext(ctx, "removed duplicate rows", slog.Int("duplicates", dupes))
	}
	if len(rows) == 0 {
		return dataframe.DataFrame{}, errors.SourceNotFound(p.rawDir(), nil).WithDomain("marketing")
	}
	return etl.FrameFromRows(rows), nil
}

// readOptionalFeed loads a supplemental CSV feed by name, returning an
// empty frame when the file does not exist.
func (p *Pipeline) readOptionalFeed(ctx context.Context, filename string) (dataframe.DataFrame, error) {
	df, err := p.reader.ReadCSVFile(ctx, filepath.Join(p.rawDir(), filename))
	if err != nil {
		if errors.IsCode(err, errors.CodeSourceNotFound) {
			p.logger.WarnContext(ctx, "optional feed missing", slog.String("file", filename))
			return dataframe.DataFrame{}, nil
		}
		return dataframe.DataFrame{}, err
	}
	return df, nil
}
