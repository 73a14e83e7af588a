package quality

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

// ncrNullRateThreshold is the per-column null share above which a feed
// column is reported as a data quality issue.
const ncrNullRateThreshold = 0.25

var ncrSources = []struct {
	name string
	file string
}{
	{"incoming", "incoming.parquet"},
	{"in_process", "in_process.parquet"},
	{"final", "final_inspection.parquet"},
	{"customer", "customer_complaints.parquet"},
}

// NCRReport bundles the enriched non-conformance records with the
// aging view of everything still open.
type NCRReport struct {
	Enriched dataframe.DataFrame
	Aging    dataframe.DataFrame
}

// NCRAgingBucket classifies an open NCR's age for management review.
func NCRAgingBucket(ageDays int) string {
	switch {
	case ageDays <= 7:
		return "0-7 days"
	case ageDays <= 30:
		return "8-30 days"
	case ageDays <= 90:
		return "31-90 days"
	default:
		return "90+ days"
	}
}

// validateNCRFields reports columns whose null share exceeds the
// threshold.
func validateNCRFields(df dataframe.DataFrame) []string {
	rows := df.Maps()
	if len(rows) == 0 {
		return nil
	}
	var issues []string
	for _, name := range df.Names() {
		nulls := 0
		for _, row := range rows {
			if etl.AsString(row[name]) == "" {
				nulls++
			}
		}
		rate := float64(nulls) / float64(len(rows))
		if rate > ncrNullRateThreshold {
			issues = append(issues, fmt.Sprintf("%s: %.1f%% null", name, rate*100))
		}
	}
	return issues
}

// ProcessNonconformanceReports combines the NCR feeds from incoming,
// in-process, final inspection, and customer complaint sources into a
// unified report with days-open enrichment and aging buckets for
// everything still open. Missing feeds are tolerated; with no feeds at
// all the report is empty rather than an error.
func (p *Pipeline) ProcessNonconformanceReports(ctx context.Context, asOf time.Time) (NCRReport, error) {
	var frames []dataframe.DataFrame
	for _, src := range ncrSources {
		path := filepath.Join(p.dataDir, "quality", "ncr", src.file)
		feed, err := p.reader.ReadParquet(ctx, path)
		if err != nil {
			if !errors.IsCode(err, errors.CodeSourceNotFound) {
				return NCRReport{}, err
			}
			p.logger.Warn("NCR feed missing", slog.String("source", src.name))
			continue
		}
		if feed.Nrow() == 0 {
			continue
		}
		frames = append(frames, tagColumn(feed, "ncr_source", src.name))
	}
	if len(frames) == 0 {
		p.logger.Warn("no NCR feeds available")
		return NCRReport{}, nil
	}

	combined := etl.ConcatAll(frames)
	if combined.Error() != nil {
		return NCRReport{}, combined.Error()
	}
	if issues := validateNCRFields(combined); len(issues) > 0 {
		p.logger.Warn("NCR data quality issues", slog.Any("issues", issues))
	}

	var enriched []etl.Row
	var aging []etl.Row
	for _, row := range combined.Maps() {
		created, createdErr := time.Parse("2006-01-02", etl.AsString(row["created_date"]))

		daysOpen := interface{}("")
		if closed, err := time.Parse("2006-01-02", etl.AsString(row["closed_date"])); err == nil && createdErr == nil {
			daysOpen = int(closed.Sub(created).Hours() / 24)
		}
		row["days_open"] = daysOpen
		enriched = append(enriched, row)

		status := etl.AsString(row["status"])
		if (status == "open" || status == "investigating") && createdErr == nil {
			age := int(asOf.Sub(created).Hours() / 24)
			aged := etl.Row{}
			for k, v := range row {
				aged[k] = v
			}
			aged["age_days"] = age
			aged["aging_bucket"] = NCRAgingBucket(age)
			aging = append(aging, aged)
		}
	}

	p.logger.Info("processed nonconformance reports",
		slog.Int("total", len(enriched)), slog.Int("open", len(aging)))
	return NCRReport{
		Enriched: etl.FrameFromRows(enriched),
		Aging:    etl.FrameFromRows(aging),
	}, nil
}
