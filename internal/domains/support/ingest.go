package support

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"datapipe/internal/errors"
	"datapipe/internal/etl"
)

// ticketSources are the upstream systems polled for ticket exports, in
// ingest order. Each source drops a support_<source>.csv into the data
// directory.
var ticketSources = []string{"zendesk", "intercom", "email_inbox"}

const incrementalWindowDays = 7

func (p *Pipeline) supportDir() string {
	return filepath.Join(p.dataDir, "support")
}

// FetchOptions controls which ticket rows FetchTicketData returns.
type FetchOptions struct {
	// ValidateOnly caps the result at the first 500 rows for cheap
	// schema checks.
	ValidateOnly bool
	// Incremental keeps only tickets created in the trailing week.
	Incremental bool
	// Quarter filters to a fiscal quarter, e.g. "2024-Q2".
	Quarter string
}

// FetchTicketData reads ticket exports from every source system,
// tagging each row with its origin. Missing exports are skipped with a
// warning; if no source yields rows the caller gets a source-not-found
// error.
func (p *Pipeline) FetchTicketData(ctx context.Context, opts FetchOptions) (dataframe.DataFrame, error) {
	var frames []dataframe.DataFrame
	for _, source := range ticketSources {
		path := filepath.Join(p.supportDir(), "support_"+source+".csv")
		df, err := p.reader.ReadCSVFile(ctx, path)
		if err != nil {
			if errors.IsCode(err, errors.CodeSourceNotFound) {
				p.logger.Warn("ticket export missing, skipping source",
					slog.String("source", source), slog.String("path", path))
				continue
			}
			return dataframe.DataFrame{}, err
		}
		if df.Nrow() == 0 {
			continue
		}
		tag := make([]string, df.Nrow())
		for i := range tag {
			tag[i] = source
		}
		df = df.Mutate(series.New(tag, series.String, "source_system"))
		frames = append(frames, df)
	}
	if len(frames) == 0 {
		return dataframe.DataFrame{}, errors.SourceNotFound(p.supportDir(), nil).WithDomain("support")
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
		combined = filterRecent(combined, time.Now().UTC(), incrementalWindowDays)
	}
	if opts.Quarter != "" {
		filtered, err := filterQuarter(combined, opts.Quarter)
		if err != nil {
			return dataframe.DataFrame{}, err
		}
		combined = filtered
	}
	p.logger.Info("fetched ticket data",
		slog.Int("rows", combined.Nrow()),
		slog.Int("sources", len(frames)))
	return combined, nil
}

func filterRecent(df dataframe.DataFrame, now time.Time, windowDays int) dataframe.DataFrame {
	cutoff := now.AddDate(0, 0, -windowDays)
	rows := df.Maps()
	var kept []etl.Row
	for _, row := range rows {
		ts, err := time.Parse(time.RFC3339, etl.AsString(row["created_at"]))
		if err != nil {
			continue
		}
		if !ts.Before(cutoff) {
			kept = append(kept, row)
		}
	}
	return etl.FrameFromRows(kept)
}

// filterQuarter keeps tickets created inside a fiscal quarter formatted
// as "<year>-Q<n>".
func filterQuarter(df dataframe.DataFrame, quarter string) (dataframe.DataFrame, error) {
	parts := strings.SplitN(quarter, "-Q", 2)
	if len(parts) != 2 {
		return dataframe.DataFrame{}, fmt.Errorf("malformed quarter %q, want e.g. 2024-Q2", quarter)
	}
	year, err := strconv.Atoi(parts[0])
	if err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("malformed quarter %q: %w", quarter, err)
	}
	q, err := strconv.Atoi(parts[1])
	if err != nil || q < 1 || q > 4 {
		return dataframe.DataFrame{}, fmt.Errorf("malformed quarter %q", quarter)
	}

	var kept []etl.Row
	for _, row := range df.Maps() {
		ts, perr := time.Parse(time.RFC3339, etl.AsString(row["created_at"]))
		if perr != nil {
			continue
		}
		if ts.Year() == year && (int(ts.Month())-1)/3+1 == q {
			kept = append(kept, row)
		}
	}
	return etl.FrameFromRows(kept), nil
}

// LoadAgentRoster reads the agent directory and appends a synthetic
// UNASSIGNED entry so unrouted tickets still join cleanly.
func (p *Pipeline) LoadAgentRoster(ctx context.Context) (dataframe.DataFrame, error) {
	path := filepath.Join(p.supportDir(), "agent_roster.csv")
	df, err := p.reader.ReadCSVFile(ctx, path)
	if err != nil {
		return dataframe.DataFrame{}, err
	}
	rows := df.Maps()
	if len(rows) == 0 {
		return df, nil
	}
	synthetic := etl.Row{}
	for key := range rows[0] {
		synthetic[key] = ""
	}
	synthetic["agent_id"] = "UNASSIGNED"
	synthetic["name"] = "Unassigned Queue"
	rows = append(rows, synthetic)
	return etl.FrameFromRows(rows), nil
}
