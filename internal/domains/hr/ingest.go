package hr

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"

	"github.com/go-gota/gota/dataframe"

	"datapipe/internal/errors"
	"datapipe/internal/etl"
)

// supplementalSources are layered onto the employee master when present.
// Each is keyed by employee_id.
var supplementalSources = []string{
	"benefits_enrollment.csv",
	"pto_balances.csv",
	"equity_grants.csv",
}

func (p *Pipeline) hrisDir() string {
	return filepath.Join(p.dataDir, "hr", "hris_exports")
}

// IngestHRISData loads all monthly employee exports, deduplicates by
// employee ID keeping the most recent record, and left-joins the
// supplemental sources.
func (p *Pipeline) IngestHRISData(ctx context.Context) (dataframe.DataFrame, error) {
	combined, err := p.reader.ReadCSVDir(ctx, p.hrisDir(), etl.ReadOptions{Pattern: "employees_*.csv"})
	if err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("failed to read HRIS exports: %w", err)
	}
	if combined.Nrow() == 0 {
		return dataframe.DataFrame{}, errors.SourceNotFound(p.hrisDir(), nil).WithDomain("hr")
	}

	// Monthly exports overlap; the last record per employee wins.
	latest := map[string]etl.Row{}
	var order []string
	for _, row := range combined.Maps() {
		id := etl.AsString(row["employee_id"])
		if _, seen := latest[id]; !seen {
			order = append(order, id)
		}
		latest[id] = row
	}
	sort.Strings(order)
	rows := make([]etl.Row, 0, len(order))
	for _, id := range order {
		rows = append(rows, latest[id])
	}
	employees := etl.FrameFromRows(rows)

	for _, name := range supplementalSources {
		path := filepath.Join(p.hrisDir(), name)
		supp, err := p.reader.ReadCSVFile(ctx, path)
		if err != nil {
			if errors.IsCode(err, errors.CodeSourceNotFound) {
				continue
			}
			return dataframe.DataFrame{}, fmt.Errorf("failed to read supplemental %s: %w", name, err)
		}
		employees, err = etl.Merge(employees, supp, []string{"employee_id"}, "left")
		if err != nil {
			return dataframe.DataFrame{}, fmt.Errorf("failed to join supplemental %s: %w", name, err)
		}
		p.logger.InfoContext(ctx, "joined supplemental source",
			slog.String("file", name),
			slog.Int("rows", supp.Nrow()))
	}

	p.logger.InfoContext(ctx, "ingested employee records", slog.Int("employees", employees.Nrow()))
	return employees, nil
}

// LoadOrgChartExport loads the latest org-chart CSV dropped by HRIS.
func (p *Pipeline) LoadOrgChartExport(ctx context.Context) (dataframe.DataFrame, error) {
	matches, err := filepath.Glob(filepath.Join(p.hrisDir(), "org_chart_*.csv"))
	if err != nil {
		return dataframe.DataFrame{}, err
	}
	if len(matches) == 0 {
		p.logger.WarnContext(ctx, "no org chart exports found", slog.String("dir", p.hrisDir()))
		return dataframe.DataFrame{}, nil
	}
	sort.Sort(sort.Reverse(sort.StringSlice(matches)))
	return p.reader.ReadCSVFile(ctx, matches[0])
}
