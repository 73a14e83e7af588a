package sales

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/olekukonko/tablewriter"

	"datapipe/internal/etl"
)

// ReportSection is one block of the assembled sales report.
type ReportSection struct {
	Title           string              `json:"title"`
	Body            string              `json:"body,omitempty"`
	Table           dataframe.DataFrame `json:"-"`
	Underperformers dataframe.DataFrame `json:"-"`
	Notes           []string            `json:"notes,omitempty"`
}

// Report is the full sales report, section by section.
type Report []ReportSection

// formatTopPerformers highlights the top and bottom performers for one
// dimension.
func formatTopPerformers(summary dataframe.DataFrame, label string) ReportSection {
	if summary.Nrow() == 0 {
		return ReportSection{Title: "Top " + label, Body: "No data available"}
	}

	rows := summary.Maps()
	sort.Slice(rows, func(i, j int) bool {
		return etl.AsFloat(rows[i]["total_amount"]) > etl.AsFloat(rows[j]["total_amount"])
	})

	top := rows
	if len(top) > 5 {
		top = top[:5]
	}
	bottom := rows
	if len(bottom) > 3 {
		bottom = bottom[len(bottom)-3:]
	}

	var total, topTotal float64
	for _, row := range rows {
		total += etl.AsFloat(row["total_amount"])
	}
	for _, row := range top {
		topTotal += etl.AsFloat(row["total_amount"])
	}

	var notes []string
	share := 0.0
	if total != 0 {
		share = topTotal / total
	}
	notes = append(notes, fmt.Sprintf("Top 5 %ss account for %.1f%% of total revenue", strings.ToLower(label), share*100))

	if stddev, mean := amountSpread(rows); stddev > mean {
		notes = append(notes, fmt.Sprintf("High variance detected across %ss", strings.ToLower(label)))
	}

	return ReportSection{
		Title:           "Top " + label + " Performance",
		Table:           etl.FrameFromRows(top),
		Underperformers: etl.FrameFromRows(bottom),
		Notes:           notes,
	}
}

func amountSpread(rows []etl.Row) (stddev, mean float64) {
	if len(rows) == 0 {
		return 0, 0
	}
	for _, row := range rows {
		mean += etl.AsFloat(row["total_amount"])
	}
	mean /= float64(len(rows))
	for _, row := range rows {
		d := etl.AsFloat(row["total_amount"]) - mean
		stddev += d * d
	}
	stddev = math.Sqrt(stddev / float64(len(rows)))
	return stddev, mean
}

// buildTrendSection summarizes month-over-month movement from the
// multi-grain time series.
func buildTrendSection(timeSeries dataframe.DataFrame) ReportSection {
	var monthly []etl.Row
	for _, row := range timeSeries.Maps() {
		if etl.AsString(row["grain"]) == "M" {
			monthly = append(monthly, row)
		}
	}
	if len(monthly) < 2 {
		return ReportSection{Title: "Trends", Body: "Insufficient data for trend analysis"}
	}

	sort.Slice(monthly, func(i, j int) bool {
		return etl.AsString(monthly[i]["period"]) < etl.AsString(monthly[j]["period"])
	})

	last := etl.AsFloat(monthly[len(monthly)-1]["total_amount"])
	prev := etl.AsFloat(monthly[len(monthly)-2]["total_amount"])
	change := 0.0
	if prev != 0 {
		change = (last - prev) / prev
	}
	direction := "down"
	if change > 0 {
		direction = "up"
	}

	return ReportSection{
		Title: "Monthly Sales Trend",
		Table: etl.FrameFromRows(monthly),
		Notes: []string{fmt.Sprintf("Most recent month is %s %.1f%% MoM", direction, math.Abs(change)*100)},
	}
}

// GenerateReport assembles the full sales report from the summary tables.
func (p *Pipeline) GenerateReport(ctx context.Context, summaries Summaries) Report {
	report := Report{{
		Title: "Sales Pipeline Report",
		Body:  "Generated: " + time.Now().Format("2006-01-02 15:04"),
		Notes: []string{fmt.Sprintf("Includes %d summary tables", len(summaries))},
	}}

	if byRegion, ok := summaries["by_region"]; ok {
		report = append(report, formatTopPerformers(byRegion, "Region"))
	}
	if byCategory, ok := summaries["by_product_category"]; ok {
		report = append(report, formatTopPerformers(byCategory, "Category"))
	}
	if byChannel, ok := summaries["by_channel"]; ok {
		report = append(report, formatTopPerformers(byChannel, "Channel"))
	}
	if timeSeries, ok := summaries["time_series"]; ok {
		report = append(report, buildTrendSection(timeSeries))
	}

	p.logger.InfoContext(ctx, "report assembled", slog.Int("sections", len(report)))
	return report
}

// Render writes the report as text tables.
func (r Report) Render(w *strings.Builder) {
	for _, section := range r {
		fmt.Fprintf(w, "== %s ==\n", section.Title)
		if section.Body != "" {
			fmt.Fprintln(w, section.Body)
		}
		if section.Table.Nrow() > 0 {
			tw := tablewriter.NewWriter(w)
			tw.SetHeader(section.Table.Names())
			for _, rec := range section.Table.Records()[1:] {
				tw.Append(rec)
			}
			tw.Render()
		}
		for _, note := range section.Notes {
			fmt.Fprintf(w, "  - %s\n", note)
		}
		fmt.Fprintln(w)
	}
}
