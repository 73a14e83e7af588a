package expectations

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
)

// Report is the serializable validation report for one domain.
type Report struct {
	Domain    string        `json:"domain"`
	Timestamp string        `json:"timestamp"`
	Total     int           `json:"total"`
	Passed    int           `json:"passed"`
	Results   []CheckResult `json:"results"`
}

// ToJSON renders a suite summary as an indented JSON report.
func ToJSON(summary Summary) (string, error) {
	report := Report{
		Domain:    summary.Domain,
		Timestamp: time.Now().Format(time.RFC3339),
		Total:     summary.Total,
		Passed:    summary.Passed,
		Results:   summary.Results,
	}
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal report: %w", err)
	}
	return string(data), nil
}

// ToSummary renders a short plain-text report listing failures.
func ToSummary(summary Summary) string {
	lines := []string{
		fmt.Sprintf("[%s] %d/%d passed", summary.Domain, summary.Passed, summary.Total),
	}
	for _, r := range summary.Results {
		if !r.Success {
			lines = append(lines, fmt.Sprintf("  FAIL: %s (unexpected: %d)",
				r.Expectation, r.UnexpectedCount))
		}
	}
	return strings.Join(lines, "\n")
}

// ToTable renders an ASCII table of per-expectation results.
func ToTable(summary Summary) string {
	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetHeader([]string{"Expectation", "Status", "Observed", "Unexpected"})

	for _, r := range summary.Results {
		status := "PASS"
		if !r.Success {
			status = "FAIL"
		}
		table.Append([]string{
			r.Expectation,
			status,
			r.ObservedValue,
			strconv.Itoa(r.UnexpectedCount),
		})
	}
	table.Render()
	return buf.String()
}

// SaveReport persists a report to a timestamped file under outputDir and
// returns the path.
func SaveReport(summary Summary, outputDir, format string) (string, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create report directory: %w", err)
	}
	stamp := time.Now().Format("20060102_150405")

	var path, content string
	switch format {
	case "json":
		report, err := ToJSON(summary)
		if err != nil {
			return "", err
		}
		path = filepath.Join(outputDir, fmt.Sprintf("%s_%s.json", summary.Domain, stamp))
		content = report
	case "table":
		path = filepath.Join(outputDir, fmt.Sprintf("%s_%s.txt", summary.Domain, stamp))
		content = ToTable(summary)
	default:
		path = filepath.Join(outputDir, fmt.Sprintf("%s_%s.txt", summary.Domain, stamp))
		content = ToSummary(summary)
	}

	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return "", fmt.Errorf("failed to write report: %w", err)
	}
	return path, nil
}
