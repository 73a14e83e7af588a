package expectations

import (
	"context"
	"log/slog"

	"github.com/go-gota/gota/dataframe"
)

// SuiteStatus classifies the overall outcome of a suite run.
type SuiteStatus string

const (
	StatusPassed  SuiteStatus = "passed"
	StatusWarning SuiteStatus = "warning"
	StatusFailed  SuiteStatus = "failed"
)

// Summary aggregates the outcome of running one domain's suite.
type Summary struct {
	Domain  string        `json:"domain"`
	Status  SuiteStatus   `json:"status"`
	Total   int           `json:"total"`
	Passed  int           `json:"passed"`
	Failed  []string      `json:"failed_expectations"`
	Results []CheckResult `json:"results"`
}

// Runner executes expectation suites against domain output tables.
type Runner struct {
	logger *slog.Logger
	strict bool
}

// NewRunner creates a suite runner. In strict mode any failure fails the
// suite; otherwise up to two failures downgrade to a warning.
func NewRunner(logger *slog.Logger, strict bool) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{logger: logger, strict: strict}
}

// Run evaluates the domain's suite against the frame.
func (r *Runner) Run(ctx context.Context, domain string, df dataframe.DataFrame) Summary {
	suite := SuiteFor(domain)

	summary := Summary{Domain: domain, Total: len(suite), Failed: []string{}}
	for _, exp := range suite {
		result := Evaluate(df, exp)
		summary.Results = append(summary.Results, result)
		if result.Success {
			summary.Passed++
		} else {
			summary.Failed = append(summary.Failed,
				result.Expectation+": "+result.ObservedValue)
		}
	}

	failures := summary.Total - summary.Passed
	switch {
	case failures == 0:
		summary.Status = StatusPassed
	case failures <= 2 && !r.strict:
		summary.Status = StatusWarning
	default:
		summary.Status = StatusFailed
	}

	r.logger.InfoContext(ctx, "expectation suite finished",
		slog.String("domain", domain),
		slog.Int("passed", summary.Passed),
		slog.Int("total", summary.Total),
		slog.String("status", string(summary.Status)))
	return summary
}

// RunAll evaluates every domain's suite against its output frame and reports
// whether the whole batch passed (warnings do not fail the batch).
func (r *Runner) RunAll(ctx context.Context, frames map[string]dataframe.DataFrame) ([]Summary, bool) {
	summaries := make([]Summary, 0, len(frames))
	allPassed := true
	for domain, df := range frames {
		summary := r.Run(ctx, domain, df)
		summaries = append(summaries, summary)
		if summary.Status == StatusFailed {
			allPassed = false
		}
	}
	return summaries, allPassed
}
