package finance

import (
	"context"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"datapipe/internal/etl"
)

// journalBalanced checks that total debits equal total credits for one
// journal entry, within tolerance.
func journalBalanced(lines []etl.Row) bool {
	var debit, credit float64
	for _, line := range lines {
		debit += etl.AsFloat(line["debit"])
		credit += etl.AsFloat(line["credit"])
	}
	return math.Abs(debit-credit) < debitCreditThreshold
}

// buildReversalLines creates an auto-reversal entry by flipping debits and
// credits, posted one month after the original's latest posting date.
func buildReversalLines(original []etl.Row) []etl.Row {
	var latest time.Time
	for _, line := range original {
		if d, err := time.Parse("2006-01-02", etl.AsString(line["posting_date"])); err == nil && d.After(latest) {
			latest = d
		}
	}
	reversalDate := latest.AddDate(0, 1, 0).Format("2006-01-02")

	reversals := make([]etl.Row, 0, len(original))
	for _, line := range original {
		r := etl.Row{}
		for k, v := range line {
			r[k] = v
		}
		r["debit"], r["credit"] = etl.AsFloat(line["credit"]), etl.AsFloat(line["debit"])
		r["net_amount"] = etl.AsFloat(line["credit"]) - etl.AsFloat(line["debit"])
		r["posting_date"] = reversalDate
		r["journal_type"] = "auto_reversal"
		r["description"] = "REVERSAL: " + etl.AsString(line["description"])
		reversals = append(reversals, r)
	}
	return reversals
}

// ProcessJournalEntries groups transactions into journal entries, drops
// unbalanced journals with a warning, and generates auto-reversals for
// accrual entries.
func (p *Pipeline) ProcessJournalEntries(ctx context.Context, transactions dataframe.DataFrame) (dataframe.DataFrame, error) {
	groups := map[string][]etl.Row{}
	var order []string
	for _, row := range transactions.Maps() {
		id := etl.AsString(row["journal_id"])
		if _, seen := groups[id]; !seen {
			order = append(order, id)
		}
		groups[id] = append(groups[id], row)
	}
	sort.Strings(order)

	var processed []etl.Row
	var skipped []string
	journalCount := 0

	for _, id := range order {
		lines := groups[id]
		if !journalBalanced(lines) {
			skipped = append(skipped, id)
			continue
		}
		processed = append(processed, lines...)
		journalCount++

		hasAccrual := false
		for _, line := range lines {
			if etl.AsString(line["journal_type"]) == "accrual" {
				hasAccrual = true
				break
			}
		}
		if hasAccrual {
			processed = append(processed, buildReversalLines(lines)...)
		}
	}

	if len(skipped) > 0 {
		sample := skipped
		if len(sample) > 5 {
			sample = sample[:5]
		}
		p.logger.WarnContext(ctx, "skipped unbalanced journals",
			slog.Int("count", len(skipped)),
			slog.Any("sample", sample))
	}

	if len(processed) == 0 {
		return dataframe.DataFrame{}, nil
	}
	df := dataframe.LoadMaps(processed, dataframe.DefaultType(series.String), dataframe.DetectTypes(true))
	if df.Err != nil {
		return dataframe.DataFrame{}, df.Err
	}

	p.logger.InfoContext(ctx, "processed journal entries",
		slog.Int("journals", journalCount),
		slog.Int("lines", df.Nrow()))
	return df, nil
}
