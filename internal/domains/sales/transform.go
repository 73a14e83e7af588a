package sales

import (
	"context"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/go-gota/gota/dataframe"

	"datapipe/internal/etl"
)

// currencySymbols maps a leading currency symbol to its ISO code.
var currencySymbols = map[string]string{
	"$": "USD",
	"€": "EUR",
	"£": "GBP",
	"¥": "JPY",
}

// validChannels are the recognized sales channels; anything else becomes
// "other".
var validChannels = map[string]struct{}{
	"online":      {},
	"pos":         {},
	"wholesale":   {},
	"marketplace": {},
	"phone":       {},
}

// normalizeRecordType applies type-specific sign and direction rules to one
// transaction.
func normalizeRecordType(row etl.Row) {
	amount := etl.AsFloat(row["amount"])
	switch etl.AsString(row["record_type"]) {
	case "sale":
		row["amount"] = math.Abs(amount)
		row["direction"] = "credit"
	case "return":
		row["amount"] = -math.Abs(amount)
		row["direction"] = "debit"
	case "adjustment":
		// Adjustments keep their sign.
		if amount >= 0 {
			row["direction"] = "credit"
		} else {
			row["direction"] = "debit"
		}
	case "void":
		row["amount"] = 0.0
		row["direction"] = "void"
	case "":
		row["record_type"] = "unknown"
		row["direction"] = "unknown"
	default:
		row["direction"] = "unknown"
	}
}

// parseCurrency extracts the numeric amount and currency code from raw values
// like "$42.50" or "€1,200". Plain numbers are treated as USD.
func parseCurrency(raw interface{}) (float64, string) {
	switch t := raw.(type) {
	case float64:
		return t, "USD"
	case int:
		return float64(t), "USD"
	}

	s := strings.TrimSpace(etl.AsString(raw))
	for symbol, code := range currencySymbols {
		if strings.Contains(s, symbol) {
			cleaned := strings.ReplaceAll(strings.ReplaceAll(s, symbol, ""), ",", "")
			f, err := strconv.ParseFloat(cleaned, 64)
			if err != nil {
				return 0, code
			}
			return f, code
		}
	}

	f, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
	if err != nil {
		return 0, "USD"
	}
	return f, "USD"
}

// CleanSalesRecords is the main transformation entrypoint: it normalizes
// record types, parses raw currency amounts, cleans channel names, drops
// internal tracking columns, and fills missing regions.
func (p *Pipeline) CleanSalesRecords(ctx context.Context, df dataframe.DataFrame) (dataframe.DataFrame, error) {
	cols := map[string]struct{}{}
	for _, name := range df.Names() {
		cols[name] = struct{}{}
	}
	_, hasAmountRaw := cols["amount_raw"]
	_, hasChannel := cols["channel"]
	_, hasRegion := cols["region"]

	directions := map[string]int{}
	rows := df.Maps()
	for _, row := range rows {
		normalizeRecordType(row)

		if hasAmountRaw {
			amount, currency := parseCurrency(row["amount_raw"])
			row["amount"] = amount
			row["currency"] = currency
		}

		if hasChannel {
			channel := strings.ToLower(strings.TrimSpace(etl.AsString(row["channel"])))
			if _, ok := validChannels[channel]; !ok {
				channel = "other"
			}
			row["channel"] = channel
		}

		if hasRegion && etl.AsString(row["region"]) == "" {
			row["region"] = "UNKNOWN"
		}

		// Internal tracking columns never leave the pipeline.
		for k := range row {
			if strings.HasPrefix(k, "_") {
				delete(row, k)
			}
		}

		directions[etl.AsString(row["direction"])]++
	}

	cleaned := etl.FrameFromRows(rows)
	if cleaned.Err != nil {
		return dataframe.DataFrame{}, cleaned.Err
	}

	p.logger.InfoContext(ctx, "cleaned sales records",
		slog.Int("rows", cleaned.Nrow()),
		slog.Any("directions", directions))
	return cleaned, nil
}
