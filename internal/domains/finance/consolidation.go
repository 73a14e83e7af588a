package finance

import (
	"context"
	"log/slog"
	"math"
	"path/filepath"
	"sort"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"datapipe/internal/config"
	"datapipe/internal/etl"
)

// eliminationRules is the [eliminations] rule table from the finance
// domain TOML config.
type eliminationRules struct {
	Eliminations struct {
		IntercompanyAccounts []string `toml:"intercompany_accounts"`
		PairedAccounts       []struct {
			Receivable string `toml:"receivable"`
			Payable    string `toml:"payable"`
		} `toml:"paired_accounts"`
	} `toml:"eliminations"`
}

func (p *Pipeline) loadEliminationRules() eliminationRules {
	var rules eliminationRules
	path := filepath.Join(p.configDir, "finance", "consolidation.toml")
	// Missing config means no eliminations are configured.
	_, _ = config.DecodeDomainTOML(path, &rules)
	return rules
}

// eliminateIntercompany removes intercompany entries and matching
// receivable/payable pairs that net to zero.
func (p *Pipeline) eliminateIntercompany(ctx context.Context, rows []etl.Row, rules eliminationRules) []etl.Row {
	icAccounts := map[string]bool{}
	for _, code := range rules.Eliminations.IntercompanyAccounts {
		icAccounts[code] = true
	}

	kept := make([]etl.Row, 0, len(rows))
	eliminated := 0
	for _, row := range rows {
		if icAccounts[etl.AsString(row["account_code"])] {
			eliminated++
			continue
		}
		kept = append(kept, row)
	}
	if eliminated > 0 {
		p.logger.InfoContext(ctx, "eliminated intercompany entries", slog.Int("count", eliminated))
	}

	for _, pair := range rules.Eliminations.PairedAccounts {
		var recvTotal, payTotal float64
		for _, row := range kept {
			switch etl.AsString(row["account_code"]) {
			case pair.Receivable:
				recvTotal += etl.AsFloat(row["net_amount"])
			case pair.Payable:
				payTotal += etl.AsFloat(row["net_amount"])
			}
		}
		if math.Abs(recvTotal+payTotal) < debitCreditThreshold {
			filtered := kept[:0]
			for _, row := range kept {
				code := etl.AsString(row["account_code"])
				if code != pair.Receivable && code != pair.Payable {
					filtered = append(filtered, row)
				}
			}
			kept = filtered
		}
	}
	return kept
}

// ConsolidateEntities combines entity-level frames into a group-level view,
// applying intercompany eliminations and rolling up to consolidated account
// totals.
func (p *Pipeline) ConsolidateEntities(ctx context.Context, frames []dataframe.DataFrame) (dataframe.DataFrame, error) {
	rules := p.loadEliminationRules()

	var rows []etl.Row
	for _, df := range frames {
		if df.Nrow() == 0 {
			continue
		}
		rows = append(rows, df.Maps()...)
	}

	preElim := len(rows)
	rows = p.eliminateIntercompany(ctx, rows, rules)
	postElim := len(rows)

	type groupKey struct{ code, accountType, period string }
	type totals struct {
		debit, credit, net float64
		entities           map[string]struct{}
	}
	grouped := map[groupKey]*totals{}
	var order []groupKey

	for _, row := range rows {
		k := groupKey{
			code:        etl.AsString(row["account_code"]),
			accountType: etl.AsString(row["account_type"]),
			period:      etl.AsString(row["fiscal_period"]),
		}
		t, found := grouped[k]
		if !found {
			t = &totals{entities: map[string]struct{}{}}
			grouped[k] = t
			order = append(order, k)
		}
		t.debit += etl.AsFloat(row["total_debit"])
		t.credit += etl.AsFloat(row["total_credit"])
		t.net += etl.AsFloat(row["net_amount"])
		if entity := etl.AsString(row["entity_code"]); entity != "" {
			t.entities[entity] = struct{}{}
		}
	}
	sort.Slice(order, func(i, j int) bool {
		if order[i].code != order[j].code {
			return order[i].code < order[j].code
		}
		return order[i].period < order[j].period
	})

	out := make([]etl.Row, 0, len(order))
	for _, k := range order {
		t := grouped[k]
		out = append(out, etl.Row{
			"account_code":        k.code,
			"account_type":        k.accountType,
			"fiscal_period":       k.period,
			"consolidated_debit":  round2(t.debit),
			"consolidated_credit": round2(t.credit),
			"consolidated_net":    round2(t.net),
			"entity_count":        len(t.entities),
		})
	}

	if len(out) == 0 {
		return dataframe.DataFrame{}, nil
	}
	df := dataframe.LoadMaps(out, dataframe.DefaultType(series.String), dataframe.DetectTypes(true))
	if df.Err != nil {
		return dataframe.DataFrame{}, df.Err
	}

	p.logger.InfoContext(ctx, "consolidation complete",
		slog.Int("pre_elimination_rows", preElim),
		slog.Int("post_elimination_rows", postElim),
		slog.Int("consolidated_lines", df.Nrow()))
	return df, nil
}
