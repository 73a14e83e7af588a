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

// TaxBracket is one graduated federal tax bracket. A zero Upper means the
// bracket is unbounded.
type TaxBracket struct {
	Lower float64 `toml:"lower"`
	Upper float64 `toml:"upper"`
	Rate  float64 `toml:"rate"`
}

// taxConfig is the [brackets]/[states] rule table from the finance domain
// TOML config.
type taxConfig struct {
	Brackets []TaxBracket       `toml:"brackets"`
	States   map[string]float64 `toml:"states"`
}

// defaultFederalBrackets is the statutory graduated schedule used when no
// TOML override is present.
var defaultFederalBrackets = []TaxBracket{
	{Lower: 0, Upper: 50_000, Rate: 0.15},
	{Lower: 50_000, Upper: 100_000, Rate: 0.25},
	{Lower: 100_000, Upper: 335_000, Rate: 0.34},
	{Lower: 335_000, Upper: 0, Rate: 0.21},
}

var defaultStateRates = map[string]float64{
	"CA": 0.0884,
	"NY": 0.0725,
	"TX": 0, // no state income tax
	"DE": 0.087,
	"FL": 0.055,
	"IL": 0.099,
	"WA": 0, // no state income tax
}

// defaultStateRate is the estimate for jurisdictions without a configured
// rate.
const defaultStateRate = 0.06

func (p *Pipeline) loadTaxRules() ([]TaxBracket, map[string]float64) {
	var cfg taxConfig
	path := filepath.Join(p.configDir, "finance", "tax.toml")
	if found, err := config.DecodeDomainTOML(path, &cfg); err != nil || !found || len(cfg.Brackets) == 0 {
		return defaultFederalBrackets, defaultStateRates
	}
	if cfg.States == nil {
		cfg.States = defaultStateRates
	}
	return cfg.Brackets, cfg.States
}

// ComputeFederalTax calculates federal corporate income tax using the
// graduated bracket schedule.
func ComputeFederalTax(taxableIncome float64, brackets []TaxBracket) float64 {
	tax := 0.0
	remaining := taxableIncome
	for _, bracket := range brackets {
		if remaining <= 0 {
			break
		}
		upper := bracket.Upper
		if upper == 0 {
			upper = math.Inf(1)
		}
		taxableInBracket := math.Min(remaining, upper-bracket.Lower)
		tax += taxableInBracket * bracket.Rate
		remaining -= taxableInBracket
	}
	return round2(tax)
}

// StateRate looks up the state corporate income tax rate.
func StateRate(stateCode string, rates map[string]float64) float64 {
	if rate, found := rates[stateCode]; found {
		return rate
	}
	return defaultStateRate
}

// ComputeTaxProvisions computes federal and state tax provisions per entity
// from the entity's net income in the journals.
func (p *Pipeline) ComputeTaxProvisions(ctx context.Context, journals dataframe.DataFrame) (dataframe.DataFrame, error) {
	brackets, stateRates := p.loadTaxRules()

	revenue := map[string]float64{}
	expenses := map[string]float64{}
	entityStates := map[string]string{}
	var entities []string

	for _, row := range journals.Maps() {
		entity := etl.AsString(row["entity_code"])
		if _, seen := entityStates[entity]; !seen {
			entityStates[entity] = etl.AsString(row["state_code"])
			entities = append(entities, entity)
		}
		net := etl.AsFloat(row["net_amount"])
		switch etl.AsString(row["account_type"]) {
		case "revenue", "other_income":
			revenue[entity] += net
		case "cost_of_goods", "operating_expense", "other_expense":
			expenses[entity] += math.Abs(net)
		}
	}
	sort.Strings(entities)

	totalProvision := 0.0
	out := make([]etl.Row, 0, len(entities))
	for _, entity := range entities {
		if _, earned := revenue[entity]; !earned {
			continue
		}
		state := entityStates[entity]
		if state == "" {
			state = "XX"
		}
		taxable := round2(revenue[entity] - expenses[entity])
		federal := 0.0
		stateTax := 0.0
		if taxable > 0 {
			federal = ComputeFederalTax(taxable, brackets)
			stateTax = round2(taxable * StateRate(state, stateRates))
		}

		effectiveRate := 0.0
		if taxable != 0 {
			effectiveRate = math.Round((federal+stateTax)/taxable*10000) / 10000
		}
		totalProvision += federal + stateTax

		out = append(out, etl.Row{
			"entity_code":    entity,
			"state_code":     state,
			"taxable_income": taxable,
			"federal_tax":    federal,
			"state_tax":      stateTax,
			"total_tax":      round2(federal + stateTax),
			"effective_rate": effectiveRate,
		})
	}

	if len(out) == 0 {
		return dataframe.DataFrame{}, nil
	}
	df := dataframe.LoadMaps(out, dataframe.DefaultType(series.String), dataframe.DetectTypes(true))
	if df.Err != nil {
		return dataframe.DataFrame{}, df.Err
	}

	p.logger.InfoContext(ctx, "computed tax provisions",
		slog.Float64("total_provision", round2(totalProvision)),
		slog.Int("entities", df.Nrow()))
	return df, nil
}
