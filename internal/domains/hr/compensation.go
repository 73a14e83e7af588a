package hr

import (
	"context"
	"log/slog"
	"math"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-gota/gota/dataframe"

	"datapipe/internal/config"
	"datapipe/internal/etl"
)

// SalaryBand defines the pay range for one compensation level.
type SalaryBand struct {
	Level    string  `toml:"level"`
	BandName string  `toml:"band_name"`
	Floor    float64 `toml:"floor"`
	Midpoint float64 `toml:"midpoint"`
	Ceiling  float64 `toml:"ceiling"`
}

// defaultSalaryBands are used when the comp team has not published a
// band table under the config directory.
var defaultSalaryBands = []SalaryBand{
	{"IC1", "Entry", 55_000, 70_000, 85_000},
	{"IC2", "Mid", 80_000, 100_000, 120_000},
	{"IC3", "Senior", 110_000, 140_000, 170_000},
	{"IC4", "Staff", 150_000, 190_000, 230_000},
	{"IC5", "Principal", 200_000, 260_000, 320_000},
	{"M1", "Manager", 120_000, 155_000, 190_000},
	{"M2", "Sr Manager", 155_000, 195_000, 235_000},
	{"D1", "Director", 190_000, 240_000, 290_000},
	{"VP", "VP", 250_000, 320_000, 400_000},
}

type bandConfig struct {
	Bands []SalaryBand `toml:"bands"`
}

func (p *Pipeline) loadSalaryBands() ([]SalaryBand, error) {
	var cfg bandConfig
	found, err := config.DecodeDomainTOML(filepath.Join(p.configDir, "hr", "salary_bands.toml"), &cfg)
	if err != nil {
		return nil, err
	}
	if !found || len(cfg.Bands) == 0 {
		return defaultSalaryBands, nil
	}
	return cfg.Bands, nil
}

// ResolveLevel maps a job title to a compensation level. The rules are
// ordered; the first match wins.
func ResolveLevel(jobTitle string) string {
	tokens := strings.Fields(strings.ToLower(strings.TrimSpace(jobTitle)))
	if len(tokens) == 0 {
		return "IC2"
	}
	first, last := tokens[0], tokens[len(tokens)-1]
	contains := func(want string) bool {
		for _, t := range tokens {
			if t == want {
				return true
			}
		}
		return false
	}

	switch {
	case first == "intern" || first == "co-op":
		return "IC1"
	case last == "i" || contains("junior"):
		return "IC1"
	case last == "ii" || first == "associate":
		return "IC2"
	case first == "senior" || last == "iii":
		return "IC3"
	case first == "staff" || first == "lead":
		return "IC4"
	case first == "principal" || first == "distinguished":
		return "IC5"
	case first == "manager":
		return "M1"
	case first == "sr" && len(tokens) > 1 && tokens[1] == "manager":
		return "M2"
	case first == "director":
		return "D1"
	case first == "vp" || (first == "vice" && len(tokens) > 1 && tokens[1] == "president"):
		return "VP"
	default:
		return "IC2"
	}
}

func bandForLevel(bands []SalaryBand, level string) (SalaryBand, bool) {
	for _, b := range bands {
		if b.Level == level {
			return b, true
		}
	}
	return SalaryBand{}, false
}

func median(sorted []float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// AnalyzeSalaryBands computes band placement and mean compa-ratio for
// active employees, one row per compensation level.
func (p *Pipeline) AnalyzeSalaryBands(ctx context.Context, employees dataframe.DataFrame) (dataframe.DataFrame, error) {
	bands, err := p.loadSalaryBands()
	if err != nil {
		return dataframe.DataFrame{}, err
	}

	salariesByLevel := map[string][]float64{}
	for _, row := range employees.Maps() {
		if etl.AsString(row["is_active"]) != "true" {
			continue
		}
		level := ResolveLevel(etl.AsString(row["job_title"]))
		salariesByLevel[level] = append(salariesByLevel[level], etl.AsFloat(row["base_salary"]))
	}

	levels := make([]string, 0, len(salariesByLevel))
	for level := range salariesByLevel {
		levels = append(levels, level)
	}
	sort.Strings(levels)

	var out []etl.Row
	for _, level := range levels {
		band, ok := bandForLevel(bands, level)
		if !ok {
			continue
		}
		salaries := salariesByLevel[level]
		sort.Float64s(salaries)

		var compaSum float64
		for _, s := range salaries {
			compaSum += s / band.Midpoint
		}
		out = append(out, etl.Row{
			"band":             band.BandName,
			"level":            level,
			"min_salary":       salaries[0],
			"median_salary":    median(salaries),
			"max_salary":       salaries[len(salaries)-1],
			"employee_count":   len(salaries),
			"compa_ratio_mean": math.Round(compaSum/float64(len(salaries))*1000) / 1000,
		})
	}

	p.logger.InfoContext(ctx, "analyzed compensation bands", slog.Int("bands", len(out)))
	return etl.FrameFromRows(out), nil
}
