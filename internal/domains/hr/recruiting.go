package hr

import (
	"context"
	"log/slog"
	"math"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-gota/gota/dataframe"

	"datapipe/internal/etl"
)

// funnelStages in pipeline order, earliest first.
var funnelStages = []string{"applied", "phone_screen", "onsite", "offer", "hired"}

func (p *Pipeline) atsDir() string {
	return filepath.Join(p.dataDir, "hr", "ats_exports")
}

// StageOrder returns the numeric position of a pipeline stage. Rejected
// and withdrawn candidates map to -1, unmapped stages to -2.
func StageOrder(stage string) int {
	switch strings.TrimSpace(strings.ToLower(stage)) {
	case "applied", "application", "new":
		return 0
	case "phone_screen", "phone", "recruiter_screen":
		return 1
	case "onsite", "on_site", "technical", "panel":
		return 2
	case "offer", "offer_extended":
		return 3
	case "hired", "accepted", "started":
		return 4
	case "rejected", "withdrawn", "declined":
		return -1
	default:
		return -2
	}
}

// ClassifySource normalizes a recruiting source into standard categories.
func ClassifySource(source string) string {
	switch strings.TrimSpace(strings.ToLower(source)) {
	case "linkedin", "linkedin_recruiter", "linkedin_jobs":
		return "LinkedIn"
	case "referral", "employee_referral", "internal_referral":
		return "Referral"
	case "careers_page", "website", "career_site":
		return "Direct"
	case "indeed", "glassdoor", "ziprecruiter":
		return "Job Board"
	case "agency", "staffing_agency", "recruiter":
		return "Agency"
	default:
		return "Other"
	}
}

func (p *Pipeline) loadATSData(ctx context.Context) (dataframe.DataFrame, error) {
	matches, err := filepath.Glob(filepath.Join(p.atsDir(), "candidates_*.csv"))
	if err != nil {
		return dataframe.DataFrame{}, err
	}
	if len(matches) == 0 {
		p.logger.WarnContext(ctx, "no ATS export files found", slog.String("dir", p.atsDir()))
		return dataframe.DataFrame{}, nil
	}
	sort.Sort(sort.Reverse(sort.StringSlice(matches)))
	return p.reader.ReadCSVFile(ctx, matches[0])
}

// ComputeFunnelMetrics builds application-to-hire conversion rates by
// department and source category. Conversion at each stage is candidates
// who reached the stage over candidates who reached the previous one.
// An empty department processes every department.
func (p *Pipeline) ComputeFunnelMetrics(ctx context.Context, department string) (dataframe.DataFrame, error) {
	candidates, err := p.loadATSData(ctx)
	if err != nil {
		return dataframe.DataFrame{}, err
	}
	if candidates.Nrow() == 0 {
		return dataframe.DataFrame{}, nil
	}

	type group struct {
		dept, source string
	}
	reached := map[group][]int{}
	for _, row := range candidates.Maps() {
		dept := etl.AsString(row["department"])
		if department != "" && dept != department {
			continue
		}
		g := group{dept, ClassifySource(etl.AsString(row["source"]))}
		if _, ok := reached[g]; !ok {
			reached[g] = make([]int, len(funnelStages))
		}
		order := StageOrder(etl.AsString(row["current_stage"]))
		for i := range funnelStages {
			if order >= i {
				reached[g][i]++
			}
		}
	}

	groups := make([]group, 0, len(reached))
	for g := range reached {
		groups = append(groups, g)
	}
	sort.Slice(groups, func(i, j int) bool {
		if groups[i].dept != groups[j].dept {
			return groups[i].dept < groups[j].dept
		}
		return groups[i].source < groups[j].source
	})

	var out []etl.Row
	for _, g := range groups {
		funnel := reached[g]
		for i, stage := range funnelStages {
			prev := funnel[i]
			if i > 0 {
				prev = funnel[i-1]
			}
			conversion := 0.0
			if prev > 0 {
				conversion = float64(funnel[i]) / float64(prev)
			}
			out = append(out, etl.Row{
				"department":      g.dept,
				"source":          g.source,
				"stage":           stage,
				"candidates":      funnel[i],
				"conversion_rate": math.Round(conversion*10000) / 10000,
			})
		}
	}

	p.logger.InfoContext(ctx, "computed funnel metrics",
		slog.Int("rows", len(out)),
		slog.Int("groups", len(groups)))
	return etl.FrameFromRows(out), nil
}
