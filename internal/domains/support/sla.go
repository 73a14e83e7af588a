package support

import (
	"log/slog"
	"math"
	"sort"

	"github.com/go-gota/gota/dataframe"

	"datapipe/internal/etl"
)

// SLAPolicy holds the contractual response windows for one priority
// tier, in hours.
type SLAPolicy struct {
	FirstResponseHrs float64
	ResolutionHrs    float64
	EscalationHrs    float64
}

var slaPolicies = map[string]SLAPolicy{
	"critical": {FirstResponseHrs: 0.25, ResolutionHrs: 4, EscalationHrs: 1},
	"high":     {FirstResponseHrs: 1, ResolutionHrs: 8, EscalationHrs: 4},
	"medium":   {FirstResponseHrs: 4, ResolutionHrs: 24, EscalationHrs: 12},
	"low":      {FirstResponseHrs: 8, ResolutionHrs: 72, EscalationHrs: 48},
}

// PolicyFor returns the SLA policy for a priority, falling back to the
// medium tier for anything unrecognized.
func PolicyFor(priority string) SLAPolicy {
	if policy, ok := slaPolicies[priority]; ok {
		return policy
	}
	return slaPolicies["medium"]
}

// EvaluateSLACompliance scores every ticket against its priority's
// policy. Tickets without first-response or resolution data carry an
// empty met flag rather than a miss.
func (p *Pipeline) EvaluateSLACompliance(tickets dataframe.DataFrame) dataframe.DataFrame {
	rows := tickets.Maps()
	out := make([]etl.Row, 0, len(rows))
	met := map[string]int{}
	total := map[string]int{}
	for _, row := range rows {
		priority := etl.AsString(row["priority"])
		policy := PolicyFor(priority)

		responseMet := interface{}("")
		if s := etl.AsString(row["first_response_hours"]); s != "" {
			responseMet = etl.AsFloat(row["first_response_hours"]) <= policy.FirstResponseHrs
		}
		resolutionMet := interface{}("")
		if s := etl.AsString(row["resolution_hours"]); s != "" {
			ok := etl.AsFloat(row["resolution_hours"]) <= policy.ResolutionHrs
			resolutionMet = ok
			total[priority]++
			if ok {
				met[priority]++
			}
		}

		out = append(out, etl.Row{
			"ticket_id":             etl.AsString(row["ticket_id"]),
			"priority":              priority,
			"response_met":          responseMet,
			"resolution_met":        resolutionMet,
			"response_target_hrs":   policy.FirstResponseHrs,
			"resolution_target_hrs": policy.ResolutionHrs,
		})
	}

	priorities := make([]string, 0, len(total))
	for pr := range total {
		priorities = append(priorities, pr)
	}
	sort.Strings(priorities)
	for _, pr := range priorities {
		rate := math.Round(float64(met[pr])/float64(total[pr])*10000) / 100
		p.logger.Info("sla resolution compliance",
			slog.String("priority", pr),
			slog.Float64("pct", rate),
			slog.Int("tickets", total[pr]))
	}
	return etl.FrameFromRows(out)
}
