package support

import (
	"log/slog"
	"math"
	"sort"
	"strings"

	"github.com/go-gota/gota/dataframe"

	"datapipe/internal/etl"
)

// ClassifyEscalationReason normalizes free-text escalation notes onto a
// fixed reason taxonomy.
func ClassifyEscalationReason(note string) string {
	note = strings.ToLower(strings.TrimSpace(note))
	switch {
	case note == "":
		return "unspecified"
	case strings.Contains(note, "sla") || strings.Contains(note, "breach"):
		return "sla_breach"
	case strings.Contains(note, "customer") || strings.Contains(note, "client"):
		return "customer_requested"
	case strings.Contains(note, "technical") || strings.Contains(note, "complex"):
		return "technical_complexity"
	case strings.Contains(note, "manager") || strings.Contains(note, "management"):
		return "management_override"
	case strings.Contains(note, "wrong") || strings.Contains(note, "misrout"):
		return "misrouted"
	default:
		return "other"
	}
}

// EscalationSeverity grades an escalated ticket from green through red
// based on its priority and how many times it bounced.
func EscalationSeverity(priority string, timesEscalated int) string {
	switch {
	case priority == "critical" && timesEscalated >= 2:
		return "red"
	case priority == "critical":
		return "orange"
	case priority == "high" && timesEscalated >= 3:
		return "orange"
	case priority == "high":
		return "yellow"
	case timesEscalated >= 4:
		return "yellow"
	default:
		return "green"
	}
}

// DetectEscalationPatterns filters escalated tickets, classifies their
// reason and severity, and flags agents whose escalation counts sit in
// the top decile.
func (p *Pipeline) DetectEscalationPatterns(tickets dataframe.DataFrame) dataframe.DataFrame {
	var escalated []etl.Row
	perAgent := map[string]int{}
	for _, row := range tickets.Maps() {
		times := int(etl.AsFloat(row["times_escalated"]))
		if times <= 0 {
			continue
		}
		priority := etl.AsString(row["priority"])
		agent := etl.AsString(row["agent_id"])
		perAgent[agent]++
		escalated = append(escalated, etl.Row{
			"ticket_id":       etl.AsString(row["ticket_id"]),
			"priority":        priority,
			"agent_id":        agent,
			"times_escalated": times,
			"esc_reason":      ClassifyEscalationReason(etl.AsString(row["escalation_note"])),
			"esc_severity":    EscalationSeverity(priority, times),
		})
	}
	if len(escalated) == 0 {
		p.logger.Warn("no escalated tickets found")
		return dataframe.DataFrame{}
	}

	threshold := escalationQuantile(perAgent, 0.9)
	for _, row := range escalated {
		row["high_escalation_agent"] = perAgent[row["agent_id"].(string)] >= threshold && threshold > 0
	}

	p.logger.Info("detected escalation patterns",
		slog.Int("escalated", len(escalated)),
		slog.Int("agents", len(perAgent)))
	return etl.FrameFromRows(escalated)
}

// escalationQuantile returns the per-agent escalation count at the
// given quantile, using nearest-rank on the sorted counts.
func escalationQuantile(perAgent map[string]int, q float64) int {
	if len(perAgent) == 0 {
		return 0
	}
	counts := make([]int, 0, len(perAgent))
	for _, n := range perAgent {
		counts = append(counts, n)
	}
	sort.Ints(counts)
	idx := int(math.Ceil(q*float64(len(counts)))) - 1
	if idx < 0 {
		idx = 0
	}
	return counts[idx]
}
