package support

import (
	"log/slog"
	"strings"
	"time"

	"github.com/go-gota/gota/dataframe"

	"datapipe/internal/etl"
)

// priorityWeights rank priorities for weighted workload math.
var priorityWeights = map[string]int{
	"critical": 4,
	"high":     3,
	"medium":   2,
	"low":      1,
}

// MapPriority folds the source systems' assorted priority labels onto
// the canonical four tiers.
func MapPriority(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "critical", "p0", "sev1", "blocker":
		return "critical"
	case "high", "p1", "urgent":
		return "high"
	case "medium", "p2", "normal":
		return "medium"
	case "low", "p3", "minor":
		return "low"
	default:
		return "medium"
	}
}

// MapStatus folds source statuses onto the canonical lifecycle states.
// Unrecognized values come back as "unknown".
func (p *Pipeline) MapStatus(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "open", "new", "created":
		return "open"
	case "in_progress", "assigned", "working":
		return "in_progress"
	case "pending", "waiting", "on_hold":
		return "pending"
	case "resolved", "fixed", "done", "closed":
		return "resolved"
	case "reopened", "re-opened":
		return "reopened"
	default:
		p.logger.Warn("unrecognized ticket status", slog.String("status", raw))
		return "unknown"
	}
}

// resolutionHours is the elapsed time between create and resolve,
// clamped at zero for clock-skewed exports. Empty or unparseable
// resolved_at yields -1 meaning not yet resolved.
func resolutionHours(createdAt, resolvedAt string) float64 {
	if resolvedAt == "" {
		return -1
	}
	created, err := time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return -1
	}
	resolved, err := time.Parse(time.RFC3339, resolvedAt)
	if err != nil {
		return -1
	}
	hours := resolved.Sub(created).Hours()
	if hours < 0 {
		return 0
	}
	return hours
}

// isBusinessHours reports whether a ticket was opened between 09:00 and
// 17:59 local to the export.
func isBusinessHours(createdAt string) bool {
	ts, err := time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return false
	}
	hour := ts.Hour()
	return hour >= 9 && hour <= 17
}

// NormalizeTickets canonicalizes priorities, statuses and agent ids and
// derives resolution and business-hours fields.
func (p *Pipeline) NormalizeTickets(df dataframe.DataFrame) dataframe.DataFrame {
	rows := df.Maps()
	out := make([]etl.Row, 0, len(rows))
	for _, row := range rows {
		createdAt := etl.AsString(row["created_at"])
		resolvedAt := etl.AsString(row["resolved_at"])
		priority := MapPriority(etl.AsString(row["priority"]))
		agentID := strings.ToUpper(strings.TrimSpace(etl.AsString(row["agent_id"])))
		if agentID == "" {
			agentID = "UNASSIGNED"
		}

		resHours := resolutionHours(createdAt, resolvedAt)
		resCell := interface{}("")
		if resHours >= 0 {
			resCell = resHours
		}
		out = append(out, etl.Row{
			"ticket_id":         etl.AsString(row["ticket_id"]),
			"created_at":        createdAt,
			"resolved_at":       resolvedAt,
			"priority":          priority,
			"priority_weight":   priorityWeights[priority],
			"status":            p.MapStatus(etl.AsString(row["status"])),
			"agent_id":          agentID,
			"source_system":     etl.AsString(row["source_system"]),
			"subject":           etl.AsString(row["subject"]),
			"description":       etl.AsString(row["description"]),
			"times_escalated":   int(etl.AsFloat(row["times_escalated"])),
			"resolution_hours":  resCell,
			"is_business_hours": isBusinessHours(createdAt),
		})
	}
	return etl.FrameFromRows(out)
}
