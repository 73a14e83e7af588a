package support

import (
	"github.com/go-gota/gota/series"

	"datapipe/internal/schema"
)

// ValidPriorities are the canonical ticket priority tiers.
var ValidPriorities = []string{"critical", "high", "medium", "low"}

// ValidStatuses are the canonical ticket statuses.
var ValidStatuses = []string{"open", "in_progress", "pending", "resolved", "reopened", "unknown"}

// ValidSources are the upstream ticket systems.
var ValidSources = []string{"zendesk", "intercom", "email_inbox"}

// TicketSchema validates normalized support tickets.
var TicketSchema = schema.Schema{
	Name: "tickets",
	Columns: []schema.Column{
		{Name: "ticket_id", Type: series.String, Unique: true, Checks: []schema.Check{schema.StrMatches(`^[A-Z]{2,4}-\d+$`)}},
		{Name: "created_at", Type: series.String},
		{Name: "resolved_at", Type: series.String, Nullable: true},
		{Name: "priority", Type: series.String, Checks: []schema.Check{schema.IsIn(ValidPriorities...)}},
		{Name: "status", Type: series.String, Checks: []schema.Check{schema.IsIn(ValidStatuses...)}},
		{Name: "agent_id", Type: series.String, Nullable: true},
		{Name: "source_system", Type: series.String, Checks: []schema.Check{schema.IsIn(ValidSources...)}},
		{Name: "subject", Type: series.String, Nullable: true},
		{Name: "resolution_hours", Type: series.Float, Nullable: true, Checks: []schema.Check{schema.Ge(0)}},
	},
}

// AgentSchema validates the agent performance report.
var AgentSchema = schema.Schema{
	Name: "agents",
	Columns: []schema.Column{
		{Name: "agent_id", Type: series.String, Unique: true, Checks: []schema.Check{schema.StrLength(1, 0)}},
		{Name: "name", Type: series.String, Nullable: true},
		{Name: "team", Type: series.String, Nullable: true},
		{Name: "total_tickets", Type: series.Int, Nullable: true, Checks: []schema.Check{schema.Ge(0)}},
		{Name: "quality_score", Type: series.Float, Nullable: true, Checks: []schema.Check{schema.InRange(0, 100)}},
	},
}

// SLAComplianceSchema validates per-ticket SLA evaluation rows.
var SLAComplianceSchema = schema.Schema{
	Name: "sla_compliance",
	Columns: []schema.Column{
		{Name: "ticket_id", Type: series.String},
		{Name: "priority", Type: series.String, Checks: []schema.Check{schema.IsIn(ValidPriorities...)}},
		{Name: "response_target_hrs", Type: series.Float, Checks: []schema.Check{schema.Gt(0)}},
		{Name: "resolution_target_hrs", Type: series.Float, Checks: []schema.Check{schema.Gt(0)}},
	},
}

// EscalationSchema validates the escalation pattern report.
var EscalationSchema = schema.Schema{
	Name: "escalations",
	Columns: []schema.Column{
		{Name: "ticket_id", Type: series.String},
		{Name: "times_escalated", Type: series.Int, Checks: []schema.Check{schema.Ge(1)}},
		{Name: "esc_reason", Type: series.String},
		{Name: "esc_severity", Type: series.String, Checks: []schema.Check{
			schema.IsIn("red", "orange", "yellow", "green")}},
	},
}

// SchemaRegistry maps dataset names to their schemas.
var SchemaRegistry = map[string]schema.Schema{
	"tickets":        TicketSchema,
	"agents":         AgentSchema,
	"sla_compliance": SLAComplianceSchema,
	"escalations":    EscalationSchema,
}
