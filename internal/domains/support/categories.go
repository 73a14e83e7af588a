package support

import (
	"log/slog"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-gota/gota/dataframe"

	"datapipe/internal/config"
	"datapipe/internal/etl"
)

type categoryTaxonomy struct {
	Categories map[string]struct {
		Keywords []string `toml:"keywords"`
	} `toml:"categories"`
}

var defaultTaxonomy = map[string][]string{
	"billing":         {"invoice", "payment", "charge", "refund", "billing"},
	"technical":       {"error", "bug", "crash", "broken", "not working", "outage"},
	"account":         {"login", "password", "access", "account", "2fa"},
	"feature_request": {"feature", "request", "enhancement", "would be nice"},
	"onboarding":      {"setup", "getting started", "onboard", "install"},
}

// loadTaxonomy reads the category keyword map from the domain config,
// falling back to the built-in taxonomy when the file is absent.
func (p *Pipeline) loadTaxonomy() (map[string][]string, error) {
	var cfg categoryTaxonomy
	found, err := config.DecodeDomainTOML(filepath.Join(p.configDir, "support", "categories.toml"), &cfg)
	if err != nil {
		return nil, err
	}
	if !found || len(cfg.Categories) == 0 {
		return defaultTaxonomy, nil
	}
	taxonomy := make(map[string][]string, len(cfg.Categories))
	for name, entry := range cfg.Categories {
		taxonomy[name] = entry.Keywords
	}
	return taxonomy, nil
}

// MatchCategory scans subject and description for taxonomy keywords.
// Categories are tried in sorted-name order and the first hit wins.
func MatchCategory(taxonomy map[string][]string, subject, description string) string {
	text := strings.ToLower(subject + " " + description)
	names := make([]string, 0, len(taxonomy))
	for name := range taxonomy {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		for _, keyword := range taxonomy[name] {
			if strings.Contains(text, strings.ToLower(keyword)) {
				return name
			}
		}
	}
	return "uncategorized"
}

// AssignSubcategory refines a category using the ticket priority.
func AssignSubcategory(category, priority string) string {
	switch category {
	case "billing":
		if priority == "critical" || priority == "high" {
			return "billing_urgent"
		}
		return "billing_general"
	case "technical":
		switch priority {
		case "critical":
			return "outage"
		case "high":
			return "bug_report"
		default:
			return "how_to"
		}
	case "account":
		if priority == "critical" || priority == "high" {
			return "account_security"
		}
		return "account_general"
	case "feature_request":
		return "product_feedback"
	case "onboarding":
		return "setup_help"
	default:
		return "general"
	}
}

// CategorizeTickets tags every ticket with a category and subcategory
// from the keyword taxonomy.
func (p *Pipeline) CategorizeTickets(tickets dataframe.DataFrame) (dataframe.DataFrame, error) {
	taxonomy, err := p.loadTaxonomy()
	if err != nil {
		return dataframe.DataFrame{}, err
	}
	rows := tickets.Maps()
	out := make([]etl.Row, 0, len(rows))
	uncategorized := 0
	for _, row := range rows {
		category := MatchCategory(taxonomy,
			etl.AsString(row["subject"]), etl.AsString(row["description"]))
		if category == "uncategorized" {
			uncategorized++
		}
		priority := etl.AsString(row["priority"])
		out = append(out, etl.Row{
			"ticket_id":   etl.AsString(row["ticket_id"]),
			"priority":    priority,
			"category":    category,
			"subcategory": AssignSubcategory(category, priority),
		})
	}
	p.logger.Info("categorized tickets",
		slog.Int("tickets", len(out)),
		slog.Int("uncategorized", uncategorized))
	return etl.FrameFromRows(out), nil
}
