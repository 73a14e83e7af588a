// Package registry assembles the full set of business domain pipelines
// in their canonical execution order.
package registry

import (
	"log/slog"

	"datapipe/internal/domains"
	"datapipe/internal/domains/finance"
	"datapipe/internal/domains/hr"
	"datapipe/internal/domains/inventory"
	"datapipe/internal/domains/logistics"
	"datapipe/internal/domains/manufacturing"
	"datapipe/internal/domains/marketing"
	"datapipe/internal/domains/procurement"
	"datapipe/internal/domains/quality"
	"datapipe/internal/domains/sales"
	"datapipe/internal/domains/support"
)

// Build constructs every domain pipeline in canonical order, all rooted
// at the same data, output, and config directories.
func Build(logger *slog.Logger, dataDir, outputDir, configDir string) []domains.Domain {
	return []domains.Domain{
		sales.New(logger, dataDir, outputDir, configDir),
		inventory.New(logger, dataDir, outputDir, configDir),
		logistics.New(logger, dataDir, outputDir, configDir),
		hr.New(logger, dataDir, outputDir, configDir),
		finance.New(logger, dataDir, outputDir, configDir),
		marketing.New(logger, dataDir, outputDir, configDir),
		support.New(logger, dataDir, outputDir, configDir),
		procurement.New(logger, dataDir, outputDir, configDir),
		manufacturing.New(logger, dataDir, outputDir, configDir),
		quality.New(logger, dataDir, outputDir, configDir),
	}
}

// Lookup finds a domain by name in a built set.
func Lookup(set []domains.Domain, name string) (domains.Domain, bool) {
	for _, d := range set {
		if d.Name() == name {
			return d, true
		}
	}
	return nil, false
}
