// Package logistics implements the logistics domain pipeline: shipping
// ingest, route and zone classification, tracking aggregation, carrier
// performance, cost analysis, delivery SLAs, and customs processing.
package logistics

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/go-gota/gota/dataframe"

	"datapipe/internal/domains"
	"datapipe/internal/etl"
)

// Pipeline runs the logistics domain end to end.
type Pipeline struct {
	logger    *slog.Logger
	reader    *etl.Reader
	writer    *etl.Writer
	dataDir   string
	outputDir string
	configDir string
}

// New builds a logistics pipeline rooted at the given data directories.
func New(logger *slog.Logger, dataDir, outputDir, configDir string) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("domain", "logistics"))
	return &Pipeline{
		logger:    logger,
		reader:    etl.NewReader(logger),
		writer:    etl.NewWriter(logger),
		dataDir:   dataDir,
		outputDir: outputDir,
		configDir: configDir,
	}
}

func (p *Pipeline) trackingDir() string {
	return filepath.Join(p.dataDir, "logistics", "tracking")
}

// Name implements domains.Domain.
func (p *Pipeline) Name() string { return "logistics" }

// Validate checks that shipping sources are accessible and shipment rows
// pass the shipment schema.
func (p *Pipeline) Validate(ctx context.Context) domains.ValidationStatus {
	raw, err := p.IngestShippingData(ctx, false)
	if err != nil {
		return domains.Errorf(err)
	}

	shipmentRows := raw.Filter(dataframe.F{Colname: "source", Comparator: "==", Comparando: "shipments"})
	if shipmentRows.Nrow() == 0 {
		return domains.Skipped("no shipment records found")
	}

	normalized, err := p.NormalizeShipments(ctx, shipmentRows)
	if err != nil {
		return domains.Errorf(err)
	}
	result := ShipmentSchema.Validate(normalized)
	if !result.Valid {
		limit := result.Errors
		if len(limit) > 5 {
			limit = limit[:5]
		}
		return domains.ValidationStatus{
			Status:  "error",
			Message: strings.Join(limit, "; "),
		}
	}
	return domains.OK(normalized.Nrow())
}

// Run executes the full logistics pipeline and writes every report.
func (p *Pipeline) Run(ctx context.Context, opts domains.RunOptions) error {
	raw, err := p.IngestShippingData(ctx, opts.Incremental)
	if err != nil {
		return fmt.Errorf("logistics ingest failed: %w", err)
	}
	shipmentRows := raw.Filter(dataframe.F{Colname: "source", Comparator: "==", Comparando: "shipments"})
	if shipmentRows.Nrow() == 0 {
		p.logger.WarnContext(ctx, "no shipment records to process")
		return nil
	}

	shipments, err := p.NormalizeShipments(ctx, shipmentRows)
	if err != nil {
		return fmt.Errorf("shipment normalization failed: %w", err)
	}
	shipments, err = p.OptimizeRoutes(ctx, shipments)
	if err != nil {
		return fmt.Errorf("route optimization failed: %w", err)
	}
	shipments, err = p.AggregateTracking(ctx, shipments)
	if err != nil {
		return fmt.Errorf("tracking aggregation failed: %w", err)
	}
	shipments, err = p.AnalyzeShippingCosts(ctx, shipments)
	if err != nil {
		return fmt.Errorf("cost analysis failed: %w", err)
	}

	reports := map[string]dataframe.DataFrame{"shipments": shipments}

	metrics, err := p.ComputeCarrierMetrics(ctx, shipments)
	if err != nil {
		return fmt.Errorf("carrier metrics failed: %w", err)
	}
	reports["carrier_metrics"] = RankCarriers(metrics)

	delivery, err := p.AnalyzeDeliveryTimes(ctx, shipments)
	if err != nil {
		return fmt.Errorf("delivery analysis failed: %w", err)
	}
	reports["delivery_times"] = delivery
	if delivery.Nrow() > 0 {
		reports["service_level_summary"] = SummarizeByServiceLevel(delivery)
	}

	if reports["customs"], err = p.ProcessCustomsRecords(ctx, shipments); err != nil {
		return fmt.Errorf("customs processing failed: %w", err)
	}

	for _, name := range []string{"shipments", "carrier_metrics", "delivery_times", "service_level_summary", "customs"} {
		df, ok := reports[name]
		if !ok || df.Nrow() == 0 {
			continue
		}
		path := filepath.Join(p.outputDir, "logistics", name+".parquet")
		if err := p.writer.WriteOutput(ctx, df, path, etl.FormatParquet, etl.WriteOptions{}); err != nil {
			return fmt.Errorf("failed to write %s: %w", name, err)
		}
	}
	return nil
}
