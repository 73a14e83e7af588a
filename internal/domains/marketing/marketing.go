// Package marketing implements campaign analytics: multi-platform
// ingest, channel taxonomy, performance tiers, attribution modeling,
// channel benchmarking, audience segmentation, ROI, and conversion
// funnels.
package marketing

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

// Pipeline runs the marketing domain end to end.
type Pipeline struct {
	logger    *slog.Logger
	reader    *etl.Reader
	writer    *etl.Writer
	dataDir   string
	outputDir string
	configDir string
}

// New builds a marketing pipeline rooted at the given data directories.
func New(logger *slog.Logger, dataDir, outputDir, configDir string) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("domain", "marketing"))
	return &Pipeline{
		logger:    logger,
		reader:    etl.NewReader(logger),
		writer:    etl.NewWriter(logger),
		dataDir:   dataDir,
		outputDir: outputDir,
		configDir: configDir,
	}
}

// Name implements domains.Domain.
func (p *Pipeline) Name() string { return "marketing" }

// Validate checks platform export accessibility and campaign row shape.
func (p *Pipeline) Validate(ctx context.Context) domains.ValidationStatus {
	raw, err := p.IngestCampaignData(ctx, nil, defaultLookbackDays)
	if err != nil {
		return domains.Errorf(err)
	}
	cleaned := p.NormalizeCampaigns(ctx, raw)

	result := CampaignSchema.Validate(cleaned)
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
	return domains.OK(cleaned.Nrow())
}

// Run executes the full marketing pipeline and writes every report.
func (p *Pipeline) Run(ctx context.Context, opts domains.RunOptions) error {
	lookback := defaultLookbackDays
	if opts.Incremental {
		lookback = 7
	}
	raw, err := p.IngestCampaignData(ctx, nil, lookback)
	if err != nil {
		return fmt.Errorf("marketing ingest failed: %w", err)
	}
	cleaned := p.NormalizeCampaigns(ctx, raw)

	reports := map[string]dataframe.DataFrame{"campaigns": cleaned}

	if reports["campaign_performance"], err = p.AnalyzeCampaignPerformance(ctx, cleaned); err != nil {
		return fmt.Errorf("campaign performance failed: %w", err)
	}
	if reports["channel_comparison"], err = p.CompareChannels(ctx, cleaned); err != nil {
		return fmt.Errorf("channel comparison failed: %w", err)
	}

	reports["roi_analysis"] = p.CalculateCampaignROI(ctx, cleaned, "campaign_id", "monthly")

	touchpoints, err := p.readOptionalFeed(ctx, "touchpoints.csv")
	if err != nil {
		return fmt.Errorf("touchpoint feed failed: %w", err)
	}
	if touchpoints.Nrow() > 0 {
		if reports["attribution"], err = p.ComputeAttribution(ctx, touchpoints, "time_decay", defaultHalfLifeDays); err != nil {
			return fmt.Errorf("attribution failed: %w", err)
		}
	}

	audience, err := p.readOptionalFeed(ctx, "audience.csv")
	if err != nil {
		return fmt.Errorf("audience feed failed: %w", err)
	}
	if audience.Nrow() > 0 {
		reports["audience_segments"] = p.BuildAudienceSegments(ctx, audience)
	}

	events, err := p.readOptionalFeed(ctx, "funnel_events.csv")
	if err != nil {
		return fmt.Errorf("funnel event feed failed: %w", err)
	}
	if events.Nrow() > 0 {
		reports["funnel_report"] = p.AnalyzeConversionFunnel(ctx, events, "")
	}

	for _, name := range []string{
		"campaigns", "campaign_performance", "channel_comparison",
		"roi_analysis", "attribution", "audience_segments", "funnel_report",
	} {
		df, ok := reports[name]
		if !ok || df.Nrow() == 0 {
			continue
		}
		path := filepath.Join(p.outputDir, "marketing", name+".parquet")
		if err := p.writer.WriteOutput(ctx, df, path, etl.FormatParquet, etl.WriteOptions{}); err != nil {
			return fmt.Errorf("failed to write %s: %w", name, err)
		}
	}
	return nil
}
