package cli

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"datapipe/internal/config"
	"datapipe/internal/domains"
	"datapipe/internal/etl"
	"datapipe/internal/expectations"
)

// modeOptions translates a configured run mode into run options. The
// second return marks dry-run mode.
func modeOptions(mode string) (domains.RunOptions, bool, error) {
	switch mode {
	case "full":
		return domains.RunOptions{}, false, nil
	case "incremental":
		return domains.RunOptions{Incremental: true}, false, nil
	case "dry-run":
		return domains.RunOptions{}, true, nil
	default:
		return domains.RunOptions{}, false, fmt.Errorf("unknown run mode for domain: %s", mode)
	}
}

func runDomain(ctx context.Context, logger *slog.Logger, cfg *config.Config, d domains.Domain, strict bool) error {
	mode := cfg.ModeFor(d.Name())
	opts, dryRun, err := modeOptions(mode)
	if err != nil {
		return err
	}
	logger.InfoContext(ctx, "running domain",
		slog.String("domain", d.Name()), slog.String("mode", mode))

	if dryRun {
		status := d.Validate(ctx)
		logger.InfoContext(ctx, "dry run complete",
			slog.String("domain", d.Name()),
			slog.String("status", status.Status),
			slog.Int("rows", status.RowCount))
		if status.Status == "error" {
			return fmt.Errorf("%s dry run failed: %s", d.Name(), status.Message)
		}
		return nil
	}

	if err := d.Run(ctx, opts); err != nil {
		return err
	}
	return checkExpectations(ctx, logger, cfg, d.Name(), strict)
}

func runAll(ctx context.Context, logger *slog.Logger, cfg *config.Config, set []domains.Domain, strict bool) error {
	// Reject a bad pipeline.yaml before any domain runs.
	for _, d := range set {
		if _, _, err := modeOptions(cfg.ModeFor(d.Name())); err != nil {
			return err
		}
	}

	var failed []string
	for _, d := range set {
		if err := runDomain(ctx, logger, cfg, d, strict); err != nil {
			logger.ErrorContext(ctx, "domain run failed",
				slog.String("domain", d.Name()), slog.String("error", err.Error()))
			failed = append(failed, d.Name())
		}
	}
	if len(failed) > 0 {
		return fmt.Errorf("%d domain(s) failed: %s", len(failed), strings.Join(failed, ", "))
	}
	logger.InfoContext(ctx, "all domains complete", slog.Int("domains", len(set)))
	return nil
}

// checkExpectations runs the domain's data-quality suite against its
// primary output table and persists the report alongside the output.
// A missing output is tolerated since some domains legitimately
// produce nothing on empty feeds.
func checkExpectations(ctx context.Context, logger *slog.Logger, cfg *config.Config, name string, strict bool) error {
	df, found, err := expectations.LoadPrimaryDataset(ctx, etl.NewReader(logger), cfg.OutputDir, name)
	if err != nil {
		return err
	}
	if !found {
		logger.WarnContext(ctx, "no primary output for expectation suite",
			slog.String("domain", name))
		return nil
	}

	summary := expectations.NewRunner(logger, strict).Run(ctx, name, df)
	reportDir := filepath.Join(cfg.OutputDir, name, "validation")
	if path, err := expectations.SaveReport(summary, reportDir, "json"); err != nil {
		logger.WarnContext(ctx, "could not save validation report",
			slog.String("domain", name), slog.String("error", err.Error()))
	} else {
		logger.InfoContext(ctx, "saved validation report", slog.String("path", path))
	}
	if summary.Status == expectations.StatusFailed {
		return fmt.Errorf("%s expectation suite failed: %s", name, strings.Join(summary.Failed, "; "))
	}
	return nil
}
