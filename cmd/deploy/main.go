// Command deploy gates pipeline outputs for promotion to the
// production buckets. It verifies the branch, runs each domain's
// expectation suite against its primary output table, and prints a
// per-domain dispatch summary. Any failed domain exits nonzero.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/olekukonko/tablewriter"

	"datapipe/internal/config"
	"datapipe/internal/etl"
	"datapipe/internal/expectations"
)

type deployResult struct {
	domain  string
	bucket  string
	status  string
	detail  string
	summary *expectations.Summary
}

// bucketFor maps a domain to its production bucket.
func bucketFor(domain string) string {
	switch domain {
	case "sales", "marketing":
		return "prod-analytics"
	case "finance", "procurement":
		return "prod-finance"
	case "hr":
		return "prod-hr-confidential"
	case "manufacturing", "quality":
		return "prod-manufacturing"
	default:
		return "prod-general"
	}
}

// checkBranch refuses to deploy from anything but main when running
// under CI.
func checkBranch() error {
	ref := os.Getenv("GITHUB_REF")
	if ref != "" && ref != "refs/heads/main" {
		return fmt.Errorf("can only deploy from main branch, current ref: %s", ref)
	}
	return nil
}

// pipelineVersion reads the release version from deploy.toml, falling
// back to dev for local runs.
func pipelineVersion(path string) string {
	var meta struct {
		Version string `toml:"version"`
	}
	if _, err := toml.DecodeFile(path, &meta); err != nil || meta.Version == "" {
		return "dev"
	}
	return meta.Version
}

func gateDomain(ctx context.Context, reader *etl.Reader, runner *expectations.Runner, outputDir, domain string) deployResult {
	result := deployResult{domain: domain, bucket: bucketFor(domain)}

	df, found, err := expectations.LoadPrimaryDataset(ctx, reader, outputDir, domain)
	if err != nil {
		result.status = "failed"
		result.detail = err.Error()
		return result
	}
	if !found {
		result.status = "failed"
		result.detail = "no primary output"
		return result
	}

	summary := runner.Run(ctx, domain, df)
	result.summary = &summary
	if summary.Status == expectations.StatusFailed {
		result.status = "failed"
		result.detail = fmt.Sprintf("%d/%d expectations failed", len(summary.Failed), summary.Total)
		return result
	}
	result.status = string(summary.Status)
	result.detail = fmt.Sprintf("s3://%s/%s/", result.bucket, domain)
	return result
}

func main() {
	outputDir := flag.String("output", "output", "pipeline output directory to deploy")
	deployConfig := flag.String("config", "deploy.toml", "deployment metadata file")
	strict := flag.Bool("strict", false, "treat expectation warnings as deploy failures")
	flag.Parse()

	logger := slog.Default()
	if err := checkBranch(); err != nil {
		logger.Error("branch check failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("deploying pipeline outputs",
		slog.String("version", pipelineVersion(*deployConfig)),
		slog.String("output_dir", *outputDir))

	ctx := context.Background()
	reader := etl.NewReader(logger)
	runner := expectations.NewRunner(logger, *strict)

	var results []deployResult
	failed := 0
	for _, domain := range config.DomainNames {
		result := gateDomain(ctx, reader, runner, *outputDir, domain)
		if result.status == "failed" {
			failed++
		}
		results = append(results, result)
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Domain", "Bucket", "Status", "Detail"})
	for _, r := range results {
		table.Append([]string{r.domain, r.bucket, r.status, r.detail})
	}
	table.Render()

	// Per-expectation detail for every failed suite.
	for _, r := range results {
		if r.status == "failed" && r.summary != nil {
			fmt.Printf("\n%s expectation results:\n%s", r.domain, expectations.ToTable(*r.summary))
		}
	}

	if failed > 0 {
		logger.Error("deployment gate failed", slog.Int("domains", failed))
		os.Exit(1)
	}
	logger.Info("all domains deployed", slog.Int("domains", len(results)))
}
