// Package cli implements the pipeline command line runner.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"datapipe/internal/config"
	"datapipe/internal/domains/registry"
	"datapipe/internal/infrastructure"
)

// Execute runs the root command and exits nonzero on any failure.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		validate   bool
		domain     string
		env        string
		configFile string
		strict     bool
	)

	cmd := &cobra.Command{
		Use:           "pipeline",
		Short:         "Run the multi-domain ETL and reporting pipeline",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configFile)
			if err != nil {
				return err
			}
			if env != "" {
				if err := cfg.ApplyEnvironment(env); err != nil {
					return err
				}
			}
			logger, err := infrastructure.InitializeLogger(cfg.Logging)
			if err != nil {
				return fmt.Errorf("logger setup failed: %w", err)
			}
			defer func() { _ = infrastructure.CloseLogFile() }()

			ctx := infrastructure.ContextWithRunID(cmd.Context())
			logger = logger.With("run_id", infrastructure.GetRunID(ctx))

			set := registry.Build(logger, cfg.DataDir, cfg.OutputDir, cfg.ConfigDir)

			if validate {
				return runValidation(ctx, cmd.OutOrStdout(), set, domain)
			}
			if domain != "" {
				target, found := registry.Lookup(set, domain)
				if !found {
					return fmt.Errorf("unknown domain: %s", domain)
				}
				return runDomain(ctx, logger, cfg, target, strict)
			}
			return runAll(ctx, logger, cfg, set, strict)
		},
	}

	cmd.Flags().BoolVar(&validate, "validate", false, "validate source feeds against domain schemas without running")
	cmd.Flags().StringVar(&domain, "domain", "", "run a single domain by name")
	cmd.Flags().StringVar(&env, "env", "", "deployment environment (production|staging|development)")
	cmd.Flags().StringVar(&configFile, "config", "pipeline.yaml", "runner configuration file")
	cmd.Flags().BoolVar(&strict, "strict", false, "treat expectation warnings as failures")
	return cmd
}
