package config

import (
	"fmt"
	"os"

	"github.com/kelseyhightower/envconfig"
	yaml "gopkg.in/yaml.v2"
)

// Config represents the complete pipeline configuration
type Config struct {
	Environment string         `yaml:"environment" envconfig:"ENV" default:"production"`
	Logging     LoggingConfig  `yaml:"logging" envconfig:"LOGGING"`
	Database    DatabaseConfig `yaml:"database"`
	Storage     StorageConfig  `yaml:"storage"`
	BatchSize   int            `yaml:"batch_size" envconfig:"BATCH_SIZE" default:"10000"`
	MaxRetries  int            `yaml:"max_retries" envconfig:"MAX_RETRIES" default:"3"`
	DataDir     string         `yaml:"data_dir" envconfig:"DATA_DIR" default:"data"`
	OutputDir   string         `yaml:"output_dir" envconfig:"OUTPUT_DIR" default:"output"`
	ConfigDir   string         `yaml:"config_dir" envconfig:"CONFIG_DIR" default:"config"`
	Domains     map[string]DomainSettings `yaml:"domains"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" default:"info"`
	Format   string `yaml:"format" envconfig:"FORMAT" default:"json"`
	Output   string `yaml:"output" envconfig:"OUTPUT" default:"console"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH" default:"logs/pipeline.log"`
}

// DatabaseConfig contains the warehouse target for pipeline outputs
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	Schema   string `yaml:"schema"`
}

// StorageConfig contains the object-storage target for pipeline outputs
type StorageConfig struct {
	Bucket string `yaml:"bucket"`
	Prefix string `yaml:"prefix"`
	Region string `yaml:"region"`
}

// DomainSettings holds per-domain runner settings from pipeline.yaml
type DomainSettings struct {
	Mode       string `yaml:"mode"`
	ConfigFile string `yaml:"config_file"`
}

// DomainNames is the canonical ordered list of pipeline domains.
var DomainNames = []string{
	"sales", "inventory", "logistics", "hr", "finance",
	"marketing", "support", "procurement", "manufacturing", "quality",
}

// Load loads configuration from environment variables with an optional
// pipeline.yaml overlay, then resolves environment-keyed targets.
func Load(configFile string) (*Config, error) {
	var cfg Config

	if err := envconfig.Process("PIPELINE", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if configFile != "" {
		if _, err := os.Stat(configFile); err == nil {
			data, err := os.ReadFile(configFile)
			if err != nil {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		}
	}

	db, storage, err := targetsForEnvironment(cfg.Environment)
	if err != nil {
		return nil, err
	}
	// Explicit yaml targets win over environment presets.
	if cfg.Database.Host == "" {
		cfg.Database = db
	}
	if cfg.Storage.Bucket == "" {
		cfg.Storage = storage
	}

	return &cfg, nil
}

// targetsForEnvironment returns the database and object-storage targets for
// a named deployment environment. Unknown environments are an error.
func targetsForEnvironment(env string) (DatabaseConfig, StorageConfig, error) {
	switch env {
	case "production":
		return DatabaseConfig{
				Host:     "prod-db.internal.company.com",
				Port:     5432,
				Database: "pipeline_prod",
				Schema:   "public",
			}, StorageConfig{
				Bucket: "prod-data-pipeline",
				Prefix: "output",
				Region: "us-east-1",
			}, nil
	case "staging":
		return DatabaseConfig{
				Host:     "staging-db.internal.company.com",
				Port:     5432,
				Database: "pipeline_staging",
				Schema:   "public",
			}, StorageConfig{
				Bucket: "staging-data-pipeline",
				Prefix: "output",
				Region: "us-east-1",
			}, nil
	case "development":
		return DatabaseConfig{
				Host:     "localhost",
				Port:     5432,
				Database: "pipeline_dev",
				Schema:   "public",
			}, StorageConfig{
				Bucket: "dev-data-pipeline",
				Prefix: "output",
				Region: "us-east-1",
			}, nil
	default:
		return DatabaseConfig{}, StorageConfig{}, fmt.Errorf("unknown environment: %s", env)
	}
}

// ApplyEnvironment switches the loaded configuration to a different
// deployment environment, re-resolving its database and storage targets.
func (c *Config) ApplyEnvironment(env string) error {
	db, storage, err := targetsForEnvironment(env)
	if err != nil {
		return err
	}
	c.Environment = env
	c.Database = db
	c.Storage = storage
	return nil
}

// ModeFor returns the configured run mode for a domain, defaulting to full.
func (c *Config) ModeFor(domain string) string {
	if settings, ok := c.Domains[domain]; ok && settings.Mode != "" {
		return settings.Mode
	}
	return "full"
}
