package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "production", cfg.Environment)
	assert.Equal(t, 10000, cfg.BatchSize)
	assert.Equal(t, "data", cfg.DataDir)
	assert.Equal(t, "output", cfg.OutputDir)
	assert.Equal(t, "config", cfg.ConfigDir)
	assert.Equal(t, "prod-db.internal.company.com", cfg.Database.Host)
	assert.Equal(t, "prod-data-pipeline", cfg.Storage.Bucket)
}

func TestLoadYAMLOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pipeline.yaml")
	body := "environment: staging\nbatch_size: 500\ndomains:\n  sales:\n    mode: incremental\n  hr:\n    mode: dry-run\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "staging", cfg.Environment)
	assert.Equal(t, 500, cfg.BatchSize)
	assert.Equal(t, "staging-db.internal.company.com", cfg.Database.Host)
	assert.Equal(t, "incremental", cfg.ModeFor("sales"))
	assert.Equal(t, "dry-run", cfg.ModeFor("hr"))
	assert.Equal(t, "full", cfg.ModeFor("finance"))
}

func TestLoadUnknownEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pipeline.yaml")
	require.NoError(t, os.WriteFile(path, []byte("environment: qa\n"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown environment")
}

func TestApplyEnvironment(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	require.NoError(t, cfg.ApplyEnvironment("development"))
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, "dev-data-pipeline", cfg.Storage.Bucket)

	assert.Error(t, cfg.ApplyEnvironment("qa"))
}

func TestDomainNamesOrder(t *testing.T) {
	require.Len(t, DomainNames, 10)
	assert.Equal(t, "sales", DomainNames[0])
	assert.Equal(t, "quality", DomainNames[9])
}

func TestDecodeDomainTOML(t *testing.T) {
	type salesConfig struct {
		Sources SourcesConfig `toml:"sources"`
	}

	var missing salesConfig
	found, err := DecodeDomainTOML(filepath.Join(t.TempDir(), "sales.toml"), &missing)
	require.NoError(t, err)
	assert.False(t, found)

	path := filepath.Join(t.TempDir(), "sales.toml")
	body := "[sources]\nbase_path = \"data/sales\"\ndirectories = [\"pos\", \"online\"]\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	var loaded salesConfig
	found, err = DecodeDomainTOML(path, &loaded)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "data/sales", loaded.Sources.BasePath)
	assert.Equal(t, []string{"pos", "online"}, loaded.Sources.Directories)
}
