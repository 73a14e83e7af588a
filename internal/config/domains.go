package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// SourcesConfig is the [sources] section shared by all domain TOML files.
type SourcesConfig struct {
	BasePath    string   `toml:"base_path"`
	Directories []string `toml:"directories"`
	Pattern     string   `toml:"pattern"`
}

// DecodeDomainTOML decodes a per-domain TOML configuration file into the
// domain's own config struct. A missing file is not an error; the caller's
// defaults stand.
func DecodeDomainTOML(path string, v interface{}) (bool, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return false, nil
	}
	if _, err := toml.DecodeFile(path, v); err != nil {
		return false, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return true, nil
}
