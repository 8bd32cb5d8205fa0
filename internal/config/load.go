// internal/config/load.go
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Load reads a config file. JSON is a subset of YAML, so the same decoder
// reads both the legacy comm_config.json and YAML files.
// The result is normalized but not validated.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	Normalize(cfg)
	return cfg, nil
}

// Save writes cfg to path. Files ending in .json are written as JSON,
// anything else as YAML.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("%w: nil config", ErrInvalid)
	}

	var (
		out []byte
		err error
	)
	if strings.EqualFold(filepath.Ext(path), ".json") {
		out, err = json.MarshalIndent(cfg, "", "  ")
	} else {
		out, err = yaml.Marshal(cfg)
	}
	if err != nil {
		return fmt.Errorf("config: encode: %w", err)
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("config: mkdir %s: %w", dir, err)
		}
	}

	// write-then-rename
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, out, 0o644); err != nil {
		return fmt.Errorf("config: write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("config: rename %s: %w", path, err)
	}
	return nil
}
