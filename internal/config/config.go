// Package config loads the optional YAML config file that persists carve
// defaults (chunk size, max files per type, output directory) across runs.
// CLI flags always take precedence over values loaded here.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config mirrors the subset of carver.Options a user would want to persist
// across invocations instead of retyping every run.
type Config struct {
	ChunkSizeMB     int      `yaml:"chunk_size_mb"`
	MaxFilesPerType int      `yaml:"max_files_per_type"`
	OutputDir       string   `yaml:"output_dir"`
	Types           []string `yaml:"types"`
	Workers         int      `yaml:"workers"`
}

// Load reads and parses a YAML config file. A missing path is not an
// error — it returns a zero-value Config so callers fall back to flag
// defaults.
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, nil
}
