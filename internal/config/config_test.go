package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadParsesYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mdmpcarve.yaml")
	content := "chunk_size_mb: 20\nmax_files_per_type: 500\noutput_dir: ./out\ntypes:\n  - dds\n  - xma\nworkers: 4\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.ChunkSizeMB != 20 || cfg.MaxFilesPerType != 500 || cfg.OutputDir != "./out" || cfg.Workers != 4 {
		t.Errorf("unexpected config: %+v", cfg)
	}
	if len(cfg.Types) != 2 || cfg.Types[0] != "dds" || cfg.Types[1] != "xma" {
		t.Errorf("unexpected types: %+v", cfg.Types)
	}
}

func TestLoadMissingFileReturnsZeroValue(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load should not error on a missing file: %v", err)
	}
	if cfg.ChunkSizeMB != 0 {
		t.Errorf("expected zero-value config, got %+v", cfg)
	}
}

func TestLoadEmptyPath(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\") should not error: %v", err)
	}
	if cfg.OutputDir != "" {
		t.Errorf("expected zero-value config, got %+v", cfg)
	}
}
