package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultValidates(t *testing.T) {
	cfg := Default()
	if err := cfg.normalize(); err != nil {
		t.Fatalf("normalize failed: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	cfg, resolved, exists, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if exists {
		t.Fatal("expected exists=false for missing file")
	}
	if resolved != path {
		t.Fatalf("expected resolved path %q, got %q", path, resolved)
	}
	if cfg.Analyzer.Mode != "heuristic" {
		t.Fatalf("expected default analyzer mode, got %q", cfg.Analyzer.Mode)
	}
	if len(cfg.Scan.Extensions) == 0 {
		t.Fatal("expected default extensions")
	}
}

func TestLoadParsesAndNormalizes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[paths]
data_dir = "` + filepath.Join(dir, "data") + `"

[scan]
extensions = ["MKV", " .mp4 ", "mkv"]
workers = 0

[analyzer]
mode = "OFF"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, exists, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !exists {
		t.Fatal("expected exists=true")
	}
	if got := cfg.Scan.Extensions; len(got) != 2 || got[0] != ".mkv" || got[1] != ".mp4" {
		t.Fatalf("unexpected normalized extensions: %v", got)
	}
	if cfg.Scan.Workers != 1 {
		t.Fatalf("expected workers defaulted to 1, got %d", cfg.Scan.Workers)
	}
	if cfg.Analyzer.Mode != "off" {
		t.Fatalf("expected lowercased analyzer mode, got %q", cfg.Analyzer.Mode)
	}
	if cfg.DatabasePath() != filepath.Join(dir, "data", "catalog.db") {
		t.Fatalf("unexpected database path %q", cfg.DatabasePath())
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg := Default()
	if err := cfg.normalize(); err != nil {
		t.Fatalf("normalize failed: %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"analyzer mode", func(c *Config) { c.Analyzer.Mode = "vision" }, "analyzer.mode"},
		{"command without binary", func(c *Config) { c.Analyzer.Mode = "command" }, "analyzer.command"},
		{"log format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
		{"ignore glob", func(c *Config) { c.Scan.IgnoreGlobs = []string{"[bad"} }, "ignore_globs"},
		{"workers", func(c *Config) { c.Scan.Workers = 200 }, "scan.workers"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			bad := cfg
			tc.mutate(&bad)
			err := bad.Validate()
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error mentioning %q, got %v", tc.want, err)
			}
		})
	}
}

func TestCreateSampleRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}
	if _, _, exists, err := Load(path); err != nil || !exists {
		t.Fatalf("sample config did not load: exists=%v err=%v", exists, err)
	}
}
