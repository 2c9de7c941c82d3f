package testsupport

import (
	"path/filepath"
	"testing"

	"reelcat/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Analyzer.Mode = "off"

	for _, opt := range opts {
		opt(&cfg)
	}
	return &cfg
}

// WithAnalyzerMode overrides the analyzer mode on the test config.
func WithAnalyzerMode(mode string) ConfigOption {
	return func(c *config.Config) {
		c.Analyzer.Mode = mode
	}
}

// WithWorkers overrides the scan worker count on the test config.
func WithWorkers(n int) ConfigOption {
	return func(c *config.Config) {
		c.Scan.Workers = n
	}
}
