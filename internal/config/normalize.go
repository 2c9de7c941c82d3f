package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeScan()
	c.normalizeProbe()
	c.normalizeAnalyzer()
	if err := c.normalizeWatch(); err != nil {
		return err
	}
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeScan() {
	exts := make([]string, 0, len(c.Scan.Extensions))
	seen := make(map[string]struct{}, len(c.Scan.Extensions))
	for _, ext := range c.Scan.Extensions {
		normalized := strings.ToLower(strings.TrimSpace(ext))
		if normalized == "" {
			continue
		}
		if !strings.HasPrefix(normalized, ".") {
			normalized = "." + normalized
		}
		if _, ok := seen[normalized]; ok {
			continue
		}
		seen[normalized] = struct{}{}
		exts = append(exts, normalized)
	}
	if len(exts) == 0 {
		exts = append(exts, defaultExtensions...)
	}
	c.Scan.Extensions = exts

	globs := make([]string, 0, len(c.Scan.IgnoreGlobs))
	for _, glob := range c.Scan.IgnoreGlobs {
		if trimmed := strings.TrimSpace(glob); trimmed != "" {
			globs = append(globs, trimmed)
		}
	}
	c.Scan.IgnoreGlobs = globs

	if c.Scan.Workers <= 0 {
		c.Scan.Workers = defaultScanWorkers
	}
}

func (c *Config) normalizeProbe() {
	c.Probe.Binary = strings.TrimSpace(c.Probe.Binary)
	if c.Probe.TimeoutSeconds <= 0 {
		c.Probe.TimeoutSeconds = defaultProbeTimeoutSeconds
	}
}

func (c *Config) normalizeAnalyzer() {
	c.Analyzer.Mode = strings.ToLower(strings.TrimSpace(c.Analyzer.Mode))
	if c.Analyzer.Mode == "" {
		c.Analyzer.Mode = defaultAnalyzerMode
	}
	c.Analyzer.Command = strings.TrimSpace(c.Analyzer.Command)
	if c.Analyzer.TimeoutSeconds <= 0 {
		c.Analyzer.TimeoutSeconds = defaultAnalyzerTimeout
	}
}

func (c *Config) normalizeWatch() error {
	roots := make([]string, 0, len(c.Watch.Roots))
	for _, root := range c.Watch.Roots {
		trimmed := strings.TrimSpace(root)
		if trimmed == "" {
			continue
		}
		expanded, err := expandPath(trimmed)
		if err != nil {
			return fmt.Errorf("watch.roots: %w", err)
		}
		roots = append(roots, expanded)
	}
	c.Watch.Roots = roots
	if c.Watch.DebounceMillis <= 0 {
		c.Watch.DebounceMillis = defaultWatchDebounceMillis
	}
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
