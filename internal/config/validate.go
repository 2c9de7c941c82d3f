package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

var validAnalyzerModes = map[string]struct{}{
	AnalyzerModeHeuristic: {},
	AnalyzerModeCommand:   {},
	AnalyzerModeOff:       {},
}

// Validate checks the configuration for values that cannot work at runtime.
func (c *Config) Validate() error {
	var problems []string

	if strings.TrimSpace(c.Paths.DataDir) == "" {
		problems = append(problems, "paths.data_dir must not be empty")
	}
	if len(c.Scan.Extensions) == 0 {
		problems = append(problems, "scan.extensions must list at least one extension")
	}
	for _, glob := range c.Scan.IgnoreGlobs {
		if !doublestar.ValidatePattern(glob) {
			problems = append(problems, fmt.Sprintf("scan.ignore_globs: invalid pattern %q", glob))
		}
	}
	if c.Scan.Workers > 64 {
		problems = append(problems, "scan.workers must be 64 or fewer")
	}
	if _, ok := validAnalyzerModes[c.Analyzer.Mode]; !ok {
		problems = append(problems, fmt.Sprintf("analyzer.mode: unsupported value %q (use heuristic, command, or off)", c.Analyzer.Mode))
	}
	if c.Analyzer.Mode == AnalyzerModeCommand && c.Analyzer.Command == "" {
		problems = append(problems, "analyzer.command is required when analyzer.mode is \"command\"")
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		problems = append(problems, fmt.Sprintf("logging.format: unsupported value %q", c.Logging.Format))
	}

	if len(problems) > 0 {
		return errors.New("invalid configuration: " + strings.Join(problems, "; "))
	}
	return nil
}
