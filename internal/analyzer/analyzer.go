// Package analyzer produces semantic annotations for media content. Analysis
// runs at most once per content identity; the catalog is responsible for
// guaranteeing that, the analyzer only describes a single file.
package analyzer

import (
	"context"
	"log/slog"

	"reelcat/internal/config"
	"reelcat/internal/media/ffprobe"
	"reelcat/internal/services"
)

// Result is the semantic description for one piece of content. Tags are
// grouped by facet; SearchTags is the flattened set used for retrieval and
// may include terms that appear in no group.
type Result struct {
	Description string   `json:"description"`
	Technical   []string `json:"technical"`
	Content     []string `json:"content"`
	Emotional   []string `json:"emotional"`
	Business    []string `json:"business"`
	SearchTags  []string `json:"search_tags"`
}

// Analyzer describes one media file. Implementations must be safe for
// concurrent use.
type Analyzer interface {
	Analyze(ctx context.Context, path string, probe *ffprobe.Result) (*Result, error)
}

// New builds the analyzer selected by cfg.Analyzer.Mode. Mode "off" returns
// nil: content registered without an analyzer stays pending until a retry
// with analysis enabled.
func New(cfg *config.Config, logger *slog.Logger) (Analyzer, error) {
	switch cfg.Analyzer.Mode {
	case config.AnalyzerModeOff:
		return nil, nil
	case config.AnalyzerModeHeuristic:
		return NewHeuristic(logger), nil
	case config.AnalyzerModeCommand:
		return NewCommand(cfg.Analyzer.Command, cfg.Analyzer.Timeout(), logger), nil
	default:
		return nil, services.Wrap(services.ErrConfiguration, "analyzer", "new", "unknown analyzer mode "+cfg.Analyzer.Mode, nil)
	}
}
