package analyzer

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"reelcat/internal/catalog"
	"reelcat/internal/logging"
	"reelcat/internal/media/ffprobe"
)

// keywordGroups maps filename tokens to content tags. Matching is a plain
// substring test against the lowercased base name, so token order and
// separators in the filename do not matter.
var keywordGroups = map[string][]string{
	"drone":     {"drone", "aerial"},
	"aerial":    {"aerial"},
	"timelapse": {"timelapse"},
	"slowmo":    {"slow-motion"},
	"slomo":     {"slow-motion"},
	"interview": {"interview", "people"},
	"bts":       {"behind-the-scenes"},
	"broll":     {"b-roll"},
	"b-roll":    {"b-roll"},
	"sunset":    {"sunset", "golden-hour"},
	"sunrise":   {"sunrise", "golden-hour"},
	"night":     {"night"},
	"city":      {"city", "urban"},
	"beach":     {"beach", "coast"},
	"ocean":     {"ocean", "water"},
	"forest":    {"forest", "nature"},
	"mountain":  {"mountain", "nature"},
	"wedding":   {"wedding", "event"},
	"concert":   {"concert", "event"},
	"product":   {"product"},
	"tutorial":  {"tutorial"},
}

// Heuristic derives a best-effort annotation from the filename and the
// technical probe. It never fails on unrecognizable names; the worst case is
// an annotation with technical tags only.
type Heuristic struct {
	logger *slog.Logger
}

// NewHeuristic returns a filename-keyword analyzer.
func NewHeuristic(logger *slog.Logger) *Heuristic {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Heuristic{logger: logging.NewComponentLogger(logger, "analyzer")}
}

// Analyze implements Analyzer.
func (h *Heuristic) Analyze(_ context.Context, path string, probe *ffprobe.Result) (*Result, error) {
	base := strings.ToLower(filepath.Base(path))
	name := strings.TrimSuffix(base, filepath.Ext(base))

	result := &Result{
		Description: describeName(name),
		Technical:   technicalTags(probe),
	}
	for keyword, tags := range keywordGroups {
		if strings.Contains(name, keyword) {
			result.Content = appendUnique(result.Content, tags...)
		}
	}
	result.SearchTags = appendUnique(nil, result.Technical...)
	result.SearchTags = appendUnique(result.SearchTags, result.Content...)

	h.logger.Debug("heuristic analysis complete",
		logging.String(logging.FieldPath, path),
		logging.Int("tags", len(result.SearchTags)))
	return result, nil
}

func describeName(name string) string {
	cleaned := strings.NewReplacer("_", " ", "-", " ", ".", " ").Replace(name)
	cleaned = strings.Join(strings.Fields(cleaned), " ")
	if cleaned == "" {
		return "untitled clip"
	}
	return cleaned
}

func technicalTags(probe *ffprobe.Result) []string {
	if probe == nil {
		return nil
	}
	var tags []string
	if video, ok := probe.PrimaryVideo(); ok {
		if video.CodecName != "" {
			tags = append(tags, catalog.NormalizeTag(video.CodecName))
		}
		switch {
		case video.Height >= 2160:
			tags = append(tags, "4k")
		case video.Height >= 1080:
			tags = append(tags, "1080p")
		case video.Height >= 720:
			tags = append(tags, "720p")
		case video.Height > 0:
			tags = append(tags, fmt.Sprintf("%dp", video.Height))
		}
	}
	switch d := probe.DurationSeconds(); {
	case d == 0:
	case d < 30:
		tags = append(tags, "short")
	case d > 600:
		tags = append(tags, "long-form")
	}
	return tags
}

func appendUnique(tags []string, incoming ...string) []string {
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		seen[catalog.NormalizeTag(tag)] = struct{}{}
	}
	for _, tag := range incoming {
		key := catalog.NormalizeTag(tag)
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		tags = append(tags, key)
	}
	return tags
}
