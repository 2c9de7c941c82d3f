package catalog

import (
	"strings"

	"golang.org/x/text/cases"
)

// NormalizeTag case-folds and trims a tag for storage in the search index.
// Queries fold the same way, so matching is case-insensitive for the full
// Unicode range rather than ASCII only.
func NormalizeTag(tag string) string {
	// cases.Caser carries state; build one per call.
	return strings.TrimSpace(cases.Fold().String(tag))
}

// tagWeights flattens an annotation into accumulated per-tag weights: one
// point per grouped occurrence plus one point per entry in the flattened
// search set. The search index rows derive mechanically from this map.
func tagWeights(a *Annotation) map[string]float64 {
	if a == nil {
		return nil
	}
	weights := make(map[string]float64)
	for _, group := range a.TagGroups() {
		for _, tag := range group {
			if normalized := NormalizeTag(tag); normalized != "" {
				weights[normalized]++
			}
		}
	}
	for _, tag := range a.SearchTags {
		if normalized := NormalizeTag(tag); normalized != "" {
			weights[normalized]++
		}
	}
	return weights
}

// mergeTags unions two tag slices, preserving existing order and dropping
// case-insensitive duplicates. Existing tags are never removed.
func mergeTags(existing, incoming []string) []string {
	merged := make([]string, 0, len(existing)+len(incoming))
	seen := make(map[string]struct{}, len(existing)+len(incoming))
	for _, tag := range existing {
		key := NormalizeTag(tag)
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		merged = append(merged, tag)
	}
	for _, tag := range incoming {
		key := NormalizeTag(tag)
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		merged = append(merged, tag)
	}
	return merged
}
