package catalog

import "time"

// AnalysisStatus tracks whether semantic annotation has run for a content.
type AnalysisStatus string

const (
	// StatusPending means no analysis has been attempted yet.
	StatusPending AnalysisStatus = "pending"
	// StatusComplete means the analyzer produced tags for this content.
	StatusComplete AnalysisStatus = "complete"
	// StatusFailed means the analyzer errored; the annotation holds empty
	// tags and is eligible for retry.
	StatusFailed AnalysisStatus = "failed"
)

// Retryable reports whether an annotation in this status may be re-analyzed.
func (s AnalysisStatus) Retryable() bool {
	return s == StatusPending || s == StatusFailed
}

// Content is one distinct piece of video content identified by fingerprint.
type Content struct {
	Fingerprint   string
	ContentHash   string
	TechnicalHash string
	FirstSeenAt   time.Time
}

// Location is one concrete on-disk copy of a content. A path references
// exactly one fingerprint at any instant.
type Location struct {
	Path         string
	Fingerprint  string
	Size         int64
	LastModified time.Time
	DiscoveredAt time.Time
}

// Annotation is the one-to-one semantic annotation for a content: grouped
// tags, a description, and the flattened search tag set.
type Annotation struct {
	Fingerprint string
	Description string
	Technical   []string
	Content     []string
	Emotional   []string
	Business    []string
	SearchTags  []string
	Status      AnalysisStatus
	AnalyzedAt  *time.Time
	UpdatedAt   time.Time
}

// TagGroups returns the grouped tag slices in a stable order. The flattened
// SearchTags set is not included.
func (a *Annotation) TagGroups() [][]string {
	return [][]string{a.Technical, a.Content, a.Emotional, a.Business}
}

// Empty reports whether the annotation carries no tags at all.
func (a *Annotation) Empty() bool {
	if a == nil {
		return true
	}
	for _, group := range a.TagGroups() {
		if len(group) > 0 {
			return false
		}
	}
	return len(a.SearchTags) == 0
}

// Entry bundles a content with its locations and annotation for lookups.
type Entry struct {
	Content    Content
	Locations  []Location
	Annotation *Annotation
}

// LocationCount returns the number of known copies.
func (e *Entry) LocationCount() int {
	return len(e.Locations)
}

// SearchResult is one ranked hit from a tag query.
type SearchResult struct {
	Fingerprint string
	Weight      float64
	MatchedTags []string
}

// DuplicateGroup is a fingerprint with two or more locations.
type DuplicateGroup struct {
	Fingerprint string
	Locations   []Location
	TotalSize   int64
	LargestSize int64
}

// ReclaimableBytes is the space recovered by keeping exactly one copy.
func (g DuplicateGroup) ReclaimableBytes() int64 {
	return g.TotalSize - g.LargestSize
}

// LocationEvent records a lifecycle event for a path, most importantly the
// rebind that happens when content at a known path changes.
type LocationEvent struct {
	ID             int64
	Path           string
	OldFingerprint string
	NewFingerprint string
	Event          string
	CreatedAt      time.Time
}

// EventRebind is recorded when a path is atomically reassigned from one
// fingerprint to another.
const EventRebind = "rebind"

// EventRemoved is recorded when a location is explicitly removed.
const EventRemoved = "removed"

// ScanRecord is one scan run over a root.
type ScanRecord struct {
	ID         string
	Root       string
	StartedAt  time.Time
	FinishedAt *time.Time
	Processed  int
	Skipped    int
	Errors     int
}

// Stats aggregates catalog counts for diagnostics.
type Stats struct {
	Contents           int
	Locations          int
	DuplicateContents  int
	PendingAnnotations int
	FailedAnnotations  int
	IndexedTags        int
}
