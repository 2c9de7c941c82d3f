package services

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel markers used to classify failures across components. Wrap tags an
// error with one of these so callers can branch on the class without knowing
// which component produced it.
var (
	// ErrIO marks a file that could not be opened or read during hashing.
	ErrIO = errors.New("io failure")
	// ErrProbe marks a technical metadata extraction failure.
	ErrProbe = errors.New("probe failure")
	// ErrAnalysis marks a content analyzer failure.
	ErrAnalysis = errors.New("analysis failure")
	// ErrValidation marks rejected input (bad path, bad query, bad config value).
	ErrValidation = errors.New("validation error")
	// ErrConfiguration marks unusable runtime configuration.
	ErrConfiguration = errors.New("configuration error")
	// ErrNotFound marks lookups that matched nothing.
	ErrNotFound = errors.New("not found")
	// ErrCorrupt marks persistence-layer inconsistency. This is the only
	// fatal class: the surrounding operation aborts without partial commit.
	ErrCorrupt = errors.New("store corruption")
)

// Wrap builds an error message that includes component context while tagging
// it with the provided marker for later classification. The marker should be
// one of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrIO
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Recoverable reports whether a scan may continue past err. Per-file failures
// never abort a batch; only store corruption is fatal.
func Recoverable(err error) bool {
	return !errors.Is(err, ErrCorrupt)
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
