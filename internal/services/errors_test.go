package services_test

import (
	"errors"
	"strings"
	"testing"

	"reelcat/internal/services"
)

func TestWrapTagsMarker(t *testing.T) {
	cause := errors.New("open /missing.mkv: no such file")
	err := services.Wrap(services.ErrIO, "fingerprint", "generate", "read sample window", cause)

	if !errors.Is(err, services.ErrIO) {
		t.Fatalf("expected ErrIO classification, got %v", err)
	}
	if !errors.Is(err, cause) {
		t.Fatalf("expected cause preserved, got %v", err)
	}
	if !strings.Contains(err.Error(), "fingerprint: generate: read sample window") {
		t.Fatalf("unexpected detail: %v", err)
	}
}

func TestWrapWithoutCause(t *testing.T) {
	err := services.Wrap(services.ErrValidation, "lookup", "resolve", "empty query", nil)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestRecoverable(t *testing.T) {
	if services.Recoverable(services.Wrap(services.ErrCorrupt, "catalog", "commit", "", errors.New("disk io"))) {
		t.Fatal("store corruption must be fatal")
	}
	for _, marker := range []error{services.ErrIO, services.ErrProbe, services.ErrAnalysis, services.ErrNotFound} {
		if !services.Recoverable(services.Wrap(marker, "indexer", "index", "", nil)) {
			t.Fatalf("%v should be recoverable", marker)
		}
	}
}
