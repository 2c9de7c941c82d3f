package fingerprint

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"reelcat/internal/media/ffprobe"
	"reelcat/internal/services"
)

type stubProber struct {
	result ffprobe.Result
	err    error
	calls  int
}

func (s *stubProber) Probe(ctx context.Context, path string) (ffprobe.Result, error) {
	s.calls++
	return s.result, s.err
}

func probeResult() ffprobe.Result {
	return ffprobe.Result{
		Streams: []ffprobe.Stream{{CodecType: "video", CodecName: "h264", Width: 1920, Height: 1080}},
		Format:  ffprobe.Format{Duration: "61.5", BitRate: "800000"},
	}
}

func writeBytes(t *testing.T, path string, data []byte) {
	t.Helper()
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestIdenticalContentDifferentPathsMatch(t *testing.T) {
	dir := t.TempDir()
	payload := bytes.Repeat([]byte("reelcat"), 4096)
	p1 := filepath.Join(dir, "holiday.mkv")
	p2 := filepath.Join(dir, "backup", "holiday (copy).mkv")
	writeBytes(t, p1, payload)
	if err := os.MkdirAll(filepath.Dir(p2), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	writeBytes(t, p2, payload)

	gen := NewGenerator(&stubProber{result: probeResult()}, nil)
	fp1, err := gen.Generate(context.Background(), p1)
	if err != nil {
		t.Fatalf("Generate p1: %v", err)
	}
	fp2, err := gen.Generate(context.Background(), p2)
	if err != nil {
		t.Fatalf("Generate p2: %v", err)
	}
	if fp1.String() != fp2.String() {
		t.Fatalf("copies must share a fingerprint: %s vs %s", fp1, fp2)
	}
}

func TestTimestampsDoNotAffectFingerprint(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "clip.mp4")
	writeBytes(t, path, bytes.Repeat([]byte{0xab}, 2048))

	gen := NewGenerator(&stubProber{result: probeResult()}, nil)
	before, err := gen.Generate(context.Background(), path)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	past := time.Now().Add(-48 * time.Hour)
	if err := os.Chtimes(path, past, past); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	after, err := gen.Generate(context.Background(), path)
	if err != nil {
		t.Fatalf("Generate after chtimes: %v", err)
	}
	if before.String() != after.String() {
		t.Fatalf("mtime change altered fingerprint: %s vs %s", before, after)
	}
}

func TestContentChangeChangesFingerprint(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "clip.mkv")
	writeBytes(t, path, bytes.Repeat([]byte{0x01}, 1024))

	gen := NewGenerator(&stubProber{result: probeResult()}, nil)
	original, err := gen.Generate(context.Background(), path)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	writeBytes(t, path, bytes.Repeat([]byte{0x02}, 1024))
	changed, err := gen.Generate(context.Background(), path)
	if err != nil {
		t.Fatalf("Generate changed: %v", err)
	}
	if original.ContentHash == changed.ContentHash {
		t.Fatal("content change must change the content hash")
	}
}

func TestLargeFileInteriorChangeDetected(t *testing.T) {
	dir := t.TempDir()
	size := fullReadLimit * 4
	payload := bytes.Repeat([]byte{0x5a}, size)
	path := filepath.Join(dir, "movie.mkv")
	writeBytes(t, path, payload)

	gen := NewGenerator(&stubProber{result: probeResult()}, nil)
	original, err := gen.Generate(context.Background(), path)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	// Flip a byte inside the 1/3 sampling window.
	payload[size/3+100] ^= 0xff
	writeBytes(t, path, payload)

	changed, err := gen.Generate(context.Background(), path)
	if err != nil {
		t.Fatalf("Generate changed: %v", err)
	}
	if original.ContentHash == changed.ContentHash {
		t.Fatal("interior window change must change the content hash")
	}
}

func TestProbeFailureFallsBackDeterministically(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "clip.avi")
	writeBytes(t, path, []byte("not really video"))

	failing := &stubProber{err: services.Wrap(services.ErrProbe, "ffprobe", "probe", "exit 1", nil)}
	gen := NewGenerator(failing, nil)

	first, err := gen.Generate(context.Background(), path)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	second, err := gen.Generate(context.Background(), path)
	if err != nil {
		t.Fatalf("Generate again: %v", err)
	}
	if first.String() != second.String() {
		t.Fatalf("degraded hash must stay deterministic: %s vs %s", first, second)
	}
	if failing.calls != 2 {
		t.Fatalf("expected 2 probe attempts, got %d", failing.calls)
	}
}

func TestMissingFileIsIOFailure(t *testing.T) {
	gen := NewGenerator(&stubProber{result: probeResult()}, nil)
	_, err := gen.Generate(context.Background(), filepath.Join(t.TempDir(), "gone.mkv"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if !errors.Is(err, services.ErrIO) {
		t.Fatalf("expected ErrIO, got %v", err)
	}
}

func TestStringFormAndParse(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "clip.mkv")
	writeBytes(t, path, []byte("payload"))

	gen := NewGenerator(&stubProber{result: probeResult()}, nil)
	fp, err := gen.Generate(context.Background(), path)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	text := fp.String()
	if len(text) != hexLength*2+1 || text[hexLength] != ':' {
		t.Fatalf("unexpected string form %q", text)
	}

	parsed, err := Parse(text)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if parsed.String() != text {
		t.Fatalf("round trip mismatch: %q vs %q", parsed.String(), text)
	}

	for _, bad := range []string{"", "abc", "xyz!nothex!!:aaaaaaaaaaaa", "aaaaaaaaaaaa-bbbbbbbbbbbb"} {
		if _, err := Parse(bad); err == nil {
			t.Fatalf("expected parse failure for %q", bad)
		}
	}
}
