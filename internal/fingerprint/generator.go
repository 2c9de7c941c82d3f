package fingerprint

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"

	"reelcat/internal/logging"
	"reelcat/internal/media/ffprobe"
	"reelcat/internal/services"
)

// windowSize is the fixed sampling window for content hashing. Four 64 KiB
// windows (head, 1/3, 2/3, tail) plus the total byte length go into the
// digest; files of four windows or less are hashed in full. One scheme,
// everywhere: the window size is part of the fingerprint contract and
// changing it invalidates every stored fingerprint.
const windowSize = 64 * 1024

// fullReadLimit is the size at or below which files are hashed whole.
const fullReadLimit = 4 * windowSize

// Prober extracts the technical signature used for the technical hash half.
type Prober interface {
	Probe(ctx context.Context, path string) (ffprobe.Result, error)
}

// Generator derives Fingerprints from files. It is stateless: no references
// are held across Generate calls.
type Generator struct {
	prober Prober
	logger *slog.Logger
}

// NewGenerator builds a Generator backed by the given prober. A nil prober
// degrades every technical hash to the size-only fallback.
func NewGenerator(prober Prober, logger *slog.Logger) *Generator {
	return &Generator{
		prober: prober,
		logger: logging.NewComponentLogger(logger, "fingerprint"),
	}
}

// Generate computes the Fingerprint for the file at path. Unreadable files
// fail with an services.ErrIO classification; probe failures degrade to the
// size-only technical hash and do not fail generation.
func (g *Generator) Generate(ctx context.Context, path string) (Fingerprint, error) {
	probe := g.probe(ctx, path)
	return g.GenerateWithProbe(ctx, path, probe)
}

// GenerateWithProbe computes the Fingerprint using an already-obtained probe
// result so callers that need the probe for other work do not invoke ffprobe
// twice. A nil probe produces the size-only technical hash.
func (g *Generator) GenerateWithProbe(_ context.Context, path string, probe *ffprobe.Result) (Fingerprint, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Fingerprint{}, services.Wrap(services.ErrIO, "fingerprint", "stat", path, err)
	}
	if info.IsDir() {
		return Fingerprint{}, services.Wrap(services.ErrValidation, "fingerprint", "generate",
			fmt.Sprintf("%s is a directory", path), nil)
	}

	contentHash, err := g.contentHash(path, info.Size())
	if err != nil {
		return Fingerprint{}, err
	}

	technicalHash := technicalHash(probe, info.Size())

	return Fingerprint{ContentHash: contentHash, TechnicalHash: technicalHash}, nil
}

// probe runs the prober, returning nil when probing is unavailable or fails.
func (g *Generator) probe(ctx context.Context, path string) *ffprobe.Result {
	if g.prober == nil {
		return nil
	}
	result, err := g.prober.Probe(ctx, path)
	if err != nil {
		g.logger.Warn("technical probe failed, using size-only hash",
			logging.String(logging.FieldPath, path),
			logging.Error(err),
		)
		return nil
	}
	return &result
}

// contentHash digests sampled byte windows plus the total byte length.
// Filesystem timestamps must never enter this digest: copies made by tools
// that do not preserve mtime still have to hash identically.
func (g *Generator) contentHash(path string, size int64) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", services.Wrap(services.ErrIO, "fingerprint", "open", path, err)
	}
	defer file.Close()

	digest := sha256.New()

	if size <= fullReadLimit {
		if _, err := io.Copy(digest, file); err != nil {
			return "", services.Wrap(services.ErrIO, "fingerprint", "read", path, err)
		}
	} else {
		offsets := []int64{0, size / 3, 2 * size / 3, size - windowSize}
		window := make([]byte, windowSize)
		for _, offset := range offsets {
			if _, err := file.ReadAt(window, offset); err != nil && err != io.EOF {
				return "", services.Wrap(services.ErrIO, "fingerprint", "read window", path, err)
			}
			digest.Write(window)
		}
	}

	digest.Write([]byte(strconv.FormatInt(size, 10)))
	return hex.EncodeToString(digest.Sum(nil)), nil
}

// technicalHash digests the canonical technical signature, or the byte size
// alone when probing is unavailable. Both branches are deterministic for
// unchanged content.
func technicalHash(probe *ffprobe.Result, size int64) string {
	if probe != nil {
		return hashString(canonicalSignature(*probe, size))
	}
	return hashString("size-only:" + strconv.FormatInt(size, 10))
}

func canonicalSignature(result ffprobe.Result, size int64) string {
	var width, height int
	codec := "unknown"
	if video, ok := result.PrimaryVideo(); ok {
		width = video.Width
		height = video.Height
		if video.CodecName != "" {
			codec = video.CodecName
		}
	}
	return fmt.Sprintf("%dx%d|%s|%.3f|%d|%d",
		width, height, codec, result.DurationSeconds(), size, result.BitRate())
}

func hashString(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}
