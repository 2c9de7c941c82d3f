package fingerprint

import (
	"fmt"
	"strings"

	"reelcat/internal/services"
)

// hexLength is the number of hex characters kept from each hash half in the
// string form. 12 chars (48 bits) per half keeps collision odds negligible
// for catalogs in the millions while staying readable in CLI output.
const hexLength = 12

// Fingerprint is the immutable composite identity of one distinct piece of
// video content: a digest of sampled file bytes plus a digest of the
// technical signature. Identical bytes and identical technical metadata
// always produce the same Fingerprint regardless of name, path, or
// filesystem timestamps.
type Fingerprint struct {
	ContentHash   string
	TechnicalHash string
}

// String returns the canonical short form: twelve hex chars of each half
// joined by a colon, e.g. "a1b2c3d4e5f6:0f1e2d3c4b5a".
func (f Fingerprint) String() string {
	return truncate(f.ContentHash) + ":" + truncate(f.TechnicalHash)
}

// IsZero reports whether the fingerprint is unset.
func (f Fingerprint) IsZero() bool {
	return f.ContentHash == "" && f.TechnicalHash == ""
}

// Parse validates a canonical short-form fingerprint string. The returned
// Fingerprint carries only the truncated halves; it compares equal by String
// with any full fingerprint sharing the same prefix halves.
func Parse(value string) (Fingerprint, error) {
	value = strings.TrimSpace(strings.ToLower(value))
	parts := strings.Split(value, ":")
	if len(parts) != 2 || len(parts[0]) != hexLength || len(parts[1]) != hexLength {
		return Fingerprint{}, services.Wrap(services.ErrValidation, "fingerprint", "parse",
			fmt.Sprintf("malformed fingerprint %q", value), nil)
	}
	for _, part := range parts {
		for _, r := range part {
			if (r < '0' || r > '9') && (r < 'a' || r > 'f') {
				return Fingerprint{}, services.Wrap(services.ErrValidation, "fingerprint", "parse",
					fmt.Sprintf("malformed fingerprint %q", value), nil)
			}
		}
	}
	return Fingerprint{ContentHash: parts[0], TechnicalHash: parts[1]}, nil
}

func truncate(hash string) string {
	if len(hash) <= hexLength {
		return hash
	}
	return hash[:hexLength]
}
