// Package ffprobe wraps the ffprobe binary to extract container and stream
// metadata. It is the technical probe behind fingerprinting: the fingerprint
// generator digests the width, height, codec, duration, size, and bitrate it
// reports, and falls back to size-only hashing when probing fails.
package ffprobe
