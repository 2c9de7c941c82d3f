// Package fingerprint derives stable content identities for video files.
//
// A Fingerprint pairs a content hash (SHA-256 over sampled byte windows plus
// the total byte length) with a technical hash (SHA-256 of the probed
// codec/resolution/duration/bitrate signature). The content hash reads at
// most four 64 KiB windows, so multi-gigabyte files are fingerprinted in
// constant time while renames and copies keep their identity.
package fingerprint
