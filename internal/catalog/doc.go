// Package catalog persists the content-fingerprint index in SQLite.
//
// It is the exclusive owner of all indexing state. Four entities live here:
// contents (one row per distinct fingerprint), locations (one row per
// on-disk copy, path unique store-wide), annotations (one-to-one semantic
// tags per content), and the search index (inverted tag rows derived from
// annotations, rebuilt inside the annotation's transaction so it can never
// drift from its source).
//
// Registering a brand-new fingerprint commits its content row, annotation,
// index rows, and first location as one atomic unit; concurrent readers
// never observe partial writes. A path whose content changed is rebound to
// the new fingerprint in a single transaction with an audit event.
package catalog
