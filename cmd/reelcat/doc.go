// Package main hosts the reelcat CLI entrypoint and command graph.
//
// The Cobra-based command tree covers scanning and indexing media, continuous
// watch mode, duplicate reports, tag search, and catalog maintenance. It
// centralizes configuration resolution, catalog locking, and structured
// logging setup so subcommands can focus on user experience instead of
// wiring.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
package main
