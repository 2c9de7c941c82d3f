// Package config loads, normalizes, and validates reelcat configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and validates scan globs and analyzer modes.
// Always obtain settings through this package so downstream code receives
// sanitized paths and canonical values.
package config
