// Package config loads, normalizes, and validates trackbuf configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and applies TRACKBUF_* environment overrides.
// The Config type centralizes every knob the CLI, daemon, and uploader need so
// the buffer database location and collector credentials are discovered in one
// pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
