// Package config loads, normalizes, and validates Newsnack configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// GOOGLE_API_KEY and OPENAI_API_KEY. The Config type centralizes every knob
// the daemon and CLI need, from provider models and breaker thresholds to
// object-storage destinations.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical provider names, and clear validation errors.
package config
