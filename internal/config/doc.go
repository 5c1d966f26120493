// Package config loads, validates, and normalizes the TOML configuration
// for the shelve daemon and CLI.
package config
