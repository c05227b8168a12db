// Package config loads and validates the TOML configuration file consumed by
// the papyrus CLI. Validation failures are configuration errors: they abort
// the run before anything is written to either sink.
package config
