// Package core defines the domain model shared by the insertion pipeline:
// chunk records, their deterministic storage identifiers, text fingerprints,
// and the batch type that is the unit of retry against both sinks.
package core
