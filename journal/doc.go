// Package journal persists the identifiers of abandoned batches between runs.
// Because chunk identifiers are deterministic and both sinks upsert, an
// operator can re-run insertion over the sources named here without creating
// duplicates.
package journal
