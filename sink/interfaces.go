package sink

import (
	"context"

	"github.com/papyrus-search/papyrus/core"
)

// Point is one vector-store upsert: a deterministic identifier, the embedding
// vector, and the payload fields stored alongside it.
type Point struct {
	ID      core.ChunkID
	Vector  []float32
	Payload map[string]any
}

// Document is one search-index record: the full chunk text plus metadata,
// keyed by the same deterministic identifier as the vector point.
type Document struct {
	ID       core.ChunkID
	Text     string
	Metadata map[string]any
}

// VectorSink receives embedding vectors. Upsert must be idempotent: replaying
// a batch must not create duplicates or corrupt prior state.
type VectorSink interface {
	// EnsureCollection creates the target collection if absent. Called once
	// before the first write; an already-existing collection is not an error.
	EnsureCollection(ctx context.Context) error

	// Upsert writes all points or fails as a unit.
	Upsert(ctx context.Context, points []Point) error
}

// DocumentSink receives chunk text and metadata for keyword search.
type DocumentSink interface {
	// Ingest appends documents under the configured commit policy.
	Ingest(ctx context.Context, docs []Document) error

	// Commit flushes anything held back by a deferred commit policy. It is a
	// no-op for sinks that commit per batch.
	Commit(ctx context.Context) error
}
