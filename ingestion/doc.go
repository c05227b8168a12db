// Package ingestion turns chunk files into committed entries in the vector
// store and the search index. It owns the embedding cache, the concurrency
// bounds, and the decision to abandon a batch after retries fail.
package ingestion
