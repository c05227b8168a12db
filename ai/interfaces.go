package ai

import "context"

// Embedder generates vector embeddings from text for semantic similarity search.
// Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedTexts generates vector embeddings for multiple text strings in a
	// single provider request. The returned slice contains one vector per
	// input text, in the same order. Returns an error if the request fails;
	// callers own retry.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}
