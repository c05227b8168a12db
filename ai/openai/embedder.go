package openai

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/papyrus-search/papyrus/ai"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
)

// Embedder implements ai.Embedder using OpenAI-compatible embedding APIs.
type Embedder struct {
	embedder      embeddings.Embedder
	maxInputChars int
	logger        *slog.Logger
}

var _ ai.Embedder = (*Embedder)(nil)

// NewEmbedder creates a new embedder using the provided configuration.
//
// Returns ai.Embedder interface to enforce abstraction.
func NewEmbedder(config *ai.Config) (ai.Embedder, error) {
	return newEmbedder(config)
}

func newEmbedder(config *ai.Config) (*Embedder, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	// Use "none" as token for local OpenAI-compatible services that don't
	// require authentication. The per-request timeout lives on the HTTP
	// client so every call, including retried ones, is bounded.
	client, err := openai.New(
		openai.WithBaseURL(config.BaseURL),
		openai.WithToken("none"),
		openai.WithEmbeddingModel(config.Model),
		openai.WithHTTPClient(&http.Client{Timeout: config.RequestTimeout}),
	)
	if err != nil {
		return nil, err
	}

	embedder, err := embeddings.NewEmbedder(client, embeddings.WithStripNewLines(true))
	if err != nil {
		return nil, err
	}

	return &Embedder{
		embedder:      embedder,
		maxInputChars: config.MaxInputChars,
		logger:        slog.Default().With("component", "openai-embedder"),
	}, nil
}

// EmbedTexts generates vector embeddings for multiple text strings in a batch.
// Texts longer than the configured limit are truncated before sending.
func (e *Embedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	e.logger.Debug("generating embeddings for texts", "count", len(texts))

	prepared := make([]string, len(texts))
	for i, text := range texts {
		truncated, cut := truncateText(text, e.maxInputChars)
		if cut {
			e.logger.Warn("truncating oversized text before embedding",
				"original_chars", len(text), "max_chars", e.maxInputChars)
		}
		prepared[i] = truncated
	}

	vectors, err := e.embedder.EmbedDocuments(ctx, prepared)
	if err != nil {
		e.logger.Error("failed to generate embeddings", "count", len(texts), "err", err)
		return nil, err
	}

	return vectors, nil
}
