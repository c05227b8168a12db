package sink

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/papyrus-search/papyrus/core"
	"github.com/papyrus-search/papyrus/retry"
)

// DualWriter commits a batch to the vector store and the search index. The
// two writes run concurrently and retry independently: a batch stuck retrying
// against one sink never stalls the other.
type DualWriter struct {
	vectors     VectorSink
	documents   DocumentSink
	vectorDim   int
	policy      retry.Policy
	payloadKeys []string // metadata keys copied into vector payloads; nil means all
	logger      *slog.Logger
}

// WriterOption configures a DualWriter.
type WriterOption func(*DualWriter)

// WithLogger sets a custom logger. Default is slog.Default().
func WithLogger(logger *slog.Logger) WriterOption {
	return func(w *DualWriter) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// WithPayloadKeys restricts which metadata fields are copied into vector
// payloads. The search index always receives full metadata.
func WithPayloadKeys(keys []string) WriterOption {
	return func(w *DualWriter) {
		w.payloadKeys = keys
	}
}

// NewDualWriter creates a writer for the given sinks. vectorDim is the
// configured collection dimensionality; every vector is checked against it
// before anything is sent.
func NewDualWriter(vectors VectorSink, documents DocumentSink, vectorDim int, policy retry.Policy, opts ...WriterOption) (*DualWriter, error) {
	if vectors == nil {
		return nil, ErrVectorSinkRequired
	}
	if documents == nil {
		return nil, ErrDocumentSinkRequired
	}

	w := &DualWriter{
		vectors:   vectors,
		documents: documents,
		vectorDim: vectorDim,
		policy:    policy,
		logger:    slog.Default().With("component", "dual-writer"),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// WriteBoth commits the batch to both sinks concurrently and returns their
// independent outcomes. There is no shared state between the two write paths;
// the caller joins the results.
func (w *DualWriter) WriteBoth(ctx context.Context, batch *core.Batch) (vectors, documents Outcome) {
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		vectors = w.WriteVectors(ctx, batch)
	}()
	go func() {
		defer wg.Done()
		documents = w.WriteDocuments(ctx, batch)
	}()

	wg.Wait()
	return vectors, documents
}

// WriteVectors upserts the batch's vectors. A dimensionality mismatch is a
// configuration error: the batch fails with zero attempts and no retries.
func (w *DualWriter) WriteVectors(ctx context.Context, batch *core.Batch) Outcome {
	if err := w.validateVectors(batch); err != nil {
		w.logger.Error("batch failed vector validation",
			"source", batch.SourcePath, "batch", batch.Ordinal, "err", err)
		return Outcome{Status: StatusFatal, Attempts: 0, Err: err}
	}

	points := make([]Point, len(batch.Records))
	for i, record := range batch.Records {
		points[i] = Point{
			ID:      record.ID(),
			Vector:  batch.Vectors[i],
			Payload: w.buildPayload(record),
		}
	}

	attempts, err := w.policy.Do(ctx, func() error {
		return w.vectors.Upsert(ctx, points)
	})
	return w.outcome("vector", batch, attempts, err)
}

// WriteDocuments ingests the batch's text and metadata into the search index.
func (w *DualWriter) WriteDocuments(ctx context.Context, batch *core.Batch) Outcome {
	if err := batch.Validate(); err != nil {
		return Outcome{Status: StatusFatal, Attempts: 0, Err: err}
	}

	docs := make([]Document, len(batch.Records))
	for i, record := range batch.Records {
		docs[i] = Document{
			ID:       record.ID(),
			Text:     record.Text,
			Metadata: record.Metadata,
		}
	}

	attempts, err := w.policy.Do(ctx, func() error {
		return w.documents.Ingest(ctx, docs)
	})
	return w.outcome("document", batch, attempts, err)
}

// Commit flushes the document sink's deferred buffer, with the same retry
// policy as batch writes.
func (w *DualWriter) Commit(ctx context.Context) error {
	_, err := w.policy.Do(ctx, func() error {
		return w.documents.Commit(ctx)
	})
	return err
}

func (w *DualWriter) validateVectors(batch *core.Batch) error {
	if err := batch.Validate(); err != nil {
		return err
	}
	if len(batch.Vectors) != len(batch.Records) {
		return fmt.Errorf("%w: %d vectors for %d records",
			ErrVectorCountMismatch, len(batch.Vectors), len(batch.Records))
	}
	for i, vector := range batch.Vectors {
		if len(vector) != w.vectorDim {
			return fmt.Errorf("%w: record %s has %d dimensions, collection expects %d",
				ErrDimensionMismatch, batch.Records[i].ID(), len(vector), w.vectorDim)
		}
	}
	return nil
}

func (w *DualWriter) buildPayload(record *core.ChunkRecord) map[string]any {
	if w.payloadKeys == nil {
		return record.Metadata
	}
	payload := make(map[string]any, len(w.payloadKeys))
	for _, key := range w.payloadKeys {
		if v, ok := record.Metadata[key]; ok {
			payload[key] = v
		}
	}
	return payload
}

func (w *DualWriter) outcome(kind string, batch *core.Batch, attempts int, err error) Outcome {
	if err == nil {
		w.logger.Debug("batch committed",
			"sink", kind, "source", batch.SourcePath, "batch", batch.Ordinal, "attempts", attempts)
		return Outcome{Status: StatusCommitted, Attempts: attempts}
	}

	status := StatusRetriesExhausted
	if retry.IsFatal(err) {
		status = StatusFatal
	}
	w.logger.Warn("batch write failed",
		"sink", kind, "source", batch.SourcePath, "batch", batch.Ordinal,
		"attempts", attempts, "status", status.String(), "err", err)
	return Outcome{Status: status, Attempts: attempts, Err: err}
}
