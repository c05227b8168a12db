// Copyright 2025 Papyrus Search
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/panjf2000/ants/v2"
	"github.com/papyrus-search/papyrus/ai"
	"github.com/papyrus-search/papyrus/core"
	"github.com/papyrus-search/papyrus/journal"
	"github.com/papyrus-search/papyrus/retry"
	"github.com/papyrus-search/papyrus/sink"
)

// BatchJournal records batches the pipeline gives up on. *journal.Journal
// satisfies it; a nil journal disables persistence.
type BatchJournal interface {
	RecordAbandoned(*journal.Entry) error
	ClearBatch(sourcePath string, batch int) error
}

// PipelineConfig sizes the pipeline's pools, batches, and cache.
type PipelineConfig struct {
	// BatchSize is the number of chunk records per write batch.
	BatchSize int

	// MaxParallelFiles bounds concurrent file workers.
	MaxParallelFiles int

	// GlobalMaxConcurrency bounds concurrent embedding requests across all
	// file workers combined.
	GlobalMaxConcurrency int

	// RequestBatchSize is how many texts go into one embedding request.
	RequestBatchSize int

	// CacheMaxEntries bounds the embedding cache.
	CacheMaxEntries int

	// Retry governs every network operation: embedding requests and writes
	// to either sink.
	Retry retry.Policy
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithJournal persists abandoned batches so a later run can re-attempt them.
func WithJournal(j BatchJournal) PipelineOption {
	return func(p *Pipeline) {
		p.journal = j
	}
}

// WithPipelineLogger sets a custom logger. Default is slog.Default().
func WithPipelineLogger(logger *slog.Logger) PipelineOption {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger.With("component", "pipeline")
		}
	}
}

// WithFileObserver registers a callback invoked after each file finishes,
// with a nil error when the file completed cleanly.
func WithFileObserver(fn func(path string, err error)) PipelineOption {
	return func(p *Pipeline) {
		p.fileObserver = fn
	}
}

// Pipeline drives chunk files through embedding and into both sinks.
//
// Concurrency has two independent axes: a file pool admits up to
// MaxParallelFiles workers, and a shared embedding pool caps in-flight
// provider requests at GlobalMaxConcurrency no matter how many files are
// open. Within a file, embedding of batch N+1 overlaps the sink writes of
// batch N.
type Pipeline struct {
	reader       *ChunkReader
	cache        *VectorCache
	dispatcher   *embedDispatcher
	writer       *sink.DualWriter
	journal      BatchJournal
	filePool     *ants.Pool
	embedPool    *ants.Pool
	fileObserver func(path string, err error)
	logger       *slog.Logger
}

// NewPipeline wires a pipeline from its parts. Close must be called to
// release the worker pools.
func NewPipeline(embedder ai.Embedder, writer *sink.DualWriter, cfg PipelineConfig, opts ...PipelineOption) (*Pipeline, error) {
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if writer == nil {
		return nil, ErrWriterRequired
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 64
	}
	if cfg.MaxParallelFiles <= 0 {
		cfg.MaxParallelFiles = 1
	}
	if cfg.GlobalMaxConcurrency <= 0 {
		cfg.GlobalMaxConcurrency = 1
	}

	p := &Pipeline{
		writer: writer,
		cache:  NewVectorCache(cfg.CacheMaxEntries),
		logger: slog.Default().With("component", "pipeline"),
	}
	for _, opt := range opts {
		opt(p)
	}

	p.reader = NewChunkReader(cfg.BatchSize, p.logger)

	filePool, err := ants.NewPool(cfg.MaxParallelFiles)
	if err != nil {
		return nil, fmt.Errorf("create file pool: %w", err)
	}
	embedPool, err := ants.NewPool(cfg.GlobalMaxConcurrency)
	if err != nil {
		filePool.Release()
		return nil, fmt.Errorf("create embedding pool: %w", err)
	}
	p.filePool = filePool
	p.embedPool = embedPool
	p.dispatcher = newEmbedDispatcher(embedder, embedPool, cfg.RequestBatchSize, cfg.Retry, p.logger)

	return p, nil
}

// Close releases the worker pools.
func (p *Pipeline) Close() {
	p.filePool.Release()
	p.embedPool.Release()
}

// Cache exposes the embedding cache, mainly for inspection in tests.
func (p *Pipeline) Cache() *VectorCache {
	return p.cache
}

// Run processes the given chunk files and returns the run report. A failed
// batch is recorded and skipped; Run keeps going so one bad batch never
// blocks the rest of the corpus. Cancelling ctx stops admitting new files
// and batches while in-flight attempts finish.
func (p *Pipeline) Run(ctx context.Context, files []string) (*Report, error) {
	if len(files) == 0 {
		return nil, ErrNoChunkFiles
	}

	report := NewReport()

	var wg sync.WaitGroup
	for _, path := range files {
		if ctx.Err() != nil {
			break
		}

		path := path
		wg.Add(1)
		err := p.filePool.Submit(func() {
			defer wg.Done()
			fileErr := p.processFile(ctx, path, report)
			report.addFile(fileErr != nil)
			if fileErr != nil {
				p.logger.Error("file failed", "file", path, "err", fileErr)
			}
			if p.fileObserver != nil {
				p.fileObserver(path, fileErr)
			}
		})
		if err != nil {
			wg.Done()
			wg.Wait()
			return report, fmt.Errorf("submit file work: %w", err)
		}
	}
	wg.Wait()

	if err := p.writer.Commit(ctx); err != nil {
		return report, fmt.Errorf("final commit: %w", err)
	}
	return report, ctx.Err()
}

// processFile streams one file's batches through embed and write stages.
// Writes run behind embedding: batch N's sink writes proceed while batch N+1
// embeds, with at most one write in flight per file.
func (p *Pipeline) processFile(ctx context.Context, path string, report *Report) error {
	var prevWrite chan struct{}

	skipped, err := p.reader.ForEachBatch(path, func(batch *core.Batch) error {
		if err := ctx.Err(); err != nil {
			return err
		}

		if attempts, err := p.embedBatch(ctx, batch, report); err != nil {
			p.abandon(report, batch, "embedding", err, attempts)
			return nil
		}

		if prevWrite != nil {
			<-prevWrite
		}
		done := make(chan struct{})
		prevWrite = done
		go func() {
			defer close(done)
			p.writeBatch(ctx, batch, report)
		}()
		return nil
	})

	if prevWrite != nil {
		<-prevWrite
	}
	report.addSkipped(skipped)
	return err
}

// embedBatch fills batch.Vectors, consulting the cache first. Identical texts
// within the batch are sent to the provider once. On failure it reports how
// many attempts the failing request made.
func (p *Pipeline) embedBatch(ctx context.Context, batch *core.Batch, report *Report) (int, error) {
	vectors := make([][]float32, len(batch.Records))
	byFingerprint := make(map[core.Fingerprint][]float32)

	var missTexts []string
	var missKeys []core.Fingerprint
	hits := 0

	for i, record := range batch.Records {
		key := record.Fingerprint()
		if vector, ok := p.cache.Lookup(key); ok {
			vectors[i] = vector
			hits++
			continue
		}
		if _, queued := byFingerprint[key]; queued {
			continue
		}
		byFingerprint[key] = nil
		missTexts = append(missTexts, record.Text)
		missKeys = append(missKeys, key)
	}

	if len(missTexts) > 0 {
		computed, attempts, err := p.dispatcher.embedTexts(ctx, missTexts)
		if err != nil {
			return attempts, err
		}
		for i, key := range missKeys {
			byFingerprint[key] = computed[i]
			p.cache.Insert(key, computed[i])
		}
	}

	for i, record := range batch.Records {
		if vectors[i] != nil {
			continue
		}
		vectors[i] = byFingerprint[record.Fingerprint()]
	}

	batch.Vectors = vectors
	report.addCacheStats(hits, len(missTexts))
	return 0, nil
}

// writeBatch commits one embedded batch to both sinks and settles its fate:
// committed batches are cleared from the journal, anything else is abandoned.
func (p *Pipeline) writeBatch(ctx context.Context, batch *core.Batch, report *Report) {
	vOut, dOut := p.writer.WriteBoth(ctx, batch)
	report.addBatchOutcome(batch.SourcePath, len(batch.Records), vOut.Committed(), dOut.Committed())

	if vOut.Committed() && dOut.Committed() {
		if p.journal != nil {
			if err := p.journal.ClearBatch(batch.SourcePath, batch.Ordinal); err != nil {
				p.logger.Warn("clearing journal entry failed",
					"file", batch.SourcePath, "batch", batch.Ordinal, "err", err)
			}
		}
		return
	}

	var sinks []string
	var causes []string
	attempts := 0
	if !vOut.Committed() {
		sinks = append(sinks, "vector")
		causes = append(causes, vOut.Err.Error())
		attempts = max(attempts, vOut.Attempts)
	}
	if !dOut.Committed() {
		sinks = append(sinks, "document")
		causes = append(causes, dOut.Err.Error())
		attempts = max(attempts, dOut.Attempts)
	}

	p.abandon(report, batch, strings.Join(sinks, ","),
		fmt.Errorf("%s", strings.Join(causes, "; ")), attempts)
}

func (p *Pipeline) abandon(report *Report, batch *core.Batch, sinkName string, cause error, attempts int) {
	ids := batch.IDs()
	report.addAbandoned(AbandonedBatch{
		SourcePath: batch.SourcePath,
		Batch:      batch.Ordinal,
		Sink:       sinkName,
		ChunkIDs:   ids,
	})
	p.logger.Error("batch abandoned",
		"file", batch.SourcePath, "batch", batch.Ordinal, "sink", sinkName, "err", cause)

	if p.journal == nil {
		return
	}
	entry := &journal.Entry{
		SourcePath: batch.SourcePath,
		Batch:      batch.Ordinal,
		ChunkIDs:   ids,
		Sink:       sinkName,
		Cause:      cause.Error(),
		Attempts:   attempts,
	}
	if err := p.journal.RecordAbandoned(entry); err != nil {
		p.logger.Error("recording abandoned batch failed",
			"file", batch.SourcePath, "batch", batch.Ordinal, "err", err)
	}
}
