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
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/panjf2000/ants/v2"
	"github.com/papyrus-search/papyrus/ai"
	"github.com/papyrus-search/papyrus/retry"
)

// embedDispatcher sends texts to the embedding provider in bounded sub-batches.
// The pool is shared across every file worker, so its size is the process-wide
// cap on concurrent provider requests. Submit blocks when the pool is full;
// that blocking is the backpressure that keeps file workers from outrunning
// the provider.
type embedDispatcher struct {
	embedder     ai.Embedder
	pool         *ants.Pool
	requestBatch int
	policy       retry.Policy
	logger       *slog.Logger
}

func newEmbedDispatcher(embedder ai.Embedder, pool *ants.Pool, requestBatch int, policy retry.Policy, logger *slog.Logger) *embedDispatcher {
	if requestBatch <= 0 {
		requestBatch = 1
	}
	return &embedDispatcher{
		embedder:     embedder,
		pool:         pool,
		requestBatch: requestBatch,
		policy:       policy,
		logger:       logger.With("component", "embed-dispatcher"),
	}
}

// embedTexts returns one vector per input text, in input order. Sub-batches
// run concurrently up to the shared pool's capacity and retry independently;
// if any sub-batch ultimately fails the whole call fails, since a batch with
// holes in its vectors cannot be written. The attempt count is the largest
// number of attempts any failing sub-batch made, so a fatal first-attempt
// failure reports 1 rather than the policy maximum.
func (d *embedDispatcher) embedTexts(ctx context.Context, texts []string) ([][]float32, int, error) {
	if len(texts) == 0 {
		return nil, 0, nil
	}

	vectors := make([][]float32, len(texts))

	var (
		wg          sync.WaitGroup
		mu          sync.Mutex
		errs        []error
		maxAttempts int
	)

	fail := func(attempts int, err error) {
		mu.Lock()
		errs = append(errs, err)
		if attempts > maxAttempts {
			maxAttempts = attempts
		}
		mu.Unlock()
	}

	for start := 0; start < len(texts); start += d.requestBatch {
		end := min(start+d.requestBatch, len(texts))
		offset, sub := start, texts[start:end]

		wg.Add(1)
		err := d.pool.Submit(func() {
			defer wg.Done()
			if attempts, err := d.embedSubBatch(ctx, sub, vectors[offset:end]); err != nil {
				fail(attempts, err)
			}
		})
		if err != nil {
			wg.Done()
			fail(0, fmt.Errorf("submit embedding work: %w", err))
			break
		}
	}

	wg.Wait()

	if len(errs) > 0 {
		return nil, maxAttempts, errors.Join(errs...)
	}
	return vectors, 0, nil
}

func (d *embedDispatcher) embedSubBatch(ctx context.Context, texts []string, out [][]float32) (int, error) {
	attempts, err := d.policy.Do(ctx, func() error {
		result, err := d.embedder.EmbedTexts(ctx, texts)
		if err != nil {
			return err
		}
		if len(result) != len(texts) {
			return retry.Fatal(fmt.Errorf("%w: got %d vectors for %d texts",
				ErrEmbeddingCountMismatch, len(result), len(texts)))
		}
		copy(out, result)
		return nil
	})
	if err != nil {
		d.logger.Warn("embedding request failed",
			"texts", len(texts), "attempts", attempts, "err", err)
		return attempts, err
	}
	return attempts, nil
}
