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


package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Commit modes for the search index.
const (
	CommitModeForce    = "force"    // commit per batch
	CommitModeDeferred = "deferred" // buffer and commit once at end of run
)

// Config is the full configuration file surface.
type Config struct {
	Logging LoggingConfig `toml:"logging"`
	Paths   PathsConfig   `toml:"paths"`
	Insert  InsertConfig  `toml:"insert"`
}

// LoggingConfig controls the process-wide slog level.
type LoggingConfig struct {
	Level string `toml:"level"`
}

// PathsConfig names the directories the pipeline reads and writes.
type PathsConfig struct {
	// ChunkRoot is walked recursively for *.jsonl chunk files.
	ChunkRoot string `toml:"chunk_root"`

	// StateDir holds the run journal of abandoned batches.
	StateDir string `toml:"state_dir"`
}

// InsertConfig configures the insertion pipeline.
type InsertConfig struct {
	// BatchSize is the number of chunk records per batch.
	BatchSize int `toml:"batch_size"`

	// RetryMax is the maximum number of attempts per network operation.
	RetryMax int `toml:"retry_max"`

	// RetryBackoffMs seeds the exponential backoff between attempts.
	RetryBackoffMs int `toml:"retry_backoff_ms"`

	// MaxParallelFiles bounds how many chunk files are in flight at once.
	MaxParallelFiles int `toml:"max_parallel_files"`

	Qdrant     QdrantConfig     `toml:"qdrant"`
	Quickwit   QuickwitConfig   `toml:"quickwit"`
	Embeddings EmbeddingsConfig `toml:"embeddings"`
}

// QdrantConfig describes the vector store sink.
type QdrantConfig struct {
	URL              string `toml:"url"`
	Collection       string `toml:"collection"`
	Distance         string `toml:"distance"`
	VectorSize       int    `toml:"vector_size"`
	CreateCollection bool   `toml:"create_collection"`
	APIKey           string `toml:"api_key"`

	// PayloadFields limits which metadata fields are copied into point
	// payloads. Empty means all fields.
	PayloadFields []string `toml:"payload_fields"`
}

// QuickwitConfig describes the search index sink.
type QuickwitConfig struct {
	URL     string `toml:"url"`
	IndexID string `toml:"index_id"`

	// CommitMode is "force" (per batch) or "deferred" (end of run).
	CommitMode string `toml:"commit_mode"`

	CommitTimeoutSeconds int `toml:"commit_timeout_seconds"`
}

// EmbeddingsConfig describes the embedding provider.
type EmbeddingsConfig struct {
	Provider              string `toml:"provider"`
	BaseURL               string `toml:"base_url"`
	Model                 string `toml:"model"`
	RequestTimeoutSeconds int    `toml:"request_timeout_seconds"`

	// MaxConcurrency is the legacy per-run cap; GlobalMaxConcurrency
	// supersedes it when set.
	MaxConcurrency       int `toml:"max_concurrency"`
	GlobalMaxConcurrency int `toml:"global_max_concurrency"`

	// RequestBatchSize is how many texts go into one embedding request.
	RequestBatchSize int `toml:"request_batch_size"`

	// MaxInputChars truncates longer texts before sending.
	MaxInputChars int `toml:"max_input_chars"`

	// CacheMaxEntries bounds the in-process embedding cache.
	CacheMaxEntries int `toml:"cache_max_entries"`
}

// Load reads and validates a TOML configuration file.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg := Default()
	if err := toml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns a Config with the defaults applied before the file is read.
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{Level: "info"},
		Insert: InsertConfig{
			BatchSize:        64,
			RetryMax:         3,
			RetryBackoffMs:   500,
			MaxParallelFiles: 2,
			Qdrant: QdrantConfig{
				Distance:   "Cosine",
				VectorSize: 768,
			},
			Quickwit: QuickwitConfig{
				CommitMode:           CommitModeForce,
				CommitTimeoutSeconds: 30,
			},
			Embeddings: EmbeddingsConfig{
				Provider:              "ollama",
				RequestTimeoutSeconds: 60,
				GlobalMaxConcurrency:  4,
				RequestBatchSize:      16,
				MaxInputChars:         8000,
				CacheMaxEntries:       10000,
			},
		},
	}
}

// Normalize resolves legacy knobs into their canonical form.
func (c *Config) Normalize() {
	e := &c.Insert.Embeddings
	// max_concurrency predates the global cap; honor it when the global
	// knob is absent so old config files keep working.
	if e.GlobalMaxConcurrency == 0 && e.MaxConcurrency > 0 {
		e.GlobalMaxConcurrency = e.MaxConcurrency
	}
}

// Validate checks that the configuration is complete. A failure here is a
// configuration error and aborts the run before any writes.
func (c *Config) Validate() error {
	c.Normalize()

	var errs []error
	if c.Paths.ChunkRoot == "" {
		errs = append(errs, errors.New("paths.chunk_root is required"))
	}
	if c.Insert.BatchSize <= 0 {
		errs = append(errs, errors.New("insert.batch_size must be greater than 0"))
	}
	if c.Insert.RetryMax <= 0 {
		errs = append(errs, errors.New("insert.retry_max must be greater than 0"))
	}
	if c.Insert.RetryBackoffMs <= 0 {
		errs = append(errs, errors.New("insert.retry_backoff_ms must be greater than 0"))
	}
	if c.Insert.MaxParallelFiles <= 0 {
		errs = append(errs, errors.New("insert.max_parallel_files must be greater than 0"))
	}

	if c.Insert.Qdrant.URL == "" {
		errs = append(errs, errors.New("insert.qdrant.url is required"))
	}
	if c.Insert.Qdrant.Collection == "" {
		errs = append(errs, errors.New("insert.qdrant.collection is required"))
	}
	if c.Insert.Qdrant.VectorSize <= 0 {
		errs = append(errs, errors.New("insert.qdrant.vector_size must be greater than 0"))
	}

	if c.Insert.Quickwit.URL == "" {
		errs = append(errs, errors.New("insert.quickwit.url is required"))
	}
	if c.Insert.Quickwit.IndexID == "" {
		errs = append(errs, errors.New("insert.quickwit.index_id is required"))
	}
	switch c.Insert.Quickwit.CommitMode {
	case CommitModeForce, CommitModeDeferred:
	default:
		errs = append(errs, fmt.Errorf("insert.quickwit.commit_mode must be %q or %q", CommitModeForce, CommitModeDeferred))
	}

	e := c.Insert.Embeddings
	if e.BaseURL == "" {
		errs = append(errs, errors.New("insert.embeddings.base_url is required"))
	}
	if e.Model == "" {
		errs = append(errs, errors.New("insert.embeddings.model is required"))
	}
	if e.RequestTimeoutSeconds <= 0 {
		errs = append(errs, errors.New("insert.embeddings.request_timeout_seconds must be greater than 0"))
	}
	if e.GlobalMaxConcurrency <= 0 {
		errs = append(errs, errors.New("insert.embeddings.global_max_concurrency must be greater than 0"))
	}
	if e.RequestBatchSize <= 0 {
		errs = append(errs, errors.New("insert.embeddings.request_batch_size must be greater than 0"))
	}
	if e.CacheMaxEntries <= 0 {
		errs = append(errs, errors.New("insert.embeddings.cache_max_entries must be greater than 0"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}

// RequestTimeout returns the embedding request timeout as a duration.
func (e EmbeddingsConfig) RequestTimeout() time.Duration {
	return time.Duration(e.RequestTimeoutSeconds) * time.Second
}

// RetryBackoff returns the base backoff delay as a duration.
func (i InsertConfig) RetryBackoff() time.Duration {
	return time.Duration(i.RetryBackoffMs) * time.Millisecond
}
