package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
[logging]
level = "debug"

[paths]
chunk_root = "/data/chunked"
state_dir = "/data/state"

[insert]
batch_size = 32
retry_max = 5
retry_backoff_ms = 250
max_parallel_files = 3

[insert.qdrant]
url = "http://localhost:6333"
collection = "books"
distance = "Cosine"
vector_size = 768
create_collection = true
api_key = "secret"
payload_fields = ["title", "authors"]

[insert.quickwit]
url = "http://localhost:7280"
index_id = "books"
commit_mode = "force"
commit_timeout_seconds = 60

[insert.embeddings]
provider = "ollama"
base_url = "http://localhost:11434"
model = "nomic-embed-text"
request_timeout_seconds = 90
global_max_concurrency = 8
request_batch_size = 16
max_input_chars = 6000
cache_max_entries = 5000
`

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "/data/chunked", cfg.Paths.ChunkRoot)
	assert.Equal(t, 32, cfg.Insert.BatchSize)
	assert.Equal(t, 5, cfg.Insert.RetryMax)
	assert.Equal(t, 250*time.Millisecond, cfg.Insert.RetryBackoff())
	assert.Equal(t, "books", cfg.Insert.Qdrant.Collection)
	assert.True(t, cfg.Insert.Qdrant.CreateCollection)
	assert.Equal(t, []string{"title", "authors"}, cfg.Insert.Qdrant.PayloadFields)
	assert.Equal(t, CommitModeForce, cfg.Insert.Quickwit.CommitMode)
	assert.Equal(t, 90*time.Second, cfg.Insert.Embeddings.RequestTimeout())
	assert.Equal(t, 8, cfg.Insert.Embeddings.GlobalMaxConcurrency)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.Error(t, err)
}

func TestLoad_Malformed(t *testing.T) {
	_, err := Load(writeConfig(t, "[insert\nbatch_size = oops"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config")
}

func TestValidate_RequiredFields(t *testing.T) {
	testCases := []struct {
		name    string
		mutate  func(*Config)
		wantMsg string
	}{
		{"missing chunk root", func(c *Config) { c.Paths.ChunkRoot = "" }, "chunk_root"},
		{"zero batch size", func(c *Config) { c.Insert.BatchSize = 0 }, "batch_size"},
		{"zero retry max", func(c *Config) { c.Insert.RetryMax = 0 }, "retry_max"},
		{"missing qdrant url", func(c *Config) { c.Insert.Qdrant.URL = "" }, "qdrant.url"},
		{"missing collection", func(c *Config) { c.Insert.Qdrant.Collection = "" }, "collection"},
		{"zero vector size", func(c *Config) { c.Insert.Qdrant.VectorSize = 0 }, "vector_size"},
		{"missing quickwit url", func(c *Config) { c.Insert.Quickwit.URL = "" }, "quickwit.url"},
		{"missing index id", func(c *Config) { c.Insert.Quickwit.IndexID = "" }, "index_id"},
		{"bad commit mode", func(c *Config) { c.Insert.Quickwit.CommitMode = "eventually" }, "commit_mode"},
		{"missing base url", func(c *Config) { c.Insert.Embeddings.BaseURL = "" }, "base_url"},
		{"missing model", func(c *Config) { c.Insert.Embeddings.Model = "" }, "model"},
		{"zero cache entries", func(c *Config) { c.Insert.Embeddings.CacheMaxEntries = 0 }, "cache_max_entries"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg, err := Load(writeConfig(t, sampleConfig))
			require.NoError(t, err)

			tc.mutate(cfg)
			err = cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantMsg)
		})
	}
}

func TestNormalize_LegacyMaxConcurrency(t *testing.T) {
	t.Run("fallback when global unset", func(t *testing.T) {
		cfg := Default()
		cfg.Insert.Embeddings.GlobalMaxConcurrency = 0
		cfg.Insert.Embeddings.MaxConcurrency = 6
		cfg.Normalize()
		assert.Equal(t, 6, cfg.Insert.Embeddings.GlobalMaxConcurrency)
	})

	t.Run("global wins when both set", func(t *testing.T) {
		cfg := Default()
		cfg.Insert.Embeddings.GlobalMaxConcurrency = 4
		cfg.Insert.Embeddings.MaxConcurrency = 12
		cfg.Normalize()
		assert.Equal(t, 4, cfg.Insert.Embeddings.GlobalMaxConcurrency)
	})
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, CommitModeForce, cfg.Insert.Quickwit.CommitMode)
	assert.Greater(t, cfg.Insert.Embeddings.CacheMaxEntries, 0)

	// Defaults alone are not a runnable config: endpoints are required.
	require.Error(t, cfg.Validate())
}
