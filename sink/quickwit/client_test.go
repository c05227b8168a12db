package quickwit

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/papyrus-search/papyrus/core"
	"github.com/papyrus-search/papyrus/retry"
	"github.com/papyrus-search/papyrus/sink"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturedRequest struct {
	query string
	docs  []map[string]any
}

// captureServer records every ingest request as parsed NDJSON.
func captureServer(t *testing.T, status int) (*httptest.Server, *[]capturedRequest) {
	t.Helper()
	var mu sync.Mutex
	var reqs []capturedRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		var docs []map[string]any
		scanner := bufio.NewScanner(bytes.NewReader(raw))
		for scanner.Scan() {
			if len(bytes.TrimSpace(scanner.Bytes())) == 0 {
				continue
			}
			var doc map[string]any
			require.NoError(t, json.Unmarshal(scanner.Bytes(), &doc))
			docs = append(docs, doc)
		}
		mu.Lock()
		reqs = append(reqs, capturedRequest{query: r.URL.RawQuery, docs: docs})
		mu.Unlock()
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)
	return srv, &reqs
}

func testDocs(n int) []sink.Document {
	docs := make([]sink.Document, n)
	for i := range docs {
		docs[i] = sink.Document{
			ID:       core.ChunkIDFor("doc", i),
			Text:     "chunk text",
			Metadata: map[string]any{"title": "A Book"},
		}
	}
	return docs
}

func TestIngest_ForcedCommit(t *testing.T) {
	srv, reqs := captureServer(t, http.StatusOK)
	c := NewClient(Config{URL: srv.URL, IndexID: "books", Mode: CommitForce, CommitTimeoutSeconds: 45})

	require.NoError(t, c.Ingest(context.Background(), testDocs(3)))

	require.Len(t, *reqs, 1)
	got := (*reqs)[0]
	assert.Contains(t, got.query, "commit=force")
	assert.Contains(t, got.query, "commit_timeout_seconds=45")
	require.Len(t, got.docs, 3)
	assert.Equal(t, string(core.ChunkIDFor("doc", 0)), got.docs[0]["id"])
	assert.Equal(t, "chunk text", got.docs[0]["text"])
}

func TestIngest_EmptyIsNoop(t *testing.T) {
	srv, reqs := captureServer(t, http.StatusOK)
	c := NewClient(Config{URL: srv.URL, IndexID: "books"})

	require.NoError(t, c.Ingest(context.Background(), nil))
	assert.Empty(t, *reqs)
}

func TestIngest_DeferredBuffersUntilCommit(t *testing.T) {
	srv, reqs := captureServer(t, http.StatusOK)
	c := NewClient(Config{URL: srv.URL, IndexID: "books", Mode: CommitDeferred})
	ctx := context.Background()

	require.NoError(t, c.Ingest(ctx, testDocs(2)))
	require.NoError(t, c.Ingest(ctx, testDocs(3)))
	assert.Empty(t, *reqs, "deferred mode must not send before Commit")

	require.NoError(t, c.Commit(ctx))
	require.Len(t, *reqs, 1)
	assert.Len(t, (*reqs)[0].docs, 5)
	assert.Contains(t, (*reqs)[0].query, "commit=force")

	// A second commit has nothing left to send.
	require.NoError(t, c.Commit(ctx))
	assert.Len(t, *reqs, 1)
}

func TestCommit_KeepsBufferOnFailure(t *testing.T) {
	var status = http.StatusServiceUnavailable
	var mu sync.Mutex
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls++
		s := status
		mu.Unlock()
		w.WriteHeader(s)
	}))
	defer srv.Close()

	c := NewClient(Config{URL: srv.URL, IndexID: "books", Mode: CommitDeferred})
	ctx := context.Background()
	require.NoError(t, c.Ingest(ctx, testDocs(2)))

	require.Error(t, c.Commit(ctx))

	mu.Lock()
	status = http.StatusOK
	mu.Unlock()

	require.NoError(t, c.Commit(ctx))
	assert.Equal(t, 2, calls, "retried commit must resend the buffered documents")
}

func TestCommit_FailureKeepsLaterIngests(t *testing.T) {
	var mu sync.Mutex
	fail := true
	var docCounts []int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		mu.Lock()
		failNow := fail
		if !failNow {
			docCounts = append(docCounts, bytes.Count(raw, []byte("\n")))
		}
		mu.Unlock()
		if failNow {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(Config{URL: srv.URL, IndexID: "books", Mode: CommitDeferred})
	ctx := context.Background()

	require.NoError(t, c.Ingest(ctx, testDocs(2)))
	require.Error(t, c.Commit(ctx))

	// A document ingested after the failed flush must survive alongside the
	// re-buffered ones.
	require.NoError(t, c.Ingest(ctx, testDocs(1)))

	mu.Lock()
	fail = false
	mu.Unlock()

	require.NoError(t, c.Commit(ctx))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{3}, docCounts, "retried commit sends failed and later documents together")
}

func TestCommit_ForcedModeIsNoop(t *testing.T) {
	srv, reqs := captureServer(t, http.StatusOK)
	c := NewClient(Config{URL: srv.URL, IndexID: "books", Mode: CommitForce})

	require.NoError(t, c.Commit(context.Background()))
	assert.Empty(t, *reqs)
}

func TestIngest_ErrorClassification(t *testing.T) {
	t.Run("5xx retryable", func(t *testing.T) {
		srv, _ := captureServer(t, http.StatusServiceUnavailable)
		c := NewClient(Config{URL: srv.URL, IndexID: "books"})
		err := c.Ingest(context.Background(), testDocs(1))
		require.Error(t, err)
		assert.False(t, retry.IsFatal(err))
	})

	t.Run("4xx fatal", func(t *testing.T) {
		srv, _ := captureServer(t, http.StatusBadRequest)
		c := NewClient(Config{URL: srv.URL, IndexID: "books"})
		err := c.Ingest(context.Background(), testDocs(1))
		require.Error(t, err)
		assert.True(t, retry.IsFatal(err))
	})
}
