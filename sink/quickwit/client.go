package quickwit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/papyrus-search/papyrus/retry"
	"github.com/papyrus-search/papyrus/sink"
)

// CommitMode controls when ingested documents become searchable.
type CommitMode int

const (
	// CommitForce commits every batch as it is ingested.
	CommitForce CommitMode = iota

	// CommitDeferred buffers documents in the client and sends them in one
	// ingest call when Commit is invoked at end of run.
	CommitDeferred
)

// Config describes the target Quickwit index.
type Config struct {
	URL                  string
	IndexID              string
	Mode                 CommitMode
	CommitTimeoutSeconds int
	Timeout              time.Duration
}

// Client talks to Quickwit's ingest API. Documents carry the chunk's
// deterministic identifier so a replayed batch maps onto the same keys.
type Client struct {
	cfg    Config
	http   *http.Client
	logger *slog.Logger

	mu      sync.Mutex
	pending []sink.Document // only used in deferred mode
}

var _ sink.DocumentSink = (*Client)(nil)

// NewClient creates a Quickwit client.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	if cfg.CommitTimeoutSeconds <= 0 {
		cfg.CommitTimeoutSeconds = 30
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: timeout},
		logger: slog.Default().With("component", "quickwit"),
	}
}

// Ingest appends documents to the index. In forced mode the batch is sent and
// committed immediately; in deferred mode it is buffered until Commit.
func (c *Client) Ingest(ctx context.Context, docs []sink.Document) error {
	if len(docs) == 0 {
		return nil
	}

	if c.cfg.Mode == CommitDeferred {
		c.mu.Lock()
		c.pending = append(c.pending, docs...)
		buffered := len(c.pending)
		c.mu.Unlock()
		c.logger.Debug("buffered documents for deferred commit", "added", len(docs), "buffered", buffered)
		return nil
	}

	return c.send(ctx, docs, true)
}

// Commit flushes the deferred buffer in a single forced-commit ingest call.
// The buffer is swapped out before sending; on failure the sent documents are
// put back ahead of anything ingested meanwhile, so a retried Commit sends
// them all and nothing is dropped.
func (c *Client) Commit(ctx context.Context) error {
	if c.cfg.Mode != CommitDeferred {
		return nil
	}

	c.mu.Lock()
	docs := c.pending
	c.pending = nil
	c.mu.Unlock()

	if len(docs) == 0 {
		return nil
	}

	c.logger.Info("committing deferred documents", "count", len(docs))
	if err := c.send(ctx, docs, true); err != nil {
		c.mu.Lock()
		c.pending = append(docs, c.pending...)
		c.mu.Unlock()
		return err
	}
	return nil
}

func (c *Client) send(ctx context.Context, docs []sink.Document, commit bool) error {
	var body bytes.Buffer
	enc := json.NewEncoder(&body)
	for _, doc := range docs {
		record := map[string]any{
			"id":       string(doc.ID),
			"text":     doc.Text,
			"metadata": doc.Metadata,
		}
		if err := enc.Encode(record); err != nil {
			return retry.Fatal(fmt.Errorf("encode document %s: %w", doc.ID, err))
		}
	}

	url := fmt.Sprintf("%s/api/v1/%s/ingest", strings.TrimSuffix(c.cfg.URL, "/"), c.cfg.IndexID)
	if commit {
		url = fmt.Sprintf("%s?commit=force&commit_timeout_seconds=%d", url, c.cfg.CommitTimeoutSeconds)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		return retry.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("quickwit ingest: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	ingestErr := fmt.Errorf("quickwit ingest failed: status %d: %s",
		resp.StatusCode, strings.TrimSpace(string(respBody)))
	if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
		return retry.Fatal(ingestErr)
	}
	return ingestErr
}
