package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/papyrus-search/papyrus/retry"
	"github.com/papyrus-search/papyrus/sink"
)

// Config describes the target Qdrant instance and collection.
type Config struct {
	URL        string
	Collection string
	Distance   string // "Cosine", "Dot", "Euclid"
	VectorSize int
	APIKey     string
	Timeout    time.Duration
}

// Client talks to Qdrant's HTTP API. Upserts are idempotent: Qdrant replaces
// points that share an ID, so replaying a batch never duplicates data.
type Client struct {
	cfg    Config
	http   *http.Client
	logger *slog.Logger
}

var _ sink.VectorSink = (*Client)(nil)

// NewClient creates a Qdrant client.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: timeout},
		logger: slog.Default().With("component", "qdrant"),
	}
}

// EnsureCollection creates the collection with the configured size and
// distance metric. A collection that already exists is left untouched.
func (c *Client) EnsureCollection(ctx context.Context) error {
	body := map[string]any{
		"vectors": map[string]any{
			"size":     c.cfg.VectorSize,
			"distance": c.cfg.Distance,
		},
	}

	status, respBody, err := c.do(ctx, http.MethodPut, c.collectionURL(), body)
	if err != nil {
		return err
	}
	if status >= 200 && status < 300 {
		c.logger.Info("collection ready", "collection", c.cfg.Collection, "size", c.cfg.VectorSize)
		return nil
	}
	// Qdrant answers 409 (or a "already exists" 400) for an existing
	// collection; both mean the ensure step is done.
	if status == http.StatusConflict || strings.Contains(respBody, "already exists") {
		c.logger.Debug("collection already exists", "collection", c.cfg.Collection)
		return nil
	}
	return c.statusError("create collection", status, respBody)
}

// Upsert writes all points in one call, waiting for the write to be applied.
func (c *Client) Upsert(ctx context.Context, points []sink.Point) error {
	if len(points) == 0 {
		return nil
	}

	payload := make([]map[string]any, len(points))
	for i, p := range points {
		payload[i] = map[string]any{
			"id":      string(p.ID),
			"vector":  p.Vector,
			"payload": p.Payload,
		}
	}

	url := c.collectionURL() + "/points?wait=true"
	status, respBody, err := c.do(ctx, http.MethodPut, url, map[string]any{"points": payload})
	if err != nil {
		return fmt.Errorf("qdrant upsert: %w", err)
	}
	if status >= 200 && status < 300 {
		return nil
	}
	return c.statusError("upsert", status, respBody)
}

func (c *Client) collectionURL() string {
	return fmt.Sprintf("%s/collections/%s", strings.TrimSuffix(c.cfg.URL, "/"), c.cfg.Collection)
}

func (c *Client) do(ctx context.Context, method, url string, body any) (int, string, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return 0, "", retry.Fatal(fmt.Errorf("encode request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(raw))
	if err != nil {
		return 0, "", retry.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("api-key", c.cfg.APIKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		// Network failures and timeouts are transient.
		return 0, "", err
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return resp.StatusCode, string(respBody), nil
}

// statusError classifies an HTTP failure: server-side errors are retried,
// client-side errors are not.
func (c *Client) statusError(op string, status int, body string) error {
	err := fmt.Errorf("qdrant %s failed: status %d: %s", op, status, strings.TrimSpace(body))
	if status >= 400 && status < 500 && status != http.StatusTooManyRequests {
		return retry.Fatal(err)
	}
	return err
}
