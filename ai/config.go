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


package ai

import (
	"errors"
	"strings"
	"time"
)

// Config holds configuration for the embedding provider.
type Config struct {
	// BaseURL is the base URL for the embedding service API.
	// Example: "http://localhost:11434/v1" for a local OpenAI-compatible server
	BaseURL string

	// Model is the model identifier to use for text embeddings.
	// Example: "nomic-embed-text", "text-embedding-3-small"
	Model string

	// RequestTimeout bounds each embedding HTTP request.
	RequestTimeout time.Duration

	// MaxInputChars truncates longer texts before they are sent.
	// Zero disables truncation.
	MaxInputChars int
}

// ConfigOption is a functional option for configuring a Config.
type ConfigOption func(*Config)

// WithBaseURL sets the embedding service base URL.
func WithBaseURL(url string) ConfigOption {
	return func(c *Config) {
		c.BaseURL = url
	}
}

// WithModel sets the embedding model identifier.
func WithModel(model string) ConfigOption {
	return func(c *Config) {
		c.Model = model
	}
}

// WithRequestTimeout sets the per-request timeout.
func WithRequestTimeout(d time.Duration) ConfigOption {
	return func(c *Config) {
		c.RequestTimeout = d
	}
}

// WithMaxInputChars sets the truncation limit for input texts.
func WithMaxInputChars(n int) ConfigOption {
	return func(c *Config) {
		c.MaxInputChars = n
	}
}

// DefaultConfig returns a Config with sensible defaults for local
// OpenAI-compatible services.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:        "http://localhost:11434/v1",
		Model:          "nomic-embed-text",
		RequestTimeout: 60 * time.Second,
		MaxInputChars:  8000,
	}
}

// NewConfig creates a Config with the default values and applies the provided
// options.
func NewConfig(opts ...ConfigOption) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Normalize ensures the configuration is in a canonical form. It adds the /v1
// suffix to the base URL if missing, which is required by most
// OpenAI-compatible APIs (Ollama, LocalAI, vLLM, etc).
func (c *Config) Normalize() {
	if c.BaseURL != "" && !strings.HasSuffix(c.BaseURL, "/v1") {
		c.BaseURL = strings.TrimSuffix(c.BaseURL, "/")
		c.BaseURL = c.BaseURL + "/v1"
	}
}

// Validate checks that the configuration is valid and complete.
// It automatically normalizes the configuration before validation.
func (c *Config) Validate() error {
	c.Normalize()

	if c.BaseURL == "" {
		return errors.New("ai config: BaseURL is required")
	}
	if c.Model == "" {
		return errors.New("ai config: Model is required")
	}
	if c.RequestTimeout <= 0 {
		return errors.New("ai config: RequestTimeout must be positive")
	}
	if c.MaxInputChars < 0 {
		return errors.New("ai config: MaxInputChars cannot be negative")
	}
	return nil
}
