package ai

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfig_Defaults(t *testing.T) {
	cfg := NewConfig()
	assert.Equal(t, "http://localhost:11434/v1", cfg.BaseURL)
	assert.NotEmpty(t, cfg.Model)
	assert.Greater(t, cfg.RequestTimeout, time.Duration(0))
}

func TestNewConfig_Options(t *testing.T) {
	cfg := NewConfig(
		WithBaseURL("http://embed.local:8080"),
		WithModel("text-embedding-3-small"),
		WithRequestTimeout(30*time.Second),
		WithMaxInputChars(4000),
	)

	assert.Equal(t, "http://embed.local:8080", cfg.BaseURL)
	assert.Equal(t, "text-embedding-3-small", cfg.Model)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 4000, cfg.MaxInputChars)
}

func TestConfig_Normalize(t *testing.T) {
	testCases := []struct {
		name string
		in   string
		want string
	}{
		{"adds v1 suffix", "http://localhost:11434", "http://localhost:11434/v1"},
		{"strips trailing slash", "http://localhost:11434/", "http://localhost:11434/v1"},
		{"already normalized", "http://localhost:11434/v1", "http://localhost:11434/v1"},
		{"empty untouched", "", ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := &Config{BaseURL: tc.in}
			cfg.Normalize()
			assert.Equal(t, tc.want, cfg.BaseURL)
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		require.NoError(t, NewConfig().Validate())
	})

	t.Run("missing base url", func(t *testing.T) {
		cfg := NewConfig(WithBaseURL(""))
		require.Error(t, cfg.Validate())
	})

	t.Run("missing model", func(t *testing.T) {
		cfg := NewConfig(WithModel(""))
		require.Error(t, cfg.Validate())
	})

	t.Run("zero timeout", func(t *testing.T) {
		cfg := NewConfig(WithRequestTimeout(0))
		require.Error(t, cfg.Validate())
	})

	t.Run("negative truncation", func(t *testing.T) {
		cfg := NewConfig(WithMaxInputChars(-1))
		require.Error(t, cfg.Validate())
	})

	t.Run("validate normalizes", func(t *testing.T) {
		cfg := NewConfig(WithBaseURL("http://localhost:9100"))
		require.NoError(t, cfg.Validate())
		assert.Equal(t, "http://localhost:9100/v1", cfg.BaseURL)
	})
}
