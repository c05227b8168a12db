package main

import (
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

func cliContext(t *testing.T, args map[string]string) *cli.Context {
	t.Helper()
	set := flag.NewFlagSet("test", flag.ContinueOnError)
	for name, value := range args {
		set.String(name, value, "")
	}
	return cli.NewContext(cli.NewApp(), set, nil)
}

func TestSetupLogger(t *testing.T) {
	t.Run("accepts known levels", func(t *testing.T) {
		for _, level := range []string{"debug", "info", "warn", "error", "WARN"} {
			err := setupLogger(cliContext(t, map[string]string{"log-level": level}))
			assert.NoError(t, err, level)
		}
	})

	t.Run("rejects unknown level", func(t *testing.T) {
		err := setupLogger(cliContext(t, map[string]string{"log-level": "verbose"}))
		assert.Error(t, err)
	})
}

func TestDiscoverChunkFiles(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "books", "fiction"), 0755))

	write := func(rel string) string {
		path := filepath.Join(root, rel)
		require.NoError(t, os.WriteFile(path, []byte("{}\n"), 0644))
		return path
	}
	top := write("top.jsonl")
	nested := write(filepath.Join("books", "fiction", "novel.jsonl"))
	write(filepath.Join("books", "notes.txt")) // not a chunk file

	files, err := discoverChunkFiles(root)
	require.NoError(t, err)
	assert.Equal(t, []string{nested, top}, files)
}

func TestDiscoverChunkFiles_EmptyRoot(t *testing.T) {
	files, err := discoverChunkFiles(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, files)
}
