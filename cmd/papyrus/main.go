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


package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/papyrus-search/papyrus/ai"
	"github.com/papyrus-search/papyrus/ai/openai"
	"github.com/papyrus-search/papyrus/config"
	"github.com/papyrus-search/papyrus/ingestion"
	"github.com/papyrus-search/papyrus/journal"
	"github.com/papyrus-search/papyrus/retry"
	"github.com/papyrus-search/papyrus/sink"
	"github.com/papyrus-search/papyrus/sink/qdrant"
	"github.com/papyrus-search/papyrus/sink/quickwit"
	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "papyrus",
		Usage: "Insert pre-chunked text into a vector store and a search index",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to TOML configuration file",
				Value:   "papyrus.toml",
			},
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "insert",
				Usage:  "Embed chunk files and write them to both sinks",
				Action: insertCommand,
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "no-progress",
						Usage: "Disable the progress bar",
					},
				},
			},
			{
				Name:   "abandoned",
				Usage:  "List batches abandoned by previous runs",
				Action: abandonedCommand,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func insertCommand(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}
	applyConfigLogLevel(c, cfg)

	files, err := discoverChunkFiles(cfg.Paths.ChunkRoot)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no *.jsonl chunk files under %s", cfg.Paths.ChunkRoot)
	}

	policy := retry.Policy{
		MaxAttempts: cfg.Insert.RetryMax,
		BaseDelay:   cfg.Insert.RetryBackoff(),
	}

	vectors := qdrant.NewClient(qdrant.Config{
		URL:        cfg.Insert.Qdrant.URL,
		Collection: cfg.Insert.Qdrant.Collection,
		Distance:   cfg.Insert.Qdrant.Distance,
		VectorSize: cfg.Insert.Qdrant.VectorSize,
		APIKey:     cfg.Insert.Qdrant.APIKey,
	})

	if cfg.Insert.Qdrant.CreateCollection {
		if _, err := policy.Do(ctx, func() error {
			return vectors.EnsureCollection(ctx)
		}); err != nil {
			return fmt.Errorf("ensure collection: %w", err)
		}
	}

	commitMode := quickwit.CommitForce
	if cfg.Insert.Quickwit.CommitMode == config.CommitModeDeferred {
		commitMode = quickwit.CommitDeferred
	}
	documents := quickwit.NewClient(quickwit.Config{
		URL:                  cfg.Insert.Quickwit.URL,
		IndexID:              cfg.Insert.Quickwit.IndexID,
		Mode:                 commitMode,
		CommitTimeoutSeconds: cfg.Insert.Quickwit.CommitTimeoutSeconds,
	})

	var writerOpts []sink.WriterOption
	if len(cfg.Insert.Qdrant.PayloadFields) > 0 {
		writerOpts = append(writerOpts, sink.WithPayloadKeys(cfg.Insert.Qdrant.PayloadFields))
	}
	writer, err := sink.NewDualWriter(vectors, documents, cfg.Insert.Qdrant.VectorSize, policy, writerOpts...)
	if err != nil {
		return err
	}

	aiConfig := ai.NewConfig(
		ai.WithBaseURL(cfg.Insert.Embeddings.BaseURL),
		ai.WithModel(cfg.Insert.Embeddings.Model),
		ai.WithRequestTimeout(cfg.Insert.Embeddings.RequestTimeout()),
		ai.WithMaxInputChars(cfg.Insert.Embeddings.MaxInputChars),
	)
	embedder, err := openai.NewEmbedder(aiConfig)
	if err != nil {
		return fmt.Errorf("create embedder: %w", err)
	}

	opts := []ingestion.PipelineOption{}

	var jnl *journal.Journal
	if cfg.Paths.StateDir != "" {
		jnl, err = journal.Open(cfg.Paths.StateDir, false)
		if err != nil {
			return fmt.Errorf("open journal: %w", err)
		}
		defer jnl.Close()
		opts = append(opts, ingestion.WithJournal(jnl))
	}

	if !c.Bool("no-progress") {
		bar := progressbar.NewOptions(len(files),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionSetWidth(40),
			progressbar.OptionShowCount(),
			progressbar.OptionSetDescription("Inserting"),
			progressbar.OptionOnCompletion(func() {
				fmt.Fprintln(os.Stderr)
			}),
		)
		opts = append(opts, ingestion.WithFileObserver(func(string, error) {
			bar.Add(1)
		}))
	}

	pipeline, err := ingestion.NewPipeline(embedder, writer, ingestion.PipelineConfig{
		BatchSize:            cfg.Insert.BatchSize,
		MaxParallelFiles:     cfg.Insert.MaxParallelFiles,
		GlobalMaxConcurrency: cfg.Insert.Embeddings.GlobalMaxConcurrency,
		RequestBatchSize:     cfg.Insert.Embeddings.RequestBatchSize,
		CacheMaxEntries:      cfg.Insert.Embeddings.CacheMaxEntries,
		Retry:                policy,
	}, opts...)
	if err != nil {
		return err
	}
	defer pipeline.Close()

	fmt.Fprintf(os.Stderr, "Chunk root: %s (%d files)\n", cfg.Paths.ChunkRoot, len(files))
	fmt.Fprintf(os.Stderr, "Qdrant: %s collection %s\n", cfg.Insert.Qdrant.URL, cfg.Insert.Qdrant.Collection)
	fmt.Fprintf(os.Stderr, "Quickwit: %s index %s\n", cfg.Insert.Quickwit.URL, cfg.Insert.Quickwit.IndexID)

	report, err := pipeline.Run(ctx, files)
	if report != nil {
		report.WriteSummary(os.Stderr)
	}
	if err != nil {
		return fmt.Errorf("insertion failed: %w", err)
	}
	if report.AbandonedCount() > 0 {
		return fmt.Errorf("%d batches abandoned; re-run to retry them", report.AbandonedCount())
	}
	return nil
}

func abandonedCommand(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}
	if cfg.Paths.StateDir == "" {
		return fmt.Errorf("paths.state_dir is not configured")
	}

	jnl, err := journal.Open(cfg.Paths.StateDir, false)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer jnl.Close()

	entries, err := jnl.Abandoned()
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Println("No abandoned batches.")
		return nil
	}

	for _, e := range entries {
		fmt.Printf("%s batch %d: %s (%s, %d attempts, %d chunks, recorded %s)\n",
			e.SourcePath, e.Batch, e.Cause, e.Sink, e.Attempts, len(e.ChunkIDs),
			e.RecordedAt.Format("2006-01-02 15:04:05"))
	}
	return nil
}

// discoverChunkFiles walks root recursively for *.jsonl files, in sorted
// order so runs are deterministic.
func discoverChunkFiles(root string) ([]string, error) {
	pattern := filepath.Join(root, "**", "*.jsonl")
	files, err := doublestar.FilepathGlob(pattern)
	if err != nil {
		return nil, fmt.Errorf("scan chunk root: %w", err)
	}
	sort.Strings(files)
	return files, nil
}

// applyConfigLogLevel lets the config file set the log level when the flag
// was not passed explicitly.
func applyConfigLogLevel(c *cli.Context, cfg *config.Config) {
	if c.IsSet("log-level") || cfg.Logging.Level == "" {
		return
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Logging.Level)); err != nil {
		slog.Warn("ignoring invalid logging.level in config", "level", cfg.Logging.Level)
		return
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})))
}

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
