package ingestion

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/papyrus-search/papyrus/core"
)

// chunkLine is the wire form of one chunk record in a JSONL source file.
type chunkLine struct {
	Text       string         `json:"text"`
	SourcePath string         `json:"source_path"`
	DocumentID string         `json:"document_id"`
	Index      int            `json:"index"`
	Metadata   map[string]any `json:"metadata"`
}

// ChunkReader streams chunk records out of JSONL files and groups them into
// batches. Malformed lines are skipped with a warning rather than failing the
// file; a chunker bug on one line should not abandon thousands of neighbors.
type ChunkReader struct {
	batchSize int
	logger    *slog.Logger
}

// NewChunkReader creates a reader producing batches of at most batchSize
// records.
func NewChunkReader(batchSize int, logger *slog.Logger) *ChunkReader {
	if logger == nil {
		logger = slog.Default()
	}
	return &ChunkReader{
		batchSize: batchSize,
		logger:    logger.With("component", "chunk-reader"),
	}
}

// ForEachBatch reads the file at path and invokes fn for each batch in file
// order. It returns the number of lines skipped as malformed, or an error if
// the file itself cannot be read or fn fails.
func (r *ChunkReader) ForEachBatch(path string, fn func(*core.Batch) error) (skipped int, err error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open chunk file: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)

	var (
		records []*core.ChunkRecord
		ordinal int
		lineNo  int
	)

	flush := func() error {
		if len(records) == 0 {
			return nil
		}
		batch := &core.Batch{
			SourcePath: path,
			Ordinal:    ordinal,
			Records:    records,
		}
		ordinal++
		records = nil
		return fn(batch)
	}

	for scanner.Scan() {
		lineNo++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		record, err := r.parseLine(line, path)
		if err != nil {
			skipped++
			r.logger.Warn("skipping malformed chunk line",
				"file", path, "line", lineNo, "err", err)
			continue
		}

		records = append(records, record)
		if len(records) >= r.batchSize {
			if err := flush(); err != nil {
				return skipped, err
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return skipped, fmt.Errorf("read chunk file %s: %w", path, err)
	}

	return skipped, flush()
}

func (r *ChunkReader) parseLine(line []byte, path string) (*core.ChunkRecord, error) {
	var cl chunkLine
	if err := json.Unmarshal(line, &cl); err != nil {
		return nil, err
	}

	record := &core.ChunkRecord{
		Text:       cl.Text,
		SourcePath: cl.SourcePath,
		DocumentID: cl.DocumentID,
		Index:      cl.Index,
		Metadata:   cl.Metadata,
	}
	if record.SourcePath == "" {
		record.SourcePath = path
	}
	if err := record.Validate(); err != nil {
		return nil, err
	}
	return record, nil
}
