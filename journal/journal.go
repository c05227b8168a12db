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


package journal

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/papyrus-search/papyrus/core"
)

const abandonedPrefix = "abandoned/"

// Entry records one abandoned batch so a later run can find and re-attempt
// it. Re-submission is always safe: storage keys are deterministic and both
// sinks upsert.
type Entry struct {
	SourcePath string         `json:"source_path"`
	Batch      int            `json:"batch"`
	ChunkIDs   []core.ChunkID `json:"chunk_ids"`
	Sink       string         `json:"sink"` // "vector", "document", or "embedding"
	Cause      string         `json:"cause"`
	Attempts   int            `json:"attempts"`
	RecordedAt time.Time      `json:"recorded_at"`
}

// Journal is a persistent record of abandoned batches, kept in the state
// directory across runs. Values are JSON so an operator can inspect them with
// badger's tooling.
type Journal struct {
	db     *badger.DB
	logger *slog.Logger
}

// badgerLoggerAdapter adapts slog.Logger to badger.Logger interface.
type badgerLoggerAdapter struct {
	logger *slog.Logger
}

var _ badger.Logger = (*badgerLoggerAdapter)(nil)

func (bl *badgerLoggerAdapter) Errorf(msg string, items ...any) {
	bl.logger.Error(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Warningf(msg string, items ...any) {
	bl.logger.Warn(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Infof(msg string, items ...any) {
	bl.logger.Info(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Debugf(msg string, items ...any) {
	bl.logger.Debug(fmt.Sprintf(msg, items...))
}

// Open opens the journal at the given directory, creating it if needed.
// inMemory is for tests.
func Open(dir string, inMemory bool) (*Journal, error) {
	var opts badger.Options

	if inMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		info, err := os.Stat(dir)
		if err != nil {
			if os.IsNotExist(err) {
				if err := os.MkdirAll(dir, 0755); err != nil {
					return nil, err
				}
				info, err = os.Stat(dir)
				if err != nil {
					return nil, err
				}
			} else {
				return nil, err
			}
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("%s is not a directory", dir)
		}
		opts = badger.DefaultOptions(dir)
	}

	opts.Logger = &badgerLoggerAdapter{logger: slog.Default().With("component", "journal")}
	opts.Compression = options.None

	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}

	return &Journal{
		db:     db,
		logger: slog.Default().With("component", "journal"),
	}, nil
}

// Close closes the underlying database.
func (j *Journal) Close() error {
	return j.db.Close()
}

// RecordAbandoned persists an abandoned batch, overwriting any previous entry
// for the same batch.
func (j *Journal) RecordAbandoned(entry *Entry) error {
	if entry.RecordedAt.IsZero() {
		entry.RecordedAt = time.Now().UTC()
	}

	value, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal journal entry: %w", err)
	}

	return j.db.Update(func(tx *badger.Txn) error {
		return tx.Set(makeKey(entry.SourcePath, entry.Batch), value)
	})
}

// ClearBatch removes the entry for a batch that has since been committed to
// both sinks. Clearing a batch that was never recorded is a no-op.
func (j *Journal) ClearBatch(sourcePath string, batch int) error {
	return j.db.Update(func(tx *badger.Txn) error {
		err := tx.Delete(makeKey(sourcePath, batch))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		return err
	})
}

// Abandoned returns every recorded entry, ordered by key.
func (j *Journal) Abandoned() ([]*Entry, error) {
	var entries []*Entry

	err := j.db.View(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(abandonedPrefix)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			err := iter.Item().Value(func(val []byte) error {
				var entry Entry
				if err := json.Unmarshal(val, &entry); err != nil {
					return fmt.Errorf("unmarshal journal entry: %w", err)
				}
				entries = append(entries, &entry)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})

	if err != nil {
		return nil, err
	}
	return entries, nil
}

func makeKey(sourcePath string, batch int) []byte {
	return []byte(fmt.Sprintf("%s%s/%08d", abandonedPrefix, sourcePath, batch))
}
