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


package core

import (
	"fmt"
	"strings"
)

// Validate checks that a chunk record carries everything the pipeline needs
// to derive its identifier and fingerprint. Records that fail validation are
// skipped with a warning, never retried.
func (r *ChunkRecord) Validate() error {
	if strings.TrimSpace(r.Text) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidChunkRecord, ErrEmptyText)
	}
	if r.DocumentID == "" {
		return fmt.Errorf("%w: %w", ErrInvalidChunkRecord, ErrMissingDocumentID)
	}
	if r.Index < 0 {
		return fmt.Errorf("%w: %w", ErrInvalidChunkRecord, ErrNegativeIndex)
	}
	return nil
}

// Validate checks batch-level invariants before it is handed to the writer.
func (b *Batch) Validate() error {
	if len(b.Records) == 0 {
		return ErrEmptyBatch
	}
	return nil
}
