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

import "errors"

// Domain validation errors
var (
	// ErrInvalidChunkRecord indicates a ChunkRecord failed validation.
	ErrInvalidChunkRecord = errors.New("invalid chunk record")

	// ErrEmptyText indicates the Text field is empty.
	ErrEmptyText = errors.New("chunk text cannot be empty")

	// ErrMissingDocumentID indicates the DocumentID field is empty.
	ErrMissingDocumentID = errors.New("document id cannot be empty")

	// ErrNegativeIndex indicates the chunk ordinal is negative.
	ErrNegativeIndex = errors.New("chunk index cannot be negative")

	// ErrEmptyBatch indicates a batch contains no records.
	ErrEmptyBatch = errors.New("batch cannot be empty")
)
