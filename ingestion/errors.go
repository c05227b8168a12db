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


package ingestion

import "errors"

var (
	// ErrEmbedderRequired is returned when a pipeline is built without an embedder.
	ErrEmbedderRequired = errors.New("embedder is required")

	// ErrWriterRequired is returned when a pipeline is built without a dual writer.
	ErrWriterRequired = errors.New("dual writer is required")

	// ErrEmbeddingCountMismatch is returned when the provider answers with a
	// different number of vectors than texts sent.
	ErrEmbeddingCountMismatch = errors.New("embedding count does not match input count")

	// ErrNoChunkFiles is returned when the chunk root contains no chunk files.
	ErrNoChunkFiles = errors.New("no chunk files found")
)
