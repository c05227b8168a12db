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


package sink

import "errors"

var (
	// ErrDimensionMismatch indicates a vector's length does not match the
	// configured collection dimensionality. This is a configuration error,
	// never retried.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")

	// ErrVectorCountMismatch indicates a batch has a different number of
	// vectors than records.
	ErrVectorCountMismatch = errors.New("vector count does not match record count")

	// ErrVectorSinkRequired is returned when a vector sink is not provided.
	ErrVectorSinkRequired = errors.New("vector sink required")

	// ErrDocumentSinkRequired is returned when a document sink is not provided.
	ErrDocumentSinkRequired = errors.New("document sink required")
)
