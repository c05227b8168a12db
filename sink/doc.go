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


// Package sink defines the two downstream stores a batch is committed to,
// a vector store for similarity search and a document index for keyword
// search, along with the DualWriter that drives both concurrently with
// independent retry. The qdrant and quickwit subpackages implement the sink
// interfaces over HTTP.
package sink
