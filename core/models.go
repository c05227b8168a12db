package core

import (
	"fmt"

	"github.com/go-crypt/x/blake2b"
	"github.com/google/uuid"
)

// ChunkID is the deterministic identifier of a chunk in both sinks.
// It is a UUIDv5 derived from the owning document and the chunk's ordinal,
// so re-processing the same input always produces the same storage key.
type ChunkID string

// ChunkIDFor derives the identifier for the chunk at position index within
// the document identified by documentID.
func ChunkIDFor(documentID string, index int) ChunkID {
	name := fmt.Sprintf("%s/%d", documentID, index)
	return ChunkID(uuid.NewSHA1(uuid.NameSpaceURL, []byte(name)).String())
}

// Fingerprint is a stable hash of a chunk's normalized text. Two chunks with
// identical text share one fingerprint regardless of where they appear in the
// corpus; it is the key of the embedding cache, never a storage key.
type Fingerprint string

// FingerprintText hashes normalized text with BLAKE2b-256.
func FingerprintText(text string) Fingerprint {
	h, _ := blake2b.New(32, nil)
	h.Write([]byte(text))
	return Fingerprint(fmt.Sprintf("%x", h.Sum(nil)))
}

// ChunkRecord is an immutable unit of work produced by the external chunker.
type ChunkRecord struct {
	Text       string
	SourcePath string
	DocumentID string
	Index      int
	Metadata   map[string]any
}

// ID returns the chunk's deterministic identifier.
func (r *ChunkRecord) ID() ChunkID {
	return ChunkIDFor(r.DocumentID, r.Index)
}

// Fingerprint returns the cache key for the chunk's text.
func (r *ChunkRecord) Fingerprint() Fingerprint {
	return FingerprintText(r.Text)
}

// Batch is an ordered group of chunk records drawn from a single source file.
// It is the unit of retry for both sinks.
type Batch struct {
	SourcePath string
	Ordinal    int // position of this batch within its source file
	Records    []*ChunkRecord
	Vectors    [][]float32 // parallel to Records once embedding is done
}

// IDs returns the deterministic identifiers of all records in the batch.
func (b *Batch) IDs() []ChunkID {
	ids := make([]ChunkID, len(b.Records))
	for i, r := range b.Records {
		ids[i] = r.ID()
	}
	return ids
}
