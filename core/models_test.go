package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkIDFor_Deterministic(t *testing.T) {
	a := ChunkIDFor("calibre/142", 7)
	b := ChunkIDFor("calibre/142", 7)
	assert.Equal(t, a, b, "same document and index must yield the same id")
}

func TestChunkIDFor_DistinctInputs(t *testing.T) {
	base := ChunkIDFor("calibre/142", 7)

	assert.NotEqual(t, base, ChunkIDFor("calibre/142", 8))
	assert.NotEqual(t, base, ChunkIDFor("calibre/143", 7))
}

func TestChunkIDFor_IsUUID(t *testing.T) {
	id := string(ChunkIDFor("doc", 0))
	require.Len(t, id, 36)
	assert.Equal(t, byte('-'), id[8])
	assert.Equal(t, byte('-'), id[13])
}

func TestFingerprintText(t *testing.T) {
	t.Run("identical text shares fingerprint", func(t *testing.T) {
		assert.Equal(t, FingerprintText("the same words"), FingerprintText("the same words"))
	})

	t.Run("different text differs", func(t *testing.T) {
		assert.NotEqual(t, FingerprintText("alpha"), FingerprintText("beta"))
	})

	t.Run("fingerprint ignores identity fields", func(t *testing.T) {
		a := &ChunkRecord{Text: "shared", DocumentID: "doc-1", Index: 0}
		b := &ChunkRecord{Text: "shared", DocumentID: "doc-2", Index: 9}
		assert.Equal(t, a.Fingerprint(), b.Fingerprint())
		assert.NotEqual(t, a.ID(), b.ID())
	})
}

func TestBatch_IDs(t *testing.T) {
	batch := &Batch{
		SourcePath: "books/142.jsonl",
		Records: []*ChunkRecord{
			{Text: "one", DocumentID: "d", Index: 0},
			{Text: "two", DocumentID: "d", Index: 1},
		},
	}

	ids := batch.IDs()
	require.Len(t, ids, 2)
	assert.Equal(t, ChunkIDFor("d", 0), ids[0])
	assert.Equal(t, ChunkIDFor("d", 1), ids[1])
}
