package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkRecord_Validate(t *testing.T) {
	valid := func() *ChunkRecord {
		return &ChunkRecord{Text: "some text", DocumentID: "doc", Index: 0}
	}

	t.Run("valid record", func(t *testing.T) {
		require.NoError(t, valid().Validate())
	})

	t.Run("empty text", func(t *testing.T) {
		r := valid()
		r.Text = "   "
		err := r.Validate()
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrEmptyText)
		assert.ErrorIs(t, err, ErrInvalidChunkRecord)
	})

	t.Run("missing document id", func(t *testing.T) {
		r := valid()
		r.DocumentID = ""
		assert.ErrorIs(t, r.Validate(), ErrMissingDocumentID)
	})

	t.Run("negative index", func(t *testing.T) {
		r := valid()
		r.Index = -1
		assert.ErrorIs(t, r.Validate(), ErrNegativeIndex)
	})
}

func TestBatch_Validate(t *testing.T) {
	assert.ErrorIs(t, (&Batch{}).Validate(), ErrEmptyBatch)

	b := &Batch{Records: []*ChunkRecord{{Text: "x", DocumentID: "d"}}}
	assert.NoError(t, b.Validate())
}
