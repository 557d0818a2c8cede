package vectordb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/viant/bintly"
)

func TestRecord_EncodeDecodeBinary(t *testing.T) {
	original := &Record{
		ID:     "c1f4a2",
		Text:   "The Employee shall receive an annual salary of $80,000.",
		Vector: []float32{0.12, -0.5, 0.33, 0.0},
		Metadata: map[string]string{
			"documentId": "doc-1",
			"source":     "employment.pdf",
			"category":   "employment",
		},
	}

	writers := bintly.NewWriters()
	writer := writers.Get()
	defer writers.Put(writer)

	err := original.EncodeBinary(writer)
	assert.NoError(t, err)

	readers := bintly.NewReaders()
	reader := readers.Get()
	defer readers.Put(reader)
	assert.NoError(t, reader.FromBytes(writer.Bytes()))

	decoded := &Record{}
	assert.NoError(t, decoded.DecodeBinary(reader))
	assert.EqualValues(t, original, decoded)
}

func TestRecord_EncodeDecodeEmptyMetadata(t *testing.T) {
	original := &Record{ID: "x", Text: "t", Vector: []float32{1}}

	writers := bintly.NewWriters()
	writer := writers.Get()
	defer writers.Put(writer)
	assert.NoError(t, original.EncodeBinary(writer))

	readers := bintly.NewReaders()
	reader := readers.Get()
	defer readers.Put(reader)
	assert.NoError(t, reader.FromBytes(writer.Bytes()))

	decoded := &Record{}
	assert.NoError(t, decoded.DecodeBinary(reader))
	assert.Equal(t, original.ID, decoded.ID)
	assert.Equal(t, original.Vector, decoded.Vector)
	assert.Empty(t, decoded.Metadata)
}

func TestMatchesFilter(t *testing.T) {
	meta := map[string]string{"documentId": "d1", "category": "lease"}
	assert.True(t, MatchesFilter(meta, nil))
	assert.True(t, MatchesFilter(meta, map[string]string{}))
	assert.True(t, MatchesFilter(meta, map[string]string{"category": "lease"}))
	assert.False(t, MatchesFilter(meta, map[string]string{"category": "nda"}))
	assert.False(t, MatchesFilter(meta, map[string]string{"missing": "x"}))
}

func TestCheckDimension(t *testing.T) {
	assert.Error(t, CheckDimension(0, nil))
	assert.NoError(t, CheckDimension(0, []float32{1, 2}))
	assert.NoError(t, CheckDimension(2, []float32{1, 2}))
	assert.Error(t, CheckDimension(3, []float32{1, 2}))
}

func TestCosine(t *testing.T) {
	assert.InDelta(t, 1.0, Cosine([]float32{1, 0}, []float32{2, 0}), 1e-9)
	assert.InDelta(t, 0.0, Cosine([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.InDelta(t, -1.0, Cosine([]float32{1, 0}, []float32{-1, 0}), 1e-9)
	assert.Equal(t, 0.0, Cosine([]float32{0, 0}, []float32{1, 1}))
}

func TestDocumentSimilarity(t *testing.T) {
	docA := [][]float32{{1, 0}, {1, 0}}
	docB := [][]float32{{2, 0}}
	docC := [][]float32{{0, 1}}

	assert.InDelta(t, 1.0, DocumentSimilarity(docA, docB), 1e-9)
	assert.InDelta(t, 0.0, DocumentSimilarity(docA, docC), 1e-9)
	// Mean of orthogonal unit vectors lands between the two.
	mixed := [][]float32{{1, 0}, {0, 1}}
	assert.InDelta(t, 0.7071, DocumentSimilarity(mixed, docB), 1e-3)

	assert.Equal(t, 0.0, DocumentSimilarity(nil, docB))
	assert.Equal(t, 0.0, DocumentSimilarity(docA, nil))
	assert.Equal(t, 0.0, DocumentSimilarity(docA, [][]float32{{1, 0, 0}}))
}
