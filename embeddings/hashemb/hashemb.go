// Package hashemb is the last-resort embedding strategy: a deterministic,
// content-only pseudo-embedding derived from a keyed hash. It carries no
// semantic meaning; similarity search over it is near-random. It exists so
// the pipeline stays up when neither a dense model nor a fitted vocabulary is
// available.
package hashemb

import (
	"context"
	"encoding/binary"
	"math"

	"github.com/minio/highwayhash"
)

// Dimension of every produced vector.
const Dimension = 384

var hashKey = []byte("0123456789ABCDEF0123456789ABCDEF")

// Embedder produces unit vectors of a fixed dimension.
type Embedder struct{}

// New returns a hash embedder.
func New() *Embedder { return &Embedder{} }

// Dimension implements embeddings.Dimensioner.
func (e *Embedder) Dimension() int { return Dimension }

func (e *Embedder) EmbedDocuments(_ context.Context, docs []string) ([][]float32, error) {
	out := make([][]float32, len(docs))
	for i, doc := range docs {
		out[i] = embed(doc)
	}
	return out, nil
}

func (e *Embedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	return embed(text), nil
}

// embed derives Dimension floats by hashing the text with a running block
// counter, then L2-normalizes.
func embed(text string) []float32 {
	vec := make([]float32, Dimension)
	var block [8]byte
	var norm float64
	data := []byte(text)
	for i := 0; i < Dimension; i += 32 {
		binary.LittleEndian.PutUint64(block[:], uint64(i))
		h, _ := highwayhash.New(hashKey)
		_, _ = h.Write(block[:])
		_, _ = h.Write(data)
		digest := h.Sum(nil)
		for j := 0; j < len(digest) && i+j < Dimension; j++ {
			v := float32(digest[j])/255 - 0.5
			vec[i+j] = v
			norm += float64(v) * float64(v)
		}
	}
	if norm > 0 {
		inv := float32(1 / math.Sqrt(norm))
		for i := range vec {
			vec[i] *= inv
		}
	}
	return vec
}
