// Package vectordb defines the vector store contract shared by the in-memory
// and SQLite implementations.
package vectordb

import (
	"context"
	"math"

	"github.com/lexius/lexius/schema"
)

// Record is one stored chunk: id, text, vector and flattened metadata.
type Record struct {
	ID       string
	Text     string
	Vector   []float32
	Metadata map[string]string
}

// SearchHit is one nearest-neighbour result. Distance is cosine distance;
// callers convert it to similarity.
type SearchHit struct {
	ID       string
	Text     string
	Metadata map[string]string
	Distance float32
}

// Store persists chunk vectors and answers nearest-neighbour queries.
// Implementations are safe for concurrent use and enforce a constant vector
// dimension, established by the first upsert.
type Store interface {
	Upsert(ctx context.Context, records []Record) error
	Search(ctx context.Context, vector []float32, k int, filter map[string]string) ([]SearchHit, error)
	Remove(ctx context.Context, filter map[string]string) error
	Count(ctx context.Context) (int, error)
}

// Persister is implemented by stores that can flush state to durable storage.
type Persister interface {
	Persist(ctx context.Context) error
}

// MatchesFilter reports whether metadata satisfies every key/value pair of
// filter. A nil or empty filter matches everything.
func MatchesFilter(metadata, filter map[string]string) bool {
	for k, v := range filter {
		if metadata[k] != v {
			return false
		}
	}
	return true
}

// CheckDimension validates a vector against an established dimension.
// A zero established dimension accepts any non-empty vector.
func CheckDimension(established int, vector []float32) error {
	if len(vector) == 0 {
		return schema.ErrDimensionMismatch
	}
	if established != 0 && len(vector) != established {
		return schema.ErrDimensionMismatch
	}
	return nil
}

// Cosine returns the cosine similarity of two equal-length vectors.
func Cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// DocumentSimilarity compares two documents by the cosine similarity of their
// mean chunk embeddings. Either side being empty, or mixed dimensions, yields
// zero.
func DocumentSimilarity(a, b [][]float32) float64 {
	ma := meanVector(a)
	mb := meanVector(b)
	if ma == nil || mb == nil || len(ma) != len(mb) {
		return 0
	}
	return Cosine(ma, mb)
}

func meanVector(vectors [][]float32) []float32 {
	if len(vectors) == 0 || len(vectors[0]) == 0 {
		return nil
	}
	mean := make([]float32, len(vectors[0]))
	for _, v := range vectors {
		if len(v) != len(mean) {
			return nil
		}
		for i := range v {
			mean[i] += v[i]
		}
	}
	inv := float32(1) / float32(len(vectors))
	for i := range mean {
		mean[i] *= inv
	}
	return mean
}
