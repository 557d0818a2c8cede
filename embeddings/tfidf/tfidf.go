// Package tfidf implements a fit-once term-frequency/inverse-document-frequency
// embedder. The vocabulary is frozen after the first corpus it sees; query
// vectors are only meaningful relative to that vocabulary, so re-indexing with
// substantially different material requires a fresh instance.
package tfidf

import (
	"context"
	"errors"
	"math"
	"regexp"
	"sort"
	"strings"
	"sync"
)

// ErrNotFitted is returned by EmbedQuery before any corpus has been fitted.
var ErrNotFitted = errors.New("tfidf: vocabulary not fitted")

const (
	defaultMaxFeatures = 5000
	defaultNgramMax    = 2
)

// Words with 2+ letters only.
var tokenPattern = regexp.MustCompile(`[a-zA-Z]{2,}`)

// Option mutates a new Embedder.
type Option func(*Embedder)

// WithMaxFeatures bounds the vocabulary size.
func WithMaxFeatures(n int) Option {
	return func(e *Embedder) {
		if n > 0 {
			e.maxFeatures = n
		}
	}
}

// WithNgramMax sets the largest n-gram length, at least 1.
func WithNgramMax(n int) Option {
	return func(e *Embedder) {
		if n >= 1 {
			e.ngramMax = n
		}
	}
}

// Embedder holds a fitted vocabulary and its idf weights. It is safe for
// concurrent use; concurrent first calls race to fit and are serialized.
type Embedder struct {
	maxFeatures int
	ngramMax    int

	mu    sync.RWMutex
	vocab map[string]int
	idf   []float32
}

// New returns an unfitted Embedder.
func New(opts ...Option) *Embedder {
	e := &Embedder{maxFeatures: defaultMaxFeatures, ngramMax: defaultNgramMax}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Fitted reports whether a vocabulary has been established.
func (e *Embedder) Fitted() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.vocab != nil
}

// Dimension reports the frozen vocabulary size, zero before fitting.
func (e *Embedder) Dimension() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.vocab)
}

// Fit establishes the vocabulary from docs. It is a no-op when already
// fitted.
func (e *Embedder) Fit(docs []string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.fitLocked(docs)
}

func (e *Embedder) fitLocked(docs []string) error {
	if e.vocab != nil {
		return nil
	}
	if len(docs) == 0 {
		return errors.New("tfidf: empty corpus")
	}
	df := map[string]int{}
	for _, doc := range docs {
		seen := map[string]struct{}{}
		for _, f := range e.features(doc) {
			seen[f] = struct{}{}
		}
		for f := range seen {
			df[f]++
		}
	}
	if len(df) == 0 {
		return errors.New("tfidf: corpus has no extractable terms")
	}
	terms := make([]string, 0, len(df))
	for f := range df {
		terms = append(terms, f)
	}
	// Keep the most frequent features; ties resolve alphabetically.
	sort.Slice(terms, func(i, j int) bool {
		if df[terms[i]] != df[terms[j]] {
			return df[terms[i]] > df[terms[j]]
		}
		return terms[i] < terms[j]
	})
	if len(terms) > e.maxFeatures {
		terms = terms[:e.maxFeatures]
	}
	sort.Strings(terms)

	e.vocab = make(map[string]int, len(terms))
	e.idf = make([]float32, len(terms))
	n := float64(len(docs))
	for i, term := range terms {
		e.vocab[term] = i
		e.idf[i] = float32(math.Log((1+n)/(1+float64(df[term]))) + 1)
	}
	return nil
}

// EmbedDocuments fits the vocabulary on the first batch it sees, then
// transforms every document against the frozen vocabulary.
func (e *Embedder) EmbedDocuments(_ context.Context, docs []string) ([][]float32, error) {
	e.mu.Lock()
	if e.vocab == nil {
		if err := e.fitLocked(docs); err != nil {
			e.mu.Unlock()
			return nil, err
		}
	}
	e.mu.Unlock()

	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([][]float32, len(docs))
	for i, doc := range docs {
		out[i] = e.transformLocked(doc)
	}
	return out, nil
}

// EmbedQuery transforms a query against the fitted vocabulary.
func (e *Embedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.vocab == nil {
		return nil, ErrNotFitted
	}
	return e.transformLocked(text), nil
}

func (e *Embedder) transformLocked(text string) []float32 {
	vec := make([]float32, len(e.vocab))
	counts := map[int]int{}
	for _, f := range e.features(text) {
		if idx, ok := e.vocab[f]; ok {
			counts[idx]++
		}
	}
	var norm float64
	for idx, count := range counts {
		// Sublinear term frequency scaling.
		tf := 1 + math.Log(float64(count))
		v := float32(tf) * e.idf[idx]
		vec[idx] = v
		norm += float64(v) * float64(v)
	}
	if norm > 0 {
		inv := float32(1 / math.Sqrt(norm))
		for idx := range counts {
			vec[idx] *= inv
		}
	}
	return vec
}

// features tokenizes text and expands tokens into n-grams up to ngramMax.
func (e *Embedder) features(text string) []string {
	raw := tokenPattern.FindAllString(strings.ToLower(text), -1)
	tokens := raw[:0]
	for _, t := range raw {
		if _, ok := stopwords[t]; ok {
			continue
		}
		tokens = append(tokens, t)
	}
	features := make([]string, 0, len(tokens)*e.ngramMax)
	for n := 1; n <= e.ngramMax; n++ {
		for i := 0; i+n <= len(tokens); i++ {
			features = append(features, strings.Join(tokens[i:i+n], " "))
		}
	}
	return features
}
