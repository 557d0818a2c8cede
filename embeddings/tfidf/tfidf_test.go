package tfidf

import (
	"context"
	"errors"
	"math"
	"testing"
)

var corpus = []string{
	"the employee shall receive annual compensation and benefits",
	"the landlord leases the premises to the tenant for rent",
	"confidential information remains the property of the disclosing party",
	"termination of employment requires thirty days notice",
}

func TestEmbedQueryBeforeFit(t *testing.T) {
	e := New()
	if _, err := e.EmbedQuery(context.Background(), "notice period"); !errors.Is(err, ErrNotFitted) {
		t.Errorf("expected ErrNotFitted, got %v", err)
	}
}

func TestFitEmptyCorpus(t *testing.T) {
	e := New()
	if err := e.Fit(nil); err == nil {
		t.Error("expected error for empty corpus")
	}
	if e.Fitted() {
		t.Error("failed fit must not mark the embedder fitted")
	}
}

func TestEmbedDocumentsFitsOnce(t *testing.T) {
	ctx := context.Background()
	e := New()
	vecs, err := e.EmbedDocuments(ctx, corpus)
	if err != nil {
		t.Fatal(err)
	}
	if len(vecs) != len(corpus) {
		t.Fatalf("got %d vectors for %d docs", len(vecs), len(corpus))
	}
	dim := e.Dimension()
	if dim == 0 {
		t.Fatal("dimension should be set after fitting")
	}
	for i, v := range vecs {
		if len(v) != dim {
			t.Errorf("vector %d has dimension %d, expected %d", i, len(v), dim)
		}
	}

	// A second corpus must not grow the frozen vocabulary.
	more, err := e.EmbedDocuments(ctx, []string{"completely unrelated astronomy telescope nebula"})
	if err != nil {
		t.Fatal(err)
	}
	if len(more[0]) != dim {
		t.Errorf("dimension changed after refit attempt: %d vs %d", len(more[0]), dim)
	}
	if e.Dimension() != dim {
		t.Error("vocabulary must stay frozen after the first fit")
	}
}

func TestEmbedQueryUnitNorm(t *testing.T) {
	ctx := context.Background()
	e := New()
	if _, err := e.EmbedDocuments(ctx, corpus); err != nil {
		t.Fatal(err)
	}
	vec, err := e.EmbedQuery(ctx, "employee compensation and benefits")
	if err != nil {
		t.Fatal(err)
	}
	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if math.Abs(norm-1) > 1e-5 {
		t.Errorf("query vector norm^2 = %.6f, expected 1", norm)
	}
}

func TestEmbedQueryDeterministic(t *testing.T) {
	ctx := context.Background()
	e := New()
	if _, err := e.EmbedDocuments(ctx, corpus); err != nil {
		t.Fatal(err)
	}
	a, _ := e.EmbedQuery(ctx, "notice of termination")
	b, _ := e.EmbedQuery(ctx, "notice of termination")
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("vectors differ at %d", i)
		}
	}
}

func TestUnknownTermsYieldZeroVector(t *testing.T) {
	ctx := context.Background()
	e := New()
	if _, err := e.EmbedDocuments(ctx, corpus); err != nil {
		t.Fatal(err)
	}
	vec, err := e.EmbedQuery(ctx, "quasar spectroscopy")
	if err != nil {
		t.Fatal(err)
	}
	for i, v := range vec {
		if v != 0 {
			t.Fatalf("expected zero vector for out-of-vocabulary query, got %.4f at %d", v, i)
		}
	}
}

func TestMaxFeaturesBound(t *testing.T) {
	e := New(WithMaxFeatures(5))
	if err := e.Fit(corpus); err != nil {
		t.Fatal(err)
	}
	if e.Dimension() != 5 {
		t.Errorf("dimension = %d, expected 5", e.Dimension())
	}
}

func TestSimilarQueriesRankCloser(t *testing.T) {
	ctx := context.Background()
	e := New()
	vecs, err := e.EmbedDocuments(ctx, corpus)
	if err != nil {
		t.Fatal(err)
	}
	q, err := e.EmbedQuery(ctx, "employee compensation")
	if err != nil {
		t.Fatal(err)
	}
	dot := func(a, b []float32) float64 {
		var s float64
		for i := range a {
			s += float64(a[i]) * float64(b[i])
		}
		return s
	}
	if dot(q, vecs[0]) <= dot(q, vecs[1]) {
		t.Error("query about compensation should score the employment doc above the lease doc")
	}
}
