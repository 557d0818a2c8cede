package embeddings

import "context"

// Embedder is a minimal interface for computing vector embeddings
// for documents and queries. Implementations must return vectors of a fixed
// dimension for the lifetime of the instance; indexes built with one
// implementation cannot be queried through another.
type Embedder interface {
	EmbedDocuments(ctx context.Context, docs []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Dimensioner is optionally implemented by embedders whose output dimension
// is known without issuing a call.
type Dimensioner interface {
	Dimension() int
}

// Fitter is optionally implemented by embedders whose vocabulary must be
// established over a whole corpus before any of it is transformed. Callers
// that split a corpus into parallel batches must fit first, otherwise the
// vocabulary would freeze on whichever batch runs first.
type Fitter interface {
	Fit(docs []string) error
	Fitted() bool
}
