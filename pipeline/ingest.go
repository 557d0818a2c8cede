package pipeline

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/lexius/lexius/classify"
	"github.com/lexius/lexius/embeddings"
	"github.com/lexius/lexius/normalize"
	"github.com/lexius/lexius/schema"
	"github.com/lexius/lexius/scoring"
	"github.com/lexius/lexius/structure"
	"github.com/lexius/lexius/vectordb"
)

const (
	embedBatchSize   = 32
	embedConcurrency = 4
)

// IngestMetadata is the caller-supplied context for one upload.
type IngestMetadata struct {
	Filename   string
	Category   string
	UploadedBy string
}

// Ingest extracts, normalizes, chunks, scores and embeds one document, then
// upserts its chunks. Garbled text is ingested with a warning rather than
// rejected; empty documents and unsupported content types are validation
// errors.
func (s *Service) Ingest(ctx context.Context, data []byte, contentType string, meta IngestMetadata) (schema.IngestResult, error) {
	started := time.Now()

	extracted, err := s.extractors.Extract(data, contentType)
	if err != nil {
		return schema.IngestResult{}, err
	}
	text := normalize.Clean(extracted.Text)
	if strings.TrimSpace(text) == "" {
		return schema.IngestResult{}, schema.NewValidationError("file", "document contains no extractable text")
	}
	report := normalize.Assess(text)

	sum := md5.Sum([]byte(text))
	docID := hex.EncodeToString(sum[:])

	category := meta.Category
	if category == "" {
		category = classify.Classify(text)
	}

	source := meta.Filename
	if source == "" {
		source = docID
	}
	base := schema.ChunkMetadata{
		DocumentID:        docID,
		Source:            source,
		Category:          category,
		UploadedBy:        meta.UploadedBy,
		ExtractionQuality: string(report.Quality),
		CreatedAt:         started.UTC(),
	}

	prepared := normalize.PreprocessLegal(text)
	sections := structure.Extract(prepared)
	chunks, err := s.chunker.Chunk(prepared, sections, base)
	if err != nil {
		return schema.IngestResult{}, err
	}
	for i := range chunks {
		scores := scoring.Score(chunks[i].Text)
		chunks[i].Metadata.LegalTerms = s.entities.Extract(ctx, chunks[i].Text).LegalTerms
		chunks[i].Metadata.LegalScore = scores.Legal
		chunks[i].Metadata.ComplexityScore = scores.Complexity
	}

	// A fit-once embedder must see the whole document before the batches
	// split, or its vocabulary would freeze on a fraction of the corpus.
	if fitter, ok := s.embedder.(embeddings.Fitter); ok && !fitter.Fitted() {
		texts := make([]string, len(chunks))
		for i := range chunks {
			texts[i] = chunks[i].Text
		}
		if err := fitter.Fit(texts); err != nil {
			return schema.IngestResult{}, fmt.Errorf("fit embedder: %w", err)
		}
	}

	// Ids and order are fixed above; embedding batches may run in parallel.
	vectors := make([][]float32, len(chunks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(embedConcurrency)
	for start := 0; start < len(chunks); start += embedBatchSize {
		start := start
		end := start + embedBatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		g.Go(func() error {
			texts := make([]string, end-start)
			for i := range texts {
				texts[i] = chunks[start+i].Text
			}
			vecs, err := s.embedder.EmbedDocuments(gctx, texts)
			if err != nil {
				return err
			}
			if len(vecs) != len(texts) {
				return fmt.Errorf("embedder returned %d vectors, expected %d", len(vecs), len(texts))
			}
			copy(vectors[start:end], vecs)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return schema.IngestResult{}, fmt.Errorf("embed chunks: %w", err)
	}

	records := make([]vectordb.Record, len(chunks))
	for i := range chunks {
		chunks[i].Embedding = vectors[i]
		records[i] = vectordb.Record{
			ID:       chunks[i].ID,
			Text:     chunks[i].Text,
			Vector:   vectors[i],
			Metadata: chunks[i].Metadata.Flatten(),
		}
	}
	if err := s.store.Upsert(ctx, records); err != nil {
		return schema.IngestResult{}, fmt.Errorf("upsert chunks: %w", err)
	}

	result := schema.IngestResult{
		DocumentID:        docID,
		ChunksProcessed:   len(chunks),
		ProcessingSeconds: time.Since(started).Seconds(),
		Quality:           string(report.Quality),
	}
	if report.Quality == normalize.QualityPoor {
		result.Warning = "extraction quality is poor; the document was ingested but retrieval accuracy may suffer"
		s.logf("ingest %s: poor extraction quality (ascii=%.2f alpha=%.2f space=%.2f)",
			source, report.ASCIIRatio, report.AlphaRatio, report.SpaceRatio)
	}
	s.logf("ingested %s: %d chunks in %.2fs", source, result.ChunksProcessed, result.ProcessingSeconds)
	return result, nil
}

// Remove deletes every chunk derived from the given document.
func (s *Service) Remove(ctx context.Context, documentID string) error {
	if documentID == "" {
		return schema.NewValidationError("documentId", "must not be empty")
	}
	return s.store.Remove(ctx, map[string]string{schema.DocumentIDKey: documentID})
}

// Stats reports the number of stored chunks.
func (s *Service) Stats(ctx context.Context) (int, error) {
	return s.store.Count(ctx)
}
