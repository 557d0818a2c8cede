package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/lexius/lexius/completion"
	"github.com/lexius/lexius/schema"
)

const systemPrompt = `You are a specialized legal AI assistant. Your role is to provide accurate,
helpful answers based on the provided legal documents. Follow these guidelines:

1. Only use information from the provided document context
2. Cite specific sections or clauses when possible
3. If the context doesn't contain enough information, say so explicitly
4. Use precise legal terminology
5. Provide clear, structured answers
6. Include relevant case law or statute citations if present in the context
7. Flag any potential legal risks or important considerations

Always preface your response with a confidence level (High/Medium/Low) based on the completeness
of the information in the provided context.`

const noDocumentsAnswer = "I couldn't find any relevant legal documents to answer your question. " +
	"Please ensure documents have been uploaded to the system."

// Query runs the full retrieval pipeline for one question: embed, search,
// re-rank, generate, with an extractive fallback when generation fails.
// Validation problems and embedding dimension mismatches surface as errors;
// store failures degrade to an answer-shaped error message.
func (s *Service) Query(ctx context.Context, question string, k int, filter map[string]string) (schema.Answer, error) {
	started := time.Now()
	if strings.TrimSpace(question) == "" {
		return schema.Answer{}, schema.NewValidationError("question", "must not be empty")
	}
	if k <= 0 {
		k = defaultK
	}

	results, err := s.retrieve(ctx, question, k, filter)
	if err != nil {
		if errors.Is(err, schema.ErrDimensionMismatch) {
			return schema.Answer{}, fmt.Errorf("query embedding incompatible with index: %w", err)
		}
		s.logf("retrieval failed: %v", err)
		return schema.Answer{
			Text: fmt.Sprintf("I encountered an error while processing your question: %v. "+
				"Please try again or contact support.", err),
			Confidence:        0,
			ProcessingSeconds: time.Since(started).Seconds(),
		}, nil
	}
	if len(results) == 0 {
		return schema.Answer{
			Text:              noDocumentsAnswer,
			Confidence:        0,
			ProcessingSeconds: time.Since(started).Seconds(),
		}, nil
	}

	answerText, tokens := s.generate(ctx, question, results)
	answer := schema.Answer{
		Text:              answerText,
		Sources:           results,
		Confidence:        s.confidence(results),
		TokensUsed:        tokens,
		ProcessingSeconds: time.Since(started).Seconds(),
	}
	s.logf("query completed in %.2fs with confidence %.2f", answer.ProcessingSeconds, answer.Confidence)
	return answer, nil
}

// Retrieve returns the re-ranked chunks for a question without generating an
// answer.
func (s *Service) Retrieve(ctx context.Context, question string, k int, filter map[string]string) ([]schema.RetrievalResult, error) {
	if strings.TrimSpace(question) == "" {
		return nil, schema.NewValidationError("question", "must not be empty")
	}
	if k <= 0 {
		k = defaultK
	}
	return s.retrieve(ctx, question, k, filter)
}

// retrieve embeds the question, searches the store and re-ranks the hits.
func (s *Service) retrieve(ctx context.Context, question string, k int, filter map[string]string) ([]schema.RetrievalResult, error) {
	qvec, err := s.embedder.EmbedQuery(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	hits, err := s.store.Search(ctx, qvec, k, filter)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	results := make([]schema.RetrievalResult, 0, len(hits))
	for _, hit := range hits {
		meta := schema.UnflattenChunkMetadata(hit.Metadata)
		results = append(results, schema.RetrievalResult{
			ChunkID:    hit.ID,
			Content:    hit.Text,
			Metadata:   hit.Metadata,
			Similarity: clamp01(1 - float64(hit.Distance)),
			ChunkIndex: meta.ChunkIndex,
		})
	}
	s.rerank(results)
	return results, nil
}

// rerank orders results by blended score descending. Pure semantic similarity
// under-weights legally dense but lexically distant passages.
func (s *Service) rerank(results []schema.RetrievalResult) {
	combined := make(map[string]float64, len(results))
	for _, r := range results {
		meta := schema.UnflattenChunkMetadata(r.Metadata)
		combined[r.ChunkID] = s.rank.Similarity*r.Similarity +
			s.rank.Legal*meta.LegalScore +
			s.rank.Complexity*meta.ComplexityScore
	}
	sort.SliceStable(results, func(i, j int) bool {
		return combined[results[i].ChunkID] > combined[results[j].ChunkID]
	})
}

// generate requests a completion within the configured timeout and falls back
// to an extractive answer on any failure.
func (s *Service) generate(ctx context.Context, question string, results []schema.RetrievalResult) (string, int) {
	contextBlock := formatContext(results)
	if s.completer != nil {
		genCtx, cancel := context.WithTimeout(ctx, s.genTimeout)
		defer cancel()
		resp, err := s.completer.Complete(genCtx, completion.Request{
			SystemPrompt: systemPrompt,
			UserPrompt:   formatUserPrompt(contextBlock, question),
			MaxTokens:    s.maxTokens,
			Temperature:  s.temperature,
		})
		if err == nil && strings.TrimSpace(resp.Text) != "" {
			return resp.Text, resp.TokensUsed
		}
		s.logf("generation failed, using extractive fallback: %v", err)
	}
	return extractiveFallback(question, results), 0
}

func formatUserPrompt(contextBlock, question string) string {
	return fmt.Sprintf(`Based on the following legal document excerpts, please answer the question.

LEGAL DOCUMENT CONTEXT:
%s

QUESTION: %s

Please provide a comprehensive answer based on the context above, citing specific sections where relevant.`, contextBlock, question)
}

// formatContext renders retrieved chunks as a labelled context block, ordered
// by the re-ranked score.
func formatContext(results []schema.RetrievalResult) string {
	var sb strings.Builder
	for i, r := range results {
		meta := schema.UnflattenChunkMetadata(r.Metadata)
		source := meta.Source
		if source == "" {
			source = fmt.Sprintf("Document %d", i+1)
		}
		section := meta.Section
		if section == "" {
			section = "General"
		}
		chunkInfo := ""
		if r.ChunkIndex > 0 {
			chunkInfo = fmt.Sprintf(" (chunk %d)", r.ChunkIndex)
		}
		fmt.Fprintf(&sb, "\n--- Document %d: %s%s ---\nSection: %s\nRelevance Score: %.2f\n\n%s\n",
			i+1, source, chunkInfo, section, r.Similarity, r.Content)
	}
	return sb.String()
}

// extractiveFallback assembles an answer from the top retrieved chunks. This
// path is exercised whenever the completion service is unavailable; it is a
// designed degrade, not an error report.
func extractiveFallback(question string, results []schema.RetrievalResult) string {
	top := results
	if len(top) > 3 {
		top = top[:3]
	}
	var sb strings.Builder
	sb.WriteString("**Confidence Level: Medium**\n\n")
	sb.WriteString("Based on the available legal documents, here are the relevant sections for your query:\n\n")
	fmt.Fprintf(&sb, "**Query:** %s\n\n**Relevant Information:**\n", question)
	for i, r := range top {
		meta := schema.UnflattenChunkMetadata(r.Metadata)
		source := meta.Source
		if source == "" {
			source = fmt.Sprintf("Document %d", i+1)
		}
		excerpt := r.Content
		if len(excerpt) > 500 {
			excerpt = excerpt[:500] + "..."
		}
		fmt.Fprintf(&sb, "\n%d. %s\n%s\n", i+1, source, excerpt)
	}
	sb.WriteString("\n**Note:** This response was generated from document excerpts. " +
		"For detailed legal advice, please consult with a qualified attorney.")
	return sb.String()
}

// confidence blends average similarity with result coverage, capped at 5
// results.
func (s *Service) confidence(results []schema.RetrievalResult) float64 {
	if len(results) == 0 {
		return 0
	}
	var total float64
	for _, r := range results {
		total += r.Similarity
	}
	avg := total / float64(len(results))
	coverage := float64(len(results))
	if coverage > 5 {
		coverage = 5
	}
	conf := s.conf.Similarity*avg + s.conf.Coverage*coverage/5
	return clamp01(conf)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
