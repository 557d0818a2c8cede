package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/lexius/lexius/chunker"
	"github.com/lexius/lexius/completion"
	"github.com/lexius/lexius/embeddings/tfidf"
	"github.com/lexius/lexius/extractor"
	"github.com/lexius/lexius/schema"
	"github.com/lexius/lexius/vectordb"
	"github.com/lexius/lexius/vectordb/mem"
)

// keywordEmbedder maps texts onto a 3-dimensional keyword space so retrieval
// outcomes are predictable.
type keywordEmbedder struct{}

func keywordVec(text string) []float32 {
	lower := strings.ToLower(text)
	vec := []float32{0, 0, 0.1}
	for _, w := range []string{"salary", "compensation", "80,000"} {
		if strings.Contains(lower, w) {
			vec[0]++
		}
	}
	for _, w := range []string{"termination", "terminate", "notice"} {
		if strings.Contains(lower, w) {
			vec[1]++
		}
	}
	return vec
}

func (keywordEmbedder) EmbedDocuments(_ context.Context, docs []string) ([][]float32, error) {
	out := make([][]float32, len(docs))
	for i, d := range docs {
		out[i] = keywordVec(d)
	}
	return out, nil
}

func (keywordEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	return keywordVec(text), nil
}

type fakeCompleter struct {
	resp  completion.Response
	err   error
	block bool
}

func (f *fakeCompleter) Complete(ctx context.Context, _ completion.Request) (completion.Response, error) {
	if f.block {
		<-ctx.Done()
		return completion.Response{}, ctx.Err()
	}
	return f.resp, f.err
}

type failingStore struct{ err error }

func (f *failingStore) Upsert(context.Context, []vectordb.Record) error { return f.err }
func (f *failingStore) Search(context.Context, []float32, int, map[string]string) ([]vectordb.SearchHit, error) {
	return nil, f.err
}
func (f *failingStore) Remove(context.Context, map[string]string) error { return f.err }
func (f *failingStore) Count(context.Context) (int, error)              { return 0, f.err }

const employmentAgreement = `EMPLOYMENT AGREEMENT

1. Position
The Employee shall serve as corporate counsel for the Employer.

2. Compensation
The Employer shall pay the Employee an annual salary of $80,000, payable in equal installments.

3. Termination
Either party may terminate this agreement with thirty days advance notice. Severance obligations apply after one year of service.`

func newTestService(t *testing.T, completer completion.Service) *Service {
	t.Helper()
	svc, err := New(keywordEmbedder{}, mem.New(), completer)
	if err != nil {
		t.Fatal(err)
	}
	return svc
}

func ingestAgreement(t *testing.T, svc *Service) schema.IngestResult {
	t.Helper()
	result, err := svc.Ingest(context.Background(), []byte(employmentAgreement), extractor.TypePlainText,
		IngestMetadata{Filename: "employment.txt", UploadedBy: "counsel@example.com"})
	if err != nil {
		t.Fatal(err)
	}
	return result
}

func TestIngest(t *testing.T) {
	svc := newTestService(t, nil)
	result := ingestAgreement(t, svc)
	if result.DocumentID == "" {
		t.Error("document id must be set")
	}
	if result.ChunksProcessed != 4 {
		t.Errorf("chunks = %d, expected 4 (preamble plus three sections)", result.ChunksProcessed)
	}
	if result.Quality != "good" {
		t.Errorf("quality = %s, expected good", result.Quality)
	}
	if result.Warning != "" {
		t.Errorf("unexpected warning: %s", result.Warning)
	}
	n, err := svc.Stats(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if n != 4 {
		t.Errorf("stored chunks = %d, expected 4", n)
	}
}

func TestIngestClassifiesCategory(t *testing.T) {
	svc := newTestService(t, nil)
	ingestAgreement(t, svc)
	results, err := svc.Retrieve(context.Background(), "annual salary", 1, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) == 0 {
		t.Fatal("expected results")
	}
	if got := results[0].Metadata[schema.CategoryKey]; got != "employment" {
		t.Errorf("category = %s, expected employment", got)
	}
}

func TestIngestIdempotentIDs(t *testing.T) {
	svc := newTestService(t, nil)
	ingestAgreement(t, svc)
	second := ingestAgreement(t, svc)
	if second.ChunksProcessed != 4 {
		t.Errorf("chunks = %d", second.ChunksProcessed)
	}
	n, _ := svc.Stats(context.Background())
	if n != 4 {
		t.Errorf("re-ingesting the same document must upsert, not duplicate: count=%d", n)
	}
}

func TestIngestEmptyDocument(t *testing.T) {
	svc := newTestService(t, nil)
	_, err := svc.Ingest(context.Background(), []byte("   \n \t "), extractor.TypePlainText, IngestMetadata{})
	if !schema.IsValidation(err) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestIngestUnsupportedType(t *testing.T) {
	svc := newTestService(t, nil)
	_, err := svc.Ingest(context.Background(), []byte("x"), "application/zip", IngestMetadata{})
	if !schema.IsValidation(err) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestIngestPoorQualityWarns(t *testing.T) {
	svc := newTestService(t, nil)
	garbled := strings.Repeat("abcdefghij", 30)
	result, err := svc.Ingest(context.Background(), []byte(garbled), extractor.TypePlainText,
		IngestMetadata{Filename: "scan.txt"})
	if err != nil {
		t.Fatalf("poor quality must warn, not reject: %v", err)
	}
	if result.Quality != "poor" {
		t.Errorf("quality = %s, expected poor", result.Quality)
	}
	if result.Warning == "" {
		t.Error("expected a warning for poor extraction quality")
	}
}

func TestQueryExtractiveFallback(t *testing.T) {
	svc := newTestService(t, nil)
	ingestAgreement(t, svc)

	answer, err := svc.Query(context.Background(), "What is the annual salary?", 5, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(answer.Text, "$80,000") {
		t.Errorf("answer should surface the salary clause, got: %s", answer.Text)
	}
	if !strings.Contains(answer.Text, "**Confidence Level: Medium**") {
		t.Error("extractive answers carry a medium confidence header")
	}
	if !strings.Contains(answer.Text, "qualified attorney") {
		t.Error("extractive answers carry the attorney disclaimer")
	}
	if len(answer.Sources) == 0 {
		t.Error("expected sources")
	}
	if answer.Confidence <= 0 || answer.Confidence > 1 {
		t.Errorf("confidence = %.3f out of range", answer.Confidence)
	}
	if answer.TokensUsed != 0 {
		t.Errorf("extractive answers use no tokens, got %d", answer.TokensUsed)
	}
}

func TestQueryUsesCompleter(t *testing.T) {
	completer := &fakeCompleter{resp: completion.Response{Text: "The annual salary is $80,000.", TokensUsed: 42}}
	svc := newTestService(t, completer)
	ingestAgreement(t, svc)

	answer, err := svc.Query(context.Background(), "What is the annual salary?", 5, nil)
	if err != nil {
		t.Fatal(err)
	}
	if answer.Text != "The annual salary is $80,000." {
		t.Errorf("answer = %q", answer.Text)
	}
	if answer.TokensUsed != 42 {
		t.Errorf("tokens = %d, expected 42", answer.TokensUsed)
	}
}

func TestQueryCompleterFailureFallsBack(t *testing.T) {
	completer := &fakeCompleter{err: errors.New("rate limited")}
	svc := newTestService(t, completer)
	ingestAgreement(t, svc)

	answer, err := svc.Query(context.Background(), "What is the annual salary?", 5, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(answer.Text, "**Confidence Level: Medium**") {
		t.Errorf("expected extractive fallback, got: %s", answer.Text)
	}
}

func TestQueryEmptyQuestion(t *testing.T) {
	svc := newTestService(t, nil)
	if _, err := svc.Query(context.Background(), "  ", 5, nil); !schema.IsValidation(err) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestQueryNoDocuments(t *testing.T) {
	svc := newTestService(t, nil)
	answer, err := svc.Query(context.Background(), "anything", 5, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(answer.Text, "couldn't find any relevant legal documents") {
		t.Errorf("answer = %q", answer.Text)
	}
	if answer.Confidence != 0 {
		t.Errorf("confidence = %.3f, expected 0", answer.Confidence)
	}
}

func TestQueryCategoryFilter(t *testing.T) {
	svc := newTestService(t, nil)
	ingestAgreement(t, svc)

	answer, err := svc.Query(context.Background(), "What is the annual salary?", 5,
		map[string]string{schema.CategoryKey: "lease"})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(answer.Text, "couldn't find any relevant legal documents") {
		t.Errorf("mismatched filter should yield the no-documents answer, got: %s", answer.Text)
	}
}

func TestQueryStoreErrorDegrades(t *testing.T) {
	svc, err := New(keywordEmbedder{}, &failingStore{err: errors.New("disk gone")}, nil)
	if err != nil {
		t.Fatal(err)
	}
	answer, err := svc.Query(context.Background(), "anything", 5, nil)
	if err != nil {
		t.Fatalf("store failure should degrade to an answer, got error: %v", err)
	}
	if !strings.Contains(answer.Text, "I encountered an error while processing your question") {
		t.Errorf("answer = %q", answer.Text)
	}
	if answer.Confidence != 0 {
		t.Errorf("confidence = %.3f, expected 0", answer.Confidence)
	}
}

func TestQueryDimensionMismatchSurfaces(t *testing.T) {
	svc, err := New(keywordEmbedder{}, &failingStore{err: schema.ErrDimensionMismatch}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Query(context.Background(), "anything", 5, nil); !errors.Is(err, schema.ErrDimensionMismatch) {
		t.Errorf("dimension mismatch must surface as an error, got %v", err)
	}
}

func TestRerankBlendsLegalScores(t *testing.T) {
	svc := newTestService(t, nil)
	low := schema.ChunkMetadata{LegalScore: 0, ComplexityScore: 0}.Flatten()
	high := schema.ChunkMetadata{LegalScore: 1, ComplexityScore: 1}.Flatten()
	results := []schema.RetrievalResult{
		{ChunkID: "plain", Similarity: 0.80, Metadata: low},
		{ChunkID: "dense", Similarity: 0.75, Metadata: high},
	}
	svc.rerank(results)
	// 0.7*0.75 + 0.2 + 0.1 = 0.825 beats 0.7*0.80 = 0.56.
	if results[0].ChunkID != "dense" {
		t.Errorf("legal density should outrank a small similarity edge, got %s first", results[0].ChunkID)
	}
}

func TestConfidence(t *testing.T) {
	svc := newTestService(t, nil)
	results := []schema.RetrievalResult{
		{Similarity: 0.8}, {Similarity: 0.6}, {Similarity: 0.4},
	}
	got := svc.confidence(results)
	// 0.7*0.6 + 0.3*(3/5)
	want := 0.6
	if diff := got - want; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("confidence = %.4f, expected %.4f", got, want)
	}
	if svc.confidence(nil) != 0 {
		t.Error("no results should mean zero confidence")
	}
}

func TestRemove(t *testing.T) {
	svc := newTestService(t, nil)
	result := ingestAgreement(t, svc)
	if err := svc.Remove(context.Background(), result.DocumentID); err != nil {
		t.Fatal(err)
	}
	n, _ := svc.Stats(context.Background())
	if n != 0 {
		t.Errorf("count = %d after remove, expected 0", n)
	}
	if err := svc.Remove(context.Background(), ""); !schema.IsValidation(err) {
		t.Errorf("expected validation error for empty id, got %v", err)
	}
}

func TestStreamQueryEventOrder(t *testing.T) {
	completer := &fakeCompleter{resp: completion.Response{Text: "generated", TokensUsed: 7}}
	svc := newTestService(t, completer)
	ingestAgreement(t, svc)

	events, err := svc.StreamQuery(context.Background(), "What is the annual salary?", 5, nil)
	if err != nil {
		t.Fatal(err)
	}
	var collected []Event
	for evt := range events {
		collected = append(collected, evt)
	}
	statuses := make([]string, len(collected))
	for i, evt := range collected {
		statuses[i] = evt.Status
	}
	want := []string{StatusRetrieving, StatusRetrieved, StatusGenerating, StatusComplete}
	if len(statuses) != len(want) {
		t.Fatalf("statuses = %v, expected %v", statuses, want)
	}
	for i := range want {
		if statuses[i] != want[i] {
			t.Fatalf("statuses = %v, expected %v", statuses, want)
		}
	}
	for _, evt := range collected[1:] {
		if evt.QueryID != collected[0].QueryID {
			t.Error("query id must be stable across events")
		}
	}
	final := collected[len(collected)-1]
	if final.Answer != "generated" || final.TokensUsed != 7 {
		t.Errorf("final event = %+v", final)
	}
	if final.Confidence <= 0 {
		t.Error("final event should carry confidence")
	}
	retrieved := collected[1]
	if len(retrieved.Sources) == 0 {
		t.Error("retrieved event should carry sources")
	}
}

func TestStreamQueryEmptyStore(t *testing.T) {
	svc := newTestService(t, nil)
	events, err := svc.StreamQuery(context.Background(), "anything", 5, nil)
	if err != nil {
		t.Fatal(err)
	}
	var statuses []string
	var last Event
	for evt := range events {
		statuses = append(statuses, evt.Status)
		last = evt
	}
	want := []string{StatusRetrieving, StatusRetrieved, StatusComplete}
	if len(statuses) != len(want) {
		t.Fatalf("statuses = %v, expected %v", statuses, want)
	}
	if !strings.Contains(last.Answer, "couldn't find any relevant legal documents") {
		t.Errorf("final answer = %q", last.Answer)
	}
}

func TestStreamQueryValidation(t *testing.T) {
	svc := newTestService(t, nil)
	if _, err := svc.StreamQuery(context.Background(), " ", 5, nil); !schema.IsValidation(err) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestStreamQueryCancellation(t *testing.T) {
	completer := &fakeCompleter{block: true}
	svc := newTestService(t, completer)
	ingestAgreement(t, svc)

	ctx, cancel := context.WithCancel(context.Background())
	events, err := svc.StreamQuery(ctx, "What is the annual salary?", 5, nil)
	if err != nil {
		t.Fatal(err)
	}
	var statuses []string
	for evt := range events {
		statuses = append(statuses, evt.Status)
		if evt.Status == StatusGenerating {
			cancel()
		}
	}
	cancel()
	for _, status := range statuses {
		if status == StatusComplete {
			t.Fatal("no complete event may follow cancellation")
		}
	}
}

func TestStreamQueryErrorEvent(t *testing.T) {
	svc, err := New(keywordEmbedder{}, &failingStore{err: errors.New("disk gone")}, nil)
	if err != nil {
		t.Fatal(err)
	}
	events, err := svc.StreamQuery(context.Background(), "anything", 5, nil)
	if err != nil {
		t.Fatal(err)
	}
	var last Event
	for evt := range events {
		last = evt
	}
	if last.Status != StatusError {
		t.Errorf("final status = %s, expected %s", last.Status, StatusError)
	}
}

// A fit-once embedder must build its vocabulary from every chunk of the first
// document, not just the batch that wins the parallel fan-out.
func TestIngestFitsVocabularyOnWholeDocument(t *testing.T) {
	ctx := context.Background()
	sparse := tfidf.New()
	svc, err := New(sparse, mem.New(), nil,
		WithChunking(chunker.Config{SizeWords: 10, OverlapWords: 0}))
	if err != nil {
		t.Fatal(err)
	}

	words := make([]string, 400)
	for i := range words {
		words[i] = fmt.Sprintf("x%c%c", 'a'+i%26, 'a'+(i/26)%26)
	}
	words[0] = "alphaterm"
	words[len(words)-1] = "betaterm"

	result, err := svc.Ingest(ctx, []byte(strings.Join(words, " ")), extractor.TypePlainText,
		IngestMetadata{Filename: "long.txt"})
	if err != nil {
		t.Fatal(err)
	}
	if result.ChunksProcessed <= embedBatchSize {
		t.Fatalf("chunks = %d, the document must span multiple embedding batches", result.ChunksProcessed)
	}
	// Terms from the first and the last chunk both belong to the vocabulary.
	for _, term := range []string{"alphaterm", "betaterm"} {
		vec, err := sparse.EmbedQuery(ctx, term)
		if err != nil {
			t.Fatal(err)
		}
		var nonZero bool
		for _, v := range vec {
			if v != 0 {
				nonZero = true
				break
			}
		}
		if !nonZero {
			t.Errorf("query %q embeds to the zero vector; vocabulary missed part of the document", term)
		}
	}
}
