// Package pipeline orchestrates ingestion and retrieval-augmented question
// answering over legal documents.
package pipeline

import (
	"fmt"
	"time"

	"github.com/lexius/lexius/chunker"
	"github.com/lexius/lexius/completion"
	"github.com/lexius/lexius/embeddings"
	"github.com/lexius/lexius/entity"
	"github.com/lexius/lexius/extractor"
	"github.com/lexius/lexius/vectordb"
)

const (
	defaultK                 = 5
	defaultGenerationTimeout = 8 * time.Second
	defaultMaxTokens         = 2048
	defaultTemperature       = 0.1
)

// RankWeights blends vector similarity with the per-chunk legal scores when
// ordering retrieved chunks. The defaults are heuristic constants carried
// over unchanged; they have not been calibrated against labeled data.
type RankWeights struct {
	Similarity float64 `yaml:"similarity"`
	Legal      float64 `yaml:"legal"`
	Complexity float64 `yaml:"complexity"`
}

// ConfidenceWeights blends average similarity with result coverage into the
// answer confidence. Confidence is a retrieval-quality proxy, not a claim
// about factual correctness of the generated text.
type ConfidenceWeights struct {
	Similarity float64 `yaml:"similarity"`
	Coverage   float64 `yaml:"coverage"`
}

// DefaultRankWeights returns the production ranking constants.
func DefaultRankWeights() RankWeights {
	return RankWeights{Similarity: 0.7, Legal: 0.2, Complexity: 0.1}
}

// DefaultConfidenceWeights returns the production confidence constants.
func DefaultConfidenceWeights() ConfidenceWeights {
	return ConfidenceWeights{Similarity: 0.7, Coverage: 0.3}
}

// Option mutates a new Service.
type Option func(*Service)

// WithLogf injects a logger.
func WithLogf(logf func(format string, args ...any)) Option {
	return func(s *Service) { s.logf = logf }
}

// WithChunking overrides the chunk window geometry.
func WithChunking(cfg chunker.Config) Option {
	return func(s *Service) { s.chunkCfg = cfg }
}

// WithRankWeights overrides the re-ranking weights.
func WithRankWeights(w RankWeights) Option {
	return func(s *Service) { s.rank = w }
}

// WithConfidenceWeights overrides the confidence weights.
func WithConfidenceWeights(w ConfidenceWeights) Option {
	return func(s *Service) { s.conf = w }
}

// WithGenerationTimeout bounds each completion call.
func WithGenerationTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.genTimeout = d
		}
	}
}

// WithGenerationParams sets token budget and temperature for completions.
func WithGenerationParams(maxTokens int, temperature float64) Option {
	return func(s *Service) {
		if maxTokens > 0 {
			s.maxTokens = maxTokens
		}
		s.temperature = temperature
	}
}

// WithNER attaches an optional named-entity collaborator.
func WithNER(ner entity.NER) Option {
	return func(s *Service) { s.ner = ner }
}

// Service is the retrieval orchestrator. It holds the single embedder and
// store instances chosen at startup; both are shared across all calls.
type Service struct {
	embedder   embeddings.Embedder
	store      vectordb.Store
	completer  completion.Service
	extractors *extractor.Registry
	entities   *entity.Extractor
	chunker    *chunker.Chunker
	ner        entity.NER

	chunkCfg    chunker.Config
	rank        RankWeights
	conf        ConfidenceWeights
	genTimeout  time.Duration
	maxTokens   int
	temperature float64
	logf        func(format string, args ...any)
}

// New builds a Service. embedder and store are required; completer may be nil,
// in which case every answer takes the extractive path.
func New(embedder embeddings.Embedder, store vectordb.Store, completer completion.Service, opts ...Option) (*Service, error) {
	if embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}
	if store == nil {
		return nil, fmt.Errorf("store is required")
	}
	s := &Service{
		embedder:    embedder,
		store:       store,
		completer:   completer,
		extractors:  extractor.NewRegistry(),
		chunkCfg:    chunker.DefaultConfig(),
		rank:        DefaultRankWeights(),
		conf:        DefaultConfidenceWeights(),
		genTimeout:  defaultGenerationTimeout,
		maxTokens:   defaultMaxTokens,
		temperature: defaultTemperature,
		logf:        func(string, ...any) {},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.entities = entity.New(s.ner)
	ck, err := chunker.New(s.chunkCfg)
	if err != nil {
		return nil, err
	}
	s.chunker = ck
	return s, nil
}

// SupportedContentTypes lists the MIME types Ingest accepts.
func (s *Service) SupportedContentTypes() []string {
	return s.extractors.Supported()
}
