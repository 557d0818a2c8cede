package schema

import "time"

// Document represents an ingested legal document before chunking.
type Document struct {
	ID                string    `json:"id"`
	Filename          string    `json:"filename"`
	ContentType       string    `json:"contentType"`
	UploadedAt        time.Time `json:"uploadedAt"`
	Category          string    `json:"category,omitempty"`
	LegalDocumentType string    `json:"legalDocumentType,omitempty"`
	RawText           string    `json:"-"`
	PageCount         int       `json:"pageCount,omitempty"`
	WordCount         int       `json:"wordCount"`
	CharCount         int       `json:"charCount"`
	ExtractionQuality string    `json:"extractionQuality,omitempty"`
}

// Chunk is the unit of storage and retrieval.
type Chunk struct {
	ID           string        `json:"id"`
	Text         string        `json:"text"`
	Embedding    []float32     `json:"-"`
	SectionIndex *int          `json:"sectionIndex,omitempty"`
	ChunkIndex   int           `json:"chunkIndex"`
	Metadata     ChunkMetadata `json:"metadata"`
}

// RetrievalResult is one scored chunk returned by a search.
type RetrievalResult struct {
	ChunkID    string            `json:"chunkId"`
	Content    string            `json:"content"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	Similarity float64           `json:"similarity"`
	ChunkIndex int               `json:"chunkIndex"`
}

// Answer is the pipeline response for a question.
type Answer struct {
	Text              string            `json:"answer"`
	Sources           []RetrievalResult `json:"sources,omitempty"`
	Confidence        float64           `json:"confidence"`
	TokensUsed        int               `json:"tokensUsed,omitempty"`
	ProcessingSeconds float64           `json:"processingSeconds"`
}

// IngestResult summarises a single document ingestion.
type IngestResult struct {
	DocumentID        string  `json:"documentId"`
	ChunksProcessed   int     `json:"chunksProcessed"`
	ProcessingSeconds float64 `json:"processingSeconds"`
	Quality           string  `json:"quality,omitempty"`
	Warning           string  `json:"warning,omitempty"`
}
