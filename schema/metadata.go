package schema

import (
	"sort"
	"strconv"
	"strings"
	"time"
)

// Flat metadata keys used at the store boundary.
const (
	DocumentIDKey        = "documentId"
	SourceKey            = "source"
	CategoryKey          = "category"
	UploadedByKey        = "uploadedBy"
	SectionKey           = "section"
	ChunkIndexKey        = "chunkIndex"
	LegalTermsKey        = "legalTerms"
	LegalScoreKey        = "legalScore"
	ComplexityScoreKey   = "complexityScore"
	ExtractionQualityKey = "extractionQuality"
	CreatedAtKey         = "createdAt"
)

// ChunkMetadata carries per-chunk attributes as typed fields. Stores only ever
// see the flattened string form produced by Flatten.
type ChunkMetadata struct {
	DocumentID        string    `json:"documentId"`
	Source            string    `json:"source"`
	Category          string    `json:"category,omitempty"`
	UploadedBy        string    `json:"uploadedBy,omitempty"`
	Section           string    `json:"section,omitempty"`
	ChunkIndex        int       `json:"chunkIndex"`
	LegalTerms        []string  `json:"legalTerms,omitempty"`
	LegalScore        float64   `json:"legalScore"`
	ComplexityScore   float64   `json:"complexityScore"`
	ExtractionQuality string    `json:"extractionQuality,omitempty"`
	CreatedAt         time.Time `json:"createdAt"`
}

// Flatten converts metadata to the string map persisted alongside vectors.
func (m ChunkMetadata) Flatten() map[string]string {
	flat := map[string]string{
		DocumentIDKey:      m.DocumentID,
		SourceKey:          m.Source,
		ChunkIndexKey:      strconv.Itoa(m.ChunkIndex),
		LegalScoreKey:      strconv.FormatFloat(m.LegalScore, 'f', -1, 64),
		ComplexityScoreKey: strconv.FormatFloat(m.ComplexityScore, 'f', -1, 64),
	}
	if m.Category != "" {
		flat[CategoryKey] = m.Category
	}
	if m.UploadedBy != "" {
		flat[UploadedByKey] = m.UploadedBy
	}
	if m.Section != "" {
		flat[SectionKey] = m.Section
	}
	if len(m.LegalTerms) > 0 {
		terms := append([]string(nil), m.LegalTerms...)
		sort.Strings(terms)
		flat[LegalTermsKey] = strings.Join(terms, ",")
	}
	if m.ExtractionQuality != "" {
		flat[ExtractionQualityKey] = m.ExtractionQuality
	}
	if !m.CreatedAt.IsZero() {
		flat[CreatedAtKey] = m.CreatedAt.UTC().Format(time.RFC3339)
	}
	return flat
}

// UnflattenChunkMetadata rebuilds typed metadata from its flattened form.
func UnflattenChunkMetadata(flat map[string]string) ChunkMetadata {
	m := ChunkMetadata{
		DocumentID:        flat[DocumentIDKey],
		Source:            flat[SourceKey],
		Category:          flat[CategoryKey],
		UploadedBy:        flat[UploadedByKey],
		Section:           flat[SectionKey],
		ExtractionQuality: flat[ExtractionQualityKey],
	}
	if v := flat[ChunkIndexKey]; v != "" {
		m.ChunkIndex, _ = strconv.Atoi(v)
	}
	if v := flat[LegalScoreKey]; v != "" {
		m.LegalScore, _ = strconv.ParseFloat(v, 64)
	}
	if v := flat[ComplexityScoreKey]; v != "" {
		m.ComplexityScore, _ = strconv.ParseFloat(v, 64)
	}
	if v := flat[LegalTermsKey]; v != "" {
		m.LegalTerms = strings.Split(v, ",")
	}
	if v := flat[CreatedAtKey]; v != "" {
		m.CreatedAt, _ = time.Parse(time.RFC3339, v)
	}
	return m
}
