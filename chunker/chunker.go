// Package chunker splits normalized legal text into overlapping word windows.
package chunker

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/minio/highwayhash"

	"github.com/lexius/lexius/schema"
	"github.com/lexius/lexius/structure"
)

var hashKey = []byte("0123456789ABCDEF0123456789ABCDEF")

// Config controls window geometry. Overlap must stay below size.
type Config struct {
	SizeWords    int `yaml:"sizeWords"`
	OverlapWords int `yaml:"overlapWords"`
}

// DefaultConfig mirrors the production defaults of 1000-character chunks,
// expressed in words.
func DefaultConfig() Config {
	return Config{SizeWords: 200, OverlapWords: 40}
}

// Validate fails fast on geometry that would loop or lose content.
func (c Config) Validate() error {
	if c.SizeWords <= 0 {
		return schema.NewValidationError("chunking.sizeWords", "must be positive")
	}
	if c.OverlapWords < 0 {
		return schema.NewValidationError("chunking.overlapWords", "must not be negative")
	}
	if c.OverlapWords >= c.SizeWords {
		return schema.NewValidationError("chunking.overlapWords",
			fmt.Sprintf("overlap %d must be smaller than size %d", c.OverlapWords, c.SizeWords))
	}
	return nil
}

// Chunker produces schema.Chunk values with deterministic ids.
type Chunker struct {
	cfg Config
}

// New validates the configuration and returns a Chunker.
func New(cfg Config) (*Chunker, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Chunker{cfg: cfg}, nil
}

// Chunk windows text into chunks. When sections indicate real structure, each
// section's content is windowed independently and chunks carry the section
// index and title; otherwise the whole text is one sequence. Chunk ids are
// content-derived so re-chunking unchanged text upserts idempotently.
func (c *Chunker) Chunk(text string, sections []structure.Section, meta schema.ChunkMetadata) ([]schema.Chunk, error) {
	if strings.TrimSpace(text) == "" {
		return nil, schema.NewValidationError("text", "empty document after normalization")
	}
	var chunks []schema.Chunk
	seq := 0
	if structure.Structured(sections) {
		for i, section := range sections {
			idx := i
			body := section.Content
			if section.Title != "" {
				body = section.Title + "\n" + body
			}
			for _, window := range c.windows(body) {
				m := meta
				m.Section = section.Title
				m.ChunkIndex = seq
				chunks = append(chunks, schema.Chunk{
					ID:           ChunkID(window, meta.Source, seq),
					Text:         window,
					SectionIndex: &idx,
					ChunkIndex:   seq,
					Metadata:     m,
				})
				seq++
			}
		}
	} else {
		for _, window := range c.windows(text) {
			m := meta
			m.ChunkIndex = seq
			chunks = append(chunks, schema.Chunk{
				ID:         ChunkID(window, meta.Source, seq),
				Text:       window,
				ChunkIndex: seq,
				Metadata:   m,
			})
			seq++
		}
	}
	if len(chunks) == 0 {
		return nil, schema.NewValidationError("text", "no chunkable content")
	}
	return chunks, nil
}

// windows slides a word window of cfg.SizeWords with step size-overlap. The
// trailing partial window is kept.
func (c *Chunker) windows(text string) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	step := c.cfg.SizeWords - c.cfg.OverlapWords
	var out []string
	for start := 0; start < len(words); start += step {
		end := start + c.cfg.SizeWords
		if end > len(words) {
			end = len(words)
		}
		out = append(out, strings.Join(words[start:end], " "))
		if end == len(words) {
			break
		}
	}
	return out
}

// ChunkID derives a stable chunk id from the chunk's leading text, its source
// and its sequence number.
func ChunkID(text, source string, seq int) string {
	head := text
	if len(head) > 100 {
		head = head[:100]
	}
	h, err := highwayhash.New64(hashKey)
	if err != nil {
		// The key is a compile-time constant of valid length.
		panic(err)
	}
	_, _ = h.Write([]byte(head))
	_, _ = h.Write([]byte(source))
	_, _ = h.Write([]byte(strconv.Itoa(seq)))
	return strconv.FormatUint(h.Sum64(), 16)
}
