package chunker

import (
	"fmt"
	"strings"
	"testing"

	"github.com/lexius/lexius/schema"
	"github.com/lexius/lexius/structure"
)

func words(n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = fmt.Sprintf("w%d", i)
	}
	return strings.Join(parts, " ")
}

func TestConfigValidate(t *testing.T) {
	testCases := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{name: "defaults", cfg: DefaultConfig(), wantErr: false},
		{name: "zero size", cfg: Config{SizeWords: 0, OverlapWords: 0}, wantErr: true},
		{name: "negative overlap", cfg: Config{SizeWords: 100, OverlapWords: -1}, wantErr: true},
		{name: "overlap equals size", cfg: Config{SizeWords: 50, OverlapWords: 50}, wantErr: true},
		{name: "overlap above size", cfg: Config{SizeWords: 50, OverlapWords: 60}, wantErr: true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if tc.wantErr && err == nil {
				t.Error("expected validation error, got nil")
			}
			if !tc.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if tc.wantErr && !schema.IsValidation(err) {
				t.Errorf("expected validation error, got %T", err)
			}
		})
	}
}

func TestChunkWindows(t *testing.T) {
	ck, err := New(Config{SizeWords: 500, OverlapWords: 50})
	if err != nil {
		t.Fatal(err)
	}
	chunks, err := ck.Chunk(words(1050), nil, schema.ChunkMetadata{Source: "a.txt"})
	if err != nil {
		t.Fatal(err)
	}
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	expectedBounds := [][2]int{{0, 500}, {450, 950}, {900, 1050}}
	for i, bounds := range expectedBounds {
		fields := strings.Fields(chunks[i].Text)
		if len(fields) != bounds[1]-bounds[0] {
			t.Errorf("chunk %d has %d words, expected %d", i, len(fields), bounds[1]-bounds[0])
		}
		if fields[0] != fmt.Sprintf("w%d", bounds[0]) {
			t.Errorf("chunk %d starts at %s, expected w%d", i, fields[0], bounds[0])
		}
		if last := fields[len(fields)-1]; last != fmt.Sprintf("w%d", bounds[1]-1) {
			t.Errorf("chunk %d ends at %s, expected w%d", i, last, bounds[1]-1)
		}
		if chunks[i].ChunkIndex != i {
			t.Errorf("chunk %d index = %d", i, chunks[i].ChunkIndex)
		}
	}
}

func TestChunkShortText(t *testing.T) {
	ck, _ := New(DefaultConfig())
	chunks, err := ck.Chunk("short agreement text", nil, schema.ChunkMetadata{Source: "s.txt"})
	if err != nil {
		t.Fatal(err)
	}
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].Text != "short agreement text" {
		t.Errorf("chunk text = %q", chunks[0].Text)
	}
}

func TestChunkEmptyText(t *testing.T) {
	ck, _ := New(DefaultConfig())
	if _, err := ck.Chunk("   \n ", nil, schema.ChunkMetadata{}); !schema.IsValidation(err) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestChunkDeterministicIDs(t *testing.T) {
	ck, _ := New(DefaultConfig())
	meta := schema.ChunkMetadata{Source: "contract.pdf"}
	first, err := ck.Chunk(words(450), nil, meta)
	if err != nil {
		t.Fatal(err)
	}
	second, err := ck.Chunk(words(450), nil, meta)
	if err != nil {
		t.Fatal(err)
	}
	if len(first) != len(second) {
		t.Fatalf("chunk counts differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].ID != second[i].ID {
			t.Errorf("chunk %d id changed between runs: %s vs %s", i, first[i].ID, second[i].ID)
		}
	}
	other, err := ck.Chunk(words(450), nil, schema.ChunkMetadata{Source: "other.pdf"})
	if err != nil {
		t.Fatal(err)
	}
	if first[0].ID == other[0].ID {
		t.Error("ids should differ across sources")
	}
}

func TestChunkSectionAware(t *testing.T) {
	ck, _ := New(Config{SizeWords: 10, OverlapWords: 2})
	sections := []structure.Section{
		{Title: "SECTION 1. Scope", Content: words(5)},
		{Title: "SECTION 2. Term", Content: words(25)},
	}
	chunks, err := ck.Chunk("ignored when structured", sections, schema.ChunkMetadata{Source: "c.txt"})
	if err != nil {
		t.Fatal(err)
	}
	if len(chunks) < 3 {
		t.Fatalf("expected at least 3 chunks, got %d", len(chunks))
	}
	if chunks[0].SectionIndex == nil || *chunks[0].SectionIndex != 0 {
		t.Error("first chunk should belong to section 0")
	}
	if chunks[0].Metadata.Section != "SECTION 1. Scope" {
		t.Errorf("first chunk section = %q", chunks[0].Metadata.Section)
	}
	last := chunks[len(chunks)-1]
	if last.SectionIndex == nil || *last.SectionIndex != 1 {
		t.Error("last chunk should belong to section 1")
	}
	if !strings.HasPrefix(chunks[0].Text, "SECTION 1. Scope") {
		t.Errorf("section title should prefix the chunk body, got %q", chunks[0].Text)
	}
	for i, c := range chunks {
		if c.ChunkIndex != i {
			t.Errorf("chunk %d carries index %d; sequence must be global", i, c.ChunkIndex)
		}
	}
}

func TestChunkCoverage(t *testing.T) {
	ck, _ := New(Config{SizeWords: 100, OverlapWords: 20})
	text := words(730)
	chunks, err := ck.Chunk(text, nil, schema.ChunkMetadata{})
	if err != nil {
		t.Fatal(err)
	}
	seen := map[string]bool{}
	for _, c := range chunks {
		for _, w := range strings.Fields(c.Text) {
			seen[w] = true
		}
	}
	for _, w := range strings.Fields(text) {
		if !seen[w] {
			t.Fatalf("word %s lost during chunking", w)
		}
	}
}
