// Package structure detects section boundaries in legal documents.
package structure

import (
	"regexp"
	"strings"
)

// Section is one detected document section with its offsets into the source
// text.
type Section struct {
	Title   string
	Content string
	Start   int
	End     int
}

// Header patterns are applied in order; the first match wins for a line.
var headerPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^\s*(?:SECTION|ARTICLE|CLAUSE)\s+[\dIVXLC]+[.:)]?\s*`),
	regexp.MustCompile(`^\s*\d+\.\s+\S`),
	regexp.MustCompile(`^\s*\([a-z]\)\s+\S`),
	regexp.MustCompile(`(?i)^\s*(?:WHEREAS|NOW,?\s+THEREFORE|IN WITNESS WHEREOF)\b`),
}

func isHeader(line string) bool {
	for _, p := range headerPatterns {
		if p.MatchString(line) {
			return true
		}
	}
	return false
}

// Extract scans text line by line and groups it into sections. A line matching
// a header pattern opens a new section titled with that line; subsequent
// non-header lines accumulate as its content. Text before the first header
// forms an untitled preamble section when non-empty.
func Extract(text string) []Section {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	var sections []Section
	var current *Section
	var content strings.Builder

	flush := func(end int) {
		if current == nil {
			return
		}
		current.Content = strings.TrimSpace(content.String())
		current.End = end
		if current.Title != "" || current.Content != "" {
			sections = append(sections, *current)
		}
		current = nil
		content.Reset()
	}

	offset := 0
	for _, line := range strings.SplitAfter(text, "\n") {
		lineStart := offset
		offset += len(line)
		trimmed := strings.TrimRight(line, "\n")
		if isHeader(trimmed) {
			flush(lineStart)
			current = &Section{Title: strings.TrimSpace(trimmed), Start: lineStart}
			continue
		}
		if strings.TrimSpace(trimmed) == "" {
			continue
		}
		if current == nil {
			current = &Section{Start: lineStart}
		}
		if content.Len() > 0 {
			content.WriteByte('\n')
		}
		content.WriteString(trimmed)
	}
	flush(len(text))
	return sections
}

// Structured reports whether the extracted sections justify section-aware
// chunking. Zero or one section means the document should be treated as a
// single unstructured body.
func Structured(sections []Section) bool {
	return len(sections) >= 2
}
