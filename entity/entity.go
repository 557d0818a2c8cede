// Package entity extracts citations, legal terms, dates, monetary amounts and
// parties from legal text.
package entity

import (
	"context"
	"regexp"
	"sort"
	"strings"
)

// CitationType tags the family a recognized citation belongs to.
type CitationType string

const (
	CaseLaw           CitationType = "case_law"
	FederalRegulation CitationType = "federal_regulation"
	FederalStatute    CitationType = "federal_statute"
	Constitutional    CitationType = "constitutional"
	CodeSection       CitationType = "code_section"
	Unknown           CitationType = "unknown"
)

// Entities groups everything extracted from one text.
type Entities struct {
	Citations       []string
	LegalTerms      []string
	Dates           []string
	MonetaryAmounts []string
	Parties         []string
	Organizations   []string
}

// Precedent is one located citation with its context window and a heuristic
// relevance score.
type Precedent struct {
	Citation  string
	Start     int
	End       int
	Context   string
	Type      CitationType
	Relevance float64
}

// NER is an optional named-entity collaborator. A nil NER degrades to empty
// party and organization lists.
type NER interface {
	ExtractEntities(ctx context.Context, text string) (organizations, persons []string, err error)
}

// Citation pattern families. All matches across all patterns are unioned.
var citationPatterns = []*regexp.Regexp{
	// Case citations, e.g. "Smith v. Jones, 123 F.3d 456 (2021)"
	regexp.MustCompile(`(?i)\b\w+\s+v\.?\s+\w+,?\s+\d+\s+\w+\.?\s*\d*\w*\s+\d+\s*\(\d{4}\)`),
	// Statute citations, e.g. "42 U.S.C. § 1983"
	regexp.MustCompile(`(?i)\b\d+\s+[A-Z]+\.?[A-Z]*\.?[A-Z]*\.?\s*§\s*\d+`),
	// Code sections, e.g. "Section 1234 of the Civil Code"
	regexp.MustCompile(`(?i)\bsection\s+\d+\s+of\s+the\s+\w+\s+code\b`),
	// Federal regulations, e.g. "29 CFR 1630.2"
	regexp.MustCompile(`(?i)\b\d+\s+CFR\s+\d+\.\d+\b`),
	// Constitutional citations, e.g. "U.S. Const. amend. XIV"
	regexp.MustCompile(`(?i)\bU\.?S\.?\s+Const\.?\s+amend\.?\s+[IVXLC]+\b`),
}

var (
	moneyPattern = regexp.MustCompile(`\$[\d,]+(?:\.\d{2})?`)
	datePattern  = regexp.MustCompile(`\b\d{1,2}/\d{1,2}/\d{4}\b|\b[A-Z][a-z]+\s+\d{1,2},\s+\d{4}\b`)
)

var relevanceKeywords = []string{"holding", "rule", "precedent", "established", "court held"}

// Extractor runs pattern extraction with an optional NER collaborator.
type Extractor struct {
	ner NER
}

// New returns an Extractor. ner may be nil.
func New(ner NER) *Extractor {
	return &Extractor{ner: ner}
}

// Extract pulls all recognized entities from text. NER failure or absence
// never fails extraction; the party and organization lists just stay empty.
func (e *Extractor) Extract(ctx context.Context, text string) Entities {
	var out Entities
	for _, p := range citationPatterns {
		out.Citations = append(out.Citations, p.FindAllString(text, -1)...)
	}
	out.MonetaryAmounts = moneyPattern.FindAllString(text, -1)
	out.Dates = datePattern.FindAllString(text, -1)
	out.LegalTerms = Terms(text)
	if e.ner != nil {
		if orgs, persons, err := e.ner.ExtractEntities(ctx, text); err == nil {
			out.Organizations = orgs
			out.Parties = persons
		}
	}
	return out
}

// Terms returns every vocabulary term present in text, sorted for stable
// output.
func Terms(text string) []string {
	lower := strings.ToLower(text)
	var found []string
	for term := range Vocabulary {
		if strings.Contains(lower, term) {
			found = append(found, term)
		}
	}
	sort.Strings(found)
	return found
}

// Precedents locates citations with surrounding context and scores each,
// returning them ordered by relevance descending.
func (e *Extractor) Precedents(text string) []Precedent {
	var out []Precedent
	for _, p := range citationPatterns {
		for _, loc := range p.FindAllStringIndex(text, -1) {
			start, end := loc[0], loc[1]
			ctxStart := start - 100
			if ctxStart < 0 {
				ctxStart = 0
			}
			ctxEnd := end + 100
			if ctxEnd > len(text) {
				ctxEnd = len(text)
			}
			citation := text[start:end]
			window := text[ctxStart:ctxEnd]
			out = append(out, Precedent{
				Citation:  citation,
				Start:     start,
				End:       end,
				Context:   window,
				Type:      ClassifyCitation(citation),
				Relevance: citationRelevance(citation, window),
			})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Relevance > out[j].Relevance })
	return out
}

// ClassifyCitation tags a citation string with its family.
func ClassifyCitation(citation string) CitationType {
	lower := strings.ToLower(citation)
	switch {
	case strings.Contains(lower, "v."):
		return CaseLaw
	case strings.Contains(lower, "cfr"):
		return FederalRegulation
	case strings.Contains(lower, "u.s.c"):
		return FederalStatute
	case strings.Contains(lower, "const"):
		return Constitutional
	case strings.Contains(lower, "section"):
		return CodeSection
	default:
		return Unknown
	}
}

// CitationCount reports the total number of citation matches in text.
func CitationCount(text string) int {
	n := 0
	for _, p := range citationPatterns {
		n += len(p.FindAllStringIndex(text, -1))
	}
	return n
}

func citationRelevance(citation, window string) float64 {
	score := 0.5
	if strings.Contains(strings.ToLower(citation), "v.") {
		score += 0.2
	}
	lower := strings.ToLower(window)
	for _, kw := range relevanceKeywords {
		if strings.Contains(lower, kw) {
			score += 0.1
		}
	}
	if score > 1.0 {
		score = 1.0
	}
	return score
}
