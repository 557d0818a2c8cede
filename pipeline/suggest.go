package pipeline

import (
	"fmt"

	"github.com/lexius/lexius/schema"
)

const maxSuggestions = 8

// SuggestQueries proposes follow-up questions for a query, specialized by the
// category and legal terms of the best retrieved chunk. Results come from
// Retrieve or Query; an empty result list yields only the generic refinements.
func SuggestQueries(question string, results []schema.RetrievalResult) []string {
	suggestions := []string{
		fmt.Sprintf("What are the key points about %s?", question),
		fmt.Sprintf("How does %s relate to the main agreement?", question),
		fmt.Sprintf("What are the legal implications of %s?", question),
	}

	var category string
	var terms []string
	if len(results) > 0 {
		meta := schema.UnflattenChunkMetadata(results[0].Metadata)
		category = meta.Category
		terms = meta.LegalTerms
	}
	switch category {
	case "employment":
		suggestions = append(suggestions,
			"What are the compensation details?",
			"What are the termination conditions?",
			"What confidentiality requirements exist?",
			"What benefits are provided?",
		)
	case "nda":
		suggestions = append(suggestions,
			"What information is considered confidential?",
			"What are the penalties for disclosure?",
			"How long does the confidentiality obligation last?",
		)
	}
	if len(terms) > 3 {
		terms = terms[:3]
	}
	for _, term := range terms {
		suggestions = append(suggestions, "Tell me more about "+term)
	}
	if len(suggestions) > maxSuggestions {
		suggestions = suggestions[:maxSuggestions]
	}
	return suggestions
}
