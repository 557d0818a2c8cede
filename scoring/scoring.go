// Package scoring computes per-chunk legal density and complexity scores.
package scoring

import (
	"regexp"
	"strings"

	"github.com/lexius/lexius/entity"
)

var sentenceSplit = regexp.MustCompile(`[.!?]+`)

// Scores holds both chunk scores, each in [0,1].
type Scores struct {
	Legal      float64
	Complexity float64
}

// Score computes legal density and complexity for a chunk of text. Legal
// density is vocabulary hits per word scaled by 10; complexity blends average
// sentence length, legal density and citation density 0.4/0.4/0.2.
func Score(text string) Scores {
	words := strings.Fields(text)
	if len(words) == 0 {
		return Scores{}
	}
	legal := float64(len(entity.Terms(text))) / float64(len(words)) * 10
	if legal > 1 {
		legal = 1
	}

	avgSentence := averageSentenceLength(text)
	sentencePart := avgSentence / 20
	if sentencePart > 1 {
		sentencePart = 1
	}
	citationPart := float64(entity.CitationCount(text)) / 10
	if citationPart > 1 {
		citationPart = 1
	}
	return Scores{
		Legal:      legal,
		Complexity: 0.4*sentencePart + 0.4*legal + 0.2*citationPart,
	}
}

func averageSentenceLength(text string) float64 {
	var total, count int
	for _, s := range sentenceSplit.Split(text, -1) {
		n := len(strings.Fields(s))
		if n == 0 {
			continue
		}
		total += n
		count++
	}
	if count == 0 {
		return 0
	}
	return float64(total) / float64(count)
}
