// Package classify assigns a legal category to a document.
package classify

import "strings"

// General is returned when no category keywords match.
const General = "general"

type category struct {
	name     string
	keywords []string
}

// Categories are scored in declaration order; ties resolve to the earlier one.
var categories = []category{
	{"contract", []string{"agreement", "contract", "whereas", "party", "consideration"}},
	{"employment", []string{"employment", "employee", "employer", "compensation", "benefits"}},
	{"lease", []string{"lease", "tenant", "landlord", "rent", "premises"}},
	{"nda", []string{"non-disclosure", "confidential", "proprietary", "trade secret"}},
	{"terms_of_service", []string{"terms of service", "terms and conditions", "user agreement"}},
	{"privacy_policy", []string{"privacy policy", "personal information", "data collection"}},
	{"license", []string{"license", "licensed", "licensor", "licensee"}},
	{"will", []string{"last will", "testament", "executor", "beneficiary"}},
	{"power_of_attorney", []string{"power of attorney", "attorney-in-fact", "principal"}},
}

// Classify returns the category whose keyword set scores highest against the
// text, or General when nothing matches.
func Classify(text string) string {
	lower := strings.ToLower(text)
	best, bestScore := General, 0
	for _, c := range categories {
		score := 0
		for _, kw := range c.keywords {
			if strings.Contains(lower, kw) {
				score++
			}
		}
		if score > bestScore {
			best, bestScore = c.name, score
		}
	}
	return best
}

// Categories lists the known category names in declaration order, General
// last.
func Categories() []string {
	out := make([]string, 0, len(categories)+1)
	for _, c := range categories {
		out = append(out, c.name)
	}
	return append(out, General)
}
