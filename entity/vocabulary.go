package entity

// Vocabulary maps legal terms to relevance weights. Membership is tested with
// a case-insensitive substring match; the weights are consumed by scoring, not
// by extraction.
var Vocabulary = map[string]float64{
	// Contract terms
	"contract": 2.0, "agreement": 2.0, "party": 1.8, "parties": 1.8,
	"whereas": 2.2, "therefore": 1.5, "covenant": 2.5, "covenant not to": 3.0,

	// Employment terms
	"employee": 2.0, "employer": 2.0, "employment": 2.0, "termination": 2.5,
	"compensation": 2.3, "salary": 2.0, "benefits": 1.8, "confidentiality": 2.8,
	"non-disclosure": 3.0, "non-compete": 3.0, "severance": 2.5,

	// Legal procedures
	"jurisdiction": 2.5, "governing law": 3.0, "dispute resolution": 2.8,
	"arbitration": 2.5, "litigation": 2.5, "mediation": 2.3,

	// Rights and obligations
	"rights": 2.0, "obligations": 2.0, "duties": 1.8, "responsibilities": 1.8,
	"liability": 2.5, "indemnity": 2.8, "warranty": 2.3, "representation": 2.0,

	// Time and dates
	"effective date": 2.5, "term": 1.8, "renewal": 2.0, "expiration": 2.0,
	"notice period": 2.3, "advance notice": 2.3,

	// Financial terms
	"payment": 2.0, "invoice": 1.8, "penalty": 2.3, "damages": 2.5,
	"liquidated damages": 3.0, "interest": 1.8, "late fee": 2.0,
}
