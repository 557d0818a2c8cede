package normalize

import "unicode"

// Quality flags how trustworthy extracted text looks after cleaning.
type Quality string

const (
	QualityGood Quality = "good"
	QualityPoor Quality = "poor"
)

// Report carries the ratios behind a quality decision so callers can log them.
type Report struct {
	Quality       Quality
	ASCIIRatio    float64
	AlphaRatio    float64
	SpaceRatio    float64
	DistinctRunes int
	Length        int
}

// Assess detects garbled extraction output. Text is flagged poor when the
// printable-ASCII ratio drops below 0.3, the alphabetic ratio below 0.2, the
// whitespace ratio leaves the [0.05, 0.8] band, or the distinct character
// count falls under max(5, 10% of length).
func Assess(text string) Report {
	runes := []rune(text)
	n := len(runes)
	if n == 0 {
		return Report{Quality: QualityPoor}
	}
	var ascii, alpha, space int
	distinct := make(map[rune]struct{}, 64)
	for _, r := range runes {
		if r == '\n' || r == '\t' || (r >= 0x20 && r < 0x7f) {
			ascii++
		}
		if unicode.IsLetter(r) {
			alpha++
		}
		if unicode.IsSpace(r) {
			space++
		}
		distinct[r] = struct{}{}
	}
	rep := Report{
		Quality:       QualityGood,
		ASCIIRatio:    float64(ascii) / float64(n),
		AlphaRatio:    float64(alpha) / float64(n),
		SpaceRatio:    float64(space) / float64(n),
		DistinctRunes: len(distinct),
		Length:        n,
	}
	minDistinct := n / 10
	if minDistinct < 5 {
		minDistinct = 5
	}
	switch {
	case rep.ASCIIRatio < 0.3,
		rep.AlphaRatio < 0.2,
		rep.SpaceRatio > 0.8,
		rep.SpaceRatio < 0.05,
		rep.DistinctRunes < minDistinct:
		rep.Quality = QualityPoor
	}
	return rep
}
