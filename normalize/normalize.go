// Package normalize repairs raw extracted text before structure detection and
// chunking. All functions are pure.
package normalize

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// cp1252High maps the 0x80-0x9F range, which differs from latin-1.
var cp1252High = map[byte]rune{
	0x80: '€', 0x82: '‚', 0x83: 'ƒ', 0x84: '„',
	0x85: '…', 0x86: '†', 0x87: '‡', 0x88: 'ˆ',
	0x89: '‰', 0x8a: 'Š', 0x8b: '‹', 0x8c: 'Œ',
	0x8e: 'Ž', 0x91: '‘', 0x92: '’', 0x93: '“',
	0x94: '”', 0x95: '•', 0x96: '–', 0x97: '—',
	0x98: '˜', 0x99: '™', 0x9a: 'š', 0x9b: '›',
	0x9c: 'œ', 0x9e: 'ž', 0x9f: 'Ÿ',
}

// Decode converts raw bytes to a string, trying UTF-8 first and degrading to a
// cp1252/latin-1 byte mapping. It never fails; malformed input yields a
// best-effort string.
func Decode(data []byte) string {
	if utf8.Valid(data) {
		return string(data)
	}
	var sb strings.Builder
	sb.Grow(len(data))
	for _, b := range data {
		if r, ok := cp1252High[b]; ok {
			sb.WriteRune(r)
			continue
		}
		sb.WriteRune(rune(b))
	}
	return sb.String()
}

var asciiFold = strings.NewReplacer(
	"ﬁ", "fi",
	"ﬂ", "fl",
	"ﬃ", "ffi",
	"ﬄ", "ffl",
	"ﬀ", "ff",
	"‘", "'",
	"’", "'",
	"“", `"`,
	"”", `"`,
	"–", "-",
	"—", "-",
	"…", "...",
	" ", " ",
	"•", "*",
)

var (
	hyphenBreak   = regexp.MustCompile(`(\w)-\n[ \t]*(\w)`)
	spaceRuns     = regexp.MustCompile(`[ \t]+`)
	newlineRuns   = regexp.MustCompile(`\n{3,}`)
	trailingSpace = regexp.MustCompile(`[ \t]+\n`)
)

// Clean normalizes whitespace, folds common ligatures and smart punctuation to
// ASCII, strips control characters (keeping newline and tab), and rejoins
// words hyphenated across line breaks.
func Clean(text string) string {
	if text == "" {
		return ""
	}
	text = asciiFold.Replace(text)
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	var sb strings.Builder
	sb.Grow(len(text))
	for _, r := range text {
		if r == '\n' || r == '\t' {
			sb.WriteRune(r)
			continue
		}
		if unicode.IsControl(r) || r == utf8.RuneError {
			continue
		}
		sb.WriteRune(r)
	}
	text = sb.String()
	text = hyphenBreak.ReplaceAllString(text, "$1$2")
	text = spaceRuns.ReplaceAllString(text, " ")
	text = trailingSpace.ReplaceAllString(text, "\n")
	text = newlineRuns.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

var (
	pageFooter    = regexp.MustCompile(`(?mi)^\s*(?:page\s+\d+(?:\s+of\s+\d+)?|-\s*\d+\s*-|\d{1,4})\s*$`)
	reporterCite  = regexp.MustCompile(`(\d+)\s+(U\.S\.C?\.|F\.\s?(?:2d|3d|4th)|F\.\s?Supp\.(?:\s?\d[a-z]*)?|S\.\s?Ct\.)\s+(\d+)`)
	recitalComma  = regexp.MustCompile(`\b(WHEREAS|NOW,?\s+THEREFORE)\s+,`)
	sectionSymbol = regexp.MustCompile(`§\s+(\d)`)
)

// PreprocessLegal applies legal-text specific cleanup on top of Clean: page
// number and footer lines are dropped, reporter citations get single spacing,
// recital keywords keep their comma attached.
func PreprocessLegal(text string) string {
	text = pageFooter.ReplaceAllString(text, "")
	text = reporterCite.ReplaceAllString(text, "$1 $2 $3")
	text = recitalComma.ReplaceAllString(text, "$1,")
	text = sectionSymbol.ReplaceAllString(text, "§$1")
	return Clean(text)
}
