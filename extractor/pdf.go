package extractor

import (
	"bytes"
	"io"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"

	"github.com/lexius/lexius/schema"
)

// PDF extracts text from PDF files. The parser attempt runs first; when it
// yields nothing the raw bytes are filtered down to printable text so a
// partially corrupt file still ingests, flagged by quality assessment later.
type PDF struct{}

func (p *PDF) ContentTypes() []string { return []string{TypePDF} }

func (p *PDF) Extract(data []byte) (Result, error) {
	if len(data) == 0 {
		return Result{}, schema.NewValidationError("file", "empty upload")
	}
	var pages int
	if r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data))); err == nil {
		pages = r.NumPage()
		if reader, err := r.GetPlainText(); err == nil {
			if out, err := io.ReadAll(reader); err == nil && len(out) > 0 {
				return Result{Text: string(out), PageCount: pages}, nil
			}
		}
	}
	return Result{Text: string(printableText(data)), PageCount: pages}, nil
}

func printableText(in []byte) []byte {
	var out bytes.Buffer
	for len(in) > 0 {
		r, size := utf8.DecodeRune(in)
		if r == utf8.RuneError && size == 1 {
			b := in[0]
			if b == '\n' || b == '\r' || b == '\t' || (b >= 32 && b < 127) {
				out.WriteByte(b)
			}
			in = in[1:]
			continue
		}
		in = in[size:]
		if isPrintableRune(r) {
			out.WriteRune(r)
		}
	}
	return out.Bytes()
}

func isPrintableRune(r rune) bool {
	if r == '\n' || r == '\r' || r == '\t' {
		return true
	}
	return r >= 32 && r <= 0x10FFFF
}
