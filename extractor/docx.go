package extractor

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"io"
	"strings"

	"github.com/lexius/lexius/schema"
)

// DOCX extracts text from DOCX files using a pure Go zip/xml walk of
// word/document.xml. Unreadable archives fall back to printable-text
// filtering.
type DOCX struct{}

func (d *DOCX) ContentTypes() []string { return []string{TypeDOCX} }

func (d *DOCX) Extract(data []byte) (Result, error) {
	if len(data) == 0 {
		return Result{}, schema.NewValidationError("file", "empty upload")
	}
	text := docxText(data)
	if len(text) == 0 {
		text = printableText(data)
	}
	return Result{Text: string(text)}, nil
}

func docxText(data []byte) []byte {
	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil
	}
	var docFile *zip.File
	for _, f := range r.File {
		if strings.EqualFold(f.Name, "word/document.xml") {
			docFile = f
			break
		}
	}
	if docFile == nil {
		return nil
	}
	rc, err := docFile.Open()
	if err != nil {
		return nil
	}
	defer rc.Close()
	return docxTextFromXML(rc)
}

func docxTextFromXML(r io.Reader) []byte {
	dec := xml.NewDecoder(r)
	var buf bytes.Buffer
	var lastWasNewline bool
	for {
		tok, err := dec.Token()
		if err != nil {
			break
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t", "instrText":
				var text string
				if err := dec.DecodeElement(&text, &t); err == nil {
					buf.WriteString(text)
					lastWasNewline = false
				}
			case "tab":
				buf.WriteByte('\t')
				lastWasNewline = false
			case "br", "cr":
				buf.WriteByte('\n')
				lastWasNewline = true
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "p", "tr":
				if !lastWasNewline {
					buf.WriteByte('\n')
					lastWasNewline = true
				}
			case "tc":
				if !lastWasNewline {
					buf.WriteByte('\t')
					lastWasNewline = false
				}
			}
		}
	}
	return buf.Bytes()
}
