package extractor

import (
	"archive/zip"
	"bytes"
	"strings"
	"testing"

	"github.com/lexius/lexius/schema"
)

func TestRegistryUnsupportedType(t *testing.T) {
	r := NewRegistry()
	_, err := r.Extract([]byte("data"), "image/png")
	if !schema.IsValidation(err) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestRegistrySupported(t *testing.T) {
	r := NewRegistry()
	supported := r.Supported()
	want := map[string]bool{TypePlainText: true, TypePDF: true, TypeDOCX: true}
	if len(supported) != len(want) {
		t.Fatalf("supported = %v", supported)
	}
	for _, ct := range supported {
		if !want[ct] {
			t.Errorf("unexpected content type %s", ct)
		}
	}
}

func TestPlainExtract(t *testing.T) {
	r := NewRegistry()
	res, err := r.Extract([]byte("termination clause text"), TypePlainText)
	if err != nil {
		t.Fatal(err)
	}
	if res.Text != "termination clause text" {
		t.Errorf("text = %q", res.Text)
	}

	// Latin-1 input decodes instead of failing.
	res, err = r.Extract([]byte{'c', 'a', 'f', 0xe9}, TypePlainText)
	if err != nil {
		t.Fatal(err)
	}
	if res.Text != "café" {
		t.Errorf("text = %q", res.Text)
	}

	if _, err = r.Extract(nil, TypePlainText); !schema.IsValidation(err) {
		t.Errorf("expected validation error for empty upload, got %v", err)
	}
}

const docxDocumentXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>
    <w:p><w:r><w:t>SECTION 1. Definitions</w:t></w:r></w:p>
    <w:p><w:r><w:t>The term </w:t></w:r><w:r><w:t>Employee</w:t></w:r><w:r><w:t> means the undersigned.</w:t></w:r></w:p>
    <w:p><w:r><w:t>First</w:t><w:tab/><w:t>Second</w:t></w:r></w:p>
  </w:body>
</w:document>`

func docxFixture(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range map[string]string{
		"[Content_Types].xml": `<Types/>`,
		"word/document.xml":   docxDocumentXML,
	} {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestDOCXExtract(t *testing.T) {
	r := NewRegistry()
	res, err := r.Extract(docxFixture(t), TypeDOCX)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimRight(res.Text, "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 paragraphs, got %d: %q", len(lines), res.Text)
	}
	if lines[0] != "SECTION 1. Definitions" {
		t.Errorf("line 0 = %q", lines[0])
	}
	if lines[1] != "The term Employee means the undersigned." {
		t.Errorf("line 1 = %q", lines[1])
	}
	if lines[2] != "First\tSecond" {
		t.Errorf("line 2 = %q", lines[2])
	}
}

func TestDOCXCorruptFallsBack(t *testing.T) {
	r := NewRegistry()
	res, err := r.Extract([]byte("not a zip archive but readable text"), TypeDOCX)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(res.Text, "readable text") {
		t.Errorf("fallback should keep printable bytes, got %q", res.Text)
	}
}

func TestTypeForPath(t *testing.T) {
	testCases := []struct {
		path     string
		expected string
		ok       bool
	}{
		{"contract.txt", TypePlainText, true},
		{"notes.MD", TypePlainText, true},
		{"filing.pdf", TypePDF, true},
		{"agreement.docx", TypeDOCX, true},
		{"image.png", "", false},
		{"noextension", "", false},
	}
	for _, tc := range testCases {
		ct, ok := TypeForPath(tc.path)
		if ct != tc.expected || ok != tc.ok {
			t.Errorf("TypeForPath(%q) = (%q, %v), expected (%q, %v)", tc.path, ct, ok, tc.expected, tc.ok)
		}
	}
}
