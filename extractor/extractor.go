// Package extractor turns uploaded file bytes into text, keyed by MIME type.
// Each extractor runs an ordered list of attempts and returns a result value;
// failure of a preferred attempt falls through to the next rather than
// erroring out.
package extractor

import (
	"fmt"

	"github.com/lexius/lexius/schema"
)

// Supported MIME types.
const (
	TypePlainText = "text/plain"
	TypePDF       = "application/pdf"
	TypeDOCX      = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
)

// Result is extracted text plus whatever structure the format exposes.
type Result struct {
	Text      string
	PageCount int
}

// Extractor converts one file format to text.
type Extractor interface {
	ContentTypes() []string
	Extract(data []byte) (Result, error)
}

// Registry resolves extractors by MIME type.
type Registry struct {
	byType map[string]Extractor
}

// NewRegistry returns a registry with all built-in extractors registered.
func NewRegistry() *Registry {
	r := &Registry{byType: map[string]Extractor{}}
	r.Register(&Plain{})
	r.Register(&PDF{})
	r.Register(&DOCX{})
	return r
}

// Register adds an extractor for each of its content types.
func (r *Registry) Register(e Extractor) {
	for _, ct := range e.ContentTypes() {
		r.byType[ct] = e
	}
}

// Supported lists the registered MIME types.
func (r *Registry) Supported() []string {
	out := make([]string, 0, len(r.byType))
	for ct := range r.byType {
		out = append(out, ct)
	}
	return out
}

// Extract dispatches to the extractor registered for contentType. An
// unregistered type is a validation error, not a crash.
func (r *Registry) Extract(data []byte, contentType string) (Result, error) {
	e, ok := r.byType[contentType]
	if !ok {
		return Result{}, schema.NewValidationError("contentType",
			fmt.Sprintf("unsupported content type %q", contentType))
	}
	return e.Extract(data)
}
