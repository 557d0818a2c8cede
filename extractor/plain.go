package extractor

import (
	"github.com/lexius/lexius/normalize"
	"github.com/lexius/lexius/schema"
)

// Plain handles text/plain uploads through the decode ladder.
type Plain struct{}

func (p *Plain) ContentTypes() []string { return []string{TypePlainText} }

func (p *Plain) Extract(data []byte) (Result, error) {
	if len(data) == 0 {
		return Result{}, schema.NewValidationError("file", "empty upload")
	}
	return Result{Text: normalize.Decode(data)}, nil
}
