package extractor

import (
	"path/filepath"
	"strings"
)

// TypeForPath maps a file name to a supported MIME type by extension.
func TypeForPath(name string) (string, bool) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".txt", ".md", ".text":
		return TypePlainText, true
	case ".pdf":
		return TypePDF, true
	case ".docx":
		return TypeDOCX, true
	}
	return "", false
}
