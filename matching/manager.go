package matching

import (
	"path/filepath"
	"strings"

	"github.com/viant/afs"
	"github.com/viant/afs/url"

	"github.com/lexius/lexius/matching/option"
)

// Manager decides which files a batch ingestion walk should skip.
type Manager struct {
	options *option.Options
	fs      afs.Service
}

// New creates a manager with the given options
func New(opts ...option.Option) *Manager {
	options := option.NewOptions(opts...)
	manager := &Manager{
		options: options,
		fs:      afs.New(),
	}
	return manager
}

// IsExcluded checks if a path should be excluded based on the patterns
func (m *Manager) IsExcluded(location string, size int) bool {
	if m.options.MaxFileSize > 0 {
		if size > m.options.MaxFileSize {
			return true
		}
	}

	path := url.Path(location)
	// Normalize path to use forward slashes
	path = filepath.ToSlash(path)

	if len(m.options.Inclusions) > 0 {
		included := m.isIncluded(path)
		if !included {
			return true
		}
	}

	for _, pattern := range m.options.Exclusions {
		pattern = strings.TrimSpace(pattern)
		// Skip comments or empty lines
		if pattern == "" || strings.HasPrefix(pattern, "#") {
			continue
		}

		if m.isExcluded(path, pattern) {
			return true
		}
	}

	return false
}

func (m *Manager) isExcluded(path string, pattern string) bool {
	// Direct substring match (common case for directories)
	if strings.Contains(path, pattern) {
		return true
	}

	// Try filepath pattern matching (like .gitignore patterns)
	cleanPattern := strings.TrimPrefix(pattern, "/")
	if matched, _ := filepath.Match(cleanPattern, path); matched {
		return true
	}
	if matched, _ := filepath.Match("*/"+cleanPattern, path); matched {
		return true
	}

	// Match just basename
	baseName := filepath.Base(path)
	if matched, _ := filepath.Match(cleanPattern, baseName); matched {
		return true
	}
	if pattern == baseName || strings.HasSuffix(pattern, "/"+baseName) {
		return true
	}
	return false
}

func (m *Manager) isIncluded(path string) bool {
	var included bool
	for _, pattern := range m.options.Inclusions {
		pattern = strings.TrimSpace(pattern)
		// Skip comments or empty lines
		if pattern == "" || strings.HasPrefix(pattern, "#") {
			continue
		}
		if strings.Contains(path, pattern) {
			included = true
			break
		}
		cleanPattern := strings.TrimPrefix(pattern, "/")
		if matched, _ := filepath.Match(cleanPattern, filepath.Base(path)); matched {
			included = true
			break
		}
	}
	return included
}
