package option

import (
	"bufio"
	"io"
	"strings"
)

// Options configures source filtering for batch ingestion walks.
type Options struct {

	// Exclusions contains patterns of files/directories to exclude
	Exclusions []string

	// Inclusions contains patterns of files/directories to include
	Inclusions []string

	// MaxFileSize is the maximum size of files to ingest in bytes
	MaxFileSize int
}

// Options returns a slice of Option functions based on the Options fields
func (o *Options) Options() []Option {
	var result []Option
	if o.MaxFileSize > 0 {
		result = append(result, WithMaxIngestableSize(o.MaxFileSize))
	}
	if o.Exclusions != nil {
		result = append(result, WithExclusionPatterns(o.Exclusions...))
	}
	if o.Inclusions != nil {
		result = append(result, WithInclusionPatterns(o.Inclusions...))
	}
	return result
}

// NewOptions creates a new Options instance with default values
func NewOptions(opts ...Option) *Options {
	options := &Options{}
	for _, opt := range opts {
		opt(options)
	}
	if options.Exclusions == nil {
		options.Exclusions = getDefaultPatterns()
	}
	return options
}

// Option is a function that modifies Options
type Option func(*Options)

// WithExclusionPatterns sets exclusion patterns
func WithExclusionPatterns(patterns ...string) Option {
	return func(o *Options) {
		o.Exclusions = append(o.Exclusions, patterns...)
	}
}

// WithMaxIngestableSize sets the maximum ingestable file size
func WithMaxIngestableSize(size int) Option {
	return func(o *Options) {
		o.MaxFileSize = size
	}
}

// WithPatternsFrom adds exclusion patterns read from a pattern file
// (one pattern per line, # comments).
func WithPatternsFrom(reader io.Reader) Option {
	return func(o *Options) {
		if patterns := parsePatterns(reader); len(patterns) > 0 {
			o.Exclusions = append(o.Exclusions, patterns...)
		}
	}
}

// WithInclusionPatterns adds patterns to include
func WithInclusionPatterns(patterns ...string) Option {
	return func(o *Options) {
		o.Inclusions = append(o.Inclusions, patterns...)
	}
}

// WithDefaultExclusionPatterns adds default exclusion patterns
func WithDefaultExclusionPatterns() Option {
	return func(o *Options) {
		o.Exclusions = append(o.Exclusions, getDefaultPatterns()...)
	}
}

// getDefaultPatterns returns paths and file patterns that never belong in a
// document corpus.
func getDefaultPatterns() []string {
	return []string{
		// Directories
		".git/",
		".svn/",
		".idea/",
		".vscode/",
		"__MACOSX/",
		"node_modules/",
		"tmp/",
		"cache/",

		// Files
		".DS_Store",
		"Thumbs.db",
		"desktop.ini",
		"~$*",
		"*.tmp",
		"*.bak",
		"*.swp",
		"*.lock",
		"*.log",
		"*.exe",
		"*.dll",
		"*.zip",
		"*.tar.gz",
	}
}

// parsePatterns reads gitignore-style patterns from a reader
func parsePatterns(reader io.Reader) []string {
	var patterns []string
	scanner := bufio.NewScanner(reader)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		patterns = append(patterns, line)
	}

	return patterns
}
