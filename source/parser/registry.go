// Package parser normalizes uploaded catalog files into documents the
// chunkers understand. Binary and presentation formats are converted to
// plain text; every other format passes through with its tag unchanged.
package parser

import (
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/c360studio/scriptorium/source"
)

// Parser converts a file of one family into a Document.
type Parser interface {
	// Parse converts the raw file content.
	Parse(filename string, content []byte) (source.Document, error)

	// Extensions lists the lower-cased extensions handled, without dots.
	Extensions() []string
}

// Registry manages document parsers.
type Registry struct {
	mu      sync.RWMutex
	parsers map[string]Parser // keyed by extension
}

// DefaultRegistry is the global parser registry with default parsers.
var DefaultRegistry = NewRegistry()

// NewRegistry creates a new parser registry with the PDF and HTML parsers.
func NewRegistry() *Registry {
	r := &Registry{
		parsers: make(map[string]Parser),
	}

	r.Register(NewPDFParser())
	r.Register(NewHTMLParser())

	return r
}

// Register adds a parser to the registry, replacing earlier parsers for the
// same extensions.
func (r *Registry) Register(p Parser) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ext := range p.Extensions() {
		r.parsers[ext] = p
	}
}

// Lookup returns the parser for a format tag, or nil when the tag passes
// through unchanged.
func (r *Registry) Lookup(tag string) Parser {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.parsers[normalize(tag)]
}

// Parse converts a file into a Document. Files without a dedicated parser
// keep their content and take their tag from the file extension.
func (r *Registry) Parse(filename string, content []byte) (source.Document, error) {
	return r.ParseAs(filename, Tag(filename), content)
}

// ParseAs is Parse with an explicit format tag.
func (r *Registry) ParseAs(filename, tag string, content []byte) (source.Document, error) {
	if p := r.Lookup(tag); p != nil {
		return p.Parse(filename, content)
	}
	return source.Document{
		Content:   string(content),
		Extension: normalize(tag),
		Filename:  filename,
	}, nil
}

// Extensions returns the registered extensions in sorted order.
func (r *Registry) Extensions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	exts := make([]string, 0, len(r.parsers))
	for ext := range r.parsers {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// Tag returns a file's format tag: its lower-cased extension without the dot.
func Tag(filename string) string {
	return normalize(filepath.Ext(filename))
}

func normalize(tag string) string {
	return strings.TrimPrefix(strings.ToLower(strings.TrimSpace(tag)), ".")
}
