// Package chunker splits catalog documents into bounded, self-contained chunks.
//
// Each format family has its own strategy (tabular, JSON, markup, Turtle and
// plain text). Every strategy falls back to plain-text splitting when the
// document cannot be parsed in its declared notation.
package chunker

import (
	"fmt"
	"unicode/utf8"

	"github.com/c360studio/scriptorium/source"
)

// Strategy names a chunking strategy.
type Strategy string

// Chunking strategies, one per supported format family.
const (
	StrategyTabular   Strategy = "tabular"
	StrategyObject    Strategy = "json"
	StrategyMarkup    Strategy = "markup"
	StrategyTEI       Strategy = "tei-msdesc"
	StrategyTurtle    Strategy = "turtle"
	StrategyPlainText Strategy = "plaintext"
)

// Chunker turns one document body into an ordered sequence of chunk strings.
type Chunker interface {
	// Name returns the strategy identifier.
	Name() string

	// Chunk splits content. It never fails: unparseable input is
	// handled by falling back to plain-text splitting.
	Chunk(content string) []string
}

// Config holds chunking configuration.
type Config struct {
	// Size is the chunk size threshold in characters. The Turtle
	// strategy reads it as a block count.
	Size int `yaml:"size" json:"size"`

	// OverlapPercent is the share of Size repeated between consecutive
	// chunks for strategies that support overlap.
	OverlapPercent int `yaml:"overlap_percent" json:"overlap_percent"`

	// MaxRows is the number of data rows per tabular chunk.
	MaxRows int `yaml:"max_rows" json:"max_rows"`

	// TEIMsDesc splits TEI documents per msDesc element instead of per
	// top-level child.
	TEIMsDesc bool `yaml:"tei_msdesc" json:"tei_msdesc"`
}

// DefaultConfig returns the standard chunking thresholds.
func DefaultConfig() Config {
	return Config{
		Size:           2000,
		OverlapPercent: 10,
		MaxRows:        50,
	}
}

// Overlap returns the overlap size derived from Size and OverlapPercent.
func (c Config) Overlap() int {
	return c.Size * c.OverlapPercent / 100
}

// Validate checks if the configuration is valid.
func (c Config) Validate() error {
	if c.Size <= 0 {
		return fmt.Errorf("Size must be positive, got %d", c.Size)
	}
	if c.OverlapPercent < 0 || c.OverlapPercent >= 100 {
		return fmt.Errorf("OverlapPercent must be in [0, 100), got %d", c.OverlapPercent)
	}
	if c.MaxRows <= 0 {
		return fmt.Errorf("MaxRows must be positive, got %d", c.MaxRows)
	}
	return nil
}

// withDefaults fills unset thresholds from DefaultConfig. A zero overlap
// is kept unless Size is unset too, since it is a share of Size.
func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.Size <= 0 {
		c.Size = def.Size
		if c.OverlapPercent == 0 {
			c.OverlapPercent = def.OverlapPercent
		}
	}
	if c.OverlapPercent < 0 || c.OverlapPercent >= 100 {
		c.OverlapPercent = def.OverlapPercent
	}
	if c.MaxRows <= 0 {
		c.MaxRows = def.MaxRows
	}
	return c
}

// Split selects the chunker for the document's format tag and returns its
// chunks with their positions.
func Split(doc source.Document, cfg Config) []source.Chunk {
	c := ForFormat(doc.Tag(), cfg)
	parts := c.Chunk(doc.Content)

	chunks := make([]source.Chunk, 0, len(parts))
	for i, part := range parts {
		chunks = append(chunks, source.Chunk{
			Index:    i,
			Content:  part,
			Strategy: c.Name(),
		})
	}
	return chunks
}

// charLen counts characters the way the size threshold is expressed.
func charLen(s string) int {
	return utf8.RuneCountInString(s)
}
