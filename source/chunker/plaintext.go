package chunker

import (
	"strings"

	"github.com/tmc/langchaingo/textsplitter"
)

// PlainTextSeparators are tried coarsest first: blank line, line break,
// sentence terminator, then whitespace.
var PlainTextSeparators = []string{"\n\n", "\n", ".", " "}

// PlainText packs text into chunks of at most size characters (runes), splitting
// recursively on PlainTextSeparators and repeating overlap characters of
// context between consecutive chunks. The separator a split happens on is
// kept at the start of the following piece, so no input character is lost.
type PlainText struct {
	splitter textsplitter.RecursiveCharacter
}

// NewPlainText creates a plain-text chunker.
func NewPlainText(size, overlap int) *PlainText {
	if size <= 0 {
		size = DefaultConfig().Size
	}
	if overlap < 0 || overlap >= size {
		overlap = 0
	}

	return &PlainText{
		splitter: textsplitter.NewRecursiveCharacter(
			textsplitter.WithSeparators(PlainTextSeparators),
			textsplitter.WithChunkSize(size),
			textsplitter.WithChunkOverlap(overlap),
			textsplitter.WithKeepSeparator(true),
		),
	}
}

// Name returns the strategy identifier.
func (p *PlainText) Name() string {
	return string(StrategyPlainText)
}

// Chunk splits text on separator boundaries.
func (p *PlainText) Chunk(content string) []string {
	if strings.TrimSpace(content) == "" {
		return nil
	}

	parts, err := p.splitter.SplitText(content)
	if err != nil || len(parts) == 0 {
		return []string{content}
	}
	return parts
}
