// Package source provides the input types of the manuscript structuring pipeline.
package source

import (
	"sort"
	"strings"
)

// DefaultExtension is the format tag assumed when a document declares none.
const DefaultExtension = "txt"

// Document is a raw catalog document awaiting structuring.
// It is read-only input to the pipeline.
type Document struct {
	// Content is the full text of the document.
	Content string `json:"content"`

	// Extension is the declared format tag (csv, tsv, json, xml, tei, ttl, turtle, txt, ...).
	Extension string `json:"extension"`

	// Filename is the originating file, if any. Used for logging only.
	Filename string `json:"filename,omitempty"`
}

// Tag returns the normalized format tag, falling back to DefaultExtension.
func (d Document) Tag() string {
	tag := strings.ToLower(strings.TrimSpace(d.Extension))
	tag = strings.TrimPrefix(tag, ".")
	if tag == "" {
		return DefaultExtension
	}
	return tag
}

// Chunk is one bounded, self-contained slice of a Document.
type Chunk struct {
	// Index is the 0-based position of the chunk within its document.
	Index int `json:"index"`

	// Content is the chunk text in the document's native notation.
	Content string `json:"content"`

	// Strategy names the chunker that produced this chunk.
	Strategy string `json:"strategy"`
}

// FromFields builds a plain-text document out of labelled text fields,
// such as the boxes of a submission form. Each field is rendered as
// "<label>:\n<value>\n\n" with labels in sorted order.
func FromFields(fields map[string]string) Document {
	labels := make([]string, 0, len(fields))
	for label := range fields {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	var sb strings.Builder
	for _, label := range labels {
		sb.WriteString(label)
		sb.WriteString(":\n")
		sb.WriteString(fields[label])
		sb.WriteString("\n\n")
	}

	return Document{
		Content:   sb.String(),
		Extension: DefaultExtension,
	}
}
