package chunker

import (
	"bytes"
	"encoding/json"
)

// Object splits JSON documents. A top-level array yields one chunk per
// element, each wrapped as a one-element array; any other value yields a
// single chunk. Key order and string escapes are kept as written.
type Object struct {
	fallback Chunker
}

// NewObject creates a JSON chunker that defers to fallback for invalid input.
func NewObject(fallback Chunker) *Object {
	return &Object{fallback: fallback}
}

// Name returns the strategy identifier.
func (o *Object) Name() string {
	return string(StrategyObject)
}

// Chunk splits a JSON document.
func (o *Object) Chunk(content string) []string {
	var raw json.RawMessage
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		return o.fallback.Chunk(content)
	}

	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '[' {
		return []string{compactJSON(raw)}
	}

	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return o.fallback.Chunk(content)
	}

	chunks := make([]string, 0, len(items))
	for _, item := range items {
		chunks = append(chunks, "["+compactJSON(item)+"]")
	}
	return chunks
}

func compactJSON(raw []byte) string {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(raw)
	}
	return buf.String()
}
