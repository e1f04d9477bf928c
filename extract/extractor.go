// Package extract turns catalog chunks into partial manuscript records.
//
// Extraction is an opaque capability behind the Extractor interface. The
// model-backed implementation sends each chunk to an LLM and parses the
// JSON reply with ParseReply.
package extract

import (
	"context"

	"github.com/c360studio/scriptorium/record"
)

// Extractor returns the partial records found in one chunk. A chunk may
// yield zero, one or many records.
type Extractor interface {
	Extract(ctx context.Context, chunk string) ([]record.Record, error)
}

// Func adapts a function to the Extractor interface.
type Func func(ctx context.Context, chunk string) ([]record.Record, error)

// Extract calls f.
func (f Func) Extract(ctx context.Context, chunk string) ([]record.Record, error) {
	return f(ctx, chunk)
}
