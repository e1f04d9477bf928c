// Package sink delivers structured manuscript records to their
// destinations: files, standard output, NATS subjects and the run store.
package sink

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"time"

	"github.com/c360studio/scriptorium/classify"
	"github.com/c360studio/scriptorium/record"
)

// Output is the document emitted for one structured source.
// Classifications, when present, are index-aligned with StructuredData.
type Output struct {
	StructuredData  []record.Record   `json:"structured_data"`
	Classifications []classify.Result `json:"classifications,omitempty"`
}

// Batch is the output of one pipeline run together with its provenance.
type Batch struct {
	RunID     string    `json:"run_id"`
	Source    string    `json:"source,omitempty"`
	CreatedAt time.Time `json:"created_at"`

	Output
}

// Sink receives batches.
type Sink interface {
	Write(ctx context.Context, b Batch) error
}

// Func adapts a function to the Sink interface.
type Func func(ctx context.Context, b Batch) error

// Write calls f.
func (f Func) Write(ctx context.Context, b Batch) error {
	return f(ctx, b)
}

// Multi fans a batch out to several sinks. Every sink is attempted; the
// errors are joined.
type Multi []Sink

// Write delivers b to each sink in order.
func (m Multi) Write(ctx context.Context, b Batch) error {
	var errs []error
	for _, s := range m {
		if err := s.Write(ctx, b); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Encode writes v as JSON without HTML escaping, so catalog text such as
// "<b>" or "&" survives verbatim.
func Encode(w io.Writer, v any, indent bool) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if indent {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}
