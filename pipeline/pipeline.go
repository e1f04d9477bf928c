// Package pipeline runs the chunk, extract and merge stages over one
// document.
//
// Chunks are extracted strictly in document order, one at a time. A chunk
// whose extraction fails is dropped with a warning; cancellation of the
// caller's context aborts the whole run and discards partial output.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/c360studio/scriptorium/extract"
	"github.com/c360studio/scriptorium/merge"
	"github.com/c360studio/scriptorium/metrics"
	"github.com/c360studio/scriptorium/record"
	"github.com/c360studio/scriptorium/source"
	"github.com/c360studio/scriptorium/source/chunker"
)

// ErrNoExtractor is returned by New when no extractor is supplied.
var ErrNoExtractor = errors.New("pipeline requires an extractor")

// Request is one document to structure.
type Request struct {
	Content string `json:"content"`

	// Extension is the declared format tag. Empty means "txt".
	Extension string `json:"extension,omitempty"`

	// Filename is used for logging only.
	Filename string `json:"filename,omitempty"`
}

// Result holds the merged records of a run.
type Result struct {
	StructuredData []record.Record `json:"structured_data"`

	RunID   string `json:"-"`
	Chunks  int    `json:"-"`
	Dropped int    `json:"-"`
}

// Pipeline structures documents with a fixed extractor and chunking
// configuration. It holds no per-run state and may be shared.
type Pipeline struct {
	extractor extract.Extractor
	chunking  chunker.Config
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithChunking sets the chunking thresholds.
func WithChunking(cfg chunker.Config) Option {
	return func(p *Pipeline) { p.chunking = cfg }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// WithMetrics enables instrumentation.
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// New creates a pipeline around an extractor.
func New(extractor extract.Extractor, opts ...Option) (*Pipeline, error) {
	if extractor == nil {
		return nil, ErrNoExtractor
	}
	p := &Pipeline{
		extractor: extractor,
		chunking:  chunker.DefaultConfig(),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Run chunks the document, extracts each chunk and merges the partial
// records. The only error returned is the context's, on cancellation.
func (p *Pipeline) Run(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()
	runID := uuid.NewString()
	logger := p.logger.With("run_id", runID)

	if err := ctx.Err(); err != nil {
		return p.abort(logger, start, err)
	}

	doc := source.Document{Content: req.Content, Extension: req.Extension, Filename: req.Filename}
	chunks := chunker.Split(doc, p.chunking)
	if len(chunks) > 0 {
		p.metrics.ChunksProduced(chunks[0].Strategy, len(chunks))
	}

	logger.Info("Structuring document",
		"file", req.Filename,
		"format", doc.Tag(),
		"chunks", len(chunks))

	result := &Result{RunID: runID, Chunks: len(chunks)}
	merger := merge.New()

	for _, ch := range chunks {
		if err := ctx.Err(); err != nil {
			return p.abort(logger, start, err)
		}

		partials, err := p.extractor.Extract(ctx, ch.Content)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return p.abort(logger, start, ctxErr)
		}
		if err != nil {
			result.Dropped++
			p.metrics.ExtractionFailed(failureReason(err))
			logger.Warn("Dropping chunk after failed extraction",
				"chunk", ch.Index,
				"strategy", ch.Strategy,
				"error", err)
			continue
		}

		for _, partial := range partials {
			outcome := merger.Add(partial, ch.Content)
			p.metrics.RecordMerged(string(outcome))
		}
		logger.Debug("Chunk extracted",
			"chunk", ch.Index,
			"partials", len(partials),
			"state", merger.State().String())
	}

	result.StructuredData = merger.Records()
	if result.StructuredData == nil {
		result.StructuredData = []record.Record{}
	}

	elapsed := time.Since(start)
	p.metrics.RunFinished(metrics.OutcomeOK, elapsed)
	logger.Info("Structuring complete",
		"records", len(result.StructuredData),
		"dropped", result.Dropped,
		"duration", elapsed)

	return result, nil
}

func (p *Pipeline) abort(logger *slog.Logger, start time.Time, err error) (*Result, error) {
	p.metrics.RunFinished(metrics.OutcomeCanceled, time.Since(start))
	logger.Warn("Structuring canceled, discarding output", "error", err)
	return nil, err
}

func failureReason(err error) string {
	if errors.Is(err, extract.ErrMalformedReply) {
		return metrics.ReasonMalformed
	}
	return metrics.ReasonError
}
