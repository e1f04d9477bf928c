package extract

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/c360studio/scriptorium/llm"
	"github.com/c360studio/scriptorium/model"
	"github.com/c360studio/scriptorium/record"
)

// UserPrefix precedes the chunk text in the user message.
const UserPrefix = "Here is the data:\n"

// SystemPrompt instructs the model to return records in the canonical
// schema.
var SystemPrompt = buildSystemPrompt()

func buildSystemPrompt() string {
	var b strings.Builder
	b.WriteString("You extract manuscript descriptions from library catalog data.\n")
	b.WriteString("Return ONLY valid JSON: an array with one object per manuscript described in the data, ")
	b.WriteString("or an empty array when the data describes none.\n")
	b.WriteString("Each object uses exactly these keys:\n")
	for _, field := range record.Fields {
		b.WriteString("- ")
		b.WriteString(field)
		if hint, ok := fieldHints[field]; ok {
			b.WriteString(": ")
			b.WriteString(hint)
		}
		b.WriteByte('\n')
	}
	b.WriteString("Use null for anything the data does not state. Do not invent values. ")
	b.WriteString("Only set manuscript_ID when the data names the shelfmark of a new manuscript; ")
	b.WriteString("leave it null when the data continues a description started earlier.")
	return b.String()
}

var fieldHints = map[string]string{
	record.FieldManuscriptID:    "shelfmark or identifier assigned by the holding institution",
	record.FieldCentury:         "e.g. '12th century'",
	record.FieldSupportType:     "e.g. parchment, paper, vellum",
	record.FieldDimensions:      "object with width, length and thickness, each a value with unit",
	record.FieldContainedWorks:  "works contained, comma separated",
	record.FieldHandwritingForm: "script style, e.g. Gothic textualis",
	record.FieldTotalFoliaCount: "folio count or notation, e.g. '1r-112v'",
	record.FieldInk:             "e.g. iron gall, carbon",
	record.FieldFormat:          "e.g. folio, quarto, octavo",
	record.FieldDataAnalyzed:    "the raw text the description was taken from",
}

// LLMExtractor extracts records by prompting a language model.
type LLMExtractor struct {
	client      llm.Completer
	temperature float64
	maxTokens   int
	timeout     time.Duration
	logger      *slog.Logger
}

// LLMOption configures an LLMExtractor.
type LLMOption func(*LLMExtractor)

// WithTemperature overrides the sampling temperature (default 0).
func WithTemperature(t float64) LLMOption {
	return func(e *LLMExtractor) { e.temperature = t }
}

// WithMaxTokens limits the reply length.
func WithMaxTokens(n int) LLMOption {
	return func(e *LLMExtractor) { e.maxTokens = n }
}

// WithTimeout bounds each model call. Zero means no per-call bound.
func WithTimeout(d time.Duration) LLMOption {
	return func(e *LLMExtractor) { e.timeout = d }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) LLMOption {
	return func(e *LLMExtractor) { e.logger = l }
}

// NewLLMExtractor creates an extractor backed by client.
func NewLLMExtractor(client llm.Completer, opts ...LLMOption) *LLMExtractor {
	e := &LLMExtractor{
		client: client,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract sends the chunk to the model and parses its reply.
func (e *LLMExtractor) Extract(ctx context.Context, chunk string) ([]record.Record, error) {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	temperature := e.temperature
	resp, err := e.client.Complete(ctx, llm.Request{
		Capability: model.CapabilityExtraction.String(),
		Messages: []llm.Message{
			{Role: "system", Content: SystemPrompt},
			{Role: "user", Content: UserPrefix + chunk},
		},
		Temperature: &temperature,
		MaxTokens:   e.maxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("extraction call: %w", err)
	}

	records, err := ParseReply(resp.Content)
	if err != nil {
		e.logger.Debug("Unparseable extraction reply",
			"request_id", resp.RequestID,
			"model", resp.Model,
			"reply", compactJSON(resp.Content))
		return nil, err
	}
	return records, nil
}

var _ Extractor = (*LLMExtractor)(nil)
