package classify

import (
	"context"
	"fmt"
	"strings"

	"github.com/c360studio/scriptorium/llm"
	"github.com/c360studio/scriptorium/model"
	"github.com/c360studio/scriptorium/vocabulary/manuscript"
)

// LLMClassifier classifies text by prompting a language model with the
// vocabulary's label list.
type LLMClassifier struct {
	client llm.Completer
}

// NewLLMClassifier creates a classifier backed by client.
func NewLLMClassifier(client llm.Completer) *LLMClassifier {
	return &LLMClassifier{client: client}
}

// Classify asks the model which labels the text refers to.
func (c *LLMClassifier) Classify(ctx context.Context, text string, vocab manuscript.Vocabulary) ([]string, error) {
	temperature := 0.0
	resp, err := c.client.Complete(ctx, llm.Request{
		Capability: model.CapabilityClassification.String(),
		Messages: []llm.Message{
			{Role: "system", Content: Prompt(vocab)},
			{Role: "user", Content: text},
		},
		Temperature: &temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("classification call: %w", err)
	}
	return ParseReply(resp.Content, vocab), nil
}

// Prompt builds the system prompt for a vocabulary.
func Prompt(vocab manuscript.Vocabulary) string {
	labels := make([]string, len(vocab.Labels))
	for i, l := range vocab.Labels {
		labels[i] = l
		if hint, ok := vocab.Hints[l]; ok {
			labels[i] += " (" + hint + ")"
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "You are a classification agent for %s.\n", vocab.Subject)
	b.WriteString("The text may describe one or more of the following, in any language or by synonym:\n")
	fmt.Fprintf(&b, "[%s]\n", strings.Join(labels, ", "))
	b.WriteString("Respond only with a comma-separated list of the matching values, spelled exactly as listed. ")
	fmt.Fprintf(&b, "If nothing matches, respond with %q. No commentary.", NoMatch)
	return b.String()
}

var _ Classifier = (*LLMClassifier)(nil)
