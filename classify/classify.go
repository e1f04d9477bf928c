// Package classify maps free-text record fields onto controlled vocabularies.
//
// Classification runs after merging and never changes the records
// themselves: it produces a separate label set per vocabulary.
package classify

import (
	"context"
	"fmt"
	"strings"

	"github.com/c360studio/scriptorium/record"
	"github.com/c360studio/scriptorium/vocabulary/manuscript"
)

// NoMatch is the reply sentinel for text that matches no label.
const NoMatch = "null"

// Classifier returns the vocabulary labels that text refers to. A nil
// result means no label matched.
type Classifier interface {
	Classify(ctx context.Context, text string, vocab manuscript.Vocabulary) ([]string, error)
}

// Func adapts a function to the Classifier interface.
type Func func(ctx context.Context, text string, vocab manuscript.Vocabulary) ([]string, error)

// Classify calls f.
func (f Func) Classify(ctx context.Context, text string, vocab manuscript.Vocabulary) ([]string, error) {
	return f(ctx, text, vocab)
}

// ParseReply reads a comma-separated label list. Labels outside the
// vocabulary are dropped, matches are returned in canonical casing without
// duplicates, and the "null" sentinel or an empty reply yields nil.
func ParseReply(reply string, vocab manuscript.Vocabulary) []string {
	reply = strings.Trim(strings.TrimSpace(reply), `"'.`)
	if reply == "" || strings.EqualFold(reply, NoMatch) {
		return nil
	}

	var labels []string
	seen := make(map[string]bool)
	for _, part := range strings.Split(reply, ",") {
		label := vocab.Canonical(strings.Trim(strings.TrimSpace(part), `"'.`))
		if label == "" || seen[label] {
			continue
		}
		seen[label] = true
		labels = append(labels, label)
	}
	return labels
}

// Result maps vocabulary names to the labels found for one record.
type Result map[string][]string

// Record classifies every vocabulary-bound field of rec that has a value.
// Vocabularies without a match are omitted from the result.
func Record(ctx context.Context, c Classifier, rec record.Record) (Result, error) {
	result := make(Result)
	for _, vocab := range manuscript.All() {
		text := strings.TrimSpace(rec.String(vocab.Field))
		if text == "" {
			continue
		}

		labels, err := c.Classify(ctx, text, vocab)
		if err != nil {
			return nil, fmt.Errorf("classify %s: %w", vocab.Name, err)
		}
		if len(labels) > 0 {
			result[vocab.Name] = labels
		}
	}
	return result, nil
}

// Records classifies each record in turn. The results are index-aligned
// with recs.
func Records(ctx context.Context, c Classifier, recs []record.Record) ([]Result, error) {
	results := make([]Result, 0, len(recs))
	for i, rec := range recs {
		res, err := Record(ctx, c, rec)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		results = append(results, res)
	}
	return results, nil
}
