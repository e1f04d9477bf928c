// Package merge reassembles partial records extracted from consecutive chunks
// into one record per manuscript.
//
// The identifier is the only boundary signal: a partial record carrying a
// manuscript_ID opens a new record, and partial records without one extend
// the most recent identified record.
package merge

import (
	"strings"

	"github.com/c360studio/scriptorium/record"
)

// State is the merger's anchor state.
type State int

const (
	// NoAnchor means no identified record has been seen yet.
	NoAnchor State = iota
	// HasAnchor means unidentified partials extend the anchor record.
	HasAnchor
)

func (s State) String() string {
	if s == HasAnchor {
		return "has_anchor"
	}
	return "no_anchor"
}

// Outcome describes what Add did with a partial record.
type Outcome string

const (
	Anchored     Outcome = "anchored"
	Continuation Outcome = "continuation"
	Standalone   Outcome = "standalone"
)

// Merger accumulates merged records across the partial records of one
// document. It is not safe for concurrent use.
type Merger struct {
	records []record.Record
	anchor  int
}

// New creates an empty merger.
func New() *Merger {
	return &Merger{anchor: -1}
}

// State returns the current anchor state.
func (m *Merger) State() State {
	if m.anchor < 0 {
		return NoAnchor
	}
	return HasAnchor
}

// Add folds one partial record, extracted from chunkText, into the output.
// Partials must be added in chunk order, then in order within a chunk.
func (m *Merger) Add(partial record.Record, chunkText string) Outcome {
	if partial.HasID() {
		rec := partial.Clone()
		rec[record.FieldSourceText] = chunkText
		m.records = append(m.records, rec)
		m.anchor = len(m.records) - 1
		return Anchored
	}

	if m.anchor >= 0 {
		anchor := m.records[m.anchor]
		Into(anchor, partial)
		anchor[record.FieldSourceText] = strings.TrimSpace(anchor.SourceText() + "\n" + chunkText)
		return Continuation
	}

	rec := partial.Clone()
	if rec == nil {
		rec = record.Record{}
	}
	rec[record.FieldSourceText] = chunkText
	m.records = append(m.records, rec)
	return Standalone
}

// Records returns the merged records in the order they were opened.
func (m *Merger) Records() []record.Record {
	return m.records
}

// Len returns the number of merged records.
func (m *Merger) Len() int {
	return len(m.records)
}
