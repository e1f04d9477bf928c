package merge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/scriptorium/record"
)

func TestMerger_IdentifierBoundary(t *testing.T) {
	m := New()
	assert.Equal(t, NoAnchor, m.State())

	assert.Equal(t, Anchored, m.Add(record.Record{"manuscript_ID": "X", "support_type": "paper"}, "c1"))
	assert.Equal(t, HasAnchor, m.State())
	assert.Equal(t, Continuation, m.Add(record.Record{"ink": "iron gall"}, "c2"))
	assert.Equal(t, Continuation, m.Add(record.Record{}, "c3"))

	require.Equal(t, 1, m.Len())
	assert.Equal(t, record.Record{
		"manuscript_ID": "X",
		"support_type":  "paper",
		"ink":           "iron gall",
		"source_text":   "c1\nc2\nc3",
	}, m.Records()[0])
}

func TestMerger_ConflictAccumulation(t *testing.T) {
	m := New()
	m.Add(record.Record{"manuscript_ID": "X", "support_type": "paper"}, "c1")
	m.Add(record.Record{"support_type": "vellum"}, "c2")

	assert.Equal(t, "paper / vellum", m.Records()[0]["support_type"])
}

func TestMerger_NoRepeatedValues(t *testing.T) {
	m := New()
	m.Add(record.Record{"manuscript_ID": "X", "support_type": "paper"}, "c1")
	m.Add(record.Record{"support_type": "paper"}, "c2")
	m.Add(record.Record{"support_type": "vellum"}, "c3")
	m.Add(record.Record{"support_type": "paper"}, "c4")
	m.Add(record.Record{"support_type": "vellum / silk"}, "c5")

	assert.Equal(t, "paper / vellum / silk", m.Records()[0]["support_type"])
}

func TestMerger_StandaloneBeforeFirstIdentifier(t *testing.T) {
	m := New()
	assert.Equal(t, Standalone, m.Add(record.Record{"ink": "red"}, "c1"))
	assert.Equal(t, NoAnchor, m.State(), "a record without identifier never anchors")
	assert.Equal(t, Standalone, m.Add(record.Record{"ink": "black"}, "c2"))

	assert.Equal(t, Anchored, m.Add(record.Record{"manuscript_ID": "Y"}, "c3"))
	assert.Equal(t, Continuation, m.Add(record.Record{"ink": "gold"}, "c4"))

	recs := m.Records()
	require.Len(t, recs, 3)
	assert.Equal(t, record.Record{"ink": "red", "source_text": "c1"}, recs[0])
	assert.Equal(t, record.Record{"ink": "black", "source_text": "c2"}, recs[1])
	assert.Equal(t, record.Record{"manuscript_ID": "Y", "ink": "gold", "source_text": "c3\nc4"}, recs[2])
}

func TestMerger_NewIdentifierMovesAnchor(t *testing.T) {
	m := New()
	m.Add(record.Record{"manuscript_ID": "A", "format": "folio"}, "a1")
	m.Add(record.Record{"manuscript_ID": "B"}, "b1")
	m.Add(record.Record{"format": "quarto"}, "b2")

	recs := m.Records()
	require.Len(t, recs, 2)
	assert.Equal(t, "folio", recs[0]["format"])
	assert.Equal(t, "quarto", recs[1]["format"])
	assert.Equal(t, "b1\nb2", recs[1]["source_text"])
}

func TestMerger_RepeatedIdentifierOpensNewRecord(t *testing.T) {
	m := New()
	m.Add(record.Record{"manuscript_ID": "A"}, "c1")
	m.Add(record.Record{"manuscript_ID": "A"}, "c1")

	assert.Equal(t, 2, m.Len())
}

func TestMerger_BlankIdentifierIsContinuation(t *testing.T) {
	m := New()
	m.Add(record.Record{"manuscript_ID": "A"}, "c1")
	assert.Equal(t, Continuation, m.Add(record.Record{"manuscript_ID": "  ", "ink": "red"}, "c2"))

	assert.Equal(t, "A", m.Records()[0]["manuscript_ID"])
}

func TestMerger_SourceTextTrimmed(t *testing.T) {
	m := New()
	m.Add(record.Record{"manuscript_ID": "A"}, "")
	m.Add(record.Record{}, "second")

	assert.Equal(t, "second", m.Records()[0]["source_text"])
}

func TestMerger_PartialNotAliased(t *testing.T) {
	partial := record.Record{"manuscript_ID": "A", "ink": "red"}
	m := New()
	m.Add(partial, "c1")
	m.Add(record.Record{"ink": "black"}, "c2")

	assert.Equal(t, "red", partial["ink"])
	assert.NotContains(t, partial, "source_text")
}

func TestMerger_NilPartialWithoutAnchor(t *testing.T) {
	m := New()
	assert.Equal(t, Standalone, m.Add(nil, "c1"))
	assert.Equal(t, record.Record{"source_text": "c1"}, m.Records()[0])
}
