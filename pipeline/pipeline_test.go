package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/scriptorium/extract"
	"github.com/c360studio/scriptorium/llm"
	llmtest "github.com/c360studio/scriptorium/llm/testutil"
	"github.com/c360studio/scriptorium/metrics"
	"github.com/c360studio/scriptorium/record"
	"github.com/c360studio/scriptorium/source/chunker"
)

// scripted returns the records registered for the first matching marker in
// a chunk.
func scripted(replies map[string][]record.Record) extract.Extractor {
	return extract.Func(func(_ context.Context, chunk string) ([]record.Record, error) {
		for marker, recs := range replies {
			if strings.Contains(chunk, marker) {
				return recs, nil
			}
		}
		return nil, nil
	})
}

func TestNew_RequiresExtractor(t *testing.T) {
	_, err := New(nil)
	assert.ErrorIs(t, err, ErrNoExtractor)
}

func TestRun_MergesAcrossTabularChunks(t *testing.T) {
	content := "id,text\n1,MS-X paper\n2,iron gall\n3,vellum\n"
	ext := scripted(map[string][]record.Record{
		"MS-X":      {{"manuscript_ID": "X", "support_type": "paper"}},
		"iron gall": {{"ink": "iron gall"}},
		"vellum":    {{"support_type": "vellum"}},
	})

	p, err := New(ext, WithChunking(chunker.Config{Size: 2000, OverlapPercent: 10, MaxRows: 1}))
	require.NoError(t, err)

	res, err := p.Run(context.Background(), Request{Content: content, Extension: "CSV"})
	require.NoError(t, err)

	require.Len(t, res.StructuredData, 1)
	got := res.StructuredData[0]
	assert.Equal(t, "X", got["manuscript_ID"])
	assert.Equal(t, "paper / vellum", got["support_type"])
	assert.Equal(t, "iron gall", got["ink"])
	assert.Equal(t, "id,text\n1,MS-X paper\nid,text\n2,iron gall\nid,text\n3,vellum", got["source_text"])
	assert.Equal(t, 3, res.Chunks)
	assert.NotEmpty(t, res.RunID)
}

func TestRun_DropsFailedChunks(t *testing.T) {
	var calls atomic.Int32
	ext := extract.Func(func(_ context.Context, chunk string) ([]record.Record, error) {
		switch calls.Add(1) {
		case 1:
			return []record.Record{{"manuscript_ID": "A"}}, nil
		case 2:
			return nil, fmt.Errorf("%w: prose", extract.ErrMalformedReply)
		case 3:
			return nil, errors.New("provider unavailable")
		default:
			return []record.Record{{"format": "folio"}}, nil
		}
	})

	reg := prometheus.NewRegistry()
	m, err := metrics.New(reg)
	require.NoError(t, err)

	p, err := New(ext, WithMetrics(m))
	require.NoError(t, err)

	content := `[{"n":1},{"n":2},{"n":3},{"n":4}]`
	res, err := p.Run(context.Background(), Request{Content: content, Extension: "json"})
	require.NoError(t, err)

	require.Len(t, res.StructuredData, 1)
	assert.Equal(t, "folio", res.StructuredData[0]["format"])
	assert.Equal(t, "[{\"n\":1}]\n[{\"n\":4}]", res.StructuredData[0]["source_text"], "dropped chunks leave no text")
	assert.Equal(t, 2, res.Dropped)

	assert.Equal(t, 4.0, counterValue(t, reg, "scriptorium_chunks_total", "json"))
	assert.Equal(t, 2, testutil.CollectAndCount(reg, "scriptorium_extraction_failures_total"))
}

func counterValue(t *testing.T, reg *prometheus.Registry, name, label string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, f := range families {
		if f.GetName() != name {
			continue
		}
		for _, metric := range f.GetMetric() {
			for _, lp := range metric.GetLabel() {
				if lp.GetValue() == label {
					return metric.GetCounter().GetValue()
				}
			}
		}
	}
	t.Fatalf("metric %s{%s} not found", name, label)
	return 0
}

func TestRun_CancellationDiscardsOutput(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls atomic.Int32
	ext := extract.Func(func(_ context.Context, chunk string) ([]record.Record, error) {
		if calls.Add(1) == 2 {
			cancel()
		}
		return []record.Record{{"manuscript_ID": chunk}}, nil
	})

	p, err := New(ext, WithChunking(chunker.Config{Size: 2000, OverlapPercent: 10, MaxRows: 1}))
	require.NoError(t, err)

	res, err := p.Run(ctx, Request{Content: "a,b\n1,2\n3,4\n5,6", Extension: "csv"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, res)
	assert.Equal(t, int32(2), calls.Load(), "no chunk is extracted after cancellation")
}

func TestRun_AlreadyCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var called bool
	p, err := New(extract.Func(func(context.Context, string) ([]record.Record, error) {
		called = true
		return nil, nil
	}))
	require.NoError(t, err)

	res, err := p.Run(ctx, Request{Content: "MS 1"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, res)
	assert.False(t, called)
}

func TestRun_EmptyDocument(t *testing.T) {
	p, err := New(scripted(nil))
	require.NoError(t, err)

	res, err := p.Run(context.Background(), Request{Content: "   "})
	require.NoError(t, err)
	assert.NotNil(t, res.StructuredData)

	data, err := json.Marshal(res)
	require.NoError(t, err)
	assert.JSONEq(t, `{"structured_data": []}`, string(data))
}

func TestRun_UnknownExtensionIsPlainText(t *testing.T) {
	var seen []string
	ext := extract.Func(func(_ context.Context, chunk string) ([]record.Record, error) {
		seen = append(seen, chunk)
		return nil, nil
	})
	p, err := New(ext)
	require.NoError(t, err)

	content := "Codex 12. Parchment.\n\nCodex 13. Paper."
	_, err = p.Run(context.Background(), Request{Content: content, Extension: "foobar"})
	require.NoError(t, err)
	foobar := seen

	seen = nil
	_, err = p.Run(context.Background(), Request{Content: content})
	require.NoError(t, err)

	assert.Equal(t, foobar, seen)
}

func TestRun_WithLLMExtractor(t *testing.T) {
	mock := &llmtest.MockLLMClient{Responses: []*llm.Response{
		{Content: "```json\n[{\"manuscript_ID\": \"Cod. 5\", \"ink\": \"red\"}]\n```"},
	}}
	p, err := New(extract.NewLLMExtractor(mock))
	require.NoError(t, err)

	res, err := p.Run(context.Background(), Request{Content: "Cod. 5, red ink.", Extension: "txt"})
	require.NoError(t, err)

	require.Len(t, res.StructuredData, 1)
	assert.Equal(t, record.Record{
		"manuscript_ID": "Cod. 5",
		"ink":           "red",
		"source_text":   "Cod. 5, red ink.",
	}, res.StructuredData[0])
}
