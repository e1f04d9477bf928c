package extract

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/scriptorium/llm"
	"github.com/c360studio/scriptorium/llm/testutil"
	"github.com/c360studio/scriptorium/record"
)

func TestLLMExtractor_Extract(t *testing.T) {
	mock := &testutil.MockLLMClient{
		Responses: []*llm.Response{{Content: `[{"manuscript_ID": "MS 9", "format": "quarto"}]`}},
	}

	e := NewLLMExtractor(mock, WithMaxTokens(1024))
	got, err := e.Extract(context.Background(), "MS 9. Quarto.")
	require.NoError(t, err)
	assert.Equal(t, []record.Record{{"manuscript_ID": "MS 9", "format": "quarto"}}, got)

	reqs := mock.Requests()
	require.Len(t, reqs, 1)
	req := reqs[0]
	assert.Equal(t, "extraction", req.Capability)
	assert.Equal(t, 1024, req.MaxTokens)
	require.NotNil(t, req.Temperature)
	assert.Zero(t, *req.Temperature)

	require.Len(t, req.Messages, 2)
	assert.Equal(t, "system", req.Messages[0].Role)
	assert.Equal(t, llm.Message{Role: "user", Content: "Here is the data:\nMS 9. Quarto."}, req.Messages[1])
}

func TestLLMExtractor_MalformedReply(t *testing.T) {
	mock := &testutil.MockLLMClient{Responses: []*llm.Response{{Content: "no records here"}}}

	_, err := NewLLMExtractor(mock).Extract(context.Background(), "chunk")
	assert.ErrorIs(t, err, ErrMalformedReply)
}

func TestLLMExtractor_CallError(t *testing.T) {
	boom := errors.New("connection refused")
	mock := &testutil.MockLLMClient{Err: boom}

	_, err := NewLLMExtractor(mock).Extract(context.Background(), "chunk")
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrMalformedReply)
}

func TestSystemPromptListsSchema(t *testing.T) {
	for _, field := range record.Fields {
		assert.Contains(t, SystemPrompt, field)
	}
}

func TestFunc(t *testing.T) {
	var e Extractor = Func(func(_ context.Context, chunk string) ([]record.Record, error) {
		return []record.Record{{"incipit": chunk}}, nil
	})

	got, err := e.Extract(context.Background(), "In principio")
	require.NoError(t, err)
	assert.Equal(t, "In principio", got[0]["incipit"])
}
