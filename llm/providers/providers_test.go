package providers

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/scriptorium/llm"
)

func TestRegistered(t *testing.T) {
	for _, name := range []string{"anthropic", "ollama", "openai"} {
		assert.NotNil(t, llm.GetProvider(name), name)
	}
}

func TestChatProvider_BuildURL(t *testing.T) {
	p := NewChatProvider("ollama", "http://localhost:11434/v1", "")

	tests := []struct {
		name    string
		baseURL string
		want    string
	}{
		{"default", "", "http://localhost:11434/v1/chat/completions"},
		{"custom", "http://gpu:8000/v1/", "http://gpu:8000/v1/chat/completions"},
		{"already complete", "http://gpu:8000/v1/chat/completions", "http://gpu:8000/v1/chat/completions"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, p.BuildURL(tt.baseURL))
		})
	}
}

func TestChatProvider_BuildRequestBody(t *testing.T) {
	p := NewChatProvider("openai", "https://api.openai.com/v1", "OPENAI_API_KEY")
	temp := 0.0

	body, err := p.BuildRequestBody("gpt-4o-mini", []llm.Message{
		{Role: "system", Content: "schema"},
		{Role: "user", Content: "Here is the data:\nMS 1"},
	}, &temp, 0)
	require.NoError(t, err)

	assert.JSONEq(t, `{
		"model": "gpt-4o-mini",
		"messages": [
			{"role": "system", "content": "schema"},
			{"role": "user", "content": "Here is the data:\nMS 1"}
		],
		"temperature": 0
	}`, string(body))
}

func TestChatProvider_SetHeaders(t *testing.T) {
	t.Setenv("TEST_CHAT_KEY", "secret")
	p := NewChatProvider("x", "", "TEST_CHAT_KEY")

	req := httptest.NewRequest("POST", "/", nil)
	p.SetHeaders(req)
	assert.Equal(t, "Bearer secret", req.Header.Get("Authorization"))
}

func TestChatProvider_ParseResponse(t *testing.T) {
	p := NewChatProvider("ollama", "", "")

	resp, err := p.ParseResponse([]byte(`{
		"model": "qwen2.5:14b",
		"choices": [{"message": {"role": "assistant", "content": "{\"ink\":\"red\"}"}, "finish_reason": "stop"}],
		"usage": {"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15}
	}`), "qwen")
	require.NoError(t, err)

	assert.Equal(t, `{"ink":"red"}`, resp.Content)
	assert.Equal(t, "qwen2.5:14b", resp.Model)
	assert.Equal(t, 15, resp.Usage.TotalTokens)
	assert.Equal(t, "stop", resp.FinishReason)

	_, err = p.ParseResponse([]byte(`{"choices": []}`), "qwen")
	assert.Error(t, err)
}

func TestAnthropicProvider_BuildRequestBody(t *testing.T) {
	p := &AnthropicProvider{}

	body, err := p.BuildRequestBody("claude", []llm.Message{
		{Role: "system", Content: "schema"},
		{Role: "user", Content: "data"},
	}, nil, 0)
	require.NoError(t, err)

	assert.JSONEq(t, `{
		"model": "claude",
		"max_tokens": 4096,
		"system": "schema",
		"messages": [{"role": "user", "content": "data"}]
	}`, string(body))
}

func TestAnthropicProvider_ParseResponse(t *testing.T) {
	p := &AnthropicProvider{}

	resp, err := p.ParseResponse([]byte(`{
		"model": "claude-3-5-haiku",
		"content": [{"type": "text", "text": "[{\"manuscript_ID\":"}, {"type": "text", "text": "\"A\"}]"}],
		"stop_reason": "end_turn",
		"usage": {"input_tokens": 15, "output_tokens": 8}
	}`), "claude")
	require.NoError(t, err)

	assert.Equal(t, `[{"manuscript_ID":"A"}]`, resp.Content)
	assert.Equal(t, 23, resp.Usage.TotalTokens)
	assert.Equal(t, "end_turn", resp.FinishReason)
}
