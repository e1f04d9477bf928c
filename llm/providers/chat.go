// Package providers implements LLM provider adapters. Importing it registers
// the ollama, openai and anthropic providers with the llm package.
package providers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/c360studio/scriptorium/llm"
)

// ChatProvider speaks the OpenAI chat completions format, which Ollama,
// vLLM, OpenRouter and OpenAI itself all accept.
type ChatProvider struct {
	name       string
	defaultURL string
	keyEnv     string
}

// NewChatProvider creates a chat-completions provider. keyEnv names the
// environment variable holding the bearer token; it may be empty.
func NewChatProvider(name, defaultURL, keyEnv string) *ChatProvider {
	return &ChatProvider{name: name, defaultURL: defaultURL, keyEnv: keyEnv}
}

func init() {
	llm.RegisterProvider(NewChatProvider("ollama", "http://localhost:11434/v1", "OLLAMA_API_KEY"))
	llm.RegisterProvider(NewChatProvider("openai", "https://api.openai.com/v1", "OPENAI_API_KEY"))
}

// Name returns the provider identifier.
func (p *ChatProvider) Name() string {
	return p.name
}

// BuildURL appends /chat/completions unless baseURL already ends with it.
func (p *ChatProvider) BuildURL(baseURL string) string {
	if baseURL == "" {
		baseURL = p.defaultURL
	}
	baseURL = strings.TrimSuffix(baseURL, "/")
	if strings.HasSuffix(baseURL, "/chat/completions") {
		return baseURL
	}
	return baseURL + "/chat/completions"
}

// SetHeaders adds bearer authentication when a key is configured.
func (p *ChatProvider) SetHeaders(req *http.Request) {
	if p.keyEnv == "" {
		return
	}
	if key := os.Getenv(p.keyEnv); key != "" {
		req.Header.Set("Authorization", "Bearer "+key)
	}
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []llm.Message `json:"messages"`
	Temperature *float64      `json:"temperature,omitempty"`
	MaxTokens   *int          `json:"max_tokens,omitempty"`
}

// BuildRequestBody creates the chat completions request body.
func (p *ChatProvider) BuildRequestBody(model string, messages []llm.Message, temperature *float64, maxTokens int) ([]byte, error) {
	req := chatRequest{
		Model:       model,
		Messages:    messages,
		Temperature: temperature,
	}
	if maxTokens > 0 {
		req.MaxTokens = &maxTokens
	}
	return json.Marshal(req)
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage llm.TokenUsage `json:"usage"`
}

// ParseResponse extracts the first choice.
func (p *ChatProvider) ParseResponse(body []byte, model string) (*llm.Response, error) {
	var resp chatResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parse %s response: %w", p.name, err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("no choices in response")
	}
	if resp.Model == "" {
		resp.Model = model
	}

	return &llm.Response{
		Content:      resp.Choices[0].Message.Content,
		Model:        resp.Model,
		Usage:        resp.Usage,
		FinishReason: resp.Choices[0].FinishReason,
	}, nil
}
