// Package testutil provides test doubles for the llm package.
package testutil

import (
	"context"
	"sync"

	"github.com/c360studio/scriptorium/llm"
)

// MockLLMClient is a thread-safe llm.Completer for tests. It records every
// request and replays Responses in order.
//
//	mock := &MockLLMClient{
//	    Responses: []*llm.Response{
//	        {Content: `[{"manuscript_ID": "MS 1"}]`},
//	        {Content: "not json"},
//	    },
//	}
type MockLLMClient struct {
	// Responses are returned in sequence. Once exhausted, an empty reply
	// is returned.
	Responses []*llm.Response

	// Err, when set, is returned by every call.
	Err error

	// Errs are returned per call, aligned with the call index. A nil entry
	// falls through to Responses.
	Errs []error

	mu            sync.Mutex
	requests      []llm.Request
	responseIndex int
}

// Complete implements llm.Completer.
func (m *MockLLMClient) Complete(ctx context.Context, req llm.Request) (*llm.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	call := len(m.requests)
	m.requests = append(m.requests, req)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.Err != nil {
		return nil, m.Err
	}
	if call < len(m.Errs) && m.Errs[call] != nil {
		return nil, m.Errs[call]
	}

	if m.responseIndex < len(m.Responses) {
		resp := m.Responses[m.responseIndex]
		m.responseIndex++
		return resp, nil
	}
	return &llm.Response{Content: "", Model: "test-model"}, nil
}

// Requests returns the requests received so far.
func (m *MockLLMClient) Requests() []llm.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]llm.Request(nil), m.requests...)
}

// CallCount returns the number of Complete calls.
func (m *MockLLMClient) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

// Reset clears recorded requests and rewinds Responses.
func (m *MockLLMClient) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = nil
	m.responseIndex = 0
}

var _ llm.Completer = (*MockLLMClient)(nil)
