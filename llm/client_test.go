package llm_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/scriptorium/llm"
	_ "github.com/c360studio/scriptorium/llm/providers"
	"github.com/c360studio/scriptorium/model"
)

func chatServer(t *testing.T, status int, content string, calls *atomic.Int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)

		if status != http.StatusOK {
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"error":"nope"}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"model": "served-model",
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": content}, "finish_reason": "stop"},
			},
			"usage": map[string]int{"total_tokens": 7},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func registryFor(urls ...string) *model.Registry {
	names := make([]string, len(urls))
	endpoints := make(map[string]*model.EndpointConfig, len(urls))
	for i, u := range urls {
		names[i] = string(rune('a' + i))
		endpoints[names[i]] = &model.EndpointConfig{Provider: "ollama", URL: u + "/v1", Model: "m-" + names[i]}
	}
	return model.NewRegistry(map[model.Capability]*model.CapabilityConfig{
		model.CapabilityExtraction: {Preferred: names[:1], Fallback: names[1:]},
	}, endpoints)
}

func fastRetry() llm.ClientOption {
	return llm.WithRetryConfig(llm.RetryConfig{
		MaxAttempts:       2,
		BackoffBase:       time.Millisecond,
		BackoffMultiplier: 1,
		MaxBackoff:        time.Millisecond,
	})
}

func extractionRequest() llm.Request {
	return llm.Request{
		Capability: "extraction",
		Messages:   []llm.Message{{Role: "user", Content: "Here is the data:\nMS 1"}},
	}
}

func TestClient_Complete(t *testing.T) {
	var calls atomic.Int32
	srv := chatServer(t, http.StatusOK, `{"manuscript_ID":"MS 1"}`, &calls)

	client := llm.NewClient(registryFor(srv.URL), fastRetry())
	resp, err := client.Complete(context.Background(), extractionRequest())
	require.NoError(t, err)

	assert.Equal(t, `{"manuscript_ID":"MS 1"}`, resp.Content)
	assert.Equal(t, "served-model", resp.Model)
	assert.Equal(t, 7, resp.Usage.TotalTokens)
	assert.NotEmpty(t, resp.RequestID)
	assert.Equal(t, int32(1), calls.Load())
}

func TestClient_TransientErrorsFallBack(t *testing.T) {
	var badCalls, goodCalls atomic.Int32
	bad := chatServer(t, http.StatusServiceUnavailable, "", &badCalls)
	good := chatServer(t, http.StatusOK, "[]", &goodCalls)

	registry := registryFor(bad.URL, good.URL)
	client := llm.NewClient(registry, fastRetry())

	resp, err := client.Complete(context.Background(), extractionRequest())
	require.NoError(t, err)
	assert.Equal(t, "[]", resp.Content)

	assert.Equal(t, int32(2), badCalls.Load(), "transient errors are retried")
	assert.Equal(t, int32(1), goodCalls.Load())
	assert.Equal(t, 1, registry.GetEndpointHealth("a").FailureCount)
}

func TestClient_FatalErrorStopsChain(t *testing.T) {
	var badCalls, goodCalls atomic.Int32
	bad := chatServer(t, http.StatusUnauthorized, "", &badCalls)
	good := chatServer(t, http.StatusOK, "[]", &goodCalls)

	client := llm.NewClient(registryFor(bad.URL, good.URL), fastRetry())

	_, err := client.Complete(context.Background(), extractionRequest())
	require.Error(t, err)
	assert.True(t, llm.IsFatal(err))
	assert.Equal(t, int32(1), badCalls.Load())
	assert.Zero(t, goodCalls.Load())
}

func TestClient_AllEndpointsFail(t *testing.T) {
	var calls atomic.Int32
	bad := chatServer(t, http.StatusTooManyRequests, "", &calls)

	client := llm.NewClient(registryFor(bad.URL), fastRetry())
	_, err := client.Complete(context.Background(), extractionRequest())

	require.Error(t, err)
	assert.True(t, llm.IsTransient(err))
	assert.Contains(t, err.Error(), "all endpoints failed")
}

func TestClient_CanceledContext(t *testing.T) {
	var calls atomic.Int32
	srv := chatServer(t, http.StatusOK, "[]", &calls)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := llm.NewClient(registryFor(srv.URL), fastRetry())
	_, err := client.Complete(ctx, extractionRequest())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestClient_Validation(t *testing.T) {
	client := llm.NewClient(model.NewDefaultRegistry())

	_, err := client.Complete(context.Background(), llm.Request{Messages: []llm.Message{{Role: "user", Content: "x"}}})
	assert.Error(t, err)

	_, err = client.Complete(context.Background(), llm.Request{Capability: "extraction"})
	assert.Error(t, err)
}

func TestClient_UnknownProviderIsFatal(t *testing.T) {
	registry := model.NewRegistry(map[model.Capability]*model.CapabilityConfig{
		model.CapabilityClassification: {Preferred: []string{"x"}},
	}, map[string]*model.EndpointConfig{
		"x": {Provider: "carrier-pigeon", Model: "coo"},
	})

	_, err := llm.NewClient(registry).Complete(context.Background(), llm.Request{
		Capability: "classification",
		Messages:   []llm.Message{{Role: "user", Content: "x"}},
	})
	assert.True(t, llm.IsFatal(err))
}
