package llm

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClassifyHTTPError(t *testing.T) {
	tests := []struct {
		status    int
		transient bool
	}{
		{http.StatusTooManyRequests, true},
		{http.StatusInternalServerError, true},
		{http.StatusBadGateway, true},
		{http.StatusServiceUnavailable, true},
		{http.StatusBadRequest, false},
		{http.StatusUnauthorized, false},
		{http.StatusForbidden, false},
		{http.StatusNotFound, false},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			err := classifyHTTPError(tt.status, []byte("body"))
			assert.Equal(t, tt.transient, IsTransient(err))
			assert.Equal(t, !tt.transient, IsFatal(err))
			assert.Contains(t, err.Error(), fmt.Sprintf("status %d", tt.status))
		})
	}
}

func TestClassifyHTTPError_TruncatesBody(t *testing.T) {
	long := make([]byte, 500)
	for i := range long {
		long[i] = 'x'
	}
	err := classifyHTTPError(http.StatusBadRequest, long)
	assert.Less(t, len(err.Error()), 260)
}

func TestErrorWrapping(t *testing.T) {
	base := errors.New("boom")
	wrapped := fmt.Errorf("call: %w", NewTransientError(base))

	assert.True(t, IsTransient(wrapped))
	assert.False(t, IsFatal(wrapped))
	assert.ErrorIs(t, wrapped, base)
}

func TestRetryConfig_Backoff(t *testing.T) {
	cfg := RetryConfig{BackoffBase: time.Second, BackoffMultiplier: 2, MaxBackoff: 3 * time.Second}

	within := func(d, center time.Duration) bool {
		return d >= center*3/4 && d <= center*5/4
	}
	assert.True(t, within(cfg.Backoff(1), time.Second))
	assert.True(t, within(cfg.Backoff(2), 2*time.Second))
	assert.True(t, within(cfg.Backoff(5), 3*time.Second), "capped")
}
