package llm

import (
	"errors"
	"fmt"
	"net/http"
)

// TransientError marks a failure that may succeed on retry: network
// errors, rate limiting and server errors.
type TransientError struct {
	err error
}

func (e *TransientError) Error() string { return e.err.Error() }
func (e *TransientError) Unwrap() error { return e.err }

// FatalError marks a failure that retrying cannot fix, such as bad
// credentials or a rejected request.
type FatalError struct {
	err error
}

func (e *FatalError) Error() string { return e.err.Error() }
func (e *FatalError) Unwrap() error { return e.err }

// NewTransientError wraps err as retryable.
func NewTransientError(err error) error {
	return &TransientError{err: err}
}

// NewFatalError wraps err as non-retryable.
func NewFatalError(err error) error {
	return &FatalError{err: err}
}

// IsTransient reports whether err is retryable.
func IsTransient(err error) bool {
	var transient *TransientError
	return errors.As(err, &transient)
}

// IsFatal reports whether err must not be retried.
func IsFatal(err error) bool {
	var fatal *FatalError
	return errors.As(err, &fatal)
}

// classifyHTTPError maps a non-200 status to a transient or fatal error.
// 429 and 5xx are transient; everything else is fatal.
func classifyHTTPError(status int, body []byte) error {
	text := string(body)
	if len(text) > 200 {
		text = text[:200] + "..."
	}
	err := fmt.Errorf("LLM API error (status %d): %s", status, text)

	if status == http.StatusTooManyRequests || status >= 500 {
		return NewTransientError(err)
	}
	return NewFatalError(err)
}
