package llm

import (
	"math/rand/v2"
	"time"
)

// RetryConfig controls retries against a single endpoint.
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts per endpoint.
	MaxAttempts int `yaml:"max_attempts" json:"max_attempts"`

	// BackoffBase is the wait before the first retry.
	BackoffBase time.Duration `yaml:"backoff_base" json:"backoff_base"`

	// BackoffMultiplier grows the wait on each retry.
	BackoffMultiplier float64 `yaml:"backoff_multiplier" json:"backoff_multiplier"`

	// MaxBackoff caps the wait.
	MaxBackoff time.Duration `yaml:"max_backoff" json:"max_backoff"`
}

// DefaultRetryConfig returns the default retry settings.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:       3,
		BackoffBase:       2 * time.Second,
		BackoffMultiplier: 2.0,
		MaxBackoff:        30 * time.Second,
	}
}

// Backoff returns the wait after the given failed attempt (1-based):
// exponential growth capped at MaxBackoff, with +/-25% jitter.
func (c RetryConfig) Backoff(attempt int) time.Duration {
	multiplier := 1.0
	for i := 1; i < attempt; i++ {
		multiplier *= c.BackoffMultiplier
	}

	backoff := time.Duration(float64(c.BackoffBase) * multiplier)
	if backoff > c.MaxBackoff {
		backoff = c.MaxBackoff
	}

	jitter := float64(backoff) * 0.25 * (rand.Float64()*2 - 1)
	return backoff + time.Duration(jitter)
}
