// Package ratelimit provides client-side rate limiting for provider APIs.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Provider identifies an external API for rate limiting purposes.
type Provider string

const (
	// ProviderLLM is the language model API.
	ProviderLLM Provider = "llm"
	// ProviderEmbedding is the embedding API.
	ProviderEmbedding Provider = "embedding"
)

// Config holds rate limiting configuration for a provider.
type Config struct {
	// RequestsPerSecond is the sustained rate limit.
	RequestsPerSecond float64
	// BurstSize is the maximum burst size.
	BurstSize int
}

// DefaultLimits provides conservative defaults per provider, well below the
// published tiers so batch runs never trip quotas.
var DefaultLimits = map[Provider]Config{
	ProviderLLM:       {RequestsPerSecond: 1.0, BurstSize: 2},
	ProviderEmbedding: {RequestsPerSecond: 4.0, BurstSize: 8},
}

// Limiter provides rate limiting for provider API requests.
// It uses a token bucket with an additional backoff window for 429 responses.
type Limiter struct {
	mu      sync.Mutex
	limiter *rate.Limiter
	retryAt time.Time
}

// New creates a limiter for the given provider.
func New(p Provider) *Limiter {
	cfg, ok := DefaultLimits[p]
	if !ok {
		cfg = Config{RequestsPerSecond: 2.0, BurstSize: 4}
	}
	return NewWithConfig(cfg)
}

// NewWithConfig creates a limiter with custom configuration.
func NewWithConfig(cfg Config) *Limiter {
	return &Limiter{
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.BurstSize),
	}
}

// Wait blocks until a request can be made without exceeding the rate limit.
// It also respects any backoff window set by RecordRateLimitError.
func (l *Limiter) Wait(ctx context.Context) error {
	l.mu.Lock()
	retryAt := l.retryAt
	l.mu.Unlock()

	if time.Now().Before(retryAt) {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Until(retryAt)):
		}
	}

	return l.limiter.Wait(ctx)
}

// RecordRateLimitError records a 429 response and opens a backoff window.
// retryAfter of zero applies a 30 second default.
func (l *Limiter) RecordRateLimitError(retryAfter time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if retryAfter <= 0 {
		retryAfter = 30 * time.Second
	}
	l.retryAt = time.Now().Add(retryAfter)
}
