// Package ratelimit bounds how fast each offer provider is queried.
package ratelimit

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

type Config struct {
	RequestsPerSecond float64
	BurstSize         int
}

func DefaultConfig() Config {
	return Config{
		RequestsPerSecond: 10,
		BurstSize:         20,
	}
}

// ProviderLimiter keeps one token bucket per provider name, created on
// first use with the default config.
type ProviderLimiter struct {
	mu       sync.RWMutex
	limiters map[string]*rate.Limiter
	defaults Config
}

func NewProviderLimiter(cfg Config) *ProviderLimiter {
	return &ProviderLimiter{
		limiters: make(map[string]*rate.Limiter),
		defaults: cfg,
	}
}

func NewProviderLimiterWithDefaults() *ProviderLimiter {
	return NewProviderLimiter(DefaultConfig())
}

func (p *ProviderLimiter) SetProviderLimit(provider string, rps float64, burst int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.limiters[provider] = rate.NewLimiter(rate.Limit(rps), burst)
}

// Wait blocks until the provider's bucket allows a request or ctx ends.
func (p *ProviderLimiter) Wait(ctx context.Context, provider string) error {
	return p.limiter(provider).Wait(ctx)
}

func (p *ProviderLimiter) limiter(provider string) *rate.Limiter {
	p.mu.RLock()
	l, ok := p.limiters[provider]
	p.mu.RUnlock()
	if ok {
		return l
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if l, ok = p.limiters[provider]; ok {
		return l
	}
	l = rate.NewLimiter(rate.Limit(p.defaults.RequestsPerSecond), p.defaults.BurstSize)
	p.limiters[provider] = l
	return l
}
