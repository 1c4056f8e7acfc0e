// Package aggregator fans a search out over the configured offer
// providers concurrently and merges their results.
package aggregator

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/rcolon/faretrack/internal/metrics"
	"github.com/rcolon/faretrack/internal/models"
	"github.com/rcolon/faretrack/internal/providers"
	"github.com/rcolon/faretrack/internal/ratelimit"
)

type Config struct {
	Timeout     time.Duration
	MaxRetries  int
	RetryDelays []time.Duration
	RateLimiter *ratelimit.ProviderLimiter
}

type Aggregator struct {
	providers []providers.Provider
	live      map[string]bool
	config    Config
}

type Result struct {
	Offers             []*models.Offer
	ProvidersQueried   int
	ProvidersSucceeded int
	ProvidersFailed    int
	FailedProviders    []string
}

// NewAggregator wires the provider set. Providers named in liveNames
// are only queried when a search asks for real data.
func NewAggregator(providerList []providers.Provider, liveNames []string, config Config) *Aggregator {
	live := make(map[string]bool, len(liveNames))
	for _, name := range liveNames {
		live[name] = true
	}
	return &Aggregator{
		providers: providerList,
		live:      live,
		config:    config,
	}
}

func (a *Aggregator) eligible(params models.SearchParams) []providers.Provider {
	if params.UseRealData {
		return a.providers
	}
	out := make([]providers.Provider, 0, len(a.providers))
	for _, p := range a.providers {
		if !a.live[p.Name()] {
			out = append(out, p)
		}
	}
	return out
}

func (a *Aggregator) Search(ctx context.Context, params models.SearchParams) (*Result, error) {
	searchCtx, cancel := context.WithTimeout(ctx, a.config.Timeout)
	defer cancel()

	active := a.eligible(params)
	result := &Result{
		Offers:           make([]*models.Offer, 0),
		ProvidersQueried: len(active),
	}

	type providerResult struct {
		provider string
		offers   []*models.Offer
		err      error
	}

	resultCh := make(chan providerResult, len(active))
	var wg sync.WaitGroup

	for _, p := range active {
		wg.Add(1)
		go func(provider providers.Provider) {
			defer wg.Done()

			if a.config.RateLimiter != nil {
				if err := a.config.RateLimiter.Wait(searchCtx, provider.Name()); err != nil {
					resultCh <- providerResult{provider: provider.Name(), err: err}
					return
				}
			}

			offers, err := a.searchWithRetry(searchCtx, provider, params)
			resultCh <- providerResult{
				provider: provider.Name(),
				offers:   offers,
				err:      err,
			}
		}(p)
	}

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	for pr := range resultCh {
		if pr.err != nil {
			log.Printf("Provider %s failed: %v", pr.provider, pr.err)
			metrics.ProviderFailures.WithLabelValues(pr.provider).Inc()
			result.ProvidersFailed++
			result.FailedProviders = append(result.FailedProviders, pr.provider)
		} else {
			result.ProvidersSucceeded++
			result.Offers = append(result.Offers, pr.offers...)
		}
	}

	return result, nil
}

func (a *Aggregator) searchWithRetry(ctx context.Context, provider providers.Provider, params models.SearchParams) ([]*models.Offer, error) {
	var lastErr error

	for attempt := 0; attempt <= a.config.MaxRetries; attempt++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		if attempt > 0 && len(a.config.RetryDelays) > 0 {
			delayIdx := attempt - 1
			if delayIdx >= len(a.config.RetryDelays) {
				delayIdx = len(a.config.RetryDelays) - 1
			}
			delay := a.config.RetryDelays[delayIdx]

			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		offers, err := provider.Search(ctx, params)
		if err == nil {
			return offers, nil
		}

		lastErr = err
		log.Printf("Provider %s attempt %d failed: %v", provider.Name(), attempt+1, err)
	}

	return nil, lastErr
}
