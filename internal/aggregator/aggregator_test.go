package aggregator

import (
	"context"
	"errors"
	"sort"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rcolon/faretrack/internal/models"
	"github.com/rcolon/faretrack/internal/providers"
)

type stubProvider struct {
	name   string
	offers []*models.Offer
	err    error
	calls  int32
}

func (p *stubProvider) Name() string { return p.name }

func (p *stubProvider) Search(ctx context.Context, params models.SearchParams) ([]*models.Offer, error) {
	atomic.AddInt32(&p.calls, 1)
	if p.err != nil {
		return nil, p.err
	}
	return p.offers, nil
}

func offerFrom(provider string, price float64) *models.Offer {
	return &models.Offer{
		Provider:      provider,
		Origin:        "SJU",
		Destination:   "JFK",
		TripStructure: models.TripOneWay,
		TotalPrice:    price,
		Currency:      "USD",
	}
}

func testConfig() Config {
	return Config{Timeout: 5 * time.Second}
}

func TestSearchMergesAllProviders(t *testing.T) {
	t.Parallel()

	a := NewAggregator([]providers.Provider{
		&stubProvider{name: "one", offers: []*models.Offer{offerFrom("one", 300)}},
		&stubProvider{name: "two", offers: []*models.Offer{offerFrom("two", 280), offerFrom("two", 310)}},
	}, nil, testConfig())

	result, err := a.Search(context.Background(), models.SearchParams{})
	if err != nil {
		t.Fatal(err)
	}

	if result.ProvidersQueried != 2 || result.ProvidersSucceeded != 2 || result.ProvidersFailed != 0 {
		t.Errorf("accounting = %+v", result)
	}
	if len(result.Offers) != 3 {
		t.Fatalf("merged %d offers, want 3", len(result.Offers))
	}
}

func TestSearchIsolatesProviderFailure(t *testing.T) {
	t.Parallel()

	a := NewAggregator([]providers.Provider{
		&stubProvider{name: "healthy", offers: []*models.Offer{offerFrom("healthy", 300)}},
		&stubProvider{name: "broken", err: errors.New("boom")},
	}, nil, testConfig())

	result, err := a.Search(context.Background(), models.SearchParams{})
	if err != nil {
		t.Fatal(err)
	}

	if result.ProvidersSucceeded != 1 || result.ProvidersFailed != 1 {
		t.Errorf("accounting = %+v", result)
	}
	if len(result.FailedProviders) != 1 || result.FailedProviders[0] != "broken" {
		t.Errorf("failed providers = %v", result.FailedProviders)
	}
	if len(result.Offers) != 1 {
		t.Errorf("healthy offers lost: %d", len(result.Offers))
	}
}

func TestSearchRetriesFailedProvider(t *testing.T) {
	t.Parallel()

	flaky := &stubProvider{name: "flaky", err: errors.New("boom")}
	cfg := testConfig()
	cfg.MaxRetries = 2
	cfg.RetryDelays = []time.Duration{time.Millisecond, time.Millisecond}

	a := NewAggregator([]providers.Provider{flaky}, nil, cfg)
	result, err := a.Search(context.Background(), models.SearchParams{})
	if err != nil {
		t.Fatal(err)
	}

	if got := atomic.LoadInt32(&flaky.calls); got != 3 {
		t.Errorf("provider called %d times, want 3 (initial + 2 retries)", got)
	}
	if result.ProvidersFailed != 1 {
		t.Errorf("exhausted retries should count as a failure: %+v", result)
	}
}

func TestSearchExcludesLiveProvidersByDefault(t *testing.T) {
	t.Parallel()

	mock := &stubProvider{name: "mock", offers: []*models.Offer{offerFrom("mock", 300)}}
	live := &stubProvider{name: "live", offers: []*models.Offer{offerFrom("live", 200)}}

	a := NewAggregator([]providers.Provider{mock, live}, []string{"live"}, testConfig())

	result, err := a.Search(context.Background(), models.SearchParams{})
	if err != nil {
		t.Fatal(err)
	}
	if result.ProvidersQueried != 1 {
		t.Fatalf("queried %d providers without real data, want 1", result.ProvidersQueried)
	}
	if atomic.LoadInt32(&live.calls) != 0 {
		t.Fatal("live provider was called without use_real_data")
	}

	result, err = a.Search(context.Background(), models.SearchParams{UseRealData: true})
	if err != nil {
		t.Fatal(err)
	}
	if result.ProvidersQueried != 2 {
		t.Fatalf("queried %d providers with real data, want 2", result.ProvidersQueried)
	}

	gotProviders := make([]string, 0, len(result.Offers))
	for _, o := range result.Offers {
		gotProviders = append(gotProviders, o.Provider)
	}
	sort.Strings(gotProviders)
	if len(gotProviders) != 2 || gotProviders[0] != "live" || gotProviders[1] != "mock" {
		t.Errorf("offers from %v", gotProviders)
	}
}

func TestSearchEmptyProviderSet(t *testing.T) {
	t.Parallel()

	a := NewAggregator(nil, nil, testConfig())
	result, err := a.Search(context.Background(), models.SearchParams{})
	if err != nil {
		t.Fatal(err)
	}
	if result.ProvidersQueried != 0 || len(result.Offers) != 0 {
		t.Errorf("empty set result = %+v", result)
	}
}
