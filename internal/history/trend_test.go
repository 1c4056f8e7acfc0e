package history

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rcolon/faretrack/internal/models"
)

// fakeConverter applies a per-day EUR rate and records which days it was
// asked about. USD passes through.
type fakeConverter struct {
	eurRates map[string]float64
	askedFor map[string]bool
	err      error
}

func (f *fakeConverter) AmountToUSD(ctx context.Context, amount float64, cur string, at time.Time) (float64, error) {
	if f.err != nil {
		return 0, f.err
	}
	if cur == "" || cur == "USD" {
		return amount, nil
	}
	day := at.UTC().Format("2006-01-02")
	if f.askedFor == nil {
		f.askedFor = map[string]bool{}
	}
	f.askedFor[day] = true
	rate, ok := f.eurRates[day]
	if !ok {
		return 0, errors.New("no rate for " + day)
	}
	return amount * rate, nil
}

func appendOne(t *testing.T, store *Store, ts time.Time, price float64, currency string) {
	t.Helper()
	offer := offerAt(price, "AA")
	offer.Currency = currency
	if _, err := store.AppendOffers(context.Background(), []*models.Offer{offer}, testContext(ts), DefaultTopN); err != nil {
		t.Fatal(err)
	}
}

func trendFor(t *testing.T, store *Store, conv Converter) (string, []TrendPoint) {
	t.Helper()
	mode, points, err := store.MarketTrendUSD(context.Background(), "SJU", "JFK",
		time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), conv, 0)
	if err != nil {
		t.Fatal(err)
	}
	return mode, points
}

func TestMarketTrendEmptyIsRaw(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	mode, points := trendFor(t, store, &fakeConverter{})

	if mode != TrendRaw {
		t.Fatalf("mode = %q, want %q", mode, TrendRaw)
	}
	if points == nil || len(points) != 0 {
		t.Fatalf("empty trend should be an empty non-nil slice, got %#v", points)
	}
}

func TestMarketTrendSingleDayIsRaw(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	day := time.Date(2026, 2, 20, 0, 0, 0, 0, time.UTC)
	appendOne(t, store, day.Add(9*time.Hour), 310, "USD")
	appendOne(t, store, day.Add(15*time.Hour), 295, "USD")

	mode, points := trendFor(t, store, &fakeConverter{})
	if mode != TrendRaw {
		t.Fatalf("mode = %q, want %q", mode, TrendRaw)
	}
	if len(points) != 2 {
		t.Fatalf("got %d points, want 2", len(points))
	}
	for _, p := range points {
		if p.Observations != 1 || p.Day != "" || p.SearchTS.IsZero() {
			t.Errorf("raw point malformed: %+v", p)
		}
	}
	if points[0].PriceUSD != 310 || points[1].PriceUSD != 295 {
		t.Errorf("raw points out of order or misconverted: %+v", points)
	}
}

func TestMarketTrendMultiDayIsDailyMin(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	for _, row := range []struct {
		ts    time.Time
		price float64
	}{
		{time.Date(2026, 2, 20, 9, 0, 0, 0, time.UTC), 320},
		{time.Date(2026, 2, 20, 18, 0, 0, 0, time.UTC), 300},
		{time.Date(2026, 2, 21, 9, 0, 0, 0, time.UTC), 310},
		{time.Date(2026, 2, 22, 9, 0, 0, 0, time.UTC), 290},
		{time.Date(2026, 2, 22, 18, 0, 0, 0, time.UTC), 305},
	} {
		appendOne(t, store, row.ts, row.price, "USD")
	}

	mode, points := trendFor(t, store, &fakeConverter{})
	if mode != TrendDaily {
		t.Fatalf("mode = %q, want %q", mode, TrendDaily)
	}
	if len(points) != 3 {
		t.Fatalf("got %d daily points, want 3", len(points))
	}

	want := []TrendPoint{
		{Day: "2026-02-20", PriceUSD: 300, Observations: 2},
		{Day: "2026-02-21", PriceUSD: 310, Observations: 1},
		{Day: "2026-02-22", PriceUSD: 290, Observations: 2},
	}
	for i, w := range want {
		got := points[i]
		if got.Day != w.Day || got.PriceUSD != w.PriceUSD || got.Observations != w.Observations {
			t.Errorf("point %d = %+v, want %+v", i, got, w)
		}
	}
}

func TestMarketTrendConvertsAtObservationDay(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	appendOne(t, store, time.Date(2026, 2, 20, 9, 0, 0, 0, time.UTC), 100, "EUR")
	appendOne(t, store, time.Date(2026, 2, 21, 9, 0, 0, 0, time.UTC), 100, "EUR")

	conv := &fakeConverter{eurRates: map[string]float64{
		"2026-02-20": 1.05,
		"2026-02-21": 1.10,
	}}

	mode, points := trendFor(t, store, conv)
	if mode != TrendDaily {
		t.Fatalf("mode = %q, want %q", mode, TrendDaily)
	}
	if len(points) != 2 {
		t.Fatalf("got %d points, want 2", len(points))
	}
	if points[0].PriceUSD != 105 || points[1].PriceUSD != 110 {
		t.Errorf("conversion did not use each observation's own day rate: %+v", points)
	}
	if !conv.askedFor["2026-02-20"] || !conv.askedFor["2026-02-21"] {
		t.Errorf("converter not consulted per day: %v", conv.askedFor)
	}
}

func TestMarketTrendConversionFailurePropagates(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	appendOne(t, store, time.Date(2026, 2, 20, 9, 0, 0, 0, time.UTC), 100, "EUR")

	conv := &fakeConverter{err: errors.New("upstream down")}
	_, _, err := store.MarketTrendUSD(context.Background(), "SJU", "JFK",
		time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), conv, 0)
	if err == nil {
		t.Fatal("conversion failure should propagate")
	}
}
