// Package fx resolves daily currency-to-USD close rates, backed by a
// persistent per-day cache and an upstream daily-series provider.
package fx

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rcolon/faretrack/internal/metrics"
)

const (
	defaultLookbackDays = 10
	minLookbackDays     = 2

	dayLayout = "2006-01-02"
)

// Point is one daily close in a series.
type Point struct {
	Day   string  // YYYY-MM-DD, UTC
	Close float64
}

// SeriesProvider fetches a daily close series for a symbol over an
// inclusive day range. Request failures must be surfaced as errors,
// distinct from an empty (but successful) series.
type SeriesProvider interface {
	DailySeries(ctx context.Context, symbol, startDay, endDay string) ([]Point, error)
}

// UnavailableSeries is the SeriesProvider used when no upstream is
// configured; every fetch fails, so non-USD resolution surfaces a
// ResolutionError instead of a fabricated rate.
type UnavailableSeries struct{}

func (UnavailableSeries) DailySeries(ctx context.Context, symbol, startDay, endDay string) ([]Point, error) {
	return nil, fmt.Errorf("fx: no series provider configured")
}

// ResolutionError reports that no candidate symbol form yielded a
// usable rate for the pair on the target day.
type ResolutionError struct {
	Pair string
	Day  string
	Err  error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("fx: unable to resolve %s on %s: %v", e.Pair, e.Day, e.Err)
}

func (e *ResolutionError) Unwrap() error {
	return e.Err
}

// Service answers rate-to-USD queries cache-first. Rates for a past day
// are immutable once fetched; a retried write overwrites with the same
// value harmlessly.
type Service struct {
	db           *sql.DB
	series       SeriesProvider
	sourceTag    string
	lookbackDays int
}

func NewService(db *sql.DB, series SeriesProvider, sourceTag string, lookbackDays int) *Service {
	if lookbackDays <= 0 {
		lookbackDays = defaultLookbackDays
	}
	if lookbackDays < minLookbackDays {
		lookbackDays = minLookbackDays
	}
	if sourceTag == "" {
		sourceTag = "unknown"
	}
	return &Service{
		db:           db,
		series:       series,
		sourceTag:    sourceTag,
		lookbackDays: lookbackDays,
	}
}

func (s *Service) EnsureSchema() error {
	const createTable = `
CREATE TABLE IF NOT EXISTS fx_rates_daily (
  pair TEXT NOT NULL,
  day_utc TEXT NOT NULL,
  rate REAL NOT NULL,
  source TEXT NOT NULL,
  fetched_at_utc TEXT NOT NULL,
  PRIMARY KEY (pair, day_utc)
);
`
	if _, err := s.db.Exec(createTable); err != nil {
		return err
	}
	if _, err := s.db.Exec(`CREATE INDEX IF NOT EXISTS idx_fx_day ON fx_rates_daily(day_utc);`); err != nil {
		return err
	}
	return nil
}

// RateToUSD returns USD per one unit of currency on the UTC calendar
// day of at. Naive callers may pass any instant; it is normalized to
// UTC. USD short-circuits to 1.0 with no I/O.
func (s *Service) RateToUSD(ctx context.Context, cur string, at time.Time) (float64, error) {
	c := strings.ToUpper(strings.TrimSpace(cur))
	if c == "" || c == "USD" {
		return 1.0, nil
	}

	pair := c + "/USD"
	day := at.UTC().Format(dayLayout)

	if rate, ok, err := s.cacheGet(ctx, pair, day); err != nil {
		return 0, err
	} else if ok {
		metrics.FxCacheHits.Inc()
		return rate, nil
	}
	metrics.FxCacheMisses.Inc()

	rate, err := s.fetchDailyRate(ctx, pair, day)
	if err != nil {
		return 0, err
	}

	if err := s.cachePut(ctx, pair, day, rate); err != nil {
		return 0, err
	}
	return rate, nil
}

// AmountToUSD converts amount from cur to USD at the daily close rate
// for the UTC day of at.
func (s *Service) AmountToUSD(ctx context.Context, amount float64, cur string, at time.Time) (float64, error) {
	rate, err := s.RateToUSD(ctx, cur, at)
	if err != nil {
		return 0, err
	}
	return amount * rate, nil
}

func (s *Service) cacheGet(ctx context.Context, pair, day string) (float64, bool, error) {
	var rate float64
	err := s.db.QueryRowContext(ctx,
		`SELECT rate FROM fx_rates_daily WHERE pair = ? AND day_utc = ?`,
		pair, day,
	).Scan(&rate)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return rate, true, nil
}

func (s *Service) cachePut(ctx context.Context, pair, day string, rate float64) error {
	_, err := s.db.ExecContext(ctx, `
INSERT OR REPLACE INTO fx_rates_daily (pair, day_utc, rate, source, fetched_at_utc)
VALUES (?, ?, ?, ?, ?)
`,
		pair, day, rate, s.sourceTag, time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

// fetchDailyRate queries the upstream series for a lookback window
// ending at day, trying the canonical "BASE/QUOTE" symbol first and a
// no-separator fallback second.
func (s *Service) fetchDailyRate(ctx context.Context, pair, day string) (float64, error) {
	end, err := time.Parse(dayLayout, day)
	if err != nil {
		return 0, &ResolutionError{Pair: pair, Day: day, Err: err}
	}
	start := end.AddDate(0, 0, -s.lookbackDays).Format(dayLayout)

	var lastErr error
	for _, sym := range candidateSymbols(pair) {
		points, err := s.series.DailySeries(ctx, sym, start, day)
		if err != nil {
			lastErr = err
			continue
		}
		rate, ok := pickRateForDay(points, day)
		if !ok {
			lastErr = fmt.Errorf("no daily fx values for %s in %s..%s", sym, start, day)
			continue
		}
		return rate, nil
	}

	return 0, &ResolutionError{Pair: pair, Day: day, Err: lastErr}
}

func candidateSymbols(pair string) []string {
	if strings.Contains(pair, "/") {
		return []string{pair, strings.ReplaceAll(pair, "/", "")}
	}
	return []string{pair}
}

// pickRateForDay selects the close of the most recent day <= target;
// when the whole series is after the target (brand-new listings), the
// earliest point is used. Models last-known-close semantics across
// weekends and holidays.
func pickRateForDay(points []Point, day string) (float64, bool) {
	if len(points) == 0 {
		return 0, false
	}

	sorted := make([]Point, len(points))
	copy(sorted, points)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Day < sorted[j].Day })

	var rate float64
	found := false
	for _, p := range sorted {
		if p.Day > day {
			break
		}
		rate = p.Close
		found = true
	}
	if found {
		return rate, true
	}
	return sorted[0].Close, true
}
