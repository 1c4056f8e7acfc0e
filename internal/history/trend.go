package history

import (
	"context"
	"sort"
	"time"
)

const (
	TrendRaw   = "raw"
	TrendDaily = "daily"
)

// Converter is satisfied by fx.Service.
type Converter interface {
	AmountToUSD(ctx context.Context, amount float64, cur string, at time.Time) (float64, error)
}

// TrendPoint is one element of a trend series. Raw mode fills SearchTS,
// PriceUSD and Currency with Observations = 1; daily mode fills Day,
// the per-day minimum PriceUSD and the per-day Observations count.
type TrendPoint struct {
	Day          string    `json:"day,omitempty"`
	SearchTS     time.Time `json:"search_ts,omitempty"`
	PriceUSD     float64   `json:"price_usd"`
	Currency     string    `json:"currency,omitempty"`
	Observations int       `json:"observations"`
}

// MarketTrendUSD returns the price trend for a route and departure
// date, converted to USD at each observation's own search day (the
// historical rate, never today's). With observations on at most one
// distinct calendar day the raw per-observation series is returned;
// with more, the per-day minimum series. Rows with unparseable
// timestamps are dropped. Zero rows yield ("raw", empty, nil).
func (s *Store) MarketTrendUSD(ctx context.Context, origin, destination string, departureDate time.Time, conv Converter, limit int) (string, []TrendPoint, error) {
	if limit <= 0 {
		limit = 5000
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT search_ts, price_usd, COALESCE(currency, 'USD')
FROM price_observations
WHERE origin = ? AND destination = ? AND departure_date = ?
ORDER BY search_ts ASC
LIMIT ?
`,
		origin, destination, departureDate.Format("2006-01-02"), limit,
	)
	if err != nil {
		return "", nil, err
	}
	defer rows.Close()

	type obs struct {
		ts    time.Time
		price float64
		cur   string
	}

	var parsed []obs
	for rows.Next() {
		var (
			ts    string
			price float64
			cur   string
		)
		if err := rows.Scan(&ts, &price, &cur); err != nil {
			return "", nil, err
		}
		t, ok := parseSearchTS(ts)
		if !ok {
			continue
		}
		parsed = append(parsed, obs{ts: t, price: price, cur: cur})
	}
	if err := rows.Err(); err != nil {
		return "", nil, err
	}

	if len(parsed) == 0 {
		return TrendRaw, []TrendPoint{}, nil
	}

	days := make(map[string]struct{}, len(parsed))
	usd := make([]float64, len(parsed))
	for i, o := range parsed {
		v, err := conv.AmountToUSD(ctx, o.price, o.cur, o.ts)
		if err != nil {
			return "", nil, err
		}
		usd[i] = v
		days[o.ts.Format("2006-01-02")] = struct{}{}
	}

	if len(days) <= 1 {
		points := make([]TrendPoint, len(parsed))
		for i, o := range parsed {
			points[i] = TrendPoint{
				SearchTS:     o.ts,
				PriceUSD:     usd[i],
				Currency:     o.cur,
				Observations: 1,
			}
		}
		return TrendRaw, points, nil
	}

	type daily struct {
		min   float64
		count int
	}
	byDay := make(map[string]*daily, len(days))
	for i, o := range parsed {
		day := o.ts.Format("2006-01-02")
		d, ok := byDay[day]
		if !ok {
			byDay[day] = &daily{min: usd[i], count: 1}
			continue
		}
		if usd[i] < d.min {
			d.min = usd[i]
		}
		d.count++
	}

	points := make([]TrendPoint, 0, len(byDay))
	for day, d := range byDay {
		points = append(points, TrendPoint{
			Day:          day,
			PriceUSD:     d.min,
			Observations: d.count,
		})
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Day < points[j].Day })

	return TrendDaily, points, nil
}
