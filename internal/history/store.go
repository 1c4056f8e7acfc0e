// Package history is the append-only price observation log and its
// read-side aggregations. Rows are never updated or deleted here;
// retention is an operational concern.
package history

import (
	"context"
	"database/sql"
	"sort"
	"time"

	"github.com/rcolon/faretrack/internal/models"
)

const DefaultTopN = 30

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) EnsureSchema() error {
	const createTable = `
CREATE TABLE IF NOT EXISTS price_observations (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  search_ts TEXT NOT NULL,
  provider TEXT,
  origin TEXT NOT NULL,
  destination TEXT NOT NULL,
  trip_structure TEXT NOT NULL,
  departure_date TEXT NOT NULL,
  return_date TEXT,
  passengers INTEGER,
  max_stops_label TEXT,
  flexible_dates INTEGER,

  airline_code TEXT,
  airline_name TEXT,
  flight_number TEXT,
  dep_time TEXT,
  arr_time TEXT,

  stops_out INTEGER,
  stops_return INTEGER,

  price_usd REAL NOT NULL,
  currency TEXT,

  offer_signature TEXT NOT NULL
);
`
	if _, err := s.db.Exec(createTable); err != nil {
		return err
	}

	for _, idx := range []string{
		`CREATE INDEX IF NOT EXISTS idx_route_dep ON price_observations(origin, destination, departure_date);`,
		`CREATE INDEX IF NOT EXISTS idx_search_ts ON price_observations(search_ts);`,
		`CREATE INDEX IF NOT EXISTS idx_signature ON price_observations(offer_signature);`,
	} {
		if _, err := s.db.Exec(idx); err != nil {
			return err
		}
	}
	return nil
}

// SearchContext is the search-side identity embedded in every row.
type SearchContext struct {
	SearchTS      time.Time
	Origin        string
	Destination   string
	TripStructure string
	DepartureDate time.Time
	ReturnDate    *time.Time
	Passengers    int
	MaxStopsLabel string
	FlexibleDates bool
}

// AppendOffers persists a snapshot of the topN cheapest offers, one row
// each, and reports the number of rows written. Empty input writes
// nothing and returns 0.
func (s *Store) AppendOffers(ctx context.Context, offers []*models.Offer, sc SearchContext, topN int) (int, error) {
	if len(offers) == 0 {
		return 0, nil
	}
	if topN < 1 {
		topN = 1
	}

	searchTS := sc.SearchTS
	if searchTS.IsZero() {
		searchTS = time.Now().UTC()
	}

	byPrice := make([]*models.Offer, len(offers))
	copy(byPrice, offers)
	sort.SliceStable(byPrice, func(i, j int) bool {
		return byPrice[i].TotalPrice < byPrice[j].TotalPrice
	})
	if len(byPrice) > topN {
		byPrice = byPrice[:topN]
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO price_observations (
  search_ts, provider, origin, destination, trip_structure,
  departure_date, return_date, passengers, max_stops_label, flexible_dates,
  airline_code, airline_name, flight_number, dep_time, arr_time,
  stops_out, stops_return,
  price_usd, currency,
  offer_signature
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	var retDate any
	if sc.ReturnDate != nil {
		retDate = sc.ReturnDate.Format("2006-01-02")
	}
	flexible := 0
	if sc.FlexibleDates {
		flexible = 1
	}

	for _, o := range byPrice {
		var flightNumber, depTime, arrTime any
		if seg := firstSegment(o); seg != nil {
			flightNumber = nullStr(seg.FlightNumber)
			depTime = nullTime(seg.DepAt)
			arrTime = nullTime(seg.ArrAt)
		}

		cur := o.Currency
		if cur == "" {
			cur = "USD"
		}

		if _, err := stmt.ExecContext(ctx,
			searchTS.UTC().Format(time.RFC3339),
			o.Provider,
			sc.Origin,
			sc.Destination,
			sc.TripStructure,
			sc.DepartureDate.Format("2006-01-02"),
			retDate,
			sc.Passengers,
			sc.MaxStopsLabel,
			flexible,
			nullStr(o.Airline),
			nullStr(o.AirlineName),
			flightNumber,
			depTime,
			arrTime,
			o.StopsOut,
			o.StopsReturn,
			o.TotalPrice,
			cur,
			o.Signature(),
		); err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return len(byPrice), nil
}

// Observation is one flattened row of the log.
type Observation struct {
	SearchTS     time.Time `json:"search_ts"`
	Provider     string    `json:"provider,omitempty"`
	Price        float64   `json:"price_usd"`
	Currency     string    `json:"currency"`
	AirlineCode  string    `json:"airline_code,omitempty"`
	AirlineName  string    `json:"airline_name,omitempty"`
	FlightNumber string    `json:"flight_number,omitempty"`
	DepTime      string    `json:"dep_time,omitempty"`
	ArrTime      string    `json:"arr_time,omitempty"`
	StopsOut     int       `json:"stops_out"`
	StopsReturn  int       `json:"stops_return"`
	Signature    string    `json:"offer_signature"`
}

// RouteHistory returns observations for the exact route and departure
// date, ascending by search timestamp, capped at limit.
func (s *Store) RouteHistory(ctx context.Context, origin, destination string, departureDate time.Time, limit int) ([]Observation, error) {
	if limit <= 0 {
		limit = 500
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT search_ts, COALESCE(provider, ''), price_usd, COALESCE(currency, 'USD'),
       COALESCE(airline_code, ''), COALESCE(airline_name, ''), COALESCE(flight_number, ''),
       COALESCE(dep_time, ''), COALESCE(arr_time, ''),
       COALESCE(stops_out, 0), COALESCE(stops_return, 0), offer_signature
FROM price_observations
WHERE origin = ? AND destination = ? AND departure_date = ?
ORDER BY search_ts ASC
LIMIT ?
`,
		origin, destination, departureDate.Format("2006-01-02"), limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Observation
	for rows.Next() {
		var (
			obs Observation
			ts  string
		)
		if err := rows.Scan(
			&ts, &obs.Provider, &obs.Price, &obs.Currency,
			&obs.AirlineCode, &obs.AirlineName, &obs.FlightNumber,
			&obs.DepTime, &obs.ArrTime,
			&obs.StopsOut, &obs.StopsReturn, &obs.Signature,
		); err != nil {
			return nil, err
		}
		if t, ok := parseSearchTS(ts); ok {
			obs.SearchTS = t
		}
		out = append(out, obs)
	}
	return out, rows.Err()
}

func firstSegment(o *models.Offer) *models.Segment {
	if len(o.Itineraries) > 0 && len(o.Itineraries[0].Segments) > 0 {
		return &o.Itineraries[0].Segments[0]
	}
	return nil
}

func nullStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}

// parseSearchTS accepts the stored RFC3339 form plus the naive variant
// older rows may carry. Naive timestamps are treated as UTC.
func parseSearchTS(s string) (time.Time, bool) {
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}
