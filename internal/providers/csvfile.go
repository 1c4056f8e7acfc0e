package providers

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rcolon/faretrack/internal/models"
)

// CSVProvider reads offers from a fixed-schema local file with columns:
// origin, destination, departure_date, return_date, trip_structure,
// region, provider, airline, total_price_usd, stops_out, stops_return.
// A missing file yields an empty result, not an error.
type CSVProvider struct {
	path string
}

func NewCSVProvider(path string) *CSVProvider {
	return &CSVProvider{path: path}
}

func (p *CSVProvider) Name() string {
	return "csv"
}

func (p *CSVProvider) Search(ctx context.Context, params models.SearchParams) ([]*models.Offer, error) {
	f, err := os.Open(p.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, NewProviderError(p.Name(), err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, NewProviderError(p.Name(), err)
	}

	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.ToLower(strings.TrimSpace(name))] = i
	}

	depMin := params.DepartureDate
	depMax := params.DepartureDate
	if params.FlexibleDates {
		depMin = depMin.AddDate(0, 0, -3)
		depMax = depMax.AddDate(0, 0, 3)
	}
	maxStops := params.MaxStopsLimit()

	var offers []*models.Offer
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, NewProviderError(p.Name(), err)
		}

		field := func(name string) string {
			i, ok := col[name]
			if !ok || i >= len(rec) {
				return ""
			}
			return strings.TrimSpace(rec[i])
		}

		if !strings.EqualFold(field("origin"), params.Origin) ||
			!strings.EqualFold(field("destination"), params.Destination) {
			continue
		}
		if field("trip_structure") != params.TripStructure {
			continue
		}

		dep, err := time.Parse("2006-01-02", field("departure_date"))
		if err != nil {
			continue
		}
		if dep.Before(depMin) || dep.After(depMax) {
			continue
		}

		stopsOut := atoiDefault(field("stops_out"), 0)
		stopsReturn := atoiDefault(field("stops_return"), 0)
		if !passesStopsFilter(stopsOut, stopsReturn, params.TripStructure, maxStops) {
			continue
		}

		var ret *time.Time
		if v := field("return_date"); v != "" {
			if t, err := time.Parse("2006-01-02", v); err == nil {
				ret = &t
			}
		}

		price, _ := strconv.ParseFloat(field("total_price_usd"), 64)

		provider := field("provider")
		if provider == "" {
			provider = p.Name()
		}

		raw, _ := json.Marshal(recordMap(header, rec))

		offers = append(offers, &models.Offer{
			Provider:      provider,
			Origin:        strings.ToUpper(field("origin")),
			Destination:   strings.ToUpper(field("destination")),
			TripStructure: params.TripStructure,
			DepartureDate: dep,
			ReturnDate:    ret,
			Airline:       field("airline"),
			StopsOut:      stopsOut,
			StopsReturn:   stopsReturn,
			TotalPrice:    price,
			Currency:      "USD",
			Raw:           raw,
		})
	}

	return offers, nil
}

func atoiDefault(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

func recordMap(header, rec []string) map[string]string {
	m := make(map[string]string, len(header))
	for i, name := range header {
		if i < len(rec) {
			m[strings.ToLower(strings.TrimSpace(name))] = rec[i]
		}
	}
	return m
}
