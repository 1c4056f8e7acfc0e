package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rcolon/faretrack/internal/models"
)

const mockBasePrice = 300.0

// mockOffer is the raw record shape the generator produces, retained as
// the offer's raw payload.
type mockOffer struct {
	OptionID      string  `json:"option_id"`
	Region        string  `json:"region"`
	Provider      string  `json:"provider"`
	Description   string  `json:"description"`
	TotalPriceUSD float64 `json:"total_price_usd"`
	StopsOut      int     `json:"stops_out"`
	StopsReturn   int     `json:"stops_return"`
	TripStructure string  `json:"trip_structure"`
	DepartureDate string  `json:"departure_date"`
	ReturnDate    string  `json:"return_date,omitempty"`
	OffsetDays    int     `json:"date_offset_days"`
	Airline       string  `json:"airline"`
	Currency      string  `json:"currency"`
}

// MockProvider is a deterministic offline generator for development and
// testing. It respects trip structure, the max-stops filter and the
// flexible-dates ±3 day window; no randomness anywhere.
type MockProvider struct{}

func NewMockProvider() *MockProvider {
	return &MockProvider{}
}

func (p *MockProvider) Name() string {
	return "mock"
}

func (p *MockProvider) Search(ctx context.Context, params models.SearchParams) ([]*models.Offer, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	offsets := []int{0}
	if params.FlexibleDates {
		offsets = []int{-3, -2, -1, 0, 1, 2, 3}
	}

	maxStops := params.MaxStopsLimit()
	var offers []*models.Offer

	for _, offset := range offsets {
		dep := params.DepartureDate.AddDate(0, 0, offset)
		var ret *time.Time
		if params.ReturnDate != nil && params.TripStructure == models.TripRoundtrip {
			r := params.ReturnDate.AddDate(0, 0, offset)
			ret = &r
		}

		// Some days are cheaper; purely illustrative pricing.
		dayBase := mockBasePrice + float64(offset)*5

		for _, tmpl := range mockTemplates(params.TripStructure, offset, dayBase) {
			if !passesStopsFilter(tmpl.StopsOut, tmpl.StopsReturn, params.TripStructure, maxStops) {
				continue
			}

			raw := tmpl
			raw.TripStructure = params.TripStructure
			raw.DepartureDate = dep.Format("2006-01-02")
			if ret != nil {
				raw.ReturnDate = ret.Format("2006-01-02")
			}
			rawJSON, _ := json.Marshal(raw)

			stopsReturn := 0
			if params.TripStructure == models.TripRoundtrip {
				stopsReturn = raw.StopsReturn
			}

			offers = append(offers, &models.Offer{
				Provider:      p.Name(),
				Origin:        params.Origin,
				Destination:   params.Destination,
				TripStructure: params.TripStructure,
				DepartureDate: dep,
				ReturnDate:    ret,
				Airline:       raw.Airline,
				StopsOut:      raw.StopsOut,
				StopsReturn:   stopsReturn,
				TotalPrice:    raw.TotalPriceUSD,
				Currency:      "USD",
				Raw:           rawJSON,
			})
		}
	}

	return offers, nil
}

// mockTemplates simulates offers seen from different regions and
// aggregators for one candidate date.
func mockTemplates(tripStructure string, offset int, dayBase float64) []mockOffer {
	return []mockOffer{
		{
			OptionID:      fmt.Sprintf("US-A-%+d", offset),
			Region:        "US",
			Provider:      "mock",
			Description:   tripStructure + " · Single carrier · US region",
			TotalPriceUSD: dayBase,
			StopsOut:      0,
			StopsReturn:   0,
			OffsetDays:    offset,
			Airline:       "AA",
			Currency:      "USD",
		},
		{
			OptionID:      fmt.Sprintf("US-B-%+d", offset),
			Region:        "US",
			Provider:      "mock",
			Description:   tripStructure + " · 1 stop · US region",
			TotalPriceUSD: dayBase - 15,
			StopsOut:      1,
			StopsReturn:   0,
			OffsetDays:    offset,
			Airline:       "DL",
			Currency:      "USD",
		},
		{
			OptionID:      fmt.Sprintf("EU-A-%+d", offset),
			Region:        "EU",
			Provider:      "mock",
			Description:   tripStructure + " · Mixed carriers · EU region",
			TotalPriceUSD: dayBase - 35,
			StopsOut:      1,
			StopsReturn:   1,
			OffsetDays:    offset,
			Airline:       "UA",
			Currency:      "USD",
		},
		{
			OptionID:      fmt.Sprintf("LATAM-A-%+d", offset),
			Region:        "LATAM",
			Provider:      "mock",
			Description:   tripStructure + " · Aggressive pricing · LATAM region",
			TotalPriceUSD: dayBase - 45,
			StopsOut:      2,
			StopsReturn:   2,
			OffsetDays:    offset,
			Airline:       "B6",
			Currency:      "USD",
		},
	}
}

func passesStopsFilter(stopsOut, stopsReturn int, tripStructure string, maxStops int) bool {
	if tripStructure == models.TripOneWay {
		return stopsOut <= maxStops
	}
	return stopsOut <= maxStops && stopsReturn <= maxStops
}
