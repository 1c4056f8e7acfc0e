package models

import (
	"strings"
	"time"
)

const (
	TripRoundtrip = "Roundtrip"
	TripOneWay    = "One-way"
)

// SearchParams is the immutable, parsed form of a search. The return
// date is present only for roundtrips where the caller supplied one.
type SearchParams struct {
	Origin           string
	Destination      string
	TripStructure    string
	DepartureDate    time.Time
	ReturnDate       *time.Time
	OptimizationMode string
	Passengers       int
	MaxStops         string
	Airlines         []string
	Multicity        bool
	FlexibleDates    bool
	UseRealData      bool
}

// MaxStopsLimit maps the filter label to a numeric limit.
func (p SearchParams) MaxStopsLimit() int {
	switch {
	case strings.Contains(p.MaxStops, "Nonstop"):
		return 0
	case strings.Contains(p.MaxStops, "1 stop"):
		return 1
	default:
		return 2
	}
}

// SearchRequest is the wire form accepted by the search endpoint.
type SearchRequest struct {
	Origin           string   `json:"origin"`
	Destination      string   `json:"destination"`
	TripStructure    string   `json:"trip_structure"`
	DepartureDate    string   `json:"departure_date"`
	ReturnDate       *string  `json:"return_date,omitempty"`
	OptimizationMode string   `json:"optimization_mode,omitempty"`
	Passengers       int      `json:"passengers"`
	MaxStops         string   `json:"max_stops,omitempty"`
	Airlines         []string `json:"airlines,omitempty"`
	Multicity        bool     `json:"multicity,omitempty"`
	FlexibleDates    bool     `json:"flexible_dates,omitempty"`
	UseRealData      bool     `json:"use_real_data,omitempty"`
}

func (r *SearchRequest) Validate() error {
	if r.Origin == "" {
		return ErrMissingOrigin
	}
	if r.Destination == "" {
		return ErrMissingDestination
	}
	if r.DepartureDate == "" {
		return ErrMissingDepartureDate
	}
	if r.TripStructure == "" {
		r.TripStructure = TripRoundtrip
	}
	if r.TripStructure != TripRoundtrip && r.TripStructure != TripOneWay {
		return ErrBadTripStructure
	}
	if r.Passengers <= 0 {
		r.Passengers = 1
	}
	if r.OptimizationMode == "" {
		r.OptimizationMode = "Optimal"
	}
	if r.MaxStops == "" {
		r.MaxStops = "Up to 2+ stops"
	}
	return nil
}

// ToParams parses the wire form into SearchParams. Call Validate first.
// A return date is only carried for roundtrips.
func (r *SearchRequest) ToParams() (SearchParams, error) {
	dep, err := time.Parse("2006-01-02", r.DepartureDate)
	if err != nil {
		return SearchParams{}, ErrBadDepartureDate
	}

	var ret *time.Time
	if r.TripStructure == TripRoundtrip && r.ReturnDate != nil && *r.ReturnDate != "" {
		t, err := time.Parse("2006-01-02", *r.ReturnDate)
		if err != nil {
			return SearchParams{}, ErrBadReturnDate
		}
		ret = &t
	}

	return SearchParams{
		Origin:           strings.ToUpper(r.Origin),
		Destination:      strings.ToUpper(r.Destination),
		TripStructure:    r.TripStructure,
		DepartureDate:    dep,
		ReturnDate:       ret,
		OptimizationMode: r.OptimizationMode,
		Passengers:       r.Passengers,
		MaxStops:         r.MaxStops,
		Airlines:         r.Airlines,
		Multicity:        r.Multicity,
		FlexibleDates:    r.FlexibleDates,
		UseRealData:      r.UseRealData,
	}, nil
}

type ValidationError string

func (e ValidationError) Error() string {
	return string(e)
}

const (
	ErrMissingOrigin        ValidationError = "origin is required"
	ErrMissingDestination   ValidationError = "destination is required"
	ErrMissingDepartureDate ValidationError = "departure_date is required"
	ErrBadTripStructure     ValidationError = "trip_structure must be Roundtrip or One-way"
	ErrBadDepartureDate     ValidationError = "departure_date must be YYYY-MM-DD"
	ErrBadReturnDate        ValidationError = "return_date must be YYYY-MM-DD"
)
