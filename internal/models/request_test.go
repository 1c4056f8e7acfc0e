package models

import (
	"errors"
	"testing"
)

func TestSearchRequestValidate(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		req     SearchRequest
		wantErr error
	}{
		{"missing origin", SearchRequest{Destination: "JFK", DepartureDate: "2026-03-01"}, ErrMissingOrigin},
		{"missing destination", SearchRequest{Origin: "SJU", DepartureDate: "2026-03-01"}, ErrMissingDestination},
		{"missing departure date", SearchRequest{Origin: "SJU", Destination: "JFK"}, ErrMissingDepartureDate},
		{"bad trip structure", SearchRequest{Origin: "SJU", Destination: "JFK", DepartureDate: "2026-03-01", TripStructure: "Circular"}, ErrBadTripStructure},
		{"valid", SearchRequest{Origin: "SJU", Destination: "JFK", DepartureDate: "2026-03-01"}, nil},
	}

	for _, tc := range cases {
		err := tc.req.Validate()
		if !errors.Is(err, tc.wantErr) {
			t.Errorf("%s: Validate() = %v, want %v", tc.name, err, tc.wantErr)
		}
	}
}

func TestSearchRequestValidateDefaults(t *testing.T) {
	t.Parallel()

	req := SearchRequest{Origin: "SJU", Destination: "JFK", DepartureDate: "2026-03-01"}
	if err := req.Validate(); err != nil {
		t.Fatal(err)
	}

	if req.TripStructure != TripRoundtrip {
		t.Errorf("trip structure default = %q", req.TripStructure)
	}
	if req.Passengers != 1 {
		t.Errorf("passengers default = %d", req.Passengers)
	}
	if req.OptimizationMode != "Optimal" {
		t.Errorf("optimization mode default = %q", req.OptimizationMode)
	}
	if req.MaxStops != "Up to 2+ stops" {
		t.Errorf("max stops default = %q", req.MaxStops)
	}
}

func TestToParams(t *testing.T) {
	t.Parallel()

	ret := "2026-03-10"
	req := SearchRequest{
		Origin:        "sju",
		Destination:   "jfk",
		TripStructure: TripRoundtrip,
		DepartureDate: "2026-03-01",
		ReturnDate:    &ret,
	}
	if err := req.Validate(); err != nil {
		t.Fatal(err)
	}

	params, err := req.ToParams()
	if err != nil {
		t.Fatal(err)
	}
	if params.Origin != "SJU" || params.Destination != "JFK" {
		t.Errorf("codes not uppercased: %s-%s", params.Origin, params.Destination)
	}
	if params.DepartureDate.Format("2006-01-02") != "2026-03-01" {
		t.Errorf("departure date = %v", params.DepartureDate)
	}
	if params.ReturnDate == nil || params.ReturnDate.Format("2006-01-02") != "2026-03-10" {
		t.Errorf("return date = %v", params.ReturnDate)
	}
}

func TestToParamsDropsReturnDateForOneWay(t *testing.T) {
	t.Parallel()

	ret := "2026-03-10"
	req := SearchRequest{
		Origin:        "SJU",
		Destination:   "JFK",
		TripStructure: TripOneWay,
		DepartureDate: "2026-03-01",
		ReturnDate:    &ret,
	}
	if err := req.Validate(); err != nil {
		t.Fatal(err)
	}

	params, err := req.ToParams()
	if err != nil {
		t.Fatal(err)
	}
	if params.ReturnDate != nil {
		t.Errorf("one-way search kept a return date: %v", params.ReturnDate)
	}
}

func TestToParamsBadDates(t *testing.T) {
	t.Parallel()

	req := SearchRequest{Origin: "SJU", Destination: "JFK", DepartureDate: "03/01/2026"}
	if _, err := req.ToParams(); !errors.Is(err, ErrBadDepartureDate) {
		t.Errorf("bad departure date: got %v", err)
	}

	badRet := "next week"
	req = SearchRequest{
		Origin: "SJU", Destination: "JFK",
		TripStructure: TripRoundtrip,
		DepartureDate: "2026-03-01",
		ReturnDate:    &badRet,
	}
	if _, err := req.ToParams(); !errors.Is(err, ErrBadReturnDate) {
		t.Errorf("bad return date: got %v", err)
	}
}

func TestMaxStopsLimit(t *testing.T) {
	t.Parallel()

	cases := []struct {
		label string
		want  int
	}{
		{"Nonstop only", 0},
		{"Up to 1 stop", 1},
		{"Up to 2+ stops", 2},
		{"", 2},
	}
	for _, tc := range cases {
		p := SearchParams{MaxStops: tc.label}
		if got := p.MaxStopsLimit(); got != tc.want {
			t.Errorf("MaxStopsLimit(%q) = %d, want %d", tc.label, got, tc.want)
		}
	}
}
