package models

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

const (
	DirectionOut    = "OUT"
	DirectionReturn = "RETURN"
)

// Segment is a single non-stop flight leg. Everything except the route
// endpoints is optional; upstream payloads routinely omit fields.
type Segment struct {
	Origin               string     `json:"origin"`
	Destination          string     `json:"destination"`
	DepAt                *time.Time `json:"dep_at,omitempty"`
	ArrAt                *time.Time `json:"arr_at,omitempty"`
	CarrierCode          string     `json:"carrier_code,omitempty"`
	CarrierName          string     `json:"carrier_name,omitempty"`
	FlightNumber         string     `json:"flight_number,omitempty"`
	OperatingCarrierCode string     `json:"operating_carrier_code,omitempty"`
	OperatingCarrierName string     `json:"operating_carrier_name,omitempty"`
	AircraftCode         string     `json:"aircraft_code,omitempty"`
}

// Itinerary is one direction of travel: an ordered chain of segments.
// Segment i's destination should match segment i+1's origin, but that is
// not enforced here.
type Itinerary struct {
	Direction       string    `json:"direction"`
	Segments        []Segment `json:"segments"`
	DurationMinutes *int      `json:"duration_minutes,omitempty"`
}

// Stops is the number of intermediate landings, never negative.
func (it Itinerary) Stops() int {
	if len(it.Segments) <= 1 {
		return 0
	}
	return len(it.Segments) - 1
}

// Offer is the canonical unit produced by every provider.
type Offer struct {
	Provider      string     `json:"provider"`
	Origin        string     `json:"origin"`
	Destination   string     `json:"destination"`
	TripStructure string     `json:"trip_structure"`
	DepartureDate time.Time  `json:"departure_date"`
	ReturnDate    *time.Time `json:"return_date,omitempty"`

	// Legacy summary fields, kept in sync with Itineraries for older
	// consumers of the serialized offer.
	Airline     string `json:"airline"`
	AirlineName string `json:"airline_name,omitempty"`
	StopsOut    int    `json:"stops_out"`
	StopsReturn int    `json:"stops_return"`

	// TotalPrice is stated in Currency. The JSON name predates
	// multi-currency providers.
	TotalPrice float64 `json:"total_price_usd"`
	Currency   string  `json:"currency"`

	// Score is legacy; ranking flows through ScoredOffer and never
	// writes this field.
	Score float64 `json:"score"`

	Itineraries []Itinerary `json:"itineraries,omitempty"`
	PurchaseURL string      `json:"purchase_url,omitempty"`

	// Raw keeps the upstream payload for debugging. Excluded from any
	// serialized projection.
	Raw json.RawMessage `json:"-"`

	signature string
}

// Signature returns a stable identity for the physical flight plan,
// memoized on first call. Two offers with the same chain of
// (origin, destination, carrier, flight number, departure) share a
// signature regardless of provider or price.
func (o *Offer) Signature() string {
	if o.signature == "" {
		o.signature = buildSignature(o)
	}
	return o.signature
}

func buildSignature(o *Offer) string {
	var itinParts []string
	for _, it := range o.Itineraries {
		if len(it.Segments) == 0 {
			continue
		}
		segParts := make([]string, 0, len(it.Segments))
		for _, s := range it.Segments {
			dep := ""
			if s.DepAt != nil {
				dep = s.DepAt.UTC().Format(time.RFC3339)
			}
			segParts = append(segParts, strings.Join([]string{
				s.Origin, s.Destination, s.CarrierCode, s.FlightNumber, dep,
			}, "|"))
		}
		itinParts = append(itinParts, strings.Join(segParts, ">"))
	}

	if sig := strings.Join(itinParts, "||"); sig != "" {
		return sig
	}

	// Coarse fallback for offers without segment data. Collision-prone:
	// distinct flights with the same route, dates, airline and stop
	// counts collapse into one.
	ret := ""
	if o.ReturnDate != nil {
		ret = o.ReturnDate.Format("2006-01-02")
	}
	return strings.Join([]string{
		o.Origin,
		o.Destination,
		o.DepartureDate.Format("2006-01-02"),
		ret,
		o.Airline,
		strconv.Itoa(o.StopsOut),
		strconv.Itoa(o.StopsReturn),
	}, "|")
}

// OutboundDeparture returns the departure time of the first outbound
// segment, or nil when no segment carries one.
func (o *Offer) OutboundDeparture() *time.Time {
	for _, it := range o.Itineraries {
		if it.Direction != DirectionOut {
			continue
		}
		if len(it.Segments) > 0 {
			return it.Segments[0].DepAt
		}
	}
	return nil
}

// TotalStops sums stops across both directions.
func (o *Offer) TotalStops() int {
	return o.StopsOut + o.StopsReturn
}

// ScoredOffer pairs an offer with its computed score without mutating
// the offer. Created fresh by the scorer on every invocation.
type ScoredOffer struct {
	Offer   *Offer   `json:"offer"`
	Score   float64  `json:"score"`
	Reasons []string `json:"reasons,omitempty"`
}
