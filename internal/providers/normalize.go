package providers

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/rcolon/faretrack/internal/models"
)

// Upstream flight-offers payload shapes. Field parsing here is
// best-effort: malformed optional values become absent, never errors.
// Identity fields (route, provider, dates) come from the request
// context, so a degenerate payload still yields a well-formed offer.

type rawFlightOffer struct {
	Itineraries            []rawItinerary `json:"itineraries"`
	Price                  rawPrice       `json:"price"`
	ValidatingAirlineCodes []string       `json:"validatingAirlineCodes"`
}

type rawPrice struct {
	// Providers disagree on the total-price key; grandTotal wins when
	// both are present.
	GrandTotal string `json:"grandTotal"`
	Total      string `json:"total"`
	Currency   string `json:"currency"`
}

type rawItinerary struct {
	Duration string       `json:"duration"`
	Segments []rawSegment `json:"segments"`
}

type rawSegment struct {
	Departure rawEndpoint `json:"departure"`
	Arrival   rawEndpoint `json:"arrival"`
	Carrier   string      `json:"carrierCode"`
	Number    string      `json:"number"`
	Operating struct {
		Carrier string `json:"carrierCode"`
	} `json:"operating"`
	Aircraft struct {
		Code string `json:"code"`
	} `json:"aircraft"`
}

type rawEndpoint struct {
	IataCode string `json:"iataCode"`
	At       string `json:"at"`
}

// normalizeOffer converts one raw provider offer into a canonical
// Offer. Pure: input is never mutated, malformed optional fields never
// raise.
func normalizeOffer(raw rawFlightOffer, rawJSON json.RawMessage, carriers map[string]string, providerName string, params models.SearchParams) *models.Offer {
	price := 0.0
	if s := firstNonEmpty(raw.Price.GrandTotal, raw.Price.Total); s != "" {
		if v, err := strconv.ParseFloat(s, 64); err == nil {
			price = v
		}
	}
	cur := raw.Price.Currency
	if cur == "" {
		cur = "USD"
	}

	itineraries := buildItineraries(raw.Itineraries, carriers)

	stopsOut, stopsReturn := 0, 0
	if len(itineraries) >= 1 {
		stopsOut = itineraries[0].Stops()
	}
	if len(itineraries) >= 2 {
		stopsReturn = itineraries[1].Stops()
	}

	airline := pickAirlineCode(raw)

	return &models.Offer{
		Provider:      providerName,
		Origin:        params.Origin,
		Destination:   params.Destination,
		TripStructure: params.TripStructure,
		DepartureDate: params.DepartureDate,
		ReturnDate:    params.ReturnDate,
		Airline:       airline,
		AirlineName:   carriers[airline],
		StopsOut:      stopsOut,
		StopsReturn:   stopsReturn,
		TotalPrice:    price,
		Currency:      cur,
		Itineraries:   itineraries,
		Raw:           rawJSON,
	}
}

func buildItineraries(raw []rawItinerary, carriers map[string]string) []models.Itinerary {
	out := make([]models.Itinerary, 0, len(raw))
	for idx, it := range raw {
		direction := models.DirectionOut
		if idx > 0 {
			direction = models.DirectionReturn
		}

		var duration *int
		if mins, ok := parseDurationMinutes(it.Duration); ok {
			duration = &mins
		}

		segs := make([]models.Segment, 0, len(it.Segments))
		for _, s := range it.Segments {
			segs = append(segs, models.Segment{
				Origin:               s.Departure.IataCode,
				Destination:          s.Arrival.IataCode,
				DepAt:                parseTimestampPtr(s.Departure.At),
				ArrAt:                parseTimestampPtr(s.Arrival.At),
				CarrierCode:          s.Carrier,
				CarrierName:          carriers[s.Carrier],
				FlightNumber:         s.Number,
				OperatingCarrierCode: s.Operating.Carrier,
				OperatingCarrierName: carriers[s.Operating.Carrier],
				AircraftCode:         s.Aircraft.Code,
			})
		}

		out = append(out, models.Itinerary{
			Direction:       direction,
			Segments:        segs,
			DurationMinutes: duration,
		})
	}
	return out
}

// pickAirlineCode prefers the first validating carrier, then the first
// segment's carrier, then empty.
func pickAirlineCode(raw rawFlightOffer) string {
	if len(raw.ValidatingAirlineCodes) > 0 && raw.ValidatingAirlineCodes[0] != "" {
		return raw.ValidatingAirlineCodes[0]
	}
	if len(raw.Itineraries) > 0 && len(raw.Itineraries[0].Segments) > 0 {
		return raw.Itineraries[0].Segments[0].Carrier
	}
	return ""
}

// parseDurationMinutes understands the restricted PT<hours>H<minutes>M
// notation; hours and minutes are optional, any other unit designator
// is ignored.
func parseDurationMinutes(s string) (int, bool) {
	if len(s) < 2 || s[:2] != "PT" {
		return 0, false
	}

	hours, minutes := 0, 0
	num := ""
	for _, ch := range s[2:] {
		if ch >= '0' && ch <= '9' {
			num += string(ch)
			continue
		}
		switch {
		case ch == 'H' && num != "":
			hours, _ = strconv.Atoi(num)
		case ch == 'M' && num != "":
			minutes, _ = strconv.Atoi(num)
		}
		num = ""
	}

	return hours*60 + minutes, true
}

var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05Z",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// parseTimestamp accepts timestamps with a trailing Z, an explicit
// offset, or none at all (treated as UTC).
func parseTimestamp(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func parseTimestampPtr(s string) *time.Time {
	t, ok := parseTimestamp(s)
	if !ok {
		return nil
	}
	return &t
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
