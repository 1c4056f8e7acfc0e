package dedup

import (
	"testing"
	"time"

	"github.com/rcolon/faretrack/internal/models"
)

func sameFlight(provider string, price float64, stops int, dep *time.Time) *models.Offer {
	o := &models.Offer{
		Provider:      provider,
		Origin:        "SJU",
		Destination:   "JFK",
		TripStructure: models.TripOneWay,
		DepartureDate: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		Airline:       "B6",
		StopsOut:      stops,
		TotalPrice:    price,
		Currency:      "USD",
		Itineraries: []models.Itinerary{
			{
				Direction: models.DirectionOut,
				Segments: []models.Segment{
					{
						Origin:       "SJU",
						Destination:  "JFK",
						CarrierCode:  "B6",
						FlightNumber: "704",
						DepAt:        dep,
					},
				},
			},
		},
	}
	return o
}

func tsp(s string) *time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return &t
}

func TestDedupCollapsesBySignature(t *testing.T) {
	t.Parallel()

	dep := tsp("2026-03-01T08:30:00Z")
	offers := []*models.Offer{
		sameFlight("mock", 300, 0, dep),
		sameFlight("amadeus", 250, 0, dep),
		sameFlight("csv", 275, 0, dep),
	}

	out := Dedup(offers)
	if len(out) != 1 {
		t.Fatalf("got %d offers, want 1", len(out))
	}
	if out[0].TotalPrice != 250 {
		t.Fatalf("kept price %.0f, want cheapest 250", out[0].TotalPrice)
	}
}

func TestDedupIdempotent(t *testing.T) {
	t.Parallel()

	dep := tsp("2026-03-01T08:30:00Z")
	offers := []*models.Offer{
		sameFlight("mock", 300, 0, dep),
		sameFlight("amadeus", 250, 0, dep),
	}

	once := Dedup(offers)
	twice := Dedup(once)

	if len(once) != len(twice) {
		t.Fatalf("dedup not idempotent: %d != %d", len(once), len(twice))
	}
	for i := range once {
		if once[i] != twice[i] {
			t.Fatalf("representative changed on second pass at %d", i)
		}
	}
}

func TestDedupRankMonotonicOnPrice(t *testing.T) {
	t.Parallel()

	// Equal stops and departure: lower price always wins the collision.
	dep := tsp("2026-03-01T08:30:00Z")
	a := sameFlight("a", 310, 1, dep)
	b := sameFlight("b", 290, 1, dep)

	out := Dedup([]*models.Offer{a, b})
	if len(out) != 1 || out[0] != b {
		t.Fatalf("cheaper offer was not kept")
	}

	out = Dedup([]*models.Offer{b, a})
	if len(out) != 1 || out[0] != b {
		t.Fatalf("cheaper offer was not kept when seen first")
	}
}

func TestDedupUnknownDepartureSortsLast(t *testing.T) {
	t.Parallel()

	// Same price and stops; the offer with a known departure wins over
	// one without, but both need matching signatures to collide — use
	// the coarse fallback by dropping segments on both.
	known := &models.Offer{
		Origin: "SJU", Destination: "JFK", Airline: "AA",
		DepartureDate: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		TotalPrice:    300,
		Itineraries: []models.Itinerary{{
			Direction: models.DirectionOut,
			Segments:  []models.Segment{{Origin: "SJU", Destination: "JFK", CarrierCode: "AA", FlightNumber: "11", DepAt: tsp("2026-03-01T06:00:00Z")}},
		}},
	}
	later := &models.Offer{
		Origin: "SJU", Destination: "JFK", Airline: "AA",
		DepartureDate: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		TotalPrice:    300,
		Itineraries: []models.Itinerary{{
			Direction: models.DirectionOut,
			Segments:  []models.Segment{{Origin: "SJU", Destination: "JFK", CarrierCode: "AA", FlightNumber: "11", DepAt: tsp("2026-03-01T06:00:00Z")}},
		}},
	}
	// Force identical signatures, then make one departure unknown.
	_ = known.Signature()
	_ = later.Signature()
	later.Itineraries[0].Segments[0].DepAt = nil

	out := Dedup([]*models.Offer{later, known})
	if len(out) != 1 || out[0] != known {
		t.Fatalf("offer with known departure should outrank unknown")
	}
}

func TestDedupStableOnFullTie(t *testing.T) {
	t.Parallel()

	dep := tsp("2026-03-01T08:30:00Z")
	first := sameFlight("first", 300, 0, dep)
	second := sameFlight("second", 300, 0, dep)

	out := Dedup([]*models.Offer{first, second})
	if len(out) != 1 || out[0] != first {
		t.Fatalf("full tie must keep the first-seen offer")
	}
}

func TestDedupPreservesFirstSeenOrder(t *testing.T) {
	t.Parallel()

	depA := tsp("2026-03-01T08:30:00Z")
	depB := tsp("2026-03-01T11:00:00Z")

	a := sameFlight("mock", 300, 0, depA)
	b := sameFlight("mock", 200, 0, depB)
	b.Itineraries[0].Segments[0].FlightNumber = "909"

	out := Dedup([]*models.Offer{a, b})
	if len(out) != 2 {
		t.Fatalf("got %d offers, want 2", len(out))
	}
	if out[0] != a || out[1] != b {
		t.Fatalf("first-seen signature order not preserved")
	}
}

func TestDedupEmpty(t *testing.T) {
	t.Parallel()

	if out := Dedup(nil); len(out) != 0 {
		t.Fatalf("dedup(nil) returned %d offers", len(out))
	}
}
