// Package scoring ranks canonical offers with a heuristic score.
// Lower is better.
package scoring

import (
	"fmt"
	"sort"
	"time"

	"github.com/rcolon/faretrack/internal/models"
	"github.com/rcolon/faretrack/pkg/currency"
)

const (
	StopPenalty = 35.0
	DayPenalty  = 5.0
)

// ScoreOffer computes price + stop penalty + date-offset penalty.
// Prices are compared as stated in their own currency; conversion is a
// read-side concern of the trend view, not the scorer.
func ScoreOffer(o *models.Offer, params models.SearchParams) float64 {
	return o.TotalPrice +
		float64(relevantStops(o, params))*StopPenalty +
		float64(dateOffsetDays(o, params))*DayPenalty
}

// ScoreOffers wraps every offer with its score, sorted ascending.
// Equal scores preserve input order.
func ScoreOffers(offers []*models.Offer, params models.SearchParams) []models.ScoredOffer {
	scored := make([]models.ScoredOffer, 0, len(offers))
	for _, o := range offers {
		scored = append(scored, models.ScoredOffer{
			Offer:   o,
			Score:   ScoreOffer(o, params),
			Reasons: reasons(o, params),
		})
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score < scored[j].Score
	})
	return scored
}

// PickRecommended returns the top-ranked scored offer, or nil.
func PickRecommended(scored []models.ScoredOffer) *models.ScoredOffer {
	if len(scored) == 0 {
		return nil
	}
	return &scored[0]
}

// PickBestByPrice returns the cheapest offer ignoring score, first-seen
// winning ties, or nil.
func PickBestByPrice(offers []*models.Offer) *models.Offer {
	var best *models.Offer
	for _, o := range offers {
		if best == nil || o.TotalPrice < best.TotalPrice {
			best = o
		}
	}
	return best
}

// FormatOfferLabel builds a human-readable label for display projections.
func FormatOfferLabel(o *models.Offer) string {
	airline := o.AirlineName
	if airline == "" {
		airline = o.Airline
	}
	if airline == "" {
		airline = "Unknown airline"
	}
	return fmt.Sprintf("%s · %s · %s → %s · %s",
		o.TripStructure, airline, o.Origin, o.Destination,
		currency.FormatAmount(o.TotalPrice, o.Currency))
}

func relevantStops(o *models.Offer, params models.SearchParams) int {
	if params.TripStructure == models.TripOneWay {
		return o.StopsOut
	}
	return o.StopsOut + o.StopsReturn
}

func dateOffsetDays(o *models.Offer, params models.SearchParams) int {
	od := o.DepartureDate.Truncate(24 * time.Hour)
	pd := params.DepartureDate.Truncate(24 * time.Hour)
	days := int(od.Sub(pd).Hours() / 24)
	if days < 0 {
		days = -days
	}
	return days
}

func reasons(o *models.Offer, params models.SearchParams) []string {
	rs := []string{fmt.Sprintf("price %.2f %s", o.TotalPrice, o.Currency)}
	if n := relevantStops(o, params); n > 0 {
		rs = append(rs, fmt.Sprintf("%d stop(s) +%.0f", n, float64(n)*StopPenalty))
	}
	if d := dateOffsetDays(o, params); d > 0 {
		rs = append(rs, fmt.Sprintf("%d day(s) off requested date +%.0f", d, float64(d)*DayPenalty))
	}
	return rs
}
