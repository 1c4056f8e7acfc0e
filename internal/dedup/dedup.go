// Package dedup collapses offers sharing an itinerary signature into the
// best-ranked representative.
package dedup

import (
	"github.com/rcolon/faretrack/internal/models"
)

// Dedup keeps one offer per distinct signature. The kept representative
// is the one ranking first by (price, total stops, earliest outbound
// departure); offers with no known departure sort last. When rank keys
// are fully equal the first-seen offer wins. Idempotent.
func Dedup(offers []*models.Offer) []*models.Offer {
	if len(offers) == 0 {
		return offers
	}

	best := make(map[string]*models.Offer, len(offers))
	order := make([]string, 0, len(offers))

	for _, o := range offers {
		sig := o.Signature()
		cur, seen := best[sig]
		if !seen {
			best[sig] = o
			order = append(order, sig)
			continue
		}
		if ranksBefore(o, cur) {
			best[sig] = o
		}
	}

	out := make([]*models.Offer, 0, len(order))
	for _, sig := range order {
		out = append(out, best[sig])
	}
	return out
}

// ranksBefore is strict: it reports false on a full tie so the incumbent
// (first seen) is kept.
func ranksBefore(a, b *models.Offer) bool {
	if a.TotalPrice != b.TotalPrice {
		return a.TotalPrice < b.TotalPrice
	}
	if as, bs := a.TotalStops(), b.TotalStops(); as != bs {
		return as < bs
	}

	ad, bd := a.OutboundDeparture(), b.OutboundDeparture()
	switch {
	case ad == nil:
		return false
	case bd == nil:
		return true
	default:
		return ad.Before(*bd)
	}
}
