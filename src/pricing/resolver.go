package pricing

import (
	"sort"

	"pbs/src/models"
	"pbs/src/types"

	"github.com/shopspring/decimal"
)

type Query struct {
	AccommodationType types.AccommodationType
	GuestTier         types.GuestTier
	DurationTier      types.DurationTier
	Nights            int
	Occupancy         *int
}

// Quote is the priced outcome of a resolved query.
type Quote struct {
	PricingRecordID   uint                    `json:"pricing_id"`
	AccommodationType types.AccommodationType `json:"accommodation_type"`
	GuestTier         types.GuestTier         `json:"guest_type"`
	DurationTier      types.DurationTier      `json:"stay_type"`
	TotalNights       int                     `json:"total_nights"`
	NightlyRate       decimal.Decimal         `json:"price_per_night"`
	WeeklyRate        decimal.NullDecimal     `json:"weekly_price"`
	Weeks             int                     `json:"weeks,omitempty"`
	TotalAmount       decimal.Decimal         `json:"total_amount"`
	IncludesBreakfast bool                    `json:"includes_breakfast"`
	IncludesFullboard bool                    `json:"includes_fullboard"`
	Currency          string                  `json:"currency,omitempty"`
}

// candidateRule is one step of the fallback chain. The first rule that yields
// a non-empty candidate set decides which records survive.
type candidateRule struct {
	name  string
	match func(r models.PricingRecord, q Query) bool
}

var candidateRules = []candidateRule{
	{
		name: "guest_tier",
		match: func(r models.PricingRecord, q Query) bool {
			return r.GuestType == q.GuestTier
		},
	},
	{
		name: "any_guest_tier",
		match: func(r models.PricingRecord, q Query) bool {
			return r.GuestType == types.GUEST_ANY
		},
	},
}

// Resolve selects the single applicable pricing record for q and prices the
// stay. When nothing applies the error is a pricing_unavailable AppError
// naming the first cause found by the diagnostic chain.
func Resolve(catalog []models.PricingRecord, q Query) (*Quote, error) {
	record, capacityShort := findCandidate(catalog, q)
	if record == nil {
		return nil, diagnose(catalog, q, capacityShort)
	}
	return price(record, q), nil
}

func findCandidate(catalog []models.PricingRecord, q Query) (*models.PricingRecord, bool) {
	for _, rule := range candidateRules {
		candidates := []models.PricingRecord{}
		for _, r := range catalog {
			if r.AccommodationType != q.AccommodationType || r.StayType != q.DurationTier {
				continue
			}
			if !r.CoversNights(q.Nights) || !rule.match(r, q) {
				continue
			}
			candidates = append(candidates, r)
		}
		if len(candidates) == 0 {
			continue
		}
		return selectByOccupancy(candidates, q.Occupancy)
	}
	return nil, false
}

// selectByOccupancy applies the occupancy filter to a surviving candidate
// set. The bool result reports that occupancy-bound records existed but none
// could hold the party.
func selectByOccupancy(candidates []models.PricingRecord, occupancy *int) (*models.PricingRecord, bool) {
	if occupancy == nil {
		sort.SliceStable(candidates, func(i, j int) bool {
			a, b := candidates[i], candidates[j]
			if (a.Occupancy == nil) != (b.Occupancy == nil) {
				return a.Occupancy == nil
			}
			if a.MinNights != b.MinNights {
				return a.MinNights > b.MinNights
			}
			return a.ID < b.ID
		})
		return &candidates[0], false
	}

	bound := []models.PricingRecord{}
	open := []models.PricingRecord{}
	for _, r := range candidates {
		if r.Occupancy == nil {
			open = append(open, r)
		} else {
			bound = append(bound, r)
		}
	}

	if len(bound) > 0 {
		var best *models.PricingRecord
		for i := range bound {
			r := &bound[i]
			if int(*r.Occupancy) < *occupancy {
				continue
			}
			if best == nil || *r.Occupancy < *best.Occupancy || (*r.Occupancy == *best.Occupancy && r.ID < best.ID) {
				best = r
			}
		}
		if best == nil {
			return nil, true
		}
		return best, false
	}

	sort.SliceStable(open, func(i, j int) bool {
		if open[i].MinNights != open[j].MinNights {
			return open[i].MinNights > open[j].MinNights
		}
		return open[i].ID < open[j].ID
	})
	return &open[0], false
}

func price(r *models.PricingRecord, q Query) *Quote {
	quote := &Quote{
		PricingRecordID:   r.ID,
		AccommodationType: r.AccommodationType,
		GuestTier:         q.GuestTier,
		DurationTier:      q.DurationTier,
		TotalNights:       q.Nights,
		NightlyRate:       r.NightlyRate,
		WeeklyRate:        r.WeeklyRate,
		IncludesBreakfast: r.IncludesBreakfast,
		IncludesFullboard: r.IncludesFullboard,
	}
	if q.Nights%7 == 0 && r.WeeklyRate.Valid {
		quote.Weeks = q.Nights / 7
		quote.TotalAmount = r.WeeklyRate.Decimal.Mul(decimal.NewFromInt(int64(quote.Weeks)))
	} else {
		quote.TotalAmount = r.NightlyRate.Mul(decimal.NewFromInt(int64(q.Nights)))
	}
	return quote
}
