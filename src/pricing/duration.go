package pricing

import (
	"pbs/src/models"
	"pbs/src/types"
)

// ClassifyDuration maps a night count to a duration tier. Whole weeks only
// resolve to the weekly tier when the catalog offers one for the
// accommodation type; 8 and 9 night stays fall back to short term.
func ClassifyDuration(hasWeekly bool, nights int) types.DurationTier {
	switch {
	case nights > 0 && nights%7 == 0 && hasWeekly:
		return types.DURATION_WEEKLY
	case nights >= 10:
		return types.DURATION_LONG_TERM
	case nights < 7:
		return types.DURATION_SHORT_TERM
	default:
		return types.DURATION_SHORT_TERM
	}
}

func HasWeekly(catalog []models.PricingRecord, accommodationType types.AccommodationType) bool {
	for _, r := range catalog {
		if r.AccommodationType == accommodationType && r.StayType == types.DURATION_WEEKLY {
			return true
		}
	}
	return false
}

var durationHints = map[types.DurationTier]string{
	types.DURATION_SHORT_TERM: "under 7 nights",
	types.DURATION_WEEKLY:     "7 or a multiple of 7 nights",
	types.DURATION_LONG_TERM:  "10+ nights",
}

func DurationHint(tier types.DurationTier) string {
	return durationHints[tier]
}
