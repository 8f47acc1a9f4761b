package pricing

import (
	"fmt"
	"slices"
	"strings"

	"pbs/src/models"
	"pbs/src/types"
)

type diagnosis struct {
	catalog       []models.PricingRecord
	query         Query
	capacityShort bool
}

func (d diagnosis) forType() []models.PricingRecord {
	records := []models.PricingRecord{}
	for _, r := range d.catalog {
		if r.AccommodationType == d.query.AccommodationType {
			records = append(records, r)
		}
	}
	return records
}

func (d diagnosis) forTier() []models.PricingRecord {
	records := []models.PricingRecord{}
	for _, r := range d.forType() {
		if r.StayType == d.query.DurationTier {
			records = append(records, r)
		}
	}
	return records
}

// diagnostic returns nil when its cause does not apply.
type diagnostic func(d diagnosis) *types.AppError

// diagnostics run in priority order; the first match is reported.
var diagnostics = []diagnostic{
	accommodationUnavailable,
	minimumNightsNotMet,
	maximumNightsExceeded,
	invalidStayDuration,
	guestTypeNotSupported,
	guestCapacityExceeded,
	pricingNotAvailable,
}

func diagnose(catalog []models.PricingRecord, q Query, capacityShort bool) error {
	d := diagnosis{catalog: catalog, query: q, capacityShort: capacityShort}
	for _, check := range diagnostics {
		if err := check(d); err != nil {
			return err
		}
	}
	return pricingNotAvailable(d)
}

func accommodationUnavailable(d diagnosis) *types.AppError {
	if len(d.forType()) > 0 {
		return nil
	}
	available := []string{}
	for _, r := range d.catalog {
		if !slices.Contains(available, string(r.AccommodationType)) {
			available = append(available, string(r.AccommodationType))
		}
	}
	slices.Sort(available)
	err := types.NewPricingUnavailable("accommodation_unavailable",
		fmt.Sprintf("%s is not offered at this property", d.query.AccommodationType)).
		WithDetail("available_types", available)
	if len(available) > 0 {
		err.WithSuggestion(fmt.Sprintf("Available accommodation types: %s", strings.Join(available, ", ")))
	}
	return err
}

func minimumNightsNotMet(d diagnosis) *types.AppError {
	records := d.forType()
	lowest := records[0].MinNights
	for _, r := range records[1:] {
		lowest = min(lowest, r.MinNights)
	}
	if int(lowest) <= d.query.Nights {
		return nil
	}
	return types.NewPricingUnavailable("minimum_nights_not_met",
		fmt.Sprintf("a minimum stay of %d nights is required", lowest)).
		WithDetail("min_nights", lowest).
		WithDetail("requested_nights", d.query.Nights).
		WithSuggestion(fmt.Sprintf("Extend your stay to at least %d nights", lowest))
}

func maximumNightsExceeded(d diagnosis) *types.AppError {
	var longest uint
	for _, r := range d.forType() {
		if int(r.MinNights) > d.query.Nights {
			continue
		}
		if r.MaxNights == nil || int(*r.MaxNights) >= d.query.Nights {
			return nil
		}
		longest = max(longest, *r.MaxNights)
	}
	return types.NewPricingUnavailable("maximum_nights_exceeded",
		fmt.Sprintf("stays longer than %d nights are not offered", longest)).
		WithDetail("max_nights", longest).
		WithDetail("requested_nights", d.query.Nights).
		WithSuggestion(fmt.Sprintf("Shorten your stay to at most %d nights", longest))
}

func invalidStayDuration(d diagnosis) *types.AppError {
	if len(d.forTier()) > 0 {
		return nil
	}
	tiers := []string{}
	hints := map[string]string{}
	for _, r := range d.forType() {
		if !slices.Contains(tiers, string(r.StayType)) {
			tiers = append(tiers, string(r.StayType))
			hints[string(r.StayType)] = DurationHint(r.StayType)
		}
	}
	slices.Sort(tiers)
	described := []string{}
	for _, t := range tiers {
		described = append(described, fmt.Sprintf("%s (%s)", t, hints[t]))
	}
	return types.NewPricingUnavailable("invalid_stay_duration",
		fmt.Sprintf("%d nights does not match any stay type offered for %s", d.query.Nights, d.query.AccommodationType)).
		WithDetail("stay_type", d.query.DurationTier).
		WithDetail("available_stay_types", tiers).
		WithDetail("stay_type_hints", hints).
		WithSuggestion(fmt.Sprintf("Available stay types: %s", strings.Join(described, ", ")))
}

func guestTypeNotSupported(d diagnosis) *types.AppError {
	supported := []string{}
	for _, r := range d.forTier() {
		if r.GuestType == d.query.GuestTier || r.GuestType == types.GUEST_ANY {
			return nil
		}
		if !slices.Contains(supported, string(r.GuestType)) {
			supported = append(supported, string(r.GuestType))
		}
	}
	slices.Sort(supported)
	return types.NewPricingUnavailable("guest_type_not_supported",
		fmt.Sprintf("no %s rate is offered for this stay", d.query.GuestTier)).
		WithDetail("guest_type", d.query.GuestTier).
		WithDetail("supported_guest_types", supported)
}

func guestCapacityExceeded(d diagnosis) *types.AppError {
	if d.query.Occupancy == nil || !d.capacityShort {
		return nil
	}
	var largest uint
	for _, r := range d.forTier() {
		if r.Occupancy != nil {
			largest = max(largest, *r.Occupancy)
		}
	}
	return types.NewPricingUnavailable("guest_capacity_exceeded",
		fmt.Sprintf("%s supports at most %d guests", d.query.AccommodationType, largest)).
		WithDetail("max_guests", largest).
		WithDetail("requested_guests", *d.query.Occupancy).
		WithSuggestion("Reduce the number of guests or choose a larger accommodation type")
}

func pricingNotAvailable(d diagnosis) *types.AppError {
	return types.NewPricingUnavailable("pricing_not_available", "no pricing is available for the selected stay").
		WithDetail("accommodation_type", d.query.AccommodationType).
		WithDetail("guest_type", d.query.GuestTier).
		WithDetail("stay_type", d.query.DurationTier).
		WithDetail("nights", d.query.Nights)
}
