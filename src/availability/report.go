package availability

import (
	"fmt"
	"slices"
	"time"

	"pbs/src/types"
	"pbs/src/utils"
)

type BookingConflict struct {
	BookingID    uint                `json:"booking_id"`
	Reference    string              `json:"booking_reference"`
	GuestName    string              `json:"guest_name"`
	Status       types.BookingStatus `json:"status"`
	CheckIn      string              `json:"check_in"`
	CheckOut     string              `json:"check_out"`
	OverlapStart string              `json:"overlap_start"`
	OverlapEnd   string              `json:"overlap_end"`
}

type BlockedConflict struct {
	ID            uint   `json:"id"`
	Reason        string `json:"reason"`
	IsMaintenance bool   `json:"is_maintenance"`
	StartDate     string `json:"start_date"`
	EndDate       string `json:"end_date"`
	OverlapStart  string `json:"overlap_start"`
	OverlapEnd    string `json:"overlap_end"`
}

// BufferConflict is an active booking checking out on the requested
// check-in date.
type BufferConflict struct {
	BookingID uint   `json:"booking_id"`
	Reference string `json:"booking_reference"`
	GuestName string `json:"guest_name"`
	CheckOut  string `json:"check_out"`
}

type Report struct {
	PropertyID       uint              `json:"property_id"`
	CheckIn          string            `json:"check_in"`
	CheckOut         string            `json:"check_out"`
	TotalNights      int               `json:"total_nights"`
	IsAvailable      bool              `json:"is_available"`
	Conflicts        []BookingConflict `json:"conflicting_bookings"`
	BlockedRanges    []BlockedConflict `json:"blocked_ranges"`
	BufferConflicts  []BufferConflict  `json:"buffer_conflicts"`
	UnavailableDates []string          `json:"unavailable_dates"`
}

// ConflictError describes an unavailable report as a date_range_conflict.
// It returns nil when the range is available.
func (r *Report) ConflictError() *types.AppError {
	if r.IsAvailable {
		return nil
	}

	var message, suggestion string
	switch {
	case len(r.Conflicts) > 0:
		c := r.Conflicts[0]
		message = fmt.Sprintf("the selected dates overlap an existing booking from %s to %s", c.OverlapStart, c.OverlapEnd)
		suggestion = "Choose dates outside the unavailable range"
	case len(r.BlockedRanges) > 0:
		b := r.BlockedRanges[0]
		message = fmt.Sprintf("the property is unavailable from %s to %s", b.OverlapStart, b.OverlapEnd)
		suggestion = "Choose dates outside the unavailable range"
	default:
		message = fmt.Sprintf("check-in is not possible on %s because another stay checks out that day", r.CheckIn)
		if checkIn, err := utils.ParseDate(r.CheckIn); err == nil {
			suggestion = fmt.Sprintf("Check in on %s instead", utils.FormatDate(checkIn.AddDate(0, 0, 1)))
		}
	}

	return types.NewAppError(types.DATE_RANGE_CONFLICT, "date_range_conflict", message).
		WithSuggestion(suggestion).
		WithDetail("conflicting_bookings", r.Conflicts).
		WithDetail("blocked_ranges", r.BlockedRanges).
		WithDetail("buffer_conflicts", r.BufferConflicts).
		WithDetail("unavailable_dates", r.UnavailableDates)
}

// dateSet collects individual unavailable calendar days.
type dateSet map[time.Time]struct{}

func (s dateSet) addRange(start, end time.Time) {
	for d := start; d.Before(end); d = d.AddDate(0, 0, 1) {
		s[d] = struct{}{}
	}
}

func (s dateSet) sorted() []string {
	days := make([]time.Time, 0, len(s))
	for d := range s {
		days = append(days, d)
	}
	slices.SortFunc(days, func(a, b time.Time) int { return a.Compare(b) })
	out := make([]string, 0, len(days))
	for _, d := range days {
		out = append(out, utils.FormatDate(d))
	}
	return out
}
