package availability

import (
	"context"
	"fmt"
	"time"

	"pbs/src/models"
	"pbs/src/models/scopes"
	"pbs/src/types"
	"pbs/src/utils"

	"gorm.io/gorm"
)

// ValidateRange checks the requested stay and returns its night count.
func ValidateRange(checkIn, checkOut, today time.Time) (int, error) {
	nights := utils.NightsBetween(checkIn, checkOut)
	if nights <= 0 {
		return 0, types.NewValidationError("invalid_date_range", "check-out date must be after check-in date").
			WithDetail("check_in", utils.FormatDate(checkIn)).
			WithDetail("check_out", utils.FormatDate(checkOut))
	}
	if utils.Day(checkIn).Before(utils.Day(today)) {
		return 0, types.NewValidationError("past_check_in", "check-in date cannot be in the past").
			WithDetail("check_in", utils.FormatDate(checkIn)).
			WithDetail("today", utils.FormatDate(today))
	}
	return nights, nil
}

// Check reports whether [checkIn, checkOut) can be booked at a property. It
// reads without locking; the booking write path repeats the evaluation inside
// its transaction.
func Check(ctx context.Context, db *gorm.DB, propertyID uint, checkIn, checkOut, today time.Time) (*Report, error) {
	if _, err := ValidateRange(checkIn, checkOut, today); err != nil {
		return nil, err
	}
	bookings, blocks, err := Load(db.WithContext(ctx), propertyID, checkIn, checkOut)
	if err != nil {
		return nil, err
	}
	return Evaluate(propertyID, checkIn, checkOut, bookings, blocks), nil
}

// Load fetches the active bookings and blocked ranges that can affect the
// requested range, including bookings that check out on checkIn.
func Load(db *gorm.DB, propertyID uint, checkIn, checkOut time.Time) ([]models.Booking, []models.BlockedRange, error) {
	checkIn, checkOut = utils.Day(checkIn), utils.Day(checkOut)

	var bookings []models.Booking
	err := db.
		Scopes(
			scopes.ForProperty(propertyID),
			scopes.WithActiveStatus,
			scopes.TouchingRange(checkIn, checkOut),
		).
		Order("check_in").
		Find(&bookings).
		Error
	if err != nil {
		return nil, nil, fmt.Errorf("loading bookings: %w", err)
	}

	var blocks []models.BlockedRange
	err = db.
		Scopes(
			scopes.ForProperty(propertyID),
			scopes.OverlappingBlock(checkIn, checkOut),
		).
		Order("start_date").
		Find(&blocks).
		Error
	if err != nil {
		return nil, nil, fmt.Errorf("loading blocked ranges: %w", err)
	}
	return bookings, blocks, nil
}

// Evaluate applies the overlap, blocked range and same-day turnover rules to
// already loaded rows. Inactive bookings are ignored.
func Evaluate(propertyID uint, checkIn, checkOut time.Time, bookings []models.Booking, blocks []models.BlockedRange) *Report {
	checkIn, checkOut = utils.Day(checkIn), utils.Day(checkOut)
	report := &Report{
		PropertyID:       propertyID,
		CheckIn:          utils.FormatDate(checkIn),
		CheckOut:         utils.FormatDate(checkOut),
		TotalNights:      utils.NightsBetween(checkIn, checkOut),
		Conflicts:        []BookingConflict{},
		BlockedRanges:    []BlockedConflict{},
		BufferConflicts:  []BufferConflict{},
		UnavailableDates: []string{},
	}
	unavailable := dateSet{}

	for _, b := range bookings {
		if !b.IsActive() {
			continue
		}
		bIn, bOut := utils.Day(b.CheckIn), utils.Day(b.CheckOut)
		if overlaps(checkIn, checkOut, bIn, bOut) {
			start, end := clip(checkIn, checkOut, bIn, bOut)
			unavailable.addRange(start, end)
			report.Conflicts = append(report.Conflicts, BookingConflict{
				BookingID:    b.ID,
				Reference:    b.ReferenceString(),
				GuestName:    b.FullName,
				Status:       b.Status,
				CheckIn:      utils.FormatDate(bIn),
				CheckOut:     utils.FormatDate(bOut),
				OverlapStart: utils.FormatDate(start),
				OverlapEnd:   utils.FormatDate(end),
			})
			continue
		}
		if bOut.Equal(checkIn) {
			unavailable.addRange(checkIn, checkIn.AddDate(0, 0, 1))
			report.BufferConflicts = append(report.BufferConflicts, BufferConflict{
				BookingID: b.ID,
				Reference: b.ReferenceString(),
				GuestName: b.FullName,
				CheckOut:  utils.FormatDate(bOut),
			})
		}
	}

	for _, r := range blocks {
		rStart, rEnd := utils.Day(r.StartDate), utils.Day(r.EndDate)
		if !overlaps(checkIn, checkOut, rStart, rEnd) {
			continue
		}
		start, end := clip(checkIn, checkOut, rStart, rEnd)
		unavailable.addRange(start, end)
		report.BlockedRanges = append(report.BlockedRanges, BlockedConflict{
			ID:            r.ID,
			Reason:        r.Reason,
			IsMaintenance: r.IsMaintenance,
			StartDate:     utils.FormatDate(rStart),
			EndDate:       utils.FormatDate(rEnd),
			OverlapStart:  utils.FormatDate(start),
			OverlapEnd:    utils.FormatDate(end),
		})
	}

	report.UnavailableDates = unavailable.sorted()
	report.IsAvailable = len(report.Conflicts) == 0 && len(report.BlockedRanges) == 0 && len(report.BufferConflicts) == 0
	return report
}

// overlaps reports whether [a1,a2) and [b1,b2) share at least one night.
func overlaps(a1, a2, b1, b2 time.Time) bool {
	return a1.Before(b2) && b1.Before(a2)
}

func clip(a1, a2, b1, b2 time.Time) (time.Time, time.Time) {
	start, end := a1, a2
	if b1.After(start) {
		start = b1
	}
	if b2.Before(end) {
		end = b2
	}
	return start, end
}
