package booking

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"pbs/src/models"
	"pbs/src/types"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateAnonymousBooking(t *testing.T) {
	f := newFixture(t)
	in := f.input("2026-03-10", "2026-03-13", 2)
	in.SpecialRequests = "Late arrival"

	b, quote, err := f.manager.CreateBooking(context.Background(), nil, in)

	require.Nil(t, err)
	assert.Equal(t, "#BK-2026-0001", b.ReferenceString())
	assert.Equal(t, types.BOOKING_PENDING, b.Status)
	assert.Nil(t, b.UserID)
	assert.Equal(t, types.GUEST_INTERNATIONAL, b.GuestTier)
	assert.Equal(t, types.DURATION_SHORT_TERM, b.DurationTier)
	assert.Equal(t, uint(3), b.TotalNights)
	assert.True(t, decimal.NewFromInt(600).Equal(b.TotalAmount), b.TotalAmount.String())
	assert.Equal(t, "EUR", quote.Currency)
	require.NotNil(t, b.SpecialRequests)
	assert.Equal(t, "Late arrival", *b.SpecialRequests)

	stored := f.reload(t, b.ID)
	assert.Equal(t, "#BK-2026-0001", stored.ReferenceString())
	assert.Equal(t, "2026-03-10", stored.CheckIn.Format("2006-01-02"))

	var trails int64
	f.db.Model(&models.TrailLog{}).Where("type = ?", "booking.created").Count(&trails)
	assert.Equal(t, int64(1), trails)
	assert.Equal(t, 1, f.publisher.count("booking.created"))
}

func TestCreateAuthenticatedBookingUsesProfile(t *testing.T) {
	f := newFixture(t)
	in := f.input("2026-03-10", "2026-03-12", 1)
	in.FullName, in.Email, in.Phone = "", "", ""

	b, _, err := f.manager.CreateBooking(context.Background(), actorFor(f.guest), in)

	require.Nil(t, err)
	require.NotNil(t, b.UserID)
	assert.Equal(t, f.guest.ID, *b.UserID)
	assert.Equal(t, f.guest.Name, b.FullName)
	assert.Equal(t, f.guest.Email, b.Email)
	assert.Equal(t, f.guest.Phone, b.Phone)
	assert.Equal(t, types.GUEST_INTERNATIONAL, b.GuestTier)
}

func TestCreateLocalGuestByAccountCountry(t *testing.T) {
	f := newFixture(t)
	local := models.User{Name: "Lotte Claes", Email: "lotte@example.com", CountryOfResidence: "Belgium", Role: types.ROLE_EXTERNAL}
	require.Nil(t, f.db.Create(&local).Error)

	in := f.input("2026-03-10", "2026-03-13", 1)
	in.Phone = ""
	_, _, err := f.manager.CreateBooking(context.Background(), actorFor(local), in)
	appErr := assertKind(t, err, types.VALIDATION_ERROR, "missing_required_fields")
	assert.Contains(t, appErr.Details["fields"], "phone")

	in.Phone = "+447911123456"
	b, _, err := f.manager.CreateBooking(context.Background(), actorFor(local), in)
	require.Nil(t, err)
	assert.Equal(t, types.GUEST_LOCAL, b.GuestTier)
	assert.True(t, decimal.NewFromInt(360).Equal(b.TotalAmount), b.TotalAmount.String())
}

func TestCreateAnonymousRequiresIdentity(t *testing.T) {
	f := newFixture(t)
	in := f.input("2026-03-10", "2026-03-13", 1)
	in.FullName, in.Phone = "", ""

	_, _, err := f.manager.CreateBooking(context.Background(), nil, in)

	appErr := assertKind(t, err, types.VALIDATION_ERROR, "missing_required_fields")
	fields := appErr.Details["fields"].(map[string][]string)
	assert.Contains(t, fields, "full_name")
	assert.Contains(t, fields, "phone")
	assert.NotContains(t, fields, "email")
}

func TestCreateGuestCountMismatch(t *testing.T) {
	f := newFixture(t)
	in := f.input("2026-03-10", "2026-03-13", 2)
	in.Adults, in.Children = uptr(1), uptr(2)

	_, _, err := f.manager.CreateBooking(context.Background(), nil, in)
	assertKind(t, err, types.VALIDATION_ERROR, "guest_count_mismatch")

	in.Children = uptr(1)
	_, _, err = f.manager.CreateBooking(context.Background(), nil, in)
	assert.Nil(t, err)
}

func TestCreatePropertyCapacity(t *testing.T) {
	f := newFixture(t)

	_, _, err := f.manager.CreateBooking(context.Background(), nil, f.input("2026-03-10", "2026-03-13", 5))

	appErr := assertKind(t, err, types.VALIDATION_ERROR, "property_capacity_exceeded")
	assert.Equal(t, uint(4), appErr.Details["max_guests"])
}

func TestCreatePetPolicy(t *testing.T) {
	f := newFixture(t)
	in := f.input("2026-03-10", "2026-03-13", 2)
	in.PetIncluded = true

	t.Setenv("PET_FRIENDLY_PROPERTIES", "ocean-kifaru-north-sea")
	_, _, err := f.manager.CreateBooking(context.Background(), nil, in)
	assertKind(t, err, types.POLICY_VIOLATION, "pet_not_allowed")

	t.Setenv("PET_FRIENDLY_PROPERTIES", "kifaru-brussels-loft")
	b, _, err := f.manager.CreateBooking(context.Background(), nil, in)
	require.Nil(t, err)
	assert.True(t, b.PetIncluded)
}

func TestCreateJacuzziRequiresAmenity(t *testing.T) {
	f := newFixture(t)
	in := f.input("2026-03-10", "2026-03-13", 2)
	in.JacuzziReservation = true

	_, _, err := f.manager.CreateBooking(context.Background(), nil, in)

	assertKind(t, err, types.POLICY_VIOLATION, "jacuzzi_not_available")
}

func TestCreateMinimumNightsPolicy(t *testing.T) {
	f := newFixture(t)
	require.Nil(t, f.db.Model(&f.property).Update("min_nights", 3).Error)

	_, _, err := f.manager.CreateBooking(context.Background(), nil, f.input("2026-03-10", "2026-03-12", 2))

	appErr := assertKind(t, err, types.POLICY_VIOLATION, "minimum_nights_policy")
	assert.Equal(t, 2, appErr.Details["requested_nights"])
}

func TestCreateRejectsInvalidDates(t *testing.T) {
	f := newFixture(t)

	_, _, err := f.manager.CreateBooking(context.Background(), nil, f.input("2026-03-12", "2026-03-10", 2))
	assertKind(t, err, types.VALIDATION_ERROR, "invalid_date_range")

	_, _, err = f.manager.CreateBooking(context.Background(), nil, f.input("2026-02-20", "2026-02-23", 2))
	assertKind(t, err, types.VALIDATION_ERROR, "past_check_in")
}

func TestCreateDateRangeConflicts(t *testing.T) {
	f := newFixture(t)
	first := f.book(t, "2026-03-10", "2026-03-15")

	_, _, err := f.manager.CreateBooking(context.Background(), nil, f.input("2026-03-12", "2026-03-14", 2))
	appErr := assertKind(t, err, types.DATE_RANGE_CONFLICT, "date_range_conflict")
	assert.Equal(t, 409, appErr.HTTPStatus())
	assert.Equal(t, []string{"2026-03-12", "2026-03-13"}, appErr.Details["unavailable_dates"])

	// same-day turnover
	_, _, err = f.manager.CreateBooking(context.Background(), nil, f.input("2026-03-15", "2026-03-17", 2))
	appErr = assertKind(t, err, types.DATE_RANGE_CONFLICT, "date_range_conflict")
	assert.Equal(t, "Check in on 2026-03-16 instead", appErr.Suggestion)

	_, _, err = f.manager.CreateBooking(context.Background(), nil, f.input("2026-03-16", "2026-03-18", 2))
	assert.Nil(t, err)

	_, _, err = f.manager.CreateBooking(context.Background(), nil, f.input("2026-03-07", "2026-03-10", 2))
	assert.Nil(t, err, "checking out on another stay's check-in day is allowed")

	_, err = f.manager.CancelBooking(context.Background(), actorFor(f.admin), first.ID)
	require.Nil(t, err)
	_, _, err = f.manager.CreateBooking(context.Background(), nil, f.input("2026-03-12", "2026-03-14", 2))
	assert.Nil(t, err, "cancelled bookings release their dates")
}

func TestCreateBlockedRange(t *testing.T) {
	f := newFixture(t)
	require.Nil(t, f.db.Create(&models.BlockedRange{
		PropertyID: f.property.ID,
		StartDate:  date("2026-03-20"),
		EndDate:    date("2026-03-22"),
		Reason:     "Renovation",
	}).Error)

	_, _, err := f.manager.CreateBooking(context.Background(), nil, f.input("2026-03-19", "2026-03-21", 2))

	appErr := assertKind(t, err, types.DATE_RANGE_CONFLICT, "date_range_conflict")
	assert.NotEmpty(t, appErr.Details["blocked_ranges"])
}

func TestCreateSurfacesPricingRejection(t *testing.T) {
	f := newFixture(t)
	in := f.input("2026-03-10", "2026-03-13", 2)
	in.AccommodationType = types.ACCOMMODATION_FULL_APARTMENT

	_, _, err := f.manager.CreateBooking(context.Background(), nil, in)

	appErr := assertKind(t, err, types.PRICING_UNAVAILABLE, "accommodation_unavailable")
	assert.NotEmpty(t, appErr.Details["available_types"])
	var count int64
	f.db.Model(&models.Booking{}).Count(&count)
	assert.Equal(t, int64(0), count)
}

func TestCreateLongTermUsesWeeklyRate(t *testing.T) {
	f := newFixture(t)

	b, quote, err := f.manager.CreateBooking(context.Background(), nil, f.input("2026-03-02", "2026-03-16", 2))

	require.Nil(t, err)
	assert.Equal(t, types.DURATION_LONG_TERM, b.DurationTier)
	assert.Equal(t, 2, quote.Weeks)
	assert.True(t, decimal.NewFromInt(2400).Equal(b.TotalAmount), b.TotalAmount.String())
}

func TestCreateOneWinnerUnderConcurrency(t *testing.T) {
	f := newFixture(t)
	const attempts = 8

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		winners   int
		conflicts int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			// every range overlaps 2026-03-12
			in := f.input(fmt.Sprintf("2026-03-1%d", i%3), "2026-03-14", 2)
			_, _, err := f.manager.CreateBooking(context.Background(), nil, in)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				winners++
				return
			}
			if types.IsKind(err, types.DATE_RANGE_CONFLICT) {
				conflicts++
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, winners)
	assert.Equal(t, attempts-1, conflicts)

	var active int64
	f.db.Model(&models.Booking{}).Where("status = ?", types.BOOKING_PENDING).Count(&active)
	assert.Equal(t, int64(1), active)
}
