package booking

import (
	"context"
	"testing"

	"pbs/src/types"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (f *fixture) previewInput(checkIn, checkOut string) *PreviewInput {
	return &PreviewInput{
		PropertyID:        f.property.ID,
		AccommodationType: types.ACCOMMODATION_MASTER_BEDROOM,
		CheckIn:           date(checkIn),
		CheckOut:          date(checkOut),
	}
}

func TestPreviewDefaultsToInternational(t *testing.T) {
	f := newFixture(t)

	preview, err := f.manager.PreviewPrice(context.Background(), nil, f.previewInput("2026-03-10", "2026-03-13"))

	require.Nil(t, err)
	assert.Equal(t, "Kifaru Brussels Loft", preview.PropertyName)
	assert.Equal(t, types.GUEST_INTERNATIONAL, preview.GuestTier)
	assert.Equal(t, types.DURATION_SHORT_TERM, preview.DurationTier)
	assert.Equal(t, 3, preview.TotalNights)
	assert.True(t, decimal.NewFromInt(600).Equal(preview.TotalAmount))
	assert.True(t, preview.IsAvailable)
}

func TestPreviewLocalPhone(t *testing.T) {
	f := newFixture(t)
	in := f.previewInput("2026-03-10", "2026-03-13")
	in.Phone = "+32470123456"

	preview, err := f.manager.PreviewPrice(context.Background(), nil, in)

	require.Nil(t, err)
	assert.Equal(t, types.GUEST_LOCAL, preview.GuestTier)
	assert.True(t, decimal.NewFromInt(360).Equal(preview.TotalAmount))

	in.Phone = "0470123456"
	_, err = f.manager.PreviewPrice(context.Background(), nil, in)
	assertKind(t, err, types.VALIDATION_ERROR, "invalid_phone_format")
}

func TestPreviewMatchesCreate(t *testing.T) {
	f := newFixture(t)
	f.book(t, "2026-03-10", "2026-03-15")

	preview, err := f.manager.PreviewPrice(context.Background(), nil, f.previewInput("2026-03-12", "2026-03-14"))
	require.Nil(t, err)
	assert.False(t, preview.IsAvailable)
	require.Len(t, preview.Availability.Conflicts, 1)

	_, _, err = f.manager.CreateBooking(context.Background(), nil, f.input("2026-03-12", "2026-03-14", 2))
	assertKind(t, err, types.DATE_RANGE_CONFLICT, "date_range_conflict")
}

func TestPreviewRejections(t *testing.T) {
	f := newFixture(t)
	in := f.previewInput("2026-03-10", "2026-03-13")
	in.AccommodationType = types.ACCOMMODATION_SINGLE_BEDROOM

	_, err := f.manager.PreviewPrice(context.Background(), nil, in)
	assertKind(t, err, types.PRICING_UNAVAILABLE, "accommodation_unavailable")

	in.PropertyID = 9999
	_, err = f.manager.PreviewPrice(context.Background(), nil, in)
	assertKind(t, err, types.NOT_FOUND, "property_not_found")
}
