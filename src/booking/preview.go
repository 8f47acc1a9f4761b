package booking

import (
	"context"
	"strings"
	"time"

	"pbs/src/availability"
	"pbs/src/pricing"
	"pbs/src/types"
	"pbs/src/utils"
)

type PreviewInput struct {
	PropertyID        uint
	AccommodationType types.AccommodationType
	CheckIn           time.Time
	CheckOut          time.Time
	Guests            *int
	Phone             string
}

func NewPreviewInput(params *types.PriceQueryParams) (*PreviewInput, error) {
	checkIn, err := utils.ParseDate(params.CheckIn)
	if err != nil {
		return nil, types.NewValidationError("invalid_date", "check_in must be YYYY-MM-DD").WithCause(err)
	}
	checkOut, err := utils.ParseDate(params.CheckOut)
	if err != nil {
		return nil, types.NewValidationError("invalid_date", "check_out must be YYYY-MM-DD").WithCause(err)
	}
	return &PreviewInput{
		PropertyID:        params.PropertyID,
		AccommodationType: types.AccommodationType(params.AccommodationType),
		CheckIn:           checkIn,
		CheckOut:          checkOut,
		Guests:            params.Guests,
		Phone:             strings.TrimSpace(params.Phone),
	}, nil
}

// Preview is a priced quote together with the availability of the range.
type Preview struct {
	PropertyID   uint   `json:"property_id"`
	PropertyName string `json:"property_name"`
	CheckIn      string `json:"check_in"`
	CheckOut     string `json:"check_out"`
	*pricing.Quote
	IsAvailable  bool                 `json:"is_available"`
	Availability *availability.Report `json:"availability"`
}

// PreviewPrice quotes a stay through the same availability and pricing path
// as CreateBooking. An unavailable range still gets a price.
func (m *Manager) PreviewPrice(ctx context.Context, actor *Actor, in *PreviewInput) (*Preview, error) {
	property, err := m.loadProperty(ctx, in.PropertyID)
	if err != nil {
		return nil, err
	}

	report, err := availability.Check(ctx, m.db, property.ID, in.CheckIn, in.CheckOut, m.today())
	if err != nil {
		return nil, err
	}

	country, phone := "", in.Phone
	user, err := m.loadUser(ctx, actor)
	if err != nil {
		return nil, err
	}
	if user != nil {
		country = user.CountryOfResidence
		if phone == "" {
			phone = user.Phone
		}
	}

	quote, err := m.quote(ctx, property, country, phone, in.AccommodationType, report.TotalNights, in.Guests)
	if err != nil {
		return nil, err
	}

	return &Preview{
		PropertyID:   property.ID,
		PropertyName: property.Name,
		CheckIn:      utils.FormatDate(in.CheckIn),
		CheckOut:     utils.FormatDate(in.CheckOut),
		Quote:        quote,
		IsAvailable:  report.IsAvailable,
		Availability: report,
	}, nil
}
