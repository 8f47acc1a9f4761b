package booking

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"pbs/src/availability"
	"pbs/src/models"
	"pbs/src/models/scopes"
	"pbs/src/pricing"
	"pbs/src/types"
	"pbs/src/utils"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CreateInput struct {
	PropertyID         uint
	AccommodationType  types.AccommodationType
	CheckIn            time.Time
	CheckOut           time.Time
	Guests             uint
	Adults             *uint
	Children           *uint
	FullName           string
	Email              string
	Phone              string
	PetIncluded        bool
	JacuzziReservation bool
	SpecialRequests    string
}

// NewCreateInput converts a bound request body. Dates have already passed the
// bookingdate validator, so parse failures are reported as invalid_date.
func NewCreateInput(body *types.CreateBookingRequestBody) (*CreateInput, error) {
	checkIn, err := utils.ParseDate(body.CheckIn)
	if err != nil {
		return nil, types.NewValidationError("invalid_date", "check_in must be YYYY-MM-DD").WithCause(err)
	}
	checkOut, err := utils.ParseDate(body.CheckOut)
	if err != nil {
		return nil, types.NewValidationError("invalid_date", "check_out must be YYYY-MM-DD").WithCause(err)
	}
	return &CreateInput{
		PropertyID:         body.PropertyID,
		AccommodationType:  types.AccommodationType(body.AccommodationType),
		CheckIn:            checkIn,
		CheckOut:           checkOut,
		Guests:             body.Guests,
		Adults:             body.Adults,
		Children:           body.Children,
		FullName:           strings.TrimSpace(body.FullName),
		Email:              strings.TrimSpace(body.Email),
		Phone:              strings.TrimSpace(body.Phone),
		PetIncluded:        body.PetIncluded,
		JacuzziReservation: body.JacuzziReservation,
		SpecialRequests:    strings.TrimSpace(body.SpecialRequests),
	}, nil
}

type guestIdentity struct {
	userID  *uint
	name    string
	email   string
	phone   string
	country string
}

// CreateBooking validates, prices and persists a pending booking. Checks run
// in a fixed order and the first failure is returned unchanged.
func (m *Manager) CreateBooking(ctx context.Context, actor *Actor, in *CreateInput) (*models.Booking, *pricing.Quote, error) {
	property, err := m.loadProperty(ctx, in.PropertyID)
	if err != nil {
		return nil, nil, err
	}

	guest, err := m.resolveIdentity(ctx, actor, in)
	if err != nil {
		return nil, nil, err
	}
	if err := checkOccupancy(property, in); err != nil {
		return nil, nil, err
	}
	if err := checkAddOns(property, in); err != nil {
		return nil, nil, err
	}

	report, err := availability.Check(ctx, m.db, property.ID, in.CheckIn, in.CheckOut, m.today())
	if err != nil {
		return nil, nil, err
	}
	if property.MinNights > 0 && report.TotalNights < int(property.MinNights) {
		return nil, nil, types.NewPolicyViolation("minimum_nights_policy", fmt.Sprintf("%s requires a minimum stay of %d nights", property.Name, property.MinNights)).
			WithDetail("min_nights", property.MinNights).
			WithDetail("requested_nights", report.TotalNights).
			WithSuggestion(fmt.Sprintf("Extend your stay to at least %d nights", property.MinNights))
	}
	if conflict := report.ConflictError(); conflict != nil {
		return nil, nil, conflict
	}

	occupancy := int(in.Guests)
	quote, err := m.quote(ctx, property, guest.country, guest.phone, in.AccommodationType, report.TotalNights, &occupancy)
	if err != nil {
		return nil, nil, err
	}

	b := &models.Booking{
		PropertyID:         property.ID,
		UserID:             guest.userID,
		FullName:           guest.name,
		Email:              guest.email,
		Phone:              guest.phone,
		AccommodationType:  in.AccommodationType,
		GuestTier:          quote.GuestTier,
		DurationTier:       quote.DurationTier,
		CheckIn:            utils.Day(in.CheckIn),
		CheckOut:           utils.Day(in.CheckOut),
		Guests:             in.Guests,
		Adults:             in.Adults,
		Children:           in.Children,
		TotalNights:        uint(quote.TotalNights),
		PricingRecordID:    quote.PricingRecordID,
		NightlyRate:        quote.NightlyRate,
		WeeklyRate:         quote.WeeklyRate,
		TotalAmount:        quote.TotalAmount,
		Currency:           quote.Currency,
		IncludesBreakfast:  quote.IncludesBreakfast,
		IncludesFullboard:  quote.IncludesFullboard,
		PetIncluded:        in.PetIncluded,
		JacuzziReservation: in.JacuzziReservation,
		Status:             types.BOOKING_PENDING,
	}
	if in.SpecialRequests != "" {
		b.SpecialRequests = &in.SpecialRequests
	}

	if err := m.persist(ctx, b, initiator(actor, guest.email)); err != nil {
		return nil, nil, err
	}

	m.publish("booking.created", b)
	return b, quote, nil
}

// persist holds the property lock while it re-evaluates the range and inserts
// the booking, so two overlapping requests cannot both commit.
func (m *Manager) persist(ctx context.Context, b *models.Booking, by string) error {
	unlock := m.locks.Lock(b.PropertyID)
	defer unlock()

	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var property models.Property
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Scopes(scopes.WithID(b.PropertyID)).First(&property).Error
		if err != nil {
			return notFound(err, "property")
		}

		bookings, blocks, err := availability.Load(tx, b.PropertyID, b.CheckIn, b.CheckOut)
		if err != nil {
			return err
		}
		report := availability.Evaluate(b.PropertyID, b.CheckIn, b.CheckOut, bookings, blocks)
		if conflict := report.ConflictError(); conflict != nil {
			log.Printf("[booking] Lost range %s..%s on property %d at commit\n", utils.FormatDate(b.CheckIn), utils.FormatDate(b.CheckOut), b.PropertyID)
			return conflict
		}

		if err := tx.Omit(clause.Associations).Create(b).Error; err != nil {
			return err
		}
		reference := utils.BookingReference(m.Now().Year(), b.ID)
		if err := tx.Model(&models.Booking{}).Scopes(scopes.WithID(b.ID)).Update("reference", reference).Error; err != nil {
			return err
		}
		b.Reference = &reference

		return trail(tx, "booking.created", by, reference, types.JSONB{
			"booking_id":   b.ID,
			"property_id":  b.PropertyID,
			"check_in":     utils.FormatDate(b.CheckIn),
			"check_out":    utils.FormatDate(b.CheckOut),
			"total_amount": b.TotalAmount.StringFixed(2),
		})
	})
}

func (m *Manager) resolveIdentity(ctx context.Context, actor *Actor, in *CreateInput) (*guestIdentity, error) {
	guest := &guestIdentity{
		name:  in.FullName,
		email: in.Email,
		phone: in.Phone,
	}

	user, err := m.loadUser(ctx, actor)
	if err != nil {
		return nil, err
	}
	if user != nil {
		guest.userID = &user.ID
		guest.country = user.CountryOfResidence
		if guest.name == "" {
			guest.name = user.Name
		}
		if guest.email == "" {
			guest.email = user.Email
		}
		if guest.phone == "" {
			guest.phone = user.Phone
		}
	}

	missing := types.NewInputError()
	if guest.name == "" {
		missing.Add("full_name", "full name is required")
	}
	if guest.email == "" {
		missing.Add("email", "email is required")
	}
	if guest.phone == "" {
		if user != nil {
			missing.Add("phone", "phone is required in the request or on your profile")
		} else {
			missing.Add("phone", "phone is required")
		}
	}
	if missing.Count() > 0 {
		return nil, missing.AppError("missing_required_fields", "required guest details are missing")
	}
	return guest, nil
}

func checkOccupancy(property *models.Property, in *CreateInput) error {
	if in.Adults != nil && in.Children != nil && *in.Adults+*in.Children != in.Guests {
		return types.NewValidationError("guest_count_mismatch", "adults and children must add up to the number of guests").
			WithDetail("adults", *in.Adults).
			WithDetail("children", *in.Children).
			WithDetail("guests", in.Guests)
	}
	if property.MaxGuests > 0 && in.Guests > property.MaxGuests {
		return types.NewValidationError("property_capacity_exceeded", fmt.Sprintf("%s accommodates at most %d guests", property.Name, property.MaxGuests)).
			WithDetail("max_guests", property.MaxGuests).
			WithDetail("guests", in.Guests)
	}
	return nil
}

func checkAddOns(property *models.Property, in *CreateInput) error {
	if in.PetIncluded && !property.AllowsPets() {
		return types.NewPolicyViolation("pet_not_allowed", fmt.Sprintf("pets are not allowed at %s", property.Name)).
			WithDetail("property_id", property.ID)
	}
	if in.JacuzziReservation && !property.HasJacuzzi {
		return types.NewPolicyViolation("jacuzzi_not_available", fmt.Sprintf("%s has no jacuzzi", property.Name)).
			WithDetail("property_id", property.ID)
	}
	return nil
}

// quote is the pricing path shared by preview and create.
func (m *Manager) quote(ctx context.Context, property *models.Property, accountCountry, phone string, acc types.AccommodationType, nights int, occupancy *int) (*pricing.Quote, error) {
	guestTier, err := pricing.ClassifyGuest(property.Country, accountCountry, phone)
	if err != nil {
		return nil, err
	}
	catalog, err := m.catalog.Load(ctx, property.ID)
	if err != nil {
		return nil, err
	}
	quote, err := pricing.Resolve(catalog, pricing.Query{
		AccommodationType: acc,
		GuestTier:         guestTier,
		DurationTier:      pricing.ClassifyDuration(pricing.HasWeekly(catalog, acc), nights),
		Nights:            nights,
		Occupancy:         occupancy,
	})
	if err != nil {
		return nil, err
	}
	quote.Currency = property.Currency
	return quote, nil
}
