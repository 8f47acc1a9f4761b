package boot

import (
	"log"

	"pbs/src/models"
	"pbs/src/types"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type seedRate struct {
	accommodation types.AccommodationType
	guest         types.GuestTier
	stay          types.DurationTier
	occupancy     *uint
	minNights     uint
	maxNights     *uint
	nightly       string
	weekly        string
	breakfast     bool
	fullboard     bool
}

type seedProperty struct {
	property models.Property
	rates    []seedRate
}

func seedUint(v uint) *uint {
	return &v
}

func seedDescription(s string) *string {
	return &s
}

var seedCatalog = []seedProperty{
	{
		property: models.Property{
			Name:                 "Tech & Bed Kifaru Brussels",
			Slug:                 "tech-bed-kifaru-brussels",
			Location:             "Brussels, Belgium",
			Country:              "Belgium",
			Description:          seedDescription("A luxurious apartment in Brussels with park views for business travelers and digital nomads."),
			MaxGuests:            6,
			MinNights:            2,
			PrepaymentPercentage: 50,
			CancellationDays:     30,
			Currency:             "EUR",
		},
		rates: []seedRate{
			{accommodation: types.ACCOMMODATION_MASTER_BEDROOM, guest: types.GUEST_INTERNATIONAL, stay: types.DURATION_LONG_TERM, minNights: 10, nightly: "150", weekly: "1200"},
			{accommodation: types.ACCOMMODATION_MASTER_BEDROOM, guest: types.GUEST_INTERNATIONAL, stay: types.DURATION_SHORT_TERM, minNights: 1, maxNights: seedUint(9), nightly: "200"},
			{accommodation: types.ACCOMMODATION_FULL_APARTMENT, guest: types.GUEST_INTERNATIONAL, stay: types.DURATION_LONG_TERM, minNights: 10, nightly: "200", weekly: "1400"},
			{accommodation: types.ACCOMMODATION_FULL_APARTMENT, guest: types.GUEST_INTERNATIONAL, stay: types.DURATION_SHORT_TERM, minNights: 1, maxNights: seedUint(9), nightly: "250"},
		},
	},
	{
		property: models.Property{
			Name:                 "Ocean Kifaru North-Sea",
			Slug:                 "ocean-kifaru-north-sea",
			Location:             "Cadzand-Bad, Netherlands",
			Country:              "Netherlands",
			Description:          seedDescription("Beachfront apartment in Cadzand-Bad with ocean views and a private terrace."),
			MaxGuests:            4,
			MinNights:            3,
			PrepaymentPercentage: 50,
			CancellationDays:     30,
			Currency:             "EUR",
		},
		rates: []seedRate{
			{accommodation: types.ACCOMMODATION_FULL_APARTMENT, guest: types.GUEST_INTERNATIONAL, stay: types.DURATION_WEEKLY, minNights: 7, nightly: "171.43", weekly: "1200"},
		},
	},
	{
		property: models.Property{
			Name:                 "Ocean Kifaru Indian-Ocean",
			Slug:                 "ocean-kifaru-indian-ocean",
			Location:             "Msambweni, Kenya",
			Country:              "Kenya",
			Description:          seedDescription("Beach resort in Msambweni with private beach access and an infinity pool."),
			MaxGuests:            8,
			MinNights:            3,
			PrepaymentPercentage: 50,
			CancellationDays:     30,
			Currency:             "EUR",
			HasJacuzzi:           true,
		},
		rates: []seedRate{
			{accommodation: types.ACCOMMODATION_FULL_APARTMENT, guest: types.GUEST_INTERNATIONAL, stay: types.DURATION_SHORT_TERM, minNights: 2, nightly: "450", breakfast: true, fullboard: true},
			{accommodation: types.ACCOMMODATION_MASTER_BEDROOM, guest: types.GUEST_INTERNATIONAL, stay: types.DURATION_SHORT_TERM, minNights: 2, nightly: "300", breakfast: true, fullboard: true},
			{accommodation: types.ACCOMMODATION_FULL_APARTMENT, guest: types.GUEST_LOCAL, stay: types.DURATION_SHORT_TERM, minNights: 2, nightly: "350", breakfast: true, fullboard: true},
			{accommodation: types.ACCOMMODATION_MASTER_BEDROOM, guest: types.GUEST_LOCAL, stay: types.DURATION_SHORT_TERM, minNights: 2, nightly: "250", breakfast: true, fullboard: true},
		},
	},
	{
		property: models.Property{
			Name:                 "Kifaru Marble Inn Mombasa",
			Slug:                 "kifaru-marble-inn-mombasa",
			Location:             "Nyali, Mombasa, Kenya",
			Country:              "Kenya",
			Description:          seedDescription("Guesthouse in Nyali with marble finishes close to the beaches."),
			MaxGuests:            6,
			MinNights:            2,
			PrepaymentPercentage: 50,
			CancellationDays:     30,
			Currency:             "EUR",
		},
		rates: []seedRate{
			{accommodation: types.ACCOMMODATION_SINGLE_BEDROOM, guest: types.GUEST_INTERNATIONAL, stay: types.DURATION_SHORT_TERM, occupancy: seedUint(1), minNights: 2, nightly: "100", weekly: "500", breakfast: true},
			{accommodation: types.ACCOMMODATION_MASTER_BEDROOM, guest: types.GUEST_INTERNATIONAL, stay: types.DURATION_SHORT_TERM, occupancy: seedUint(2), minNights: 2, nightly: "120", weekly: "600", breakfast: true},
			{accommodation: types.ACCOMMODATION_FULL_APARTMENT, guest: types.GUEST_INTERNATIONAL, stay: types.DURATION_SHORT_TERM, minNights: 2, nightly: "200", weekly: "1000", breakfast: true},
		},
	},
	{
		property: models.Property{
			Name:                 "Close the Gap HUB",
			Slug:                 "close-the-gap-hub",
			Location:             "Nyali, Mombasa, Kenya",
			Country:              "Kenya",
			Description:          seedDescription("Management suite with workspace in Nyali for entrepreneurs and remote workers."),
			MaxGuests:            2,
			MinNights:            4,
			PrepaymentPercentage: 50,
			CancellationDays:     7,
			Currency:             "EUR",
		},
		rates: []seedRate{
			{accommodation: types.ACCOMMODATION_SINGLE_BEDROOM, guest: types.GUEST_INTERNATIONAL, stay: types.DURATION_SHORT_TERM, minNights: 4, nightly: "75"},
			{accommodation: types.ACCOMMODATION_SINGLE_BEDROOM, guest: types.GUEST_INTERNATIONAL, stay: types.DURATION_LONG_TERM, minNights: 30, nightly: "33.33"},
		},
	},
}

func (r seedRate) record(propertyID uint) models.PricingRecord {
	rec := models.PricingRecord{
		PropertyID:        propertyID,
		AccommodationType: r.accommodation,
		GuestType:         r.guest,
		StayType:          r.stay,
		Occupancy:         r.occupancy,
		MinNights:         r.minNights,
		MaxNights:         r.maxNights,
		NightlyRate:       decimal.RequireFromString(r.nightly),
		IncludesBreakfast: r.breakfast,
		IncludesFullboard: r.fullboard,
	}
	if r.weekly != "" {
		rec.WeeklyRate = decimal.NewNullDecimal(decimal.RequireFromString(r.weekly))
	}
	return rec
}

// Seed loads the property catalog into an empty database. Existing data is
// left alone.
func Seed(db *gorm.DB) error {
	var count int64
	if err := db.Model(&models.Property{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	return db.Transaction(func(tx *gorm.DB) error {
		for _, s := range seedCatalog {
			property := s.property
			if err := tx.Omit("Staff", "PricingRecords").Create(&property).Error; err != nil {
				return err
			}
			records := make([]models.PricingRecord, 0, len(s.rates))
			for _, r := range s.rates {
				records = append(records, r.record(property.ID))
			}
			if err := tx.Create(&records).Error; err != nil {
				return err
			}
			log.Printf("[seed] %s: %d pricing records\n", property.Name, len(records))
		}
		return nil
	})
}
