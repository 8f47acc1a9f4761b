package booking

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"pbs/src/lib"
	"pbs/src/models"
	"pbs/src/types"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var now = time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)

func date(s string) time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return d
}

func uptr(v uint) *uint { return &v }

type fakeProcessor struct {
	mu         sync.Mutex
	refunds    []lib.RefundInput
	refundErr  error
	initErr    error
	verifyWith *lib.PaymentVerification
	event      *lib.PaymentWebhookEvent
}

func (f *fakeProcessor) Name() string { return "fake" }

func (f *fakeProcessor) Initialize(ctx context.Context, in *lib.InitializePaymentInput) (*lib.PaymentAuthorization, error) {
	if f.initErr != nil {
		return nil, f.initErr
	}
	return &lib.PaymentAuthorization{
		AuthorizationURL: "https://pay.example/" + in.Reference,
		AccessCode:       "ac_" + in.Reference,
		ProviderID:       "prov_" + in.Reference,
	}, nil
}

func (f *fakeProcessor) Verify(ctx context.Context, reference string, providerID string) (*lib.PaymentVerification, error) {
	if f.verifyWith == nil {
		return nil, errors.New("verify unavailable")
	}
	return f.verifyWith, nil
}

func (f *fakeProcessor) Refund(ctx context.Context, in *lib.RefundInput) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.refundErr != nil {
		return f.refundErr
	}
	f.refunds = append(f.refunds, *in)
	return nil
}

func (f *fakeProcessor) ParseWebhook(payload []byte, header http.Header) (*lib.PaymentWebhookEvent, error) {
	if header.Get("X-Fake-Signature") != "ok" {
		return nil, lib.ErrInvalidSignature
	}
	return f.event, nil
}

func (f *fakeProcessor) refundCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.refunds)
}

type fakePublisher struct {
	mu     sync.Mutex
	events []types.JSONB
}

func (f *fakePublisher) Publish(topic string, payload types.JSONB) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, payload)
	return nil
}

func (f *fakePublisher) count(event string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, e := range f.events {
		if e["event"] == event {
			n++
		}
	}
	return n
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []*lib.SendMailInput
}

func (f *fakeMailer) Enqueue(input *lib.SendMailInput) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, input)
	return nil
}

type fixture struct {
	db        *gorm.DB
	manager   *Manager
	processor *fakeProcessor
	publisher *fakePublisher
	mailer    *fakeMailer
	property  models.Property
	guest     models.User
	admin     models.User
	staff     models.User
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	d, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.Nil(t, err)
	sqlDB, err := d.DB()
	require.Nil(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.Nil(t, d.AutoMigrate(
		&models.User{},
		&models.Property{},
		&models.PricingRecord{},
		&models.Booking{},
		&models.BlockedRange{},
		&models.Payment{},
		&models.PaymentAttempt{},
		&models.TrailLog{},
	))
	return d
}

func pricingRecord(propertyID uint, acc types.AccommodationType, guest types.GuestTier, stay types.DurationTier, minNights uint, maxNights *uint, nightly string, weekly string) models.PricingRecord {
	r := models.PricingRecord{
		PropertyID:        propertyID,
		AccommodationType: acc,
		GuestType:         guest,
		StayType:          stay,
		MinNights:         minNights,
		MaxNights:         maxNights,
		NightlyRate:       decimal.RequireFromString(nightly),
	}
	if weekly != "" {
		r.WeeklyRate = decimal.NewNullDecimal(decimal.RequireFromString(weekly))
	}
	return r
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	d := newTestDB(t)
	f := &fixture{
		db:        d,
		processor: &fakeProcessor{},
		publisher: &fakePublisher{},
		mailer:    &fakeMailer{},
	}

	f.property = models.Property{
		Name:                 "Kifaru Brussels Loft",
		Country:              "Belgium",
		MaxGuests:            4,
		MinNights:            1,
		PrepaymentPercentage: 30,
		Currency:             "EUR",
	}
	require.Nil(t, d.Create(&f.property).Error)

	records := []models.PricingRecord{
		pricingRecord(f.property.ID, types.ACCOMMODATION_MASTER_BEDROOM, types.GUEST_INTERNATIONAL, types.DURATION_SHORT_TERM, 1, uptr(9), "200", ""),
		pricingRecord(f.property.ID, types.ACCOMMODATION_MASTER_BEDROOM, types.GUEST_INTERNATIONAL, types.DURATION_LONG_TERM, 10, nil, "150", "1200"),
		pricingRecord(f.property.ID, types.ACCOMMODATION_MASTER_BEDROOM, types.GUEST_LOCAL, types.DURATION_SHORT_TERM, 1, uptr(9), "120", ""),
		pricingRecord(f.property.ID, types.ACCOMMODATION_MASTER_BEDROOM, types.GUEST_LOCAL, types.DURATION_LONG_TERM, 10, nil, "100", "700"),
	}
	require.Nil(t, d.Create(&records).Error)

	f.guest = models.User{Name: "Amina Wanjiru", Email: "amina@example.com", Phone: "+254712345678", CountryOfResidence: "Kenya", Role: types.ROLE_EXTERNAL}
	f.admin = models.User{Name: "Admin", Email: "admin@example.com", Role: types.ROLE_ADMIN}
	f.staff = models.User{Name: "Staff", Email: "staff@example.com", Role: types.ROLE_STAFF}
	require.Nil(t, d.Create(&f.guest).Error)
	require.Nil(t, d.Create(&f.admin).Error)
	require.Nil(t, d.Create(&f.staff).Error)

	f.manager = New(d, Deps{
		Processor: f.processor,
		Publisher: f.publisher,
		Mailer:    f.mailer,
	})
	f.manager.Now = func() time.Time { return now }
	return f
}

func actorFor(u models.User) *Actor {
	return &Actor{UserID: u.ID, Email: u.Email, Role: u.Role}
}

func (f *fixture) assignStaff(t *testing.T) {
	t.Helper()
	require.Nil(t, f.db.Model(&f.property).Association("Staff").Append(&f.staff))
}

func (f *fixture) input(checkIn, checkOut string, guests uint) *CreateInput {
	return &CreateInput{
		PropertyID:        f.property.ID,
		AccommodationType: types.ACCOMMODATION_MASTER_BEDROOM,
		CheckIn:           date(checkIn),
		CheckOut:          date(checkOut),
		Guests:            guests,
		FullName:          "Jan Peeters",
		Email:             "jan@example.com",
		Phone:             "+447911123456",
	}
}

func (f *fixture) book(t *testing.T, checkIn, checkOut string) *models.Booking {
	t.Helper()
	b, _, err := f.manager.CreateBooking(context.Background(), nil, f.input(checkIn, checkOut, 2))
	require.Nil(t, err)
	return b
}

// paid books a stay and confirms a completed payment for it.
func (f *fixture) paid(t *testing.T, checkIn, checkOut string) (*models.Booking, *models.Payment) {
	t.Helper()
	ctx := context.Background()
	b := f.book(t, checkIn, checkOut)
	payment, err := f.manager.InitializePayment(ctx, nil, &PaymentInput{BookingID: b.ID, Email: b.Email})
	require.Nil(t, err)
	payment, err = f.manager.ConfirmPayment(ctx, payment.Reference, payment.Amount)
	require.Nil(t, err)
	return b, payment
}

func (f *fixture) reload(t *testing.T, id uint) models.Booking {
	t.Helper()
	var b models.Booking
	require.Nil(t, f.db.First(&b, id).Error)
	return b
}

func assertKind(t *testing.T, err error, kind types.ErrorKind, errorType string) *types.AppError {
	t.Helper()
	appErr := types.IsAppError(err)
	require.NotNil(t, appErr, "expected an AppError, got %v", err)
	assert.Equal(t, kind, appErr.Kind)
	assert.Equal(t, errorType, appErr.Type)
	return appErr
}
