package booking

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"pbs/src/config"
	"pbs/src/db"
	"pbs/src/lib"
	"pbs/src/lib/mailer"
	"pbs/src/models"
	"pbs/src/models/scopes"
	"pbs/src/pricing"
	"pbs/src/types"
	"pbs/src/utils"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Publisher interface {
	Publish(topic string, payload types.JSONB) error
}

type Mailer interface {
	Enqueue(input *lib.SendMailInput) error
}

// Actor is the caller of an operation. A nil Actor is an anonymous guest.
type Actor struct {
	UserID uint
	Email  string
	Role   types.UserRole
}

func (a *Actor) IsAuthenticated() bool {
	return a != nil && a.UserID != 0
}

func (a *Actor) IsAdmin() bool {
	return a.IsAuthenticated() && a.Role == types.ROLE_ADMIN
}

func (a *Actor) IsStaff() bool {
	return a.IsAuthenticated() && a.Role == types.ROLE_STAFF
}

type Deps struct {
	Processor lib.PaymentProcessor
	Publisher Publisher
	Mailer    Mailer
	Cache     *redis.Client
}

// Manager runs the booking lifecycle against one database.
type Manager struct {
	db        *gorm.DB
	catalog   *pricing.Catalog
	processor lib.PaymentProcessor
	publisher Publisher
	mailer    Mailer
	cache     *redis.Client
	locks     *keyedMutex

	Now func() time.Time
}

func New(db *gorm.DB, deps Deps) *Manager {
	return &Manager{
		db:        db,
		catalog:   pricing.NewCatalog(db, deps.Cache, config.GetCatalogCacheTTL()),
		processor: deps.Processor,
		publisher: deps.Publisher,
		mailer:    deps.Mailer,
		cache:     deps.Cache,
		locks:     newKeyedMutex(),
		Now:       time.Now,
	}
}

var manager *Manager

// GetManager returns the process-wide manager wired to the configured
// database, payment processor, broker and cache.
func GetManager() *Manager {
	if manager != nil {
		return manager
	}
	manager = New(db.GetDb(), Deps{
		Processor: lib.GetPaymentProcessor(),
		Publisher: lib.NewBrokerPublisher("bookings"),
		Mailer:    mailer.NewQueue(lib.NewBrokerPublisher("emails")),
		Cache:     lib.GetRedisClient(),
	})
	return manager
}

func NewManager(m *Manager) {
	manager = m
}

func (m *Manager) Catalog() *pricing.Catalog {
	return m.catalog
}

func (m *Manager) today() time.Time {
	return utils.Day(m.Now())
}

func (m *Manager) loadProperty(ctx context.Context, id uint) (*models.Property, error) {
	var property models.Property
	err := m.db.WithContext(ctx).Scopes(scopes.WithID(id)).First(&property).Error
	if err != nil {
		return nil, notFound(err, "property")
	}
	return &property, nil
}

func (m *Manager) loadUser(ctx context.Context, actor *Actor) (*models.User, error) {
	if !actor.IsAuthenticated() {
		return nil, nil
	}
	var user models.User
	err := m.db.WithContext(ctx).Scopes(scopes.WithID(actor.UserID)).First(&user).Error
	if err != nil {
		return nil, notFound(err, "user")
	}
	return &user, nil
}

// canAccess reports whether actor may view or change b: admins, the owner,
// and staff assigned to the property.
func (m *Manager) canAccess(ctx context.Context, actor *Actor, b *models.Booking) (bool, error) {
	if !actor.IsAuthenticated() {
		return false, nil
	}
	if actor.IsAdmin() {
		return true, nil
	}
	if b.UserID != nil && *b.UserID == actor.UserID {
		return true, nil
	}
	if b.UserID == nil && actor.Email != "" && strings.EqualFold(b.Email, actor.Email) {
		return true, nil
	}
	if actor.IsStaff() {
		return m.isAssigned(ctx, actor.UserID, b.PropertyID)
	}
	return false, nil
}

func (m *Manager) isAssigned(ctx context.Context, userID uint, propertyID uint) (bool, error) {
	var count int64
	err := m.db.WithContext(ctx).
		Table("property_staff").
		Where("user_id = ? AND property_id = ?", userID, propertyID).
		Count(&count).
		Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// refreshPropertyStatus marks a property booked while it has another
// confirmed upcoming stay and free otherwise. Maintenance is left alone.
func refreshPropertyStatus(tx *gorm.DB, propertyID uint, excludeBookingID uint, today time.Time) error {
	var property models.Property
	if err := tx.Scopes(scopes.WithID(propertyID)).First(&property).Error; err != nil {
		return err
	}
	if property.Status == types.PROPERTY_MAINTENANCE {
		return nil
	}
	var count int64
	err := tx.Model(&models.Booking{}).
		Scopes(scopes.ForProperty(propertyID)).
		Where("status = ? AND id <> ? AND check_out >= ?", types.BOOKING_CONFIRMED, excludeBookingID, today).
		Count(&count).
		Error
	if err != nil {
		return err
	}
	status := types.PROPERTY_FREE
	if count > 0 {
		status = types.PROPERTY_BOOKED
	}
	if status == property.Status {
		return nil
	}
	return tx.Model(&models.Property{}).Scopes(scopes.WithID(propertyID)).Update("status", status).Error
}

func (m *Manager) publish(event string, b *models.Booking) {
	if m.publisher == nil {
		return
	}
	payload := types.JSONB{
		"event":        event,
		"booking_id":   b.ID,
		"reference":    b.ReferenceString(),
		"property_id":  b.PropertyID,
		"status":       b.Status,
		"check_in":     utils.FormatDate(b.CheckIn),
		"check_out":    utils.FormatDate(b.CheckOut),
		"total_amount": b.TotalAmount.StringFixed(2),
		"currency":     b.Currency,
	}
	if err := m.publisher.Publish(config.GetBookingEventsTopic(), payload); err != nil {
		log.Printf("[booking] Failed to publish %s for %d: %s\n", event, b.ID, err.Error())
	}
}

func trail(tx *gorm.DB, event string, initiator string, subject string, payload types.JSONB) error {
	return tx.Create(&models.TrailLog{
		Type:      event,
		Initiator: initiator,
		Group:     "bookings",
		Subject:   subject,
		Payload:   payload,
	}).Error
}

func initiator(actor *Actor, fallback string) string {
	if actor.IsAuthenticated() {
		return fmt.Sprintf("user:%d", actor.UserID)
	}
	return fmt.Sprintf("guest:%s", fallback)
}

func notFound(err error, resource string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return types.NewNotFound(resource)
	}
	return fmt.Errorf("loading %s: %w", resource, err)
}
