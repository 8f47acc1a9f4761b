package booking

import (
	"context"
	"time"

	"pbs/src/availability"
	"pbs/src/models"
	"pbs/src/models/scopes"
	"pbs/src/types"
	"pbs/src/utils"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type BlockInput struct {
	PropertyID    uint
	StartDate     time.Time
	EndDate       time.Time
	Reason        string
	IsMaintenance bool
}

func (m *Manager) canManage(ctx context.Context, actor *Actor, propertyID uint) (bool, error) {
	if actor.IsAdmin() {
		return true, nil
	}
	if !actor.IsStaff() {
		return false, nil
	}
	return m.isAssigned(ctx, actor.UserID, propertyID)
}

// BlockDates takes [StartDate, EndDate) off the calendar. Ranges holding an
// active booking cannot be blocked.
func (m *Manager) BlockDates(ctx context.Context, actor *Actor, in *BlockInput) (*models.BlockedRange, error) {
	if _, err := m.loadProperty(ctx, in.PropertyID); err != nil {
		return nil, err
	}
	allowed, err := m.canManage(ctx, actor, in.PropertyID)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, types.NewPermissionDenied("you are not allowed to manage this property")
	}
	if _, err := availability.ValidateRange(in.StartDate, in.EndDate, m.today()); err != nil {
		return nil, err
	}

	block := &models.BlockedRange{
		PropertyID:    in.PropertyID,
		StartDate:     utils.Day(in.StartDate),
		EndDate:       utils.Day(in.EndDate),
		Reason:        in.Reason,
		IsMaintenance: in.IsMaintenance,
		CreatedByID:   &actor.UserID,
	}

	unlock := m.locks.Lock(in.PropertyID)
	defer unlock()

	err = m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Scopes(scopes.WithID(in.PropertyID)).First(&models.Property{}).Error; err != nil {
			return notFound(err, "property")
		}
		bookings, _, err := availability.Load(tx, in.PropertyID, block.StartDate, block.EndDate)
		if err != nil {
			return err
		}
		report := availability.Evaluate(in.PropertyID, block.StartDate, block.EndDate, bookings, nil)
		if len(report.Conflicts) > 0 {
			report.BufferConflicts = nil
			return report.ConflictError()
		}
		if err := tx.Create(block).Error; err != nil {
			return err
		}
		return trail(tx, "blocked_range.created", initiator(actor, ""), utils.FormatDate(block.StartDate), types.JSONB{
			"property_id": in.PropertyID,
			"end_date":    utils.FormatDate(block.EndDate),
			"reason":      in.Reason,
		})
	})
	if err != nil {
		return nil, err
	}
	return block, nil
}

func (m *Manager) UnblockDates(ctx context.Context, actor *Actor, id uint) error {
	var block models.BlockedRange
	if err := m.db.WithContext(ctx).Scopes(scopes.WithID(id)).First(&block).Error; err != nil {
		return notFound(err, "blocked_range")
	}
	allowed, err := m.canManage(ctx, actor, block.PropertyID)
	if err != nil {
		return err
	}
	if !allowed {
		return types.NewPermissionDenied("you are not allowed to manage this property")
	}
	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&block).Error; err != nil {
			return err
		}
		return trail(tx, "blocked_range.deleted", initiator(actor, ""), utils.FormatDate(block.StartDate), types.JSONB{
			"property_id": block.PropertyID,
			"id":          block.ID,
		})
	})
}
