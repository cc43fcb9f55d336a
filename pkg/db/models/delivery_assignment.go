package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DeliveryAssignment links one delivery to the one rider responsible for it.
// The unique index on DeliveryID is the final arbiter for concurrent accept
// races: the second insert loses at the constraint, not in application code.
type DeliveryAssignment struct {
	ID         uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	DeliveryID uuid.UUID `gorm:"column:delivery_id;type:uuid;not null;uniqueIndex:uq_delivery_assignments_delivery_id"`
	RiderID    uuid.UUID `gorm:"column:rider_id;type:uuid;not null;index"`
	AssignedAt time.Time `gorm:"column:assigned_at;autoCreateTime"`
	Active     bool      `gorm:"column:active;not null;default:true"`
}

func (d *DeliveryAssignment) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}
