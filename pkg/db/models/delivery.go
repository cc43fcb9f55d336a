package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tanvirc/bazarly-backend/pkg/enums"
)

// Delivery is created 1:1 with an order at placement time. Its status and
// the parent order's status are projections of a single lifecycle phase and
// are only ever updated together by the orders service.
type Delivery struct {
	ID          uuid.UUID            `gorm:"column:id;type:uuid;primaryKey"`
	OrderID     uuid.UUID            `gorm:"column:order_id;type:uuid;not null;uniqueIndex:uq_deliveries_order_id"`
	ZoneID      *uuid.UUID           `gorm:"column:zone_id;type:uuid"`
	Status      enums.DeliveryStatus `gorm:"column:status;type:delivery_status;not null;default:'pending'"`
	EstimatedAt *time.Time           `gorm:"column:estimated_at"`
	Assignment  *DeliveryAssignment  `gorm:"foreignKey:DeliveryID;constraint:OnDelete:CASCADE"`
	CreatedAt   time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}

func (d *Delivery) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}
