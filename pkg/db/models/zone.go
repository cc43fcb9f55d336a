package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Zone is a delivery-fee-bearing geographic grouping of addresses.
type Zone struct {
	ID               uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Name             string    `gorm:"column:name;not null"`
	DeliveryFeeCents *int      `gorm:"column:delivery_fee_cents"`
	CreatedAt        time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (z *Zone) BeforeCreate(tx *gorm.DB) error {
	if z.ID == uuid.Nil {
		z.ID = uuid.New()
	}
	return nil
}
