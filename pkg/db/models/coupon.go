package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Coupon is a time-bounded percentage discount code.
type Coupon struct {
	ID              uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Code            string    `gorm:"column:code;uniqueIndex;not null"`
	DiscountPercent int       `gorm:"column:discount_percent;not null"`
	MinPoints       int       `gorm:"column:min_points;not null;default:0"`
	IsActive        bool      `gorm:"column:is_active;not null;default:true"`
	ValidFrom       time.Time `gorm:"column:valid_from;not null"`
	ValidTo         time.Time `gorm:"column:valid_to;not null"`
	CreatedAt       time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (c *Coupon) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
