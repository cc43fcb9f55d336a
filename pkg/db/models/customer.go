package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Customer owns carts, orders and a loyalty balance. Available points are
// always PointsEarned - PointsUsed; the two counters are only ever moved by
// the loyalty ledger.
type Customer struct {
	ID            uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	Name          string     `gorm:"column:name;not null"`
	Phone         string     `gorm:"column:phone;not null"`
	DefaultZoneID *uuid.UUID `gorm:"column:default_zone_id;type:uuid"`
	PointsEarned  int        `gorm:"column:points_earned;not null;default:0"`
	PointsUsed    int        `gorm:"column:points_used;not null;default:0"`
	CreatedAt     time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (c *Customer) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// AvailablePoints returns the spendable loyalty balance.
func (c *Customer) AvailablePoints() int {
	return c.PointsEarned - c.PointsUsed
}
