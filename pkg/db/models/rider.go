package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Rider is a courier. Availability gates both auto-assignment and explicit
// accepts; ZoneID scopes the "browse available orders" listing.
type Rider struct {
	ID        uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	Name      string     `gorm:"column:name;not null"`
	Phone     string     `gorm:"column:phone;not null"`
	Available bool       `gorm:"column:available;not null;default:true"`
	ZoneID    *uuid.UUID `gorm:"column:zone_id;type:uuid"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (r *Rider) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
