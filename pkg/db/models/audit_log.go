package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tanvirc/bazarly-backend/pkg/enums"
)

// AuditLog records admin actions against specific rows, written inside the
// same transaction as the action itself.
type AuditLog struct {
	ID          uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	ActorID     uuid.UUID         `gorm:"column:actor_id;type:uuid;not null"`
	Action      enums.AuditAction `gorm:"column:action;type:text;not null"`
	TableName   string            `gorm:"column:table_name;not null"`
	RecordID    uuid.UUID         `gorm:"column:record_id;type:uuid;not null"`
	Description string            `gorm:"column:description;not null"`
	CreatedAt   time.Time         `gorm:"column:created_at;autoCreateTime"`
}

func (a *AuditLog) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
