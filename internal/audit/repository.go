package audit

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/tanvirc/bazarly-backend/pkg/db/models"
	pkgerrors "github.com/tanvirc/bazarly-backend/pkg/errors"
)

// Repository appends audit rows. Entries ride in the same transaction as
// the admin action they describe, so an action and its trail commit or roll
// back together.
type Repository struct{}

func NewRepository() *Repository {
	return &Repository{}
}

// Record appends one entry.
func (r *Repository) Record(ctx context.Context, tx *gorm.DB, entry models.AuditLog) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	if err := tx.WithContext(ctx).Create(&entry).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "write audit entry")
	}
	return nil
}

// ListForRecord returns the trail for one row, newest first.
func (r *Repository) ListForRecord(ctx context.Context, db *gorm.DB, tableName string, recordID any) ([]models.AuditLog, error) {
	var rows []models.AuditLog
	err := db.WithContext(ctx).
		Where("table_name = ?", tableName).
		Where("record_id = ?", recordID).
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list audit entries")
	}
	return rows, nil
}
