package notifications

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tanvirc/bazarly-backend/pkg/db/models"
	"github.com/tanvirc/bazarly-backend/pkg/enums"
	pkgerrors "github.com/tanvirc/bazarly-backend/pkg/errors"
)

// Repository stores in-app notifications. Rows are written by the relay
// after the originating transaction committed, so a notification never
// references state that rolled back.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create appends one notification.
func (r *Repository) Create(ctx context.Context, notification *models.Notification) error {
	if err := r.db.WithContext(ctx).Create(notification).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create notification")
	}
	return nil
}

// ListForRecipient returns a recipient's notifications, newest first.
func (r *Repository) ListForRecipient(ctx context.Context, kind enums.RecipientKind, recipientID uuid.UUID, limit int) ([]models.Notification, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []models.Notification
	err := r.db.WithContext(ctx).
		Where("recipient_kind = ?", kind).
		Where("recipient_id = ?", recipientID).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list notifications")
	}
	return rows, nil
}

// MarkRead stamps a notification as read, scoped to its recipient.
func (r *Repository) MarkRead(ctx context.Context, notificationID, recipientID uuid.UUID) error {
	res := r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("id = ?", notificationID).
		Where("recipient_id = ?", recipientID).
		Where("read_at IS NULL").
		Update("read_at", time.Now())
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "mark notification read")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "notification not found")
	}
	return nil
}
