package riders

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tanvirc/bazarly-backend/pkg/db"
	"github.com/tanvirc/bazarly-backend/pkg/db/models"
	pkgerrors "github.com/tanvirc/bazarly-backend/pkg/errors"
)

const assignmentUniqueConstraint = "uq_delivery_assignments_delivery_id"

// Repository reads riders and writes delivery assignments.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx rebinds the repository to a transaction handle.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// FindByID loads one rider.
func (r *Repository) FindByID(ctx context.Context, riderID uuid.UUID) (*models.Rider, error) {
	var rider models.Rider
	err := r.db.WithContext(ctx).First(&rider, "id = ?", riderID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "rider not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "query rider")
	}
	return &rider, nil
}

// FirstAvailable returns the longest-idle available rider, preferring the
// delivery's zone when one is set. Returns (nil, nil) when nobody is free.
func (r *Repository) FirstAvailable(ctx context.Context, zoneID *uuid.UUID) (*models.Rider, error) {
	var rider models.Rider
	query := r.db.WithContext(ctx).
		Where("available = ?", true).
		Order("updated_at ASC")
	if zoneID != nil {
		query = query.Where("zone_id = ? OR zone_id IS NULL", *zoneID)
	}
	err := query.First(&rider).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "query available rider")
	}
	return &rider, nil
}

// SetAvailable flips a rider's availability flag.
func (r *Repository) SetAvailable(ctx context.Context, riderID uuid.UUID, available bool) error {
	res := r.db.WithContext(ctx).
		Model(&models.Rider{}).
		Where("id = ?", riderID).
		Update("available", available)
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "update rider availability")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "rider not found")
	}
	return nil
}

// CreateAssignment inserts the assignment row. The unique index on
// delivery_id makes the database the arbiter for concurrent claims; the
// loser surfaces as a conflict.
func (r *Repository) CreateAssignment(ctx context.Context, assignment *models.DeliveryAssignment) error {
	err := r.db.WithContext(ctx).Create(assignment).Error
	if err == nil {
		return nil
	}
	if db.IsUniqueViolation(err, assignmentUniqueConstraint) {
		return pkgerrors.New(pkgerrors.CodeConflict, "delivery already assigned to a rider")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create assignment")
}

// FindActiveAssignment returns the active assignment for a delivery, or
// (nil, nil) when the delivery is unclaimed.
func (r *Repository) FindActiveAssignment(ctx context.Context, deliveryID uuid.UUID) (*models.DeliveryAssignment, error) {
	var assignment models.DeliveryAssignment
	err := r.db.WithContext(ctx).
		Where("delivery_id = ?", deliveryID).
		Where("active = ?", true).
		First(&assignment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "query assignment")
	}
	return &assignment, nil
}

// DeactivateAssignment retires the assignment without deleting it, keeping
// the claim history for auditability.
func (r *Repository) DeactivateAssignment(ctx context.Context, assignmentID uuid.UUID) error {
	res := r.db.WithContext(ctx).
		Model(&models.DeliveryAssignment{}).
		Where("id = ?", assignmentID).
		Update("active", false)
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "deactivate assignment")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "assignment not found")
	}
	return nil
}
