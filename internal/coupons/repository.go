package coupons

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/tanvirc/bazarly-backend/pkg/db/models"
	pkgerrors "github.com/tanvirc/bazarly-backend/pkg/errors"
)

// Repository reads coupon rows. Writes go through admin tooling, not this
// service, so only the lookup surface lives here.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// FindApplicable returns the active coupon matching code whose validity
// window contains at. A missing, inactive or out-of-window code returns
// (nil, nil); callers treat that as "no discount".
func (r *Repository) FindApplicable(ctx context.Context, code string, at time.Time) (*models.Coupon, error) {
	var coupon models.Coupon
	err := r.db.WithContext(ctx).
		Where("code = ?", code).
		Where("is_active = ?", true).
		Where("valid_from <= ?", at).
		Where("valid_to >= ?", at).
		First(&coupon).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "query coupon")
	}
	return &coupon, nil
}
