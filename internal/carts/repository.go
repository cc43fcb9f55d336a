package carts

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tanvirc/bazarly-backend/pkg/db/models"
	pkgerrors "github.com/tanvirc/bazarly-backend/pkg/errors"
)

// Repository loads carts for checkout and retires them once an order has
// been placed from them.
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

// FindActiveForCustomer loads the cart with its items, enforcing ownership
// and the active flag. An inactive cart surfaces as a state conflict so
// double placement attempts get a precise error rather than "not found".
func (r *Repository) FindActiveForCustomer(ctx context.Context, cartID, customerID uuid.UUID) (*models.Cart, error) {
	var cart models.Cart
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("id = ?", cartID).
		Where("customer_id = ?", customerID).
		First(&cart).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "query cart")
	}
	if !cart.Active {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "cart already used for an order")
	}
	return &cart, nil
}

// Deactivate retires the cart, guarding on the active flag so only one
// placement can win the cart even under concurrent requests.
func (r *Repository) Deactivate(ctx context.Context, cartID uuid.UUID) error {
	res := r.db.WithContext(ctx).
		Model(&models.Cart{}).
		Where("id = ?", cartID).
		Where("active = ?", true).
		Updates(map[string]any{
			"active":     false,
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "deactivate cart")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "cart already used for an order")
	}
	return nil
}
