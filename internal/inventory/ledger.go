package inventory

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tanvirc/bazarly-backend/pkg/db/models"
	pkgerrors "github.com/tanvirc/bazarly-backend/pkg/errors"
)

// Line is one reservation or release request against a product.
type Line struct {
	ProductID uuid.UUID
	Qty       int
}

// Ledger moves product stock. Every method takes the caller's transaction:
// reservations are all-or-nothing only because the surrounding transaction
// rolls the earlier decrements back when a later line fails.
type Ledger struct{}

func NewLedger() *Ledger {
	return &Ledger{}
}

// Reserve decrements stock for every line. The guarded UPDATE is the
// concurrency arbiter: the WHERE clause refuses to take stock below zero,
// and a zero row count means another placement got there first or the
// product simply does not have enough.
func (l *Ledger) Reserve(ctx context.Context, tx *gorm.DB, lines []Line) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	for _, line := range lines {
		if line.Qty <= 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "reserve quantity must be positive").
				WithDetails(map[string]any{"product_id": line.ProductID})
		}
		res := tx.WithContext(ctx).
			Model(&models.Product{}).
			Where("id = ?", line.ProductID).
			Where("stock >= ?", line.Qty).
			Where("removed_at IS NULL").
			UpdateColumn("stock", gorm.Expr("stock - ?", line.Qty))
		if res.Error != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "reserve stock")
		}
		if res.RowsAffected == 0 {
			available, err := l.currentStock(ctx, tx, line.ProductID)
			if err != nil {
				return err
			}
			return pkgerrors.New(pkgerrors.CodeInsufficientStock, "not enough stock").
				WithDetails(map[string]any{
					"product_id": line.ProductID,
					"available":  available,
					"requested":  line.Qty,
				})
		}
	}
	return nil
}

// Release returns previously reserved stock. It does not guard on the
// current value; callers are responsible for calling it at most once per
// reservation.
func (l *Ledger) Release(ctx context.Context, tx *gorm.DB, lines []Line) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	for _, line := range lines {
		if line.Qty <= 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "release quantity must be positive").
				WithDetails(map[string]any{"product_id": line.ProductID})
		}
		res := tx.WithContext(ctx).
			Model(&models.Product{}).
			Where("id = ?", line.ProductID).
			UpdateColumn("stock", gorm.Expr("stock + ?", line.Qty))
		if res.Error != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "release stock")
		}
		if res.RowsAffected == 0 {
			return pkgerrors.New(pkgerrors.CodeNotFound, "product not found").
				WithDetails(map[string]any{"product_id": line.ProductID})
		}
	}
	return nil
}

// SoftRemove takes a product off sale: stock drops to zero and the row is
// stamped removed, but it stays in place so order history keeps resolving.
func (l *Ledger) SoftRemove(ctx context.Context, tx *gorm.DB, productID uuid.UUID, at time.Time) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	res := tx.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", productID).
		Where("removed_at IS NULL").
		Updates(map[string]any{"stock": 0, "removed_at": at})
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "remove product")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "product not found or already removed").
			WithDetails(map[string]any{"product_id": productID})
	}
	return nil
}

func (l *Ledger) currentStock(ctx context.Context, tx *gorm.DB, productID uuid.UUID) (int, error) {
	var product models.Product
	err := tx.WithContext(ctx).
		Select("stock").
		Where("id = ?", productID).
		First(&product).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read stock")
	}
	return product.Stock, nil
}
