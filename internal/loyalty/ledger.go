package loyalty

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tanvirc/bazarly-backend/pkg/db/models"
	pkgerrors "github.com/tanvirc/bazarly-backend/pkg/errors"
)

// Ledger is the only writer of the customer loyalty counters. Balances are
// never stored; the available balance is always earned minus used, so every
// movement here is an increment on one of the two counters.
type Ledger struct{}

func NewLedger() *Ledger {
	return &Ledger{}
}

// DebitUsed records points spent on an order.
func (l *Ledger) DebitUsed(ctx context.Context, tx *gorm.DB, customerID uuid.UUID, points int) error {
	return l.apply(ctx, tx, customerID, "points_used", points)
}

// CreditEarned records points granted for a charge.
func (l *Ledger) CreditEarned(ctx context.Context, tx *gorm.DB, customerID uuid.UUID, points int) error {
	return l.apply(ctx, tx, customerID, "points_earned", points)
}

// ReverseUsed gives back points spent on a cancelled order.
func (l *Ledger) ReverseUsed(ctx context.Context, tx *gorm.DB, customerID uuid.UUID, points int) error {
	return l.apply(ctx, tx, customerID, "points_used", -points)
}

// ReverseEarned revokes points granted for a cancelled order.
func (l *Ledger) ReverseEarned(ctx context.Context, tx *gorm.DB, customerID uuid.UUID, points int) error {
	return l.apply(ctx, tx, customerID, "points_earned", -points)
}

func (l *Ledger) apply(ctx context.Context, tx *gorm.DB, customerID uuid.UUID, column string, delta int) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	if customerID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "customer id required")
	}
	if delta == 0 {
		return nil
	}
	res := tx.WithContext(ctx).
		Model(&models.Customer{}).
		Where("id = ?", customerID).
		UpdateColumn(column, gorm.Expr(column+" + ?", delta))
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "update loyalty counter")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "customer not found")
	}
	return nil
}
