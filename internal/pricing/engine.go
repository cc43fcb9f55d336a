package pricing

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tanvirc/bazarly-backend/pkg/db/models"
	pkgerrors "github.com/tanvirc/bazarly-backend/pkg/errors"
)

const (
	// VATRatePercent is the flat VAT applied to every order subtotal.
	VATRatePercent = 15

	// DefaultDeliveryFeeCents applies when the customer's zone has no fee
	// configured. 70 taka.
	DefaultDeliveryFeeCents = 7000

	// pointValueCents: one loyalty point redeems for one taka.
	pointValueCents = 100

	// earnDivisorCents: one point earned per 100 taka of the final charge.
	earnDivisorCents = 100 * 100
)

// CouponFinder resolves a coupon code to an applicable coupon. A nil coupon
// with nil error means the code is unknown, inactive or outside its validity
// window; the engine treats all three the same way.
type CouponFinder interface {
	FindApplicable(ctx context.Context, code string, at time.Time) (*models.Coupon, error)
}

// LineItem is one priced cart line. UnitPriceCents is the price cached on
// the cart, not the live product price.
type LineItem struct {
	ProductID      uuid.UUID
	Qty            int
	UnitPriceCents int
}

// Input carries everything the engine needs to price one placement.
type Input struct {
	Items           []LineItem
	ZoneFeeCents    *int
	CouponCode      string
	PointsToUse     int
	AvailablePoints int
}

// Quote is the full monetary breakdown recorded on the order. The engine
// computes; it never mutates a ledger.
type Quote struct {
	SubtotalCents    int
	VatCents         int
	DeliveryFeeCents int
	CouponID         *uuid.UUID
	DiscountCents    int
	PointsUsed       int
	PointsValueCents int
	TotalCents       int
	PointsEarned     int
}

// Engine prices carts.
type Engine struct {
	coupons CouponFinder
}

// NewEngine builds a pricing engine.
func NewEngine(coupons CouponFinder) (*Engine, error) {
	if coupons == nil {
		return nil, fmt.Errorf("coupon finder required")
	}
	return &Engine{coupons: coupons}, nil
}

// Quote computes the breakdown for one placement. Order of computation is
// fixed: subtotal, VAT, fee, coupon, points, floor at zero, earned points.
func (e *Engine) Quote(ctx context.Context, in Input) (*Quote, error) {
	if len(in.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart contains no items")
	}

	subtotal := 0
	for _, item := range in.Items {
		if item.Qty <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "line quantity must be positive").
				WithDetails(map[string]any{"product_id": item.ProductID})
		}
		subtotal += item.Qty * item.UnitPriceCents
	}

	vat := subtotal * VATRatePercent / 100

	fee := DefaultDeliveryFeeCents
	if in.ZoneFeeCents != nil {
		fee = *in.ZoneFeeCents
	}

	quote := &Quote{
		SubtotalCents:    subtotal,
		VatCents:         vat,
		DeliveryFeeCents: fee,
	}

	if in.CouponCode != "" {
		coupon, err := e.coupons.FindApplicable(ctx, in.CouponCode, time.Now())
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve coupon")
		}
		// Unknown or expired codes are silently ignored.
		if coupon != nil {
			quote.CouponID = &coupon.ID
			quote.DiscountCents = subtotal * coupon.DiscountPercent / 100
		}
	}

	if in.PointsToUse < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "points to use must not be negative")
	}
	if in.PointsToUse > in.AvailablePoints {
		return nil, pkgerrors.New(pkgerrors.CodeInsufficientPoints, "not enough loyalty points").
			WithDetails(map[string]any{
				"available": in.AvailablePoints,
				"requested": in.PointsToUse,
			})
	}
	quote.PointsUsed = in.PointsToUse
	quote.PointsValueCents = in.PointsToUse * pointValueCents

	total := subtotal + vat + fee - quote.DiscountCents - quote.PointsValueCents
	if total < 0 {
		total = 0
	}
	quote.TotalCents = total
	quote.PointsEarned = total / earnDivisorCents

	return quote, nil
}
