package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tanvirc/bazarly-backend/pkg/enums"
)

// Order is created from exactly one cart, at most once. All money fields are
// BDT minor units. PointsReversedAt and StockRestoredAt are the idempotency
// guards for the cancellation paths: a reversal that already happened is
// never applied twice, regardless of how the cancellation was retried.
type Order struct {
	ID               uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	CustomerID       uuid.UUID         `gorm:"column:customer_id;type:uuid;not null;index"`
	CartID           uuid.UUID         `gorm:"column:cart_id;type:uuid;not null;uniqueIndex:uq_orders_cart_id"`
	CouponID         *uuid.UUID        `gorm:"column:coupon_id;type:uuid"`
	SubtotalCents    int               `gorm:"column:subtotal_cents;not null"`
	VatCents         int               `gorm:"column:vat_cents;not null"`
	DeliveryFeeCents int               `gorm:"column:delivery_fee_cents;not null"`
	DiscountCents    int               `gorm:"column:discount_cents;not null;default:0"`
	PointsUsed       int               `gorm:"column:points_used;not null;default:0"`
	PointsValueCents int               `gorm:"column:points_value_cents;not null;default:0"`
	TotalCents       int               `gorm:"column:total_cents;not null"`
	PointsEarned     int               `gorm:"column:points_earned;not null;default:0"`
	Status           enums.OrderStatus `gorm:"column:status;type:order_status;not null;default:'pending'"`
	PaymentStatus    bool              `gorm:"column:payment_status;not null;default:false"`
	PaymentDate      *time.Time        `gorm:"column:payment_date"`
	PointsReversedAt *time.Time        `gorm:"column:points_reversed_at"`
	StockRestoredAt  *time.Time        `gorm:"column:stock_restored_at"`
	Items            []OrderItem       `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	Delivery         *Delivery         `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt        time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}
