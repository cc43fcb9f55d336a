package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tanvirc/bazarly-backend/pkg/db"
	"github.com/tanvirc/bazarly-backend/pkg/db/models"
	"github.com/tanvirc/bazarly-backend/pkg/enums"
	pkgerrors "github.com/tanvirc/bazarly-backend/pkg/errors"
)

const cartUniqueConstraint = "uq_orders_cart_id"

// Repository persists orders and deliveries. Status writes go through
// ApplyPhase exclusively so the paired columns always move together, and
// every guarded update reports whether it actually won.
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

// CreateOrder inserts the order with its item snapshot. The unique index on
// cart_id rejects a second order from the same cart no matter how the race
// unfolded.
func (r *Repository) CreateOrder(ctx context.Context, order *models.Order) error {
	err := r.db.WithContext(ctx).Create(order).Error
	if err == nil {
		return nil
	}
	if db.IsUniqueViolation(err, cartUniqueConstraint) {
		return pkgerrors.New(pkgerrors.CodeConflict, "an order was already placed from this cart")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
}

// CreateDelivery inserts the 1:1 delivery row for an order.
func (r *Repository) CreateDelivery(ctx context.Context, delivery *models.Delivery) error {
	err := r.db.WithContext(ctx).Create(delivery).Error
	if err == nil {
		return nil
	}
	if db.IsUniqueViolation(err, "uq_deliveries_order_id") {
		return pkgerrors.New(pkgerrors.CodeConflict, "order already has a delivery")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create delivery")
}

// FindByID loads an order with its items, delivery and active assignment.
func (r *Repository) FindByID(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Preload("Delivery").
		Preload("Delivery.Assignment", "active = ?", true).
		First(&order, "id = ?", orderID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "query order")
	}
	return &order, nil
}

// FindByDeliveryID loads the order owning a delivery, with the same preloads
// as FindByID.
func (r *Repository) FindByDeliveryID(ctx context.Context, deliveryID uuid.UUID) (*models.Order, error) {
	var delivery models.Delivery
	err := r.db.WithContext(ctx).
		Select("order_id").
		First(&delivery, "id = ?", deliveryID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "delivery not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "query delivery")
	}
	return r.FindByID(ctx, delivery.OrderID)
}

// ApplyPhase moves the order/delivery pair from one phase's projection to
// the next, guarding each UPDATE on the expected current value. A zero row
// count on either side means a concurrent writer got there first.
func (r *Repository) ApplyPhase(ctx context.Context, orderID, deliveryID uuid.UUID, from, to Phase) error {
	if !from.CanTransitionTo(to) {
		return pkgerrors.New(pkgerrors.CodeInternal, fmt.Sprintf("illegal phase transition %s -> %s", from, to))
	}
	fromOrder, fromDelivery := from.Project()
	toOrder, toDelivery := to.Project()

	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", orderID).
		Where("status = ?", fromOrder).
		Updates(map[string]any{
			"status":     toOrder,
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "update order status")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "order is no longer in a state that allows this action").
			WithDetails(map[string]any{"expected_status": fromOrder.String()})
	}

	res = r.db.WithContext(ctx).
		Model(&models.Delivery{}).
		Where("id = ?", deliveryID).
		Where("status = ?", fromDelivery).
		Updates(map[string]any{
			"status":     toDelivery,
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "update delivery status")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "delivery is no longer in a state that allows this action").
			WithDetails(map[string]any{"expected_status": fromDelivery.String()})
	}
	return nil
}

// ConfirmPayment stamps the payment fields exactly once.
func (r *Repository) ConfirmPayment(ctx context.Context, orderID uuid.UUID, at time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", orderID).
		Where("payment_status = ?", false).
		Updates(map[string]any{
			"payment_status": true,
			"payment_date":   at,
			"updated_at":     time.Now(),
		})
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "confirm payment")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "payment already confirmed")
	}
	return nil
}

// ClaimPointsReversal stamps points_reversed_at if it is still unset and
// reports whether this caller won the claim. A false return means the
// reversal already happened and must not be applied again.
func (r *Repository) ClaimPointsReversal(ctx context.Context, orderID uuid.UUID, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", orderID).
		Where("points_reversed_at IS NULL").
		Updates(map[string]any{
			"points_reversed_at": at,
			"updated_at":         time.Now(),
		})
	if res.Error != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "claim points reversal")
	}
	return res.RowsAffected > 0, nil
}

// ClaimStockRestoration stamps stock_restored_at if it is still unset and
// reports whether this caller won the claim.
func (r *Repository) ClaimStockRestoration(ctx context.Context, orderID uuid.UUID, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", orderID).
		Where("stock_restored_at IS NULL").
		Updates(map[string]any{
			"stock_restored_at": at,
			"updated_at":        time.Now(),
		})
	if res.Error != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "claim stock restoration")
	}
	return res.RowsAffected > 0, nil
}

// SetDeliveryETA writes the estimated arrival time.
func (r *Repository) SetDeliveryETA(ctx context.Context, deliveryID uuid.UUID, eta time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&models.Delivery{}).
		Where("id = ?", deliveryID).
		Updates(map[string]any{
			"estimated_at": eta,
			"updated_at":   time.Now(),
		})
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "set delivery eta")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "delivery not found")
	}
	return nil
}

// ListNeedsRestoration returns cancelled orders whose reserved stock has not
// come back to the warehouse counters yet.
func (r *Repository) ListNeedsRestoration(ctx context.Context) ([]models.Order, error) {
	var rows []models.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("status = ?", enums.OrderStatusCancelled).
		Where("stock_restored_at IS NULL").
		Order("updated_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list restorable orders")
	}
	return rows, nil
}

// FindCustomer loads the order's customer for points accounting.
func (r *Repository) FindCustomer(ctx context.Context, customerID uuid.UUID) (*models.Customer, error) {
	var customer models.Customer
	err := r.db.WithContext(ctx).First(&customer, "id = ?", customerID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "customer not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "query customer")
	}
	return &customer, nil
}

// FindProductNames resolves product ids to display names for the order
// item snapshot.
func (r *Repository) FindProductNames(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]string, error) {
	var products []models.Product
	err := r.db.WithContext(ctx).
		Select("id", "name").
		Where("id IN ?", ids).
		Find(&products).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "query product names")
	}
	names := make(map[uuid.UUID]string, len(products))
	for _, product := range products {
		names[product.ID] = product.Name
	}
	return names, nil
}

// FindZone loads a delivery zone. Missing zones surface as validation
// errors because the id came from client input.
func (r *Repository) FindZone(ctx context.Context, zoneID uuid.UUID) (*models.Zone, error) {
	var zone models.Zone
	err := r.db.WithContext(ctx).First(&zone, "id = ?", zoneID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown delivery zone")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "query zone")
	}
	return &zone, nil
}
